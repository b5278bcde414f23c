package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/bursary-matcher/internal/store"
)

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Load students and bursaries from a JSON document into the configured SQL store",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		importDocument(args[0])
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func importDocument(path string) {
	ctx := context.Background()
	logger, config := setup()

	source, err := store.NewFileStore(path)
	if err != nil {
		logger.Fatal("reading the document", zap.Error(err))
	}

	target := openStore(ctx, config, logger)
	defer target.Close()

	writer, ok := target.(store.Writer)
	if !ok {
		logger.Fatal("the configured store is read-only", zap.String("driver", config.Store.Driver))
	}

	n, err := store.Copy(ctx, source, writer)
	if err != nil {
		logger.Fatal("importing the document", zap.Error(err))
	}

	logger.Info("imported document", zap.String("filename", path), zap.Int("students", n.Students), zap.Int("bursaries", n.Bursaries))
}
