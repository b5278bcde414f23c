package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/bursary-matcher/internal/bursary"
)

var excludeCmd = &cobra.Command{
	Use:   "exclude BURSARY_ID...",
	Short: "Append bursaries to the exclude file so match skips them",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		exclude(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(excludeCmd)

	excludeCmd.Flags().StringP("file", "f", "", "exclude file to append to (default is filters.exclude-file)")
	excludeCmd.Flags().StringP("reason", "r", "excluded manually", "reason stored next to every entry")
}

func exclude(cmd *cobra.Command, ids []string) {
	ctx := context.Background()
	logger, config := setup()

	excludeFile, _ := cmd.Flags().GetString("file")
	if excludeFile == "" {
		excludeFile = config.Filters.ExcludeFile
	}
	if excludeFile == "" {
		logger.Fatal("exclude file is not configured", zap.String("hint", "pass --file or set filters.exclude-file"))
	}

	s := openStore(ctx, config, logger)
	defer s.Close()

	all, err := s.Listings(ctx)
	if err != nil {
		logger.Fatal("getting bursaries", zap.Error(err))
	}

	selected := &bursary.Listings{}
	for _, id := range ids {
		listing := all.FindByID(id)
		if listing == nil {
			logger.Warn("unknown bursary, excluding by id only", zap.String("bursary_id", id))
			listing = &bursary.Listing{ID: id}
		}
		selected.Items = append(selected.Items, listing)
	}

	excluded, err := bursary.GetExcludedFromFile(excludeFile)
	if err != nil {
		logger.Fatal("reading the exclude file", zap.Error(err))
	}

	reason, _ := cmd.Flags().GetString("reason")
	excluded.Append(selected.ToExcluded(reason, time.Now().UTC()))

	if err := excluded.ToFile(excludeFile); err != nil {
		logger.Fatal("writing the exclude file", zap.Error(err))
	}

	logger.Info("appended to exclude file", zap.String("filename", excludeFile), zap.Strings("bursaries", ids), zap.Int("total", len(excluded.Items)))
}
