package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/bursary-matcher/internal/metrics"
	"github.com/spigell/bursary-matcher/internal/queue"
	"github.com/spigell/bursary-matcher/internal/store"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Serve match requests from a RabbitMQ queue",
	Run: func(_ *cobra.Command, _ []string) {
		worker()
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)

	workerCmd.Flags().String("queue-url", "", "amqp url of the broker")
	workerCmd.Flags().String("queue-name", "", "queue to consume match requests from")

	viper.BindPFlag("queue.url", workerCmd.Flags().Lookup("queue-url"))
	viper.BindPFlag("queue.name", workerCmd.Flags().Lookup("queue-name"))
}

func worker() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, config := setup()

	if err := runWorker(ctx, config, logger); err != nil {
		logger.Fatal("queue worker stopped", zap.Error(err))
	}

	logger.Info("exiting", zap.String("reason", "shutdown requested"))
}

func runWorker(ctx context.Context, config *Config, logger *zap.Logger) error {
	recorder := metrics.New()
	defer writeMetrics(config, recorder, logger)

	s, err := store.Open(ctx, config.Store)
	if err != nil {
		return fmt.Errorf("opening the store: %w", err)
	}
	defer s.Close()

	// Semantic scoring is decided per request, so the scorer is wired whenever ai is enabled.
	semantic := config.AI != nil && config.AI.Enabled
	engine, err := newEngine(ctx, config, semantic, recorder, logger)
	if err != nil {
		return fmt.Errorf("building the matching engine: %w", err)
	}

	return queue.New(config.Queue, engine, s, s, logger, queue.WithRecorder(recorder)).Run(ctx)
}
