package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/bursary-matcher/internal/filtering"
	"github.com/spigell/bursary-matcher/internal/metrics"
	"github.com/spigell/bursary-matcher/internal/report"
	"github.com/spigell/bursary-matcher/internal/store"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank every bursary for a student",
	Run: func(cmd *cobra.Command, _ []string) {
		match(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringP("student", "s", "", "student id to rank bursaries for")
	matchCmd.Flags().Bool("semantic", false, "blend in the AI comparison score")
	matchCmd.Flags().String("sort-by", "", "order by total or combined score")
	matchCmd.Flags().Bool("open-only", false, "skip bursaries whose deadline has passed")
	matchCmd.Flags().StringP("exclude-file", "e", "", "special file with bursaries to exclude. Default is unset.")
	matchCmd.Flags().StringP("output", "o", "table", "output format: table or json")
	matchCmd.Flags().IntP("top", "n", 0, "show only the first N results")
	matchCmd.Flags().Bool("dump", false, "also dump the full results to a temporary file")
	matchCmd.Flags().String("metrics-textfile", "", "write prometheus metrics to this file when done")
	matchCmd.Flags().StringSlice("skip-filter", nil, "filters to turn off: open_deadline, exclude_file, organizations")

	matchCmd.MarkFlagRequired("student")

	viper.BindPFlag("matching.semantic", matchCmd.Flags().Lookup("semantic"))
	viper.BindPFlag("matching.sort-by", matchCmd.Flags().Lookup("sort-by"))
	viper.BindPFlag("filters.open-only", matchCmd.Flags().Lookup("open-only"))
	viper.BindPFlag("filters.exclude-file", matchCmd.Flags().Lookup("exclude-file"))
	viper.BindPFlag("metrics.textfile", matchCmd.Flags().Lookup("metrics-textfile"))
	viper.BindPFlag("filters.skip", matchCmd.Flags().Lookup("skip-filter"))
}

func match(cmd *cobra.Command) {
	logger, config := setup()

	if err := runMatch(cmd, config, logger); err != nil {
		logger.Fatal("match failed", zap.Error(err))
	}
}

// runMatch ranks bursaries for the --student profile and renders them. The store
// is closed and the metrics textfile written before an error is returned.
func runMatch(cmd *cobra.Command, config *Config, logger *zap.Logger) error {
	steps, err := filterSteps(config)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if config.Matching.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Matching.Timeout)
		defer cancel()
	}

	recorder := metrics.New()
	defer writeMetrics(config, recorder, logger)

	s, err := store.Open(ctx, config.Store)
	if err != nil {
		return fmt.Errorf("opening the store: %w", err)
	}
	defer s.Close()

	studentID, _ := cmd.Flags().GetString("student")
	student, err := s.Profile(ctx, studentID)
	if err != nil {
		return fmt.Errorf("getting the student profile: %w", err)
	}

	listings, err := s.Listings(ctx)
	if err != nil {
		return fmt.Errorf("getting bursaries: %w", err)
	}
	logger.Info("getting bursaries", zap.Int("count", listings.Len()))

	listings, err = filtering.Run(ctx, filterConfig(config), filtering.Deps{Logger: logger, Now: time.Now}, steps, listings)
	if err != nil {
		return fmt.Errorf("filtering bursaries: %w", err)
	}
	logFilters(steps, logger)

	if listings.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no bursaries left after filters"))
		return nil
	}

	engine, err := newEngine(ctx, config, config.Matching.Semantic, recorder, logger)
	if err != nil {
		return fmt.Errorf("building the matching engine: %w", err)
	}

	results, err := engine.Rank(ctx, student, listings.Items, config.Matching.Semantic)
	if err != nil {
		return fmt.Errorf("ranking bursaries: %w", err)
	}

	if dump, _ := cmd.Flags().GetBool("dump"); dump {
		filename, err := report.DumpToTmpFile(results)
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
	}

	if top, _ := cmd.Flags().GetInt("top"); top > 0 && top < len(results) {
		results = results[:top]
	}

	output, _ := cmd.Flags().GetString("output")
	switch output {
	case "json":
		err = report.JSON(cmd.OutOrStdout(), results)
	case "table", "":
		err = report.Table(cmd.OutOrStdout(), results, time.Now())
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
	if err != nil {
		return fmt.Errorf("rendering results: %w", err)
	}

	return nil
}
