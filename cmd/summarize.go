package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/bursary-matcher/internal/metrics"
	"github.com/spigell/bursary-matcher/internal/report"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Describe a student profile the way the matcher sees it",
	Run: func(cmd *cobra.Command, _ []string) {
		summarize(cmd)
	},
}

func init() {
	rootCmd.AddCommand(summarizeCmd)

	summarizeCmd.Flags().StringP("student", "s", "", "student id to summarize")
	summarizeCmd.Flags().StringP("output", "o", "text", "output format: text or json")
	summarizeCmd.Flags().Bool("ai", false, "also ask the AI provider for a student summary")

	summarizeCmd.MarkFlagRequired("student")
}

func summarize(cmd *cobra.Command) {
	ctx := context.Background()
	logger, config := setup()

	s := openStore(ctx, config, logger)
	defer s.Close()

	studentID, _ := cmd.Flags().GetString("student")
	student, err := s.Profile(ctx, studentID)
	if err != nil {
		logger.Fatal("getting the student profile", zap.Error(err))
	}

	engine, err := newEngine(ctx, config, false, metrics.New(), logger)
	if err != nil {
		logger.Fatal("building the matching engine", zap.Error(err))
	}

	summary, text, err := engine.SummarizeProfile(student)
	if err != nil {
		logger.Fatal("summarizing the profile", zap.Error(err))
	}

	var aiSummary string
	if withAI, _ := cmd.Flags().GetBool("ai"); withAI {
		scorer, err := newSemanticScorer(ctx, config.AI, nil, logger)
		if err != nil {
			logger.Warn("skipping the AI summary", zap.Error(err))
		} else {
			aiSummary = scorer.SummarizeStudent(ctx, student)
		}
	}

	output, _ := cmd.Flags().GetString("output")
	switch output {
	case "json":
		err = report.JSON(os.Stdout, struct {
			Summary   any    `json:"summary"`
			Text      string `json:"text"`
			AISummary string `json:"aiSummary,omitempty"`
		}{summary, text, aiSummary})
	case "text", "":
		_, err = fmt.Fprintln(os.Stdout, text)
		if err == nil && aiSummary != "" {
			_, err = fmt.Fprintf(os.Stdout, "\nAI summary: %s\n", aiSummary)
		}
	default:
		logger.Fatal("unknown output format", zap.String("output", output))
	}
	if err != nil {
		logger.Fatal("rendering the summary", zap.Error(err))
	}
}
