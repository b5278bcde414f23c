package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/bursary-matcher/internal/ai"
	"github.com/spigell/bursary-matcher/internal/ai/gemini"
	"github.com/spigell/bursary-matcher/internal/ai/mock"
	"github.com/spigell/bursary-matcher/internal/filtering"
	"github.com/spigell/bursary-matcher/internal/logger"
	"github.com/spigell/bursary-matcher/internal/matching"
	"github.com/spigell/bursary-matcher/internal/metrics"
	"github.com/spigell/bursary-matcher/internal/secrets"
	"github.com/spigell/bursary-matcher/internal/store"
)

// setup builds the logger and reads the config. Any failure is fatal.
func setup() (*zap.Logger, *Config) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		logger.Fatal("config is required")
	}

	logger.Info("starting the bursary-matcher", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	return logger, config
}

func redacted(config *Config) Config {
	c := *config
	if c.AI != nil && c.AI.Gemini != nil && c.AI.Gemini.APIKey != "" {
		aiCfg := *c.AI
		g := *aiCfg.Gemini
		g.APIKey = "***"
		aiCfg.Gemini = &g
		c.AI = &aiCfg
	}
	return c
}

func newEngine(ctx context.Context, config *Config, semantic bool, recorder *metrics.Recorder, log *zap.Logger) (*matching.Engine, error) {
	sortBy, err := matching.ParseSortKey(config.Matching.SortBy)
	if err != nil {
		return nil, err
	}

	var opts []matching.Option
	if recorder != nil {
		opts = append(opts, matching.WithRecorder(recorder))
	}

	if semantic {
		scorer, err := newSemanticScorer(ctx, config.AI, recorder, log)
		if err != nil {
			// The engine reports every pair as unavailable in this case.
			log.Warn("semantic scoring is unavailable", zap.Error(err))
		} else {
			opts = append(opts, matching.WithSemantic(scorer))
		}
	}

	return matching.New(matching.Config{
		Concurrency: config.Matching.Concurrency,
		SortBy:      sortBy,
		Currency:    config.Narrative.CurrencySymbol,
	}, log, opts...), nil
}

func newSemanticScorer(ctx context.Context, cfg *AIConfig, recorder *metrics.Recorder, log *zap.Logger) (*ai.Scorer, error) {
	completer, maxLogLength, err := newCompleter(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	opts := []ai.Option{
		ai.WithCallTimeout(cfg.Timeout),
		ai.WithMaxLogLength(maxLogLength),
	}
	if recorder != nil {
		opts = append(opts, ai.WithFallbackHook(recorder.SemanticFallback))
	}

	return ai.NewScorer(completer, log, opts...), nil
}

func newCompleter(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Completer, int, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, 0, fmt.Errorf("ai is disabled (set ai.enabled or %s_AI_ENABLED)", envPrefix)
	}

	switch provider := strings.TrimSpace(strings.ToLower(cfg.Provider)); provider {
	case mock.ProviderName:
		return mock.New(), 0, nil
	case "", gemini.ProviderName:
	default:
		return nil, 0, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	if cfg.Gemini == nil {
		return nil, 0, fmt.Errorf("gemini configuration is required when the gemini provider is used")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, 0, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY)", err)
	}

	generator, err := gemini.NewGenerator(ctx, gemini.Config{
		APIKey:      apiKey,
		Model:       cfg.Gemini.Model,
		MaxRetries:  cfg.Gemini.MaxRetries,
		Temperature: cfg.Gemini.Temperature,
	}, log.With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries)))
	if err != nil {
		return nil, 0, err
	}

	return generator, cfg.Gemini.MaxLogLength, nil
}

func filterConfig(config *Config) *filtering.Config {
	return &filtering.Config{
		OpenOnly:      config.Filters.OpenOnly,
		ExcludeFile:   config.Filters.ExcludeFile,
		Organizations: config.Filters.Organizations,
	}
}

// filterSteps returns the default pipeline with the configured steps disabled.
func filterSteps(config *Config) ([]filtering.Filter, error) {
	steps := filtering.Default()

	for _, name := range config.Filters.Skip {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !hasFilter(steps, name) {
			return nil, fmt.Errorf("unknown filter %q", name)
		}
		filtering.DisableByName(steps, name, "skipped in configuration")
	}

	return steps, nil
}

func logFilters(steps []filtering.Filter, log *zap.Logger) {
	for _, status := range filtering.Describe(steps) {
		log.Debug("filter status",
			zap.String("name", status.Name),
			zap.Bool("enabled", status.Enabled),
			zap.String("reason", status.Reason),
			zap.Any("details", status.Details),
		)
	}
}

func hasFilter(steps []filtering.Filter, name string) bool {
	for _, step := range steps {
		if step.Name() == name {
			return true
		}
	}
	return false
}

func openStore(ctx context.Context, config *Config, log *zap.Logger) store.Store {
	s, err := store.Open(ctx, config.Store)
	if err != nil {
		log.Fatal("opening the store", zap.Error(err), zap.String("driver", config.Store.Driver))
	}
	return s
}

func writeMetrics(config *Config, recorder *metrics.Recorder, log *zap.Logger) {
	if config.Metrics.Textfile == "" {
		return
	}
	if err := recorder.WriteTextfile(config.Metrics.Textfile); err != nil {
		log.Warn("writing metrics textfile", zap.Error(err))
		return
	}
	log.Debug("metrics written", zap.String("filename", config.Metrics.Textfile))
}
