package cmd

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/bursary-matcher/internal/ai/mock"
	"github.com/spigell/bursary-matcher/internal/store"
)

const sampleConfig = `
store:
  driver: sqlite
  path: /tmp/bursaries.db
matching:
  sort-by: combined
  timeout: 10s
filters:
  open-only: true
  organizations: [Acme]
ai:
  enabled: true
  provider: mock
  gemini:
    api-key: secret
`

func TestConfigDefaultsAndFile(t *testing.T) {
	t.Parallel()

	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(sampleConfig)))

	var config Config
	require.NoError(t, v.Unmarshal(&config))

	assert.Equal(t, store.Config{Driver: "sqlite", Path: "/tmp/bursaries.db"}, config.Store)
	assert.Equal(t, "combined", config.Matching.SortBy)
	assert.Equal(t, 10*time.Second, config.Matching.Timeout)
	assert.Equal(t, 8, config.Matching.Concurrency)
	assert.Equal(t, "R", config.Narrative.CurrencySymbol)
	assert.True(t, config.Filters.OpenOnly)
	assert.Equal(t, []string{"Acme"}, config.Filters.Organizations)
	assert.Equal(t, "match-requests", config.Queue.Name)
	assert.Equal(t, 2*time.Minute, config.Queue.Timeout)
	require.NotNil(t, config.AI)
	require.NotNil(t, config.AI.Gemini)
	assert.Equal(t, 3, config.AI.Gemini.MaxRetries)
}

func TestRedactedHidesAPIKey(t *testing.T) {
	t.Parallel()

	config := &Config{AI: &AIConfig{Gemini: &GeminiConfig{APIKey: "secret"}}}
	safe := redacted(config)

	assert.Equal(t, "***", safe.AI.Gemini.APIKey)
	assert.Equal(t, "secret", config.AI.Gemini.APIKey, "original config must stay intact")
}

func TestNewCompleter(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	log := zap.NewNop()

	_, _, err := newCompleter(ctx, nil, log)
	assert.Error(t, err)

	_, _, err = newCompleter(ctx, &AIConfig{Enabled: false, Provider: "mock"}, log)
	assert.Error(t, err)

	completer, _, err := newCompleter(ctx, &AIConfig{Enabled: true, Provider: "Mock"}, log)
	require.NoError(t, err)
	assert.IsType(t, mock.Completer{}, completer)

	_, _, err = newCompleter(ctx, &AIConfig{Enabled: true, Provider: "openai"}, log)
	assert.ErrorContains(t, err, "unsupported ai provider")

	_, _, err = newCompleter(ctx, &AIConfig{Enabled: true, Provider: "gemini"}, log)
	assert.ErrorContains(t, err, "gemini configuration is required")
}

func TestNewEngineRejectsUnknownSortKey(t *testing.T) {
	t.Parallel()

	config := &Config{Matching: MatchingConfig{SortBy: "random"}}
	_, err := newEngine(context.Background(), config, false, nil, zap.NewNop())
	assert.Error(t, err)
}
