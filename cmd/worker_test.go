package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/bursary-matcher/internal/store"
)

func TestRunWorkerStoreFailureWritesMetrics(t *testing.T) {
	t.Parallel()

	textfile := filepath.Join(t.TempDir(), "worker.prom")
	config := &Config{
		Store:   store.Config{Driver: "mongo"},
		Metrics: MetricsConfig{Textfile: textfile},
	}

	err := runWorker(context.Background(), config, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening the store")
	assert.FileExists(t, textfile)
}
