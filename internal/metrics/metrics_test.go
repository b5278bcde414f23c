package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spigell/bursary-matcher/internal/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	r := New()

	r.MatchScored("deterministic", 80)
	r.MatchScored("deterministic", 30)
	r.MatchScored("semantic", 55)
	r.SemanticFallback(ai.StageCompare)
	r.RankCompleted(250*time.Millisecond, 3)
	r.QueueRequest("ok")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.MatchesTotal.WithLabelValues("deterministic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.MatchesTotal.WithLabelValues("semantic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.SemanticFallbacks.WithLabelValues("compare")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.RankedListings))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.QueueRequests.WithLabelValues("ok")))

	count, err := testutil.GatherAndCount(r.Gatherer(), "bursary_rank_duration_seconds", "bursary_match_score")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestRecordersAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.MatchScored("deterministic", 10)

	assert.Equal(t, 0.0, testutil.ToFloat64(b.MatchesTotal.WithLabelValues("deterministic")))
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.SemanticFallback(ai.StageStudentSummary)

	path := filepath.Join(t.TempDir(), "bursary.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `bursary_semantic_fallbacks_total{stage="student_summary"} 1`)
}
