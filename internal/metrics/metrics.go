package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/spigell/bursary-matcher/internal/ai"
)

// Recorder owns the matcher's Prometheus collectors.
type Recorder struct {
	registry *prometheus.Registry

	MatchesTotal      *prometheus.CounterVec
	MatchScore        *prometheus.HistogramVec
	SemanticFallbacks *prometheus.CounterVec
	RankDuration      prometheus.Histogram
	RankedListings    prometheus.Counter
	QueueRequests     *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		MatchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bursary_matches_total",
				Help: "Total number of student/bursary pairs scored",
			},
			[]string{"path"},
		),
		MatchScore: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bursary_match_score",
				Help:    "Distribution of deterministic match totals",
				Buckets: prometheus.LinearBuckets(10, 10, 10),
			},
			[]string{"path"},
		),
		SemanticFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bursary_semantic_fallbacks_total",
				Help: "Total number of semantic scoring steps that fell back",
			},
			[]string{"stage"},
		),
		RankDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bursary_rank_duration_seconds",
				Help:    "Duration of ranking runs in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
		),
		RankedListings: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bursary_ranked_listings_total",
				Help: "Total number of listings passed to ranking runs",
			},
		),
		QueueRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bursary_queue_requests_total",
				Help: "Total number of queued match requests by outcome",
			},
			[]string{"outcome"},
		),
	}
}

func (r *Recorder) MatchScored(path string, total int) {
	r.MatchesTotal.WithLabelValues(path).Inc()
	r.MatchScore.WithLabelValues(path).Observe(float64(total))
}

func (r *Recorder) RankCompleted(d time.Duration, listings int) {
	r.RankDuration.Observe(d.Seconds())
	r.RankedListings.Add(float64(listings))
}

// SemanticFallback matches the hook signature expected by ai.WithFallbackHook.
func (r *Recorder) SemanticFallback(stage ai.Stage) {
	r.SemanticFallbacks.WithLabelValues(string(stage)).Inc()
}

func (r *Recorder) QueueRequest(outcome string) {
	r.QueueRequests.WithLabelValues(outcome).Inc()
}

func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes every collected metric in the node-exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
