package matching

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/spigell/bursary-matcher/internal/ai"
	"github.com/spigell/bursary-matcher/internal/bursary"
	"github.com/spigell/bursary-matcher/internal/heuristics"
	"github.com/spigell/bursary-matcher/internal/logger"
	"github.com/spigell/bursary-matcher/internal/narrative"
	"github.com/spigell/bursary-matcher/internal/scoring"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNilStudent = errors.New("student profile is required")
	ErrNilListing = errors.New("bursary listing is required")
)

// SortKey selects the value Rank orders by.
type SortKey string

const (
	// SortByTotal orders by the deterministic total even when semantic scores exist.
	SortByTotal SortKey = "total"
	// SortByCombined orders by the combined score where present, else the total.
	SortByCombined SortKey = "combined"
)

func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(s) {
	case "", SortByTotal:
		return SortByTotal, nil
	case SortByCombined:
		return SortByCombined, nil
	}
	return "", fmt.Errorf("unknown sort key %q (want %q or %q)", s, SortByTotal, SortByCombined)
}

const (
	PathDeterministic = "deterministic"
	PathSemantic      = "semantic"

	defaultConcurrency = 8

	UnavailableExplanation = "AI analysis is unavailable for this bursary right now. The score shown is based on the rule-based match only."
)

// SemanticScorer is the optional LLM-assisted path. *ai.Scorer implements it.
type SemanticScorer interface {
	Assess(ctx context.Context, student *bursary.StudentProfile, listing *bursary.Listing) ai.Assessment
}

// Recorder receives matching telemetry. A nil Recorder disables it.
type Recorder interface {
	MatchScored(path string, total int)
	RankCompleted(d time.Duration, listings int)
}

type Config struct {
	// Concurrency bounds how many listings are scored at once. Zero means 8.
	Concurrency int
	SortBy      SortKey
	// Currency prefixes award amounts in explanations.
	Currency string
	// Needs overrides the financial-need keyword table.
	Needs []heuristics.NeedRule
}

// MatchResult is built fresh for every student/bursary pair and never stored.
type MatchResult struct {
	Bursary        *bursary.Listing  `json:"bursary"`
	Total          int               `json:"total"`
	Breakdown      scoring.Breakdown `json:"breakdown"`
	Reasons        []string          `json:"reasons"`
	Explanation    string            `json:"explanation"`
	AIScore        *int              `json:"aiScore,omitempty"`
	AIExplanation  string            `json:"aiExplanation,omitempty"`
	CombinedScore  *int              `json:"combinedScore,omitempty"`
	StudentSummary string            `json:"studentSummary,omitempty"`
	BursarySummary string            `json:"bursarySummary,omitempty"`
}

// SortValue is the value Rank orders by under key.
func (r MatchResult) SortValue(key SortKey) int {
	if key == SortByCombined && r.CombinedScore != nil {
		return *r.CombinedScore
	}
	return r.Total
}

type Engine struct {
	cfg      Config
	needs    *heuristics.NeedClassifier
	semantic SemanticScorer
	recorder Recorder
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*Engine)

func WithSemantic(s SemanticScorer) Option {
	return func(e *Engine) { e.semantic = s }
}

func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func New(cfg Config, log *zap.Logger, opts ...Option) *Engine {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.SortBy == "" {
		cfg.SortBy = SortByTotal
	}
	if cfg.Currency == "" {
		cfg.Currency = narrative.DefaultCurrencySymbol
	}

	e := &Engine{
		cfg:    cfg,
		needs:  heuristics.NewNeedClassifier(cfg.Needs),
		logger: logger.WithFields(log),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Match scores one pair. The deterministic part always runs; the semantic part
// runs only when requested and configured, and can never make Match fail.
func (e *Engine) Match(ctx context.Context, student *bursary.StudentProfile, listing *bursary.Listing, includeSemantic bool) (MatchResult, error) {
	if student == nil {
		return MatchResult{}, ErrNilStudent
	}
	if listing == nil {
		return MatchResult{}, ErrNilListing
	}

	return e.match(ctx, e.logger, student, listing, includeSemantic, e.now()), nil
}

func (e *Engine) match(ctx context.Context, log *zap.Logger, student *bursary.StudentProfile, listing *bursary.Listing, includeSemantic bool, now time.Time) MatchResult {
	scored := scoring.New(e.needs, now.Year()).Score(student, listing)

	result := MatchResult{
		Bursary:   listing,
		Total:     scored.Total,
		Breakdown: scored.Breakdown,
		Reasons:   scored.Reasons,
		Explanation: narrative.Explain(narrative.ExplainInput{
			Listing:   listing,
			Total:     scored.Total,
			Breakdown: scored.Breakdown,
			Reasons:   scored.Reasons,
			Now:       now,
			Currency:  e.cfg.Currency,
		}),
	}

	path := PathDeterministic
	if includeSemantic {
		path = PathSemantic
		e.blend(ctx, log, student, listing, &result)
	}

	if e.recorder != nil {
		e.recorder.MatchScored(path, result.Total)
	}

	return result
}

func (e *Engine) blend(ctx context.Context, log *zap.Logger, student *bursary.StudentProfile, listing *bursary.Listing, result *MatchResult) {
	var assessment ai.Assessment
	ok := false
	if e.semantic != nil {
		assessment = e.semantic.Assess(ctx, student, listing)
		ok = !assessment.Fallback
	}

	result.StudentSummary = assessment.StudentSummary
	result.BursarySummary = assessment.BursarySummary

	if !ok {
		zero := 0
		combined := result.Total
		result.AIScore = &zero
		result.AIExplanation = UnavailableExplanation
		result.CombinedScore = &combined

		log.Debug("semantic score unavailable, keeping deterministic total",
			zap.String(logger.FieldListingID, listing.ID),
			zap.Int("total", result.Total),
		)
		return
	}

	aiScore := assessment.Score
	combined := int(math.Round(float64(result.Total+aiScore) / 2))

	result.AIScore = &aiScore
	result.AIExplanation = assessment.Explanation
	result.CombinedScore = &combined
	result.Explanation = assessment.Explanation
}

// Rank matches every listing for the student and orders them by the configured
// sort key, highest first. Listings with equal keys keep their input order.
// Rank fails on a cancelled context, but not on an expired deadline.
func (e *Engine) Rank(ctx context.Context, student *bursary.StudentProfile, listings []*bursary.Listing, includeSemantic bool) ([]MatchResult, error) {
	if student == nil {
		return nil, ErrNilStudent
	}
	for i, listing := range listings {
		if listing == nil {
			return nil, fmt.Errorf("listing at index %d: %w", i, ErrNilListing)
		}
	}

	started := time.Now()
	now := e.now()
	log := logger.WithRunFields(e.logger, uuid.NewString(), student.ID)

	log.Info("ranking bursaries",
		zap.Int("listings", len(listings)),
		zap.Bool("semantic", includeSemantic),
		zap.String("sort_by", string(e.cfg.SortBy)),
	)

	results := make([]MatchResult, len(listings))

	var g errgroup.Group
	g.SetLimit(e.cfg.Concurrency)
	for i, listing := range listings {
		g.Go(func() error {
			results[i] = e.match(ctx, log, student, listing, includeSemantic, now)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Pairs cut short by a deadline already hold fallback semantic values.
	if err := ctx.Err(); err != nil {
		if !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("rank bursaries: %w", err)
		}
		log.Warn("ranking deadline exceeded, returning fallback scores for unfinished pairs", zap.Error(err))
	}

	Sort(results, e.cfg.SortBy)

	elapsed := time.Since(started)
	if e.recorder != nil {
		e.recorder.RankCompleted(elapsed, len(listings))
	}

	log.Info("ranking finished", zap.Int("results", len(results)), zap.Duration("took", elapsed))

	return results, nil
}

// Sort orders results by key, highest first, keeping input order on ties.
func Sort(results []MatchResult, key SortKey) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].SortValue(key) > results[j].SortValue(key)
	})
}

// SummarizeProfile returns the structured and conversational self-summary of a student.
func (e *Engine) SummarizeProfile(student *bursary.StudentProfile) (narrative.ProfileSummary, string, error) {
	if student == nil {
		return narrative.ProfileSummary{}, "", ErrNilStudent
	}

	now := e.now()
	summary := narrative.SummarizeProfileWith(e.needs, student, now)
	return summary, narrative.Conversational(summary, student, now), nil
}
