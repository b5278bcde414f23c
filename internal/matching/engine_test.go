package matching

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spigell/bursary-matcher/internal/ai"
	"github.com/spigell/bursary-matcher/internal/bursary"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2026, time.October, 17, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type stubSemantic struct {
	scores   map[string]int
	fallback bool
	delay    time.Duration

	inFlight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
}

func (s *stubSemantic) Assess(ctx context.Context, student *bursary.StudentProfile, listing *bursary.Listing) ai.Assessment {
	s.calls.Add(1)
	cur := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		peak := s.peak.Load()
		if cur <= peak || s.peak.CompareAndSwap(peak, cur) {
			break
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	if s.fallback {
		return ai.Assessment{Score: ai.FallbackScore, Explanation: "generic", Fallback: true, StudentSummary: "fallback student"}
	}
	return ai.Assessment{
		Score:          s.scores[listing.ID],
		Explanation:    "semantic view of " + listing.ID,
		StudentSummary: "student summary",
		BursarySummary: "summary of " + listing.ID,
	}
}

type recorded struct {
	mu      sync.Mutex
	paths   []string
	ranks   int
	listing int
}

func (r *recorded) MatchScored(path string, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

func (r *recorded) RankCompleted(d time.Duration, listings int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ranks++
	r.listing += listings
}

func fixtureStudent() *bursary.StudentProfile {
	return &bursary.StudentProfile{
		ID:                  "s1",
		Major:               "Computer Science",
		FinancialBackground: "low income household",
		Skills:              []string{"Programming"},
		GraduationYear:      2028,
	}
}

// Totals for fixtureStudent: strong 80, mid 41, weak 29, weak2 29.
func fixtureListings() []*bursary.Listing {
	return []*bursary.Listing{
		{ID: "weak", Title: "Engineering Fund", FieldOfStudy: []string{"Engineering"}, FinancialNeedLevel: bursary.NeedMedium},
		{ID: "strong", Title: "Tech Futures", FieldOfStudy: []string{"Computer Science"}, FinancialNeedLevel: bursary.NeedHigh,
			AITags: []string{"Programming"}, AcademicLevel: []string{"undergraduate"}, AwardAmount: 25000,
			Deadline: fixedNow.AddDate(0, 0, 10)},
		{ID: "weak2", Title: "Mining Bursary", FieldOfStudy: []string{"Mining Engineering"}, FinancialNeedLevel: bursary.NeedMedium},
		{ID: "mid", Title: "Digital Skills", FieldOfStudy: []string{"Computer Science"}, FinancialNeedLevel: bursary.NeedMedium},
	}
}

func ids(results []MatchResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Bursary.ID)
	}
	return out
}

func TestMatchIsDeterministic(t *testing.T) {
	t.Parallel()

	engine := New(Config{}, zap.NewNop(), WithClock(clock))
	listing := fixtureListings()[1]

	first, err := engine.Match(context.Background(), fixtureStudent(), listing, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Total != 80 || first.AIScore != nil || first.CombinedScore != nil {
		t.Fatalf("unexpected deterministic result: %+v", first)
	}
	if !strings.Contains(first.Explanation, "Tech Futures is a strong match") || !strings.Contains(first.Explanation, "R25,000.00") {
		t.Fatalf("unexpected explanation: %q", first.Explanation)
	}

	for i := 0; i < 5; i++ {
		again, _ := engine.Match(context.Background(), fixtureStudent(), listing, false)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("match %d differs", i)
		}
	}
}

func TestMatchRejectsNilInputs(t *testing.T) {
	t.Parallel()

	engine := New(Config{}, nil)

	if _, err := engine.Match(context.Background(), nil, &bursary.Listing{}, false); !errors.Is(err, ErrNilStudent) {
		t.Fatalf("expected ErrNilStudent, got %v", err)
	}
	if _, err := engine.Match(context.Background(), &bursary.StudentProfile{}, nil, false); !errors.Is(err, ErrNilListing) {
		t.Fatalf("expected ErrNilListing, got %v", err)
	}
	if _, err := engine.Rank(context.Background(), fixtureStudent(), []*bursary.Listing{{ID: "a"}, nil}, false); !errors.Is(err, ErrNilListing) {
		t.Fatalf("expected ErrNilListing from Rank, got %v", err)
	}
	if _, _, err := engine.SummarizeProfile(nil); !errors.Is(err, ErrNilStudent) {
		t.Fatalf("expected ErrNilStudent from SummarizeProfile, got %v", err)
	}
}

func TestMatchBlendsSemanticScore(t *testing.T) {
	t.Parallel()

	semantic := &stubSemantic{scores: map[string]int{"strong": 91}}
	engine := New(Config{}, zap.NewNop(), WithClock(clock), WithSemantic(semantic))

	res, err := engine.Match(context.Background(), fixtureStudent(), fixtureListings()[1], true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.AIScore == nil || *res.AIScore != 91 {
		t.Fatalf("unexpected ai score: %v", res.AIScore)
	}
	if res.CombinedScore == nil || *res.CombinedScore != 86 {
		t.Fatalf("expected combined round((80+91)/2)=86, got %v", res.CombinedScore)
	}
	if res.Explanation != "semantic view of strong" || res.AIExplanation != res.Explanation {
		t.Fatalf("semantic explanation should take precedence: %q", res.Explanation)
	}
	if res.Total != 80 {
		t.Fatalf("deterministic total must be preserved, got %d", res.Total)
	}
	if res.StudentSummary != "student summary" || res.BursarySummary != "summary of strong" {
		t.Fatalf("summaries not attached: %+v", res)
	}
}

func TestMatchSemanticFailureKeepsDeterministicResult(t *testing.T) {
	t.Parallel()

	for name, semantic := range map[string]SemanticScorer{
		"fallback":     &stubSemantic{fallback: true},
		"not wired up": nil,
	} {
		opts := []Option{WithClock(clock)}
		if semantic != nil {
			opts = append(opts, WithSemantic(semantic))
		}
		engine := New(Config{}, zap.NewNop(), opts...)

		plain, _ := engine.Match(context.Background(), fixtureStudent(), fixtureListings()[1], false)
		res, err := engine.Match(context.Background(), fixtureStudent(), fixtureListings()[1], true)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}

		if res.AIScore == nil || *res.AIScore != 0 {
			t.Fatalf("%s: expected ai score 0, got %v", name, res.AIScore)
		}
		if res.CombinedScore == nil || *res.CombinedScore != res.Total {
			t.Fatalf("%s: combined must equal total, got %v", name, res.CombinedScore)
		}
		if res.AIExplanation != UnavailableExplanation {
			t.Fatalf("%s: unexpected ai explanation %q", name, res.AIExplanation)
		}
		if res.Explanation != plain.Explanation {
			t.Fatalf("%s: deterministic explanation must be kept", name)
		}
	}
}

func TestRankOrdersByTotalAndKeepsTies(t *testing.T) {
	t.Parallel()

	rec := &recorded{}
	engine := New(Config{Concurrency: 2}, zap.NewNop(), WithClock(clock), WithRecorder(rec))

	results, err := engine.Rank(context.Background(), fixtureStudent(), fixtureListings(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got, want := ids(results), []string{"strong", "mid", "weak", "weak2"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected order %v, want %v", got, want)
	}
	totals := []int{results[0].Total, results[1].Total, results[2].Total, results[3].Total}
	if !reflect.DeepEqual(totals, []int{80, 41, 29, 29}) {
		t.Fatalf("unexpected totals %v", totals)
	}

	if rec.ranks != 1 || rec.listing != 4 || len(rec.paths) != 4 || rec.paths[0] != PathDeterministic {
		t.Fatalf("unexpected telemetry: %+v", rec)
	}
}

func TestRankOrderIsStableWhenSemanticFails(t *testing.T) {
	t.Parallel()

	plain := New(Config{}, zap.NewNop(), WithClock(clock))
	failing := New(Config{}, zap.NewNop(), WithClock(clock), WithSemantic(&stubSemantic{fallback: true}))

	want, err := plain.Rank(context.Background(), fixtureStudent(), fixtureListings(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := failing.Rank(context.Background(), fixtureStudent(), fixtureListings(), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(ids(got), ids(want)) {
		t.Fatalf("order changed under semantic failure: %v vs %v", ids(got), ids(want))
	}
	if len(got) != len(fixtureListings()) {
		t.Fatalf("every listing must be returned")
	}
}

func TestRankSortKeys(t *testing.T) {
	t.Parallel()

	scores := map[string]int{"weak": 100, "strong": 0, "mid": 50, "weak2": 10}

	byTotal := New(Config{}, zap.NewNop(), WithClock(clock), WithSemantic(&stubSemantic{scores: scores}))
	results, err := byTotal.Rank(context.Background(), fixtureStudent(), fixtureListings(), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ids(results); !reflect.DeepEqual(got, []string{"strong", "mid", "weak", "weak2"}) {
		t.Fatalf("total sort must ignore semantic scores, got %v", got)
	}

	byCombined := New(Config{SortBy: SortByCombined}, zap.NewNop(), WithClock(clock), WithSemantic(&stubSemantic{scores: scores}))
	results, err = byCombined.Rank(context.Background(), fixtureStudent(), fixtureListings(), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// combined: weak 65, mid 46, strong 40, weak2 20
	if got := ids(results); !reflect.DeepEqual(got, []string{"weak", "mid", "strong", "weak2"}) {
		t.Fatalf("unexpected combined order %v", got)
	}
}

func TestRankRespectsConcurrencyLimit(t *testing.T) {
	t.Parallel()

	listings := make([]*bursary.Listing, 0, 12)
	for i := 0; i < 12; i++ {
		listings = append(listings, &bursary.Listing{ID: string(rune('a' + i))})
	}

	semantic := &stubSemantic{scores: map[string]int{}, delay: 5 * time.Millisecond}
	engine := New(Config{Concurrency: 3}, zap.NewNop(), WithClock(clock), WithSemantic(semantic))

	results, err := engine.Rank(context.Background(), fixtureStudent(), listings, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != len(listings) || semantic.calls.Load() != int32(len(listings)) {
		t.Fatalf("expected every listing to be assessed once")
	}
	if peak := semantic.peak.Load(); peak > 3 {
		t.Fatalf("concurrency limit exceeded: %d", peak)
	}
}

func TestRankCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := New(Config{}, zap.NewNop(), WithClock(clock))
	if _, err := engine.Rank(ctx, fixtureStudent(), fixtureListings(), false); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRankReturnsEverythingWhenDeadlineExpires(t *testing.T) {
	t.Parallel()

	blocking := ai.CompleterFunc(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	engine := New(Config{}, zap.NewNop(), WithClock(clock), WithSemantic(ai.NewScorer(blocking, zap.NewNop())))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	results, err := engine.Rank(ctx, fixtureStudent(), fixtureListings(), true)
	if err != nil {
		t.Fatalf("expected results despite the deadline, got %v", err)
	}
	if got := ids(results); !reflect.DeepEqual(got, []string{"strong", "mid", "weak", "weak2"}) {
		t.Fatalf("unexpected order %v", got)
	}
	for _, r := range results {
		if r.AIScore == nil || *r.AIScore != 0 || r.CombinedScore == nil || *r.CombinedScore != r.Total {
			t.Fatalf("expected the unavailable semantic result for %s: %+v", r.Bursary.ID, r)
		}
		if r.AIExplanation != UnavailableExplanation {
			t.Fatalf("unexpected explanation for %s: %q", r.Bursary.ID, r.AIExplanation)
		}
	}
}

func TestRankEmpty(t *testing.T) {
	t.Parallel()

	results, err := New(Config{}, nil).Rank(context.Background(), fixtureStudent(), nil, true)
	if err != nil || len(results) != 0 {
		t.Fatalf("expected empty result, got %v %v", results, err)
	}
}

func TestParseSortKey(t *testing.T) {
	t.Parallel()

	if key, err := ParseSortKey(""); err != nil || key != SortByTotal {
		t.Fatalf("expected default total, got %q %v", key, err)
	}
	if key, err := ParseSortKey("combined"); err != nil || key != SortByCombined {
		t.Fatalf("expected combined, got %q %v", key, err)
	}
	if _, err := ParseSortKey("random"); err == nil {
		t.Fatal("expected error")
	}
}

func TestEngineSummarizeProfile(t *testing.T) {
	t.Parallel()

	engine := New(Config{}, nil, WithClock(clock))
	summary, text, err := engine.SummarizeProfile(fixtureStudent())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.FinancialNeed != "high financial need" {
		t.Fatalf("unexpected need label %q", summary.FinancialNeed)
	}
	if !strings.Contains(text, "2 years away") {
		t.Fatalf("unexpected narrative %q", text)
	}
}
