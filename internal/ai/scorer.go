package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	_ "embed"

	"github.com/spigell/bursary-matcher/internal/bursary"
	"github.com/spigell/bursary-matcher/internal/logger"
	"github.com/spigell/bursary-matcher/internal/utils"
	"go.uber.org/zap"
)

//go:embed prompts/student_summary.md
var studentSummaryTemplate string

//go:embed prompts/bursary_summary.md
var bursarySummaryTemplate string

//go:embed prompts/compare.md
var compareTemplate string

const (
	defaultMaxLogLength = 200

	// FallbackScore is the neutral score used when the comparison cannot be obtained.
	FallbackScore       = 50
	fallbackExplanation = "A detailed AI comparison is not available for this bursary right now, so this neutral score is only a placeholder. Review the eligibility criteria yourself before applying."
)

// Scorer runs the semantic scoring path: summarize the student, summarize the
// bursary, then ask the completer to compare the two. It never returns errors;
// each failing step is replaced by a deterministic fallback.
type Scorer struct {
	completer   Completer
	logger      *zap.Logger
	maxLogLen   int
	callTimeout time.Duration
	onFallback  func(Stage)
	now         func() time.Time
}

type Option func(*Scorer)

// WithCallTimeout bounds every completer call. Zero leaves the caller's context untouched.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Scorer) { s.callTimeout = d }
}

// WithMaxLogLength sets how much of prompts and responses is logged at debug level.
func WithMaxLogLength(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.maxLogLen = n
		}
	}
}

// WithFallbackHook is called once for every step that fell back.
func WithFallbackHook(fn func(Stage)) Option {
	return func(s *Scorer) { s.onFallback = fn }
}

// WithClock overrides the clock used for deadline context in bursary payloads.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		if now != nil {
			s.now = now
		}
	}
}

func NewScorer(completer Completer, log *zap.Logger, opts ...Option) *Scorer {
	s := &Scorer{
		completer: completer,
		logger:    logger.WithFields(log),
		maxLogLen: defaultMaxLogLength,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Assess runs all three steps for one pair. The comparison uses fallback summaries
// when the summary calls fail.
func (s *Scorer) Assess(ctx context.Context, student *bursary.StudentProfile, listing *bursary.Listing) Assessment {
	studentSummary := s.SummarizeStudent(ctx, student)
	bursarySummary := s.SummarizeBursary(ctx, listing)

	assessment := s.Compare(ctx, studentSummary, bursarySummary, listingID(listing))
	assessment.StudentSummary = studentSummary
	assessment.BursarySummary = bursarySummary

	return assessment
}

// SummarizeStudent asks for a prose summary of the profile, falling back to a one-line template.
func (s *Scorer) SummarizeStudent(ctx context.Context, student *bursary.StudentProfile) string {
	if student == nil {
		student = &bursary.StudentProfile{}
	}

	payload, err := json.MarshalIndent(student, "", "  ")
	if err != nil {
		s.fallback(StageStudentSummary, "", fmt.Errorf("marshal student profile: %w", err))
		return studentFallbackSummary(student)
	}

	prompt := strings.ReplaceAll(studentSummaryTemplate, "{{PROFILE_JSON}}", string(payload))
	summary, err := s.complete(ctx, StageStudentSummary, "", prompt)
	if err != nil {
		s.fallback(StageStudentSummary, "", err)
		return studentFallbackSummary(student)
	}

	return summary
}

// SummarizeBursary asks for a prose summary of the listing, falling back to a one-line template.
func (s *Scorer) SummarizeBursary(ctx context.Context, listing *bursary.Listing) string {
	if listing == nil {
		listing = &bursary.Listing{}
	}

	payload, err := json.MarshalIndent(bursaryPayload(listing, s.now()), "", "  ")
	if err != nil {
		s.fallback(StageBursarySummary, listing.ID, fmt.Errorf("marshal bursary listing: %w", err))
		return bursaryFallbackSummary(listing)
	}

	prompt := strings.ReplaceAll(bursarySummaryTemplate, "{{BURSARY_JSON}}", string(payload))
	summary, err := s.complete(ctx, StageBursarySummary, listing.ID, prompt)
	if err != nil {
		s.fallback(StageBursarySummary, listing.ID, err)
		return bursaryFallbackSummary(listing)
	}

	return summary
}

// Compare asks for a {score, explanation} object. Any failure yields FallbackScore
// with a generic explanation and Fallback set.
func (s *Scorer) Compare(ctx context.Context, studentSummary, bursarySummary, bursaryID string) Assessment {
	prompt := strings.ReplaceAll(compareTemplate, "{{STUDENT_SUMMARY}}", strings.TrimSpace(studentSummary))
	prompt = strings.ReplaceAll(prompt, "{{BURSARY_SUMMARY}}", strings.TrimSpace(bursarySummary))

	raw, err := s.complete(ctx, StageCompare, bursaryID, prompt)
	if err != nil {
		s.fallback(StageCompare, bursaryID, err)
		return fallbackAssessment(raw)
	}

	parsed, err := parseComparison(raw)
	if err != nil {
		s.fallback(StageCompare, bursaryID, err)
		return fallbackAssessment(raw)
	}

	return Assessment{
		Score:       parsed.score,
		Explanation: parsed.explanation,
		Raw:         raw,
	}
}

func (s *Scorer) complete(ctx context.Context, stage Stage, bursaryID, prompt string) (string, error) {
	if s.completer == nil {
		return "", fmt.Errorf("%s: no completer configured", stage)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if s.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
	}

	fields := []zap.Field{zap.String("stage", string(stage))}
	if bursaryID != "" {
		fields = append(fields, zap.String(logger.FieldListingID, bursaryID))
	}

	s.logger.Debug("completion request", append(fields,
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, s.maxLogLen)),
	)...)

	raw, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}

	s.logger.Debug("completion response", append(fields,
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, s.maxLogLen)),
	)...)

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrEmptyResponse
	}
	return raw, nil
}

func (s *Scorer) fallback(stage Stage, bursaryID string, err error) {
	fields := []zap.Field{zap.String("stage", string(stage)), zap.Error(err)}
	if bursaryID != "" {
		fields = append(fields, zap.String(logger.FieldListingID, bursaryID))
	}
	s.logger.Warn("semantic scoring step fell back", fields...)

	if s.onFallback != nil {
		s.onFallback(stage)
	}
}

func fallbackAssessment(raw string) Assessment {
	return Assessment{
		Score:       FallbackScore,
		Explanation: fallbackExplanation,
		Fallback:    true,
		Raw:         raw,
	}
}

func bursaryPayload(l *bursary.Listing, now time.Time) map[string]any {
	payload := map[string]any{
		"title":               l.Title,
		"organization":        l.Organization,
		"description":         l.Description,
		"eligibilityCriteria": l.EligibilityCriteria,
		"awardAmount":         l.AwardAmount,
		"fieldOfStudy":        l.FieldOfStudy,
		"academicLevel":       l.AcademicLevel,
		"financialNeedLevel":  l.NeedLevel(),
		"themes":              l.AITags,
		"categories":          l.AICategorization,
		"requiredDocuments":   l.RequiredDocuments,
	}
	if l.HasDeadline() {
		payload["deadline"] = l.Deadline.Format("2006-01-02")
		payload["today"] = now.Format("2006-01-02")
	}
	return payload
}

func studentFallbackSummary(s *bursary.StudentProfile) string {
	major := orDefault(s.Major, "an undeclared field")
	institution := orDefault(s.Institution, "an unspecified institution")
	summary := fmt.Sprintf("Student of %s at %s", major, institution)
	if s.GraduationYear > 0 {
		summary += fmt.Sprintf(", graduating in %d", s.GraduationYear)
	}
	if skills := s.TopSkills(3); len(skills) > 0 {
		summary += ", skilled in " + strings.Join(skills, ", ")
	}
	return summary + "."
}

func bursaryFallbackSummary(l *bursary.Listing) string {
	title := orDefault(l.Title, "Untitled bursary")
	fields := "any field of study"
	if len(l.FieldOfStudy) > 0 {
		fields = strings.Join(l.FieldOfStudy, ", ")
	}
	summary := fmt.Sprintf("%s: a %s-need bursary for %s", title, l.NeedLevel(), fields)
	if l.AwardAmount > 0 {
		summary += fmt.Sprintf(" worth %.0f", l.AwardAmount)
	}
	return summary + "."
}

func listingID(l *bursary.Listing) string {
	if l == nil {
		return ""
	}
	return l.ID
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}
