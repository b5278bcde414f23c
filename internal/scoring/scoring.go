package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/spigell/bursary-matcher/internal/bursary"
	"github.com/spigell/bursary-matcher/internal/heuristics"
)

const (
	WeightFinancial       = 0.4
	WeightAcademic        = 0.3
	WeightExtracurricular = 0.2
	WeightDemographic     = 0.1

	MaxReasons = 3

	// StrongThreshold is the sub-score at which an area counts as strong.
	StrongThreshold = 70

	noFinancialData = 50

	fieldMatchBase    = 50
	fieldMismatchBase = 10
	// Flat bonus for every student. There is no institution-quality signal yet.
	institutionFactor = 20
	levelMatchBonus   = 30

	tagMatchBonus      = 50
	categoryMatchBonus = 30
	diversityPerItem   = 2
	diversityCap       = 20

	locationBonus = 60
	languageBonus = 40
)

// Breakdown holds the four sub-scores, each in [0,100].
type Breakdown struct {
	FinancialNeed    int `json:"financialNeed"`
	AcademicMerit    int `json:"academicMerit"`
	Extracurriculars int `json:"extracurriculars"`
	Demographics     int `json:"demographics"`
}

// Result is the deterministic part of a match.
type Result struct {
	Total     int              `json:"total"`
	Breakdown Breakdown        `json:"breakdown"`
	Reasons   []string         `json:"reasons"`
	Level     heuristics.Level `json:"academicLevel"`
}

// Scorer computes deterministic matches. It holds no mutable state and is safe for concurrent use.
type Scorer struct {
	needs       *heuristics.NeedClassifier
	currentYear int
}

// New returns a Scorer. A nil classifier falls back to heuristics.Default.
func New(needs *heuristics.NeedClassifier, currentYear int) *Scorer {
	if needs == nil {
		needs = heuristics.Default()
	}
	return &Scorer{needs: needs, currentYear: currentYear}
}

// Score is a convenience wrapper around a Scorer built with the default need table.
func Score(student *bursary.StudentProfile, listing *bursary.Listing, currentYear int) Result {
	return New(nil, currentYear).Score(student, listing)
}

// Score never fails: missing fields degrade to documented defaults.
// Nil inputs are treated as empty records.
func (s *Scorer) Score(student *bursary.StudentProfile, listing *bursary.Listing) Result {
	if student == nil {
		student = &bursary.StudentProfile{}
	}
	if listing == nil {
		listing = &bursary.Listing{}
	}

	var reasons []string
	add := func(reason string) {
		if reason != "" {
			reasons = append(reasons, reason)
		}
	}

	financial, reason := s.financialNeed(student, listing)
	add(reason)

	level := heuristics.LevelOf(student.GraduationYear, s.currentYear)
	academic, reason := academicMerit(student, listing, level)
	add(reason)

	extra, reason := extracurriculars(student, listing)
	add(reason)

	demo, reason := demographics(student, listing)
	add(reason)

	if len(reasons) > MaxReasons {
		reasons = reasons[:MaxReasons]
	}

	breakdown := Breakdown{
		FinancialNeed:    clamp(financial),
		AcademicMerit:    clamp(academic),
		Extracurriculars: clamp(extra),
		Demographics:     clamp(demo),
	}

	return Result{
		Total:     Total(breakdown),
		Breakdown: breakdown,
		Reasons:   reasons,
		Level:     level,
	}
}

// Total is round(0.4f + 0.3a + 0.2e + 0.1d) over clamped sub-scores.
func Total(b Breakdown) int {
	weighted := WeightFinancial*float64(clamp(b.FinancialNeed)) +
		WeightAcademic*float64(clamp(b.AcademicMerit)) +
		WeightExtracurricular*float64(clamp(b.Extracurriculars)) +
		WeightDemographic*float64(clamp(b.Demographics))
	return clamp(int(math.Round(weighted)))
}

func (s *Scorer) financialNeed(student *bursary.StudentProfile, listing *bursary.Listing) (int, string) {
	studentNeed, ok := s.needs.Classify(student.FinancialBackground)
	if !ok {
		return noFinancialData, ""
	}

	listingNeed := listing.NeedLevel()
	score := needCompatibility(listingNeed, studentNeed)
	if score < StrongThreshold {
		return score, ""
	}

	return score, fmt.Sprintf("Strong match for financial need: this bursary targets %s-need students and your background indicates %s need",
		listingNeed, studentNeed)
}

func needCompatibility(listing, student bursary.NeedLevel) int {
	switch listing {
	case bursary.NeedHigh:
		switch student {
		case bursary.NeedHigh:
			return 100
		case bursary.NeedMedium:
			return 60
		default:
			return 20
		}
	case bursary.NeedLow:
		if student == bursary.NeedLow {
			return 70
		}
		return 60
	default:
		if student == bursary.NeedMedium {
			return 80
		}
		return 50
	}
}

func academicMerit(student *bursary.StudentProfile, listing *bursary.Listing, level heuristics.Level) (int, string) {
	score := fieldMismatchBase
	var reason string

	if heuristics.FieldOfStudyMatches(student.Major, listing.FieldOfStudy) {
		score = fieldMatchBase
		major := strings.TrimSpace(student.Major)
		if major == "" {
			major = "your studies"
		}
		reason = fmt.Sprintf("Strong match for field of study: %s fits the bursary's focus on %s",
			major, strings.Join(listing.FieldOfStudy, ", "))
	}

	score += institutionFactor

	if heuristics.LevelMatches(level, listing.AcademicLevel) {
		score += levelMatchBonus
	}

	return clamp(score), reason
}

func extracurriculars(student *bursary.StudentProfile, listing *bursary.Listing) (int, string) {
	activities := student.Activities()
	score := 0
	var reason string

	if tag, ok := heuristics.FirstContained(listing.AITags, activities); ok {
		score += tagMatchBonus
		reason = fmt.Sprintf("Your skills and activities line up with the bursary's interest in %s", tag)
	}

	if _, ok := heuristics.FirstContained(listing.AICategorization, activities); ok {
		score += categoryMatchBonus
	}

	score += min(diversityPerItem*len(activities), diversityCap)

	return clamp(score), reason
}

func demographics(student *bursary.StudentProfile, listing *bursary.Listing) (int, string) {
	score := 0
	var reason string

	if location, ok := heuristics.FirstInText(student.LocationPreferences, listing.EligibilityCriteria); ok {
		score += locationBonus
		reason = fmt.Sprintf("Your preferred location %s is named in the eligibility criteria", location)
	}

	if language, ok := heuristics.FirstInText(student.Languages, listing.EligibilityCriteria); ok {
		score += languageBonus
		if reason == "" {
			reason = fmt.Sprintf("You speak %s, which the eligibility criteria mention", language)
		}
	}

	return clamp(score), reason
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
