package narrative

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spigell/bursary-matcher/internal/bursary"
	"github.com/spigell/bursary-matcher/internal/heuristics"
)

const (
	topSkills          = 3
	richSkillCount     = 3
	richInterestCount  = 3
	richLanguageCount  = 1
	richStoryLength    = 100
	richFinancialChars = 50
)

// Attribute is one key/value line of a profile summary.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ProfileSummary is a templated self-summary of a student profile.
type ProfileSummary struct {
	Attributes       []Attribute `json:"attributes"`
	CareerPaths      []string    `json:"careerPaths"`
	FinancialNeed    string      `json:"financialNeed"`
	StrongAreas      []string    `json:"strongAreas"`
	ImprovementAreas []string    `json:"improvementAreas"`
}

// Value returns the first attribute value stored under key.
func (p ProfileSummary) Value(key string) (string, bool) {
	for _, attr := range p.Attributes {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}

type careerBucket struct {
	name     string
	keywords []string
}

// Buckets are checked independently; one career goal can fall into several.
var careerBuckets = []careerBucket{
	{name: "academic/research", keywords: []string{"research", "phd", "doctorate", "professor", "lecturer", "academic", "masters", "scientist"}},
	{name: "entrepreneurial", keywords: []string{"startup", "start-up", "entrepreneur", "own business", "my own company", "founder", "found a"}},
	{name: "social-impact", keywords: []string{"community", "social", "impact", "nonprofit", "non-profit", "ngo", "give back", "underserved"}},
	{name: "corporate", keywords: []string{"corporate", "company", "industry", "firm", "management", "consulting", "bank"}},
	{name: "international", keywords: []string{"international", "abroad", "global", "overseas", "worldwide"}},
}

type completenessCheck struct {
	strong  string
	improve string
	ok      func(*bursary.StudentProfile) bool
}

var completenessChecks = []completenessCheck{
	{
		strong:  "Complete academic profile",
		improve: "Add your institution, major and graduation year",
		ok:      (*bursary.StudentProfile).HasAcademicTrio,
	},
	{
		strong:  "Diverse skill set",
		improve: "List more of your skills",
		ok:      func(s *bursary.StudentProfile) bool { return len(s.Skills) > richSkillCount },
	},
	{
		strong:  "Documented achievements",
		improve: "Add achievements such as awards or leadership roles",
		ok:      func(s *bursary.StudentProfile) bool { return len(s.Achievements) > 0 },
	},
	{
		strong:  "Detailed personal story and career goals",
		improve: "Expand your bio and career goals",
		ok: func(s *bursary.StudentProfile) bool {
			return len(strings.TrimSpace(s.Bio)) > richStoryLength && len(strings.TrimSpace(s.CareerGoals)) > richStoryLength
		},
	},
	{
		strong:  "Multilingual",
		improve: "Add the languages you speak",
		ok:      func(s *bursary.StudentProfile) bool { return len(s.Languages) > richLanguageCount },
	},
	{
		strong:  "Broad interests",
		improve: "Share more of your interests",
		ok:      func(s *bursary.StudentProfile) bool { return len(s.Interests) > richInterestCount },
	},
	{
		strong:  "Clear financial background",
		improve: "Describe your financial background in more detail",
		ok:      func(s *bursary.StudentProfile) bool { return len(strings.TrimSpace(s.FinancialBackground)) > richFinancialChars },
	},
}

// SummarizeProfile builds a summary without any bursary context.
func SummarizeProfile(student *bursary.StudentProfile, now time.Time) ProfileSummary {
	return SummarizeProfileWith(heuristics.Default(), student, now)
}

// SummarizeProfileWith is SummarizeProfile with a custom need classifier.
func SummarizeProfileWith(needs *heuristics.NeedClassifier, student *bursary.StudentProfile, now time.Time) ProfileSummary {
	if needs == nil {
		needs = heuristics.Default()
	}
	if student == nil {
		student = &bursary.StudentProfile{}
	}
	if now.IsZero() {
		now = time.Now()
	}

	summary := ProfileSummary{
		Attributes:    attributes(student, now),
		CareerPaths:   careerPaths(student.CareerGoals),
		FinancialNeed: needs.Label(student.FinancialBackground),
	}

	for _, check := range completenessChecks {
		if check.ok(student) {
			summary.StrongAreas = append(summary.StrongAreas, check.strong)
		} else {
			summary.ImprovementAreas = append(summary.ImprovementAreas, check.improve)
		}
	}

	return summary
}

func attributes(s *bursary.StudentProfile, now time.Time) []Attribute {
	var attrs []Attribute
	add := func(key, value string) {
		if value = strings.TrimSpace(value); value != "" {
			attrs = append(attrs, Attribute{Key: key, Value: value})
		}
	}

	add("institution", s.Institution)
	add("major", s.Major)
	if s.GraduationYear > 0 {
		add("graduationYear", strconv.Itoa(s.GraduationYear))
		add("academicLevel", string(heuristics.LevelOf(s.GraduationYear, now.Year())))
	}
	add("topSkills", strings.Join(s.TopSkills(topSkills), ", "))
	if len(s.Skills) > 0 {
		add("skillCount", strconv.Itoa(len(s.Skills)))
	}
	add("languages", strings.Join(s.Languages, ", "))
	if len(s.Languages) > richLanguageCount {
		add("multilingual", "yes")
	}
	if len(s.Achievements) > 0 {
		add("achievementCount", strconv.Itoa(len(s.Achievements)))
		add("latestAchievement", s.Achievements[0])
	}
	add("interests", strings.Join(s.Interests, ", "))
	add("locations", strings.Join(s.LocationPreferences, ", "))

	return attrs
}

func careerPaths(goals string) []string {
	var paths []string
	for _, bucket := range careerBuckets {
		if heuristics.ContainsAny(goals, bucket.keywords...) {
			paths = append(paths, bucket.name)
		}
	}
	return paths
}

// Conversational renders the summary as a short second-person narrative.
func Conversational(summary ProfileSummary, student *bursary.StudentProfile, now time.Time) string {
	if student == nil {
		student = &bursary.StudentProfile{}
	}
	if now.IsZero() {
		now = time.Now()
	}

	var parts []string

	study := "You haven't told us what you study yet"
	switch {
	case student.Major != "" && student.Institution != "":
		study = fmt.Sprintf("You are studying %s at %s", student.Major, student.Institution)
	case student.Major != "":
		study = fmt.Sprintf("You are studying %s", student.Major)
	case student.Institution != "":
		study = fmt.Sprintf("You are enrolled at %s", student.Institution)
	}
	if phrase := graduationPhrase(student.GraduationYear, now.Year()); phrase != "" {
		study += " and " + phrase
	}
	parts = append(parts, study+".")

	if skills := student.TopSkills(topSkills); len(skills) > 0 {
		parts = append(parts, fmt.Sprintf("Your top skills include %s.", joinList(skills)))
	}

	if len(summary.CareerPaths) > 0 {
		parts = append(parts, fmt.Sprintf("Your career goals point towards %s paths.", joinList(summary.CareerPaths)))
	}

	if summary.FinancialNeed == heuristics.UnspecifiedNeed {
		parts = append(parts, "You haven't shared your financial background.")
	} else {
		parts = append(parts, fmt.Sprintf("Your background suggests %s.", summary.FinancialNeed))
	}

	if len(summary.StrongAreas) > 0 {
		parts = append(parts, fmt.Sprintf("Your profile stands out for: %s.", strings.ToLower(joinList(summary.StrongAreas))))
	}

	if len(summary.ImprovementAreas) > 0 {
		parts = append(parts, fmt.Sprintf("To improve your matches: %s.", strings.ToLower(joinList(summary.ImprovementAreas))))
	}

	return strings.Join(parts, " ")
}

func graduationPhrase(year, current int) string {
	if year <= 0 {
		return ""
	}
	switch remaining := year - current; {
	case remaining < 0:
		return "have recently graduated"
	case remaining == 0:
		return "are graduating this year"
	case remaining == 1:
		return "are 1 year away from graduating"
	default:
		return fmt.Sprintf("are %d years away from graduating", remaining)
	}
}

func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}
