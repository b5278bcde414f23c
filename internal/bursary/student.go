package bursary

import "strings"

// StudentProfile is a read-only snapshot of a student's onboarding data.
type StudentProfile struct {
	ID                  string   `json:"id,omitempty" mapstructure:"id"`
	Institution         string   `json:"institution,omitempty" mapstructure:"institution"`
	Major               string   `json:"major,omitempty" mapstructure:"major"`
	GraduationYear      int      `json:"graduationYear,omitempty" mapstructure:"graduationYear"`
	Interests           []string `json:"interests,omitempty" mapstructure:"interests"`
	Skills              []string `json:"skills,omitempty" mapstructure:"skills"`
	Languages           []string `json:"languages,omitempty" mapstructure:"languages"`
	Achievements        []string `json:"achievements,omitempty" mapstructure:"achievements"`
	FinancialBackground string   `json:"financialBackground,omitempty" mapstructure:"financialBackground"`
	CareerGoals         string   `json:"careerGoals,omitempty" mapstructure:"careerGoals"`
	Bio                 string   `json:"bio,omitempty" mapstructure:"bio"`
	LocationPreferences []string `json:"locationPreferences,omitempty" mapstructure:"locationPreferences"`
}

// HasAcademicTrio reports whether institution, major and graduation year are all present.
func (s *StudentProfile) HasAcademicTrio() bool {
	return strings.TrimSpace(s.Institution) != "" &&
		strings.TrimSpace(s.Major) != "" &&
		s.GraduationYear > 0
}

// Activities returns skills, interests and achievements in that order.
// Interests are a set, so their relative order carries no meaning.
func (s *StudentProfile) Activities() []string {
	out := make([]string, 0, len(s.Skills)+len(s.Interests)+len(s.Achievements))
	out = append(out, s.Skills...)
	out = append(out, s.Interests...)
	out = append(out, s.Achievements...)
	return out
}

// TopSkills returns up to n skills in profile order.
func (s *StudentProfile) TopSkills(n int) []string {
	if n <= 0 {
		return nil
	}
	if len(s.Skills) <= n {
		return s.Skills
	}
	return s.Skills[:n]
}
