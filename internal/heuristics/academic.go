package heuristics

import "strings"

// Level is a coarse academic year derived from graduation-year distance.
type Level string

const (
	LevelUnknown   Level = "unknown"
	LevelGraduate  Level = "graduate"
	LevelSenior    Level = "senior"
	LevelJunior    Level = "junior"
	LevelSophomore Level = "sophomore"
	LevelFreshman  Level = "freshman"
)

const undergraduate = "undergraduate"

// IsWildcard reports whether a listing value means "everyone".
func IsWildcard(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "any", "all":
		return true
	}
	return false
}

// FieldOfStudyMatches is true when the major contains, or is contained by, any listed field,
// or when the listing accepts any field. A blank major only matches a wildcard.
func FieldOfStudyMatches(major string, fields []string) bool {
	major = strings.ToLower(strings.TrimSpace(major))

	for _, field := range fields {
		if IsWildcard(field) {
			return true
		}
		field = strings.ToLower(strings.TrimSpace(field))
		if field == "" || major == "" {
			continue
		}
		if strings.Contains(major, field) || strings.Contains(field, major) {
			return true
		}
	}
	return false
}

// LevelOf derives the academic level from years left until graduation.
// It ignores credits and enrolment year entirely.
func LevelOf(graduationYear, currentYear int) Level {
	if graduationYear <= 0 {
		return LevelUnknown
	}

	switch remaining := graduationYear - currentYear; {
	case remaining <= 0:
		return LevelGraduate
	case remaining == 1:
		return LevelSenior
	case remaining == 2:
		return LevelJunior
	case remaining == 3:
		return LevelSophomore
	default:
		return LevelFreshman
	}
}

// LevelMatches is true when levels names the derived level, a wildcard, or
// "undergraduate" for any student who has not graduated yet.
func LevelMatches(level Level, levels []string) bool {
	for _, l := range levels {
		if IsWildcard(l) {
			return true
		}
		if level == LevelUnknown {
			continue
		}
		l = strings.ToLower(strings.TrimSpace(l))
		if l == string(level) {
			return true
		}
		if l == undergraduate && level != LevelGraduate {
			return true
		}
	}
	return false
}
