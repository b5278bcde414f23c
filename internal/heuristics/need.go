package heuristics

import (
	"strings"

	"github.com/spigell/bursary-matcher/internal/bursary"
)

// NeedRule maps a need level to the keywords that signal it.
type NeedRule struct {
	Level    bursary.NeedLevel
	Keywords []string
}

// DefaultNeedRules is checked in order, so high need wins over low need when both match.
var DefaultNeedRules = []NeedRule{
	{
		Level: bursary.NeedHigh,
		Keywords: []string{
			"struggling", "hardship", "low income", "low-income", "poverty", "unemployed",
			"single parent", "orphan", "cannot afford", "can't afford", "financial difficulty",
			"sassa", "nsfas", "child-headed", "first generation", "first-generation",
		},
	},
	{
		Level: bursary.NeedLow,
		Keywords: []string{
			"wealthy", "comfortable", "affluent", "well-off", "well off", "high income",
			"self-funded", "fully funded", "no financial need",
		},
	},
}

var needLabels = map[bursary.NeedLevel]string{
	bursary.NeedHigh:   "high financial need",
	bursary.NeedMedium: "moderate financial need",
	bursary.NeedLow:    "low financial need",
}

// UnspecifiedNeed is the label used when a student gave no financial background.
const UnspecifiedNeed = "unspecified"

// NeedClassifier buckets free-text financial backgrounds into need levels.
// Both the scorer and the profile summarizer use the same table.
type NeedClassifier struct {
	rules []NeedRule
}

func NewNeedClassifier(rules []NeedRule) *NeedClassifier {
	if len(rules) == 0 {
		rules = DefaultNeedRules
	}

	normalized := make([]NeedRule, 0, len(rules))
	for _, rule := range rules {
		keywords := make([]string, 0, len(rule.Keywords))
		for _, kw := range rule.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				keywords = append(keywords, kw)
			}
		}
		normalized = append(normalized, NeedRule{Level: rule.Level, Keywords: keywords})
	}

	return &NeedClassifier{rules: normalized}
}

var defaultClassifier = NewNeedClassifier(DefaultNeedRules)

// Default returns the classifier built from DefaultNeedRules.
func Default() *NeedClassifier {
	return defaultClassifier
}

// Classify returns the need level for text. The bool is false when text is blank:
// the level is then the neutral medium default and must not be treated as a finding.
func (c *NeedClassifier) Classify(text string) (bursary.NeedLevel, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return bursary.NeedMedium, false
	}

	for _, rule := range c.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Level, true
			}
		}
	}

	return bursary.NeedMedium, true
}

// Label is the four-way human label used in profile summaries.
func (c *NeedClassifier) Label(text string) string {
	level, ok := c.Classify(text)
	if !ok {
		return UnspecifiedNeed
	}
	return needLabels[level]
}
