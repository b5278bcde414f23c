package heuristics

import "strings"

// ContainsFold reports whether needle is a case-insensitive substring of text.
// A blank needle never matches.
func ContainsFold(text, needle string) bool {
	needle = strings.ToLower(strings.TrimSpace(needle))
	if needle == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), needle)
}

// FirstContained returns the first needle found inside any of the haystacks.
func FirstContained(needles, haystacks []string) (string, bool) {
	for _, needle := range needles {
		for _, hay := range haystacks {
			if ContainsFold(hay, needle) {
				return needle, true
			}
		}
	}
	return "", false
}

// FirstInText returns the first needle found inside text.
func FirstInText(needles []string, text string) (string, bool) {
	return FirstContained(needles, []string{text})
}

// ContainsAny reports whether text contains any of the keywords.
func ContainsAny(text string, keywords ...string) bool {
	_, ok := FirstInText(keywords, text)
	return ok
}
