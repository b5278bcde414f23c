package ai

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyResponse is returned by completers that got no usable text back.
var ErrEmptyResponse = errors.New("empty completion response")

// Completer turns a single prompt into a single text response.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a plain function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Stage names one of the three semantic scoring calls.
type Stage string

const (
	StageStudentSummary Stage = "student_summary"
	StageBursarySummary Stage = "bursary_summary"
	StageCompare        Stage = "compare"
)

// Assessment is the outcome of semantic scoring for one student/bursary pair.
type Assessment struct {
	Score          int    `json:"score"`
	Explanation    string `json:"explanation"`
	StudentSummary string `json:"studentSummary,omitempty"`
	BursarySummary string `json:"bursarySummary,omitempty"`
	// Fallback is set when the comparison could not be obtained and Score is the neutral default.
	Fallback bool   `json:"fallback,omitempty"`
	Raw      string `json:"-"`
}

// PromptStage reports which scoring step produced prompt, based on the markers in
// the embedded templates.
func PromptStage(prompt string) (Stage, bool) {
	switch {
	case strings.Contains(prompt, "Student profile (JSON):"):
		return StageStudentSummary, true
	case strings.Contains(prompt, "Bursary listing (JSON):"):
		return StageBursarySummary, true
	case strings.Contains(prompt, "JSON Response:"):
		return StageCompare, true
	}
	return "", false
}
