// Package mock provides an offline ai.Completer for local development and demos.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"

	"github.com/spigell/bursary-matcher/internal/ai"
)

const ProviderName = "mock"

// Completer answers every prompt without network access. Comparison scores are
// derived from a hash of the prompt, so the same inputs always score the same.
type Completer struct{}

var _ ai.Completer = Completer{}

func New() Completer {
	return Completer{}
}

func (Completer) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	stage, ok := ai.PromptStage(prompt)
	if !ok {
		return "", fmt.Errorf("mock completer: unrecognised prompt")
	}

	switch stage {
	case ai.StageStudentSummary:
		return "The student is an engaged learner whose studies, skills and goals are described in the submitted profile.", nil
	case ai.StageBursarySummary:
		return "The bursary supports students who meet its published field, level and need criteria.", nil
	default:
		score := Score(prompt)
		body, err := json.Marshal(map[string]any{
			"score":       score,
			"explanation": fmt.Sprintf("Offline estimate: this pairing scores %d based on a deterministic sample of the profile and bursary.", score),
		})
		if err != nil {
			return "", err
		}
		return string(body), nil
	}
}

// Score maps a prompt onto [40,95].
func Score(prompt string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(prompt))
	return 40 + int(h.Sum32()%56)
}
