package llm

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyCompletion is returned when the model answered with no text.
var ErrEmptyCompletion = errors.New("empty completion")

type CompletionRequest struct {
	Prompt      string
	Temperature float32
	// JSON asks the model for a single JSON object instead of prose.
	JSON bool
}

type Provider interface {
	// Complete returns the full completion text for one prompt.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Name() string
	Close() error
}

// StripCodeFences removes a surrounding ```json ... ``` block if the model
// wrapped its answer in one.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
