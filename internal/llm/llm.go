package llm

import (
	"context"
	"errors"
)

// Client abstracts the extraction oracle. Implementations send a prompt and
// return the raw model response text; callers own parsing and validation.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("llm client not configured")

// Placeholder keeps the pipeline on its heuristic path when no provider is
// configured.
type Placeholder struct{}

// Complete returns ErrNotConfigured.
func (Placeholder) Complete(ctx context.Context, prompt string) (string, error) {
	_ = ctx
	_ = prompt
	return "", ErrNotConfigured
}
