// Package ai defines the completion interface the deliberation and
// generation layers are built on. Implementations live in subpackages.
package ai

import "context"

// Completion is one model answer plus the metadata the caller needs for
// ranking and budgeting.
type Completion struct {
	Text       string
	TokenCount int
	LatencyMS  int64
}

// Completer produces a completion for a prompt on a named model. A single
// Completer may serve many models; the model travels with each call.
type Completer interface {
	Complete(ctx context.Context, model, prompt string) (*Completion, error)
}
