package domain

import "context"

// Completer is the shared text completion contract between layers.
// Implementations make exactly one request per call; retries are not hidden behind it.
type Completer interface {
	Complete(ctx context.Context, prompt string) (CompletionResult, error)
}

// CompletionResult carries the generated text and token usage.
type CompletionResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}
