package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexUnavailable signals that the vector index cannot be reached or holds no documents.
	ErrIndexUnavailable = errors.New("index unavailable")
	// ErrCompletion signals a failed or timed out completion provider call.
	ErrCompletion = errors.New("completion failed")
	// ErrFormat signals a malformed prompt template.
	ErrFormat = errors.New("malformed prompt template")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrInvalidQuery signals an empty or otherwise unusable question.
	ErrInvalidQuery = errors.New("invalid query")
)

// FormatError reports which placeholder is missing from a prompt template.
type FormatError struct {
	Placeholder string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: missing placeholder %s", ErrFormat.Error(), e.Placeholder)
}

func (e *FormatError) Unwrap() error { return ErrFormat }

// NewFormatError creates a format error for the given placeholder.
func NewFormatError(placeholder string) error {
	return &FormatError{Placeholder: placeholder}
}
