package client

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by APIError.Is. Use errors.Is() to check.
var (
	ErrIndexUnavailable = errors.New("index unavailable")
	ErrCompletion       = errors.New("completion failed")
	ErrInvalidQuestion  = errors.New("invalid question")
)

// APIError is a non-2xx reply from the service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("boardrag: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("boardrag: status %d", e.StatusCode)
}

// Is maps service error codes to the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrIndexUnavailable:
		return e.Code == "index_unavailable"
	case ErrCompletion:
		return e.Code == "completion_failed"
	case ErrInvalidQuestion:
		return e.Code == "validation_failed" || e.Code == "bad_request"
	}
	return false
}
