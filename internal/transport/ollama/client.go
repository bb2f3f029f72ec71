// Package ollama talks to a local Ollama server for query embeddings and answers.
package ollama

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

// Config holds Ollama connection and model settings.
type Config struct {
	BaseURL     string // e.g. http://localhost:11434
	Model       string
	Temperature float64
	MaxTokens   int
	Provider    string // metrics label, defaults to "ollama"
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

func newClient(cfg *Config) (*api.Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse ollama url %q: %w", cfg.BaseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("ollama url %q must include scheme and host", cfg.BaseURL)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return api.NewClient(u, hc), nil
}

func providerName(cfg *Config) string {
	if cfg.Provider != "" {
		return cfg.Provider
	}
	return "ollama"
}

func loggerOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// describe renders an Ollama error with its HTTP status when the server sent one.
func describe(err error) string {
	var se api.StatusError
	if errors.As(err, &se) {
		if se.ErrorMessage != "" {
			return fmt.Sprintf("status %d: %s", se.StatusCode, se.ErrorMessage)
		}
		return fmt.Sprintf("status %d: %s", se.StatusCode, se.Status)
	}
	return err.Error()
}
