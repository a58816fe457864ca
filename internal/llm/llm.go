package llm

import (
	"context"
	"errors"
	"fmt"
)

// Generator produces a text completion for a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrNotConfigured is returned by the placeholder generator.
var ErrNotConfigured = errors.New("LLM provider not configured")

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("LLM response empty")

// PlaceholderGenerator is used when no provider is configured.
type PlaceholderGenerator struct{}

// Generate returns ErrNotConfigured.
func (PlaceholderGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "", ErrNotConfigured
}

// StatusError reports a non-2xx answer from a provider API.
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s api error: http status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s api error: http status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Retryable reports whether the status is worth a second attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
