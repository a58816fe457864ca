package llm

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"pdfchat-backend/internal/shared/metrics"
	"pdfchat-backend/internal/shared/telemetry"
)

const (
	DefaultTimeout      = 60 * time.Second
	defaultRetryBackoff = 300 * time.Millisecond
)

// RetryingGenerator bounds every attempt by Timeout and retries a transient
// failure once.
type RetryingGenerator struct {
	Base    Generator
	Timeout time.Duration
	Backoff time.Duration
}

// NewRetryingGenerator wraps base. A non-positive timeout uses DefaultTimeout.
func NewRetryingGenerator(base Generator, timeout time.Duration) *RetryingGenerator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RetryingGenerator{Base: base, Timeout: timeout, Backoff: defaultRetryBackoff}
}

func (r *RetryingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	out, err := r.attempt(ctx, prompt)
	if err != nil && ctx.Err() == nil && ShouldRetry(err) {
		metrics.IncGenerationRetried()
		telemetry.Warn("llm.retry", map[string]any{"attempt": 1, "error": err})
		select {
		case <-time.After(r.Backoff):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		out, err = r.attempt(ctx, prompt)
	}
	metrics.ObserveGenerationDurationMs(float64(time.Since(start).Microseconds()) / 1000.0)
	return out, err
}

func (r *RetryingGenerator) attempt(ctx context.Context, prompt string) (string, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return r.Base.Generate(attemptCtx, prompt)
}

// ShouldRetry reports whether err looks transient: a timeout, a dropped
// connection, a rate limit or a 5xx answer.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotConfigured) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrEmptyResponse) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "unexpected eof")
}
