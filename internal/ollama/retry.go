package ollama

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

// RetryConfig configures the retry behavior for Ollama calls.
type RetryConfig struct {
	MaxRetries      int           // Maximum number of retry attempts
	InitialInterval time.Duration // Initial backoff interval
	MaxInterval     time.Duration // Maximum backoff interval
}

// DefaultRetryConfig returns sensible defaults for local model servers.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// Do executes fn with exponential backoff. Only transient failures are
// retried; anything else fails immediately.
func (rc RetryConfig) Do(ctx context.Context, fn func(context.Context) ([]byte, error)) ([]byte, error) {
	var lastErr error
	delay := rc.InitialInterval

	for attempt := 0; attempt <= rc.MaxRetries; attempt++ {
		body, err := fn(ctx)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !retryableError(err) {
			return nil, err
		}
		if attempt == rc.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > rc.MaxInterval {
			delay = rc.MaxInterval
		}
	}

	return nil, lastErr
}

// retryableError reports whether an error should trigger a retry.
func retryableError(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		switch se.code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	// a spent deadline will not recover within the same call
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	// connection failures surface as *url.Error wrapping net errors
	var ne net.Error
	var oe *net.OpError
	return errors.As(err, &ne) || errors.As(err, &oe)
}
