package synapse

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	internalbackoff "github.com/kleinwizard/synapse-ai-complete/internal/backoff"
)

const (
	// DefaultTimeout bounds each attempt when no policy says otherwise.
	DefaultTimeout = 30 * time.Second
	// DefaultRetryDelay is the wait between attempts.
	DefaultRetryDelay = time.Second
	// DefaultSlowThreshold is the elapsed time above which a success is
	// also reported as a slow operation.
	DefaultSlowThreshold = 5 * time.Second
)

// RetryPolicy bounds the latency and retries of one logical call. The call
// makes at most MaxRetries+1 attempts.
type RetryPolicy struct {
	Timeout    time.Duration   `validate:"gt=0,lte=10m"`
	MaxRetries int             `validate:"gte=0,lte=100"`
	RetryDelay time.Duration   `validate:"gte=0,lte=10m"`
	Backoff    BackoffStrategy `validate:"gte=0,lte=1"`
}

// DefaultRetryPolicy returns a 30s timeout, no retries and a 1s delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Timeout:    DefaultTimeout,
		MaxRetries: 0,
		RetryDelay: DefaultRetryDelay,
	}
}

// AuthPolicy is the short-timeout, low-retry preset for authentication calls.
func AuthPolicy() RetryPolicy {
	return RetryPolicy{
		Timeout:    10 * time.Second,
		MaxRetries: 1,
		RetryDelay: time.Second,
	}
}

// GenerationPolicy is the long-timeout preset for expensive generation calls.
func GenerationPolicy() RetryPolicy {
	return RetryPolicy{
		Timeout:    120 * time.Second,
		MaxRetries: 2,
		RetryDelay: 2 * time.Second,
	}
}

var policyValidator = validator.New()

// Validate checks the policy bounds.
func (p RetryPolicy) Validate() error {
	if err := policyValidator.Struct(p); err != nil {
		return &ClientError{
			Type:    ErrorTypeValidation,
			Message: "invalid retry policy",
			Cause:   fmt.Errorf("validation errors: %w", err),
		}
	}
	return nil
}

// Delay returns the wait before the retry following attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return p.strategy().Delay(attempt-1, p.RetryDelay)
}

func (p RetryPolicy) strategy() internalbackoff.Strategy {
	switch p.Backoff {
	case ExponentialJitter:
		return internalbackoff.ExponentialJitter{Multiplier: 2.0, Max: 10 * p.RetryDelay, Jitter: 0.1}
	default:
		return internalbackoff.Fixed{}
	}
}

// retryableStatus reports whether an HTTP status may be retried: 429 and
// every 5xx. Other client errors are final.
func retryableStatus(status int) bool {
	return status == 429 || status >= 500
}
