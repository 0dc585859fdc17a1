package synapse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Option configures a Client.
type Option func(*Client)

// RequestOption configures a single logical call.
type RequestOption func(*requestConfig)

// Middleware wraps the transport of every attempt.
type Middleware func(req *http.Request, next RoundTripper) (*http.Response, error)

// RoundTripper represents the HTTP transport interface
type RoundTripper interface {
	RoundTrip(*http.Request) (*http.Response, error)
}

// RoundTripperFunc is a helper type for middleware
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// SessionProvider supplies the credential of the current session, if any.
type SessionProvider interface {
	AccessToken(ctx context.Context) (token string, ok bool)
}

// SessionProviderFunc adapts a function into a SessionProvider.
type SessionProviderFunc func(ctx context.Context) (string, bool)

// AccessToken implements SessionProvider.
func (f SessionProviderFunc) AccessToken(ctx context.Context) (string, bool) {
	return f(ctx)
}

// StaticToken returns a SessionProvider that always yields token. An empty
// token means no session.
func StaticToken(token string) SessionProvider {
	return SessionProviderFunc(func(context.Context) (string, bool) {
		return token, token != ""
	})
}

// BackoffStrategy selects how the wait between attempts grows.
type BackoffStrategy int

const (
	// FixedDelay waits RetryDelay before every retry.
	FixedDelay BackoffStrategy = iota
	// ExponentialJitter doubles RetryDelay per retry with random spread.
	ExponentialJitter
)

// CircuitBreakerConfig holds circuit breaker configuration
type CircuitBreakerConfig struct {
	Name             string
	FailureThreshold int
	RecoveryTimeout  time.Duration
	SuccessThreshold int
}

// ClientError is the typed failure of a logical call.
type ClientError struct {
	Type       string
	Message    string
	Cause      error
	RequestID  string
	Method     string
	URL        string
	Endpoint   string
	StatusCode int
	Body       any
	Attempt    int
	MaxRetries int
	Timestamp  time.Time
	Duration   time.Duration
}

// Response is the outcome of a successful logical call.
type Response struct {
	Status    int
	Header    http.Header
	Data      any
	Body      []byte
	RequestID string
	Attempts  int
	Duration  time.Duration
}

// Decode unmarshals the raw response body into v.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("decode response %s: empty body", r.RequestID)
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response %s: %w", r.RequestID, err)
	}
	return nil
}
