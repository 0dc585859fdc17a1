package synapse

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Error types carried by ClientError.Type.
const (
	ErrorTypeTimeout     = "Timeout"
	ErrorTypeNetwork     = "Network"
	ErrorTypeHTTP        = "HTTP"
	ErrorTypeCircuitOpen = "CircuitOpen"
	ErrorTypeRateLimit   = "RateLimit"
	ErrorTypeEncoding    = "Encoding"
	ErrorTypeValidation  = "Validation"
)

// Sentinel errors matched by errors.Is against a *ClientError of the same type.
var (
	// ErrTimeout is returned when an attempt exceeds its deadline
	ErrTimeout = errors.New("synapse: request timed out")

	// ErrNetwork is returned when the transport could not complete
	ErrNetwork = errors.New("synapse: network failure")

	// ErrHTTP is returned when the server responded with a non-2xx status
	ErrHTTP = errors.New("synapse: http failure")

	// ErrCircuitOpen is returned when the circuit breaker rejects a call
	ErrCircuitOpen = errors.New("synapse: circuit open")

	// ErrRateLimited is returned when the rate limiter cannot admit a call
	ErrRateLimited = errors.New("synapse: rate limited")
)

var sentinelByType = map[string]error{
	ErrorTypeTimeout:     ErrTimeout,
	ErrorTypeNetwork:     ErrNetwork,
	ErrorTypeHTTP:        ErrHTTP,
	ErrorTypeCircuitOpen: ErrCircuitOpen,
	ErrorTypeRateLimit:   ErrRateLimited,
}

// IsTimeout reports whether err is an attempt timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsTransient determines if an error represents a transient failure that might succeed on retry.
// Returns true for network errors, timeouts, 5xx server responses, and rate limiting (429).
// Returns false for other 4xx responses and configuration errors.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		switch clientErr.Type {
		case ErrorTypeNetwork, ErrorTypeTimeout, ErrorTypeRateLimit, ErrorTypeCircuitOpen:
			return true
		case ErrorTypeHTTP:
			return retryableStatus(clientErr.StatusCode)
		default:
			return false
		}
	}

	return errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrRateLimited)
}

// AsHTTPError returns the HTTP failure in err's chain, if any.
func AsHTTPError(err error) (*ClientError, bool) {
	var clientErr *ClientError
	if errors.As(err, &clientErr) && clientErr.Type == ErrorTypeHTTP {
		return clientErr, true
	}
	return nil, false
}

// Error implements error interface.
func (e *ClientError) Error() string {
	if e == nil {
		return "<nil>"
	}

	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	if e.RequestID != "" {
		msg = fmt.Sprintf("[%s] %s", e.RequestID, msg)
	}
	if e.Attempt > 0 {
		msg = fmt.Sprintf("%s (attempt %d/%d)", msg, e.Attempt, e.MaxRetries+1)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ClientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is compares error types for errors.Is. A *ClientError matches another
// *ClientError of the same Type and the sentinel error of its Type.
func (e *ClientError) Is(target error) bool {
	if e == nil {
		return false
	}
	if targetErr, ok := target.(*ClientError); ok {
		return e.Type == targetErr.Type
	}
	if sentinel, ok := sentinelByType[e.Type]; ok {
		return target == sentinel
	}
	return false
}

// DebugInfo renders a multi-line string with diagnostic context.
func (e *ClientError) DebugInfo() string {
	if e == nil {
		return "Error: <nil>"
	}
	info := fmt.Sprintf("Error Type: %s\n", e.Type)
	info += fmt.Sprintf("Message: %s\n", e.Message)
	if e.RequestID != "" {
		info += fmt.Sprintf("Request ID: %s\n", e.RequestID)
	}
	if e.Method != "" {
		info += fmt.Sprintf("Method: %s\n", e.Method)
	}
	if e.URL != "" {
		info += fmt.Sprintf("URL: %s\n", e.URL)
	}
	if e.StatusCode > 0 {
		info += fmt.Sprintf("Status Code: %d %s\n", e.StatusCode, http.StatusText(e.StatusCode))
	}
	if e.Attempt > 0 {
		info += fmt.Sprintf("Attempt: %d/%d\n", e.Attempt, e.MaxRetries+1)
	}
	if !e.Timestamp.IsZero() {
		info += fmt.Sprintf("Timestamp: %s\n", e.Timestamp.Format(time.RFC3339))
	}
	if e.Duration > 0 {
		info += fmt.Sprintf("Duration: %v\n", e.Duration)
	}
	if e.Cause != nil {
		info += fmt.Sprintf("Cause: %v\n", e.Cause)
	}
	return info
}
