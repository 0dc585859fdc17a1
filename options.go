package synapse

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kleinwizard/synapse-ai-complete/eventlog"
)

// WithBaseURL sets the URL relative endpoints are resolved against
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithLogger sets the event logger every call reports to
func WithLogger(logger *eventlog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithSessionProvider sets the source of the bearer credential
func WithSessionProvider(provider SessionProvider) Option {
	return func(c *Client) {
		c.session = provider
	}
}

// WithDefaultPolicy sets the retry policy used when a call does not override it
func WithDefaultPolicy(policy RetryPolicy) Option {
	return func(c *Client) {
		c.policy = policy
	}
}

// WithSlowThreshold sets the elapsed time above which a successful call is
// also reported as a slow operation
func WithSlowThreshold(d time.Duration) Option {
	return func(c *Client) {
		c.slowThreshold = d
	}
}

// WithRequestIDGenerator sets a custom function for generating request IDs
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) {
		c.requestIDGen = gen
	}
}

// WithUserAgent sets the User-Agent header of every attempt
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithDefaultHeader adds a header to every attempt
func WithDefaultHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Add(key, value)
	}
}

// WithMiddleware adds middleware to the client
func WithMiddleware(middleware ...Middleware) Option {
	return func(c *Client) {
		c.middleware = append(c.middleware, middleware...)
	}
}

// WithRateLimiter paces attempts to r per second with bursts of burst
func WithRateLimiter(r rate.Limit, burst int) Option {
	return func(c *Client) {
		c.rateLimiter = NewRateLimiter(r, burst)
	}
}

// WithCircuitBreaker sets the circuit breaker configuration
func WithCircuitBreaker(config CircuitBreakerConfig) Option {
	return func(c *Client) {
		c.circuitBreaker = NewCircuitBreaker(config)
	}
}

// WithMetrics enables Prometheus metrics collection
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// ValidateConfiguration validates the client configuration and returns an error if invalid
func (c *Client) ValidateConfiguration() error {
	var errors []string

	if c.httpClient == nil {
		errors = append(errors, "HTTP client cannot be nil")
	}
	if c.requestIDGen == nil {
		errors = append(errors, "request ID generator cannot be nil")
	}
	if c.slowThreshold < 0 {
		errors = append(errors, "slowThreshold must be non-negative")
	}
	for i, middleware := range c.middleware {
		if middleware == nil {
			errors = append(errors, fmt.Sprintf("middleware[%d] cannot be nil", i))
		}
	}
	if err := c.policy.Validate(); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return &ClientError{
			Type:    ErrorTypeValidation,
			Message: "configuration validation failed",
			Cause:   fmt.Errorf("validation errors: %v", errors),
		}
	}

	return nil
}

type requestConfig struct {
	method  string
	headers http.Header
	body    any
	policy  RetryPolicy
}

// WithMethod sets the HTTP method; the default is GET.
func WithMethod(method string) RequestOption {
	return func(rc *requestConfig) {
		rc.method = strings.ToUpper(method)
	}
}

// WithHeader adds a header to every attempt of the call.
func WithHeader(key, value string) RequestOption {
	return func(rc *requestConfig) {
		rc.headers.Add(key, value)
	}
}

// WithBody sets the request body. []byte and string are sent verbatim;
// anything else is encoded as JSON.
func WithBody(body any) RequestOption {
	return func(rc *requestConfig) {
		rc.body = body
	}
}

// WithRequestTimeout bounds each attempt.
func WithRequestTimeout(d time.Duration) RequestOption {
	return func(rc *requestConfig) {
		rc.policy.Timeout = d
	}
}

// WithRetries sets how many extra attempts a retryable failure may use.
func WithRetries(n int) RequestOption {
	return func(rc *requestConfig) {
		rc.policy.MaxRetries = n
	}
}

// WithRetryDelay sets the wait between attempts.
func WithRetryDelay(d time.Duration) RequestOption {
	return func(rc *requestConfig) {
		rc.policy.RetryDelay = d
	}
}

// WithBackoff selects how the wait grows between attempts.
func WithBackoff(strategy BackoffStrategy) RequestOption {
	return func(rc *requestConfig) {
		rc.policy.Backoff = strategy
	}
}

// WithPolicy replaces timeout, retries and delay at once.
func WithPolicy(policy RetryPolicy) RequestOption {
	return func(rc *requestConfig) {
		rc.policy = policy
	}
}
