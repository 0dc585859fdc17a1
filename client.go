package synapse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kleinwizard/synapse-ai-complete/eventlog"
	internalbackoff "github.com/kleinwizard/synapse-ai-complete/internal/backoff"
)

// HeaderRequestID carries the correlation id of a logical call.
const HeaderRequestID = "X-Request-ID"

// Client performs instrumented JSON calls: every logical call gets a
// correlation id, a per-attempt timeout, bounded retries and a complete
// trail of events in the event logger. It is safe for concurrent use.
type Client struct {
	httpClient      *http.Client
	baseURL         string
	logger          *eventlog.Logger
	session         SessionProvider
	policy          RetryPolicy
	slowThreshold   time.Duration
	requestIDGen    func() string
	userAgent       string
	headers         http.Header
	middleware      []Middleware
	rateLimiter     *RateLimiter
	circuitBreaker  *CircuitBreaker
	metrics         *MetricsCollector
	validationError error
}

// New constructs a Client using the provided functional options. A best effort
// validation is performed; call IsValid / ValidationError for errors.
func New(options ...Option) *Client {
	client := &Client{
		httpClient:    &http.Client{},
		policy:        DefaultRetryPolicy(),
		slowThreshold: DefaultSlowThreshold,
		requestIDGen:  NewRequestID,
		userAgent:     "synapse-go/" + Version,
		headers:       make(http.Header),
	}

	for _, option := range options {
		option(client)
	}

	if client.circuitBreaker != nil {
		client.circuitBreaker.onState = client.metrics.RecordCircuitBreakerState
		client.metrics.RecordCircuitBreakerState(client.circuitBreaker.Name(), client.circuitBreaker.State())
	}

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	return client
}

// NewRequestID returns a fresh "req_" prefixed correlation id.
func NewRequestID() string {
	return "req_" + uuid.NewString()
}

// Logger returns the event logger the client reports to.
func (c *Client) Logger() *eventlog.Logger {
	return c.logger
}

// Get performs a GET call.
func (c *Client) Get(ctx context.Context, endpoint string, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, endpoint, append([]RequestOption{WithMethod(http.MethodGet)}, opts...)...)
}

// Post performs a POST call with a JSON body.
func (c *Client) Post(ctx context.Context, endpoint string, body any, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, endpoint, append([]RequestOption{WithMethod(http.MethodPost), WithBody(body)}, opts...)...)
}

// Put performs a PUT call with a JSON body.
func (c *Client) Put(ctx context.Context, endpoint string, body any, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, endpoint, append([]RequestOption{WithMethod(http.MethodPut), WithBody(body)}, opts...)...)
}

// Delete performs a DELETE call.
func (c *Client) Delete(ctx context.Context, endpoint string, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, endpoint, append([]RequestOption{WithMethod(http.MethodDelete)}, opts...)...)
}

// call is the state of one logical call across its attempts.
type call struct {
	requestID   string
	method      string
	endpoint    string
	url         string
	label       string
	body        []byte
	contentType string
	headers     http.Header
	token       string
	policy      RetryPolicy
	start       time.Time
}

func (cl *call) elapsed() time.Duration {
	return time.Since(cl.start)
}

// attemptResult is a transport response with its body fully read.
type attemptResult struct {
	status int
	header http.Header
	body   []byte
}

// Request performs one logical call to endpoint. Relative endpoints are
// resolved against the base URL.
//
// ctx only supplies values: attempts are bounded by the policy timeout
// alone, so cancelling ctx does not abort a call in progress.
//
// Each attempt logs exactly one outcome event. Statuses 429 and 5xx and
// network errors are retried after the policy delay while attempts remain;
// timeouts and other statuses are final. Failures are returned as
// *ClientError.
func (c *Client) Request(ctx context.Context, endpoint string, opts ...RequestOption) (*Response, error) {
	rc := &requestConfig{
		method:  http.MethodGet,
		headers: make(http.Header),
		policy:  c.policy,
	}
	for _, opt := range opts {
		opt(rc)
	}

	cl := &call{
		requestID: c.requestIDGen(),
		method:    rc.method,
		endpoint:  endpoint,
		headers:   rc.headers,
		policy:    rc.policy,
		start:     time.Now(),
	}
	cl.url = c.resolveURL(endpoint)
	cl.label = endpointLabel(cl.url)

	if c.validationError != nil {
		return nil, c.fail(cl, ErrorTypeValidation, "client misconfigured", c.validationError, 0, 0, nil)
	}
	if err := rc.policy.Validate(); err != nil {
		return nil, c.fail(cl, ErrorTypeValidation, "invalid request options", err, 0, 0, nil)
	}
	if _, err := http.NewRequest(cl.method, cl.url, nil); err != nil {
		return nil, c.fail(cl, ErrorTypeValidation, "request could not be built", err, 0, 0, nil)
	}

	body, contentType, err := encodeBody(rc.body)
	if err != nil {
		return nil, c.fail(cl, ErrorTypeEncoding, "request body could not be encoded", err, 0, 0, nil)
	}
	cl.body = body
	cl.contentType = contentType

	var hasAuth bool
	if c.session != nil {
		cl.token, hasAuth = c.session.AccessToken(ctx)
		hasAuth = hasAuth && cl.token != ""
	}

	c.logger.Info(fmt.Sprintf("API call started: %s %s", cl.method, cl.endpoint), eventlog.EventAPICallStart, eventlog.Fields{
		"requestId":  cl.requestID,
		"method":     cl.method,
		"endpoint":   cl.endpoint,
		"url":        cl.url,
		"body":       loggableBody(cl.body),
		"hasAuth":    hasAuth,
		"timeoutMs":  cl.policy.Timeout.Milliseconds(),
		"maxRetries": cl.policy.MaxRetries,
	})

	c.metrics.RecordRequestStart(cl.method, cl.label)
	defer c.metrics.RecordRequestEnd(cl.method, cl.label)

	base := context.WithoutCancel(ctx)

	for attempt := 1; ; attempt++ {
		if attempt > 1 {
			c.metrics.RecordRetry(cl.method, cl.label, attempt-1)
		}

		if c.rateLimiter != nil {
			if err := c.waitRateLimit(base, cl); err != nil {
				return nil, c.fail(cl, ErrorTypeRateLimit, "rate limiter rejected the call", err, attempt, 0, nil)
			}
		}

		result, err := c.attempt(base, cl)
		canRetry := attempt <= cl.policy.MaxRetries

		switch {
		case err != nil && isBreakerRejection(err):
			return nil, c.fail(cl, ErrorTypeCircuitOpen, "circuit breaker is open", err, attempt, 0, nil)

		case err != nil && isTimeout(err):
			c.metrics.RecordAttempt(cl.method, cl.label, "timeout")
			c.logger.Error(fmt.Sprintf("API call timed out: %s %s", cl.method, cl.endpoint), eventlog.EventAPITimeout, eventlog.APICallData{
				RequestID: cl.requestID,
				Method:    cl.method,
				URL:       cl.endpoint,
				Duration:  cl.elapsed(),
				Attempt:   attempt,
				Extra: map[string]any{
					"timeoutMs": cl.policy.Timeout.Milliseconds(),
					"error":     err.Error(),
				},
			})
			return nil, c.newError(cl, ErrorTypeTimeout, fmt.Sprintf("no response within %s", cl.policy.Timeout), err, attempt, 0, nil)

		case err != nil:
			c.metrics.RecordAttempt(cl.method, cl.label, "network_error")
			c.logger.Error(fmt.Sprintf("Network error: %s %s", cl.method, cl.endpoint), eventlog.EventAPINetworkError, eventlog.APICallData{
				RequestID: cl.requestID,
				Method:    cl.method,
				URL:       cl.endpoint,
				Duration:  cl.elapsed(),
				Attempt:   attempt,
				Extra: map[string]any{
					"error":     err.Error(),
					"willRetry": canRetry,
				},
			})
			if canRetry {
				c.waitRetry(base, cl, attempt)
				continue
			}
			return nil, c.newError(cl, ErrorTypeNetwork, "network request failed", err, attempt, 0, nil)
		}

		data := parseBody(result.body)

		if result.status < 200 || result.status >= 300 {
			willRetry := canRetry && retryableStatus(result.status)
			c.metrics.RecordAttempt(cl.method, cl.label, "http_error")
			c.logger.Error(fmt.Sprintf("API call failed: %s %s (%d)", cl.method, cl.endpoint, result.status), eventlog.EventAPICallError, eventlog.APICallData{
				RequestID: cl.requestID,
				Method:    cl.method,
				URL:       cl.endpoint,
				Status:    result.status,
				Duration:  cl.elapsed(),
				Attempt:   attempt,
				Extra: map[string]any{
					"response":  data,
					"willRetry": willRetry,
				},
			})
			if willRetry {
				c.waitRetry(base, cl, attempt)
				continue
			}
			return nil, c.newError(cl, ErrorTypeHTTP, fmt.Sprintf("server responded with status %d", result.status), nil, attempt, result.status, data)
		}

		elapsed := cl.elapsed()
		c.metrics.RecordAttempt(cl.method, cl.label, "success")
		c.metrics.RecordRequest(cl.method, cl.label, result.status, elapsed)
		c.logger.Info(fmt.Sprintf("API call succeeded: %s %s (%d)", cl.method, cl.endpoint, result.status), eventlog.EventAPICallSuccess, eventlog.APICallData{
			RequestID: cl.requestID,
			Method:    cl.method,
			URL:       cl.endpoint,
			Status:    result.status,
			Duration:  elapsed,
			Attempt:   attempt,
			Extra: map[string]any{
				"response":     data,
				"responseSize": len(result.body),
			},
		})
		if c.slowThreshold > 0 && elapsed > c.slowThreshold {
			c.logger.Warn(fmt.Sprintf("Slow API call: %s %s took %dms", cl.method, cl.endpoint, elapsed.Milliseconds()), eventlog.EventSlowOperation, eventlog.Fields{
				"requestId":   cl.requestID,
				"endpoint":    cl.endpoint,
				"durationMs":  elapsed.Milliseconds(),
				"thresholdMs": c.slowThreshold.Milliseconds(),
			})
		}

		return &Response{
			Status:    result.status,
			Header:    result.header,
			Data:      data,
			Body:      result.body,
			RequestID: cl.requestID,
			Attempts:  attempt,
			Duration:  elapsed,
		}, nil
	}
}

// attempt performs one transport round trip through the circuit breaker,
// when configured.
func (c *Client) attempt(base context.Context, cl *call) (*attemptResult, error) {
	if c.circuitBreaker == nil {
		return c.roundTrip(base, cl)
	}

	res, err := c.circuitBreaker.execute(func() (any, bool, error) {
		result, err := c.roundTrip(base, cl)
		if err != nil {
			return nil, false, err
		}
		return result, result.status >= 500, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*attemptResult), nil
}

func (c *Client) roundTrip(base context.Context, cl *call) (*attemptResult, error) {
	ctx, cancel := context.WithTimeout(base, cl.policy.Timeout)
	defer cancel()

	var body io.Reader
	if cl.body != nil {
		body = bytes.NewReader(cl.body)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, cl.url, body)
	if err != nil {
		return nil, err
	}
	c.applyHeaders(req, cl)

	resp, err := c.executeMiddleware(req)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}

	return &attemptResult{status: resp.StatusCode, header: resp.Header, body: raw}, nil
}

func (c *Client) applyHeaders(req *http.Request, cl *call) {
	for k, values := range c.headers {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	for k, values := range cl.headers {
		req.Header.Del(k)
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	if req.Header.Get("Content-Type") == "" && cl.contentType != "" {
		req.Header.Set("Content-Type", cl.contentType)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if cl.token != "" {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}
	req.Header.Set(HeaderRequestID, cl.requestID)
}

func (c *Client) executeMiddleware(req *http.Request) (*http.Response, error) {
	if len(c.middleware) == 0 {
		return c.httpClient.Do(req)
	}

	current := RoundTripperFunc(c.httpClient.Do)

	for i := len(c.middleware) - 1; i >= 0; i-- {
		middleware := c.middleware[i]
		next := current
		current = RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return middleware(r, next)
		})
	}

	return current.RoundTrip(req)
}

func (c *Client) waitRateLimit(base context.Context, cl *call) error {
	ctx, cancel := context.WithTimeout(base, cl.policy.Timeout)
	defer cancel()
	return c.rateLimiter.Wait(ctx)
}

func (c *Client) waitRetry(base context.Context, cl *call, attempt int) {
	_ = internalbackoff.Sleep(base, cl.policy.Delay(attempt))
}

// fail logs a failure that happened outside an attempt and returns it.
func (c *Client) fail(cl *call, errorType, message string, cause error, attempt, status int, body any) *ClientError {
	clientErr := c.newError(cl, errorType, message, cause, attempt, status, body)
	c.logger.Error(fmt.Sprintf("API call failed: %s %s (%s)", cl.method, cl.endpoint, errorType), eventlog.EventAPICallError, eventlog.APICallData{
		RequestID: cl.requestID,
		Method:    cl.method,
		URL:       cl.endpoint,
		Duration:  cl.elapsed(),
		Attempt:   attempt,
		Extra: map[string]any{
			"errorType": errorType,
			"error":     clientErr.Error(),
			"willRetry": false,
		},
	})
	return clientErr
}

func (c *Client) newError(cl *call, errorType, message string, cause error, attempt, status int, body any) *ClientError {
	duration := cl.elapsed()
	c.metrics.RecordError(errorType, cl.method, cl.label)
	c.metrics.RecordRequest(cl.method, cl.label, status, duration)

	return &ClientError{
		Type:       errorType,
		Message:    message,
		Cause:      cause,
		RequestID:  cl.requestID,
		Method:     cl.method,
		URL:        cl.url,
		Endpoint:   cl.endpoint,
		StatusCode: status,
		Body:       body,
		Attempt:    attempt,
		MaxRetries: cl.policy.MaxRetries,
		Timestamp:  time.Now(),
		Duration:   duration,
	}
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

func (c *Client) resolveURL(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") || c.baseURL == "" {
		return endpoint
	}
	return c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
}

// attemptTimeoutError marks a transport failure caused by the attempt deadline.
type attemptTimeoutError struct {
	err error
}

func (e *attemptTimeoutError) Error() string { return e.err.Error() }
func (e *attemptTimeoutError) Unwrap() error { return e.err }

func classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &attemptTimeoutError{err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &attemptTimeoutError{err: err}
	}
	return err
}

func isTimeout(err error) bool {
	var timeoutErr *attemptTimeoutError
	return errors.As(err, &timeoutErr)
}

// encodeBody returns the wire form of body and its default content type.
func encodeBody(body any) ([]byte, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return b, "application/json", nil
	case string:
		return []byte(b), "application/json", nil
	case json.RawMessage:
		return b, "application/json", nil
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("encoding request body: %w", err)
		}
		return raw, "application/json", nil
	}
}

// loggableBody returns a form of body the sanitizer can inspect key by key.
func loggableBody(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	return string(body)
}

// parseBody decodes a JSON body. Anything else is wrapped with the parse
// error so it still reaches the caller and the log.
func parseBody(raw []byte) any {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return map[string]any{
			"raw":        string(raw),
			"parseError": err.Error(),
		}
	}
	return data
}

// endpointLabel renders host+path for metric labels.
func endpointLabel(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "unknown"
	}

	var builder strings.Builder
	builder.WriteString(u.Host)

	if u.Path != "" && u.Path != "/" {
		builder.WriteString(u.Path)
	} else {
		builder.WriteByte('/')
	}

	return builder.String()
}
