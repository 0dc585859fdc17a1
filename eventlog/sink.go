package eventlog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrFlush matches every *FlushError with errors.Is.
var ErrFlush = errors.New("eventlog: flush failed")

// FlushError reports a batch that could not be delivered. The entries were
// restored to the buffer.
type FlushError struct {
	Entries int
	Cause   error
}

// Error implements error interface.
func (e *FlushError) Error() string {
	return fmt.Sprintf("eventlog: flush of %d entries failed: %v", e.Entries, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *FlushError) Unwrap() error {
	return e.Cause
}

// Is matches ErrFlush.
func (e *FlushError) Is(target error) bool {
	return target == ErrFlush
}

// Sink delivers a batch of entries to a remote collector.
type Sink interface {
	Send(ctx context.Context, entries []LogEntry) error
}

// SinkFunc adapts a function into a Sink.
type SinkFunc func(ctx context.Context, entries []LogEntry) error

// Send implements Sink.
func (f SinkFunc) Send(ctx context.Context, entries []LogEntry) error {
	return f(ctx, entries)
}

// DefaultSinkTimeout bounds a single HTTP delivery.
const DefaultSinkTimeout = 10 * time.Second

// HTTPSink POSTs batches as {"logs": [...]} to a collector endpoint.
type HTTPSink struct {
	endpoint   string
	httpClient *http.Client
	headers    http.Header
}

// HTTPSinkOption configures an HTTPSink.
type HTTPSinkOption func(*HTTPSink)

// WithSinkHTTPClient sets the client used for deliveries.
func WithSinkHTTPClient(client *http.Client) HTTPSinkOption {
	return func(s *HTTPSink) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithSinkHeader adds a header to every delivery, e.g. a collector API key.
func WithSinkHeader(key, value string) HTTPSinkOption {
	return func(s *HTTPSink) {
		s.headers.Add(key, value)
	}
}

// NewHTTPSink creates a sink posting to endpoint.
func NewHTTPSink(endpoint string, opts ...HTTPSinkOption) *HTTPSink {
	s := &HTTPSink{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: DefaultSinkTimeout},
		headers:    make(http.Header),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Endpoint returns the collector URL.
func (s *HTTPSink) Endpoint() string {
	return s.endpoint
}

type batch struct {
	Logs []json.RawMessage `json:"logs"`
}

// encodeEntry returns the JSON form of e. An entry that cannot be encoded is
// replaced by a stub carrying its metadata and the encoding error, so one bad
// entry never blocks the rest of a batch.
func encodeEntry(e LogEntry) json.RawMessage {
	raw, err := json.Marshal(e)
	if err == nil {
		return raw
	}

	stub := e
	stub.Data = map[string]any{"encodingError": err.Error()}
	raw, err = json.Marshal(stub)
	if err != nil {
		return json.RawMessage(`{"message":"unencodable log entry"}`)
	}
	return raw
}

func encodeEntries(entries []LogEntry) []json.RawMessage {
	out := make([]json.RawMessage, len(entries))
	for i, e := range entries {
		out[i] = encodeEntry(e)
	}
	return out
}

// Send implements Sink. Any transport error or non-2xx status is a failure.
func (s *HTTPSink) Send(ctx context.Context, entries []LogEntry) error {
	body, err := json.Marshal(batch{Logs: encodeEntries(entries)})
	if err != nil {
		return fmt.Errorf("encoding log batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building log request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, values := range s.headers {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending log batch: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("log collector returned status %d", resp.StatusCode)
	}
	return nil
}

// DefaultRedisKey is the list entries are pushed to when no key is given.
const DefaultRedisKey = "synapse:logs"

// RedisSink appends each entry as a JSON string to a Redis list, trimming the
// list to MaxLen entries when MaxLen > 0.
type RedisSink struct {
	client redis.Cmdable
	key    string
	maxLen int64
	closer io.Closer
}

// NewRedisSink creates a sink writing to key through client.
func NewRedisSink(client redis.Cmdable, key string, maxLen int64) *RedisSink {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisSink{client: client, key: key, maxLen: maxLen}
}

// NewRedisSinkFromURL dials the Redis server at url (redis://...) and
// returns a sink that owns the connection.
func NewRedisSinkFromURL(url, key string, maxLen int64) (*RedisSink, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	sink := NewRedisSink(client, key, maxLen)
	sink.closer = client
	return sink, nil
}

// Key returns the list key.
func (s *RedisSink) Key() string {
	return s.key
}

// Send implements Sink. The batch is written in one transaction.
func (s *RedisSink) Send(ctx context.Context, entries []LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	values := make([]interface{}, len(entries))
	for i, raw := range encodeEntries(entries) {
		values[i] = []byte(raw)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.key, values...)
	if s.maxLen > 0 {
		pipe.LTrim(ctx, s.key, -s.maxLen, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pushing log batch to redis: %w", err)
	}
	return nil
}

// Close releases the connection when the sink created it.
func (s *RedisSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
