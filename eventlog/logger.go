package eventlog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kleinwizard/synapse-ai-complete/internal/singleflight"
)

// DefaultFlushInterval is used when Config.FlushInterval is unset.
const DefaultFlushInterval = 30 * time.Second

// flushTimeout bounds flushes started by the loop or by an ERROR entry.
const flushTimeout = 15 * time.Second

const flushKey = "flush"

// Config controls filtering, buffering and delivery.
type Config struct {
	Enabled        bool
	MinLevel       Level
	RemoteEndpoint string
	FlushInterval  time.Duration
	BufferSize     int
}

// DefaultConfig returns an enabled logger config at INFO with no remote endpoint.
func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		MinLevel:      LevelInfo,
		FlushInterval: DefaultFlushInterval,
		BufferSize:    DefaultBufferSize,
	}
}

// Option configures a Logger.
type Option func(*Logger)

// WithSink sets the remote sink, overriding Config.RemoteEndpoint.
func WithSink(sink Sink) Option {
	return func(l *Logger) {
		l.sink = sink
	}
}

// WithConsole sets the zap logger entries are mirrored to.
func WithConsole(console *zap.Logger) Option {
	return func(l *Logger) {
		if console != nil {
			l.console = console
		}
	}
}

// WithMetrics enables Prometheus metrics for the buffer and flushes.
func WithMetrics(mc *MetricsCollector) Option {
	return func(l *Logger) {
		l.metrics = mc
	}
}

// WithSessionID overrides the generated session id.
func WithSessionID(id string) Option {
	return func(l *Logger) {
		if id != "" {
			l.sessionID = id
		}
	}
}

// WithEnvironment sets the client context stamped on every entry.
func WithEnvironment(userAgent, url string) Option {
	return func(l *Logger) {
		l.env = NewEnvironment(userAgent, url)
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		if now != nil {
			l.now = now
		}
	}
}

// Logger buffers structured entries and ships them to a sink. A Logger is
// safe for concurrent use; a nil *Logger discards everything.
type Logger struct {
	cfg       Config
	buffer    *Buffer
	console   *zap.Logger
	sink      Sink
	metrics   *MetricsCollector
	sessionID string
	now       func() time.Time
	flights   *singleflight.Group

	// flushPending is set when an ERROR entry arrives while a flush is
	// running; whoever finishes that flush starts another one.
	flushPending atomic.Bool

	mu     sync.RWMutex
	userID string
	env    Environment

	runMu   sync.Mutex
	running bool
	closed  bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// New creates a Logger. Call Start to begin periodic flushing.
func New(cfg Config, opts ...Option) *Logger {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}

	l := &Logger{
		cfg:       cfg,
		buffer:    NewBuffer(cfg.BufferSize),
		sessionID: NewSessionID(),
		now:       time.Now,
		flights:   singleflight.New(),
	}
	if cfg.RemoteEndpoint != "" {
		l.sink = NewHTTPSink(cfg.RemoteEndpoint)
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.console == nil {
		console, err := NewConsole("production", LevelDebug)
		if err != nil {
			console = zap.NewNop()
		}
		l.console = console
	}

	return l
}

// NewSessionID returns a fresh "session_" prefixed id.
func NewSessionID() string {
	return "session_" + uuid.NewString()
}

// Start launches the periodic flush loop. It does nothing when the logger is
// disabled, has no sink, is already running or has been closed.
func (l *Logger) Start(ctx context.Context) {
	if l == nil {
		return
	}

	l.runMu.Lock()
	defer l.runMu.Unlock()

	if l.running || l.closed || !l.cfg.Enabled || l.sink == nil {
		return
	}

	l.running = true
	l.done = make(chan struct{})
	l.wg.Add(1)
	go l.flushLoop(ctx, l.done)
}

func (l *Logger) flushLoop(ctx context.Context, done <-chan struct{}) {
	defer l.wg.Done()

	ticker := time.NewTicker(l.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
			_ = l.Flush(flushCtx)
			cancel()
		}
	}
}

// Close stops the flush loop, waits for background flushes and performs a
// final flush. A sink that implements io.Closer is closed afterwards.
// Entries logged after Close are still buffered but no longer flushed
// automatically.
func (l *Logger) Close(ctx context.Context) error {
	if l == nil {
		return nil
	}

	l.runMu.Lock()
	if l.closed {
		l.runMu.Unlock()
		return nil
	}
	l.closed = true
	if l.running {
		l.running = false
		close(l.done)
	}
	l.runMu.Unlock()

	l.wg.Wait()

	err := l.Flush(ctx)
	if closer, ok := l.sink.(io.Closer); ok {
		if cerr := closer.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("closing log sink: %w", cerr))
		}
	}
	_ = l.console.Sync()
	return err
}

// Running reports whether the flush loop is active.
func (l *Logger) Running() bool {
	l.runMu.Lock()
	defer l.runMu.Unlock()
	return l.running
}

// Log records an entry. Disabled loggers and entries below the minimum level
// are dropped silently. Log never panics.
func (l *Logger) Log(level Level, message string, eventType EventType, data Payload) {
	if l == nil || !l.cfg.Enabled || level < l.cfg.MinLevel {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			l.console.Error("event logger failed to record entry",
				zap.String("message", message),
				zap.Any("panic", r))
		}
	}()

	entry := l.newEntry(level, message, eventType, data)
	l.mirror(entry)

	evicted := l.buffer.Append(entry)
	l.metrics.RecordEntry(entry.Level, entry.EventType)
	l.metrics.RecordEvicted(evicted)
	l.metrics.SetBufferSize(l.buffer.Len())

	if level >= LevelError && l.sink != nil {
		l.flushAsync()
	}
}

func (l *Logger) newEntry(level Level, message string, eventType EventType, data Payload) LogEntry {
	var fields map[string]any
	if data != nil {
		fields = Sanitize(data.Fields())
	}

	l.mu.RLock()
	userID := l.userID
	env := l.env
	l.mu.RUnlock()

	return LogEntry{
		Timestamp:   l.now().UTC(),
		Level:       level,
		EventType:   eventType.normalize(),
		Message:     message,
		Data:        fields,
		SessionID:   l.sessionID,
		UserID:      userID,
		Environment: env,
	}
}

// flushAsync starts a background flush unless one is already running, in
// which case the flush is deferred until the running one finishes.
func (l *Logger) flushAsync() {
	l.runMu.Lock()
	defer l.runMu.Unlock()

	if l.closed {
		return
	}
	if l.flights.InFlight(flushKey) {
		l.flushPending.Store(true)
		return
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()

		_, err, _ := l.flights.TryDo(flushKey, func() (interface{}, error) {
			return nil, l.flush(ctx)
		})
		if errors.Is(err, singleflight.ErrInProgress) {
			l.flushPending.Store(true)
			return
		}
		l.flushDeferred()
	}()
}

// flushDeferred starts the flush that was put off while another was running.
func (l *Logger) flushDeferred() {
	if l.flushPending.CompareAndSwap(true, false) && l.buffer.Len() > 0 {
		l.flushAsync()
	}
}

// Flushing reports whether a flush is currently in progress.
func (l *Logger) Flushing() bool {
	if l == nil {
		return false
	}
	return l.flights.InFlight(flushKey)
}

// Debug logs at LevelDebug.
func (l *Logger) Debug(message string, eventType EventType, data Payload) {
	l.Log(LevelDebug, message, eventType, data)
}

// Info logs at LevelInfo.
func (l *Logger) Info(message string, eventType EventType, data Payload) {
	l.Log(LevelInfo, message, eventType, data)
}

// Warn logs at LevelWarn.
func (l *Logger) Warn(message string, eventType EventType, data Payload) {
	l.Log(LevelWarn, message, eventType, data)
}

// Error logs at LevelError and schedules a flush when a sink is configured.
func (l *Logger) Error(message string, eventType EventType, data Payload) {
	l.Log(LevelError, message, eventType, data)
}

// Flush sends every buffered entry to the sink. A caller arriving while a
// flush is running waits for it and shares its result. On failure the
// entries are put back at the front of the buffer and a *FlushError is
// returned.
func (l *Logger) Flush(ctx context.Context) error {
	if l == nil || l.sink == nil {
		return nil
	}

	_, err, _ := l.flights.Do(flushKey, func() (interface{}, error) {
		return nil, l.flush(ctx)
	})
	l.flushDeferred()
	return err
}

func (l *Logger) flush(ctx context.Context) error {
	entries := l.buffer.Drain()
	if len(entries) == 0 {
		return nil
	}

	if err := l.send(ctx, entries); err != nil {
		dropped := l.buffer.Restore(entries)
		l.metrics.RecordFlush(false, 0)
		l.metrics.RecordEvicted(dropped)
		l.metrics.SetBufferSize(l.buffer.Len())
		l.console.Warn("failed to flush log entries",
			zap.Int("entries", len(entries)),
			zap.Int("dropped", dropped),
			zap.Error(err))
		return &FlushError{Entries: len(entries), Cause: err}
	}

	l.metrics.RecordFlush(true, len(entries))
	l.metrics.SetBufferSize(l.buffer.Len())
	return nil
}

func (l *Logger) send(ctx context.Context, entries []LogEntry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panicked: %v", r)
		}
	}()
	return l.sink.Send(ctx, entries)
}

// SetUserID attaches id to every subsequent entry.
func (l *Logger) SetUserID(id string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.userID = id
	l.mu.Unlock()
}

// ClearUserID makes subsequent entries anonymous.
func (l *Logger) ClearUserID() {
	l.SetUserID("")
}

// UserID returns the current user id, empty when anonymous.
func (l *Logger) UserID() string {
	if l == nil {
		return ""
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.userID
}

// SessionID returns the id shared by every entry of this logger.
func (l *Logger) SessionID() string {
	if l == nil {
		return ""
	}
	return l.sessionID
}

// SetCurrentURL changes the URL stamped on subsequent entries.
func (l *Logger) SetCurrentURL(url string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.env = l.env.withURL(url)
	l.mu.Unlock()
}

// Environment returns the client context stamped on new entries.
func (l *Logger) Environment() Environment {
	if l == nil {
		return Environment{}
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.env
}

// Entries returns copies of the buffered entries, oldest first.
func (l *Logger) Entries() []LogEntry {
	if l == nil {
		return nil
	}
	return l.buffer.Entries()
}

// Buffered returns the number of entries waiting to be flushed.
func (l *Logger) Buffered() int {
	if l == nil {
		return 0
	}
	return l.buffer.Len()
}

// Config returns the logger configuration with defaults applied.
func (l *Logger) Config() Config {
	if l == nil {
		return Config{}
	}
	return l.cfg
}
