package eventlog

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger(t *testing.T, cfg Config, opts ...Option) (*Logger, *observer.ObservedLogs) {
	t.Helper()

	core, observed := observer.New(zapcore.DebugLevel)
	opts = append([]Option{WithConsole(zap.New(core))}, opts...)
	l := New(cfg, opts...)
	t.Cleanup(func() { _ = l.Close(context.Background()) })
	return l, observed
}

func enabledConfig() Config {
	cfg := DefaultConfig()
	cfg.MinLevel = LevelDebug
	return cfg
}

// recordingSink keeps every batch it receives.
type recordingSink struct {
	mu      sync.Mutex
	batches [][]LogEntry
	err     error
}

func (s *recordingSink) Send(_ context.Context, entries []LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	batch := make([]LogEntry, len(entries))
	copy(batch, entries)
	s.batches = append(s.batches, batch)
	return nil
}

func (s *recordingSink) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *recordingSink) entries() []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []LogEntry
	for _, b := range s.batches {
		out = append(out, b...)
	}
	return out
}

func (s *recordingSink) batchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
