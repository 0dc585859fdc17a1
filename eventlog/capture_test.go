package eventlog

import (
	"context"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartTimer(t *testing.T) {
	clock := newFakeClock()
	l, _ := newObservedLogger(t, enabledConfig(), WithClock(clock.Now))

	stop := l.StartTimer("load_dashboard")
	clock.Advance(250 * time.Millisecond)
	elapsed := stop()

	assert.Equal(t, 250*time.Millisecond, elapsed)

	entries := l.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, EventPerformance, entries[0].EventType)
	assert.Equal(t, "load_dashboard", entries[0].Data["metric"])
	assert.Equal(t, 250.0, entries[0].Data["value"])
	assert.Equal(t, "ms", entries[0].Data["unit"])
}

func TestRecoverLogsAndSwallowsPanic(t *testing.T) {
	l, _ := newObservedLogger(t, enabledConfig())

	assert.NotPanics(t, func() {
		defer l.Recover("worker")
		panic("kaboom")
	})

	entries := l.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, LevelError, entries[0].Level)
	assert.Equal(t, EventUncaughtError, entries[0].EventType)
	assert.Equal(t, "kaboom", entries[0].Data["error"])
	assert.Equal(t, "worker", entries[0].Data["component"])
	assert.NotEmpty(t, entries[0].Data["stack"])
}

func TestRecoverWithoutPanic(t *testing.T) {
	l, _ := newObservedLogger(t, enabledConfig())

	func() {
		defer l.Recover("worker")
	}()

	assert.Zero(t, l.Buffered())
}

func TestRecoverAndCrashFlushesThenRepanics(t *testing.T) {
	sink := &recordingSink{}
	l, _ := newObservedLogger(t, enabledConfig(), WithSink(sink))

	assert.PanicsWithValue(t, "fatal", func() {
		defer l.RecoverAndCrash("main")
		panic("fatal")
	})

	entries := sink.entries()
	require.NotEmpty(t, entries)
	assert.Equal(t, EventUncaughtError, entries[0].EventType)
}

func TestGoCapturesErrorsAndPanics(t *testing.T) {
	l, _ := newObservedLogger(t, enabledConfig())

	l.Go("sync", func() error { return errors.New("upstream gone") })
	l.Go("render", func() error { panic("nil map") })

	require.Eventually(t, func() bool { return l.Buffered() == 2 }, 2*time.Second, 5*time.Millisecond)

	byType := map[EventType]LogEntry{}
	for _, e := range l.Entries() {
		byType[e.EventType] = e
	}

	rejection, ok := byType[EventUnhandledRejection]
	require.True(t, ok)
	assert.Equal(t, "upstream gone", rejection.Data["error"])
	assert.Equal(t, "sync", rejection.Data["component"])

	uncaught, ok := byType[EventUncaughtError]
	require.True(t, ok)
	assert.Equal(t, "render", uncaught.Data["component"])
}

func TestCaptureStdLog(t *testing.T) {
	l, _ := newObservedLogger(t, enabledConfig())

	restore := l.CaptureStdLog()
	log.Printf("disk %s", "full")
	restore()

	_, captured := log.Writer().(stdLogWriter)
	assert.False(t, captured)

	entries := l.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "disk full", entries[0].Message)
	assert.Equal(t, EventUncaughtError, entries[0].EventType)
	assert.Equal(t, "stdlog", entries[0].Data["source"])
}

func TestRecoverAndCrashWithoutPanic(t *testing.T) {
	l, _ := newObservedLogger(t, enabledConfig(), WithSink(&recordingSink{}))

	assert.NotPanics(t, func() {
		defer l.RecoverAndCrash("main")
	})
	require.NoError(t, l.Flush(context.Background()))
}
