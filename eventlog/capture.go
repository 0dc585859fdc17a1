package eventlog

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"strings"
	"time"
)

// StartTimer starts measuring name. The returned func logs the elapsed
// milliseconds as a performance entry and returns the duration.
func (l *Logger) StartTimer(name string) func() time.Duration {
	now := time.Now
	if l != nil {
		now = l.now
	}
	start := now()

	return func() time.Duration {
		elapsed := now().Sub(start)
		l.LogPerformance(name, float64(elapsed)/float64(time.Millisecond), "ms", 0)
		return elapsed
	}
}

// Recover logs a panic as uncaught_error and swallows it. It must be
// deferred directly:
//
//	defer logger.Recover("worker")
func (l *Logger) Recover(component string) {
	if r := recover(); r != nil {
		l.logPanic(component, r)
	}
}

// RecoverAndCrash logs a panic, flushes synchronously and panics again.
func (l *Logger) RecoverAndCrash(component string) {
	if r := recover(); r != nil {
		l.logPanic(component, r)

		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		_ = l.Flush(ctx)
		cancel()

		panic(r)
	}
}

func (l *Logger) logPanic(component string, r any) {
	err, ok := r.(error)
	if !ok {
		err = fmt.Errorf("%v", r)
	}

	l.Error(fmt.Sprintf("Uncaught panic in %s: %v", component, r), EventUncaughtError, ErrorData{
		Err:       err,
		Component: component,
		Stack:     string(debug.Stack()),
	})
}

// Go runs fn on a new goroutine. A panic is logged as uncaught_error and a
// returned error as unhandled_rejection; neither reaches the caller.
func (l *Logger) Go(component string, fn func() error) {
	go func() {
		defer l.Recover(component)

		if err := fn(); err != nil {
			l.Error(fmt.Sprintf("Unhandled error in %s: %v", component, err), EventUnhandledRejection, ErrorData{
				Err:       err,
				Component: component,
			})
		}
	}()
}

// CaptureStdLog routes the standard library logger into this logger as
// uncaught_error entries. The returned func restores the previous output.
func (l *Logger) CaptureStdLog() (restore func()) {
	prevWriter := log.Writer()
	prevFlags := log.Flags()
	prevPrefix := log.Prefix()

	log.SetFlags(0)
	log.SetPrefix("")
	log.SetOutput(stdLogWriter{logger: l})

	return func() {
		log.SetOutput(prevWriter)
		log.SetFlags(prevFlags)
		log.SetPrefix(prevPrefix)
	}
}

type stdLogWriter struct {
	logger *Logger
}

func (w stdLogWriter) Write(p []byte) (int, error) {
	msg := strings.TrimSpace(string(p))
	if msg != "" {
		w.logger.Error(msg, EventUncaughtError, Fields{"source": "stdlog"})
	}
	return len(p), nil
}
