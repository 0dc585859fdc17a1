// Package eventlog is the process-wide structured event log of the client.
//
// A Logger filters entries by level, stamps them with a session id, the
// current user id and an environment snapshot, redacts sensitive payload keys,
// mirrors every entry to a zap console logger and keeps the most recent
// entries in a bounded in-memory buffer. Buffered entries are shipped to a
// Sink (HTTP collector or Redis list) on a timer, immediately after
// error-level entries, and on Close.
//
// Typical usage:
//
//	logger := eventlog.New(eventlog.Config{
//	    Enabled:        true,
//	    MinLevel:       eventlog.LevelInfo,
//	    RemoteEndpoint: "https://logs.example.com/ingest",
//	    FlushInterval:  30 * time.Second,
//	})
//	logger.Start(ctx)
//	defer logger.Close(context.Background())
//
//	logger.LogUserAction("click", "optimize_button", nil)
//
// A Logger never panics into its caller and never returns sink failures from
// Log; only an explicit Flush reports a *FlushError.
package eventlog
