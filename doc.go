// Package synapse is the instrumented request client of the Synapse
// application:
//
//   - A correlation id per logical call, sent as X-Request-ID
//   - Per-attempt timeouts and bounded, fixed-delay retries
//   - Retries on 429, 5xx and network errors only; timeouts are final
//   - Typed failures (Timeout, Network, HTTP) with the last response body
//   - A full event trail in an eventlog.Logger: start, one event per attempt
//     and a slow-operation warning for calls above the slow threshold
//   - Optional rate limiting, circuit breaking, middleware and Prometheus metrics
//
// Typical usage:
//
//	logger := eventlog.New(eventlog.DefaultConfig())
//	client := synapse.New(
//	    synapse.WithBaseURL("https://api.example.com"),
//	    synapse.WithLogger(logger),
//	    synapse.WithSessionProvider(session),
//	)
//	resp, err := client.Request(ctx, "/optimize",
//	    synapse.WithMethod(http.MethodPost),
//	    synapse.WithBody(payload),
//	    synapse.WithRetries(2),
//	)
//
// Login, Register, Optimize and Execute are presets that apply AuthPolicy or
// GenerationPolicy and log a descriptive event before the call.
package synapse
