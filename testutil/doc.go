// Package testutil provides shared helpers for Loquat tests.
//
// CaptureHandler is a slog.Handler that records every log record so tests can
// assert on structured output, for example the error-level dead-loop report a
// pool emits when a worker's output re-matches the worker:
//
//	logger, logs := testutil.NewCaptureLogger()
//	p := pool.NewStandardPool("t.process", pool.Process, pool.WithLogger(logger))
//	...
//	require.Len(t, logs.AtLevel(slog.LevelError), 1)
//
// MemoryTransport is an in-memory publish/subscribe transport with the same
// signatures as natsclient.Client, used to exercise the bridge without a NATS
// server. All helpers are safe for concurrent use.
package testutil
