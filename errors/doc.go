// Package errors provides the error taxonomy for the Loquat pipeline core.
//
// # Kinds
//
// Errors form a closed set of kinds:
//
//   - KindConfig: InvalidFormat(message) and MissingRequired(key). The worker
//     registry reports duplicate names and duplicate priorities as InvalidFormat
//     and unknown workers as MissingRequired.
//   - KindExecution: ExecutionFailed(message), surfaced by workers for domain failures.
//   - KindIO, KindParse, KindRegex: wrap their lower-level causes.
//
// Use KindOf to recover the kind from any wrapped error, or errors.Is against the
// sentinels (ErrInvalidFormat, ErrMissingRequired, ErrExecutionFailed, ErrIO,
// ErrParse, ErrRegex).
//
// # Classification
//
// Independently of kind, every error has a class that drives retry decisions:
//
//   - Transient: I/O, timeouts, connection loss (retry recommended)
//   - Invalid: configuration, registry violations, parse and regex failures (never retry)
//   - Fatal: unrecoverable states (stop processing)
//
// # Wrapping
//
// All wrapping follows the format
//
//	"component.method: action failed: %w"
//
// so that log lines read the same across packages:
//
//	if err := p.Register(reg); err != nil {
//	    return errors.Wrap(err, "Pipeline", "Register", "pool registration")
//	}
//
// # Retry
//
// RetryConfig.ToRetryConfig produces a retry.Config whose RetryIf only accepts
// transient errors, so a duplicate worker name or an invalid LRU capacity is
// returned on the first attempt:
//
//	cfg := errors.DefaultRetryConfig().ToRetryConfig()
//	err := retry.Do(ctx, cfg, func() error { return load(path) })
package errors
