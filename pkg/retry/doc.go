// Package retry provides exponential backoff retry logic for transient failures.
//
// Do re-invokes a fallible operation up to MaxAttempts times. The delay starts
// at InitialDelay and grows by Multiplier up to MaxDelay, with optional jitter.
// The final success or the last failure is returned.
//
// Programmer errors must not be retried. Either mark them with NonRetryable or
// supply a RetryIf predicate; errors.RetryConfig.ToRetryConfig does the latter
// using the error classification:
//
//	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
//	    return client.Connect(ctx)
//	})
//
//	cfg := retry.Quick()
//	cfg.RetryIf = func(err error) bool { return !errors.Is(err, fs.ErrNotExist) }
//	data, err := retry.DoWithResult(ctx, cfg, func() ([]byte, error) {
//	    return os.ReadFile(path)
//	})
package retry
