// Package errors provides the error taxonomy shared by the Loquat pipeline core.
// Every error carries a Kind (what went wrong) and an ErrorClass (how callers
// should react to it), and follows the "component.method: action failed: cause"
// wrapping convention.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Full-finger/Loquat-sub001/pkg/retry"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorTransient represents temporary errors that may be retried
	ErrorTransient ErrorClass = iota
	// ErrorInvalid represents errors due to invalid input or configuration
	ErrorInvalid
	// ErrorFatal represents unrecoverable errors that should stop processing
	ErrorFatal
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Kind is the closed set of failure categories.
type Kind int

const (
	// KindUnknown is reported for errors outside the taxonomy.
	KindUnknown Kind = iota
	// KindConfig covers invalid format and missing required values, including
	// worker registry violations (duplicate name, duplicate priority, unknown worker).
	KindConfig
	// KindExecution is surfaced by workers for domain failures.
	KindExecution
	// KindIO wraps file and network failures.
	KindIO
	// KindParse wraps decoding failures.
	KindParse
	// KindRegex wraps pattern compilation failures.
	KindRegex
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindExecution:
		return "execution"
	case KindIO:
		return "io"
	case KindParse:
		return "parse"
	case KindRegex:
		return "regex"
	default:
		return "unknown"
	}
}

// Sentinels for each kind. Match with errors.Is.
var (
	ErrInvalidFormat   = errors.New("invalid format")
	ErrMissingRequired = errors.New("missing required")
	ErrExecutionFailed = errors.New("execution failed")
	ErrIO              = errors.New("io error")
	ErrParse           = errors.New("parse error")
	ErrRegex           = errors.New("regex error")
)

// Standard error variables for common conditions
var (
	ErrAlreadyStarted = errors.New("component already started")
	ErrNotStarted     = errors.New("component not started")
	ErrShuttingDown   = errors.New("component is shutting down")

	ErrNoConnection      = errors.New("no connection available")
	ErrConnectionLost    = errors.New("connection lost")
	ErrConnectionTimeout = errors.New("connection timeout")

	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingConfig = errors.New("missing required configuration")

	ErrResourceExhausted = errors.New("resource exhausted")
)

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Kind      Kind
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// KindOf reports the Kind of err, walking the wrap chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) && ce.Kind != KindUnknown {
		return ce.Kind
	}

	switch {
	case errors.Is(err, ErrInvalidFormat), errors.Is(err, ErrMissingRequired):
		return KindConfig
	case errors.Is(err, ErrExecutionFailed):
		return KindExecution
	case errors.Is(err, ErrIO):
		return KindIO
	case errors.Is(err, ErrParse):
		return KindParse
	case errors.Is(err, ErrRegex):
		return KindRegex
	}
	return KindUnknown
}

// IsTransient checks if an error is transient and should be retried
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorTransient
	}

	if errors.Is(err, ErrConnectionTimeout) ||
		errors.Is(err, ErrConnectionLost) ||
		errors.Is(err, ErrNoConnection) ||
		errors.Is(err, ErrIO) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{"timeout", "connection", "temporary", "unavailable", "busy"} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// IsFatal checks if an error is fatal and should stop processing
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorFatal
	}

	if errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingConfig) ||
		errors.Is(err, ErrResourceExhausted) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{"fatal", "panic", "out of memory", "disk full"} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// IsInvalid checks if an error is due to invalid input
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorInvalid
	}

	return errors.Is(err, ErrInvalidFormat) ||
		errors.Is(err, ErrMissingRequired) ||
		errors.Is(err, ErrParse) ||
		errors.Is(err, ErrRegex)
}

// Classify returns the error class for an error
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrorTransient
	}

	if IsTransient(err) {
		return ErrorTransient
	}
	if IsFatal(err) {
		return ErrorFatal
	}
	if IsInvalid(err) {
		return ErrorInvalid
	}

	// Unknown errors default to transient so callers may retry
	return ErrorTransient
}

func newClassified(class ErrorClass, kind Kind, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Kind:      kind,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapTransient wraps an error as transient with context
func WrapTransient(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorTransient, KindOf(err), wrappedErr, component, method, wrappedErr.Error())
}

// WrapFatal wraps an error as fatal with context
func WrapFatal(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorFatal, KindOf(err), wrappedErr, component, method, wrappedErr.Error())
}

// WrapInvalid wraps an error as invalid with context
func WrapInvalid(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorInvalid, KindOf(err), wrappedErr, component, method, wrappedErr.Error())
}

// InvalidFormat reports a Config error for a malformed or conflicting value.
func InvalidFormat(component, method, message string) error {
	cause := fmt.Errorf("%w: %s", ErrInvalidFormat, message)
	return newClassified(ErrorInvalid, KindConfig, Wrap(cause, component, method, "validation"),
		component, method, "")
}

// MissingRequired reports a Config error for an absent key or unknown name.
func MissingRequired(component, method, key string) error {
	cause := fmt.Errorf("%w: %s", ErrMissingRequired, key)
	return newClassified(ErrorInvalid, KindConfig, Wrap(cause, component, method, "lookup"),
		component, method, "")
}

// ExecutionFailed reports a worker-level domain failure.
func ExecutionFailed(component, method, message string) error {
	cause := fmt.Errorf("%w: %s", ErrExecutionFailed, message)
	return newClassified(ErrorTransient, KindExecution, Wrap(cause, component, method, "execution"),
		component, method, "")
}

// IO wraps a file or network failure. IO errors are transient.
func IO(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	cause := fmt.Errorf("%w: %w", ErrIO, err)
	return newClassified(ErrorTransient, KindIO, Wrap(cause, component, method, action), component, method, "")
}

// Parse wraps a decoding failure. Parse errors are invalid input.
func Parse(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	cause := fmt.Errorf("%w: %w", ErrParse, err)
	return newClassified(ErrorInvalid, KindParse, Wrap(cause, component, method, action), component, method, "")
}

// Regex wraps a pattern compilation failure.
func Regex(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	cause := fmt.Errorf("%w: %w", ErrRegex, err)
	return newClassified(ErrorInvalid, KindRegex, Wrap(cause, component, method, action), component, method, "")
}

// RetryConfig defines configuration for retry operations
type RetryConfig struct {
	MaxRetries      int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	RetryableErrors []error
}

// DefaultRetryConfig returns a sensible default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

func (rc RetryConfig) retryable(err error) bool {
	if err == nil || !IsTransient(err) {
		return false
	}

	if len(rc.RetryableErrors) > 0 {
		for _, retryableErr := range rc.RetryableErrors {
			if errors.Is(err, retryableErr) {
				return true
			}
		}
		return false
	}

	return true
}

// ToRetryConfig converts to the retry package's Config. MaxRetries counts
// additional attempts, so MaxAttempts is MaxRetries+1. Only transient errors
// (optionally narrowed by RetryableErrors) are retried: registry and other
// programmer errors fail on the first attempt.
func (rc RetryConfig) ToRetryConfig() retry.Config {
	return retry.Config{
		MaxAttempts:  rc.MaxRetries + 1,
		InitialDelay: rc.InitialDelay,
		MaxDelay:     rc.MaxDelay,
		Multiplier:   rc.BackoffFactor,
		AddJitter:    true,
		RetryIf:      rc.retryable,
	}
}
