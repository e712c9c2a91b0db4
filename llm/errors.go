package llm

import (
	"errors"
)

// Error types for classifying LLM errors.

// TransientError represents a temporary error that may succeed on retry.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string {
	return e.err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.err
}

// NewTransientError wraps an error as transient (retryable).
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// FatalError represents a permanent error that should not be retried.
type FatalError struct {
	err error
}

func (e *FatalError) Error() string {
	return e.err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.err
}

// NewFatalError wraps an error as fatal (non-retryable).
func NewFatalError(err error) error {
	return &FatalError{err: err}
}

// IsTransient returns true if the error is transient and should be retried.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// IsFatal returns true if the error is fatal and should not be retried.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

// TimeoutError represents a request that exceeded its caller-supplied deadline.
type TimeoutError struct {
	err error
}

func (e *TimeoutError) Error() string {
	return e.err.Error()
}

func (e *TimeoutError) Unwrap() error {
	return e.err
}

// NewTimeoutError wraps an error as a timeout (LlmError::Timeout).
func NewTimeoutError(err error) error {
	return &TimeoutError{err: err}
}

// IsTimeout returns true if the error is a timeout.
func IsTimeout(err error) bool {
	var timeout *TimeoutError
	return errors.As(err, &timeout)
}

// UnparseableError represents a completion that never yielded valid JSON
// after the bounded number of re-prompts (LlmError::Unparseable).
type UnparseableError struct {
	err error
}

func (e *UnparseableError) Error() string {
	return e.err.Error()
}

func (e *UnparseableError) Unwrap() error {
	return e.err
}

// NewUnparseableError wraps an error as an unparseable-completion failure.
func NewUnparseableError(err error) error {
	return &UnparseableError{err: err}
}

// IsUnparseable returns true if the error is an unparseable-completion failure.
func IsUnparseable(err error) bool {
	var unparseable *UnparseableError
	return errors.As(err, &unparseable)
}
