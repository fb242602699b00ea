// Package errors provides centralized error definitions and error handling utilities
// for xox-server. It defines the error taxonomy shared by the instance store, the
// session registry, the distribution updaters and the lifecycle controller.
//
// # Error Types
//
//   - ValidationError: bad operator input or a record missing a required field
//   - NotFoundError: a stale selection against the instance store
//   - SessionAlreadyExistsError: a session with the same name is already running
//   - ExhaustedRetriesError: a bounded retry loop gave up
//   - IllegalArgumentError: a launch command would break session quoting
//
// Every type matches its sentinel through errors.Is, so callers can test either
// the sentinel or the concrete type:
//
//	if errors.Is(err, errors.ErrNotFound) { ... }
//
//	var exists *errors.SessionAlreadyExistsError
//	if errors.As(err, &exists) { ... }
//
// # Error Classification
//
// IsRecoverable reports whether the lifecycle controller may report the error
// and return to the instance listing. UserMessage renders an error for the
// operator's terminal.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityWarning is for errors caused by the operator or stale state.
	SeverityWarning Severity = iota
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that indicate a programming bug.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

var (
	// ErrValidation indicates that input validation failed.
	ErrValidation = New("validation failed")
	// ErrNotFound indicates that a record could not be found.
	ErrNotFound = New("not found")
	// ErrSessionExists indicates that a session with the same name is running.
	ErrSessionExists = New("session already exists")
	// ErrExhaustedRetries indicates that an operation failed on every attempt.
	ErrExhaustedRetries = New("retries exhausted")
	// ErrIllegalArgument indicates an argument that can never be accepted.
	ErrIllegalArgument = New("illegal argument")
	// ErrAborted indicates that the operator aborted an interactive prompt.
	ErrAborted = New("aborted by operator")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// ConsoleError is the base interface for all xox-server errors.
type ConsoleError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the operation may succeed on retry.
	IsRetryable() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message   string
	cause     error
	severity  Severity
	retryable bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// ValidationError represents invalid operator input or an incomplete record.
//
// Example:
//
//	err := errors.NewValidationError("name cannot be empty").WithField("name")
//	fmt.Println(err) // "validation error [field=name]: name cannot be empty"
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:  message,
			severity: SeverityWarning,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	return target == ErrValidation
}

// NotFoundError represents a record that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("game_valheim", "a1b2c3d4")
//	fmt.Println(err) // "game_valheim 'a1b2c3d4' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:  fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity: SeverityWarning,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return target == ErrNotFound
}

// SessionAlreadyExistsError is returned when a session would collide with a
// live session of the same name. It is never retried automatically.
type SessionAlreadyExistsError struct {
	baseError
	SessionName string
}

// NewSessionAlreadyExistsError creates a new SessionAlreadyExistsError.
func NewSessionAlreadyExistsError(sessionName string) *SessionAlreadyExistsError {
	return &SessionAlreadyExistsError{
		baseError: baseError{
			message:  fmt.Sprintf("session %s already exists, aborting", sessionName),
			severity: SeverityWarning,
		},
		SessionName: sessionName,
	}
}

// Is checks if this error matches the target.
func (e *SessionAlreadyExistsError) Is(target error) bool {
	if _, ok := target.(*SessionAlreadyExistsError); ok {
		return true
	}
	return target == ErrSessionExists
}

// ExhaustedRetriesError is returned by a bounded retry loop after the last
// attempt failed. Last holds the error of the final attempt.
//
// Example:
//
//	err := errors.NewExhaustedRetriesError("steam app 896660 update", 5, lastErr)
//	fmt.Println(err) // "steam app 896660 update failed after 5 attempts: exit status 8"
type ExhaustedRetriesError struct {
	baseError
	Operation string
	Attempts  int
}

// NewExhaustedRetriesError creates a new ExhaustedRetriesError.
func NewExhaustedRetriesError(operation string, attempts int, last error) *ExhaustedRetriesError {
	return &ExhaustedRetriesError{
		baseError: baseError{
			message:  fmt.Sprintf("%s failed after %d attempts", operation, attempts),
			cause:    last,
			severity: SeverityError,
		},
		Operation: operation,
		Attempts:  attempts,
	}
}

// Is checks if this error matches the target.
func (e *ExhaustedRetriesError) Is(target error) bool {
	if _, ok := target.(*ExhaustedRetriesError); ok {
		return true
	}
	return target == ErrExhaustedRetries
}

// IllegalArgumentError is returned for arguments that indicate a bug in the
// caller, such as a launch command that would escape session quoting.
type IllegalArgumentError struct {
	baseError
	Argument string
}

// NewIllegalArgumentError creates a new IllegalArgumentError.
func NewIllegalArgumentError(message, argument string) *IllegalArgumentError {
	return &IllegalArgumentError{
		baseError: baseError{
			message:  message,
			severity: SeverityCritical,
		},
		Argument: argument,
	}
}

// Error returns the formatted error message.
func (e *IllegalArgumentError) Error() string {
	if e.Argument != "" {
		return fmt.Sprintf("illegal argument %q: %s", e.Argument, e.message)
	}
	return "illegal argument: " + e.message
}

// Is checks if this error matches the target.
func (e *IllegalArgumentError) Is(target error) bool {
	if _, ok := target.(*IllegalArgumentError); ok {
		return true
	}
	return target == ErrIllegalArgument
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error is marked as transient.
// Errors that do not implement ConsoleError are considered retryable, since
// they usually come from an external process exiting non-zero.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var consoleErr ConsoleError
	if As(err, &consoleErr) {
		return consoleErr.IsRetryable()
	}
	return true
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement ConsoleError.
func GetSeverity(err error) Severity {
	var consoleErr ConsoleError
	if As(err, &consoleErr) {
		return consoleErr.Severity()
	}
	return SeverityError
}

// IsRecoverable reports whether a failed menu transition can be reported to the
// operator and the console returned to the instance listing. Operator aborts
// and context cancellation unwind the whole program instead.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	return !Is(err, ErrAborted) && !Is(err, context.Canceled)
}

// UserMessage returns the message shown to the operator for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var exists *SessionAlreadyExistsError
	if As(err, &exists) {
		return fmt.Sprintf("Screen %s already exists, kill it first to relaunch", exists.SessionName)
	}
	var exhausted *ExhaustedRetriesError
	if As(err, &exhausted) {
		return exhausted.Error()
	}
	return err.Error()
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
