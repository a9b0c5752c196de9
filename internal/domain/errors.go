package domain

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed caller input. It is a precondition
// failure and is never retried automatically.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a field-level validation error.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError reports a missing record.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// NewNotFoundError creates a not-found error for the given record kind and id.
func NewNotFoundError(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// ForbiddenError reports an ownership mismatch.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string {
	return "forbidden: " + e.Reason
}

// NewForbiddenError creates an ownership error.
func NewForbiddenError(reason string) error {
	return &ForbiddenError{Reason: reason}
}

// InvalidStateError reports an operation attempted in a state that
// forbids it, naming the offending state.
type InvalidStateError struct {
	Op    string
	State string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s not allowed in state %s", e.Op, e.State)
}

// NewInvalidStateError creates a state error for the given operation.
func NewInvalidStateError(op, state string) error {
	return &InvalidStateError{Op: op, State: state}
}

// ConflictError reports a lost optimistic-concurrency race. The caller
// may retry with a fresh read.
type ConflictError struct {
	Kind string
	ID   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("concurrent update on %s %s", e.Kind, e.ID)
}

// NewConflictError creates a version-conflict error.
func NewConflictError(kind, id string) error {
	return &ConflictError{Kind: kind, ID: id}
}

// UpstreamError reports a collaborator failure. Malformed marks
// responses that arrived but failed shape validation.
type UpstreamError struct {
	Collaborator string
	Malformed    bool
	Err          error
}

func (e *UpstreamError) Error() string {
	if e.Malformed {
		return fmt.Sprintf("%s returned malformed response: %v", e.Collaborator, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Collaborator, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// NewUpstreamError wraps a collaborator failure.
func NewUpstreamError(collaborator string, err error) error {
	return &UpstreamError{Collaborator: collaborator, Err: err}
}

// NewMalformedUpstreamError wraps a collaborator response that failed
// shape validation.
func NewMalformedUpstreamError(collaborator string, err error) error {
	return &UpstreamError{Collaborator: collaborator, Malformed: true, Err: err}
}

// IsRetryable reports whether the caller may usefully retry the same
// request. Upstream and conflict failures are retryable; validation,
// ownership and state errors are not.
func IsRetryable(err error) bool {
	var ue *UpstreamError
	var ce *ConflictError
	return errors.As(err, &ue) || errors.As(err, &ce)
}
