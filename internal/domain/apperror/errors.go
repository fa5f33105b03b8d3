// Package apperror defines the error taxonomy shared by all operations.
// Callers classify errors with errors.As via the predicate helpers and
// never branch on message text.
package apperror

import (
	"fmt"
	"strings"
)

// ValidationError reports malformed or ill-timed input. Allowed, when
// set, lists the legal alternatives the caller may retry with.
type ValidationError struct {
	Field   string
	Message string
	Allowed []string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	if e.Field != "" {
		fmt.Fprintf(&b, "%s: ", e.Field)
	}
	b.WriteString(e.Message)
	if len(e.Allowed) > 0 {
		fmt.Fprintf(&b, " (allowed: %s)", strings.Join(e.Allowed, ", "))
	}
	return b.String()
}

// NewValidation builds a ValidationError for a field.
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// AuthorizationError reports an actor lacking authority for an
// operation. Sufficient names the roles that would have been enough.
type AuthorizationError struct {
	Action     string
	Role       string
	Sufficient []string
}

func (e *AuthorizationError) Error() string {
	msg := fmt.Sprintf("role %s is not authorized to %s", e.Role, e.Action)
	if len(e.Sufficient) > 0 {
		msg += fmt.Sprintf(" (requires %s)", strings.Join(e.Sufficient, " or "))
	}
	return msg
}

// NotFoundError reports a missing or tombstoned entity.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// ConflictError reports a concurrent modification detected at commit
// time. The operation may be retried against fresh state.
type ConflictError struct {
	Entity string
	ID     int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %d was modified concurrently, retry with current state", e.Entity, e.ID)
}

// PersistenceError reports a storage failure. It is fatal for the
// current request and is not retried automatically.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
