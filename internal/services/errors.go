package services

import "fmt"

// ValidationError carries one message per offending field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

// PolicyViolationError reports a scheduling rule the actor broke.
type PolicyViolationError struct {
	Field   string
	Message string
}

func (e *PolicyViolationError) Error() string { return e.Message }

// UnauthorizedError means the actor's role or status does not allow the
// action.
type UnauthorizedError struct{ Message string }

func (e *UnauthorizedError) Error() string { return e.Message }

// AuthenticationError means the caller could not be identified.
type AuthenticationError struct{ Message string }

func (e *AuthenticationError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type ConflictError struct{ Message string }

func (e *ConflictError) Error() string { return e.Message }

// PersistenceError wraps a failed storage call.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
