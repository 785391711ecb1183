package workflow

import "fmt"

// The error taxonomy below is the engine's contract with its callers. The
// transport layer maps each kind to a status code; DependencyFailure never
// reaches the caller of a mutation, only the logs.

// ValidationError marks malformed or missing input the caller can correct.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// PreconditionError marks valid input rejected because a workflow
// precondition is unmet. Code is a stable machine-readable identifier.
type PreconditionError struct {
	Code string
	Msg  string
}

func (e *PreconditionError) Error() string { return e.Msg }

// AuthenticationError means no valid principal was presented.
type AuthenticationError struct {
	Msg string
}

func (e *AuthenticationError) Error() string {
	if e.Msg == "" {
		return "authentication required"
	}
	return e.Msg
}

// AuthorizationError means the principal is valid but lacks the role for
// the operation. It deliberately carries no detail about the missing role.
type AuthorizationError struct{}

func (e *AuthorizationError) Error() string { return "not allowed" }

// NotFoundError marks a reference to an entity that does not exist.
type NotFoundError struct {
	Entity string
	ID     uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// DependencyFailure wraps an outage of a collaborator (email provider).
// It is logged by the dispatcher and never surfaced as a failure of the
// primary operation it decorates.
type DependencyFailure struct {
	Op  string
	Err error
}

func (e *DependencyFailure) Error() string {
	return fmt.Sprintf("%s: dependency failure: %v", e.Op, e.Err)
}

func (e *DependencyFailure) Unwrap() error { return e.Err }
