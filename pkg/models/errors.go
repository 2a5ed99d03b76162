package models

import (
	"errors"
	"fmt"
)

// ErrWindowSettled is returned by the settlement run when the requested
// window already has settlement rows. The run is a no-op, not a failure.
var ErrWindowSettled = errors.New("settlement window already processed")

// ValidationError marks malformed or out-of-range input. Caller's fault,
// retrying the same request will not help.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

// InvalidTransitionError means the order is not in a state that permits the
// requested operation. Never coerced into a silent success.
type InvalidTransitionError struct {
	OrderID int64
	From    OrderStatus
	To      OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order %d: illegal transition %s -> %s", e.OrderID, e.From, e.To)
}

type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// PersistenceError wraps a store failure (unavailable, timeout, commit
// conflict). The surrounding unit was rolled back, so the whole operation
// is safe to retry.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// PublishError wraps a notification delivery failure. Publication happens
// strictly after commit, so it is logged and never rolled back into the
// store transaction.
type PublishError struct {
	Kind EventKind
	Err  error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s: %v", e.Kind, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }
