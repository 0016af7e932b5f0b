// Package persistence provides standardized error types for storage
// operations.
package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrWorkflowNotFound indicates no workflow exists for the given id.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrInstrumentNotFound indicates no instrument exists for the given id.
	ErrInstrumentNotFound = errors.New("instrument not found")

	// ErrOrderNotFound indicates no order exists for the given id.
	ErrOrderNotFound = errors.New("order not found")
)

// StoreError wraps storage errors with operation context.
type StoreError struct {
	Op  string // Operation being performed (e.g. "WorkflowByID", "SaveInstrument")
	ID  string // Record id if applicable
	Err error
}

func (e *StoreError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s failed for %s: %v", e.Op, e.ID, e.Err)
	}

	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStoreError creates a storage error with context.
func NewStoreError(op, id string, err error) *StoreError {
	return &StoreError{Op: op, ID: id, Err: err}
}

// IsWorkflowNotFound checks if an error indicates a missing workflow.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsInstrumentNotFound checks if an error indicates a missing instrument.
func IsInstrumentNotFound(err error) bool {
	return errors.Is(err, ErrInstrumentNotFound)
}
