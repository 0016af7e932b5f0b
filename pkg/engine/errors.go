// Package engine provides standardized error types for the transition
// engine.
package engine

import (
	"errors"
	"fmt"

	"github.com/rwcma/capitalab/pkg/models"
	"github.com/rwcma/capitalab/pkg/persistence"
)

var (
	// ErrWorkflowNotFound is returned when a workflow is not found.
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

	// ErrInvalidTransition indicates the requested stage is not reachable
	// from the current stage per the stage graph.
	ErrInvalidTransition = errors.New("invalid stage transition")

	// ErrUnauthorized indicates the actor holds no role allowed to complete
	// the current stage.
	ErrUnauthorized = errors.New("actor not authorized for stage")

	// ErrWorkflowSuspended indicates the workflow is administratively
	// suspended and rejects stage changes.
	ErrWorkflowSuspended = errors.New("workflow is suspended")

	// ErrWorkflowRejected indicates the workflow was administratively
	// closed as rejected and rejects stage changes.
	ErrWorkflowRejected = errors.New("workflow is rejected")

	// ErrUnknownAction indicates an unregistered named action.
	ErrUnknownAction = errors.New("unknown workflow action")

	// ErrInvalidActionData indicates the action payload failed schema
	// validation.
	ErrInvalidActionData = errors.New("invalid action data")

	// ErrInvalidRole indicates a role that is not a writable roster slot.
	ErrInvalidRole = errors.New("invalid participant role")

	// ErrInvalidRequest indicates malformed creation parameters.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNotificationNotFound indicates an unknown notification id.
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrDocumentNotFound indicates an unknown document id.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrInvalidDocumentStatus indicates an illegal document status change.
	ErrInvalidDocumentStatus = errors.New("invalid document status transition")
)

// TransitionError carries the offending stage pair so callers can explain
// why a transition was rejected.
type TransitionError struct {
	WorkflowID string
	From       models.WorkflowStage
	To         models.WorkflowStage
	Err        error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition workflow %s from %s to %s: %v",
		e.WorkflowID, e.From, e.To, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

func (e *TransitionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewTransitionError creates a transition error for a stage pair.
func NewTransitionError(workflowID string, from, to models.WorkflowStage, err error) *TransitionError {
	return &TransitionError{WorkflowID: workflowID, From: from, To: to, Err: err}
}

// EngineError wraps engine-level errors with operation context.
type EngineError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error
}

func (e *EngineError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

func (e *EngineError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewEngineError creates an engine error with context.
func NewEngineError(op, code, message string, err error) *EngineError {
	return &EngineError{Op: op, Code: code, Message: message, Err: err}
}

// IsInvalidTransition checks if an error indicates a rejected stage change.
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

// IsUnauthorized checks if an error indicates a capability failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsValidationError checks if an error should map to a 400 response.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrUnknownAction) ||
		errors.Is(err, ErrInvalidActionData) ||
		errors.Is(err, ErrInvalidRole) ||
		errors.Is(err, ErrInvalidDocumentStatus)
}

// IsConflictError checks if an error should map to a 409 response.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrWorkflowSuspended) ||
		errors.Is(err, ErrWorkflowRejected)
}
