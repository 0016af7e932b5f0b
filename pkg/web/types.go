// Package web provides HTTP handlers and REST API endpoints for the
// capital-raise workflow engine and the simulated board.
package web

import "github.com/rwcma/capitalab/pkg/models"

// AdvanceStageRequest represents the request body for a single stage
// transition.
type AdvanceStageRequest struct {
	TargetStage models.WorkflowStage `json:"target_stage" validate:"required"`
	ActorID     string               `json:"actor_id"     validate:"required"`
	Notes       string               `json:"notes,omitempty"`
}

// ExecuteActionRequest represents the request body for a named business
// action. Data is validated against the action's own schema by the engine.
type ExecuteActionRequest struct {
	ActorID string         `json:"actor_id" validate:"required"`
	Data    map[string]any `json:"data,omitempty"`
}

// AssignParticipantRequest represents the request body for a roster write.
type AssignParticipantRequest struct {
	Role        models.ParticipantRole `json:"role"        validate:"required"`
	UserID      string                 `json:"user_id"     validate:"required"`
	Name        string                 `json:"name"        validate:"required"`
	Institution string                 `json:"institution,omitempty"`
}

// ReviewDocumentRequest represents the request body for a document status
// change.
type ReviewDocumentRequest struct {
	Status  models.DocumentStatus `json:"status"   validate:"required,oneof=submitted approved rejected"`
	ActorID string                `json:"actor_id" validate:"required"`
}

// StatusChangeRequest represents the request body for suspend, resume, and
// reject.
type StatusChangeRequest struct {
	ActorID string `json:"actor_id" validate:"required"`
	Reason  string `json:"reason,omitempty"`
}

// GraduateRequest represents the request body for minting an instrument
// from a workflow. IssuePrice zero derives the price from the deal terms.
type GraduateRequest struct {
	IssuePrice float64 `json:"issue_price,omitempty" validate:"gte=0"`
}

// PlaceOrderRequest represents the request body for a simulated order.
type PlaceOrderRequest struct {
	UserID   string           `json:"user_id"  validate:"required"`
	Side     models.OrderSide `json:"side"     validate:"required,oneof=buy sell"`
	Quantity int64            `json:"quantity" validate:"required,gt=0"`
	Price    float64          `json:"price"    validate:"required,gt=0"`
}
