// Package events defines event types for capital-raise lifecycle
// notifications published on the event bus.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/rwcma/capitalab/pkg/models"
)

type EventType string

// Topic carries every capitalab lifecycle event.
const Topic = "capitalab.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	WorkflowCreatedEvent       EventType = "workflow.created"
	StageAdvancedEvent         EventType = "workflow.stage.advanced"
	ParticipantAssignedEvent   EventType = "workflow.participant.assigned"
	DocumentAddedEvent         EventType = "workflow.document.added"
	DocumentReviewedEvent      EventType = "workflow.document.reviewed"
	WorkflowGraduatedEvent     EventType = "workflow.graduated"
	TradingLaunchedEvent       EventType = "instrument.trading.launched"
	NotificationCreatedEvent   EventType = "notification.created"
	MarketMakerEvaluationEvent EventType = "market.maker.evaluated"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		Metadata:   make(map[string]any),
	}
}

type WorkflowCreated struct {
	BaseEvent

	IssuerCompany  string                `json:"issuer_company"`
	InstrumentType models.InstrumentType `json:"instrument_type"`
	TargetAmount   float64               `json:"target_amount"`
	Currency       string                `json:"currency"`
}

func (w WorkflowCreated) GetType() EventType {
	return WorkflowCreatedEvent
}

type StageAdvanced struct {
	BaseEvent

	FromStage models.WorkflowStage `json:"from_stage"`
	ToStage   models.WorkflowStage `json:"to_stage"`
	ActorID   string               `json:"actor_id"`
	Notes     string               `json:"notes,omitempty"`
}

func (s StageAdvanced) GetType() EventType {
	return StageAdvancedEvent
}

type ParticipantAssigned struct {
	BaseEvent

	Role   models.ParticipantRole `json:"role"`
	UserID string                 `json:"user_id"`
}

func (p ParticipantAssigned) GetType() EventType {
	return ParticipantAssignedEvent
}

type DocumentAdded struct {
	BaseEvent

	DocumentID   string `json:"document_id"`
	DocumentType string `json:"document_type"`
	Title        string `json:"title"`
	UploadedBy   string `json:"uploaded_by"`
}

func (d DocumentAdded) GetType() EventType {
	return DocumentAddedEvent
}

type DocumentReviewed struct {
	BaseEvent

	DocumentID string                `json:"document_id"`
	Status     models.DocumentStatus `json:"status"`
	ReviewedBy string                `json:"reviewed_by"`
}

func (d DocumentReviewed) GetType() EventType {
	return DocumentReviewedEvent
}

type WorkflowGraduated struct {
	BaseEvent

	InstrumentID string  `json:"instrument_id"`
	Symbol       string  `json:"symbol"`
	IssuePrice   float64 `json:"issue_price"`
}

func (w WorkflowGraduated) GetType() EventType {
	return WorkflowGraduatedEvent
}

type TradingLaunched struct {
	BaseEvent

	InstrumentID string  `json:"instrument_id"`
	Symbol       string  `json:"symbol"`
	BidPrice     float64 `json:"bid_price"`
	AskPrice     float64 `json:"ask_price"`
}

func (t TradingLaunched) GetType() EventType {
	return TradingLaunchedEvent
}

type NotificationCreated struct {
	BaseEvent

	NotificationID string                  `json:"notification_id"`
	RecipientRole  models.ParticipantRole  `json:"recipient_role"`
	Kind           models.NotificationType `json:"kind"`
}

func (n NotificationCreated) GetType() EventType {
	return NotificationCreatedEvent
}

type MarketMakerEvaluation struct {
	BaseEvent

	UserID             string `json:"user_id"`
	CompletedWorkflows int    `json:"completed_workflows"`
	Granted            bool   `json:"granted"`
}

func (m MarketMakerEvaluation) GetType() EventType {
	return MarketMakerEvaluationEvent
}
