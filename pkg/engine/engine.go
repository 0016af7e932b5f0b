// Package engine implements the capital-raise transition engine: stage
// advances validated against the stage graph, participant and document
// writes, notification fan-out, and the administrative lifecycle.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rwcma/capitalab/pkg/eventbus"
	"github.com/rwcma/capitalab/pkg/events"
	"github.com/rwcma/capitalab/pkg/models"
	"github.com/rwcma/capitalab/pkg/otelhelper"
	"github.com/rwcma/capitalab/pkg/persistence"
)

// NotificationSink receives every notification the engine creates, after the
// owning aggregate is saved. Sink failures are logged and never affect the
// committed stage change.
type NotificationSink interface {
	Deliver(ctx context.Context, notification *models.WorkflowNotification) error
}

// Engine is the transition engine. Construct one at process start and pass
// it by reference; all mutation of a given workflow id is serialized through
// its per-aggregate lock, while different ids proceed independently.
type Engine struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	sinks       []NotificationSink
	logger      *slog.Logger
	tracer      trace.Tracer
	locks       *keyedMutex
	isins       *ISINAllocator
}

// Option configures an Engine.
type Option func(*Engine)

// WithEventBus attaches a lifecycle event publisher.
func WithEventBus(publisher eventbus.EventPublisher) Option {
	return func(e *Engine) {
		e.publisher = publisher
	}
}

// WithNotificationSink attaches a delivery sink for notifications.
func WithNotificationSink(sink NotificationSink) Option {
	return func(e *Engine) {
		e.sinks = append(e.sinks, sink)
	}
}

// WithTracer attaches an OpenTelemetry tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// WithISINSeed sets the starting sequence for the ISIN allocator, typically
// the stored workflow count at boot.
func WithISINSeed(seed uint64) Option {
	return func(e *Engine) {
		e.isins = NewISINAllocator(seed)
	}
}

// NewEngine creates a transition engine over the given store.
func NewEngine(store persistence.Persistence, logger *slog.Logger, opts ...Option) *Engine {
	engine := &Engine{
		persistence: store,
		logger:      logger,
		locks:       newKeyedMutex(),
		isins:       NewISINAllocator(0),
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

// CreateWorkflowRequest carries the immutable deal terms for a new case.
type CreateWorkflowRequest struct {
	UserID         string                `json:"user_id"         validate:"required"`
	IssuerName     string                `json:"issuer_name"     validate:"required"`
	CompanyName    string                `json:"company_name"    validate:"required,min=2"`
	InstrumentType models.InstrumentType `json:"instrument_type" validate:"required,oneof=equity bond note"`
	TargetAmount   float64               `json:"target_amount"   validate:"required,gt=0"`
	Currency       string                `json:"currency"        validate:"required,len=3"`
	SharesOffered  int64                 `json:"shares_offered,omitempty"`
}

// CreateWorkflow opens a new capital-raise case in capital_raise_intent with
// the issuer as its only participant.
func (e *Engine) CreateWorkflow(ctx context.Context, req CreateWorkflowRequest) (*models.CapitalRaiseWorkflow, error) {
	if req.UserID == "" || strings.TrimSpace(req.CompanyName) == "" {
		return nil, NewEngineError("CreateWorkflow", "MISSING_FIELDS",
			"user id and company name are required", ErrInvalidRequest)
	}

	if !req.InstrumentType.IsValid() {
		return nil, NewEngineError("CreateWorkflow", "INVALID_INSTRUMENT_TYPE",
			fmt.Sprintf("unsupported instrument type %q", req.InstrumentType), ErrInvalidRequest)
	}

	if req.TargetAmount <= 0 {
		return nil, NewEngineError("CreateWorkflow", "INVALID_TARGET_AMOUNT",
			"target amount must be positive", ErrInvalidRequest)
	}

	now := time.Now().UTC()

	issuerName := req.IssuerName
	if issuerName == "" {
		issuerName = req.CompanyName
	}

	workflow := &models.CapitalRaiseWorkflow{
		ID:             uuid.New().String(),
		IssuerCompany:  req.CompanyName,
		InstrumentType: req.InstrumentType,
		TargetAmount:   req.TargetAmount,
		Currency:       req.Currency,
		SharesOffered:  req.SharesOffered,
		CurrentStage:   models.StageCapitalRaiseIntent,
		Status:         models.WorkflowStatusActive,
		Participants: models.ParticipantSet{
			Issuer: &models.Participant{
				UserID:   req.UserID,
				Role:     models.RoleIssuer,
				Name:     issuerName,
				IsActive: true,
			},
		},
		Documents:     []*models.WorkflowDocument{},
		Notifications: []*models.WorkflowNotification{},
		StageHistory: []*models.StageRecord{
			{Stage: models.StageCapitalRaiseIntent, EnteredAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := e.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	e.logger.InfoContext(ctx, "Workflow created",
		"workflow_id", workflow.ID, "company", workflow.IssuerCompany,
		"instrument_type", workflow.InstrumentType)

	e.publish(ctx, workflow.ID, events.WorkflowCreated{
		BaseEvent:      events.NewBaseEvent(events.WorkflowCreatedEvent, workflow.ID),
		IssuerCompany:  workflow.IssuerCompany,
		InstrumentType: workflow.InstrumentType,
		TargetAmount:   workflow.TargetAmount,
		Currency:       workflow.Currency,
	})

	return workflow, nil
}

// AdvanceStage validates and performs one stage transition. Validation is
// fail-closed: on any error the aggregate is untouched. Side effects beyond
// the aggregate (bus, sinks) run only after the save commits and never roll
// it back.
func (e *Engine) AdvanceStage(ctx context.Context, workflowID string, target models.WorkflowStage, actorID, notes string) error {
	ctx, span := e.startSpan(ctx, "engine.AdvanceStage",
		attribute.String(otelhelper.WorkflowIDKey, workflowID),
		attribute.String(otelhelper.StageKey, target.String()),
		attribute.String(otelhelper.ActorIDKey, actorID),
	)
	defer span.End()

	unlock := e.locks.lock(workflowID)
	defer unlock()

	err := e.advanceLocked(ctx, workflowID, target, actorID, notes)
	if err != nil {
		otelhelper.RecordError(span, err)
	}

	return err
}

func (e *Engine) advanceLocked(ctx context.Context, workflowID string, target models.WorkflowStage, actorID, notes string) error {
	workflow, err := e.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return err
	}

	if err := validateAdvance(workflow, target, actorID); err != nil {
		return err
	}

	now := time.Now().UTC()

	open := workflow.OpenStageRecord()
	if open != nil {
		completedAt := now
		open.CompletedAt = &completedAt
		open.CompletedBy = actorID
		open.Notes = notes
	}

	from := workflow.CurrentStage
	workflow.CurrentStage = target
	workflow.StageHistory = append(workflow.StageHistory, &models.StageRecord{
		Stage:     target,
		EnteredAt: now,
	})

	if target == models.StageCompleted {
		workflow.Status = models.WorkflowStatusCompleted
	}

	created := e.applyStageEntry(workflow, now)
	workflow.UpdatedAt = now

	if err := e.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", workflowID, err)
	}

	e.logger.InfoContext(ctx, "Stage advanced",
		"workflow_id", workflowID, "from", from, "to", target, "actor_id", actorID)

	e.publish(ctx, workflowID, events.StageAdvanced{
		BaseEvent: events.NewBaseEvent(events.StageAdvancedEvent, workflowID),
		FromStage: from,
		ToStage:   target,
		ActorID:   actorID,
		Notes:     notes,
	})
	e.deliver(ctx, created)

	return nil
}

// validateAdvance runs every fail-closed check for one transition without
// touching the aggregate. Suspended and rejected workflows accept no stage
// changes. The graph is checked before authorization so a skip reads as an
// invalid transition regardless of actor.
func validateAdvance(workflow *models.CapitalRaiseWorkflow, target models.WorkflowStage, actorID string) error {
	switch workflow.Status {
	case models.WorkflowStatusSuspended:
		return NewEngineError("AdvanceStage", "WORKFLOW_SUSPENDED",
			fmt.Sprintf("workflow %s is suspended", workflow.ID), ErrWorkflowSuspended)
	case models.WorkflowStatusRejected:
		return NewEngineError("AdvanceStage", "WORKFLOW_REJECTED",
			fmt.Sprintf("workflow %s is rejected", workflow.ID), ErrWorkflowRejected)
	}

	if !models.IsValidTransition(workflow.CurrentStage, target) {
		return NewTransitionError(workflow.ID, workflow.CurrentStage, target, ErrInvalidTransition)
	}

	if !isAuthorized(workflow, actorID) {
		return NewEngineError("AdvanceStage", "UNAUTHORIZED",
			fmt.Sprintf("actor %s may not complete stage %s", actorID, workflow.CurrentStage),
			ErrUnauthorized)
	}

	return nil
}

// GetWorkflow returns a snapshot of one workflow.
func (e *Engine) GetWorkflow(ctx context.Context, id string) (*models.CapitalRaiseWorkflow, error) {
	return e.persistence.WorkflowByID(ctx, id)
}

// ListWorkflows returns snapshots of all workflows, oldest first.
func (e *Engine) ListWorkflows(ctx context.Context) ([]*models.CapitalRaiseWorkflow, error) {
	return e.persistence.Workflows(ctx)
}

// WorkflowsByParticipant returns the workflows in which the user occupies
// the given role.
func (e *Engine) WorkflowsByParticipant(ctx context.Context, userID string, role models.ParticipantRole) ([]*models.CapitalRaiseWorkflow, error) {
	workflows, err := e.persistence.Workflows(ctx)
	if err != nil {
		return nil, err
	}

	var matched []*models.CapitalRaiseWorkflow

	for _, workflow := range workflows {
		if workflow.Participants.HasUser(userID, role) {
			matched = append(matched, workflow)
		}
	}

	return matched, nil
}

// NotificationsForUser returns the notifications addressed to the user's
// role (or to everyone) across all workflows, newest first.
func (e *Engine) NotificationsForUser(ctx context.Context, userID string, role models.ParticipantRole) ([]*models.WorkflowNotification, error) {
	workflows, err := e.persistence.Workflows(ctx)
	if err != nil {
		return nil, err
	}

	var matched []*models.WorkflowNotification

	for _, workflow := range workflows {
		for _, notification := range workflow.Notifications {
			if notification.RecipientUserID != "" && notification.RecipientUserID != userID {
				continue
			}

			if notification.RecipientRole == role || notification.RecipientRole == models.RoleAll {
				matched = append(matched, notification)
			}
		}
	}

	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}

	return matched, nil
}

// MarkNotificationRead flips a notification to read. Reads are never
// reversed.
func (e *Engine) MarkNotificationRead(ctx context.Context, workflowID, notificationID string) error {
	unlock := e.locks.lock(workflowID)
	defer unlock()

	workflow, err := e.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return err
	}

	for _, notification := range workflow.Notifications {
		if notification.ID == notificationID {
			if notification.IsRead {
				return nil
			}

			notification.IsRead = true
			workflow.UpdatedAt = time.Now().UTC()

			return e.persistence.SaveWorkflow(ctx, workflow)
		}
	}

	return NewEngineError("MarkNotificationRead", "NOTIFICATION_NOT_FOUND",
		fmt.Sprintf("notification %s not found in workflow %s", notificationID, workflowID),
		ErrNotificationNotFound)
}

// AssignParticipant writes a participant into the roster slot named by
// role. The slot key is authoritative; the participant's self-reported role
// field is stored as given and never validated against the slot. Singular
// slots are last-write-wins; broker and investor lists append without
// dedup.
func (e *Engine) AssignParticipant(ctx context.Context, workflowID string, role models.ParticipantRole, participant *models.Participant) error {
	if !role.IsValidSlot() {
		return NewEngineError("AssignParticipant", "INVALID_ROLE",
			fmt.Sprintf("role %q is not a roster slot", role), ErrInvalidRole)
	}

	if participant == nil || participant.UserID == "" {
		return NewEngineError("AssignParticipant", "MISSING_PARTICIPANT",
			"participant with a user id is required", ErrInvalidRequest)
	}

	unlock := e.locks.lock(workflowID)
	defer unlock()

	workflow, err := e.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return err
	}

	participantCopy := *participant
	workflow.Participants.Assign(role, &participantCopy)
	workflow.UpdatedAt = time.Now().UTC()

	if err := e.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", workflowID, err)
	}

	e.logger.InfoContext(ctx, "Participant assigned",
		"workflow_id", workflowID, "role", role, "user_id", participant.UserID)

	e.publish(ctx, workflowID, events.ParticipantAssigned{
		BaseEvent: events.NewBaseEvent(events.ParticipantAssignedEvent, workflowID),
		Role:      role,
		UserID:    participant.UserID,
	})

	return nil
}

// AddDocumentRequest carries the caller-supplied fields of a new artifact.
type AddDocumentRequest struct {
	Type       string `json:"type"        validate:"required"`
	Title      string `json:"title"       validate:"required"`
	Content    string `json:"content"`
	UploadedBy string `json:"uploaded_by" validate:"required"`
}

// AddDocument appends a watermarked artifact to the workflow and broadcasts
// a notification to every participant. Documents are never updated or
// removed through this interface.
func (e *Engine) AddDocument(ctx context.Context, workflowID string, req AddDocumentRequest) (*models.WorkflowDocument, error) {
	if req.Title == "" || req.Type == "" {
		return nil, NewEngineError("AddDocument", "MISSING_FIELDS",
			"document type and title are required", ErrInvalidRequest)
	}

	unlock := e.locks.lock(workflowID)
	defer unlock()

	workflow, err := e.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	document := &models.WorkflowDocument{
		ID:         uuid.New().String(),
		Type:       req.Type,
		Title:      req.Title,
		Content:    req.Content,
		UploadedBy: req.UploadedBy,
		UploadedAt: now,
		Status:     models.DocumentStatusDraft,
		Watermark:  models.DocumentWatermark,
	}

	workflow.Documents = append(workflow.Documents, document)

	notification := newNotification(workflowID, models.RoleAll, models.NotificationDocumentAdded,
		"Document added",
		fmt.Sprintf("%q (%s) was added by %s.", document.Title, document.Type, document.UploadedBy),
		now)
	workflow.Notifications = append(workflow.Notifications, notification)
	workflow.UpdatedAt = now

	if err := e.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow %s: %w", workflowID, err)
	}

	e.publish(ctx, workflowID, events.DocumentAdded{
		BaseEvent:    events.NewBaseEvent(events.DocumentAddedEvent, workflowID),
		DocumentID:   document.ID,
		DocumentType: document.Type,
		Title:        document.Title,
		UploadedBy:   document.UploadedBy,
	})
	e.deliver(ctx, []*models.WorkflowNotification{notification})

	documentCopy := *document

	return &documentCopy, nil
}

// ReviewDocument moves a document through draft -> submitted ->
// approved|rejected. Status is the only mutable document field.
func (e *Engine) ReviewDocument(ctx context.Context, workflowID, documentID string, status models.DocumentStatus, actorID string) error {
	unlock := e.locks.lock(workflowID)
	defer unlock()

	workflow, err := e.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return err
	}

	for _, document := range workflow.Documents {
		if document.ID != documentID {
			continue
		}

		if !models.IsValidDocumentStatusTransition(document.Status, status) {
			return NewEngineError("ReviewDocument", "INVALID_DOCUMENT_STATUS",
				fmt.Sprintf("document %s cannot move from %s to %s", documentID, document.Status, status),
				ErrInvalidDocumentStatus)
		}

		now := time.Now().UTC()
		document.Status = status

		notification := newNotification(workflowID, models.RoleAll, models.NotificationDocumentReview,
			"Document "+string(status),
			fmt.Sprintf("%q is now %s.", document.Title, status), now)
		workflow.Notifications = append(workflow.Notifications, notification)
		workflow.UpdatedAt = now

		if err := e.persistence.SaveWorkflow(ctx, workflow); err != nil {
			return fmt.Errorf("failed to save workflow %s: %w", workflowID, err)
		}

		e.publish(ctx, workflowID, events.DocumentReviewed{
			BaseEvent:  events.NewBaseEvent(events.DocumentReviewedEvent, workflowID),
			DocumentID: documentID,
			Status:     status,
			ReviewedBy: actorID,
		})
		e.deliver(ctx, []*models.WorkflowNotification{notification})

		return nil
	}

	return NewEngineError("ReviewDocument", "DOCUMENT_NOT_FOUND",
		fmt.Sprintf("document %s not found in workflow %s", documentID, workflowID),
		ErrDocumentNotFound)
}

// SuspendWorkflow administratively freezes a workflow. Stage advances are
// rejected until it is resumed.
func (e *Engine) SuspendWorkflow(ctx context.Context, workflowID, actorID, reason string) error {
	return e.setStatus(ctx, workflowID, actorID, reason, models.WorkflowStatusSuspended)
}

// ResumeWorkflow returns a suspended or rejected workflow to active.
func (e *Engine) ResumeWorkflow(ctx context.Context, workflowID, actorID, reason string) error {
	return e.setStatus(ctx, workflowID, actorID, reason, models.WorkflowStatusActive)
}

// RejectWorkflow administratively closes a workflow as rejected; stage
// advances are blocked while it stands. This is distinct from the
// regulatory back-edge, which returns the case to due diligence and keeps
// it active.
func (e *Engine) RejectWorkflow(ctx context.Context, workflowID, actorID, reason string) error {
	return e.setStatus(ctx, workflowID, actorID, reason, models.WorkflowStatusRejected)
}

func (e *Engine) setStatus(ctx context.Context, workflowID, actorID, reason string, status models.WorkflowStatus) error {
	unlock := e.locks.lock(workflowID)
	defer unlock()

	workflow, err := e.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return err
	}

	if workflow.Status == models.WorkflowStatusCompleted {
		return NewTransitionError(workflowID, workflow.CurrentStage, workflow.CurrentStage, ErrInvalidTransition)
	}

	workflow.Status = status
	workflow.UpdatedAt = time.Now().UTC()

	if err := e.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", workflowID, err)
	}

	e.logger.InfoContext(ctx, "Workflow status changed",
		"workflow_id", workflowID, "status", status, "actor_id", actorID, "reason", reason)

	return nil
}

// publish sends a lifecycle event on the bus if one is attached. Publish
// failures are logged; the committed mutation stands.
func (e *Engine) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(ctx, key, event); err != nil {
		e.logger.WarnContext(ctx, "Failed to publish lifecycle event",
			"event_type", event.GetType(), "workflow_id", key, "error", err)
	}
}

// deliver hands notifications to every sink. Sink failures are logged and
// do not affect the saved aggregate.
func (e *Engine) deliver(ctx context.Context, notifications []*models.WorkflowNotification) {
	for _, sink := range e.sinks {
		for _, notification := range notifications {
			if err := sink.Deliver(ctx, notification); err != nil {
				e.logger.WarnContext(ctx, "Failed to deliver notification",
					"notification_id", notification.ID, "workflow_id", notification.WorkflowID,
					"error", err)
			}
		}
	}
}

func (e *Engine) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if e.tracer == nil {
		return trace.NewNoopTracerProvider().Tracer("capitalab").Start(ctx, name)
	}

	return otelhelper.StartSpan(ctx, e.tracer, name, attrs...)
}
