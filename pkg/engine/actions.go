package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rwcma/capitalab/pkg/events"
	"github.com/rwcma/capitalab/pkg/models"
	"github.com/rwcma/capitalab/pkg/otelhelper"
)

// actionDefinition binds a named business action to its destination stage
// and payload contract. Actions are sugar over AdvanceStage: every hop they
// cause goes through the same graph and authorization checks.
type actionDefinition struct {
	target models.WorkflowStage
	schema *gojsonschema.Schema

	// assignsIBAdvisor marks the one action that also writes the roster
	// before advancing.
	assignsIBAdvisor bool

	// noteFromReason builds the stage note from the payload's reason field
	// instead of its notes field.
	noteFromReason bool
}

const notesOnlySchema = `{
	"type": "object",
	"properties": {
		"notes": {"type": "string"}
	},
	"additionalProperties": true
}`

const assignIBSchema = `{
	"type": "object",
	"required": ["user_id", "name"],
	"properties": {
		"user_id":     {"type": "string", "minLength": 1},
		"name":        {"type": "string", "minLength": 1},
		"institution": {"type": "string"},
		"notes":       {"type": "string"}
	},
	"additionalProperties": true
}`

const rejectFilingSchema = `{
	"type": "object",
	"required": ["reason"],
	"properties": {
		"reason": {"type": "string", "minLength": 1}
	},
	"additionalProperties": true
}`

func mustSchema(raw string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid action schema: %v", err))
	}

	return schema
}

var actionDefinitions = map[string]actionDefinition{
	"submit_intent":          {target: models.StageIBAssignment, schema: mustSchema(notesOnlySchema)},
	"assign_ib":              {target: models.StageDueDiligence, schema: mustSchema(assignIBSchema), assignsIBAdvisor: true},
	"complete_due_diligence": {target: models.StageProspectusBuilding, schema: mustSchema(notesOnlySchema)},
	"submit_prospectus":      {target: models.StageRegulatoryReview, schema: mustSchema(notesOnlySchema)},
	"approve_filing":         {target: models.StageListingApproval, schema: mustSchema(notesOnlySchema)},
	"reject_filing":          {target: models.StageDueDiligence, schema: mustSchema(rejectFilingSchema), noteFromReason: true},
	"grant_listing":          {target: models.StageISINAssignment, schema: mustSchema(notesOnlySchema)},
	"open_onboarding":        {target: models.StageInvestorOnboarding, schema: mustSchema(notesOnlySchema)},
	"launch_trading":         {target: models.StageTradingActive, schema: mustSchema(notesOnlySchema)},
	"begin_settlement":       {target: models.StageSettlement, schema: mustSchema(notesOnlySchema)},
	"complete_settlement":    {target: models.StageCompleted, schema: mustSchema(notesOnlySchema)},
}

// ActionNames lists the registered action names, for API discovery.
func ActionNames() []string {
	names := make([]string, 0, len(actionDefinitions))
	for name := range actionDefinitions {
		names = append(names, name)
	}

	return names
}

// ExecuteAction runs a named business action against a workflow. The payload
// is validated against the action's JSON schema before anything is loaded.
//
// If the action's destination stage lies more than one hop ahead of the
// current stage, the engine advances hop by hop along the main path, and
// each hop is a fully validated stage transition. A destination behind the
// current stage is only reachable through an explicit back-edge in the
// stage graph.
func (e *Engine) ExecuteAction(ctx context.Context, workflowID, actionName, actorID string, data map[string]any) error {
	ctx, span := e.startSpan(ctx, "engine.ExecuteAction",
		attribute.String(otelhelper.WorkflowIDKey, workflowID),
		attribute.String(otelhelper.ActionKey, actionName),
		attribute.String(otelhelper.ActorIDKey, actorID),
	)
	defer span.End()

	err := e.executeAction(ctx, workflowID, actionName, actorID, data)
	if err != nil {
		otelhelper.RecordError(span, err)
	}

	return err
}

func (e *Engine) executeAction(ctx context.Context, workflowID, actionName, actorID string, data map[string]any) error {
	definition, ok := actionDefinitions[actionName]
	if !ok {
		return NewEngineError("ExecuteAction", "UNKNOWN_ACTION",
			fmt.Sprintf("action %q is not registered", actionName), ErrUnknownAction)
	}

	if data == nil {
		data = map[string]any{}
	}

	result, err := definition.schema.Validate(gojsonschema.NewGoLoader(data))
	if err != nil {
		return NewEngineError("ExecuteAction", "INVALID_ACTION_DATA",
			fmt.Sprintf("action %q payload could not be validated: %v", actionName, err),
			ErrInvalidActionData)
	}

	if !result.Valid() {
		reasons := make([]string, 0, len(result.Errors()))
		for _, resultError := range result.Errors() {
			reasons = append(reasons, resultError.String())
		}

		return NewEngineError("ExecuteAction", "INVALID_ACTION_DATA",
			fmt.Sprintf("action %q payload rejected: %s", actionName, strings.Join(reasons, "; ")),
			ErrInvalidActionData)
	}

	unlock := e.locks.lock(workflowID)
	defer unlock()

	workflow, err := e.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return err
	}

	path, err := transitionPath(workflow, definition.target)
	if err != nil {
		return err
	}

	// The first hop is validated up front so a rejected action never
	// leaves a roster write behind.
	if err := validateAdvance(workflow, path[0], actorID); err != nil {
		return err
	}

	if definition.assignsIBAdvisor {
		if err := e.assignAdvisorLocked(ctx, workflowID, data); err != nil {
			return err
		}
	}

	notes := stringField(data, "notes")
	if definition.noteFromReason {
		notes = "Returned for correction: " + stringField(data, "reason")
	}

	for _, hop := range path {
		if err := e.advanceLocked(ctx, workflowID, hop, actorID, notes); err != nil {
			return err
		}
	}

	return nil
}

// transitionPath resolves the hops from the workflow's current stage to the
// target. A directly reachable target (including a back-edge) is one hop.
// Otherwise the path runs forward along the main sequence; a target that
// cannot be reached that way surfaces as an invalid transition.
func transitionPath(workflow *models.CapitalRaiseWorkflow, target models.WorkflowStage) ([]models.WorkflowStage, error) {
	current := workflow.CurrentStage
	if current == target {
		return nil, NewTransitionError(workflow.ID, current, target, ErrInvalidTransition)
	}

	if models.IsValidTransition(current, target) {
		return []models.WorkflowStage{target}, nil
	}

	currentIndex := stageIndex(current)
	targetIndex := stageIndex(target)

	if currentIndex < 0 || targetIndex < 0 || targetIndex < currentIndex {
		return nil, NewTransitionError(workflow.ID, current, target, ErrInvalidTransition)
	}

	return models.AllStages[currentIndex+1 : targetIndex+1], nil
}

func stageIndex(stage models.WorkflowStage) int {
	for i, s := range models.AllStages {
		if s == stage {
			return i
		}
	}

	return -1
}

// assignAdvisorLocked writes the ib_advisor slot from an assign_ib payload.
// The caller holds the workflow lock.
func (e *Engine) assignAdvisorLocked(ctx context.Context, workflowID string, data map[string]any) error {
	workflow, err := e.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return err
	}

	advisor := &models.Participant{
		UserID:      stringField(data, "user_id"),
		Role:        models.RoleIBAdvisor,
		Name:        stringField(data, "name"),
		Institution: stringField(data, "institution"),
		IsActive:    true,
	}

	workflow.Participants.Assign(models.RoleIBAdvisor, advisor)
	workflow.UpdatedAt = time.Now().UTC()

	if err := e.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", workflowID, err)
	}

	e.publish(ctx, workflowID, events.ParticipantAssigned{
		BaseEvent: events.NewBaseEvent(events.ParticipantAssignedEvent, workflowID),
		Role:      models.RoleIBAdvisor,
		UserID:    advisor.UserID,
	})

	return nil
}

func stringField(data map[string]any, key string) string {
	value, _ := data[key].(string)

	return value
}
