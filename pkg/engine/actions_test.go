package engine_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwcma/capitalab/pkg/engine"
	"github.com/rwcma/capitalab/pkg/models"
)

func TestExecuteActionUnknown(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t)
	workflow := createTestWorkflow(t, eng)

	err := eng.ExecuteAction(context.Background(), workflow.ID, "do_the_ipo", "issuer-1", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrUnknownAction)
	assert.True(t, engine.IsValidationError(err))
}

func TestExecuteActionPayloadValidation(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t)
	workflow := createTestWorkflow(t, eng)

	ctx := context.Background()

	// assign_ib requires user_id and name.
	err := eng.ExecuteAction(ctx, workflow.ID, "assign_ib", "issuer-1", map[string]any{
		"institution": "BK Capital",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrInvalidActionData)

	// Nothing moved.
	unchanged, err := eng.GetWorkflow(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageCapitalRaiseIntent, unchanged.CurrentStage)
	assert.Nil(t, unchanged.Participants.IBAdvisor)
}

func TestExecuteActionUnauthorizedAssignIBLeavesNoTrace(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t)
	workflow := createTestWorkflow(t, eng)

	ctx := context.Background()

	// The intent stage belongs to the staffed issuer, so a stranger's
	// assign_ib is rejected before the advisor slot is written.
	err := eng.ExecuteAction(ctx, workflow.ID, "assign_ib", "intruder-1", map[string]any{
		"user_id": "advisor-x", "name": "Shadow Advisory",
	})
	require.Error(t, err)
	assert.True(t, engine.IsUnauthorized(err))

	unchanged, err := eng.GetWorkflow(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageCapitalRaiseIntent, unchanged.CurrentStage)
	assert.Nil(t, unchanged.Participants.IBAdvisor)
	require.Len(t, unchanged.StageHistory, 1)
}

func TestExecuteActionSuspendedAssignIBLeavesNoTrace(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t)
	workflow := createTestWorkflow(t, eng)

	ctx := context.Background()

	require.NoError(t, eng.SuspendWorkflow(ctx, workflow.ID, "admin-1", "investigation"))

	err := eng.ExecuteAction(ctx, workflow.ID, "assign_ib", "issuer-1", map[string]any{
		"user_id": "advisor-1", "name": "BK Capital Advisory",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrWorkflowSuspended)

	unchanged, err := eng.GetWorkflow(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Nil(t, unchanged.Participants.IBAdvisor)
}

func TestExecuteActionAssignIBWalksForward(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t)
	workflow := createTestWorkflow(t, eng)

	ctx := context.Background()

	// assign_ib from the intent stage staffs the advisor and walks the case
	// through ib_assignment into due_diligence, one validated hop at a time.
	err := eng.ExecuteAction(ctx, workflow.ID, "assign_ib", "issuer-1", map[string]any{
		"user_id":     "advisor-1",
		"name":        "BK Capital Advisory",
		"institution": "BK Capital",
	})
	require.NoError(t, err)

	current, err := eng.GetWorkflow(ctx, workflow.ID)
	require.NoError(t, err)

	assert.Equal(t, models.StageDueDiligence, current.CurrentStage)
	require.NotNil(t, current.Participants.IBAdvisor)
	assert.Equal(t, "advisor-1", current.Participants.IBAdvisor.UserID)

	// Every intermediate hop left a closed history record.
	require.Len(t, current.StageHistory, 3)
	assert.Equal(t, models.StageCapitalRaiseIntent, current.StageHistory[0].Stage)
	assert.NotNil(t, current.StageHistory[0].CompletedAt)
	assert.Equal(t, models.StageIBAssignment, current.StageHistory[1].Stage)
	assert.NotNil(t, current.StageHistory[1].CompletedAt)
	assert.Equal(t, models.StageDueDiligence, current.StageHistory[2].Stage)
	assert.Nil(t, current.StageHistory[2].CompletedAt)
}

func TestExecuteActionRejectFiling(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t)
	workflow := createTestWorkflow(t, eng)
	staffRoster(t, eng, workflow.ID)

	ctx := context.Background()

	for _, step := range lifecycleSteps[:4] {
		require.NoError(t, eng.AdvanceStage(ctx, workflow.ID, step.target, step.actor, ""))
	}

	// reject_filing without a reason fails schema validation.
	err := eng.ExecuteAction(ctx, workflow.ID, "reject_filing", "regulator-1", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrInvalidActionData)

	require.NoError(t, eng.ExecuteAction(ctx, workflow.ID, "reject_filing", "regulator-1", map[string]any{
		"reason": "missing audited financials",
	}))

	current, err := eng.GetWorkflow(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageDueDiligence, current.CurrentStage)
	assert.Equal(t, models.WorkflowStatusActive, current.Status)

	// The rejection note lands on the closed regulatory_review record.
	var reviewRecord *models.StageRecord

	for _, record := range current.StageHistory {
		if record.Stage == models.StageRegulatoryReview {
			reviewRecord = record
		}
	}

	require.NotNil(t, reviewRecord)
	require.NotNil(t, reviewRecord.CompletedAt)
	assert.True(t, strings.HasPrefix(reviewRecord.Notes, "Returned for correction:"))
}

func TestExecuteActionRejectsBackwardTarget(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t)
	workflow := createTestWorkflow(t, eng)

	ctx := context.Background()

	require.NoError(t, eng.ExecuteAction(ctx, workflow.ID, "assign_ib", "issuer-1", map[string]any{
		"user_id": "advisor-1", "name": "BK Capital Advisory",
	}))

	// submit_intent targets a stage behind due_diligence with no back-edge.
	err := eng.ExecuteAction(ctx, workflow.ID, "submit_intent", "issuer-1", nil)
	require.Error(t, err)
	assert.True(t, engine.IsInvalidTransition(err))
}

func TestExecuteActionFullLifecycle(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t)
	workflow := createTestWorkflow(t, eng)

	ctx := context.Background()

	steps := []struct {
		action string
		actor  string
		data   map[string]any
	}{
		{"submit_intent", "issuer-1", nil},
		{"assign_ib", "issuer-1", map[string]any{"user_id": "advisor-1", "name": "BK Capital Advisory"}},
		{"complete_due_diligence", "advisor-1", nil},
		{"submit_prospectus", "advisor-1", nil},
		{"approve_filing", "regulator-1", nil},
		{"grant_listing", "listing-1", nil},
		{"open_onboarding", "csd-1", nil},
		{"launch_trading", "advisor-1", nil},
		{"begin_settlement", "listing-1", nil},
		{"complete_settlement", "csd-1", nil},
	}

	for _, step := range steps {
		require.NoError(t, eng.ExecuteAction(ctx, workflow.ID, step.action, step.actor, step.data),
			"action %s as %s", step.action, step.actor)
	}

	final, err := eng.GetWorkflow(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageCompleted, final.CurrentStage)
	assert.Equal(t, models.WorkflowStatusCompleted, final.Status)
	assert.True(t, final.TradingActive)
	assert.NotEmpty(t, final.VirtualISIN)
}

func TestActionNamesCoverLifecycle(t *testing.T) {
	t.Parallel()

	names := engine.ActionNames()
	assert.Len(t, names, 11)
	assert.Contains(t, names, "assign_ib")
	assert.Contains(t, names, "reject_filing")
	assert.Contains(t, names, "complete_settlement")
}
