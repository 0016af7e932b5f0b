package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rwcma/capitalab/pkg/models"
)

// RemindStalled appends a reminder notification to every active workflow
// whose current stage has been open longer than olderThan, addressed to the
// roles allowed to complete that stage. At most one reminder is minted per
// stage visit. It returns the number of workflows reminded.
func (e *Engine) RemindStalled(ctx context.Context, olderThan time.Duration) (int, error) {
	workflows, err := e.persistence.Workflows(ctx)
	if err != nil {
		return 0, err
	}

	reminded := 0

	for _, snapshot := range workflows {
		if snapshot.Status != models.WorkflowStatusActive {
			continue
		}

		ok, err := e.remindWorkflow(ctx, snapshot.ID, olderThan)
		if err != nil {
			e.logger.WarnContext(ctx, "Failed to remind stalled workflow",
				"workflow_id", snapshot.ID, "error", err)

			continue
		}

		if ok {
			reminded++
		}
	}

	return reminded, nil
}

func (e *Engine) remindWorkflow(ctx context.Context, workflowID string, olderThan time.Duration) (bool, error) {
	unlock := e.locks.lock(workflowID)
	defer unlock()

	workflow, err := e.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return false, err
	}

	if workflow.Status != models.WorkflowStatusActive {
		return false, nil
	}

	open := workflow.OpenStageRecord()
	if open == nil {
		return false, nil
	}

	now := time.Now().UTC()
	if now.Sub(open.EnteredAt) < olderThan {
		return false, nil
	}

	if hasReminderSince(workflow, open.EnteredAt) {
		return false, nil
	}

	var created []*models.WorkflowNotification

	for _, role := range stageCompleters[workflow.CurrentStage] {
		created = append(created, newNotification(workflow.ID, role,
			models.NotificationSLAReminder, "Stage overdue",
			fmt.Sprintf("Stage %s has been open since %s and is waiting on you.",
				workflow.CurrentStage, open.EnteredAt.Format(time.RFC3339)),
			now))
	}

	if len(created) == 0 {
		return false, nil
	}

	workflow.Notifications = append(workflow.Notifications, created...)
	workflow.UpdatedAt = now

	if err := e.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return false, fmt.Errorf("failed to save workflow %s: %w", workflowID, err)
	}

	e.deliver(ctx, created)

	return true, nil
}

func hasReminderSince(workflow *models.CapitalRaiseWorkflow, since time.Time) bool {
	for _, notification := range workflow.Notifications {
		if notification.Type == models.NotificationSLAReminder && !notification.CreatedAt.Before(since) {
			return true
		}
	}

	return false
}
