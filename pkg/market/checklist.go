// Package market turns completed capital-raise workflows into tradeable
// instruments on the simulated board and tracks the decorative order flow
// around them.
package market

import "github.com/rwcma/capitalab/pkg/models"

// graduationStages are the stage completions a workflow must carry before
// it can be minted into an instrument. Settlement is deliberately absent:
// graduation happens while the raise is still winding down.
var graduationStages = []models.WorkflowStage{
	models.StageRegulatoryReview,
	models.StageListingApproval,
	models.StageISINAssignment,
	models.StageInvestorOnboarding,
	models.StageTradingActive,
}

// ChecklistItem is one line of the fulfillment checklist with its verdict.
type ChecklistItem struct {
	Name      string `json:"name"`
	Satisfied bool   `json:"satisfied"`
}

// Checklist evaluates the fulfillment checklist for a workflow. The verdict
// is computed from stage history and deal terms only; it does not consult
// the live stage, so a case sitting in settlement still passes.
func Checklist(workflow *models.CapitalRaiseWorkflow) []ChecklistItem {
	items := make([]ChecklistItem, 0, len(graduationStages)+2)

	for _, stage := range graduationStages {
		items = append(items, ChecklistItem{
			Name:      "stage_completed:" + stage.String(),
			Satisfied: workflow.HasCompletedStage(stage),
		})
	}

	items = append(items,
		ChecklistItem{Name: "target_amount_positive", Satisfied: workflow.TargetAmount > 0},
		ChecklistItem{Name: "issuer_company_named", Satisfied: workflow.IssuerCompany != ""},
	)

	return items
}

// IsWorkflowReadyForTrading reports whether every checklist item holds.
func IsWorkflowReadyForTrading(workflow *models.CapitalRaiseWorkflow) bool {
	for _, item := range Checklist(workflow) {
		if !item.Satisfied {
			return false
		}
	}

	return true
}
