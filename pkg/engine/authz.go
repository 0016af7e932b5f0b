package engine

import "github.com/rwcma/capitalab/pkg/models"

// stageCompleters maps each stage to the roster roles allowed to complete
// it (close its open history entry by advancing). The regulator owns both
// outcomes of regulatory review, approval and rejection-for-correction.
var stageCompleters = map[models.WorkflowStage][]models.ParticipantRole{
	models.StageCapitalRaiseIntent: {models.RoleIssuer},
	models.StageIBAssignment:       {models.RoleIssuer},
	models.StageDueDiligence:       {models.RoleIBAdvisor},
	models.StageProspectusBuilding: {models.RoleIBAdvisor},
	models.StageRegulatoryReview:   {models.RoleRegulator},
	models.StageListingApproval:    {models.RoleListingDesk},
	models.StageISINAssignment:     {models.RoleCSDOperator},
	models.StageInvestorOnboarding: {models.RoleIBAdvisor, models.RoleBroker},
	models.StageTradingActive:      {models.RoleListingDesk, models.RoleCSDOperator},
	models.StageSettlement:         {models.RoleCSDOperator},
}

// isAuthorized reports whether the actor may complete the workflow's current
// stage. If none of the allowed roles is staffed yet, any actor may act: the
// sandbox cannot gate on desks that were never assigned, and the roster
// write itself is how those desks get staffed.
func isAuthorized(workflow *models.CapitalRaiseWorkflow, actorID string) bool {
	allowed, ok := stageCompleters[workflow.CurrentStage]
	if !ok {
		return false
	}

	staffed := false

	for _, role := range allowed {
		occupants := workflow.Participants.ByRole(role)
		if len(occupants) > 0 {
			staffed = true
		}

		for _, occupant := range occupants {
			if occupant != nil && occupant.UserID == actorID && occupant.IsActive {
				return true
			}
		}
	}

	return !staffed
}
