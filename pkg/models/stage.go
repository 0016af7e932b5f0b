// Package models defines the core domain models for the capital-raise
// approval pipeline.
package models

// WorkflowStage identifies one phase of the capital-raise pipeline.
type WorkflowStage string

const (
	StageCapitalRaiseIntent WorkflowStage = "capital_raise_intent"
	StageIBAssignment       WorkflowStage = "ib_assignment"
	StageDueDiligence       WorkflowStage = "due_diligence"
	StageProspectusBuilding WorkflowStage = "prospectus_building"
	StageRegulatoryReview   WorkflowStage = "regulatory_review"
	StageListingApproval    WorkflowStage = "listing_approval"
	StageISINAssignment     WorkflowStage = "isin_assignment"
	StageInvestorOnboarding WorkflowStage = "investor_onboarding"
	StageTradingActive      WorkflowStage = "trading_active"
	StageSettlement         WorkflowStage = "settlement"
	StageCompleted          WorkflowStage = "completed"
)

// stageGraph is the fixed adjacency table for stage transitions. The only
// back-edge is regulatory_review -> due_diligence (rejection for correction).
var stageGraph = map[WorkflowStage][]WorkflowStage{
	StageCapitalRaiseIntent: {StageIBAssignment},
	StageIBAssignment:       {StageDueDiligence},
	StageDueDiligence:       {StageProspectusBuilding},
	StageProspectusBuilding: {StageRegulatoryReview},
	StageRegulatoryReview:   {StageListingApproval, StageDueDiligence},
	StageListingApproval:    {StageISINAssignment},
	StageISINAssignment:     {StageInvestorOnboarding},
	StageInvestorOnboarding: {StageTradingActive},
	StageTradingActive:      {StageSettlement},
	StageSettlement:         {StageCompleted},
	StageCompleted:          {},
}

// AllStages lists every stage in happy-path order.
var AllStages = []WorkflowStage{
	StageCapitalRaiseIntent,
	StageIBAssignment,
	StageDueDiligence,
	StageProspectusBuilding,
	StageRegulatoryReview,
	StageListingApproval,
	StageISINAssignment,
	StageInvestorOnboarding,
	StageTradingActive,
	StageSettlement,
	StageCompleted,
}

// IsValidTransition reports whether next is directly reachable from current.
// Pure lookup against the stage graph; callers can query it without touching
// any workflow, so UIs can gray out illegal actions up front.
func IsValidTransition(current, next WorkflowStage) bool {
	for _, allowed := range stageGraph[current] {
		if allowed == next {
			return true
		}
	}

	return false
}

// AllowedTransitions returns a copy of the successor set for a stage.
func AllowedTransitions(stage WorkflowStage) []WorkflowStage {
	successors := stageGraph[stage]

	out := make([]WorkflowStage, len(successors))
	copy(out, successors)

	return out
}

// IsValid reports whether the stage is a member of the closed stage set.
func (s WorkflowStage) IsValid() bool {
	_, ok := stageGraph[s]

	return ok
}

// IsTerminal reports whether the stage has no outbound transitions.
func (s WorkflowStage) IsTerminal() bool {
	successors, ok := stageGraph[s]

	return ok && len(successors) == 0
}

func (s WorkflowStage) String() string {
	return string(s)
}
