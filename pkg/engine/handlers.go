package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rwcma/capitalab/pkg/models"
)

// notificationSpec describes one message in a stage's deterministic fan-out.
type notificationSpec struct {
	role    models.ParticipantRole
	kind    models.NotificationType
	title   string
	message string
}

// stageFanOut is the fixed notification table dispatched on stage entry. It
// tells whoever owns the new stage that they must act, and keeps the rest of
// the roster informed.
var stageFanOut = map[models.WorkflowStage][]notificationSpec{
	models.StageIBAssignment: {
		{models.RoleIssuer, models.NotificationActionRequired,
			"Select an investment bank", "Appoint an investment bank advisor to sponsor the capital raise."},
	},
	models.StageDueDiligence: {
		{models.RoleIBAdvisor, models.NotificationActionRequired,
			"Due diligence open", "Begin due diligence on the issuer and prepare supporting documentation."},
		{models.RoleIssuer, models.NotificationStageEntered,
			"Due diligence started", "Your advisor has started due diligence on the filing."},
	},
	models.StageProspectusBuilding: {
		{models.RoleIBAdvisor, models.NotificationActionRequired,
			"Prospectus drafting open", "Draft the prospectus and submit it for regulatory review."},
	},
	models.StageRegulatoryReview: {
		{models.RoleRegulator, models.NotificationActionRequired,
			"Filing awaiting review", "A prospectus has been submitted and awaits regulatory review."},
		{models.RoleIssuer, models.NotificationStageEntered,
			"Filing under review", "Your filing has entered regulatory review."},
	},
	models.StageListingApproval: {
		{models.RoleListingDesk, models.NotificationActionRequired,
			"Listing approval requested", "Regulatory review passed. Approve the listing to proceed."},
	},
	models.StageISINAssignment: {
		{models.RoleCSDOperator, models.NotificationActionRequired,
			"Instrument registration open", "Register the instrument and confirm the assigned identifier."},
	},
	models.StageInvestorOnboarding: {
		{models.RoleBroker, models.NotificationActionRequired,
			"Investor onboarding open", "Onboard investors for the offering."},
		{models.RoleIssuer, models.NotificationStageEntered,
			"Investor onboarding started", "Brokers are onboarding investors for your offering."},
	},
	models.StageTradingActive: {
		{models.RoleAll, models.NotificationTradingLive,
			"Trading live", "The instrument is now trading on the simulated board."},
	},
	models.StageSettlement: {
		{models.RoleCSDOperator, models.NotificationActionRequired,
			"Settlement open", "Settle outstanding positions for the offering."},
	},
	models.StageCompleted: {
		{models.RoleAll, models.NotificationStageEntered,
			"Capital raise completed", "The capital raise has completed its full lifecycle."},
	},
}

// applyStageEntry applies the in-aggregate effects of entering a stage:
// the notification fan-out, the one-time virtual ISIN mint, and the one-way
// trading flag. It mutates the aggregate before it is saved; external side
// effects (bus, sinks) happen after the save and are best-effort.
func (e *Engine) applyStageEntry(workflow *models.CapitalRaiseWorkflow, now time.Time) []*models.WorkflowNotification {
	var created []*models.WorkflowNotification

	switch workflow.CurrentStage {
	case models.StageISINAssignment:
		if workflow.VirtualISIN == "" {
			workflow.VirtualISIN = e.isins.Next(workflow.InstrumentType, now)

			created = append(created, newNotification(workflow.ID, models.RoleAll,
				models.NotificationISINAssigned, "Virtual ISIN assigned",
				fmt.Sprintf("Instrument identifier %s assigned to %s.", workflow.VirtualISIN, workflow.IssuerCompany),
				now))
		}
	case models.StageTradingActive:
		if !workflow.TradingActive {
			workflow.TradingActive = true
			listingDate := now
			workflow.ListingDate = &listingDate
		}
	}

	for _, spec := range stageFanOut[workflow.CurrentStage] {
		created = append(created, newNotification(workflow.ID, spec.role, spec.kind,
			spec.title, spec.message, now))
	}

	workflow.Notifications = append(workflow.Notifications, created...)

	return created
}

func newNotification(
	workflowID string,
	role models.ParticipantRole,
	kind models.NotificationType,
	title, message string,
	now time.Time,
) *models.WorkflowNotification {
	return &models.WorkflowNotification{
		ID:            uuid.New().String(),
		WorkflowID:    workflowID,
		RecipientRole: role,
		Type:          kind,
		Title:         title,
		Message:       message,
		CreatedAt:     now,
		IsRead:        false,
	}
}
