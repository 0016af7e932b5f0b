package models

import "time"

// NotificationType classifies the event a notification reports.
type NotificationType string

const (
	NotificationStageEntered   NotificationType = "stage_entered"
	NotificationActionRequired NotificationType = "action_required"
	NotificationDocumentAdded  NotificationType = "document_added"
	NotificationDocumentReview NotificationType = "document_review"
	NotificationISINAssigned   NotificationType = "isin_assigned"
	NotificationTradingLive    NotificationType = "trading_live"
	NotificationSLAReminder    NotificationType = "sla_reminder"
)

// WorkflowNotification is one role-addressed message in a workflow's outbox.
// IsRead is the only mutable field and only flips false -> true.
type WorkflowNotification struct {
	ID              string           `json:"id"`
	WorkflowID      string           `json:"workflow_id"`
	RecipientRole   ParticipantRole  `json:"recipient_role"`
	RecipientUserID string           `json:"recipient_user_id,omitempty"`
	Type            NotificationType `json:"type"`
	Title           string           `json:"title"`
	Message         string           `json:"message"`
	ActionURL       string           `json:"action_url,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	IsRead          bool             `json:"is_read"`
}
