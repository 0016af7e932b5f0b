package models

import "time"

// WorkflowStatus represents the lifecycle state of a capital-raise workflow.
type WorkflowStatus string

const (
	WorkflowStatusActive    WorkflowStatus = "active"
	WorkflowStatusCompleted WorkflowStatus = "completed"
	WorkflowStatusRejected  WorkflowStatus = "rejected"
	WorkflowStatusSuspended WorkflowStatus = "suspended"
)

// InstrumentType classifies the security being raised.
type InstrumentType string

const (
	InstrumentTypeEquity InstrumentType = "equity"
	InstrumentTypeBond   InstrumentType = "bond"
	InstrumentTypeNote   InstrumentType = "note"
)

// TypeCode returns the two-letter code used in virtual ISINs.
func (t InstrumentType) TypeCode() string {
	switch t {
	case InstrumentTypeEquity:
		return "EQ"
	case InstrumentTypeBond:
		return "BD"
	case InstrumentTypeNote:
		return "NT"
	default:
		return "XX"
	}
}

// IsValid reports whether the instrument type is one of the supported kinds.
func (t InstrumentType) IsValid() bool {
	return t == InstrumentTypeEquity || t == InstrumentTypeBond || t == InstrumentTypeNote
}

// StageRecord is one audit entry in a workflow's stage history. A re-entry
// into a previously visited stage appends a fresh record, never reuses one.
type StageRecord struct {
	Stage       WorkflowStage `json:"stage"`
	EnteredAt   time.Time     `json:"entered_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	CompletedBy string        `json:"completed_by,omitempty"`
	Notes       string        `json:"notes,omitempty"`
}

// CapitalRaiseWorkflow is the aggregate for one issuer's capital-raise case,
// from intent filing through active trading and settlement.
type CapitalRaiseWorkflow struct {
	ID             string         `json:"id"`
	IssuerCompany  string         `json:"issuer_company"  validate:"required,min=2"`
	InstrumentType InstrumentType `json:"instrument_type" validate:"required,oneof=equity bond note"`
	TargetAmount   float64        `json:"target_amount"   validate:"required,gt=0"`
	Currency       string         `json:"currency"        validate:"required,len=3"`
	SharesOffered  int64          `json:"shares_offered,omitempty"`

	CurrentStage WorkflowStage  `json:"current_stage"`
	Status       WorkflowStatus `json:"status"`

	Participants  ParticipantSet          `json:"participants"`
	Documents     []*WorkflowDocument     `json:"documents"`
	Notifications []*WorkflowNotification `json:"notifications"`
	StageHistory  []*StageRecord          `json:"stage_history"`

	VirtualISIN   string     `json:"virtual_isin,omitempty"`
	TradingActive bool       `json:"trading_active"`
	ListingDate   *time.Time `json:"listing_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OpenStageRecord returns the single history entry without a completion
// stamp, or nil if the history is empty or fully closed.
func (w *CapitalRaiseWorkflow) OpenStageRecord() *StageRecord {
	for i := len(w.StageHistory) - 1; i >= 0; i-- {
		if w.StageHistory[i].CompletedAt == nil {
			return w.StageHistory[i]
		}
	}

	return nil
}

// HasCompletedStage reports whether the history contains a closed entry for
// the given stage.
func (w *CapitalRaiseWorkflow) HasCompletedStage(stage WorkflowStage) bool {
	for _, record := range w.StageHistory {
		if record.Stage == stage && record.CompletedAt != nil {
			return true
		}
	}

	return false
}

// HasVisitedStage reports whether the history contains any entry for the
// given stage, open or closed.
func (w *CapitalRaiseWorkflow) HasVisitedStage(stage WorkflowStage) bool {
	for _, record := range w.StageHistory {
		if record.Stage == stage {
			return true
		}
	}

	return false
}

// Clone returns a deep copy of the workflow so stores can hand out
// snapshots without exposing their internal aggregate to callers.
func (w *CapitalRaiseWorkflow) Clone() *CapitalRaiseWorkflow {
	if w == nil {
		return nil
	}

	clone := *w
	clone.Participants = w.Participants.clone()

	clone.Documents = make([]*WorkflowDocument, len(w.Documents))
	for i, doc := range w.Documents {
		docCopy := *doc
		clone.Documents[i] = &docCopy
	}

	clone.Notifications = make([]*WorkflowNotification, len(w.Notifications))
	for i, notif := range w.Notifications {
		notifCopy := *notif
		clone.Notifications[i] = &notifCopy
	}

	clone.StageHistory = make([]*StageRecord, len(w.StageHistory))
	for i, record := range w.StageHistory {
		recordCopy := *record

		if record.CompletedAt != nil {
			completedAt := *record.CompletedAt
			recordCopy.CompletedAt = &completedAt
		}

		clone.StageHistory[i] = &recordCopy
	}

	if w.ListingDate != nil {
		listingDate := *w.ListingDate
		clone.ListingDate = &listingDate
	}

	return &clone
}
