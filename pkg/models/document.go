package models

import "time"

// DocumentStatus tracks a document through its review lifecycle.
type DocumentStatus string

const (
	DocumentStatusDraft     DocumentStatus = "draft"
	DocumentStatusSubmitted DocumentStatus = "submitted"
	DocumentStatusApproved  DocumentStatus = "approved"
	DocumentStatusRejected  DocumentStatus = "rejected"
)

// documentStatusGraph: draft -> submitted -> approved|rejected. Approved and
// rejected are terminal.
var documentStatusGraph = map[DocumentStatus][]DocumentStatus{
	DocumentStatusDraft:     {DocumentStatusSubmitted},
	DocumentStatusSubmitted: {DocumentStatusApproved, DocumentStatusRejected},
	DocumentStatusApproved:  {},
	DocumentStatusRejected:  {},
}

// IsValidDocumentStatusTransition reports whether a document may move from
// current to next.
func IsValidDocumentStatusTransition(current, next DocumentStatus) bool {
	for _, allowed := range documentStatusGraph[current] {
		if allowed == next {
			return true
		}
	}

	return false
}

// DocumentWatermark is stamped on every artifact at creation. It is fixed,
// never user-supplied.
const DocumentWatermark = "SIMULATED DOCUMENT - CAPITALAB SANDBOX - NOT A REGULATORY FILING"

// WorkflowDocument is one watermarked artifact attached to a workflow.
// Immutable after creation except for Status.
type WorkflowDocument struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"        validate:"required"`
	Title      string         `json:"title"       validate:"required"`
	Content    string         `json:"content"`
	UploadedBy string         `json:"uploaded_by" validate:"required"`
	UploadedAt time.Time      `json:"uploaded_at"`
	Status     DocumentStatus `json:"status"`
	Watermark  string         `json:"watermark"`
}
