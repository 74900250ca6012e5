package entity

import "time"

// Audit action constants
const (
	AuditActionCreated   = "CREATED"
	AuditActionDecision  = "DECISION"
	AuditActionApproved  = "APPROVED"
	AuditActionRejected  = "REJECTED"
	AuditActionEscalated = "ESCALATED"
	AuditActionExpired   = "EXPIRED"
	AuditActionCleanup   = "CLEANUP"
)

// AuditEntry is one immutable line of the action log, keyed by purchase
// order so a PO's full approval history can be reconstructed.
type AuditEntry struct {
	ID              int64     `json:"id"`
	PurchaseOrderID string    `json:"purchase_order_id"`
	RequestID       string    `json:"request_id"`
	Action          string    `json:"action"`
	Actor           string    `json:"actor,omitempty"`
	Details         string    `json:"details,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
