package service

import (
	"github.com/procurekit/approval-engine/internal/domain/entity"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// CreateOrder carries the purchase order fields relevant to approval gating.
// Amounts are integer cents; attributes feed threshold conditions.
type CreateOrder struct {
	PurchaseOrderID string
	AmountCents     int64
	Attributes      map[string]string
	Metadata        map[string]string
}

// Actor identifies who performs an operation.
type Actor struct {
	ID    string
	Role  entity.Role
	Email string
}

// DecisionResult reports the outcome of a decision submission.
type DecisionResult struct {
	Request   *entity.ApprovalRequest
	Status    entity.Status
	Remaining int
	Message   string
}

// BulkFailure captures one failed item of a bulk operation.
type BulkFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// BulkResult aggregates per-item outcomes of a bulk operation. Items are
// independent; a failure never rolls back decisions already recorded.
type BulkResult struct {
	Successful []string      `json:"successful"`
	Failed     []BulkFailure `json:"failed"`
}

// Statistics is the read-side aggregate over the full request set.
type Statistics struct {
	Total                int                     `json:"total"`
	ByStatus             map[entity.Status]int   `json:"by_status"`
	ByPriority           map[entity.Priority]int `json:"by_priority"`
	ByThreshold          map[string]int          `json:"by_threshold"`
	AverageApprovalHours float64                 `json:"average_approval_hours"`
}
