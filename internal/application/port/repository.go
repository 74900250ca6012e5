package port

import (
	"context"
	"time"

	"github.com/procurekit/approval-engine/internal/domain/entity"
)

// RequestRepository defines persistence operations for ApprovalRequest.
// Lookups return (nil, nil) when no row exists; the service layer maps that
// to the domain's not-found error.
type RequestRepository interface {
	Create(ctx context.Context, req *entity.ApprovalRequest) error

	GetByID(ctx context.Context, id string) (*entity.ApprovalRequest, error)

	// Update persists the aggregate if its Version still matches the stored
	// row, incrementing the version. A stale version yields
	// entity.ErrConcurrentModification.
	Update(ctx context.Context, req *entity.ApprovalRequest) error

	// ListByPurchaseOrder returns all requests for a purchase order,
	// newest first.
	ListByPurchaseOrder(ctx context.Context, purchaseOrderID string) ([]*entity.ApprovalRequest, error)

	ListByStatus(ctx context.Context, status entity.Status) ([]*entity.ApprovalRequest, error)

	// ListOverdue returns pending requests whose deadline passed, soonest
	// expired first.
	ListOverdue(ctx context.Context, now time.Time) ([]*entity.ApprovalRequest, error)

	// ListEscalatable returns pending and escalated requests whose deadline
	// passed. The escalation scan uses this wider candidate set so a
	// previously escalated request can reach the next level or expire.
	ListEscalatable(ctx context.Context, now time.Time) ([]*entity.ApprovalRequest, error)

	ListAll(ctx context.Context) ([]*entity.ApprovalRequest, error)

	// DeleteTerminalOlderThan removes terminal-status requests created
	// before the cutoff and reports how many rows were deleted.
	DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// EscalationRepository defines persistence for the append-only escalation log
type EscalationRepository interface {
	Append(ctx context.Context, esc *entity.ApprovalEscalation) error
	ListByRequest(ctx context.Context, requestID string) ([]*entity.ApprovalEscalation, error)
}

// AuditLogRepository defines persistence for the append-only audit log
type AuditLogRepository interface {
	Append(ctx context.Context, e *entity.AuditEntry) error
	ListByPurchaseOrder(ctx context.Context, purchaseOrderID string) ([]*entity.AuditEntry, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
