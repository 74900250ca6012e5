package audit

import (
	"context"

	"github.com/procurekit/approval-engine/internal/application/port"
	"github.com/procurekit/approval-engine/internal/domain/entity"
	"go.uber.org/zap"
)

// RepositorySink persists audit entries through the audit log repository.
// It adapts the write-side port the event bridge uses to the repository the
// read API queries.
type RepositorySink struct {
	repo   port.AuditLogRepository
	logger *zap.Logger
}

// NewRepositorySink creates an audit sink backed by the audit log repository
func NewRepositorySink(repo port.AuditLogRepository, logger *zap.Logger) *RepositorySink {
	return &RepositorySink{
		repo:   repo,
		logger: logger,
	}
}

// Record appends one audit entry
func (s *RepositorySink) Record(ctx context.Context, e entity.AuditEntry) error {
	if err := s.repo.Append(ctx, &e); err != nil {
		s.logger.Error("Failed to record audit entry",
			zap.String("purchase_order_id", e.PurchaseOrderID),
			zap.String("action", e.Action),
			zap.Error(err))
		return err
	}
	return nil
}

// Verify interface compliance
var _ port.AuditSink = (*RepositorySink)(nil)
