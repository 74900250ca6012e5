package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/procurekit/approval-engine/internal/application/port"
	"github.com/procurekit/approval-engine/internal/domain/entity"
	"github.com/procurekit/approval-engine/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// AuditLogRepository implements port.AuditLogRepository on SQLite
type AuditLogRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db *sql.DB, logger *zap.Logger) port.AuditLogRepository {
	return &AuditLogRepository{
		db:     db,
		logger: logger,
	}
}

// Append records one audit log line
func (r *AuditLogRepository) Append(ctx context.Context, e *entity.AuditEntry) error {
	query := `
		INSERT INTO audit_log (
			purchase_order_id, request_id, action, actor, details, created_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		e.PurchaseOrderID,
		e.RequestID,
		e.Action,
		e.Actor,
		e.Details,
		e.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to append audit entry",
			zap.String("purchase_order_id", e.PurchaseOrderID), zap.String("action", e.Action), zap.Error(err))
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	e.ID = id
	return nil
}

// ListByPurchaseOrder returns the audit trail of a purchase order, oldest first
func (r *AuditLogRepository) ListByPurchaseOrder(ctx context.Context, purchaseOrderID string) ([]*entity.AuditEntry, error) {
	query := `
		SELECT id, purchase_order_id, request_id, action, actor, details, created_at
		FROM audit_log
		WHERE purchase_order_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, purchaseOrderID)
	if err != nil {
		r.logger.Error("Failed to list audit entries",
			zap.String("purchase_order_id", purchaseOrderID), zap.Error(err))
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*entity.AuditEntry
	for rows.Next() {
		var e entity.AuditEntry
		err := rows.Scan(
			&e.ID,
			&e.PurchaseOrderID,
			&e.RequestID,
			&e.Action,
			&e.Actor,
			&e.Details,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}

// getExecutor returns appropriate executor based on context
func (r *AuditLogRepository) getExecutor(ctx context.Context) executor {
	if tx := sqlite.ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.db
}

// Verify interface compliance
var _ port.AuditLogRepository = (*AuditLogRepository)(nil)
