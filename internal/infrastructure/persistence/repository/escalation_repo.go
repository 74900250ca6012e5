package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/procurekit/approval-engine/internal/application/port"
	"github.com/procurekit/approval-engine/internal/domain/entity"
	"github.com/procurekit/approval-engine/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// EscalationRepository implements port.EscalationRepository on SQLite
type EscalationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEscalationRepository creates a new escalation repository
func NewEscalationRepository(db *sql.DB, logger *zap.Logger) port.EscalationRepository {
	return &EscalationRepository{
		db:     db,
		logger: logger,
	}
}

// Append records one escalation event
func (r *EscalationRepository) Append(ctx context.Context, esc *entity.ApprovalEscalation) error {
	escalatedTo, err := json.Marshal(esc.EscalatedTo)
	if err != nil {
		return fmt.Errorf("failed to encode escalation recipients: %w", err)
	}
	priorApprovers, err := json.Marshal(esc.PriorApprovers)
	if err != nil {
		return fmt.Errorf("failed to encode prior approvers: %w", err)
	}

	query := `
		INSERT INTO approval_escalations (
			id, request_id, level, escalated_at, escalated_to, reason, prior_approvers
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.getExecutor(ctx).ExecContext(ctx, query,
		esc.ID,
		esc.RequestID,
		esc.Level,
		esc.EscalatedAt,
		string(escalatedTo),
		esc.Reason,
		string(priorApprovers),
	)
	if err != nil {
		r.logger.Error("Failed to append escalation",
			zap.String("request_id", esc.RequestID), zap.Int("level", esc.Level), zap.Error(err))
		return fmt.Errorf("failed to append escalation: %w", err)
	}

	return nil
}

// ListByRequest returns the escalation history of a request, lowest level first
func (r *EscalationRepository) ListByRequest(ctx context.Context, requestID string) ([]*entity.ApprovalEscalation, error) {
	query := `
		SELECT id, request_id, level, escalated_at, escalated_to, reason, prior_approvers
		FROM approval_escalations
		WHERE request_id = ?
		ORDER BY level ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to list escalations", zap.String("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to list escalations: %w", err)
	}
	defer rows.Close()

	var escalations []*entity.ApprovalEscalation
	for rows.Next() {
		var esc entity.ApprovalEscalation
		var escalatedTo, priorApprovers string

		err := rows.Scan(
			&esc.ID,
			&esc.RequestID,
			&esc.Level,
			&esc.EscalatedAt,
			&escalatedTo,
			&esc.Reason,
			&priorApprovers,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan escalation: %w", err)
		}

		if err := json.Unmarshal([]byte(escalatedTo), &esc.EscalatedTo); err != nil {
			return nil, fmt.Errorf("failed to decode escalation recipients: %w", err)
		}
		if err := json.Unmarshal([]byte(priorApprovers), &esc.PriorApprovers); err != nil {
			return nil, fmt.Errorf("failed to decode prior approvers: %w", err)
		}

		escalations = append(escalations, &esc)
	}

	return escalations, rows.Err()
}

// getExecutor returns appropriate executor based on context
func (r *EscalationRepository) getExecutor(ctx context.Context) executor {
	if tx := sqlite.ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.db
}

// Verify interface compliance
var _ port.EscalationRepository = (*EscalationRepository)(nil)
