package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/procurekit/approval-engine/internal/application/port"
	"github.com/procurekit/approval-engine/internal/domain/entity"
	"github.com/procurekit/approval-engine/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// RequestRepository implements port.RequestRepository on SQLite. The threshold
// snapshot, decision list and metadata are stored as JSON columns; the version
// column carries the optimistic-concurrency token.
type RequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *sql.DB, logger *zap.Logger) port.RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger,
	}
}

const requestColumns = `
	id, purchase_order_id, threshold, required_approvals, decisions,
	status, created_at, expires_at, escalated_at, escalation_level,
	priority, metadata, version
`

// Create inserts a new approval request
func (r *RequestRepository) Create(ctx context.Context, req *entity.ApprovalRequest) error {
	threshold, decisions, metadata, err := marshalRequestColumns(req)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO approval_requests (` + requestColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.getExecutor(ctx).ExecContext(ctx, query,
		req.ID,
		req.PurchaseOrderID,
		threshold,
		req.RequiredApprovals,
		decisions,
		req.Status,
		req.CreatedAt,
		nullableTime(req.ExpiresAt),
		nullableTime(req.EscalatedAt),
		req.EscalationLevel,
		req.Priority,
		metadata,
		req.Version,
	)
	if err != nil {
		r.logger.Error("Failed to create request", zap.String("id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to create request: %w", err)
	}

	return nil
}

// GetByID retrieves an approval request by ID
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*entity.ApprovalRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM approval_requests WHERE id = ?`

	req, err := scanRequest(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get request by ID", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get request: %w", err)
	}

	return req, nil
}

// Update persists the aggregate if its version still matches the stored row.
// A stale version yields entity.ErrConcurrentModification.
func (r *RequestRepository) Update(ctx context.Context, req *entity.ApprovalRequest) error {
	threshold, decisions, metadata, err := marshalRequestColumns(req)
	if err != nil {
		return err
	}

	query := `
		UPDATE approval_requests
		SET decisions = ?, status = ?, expires_at = ?, escalated_at = ?,
			escalation_level = ?, priority = ?, metadata = ?, threshold = ?,
			required_approvals = ?, version = version + 1
		WHERE id = ? AND version = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		decisions,
		req.Status,
		nullableTime(req.ExpiresAt),
		nullableTime(req.EscalatedAt),
		req.EscalationLevel,
		req.Priority,
		metadata,
		threshold,
		req.RequiredApprovals,
		req.ID,
		req.Version,
	)
	if err != nil {
		r.logger.Error("Failed to update request", zap.String("id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to update request: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		// Either the row is gone or another writer bumped the version.
		existing, getErr := r.GetByID(ctx, req.ID)
		if getErr != nil {
			return getErr
		}
		if existing == nil {
			return entity.ErrNotFound
		}
		return entity.ErrConcurrentModification
	}

	req.Version++
	return nil
}

// ListByPurchaseOrder returns all requests for a purchase order, newest first
func (r *RequestRepository) ListByPurchaseOrder(ctx context.Context, purchaseOrderID string) ([]*entity.ApprovalRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM approval_requests
		WHERE purchase_order_id = ?
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, purchaseOrderID)
}

// ListByStatus returns all requests in the given lifecycle state
func (r *RequestRepository) ListByStatus(ctx context.Context, status entity.Status) ([]*entity.ApprovalRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM approval_requests
		WHERE status = ?
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, status)
}

// ListOverdue returns pending requests whose deadline passed, soonest first
func (r *RequestRepository) ListOverdue(ctx context.Context, now time.Time) ([]*entity.ApprovalRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM approval_requests
		WHERE status = ? AND expires_at IS NOT NULL AND expires_at < ?
		ORDER BY expires_at ASC
	`
	return r.list(ctx, query, entity.StatusPending, now)
}

// ListEscalatable returns pending and escalated requests past their deadline
func (r *RequestRepository) ListEscalatable(ctx context.Context, now time.Time) ([]*entity.ApprovalRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM approval_requests
		WHERE status IN (?, ?) AND expires_at IS NOT NULL AND expires_at < ?
		ORDER BY expires_at ASC
	`
	return r.list(ctx, query, entity.StatusPending, entity.StatusEscalated, now)
}

// ListAll returns every stored request
func (r *RequestRepository) ListAll(ctx context.Context) ([]*entity.ApprovalRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM approval_requests ORDER BY created_at DESC`
	return r.list(ctx, query)
}

// DeleteTerminalOlderThan removes terminal-status requests created before the
// cutoff and reports how many rows were deleted
func (r *RequestRepository) DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM approval_requests
		WHERE status IN (?, ?, ?) AND created_at < ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		entity.StatusApproved, entity.StatusRejected, entity.StatusExpired, cutoff)
	if err != nil {
		r.logger.Error("Failed to delete terminal requests", zap.Error(err))
		return 0, fmt.Errorf("failed to delete terminal requests: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return deleted, nil
}

func (r *RequestRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.ApprovalRequest, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	var requests []*entity.ApprovalRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, req)
	}

	return requests, rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner) (*entity.ApprovalRequest, error) {
	var req entity.ApprovalRequest
	var threshold, decisions []byte
	var metadata sql.NullString
	var expiresAt, escalatedAt sql.NullTime

	err := row.Scan(
		&req.ID,
		&req.PurchaseOrderID,
		&threshold,
		&req.RequiredApprovals,
		&decisions,
		&req.Status,
		&req.CreatedAt,
		&expiresAt,
		&escalatedAt,
		&req.EscalationLevel,
		&req.Priority,
		&metadata,
		&req.Version,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(threshold, &req.Threshold); err != nil {
		return nil, fmt.Errorf("failed to decode threshold snapshot: %w", err)
	}
	if err := json.Unmarshal(decisions, &req.Decisions); err != nil {
		return nil, fmt.Errorf("failed to decode decisions: %w", err)
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &req.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %w", err)
		}
	}
	if expiresAt.Valid {
		req.ExpiresAt = &expiresAt.Time
	}
	if escalatedAt.Valid {
		req.EscalatedAt = &escalatedAt.Time
	}

	return &req, nil
}

func marshalRequestColumns(req *entity.ApprovalRequest) (threshold, decisions []byte, metadata interface{}, err error) {
	threshold, err = json.Marshal(req.Threshold)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode threshold snapshot: %w", err)
	}

	if req.Decisions == nil {
		decisions = []byte("[]")
	} else {
		decisions, err = json.Marshal(req.Decisions)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to encode decisions: %w", err)
		}
	}

	if len(req.Metadata) > 0 {
		raw, mErr := json.Marshal(req.Metadata)
		if mErr != nil {
			return nil, nil, nil, fmt.Errorf("failed to encode metadata: %w", mErr)
		}
		metadata = string(raw)
	}

	return threshold, decisions, metadata, nil
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

// getExecutor returns appropriate executor based on context
func (r *RequestRepository) getExecutor(ctx context.Context) executor {
	if tx := sqlite.ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.db
}

// executor interface covers both *sql.DB and *sql.Tx
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Verify interface compliance
var _ port.RequestRepository = (*RequestRepository)(nil)
