package port

import (
	"context"
	"time"

	"github.com/procurekit/approval-engine/internal/domain/entity"
)

// ConfigurationProvider supplies the threshold table, the ordered escalation
// ladder and the holiday calendar.
type ConfigurationProvider interface {
	Thresholds(ctx context.Context) ([]entity.ApprovalThreshold, error)

	// EscalationLevels returns the ladder ordered ascending by level.
	EscalationLevels(ctx context.Context) ([]entity.EscalationLevel, error)

	Holidays(ctx context.Context) ([]time.Time, error)
}

// NotificationSink receives best-effort notifications about request state
// changes. Failures are logged by callers and never abort a transition.
type NotificationSink interface {
	Notify(ctx context.Context, req *entity.ApprovalRequest, eventType string) error

	SendOverdueReminder(ctx context.Context, reqs []*entity.ApprovalRequest, recipients []entity.Role, daysOverdue int) error
}

// AuditSink records immutable action log entries keyed by purchase order.
type AuditSink interface {
	Record(ctx context.Context, e entity.AuditEntry) error
}

// Clock abstracts "now" so timing logic is deterministic in tests.
type Clock interface {
	Now() time.Time
}
