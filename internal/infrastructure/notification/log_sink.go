package notification

import (
	"context"

	"github.com/procurekit/approval-engine/internal/application/port"
	"github.com/procurekit/approval-engine/internal/domain/entity"
	"go.uber.org/zap"
)

// LogSink writes notifications to the structured log. It is the default sink
// and always configured, so every deployment has a visible notification trail
// even without a webhook endpoint.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a new log-backed notification sink
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Notify logs a request state change
func (s *LogSink) Notify(ctx context.Context, req *entity.ApprovalRequest, eventType string) error {
	s.logger.Info("Approval notification",
		zap.String("event", eventType),
		zap.String("request_id", req.ID),
		zap.String("purchase_order_id", req.PurchaseOrderID),
		zap.String("status", req.Status.String()),
		zap.String("priority", req.Priority.String()),
		zap.Int("escalation_level", req.EscalationLevel),
	)
	return nil
}

// SendOverdueReminder logs an overdue reminder batch
func (s *LogSink) SendOverdueReminder(ctx context.Context, reqs []*entity.ApprovalRequest, recipients []entity.Role, daysOverdue int) error {
	ids := make([]string, 0, len(reqs))
	for _, req := range reqs {
		ids = append(ids, req.ID)
	}

	roles := make([]string, 0, len(recipients))
	for _, r := range recipients {
		roles = append(roles, r.String())
	}

	s.logger.Info("Overdue approval reminder",
		zap.Strings("request_ids", ids),
		zap.Strings("recipients", roles),
		zap.Int("days_overdue", daysOverdue),
	)
	return nil
}

// Verify interface compliance
var _ port.NotificationSink = (*LogSink)(nil)
