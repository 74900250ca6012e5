package notification

import (
	"context"

	"github.com/procurekit/approval-engine/internal/application/port"
	"github.com/procurekit/approval-engine/internal/domain/entity"
	"go.uber.org/multierr"
)

// MultiSink fans a notification out to every configured sink. Each sink is
// attempted even when an earlier one fails; the errors are combined.
type MultiSink struct {
	sinks []port.NotificationSink
}

// NewMultiSink creates a sink that forwards to all given sinks
func NewMultiSink(sinks ...port.NotificationSink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Notify forwards the state change to every sink
func (s *MultiSink) Notify(ctx context.Context, req *entity.ApprovalRequest, eventType string) error {
	var err error
	for _, sink := range s.sinks {
		err = multierr.Append(err, sink.Notify(ctx, req, eventType))
	}
	return err
}

// SendOverdueReminder forwards the reminder batch to every sink
func (s *MultiSink) SendOverdueReminder(ctx context.Context, reqs []*entity.ApprovalRequest, recipients []entity.Role, daysOverdue int) error {
	var err error
	for _, sink := range s.sinks {
		err = multierr.Append(err, sink.SendOverdueReminder(ctx, reqs, recipients, daysOverdue))
	}
	return err
}

// Verify interface compliance
var _ port.NotificationSink = (*MultiSink)(nil)
