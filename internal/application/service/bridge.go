package service

import (
	"context"
	"fmt"

	"github.com/procurekit/approval-engine/internal/application/dispatcher"
	"github.com/procurekit/approval-engine/internal/application/port"
	"github.com/procurekit/approval-engine/internal/domain/entity"
	"github.com/procurekit/approval-engine/internal/domain/event"
)

// lifecycleEvents are the event types forwarded to the sinks.
var lifecycleEvents = []event.Type{
	event.TypeRequestCreated,
	event.TypeDecisionRecorded,
	event.TypeRequestApproved,
	event.TypeRequestRejected,
	event.TypeRequestEscalated,
	event.TypeRequestExpired,
}

var auditActions = map[event.Type]string{
	event.TypeRequestCreated:   entity.AuditActionCreated,
	event.TypeDecisionRecorded: entity.AuditActionDecision,
	event.TypeRequestApproved:  entity.AuditActionApproved,
	event.TypeRequestRejected:  entity.AuditActionRejected,
	event.TypeRequestEscalated: entity.AuditActionEscalated,
	event.TypeRequestExpired:   entity.AuditActionExpired,
}

// RegisterSinkBridge subscribes the notification and audit sinks to every
// request lifecycle event. Handlers run on the async dispatch path: their
// errors are logged by the dispatcher and never reach the domain operation
// that raised the event.
func RegisterSinkBridge(d dispatcher.Dispatcher, notifier port.NotificationSink, audit port.AuditSink) {
	for _, t := range lifecycleEvents {
		eventType := t

		d.SubscribeNamed(eventType, "notification-sink", func(ctx context.Context, evt *event.Event) error {
			if evt.Request == nil {
				return nil
			}
			return notifier.Notify(ctx, evt.Request, eventType.String())
		})

		d.SubscribeNamed(eventType, "audit-sink", func(ctx context.Context, evt *event.Event) error {
			if evt.Request == nil {
				return nil
			}
			return audit.Record(ctx, entity.AuditEntry{
				PurchaseOrderID: evt.PurchaseOrderID,
				RequestID:       evt.RequestID,
				Action:          auditActions[eventType],
				Actor:           evt.Actor,
				Details:         auditDetails(evt),
				CreatedAt:       evt.Timestamp,
			})
		})
	}
}

func auditDetails(evt *event.Event) string {
	switch evt.Type {
	case event.TypeDecisionRecorded:
		if evt.Payload["approved"] == true {
			return "decision: approve"
		}
		return "decision: reject"
	case event.TypeRequestEscalated:
		return fmt.Sprintf("escalated to level %d (%s)", evt.GetPayloadInt("level"), evt.GetPayloadString("reason"))
	default:
		return ""
	}
}
