package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/procurekit/approval-engine/internal/domain/entity"
)

// Event represents a domain event raised by a request state change. The
// request field carries a snapshot of the aggregate after the transition.
type Event struct {
	ID              string                  `json:"id"`
	Type            Type                    `json:"type"`
	RequestID       string                  `json:"request_id"`
	PurchaseOrderID string                  `json:"purchase_order_id"`
	Request         *entity.ApprovalRequest `json:"request,omitempty"`
	Actor           string                  `json:"actor,omitempty"`
	Payload         map[string]interface{}  `json:"payload,omitempty"`
	Timestamp       time.Time               `json:"timestamp"`
}

// New creates a domain event for the given request snapshot.
func New(eventType Type, req *entity.ApprovalRequest, actor string) *Event {
	evt := &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Actor:     actor,
		Payload:   make(map[string]interface{}),
		Timestamp: time.Now(),
	}
	if req != nil {
		evt.RequestID = req.ID
		evt.PurchaseOrderID = req.PurchaseOrderID
		evt.Request = req
	}
	return evt
}

// WithPayload adds a payload entry and returns the event for chaining.
func (e *Event) WithPayload(key string, value interface{}) *Event {
	if e.Payload == nil {
		e.Payload = make(map[string]interface{})
	}
	e.Payload[key] = value
	return e
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetPayloadInt retrieves an int value from the payload
func (e *Event) GetPayloadInt(key string) int {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return 0
}
