package notification

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/procurekit/approval-engine/internal/application/port"
	"github.com/procurekit/approval-engine/internal/domain/entity"
	"go.uber.org/zap"
)

// WebhookSink POSTs notifications as JSON to a configured endpoint. When a
// secret is set, each delivery carries an HMAC-SHA256 signature over
// timestamp + body so receivers can authenticate the sender.
type WebhookSink struct {
	url    string
	secret string
	client *http.Client
	logger *zap.Logger
}

// NewWebhookSink creates a new webhook notification sink
func NewWebhookSink(url, secret string, timeout time.Duration, logger *zap.Logger) *WebhookSink {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookSink{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type webhookEvent struct {
	Event           string                  `json:"event"`
	RequestID       string                  `json:"request_id,omitempty"`
	PurchaseOrderID string                  `json:"purchase_order_id,omitempty"`
	Request         *entity.ApprovalRequest `json:"request,omitempty"`
	RequestIDs      []string                `json:"request_ids,omitempty"`
	Recipients      []entity.Role           `json:"recipients,omitempty"`
	DaysOverdue     int                     `json:"days_overdue,omitempty"`
	Timestamp       time.Time               `json:"timestamp"`
}

// Notify delivers a request state change to the webhook endpoint
func (s *WebhookSink) Notify(ctx context.Context, req *entity.ApprovalRequest, eventType string) error {
	return s.deliver(ctx, webhookEvent{
		Event:           eventType,
		RequestID:       req.ID,
		PurchaseOrderID: req.PurchaseOrderID,
		Request:         req,
		Timestamp:       time.Now().UTC(),
	})
}

// SendOverdueReminder delivers an overdue reminder batch to the webhook endpoint
func (s *WebhookSink) SendOverdueReminder(ctx context.Context, reqs []*entity.ApprovalRequest, recipients []entity.Role, daysOverdue int) error {
	ids := make([]string, 0, len(reqs))
	for _, req := range reqs {
		ids = append(ids, req.ID)
	}

	return s.deliver(ctx, webhookEvent{
		Event:       "reminder.overdue",
		RequestIDs:  ids,
		Recipients:  recipients,
		DaysOverdue: daysOverdue,
		Timestamp:   time.Now().UTC(),
	})
}

func (s *WebhookSink) deliver(ctx context.Context, evt webhookEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if s.secret != "" {
		timestamp := strconv.FormatInt(evt.Timestamp.Unix(), 10)
		req.Header.Set("X-Timestamp", timestamp)
		req.Header.Set("X-Signature", s.sign(timestamp, body))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		s.logger.Error("Webhook endpoint rejected delivery",
			zap.String("event", evt.Event), zap.Int("status", resp.StatusCode))
		return fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}

	return nil
}

// sign computes the hex HMAC-SHA256 of timestamp + body
func (s *WebhookSink) sign(timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify interface compliance
var _ port.NotificationSink = (*WebhookSink)(nil)
