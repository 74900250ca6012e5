package notification

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/procurekit/approval-engine/internal/domain/entity"
)

func testRequest() *entity.ApprovalRequest {
	return &entity.ApprovalRequest{
		ID:              "req-1",
		PurchaseOrderID: "po-1001",
		Status:          entity.StatusPending,
		Priority:        entity.PriorityMedium,
	}
}

func TestWebhookSink_DeliversSignedPayload(t *testing.T) {
	var gotBody []byte
	var gotSignature, gotTimestamp string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSignature = r.Header.Get("X-Signature")
		gotTimestamp = r.Header.Get("X-Timestamp")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, "s3cret", 5*time.Second, zap.NewNop())
	require.NoError(t, sink.Notify(context.Background(), testRequest(), "request.created"))

	var evt webhookEvent
	require.NoError(t, json.Unmarshal(gotBody, &evt))
	assert.Equal(t, "request.created", evt.Event)
	assert.Equal(t, "req-1", evt.RequestID)
	assert.Equal(t, "po-1001", evt.PurchaseOrderID)

	mac := hmac.New(sha256.New, []byte("s3cret"))
	mac.Write([]byte(gotTimestamp))
	mac.Write(gotBody)
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), gotSignature)
}

func TestWebhookSink_NoSignatureWithoutSecret(t *testing.T) {
	var gotSignature string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get("X-Signature")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, "", 5*time.Second, zap.NewNop())
	require.NoError(t, sink.Notify(context.Background(), testRequest(), "request.created"))
	assert.Empty(t, gotSignature)
}

func TestWebhookSink_RejectedDeliveryIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, "", 5*time.Second, zap.NewNop())
	err := sink.Notify(context.Background(), testRequest(), "request.created")
	assert.ErrorContains(t, err, "status 500")
}

func TestWebhookSink_OverdueReminderPayload(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, "", 5*time.Second, zap.NewNop())
	err := sink.SendOverdueReminder(context.Background(),
		[]*entity.ApprovalRequest{testRequest()},
		[]entity.Role{entity.RoleManager}, 2)
	require.NoError(t, err)

	var evt webhookEvent
	require.NoError(t, json.Unmarshal(gotBody, &evt))
	assert.Equal(t, "reminder.overdue", evt.Event)
	assert.Equal(t, []string{"req-1"}, evt.RequestIDs)
	assert.Equal(t, []entity.Role{entity.RoleManager}, evt.Recipients)
	assert.Equal(t, 2, evt.DaysOverdue)
}

func TestMultiSink_AttemptsEverySink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	failing := NewWebhookSink(srv.URL, "", 5*time.Second, zap.NewNop())

	var delivered bool
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delivered = true
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()
	working := NewWebhookSink(ok.URL, "", 5*time.Second, zap.NewNop())

	multi := NewMultiSink(failing, working)
	err := multi.Notify(context.Background(), testRequest(), "request.created")
	assert.Error(t, err, "the failing sink's error surfaces")
	assert.True(t, delivered, "later sinks still run")
}
