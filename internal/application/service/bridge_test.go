package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurekit/approval-engine/internal/application/dispatcher"
	"github.com/procurekit/approval-engine/internal/domain/entity"
)

func TestSinkBridge_ForwardsLifecycleEvents(t *testing.T) {
	events := dispatcher.NewDispatcher()
	notifier := &mockNotifier{}
	audit := &mockAuditSink{}
	RegisterSinkBridge(events, notifier, audit)

	th := standardThreshold()
	repo := newMemRequestRepo()
	svc := NewRequestService(repo, &memEscalationRepo{}, &stubProvider{thresholds: []entity.ApprovalThreshold{th}},
		newFakeClock(testStart), events, NewKeyedMutex(), nopLogger{})

	req, err := svc.Create(context.Background(), midRangeOrder(), Actor{ID: "alice"})
	require.NoError(t, err)

	_, err = svc.SubmitDecision(context.Background(), req.ID, entity.ApprovalDecision{
		Approved: false, ApproverID: "bob", ApproverRole: entity.RoleManager,
	})
	require.NoError(t, err)

	// Close waits for the async handlers to drain.
	require.NoError(t, events.Close())

	assert.Contains(t, notifier.notified, "request.created")
	assert.Contains(t, notifier.notified, "request.decision_recorded")
	assert.Contains(t, notifier.notified, "request.rejected")

	actions := make(map[string]int)
	for _, e := range audit.entries {
		actions[e.Action]++
		assert.Equal(t, "po-1001", e.PurchaseOrderID)
		assert.Equal(t, req.ID, e.RequestID)
	}
	assert.Equal(t, 1, actions[entity.AuditActionCreated])
	assert.Equal(t, 1, actions[entity.AuditActionDecision])
	assert.Equal(t, 1, actions[entity.AuditActionRejected])
}

func TestSinkBridge_SinkFailureDoesNotFailTransition(t *testing.T) {
	events := dispatcher.NewDispatcher()
	notifier := &mockNotifier{fail: true}
	RegisterSinkBridge(events, notifier, &mockAuditSink{})

	repo := newMemRequestRepo()
	svc := NewRequestService(repo, &memEscalationRepo{}, &stubProvider{thresholds: []entity.ApprovalThreshold{standardThreshold()}},
		newFakeClock(testStart), events, NewKeyedMutex(), nopLogger{})

	req, err := svc.Create(context.Background(), midRangeOrder(), Actor{ID: "alice"})
	require.NoError(t, err, "notification failure must not abort creation")
	require.NotNil(t, req)
	require.NoError(t, events.Close())

	stored, err := svc.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPending, stored.Status)
}
