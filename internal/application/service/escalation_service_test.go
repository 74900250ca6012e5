package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurekit/approval-engine/internal/application/dispatcher"
	"github.com/procurekit/approval-engine/internal/domain/entity"
)

func twoLevelLadder() []entity.EscalationLevel {
	return []entity.EscalationLevel{
		{
			Level:      1,
			AfterHours: 12,
			Recipients: []entity.Recipient{{Type: entity.RecipientRole, Value: "director"}},
			Priority:   entity.PriorityHigh,
		},
		{
			Level:      2,
			AfterHours: 12,
			Recipients: []entity.Recipient{
				{Type: entity.RecipientRole, Value: "admin"},
				{Type: entity.RecipientUser, Value: "cfo@example.com"},
			},
			Priority: entity.PriorityUrgent,
		},
	}
}

type escalationFixture struct {
	requests    RequestService
	escalations EscalationService
	repo        *memRequestRepo
	escRepo     *memEscalationRepo
	clock       *fakeClock
	notifier    *mockNotifier
}

func newEscalationFixture(levels []entity.EscalationLevel) *escalationFixture {
	provider := &stubProvider{
		thresholds: []entity.ApprovalThreshold{standardThreshold()},
		levels:     levels,
	}
	repo := newMemRequestRepo()
	escRepo := &memEscalationRepo{}
	clock := newFakeClock(testStart)
	notifier := &mockNotifier{}
	events := dispatcher.NewDispatcher()
	locks := NewKeyedMutex()

	return &escalationFixture{
		requests:    NewRequestService(repo, escRepo, provider, clock, events, locks, nopLogger{}),
		escalations: NewEscalationService(repo, escRepo, nopTxManager{}, provider, notifier, clock, events, locks, nopLogger{}),
		repo:        repo,
		escRepo:     escRepo,
		clock:       clock,
		notifier:    notifier,
	}
}

func (f *escalationFixture) createRequest(t *testing.T) *entity.ApprovalRequest {
	t.Helper()
	req, err := f.requests.Create(context.Background(), midRangeOrder(), Actor{ID: "alice"})
	require.NoError(t, err)
	require.NotNil(t, req)
	return req
}

func TestProcessEscalations_FirstLevel(t *testing.T) {
	f := newEscalationFixture(twoLevelLadder())
	req := f.createRequest(t)

	// Threshold deadline is 24h; 25h elapsed makes it overdue.
	f.clock.Advance(25 * time.Hour)

	escs, err := f.escalations.ProcessEscalations(context.Background())
	require.NoError(t, err)
	require.Len(t, escs, 1)

	esc := escs[0]
	assert.Equal(t, req.ID, esc.RequestID)
	assert.Equal(t, 1, esc.Level)
	assert.Equal(t, entity.EscalationTimeout, esc.Reason)
	assert.Equal(t, []entity.Role{entity.RoleDirector}, esc.EscalatedTo)

	stored, err := f.requests.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusEscalated, stored.Status)
	assert.Equal(t, 1, stored.EscalationLevel)
	assert.Equal(t, entity.PriorityHigh, stored.Priority)
	require.NotNil(t, stored.EscalatedAt)
	require.NotNil(t, stored.ExpiresAt)
	assert.Equal(t, stored.EscalatedAt.Add(12*time.Hour), *stored.ExpiresAt)
}

func TestProcessEscalations_IdempotentWithinWindow(t *testing.T) {
	f := newEscalationFixture(twoLevelLadder())
	f.createRequest(t)
	f.clock.Advance(25 * time.Hour)

	escs, err := f.escalations.ProcessEscalations(context.Background())
	require.NoError(t, err)
	require.Len(t, escs, 1)

	// Re-running without elapsed time must not double-escalate.
	escs, err = f.escalations.ProcessEscalations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, escs)
}

func TestProcessEscalations_LevelWithoutDelayParksRequest(t *testing.T) {
	// Config validation rejects after_hours below 1, but the scan must stay
	// idempotent even when the provider hands out a zero-delay level: the
	// request parks at that level instead of re-entering the candidate set.
	levels := []entity.EscalationLevel{
		{
			Level:      1,
			AfterHours: 0,
			Recipients: []entity.Recipient{{Type: entity.RecipientRole, Value: "director"}},
			Priority:   entity.PriorityHigh,
		},
		{
			Level:      2,
			AfterHours: 0,
			Recipients: []entity.Recipient{{Type: entity.RecipientRole, Value: "admin"}},
			Priority:   entity.PriorityUrgent,
		},
	}
	f := newEscalationFixture(levels)
	req := f.createRequest(t)
	f.clock.Advance(25 * time.Hour)

	escs, err := f.escalations.ProcessEscalations(context.Background())
	require.NoError(t, err)
	require.Len(t, escs, 1)
	assert.Equal(t, 1, escs[0].Level)

	stored, err := f.requests.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ExpiresAt, "a zero-delay level clears the old deadline")

	// Re-running with no elapsed time must not climb the ladder.
	escs, err = f.escalations.ProcessEscalations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, escs)

	stored, err = f.requests.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.EscalationLevel)
	assert.Equal(t, entity.StatusEscalated, stored.Status)
}

func TestProcessEscalations_LevelsAreMonotonic(t *testing.T) {
	f := newEscalationFixture(twoLevelLadder())
	req := f.createRequest(t)

	f.clock.Advance(25 * time.Hour)
	escs, err := f.escalations.ProcessEscalations(context.Background())
	require.NoError(t, err)
	require.Len(t, escs, 1)
	assert.Equal(t, 1, escs[0].Level)

	// Past the level-1 deadline the request climbs to level 2.
	f.clock.Advance(13 * time.Hour)
	escs, err = f.escalations.ProcessEscalations(context.Background())
	require.NoError(t, err)
	require.Len(t, escs, 1)
	assert.Equal(t, 2, escs[0].Level)
	assert.ElementsMatch(t, []entity.Role{entity.RoleAdmin}, escs[0].EscalatedTo,
		"user recipients are not part of the resolved role set")

	history, err := f.requests.GetEscalations(context.Background(), req.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Less(t, history[0].Level, history[1].Level)
}

func TestProcessEscalations_ExhaustedLaddersExpire(t *testing.T) {
	f := newEscalationFixture(twoLevelLadder())
	req := f.createRequest(t)

	// Walk through both levels, then past the last deadline.
	f.clock.Advance(25 * time.Hour)
	_, err := f.escalations.ProcessEscalations(context.Background())
	require.NoError(t, err)
	f.clock.Advance(13 * time.Hour)
	_, err = f.escalations.ProcessEscalations(context.Background())
	require.NoError(t, err)
	f.clock.Advance(13 * time.Hour)

	escs, err := f.escalations.ProcessEscalations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, escs, "expiry produces no escalation record")

	stored, err := f.requests.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusExpired, stored.Status)

	// Expired is terminal: further scans leave the request alone.
	f.clock.Advance(100 * time.Hour)
	escs, err = f.escalations.ProcessEscalations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, escs)

	stored, err = f.requests.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusExpired, stored.Status)
}

func TestProcessEscalations_NoLevelsConfigured(t *testing.T) {
	f := newEscalationFixture(nil)
	req := f.createRequest(t)
	f.clock.Advance(25 * time.Hour)

	escs, err := f.escalations.ProcessEscalations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, escs)

	stored, err := f.requests.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusExpired, stored.Status)
}

func TestProcessEscalations_EscalatedRequestBlocksDecisions(t *testing.T) {
	f := newEscalationFixture(twoLevelLadder())
	req := f.createRequest(t)
	f.clock.Advance(25 * time.Hour)

	_, err := f.escalations.ProcessEscalations(context.Background())
	require.NoError(t, err)

	_, err = f.requests.SubmitDecision(context.Background(), req.ID, entity.ApprovalDecision{
		Approved: true, ApproverID: "bob", ApproverRole: entity.RoleManager,
	})
	assert.ErrorIs(t, err, entity.ErrInvalidStatus)
}

func TestEscalate_Manual(t *testing.T) {
	f := newEscalationFixture(twoLevelLadder())
	req := f.createRequest(t)

	// Manual escalation does not wait for the deadline.
	esc, err := f.escalations.Escalate(context.Background(), req.ID, entity.EscalationManual)
	require.NoError(t, err)
	assert.Equal(t, 1, esc.Level)
	assert.Equal(t, entity.EscalationManual, esc.Reason)

	stored, err := f.requests.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusEscalated, stored.Status)
}

func TestEscalate_ManualOnUnknownRequest(t *testing.T) {
	f := newEscalationFixture(twoLevelLadder())

	_, err := f.escalations.Escalate(context.Background(), "no-such-id", entity.EscalationManual)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestSendOverdueReminders(t *testing.T) {
	f := newEscalationFixture(twoLevelLadder())
	f.createRequest(t)

	f.clock.Advance(24*time.Hour + 49*time.Hour) // two full days past the deadline

	sent, err := f.escalations.SendOverdueReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	require.Len(t, f.notifier.reminders, 1)
	call := f.notifier.reminders[0]
	assert.Equal(t, 2, call.daysOverdue)
	assert.ElementsMatch(t, []entity.Role{entity.RoleManager, entity.RoleAdmin}, call.recipients)
}

func TestSendOverdueReminders_SinkFailureIsSwallowed(t *testing.T) {
	f := newEscalationFixture(twoLevelLadder())
	f.createRequest(t)
	f.clock.Advance(25 * time.Hour)
	f.notifier.fail = true

	sent, err := f.escalations.SendOverdueReminders(context.Background())
	require.NoError(t, err, "sink failures never fail the operation")
	assert.Equal(t, 0, sent)
}
