package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurekit/approval-engine/internal/domain/entity"
)

func TestCompute_EmptySet(t *testing.T) {
	repo := newMemRequestRepo()
	stats, err := NewStatsService(repo, nopLogger{}).Compute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Total)
	assert.Zero(t, stats.AverageApprovalHours)
}

func TestCompute_CountsAndLatency(t *testing.T) {
	th := standardThreshold()
	th.RequiredApprovers = 1
	f := newRequestFixture(&stubProvider{thresholds: []entity.ApprovalThreshold{th}})

	// Approved after 2 hours.
	fast, err := f.service.Create(context.Background(), midRangeOrder(), Actor{ID: "a"})
	require.NoError(t, err)
	f.clock.Advance(2 * time.Hour)
	_, err = f.service.SubmitDecision(context.Background(), fast.ID, entity.ApprovalDecision{
		Approved: true, ApproverID: "bob", ApproverRole: entity.RoleManager,
	})
	require.NoError(t, err)

	// Approved after 4 hours.
	slow, err := f.service.Create(context.Background(), midRangeOrder(), Actor{ID: "a"})
	require.NoError(t, err)
	f.clock.Advance(4 * time.Hour)
	_, err = f.service.SubmitDecision(context.Background(), slow.ID, entity.ApprovalDecision{
		Approved: true, ApproverID: "bob", ApproverRole: entity.RoleManager,
	})
	require.NoError(t, err)

	// Rejected: excluded from latency.
	rejected, err := f.service.Create(context.Background(), midRangeOrder(), Actor{ID: "a"})
	require.NoError(t, err)
	_, err = f.service.SubmitDecision(context.Background(), rejected.ID, entity.ApprovalDecision{
		Approved: false, ApproverID: "bob", ApproverRole: entity.RoleManager,
	})
	require.NoError(t, err)

	// Still pending: excluded from latency.
	_, err = f.service.Create(context.Background(), midRangeOrder(), Actor{ID: "a"})
	require.NoError(t, err)

	stats, err := NewStatsService(f.repo, nopLogger{}).Compute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.ByStatus[entity.StatusApproved])
	assert.Equal(t, 1, stats.ByStatus[entity.StatusRejected])
	assert.Equal(t, 1, stats.ByStatus[entity.StatusPending])
	assert.Equal(t, 4, stats.ByPriority[entity.PriorityMedium])
	assert.Equal(t, 4, stats.ByThreshold["Mid-range purchases"])
	assert.InDelta(t, 3.0, stats.AverageApprovalHours, 0.001, "(2h + 4h) / 2 approved")
}

func TestCompute_QuorumLatencyUsesFinalApproval(t *testing.T) {
	f := newRequestFixture(&stubProvider{thresholds: []entity.ApprovalThreshold{standardThreshold()}})

	req, err := f.service.Create(context.Background(), midRangeOrder(), Actor{ID: "a"})
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	_, err = f.service.SubmitDecision(context.Background(), req.ID, entity.ApprovalDecision{
		Approved: true, ApproverID: "bob", ApproverRole: entity.RoleManager,
	})
	require.NoError(t, err)

	// Quorum completes at +6h; that is the latency, not the first decision.
	f.clock.Advance(5 * time.Hour)
	_, err = f.service.SubmitDecision(context.Background(), req.ID, entity.ApprovalDecision{
		Approved: true, ApproverID: "carol", ApproverRole: entity.RoleAdmin,
	})
	require.NoError(t, err)

	stats, err := NewStatsService(f.repo, nopLogger{}).Compute(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 6.0, stats.AverageApprovalHours, 0.001)
}
