package service

import (
	"context"
	"sync"

	"github.com/procurekit/approval-engine/internal/domain/entity"
)

// BulkService fans decisions out across many requests. Requests are
// independent aggregates, so items run with bounded concurrency and
// per-item failures never abort the batch.
type BulkService interface {
	BulkApprove(ctx context.Context, requestIDs []string, approver Actor, reason string) *BulkResult
	BulkReject(ctx context.Context, requestIDs []string, approver Actor, reason string) *BulkResult
}

type bulkServiceImpl struct {
	requests    RequestService
	concurrency int
	logger      Logger
}

// NewBulkService creates a new BulkService with the given fan-out width.
func NewBulkService(requests RequestService, concurrency int, logger Logger) BulkService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &bulkServiceImpl{
		requests:    requests,
		concurrency: concurrency,
		logger:      logger,
	}
}

// BulkApprove submits an approving decision for every id
func (s *bulkServiceImpl) BulkApprove(ctx context.Context, requestIDs []string, approver Actor, reason string) *BulkResult {
	return s.fanOut(ctx, requestIDs, approver, reason, true)
}

// BulkReject submits a rejecting decision for every id
func (s *bulkServiceImpl) BulkReject(ctx context.Context, requestIDs []string, approver Actor, reason string) *BulkResult {
	return s.fanOut(ctx, requestIDs, approver, reason, false)
}

func (s *bulkServiceImpl) fanOut(ctx context.Context, requestIDs []string, approver Actor, reason string, approved bool) *BulkResult {
	type outcome struct {
		id  string
		err error
	}

	outcomes := make([]outcome, len(requestIDs))
	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup

	for i, id := range requestIDs {
		wg.Add(1)
		sem <- struct{}{}

		go func(i int, id string) {
			defer wg.Done()
			defer func() { <-sem }()

			_, err := s.requests.SubmitDecision(ctx, id, entity.ApprovalDecision{
				Approved:      approved,
				ApproverID:    approver.ID,
				ApproverRole:  approver.Role,
				ApproverEmail: approver.Email,
				Reason:        reason,
			})
			outcomes[i] = outcome{id: id, err: err}
		}(i, id)
	}
	wg.Wait()

	result := &BulkResult{
		Successful: []string{},
		Failed:     []BulkFailure{},
	}
	for _, o := range outcomes {
		if o.err != nil {
			result.Failed = append(result.Failed, BulkFailure{ID: o.id, Error: o.err.Error()})
			continue
		}
		result.Successful = append(result.Successful, o.id)
	}

	s.logger.Info("Bulk decision completed",
		"approved", approved,
		"total", len(requestIDs),
		"successful", len(result.Successful),
		"failed", len(result.Failed))
	return result
}
