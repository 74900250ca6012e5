package service

import (
	"context"
	"fmt"

	"github.com/procurekit/approval-engine/internal/application/port"
	"github.com/procurekit/approval-engine/internal/domain/entity"
)

// StatsService computes read-side aggregates over the persisted request set
type StatsService interface {
	Compute(ctx context.Context) (*Statistics, error)
}

type statsServiceImpl struct {
	requests port.RequestRepository
	logger   Logger
}

// NewStatsService creates a new StatsService
func NewStatsService(requests port.RequestRepository, logger Logger) StatsService {
	return &statsServiceImpl{requests: requests, logger: logger}
}

// Compute aggregates counts and the average approval latency in hours.
// Latency is measured from creation to the decision that completed the
// quorum, over approved requests only.
func (s *statsServiceImpl) Compute(ctx context.Context) (*Statistics, error) {
	all, err := s.requests.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}

	stats := &Statistics{
		Total:       len(all),
		ByStatus:    make(map[entity.Status]int),
		ByPriority:  make(map[entity.Priority]int),
		ByThreshold: make(map[string]int),
	}

	var latencyHours float64
	var approved int

	for _, req := range all {
		stats.ByStatus[req.Status]++
		stats.ByPriority[req.Priority]++
		stats.ByThreshold[req.Threshold.Name]++

		if req.Status != entity.StatusApproved {
			continue
		}
		if final := req.FinalApprovalAt(); final != nil {
			latencyHours += final.Sub(req.CreatedAt).Hours()
			approved++
		}
	}

	if approved > 0 {
		stats.AverageApprovalHours = latencyHours / float64(approved)
	}

	return stats, nil
}
