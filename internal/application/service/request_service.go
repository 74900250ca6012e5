package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/procurekit/approval-engine/internal/application/dispatcher"
	"github.com/procurekit/approval-engine/internal/application/port"
	"github.com/procurekit/approval-engine/internal/domain/entity"
	"github.com/procurekit/approval-engine/internal/domain/event"
	"github.com/procurekit/approval-engine/internal/domain/schedule"
	"github.com/procurekit/approval-engine/internal/domain/threshold"
	"github.com/procurekit/approval-engine/internal/domain/workflow"
)

// systemApproverID marks synthetic decisions recorded on auto-approved
// thresholds.
const systemApproverID = "system"

// RequestService manages the approval request lifecycle
type RequestService interface {
	// Create resolves a threshold for the order and opens an approval
	// request. It returns (nil, nil) when no threshold matches: the order
	// needs no approval gate and the caller decides the semantics.
	Create(ctx context.Context, order CreateOrder, initiator Actor) (*entity.ApprovalRequest, error)

	// SubmitDecision records one approver's verdict and advances the
	// request through quorum or rejection.
	SubmitDecision(ctx context.Context, requestID string, decision entity.ApprovalDecision) (*DecisionResult, error)

	GetByID(ctx context.Context, id string) (*entity.ApprovalRequest, error)
	GetByPurchaseOrder(ctx context.Context, purchaseOrderID string) ([]*entity.ApprovalRequest, error)
	GetPendingForRole(ctx context.Context, role entity.Role) ([]*entity.ApprovalRequest, error)
	GetOverdue(ctx context.Context) ([]*entity.ApprovalRequest, error)
	GetEscalations(ctx context.Context, requestID string) ([]*entity.ApprovalEscalation, error)

	// Cleanup removes terminal-status requests older than the given age and
	// returns how many were deleted. Pending and escalated requests are
	// never removed.
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

type requestServiceImpl struct {
	requests    port.RequestRepository
	escalations port.EscalationRepository
	provider    port.ConfigurationProvider
	clock       port.Clock
	events      dispatcher.Dispatcher
	locks       *KeyedMutex
	logger      Logger
}

// NewRequestService creates a new RequestService. The keyed mutex must be
// shared with the escalation service so mutations of one request id are
// serialized across both.
func NewRequestService(
	requests port.RequestRepository,
	escalations port.EscalationRepository,
	provider port.ConfigurationProvider,
	clock port.Clock,
	events dispatcher.Dispatcher,
	locks *KeyedMutex,
	logger Logger,
) RequestService {
	return &requestServiceImpl{
		requests:    requests,
		escalations: escalations,
		provider:    provider,
		clock:       clock,
		events:      events,
		locks:       locks,
		logger:      logger,
	}
}

// Create resolves a threshold and opens an approval request
func (s *requestServiceImpl) Create(ctx context.Context, order CreateOrder, initiator Actor) (*entity.ApprovalRequest, error) {
	thresholds, err := s.provider.Thresholds(ctx)
	if err != nil {
		return nil, fmt.Errorf("load thresholds: %w", err)
	}

	match, ok := threshold.Resolve(order.AmountCents, order.Attributes, thresholds)
	if !ok {
		s.logger.Info("No threshold matched, no approval gate required",
			"purchase_order_id", order.PurchaseOrderID,
			"amount_cents", order.AmountCents)
		return nil, nil
	}

	now := s.clock.Now()
	req := &entity.ApprovalRequest{
		ID:                uuid.NewString(),
		PurchaseOrderID:   order.PurchaseOrderID,
		Threshold:         *match,
		RequiredApprovals: match.RequiredApprovers,
		Decisions:         []entity.ApprovalDecision{},
		Status:            entity.StatusPending,
		CreatedAt:         now,
		Priority:          match.Priority,
		Metadata:          order.Metadata,
	}

	if match.EscalationTimeHours > 0 {
		cal, err := s.holidayCalendar(ctx, match)
		if err != nil {
			return nil, err
		}
		deadline := schedule.Deadline(now, match.EscalationTimeHours, match.SkipWeekends, match.SkipHolidays, cal)
		req.ExpiresAt = &deadline
	}

	if match.AutoApprove {
		req.Decisions = append(req.Decisions, entity.ApprovalDecision{
			Approved:   true,
			ApproverID: systemApproverID,
			DecidedAt:  now,
			Reason:     "auto-approved by threshold " + match.Name,
		})
		req.RequiredApprovals = 1
		req.Status = entity.StatusApproved
	}

	if err := s.requests.Create(ctx, req); err != nil {
		s.logger.Error("Failed to create request", "error", err, "purchase_order_id", order.PurchaseOrderID)
		return nil, fmt.Errorf("create request: %w", err)
	}

	s.logger.Info("Approval request created",
		"request_id", req.ID,
		"purchase_order_id", req.PurchaseOrderID,
		"threshold", match.Name,
		"required_approvals", req.RequiredApprovals,
		"status", req.Status)

	s.events.DispatchAsync(ctx, event.New(event.TypeRequestCreated, req, initiator.ID))
	if req.Status == entity.StatusApproved {
		s.events.DispatchAsync(ctx, event.New(event.TypeRequestApproved, req, systemApproverID))
	}

	return req, nil
}

// SubmitDecision records a decision and advances quorum state
func (s *requestServiceImpl) SubmitDecision(ctx context.Context, requestID string, decision entity.ApprovalDecision) (*DecisionResult, error) {
	s.locks.Lock(requestID)
	defer s.locks.Unlock(requestID)

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("request %s: %w", requestID, entity.ErrNotFound)
	}

	// Decisions are only accepted while pending. Escalation moves the
	// request out of pending and freezes further approvals.
	if req.Status != entity.StatusPending {
		return nil, fmt.Errorf("request %s is %s: %w", requestID, req.Status, entity.ErrInvalidStatus)
	}
	if !req.Threshold.AllowsRole(decision.ApproverRole) {
		return nil, fmt.Errorf("role %s on request %s: %w", decision.ApproverRole, requestID, entity.ErrUnauthorizedRole)
	}
	if req.HasDecisionFrom(decision.ApproverID) {
		return nil, fmt.Errorf("approver %s on request %s: %w", decision.ApproverID, requestID, entity.ErrDuplicateDecision)
	}

	if decision.DecidedAt.IsZero() {
		decision.DecidedAt = s.clock.Now()
	}

	req.Decisions = append(req.Decisions, decision)

	lifecycle := workflow.NewLifecycle(workflow.StateOf(req.Status))
	result := &DecisionResult{Request: req}

	switch {
	case !decision.Approved:
		if err := lifecycle.Fire(ctx, workflow.TriggerReject); err != nil {
			return nil, err
		}
		req.Status = lifecycle.State().Status()
		result.Message = "request rejected"

	case req.RemainingApprovals() == 0:
		if err := lifecycle.Fire(ctx, workflow.TriggerApprove); err != nil {
			return nil, err
		}
		req.Status = lifecycle.State().Status()
		result.Message = "request approved"

	default:
		result.Remaining = req.RemainingApprovals()
		result.Message = fmt.Sprintf("%d more approval(s) required", result.Remaining)
	}
	result.Status = req.Status

	if err := s.requests.Update(ctx, req); err != nil {
		s.logger.Error("Failed to persist decision", "error", err, "request_id", requestID)
		return nil, err
	}

	s.logger.Info("Decision recorded",
		"request_id", requestID,
		"approver_id", decision.ApproverID,
		"approved", decision.Approved,
		"status", req.Status,
		"remaining", result.Remaining)

	s.events.DispatchAsync(ctx, event.New(event.TypeDecisionRecorded, req, decision.ApproverID).
		WithPayload("approved", decision.Approved))
	switch req.Status {
	case entity.StatusApproved:
		s.events.DispatchAsync(ctx, event.New(event.TypeRequestApproved, req, decision.ApproverID))
	case entity.StatusRejected:
		s.events.DispatchAsync(ctx, event.New(event.TypeRequestRejected, req, decision.ApproverID))
	}

	return result, nil
}

// GetByID retrieves a request by id
func (s *requestServiceImpl) GetByID(ctx context.Context, id string) (*entity.ApprovalRequest, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("request %s: %w", id, entity.ErrNotFound)
	}
	return req, nil
}

// GetByPurchaseOrder returns all requests for a purchase order, newest first
func (s *requestServiceImpl) GetByPurchaseOrder(ctx context.Context, purchaseOrderID string) ([]*entity.ApprovalRequest, error) {
	return s.requests.ListByPurchaseOrder(ctx, purchaseOrderID)
}

// GetPendingForRole returns pending requests decidable by the role, ordered
// by priority weight (urgent first), then oldest first within a weight.
func (s *requestServiceImpl) GetPendingForRole(ctx context.Context, role entity.Role) ([]*entity.ApprovalRequest, error) {
	pending, err := s.requests.ListByStatus(ctx, entity.StatusPending)
	if err != nil {
		return nil, err
	}

	matched := make([]*entity.ApprovalRequest, 0, len(pending))
	for _, req := range pending {
		if req.Threshold.AllowsRole(role) {
			matched = append(matched, req)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		wi, wj := matched[i].Priority.Weight(), matched[j].Priority.Weight()
		if wi != wj {
			return wi < wj
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	return matched, nil
}

// GetOverdue returns pending requests past their deadline, soonest first
func (s *requestServiceImpl) GetOverdue(ctx context.Context) ([]*entity.ApprovalRequest, error) {
	return s.requests.ListOverdue(ctx, s.clock.Now())
}

// GetEscalations returns the escalation history of a request
func (s *requestServiceImpl) GetEscalations(ctx context.Context, requestID string) ([]*entity.ApprovalEscalation, error) {
	return s.escalations.ListByRequest(ctx, requestID)
}

// Cleanup removes terminal requests older than the given age
func (s *requestServiceImpl) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.clock.Now().Add(-olderThan)
	deleted, err := s.requests.DeleteTerminalOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("Cleanup failed", "error", err)
		return 0, err
	}

	if deleted > 0 {
		s.logger.Info("Retention cleanup completed", "deleted", deleted, "cutoff", cutoff)
	}
	return deleted, nil
}

func (s *requestServiceImpl) holidayCalendar(ctx context.Context, t *entity.ApprovalThreshold) (*schedule.Calendar, error) {
	if !t.SkipHolidays {
		return nil, nil
	}
	holidays, err := s.provider.Holidays(ctx)
	if err != nil {
		return nil, fmt.Errorf("load holidays: %w", err)
	}
	return schedule.NewCalendar(holidays), nil
}
