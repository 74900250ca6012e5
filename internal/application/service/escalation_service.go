package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/procurekit/approval-engine/internal/application/dispatcher"
	"github.com/procurekit/approval-engine/internal/application/port"
	"github.com/procurekit/approval-engine/internal/domain/entity"
	"github.com/procurekit/approval-engine/internal/domain/event"
	"github.com/procurekit/approval-engine/internal/domain/workflow"
)

// EscalationService advances overdue requests through the escalation ladder
type EscalationService interface {
	// ProcessEscalations scans for overdue requests and escalates each to
	// its next level, or expires it when the ladder is exhausted. The scan
	// is a discrete batch job, safe to re-run in overlapping windows.
	ProcessEscalations(ctx context.Context) ([]*entity.ApprovalEscalation, error)

	// Escalate forces a single request up one level outside the timeout
	// path (manual intervention or a business rule).
	Escalate(ctx context.Context, requestID string, reason entity.EscalationReason) (*entity.ApprovalEscalation, error)

	// SendOverdueReminders notifies threshold approvers about overdue
	// pending requests, grouped by how many days they are overdue.
	SendOverdueReminders(ctx context.Context) (int, error)
}

type escalationServiceImpl struct {
	requests    port.RequestRepository
	escalations port.EscalationRepository
	tx          port.TransactionManager
	provider    port.ConfigurationProvider
	notifier    port.NotificationSink
	clock       port.Clock
	events      dispatcher.Dispatcher
	locks       *KeyedMutex
	logger      Logger
}

// NewEscalationService creates a new EscalationService sharing the keyed
// mutex with the request service.
func NewEscalationService(
	requests port.RequestRepository,
	escalations port.EscalationRepository,
	tx port.TransactionManager,
	provider port.ConfigurationProvider,
	notifier port.NotificationSink,
	clock port.Clock,
	events dispatcher.Dispatcher,
	locks *KeyedMutex,
	logger Logger,
) EscalationService {
	return &escalationServiceImpl{
		requests:    requests,
		escalations: escalations,
		tx:          tx,
		provider:    provider,
		notifier:    notifier,
		clock:       clock,
		events:      events,
		locks:       locks,
		logger:      logger,
	}
}

// ProcessEscalations scans overdue requests and advances or expires them
func (s *escalationServiceImpl) ProcessEscalations(ctx context.Context) ([]*entity.ApprovalEscalation, error) {
	now := s.clock.Now()

	candidates, err := s.requests.ListEscalatable(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list escalatable requests: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	levels, err := s.provider.EscalationLevels(ctx)
	if err != nil {
		return nil, fmt.Errorf("load escalation levels: %w", err)
	}

	var produced []*entity.ApprovalEscalation
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return produced, err
		}

		esc, err := s.escalateOne(ctx, candidate.ID, levels, entity.EscalationTimeout)
		if err != nil {
			// Per-id failures never abort the batch.
			s.logger.Error("Escalation failed", "error", err, "request_id", candidate.ID)
			continue
		}
		if esc != nil {
			produced = append(produced, esc)
		}
	}

	s.logger.Info("Escalation scan completed",
		"candidates", len(candidates),
		"escalated", len(produced))
	return produced, nil
}

// Escalate forces one request up a level outside the timeout path
func (s *escalationServiceImpl) Escalate(ctx context.Context, requestID string, reason entity.EscalationReason) (*entity.ApprovalEscalation, error) {
	levels, err := s.provider.EscalationLevels(ctx)
	if err != nil {
		return nil, fmt.Errorf("load escalation levels: %w", err)
	}

	esc, err := s.escalateManual(ctx, requestID, levels, reason)
	if err != nil {
		return nil, err
	}
	if esc == nil {
		return nil, fmt.Errorf("request %s has no further escalation level: %w", requestID, entity.ErrInvalidStatus)
	}
	return esc, nil
}

// escalateOne advances a single overdue request under its per-id lock,
// re-reading state so a decision racing the scan wins cleanly. A nil
// escalation with nil error means the request expired or was no longer a
// candidate.
func (s *escalationServiceImpl) escalateOne(ctx context.Context, requestID string, levels []entity.EscalationLevel, reason entity.EscalationReason) (*entity.ApprovalEscalation, error) {
	s.locks.Lock(requestID)
	defer s.locks.Unlock(requestID)

	now := s.clock.Now()

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("request %s: %w", requestID, entity.ErrNotFound)
	}
	if req.Status.IsTerminal() || !req.IsOverdue(now) {
		return nil, nil
	}

	return s.advance(ctx, req, levels, reason, now)
}

// escalateManual is the non-timeout path: the request need not be overdue,
// only non-terminal.
func (s *escalationServiceImpl) escalateManual(ctx context.Context, requestID string, levels []entity.EscalationLevel, reason entity.EscalationReason) (*entity.ApprovalEscalation, error) {
	s.locks.Lock(requestID)
	defer s.locks.Unlock(requestID)

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("request %s: %w", requestID, entity.ErrNotFound)
	}
	if req.Status.IsTerminal() {
		return nil, fmt.Errorf("request %s is %s: %w", requestID, req.Status, entity.ErrInvalidStatus)
	}

	return s.advance(ctx, req, levels, reason, s.clock.Now())
}

// advance moves the request to its next escalation level or expires it.
func (s *escalationServiceImpl) advance(ctx context.Context, req *entity.ApprovalRequest, levels []entity.EscalationLevel, reason entity.EscalationReason, now time.Time) (*entity.ApprovalEscalation, error) {
	nextLevel := req.EscalationLevel + 1
	level, ok := findLevel(levels, nextLevel)

	lifecycle := workflow.NewLifecycle(workflow.StateOf(req.Status))

	if !ok {
		// Ladder exhausted: the request expires and produces no record.
		if err := lifecycle.Fire(ctx, workflow.TriggerExpire); err != nil {
			return nil, err
		}
		req.Status = lifecycle.State().Status()

		if err := s.requests.Update(ctx, req); err != nil {
			return nil, err
		}

		s.logger.Info("Request expired, escalation levels exhausted",
			"request_id", req.ID,
			"level", req.EscalationLevel)
		s.events.DispatchAsync(ctx, event.New(event.TypeRequestExpired, req, ""))
		return nil, nil
	}

	if err := lifecycle.Fire(ctx, workflow.TriggerEscalate); err != nil {
		return nil, err
	}

	esc := &entity.ApprovalEscalation{
		ID:             uuid.NewString(),
		RequestID:      req.ID,
		Level:          nextLevel,
		EscalatedAt:    now,
		EscalatedTo:    level.RoleRecipients(),
		Reason:         reason,
		PriorApprovers: req.ApproverIDs(),
	}

	req.Status = lifecycle.State().Status()
	req.EscalatedAt = &now
	req.EscalationLevel = nextLevel
	req.Priority = level.Priority
	if level.AfterHours > 0 {
		deadline := now.Add(time.Duration(level.AfterHours) * time.Hour)
		req.ExpiresAt = &deadline
	} else {
		// A level without a fresh deadline parks the request at this level.
		// Keeping the old, already-past deadline would leave it in the
		// candidate set and a re-run of the scan would escalate it again.
		req.ExpiresAt = nil
	}

	// The state transition and its ladder record commit together.
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.requests.Update(ctx, req); err != nil {
			return err
		}
		return s.escalations.Append(ctx, esc)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Request escalated",
		"request_id", req.ID,
		"level", nextLevel,
		"reason", reason,
		"escalated_to", esc.EscalatedTo)
	s.events.DispatchAsync(ctx, event.New(event.TypeRequestEscalated, req, "").
		WithPayload("level", nextLevel).
		WithPayload("reason", string(reason)))

	return esc, nil
}

// SendOverdueReminders groups overdue pending requests by days overdue and
// notifies the approver roles of each group.
func (s *escalationServiceImpl) SendOverdueReminders(ctx context.Context) (int, error) {
	now := s.clock.Now()

	overdue, err := s.requests.ListOverdue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list overdue requests: %w", err)
	}
	if len(overdue) == 0 {
		return 0, nil
	}

	byDays := make(map[int][]*entity.ApprovalRequest)
	for _, req := range overdue {
		days := int(now.Sub(*req.ExpiresAt).Hours() / 24)
		byDays[days] = append(byDays[days], req)
	}

	sent := 0
	for days, reqs := range byDays {
		recipients := roleUnion(reqs)
		if err := s.notifier.SendOverdueReminder(ctx, reqs, recipients, days); err != nil {
			// Reminders are best-effort.
			s.logger.Error("Failed to send overdue reminder", "error", err, "days_overdue", days)
			continue
		}
		sent += len(reqs)
	}

	return sent, nil
}

func findLevel(levels []entity.EscalationLevel, n int) (entity.EscalationLevel, bool) {
	for _, l := range levels {
		if l.Level == n {
			return l, true
		}
	}
	return entity.EscalationLevel{}, false
}

func roleUnion(reqs []*entity.ApprovalRequest) []entity.Role {
	seen := make(map[entity.Role]bool)
	var roles []entity.Role
	for _, req := range reqs {
		for _, r := range req.Threshold.RequiredRoles {
			if !seen[r] {
				seen[r] = true
				roles = append(roles, r)
			}
		}
	}
	return roles
}
