package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/procurekit/approval-engine/internal/domain/entity"
)

// In-memory repository doubles. The request repo honors the optimistic
// concurrency contract so lost-update behavior is testable.

type memRequestRepo struct {
	mu    sync.Mutex
	items map[string]*entity.ApprovalRequest
}

func newMemRequestRepo() *memRequestRepo {
	return &memRequestRepo{items: make(map[string]*entity.ApprovalRequest)}
}

func cloneRequest(req *entity.ApprovalRequest) *entity.ApprovalRequest {
	raw, _ := json.Marshal(req)
	var out entity.ApprovalRequest
	_ = json.Unmarshal(raw, &out)
	return &out
}

func (m *memRequestRepo) Create(ctx context.Context, req *entity.ApprovalRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[req.ID] = cloneRequest(req)
	return nil
}

func (m *memRequestRepo) GetByID(ctx context.Context, id string) (*entity.ApprovalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	return cloneRequest(req), nil
}

func (m *memRequestRepo) Update(ctx context.Context, req *entity.ApprovalRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.items[req.ID]
	if !ok {
		return entity.ErrNotFound
	}
	if stored.Version != req.Version {
		return entity.ErrConcurrentModification
	}
	req.Version++
	m.items[req.ID] = cloneRequest(req)
	return nil
}

func (m *memRequestRepo) ListByPurchaseOrder(ctx context.Context, poID string) ([]*entity.ApprovalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.ApprovalRequest
	for _, req := range m.items {
		if req.PurchaseOrderID == poID {
			out = append(out, cloneRequest(req))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memRequestRepo) ListByStatus(ctx context.Context, status entity.Status) ([]*entity.ApprovalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.ApprovalRequest
	for _, req := range m.items {
		if req.Status == status {
			out = append(out, cloneRequest(req))
		}
	}
	return out, nil
}

func (m *memRequestRepo) ListOverdue(ctx context.Context, now time.Time) ([]*entity.ApprovalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.ApprovalRequest
	for _, req := range m.items {
		if req.Status == entity.StatusPending && req.IsOverdue(now) {
			out = append(out, cloneRequest(req))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(*out[j].ExpiresAt) })
	return out, nil
}

func (m *memRequestRepo) ListEscalatable(ctx context.Context, now time.Time) ([]*entity.ApprovalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.ApprovalRequest
	for _, req := range m.items {
		eligible := req.Status == entity.StatusPending || req.Status == entity.StatusEscalated
		if eligible && req.IsOverdue(now) {
			out = append(out, cloneRequest(req))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(*out[j].ExpiresAt) })
	return out, nil
}

func (m *memRequestRepo) ListAll(ctx context.Context) ([]*entity.ApprovalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.ApprovalRequest
	for _, req := range m.items {
		out = append(out, cloneRequest(req))
	}
	return out, nil
}

func (m *memRequestRepo) DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for id, req := range m.items {
		if req.Status.IsTerminal() && req.CreatedAt.Before(cutoff) {
			delete(m.items, id)
			deleted++
		}
	}
	return deleted, nil
}

type memEscalationRepo struct {
	mu    sync.Mutex
	items []*entity.ApprovalEscalation
}

func (m *memEscalationRepo) Append(ctx context.Context, esc *entity.ApprovalEscalation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *esc
	m.items = append(m.items, &copied)
	return nil
}

func (m *memEscalationRepo) ListByRequest(ctx context.Context, requestID string) ([]*entity.ApprovalEscalation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.ApprovalEscalation
	for _, esc := range m.items {
		if esc.RequestID == requestID {
			copied := *esc
			out = append(out, &copied)
		}
	}
	return out, nil
}

// nopTxManager runs the function without a real transaction.
type nopTxManager struct{}

func (nopTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// stubProvider serves fixed configuration.
type stubProvider struct {
	thresholds []entity.ApprovalThreshold
	levels     []entity.EscalationLevel
	holidays   []time.Time
}

func (p *stubProvider) Thresholds(ctx context.Context) ([]entity.ApprovalThreshold, error) {
	return p.thresholds, nil
}

func (p *stubProvider) EscalationLevels(ctx context.Context) ([]entity.EscalationLevel, error) {
	return p.levels, nil
}

func (p *stubProvider) Holidays(ctx context.Context) ([]time.Time, error) {
	return p.holidays, nil
}

// fakeClock is an advanceable clock for deterministic timing tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// mockNotifier records sink calls.
type mockNotifier struct {
	mu        sync.Mutex
	notified  []string
	reminders []reminderCall
	fail      bool
}

type reminderCall struct {
	requestIDs  []string
	recipients  []entity.Role
	daysOverdue int
}

func (m *mockNotifier) Notify(ctx context.Context, req *entity.ApprovalRequest, eventType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return context.DeadlineExceeded
	}
	m.notified = append(m.notified, eventType)
	return nil
}

func (m *mockNotifier) SendOverdueReminder(ctx context.Context, reqs []*entity.ApprovalRequest, recipients []entity.Role, daysOverdue int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return context.DeadlineExceeded
	}
	var ids []string
	for _, r := range reqs {
		ids = append(ids, r.ID)
	}
	m.reminders = append(m.reminders, reminderCall{requestIDs: ids, recipients: recipients, daysOverdue: daysOverdue})
	return nil
}

// mockAuditSink records audit entries.
type mockAuditSink struct {
	mu      sync.Mutex
	entries []entity.AuditEntry
}

func (m *mockAuditSink) Record(ctx context.Context, e entity.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}
