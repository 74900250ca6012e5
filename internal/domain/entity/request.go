package entity

import "time"

// Status is the lifecycle state of an approval request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusEscalated Status = "escalated"
	StatusExpired   Status = "expired"
)

var validStatuses = map[Status]bool{
	StatusPending:   true,
	StatusApproved:  true,
	StatusRejected:  true,
	StatusEscalated: true,
	StatusExpired:   true,
}

var terminalStatuses = map[Status]bool{
	StatusApproved: true,
	StatusRejected: true,
	StatusExpired:  true,
}

// IsTerminal returns true if no further mutation of the request is expected
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// IsValid returns true if the status is a valid lifecycle state
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// ApprovalDecision is one approver's verdict on a request. Decisions are
// append-only and at most one is recorded per approver id.
type ApprovalDecision struct {
	Approved      bool      `json:"approved"`
	ApproverID    string    `json:"approver_id"`
	ApproverRole  Role      `json:"approver_role"`
	ApproverEmail string    `json:"approver_email,omitempty"`
	DecidedAt     time.Time `json:"decided_at"`
	Reason        string    `json:"reason,omitempty"`
	Comments      string    `json:"comments,omitempty"`
}

// ApprovalRequest is the mutable aggregate tracking one approval cycle of a
// purchase order. The threshold is a snapshot taken at creation time so
// configuration changes never retroactively alter in-flight requests.
type ApprovalRequest struct {
	ID                string             `json:"id"`
	PurchaseOrderID   string             `json:"purchase_order_id"`
	Threshold         ApprovalThreshold  `json:"threshold"`
	RequiredApprovals int                `json:"required_approvals"`
	Decisions         []ApprovalDecision `json:"decisions"`
	Status            Status             `json:"status"`
	CreatedAt         time.Time          `json:"created_at"`
	ExpiresAt         *time.Time         `json:"expires_at,omitempty"`
	EscalatedAt       *time.Time         `json:"escalated_at,omitempty"`
	EscalationLevel   int                `json:"escalation_level"`
	Priority          Priority           `json:"priority"`
	Metadata          map[string]string  `json:"metadata,omitempty"`

	// Version is the optimistic-concurrency token compared at persist time.
	Version int64 `json:"version"`
}

// HasDecisionFrom reports whether the approver already decided this request.
func (r *ApprovalRequest) HasDecisionFrom(approverID string) bool {
	for _, d := range r.Decisions {
		if d.ApproverID == approverID {
			return true
		}
	}
	return false
}

// ApprovedCount returns the number of approving decisions recorded so far.
func (r *ApprovalRequest) ApprovedCount() int {
	count := 0
	for _, d := range r.Decisions {
		if d.Approved {
			count++
		}
	}
	return count
}

// RemainingApprovals returns how many approving decisions are still needed.
func (r *ApprovalRequest) RemainingApprovals() int {
	remaining := r.RequiredApprovals - r.ApprovedCount()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// FinalApprovalAt returns the timestamp of the decision that completed the
// quorum, or nil when quorum was never reached.
func (r *ApprovalRequest) FinalApprovalAt() *time.Time {
	count := 0
	for _, d := range r.Decisions {
		if !d.Approved {
			continue
		}
		count++
		if count == r.RequiredApprovals {
			t := d.DecidedAt
			return &t
		}
	}
	return nil
}

// IsOverdue reports whether the request has a deadline in the past.
func (r *ApprovalRequest) IsOverdue(now time.Time) bool {
	return r.ExpiresAt != nil && r.ExpiresAt.Before(now)
}

// ApproverIDs returns the ids of everyone who has decided, in decision order.
func (r *ApprovalRequest) ApproverIDs() []string {
	ids := make([]string, 0, len(r.Decisions))
	for _, d := range r.Decisions {
		ids = append(ids, d.ApproverID)
	}
	return ids
}

// EscalationReason records why an escalation fired.
type EscalationReason string

const (
	EscalationTimeout      EscalationReason = "timeout"
	EscalationManual       EscalationReason = "manual"
	EscalationBusinessRule EscalationReason = "business_rule"
)

// ApprovalEscalation is the append-only record of one escalation event.
// Levels are 1-based and strictly increasing per request.
type ApprovalEscalation struct {
	ID             string           `json:"id"`
	RequestID      string           `json:"request_id"`
	Level          int              `json:"level"`
	EscalatedAt    time.Time        `json:"escalated_at"`
	EscalatedTo    []Role           `json:"escalated_to"`
	Reason         EscalationReason `json:"reason"`
	PriorApprovers []string         `json:"prior_approvers,omitempty"`
}
