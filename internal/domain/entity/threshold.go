package entity

import "strings"

// Priority classifies how urgently a request needs reviewer attention.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Weight returns the sort weight used for pending-queue ordering.
// Urgent sorts first; unknown priorities sort last.
func (p Priority) Weight() int {
	switch p {
	case PriorityUrgent:
		return 1
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 3
	case PriorityLow:
		return 4
	default:
		return 5
	}
}

// String returns the string representation of the priority
func (p Priority) String() string {
	return string(p)
}

// IsValid returns true if the priority is one of the defined constants
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// Role is the closed set of approver capabilities known to the engine.
// Role-gated logic switches on this type rather than comparing free strings.
type Role string

const (
	RoleRequester Role = "requester"
	RoleManager   Role = "manager"
	RoleFinance   Role = "finance"
	RoleDirector  Role = "director"
	RoleAdmin     Role = "admin"
)

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// IsValid returns true if the role is one of the defined constants
func (r Role) IsValid() bool {
	switch r {
	case RoleRequester, RoleManager, RoleFinance, RoleDirector, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole converts a string to a Role, reporting whether it is known.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.IsValid()
}

// Operator is the comparison applied by a threshold condition.
type Operator string

const (
	OperatorEquals   Operator = "equals"
	OperatorContains Operator = "contains"
	OperatorIn       Operator = "in"
	OperatorNotIn    Operator = "not_in"
)

// Condition is a single field/operator/value rule evaluated against the
// contextual attributes supplied with a purchase order.
type Condition struct {
	Field    string   `json:"field" mapstructure:"field"`
	Operator Operator `json:"operator" mapstructure:"operator"`
	Value    string   `json:"value,omitempty" mapstructure:"value"`
	Values   []string `json:"values,omitempty" mapstructure:"values"`
}

// Evaluate checks the condition against the supplied attributes.
// A missing attribute fails every operator except not_in, which holds
// vacuously.
func (c Condition) Evaluate(attrs map[string]string) bool {
	actual, present := attrs[c.Field]

	switch c.Operator {
	case OperatorEquals:
		return present && actual == c.Value
	case OperatorContains:
		return present && strings.Contains(actual, c.Value)
	case OperatorIn:
		if !present {
			return false
		}
		for _, v := range c.Values {
			if actual == v {
				return true
			}
		}
		return false
	case OperatorNotIn:
		if !present {
			return true
		}
		for _, v := range c.Values {
			if actual == v {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// ApprovalThreshold is an immutable-per-version configuration rule mapping
// an amount range plus conditions to required approver roles, quorum size
// and escalation timing. Amounts are integer cents.
type ApprovalThreshold struct {
	ID                  string      `json:"id" mapstructure:"id"`
	Name                string      `json:"name" mapstructure:"name"`
	MinAmountCents      int64       `json:"min_amount_cents" mapstructure:"min_amount_cents"`
	MaxAmountCents      *int64      `json:"max_amount_cents,omitempty" mapstructure:"max_amount_cents"`
	RequiredRoles       []Role      `json:"required_roles" mapstructure:"required_roles"`
	RequiredApprovers   int         `json:"required_approvers" mapstructure:"required_approvers"`
	EscalationTimeHours int         `json:"escalation_time_hours,omitempty" mapstructure:"escalation_time_hours"`
	SkipWeekends        bool        `json:"skip_weekends" mapstructure:"skip_weekends"`
	SkipHolidays        bool        `json:"skip_holidays" mapstructure:"skip_holidays"`
	Priority            Priority    `json:"priority" mapstructure:"priority"`
	AutoApprove         bool        `json:"auto_approve" mapstructure:"auto_approve"`
	Conditions          []Condition `json:"conditions,omitempty" mapstructure:"conditions"`
	Active              bool        `json:"active" mapstructure:"active"`
}

// MatchesAmount reports whether the amount falls inside the threshold range.
// A nil MaxAmountCents means the range is unbounded above.
func (t ApprovalThreshold) MatchesAmount(amountCents int64) bool {
	if amountCents < t.MinAmountCents {
		return false
	}
	if t.MaxAmountCents != nil && amountCents > *t.MaxAmountCents {
		return false
	}
	return true
}

// MatchesConditions reports whether every condition holds for the attributes.
func (t ApprovalThreshold) MatchesConditions(attrs map[string]string) bool {
	for _, c := range t.Conditions {
		if !c.Evaluate(attrs) {
			return false
		}
	}
	return true
}

// Span returns the width of the amount range. Unbounded ranges report
// ok=false and sort after any bounded range.
func (t ApprovalThreshold) Span() (int64, bool) {
	if t.MaxAmountCents == nil {
		return 0, false
	}
	return *t.MaxAmountCents - t.MinAmountCents, true
}

// AllowsRole reports whether the role may decide requests under this
// threshold.
func (t ApprovalThreshold) AllowsRole(role Role) bool {
	for _, r := range t.RequiredRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Overlaps reports whether the two amount ranges intersect. Whether an
// intersection is legal depends on the condition sets and is decided by
// configuration validation.
func (t ApprovalThreshold) Overlaps(other ApprovalThreshold) bool {
	if t.MaxAmountCents != nil && *t.MaxAmountCents < other.MinAmountCents {
		return false
	}
	if other.MaxAmountCents != nil && *other.MaxAmountCents < t.MinAmountCents {
		return false
	}
	return true
}

// RecipientType distinguishes escalation recipients.
type RecipientType string

const (
	RecipientRole RecipientType = "role"
	RecipientUser RecipientType = "user"
)

// Recipient identifies who an escalation level re-routes a request to.
type Recipient struct {
	Type  RecipientType `json:"type" mapstructure:"type"`
	Value string        `json:"value" mapstructure:"value"`
}

// EscalationLevel is one ordered step of the escalation ladder: after how
// many hours a stalled request is re-routed, to whom, and at what priority.
type EscalationLevel struct {
	Level      int         `json:"level" mapstructure:"level"`
	AfterHours int         `json:"after_hours" mapstructure:"after_hours"`
	Recipients []Recipient `json:"recipients" mapstructure:"recipients"`
	Priority   Priority    `json:"priority" mapstructure:"priority"`
}

// RoleRecipients resolves the recipients of type role into the Role set.
func (l EscalationLevel) RoleRecipients() []Role {
	var roles []Role
	for _, rec := range l.Recipients {
		if rec.Type != RecipientRole {
			continue
		}
		if role, ok := ParseRole(rec.Value); ok {
			roles = append(roles, role)
		}
	}
	return roles
}
