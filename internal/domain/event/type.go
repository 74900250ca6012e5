package event

// Type identifies the type of domain event
type Type string

const (
	TypeRequestCreated   Type = "request.created"
	TypeDecisionRecorded Type = "request.decision_recorded"
	TypeRequestApproved  Type = "request.approved"
	TypeRequestRejected  Type = "request.rejected"
	TypeRequestEscalated Type = "request.escalated"
	TypeRequestExpired   Type = "request.expired"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeRequestCreated,
		TypeDecisionRecorded,
		TypeRequestApproved,
		TypeRequestRejected,
		TypeRequestEscalated,
		TypeRequestExpired:
		return true
	default:
		return false
	}
}
