package workflow

// NewLifecycle builds the approval request state machine positioned at the
// given state. Decisions are only permitted while pending; escalation may
// repeat from the escalated state until levels are exhausted, at which point
// the request expires.
func NewLifecycle(initial State) StateMachine {
	b := NewBuilder()

	b.Configure(StatePending).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerReject, StateRejected).
		Permit(TriggerEscalate, StateEscalated).
		Permit(TriggerExpire, StateExpired)

	b.Configure(StateEscalated).
		Permit(TriggerEscalate, StateEscalated).
		Permit(TriggerExpire, StateExpired)

	return b.Build(initial)
}
