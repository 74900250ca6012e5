package workflow

import "github.com/procurekit/approval-engine/internal/domain/entity"

// State represents a workflow state in the approval request lifecycle.
// State values mirror entity.Status so persisted statuses convert loss-free.
type State string

const (
	StatePending   State = State(entity.StatusPending)
	StateApproved  State = State(entity.StatusApproved)
	StateRejected  State = State(entity.StatusRejected)
	StateEscalated State = State(entity.StatusEscalated)
	StateExpired   State = State(entity.StatusExpired)
)

var validStates = map[State]bool{
	StatePending:   true,
	StateApproved:  true,
	StateRejected:  true,
	StateEscalated: true,
	StateExpired:   true,
}

// StateOf converts a persisted request status into a workflow state.
func StateOf(s entity.Status) State {
	return State(s)
}

// Status converts the workflow state back to the persisted status type.
func (s State) Status() entity.Status {
	return entity.Status(s)
}

// IsTerminal returns true if the state allows no further transitions
func (s State) IsTerminal() bool {
	return s.Status().IsTerminal()
}

// IsValid returns true if the state is a valid lifecycle state
func (s State) IsValid() bool {
	return validStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}
