package workflow

import (
	"context"
	"fmt"
)

// StateMachine tracks the current state of one approval request and
// validates transitions against the configured lifecycle.
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire returns true if the trigger is permitted in the current state
	CanFire(trigger Trigger) bool

	// Fire attempts to execute the trigger, transitioning to the new state if allowed
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers returns all triggers that can be fired in the current state
	PermittedTriggers() []Trigger
}

// GuardFunc is a function that evaluates whether a transition should be allowed
type GuardFunc func(ctx context.Context) bool

// transition is one permitted edge with an optional guard.
type transition struct {
	trigger Trigger
	toState State
	guard   GuardFunc
}

// machine implements StateMachine over a fixed transition table.
type machine struct {
	current State
	edges   map[State][]transition
}

// State returns the current state
func (m *machine) State() State {
	return m.current
}

// CanFire returns true if the trigger has at least one transition from the
// current state. Guards are not evaluated here since no context is available.
func (m *machine) CanFire(trigger Trigger) bool {
	for _, t := range m.edges[m.current] {
		if t.trigger == trigger {
			return true
		}
	}
	return false
}

// Fire executes the trigger, trying each matching transition in declaration
// order until one whose guard passes is found.
func (m *machine) Fire(ctx context.Context, trigger Trigger) error {
	matched := false
	for _, t := range m.edges[m.current] {
		if t.trigger != trigger {
			continue
		}
		matched = true
		if t.guard == nil || t.guard(ctx) {
			m.current = t.toState
			return nil
		}
	}

	if matched {
		return fmt.Errorf("%w: trigger %s from state %s", ErrGuardFailed, trigger, m.current)
	}
	return fmt.Errorf("%w: cannot fire trigger %s from state %s", ErrInvalidTransition, trigger, m.current)
}

// PermittedTriggers returns the distinct triggers usable from the current state.
func (m *machine) PermittedTriggers() []Trigger {
	seen := make(map[Trigger]bool)
	triggers := make([]Trigger, 0, len(m.edges[m.current]))
	for _, t := range m.edges[m.current] {
		if !seen[t.trigger] {
			seen[t.trigger] = true
			triggers = append(triggers, t.trigger)
		}
	}
	return triggers
}
