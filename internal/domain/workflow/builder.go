package workflow

import "fmt"

// StateMachineBuilder builds a configured state machine
type StateMachineBuilder interface {
	// Configure returns a state configuration for the given state
	Configure(state State) StateConfiguration

	// Build creates a new state machine instance with the given initial state
	Build(initialState State) StateMachine
}

// StateConfiguration configures transitions for a specific state
type StateConfiguration interface {
	// Permit allows a trigger to transition to the target state
	Permit(trigger Trigger, toState State) StateConfiguration

	// PermitIf allows a trigger to transition to the target state if the guard passes
	PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration
}

type stateConfig struct {
	builder   *builder
	fromState State
}

type builder struct {
	edges map[State][]transition
}

// NewBuilder creates a new state machine builder
func NewBuilder() StateMachineBuilder {
	return &builder{edges: make(map[State][]transition)}
}

// Configure returns a state configuration for the given state
func (b *builder) Configure(state State) StateConfiguration {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}
	return &stateConfig{builder: b, fromState: state}
}

// Build creates a new state machine instance with the given initial state.
// The transition table is copied so machines stay independent of the builder.
func (b *builder) Build(initialState State) StateMachine {
	if !initialState.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initialState))
	}

	edges := make(map[State][]transition, len(b.edges))
	for state, ts := range b.edges {
		edges[state] = append([]transition{}, ts...)
	}

	return &machine{current: initialState, edges: edges}
}

// Permit allows a trigger to transition to the target state
func (c *stateConfig) Permit(trigger Trigger, toState State) StateConfiguration {
	return c.PermitIf(trigger, toState, nil)
}

// PermitIf allows a trigger to transition to the target state if the guard passes
func (c *stateConfig) PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration {
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}

	c.builder.edges[c.fromState] = append(c.builder.edges[c.fromState], transition{
		trigger: trigger,
		toState: toState,
		guard:   guard,
	})
	return c
}
