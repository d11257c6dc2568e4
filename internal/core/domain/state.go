package domain

import (
	"fmt"
	"sync"
)

// RequestState is a stage in the lifecycle of a query request.
type RequestState string

// Request states.
const (
	StatePending           RequestState = "pending"
	StateRetrieving        RequestState = "retrieving"
	StateReranking         RequestState = "reranking"
	StateAssemblingContext RequestState = "assembling_context"
	StateSynthesizing      RequestState = "synthesizing"
	StateAnswered          RequestState = "answered"
	StateNoAnswer          RequestState = "no_answer"
	StateFailed            RequestState = "failed"
)

// IsTerminal returns true for Answered, NoAnswer and Failed.
func (s RequestState) IsTerminal() bool {
	return s == StateAnswered || s == StateNoAnswer || s == StateFailed
}

// transitions lists the legal successors of each non-terminal state.
// Any non-terminal state may also move to Failed.
var transitions = map[RequestState][]RequestState{
	StatePending:           {StateRetrieving},
	StateRetrieving:        {StateReranking, StateAssemblingContext, StateNoAnswer},
	StateReranking:         {StateAssemblingContext},
	StateAssemblingContext: {StateSynthesizing},
	StateSynthesizing:      {StateAnswered, StateNoAnswer},
}

// CanTransition reports whether from → to is a legal move.
func CanTransition(from, to RequestState) bool {
	if from.IsTerminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// RequestTrace records the states a request passed through.
// It is safe for concurrent use.
type RequestTrace struct {
	mu     sync.Mutex
	states []RequestState
}

// NewRequestTrace starts a trace in Pending.
func NewRequestTrace() *RequestTrace {
	return &RequestTrace{states: []RequestState{StatePending}}
}

// Advance moves the trace to the next state.
func (t *RequestTrace) Advance(to RequestState) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	from := t.states[len(t.states)-1]
	if !CanTransition(from, to) {
		return fmt.Errorf("illegal request transition %s -> %s", from, to)
	}
	t.states = append(t.states, to)
	return nil
}

// Current returns the latest state.
func (t *RequestTrace) Current() RequestState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.states[len(t.states)-1]
}

// States returns a copy of the recorded states.
func (t *RequestTrace) States() []RequestState {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]RequestState, len(t.states))
	copy(out, t.states)
	return out
}
