package protocol

import (
	"sync"
	"time"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

// stateErrorRetention bounds the recoverable-error list each unit
// accumulates on its own state.
const stateErrorRetention = 20

// StateTracker maintains a unit's AgentState. Units own their tracker
// and are the only writer; Snapshot hands out deep copies so callers
// cannot reach back into the unit.
type StateTracker struct {
	mu    sync.Mutex
	state domain.AgentState
}

// NewStateTracker builds a tracker for the named unit, starting idle.
func NewStateTracker(id, name string) *StateTracker {
	return &StateTracker{
		state: domain.AgentState{
			ID:     id,
			Name:   name,
			Status: domain.AgentStatusIdle,
		},
	}
}

// Begin marks the unit processing the named action.
func (t *StateTracker) Begin(action string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Status = domain.AgentStatusProcessing
	t.state.LastAction = action
	t.state.LastActionAt = time.Now()
	t.state.PendingTasks++
}

// Done marks the current action finished.
func (t *StateTracker) Done() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.PendingTasks > 0 {
		t.state.PendingTasks--
	}
	if t.state.PendingTasks == 0 {
		t.state.Status = domain.AgentStatusIdle
	}
}

// Fail records a recoverable error on the unit's state and marks the
// action finished. Errors stay on the unit; they never cross to other
// units.
func (t *StateTracker) Fail(code string, err error, recoverable bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.PendingTasks > 0 {
		t.state.PendingTasks--
	}
	t.state.Status = domain.AgentStatusError
	t.state.Errors = append(t.state.Errors, domain.AgentError{
		Code:        code,
		Message:     err.Error(),
		Recoverable: recoverable,
		OccurredAt:  time.Now(),
	})
	if len(t.state.Errors) > stateErrorRetention {
		t.state.Errors = t.state.Errors[len(t.state.Errors)-stateErrorRetention:]
	}
}

// Snapshot returns a deep copy of the current state.
func (t *StateTracker) Snapshot() domain.AgentState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Clone()
}
