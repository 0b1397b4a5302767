package domain

import "time"

type AgentStatus string

const (
	AgentStatusIdle       AgentStatus = "idle"
	AgentStatusProcessing AgentStatus = "processing"
	AgentStatusWaiting    AgentStatus = "waiting"
	AgentStatusError      AgentStatus = "error"
)

// AgentError is a recoverable unit error kept on the unit's own state.
// These never cross unit boundaries.
type AgentError struct {
	Code        string    `json:"code"`
	Message     string    `json:"message"`
	Recoverable bool      `json:"recoverable"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// AgentState is a unit's status snapshot. Only the owning unit mutates it;
// everything handed out is a copy.
type AgentState struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Status       AgentStatus  `json:"status"`
	LastAction   string       `json:"last_action,omitempty"`
	LastActionAt time.Time    `json:"last_action_at,omitempty"`
	PendingTasks int          `json:"pending_tasks"`
	Errors       []AgentError `json:"errors,omitempty"`
}

// Clone returns a deep copy safe to hand to callers.
func (s AgentState) Clone() AgentState {
	out := s
	if len(s.Errors) > 0 {
		out.Errors = make([]AgentError, len(s.Errors))
		copy(out.Errors, s.Errors)
	}
	return out
}
