package domain

import "time"

type PipelinePhase string

const (
	PhaseSetup      PipelinePhase = "setup"
	PhaseLearning   PipelinePhase = "learning"
	PhaseOptimizing PipelinePhase = "optimizing"
	PhaseScaling    PipelinePhase = "scaling"
)

// LoopStep records one step's outcome inside a loop iteration. A failed
// step never aborts the iteration.
type LoopStep struct {
	Name      string        `json:"name"`
	Agent     string        `json:"agent"`
	Success   bool          `json:"success"`
	Detail    string        `json:"detail,omitempty"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// LoopResult is the always-produced record of one operational loop
// iteration, including the outcome of every step and when the next run
// is due.
type LoopResult struct {
	ID                 string        `json:"id"`
	Phase              PipelinePhase `json:"phase"`
	Steps              []LoopStep    `json:"steps"`
	Alerts             []Alert       `json:"alerts,omitempty"`
	RunningExperiments int           `json:"running_experiments"`
	PendingApprovals   int           `json:"pending_approvals"`
	StartedAt          time.Time     `json:"started_at"`
	CompletedAt        time.Time     `json:"completed_at"`
	NextRun            time.Time     `json:"next_loop_scheduled"`
}

// Failed returns the names of steps that did not succeed.
func (r *LoopResult) Failed() []string {
	var failed []string
	for _, s := range r.Steps {
		if !s.Success {
			failed = append(failed, s.Name)
		}
	}
	return failed
}

// SystemStatus is the aggregate view exposed by the status entry point.
type SystemStatus struct {
	Phase                PipelinePhase  `json:"phase"`
	Health               *AccountHealth `json:"health,omitempty"`
	ActiveExperiments    int            `json:"active_experiments"`
	PendingApprovals     int            `json:"pending_approvals"`
	PendingOptimizations int            `json:"pending_optimizations"`
	OpenAlerts           int            `json:"open_alerts"`
	Agents               []AgentState   `json:"agents"`
	LastLoop             *LoopResult    `json:"last_loop,omitempty"`
	GeneratedAt          time.Time      `json:"generated_at"`
}
