// Package orchestrator drives the operational loop: observe, govern,
// optimize, execute, account. It owns the approval gate and is the only
// component that resolves or executes pending approvals.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
	"github.com/ItaloOlivier/ayonne-sub000/internal/experiment"
	"github.com/ItaloOlivier/ayonne-sub000/internal/governance"
	"github.com/ItaloOlivier/ayonne-sub000/internal/optimizer"
	"github.com/ItaloOlivier/ayonne-sub000/internal/producer"
	"github.com/ItaloOlivier/ayonne-sub000/internal/protocol"
)

// ErrLoopRunning is returned when a loop iteration is requested while
// the previous one has not finished.
var ErrLoopRunning = errors.New("loop iteration already running")

// ApprovalKindOptimization marks pending approvals wrapping a single
// optimization action.
const ApprovalKindOptimization = "optimization_action"

const (
	stepObserve    = "observe_performance"
	stepGovernance = "governance_checks"
	stepOptimize   = "optimization_plan"
	stepExecute    = "execute_approved"
	stepExperiment = "experiment_census"
)

// loopResultRetention bounds the in-memory iteration history.
const loopResultRetention = 100

// Config selects the pipeline phase and loop cadence.
type Config struct {
	Phase            domain.PipelinePhase
	Interval         time.Duration
	ApprovalExpiry   time.Duration
	AutoApplyLowRisk bool
}

func (c *Config) withDefaults() {
	if c.Phase == "" {
		c.Phase = domain.PhaseLearning
	}
	if c.Interval <= 0 {
		c.Interval = time.Hour
	}
}

// Archiver persists loop artifacts out of band. Failures are logged and
// never fail the loop.
type Archiver interface {
	ArchiveLoopResult(ctx context.Context, result domain.LoopResult) error
	ArchiveApproval(ctx context.Context, approval domain.PendingApproval) error
}

// VerdictRecorder consumes resolved human decisions for confidence
// tracking.
type VerdictRecorder interface {
	RecordVerdict(v domain.DecisionVerdict)
}

// Orchestrator sequences the decision units via the message router.
type Orchestrator struct {
	cfg       Config
	router    *protocol.Router
	approvals *ApprovalStore
	log       *logrus.Entry

	loopMu sync.Mutex // single-flight guard for RunLoop

	mu          sync.Mutex // guards the fields below
	phase       domain.PipelinePhase
	results     []domain.LoopResult
	lastSummary *domain.PerformanceSummary
	lastHealth  *domain.AccountHealth
	archiver    Archiver
	verdicts    VerdictRecorder
}

// New builds an orchestrator over the given router. The router must
// have the decision units registered before the first loop run.
func New(cfg Config, router *protocol.Router, log *logrus.Entry) *Orchestrator {
	cfg.withDefaults()
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Orchestrator{
		cfg:       cfg,
		router:    router,
		approvals: NewApprovalStore(cfg.ApprovalExpiry),
		phase:     cfg.Phase,
		log:       log,
	}
}

// SetArchiver wires optional persistence for loop results and resolved
// approvals.
func (o *Orchestrator) SetArchiver(a Archiver) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.archiver = a
}

// SetVerdictRecorder wires optional confidence tracking of resolved
// approvals.
func (o *Orchestrator) SetVerdictRecorder(r VerdictRecorder) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.verdicts = r
}

// Approvals exposes the approval gate.
func (o *Orchestrator) Approvals() *ApprovalStore { return o.approvals }

// Phase returns the current pipeline phase.
func (o *Orchestrator) Phase() domain.PipelinePhase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// SetPhase switches the pipeline phase. Phase changes are an external
// configuration event, never automatic.
func (o *Orchestrator) SetPhase(phase domain.PipelinePhase) error {
	switch phase {
	case domain.PhaseLearning, domain.PhaseOptimizing, domain.PhaseScaling:
	default:
		return fmt.Errorf("invalid phase %q", phase)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.log.WithFields(logrus.Fields{"from": o.phase, "to": phase}).Info("Pipeline phase changed")
	o.phase = phase
	return nil
}

/// RunLoop executes one loop iteration. Every step is failure-isolated:
// the iteration always completes and always schedules the next run.
// Overlapping invocations are refused with ErrLoopRunning.
func (o *Orchestrator) RunLoop(ctx context.Context) (*domain.LoopResult, error) {
	if !o.loopMu.TryLock() {
		return nil, ErrLoopRunning
	}
	defer o.loopMu.Unlock()

	start := time.Now()
	result := &domain.LoopResult{
		ID:        uuid.New().String(),
		Phase:     o.Phase(),
		StartedAt: start,
	}
	o.log.WithFields(logrus.Fields{"loop_id": result.ID, "phase": result.Phase}).Info("Loop iteration started")

	// 1. Observe performance.
	var summary domain.PerformanceSummary
	cycleSummary := o.lastKnownSummary()
	if o.step(ctx, result, stepObserve, domain.UnitPerformance, producer.ActionFetchSummary, nil, &summary) {
		o.rememberSummary(&summary)
		cycleSummary = &summary
		o.detail(result, fmt.Sprintf("%d campaigns observed", len(summary.Campaigns)))
	}

	// 2. Governance pass. Runs against the freshest summary we have.
	var check governance.CheckResult
	if cycleSummary == nil {
		o.failStep(result, stepGovernance, domain.UnitGovernance, errors.New("no performance summary available"))
	} else if o.step(ctx, result, stepGovernance, domain.UnitGovernance, governance.ActionRunChecks, domain.MarshalPayload(cycleSummary), &check) {
		result.Alerts = append(result.Alerts, check.Alerts...)
		o.rememberHealth(check.Health)
		o.detail(result, fmt.Sprintf("%d anomalies, %d alerts", len(check.Anomalies), len(check.Alerts)))
	}

	// 3. Optimization pass.
	var plan domain.OptimizationPlan
	var autoApply []domain.OptimizationAction
	if cycleSummary == nil {
		o.failStep(result, stepOptimize, domain.UnitOptimizer, errors.New("no performance summary available"))
	} else if o.step(ctx, result, stepOptimize, domain.UnitOptimizer, optimizer.ActionGeneratePlan, domain.MarshalPayload(cycleSummary), &plan) {
		switch {
		case plan.RequiresApproval:
			for _, action := range plan.Actions {
				o.enqueueAction(ctx, action)
			}
			o.detail(result, fmt.Sprintf("%d actions await approval (risk %s)", len(plan.Actions), plan.RiskLevel))
		case o.cfg.AutoApplyLowRisk:
			autoApply = plan.Actions
			o.detail(result, fmt.Sprintf("%d low-risk actions auto-approved", len(plan.Actions)))
		default:
			o.detail(result, fmt.Sprintf("%d actions proposed (risk %s)", len(plan.Actions), plan.RiskLevel))
		}
	}

	// 4. Execution pass: approved entries leave the queue whether or
	// not applying them worked.
	o.executeStep(ctx, result, autoApply)

	// 5. Experiment maintenance.
	var census struct {
		Running int `json:"running"`
	}
	if o.step(ctx, result, stepExperiment, domain.UnitExperiment, experiment.ActionRunning, nil, &census) {
		result.RunningExperiments = census.Running
		o.detail(result, fmt.Sprintf("%d experiments running", census.Running))
	}

	end := time.Now()
	result.CompletedAt = end
	result.NextRun = end.Add(o.cfg.Interval)
	result.PendingApprovals = o.approvals.PendingCount()

	o.rememberResult(*result)
	o.archiveResult(ctx, *result)

	o.log.WithFields(logrus.Fields{
		"loop_id":  result.ID,
		"failed":   result.Failed(),
		"alerts":   len(result.Alerts),
		"next_run": result.NextRun,
	}).Info("Loop iteration complete")
	return result, nil
}

// Approve resolves a pending approval; the action itself is applied by
// the next loop iteration's execution pass.
func (o *Orchestrator) Approve(ctx context.Context, id, by, notes string) (domain.PendingApproval, error) {
	approval, err := o.approvals.Approve(id, by, notes)
	if err != nil {
		return approval, err
	}
	o.log.WithFields(logrus.Fields{"approval_id": id, "by": by}).Info("Approval granted")
	o.archiveApproval(ctx, approval)
	o.recordVerdict(approval, true)
	return approval, nil
}

// Reject resolves a pending approval negatively.
func (o *Orchestrator) Reject(ctx context.Context, id, by, reason string) (domain.PendingApproval, error) {
	approval, err := o.approvals.Reject(id, by, reason)
	if err != nil {
		return approval, err
	}
	o.log.WithFields(logrus.Fields{"approval_id": id, "by": by, "reason": reason}).Info("Approval rejected")
	o.archiveApproval(ctx, approval)
	o.recordVerdict(approval, false)
	return approval, nil
}

// recordVerdict forwards a resolved approval to the verdict recorder,
// carrying the proposal's action type and confidence when it was an
// optimization action.
func (o *Orchestrator) recordVerdict(approval domain.PendingApproval, approved bool) {
	o.mu.Lock()
	recorder := o.verdicts
	o.mu.Unlock()
	if recorder == nil {
		return
	}

	verdict := domain.DecisionVerdict{
		ApprovalID: approval.ID,
		Kind:       approval.Kind,
		Approved:   approved,
		DecidedBy:  approval.ResolvedBy,
	}
	if approval.ResolvedAt != nil {
		verdict.DecidedAt = *approval.ResolvedAt
	}
	if approval.Kind == ApprovalKindOptimization {
		var action domain.OptimizationAction
		if err := json.Unmarshal(approval.Payload, &action); err == nil {
			verdict.ActionType = string(action.Type)
			verdict.Confidence = action.Confidence
		}
	}
	recorder.RecordVerdict(verdict)
}

// Status aggregates the system view. Unit lookups that fail degrade to
// the last known values rather than failing the call.
func (o *Orchestrator) Status(ctx context.Context) *domain.SystemStatus {
	o.mu.Lock()
	var lastLoop *domain.LoopResult
	if len(o.results) > 0 {
		last := o.results[len(o.results)-1]
		lastLoop = &last
	}
	health := o.lastHealth
	phase := o.phase
	o.mu.Unlock()

	status := &domain.SystemStatus{
		Phase:       phase,
		Health:      health,
		Agents:      o.router.States(),
		LastLoop:    lastLoop,
		GeneratedAt: time.Now(),
	}
	if lastLoop != nil {
		status.ActiveExperiments = lastLoop.RunningExperiments
	}

	pending := o.approvals.Pending()
	status.PendingApprovals = len(pending)
	for _, p := range pending {
		if p.Kind == ApprovalKindOptimization {
			status.PendingOptimizations++
		}
	}

	var census struct {
		Running int `json:"running"`
	}
	if err := o.query(ctx, domain.UnitExperiment, experiment.ActionRunning, nil, &census); err == nil {
		status.ActiveExperiments = census.Running
	}
	var open []domain.Alert
	if err := o.query(ctx, domain.UnitGovernance, governance.ActionOpenAlerts, nil, &open); err == nil {
		status.OpenAlerts = len(open)
	}
	return status
}

// History returns up to limit of the most recent loop results, oldest
// first. limit <= 0 returns everything retained.
func (o *Orchestrator) History(limit int) []domain.LoopResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	start := 0
	if limit > 0 && len(o.results) > limit {
		start = len(o.results) - limit
	}
	out := make([]domain.LoopResult, len(o.results)-start)
	copy(out, o.results[start:])
	return out
}

func (o *Orchestrator) enqueueAction(ctx context.Context, action domain.OptimizationAction) {
	impact := fmt.Sprintf("%s %+.1f%%", action.Impact.Metric, action.Impact.ExpectedChange)
	description := action.Justification
	if description == "" {
		description = fmt.Sprintf("%s on %s %s", action.Type, action.Target.Type, action.Target.Name)
	}
	approval := o.approvals.Enqueue(ApprovalKindOptimization, domain.UnitOptimizer, description, impact, domain.MarshalPayload(action))
	o.archiveApproval(ctx, approval)
}

// executeStep applies every approved entry plus any auto-approved
// actions from this cycle. Item failures are logged and audited; they
// do not fail the step.
func (o *Orchestrator) executeStep(ctx context.Context, result *domain.LoopResult, autoApply []domain.OptimizationAction) {
	started := time.Now()
	applied, failed := 0, 0

	for _, approval := range o.approvals.TakeApproved() {
		if err := o.executeApproval(ctx, approval); err != nil {
			failed++
			o.log.WithError(err).WithField("approval_id", approval.ID).Warn("Approved action failed to apply")
			continue
		}
		applied++
	}
	for _, action := range autoApply {
		if err := o.executeAction(ctx, action, true); err != nil {
			failed++
			o.log.WithError(err).WithField("action_id", action.ID).Warn("Auto-approved action failed to apply")
			continue
		}
		applied++
	}

	result.Steps = append(result.Steps, domain.LoopStep{
		Name:      stepExecute,
		Agent:     domain.RecipientOrchestrator,
		Success:   true,
		Detail:    fmt.Sprintf("applied %d, failed %d", applied, failed),
		StartedAt: started,
		Duration:  time.Since(started),
	})
}

func (o *Orchestrator) executeApproval(ctx context.Context, approval domain.PendingApproval) error {
	switch approval.Kind {
	case ApprovalKindOptimization:
		var action domain.OptimizationAction
		if err := json.Unmarshal(approval.Payload, &action); err != nil {
			return fmt.Errorf("decode approved action: %w", err)
		}
		return o.executeAction(ctx, action, true)
	default:
		return fmt.Errorf("unknown approval kind %q", approval.Kind)
	}
}

func (o *Orchestrator) executeAction(ctx context.Context, action domain.OptimizationAction, approved bool) error {
	var applied domain.OptimizationAction
	err := o.query(ctx, domain.UnitOptimizer, optimizer.ActionApply, domain.MarshalPayload(action), &applied)
	o.audit(ctx, action, approved, err)
	return err
}

// audit hands the execution record to the governance unit, which owns
// the change log.
func (o *Orchestrator) audit(ctx context.Context, action domain.OptimizationAction, approved bool, applyErr error) {
	entry := domain.ChangeLogEntry{
		Actor:      domain.RecipientOrchestrator,
		Action:     string(action.Type),
		EntityType: string(action.Target.Type),
		EntityID:   action.Target.ID,
		Before:     fmt.Sprintf("%.2f", action.CurrentValue),
		After:      fmt.Sprintf("%.2f", action.ProposedValue),
		Reason:     action.Justification,
		Approved:   approved,
	}
	if applyErr != nil {
		entry.Reason = fmt.Sprintf("apply failed: %v", applyErr)
	}
	if err := o.query(ctx, domain.UnitGovernance, governance.ActionRecordChange, domain.MarshalPayload(entry), nil); err != nil {
		o.log.WithError(err).Warn("Failed to record change log entry")
	}
}

// step dispatches one loop step to a unit and records its outcome. A
// response that cannot be decoded fails the step.
func (o *Orchestrator) step(ctx context.Context, result *domain.LoopResult, name, unit, action string, payload json.RawMessage, out any) bool {
	started := time.Now()
	err := o.query(ctx, unit, action, payload, out)

	step := domain.LoopStep{
		Name:      name,
		Agent:     unit,
		StartedAt: started,
		Duration:  time.Since(started),
	}
	if err != nil {
		step.Error = err.Error()
		o.log.WithError(err).WithField("step", name).Warn("Loop step failed")
	} else {
		step.Success = true
	}
	result.Steps = append(result.Steps, step)
	return step.Success
}

func (o *Orchestrator) failStep(result *domain.LoopResult, name, unit string, err error) {
	result.Steps = append(result.Steps, domain.LoopStep{
		Name:      name,
		Agent:     unit,
		Error:     err.Error(),
		StartedAt: time.Now(),
	})
	o.log.WithError(err).WithField("step", name).Warn("Loop step skipped")
}

// detail annotates the most recently recorded step.
func (o *Orchestrator) detail(result *domain.LoopResult, detail string) {
	if len(result.Steps) == 0 {
		return
	}
	result.Steps[len(result.Steps)-1].Detail = detail
}

// query sends one request through the router and decodes the response
// payload into out when both are non-nil.
func (o *Orchestrator) query(ctx context.Context, unit, action string, payload json.RawMessage, out any) error {
	resp, err := o.router.Dispatch(ctx, domain.NewRequest(domain.RecipientOrchestrator, unit, action, payload))
	if err != nil {
		return err
	}
	if out == nil || resp == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Payload, out); err != nil {
		return fmt.Errorf("decode %s response: %w", action, err)
	}
	return nil
}

func (o *Orchestrator) rememberSummary(summary *domain.PerformanceSummary) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lastSummary = summary
}

func (o *Orchestrator) lastKnownSummary() *domain.PerformanceSummary {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastSummary
}

func (o *Orchestrator) rememberHealth(health *domain.AccountHealth) {
	if health == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lastHealth = health
}

func (o *Orchestrator) rememberResult(result domain.LoopResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, result)
	if len(o.results) > loopResultRetention {
		o.results = o.results[len(o.results)-loopResultRetention:]
	}
}

func (o *Orchestrator) archiveResult(ctx context.Context, result domain.LoopResult) {
	o.mu.Lock()
	archiver := o.archiver
	o.mu.Unlock()
	if archiver == nil {
		return
	}
	if err := archiver.ArchiveLoopResult(ctx, result); err != nil {
		o.log.WithError(err).Warn("Failed to archive loop result")
	}
}

func (o *Orchestrator) archiveApproval(ctx context.Context, approval domain.PendingApproval) {
	o.mu.Lock()
	archiver := o.archiver
	o.mu.Unlock()
	if archiver == nil {
		return
	}
	if err := archiver.ArchiveApproval(ctx, approval); err != nil {
		o.log.WithError(err).Warn("Failed to archive approval")
	}
}
