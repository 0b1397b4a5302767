package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ItaloOlivier/ayonne-sub000/internal/ads"
	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
	"github.com/ItaloOlivier/ayonne-sub000/internal/experiment"
	"github.com/ItaloOlivier/ayonne-sub000/internal/governance"
	"github.com/ItaloOlivier/ayonne-sub000/internal/optimizer"
	"github.com/ItaloOlivier/ayonne-sub000/internal/producer"
	"github.com/ItaloOlivier/ayonne-sub000/internal/protocol"
)

type rig struct {
	orch   *Orchestrator
	router *protocol.Router
	client *ads.MockClient
	gov    *governance.Engine
}

// newRig wires a full pipeline over a mock ad account. Passing a nil
// governanceUnit keeps the real engine; otherwise the given unit is
// registered in its place.
func newRig(t *testing.T, governanceUnit protocol.Unit, snaps ...domain.CampaignSnapshot) *rig {
	t.Helper()

	client := ads.NewMockClient(snaps...)
	router := protocol.NewRouter(nil)
	gov := governance.NewEngine(governance.Config{TargetCPA: 40, TargetROAS: 3, DailyBudgetCeiling: 500}, nil)

	units := []protocol.Unit{
		producer.NewPerformanceUnit(producer.NewPerformanceProducer(client, time.Hour, nil)),
		optimizer.NewUnit(optimizer.NewEngine(optimizer.Config{TargetCPA: 40, TargetROAS: 3, ApprovalThreshold: 500}, client, nil)),
		experiment.NewUnit(experiment.NewEngine(experiment.Config{}, experiment.NewAnalyzer(), nil)),
	}
	if governanceUnit == nil {
		governanceUnit = governance.NewUnit(gov)
	}
	units = append(units, governanceUnit)
	for _, u := range units {
		if err := router.Register(u); err != nil {
			t.Fatalf("register %s: %v", u.ID(), err)
		}
	}

	orch := New(Config{Phase: domain.PhaseOptimizing, Interval: time.Hour}, router, nil)
	if err := router.Register(NewUnit(orch)); err != nil {
		t.Fatalf("register orchestrator: %v", err)
	}
	return &rig{orch: orch, router: router, client: client, gov: gov}
}

func healthyCampaign(id string) domain.CampaignSnapshot {
	return domain.CampaignSnapshot{
		Campaign: domain.Campaign{
			ID:                id,
			Name:              id,
			Status:            domain.CampaignStatusEnabled,
			DailyBudget:       100,
			LocationTargeting: []string{"US"},
		},
		Metrics: domain.PerformanceMetrics{
			Impressions: 10000,
			Clicks:      500,
			Cost:        350,
			Conversions: 10,
			CPA:         35,
			ROAS:        3.5,
		},
	}
}

func wastefulCampaign(id string) domain.CampaignSnapshot {
	snap := healthyCampaign(id)
	snap.Metrics = domain.PerformanceMetrics{Cost: 150}
	return snap
}

func stepByName(t *testing.T, result *domain.LoopResult, name string) domain.LoopStep {
	t.Helper()
	for _, s := range result.Steps {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("no step %q in %+v", name, result.Steps)
	return domain.LoopStep{}
}

func TestRunLoopAllStepsSucceed(t *testing.T) {
	r := newRig(t, nil, healthyCampaign("c1"))

	result, err := r.orch.RunLoop(context.Background())
	if err != nil {
		t.Fatalf("run loop: %v", err)
	}
	if len(result.Steps) != 5 {
		t.Fatalf("got %d steps, want 5: %+v", len(result.Steps), result.Steps)
	}
	for _, s := range result.Steps {
		if !s.Success {
			t.Errorf("step %s failed: %s", s.Name, s.Error)
		}
	}
	if got := result.Failed(); len(got) != 0 {
		t.Errorf("failed steps = %v, want none", got)
	}
	if !result.NextRun.Equal(result.CompletedAt.Add(time.Hour)) {
		t.Errorf("next run = %v, want completed %v + 1h", result.NextRun, result.CompletedAt)
	}
	if result.PendingApprovals != 0 {
		t.Errorf("pending approvals = %d, want 0 for a healthy account", result.PendingApprovals)
	}
	if got := r.orch.History(0); len(got) != 1 || got[0].ID != result.ID {
		t.Errorf("history = %+v, want the one result retained", got)
	}
}

type panickingUnit struct{ id string }

func (u *panickingUnit) ID() string { return u.id }

func (u *panickingUnit) HandleMessage(ctx context.Context, msg *domain.AgentMessage) (*domain.AgentMessage, error) {
	panic("governance exploded")
}

func (u *panickingUnit) State() domain.AgentState { return domain.AgentState{ID: u.id} }

func TestRunLoopIsolatesGovernancePanic(t *testing.T) {
	r := newRig(t, &panickingUnit{id: domain.UnitGovernance}, healthyCampaign("c1"))

	result, err := r.orch.RunLoop(context.Background())
	if err != nil {
		t.Fatalf("a failing step must not fail the loop: %v", err)
	}
	if len(result.Steps) != 5 {
		t.Fatalf("got %d steps, want all 5 recorded: %+v", len(result.Steps), result.Steps)
	}

	govStep := stepByName(t, result, stepGovernance)
	if govStep.Success {
		t.Error("governance step must be recorded as failed")
	}
	if !strings.Contains(govStep.Error, "panicked") {
		t.Errorf("step error %q must surface the panic", govStep.Error)
	}
	for _, name := range []string{stepObserve, stepOptimize, stepExecute, stepExperiment} {
		if s := stepByName(t, result, name); !s.Success {
			t.Errorf("step %s must survive the governance failure: %s", name, s.Error)
		}
	}
	if result.NextRun.IsZero() {
		t.Error("next run must be scheduled even on a degraded iteration")
	}
}

func TestRunLoopEnqueuesApprovalsForRiskyPlan(t *testing.T) {
	r := newRig(t, nil, wastefulCampaign("c1"), wastefulCampaign("c2"), wastefulCampaign("c3"))

	result, err := r.orch.RunLoop(context.Background())
	if err != nil {
		t.Fatalf("run loop: %v", err)
	}
	if result.PendingApprovals != 3 {
		t.Fatalf("pending approvals = %d, want 3 pause actions gated", result.PendingApprovals)
	}

	pending := r.orch.Approvals().Pending()
	if len(pending) != 3 {
		t.Fatalf("got %d pending, want 3", len(pending))
	}
	for _, p := range pending {
		if p.Kind != ApprovalKindOptimization {
			t.Errorf("kind = %s, want %s", p.Kind, ApprovalKindOptimization)
		}
		if p.RequestedBy != domain.UnitOptimizer {
			t.Errorf("requested_by = %s, want optimizer", p.RequestedBy)
		}
		if !strings.Contains(p.Description, "zero conversions") {
			t.Errorf("description %q must carry the action's justification", p.Description)
		}
		if got := p.ExpiresAt.Sub(p.CreatedAt); got != 24*time.Hour {
			t.Errorf("expiry window = %v, want 24h", got)
		}
	}
}

func TestApprovedActionsExecuteOnNextLoop(t *testing.T) {
	ctx := context.Background()
	r := newRig(t, nil, wastefulCampaign("c1"), wastefulCampaign("c2"), wastefulCampaign("c3"))

	if _, err := r.orch.RunLoop(ctx); err != nil {
		t.Fatalf("first loop: %v", err)
	}
	pending := r.orch.Approvals().Pending()
	if len(pending) != 3 {
		t.Fatalf("got %d pending, want 3", len(pending))
	}

	approved, err := r.orch.Approve(ctx, pending[0].ID, "sam", "confirmed waste")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != domain.ApprovalStatusApproved {
		t.Fatalf("status = %s, want approved", approved.Status)
	}

	second, err := r.orch.RunLoop(ctx)
	if err != nil {
		t.Fatalf("second loop: %v", err)
	}

	execStep := stepByName(t, second, stepExecute)
	if !strings.Contains(execStep.Detail, "applied 1") {
		t.Errorf("execute detail = %q, want one applied action", execStep.Detail)
	}

	var paused bool
	for _, m := range r.client.Mutations() {
		if m.Op == "pause_campaign" {
			paused = true
		}
	}
	if !paused {
		t.Error("approved pause must reach the ad platform")
	}

	if _, err := r.orch.Approvals().Get(pending[0].ID); !errors.Is(err, ErrApprovalNotFound) {
		t.Errorf("executed approval must leave the queue, got err %v", err)
	}
	if r.gov.Changes().Len() == 0 {
		t.Error("execution must be recorded in the change log")
	}
}

type capturingVerdictRecorder struct {
	verdicts []domain.DecisionVerdict
}

func (r *capturingVerdictRecorder) RecordVerdict(v domain.DecisionVerdict) {
	r.verdicts = append(r.verdicts, v)
}

func TestResolvedApprovalsEmitVerdicts(t *testing.T) {
	ctx := context.Background()
	r := newRig(t, nil, wastefulCampaign("c1"), wastefulCampaign("c2"))
	recorder := &capturingVerdictRecorder{}
	r.orch.SetVerdictRecorder(recorder)

	if _, err := r.orch.RunLoop(ctx); err != nil {
		t.Fatalf("run loop: %v", err)
	}
	pending := r.orch.Approvals().Pending()
	if len(pending) != 2 {
		t.Fatalf("got %d pending, want 2", len(pending))
	}

	if _, err := r.orch.Approve(ctx, pending[0].ID, "sam", "confirmed waste"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := r.orch.Reject(ctx, pending[1].ID, "sam", "holiday spike"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	if len(recorder.verdicts) != 2 {
		t.Fatalf("got %d verdicts, want one per resolution: %+v", len(recorder.verdicts), recorder.verdicts)
	}
	if !recorder.verdicts[0].Approved || recorder.verdicts[1].Approved {
		t.Errorf("approved flags = %v/%v, want true/false",
			recorder.verdicts[0].Approved, recorder.verdicts[1].Approved)
	}
	for _, v := range recorder.verdicts {
		if v.Kind != ApprovalKindOptimization {
			t.Errorf("kind = %s, want %s", v.Kind, ApprovalKindOptimization)
		}
		if v.ActionType != string(domain.ActionCampaignPause) {
			t.Errorf("action type = %s, want %s", v.ActionType, domain.ActionCampaignPause)
		}
		if v.Confidence <= 0 {
			t.Errorf("confidence = %v, must carry the proposal's score", v.Confidence)
		}
		if v.DecidedBy != "sam" {
			t.Errorf("decided by = %s, want sam", v.DecidedBy)
		}
		if v.DecidedAt.IsZero() {
			t.Error("decided at must be stamped")
		}
	}
}

type blockingSummaryUnit struct {
	started chan struct{}
	release chan struct{}
	summary domain.PerformanceSummary
	once    bool
}

func (u *blockingSummaryUnit) ID() string { return domain.UnitPerformance }

func (u *blockingSummaryUnit) HandleMessage(ctx context.Context, msg *domain.AgentMessage) (*domain.AgentMessage, error) {
	if !u.once {
		u.once = true
		close(u.started)
		<-u.release
	}
	return domain.ResponseTo(msg, domain.UnitPerformance, domain.MarshalPayload(u.summary)), nil
}

func (u *blockingSummaryUnit) State() domain.AgentState { return domain.AgentState{ID: u.ID()} }

func TestRunLoopRefusesOverlap(t *testing.T) {
	blocking := &blockingSummaryUnit{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	router := protocol.NewRouter(nil)
	gov := governance.NewEngine(governance.Config{}, nil)
	for _, u := range []protocol.Unit{
		blocking,
		governance.NewUnit(gov),
		optimizer.NewUnit(optimizer.NewEngine(optimizer.Config{}, nil, nil)),
		experiment.NewUnit(experiment.NewEngine(experiment.Config{}, experiment.NewAnalyzer(), nil)),
	} {
		if err := router.Register(u); err != nil {
			t.Fatalf("register %s: %v", u.ID(), err)
		}
	}
	orch := New(Config{Interval: time.Hour}, router, nil)

	done := make(chan error, 1)
	go func() {
		_, err := orch.RunLoop(context.Background())
		done <- err
	}()

	<-blocking.started
	if _, err := orch.RunLoop(context.Background()); !errors.Is(err, ErrLoopRunning) {
		t.Errorf("overlapping run: err = %v, want ErrLoopRunning", err)
	}
	close(blocking.release)

	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := orch.RunLoop(context.Background()); err != nil {
		t.Errorf("run after release: %v", err)
	}
}

type flakySummaryUnit struct {
	summary domain.PerformanceSummary
	fail    bool
}

func (u *flakySummaryUnit) ID() string { return domain.UnitPerformance }

func (u *flakySummaryUnit) HandleMessage(ctx context.Context, msg *domain.AgentMessage) (*domain.AgentMessage, error) {
	if u.fail {
		return nil, errors.New("platform 500")
	}
	return domain.ResponseTo(msg, domain.UnitPerformance, domain.MarshalPayload(u.summary)), nil
}

func (u *flakySummaryUnit) State() domain.AgentState { return domain.AgentState{ID: u.ID()} }

func TestObserveFailureFallsBackToLastSummary(t *testing.T) {
	flaky := &flakySummaryUnit{
		summary: domain.PerformanceSummary{Campaigns: []domain.CampaignSnapshot{healthyCampaign("c1")}},
	}
	router := protocol.NewRouter(nil)
	for _, u := range []protocol.Unit{
		flaky,
		governance.NewUnit(governance.NewEngine(governance.Config{}, nil)),
		optimizer.NewUnit(optimizer.NewEngine(optimizer.Config{}, nil, nil)),
		experiment.NewUnit(experiment.NewEngine(experiment.Config{}, experiment.NewAnalyzer(), nil)),
	} {
		if err := router.Register(u); err != nil {
			t.Fatalf("register %s: %v", u.ID(), err)
		}
	}
	orch := New(Config{Interval: time.Hour}, router, nil)
	ctx := context.Background()

	if _, err := orch.RunLoop(ctx); err != nil {
		t.Fatalf("first loop: %v", err)
	}

	flaky.fail = true
	result, err := orch.RunLoop(ctx)
	if err != nil {
		t.Fatalf("second loop: %v", err)
	}
	if s := stepByName(t, result, stepObserve); s.Success {
		t.Error("observe step must fail when the platform is down")
	}
	for _, name := range []string{stepGovernance, stepOptimize} {
		if s := stepByName(t, result, name); !s.Success {
			t.Errorf("step %s must run against the previous summary: %s", name, s.Error)
		}
	}
}

func TestRunLoopWithoutAnySummaryFailsDownstreamSteps(t *testing.T) {
	flaky := &flakySummaryUnit{fail: true}
	router := protocol.NewRouter(nil)
	for _, u := range []protocol.Unit{
		flaky,
		governance.NewUnit(governance.NewEngine(governance.Config{}, nil)),
		optimizer.NewUnit(optimizer.NewEngine(optimizer.Config{}, nil, nil)),
		experiment.NewUnit(experiment.NewEngine(experiment.Config{}, experiment.NewAnalyzer(), nil)),
	} {
		if err := router.Register(u); err != nil {
			t.Fatalf("register %s: %v", u.ID(), err)
		}
	}
	orch := New(Config{Interval: time.Hour}, router, nil)

	result, err := orch.RunLoop(context.Background())
	if err != nil {
		t.Fatalf("run loop: %v", err)
	}
	for _, name := range []string{stepObserve, stepGovernance, stepOptimize} {
		if s := stepByName(t, result, name); s.Success {
			t.Errorf("step %s must fail with no summary ever observed", name)
		}
	}
	for _, name := range []string{stepExecute, stepExperiment} {
		if s := stepByName(t, result, name); !s.Success {
			t.Errorf("step %s must still run: %s", name, s.Error)
		}
	}
	if result.NextRun.IsZero() {
		t.Error("next run must be scheduled regardless")
	}
}

func TestStatusAggregates(t *testing.T) {
	r := newRig(t, nil, wastefulCampaign("c1"), wastefulCampaign("c2"), wastefulCampaign("c3"))
	ctx := context.Background()

	if _, err := r.orch.RunLoop(ctx); err != nil {
		t.Fatalf("run loop: %v", err)
	}

	status := r.orch.Status(ctx)
	if status.Phase != domain.PhaseOptimizing {
		t.Errorf("phase = %s, want optimizing", status.Phase)
	}
	if status.PendingApprovals != 3 || status.PendingOptimizations != 3 {
		t.Errorf("pending = %d/%d, want 3/3", status.PendingApprovals, status.PendingOptimizations)
	}
	if status.LastLoop == nil {
		t.Fatal("status must carry the last loop result")
	}
	if len(status.Agents) != 5 {
		t.Errorf("got %d agents, want 5 registered units", len(status.Agents))
	}
	if status.ActiveExperiments != 0 {
		t.Errorf("active experiments = %d, want 0", status.ActiveExperiments)
	}
}

func TestSetPhase(t *testing.T) {
	r := newRig(t, nil)

	if err := r.orch.SetPhase(domain.PhaseScaling); err != nil {
		t.Fatalf("set phase: %v", err)
	}
	if got := r.orch.Phase(); got != domain.PhaseScaling {
		t.Errorf("phase = %s, want scaling", got)
	}
	if err := r.orch.SetPhase("warp_speed"); err == nil {
		t.Error("unknown phase must be rejected")
	}
}
