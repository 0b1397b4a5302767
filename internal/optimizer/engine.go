package optimizer

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ItaloOlivier/ayonne-sub000/internal/ads"
	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

// Risk boundaries over an action set. Boundary values resolve to the
// lower band: exactly 5 pauses or a 1000 delta is medium, exactly 2
// pauses or a 500 delta is low.
const (
	highRiskPauses = 5
	highRiskDelta  = 1000.0
	medRiskPauses  = 2
	medRiskDelta   = 500.0
)

// Config carries the account targets and the approval gate threshold.
type Config struct {
	TargetCPA         float64
	TargetROAS        float64
	ApprovalThreshold float64
}

func (c *Config) withDefaults() {
	if c.TargetCPA <= 0 {
		c.TargetCPA = 40
	}
	if c.TargetROAS <= 0 {
		c.TargetROAS = 3
	}
	if c.ApprovalThreshold <= 0 {
		c.ApprovalThreshold = 500
	}
}

// Engine generates optimization plans and applies approved actions
// through the platform client.
type Engine struct {
	cfg    Config
	client ads.Client
	log    *logrus.Entry
}

// NewEngine builds an optimizer. The client may be nil for plan-only
// use; Apply and Revert then fail cleanly.
func NewEngine(cfg Config, client ads.Client, log *logrus.Entry) *Engine {
	cfg.withDefaults()
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Engine{cfg: cfg, client: client, log: log}
}

// GeneratePlan evaluates every rule against the summary and returns the
// prioritized plan. The plan is self-contained: risk level, approval
// requirement and projected totals are all computed here.
func (e *Engine) GeneratePlan(summary *domain.PerformanceSummary) (*domain.OptimizationPlan, error) {
	if summary == nil {
		return nil, fmt.Errorf("generate plan: nil performance summary")
	}

	var actions []domain.OptimizationAction
	for _, snap := range summary.Campaigns {
		if snap.Campaign.Status != domain.CampaignStatusEnabled {
			continue
		}
		e.evaluateCampaign(snap, &actions)
		e.evaluateKeywords(snap, &actions)
		e.evaluateAds(snap, &actions)
	}
	e.evaluateReallocation(summary.Campaigns, &actions)

	sort.SliceStable(actions, func(i, j int) bool {
		return math.Abs(actions[i].Impact.ExpectedChange) > math.Abs(actions[j].Impact.ExpectedChange)
	})

	plan := &domain.OptimizationPlan{
		ID:          uuid.New().String(),
		Actions:     actions,
		TotalImpact: totalImpact(actions),
		RiskLevel:   riskLevel(actions),
		GeneratedAt: time.Now(),
	}
	plan.RequiresApproval = plan.RiskLevel != domain.RiskLow || aggregateBudgetDelta(actions) > e.cfg.ApprovalThreshold
	plan.Summary = summarize(actions, plan.RiskLevel)

	e.log.WithFields(logrus.Fields{
		"plan_id":           plan.ID,
		"actions":           len(plan.Actions),
		"risk":              plan.RiskLevel,
		"requires_approval": plan.RequiresApproval,
	}).Info("Generated optimization plan")

	return plan, nil
}

// totalImpact accumulates signed expected changes per metric. Waste and
// cost-efficiency reductions count as savings, so their sign flips.
func totalImpact(actions []domain.OptimizationAction) map[string]float64 {
	totals := make(map[string]float64)
	for _, a := range actions {
		change := a.Impact.ExpectedChange
		switch a.Impact.Metric {
		case "waste", "cost_efficiency":
			change = -change
		}
		totals[a.Impact.Metric] += change
	}
	return totals
}

func aggregateBudgetDelta(actions []domain.OptimizationAction) float64 {
	var delta float64
	for i := range actions {
		delta += actions[i].BudgetDelta()
	}
	return delta
}

func countPauses(actions []domain.OptimizationAction) int {
	n := 0
	for _, a := range actions {
		if a.Type.IsPause() {
			n++
		}
	}
	return n
}

func riskLevel(actions []domain.OptimizationAction) domain.RiskLevel {
	pauses := countPauses(actions)
	delta := aggregateBudgetDelta(actions)
	switch {
	case pauses > highRiskPauses || delta > highRiskDelta:
		return domain.RiskHigh
	case pauses > medRiskPauses || delta > medRiskDelta:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

func summarize(actions []domain.OptimizationAction, risk domain.RiskLevel) string {
	if len(actions) == 0 {
		return "no changes proposed"
	}
	counts := make(map[domain.ActionType]int)
	for _, a := range actions {
		counts[a.Type]++
	}
	parts := make([]string, 0, len(counts))
	for _, t := range []domain.ActionType{
		domain.ActionCampaignPause, domain.ActionKeywordPause, domain.ActionAdPause,
		domain.ActionBudgetReallocation, domain.ActionBidAdjustment, domain.ActionKeywordAdd,
		domain.ActionNegativeAdd, domain.ActionTargetingChange, domain.ActionScheduleChange,
	} {
		if counts[t] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[t], t))
		}
	}
	return fmt.Sprintf("%d actions (%s), %s risk, projected budget delta $%.2f",
		len(actions), strings.Join(parts, ", "), risk, aggregateBudgetDelta(actions))
}

// Apply executes one approved action against the platform and marks it
// applied. Unsupported action types fail without side effects.
func (e *Engine) Apply(ctx context.Context, action *domain.OptimizationAction) error {
	if e.client == nil {
		return fmt.Errorf("apply action %s: no platform client configured", action.ID)
	}

	var err error
	switch action.Type {
	case domain.ActionBudgetReallocation:
		err = e.client.UpdateBudget(ctx, action.Target.ID, action.ProposedValue)
	case domain.ActionBidAdjustment:
		err = e.client.UpdateKeywordBid(ctx, action.Target.CampaignID, action.Target.ID, action.ProposedValue)
	case domain.ActionCampaignPause:
		err = e.client.PauseCampaign(ctx, action.Target.ID)
	case domain.ActionKeywordPause:
		err = e.client.PauseKeyword(ctx, action.Target.CampaignID, action.Target.ID)
	case domain.ActionAdPause:
		err = e.client.PauseAd(ctx, action.Target.CampaignID, action.Target.ID)
	case domain.ActionNegativeAdd:
		err = e.client.AddNegativeKeyword(ctx, action.Target.CampaignID, action.Target.Name)
	default:
		return fmt.Errorf("apply action %s: type %s is not executable", action.ID, action.Type)
	}
	if err != nil {
		return fmt.Errorf("apply %s to %s %s: %w", action.Type, action.Target.Type, action.Target.ID, err)
	}

	action.Status = domain.ActionStatusApplied
	e.log.WithFields(logrus.Fields{
		"action_id": action.ID,
		"type":      action.Type,
		"target":    action.Target.ID,
	}).Info("Applied optimization action")
	return nil
}

// Revert undoes an applied action where the platform surface allows it:
// budget and bid changes restore the previous value, campaign pauses
// re-enable the campaign.
func (e *Engine) Revert(ctx context.Context, action *domain.OptimizationAction) error {
	if e.client == nil {
		return fmt.Errorf("revert action %s: no platform client configured", action.ID)
	}
	if action.Status != domain.ActionStatusApplied {
		return fmt.Errorf("revert action %s: status %s, want applied", action.ID, action.Status)
	}

	var err error
	switch action.Type {
	case domain.ActionBudgetReallocation:
		err = e.client.UpdateBudget(ctx, action.Target.ID, action.CurrentValue)
	case domain.ActionBidAdjustment:
		err = e.client.UpdateKeywordBid(ctx, action.Target.CampaignID, action.Target.ID, action.CurrentValue)
	case domain.ActionCampaignPause:
		err = e.client.ResumeCampaign(ctx, action.Target.ID)
	default:
		return fmt.Errorf("revert action %s: type %s cannot be reverted", action.ID, action.Type)
	}
	if err != nil {
		return fmt.Errorf("revert %s on %s %s: %w", action.Type, action.Target.Type, action.Target.ID, err)
	}

	action.Status = domain.ActionStatusReverted
	e.log.WithFields(logrus.Fields{
		"action_id": action.ID,
		"type":      action.Type,
		"target":    action.Target.ID,
	}).Info("Reverted optimization action")
	return nil
}
