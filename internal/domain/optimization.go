package domain

import "time"

type ActionType string

const (
	ActionBidAdjustment      ActionType = "bid_adjustment"
	ActionBudgetReallocation ActionType = "budget_reallocation"
	ActionCampaignPause      ActionType = "campaign_pause"
	ActionKeywordPause       ActionType = "keyword_pause"
	ActionKeywordAdd         ActionType = "keyword_add"
	ActionNegativeAdd        ActionType = "negative_add"
	ActionAdPause            ActionType = "ad_pause"
	ActionTargetingChange    ActionType = "targeting_change"
	ActionScheduleChange     ActionType = "schedule_change"
)

// IsPause reports whether the action stops delivery for its target.
func (t ActionType) IsPause() bool {
	return t == ActionCampaignPause || t == ActionKeywordPause || t == ActionAdPause
}

type ActionStatus string

const (
	ActionStatusProposed ActionStatus = "proposed"
	ActionStatusApproved ActionStatus = "approved"
	ActionStatusRejected ActionStatus = "rejected"
	ActionStatusApplied  ActionStatus = "applied"
	ActionStatusReverted ActionStatus = "reverted"
)

// ExpectedImpact is a signed percentage change on a named metric.
type ExpectedImpact struct {
	Metric         string          `json:"metric"`
	ExpectedChange float64         `json:"expected_change"`
	Direction      MetricDirection `json:"direction"`
}

type OptimizationAction struct {
	ID            string         `json:"id"`
	Type          ActionType     `json:"type"`
	Target        Target         `json:"target"`
	CurrentValue  float64        `json:"current_value"`
	ProposedValue float64        `json:"proposed_value"`
	Impact        ExpectedImpact `json:"expected_impact"`
	Confidence    float64        `json:"confidence"`
	Justification string         `json:"justification"`
	Status        ActionStatus   `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
}

// BudgetDelta is the absolute spend change the action would cause, used
// for risk scoring and the approval gate.
func (a *OptimizationAction) BudgetDelta() float64 {
	switch a.Type {
	case ActionBudgetReallocation, ActionBidAdjustment:
		d := a.ProposedValue - a.CurrentValue
		if d < 0 {
			return -d
		}
		return d
	default:
		return 0
	}
}

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// OptimizationPlan is one cycle's prioritized change set. Actions are
// sorted by absolute expected impact, largest first.
type OptimizationPlan struct {
	ID               string               `json:"id"`
	Actions          []OptimizationAction `json:"actions"`
	TotalImpact      map[string]float64   `json:"total_impact"`
	RiskLevel        RiskLevel            `json:"risk_level"`
	RequiresApproval bool                 `json:"requires_approval"`
	Summary          string               `json:"summary"`
	GeneratedAt      time.Time            `json:"generated_at"`
}

type ScalingVerdict string

const (
	ScaleUp       ScalingVerdict = "scale_up"
	ScaleDown     ScalingVerdict = "scale_down"
	ScalePause    ScalingVerdict = "pause"
	ScaleMaintain ScalingVerdict = "maintain"
)

// ScalingDecision classifies a single entity's trajectory. Consistent is
// true when CPA variation across the history window stayed below the
// coefficient-of-variation bound.
type ScalingDecision struct {
	Target       Target         `json:"target"`
	Verdict      ScalingVerdict `json:"verdict"`
	Consistent   bool           `json:"consistent"`
	CPAVariation float64        `json:"cpa_variation"`
	Reasoning    string         `json:"reasoning"`
	DecidedAt    time.Time      `json:"decided_at"`
}
