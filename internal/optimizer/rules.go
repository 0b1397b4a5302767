// Package optimizer turns performance snapshots into prioritized,
// risk-scored change proposals and executes approved ones.
package optimizer

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

// Rule thresholds. Ratios are against the campaign's target CPA (or the
// account target when the campaign has no override).
const (
	cpaCutRatio      = 1.5  // budget cut above this
	cpaCriticalRatio = 2.0  // bid cut above this
	cpaScaleRatio    = 0.7  // budget increase below this
	cpaBidUpRatio    = 0.6  // bid increase below this
	roasScaleRatio   = 1.2  // budget increase needs ROAS above target by this
	minPauseSpend    = 100  // zero-conversion spend before a pause
	lowKeywordCTR    = 0.005
	lowAdCTR         = 0.01
	minImpressions   = 1000
	lowImpressionCap = 0.7 // bid increase only under this impression share

	budgetCutPct      = 0.20
	budgetIncreasePct = 0.30
	bidCutPct         = 0.30
	bidIncreasePct    = 0.20
	reallocationPct   = 0.20
)

func (e *Engine) targetCPAFor(c domain.Campaign) float64 {
	if c.TargetCPA > 0 {
		return c.TargetCPA
	}
	return e.cfg.TargetCPA
}

// evaluateCampaign applies the campaign-level rules and appends every
// proposal that fires.
func (e *Engine) evaluateCampaign(snap domain.CampaignSnapshot, actions *[]domain.OptimizationAction) {
	m := snap.Metrics
	targetCPA := e.targetCPAFor(snap.Campaign)
	target := domain.Target{Type: domain.EntityCampaign, ID: snap.Campaign.ID, Name: snap.Campaign.Name}

	if m.Conversions >= 5 && m.CPA > cpaCutRatio*targetCPA {
		*actions = append(*actions, newAction(
			domain.ActionBudgetReallocation, target,
			snap.Campaign.DailyBudget, snap.Campaign.DailyBudget*(1-budgetCutPct),
			domain.ExpectedImpact{Metric: "cpa", ExpectedChange: -15, Direction: domain.DirectionDecrease},
			0.7,
			fmt.Sprintf("CPA %.2f is %.1fx the %.2f target over %.0f conversions", m.CPA, m.CPA/targetCPA, targetCPA, m.Conversions),
		))
	}

	if m.Conversions >= 3 && m.ROAS < 1.0 {
		*actions = append(*actions, newAction(
			domain.ActionCampaignPause, target,
			snap.Campaign.DailyBudget, 0,
			domain.ExpectedImpact{Metric: "waste", ExpectedChange: -100, Direction: domain.DirectionDecrease},
			0.8,
			fmt.Sprintf("ROAS %.2f returns less than spend across %.0f conversions", m.ROAS, m.Conversions),
		))
	}

	if m.Conversions == 0 && m.Cost > minPauseSpend {
		*actions = append(*actions, newAction(
			domain.ActionCampaignPause, target,
			snap.Campaign.DailyBudget, 0,
			domain.ExpectedImpact{Metric: "waste", ExpectedChange: -100, Direction: domain.DirectionDecrease},
			0.85,
			fmt.Sprintf("spent $%.2f with zero conversions", m.Cost),
		))
	}

	if m.Conversions >= 10 && m.CPA > 0 && m.CPA < cpaScaleRatio*targetCPA && m.ROAS > roasScaleRatio*e.cfg.TargetROAS {
		*actions = append(*actions, newAction(
			domain.ActionBudgetReallocation, target,
			snap.Campaign.DailyBudget, snap.Campaign.DailyBudget*(1+budgetIncreasePct),
			domain.ExpectedImpact{Metric: "conversions", ExpectedChange: 25, Direction: domain.DirectionIncrease},
			0.75,
			fmt.Sprintf("CPA %.2f well under target %.2f with ROAS %.2f, room to scale", m.CPA, targetCPA, m.ROAS),
		))
	}
}

// evaluateKeywords applies the keyword-level rules across one
// campaign's keywords.
func (e *Engine) evaluateKeywords(snap domain.CampaignSnapshot, actions *[]domain.OptimizationAction) {
	targetCPA := e.targetCPAFor(snap.Campaign)

	for _, kw := range snap.Keywords {
		m := kw.Metrics
		target := domain.Target{Type: domain.EntityKeyword, ID: kw.ID, Name: kw.Text, CampaignID: snap.Campaign.ID}

		if m.Conversions == 0 && m.Cost > minPauseSpend {
			*actions = append(*actions, newAction(
				domain.ActionKeywordPause, target,
				kw.Bid, 0,
				domain.ExpectedImpact{Metric: "waste", ExpectedChange: -100, Direction: domain.DirectionDecrease},
				0.85,
				fmt.Sprintf("spent $%.2f with zero conversions", m.Cost),
			))
		}

		if m.Conversions >= 2 && m.CPA > cpaCriticalRatio*targetCPA {
			*actions = append(*actions, newAction(
				domain.ActionBidAdjustment, target,
				kw.Bid, kw.Bid*(1-bidCutPct),
				domain.ExpectedImpact{Metric: "cpa", ExpectedChange: -20, Direction: domain.DirectionDecrease},
				0.65,
				fmt.Sprintf("CPA %.2f is over twice the %.2f target", m.CPA, targetCPA),
			))
		}

		if m.Impressions > minImpressions && m.CTR < lowKeywordCTR {
			*actions = append(*actions, newAction(
				domain.ActionKeywordPause, target,
				kw.Bid, 0,
				domain.ExpectedImpact{Metric: "ctr", ExpectedChange: 5, Direction: domain.DirectionIncrease},
				0.7,
				fmt.Sprintf("CTR %.2f%% over %d impressions drags quality score", m.CTR*100, m.Impressions),
			))
		}

		// ImpressionShare 0 means the platform did not report it.
		if m.Conversions >= 5 && m.CPA > 0 && m.CPA < cpaBidUpRatio*targetCPA &&
			m.ImpressionShare > 0 && m.ImpressionShare < lowImpressionCap {
			*actions = append(*actions, newAction(
				domain.ActionBidAdjustment, target,
				kw.Bid, kw.Bid*(1+bidIncreasePct),
				domain.ExpectedImpact{Metric: "conversions", ExpectedChange: 15, Direction: domain.DirectionIncrease},
				0.7,
				fmt.Sprintf("CPA %.2f far under target with only %.0f%% impression share", m.CPA, m.ImpressionShare*100),
			))
		}
	}
}

// evaluateAds applies the ad-level rules.
func (e *Engine) evaluateAds(snap domain.CampaignSnapshot, actions *[]domain.OptimizationAction) {
	for _, ad := range snap.Ads {
		m := ad.Metrics
		if m.Impressions > minImpressions && m.CTR < lowAdCTR {
			*actions = append(*actions, newAction(
				domain.ActionAdPause,
				domain.Target{Type: domain.EntityAd, ID: ad.ID, Name: ad.Headline, CampaignID: snap.Campaign.ID},
				0, 0,
				domain.ExpectedImpact{Metric: "ctr", ExpectedChange: 8, Direction: domain.DirectionIncrease},
				0.75,
				fmt.Sprintf("CTR %.2f%% over %d impressions underperforms the ad group", m.CTR*100, m.Impressions),
			))
		}
	}
}

// evaluateReallocation ranks campaigns by efficiency and proposes moving
// spend away from the clear losers.
func (e *Engine) evaluateReallocation(snaps []domain.CampaignSnapshot, actions *[]domain.OptimizationAction) {
	type ranked struct {
		snap       domain.CampaignSnapshot
		targetCPA  float64
		efficiency float64
	}

	var eligible []ranked
	for _, snap := range snaps {
		if snap.Campaign.Status != domain.CampaignStatusEnabled || snap.Metrics.CPA <= 0 {
			continue
		}
		targetCPA := e.targetCPAFor(snap.Campaign)
		eligible = append(eligible, ranked{
			snap:       snap,
			targetCPA:  targetCPA,
			efficiency: targetCPA / snap.Metrics.CPA,
		})
	}
	if len(eligible) < 2 {
		return
	}

	sort.Slice(eligible, func(i, j int) bool { return eligible[i].efficiency > eligible[j].efficiency })

	bucket := len(eligible) / 5
	if bucket < 1 {
		bucket = 1
	}

	winners := 0
	for _, r := range eligible[:bucket] {
		if r.snap.Metrics.CPA < 0.8*r.targetCPA {
			winners++
		}
	}

	for _, r := range eligible[len(eligible)-bucket:] {
		if r.snap.Metrics.CPA <= 1.3*r.targetCPA {
			continue
		}
		budget := r.snap.Campaign.DailyBudget
		*actions = append(*actions, newAction(
			domain.ActionBudgetReallocation,
			domain.Target{Type: domain.EntityCampaign, ID: r.snap.Campaign.ID, Name: r.snap.Campaign.Name},
			budget, budget*(1-reallocationPct),
			domain.ExpectedImpact{Metric: "cost_efficiency", ExpectedChange: -20, Direction: domain.DirectionDecrease},
			0.7,
			fmt.Sprintf("bottom-ranked efficiency %.2f, freeing spend for %d stronger campaigns", r.efficiency, winners),
		))
	}
}

func newAction(t domain.ActionType, target domain.Target, current, proposed float64, impact domain.ExpectedImpact, confidence float64, justification string) domain.OptimizationAction {
	return domain.OptimizationAction{
		ID:            uuid.New().String(),
		Type:          t,
		Target:        target,
		CurrentValue:  current,
		ProposedValue: proposed,
		Impact:        impact,
		Confidence:    confidence,
		Justification: justification,
		Status:        domain.ActionStatusProposed,
		CreatedAt:     time.Now(),
	}
}
