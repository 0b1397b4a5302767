package optimizer

import (
	"fmt"
	"math"
	"time"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

const (
	// consistencyWindow is the minimum number of historical periods
	// before performance can be called consistent.
	consistencyWindow = 4

	// maxConsistentCV bounds the CPA coefficient of variation for
	// scale-up eligibility.
	maxConsistentCV = 0.3
)

// ScalingDecision classifies one campaign's trajectory using the plan
// thresholds plus a consistency check over its CPA history. Scale-up is
// only allowed when the history is long enough and stable enough.
func (e *Engine) ScalingDecision(snap domain.CampaignSnapshot, history []domain.PerformanceMetrics) *domain.ScalingDecision {
	m := snap.Metrics
	targetCPA := e.targetCPAFor(snap.Campaign)

	cv, enough := cpaVariation(history)
	consistent := enough && cv < maxConsistentCV

	decision := &domain.ScalingDecision{
		Target:       domain.Target{Type: domain.EntityCampaign, ID: snap.Campaign.ID, Name: snap.Campaign.Name},
		Consistent:   consistent,
		CPAVariation: cv,
		DecidedAt:    time.Now(),
	}

	switch {
	case m.Conversions == 0 && m.Cost > minPauseSpend:
		decision.Verdict = domain.ScalePause
		decision.Reasoning = fmt.Sprintf("spent $%.2f with zero conversions", m.Cost)
	case m.Conversions >= 3 && m.ROAS < 1.0:
		decision.Verdict = domain.ScalePause
		decision.Reasoning = fmt.Sprintf("ROAS %.2f returns less than spend", m.ROAS)
	case m.Conversions >= 5 && m.CPA > cpaCutRatio*targetCPA:
		decision.Verdict = domain.ScaleDown
		decision.Reasoning = fmt.Sprintf("CPA %.2f is %.1fx the %.2f target", m.CPA, m.CPA/targetCPA, targetCPA)
	case m.Conversions >= 10 && m.CPA > 0 && m.CPA < cpaScaleRatio*targetCPA && m.ROAS > roasScaleRatio*e.cfg.TargetROAS:
		if consistent {
			decision.Verdict = domain.ScaleUp
			decision.Reasoning = fmt.Sprintf("CPA %.2f under target %.2f with CV %.2f across %d periods", m.CPA, targetCPA, cv, len(history))
		} else {
			decision.Verdict = domain.ScaleMaintain
			decision.Reasoning = scaleHoldReason(cv, enough)
		}
	default:
		decision.Verdict = domain.ScaleMaintain
		decision.Reasoning = "performance within target bands"
	}
	return decision
}

func scaleHoldReason(cv float64, enough bool) string {
	if !enough {
		return fmt.Sprintf("strong performance but fewer than %d periods of history", consistencyWindow)
	}
	return fmt.Sprintf("strong performance but CPA too volatile (CV %.2f)", cv)
}

// cpaVariation computes the coefficient of variation of CPA across the
// history. The bool is false when there are fewer than the required
// periods or no usable CPA values.
func cpaVariation(history []domain.PerformanceMetrics) (float64, bool) {
	var values []float64
	for _, m := range history {
		if m.CPA > 0 {
			values = append(values, m.CPA)
		}
	}
	if len(values) < 2 {
		return 0, false
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	if mean == 0 {
		return 0, false
	}

	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	stddev := math.Sqrt(sq / float64(len(values)))

	return stddev / mean, len(values) >= consistencyWindow
}
