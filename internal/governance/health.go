package governance

import (
	"strings"
	"time"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

// neutralScore stands in for components the platform did not report, so
// a sparse account is not scored critical for missing data.
const neutralScore = 70

// Component weights sum to 100.
const (
	weightCPA             = 25
	weightROAS            = 25
	weightQualityScore    = 20
	weightAdApprovalRate  = 15
	weightImpressionShare = 15
)

// ScoreHealth rolls the account's vital signs into one 0-100 score.
// Each sub-score is the metric's ratio to its target scaled to 100 and
// clamped; CPA inverts the ratio since lower is better.
func (e *Engine) ScoreHealth(summary *domain.PerformanceSummary) *domain.AccountHealth {
	totals := summary.Totals

	cpaScore := float64(neutralScore)
	if totals.CPA > 0 {
		cpaScore = clampScore(e.cfg.TargetCPA / totals.CPA * 100)
	}
	roasScore := float64(neutralScore)
	if totals.ROAS > 0 {
		roasScore = clampScore(totals.ROAS / e.cfg.TargetROAS * 100)
	}
	qualityScore := float64(neutralScore)
	if qs := accountQualityScore(summary); qs > 0 {
		qualityScore = clampScore(qs / e.cfg.TargetQualityScore * 100)
	}
	approvalScore := float64(neutralScore)
	if rate, ok := adApprovalRate(summary.Campaigns); ok {
		approvalScore = clampScore(rate / e.cfg.TargetAdApprovalRate * 100)
	}
	shareScore := float64(neutralScore)
	if is := accountImpressionShare(summary); is > 0 {
		shareScore = clampScore(is / e.cfg.TargetImpressionShare * 100)
	}

	components := []domain.HealthComponent{
		{Name: "cpa", Score: cpaScore, Weight: weightCPA},
		{Name: "roas", Score: roasScore, Weight: weightROAS},
		{Name: "quality_score", Score: qualityScore, Weight: weightQualityScore},
		{Name: "ad_approval_rate", Score: approvalScore, Weight: weightAdApprovalRate},
		{Name: "impression_share", Score: shareScore, Weight: weightImpressionShare},
	}

	var total, weights float64
	for _, c := range components {
		total += c.Score * c.Weight
		weights += c.Weight
	}
	score := total / weights

	status := domain.HealthCritical
	switch {
	case score >= 70:
		status = domain.HealthHealthy
	case score >= 40:
		status = domain.HealthWarning
	}

	return &domain.AccountHealth{
		Score:      score,
		Status:     status,
		Components: components,
		ScoredAt:   time.Now(),
	}
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// accountQualityScore prefers the account total and falls back to the
// mean of campaigns that reported one.
func accountQualityScore(summary *domain.PerformanceSummary) float64 {
	if summary.Totals.QualityScore > 0 {
		return summary.Totals.QualityScore
	}
	var sum float64
	var n int
	for _, snap := range summary.Campaigns {
		if snap.Metrics.QualityScore > 0 {
			sum += snap.Metrics.QualityScore
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func accountImpressionShare(summary *domain.PerformanceSummary) float64 {
	if summary.Totals.ImpressionShare > 0 {
		return summary.Totals.ImpressionShare
	}
	var sum float64
	var n int
	for _, snap := range summary.Campaigns {
		if snap.Metrics.ImpressionShare > 0 {
			sum += snap.Metrics.ImpressionShare
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// adApprovalRate is the share of ads not currently disapproved. The
// second return is false when the account has no ads to judge.
func adApprovalRate(campaigns []domain.CampaignSnapshot) (float64, bool) {
	var total, disapproved int
	for _, snap := range campaigns {
		for _, ad := range snap.Ads {
			total++
			if strings.EqualFold(ad.Status, "disapproved") {
				disapproved++
			}
		}
	}
	if total == 0 {
		return 0, false
	}
	return float64(total-disapproved) / float64(total), true
}
