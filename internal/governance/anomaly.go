package governance

import (
	"fmt"
	"time"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

// Anomaly thresholds. Spike and drop compare against the previous
// period's cost; the CPA breach compares against the entity's target.
const (
	spikeWarningRatio  = 2.0
	spikeCriticalRatio = 3.0
	dropWarningRatio   = 0.5
	dropCriticalRatio  = 0.2
	dropMinBaseline    = 100.0
	cpaWarningRatio    = 2.0 // inclusive: exactly 2x the target is a warning
	cpaCriticalRatio   = 3.0
	cpaMinConversions  = 3.0
	collapseWarning    = 0.5
	collapseCritical   = 0.3
	collapseMinClicks  = 100
)

// Fixed documentation attached to each anomaly type. These are not
// computed; they give the operator a starting checklist.
var (
	spikeCauses = []string{
		"bid strategy change ramped up delivery",
		"broad match expansion pulling new queries",
		"seasonal demand surge",
		"competitor left the auction",
	}
	spikeActions = []string{
		"review recent bid and budget changes",
		"check the search terms report for new queries",
		"tighten budget caps until spend stabilizes",
	}
	dropCauses = []string{
		"budget exhausted early in the day",
		"ads disapproved or under review",
		"billing issue stopping delivery",
		"sharp impression share loss",
	}
	dropActions = []string{
		"verify billing and ad approval status",
		"check impression share lost to budget versus rank",
		"raise budget caps if delivery is limited",
	}
	cpaBreachCauses = []string{
		"conversion tracking broke or is double counting",
		"bid strategy overpaying for marginal clicks",
		"landing page conversion rate dropped",
	}
	cpaBreachActions = []string{
		"verify conversion tracking end to end",
		"lower bids or move to manual bidding",
		"review recent landing page changes",
	}
	collapseCauses = []string{
		"conversion tag removed or broken",
		"checkout or lead form failing on the site",
		"consent changes suppressing conversion pings",
	}
	collapseActions = []string{
		"walk the conversion funnel manually",
		"verify the conversion tag fires on the thank-you page",
		"compare against platform-reported conversions",
	}
)

// DetectAnomalies compares one entity's current metrics to its
// baseline. A zero-cost baseline skips the ratio checks; the CPA breach
// only needs the target.
func DetectAnomalies(entity domain.Target, current, baseline domain.PerformanceMetrics, targetCPA float64) []domain.SpendAnomaly {
	var anomalies []domain.SpendAnomaly
	now := time.Now()

	if baseline.Cost > 0 {
		ratio := current.Cost / baseline.Cost
		if ratio > spikeWarningRatio {
			severity := domain.SeverityWarning
			if ratio > spikeCriticalRatio {
				severity = domain.SeverityCritical
			}
			anomalies = append(anomalies, domain.SpendAnomaly{
				Type:               domain.AnomalySpendSpike,
				Severity:           severity,
				Entity:             entity,
				CurrentValue:       current.Cost,
				BaselineValue:      baseline.Cost,
				Ratio:              ratio,
				Description:        fmt.Sprintf("spend %.2f is %.1fx the %.2f baseline", current.Cost, ratio, baseline.Cost),
				PossibleCauses:     spikeCauses,
				RecommendedActions: spikeActions,
				DetectedAt:         now,
			})
		}
		if baseline.Cost > dropMinBaseline && ratio < dropWarningRatio {
			severity := domain.SeverityWarning
			if ratio < dropCriticalRatio {
				severity = domain.SeverityCritical
			}
			anomalies = append(anomalies, domain.SpendAnomaly{
				Type:               domain.AnomalySpendDrop,
				Severity:           severity,
				Entity:             entity,
				CurrentValue:       current.Cost,
				BaselineValue:      baseline.Cost,
				Ratio:              ratio,
				Description:        fmt.Sprintf("spend %.2f fell to %.0f%% of the %.2f baseline", current.Cost, ratio*100, baseline.Cost),
				PossibleCauses:     dropCauses,
				RecommendedActions: dropActions,
				DetectedAt:         now,
			})
		}
	}

	if targetCPA > 0 && current.Conversions >= cpaMinConversions && current.CPA >= cpaWarningRatio*targetCPA {
		ratio := current.CPA / targetCPA
		severity := domain.SeverityWarning
		if ratio > cpaCriticalRatio {
			severity = domain.SeverityCritical
		}
		anomalies = append(anomalies, domain.SpendAnomaly{
			Type:               domain.AnomalyCPABreach,
			Severity:           severity,
			Entity:             entity,
			CurrentValue:       current.CPA,
			BaselineValue:      targetCPA,
			Ratio:              ratio,
			Description:        fmt.Sprintf("CPA %.2f is %.1fx the %.2f target across %.0f conversions", current.CPA, ratio, targetCPA, current.Conversions),
			PossibleCauses:     cpaBreachCauses,
			RecommendedActions: cpaBreachActions,
			DetectedAt:         now,
		})
	}

	if baseline.ConversionRate > 0 && current.Clicks > collapseMinClicks {
		ratio := current.ConversionRate / baseline.ConversionRate
		if ratio < collapseWarning {
			severity := domain.SeverityWarning
			if ratio < collapseCritical {
				severity = domain.SeverityCritical
			}
			anomalies = append(anomalies, domain.SpendAnomaly{
				Type:               domain.AnomalyConversionCollapse,
				Severity:           severity,
				Entity:             entity,
				CurrentValue:       current.ConversionRate,
				BaselineValue:      baseline.ConversionRate,
				Ratio:              ratio,
				Description:        fmt.Sprintf("conversion rate %.2f%% fell to %.0f%% of the %.2f%% baseline", current.ConversionRate*100, ratio*100, baseline.ConversionRate*100),
				PossibleCauses:     collapseCauses,
				RecommendedActions: collapseActions,
				DetectedAt:         now,
			})
		}
	}

	return anomalies
}
