package meta

import (
	"math"
	"time"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

// Drift thresholds on the Pearson correlation between confidence and
// approval outcome.
const (
	driftWarningBelow  = 0.75
	driftCriticalBelow = 0.6
)

// Calibration reports how closely proposal confidence tracks what
// reviewers actually approve.
type Calibration struct {
	Pearson           float64   `json:"pearson_correlation"`
	Spearman          float64   `json:"spearman_correlation"`
	MeanAbsoluteError float64   `json:"mean_absolute_error"`
	SampleCount       int       `json:"sample_count"`
	DriftStatus       string    `json:"drift_status"`
	From              time.Time `json:"from,omitempty"`
	To                time.Time `json:"to,omitempty"`
	GeneratedAt       time.Time `json:"generated_at"`
}

// Calibrate correlates confidence scores against approval outcomes.
// Under two verdicts there is nothing to correlate.
func Calibrate(verdicts []domain.DecisionVerdict) *Calibration {
	cal := &Calibration{
		SampleCount: len(verdicts),
		GeneratedAt: time.Now(),
	}
	if len(verdicts) < 2 {
		cal.DriftStatus = "insufficient_data"
		return cal
	}

	confidence := make([]float64, len(verdicts))
	outcome := make([]float64, len(verdicts))
	cal.From = verdicts[0].DecidedAt
	cal.To = verdicts[0].DecidedAt
	for i, v := range verdicts {
		confidence[i] = v.Confidence
		if v.Approved {
			outcome[i] = 1
		}
		if v.DecidedAt.Before(cal.From) {
			cal.From = v.DecidedAt
		}
		if v.DecidedAt.After(cal.To) {
			cal.To = v.DecidedAt
		}
	}

	cal.Pearson = pearsonCorrelation(confidence, outcome)
	cal.Spearman = spearmanCorrelation(confidence, outcome)
	cal.MeanAbsoluteError = meanAbsoluteError(confidence, outcome)

	cal.DriftStatus = "stable"
	if cal.Pearson < driftCriticalBelow {
		cal.DriftStatus = "critical"
	} else if cal.Pearson < driftWarningBelow {
		cal.DriftStatus = "warning"
	}
	return cal
}

func pearsonCorrelation(xs, ys []float64) float64 {
	n := float64(len(xs))
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumX2, sumY2 float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumX2 += xs[i] * xs[i]
		sumY2 += ys[i] * ys[i]
	}

	numerator := n*sumXY - sumX*sumY
	denominator := math.Sqrt((n*sumX2 - sumX*sumX) * (n*sumY2 - sumY*sumY))
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

func spearmanCorrelation(xs, ys []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}

	xRanks := rank(xs)
	yRanks := rank(ys)

	var sumD2 float64
	for i := range xs {
		d := xRanks[i] - yRanks[i]
		sumD2 += d * d
	}

	nf := float64(n)
	return 1 - (6*sumD2)/(nf*(nf*nf-1))
}

func rank(values []float64) []float64 {
	n := len(values)
	ranks := make([]float64, n)

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if values[indices[i]] > values[indices[j]] {
				indices[i], indices[j] = indices[j], indices[i]
			}
		}
	}

	for r, idx := range indices {
		ranks[idx] = float64(r + 1)
	}
	return ranks
}

func meanAbsoluteError(xs, ys []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for i := range xs {
		sum += math.Abs(xs[i] - ys[i])
	}
	return sum / float64(len(xs))
}
