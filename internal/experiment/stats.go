// Package experiment designs A/B tests, ingests observations and turns
// them into stop/continue decisions.
package experiment

import (
	"math"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

const (
	zAlpha = 1.96 // two-sided alpha = 0.05
	zBeta  = 0.84 // 80% power

	minRuntimeDays = 7
	maxRuntimeDays = 30
)

// StandardErrorFunc estimates the standard error of one arm's metric
// value. The default approximates SE as 10% of the value; swap in a
// real binomial SE without touching callers.
type StandardErrorFunc func(value float64) float64

// CDFFunc is the cumulative distribution function used to turn a
// z-score into a probability.
type CDFFunc func(z float64) float64

// ProportionalStandardError is the default SE estimate: 10% of the
// observed value.
func ProportionalStandardError(value float64) float64 {
	return 0.1 * value
}

// NormalCDF approximates the standard normal CDF using the
// Abramowitz and Stegun rational approximation of erf.
func NormalCDF(z float64) float64 {
	const (
		a1 = 0.254829592
		a2 = -0.284496736
		a3 = 1.421413741
		a4 = -1.453152027
		a5 = 1.061405429
		p  = 0.3275911
	)

	x := z / math.Sqrt2
	sign := 1.0
	if x < 0 {
		sign = -1
		x = -x
	}
	t := 1 / (1 + p*x)
	y := 1 - (((((a5*t+a4)*t+a3)*t+a2)*t+a1)*t)*math.Exp(-x*x)
	return 0.5 * (1 + sign*y)
}

// Comparison is the statistical result of comparing one metric across
// the two arms.
type Comparison struct {
	ControlValue   float64
	TreatmentValue float64
	Z              float64
	PValue         float64
	Confidence     float64
	Lift           float64
	LiftLower      float64
	LiftUpper      float64
}

// Analyzer bundles the pluggable statistical strategies.
type Analyzer struct {
	StandardError StandardErrorFunc
	CDF           CDFFunc
}

// NewAnalyzer returns an analyzer with the default strategies.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		StandardError: ProportionalStandardError,
		CDF:           NormalCDF,
	}
}

// Compare runs the two-arm z-test on a single metric value pair.
func (a *Analyzer) Compare(control, treatment float64) Comparison {
	seControl := a.StandardError(control)
	seTreatment := a.StandardError(treatment)
	pooled := math.Sqrt(seControl*seControl + seTreatment*seTreatment)

	cmp := Comparison{ControlValue: control, TreatmentValue: treatment}
	if pooled > 0 {
		cmp.Z = (treatment - control) / pooled
	}
	cmp.PValue = 2 * (1 - a.CDF(math.Abs(cmp.Z)))
	if cmp.PValue < 0 {
		cmp.PValue = 0
	}
	if cmp.PValue > 1 {
		cmp.PValue = 1
	}
	cmp.Confidence = 1 - cmp.PValue

	if control != 0 {
		cmp.Lift = (treatment - control) / control
		margin := zAlpha * (pooled / control)
		cmp.LiftLower = cmp.Lift - margin
		cmp.LiftUpper = cmp.Lift + margin
	}
	return cmp
}

// MinimumSampleSize returns the per-arm sample size from the standard
// two-proportion power analysis at alpha 0.05 and 80% power.
// baselineRate is the assumed conversion rate of the control arm and
// mde the relative lift the test must detect; both must be positive.
func MinimumSampleSize(baselineRate, mde float64) int {
	p1 := baselineRate
	p2 := baselineRate * (1 + mde)
	if p2 > 1 {
		p2 = 1
	}
	diff := p1 - p2
	if diff == 0 {
		return 0
	}
	pBar := (p1 + p2) / 2
	z := zAlpha + zBeta
	n := 2 * pBar * (1 - pBar) * z * z / (diff * diff)
	return int(math.Ceil(n))
}

// MinimumRuntimeDays converts a per-arm sample size into a runtime
// floor, clamped to [7, 30] days.
func MinimumRuntimeDays(sampleSize int, dailyConversions float64) int {
	if dailyConversions <= 0 {
		return maxRuntimeDays
	}
	days := int(math.Ceil(float64(sampleSize) / dailyConversions))
	if days < minRuntimeDays {
		return minRuntimeDays
	}
	if days > maxRuntimeDays {
		return maxRuntimeDays
	}
	return days
}

// metricValue selects the arm's value for the named metric. The bool is
// false for names the engine does not understand.
func metricValue(name string, m domain.VariantMetrics) (float64, bool) {
	switch name {
	case "impressions":
		return float64(m.Impressions), true
	case "clicks":
		return float64(m.Clicks), true
	case "cost":
		return m.Cost, true
	case "conversions":
		return m.Conversions, true
	case "conversion_value":
		return m.ConversionValue, true
	case "ctr":
		return m.CTR, true
	case "conversion_rate":
		return m.ConversionRate, true
	case "cpa":
		return m.CPA, true
	case "roas":
		return m.ROAS, true
	}
	return 0, false
}
