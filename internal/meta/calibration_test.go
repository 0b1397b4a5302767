package meta

import (
	"math"
	"testing"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

func verdict(confidence float64, approved bool) domain.DecisionVerdict {
	return domain.DecisionVerdict{
		Kind:       "optimization_action",
		ActionType: "campaign_pause",
		Confidence: confidence,
		Approved:   approved,
	}
}

func TestCalibrateInsufficientData(t *testing.T) {
	cal := Calibrate([]domain.DecisionVerdict{verdict(0.9, true)})
	if cal.DriftStatus != "insufficient_data" {
		t.Errorf("drift = %s, want insufficient_data", cal.DriftStatus)
	}
	if cal.SampleCount != 1 {
		t.Errorf("sample count = %d, want 1", cal.SampleCount)
	}
}

func TestCalibrateWellAlignedConfidence(t *testing.T) {
	cal := Calibrate([]domain.DecisionVerdict{
		verdict(0.9, true),
		verdict(0.8, true),
		verdict(0.3, false),
		verdict(0.2, false),
	})

	if cal.Pearson < 0.9 {
		t.Errorf("pearson = %v, want strong positive correlation", cal.Pearson)
	}
	if cal.Spearman <= 0 {
		t.Errorf("spearman = %v, want positive", cal.Spearman)
	}
	if got, want := cal.MeanAbsoluteError, 0.2; math.Abs(got-want) > 1e-9 {
		t.Errorf("mae = %v, want %v", got, want)
	}
	if cal.DriftStatus != "stable" {
		t.Errorf("drift = %s, want stable", cal.DriftStatus)
	}
}

func TestCalibrateInvertedConfidenceIsCritical(t *testing.T) {
	cal := Calibrate([]domain.DecisionVerdict{
		verdict(0.9, false),
		verdict(0.8, false),
		verdict(0.2, true),
		verdict(0.1, true),
	})

	if cal.Pearson > -0.9 {
		t.Errorf("pearson = %v, want strong negative correlation", cal.Pearson)
	}
	if cal.DriftStatus != "critical" {
		t.Errorf("drift = %s, want critical", cal.DriftStatus)
	}
}

func TestPearsonConstantInputIsZero(t *testing.T) {
	if got := pearsonCorrelation([]float64{0.5, 0.5, 0.5}, []float64{1, 0, 1}); got != 0 {
		t.Errorf("pearson on constant confidence = %v, want 0", got)
	}
}
