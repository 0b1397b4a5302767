package optimizer

import (
	"testing"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

func cpaHistory(cpas ...float64) []domain.PerformanceMetrics {
	out := make([]domain.PerformanceMetrics, len(cpas))
	for i, c := range cpas {
		out[i] = domain.PerformanceMetrics{CPA: c}
	}
	return out
}

func TestScalingDecision(t *testing.T) {
	e := newTestEngine(nil)
	strong := domain.PerformanceMetrics{Conversions: 12, CPA: 25, ROAS: 4, Cost: 300}

	tests := []struct {
		name           string
		metrics        domain.PerformanceMetrics
		history        []domain.PerformanceMetrics
		want           domain.ScalingVerdict
		wantConsistent bool
	}{
		{
			name:           "stable winner scales up",
			metrics:        strong,
			history:        cpaHistory(25, 26, 25, 24),
			want:           domain.ScaleUp,
			wantConsistent: true,
		},
		{
			name:    "short history holds",
			metrics: strong,
			history: cpaHistory(25, 26, 25),
			want:    domain.ScaleMaintain,
		},
		{
			name:    "volatile history holds",
			metrics: strong,
			history: cpaHistory(10, 50, 10, 50),
			want:    domain.ScaleMaintain,
		},
		{
			name:    "zero conversion spend pauses",
			metrics: domain.PerformanceMetrics{Conversions: 0, Cost: 150},
			want:    domain.ScalePause,
		},
		{
			name:    "unprofitable ROAS pauses",
			metrics: domain.PerformanceMetrics{Conversions: 4, CPA: 45, ROAS: 0.7, Cost: 180},
			want:    domain.ScalePause,
		},
		{
			name:    "high CPA scales down",
			metrics: domain.PerformanceMetrics{Conversions: 6, CPA: 70, ROAS: 1.8, Cost: 420},
			want:    domain.ScaleDown,
		},
		{
			name:    "on-target performance maintains",
			metrics: domain.PerformanceMetrics{Conversions: 6, CPA: 42, ROAS: 2.8, Cost: 252},
			want:    domain.ScaleMaintain,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := enabledCampaign("c1", 100, tt.metrics)
			got := e.ScalingDecision(snap, tt.history)
			if got.Verdict != tt.want {
				t.Errorf("verdict = %s, want %s (%s)", got.Verdict, tt.want, got.Reasoning)
			}
			if got.Consistent != tt.wantConsistent {
				t.Errorf("consistent = %v, want %v", got.Consistent, tt.wantConsistent)
			}
		})
	}
}

func TestCPAVariationIgnoresZeroPeriods(t *testing.T) {
	cv, enough := cpaVariation(cpaHistory(25, 0, 26, 0, 25, 24))
	if !enough {
		t.Fatal("four non-zero periods should be enough history")
	}
	if cv > 0.1 {
		t.Errorf("cv = %v, want small after dropping zero-CPA periods", cv)
	}

	if _, enough := cpaVariation(cpaHistory(0, 0, 0)); enough {
		t.Error("all-zero history cannot be called consistent")
	}
}
