package governance

import (
	"testing"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

func campaignTarget(id string) domain.Target {
	return domain.Target{Type: domain.EntityCampaign, ID: id, Name: id}
}

func findAnomaly(t *testing.T, anomalies []domain.SpendAnomaly, typ domain.AnomalyType) domain.SpendAnomaly {
	t.Helper()
	for _, a := range anomalies {
		if a.Type == typ {
			return a
		}
	}
	t.Fatalf("no %s anomaly in %+v", typ, anomalies)
	return domain.SpendAnomaly{}
}

func TestSpendSpikeSeverity(t *testing.T) {
	baseline := domain.PerformanceMetrics{Cost: 100}

	tests := []struct {
		name     string
		cost     float64
		want     int
		severity domain.Severity
	}{
		{"exactly double is tolerated", 200, 0, ""},
		{"2.5x warns", 250, 1, domain.SeverityWarning},
		{"3.5x is critical", 350, 1, domain.SeverityCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectAnomalies(campaignTarget("c1"), domain.PerformanceMetrics{Cost: tt.cost}, baseline, 0)
			if len(got) != tt.want {
				t.Fatalf("got %d anomalies, want %d: %+v", len(got), tt.want, got)
			}
			if tt.want == 0 {
				return
			}
			a := findAnomaly(t, got, domain.AnomalySpendSpike)
			if a.Severity != tt.severity {
				t.Errorf("severity = %s, want %s", a.Severity, tt.severity)
			}
			if len(a.PossibleCauses) == 0 || len(a.RecommendedActions) == 0 {
				t.Error("spike anomaly must carry causes and actions")
			}
		})
	}
}

func TestSpendDropNeedsMeaningfulBaseline(t *testing.T) {
	small := domain.PerformanceMetrics{Cost: 80}
	if got := DetectAnomalies(campaignTarget("c1"), domain.PerformanceMetrics{Cost: 10}, small, 0); len(got) != 0 {
		t.Fatalf("baseline under 100 must not trigger a drop, got %+v", got)
	}

	baseline := domain.PerformanceMetrics{Cost: 200}
	warn := DetectAnomalies(campaignTarget("c1"), domain.PerformanceMetrics{Cost: 80}, baseline, 0)
	a := findAnomaly(t, warn, domain.AnomalySpendDrop)
	if a.Severity != domain.SeverityWarning {
		t.Errorf("40%% of baseline: severity = %s, want warning", a.Severity)
	}

	crit := DetectAnomalies(campaignTarget("c1"), domain.PerformanceMetrics{Cost: 20}, baseline, 0)
	a = findAnomaly(t, crit, domain.AnomalySpendDrop)
	if a.Severity != domain.SeverityCritical {
		t.Errorf("10%% of baseline: severity = %s, want critical", a.Severity)
	}
}

func TestCPABreachBoundary(t *testing.T) {
	target := 40.0

	t.Run("exactly double warns, not critical", func(t *testing.T) {
		current := domain.PerformanceMetrics{Conversions: 3, CPA: 80, Cost: 240}
		got := DetectAnomalies(campaignTarget("c1"), current, domain.PerformanceMetrics{}, target)
		a := findAnomaly(t, got, domain.AnomalyCPABreach)
		if a.Severity != domain.SeverityWarning {
			t.Errorf("severity = %s, want warning", a.Severity)
		}
	})

	t.Run("over triple is critical", func(t *testing.T) {
		current := domain.PerformanceMetrics{Conversions: 4, CPA: 130, Cost: 520}
		got := DetectAnomalies(campaignTarget("c1"), current, domain.PerformanceMetrics{}, target)
		a := findAnomaly(t, got, domain.AnomalyCPABreach)
		if a.Severity != domain.SeverityCritical {
			t.Errorf("severity = %s, want critical", a.Severity)
		}
	})

	t.Run("too few conversions is noise", func(t *testing.T) {
		current := domain.PerformanceMetrics{Conversions: 2, CPA: 200, Cost: 400}
		got := DetectAnomalies(campaignTarget("c1"), current, domain.PerformanceMetrics{}, target)
		if len(got) != 0 {
			t.Fatalf("2 conversions must not breach, got %+v", got)
		}
	})
}

func TestConversionCollapse(t *testing.T) {
	baseline := domain.PerformanceMetrics{Cost: 50, ConversionRate: 0.05}

	t.Run("needs click volume", func(t *testing.T) {
		current := domain.PerformanceMetrics{Clicks: 100, ConversionRate: 0.01}
		got := DetectAnomalies(campaignTarget("c1"), current, baseline, 0)
		if len(got) != 0 {
			t.Fatalf("100 clicks must not collapse, got %+v", got)
		}
	})

	t.Run("40 percent of baseline warns", func(t *testing.T) {
		current := domain.PerformanceMetrics{Clicks: 500, ConversionRate: 0.02}
		a := findAnomaly(t, DetectAnomalies(campaignTarget("c1"), current, baseline, 0), domain.AnomalyConversionCollapse)
		if a.Severity != domain.SeverityWarning {
			t.Errorf("severity = %s, want warning", a.Severity)
		}
	})

	t.Run("quarter of baseline is critical", func(t *testing.T) {
		current := domain.PerformanceMetrics{Clicks: 500, ConversionRate: 0.0125}
		a := findAnomaly(t, DetectAnomalies(campaignTarget("c1"), current, baseline, 0), domain.AnomalyConversionCollapse)
		if a.Severity != domain.SeverityCritical {
			t.Errorf("severity = %s, want critical", a.Severity)
		}
	})
}

func TestZeroBaselineOnlyTargetChecks(t *testing.T) {
	current := domain.PerformanceMetrics{Cost: 500, Clicks: 1000, Conversions: 5, CPA: 100, ConversionRate: 0.005}
	got := DetectAnomalies(campaignTarget("c1"), current, domain.PerformanceMetrics{}, 40)
	if len(got) != 1 {
		t.Fatalf("got %d anomalies, want only the CPA breach: %+v", len(got), got)
	}
	if got[0].Type != domain.AnomalyCPABreach {
		t.Errorf("type = %s, want cpa_breach", got[0].Type)
	}
}
