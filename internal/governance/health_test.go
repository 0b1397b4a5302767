package governance

import (
	"math"
	"testing"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

func healthComponent(t *testing.T, health *domain.AccountHealth, name string) domain.HealthComponent {
	t.Helper()
	for _, c := range health.Components {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("no %q component in %+v", name, health.Components)
	return domain.HealthComponent{}
}

func TestScoreHealthOnTargetAccount(t *testing.T) {
	e := newGovEngine()
	summary := &domain.PerformanceSummary{
		Totals: domain.PerformanceMetrics{
			CPA:             40,
			ROAS:            3,
			QualityScore:    7,
			ImpressionShare: 0.8,
		},
		Campaigns: []domain.CampaignSnapshot{{
			Ads: []domain.AdSnapshot{{ID: "a1", Status: "enabled"}, {ID: "a2", Status: "enabled"}},
		}},
	}

	health := e.ScoreHealth(summary)
	if health.Score != 100 {
		t.Errorf("score = %v, want 100", health.Score)
	}
	if health.Status != domain.HealthHealthy {
		t.Errorf("status = %s, want healthy", health.Status)
	}
	if len(health.Components) != 5 {
		t.Fatalf("got %d components, want 5", len(health.Components))
	}
	var weights float64
	for _, c := range health.Components {
		weights += c.Weight
	}
	if weights != 100 {
		t.Errorf("weights sum = %v, want 100", weights)
	}
}

func TestScoreHealthMissingMetricsAreNeutral(t *testing.T) {
	e := newGovEngine()
	health := e.ScoreHealth(&domain.PerformanceSummary{})

	if health.Score != 70 {
		t.Errorf("score = %v, want 70 when nothing is reported", health.Score)
	}
	if health.Status != domain.HealthHealthy {
		t.Errorf("status = %s, want healthy at the 70 boundary", health.Status)
	}
	for _, c := range health.Components {
		if c.Score != neutralScore {
			t.Errorf("component %s = %v, want neutral %d", c.Name, c.Score, neutralScore)
		}
	}
}

func TestScoreHealthCriticalAccount(t *testing.T) {
	e := newGovEngine()
	summary := &domain.PerformanceSummary{
		Totals: domain.PerformanceMetrics{
			CPA:             200,
			ROAS:            0.3,
			QualityScore:    2,
			ImpressionShare: 0.1,
		},
	}

	health := e.ScoreHealth(summary)
	if health.Status != domain.HealthCritical {
		t.Errorf("status = %s (score %v), want critical", health.Status, health.Score)
	}
	if got := healthComponent(t, health, "cpa").Score; math.Abs(got-20) > 1e-9 {
		t.Errorf("cpa score = %v, want 20 (target 40 over actual 200)", got)
	}
	if got := healthComponent(t, health, "roas").Score; math.Abs(got-10) > 1e-9 {
		t.Errorf("roas score = %v, want 10", got)
	}
}

func TestScoreHealthClampsOverperformance(t *testing.T) {
	e := newGovEngine()
	summary := &domain.PerformanceSummary{
		Totals: domain.PerformanceMetrics{CPA: 10, ROAS: 30},
	}

	health := e.ScoreHealth(summary)
	if got := healthComponent(t, health, "cpa").Score; got != 100 {
		t.Errorf("cpa score = %v, want clamped 100", got)
	}
	if got := healthComponent(t, health, "roas").Score; got != 100 {
		t.Errorf("roas score = %v, want clamped 100", got)
	}
}

func TestAdApprovalRateComponent(t *testing.T) {
	e := newGovEngine()
	summary := &domain.PerformanceSummary{
		Campaigns: []domain.CampaignSnapshot{{
			Ads: []domain.AdSnapshot{
				{ID: "a1", Status: "enabled"},
				{ID: "a2", Status: "enabled"},
				{ID: "a3", Status: "enabled"},
				{ID: "a4", Status: "Disapproved"},
			},
		}},
	}

	health := e.ScoreHealth(summary)
	got := healthComponent(t, health, "ad_approval_rate").Score
	want := 0.75 / 0.95 * 100
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("ad approval score = %v, want %v", got, want)
	}
}

func TestHealthFallsBackToCampaignAverages(t *testing.T) {
	e := newGovEngine()
	summary := &domain.PerformanceSummary{
		Campaigns: []domain.CampaignSnapshot{
			{Metrics: domain.PerformanceMetrics{QualityScore: 8, ImpressionShare: 0.9}},
			{Metrics: domain.PerformanceMetrics{QualityScore: 6, ImpressionShare: 0.7}},
			{Metrics: domain.PerformanceMetrics{}},
		},
	}

	health := e.ScoreHealth(summary)
	if got := healthComponent(t, health, "quality_score").Score; math.Abs(got-100) > 1e-9 {
		t.Errorf("quality score = %v, want 100 from the (8+6)/2 average on target 7", got)
	}
	if got := healthComponent(t, health, "impression_share").Score; math.Abs(got-100) > 1e-9 {
		t.Errorf("impression share = %v, want 100 from the (0.9+0.7)/2 average on target 0.8", got)
	}
}
