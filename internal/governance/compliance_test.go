package governance

import (
	"strings"
	"testing"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

func newGovEngine() *Engine {
	return NewEngine(Config{
		TargetCPA:             40,
		TargetROAS:            3,
		TargetQualityScore:    7,
		TargetAdApprovalRate:  0.95,
		TargetImpressionShare: 0.8,
		DailyBudgetCeiling:    500,
	}, nil)
}

func targetedCampaign(id string, budget float64) domain.CampaignSnapshot {
	return domain.CampaignSnapshot{
		Campaign: domain.Campaign{
			ID:                id,
			Name:              id,
			Status:            domain.CampaignStatusEnabled,
			DailyBudget:       budget,
			LocationTargeting: []string{"US"},
		},
	}
}

func checkByName(t *testing.T, report *domain.ComplianceReport, name string) domain.ComplianceCheck {
	t.Helper()
	for _, c := range report.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("no %q check in %+v", name, report.Checks)
	return domain.ComplianceCheck{}
}

func TestCompliantAccount(t *testing.T) {
	e := newGovEngine()
	report := e.CheckCompliance([]domain.CampaignSnapshot{targetedCampaign("c1", 100)})

	if report.Status != domain.ComplianceCompliant {
		t.Errorf("status = %s, want compliant", report.Status)
	}
	if len(report.Violations) != 0 {
		t.Errorf("violations = %+v, want none", report.Violations)
	}
	for _, c := range report.Checks {
		if c.Status != domain.CheckPassed {
			t.Errorf("check %s = %s, want passed", c.Name, c.Status)
		}
	}
}

func TestBudgetCeilingIsWarningOnly(t *testing.T) {
	e := newGovEngine()
	report := e.CheckCompliance([]domain.CampaignSnapshot{targetedCampaign("big-spender", 900)})

	if report.Status != domain.ComplianceIssuesFound {
		t.Errorf("status = %s, want issues_found", report.Status)
	}
	if len(report.Violations) != 0 {
		t.Errorf("budget ceiling must not create violations, got %+v", report.Violations)
	}
	c := checkByName(t, report, "daily_budget_ceiling")
	if c.Status != domain.CheckWarning {
		t.Errorf("check status = %s, want warning", c.Status)
	}
	if !strings.Contains(c.Detail, "big-spender") {
		t.Errorf("detail %q must name the campaign", c.Detail)
	}
}

func TestMissingLocationTargeting(t *testing.T) {
	e := newGovEngine()
	snap := targetedCampaign("c1", 100)
	snap.Campaign.LocationTargeting = nil
	report := e.CheckCompliance([]domain.CampaignSnapshot{snap})

	if report.Status != domain.ComplianceViolations {
		t.Errorf("status = %s, want violations", report.Status)
	}
	if c := checkByName(t, report, "location_targeting"); c.Status != domain.CheckFailed {
		t.Errorf("check status = %s, want failed", c.Status)
	}
	if len(report.Violations) != 1 {
		t.Fatalf("got %d violations, want 1", len(report.Violations))
	}
	v := report.Violations[0]
	if v.Rule != "location_targeting" || v.Severity != domain.SeverityHigh {
		t.Errorf("violation = %+v, want high-severity location_targeting", v)
	}
}

func TestProhibitedTermsScan(t *testing.T) {
	e := newGovEngine()

	t.Run("match is critical and names the term", func(t *testing.T) {
		snap := targetedCampaign("c1", 100)
		snap.Ads = []domain.AdSnapshot{{
			ID:          "a1",
			Headline:    "Guaranteed Results Fast",
			Description: "A miracle for your skin.",
		}}
		report := e.CheckCompliance([]domain.CampaignSnapshot{snap})

		if report.Status != domain.ComplianceViolations {
			t.Fatalf("status = %s, want violations", report.Status)
		}
		if len(report.Violations) != 2 {
			t.Fatalf("got %d violations, want one per matched term: %+v", len(report.Violations), report.Violations)
		}
		var terms []string
		for _, v := range report.Violations {
			if v.Rule != "prohibited_terms" {
				t.Errorf("rule = %s, want prohibited_terms", v.Rule)
			}
			if v.Severity != domain.SeverityCritical {
				t.Errorf("severity = %s, want critical", v.Severity)
			}
			if v.Entity.CampaignID != "c1" {
				t.Errorf("violation entity %+v must carry the owning campaign", v.Entity)
			}
			terms = append(terms, v.Issue)
		}
		joined := strings.Join(terms, " ")
		if !strings.Contains(joined, "guaranteed") || !strings.Contains(joined, "miracle") {
			t.Errorf("issues %q must name the matched terms", joined)
		}
	})

	t.Run("whole words only", func(t *testing.T) {
		snap := targetedCampaign("c1", 100)
		snap.Ads = []domain.AdSnapshot{{
			ID:          "a1",
			Headline:    "Our guarantee: secure cures shipping",
			Description: "No miracles here, just procurement.",
		}}
		report := e.CheckCompliance([]domain.CampaignSnapshot{snap})
		if len(report.Violations) != 0 {
			t.Fatalf("substrings must not match, got %+v", report.Violations)
		}
	})

	t.Run("case insensitive multi-word term", func(t *testing.T) {
		snap := targetedCampaign("c1", 100)
		snap.Ads = []domain.AdSnapshot{{
			ID:       "a1",
			Headline: "INSTANT RESULTS or your money back",
		}}
		report := e.CheckCompliance([]domain.CampaignSnapshot{snap})
		if len(report.Violations) != 1 {
			t.Fatalf("got %d violations, want 1: %+v", len(report.Violations), report.Violations)
		}
		if !strings.Contains(report.Violations[0].Issue, "instant results") {
			t.Errorf("issue %q must name the term", report.Violations[0].Issue)
		}
	})
}
