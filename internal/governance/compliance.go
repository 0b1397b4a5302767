package governance

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

// prohibitedTerms are claims ad platforms reject outright. The scan is
// case-insensitive and matches whole words, so "guarantee" does not
// trip the "guaranteed" rule.
var prohibitedTerms = []struct {
	term    string
	pattern *regexp.Regexp
}{
	{"cure", regexp.MustCompile(`(?i)\bcure\b`)},
	{"guaranteed", regexp.MustCompile(`(?i)\bguaranteed\b`)},
	{"miracle", regexp.MustCompile(`(?i)\bmiracle\b`)},
	{"instant results", regexp.MustCompile(`(?i)\binstant results\b`)},
	{"prescription", regexp.MustCompile(`(?i)\bprescription\b`)},
}

// ScanCopy returns the prohibited terms found in a piece of ad copy.
// The creative producer uses it to reject drafts before they reach the
// platform's review.
func ScanCopy(text string) []string {
	var matched []string
	for _, p := range prohibitedTerms {
		if p.pattern.MatchString(text) {
			matched = append(matched, p.term)
		}
	}
	return matched
}

// CheckCompliance inspects campaign configuration and ad copy. Checks
// report configuration posture; violations demand remediation.
func (e *Engine) CheckCompliance(campaigns []domain.CampaignSnapshot) *domain.ComplianceReport {
	now := time.Now()
	report := &domain.ComplianceReport{CheckedAt: now}

	var overBudget []string
	var untargeted []string
	for _, snap := range campaigns {
		if snap.Campaign.DailyBudget > e.cfg.DailyBudgetCeiling {
			overBudget = append(overBudget, snap.Campaign.Name)
		}
		if len(snap.Campaign.LocationTargeting) == 0 {
			untargeted = append(untargeted, snap.Campaign.Name)
			report.Violations = append(report.Violations, domain.ComplianceViolation{
				Rule:        "location_targeting",
				Severity:    domain.SeverityHigh,
				Entity:      domain.Target{Type: domain.EntityCampaign, ID: snap.Campaign.ID, Name: snap.Campaign.Name},
				Issue:       "campaign serves with no location targeting",
				Remediation: "restrict serving to the intended regions",
				DetectedAt:  now,
			})
		}
		for _, ad := range snap.Ads {
			copyText := ad.Headline + " " + ad.Description
			for _, p := range prohibitedTerms {
				if !p.pattern.MatchString(copyText) {
					continue
				}
				report.Violations = append(report.Violations, domain.ComplianceViolation{
					Rule:     "prohibited_terms",
					Severity: domain.SeverityCritical,
					Entity: domain.Target{
						Type:       domain.EntityAd,
						ID:         ad.ID,
						Name:       ad.Headline,
						CampaignID: snap.Campaign.ID,
					},
					Issue:       fmt.Sprintf("ad copy contains prohibited term %q", p.term),
					Remediation: "remove the term and resubmit the ad for review",
					DetectedAt:  now,
				})
			}
		}
	}

	budgetCheck := domain.ComplianceCheck{Name: "daily_budget_ceiling", Status: domain.CheckPassed}
	if len(overBudget) > 0 {
		budgetCheck.Status = domain.CheckWarning
		budgetCheck.Detail = fmt.Sprintf("daily budget above %.2f: %s", e.cfg.DailyBudgetCeiling, strings.Join(overBudget, ", "))
	}
	report.Checks = append(report.Checks, budgetCheck)

	locationCheck := domain.ComplianceCheck{Name: "location_targeting", Status: domain.CheckPassed}
	if len(untargeted) > 0 {
		locationCheck.Status = domain.CheckFailed
		locationCheck.Detail = fmt.Sprintf("no location targeting: %s", strings.Join(untargeted, ", "))
	}
	report.Checks = append(report.Checks, locationCheck)

	termsCheck := domain.ComplianceCheck{Name: "prohibited_terms", Status: domain.CheckPassed}
	for _, v := range report.Violations {
		if v.Rule == "prohibited_terms" {
			termsCheck.Status = domain.CheckFailed
			termsCheck.Detail = "ad copy contains prohibited terms"
			break
		}
	}
	report.Checks = append(report.Checks, termsCheck)

	switch {
	case len(report.Violations) > 0:
		report.Status = domain.ComplianceViolations
	case anyWarning(report.Checks):
		report.Status = domain.ComplianceIssuesFound
	default:
		report.Status = domain.ComplianceCompliant
	}
	return report
}

func anyWarning(checks []domain.ComplianceCheck) bool {
	for _, c := range checks {
		if c.Status == domain.CheckWarning {
			return true
		}
	}
	return false
}
