package governance

import (
	"errors"
	"testing"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

func summaryWith(snaps ...domain.CampaignSnapshot) *domain.PerformanceSummary {
	return &domain.PerformanceSummary{Campaigns: snaps}
}

func TestRunChecksNilSummary(t *testing.T) {
	e := newGovEngine()
	if _, err := e.RunChecks(nil); err == nil {
		t.Fatal("nil summary must error")
	}
}

func TestRunChecksLearnsBaselines(t *testing.T) {
	e := newGovEngine()
	snap := targetedCampaign("c1", 100)
	snap.Metrics = domain.PerformanceMetrics{Cost: 100, Clicks: 50}

	first, err := e.RunChecks(summaryWith(snap))
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if len(first.Anomalies) != 0 {
		t.Fatalf("first pass has no baseline, got anomalies %+v", first.Anomalies)
	}

	snap.Metrics = domain.PerformanceMetrics{Cost: 350, Clicks: 50}
	second, err := e.RunChecks(summaryWith(snap))
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if len(second.Anomalies) != 1 {
		t.Fatalf("got %d anomalies, want the spend spike: %+v", len(second.Anomalies), second.Anomalies)
	}
	a := second.Anomalies[0]
	if a.Type != domain.AnomalySpendSpike || a.Severity != domain.SeverityCritical {
		t.Errorf("anomaly = %+v, want critical spend_spike at 3.5x", a)
	}
	if a.BaselineValue != 100 {
		t.Errorf("baseline = %v, want the previous period's 100", a.BaselineValue)
	}

	e.ResetBaselines()
	third, err := e.RunChecks(summaryWith(snap))
	if err != nil {
		t.Fatalf("third pass: %v", err)
	}
	if len(third.Anomalies) != 0 {
		t.Fatalf("reset baselines must clear ratio findings, got %+v", third.Anomalies)
	}
}

func TestRunChecksRaisesAlerts(t *testing.T) {
	e := newGovEngine()
	snap := targetedCampaign("c1", 100)
	snap.Campaign.LocationTargeting = nil

	result, err := e.RunChecks(summaryWith(snap))
	if err != nil {
		t.Fatalf("run checks: %v", err)
	}
	if len(result.Alerts) != 1 {
		t.Fatalf("got %d alerts, want 1 for the targeting violation: %+v", len(result.Alerts), result.Alerts)
	}
	alert := result.Alerts[0]
	if alert.Severity != domain.SeverityHigh {
		t.Errorf("severity = %s, want high", alert.Severity)
	}
	if alert.ID == "" || alert.CreatedAt.IsZero() {
		t.Error("raised alert must be stamped with id and time")
	}
	if got := e.Alerts().OpenCount(); got != 1 {
		t.Errorf("open count = %d, want 1", got)
	}
}

func TestCampaignTargetCPAOverridesAccountTarget(t *testing.T) {
	e := newGovEngine()
	snap := targetedCampaign("c1", 100)
	snap.Campaign.TargetCPA = 10
	snap.Metrics = domain.PerformanceMetrics{Conversions: 5, CPA: 25, Cost: 125}

	result, err := e.RunChecks(summaryWith(snap))
	if err != nil {
		t.Fatalf("run checks: %v", err)
	}
	if len(result.Anomalies) != 1 {
		t.Fatalf("CPA 25 breaches the campaign's own 10 target, got %+v", result.Anomalies)
	}
	if result.Anomalies[0].Type != domain.AnomalyCPABreach {
		t.Errorf("type = %s, want cpa_breach", result.Anomalies[0].Type)
	}
	if result.Anomalies[0].BaselineValue != 10 {
		t.Errorf("target in anomaly = %v, want the campaign override 10", result.Anomalies[0].BaselineValue)
	}
}

func TestAlertStoreAcknowledge(t *testing.T) {
	s := NewAlertStore()
	raised := s.Raise(domain.Alert{Title: "spend spike", Severity: domain.SeverityWarning})

	if got := len(s.Open()); got != 1 {
		t.Fatalf("open = %d, want 1", got)
	}
	acked, err := s.Acknowledge(raised.ID)
	if err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if !acked.Acknowledged || acked.AcknowledgedAt == nil {
		t.Errorf("acknowledged alert = %+v, want flag and timestamp set", acked)
	}
	if got := len(s.Open()); got != 0 {
		t.Errorf("open after ack = %d, want 0", got)
	}

	if _, err := s.Acknowledge("nope"); !errors.Is(err, ErrAlertNotFound) {
		t.Errorf("unknown id: err = %v, want ErrAlertNotFound", err)
	}
}

func TestChangeLogEntriesLimit(t *testing.T) {
	l := NewChangeLog()
	for _, action := range []string{"first", "second", "third"} {
		l.Record(domain.ChangeLogEntry{Actor: "optimizer", Action: action})
	}

	got := l.Entries(2)
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if got[0].Action != "second" || got[1].Action != "third" {
		t.Errorf("entries = [%s, %s], want the newest two in order", got[0].Action, got[1].Action)
	}
	if l.Len() != 3 {
		t.Errorf("len = %d, want 3", l.Len())
	}
	if got[0].ID == "" || got[0].CreatedAt.IsZero() {
		t.Error("recorded entries must be stamped with id and time")
	}
}
