package meta

import (
	"fmt"
	"testing"
)

func TestTrackerRetentionBound(t *testing.T) {
	tr := NewTracker(nil)
	for i := 0; i < verdictRetention+100; i++ {
		v := verdict(0.5, true)
		v.ApprovalID = fmt.Sprintf("a%d", i)
		tr.RecordVerdict(v)
	}

	if got := tr.Len(); got != verdictRetention {
		t.Fatalf("retained %d verdicts, want %d", got, verdictRetention)
	}
	first := tr.Verdicts()[0]
	if first.ApprovalID != "a100" {
		t.Errorf("oldest retained = %s, want a100 after eviction", first.ApprovalID)
	}
}

func TestAccuracyConfusionMatrix(t *testing.T) {
	tr := NewTracker(nil)
	tr.RecordVerdict(verdict(0.9, true))  // confident, approved
	tr.RecordVerdict(verdict(0.8, false)) // confident, rejected
	tr.RecordVerdict(verdict(0.6, true))  // hedged, approved
	tr.RecordVerdict(verdict(0.3, false)) // hedged, rejected

	report := tr.Accuracy(0)
	if report.ConfidenceThreshold != defaultConfidenceThreshold {
		t.Errorf("threshold = %v, want default %v", report.ConfidenceThreshold, defaultConfidenceThreshold)
	}

	overall := report.Overall
	if overall.TruePositives != 1 || overall.FalsePositives != 1 || overall.FalseNegatives != 1 || overall.TrueNegatives != 1 {
		t.Fatalf("confusion matrix = %+v, want 1/1/1/1", overall)
	}
	if overall.Precision != 0.5 || overall.Recall != 0.5 || overall.F1Score != 0.5 {
		t.Errorf("precision/recall/f1 = %v/%v/%v, want 0.5 each", overall.Precision, overall.Recall, overall.F1Score)
	}

	byType := report.ByActionType["campaign_pause"]
	if byType == nil || byType.SampleCount != 4 {
		t.Fatalf("by action type = %+v, want all 4 verdicts grouped", byType)
	}
}

func TestAccuracyFlagsBlindSpots(t *testing.T) {
	tr := NewTracker(nil)

	// Reviewers approve bid adjustments the engines keep hedging on.
	for i := 0; i < 3; i++ {
		v := verdict(0.4, true)
		v.ActionType = "bid_adjustment"
		tr.RecordVerdict(v)
	}
	v := verdict(0.9, true)
	v.ActionType = "bid_adjustment"
	tr.RecordVerdict(v)

	// Pauses are well calibrated.
	tr.RecordVerdict(verdict(0.9, true))
	tr.RecordVerdict(verdict(0.2, false))

	report := tr.Accuracy(0)
	if len(report.BlindSpots) != 1 {
		t.Fatalf("blind spots = %+v, want exactly the bid_adjustment gap", report.BlindSpots)
	}

	spot := report.BlindSpots[0]
	if spot.ActionType != "bid_adjustment" {
		t.Errorf("action type = %s, want bid_adjustment", spot.ActionType)
	}
	if spot.Recall != 0.25 {
		t.Errorf("recall = %v, want 0.25", spot.Recall)
	}
	if spot.MissedCount != 3 || spot.TotalApproved != 4 {
		t.Errorf("missed/total = %d/%d, want 3/4", spot.MissedCount, spot.TotalApproved)
	}
	if spot.SuggestedAction == "" {
		t.Error("blind spot must carry a suggested action")
	}
}

func TestAccuracySkipsTypesWithoutApprovals(t *testing.T) {
	tr := NewTracker(nil)
	v := verdict(0.4, false)
	v.ActionType = "keyword_pause"
	tr.RecordVerdict(v)

	report := tr.Accuracy(0)
	if len(report.BlindSpots) != 0 {
		t.Errorf("blind spots = %+v, want none without approved samples", report.BlindSpots)
	}
}
