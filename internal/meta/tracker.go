// Package meta tracks how well the pipeline's own confidence scores
// hold up against human review. Every resolved approval becomes a
// verdict pairing the proposal's confidence with the reviewer's call;
// the tracker turns those into calibration and accuracy reports.
package meta

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

const (
	// verdictRetention bounds the collected history; oldest verdicts
	// are dropped first.
	verdictRetention = 2000

	// defaultConfidenceThreshold splits proposals into "engine was
	// sure" and "engine hedged" for the accuracy confusion matrix.
	defaultConfidenceThreshold = 0.7

	// blindSpotRecallThreshold flags action types whose approved
	// proposals the engines keep scoring low.
	blindSpotRecallThreshold = 0.6
)

// Tracker accumulates decision verdicts. Safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	verdicts []domain.DecisionVerdict
	log      *logrus.Entry
}

// NewTracker builds an empty tracker.
func NewTracker(log *logrus.Entry) *Tracker {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Tracker{log: log}
}

// RecordVerdict appends one resolved decision. Implements the
// orchestrator's verdict hook.
func (t *Tracker) RecordVerdict(v domain.DecisionVerdict) {
	if v.DecidedAt.IsZero() {
		v.DecidedAt = time.Now()
	}

	t.mu.Lock()
	t.verdicts = append(t.verdicts, v)
	if len(t.verdicts) > verdictRetention {
		t.verdicts = t.verdicts[len(t.verdicts)-verdictRetention:]
	}
	t.mu.Unlock()

	t.log.WithFields(logrus.Fields{
		"approval_id": v.ApprovalID,
		"action_type": v.ActionType,
		"confidence":  v.Confidence,
		"approved":    v.Approved,
	}).Debug("Recorded decision verdict")
}

// Verdicts returns a copy of the collected history, oldest first.
func (t *Tracker) Verdicts() []domain.DecisionVerdict {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.DecisionVerdict, len(t.verdicts))
	copy(out, t.verdicts)
	return out
}

// Len reports how many verdicts are retained.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.verdicts)
}

// Calibration computes confidence calibration over the full history.
func (t *Tracker) Calibration() *Calibration {
	return Calibrate(t.Verdicts())
}

// Accuracy computes the confusion matrix per action type at the given
// confidence threshold. threshold <= 0 selects the default.
func (t *Tracker) Accuracy(threshold float64) *AccuracyReport {
	if threshold <= 0 {
		threshold = defaultConfidenceThreshold
	}
	verdicts := t.Verdicts()

	report := &AccuracyReport{
		ConfidenceThreshold: threshold,
		Overall:             measureAccuracy("", verdicts, threshold),
		ByActionType:        accuracyByActionType(verdicts, threshold),
		GeneratedAt:         time.Now(),
	}
	report.BlindSpots = detectBlindSpots(report.ByActionType, blindSpotRecallThreshold)
	return report
}
