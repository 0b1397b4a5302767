package meta

import (
	"sort"
	"time"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

// Accuracy is one confusion matrix: confident proposals (confidence at
// or above the threshold) against reviewer approvals.
type Accuracy struct {
	ActionType     string  `json:"action_type,omitempty"`
	TruePositives  int     `json:"true_positives"`
	FalsePositives int     `json:"false_positives"`
	TrueNegatives  int     `json:"true_negatives"`
	FalseNegatives int     `json:"false_negatives"`
	Precision      float64 `json:"precision"`
	Recall         float64 `json:"recall"`
	F1Score        float64 `json:"f1_score"`
	SampleCount    int     `json:"sample_count"`
}

// BlindSpot is an action type whose approved proposals the engines
// keep scoring below the confidence threshold.
type BlindSpot struct {
	ActionType      string  `json:"action_type"`
	Recall          float64 `json:"recall"`
	MissedCount     int     `json:"missed_count"`
	TotalApproved   int     `json:"total_approved"`
	SuggestedAction string  `json:"suggested_action"`
}

// AccuracyReport bundles overall and per-action-type accuracy with the
// blind spots derived from them.
type AccuracyReport struct {
	ConfidenceThreshold float64              `json:"confidence_threshold"`
	Overall             *Accuracy            `json:"overall"`
	ByActionType        map[string]*Accuracy `json:"by_action_type"`
	BlindSpots          []BlindSpot          `json:"blind_spots,omitempty"`
	GeneratedAt         time.Time            `json:"generated_at"`
}

// measureAccuracy builds one confusion matrix. Predicted positive is a
// confidence at or above threshold; actual positive is an approval.
func measureAccuracy(actionType string, verdicts []domain.DecisionVerdict, threshold float64) *Accuracy {
	result := &Accuracy{ActionType: actionType, SampleCount: len(verdicts)}

	for _, v := range verdicts {
		predicted := v.Confidence >= threshold
		switch {
		case predicted && v.Approved:
			result.TruePositives++
		case predicted && !v.Approved:
			result.FalsePositives++
		case !predicted && v.Approved:
			result.FalseNegatives++
		default:
			result.TrueNegatives++
		}
	}

	result.Precision = precision(result.TruePositives, result.FalsePositives)
	result.Recall = recall(result.TruePositives, result.FalseNegatives)
	result.F1Score = f1(result.Precision, result.Recall)
	return result
}

func accuracyByActionType(verdicts []domain.DecisionVerdict, threshold float64) map[string]*Accuracy {
	grouped := make(map[string][]domain.DecisionVerdict)
	for _, v := range verdicts {
		if v.ActionType == "" {
			continue
		}
		grouped[v.ActionType] = append(grouped[v.ActionType], v)
	}

	results := make(map[string]*Accuracy, len(grouped))
	for actionType, group := range grouped {
		results[actionType] = measureAccuracy(actionType, group, threshold)
	}
	return results
}

// detectBlindSpots returns the action types with recall below the
// threshold, worst first.
func detectBlindSpots(byType map[string]*Accuracy, recallThreshold float64) []BlindSpot {
	var spots []BlindSpot
	for actionType, result := range byType {
		approved := result.TruePositives + result.FalseNegatives
		if approved == 0 || result.Recall >= recallThreshold {
			continue
		}
		spots = append(spots, BlindSpot{
			ActionType:      actionType,
			Recall:          result.Recall,
			MissedCount:     result.FalseNegatives,
			TotalApproved:   approved,
			SuggestedAction: suggestAction(actionType, result),
		})
	}

	sort.Slice(spots, func(i, j int) bool { return spots[i].Recall < spots[j].Recall })
	return spots
}

func suggestAction(actionType string, result *Accuracy) string {
	if result.Recall < 0.3 {
		return "Critical: reviewers approve most " + actionType + " proposals the engines hedge on, revisit the rule's confidence scoring"
	}
	if result.Recall < 0.5 {
		return "Raise confidence on " + actionType + " proposals, reviewers keep approving them"
	}
	return "Tune confidence scoring for " + actionType + " proposals"
}

func precision(tp, fp int) float64 {
	if tp+fp == 0 {
		return 0
	}
	return float64(tp) / float64(tp+fp)
}

func recall(tp, fn int) float64 {
	if tp+fn == 0 {
		return 0
	}
	return float64(tp) / float64(tp+fn)
}

func f1(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}
