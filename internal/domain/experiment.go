package domain

import (
	"encoding/json"
	"time"
)

type ExperimentStatus string

const (
	ExperimentStatusDraft     ExperimentStatus = "draft"
	ExperimentStatusRunning   ExperimentStatus = "running"
	ExperimentStatusPaused    ExperimentStatus = "paused"
	ExperimentStatusCompleted ExperimentStatus = "completed"
	ExperimentStatusCancelled ExperimentStatus = "cancelled"
)

type MetricDirection string

const (
	DirectionIncrease MetricDirection = "increase"
	DirectionDecrease MetricDirection = "decrease"
)

// MetricDef names a metric, which way is better, and the smallest relative
// lift the test should be powered to detect.
type MetricDef struct {
	Name                string          `json:"name"`
	Direction           MetricDirection `json:"direction"`
	MinDetectableEffect float64         `json:"min_detectable_effect"`
}

// Variant holds one arm's opaque configuration diff.
type Variant struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Changes     json.RawMessage `json:"changes,omitempty"`
}

type SafeguardType string

const (
	SafeguardSpendCap        SafeguardType = "spend_cap"
	SafeguardCPACap          SafeguardType = "cpa_cap"
	SafeguardConversionFloor SafeguardType = "conversion_floor"
	SafeguardDurationLimit   SafeguardType = "duration_limit"
)

type SafeguardAction string

const (
	SafeguardActionPause SafeguardAction = "pause"
	SafeguardActionAlert SafeguardAction = "alert"
	SafeguardActionStop  SafeguardAction = "stop"
)

type Safeguard struct {
	Type      SafeguardType   `json:"type"`
	Threshold float64         `json:"threshold"`
	Action    SafeguardAction `json:"action"`
}

// ExperimentBudget is isolated from main spend so a runaway test cannot
// drain the account.
type ExperimentBudget struct {
	Daily    float64 `json:"daily"`
	Total    float64 `json:"total"`
	Isolated bool    `json:"isolated"`
}

// ExperimentDesign is immutable once completed, except for the Conclusion
// audit field.
type ExperimentDesign struct {
	ID               string           `json:"id"`
	Hypothesis       string           `json:"hypothesis"`
	PrimaryMetric    MetricDef        `json:"primary_metric"`
	SecondaryMetrics []MetricDef      `json:"secondary_metrics,omitempty"`
	Control          Variant          `json:"control"`
	Treatment        Variant          `json:"treatment"`
	TrafficSplit     float64          `json:"traffic_split"`
	MinRuntimeDays   int              `json:"min_runtime_days"`
	MinSampleSize    int              `json:"min_sample_size"`
	DurationDays     int              `json:"duration_days"`
	Budget           ExperimentBudget `json:"budget"`
	Safeguards       []Safeguard      `json:"safeguards"`
	Status           ExperimentStatus `json:"status"`
	Conclusion       string           `json:"conclusion,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	StartedAt        *time.Time       `json:"started_at,omitempty"`
	ConcludedAt      *time.Time       `json:"concluded_at,omitempty"`
}

// VariantMetrics is one arm's metric tuple inside an observation.
type VariantMetrics struct {
	Impressions     int64   `json:"impressions"`
	Clicks          int64   `json:"clicks"`
	Cost            float64 `json:"cost"`
	Conversions     float64 `json:"conversions"`
	ConversionValue float64 `json:"conversion_value"`
	CTR             float64 `json:"ctr"`
	ConversionRate  float64 `json:"conversion_rate"`
	CPA             float64 `json:"cpa"`
	ROAS            float64 `json:"roas"`
}

type ExperimentWinner string

const (
	WinnerNone      ExperimentWinner = "none"
	WinnerControl   ExperimentWinner = "control"
	WinnerTreatment ExperimentWinner = "treatment"
)

type ObservationRecommendation string

const (
	RecommendContinue     ObservationRecommendation = "continue"
	RecommendStopWinner   ObservationRecommendation = "stop_winner"
	RecommendStopLoser    ObservationRecommendation = "stop_loser"
	RecommendInconclusive ObservationRecommendation = "inconclusive"
)

// ExperimentObservation is one measurement cycle's snapshot. Observations
// are append-only; the latest is always the last element recorded.
type ExperimentObservation struct {
	ExperimentID             string                    `json:"experiment_id"`
	Control                  VariantMetrics            `json:"control"`
	Treatment                VariantMetrics            `json:"treatment"`
	PValue                   float64                   `json:"p_value"`
	Confidence               float64                   `json:"confidence"`
	Lift                     float64                   `json:"lift"`
	LiftLower                float64                   `json:"lift_ci_lower"`
	LiftUpper                float64                   `json:"lift_ci_upper"`
	StatisticallySignificant bool                      `json:"statistically_significant"`
	PracticallySignificant   bool                      `json:"practically_significant"`
	Winner                   ExperimentWinner          `json:"winner"`
	SampleSizeMet            bool                      `json:"sample_size_met"`
	SafeguardBreaches        []string                  `json:"safeguard_breaches,omitempty"`
	Recommendation           ObservationRecommendation `json:"recommendation"`
	ObservedAt               time.Time                 `json:"observed_at"`
}

type RolloutDecision string

const (
	RolloutExtend  RolloutDecision = "extend"
	RolloutRollout RolloutDecision = "rollout"
	RolloutAbandon RolloutDecision = "abandon"
	RolloutIterate RolloutDecision = "iterate"
)

// RolloutRecommendation is derived from an experiment's latest observation.
type RolloutRecommendation struct {
	ExperimentID         string           `json:"experiment_id"`
	Decision             RolloutDecision  `json:"decision"`
	Winner               ExperimentWinner `json:"winner"`
	Confidence           float64          `json:"confidence"`
	Lift                 float64          `json:"lift"`
	ExpectedAnnualImpact float64          `json:"expected_annual_impact"`
	Reasoning            string           `json:"reasoning"`
	GeneratedAt          time.Time        `json:"generated_at"`
}
