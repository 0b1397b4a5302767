package domain

import "time"

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Alert persists until explicitly acknowledged.
type Alert struct {
	ID              string     `json:"id"`
	Source          string     `json:"source"`
	Severity        Severity   `json:"severity"`
	Title           string     `json:"title"`
	Detail          string     `json:"detail"`
	Entity          Target     `json:"entity"`
	SuggestedAction string     `json:"suggested_action,omitempty"`
	Acknowledged    bool       `json:"acknowledged"`
	AcknowledgedAt  *time.Time `json:"acknowledged_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

type AnomalyType string

const (
	AnomalySpendSpike         AnomalyType = "spend_spike"
	AnomalySpendDrop          AnomalyType = "spend_drop"
	AnomalyCPABreach          AnomalyType = "cpa_breach"
	AnomalyConversionCollapse AnomalyType = "conversion_collapse"
)

// SpendAnomaly is recomputed each cycle against the historical baseline;
// it is not persisted as history.
type SpendAnomaly struct {
	Type               AnomalyType `json:"type"`
	Severity           Severity    `json:"severity"`
	Entity             Target      `json:"entity"`
	CurrentValue       float64     `json:"current_value"`
	BaselineValue      float64     `json:"baseline_value"`
	Ratio              float64     `json:"ratio"`
	Description        string      `json:"description"`
	PossibleCauses     []string    `json:"possible_causes"`
	RecommendedActions []string    `json:"recommended_actions"`
	DetectedAt         time.Time   `json:"detected_at"`
}

type CheckStatus string

const (
	CheckPassed  CheckStatus = "passed"
	CheckWarning CheckStatus = "warning"
	CheckFailed  CheckStatus = "failed"
)

type ComplianceCheck struct {
	Name   string      `json:"name"`
	Status CheckStatus `json:"status"`
	Detail string      `json:"detail,omitempty"`
}

type ComplianceViolation struct {
	Rule        string    `json:"rule"`
	Severity    Severity  `json:"severity"`
	Entity      Target    `json:"entity"`
	Issue       string    `json:"issue"`
	Remediation string    `json:"remediation"`
	DetectedAt  time.Time `json:"detected_at"`
}

type ComplianceStatus string

const (
	ComplianceCompliant   ComplianceStatus = "compliant"
	ComplianceIssuesFound ComplianceStatus = "issues_found"
	ComplianceViolations  ComplianceStatus = "violations"
)

type ComplianceReport struct {
	Status     ComplianceStatus      `json:"status"`
	Checks     []ComplianceCheck     `json:"checks"`
	Violations []ComplianceViolation `json:"violations,omitempty"`
	CheckedAt  time.Time             `json:"checked_at"`
}

type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthWarning  HealthStatus = "warning"
	HealthCritical HealthStatus = "critical"
)

type HealthComponent struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Weight float64 `json:"weight"`
}

// AccountHealth is a weighted 0-100 roll-up of the account's vital signs.
type AccountHealth struct {
	Score      float64           `json:"score"`
	Status     HealthStatus      `json:"status"`
	Components []HealthComponent `json:"components"`
	ScoredAt   time.Time         `json:"scored_at"`
}

// ChangeLogEntry is an immutable audit record of a state-changing action.
type ChangeLogEntry struct {
	ID         string    `json:"id"`
	Actor      string    `json:"actor"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Before     string    `json:"before,omitempty"`
	After      string    `json:"after,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Approved   bool      `json:"approved"`
	CreatedAt  time.Time `json:"created_at"`
}
