// Package governance watches the account for spend anomalies, policy
// violations and health regressions, and owns the alert queue and the
// audit change log.
package governance

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

// Config carries the account targets the engine scores against.
type Config struct {
	TargetCPA             float64
	TargetROAS            float64
	TargetQualityScore    float64
	TargetAdApprovalRate  float64
	TargetImpressionShare float64
	DailyBudgetCeiling    float64
}

func (c *Config) withDefaults() {
	if c.TargetCPA <= 0 {
		c.TargetCPA = 40
	}
	if c.TargetROAS <= 0 {
		c.TargetROAS = 3
	}
	if c.TargetQualityScore <= 0 {
		c.TargetQualityScore = 7
	}
	if c.TargetAdApprovalRate <= 0 {
		c.TargetAdApprovalRate = 0.95
	}
	if c.TargetImpressionShare <= 0 {
		c.TargetImpressionShare = 0.8
	}
	if c.DailyBudgetCeiling <= 0 {
		c.DailyBudgetCeiling = 500
	}
}

// CheckResult is one governance pass over an account summary.
type CheckResult struct {
	Anomalies  []domain.SpendAnomaly    `json:"anomalies"`
	Compliance *domain.ComplianceReport `json:"compliance"`
	Health     *domain.AccountHealth    `json:"health"`
	Alerts     []domain.Alert           `json:"alerts"`
}

// Engine runs the governance pass. It remembers each entity's previous
// metrics as the anomaly baseline, so the first cycle only yields
// target-relative findings.
type Engine struct {
	mu        sync.Mutex
	cfg       Config
	baselines map[string]domain.PerformanceMetrics
	alerts    *AlertStore
	changes   *ChangeLog
	log       *logrus.Entry
}

// NewEngine builds a governance engine with empty baselines.
func NewEngine(cfg Config, log *logrus.Entry) *Engine {
	cfg.withDefaults()
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Engine{
		cfg:       cfg,
		baselines: make(map[string]domain.PerformanceMetrics),
		alerts:    NewAlertStore(),
		changes:   NewChangeLog(),
		log:       log,
	}
}

// Alerts exposes the alert queue.
func (e *Engine) Alerts() *AlertStore { return e.alerts }

// Changes exposes the audit log. Only the governance unit writes to it;
// other units hand their records to RecordChange.
func (e *Engine) Changes() *ChangeLog { return e.changes }

// RecordChange appends an audit entry on behalf of the acting unit.
func (e *Engine) RecordChange(entry domain.ChangeLogEntry) domain.ChangeLogEntry {
	recorded := e.changes.Record(entry)
	e.log.WithFields(logrus.Fields{
		"actor":     recorded.Actor,
		"action":    recorded.Action,
		"entity_id": recorded.EntityID,
	}).Info("Recorded change")
	return recorded
}

// RunChecks performs the full governance pass: per-campaign anomaly
// detection against the stored baseline, account compliance checks and
// the health score. Findings above info severity are raised as alerts.
func (e *Engine) RunChecks(summary *domain.PerformanceSummary) (*CheckResult, error) {
	if summary == nil {
		return nil, fmt.Errorf("governance checks: nil performance summary")
	}

	result := &CheckResult{}

	e.mu.Lock()
	for _, snap := range summary.Campaigns {
		target := domain.Target{Type: domain.EntityCampaign, ID: snap.Campaign.ID, Name: snap.Campaign.Name}
		baseline := e.baselines[snap.Campaign.ID]
		targetCPA := e.cfg.TargetCPA
		if snap.Campaign.TargetCPA > 0 {
			targetCPA = snap.Campaign.TargetCPA
		}
		result.Anomalies = append(result.Anomalies, DetectAnomalies(target, snap.Metrics, baseline, targetCPA)...)
		e.baselines[snap.Campaign.ID] = snap.Metrics
	}
	e.mu.Unlock()

	result.Compliance = e.CheckCompliance(summary.Campaigns)
	result.Health = e.ScoreHealth(summary)

	for _, anomaly := range result.Anomalies {
		result.Alerts = append(result.Alerts, e.alerts.Raise(domain.Alert{
			Source:          "governance",
			Severity:        anomaly.Severity,
			Title:           fmt.Sprintf("%s on %s", anomaly.Type, anomaly.Entity.Name),
			Detail:          anomaly.Description,
			Entity:          anomaly.Entity,
			SuggestedAction: firstOrEmpty(anomaly.RecommendedActions),
		}))
	}
	for _, v := range result.Compliance.Violations {
		result.Alerts = append(result.Alerts, e.alerts.Raise(domain.Alert{
			Source:          "governance",
			Severity:        v.Severity,
			Title:           fmt.Sprintf("compliance: %s", v.Rule),
			Detail:          v.Issue,
			Entity:          v.Entity,
			SuggestedAction: v.Remediation,
		}))
	}
	if result.Health.Status == domain.HealthCritical {
		result.Alerts = append(result.Alerts, e.alerts.Raise(domain.Alert{
			Source:          "governance",
			Severity:        domain.SeverityCritical,
			Title:           "account health critical",
			Detail:          fmt.Sprintf("health score %.0f", result.Health.Score),
			Entity:          domain.Target{Type: domain.EntityAccount, ID: "account"},
			SuggestedAction: "review component scores and recent changes",
		}))
	}

	e.log.WithFields(logrus.Fields{
		"anomalies":    len(result.Anomalies),
		"violations":   len(result.Compliance.Violations),
		"health_score": result.Health.Score,
		"alerts":       len(result.Alerts),
	}).Info("Governance pass complete")

	return result, nil
}

// ResetBaselines clears stored baselines, forcing the next pass to
// re-learn them.
func (e *Engine) ResetBaselines() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.baselines = make(map[string]domain.PerformanceMetrics)
}

func firstOrEmpty(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[0]
}
