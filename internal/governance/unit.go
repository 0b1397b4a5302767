package governance

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
	"github.com/ItaloOlivier/ayonne-sub000/internal/protocol"
)

// Actions the governance unit answers over the message protocol.
const (
	ActionRunChecks        = "run_checks"
	ActionDetectAnomalies  = "detect_anomalies"
	ActionComplianceReport = "compliance_report"
	ActionAccountHealth    = "account_health"
	ActionOpenAlerts       = "open_alerts"
	ActionAcknowledge      = "acknowledge_alert"
	ActionRecordChange     = "record_change"
	ActionChangeLog        = "change_log"
)

// Unit adapts the engine to the message protocol.
type Unit struct {
	engine  *Engine
	tracker *protocol.StateTracker
}

// NewUnit wraps an engine as a protocol unit.
func NewUnit(engine *Engine) *Unit {
	return &Unit{
		engine:  engine,
		tracker: protocol.NewStateTracker(domain.UnitGovernance, "Governance Engine"),
	}
}

func (u *Unit) ID() string { return domain.UnitGovernance }

func (u *Unit) State() domain.AgentState { return u.tracker.Snapshot() }

type anomalyRequest struct {
	Entity    domain.Target             `json:"entity"`
	Current   domain.PerformanceMetrics `json:"current"`
	Baseline  domain.PerformanceMetrics `json:"baseline"`
	TargetCPA float64                   `json:"target_cpa"`
}

type acknowledgeRequest struct {
	AlertID string `json:"alert_id"`
}

type changeLogRequest struct {
	Limit int `json:"limit"`
}

// HandleMessage serves one protocol request.
func (u *Unit) HandleMessage(ctx context.Context, msg *domain.AgentMessage) (*domain.AgentMessage, error) {
	u.tracker.Begin(msg.Action)

	payload, err := u.handle(msg)
	if err != nil {
		u.tracker.Fail(msg.Action, err, true)
		return nil, err
	}
	u.tracker.Done()
	return domain.ResponseTo(msg, domain.UnitGovernance, payload), nil
}

func (u *Unit) handle(msg *domain.AgentMessage) (json.RawMessage, error) {
	switch msg.Action {
	case ActionRunChecks:
		var summary domain.PerformanceSummary
		if err := json.Unmarshal(msg.Payload, &summary); err != nil {
			return nil, fmt.Errorf("decode performance summary: %w", err)
		}
		result, err := u.engine.RunChecks(&summary)
		if err != nil {
			return nil, err
		}
		return domain.MarshalPayload(result), nil

	case ActionDetectAnomalies:
		var req anomalyRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return nil, fmt.Errorf("decode anomaly request: %w", err)
		}
		anomalies := DetectAnomalies(req.Entity, req.Current, req.Baseline, req.TargetCPA)
		return domain.MarshalPayload(anomalies), nil

	case ActionComplianceReport:
		var summary domain.PerformanceSummary
		if err := json.Unmarshal(msg.Payload, &summary); err != nil {
			return nil, fmt.Errorf("decode performance summary: %w", err)
		}
		return domain.MarshalPayload(u.engine.CheckCompliance(summary.Campaigns)), nil

	case ActionAccountHealth:
		var summary domain.PerformanceSummary
		if err := json.Unmarshal(msg.Payload, &summary); err != nil {
			return nil, fmt.Errorf("decode performance summary: %w", err)
		}
		return domain.MarshalPayload(u.engine.ScoreHealth(&summary)), nil

	case ActionOpenAlerts:
		return domain.MarshalPayload(u.engine.Alerts().Open()), nil

	case ActionAcknowledge:
		var req acknowledgeRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return nil, fmt.Errorf("decode acknowledge request: %w", err)
		}
		if req.AlertID == "" {
			return nil, fmt.Errorf("alert_id is required")
		}
		alert, err := u.engine.Alerts().Acknowledge(req.AlertID)
		if err != nil {
			return nil, err
		}
		return domain.MarshalPayload(alert), nil

	case ActionRecordChange:
		var entry domain.ChangeLogEntry
		if err := json.Unmarshal(msg.Payload, &entry); err != nil {
			return nil, fmt.Errorf("decode change entry: %w", err)
		}
		return domain.MarshalPayload(u.engine.RecordChange(entry)), nil

	case ActionChangeLog:
		var req changeLogRequest
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &req); err != nil {
				return nil, fmt.Errorf("decode change log request: %w", err)
			}
		}
		return domain.MarshalPayload(u.engine.Changes().Entries(req.Limit)), nil

	default:
		return nil, fmt.Errorf("unknown governance action %q", msg.Action)
	}
}
