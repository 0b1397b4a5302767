package optimizer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
	"github.com/ItaloOlivier/ayonne-sub000/internal/protocol"
)

// Actions the optimizer unit answers over the message protocol.
const (
	ActionGeneratePlan = "generate_plan"
	ActionApply        = "apply_action"
	ActionRevert       = "revert_action"
	ActionScaling      = "scaling_decision"
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
		tracker: protocol.NewStateTracker(domain.UnitOptimizer, "Optimization Engine"),
	}
}

func (u *Unit) ID() string { return domain.UnitOptimizer }

func (u *Unit) State() domain.AgentState { return u.tracker.Snapshot() }

type scalingRequest struct {
	Snapshot domain.CampaignSnapshot     `json:"snapshot"`
	History  []domain.PerformanceMetrics `json:"history"`
}

func (u *Unit) HandleMessage(ctx context.Context, msg *domain.AgentMessage) (*domain.AgentMessage, error) {
	u.tracker.Begin(msg.Action)

	payload, err := u.handle(ctx, msg)
	if err != nil {
		u.tracker.Fail(msg.Action, err, true)
		return nil, err
	}
	u.tracker.Done()
	return domain.ResponseTo(msg, domain.UnitOptimizer, payload), nil
}

func (u *Unit) handle(ctx context.Context, msg *domain.AgentMessage) (json.RawMessage, error) {
	switch msg.Action {
	case ActionGeneratePlan:
		var summary domain.PerformanceSummary
		if err := json.Unmarshal(msg.Payload, &summary); err != nil {
			return nil, fmt.Errorf("decode performance summary: %w", err)
		}
		plan, err := u.engine.GeneratePlan(&summary)
		if err != nil {
			return nil, err
		}
		return domain.MarshalPayload(plan), nil

	case ActionApply, ActionRevert:
		var action domain.OptimizationAction
		if err := json.Unmarshal(msg.Payload, &action); err != nil {
			return nil, fmt.Errorf("decode optimization action: %w", err)
		}
		var err error
		if msg.Action == ActionApply {
			err = u.engine.Apply(ctx, &action)
		} else {
			err = u.engine.Revert(ctx, &action)
		}
		if err != nil {
			return nil, err
		}
		return domain.MarshalPayload(&action), nil

	case ActionScaling:
		var req scalingRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return nil, fmt.Errorf("decode scaling request: %w", err)
		}
		return domain.MarshalPayload(u.engine.ScalingDecision(req.Snapshot, req.History)), nil
	}

	return nil, fmt.Errorf("optimizer unit: unknown action %q", msg.Action)
}
