package experiment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
	"github.com/ItaloOlivier/ayonne-sub000/internal/protocol"
)

// Actions the experimentation unit answers over the message protocol.
const (
	ActionDesign      = "design_experiment"
	ActionStart       = "start_experiment"
	ActionPause       = "pause_experiment"
	ActionResume      = "resume_experiment"
	ActionCancel      = "cancel_experiment"
	ActionConclude    = "conclude_experiment"
	ActionObserve     = "record_observation"
	ActionGet         = "get_experiment"
	ActionList        = "list_experiments"
	ActionRunning     = "running_experiments"
	ActionRollout     = "rollout_recommendation"
	ActionObservation = "list_observations"
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
		tracker: protocol.NewStateTracker(domain.UnitExperiment, "Experimentation Engine"),
	}
}

func (u *Unit) ID() string { return domain.UnitExperiment }

func (u *Unit) State() domain.AgentState { return u.tracker.Snapshot() }

type experimentRef struct {
	ExperimentID string `json:"experiment_id"`
	Reason       string `json:"reason,omitempty"`
	Conclusion   string `json:"conclusion,omitempty"`
}

type observationRequest struct {
	ExperimentID string                `json:"experiment_id"`
	Control      domain.VariantMetrics `json:"control"`
	Treatment    domain.VariantMetrics `json:"treatment"`
}

// HandleMessage serves one protocol request. Failures are recorded on
// the unit's own state and returned to the router.
func (u *Unit) HandleMessage(ctx context.Context, msg *domain.AgentMessage) (*domain.AgentMessage, error) {
	u.tracker.Begin(msg.Action)

	payload, err := u.handle(msg)
	if err != nil {
		u.tracker.Fail(msg.Action, err, true)
		return nil, err
	}
	u.tracker.Done()
	return domain.ResponseTo(msg, domain.UnitExperiment, payload), nil
}

func (u *Unit) handle(msg *domain.AgentMessage) (json.RawMessage, error) {
	switch msg.Action {
	case ActionDesign:
		var req DesignRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return nil, fmt.Errorf("decode design request: %w", err)
		}
		design, err := u.engine.Design(req)
		if err != nil {
			return nil, err
		}
		return domain.MarshalPayload(design), nil

	case ActionStart, ActionPause, ActionResume:
		ref, err := decodeRef(msg.Payload)
		if err != nil {
			return nil, err
		}
		switch msg.Action {
		case ActionStart:
			err = u.engine.Start(ref.ExperimentID)
		case ActionPause:
			err = u.engine.Pause(ref.ExperimentID)
		case ActionResume:
			err = u.engine.Resume(ref.ExperimentID)
		}
		if err != nil {
			return nil, err
		}
		design, err := u.engine.Get(ref.ExperimentID)
		if err != nil {
			return nil, err
		}
		return domain.MarshalPayload(design), nil

	case ActionCancel:
		ref, err := decodeRef(msg.Payload)
		if err != nil {
			return nil, err
		}
		if err := u.engine.Cancel(ref.ExperimentID, ref.Reason); err != nil {
			return nil, err
		}
		design, err := u.engine.Get(ref.ExperimentID)
		if err != nil {
			return nil, err
		}
		return domain.MarshalPayload(design), nil

	case ActionConclude:
		ref, err := decodeRef(msg.Payload)
		if err != nil {
			return nil, err
		}
		design, err := u.engine.Conclude(ref.ExperimentID, ref.Conclusion)
		if err != nil {
			return nil, err
		}
		return domain.MarshalPayload(design), nil

	case ActionObserve:
		var req observationRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return nil, fmt.Errorf("decode observation request: %w", err)
		}
		obs, err := u.engine.RecordObservation(req.ExperimentID, req.Control, req.Treatment)
		if err != nil {
			return nil, err
		}
		return domain.MarshalPayload(obs), nil

	case ActionGet:
		ref, err := decodeRef(msg.Payload)
		if err != nil {
			return nil, err
		}
		design, err := u.engine.Get(ref.ExperimentID)
		if err != nil {
			return nil, err
		}
		return domain.MarshalPayload(design), nil

	case ActionList:
		return domain.MarshalPayload(map[string]any{"experiments": u.engine.List()}), nil

	case ActionRunning:
		return domain.MarshalPayload(map[string]any{"running": u.engine.RunningCount()}), nil

	case ActionRollout:
		ref, err := decodeRef(msg.Payload)
		if err != nil {
			return nil, err
		}
		rec, err := u.engine.RolloutRecommendation(ref.ExperimentID)
		if err != nil {
			return nil, err
		}
		return domain.MarshalPayload(rec), nil

	case ActionObservation:
		ref, err := decodeRef(msg.Payload)
		if err != nil {
			return nil, err
		}
		obs, err := u.engine.Observations(ref.ExperimentID)
		if err != nil {
			return nil, err
		}
		return domain.MarshalPayload(map[string]any{"observations": obs}), nil
	}

	return nil, fmt.Errorf("experiment unit: unknown action %q", msg.Action)
}

func decodeRef(payload json.RawMessage) (*experimentRef, error) {
	var ref experimentRef
	if err := json.Unmarshal(payload, &ref); err != nil {
		return nil, fmt.Errorf("decode experiment reference: %w", err)
	}
	if ref.ExperimentID == "" {
		return nil, fmt.Errorf("experiment_id is required")
	}
	return &ref, nil
}
