package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
	"github.com/ItaloOlivier/ayonne-sub000/internal/protocol"
)

// Actions the orchestrator answers over the message protocol.
const (
	ActionRunLoop          = "run_loop"
	ActionStatus           = "status"
	ActionApprove          = "approve_action"
	ActionReject           = "reject_action"
	ActionPendingApprovals = "pending_approvals"
	ActionLoopHistory      = "loop_history"
	ActionSetPhase         = "set_phase"
)

// Unit exposes the orchestrator itself on the message protocol, so
// external drivers speak the same interface the units do.
type Unit struct {
	orch    *Orchestrator
	tracker *protocol.StateTracker
}

// NewUnit wraps an orchestrator as a protocol unit.
func NewUnit(orch *Orchestrator) *Unit {
	return &Unit{
		orch:    orch,
		tracker: protocol.NewStateTracker(domain.RecipientOrchestrator, "Orchestrator"),
	}
}

func (u *Unit) ID() string { return domain.RecipientOrchestrator }

func (u *Unit) State() domain.AgentState { return u.tracker.Snapshot() }

type approvalDecision struct {
	ApprovalID string `json:"approval_id"`
	By         string `json:"by"`
	Notes      string `json:"notes,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

type historyRequest struct {
	Limit int `json:"limit"`
}

type phaseRequest struct {
	Phase domain.PipelinePhase `json:"phase"`
}

// HandleMessage serves one protocol request.
func (u *Unit) HandleMessage(ctx context.Context, msg *domain.AgentMessage) (*domain.AgentMessage, error) {
	u.tracker.Begin(msg.Action)

	payload, err := u.handle(ctx, msg)
	if err != nil {
		u.tracker.Fail(msg.Action, err, true)
		return nil, err
	}
	u.tracker.Done()
	return domain.ResponseTo(msg, domain.RecipientOrchestrator, payload), nil
}

func (u *Unit) handle(ctx context.Context, msg *domain.AgentMessage) (json.RawMessage, error) {
	switch msg.Action {
	case ActionRunLoop:
		result, err := u.orch.RunLoop(ctx)
		if err != nil {
			return nil, err
		}
		return domain.MarshalPayload(result), nil

	case ActionStatus:
		return domain.MarshalPayload(u.orch.Status(ctx)), nil

	case ActionApprove, ActionReject:
		var req approvalDecision
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return nil, fmt.Errorf("decode approval decision: %w", err)
		}
		if req.ApprovalID == "" {
			return nil, fmt.Errorf("approval_id is required")
		}
		var approval domain.PendingApproval
		var err error
		if msg.Action == ActionApprove {
			approval, err = u.orch.Approve(ctx, req.ApprovalID, req.By, req.Notes)
		} else {
			approval, err = u.orch.Reject(ctx, req.ApprovalID, req.By, req.Reason)
		}
		if err != nil {
			return nil, err
		}
		return domain.MarshalPayload(approval), nil

	case ActionPendingApprovals:
		return domain.MarshalPayload(u.orch.Approvals().Pending()), nil

	case ActionLoopHistory:
		var req historyRequest
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &req); err != nil {
				return nil, fmt.Errorf("decode history request: %w", err)
			}
		}
		return domain.MarshalPayload(u.orch.History(req.Limit)), nil

	case ActionSetPhase:
		var req phaseRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return nil, fmt.Errorf("decode phase request: %w", err)
		}
		if err := u.orch.SetPhase(req.Phase); err != nil {
			return nil, err
		}
		return domain.MarshalPayload(map[string]any{"phase": req.Phase}), nil

	default:
		return nil, fmt.Errorf("unknown orchestrator action %q", msg.Action)
	}
}
