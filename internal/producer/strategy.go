package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
	"github.com/ItaloOlivier/ayonne-sub000/internal/protocol"
)

// ActionBudgetSplit asks the strategy unit for a phase-appropriate
// budget allocation.
const ActionBudgetSplit = "budget_split"

// BudgetAllocation is one bucket of a phase's daily budget split.
type BudgetAllocation struct {
	Bucket string  `json:"bucket"`
	Share  float64 `json:"share"`
	Amount float64 `json:"amount"`
}

// BudgetSplitRequest carries the budget to divide.
type BudgetSplitRequest struct {
	Phase       domain.PipelinePhase `json:"phase"`
	DailyBudget float64              `json:"daily_budget"`
}

// BudgetSplit is the strategy unit's allocation recommendation.
type BudgetSplit struct {
	Phase       domain.PipelinePhase `json:"phase"`
	DailyBudget float64              `json:"daily_budget"`
	Allocations []BudgetAllocation   `json:"allocations"`
	Rationale   string               `json:"rationale"`
	GeneratedAt time.Time            `json:"generated_at"`
}

// Phase splits. Learning spends on discovery, optimizing concentrates
// on proven terms, scaling pushes winners while keeping a discovery
// remainder.
var phaseSplits = map[domain.PipelinePhase][]BudgetAllocation{
	domain.PhaseLearning: {
		{Bucket: "broad_discovery", Share: 0.50},
		{Bucket: "exact_winners", Share: 0.30},
		{Bucket: "remarketing", Share: 0.20},
	},
	domain.PhaseOptimizing: {
		{Bucket: "exact_winners", Share: 0.50},
		{Bucket: "broad_discovery", Share: 0.25},
		{Bucket: "remarketing", Share: 0.25},
	},
	domain.PhaseScaling: {
		{Bucket: "exact_winners", Share: 0.60},
		{Bucket: "audience_expansion", Share: 0.25},
		{Bucket: "remarketing", Share: 0.15},
	},
}

var phaseRationales = map[domain.PipelinePhase]string{
	domain.PhaseLearning:   "half the budget explores broad queries to find what converts",
	domain.PhaseOptimizing: "proven terms take the largest share while discovery keeps feeding the funnel",
	domain.PhaseScaling:    "winners absorb most spend and expansion audiences test headroom",
}

// StrategyProducer turns the pipeline phase into budget guidance.
type StrategyProducer struct {
	log *logrus.Entry
}

// NewStrategyProducer builds a strategy producer.
func NewStrategyProducer(log *logrus.Entry) *StrategyProducer {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &StrategyProducer{log: log}
}

// Split divides the daily budget per the phase's allocation table.
func (p *StrategyProducer) Split(req BudgetSplitRequest) (*BudgetSplit, error) {
	if req.DailyBudget <= 0 {
		return nil, fmt.Errorf("daily_budget must be positive")
	}
	template, ok := phaseSplits[req.Phase]
	if !ok {
		return nil, fmt.Errorf("no budget split for phase %q", req.Phase)
	}

	split := &BudgetSplit{
		Phase:       req.Phase,
		DailyBudget: req.DailyBudget,
		Rationale:   phaseRationales[req.Phase],
		GeneratedAt: time.Now(),
	}
	for _, alloc := range template {
		alloc.Amount = req.DailyBudget * alloc.Share
		split.Allocations = append(split.Allocations, alloc)
	}

	p.log.WithFields(logrus.Fields{"phase": req.Phase, "daily_budget": req.DailyBudget}).Info("Budget split generated")
	return split, nil
}

// StrategyUnit adapts the producer to the message protocol.
type StrategyUnit struct {
	producer *StrategyProducer
	tracker  *protocol.StateTracker
}

// NewStrategyUnit wraps a producer as a protocol unit.
func NewStrategyUnit(producer *StrategyProducer) *StrategyUnit {
	return &StrategyUnit{
		producer: producer,
		tracker:  protocol.NewStateTracker(domain.UnitStrategy, "Strategy Producer"),
	}
}

func (u *StrategyUnit) ID() string { return domain.UnitStrategy }

func (u *StrategyUnit) State() domain.AgentState { return u.tracker.Snapshot() }

// HandleMessage serves one protocol request.
func (u *StrategyUnit) HandleMessage(ctx context.Context, msg *domain.AgentMessage) (*domain.AgentMessage, error) {
	u.tracker.Begin(msg.Action)

	payload, err := u.handle(msg)
	if err != nil {
		u.tracker.Fail(msg.Action, err, true)
		return nil, err
	}
	u.tracker.Done()
	return domain.ResponseTo(msg, domain.UnitStrategy, payload), nil
}

func (u *StrategyUnit) handle(msg *domain.AgentMessage) (json.RawMessage, error) {
	switch msg.Action {
	case ActionBudgetSplit:
		var req BudgetSplitRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return nil, fmt.Errorf("decode budget split request: %w", err)
		}
		split, err := u.producer.Split(req)
		if err != nil {
			return nil, err
		}
		return domain.MarshalPayload(split), nil

	default:
		return nil, fmt.Errorf("unknown strategy action %q", msg.Action)
	}
}
