package producer

import (
	"math"
	"testing"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

func TestSplitCoversWholeBudget(t *testing.T) {
	p := NewStrategyProducer(nil)

	for _, phase := range []domain.PipelinePhase{domain.PhaseLearning, domain.PhaseOptimizing, domain.PhaseScaling} {
		t.Run(string(phase), func(t *testing.T) {
			split, err := p.Split(BudgetSplitRequest{Phase: phase, DailyBudget: 200})
			if err != nil {
				t.Fatalf("split: %v", err)
			}
			if len(split.Allocations) == 0 {
				t.Fatal("no allocations")
			}
			var shares, amounts float64
			for _, alloc := range split.Allocations {
				shares += alloc.Share
				amounts += alloc.Amount
				if want := 200 * alloc.Share; math.Abs(alloc.Amount-want) > 1e-9 {
					t.Errorf("bucket %s amount = %v, want %v", alloc.Bucket, alloc.Amount, want)
				}
			}
			if math.Abs(shares-1) > 1e-9 {
				t.Errorf("shares sum = %v, want 1", shares)
			}
			if math.Abs(amounts-200) > 1e-9 {
				t.Errorf("amounts sum = %v, want the full 200", amounts)
			}
			if split.Rationale == "" {
				t.Error("split must explain itself")
			}
		})
	}
}

func TestSplitValidation(t *testing.T) {
	p := NewStrategyProducer(nil)

	if _, err := p.Split(BudgetSplitRequest{Phase: domain.PhaseSetup, DailyBudget: 100}); err == nil {
		t.Error("setup phase has no split and must error")
	}
	if _, err := p.Split(BudgetSplitRequest{Phase: domain.PhaseLearning, DailyBudget: 0}); err == nil {
		t.Error("zero budget must error")
	}
}
