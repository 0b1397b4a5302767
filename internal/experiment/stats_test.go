package experiment

import (
	"math"
	"testing"
)

func TestMinimumSampleSizeShrinksWithLargerEffect(t *testing.T) {
	mdes := []float64{0.05, 0.1, 0.2, 0.5}
	prev := math.MaxInt
	for _, mde := range mdes {
		n := MinimumSampleSize(0.02, mde)
		if n <= 0 {
			t.Fatalf("MinimumSampleSize(0.02, %v) = %d, want positive", mde, n)
		}
		if n >= prev {
			t.Errorf("MinimumSampleSize(0.02, %v) = %d, want < %d (larger effects need less data)", mde, n, prev)
		}
		prev = n
	}
}

func TestMinimumRuntimeDaysClamped(t *testing.T) {
	tests := []struct {
		name       string
		sampleSize int
		daily      float64
		want       int
	}{
		{"tiny sample clamps to floor", 10, 10, 7},
		{"huge sample clamps to ceiling", 100000, 10, 30},
		{"mid range rounds up", 95, 10, 10},
		{"zero daily conversions uses ceiling", 100, 0, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MinimumRuntimeDays(tt.sampleSize, tt.daily); got != tt.want {
				t.Errorf("MinimumRuntimeDays(%d, %v) = %d, want %d", tt.sampleSize, tt.daily, got, tt.want)
			}
		})
	}
}

func TestNormalCDF(t *testing.T) {
	tests := []struct {
		z    float64
		want float64
	}{
		{0, 0.5},
		{1.96, 0.975},
		{-1.96, 0.025},
		{3, 0.9987},
	}
	for _, tt := range tests {
		got := NormalCDF(tt.z)
		if math.Abs(got-tt.want) > 0.001 {
			t.Errorf("NormalCDF(%v) = %v, want %v (±0.001)", tt.z, got, tt.want)
		}
	}
}

func TestCompareZeroPooledSE(t *testing.T) {
	a := NewAnalyzer()
	cmp := a.Compare(0, 0)
	if cmp.Z != 0 {
		t.Errorf("z = %v, want 0 when pooled SE is 0", cmp.Z)
	}
	if cmp.PValue != 1 {
		t.Errorf("p = %v, want 1 when z is 0", cmp.PValue)
	}
	if cmp.Lift != 0 {
		t.Errorf("lift = %v, want 0 when control is 0", cmp.Lift)
	}
}

func TestCompareControlZeroLeavesLiftZero(t *testing.T) {
	a := NewAnalyzer()
	cmp := a.Compare(0, 5)
	if cmp.Lift != 0 || cmp.LiftLower != 0 || cmp.LiftUpper != 0 {
		t.Errorf("lift = (%v, %v, %v), want zeros when control is 0",
			cmp.LiftLower, cmp.Lift, cmp.LiftUpper)
	}
	if cmp.PValue >= 0.05 {
		t.Errorf("p = %v, want significant for 0 vs 5 under 10%% SE", cmp.PValue)
	}
}

func TestCompareSymmetricCI(t *testing.T) {
	a := NewAnalyzer()
	cmp := a.Compare(0.02, 0.03)
	if math.Abs((cmp.Lift-cmp.LiftLower)-(cmp.LiftUpper-cmp.Lift)) > 1e-9 {
		t.Errorf("CI (%v, %v) not symmetric around lift %v", cmp.LiftLower, cmp.LiftUpper, cmp.Lift)
	}
	if cmp.LiftLower >= cmp.LiftUpper {
		t.Errorf("CI bounds inverted: (%v, %v)", cmp.LiftLower, cmp.LiftUpper)
	}
}
