package main

import (
	"math"
	"testing"

	"github.com/pthm-cable/trek/config"
)

func TestParamVector_NormalizeRoundTrip(t *testing.T) {
	pv := NewParamVector()
	raw := pv.DefaultVector()
	back := pv.Denormalize(pv.Normalize(raw))
	for i := range raw {
		if math.Abs(raw[i]-back[i]) > 1e-9 {
			t.Errorf("%s: got %v, want %v", pv.Specs[i].Name, back[i], raw[i])
		}
	}
}

func TestParamVector_DefaultsWithinBounds(t *testing.T) {
	pv := NewParamVector()
	for _, spec := range pv.Specs {
		if spec.Default < spec.Min || spec.Default > spec.Max {
			t.Errorf("%s: default %v outside [%v, %v]", spec.Name, spec.Default, spec.Min, spec.Max)
		}
	}
}

// TestParamVector_Clamp verifies out-of-range values are pulled to the bounds.
func TestParamVector_Clamp(t *testing.T) {
	pv := NewParamVector()
	got := pv.Clamp([]float64{-1, 100, 0.5, 0.25})
	want := []float64{0.15, 5.0, 0.5, 0.25}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s: got %v, want %v", pv.Specs[i].Name, got[i], want[i])
		}
	}
}

// TestParamVector_ApplyAndExtract verifies applied values reach the derived planner params.
func TestParamVector_ApplyAndExtract(t *testing.T) {
	cfg, err := config.Defaults()
	if err != nil {
		t.Fatal(err)
	}
	pv := NewParamVector()
	values := []float64{0.5, 3.0, 0.6, 0.2}
	pv.ApplyToConfig(cfg, values)

	got := pv.ExtractFromConfig(cfg)
	for i := range values {
		if got[i] != values[i] {
			t.Errorf("%s: got %v, want %v", pv.Specs[i].Name, got[i], values[i])
		}
	}
	if cfg.Derived.NavParams.CellSize != 0.5 {
		t.Errorf("derived cell size = %v, want 0.5", cfg.Derived.NavParams.CellSize)
	}
	if cfg.Derived.NavParams.ReplanInterval != 0.6 {
		t.Errorf("derived replan interval = %v, want 0.6", cfg.Derived.NavParams.ReplanInterval)
	}
}

func TestComputeFitness(t *testing.T) {
	tests := []struct {
		name string
		run  runResult
		want float64
	}{
		{"clean", runResult{meanTravel: 4}, 4},
		{"failed plans", runResult{meanTravel: 4, failedPlans: 1}, 4 + failedPlanPenalty},
		{"unfinished", runResult{meanTravel: 4, unfinished: 2}, 4 + 2*unfinishedPenalty},
		{"plan time", runResult{meanTravel: 4, planTimeMS: 10}, 4 + 10*planTimeWeight},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := computeFitness(tt.run); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
