package progression

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateMax(t *testing.T) {
	tests := []struct {
		name   string
		weight float64
		reps   int
		want   float64
	}{
		{"single rep is the max", 140, 1, 140},
		{"five reps", 185, 5, 216},
		{"ten reps", 100, 10, 133},
		{"zero reps", 100, 0, 0},
		{"negative reps", 100, -3, 0},
		{"zero weight", 0, 5, 0},
		{"negative weight", -20, 5, 0},
		{"nan weight", math.NaN(), 5, 0},
		{"infinite weight", math.Inf(1), 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateMax(tt.weight, tt.reps))
		})
	}
}

func TestEstimateMaxLightLoadStaysAboveWeight(t *testing.T) {
	got := EstimateMax(1, 2)
	assert.Greater(t, got, 1.0)
	assert.InDelta(t, 1+2/30.0, got, 1e-12, "rounding to 1 would not exceed the weight")
}

func TestEstimateMaxProperties(t *testing.T) {
	for _, w := range []float64{0.5, 1, 2.5, 7, 20, 60, 102.5, 185, 300} {
		assert.Equal(t, w, EstimateMax(w, 1), "estimate of a single at %v", w)
		assert.Zero(t, EstimateMax(w, 0))
		for r := 2; r <= 20; r++ {
			assert.Greater(t, EstimateMax(w, r), w, "estimate of %v × %d", w, r)
		}
	}
	for r := 0; r <= 20; r++ {
		assert.Zero(t, EstimateMax(0, r))
	}
}

func TestEstimateMaxDeterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		assert.Equal(t, EstimateMax(102.5, 8), EstimateMax(102.5, 8))
	}
}
