package progression

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sd(weight float64, reps int, effort float64) SetData {
	s := SetData{}
	if weight > 0 {
		s.Weight = &weight
	}
	if reps > 0 {
		s.Reps = &reps
	}
	if effort > 0 {
		s.Effort = &effort
	}
	return s
}

func prev(s SetData) *SetData { return &s }

func TestClassifyOrderedRules(t *testing.T) {
	pct := 16.76
	tests := []struct {
		name     string
		current  SetData
		previous SetData
		want     Classification
	}{
		{"weight increase", sd(185, 5, 0), sd(180, 5, 0), WeightIncrease{Amount: 5}},
		{"weight increase with more reps", sd(185, 6, 0), sd(180, 5, 0), WeightIncrease{Amount: 5}},
		{"rep increase", sd(185, 6, 0), sd(185, 5, 0), RepIncrease{Amount: 1}},
		{"bodyweight rep increase", sd(0, 12, 0), sd(0, 10, 0), RepIncrease{Amount: 2}},
		{"volume increase", sd(180, 6, 0), sd(185, 5, 0), VolumeIncrease{Amount: 155, Percent: &pct}},
		{"estimated max increase", sd(200, 3, 0), sd(180, 5, 0), E1RMIncrease{Previous: 210, Current: 220}},
		{"effort decrease", sd(185, 5, 7), sd(185, 5, 9), EffortDecrease{Amount: 2}},
		{"matched same effort", sd(185, 5, 8), sd(185, 5, 8), Matched{}},
		{"matched without effort", sd(185, 5, 0), sd(185, 5, 0), Matched{}},
		{"matched within tolerance", sd(185, 5, 8.5), sd(185, 5, 8), Matched{EffortChange: 0.5}},
		{"regressed weight", sd(175, 5, 0), sd(185, 5, 0), Regressed{WeightChange: -10}},
		{"regressed reps with heavier load", sd(190, 4, 0), sd(185, 5, 0), Regressed{RepChange: -1}},
		{"regressed both", sd(175, 4, 0), sd(185, 5, 0), Regressed{WeightChange: -10, RepChange: -1}},
		{"fallback on effort spike", sd(185, 5, 9), sd(185, 5, 8), Matched{EffortChange: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.current, prev(tt.previous))
			require.NotNil(t, got)
			assert.Equal(t, tt.want.Outcome(), got.Outcome())
			if v, ok := tt.want.(VolumeIncrease); ok {
				g := got.(VolumeIncrease)
				assert.InDelta(t, v.Amount, g.Amount, 0.001)
				require.NotNil(t, g.Percent)
				assert.InDelta(t, *v.Percent, *g.Percent, 0.01)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyShortCircuits(t *testing.T) {
	warm := sd(60, 10, 0)
	warm.IsWarmup = true

	tests := []struct {
		name     string
		current  SetData
		previous *SetData
	}{
		{"first exposure", sd(185, 5, 8), nil},
		{"current warmup", warm, prev(sd(185, 5, 8))},
		{"previous warmup", sd(185, 5, 8), &warm},
		{"current empty", sd(0, 0, 8), prev(sd(185, 5, 8))},
		{"previous empty", sd(185, 5, 8), prev(sd(0, 0, 7))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, Classify(tt.current, tt.previous))
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	cur, p := sd(102.5, 8, 8), sd(100, 8, 8.5)
	first := Classify(cur, &p)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Classify(cur, &p))
	}
	assert.Equal(t, 100.0, *p.Weight, "previous set must not be mutated")
}

func TestClassificationDetail(t *testing.T) {
	pct := 8.11
	tests := []struct {
		c    Classification
		want string
	}{
		{WeightIncrease{Amount: 2.5}, "weight up 2.5"},
		{RepIncrease{Amount: 2}, "reps up 2"},
		{VolumeIncrease{Amount: 75, Percent: &pct}, "volume up 75 (+8.11%)"},
		{VolumeIncrease{Amount: 75}, "volume up 75"},
		{E1RMIncrease{Previous: 211, Current: 215}, "estimated max up 4 (211 → 215)"},
		{EffortDecrease{Amount: 1.5}, "effort down 1.5 at the same load"},
		{Matched{EffortChange: 0.5}, "same load, effort change +0.5"},
		{Regressed{WeightChange: -10, RepChange: -2}, "weight down 10, reps down 2"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.c.Detail())
	}
}

func TestOutcomeTrend(t *testing.T) {
	for _, o := range []Outcome{OutcomeWeightIncrease, OutcomeRepIncrease, OutcomeVolumeIncrease, OutcomeE1RMIncrease, OutcomeEffortDecrease} {
		assert.Equal(t, TrendProgressing, o.Trend(), o.String())
	}
	assert.Equal(t, TrendStagnant, OutcomeMatched.Trend())
	assert.Equal(t, TrendRegressing, OutcomeRegressed.Trend())
}

func TestOutcomeText(t *testing.T) {
	b, err := json.Marshal(OutcomeEffortDecrease)
	require.NoError(t, err)
	assert.JSONEq(t, `"effort_decrease"`, string(b))

	var o Outcome
	require.NoError(t, json.Unmarshal([]byte(`"regressed"`), &o))
	assert.Equal(t, OutcomeRegressed, o)

	assert.Error(t, json.Unmarshal([]byte(`"sideways"`), &o))
	_, err = json.Marshal(Outcome(42))
	assert.Error(t, err)
}
