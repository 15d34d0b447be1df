package progression

import (
	"testing"

	"github.com/claude/movementmemory/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func suggestFor(t *testing.T, history []models.SetRecord, now int, sc *SessionContext) *NextTimeSuggestion {
	t.Helper()
	mem := Recompute(testKey, history, at(now), DefaultOptions())
	require.NotNil(t, mem)
	s := Suggest(mem, at(now), sc, DefaultSuggestOptions())
	require.NotNil(t, s)
	return s
}

func alertTypes(s *NextTimeSuggestion) []AlertType {
	out := make([]AlertType, 0, len(s.Alerts))
	for _, a := range s.Alerts {
		out = append(out, a.Type)
	}
	return out
}

func TestSuggestNilMemory(t *testing.T) {
	assert.Nil(t, Suggest(nil, at(0), nil, DefaultSuggestOptions()))

	stored := Recompute(testKey, []models.SetRecord{working(0, 1, 185, 5, 8)}, at(0), DefaultOptions())
	assert.Nil(t, Suggest(Retire(stored, at(1)), at(1), nil, DefaultSuggestOptions()))
}

func TestSuggestFirstExposure(t *testing.T) {
	s := suggestFor(t, []models.SetRecord{working(0, 1, 185, 5, 8)}, 0, nil)

	assert.Equal(t, 1, s.ExposureCount)
	assert.Nil(t, s.Trend)
	assert.Equal(t, 185.0, *s.Recommended.Weight)
	assert.Equal(t, 5, *s.Recommended.Reps)
	assert.Equal(t, 8.0, s.Recommended.TargetEffort)
	assert.Equal(t, "No prior data to compare against yet: repeat 185 × 5 and log it to build history.", s.Reasoning)
	assert.NotNil(t, s.Alerts)
	assert.Empty(t, s.Alerts)
	assert.Equal(t, 216.0, *s.BestEstimatedMax)
}

func TestSuggestProgressionAddsPlateStep(t *testing.T) {
	history := []models.SetRecord{
		working(0, 1, 185, 5, 8),
		working(7, 1, 190, 5, 8),
	}
	mem := Recompute(testKey, history, at(7), DefaultOptions())
	require.NotNil(t, mem)
	assert.Equal(t, 190.0, mem.Records.Weight.Value)

	s := Suggest(mem, at(7), nil, DefaultSuggestOptions())
	require.NotNil(t, s)
	assert.Equal(t, TrendProgressing, *s.Trend)
	assert.Equal(t, 195.0, *s.Recommended.Weight)
	assert.Equal(t, 5, *s.Recommended.Reps)
	assert.Equal(t, 8.0, s.Recommended.TargetEffort)
	assert.Contains(t, s.Reasoning, "185 × 5 to 190 × 5")
	assert.Contains(t, s.Reasoning, "add 5 to 195 × 5")
	assert.Empty(t, s.Alerts)
}

func TestSuggestProgressionLightLoad(t *testing.T) {
	history := []models.SetRecord{
		working(0, 1, 40, 10, 8),
		working(3, 1, 42.5, 10, 8),
	}
	s := suggestFor(t, history, 3, nil)
	assert.Equal(t, 45.0, *s.Recommended.Weight)
}

func TestSuggestRepDrivenProgression(t *testing.T) {
	history := []models.SetRecord{
		working(0, 1, 0, 10, 0),
		working(2, 1, 0, 12, 0),
	}
	s := suggestFor(t, history, 2, nil)
	assert.Nil(t, s.Recommended.Weight)
	assert.Equal(t, 13, *s.Recommended.Reps)
	assert.Equal(t, defaultTargetEffort, s.Recommended.TargetEffort)
	assert.Contains(t, s.Reasoning, "bodyweight × 13")
}

func TestSuggestPlateau(t *testing.T) {
	var history []models.SetRecord
	for _, d := range []int{0, 3, 6, 9} {
		history = append(history, working(d, 1, 185, 5, 8))
	}
	s := suggestFor(t, history, 9, nil)

	assert.Equal(t, TrendStagnant, *s.Trend)
	assert.True(t, s.ConsiderVariation)
	assert.Equal(t, 185.0, *s.Recommended.Weight)
	assert.Equal(t, []AlertType{AlertPlateau}, alertTypes(s))
	assert.Contains(t, s.Alerts[0].Message, "3 sessions")
}

func TestSuggestNoPlateauBelowWindow(t *testing.T) {
	history := []models.SetRecord{
		working(0, 1, 185, 5, 8),
		working(3, 1, 185, 5, 8),
		working(6, 1, 185, 5, 8),
	}
	s := suggestFor(t, history, 6, nil)
	assert.True(t, s.ConsiderVariation)
	assert.Empty(t, s.Alerts)
}

func TestSuggestStale(t *testing.T) {
	history := []models.SetRecord{
		working(0, 1, 185, 5, 8),
		working(7, 1, 190, 5, 8),
	}
	s := suggestFor(t, history, 27, nil)

	require.NotEmpty(t, s.Alerts)
	assert.Equal(t, AlertMissedSession, s.Alerts[0].Type)
	assert.Equal(t, 170.0, *s.Recommended.Weight)
	assert.Equal(t, 5, *s.Recommended.Reps)
	assert.Equal(t, conservativeEffort, s.Recommended.TargetEffort)
	assert.Contains(t, s.Reasoning, "20 days since the last session")
}

func TestSuggestStaleUsesPlannedDate(t *testing.T) {
	history := []models.SetRecord{
		working(0, 1, 185, 5, 8),
		working(7, 1, 190, 5, 8),
	}
	s := suggestFor(t, history, 8, &SessionContext{Date: at(30)})
	assert.Equal(t, []AlertType{AlertMissedSession}, alertTypes(s))

	s = suggestFor(t, history, 8, &SessionContext{Date: at(21)})
	assert.Empty(t, s.Alerts, "14 days is not over the threshold")
}

func TestSuggestRegression(t *testing.T) {
	history := []models.SetRecord{
		working(0, 1, 185, 5, 8),
		working(7, 1, 175, 5, 8),
	}
	s := suggestFor(t, history, 7, nil)

	assert.Equal(t, TrendRegressing, *s.Trend)
	assert.Equal(t, 175.0, *s.Recommended.Weight)
	assert.Equal(t, conservativeEffort, s.Recommended.TargetEffort)
	assert.Equal(t, []AlertType{AlertRegression}, alertTypes(s))
	assert.Contains(t, s.Reasoning, "hold 175 × 5")
}

func TestSuggestBackoffSetRegression(t *testing.T) {
	history := []models.SetRecord{
		working(0, 1, 185, 5, 8),
		working(0, 2, 185, 5, 8),
		working(3, 1, 190, 5, 8),
		working(3, 2, 175, 5, 8),
	}
	s := suggestFor(t, history, 3, nil)

	assert.Equal(t, TrendRegressing, *s.Trend)
	assert.Equal(t, 190.0, *s.Recommended.Weight, "hold the top set, no plate step")
	assert.Equal(t, []AlertType{AlertRegression}, alertTypes(s))
	assert.Contains(t, s.Reasoning, "Regressed from 185 × 5 to 175 × 5 (weight down 10): hold 190 × 5")
}

func TestSuggestRegressionAtHighEffortDeloads(t *testing.T) {
	history := []models.SetRecord{
		working(0, 1, 185, 5, 8),
		working(7, 1, 175, 5, 9.5),
	}
	s := suggestFor(t, history, 7, nil)
	assert.Equal(t, 165.0, *s.Recommended.Weight)
	assert.Equal(t, conservativeEffort, s.Recommended.TargetEffort)
}

func TestSuggestStaleAndRegressedOrdersAlerts(t *testing.T) {
	history := []models.SetRecord{
		working(0, 1, 185, 5, 8),
		working(7, 1, 175, 5, 8),
	}
	s := suggestFor(t, history, 40, nil)
	assert.Equal(t, []AlertType{AlertMissedSession, AlertRegression}, alertTypes(s))
}

func TestSuggestContextNote(t *testing.T) {
	set := working(0, 1, 185, 5, 8)
	set.SessionContext = "push"
	s := suggestFor(t, []models.SetRecord{set}, 1, &SessionContext{Tag: "deload"})
	assert.Contains(t, s.Reasoning, `Last logged in a "push" session, planned for "deload".`)

	s = suggestFor(t, []models.SetRecord{set}, 1, &SessionContext{Tag: "Push"})
	assert.NotContains(t, s.Reasoning, "Last logged")
}

func TestRoundDownToIncrement(t *testing.T) {
	assert.Equal(t, 170.0, roundDownToIncrement(171, 5))
	assert.Equal(t, 40.0, roundDownToIncrement(41, 2.5))
	assert.Equal(t, 2.5, roundDownToIncrement(1, 2.5))
	assert.Equal(t, 5.0, WeightIncrement(100))
	assert.Equal(t, 2.5, WeightIncrement(99.9))
}
