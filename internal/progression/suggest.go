package progression

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	defaultTargetEffort    = 8.0
	conservativeEffort     = 7.0
	heavyLoadThreshold     = 100.0
	smallIncrement         = 2.5
	largeIncrement         = 5.0
	regressionDeload       = 0.95
	missedSessionDeload    = 0.90
	regressionDeloadEffort = 9.0
	defaultStaleAfterDays  = 14
	defaultPlateauSessions = 3
)

// AlertType names an alert attached to a suggestion.
type AlertType int

// Alerts are emitted in this order.
const (
	AlertMissedSession AlertType = iota + 1
	AlertRegression
	AlertPlateau
)

var alertNames = map[AlertType]string{
	AlertMissedSession: "missed_session",
	AlertRegression:    "regression",
	AlertPlateau:       "plateau",
}

func (a AlertType) String() string {
	if name, ok := alertNames[a]; ok {
		return name
	}
	return fmt.Sprintf("alert(%d)", int(a))
}

func (a AlertType) MarshalText() ([]byte, error) {
	if _, ok := alertNames[a]; !ok {
		return nil, fmt.Errorf("unknown alert type %d", int(a))
	}
	return []byte(a.String()), nil
}

func (a *AlertType) UnmarshalText(b []byte) error {
	for k, v := range alertNames {
		if v == string(b) {
			*a = k
			return nil
		}
	}
	return fmt.Errorf("unknown alert type %q", b)
}

type Alert struct {
	Type            AlertType `json:"type"`
	Message         string    `json:"message"`
	SuggestedAction string    `json:"suggested_action"`
}

// Prescription is a recommended target for the next session.
type Prescription struct {
	Weight       *float64 `json:"weight"`
	Reps         *int     `json:"reps"`
	TargetEffort float64  `json:"target_effort"`
}

// NextTimeSuggestion is derived on demand and never stored.
type NextTimeSuggestion struct {
	ExerciseID        string          `json:"exercise_id"`
	LastPerformance   Performance     `json:"last_performance"`
	Recommended       Prescription    `json:"recommended"`
	Confidence        ConfidenceLevel `json:"confidence_level"`
	Trend             *Trend          `json:"trend,omitempty"`
	Reasoning         string          `json:"reasoning"`
	ExposureCount     int             `json:"exposure_count"`
	BestEstimatedMax  *float64        `json:"best_estimated_max,omitempty"`
	Alerts            []Alert         `json:"alerts"`
	ConsiderVariation bool            `json:"consider_variation,omitempty"`
}

// SessionContext describes the session being planned. Both fields are optional.
type SessionContext struct {
	// Tag is the workout context, e.g. "push day" or "deload".
	Tag string `json:"tag,omitempty"`
	// Date is when the session will happen; defaults to now.
	Date time.Time `json:"date,omitempty"`
}

type SuggestOptions struct {
	StaleAfterDays  int
	PlateauSessions int
}

// DefaultSuggestOptions returns a 14 day staleness threshold and a three
// session plateau window.
func DefaultSuggestOptions() SuggestOptions {
	return SuggestOptions{StaleAfterDays: defaultStaleAfterDays, PlateauSessions: defaultPlateauSessions}
}

// WeightIncrement is the smallest meaningful jump at a given load.
func WeightIncrement(load float64) float64 {
	if load >= heavyLoadThreshold {
		return largeIncrement
	}
	return smallIncrement
}

// roundDownToIncrement rounds a load down to a plate step, never below one step.
func roundDownToIncrement(load, step float64) float64 {
	v := math.Floor(load/step+epsilon) * step
	if v < step {
		return step
	}
	return round2(v)
}

// Suggest builds the next-session recommendation from a memory. It returns
// nil when there is nothing to suggest from: no memory, or no remaining
// qualifying history.
func Suggest(mem *MovementMemory, now time.Time, sc *SessionContext, opts SuggestOptions) *NextTimeSuggestion {
	if mem == nil || mem.LastPerformance == nil {
		return nil
	}
	if opts.StaleAfterDays <= 0 {
		opts.StaleAfterDays = defaultStaleAfterDays
	}
	if opts.PlateauSessions <= 0 {
		opts.PlateauSessions = defaultPlateauSessions
	}

	last := *mem.LastPerformance
	planned := now
	if sc != nil && !sc.Date.IsZero() {
		planned = sc.Date
	}
	daysSince := daysBetween(last.Date, planned)

	s := &NextTimeSuggestion{
		ExerciseID:      mem.ExerciseID,
		LastPerformance: last,
		Confidence:      mem.Confidence,
		Trend:           mem.Trend,
		ExposureCount:   mem.ExposureCount,
		Alerts:          []Alert{},
	}
	if mem.Records.EstimatedMax != nil {
		best := mem.Records.EstimatedMax.Value
		s.BestEstimatedMax = &best
	}

	rec := Prescription{Weight: last.Weight, Reps: last.Reps, TargetEffort: defaultTargetEffort}
	if last.Effort != nil {
		rec.TargetEffort = *last.Effort
	}

	outcome := mem.LastOutcome()
	lastSet := FormatSet(last.Weight, last.Reps)
	var compared, previous string
	if outcome != nil {
		compared = FormatSet(outcome.Weight, outcome.Reps)
		previous = FormatSet(outcome.PreviousWeight, outcome.PreviousReps)
	}
	var reasons []string

	switch {
	case mem.Trend == nil || outcome == nil:
		reasons = append(reasons, fmt.Sprintf(
			"No prior data to compare against yet: repeat %s and log it to build history.", lastSet))

	case *mem.Trend == TrendProgressing:
		rec, reasons = progress(rec, last, outcome, reasons)

	case *mem.Trend == TrendStagnant:
		s.ConsiderVariation = true
		reasons = append(reasons, fmt.Sprintf(
			"Matched %s last session (%s): repeat %s, or change one variable to break the pattern.",
			compared, outcome.Detail, lastSet))

	case *mem.Trend == TrendRegressing:
		rec.TargetEffort = math.Min(rec.TargetEffort, conservativeEffort)
		if last.Weight != nil && last.Effort != nil && *last.Effort >= regressionDeloadEffort {
			w := roundDownToIncrement(*last.Weight*regressionDeload, WeightIncrement(*last.Weight))
			rec.Weight = &w
			reasons = append(reasons, fmt.Sprintf(
				"Regressed from %s to %s (%s) at effort %s: drop to %s.",
				previous, compared, outcome.Detail,
				formatNumber(*last.Effort), FormatSet(rec.Weight, rec.Reps)))
		} else {
			reasons = append(reasons, fmt.Sprintf(
				"Regressed from %s to %s (%s): hold %s and rebuild.",
				previous, compared, outcome.Detail, lastSet))
		}
		s.Alerts = append(s.Alerts, Alert{
			Type:            AlertRegression,
			Message:         fmt.Sprintf("Performance fell from %s to %s (%s).", previous, compared, outcome.Detail),
			SuggestedAction: "Hold or lighten the load and check recovery before pushing again.",
		})
	}

	if daysSince > opts.StaleAfterDays {
		rec.Weight, rec.Reps = last.Weight, last.Reps
		if last.Weight != nil {
			w := roundDownToIncrement(*last.Weight*missedSessionDeload, WeightIncrement(*last.Weight))
			rec.Weight = &w
		}
		rec.TargetEffort = math.Min(rec.TargetEffort, conservativeEffort)
		reasons = append(reasons, fmt.Sprintf(
			"%d days since the last session (over %d): ease back in at %s.",
			daysSince, opts.StaleAfterDays, FormatSet(rec.Weight, rec.Reps)))
		missed := Alert{
			Type:            AlertMissedSession,
			Message:         fmt.Sprintf("%d days since this exercise was last trained.", daysSince),
			SuggestedAction: fmt.Sprintf("Start around %s and rebuild over the next sessions.", FormatSet(rec.Weight, rec.Reps)),
		}
		s.Alerts = append([]Alert{missed}, s.Alerts...)
	}

	if n, ok := plateau(mem.RecentOutcomes, opts.PlateauSessions); ok {
		s.Alerts = append(s.Alerts, Alert{
			Type:            AlertPlateau,
			Message:         fmt.Sprintf("Matched %s for %d sessions in a row.", lastSet, n),
			SuggestedAction: "Change one variable for a block, such as an extra set or a different variation.",
		})
	}

	if sc != nil && sc.Tag != "" && last.Context != "" && !strings.EqualFold(sc.Tag, last.Context) {
		reasons = append(reasons, fmt.Sprintf("Last logged in a %q session, planned for %q.", last.Context, sc.Tag))
	}

	s.Recommended = rec
	s.Reasoning = strings.Join(reasons, " ")
	return s
}

// progress applies the progression step matching the outcome that triggered
// it: load-driven outcomes add a plate step at matched reps, rep-driven ones
// add a rep at the same load.
func progress(rec Prescription, last Performance, outcome *SessionOutcome, reasons []string) (Prescription, []string) {
	loadDriven := outcome.Outcome == OutcomeWeightIncrease || outcome.Outcome == OutcomeEffortDecrease
	if loadDriven && last.Weight != nil && *last.Weight > 0 {
		step := WeightIncrement(*last.Weight)
		w := round2(*last.Weight + step)
		rec.Weight = &w
		reasons = append(reasons, fmt.Sprintf(
			"Last session moved from %s to %s (%s): add %s to %s.",
			FormatSet(outcome.PreviousWeight, outcome.PreviousReps), FormatSet(outcome.Weight, outcome.Reps),
			outcome.Detail, formatNumber(step), FormatSet(rec.Weight, rec.Reps)))
		return rec, reasons
	}

	if last.Reps != nil {
		r := *last.Reps + 1
		rec.Reps = &r
		reasons = append(reasons, fmt.Sprintf(
			"Last session moved from %s to %s (%s): aim for %s, one more rep.",
			FormatSet(outcome.PreviousWeight, outcome.PreviousReps), FormatSet(outcome.Weight, outcome.Reps),
			outcome.Detail, FormatSet(rec.Weight, rec.Reps)))
		return rec, reasons
	}

	// Weight-only work without a load-driven outcome: the plate step is
	// the only lever left.
	if last.Weight != nil {
		w := round2(*last.Weight + WeightIncrement(*last.Weight))
		rec.Weight = &w
	}
	reasons = append(reasons, fmt.Sprintf(
		"Last session progressed (%s): try %s.", outcome.Detail, FormatSet(rec.Weight, rec.Reps)))
	return rec, reasons
}

// plateau reports whether the trailing outcomes are all matched at one load,
// and how many trailing matched outcomes there are.
func plateau(outcomes []SessionOutcome, window int) (int, bool) {
	if len(outcomes) < window {
		return 0, false
	}
	lastLoad := outcomes[len(outcomes)-1]
	n := 0
	for i := len(outcomes) - 1; i >= 0; i-- {
		o := outcomes[i]
		if o.Outcome != OutcomeMatched || !sameLoad(o, lastLoad) {
			break
		}
		n++
	}
	return n, n >= window
}

func sameLoad(a, b SessionOutcome) bool {
	return same(ptrValue(a.Weight), ptrValue(b.Weight)) && ptrValue(a.Reps) == ptrValue(b.Reps)
}

func ptrValue[T int | float64](p *T) T {
	if p == nil {
		return 0
	}
	return *p
}
