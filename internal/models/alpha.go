package models

import "time"

// UntrackedRIR marks a set whose reps-in-reserve was not recorded.
const UntrackedRIR = -1

// AlphaSession is one workout from an Alpha Progression CSV export.
type AlphaSession struct {
	Name      string
	Date      time.Time
	Duration  string
	Exercises []AlphaExercise
}

// AlphaExercise is one exercise block within a session.
type AlphaExercise struct {
	Number     int
	Name       string
	Equipment  string
	TargetReps int
	Sets       []AlphaSet
}

// ID returns the movement memory exercise ID for the block.
func (e AlphaExercise) ID() string {
	return ExerciseSlug(e.Name, e.Equipment)
}

// AlphaSet is a single working or warmup set. Bodyweight-plus sets record the
// added load only; RIR is -1 when the app did not track it.
type AlphaSet struct {
	Number           int
	WeightKg         float64
	IsBodyweightPlus bool
	Reps             int
	RIR              float64
	IsWarmup         bool
}

// Effort converts reps-in-reserve to a 1–10 effort rating (10 − RIR).
// Returns nil when RIR was not tracked.
func (s AlphaSet) Effort() *float64 {
	if s.RIR <= UntrackedRIR || s.IsWarmup {
		return nil
	}
	e := 10 - s.RIR
	if e < 1 {
		e = 1
	}
	if e > 10 {
		e = 10
	}
	return &e
}

// Load returns the recorded weight, nil for plain bodyweight sets (+0).
func (s AlphaSet) Load() *float64 {
	if s.WeightKg <= 0 {
		return nil
	}
	w := s.WeightKg
	return &w
}
