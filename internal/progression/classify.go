package progression

import (
	"fmt"
	"math"
	"strings"
)

// noiseThreshold is the minimum relative estimated-max gain treated as real.
const noiseThreshold = 1.01

// matchedEffortTolerance is the effort swing still considered a matched set.
const matchedEffortTolerance = 0.5

// SetData is the slice of a set the comparator looks at.
type SetData struct {
	Weight   *float64
	Reps     *int
	Effort   *float64
	IsWarmup bool
}

func (s SetData) empty() bool { return s.Weight == nil && s.Reps == nil }

func (s SetData) weight() float64 {
	if s.Weight == nil {
		return 0
	}
	return *s.Weight
}

func (s SetData) reps() int {
	if s.Reps == nil {
		return 0
	}
	return *s.Reps
}

// Outcome tags a classification.
type Outcome int

const (
	OutcomeWeightIncrease Outcome = iota + 1
	OutcomeRepIncrease
	OutcomeVolumeIncrease
	OutcomeE1RMIncrease
	OutcomeEffortDecrease
	OutcomeMatched
	OutcomeRegressed
)

var outcomeNames = map[Outcome]string{
	OutcomeWeightIncrease: "weight_increase",
	OutcomeRepIncrease:    "rep_increase",
	OutcomeVolumeIncrease: "volume_increase",
	OutcomeE1RMIncrease:   "e1rm_increase",
	OutcomeEffortDecrease: "effort_decrease",
	OutcomeMatched:        "matched",
	OutcomeRegressed:      "regressed",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

func (o Outcome) MarshalText() ([]byte, error) {
	if _, ok := outcomeNames[o]; !ok {
		return nil, fmt.Errorf("unknown outcome %d", int(o))
	}
	return []byte(o.String()), nil
}

func (o *Outcome) UnmarshalText(b []byte) error {
	for k, v := range outcomeNames {
		if v == string(b) {
			*o = k
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", b)
}

// Trend maps the outcome onto the coarse direction it signals.
func (o Outcome) Trend() Trend {
	switch o {
	case OutcomeMatched:
		return TrendStagnant
	case OutcomeRegressed:
		return TrendRegressing
	default:
		return TrendProgressing
	}
}

// Classification is the result of comparing a set with its predecessor.
// The concrete types below are the only implementations.
type Classification interface {
	Outcome() Outcome
	// Delta is the primary numeric change behind the outcome.
	Delta() float64
	// Detail is a short human-readable breakdown quoting the change.
	Detail() string
	sealed()
}

type WeightIncrease struct{ Amount float64 }

type RepIncrease struct{ Amount int }

// VolumeIncrease carries the absolute gain and, when the previous volume was
// non-zero, the gain in percent.
type VolumeIncrease struct {
	Amount  float64
	Percent *float64
}

type E1RMIncrease struct{ Previous, Current float64 }

// EffortDecrease is the same load and reps at lower perceived effort.
type EffortDecrease struct{ Amount float64 }

type Matched struct{ EffortChange float64 }

// Regressed records which metrics fell. Deltas are negative or zero.
type Regressed struct {
	WeightChange float64
	RepChange    int
}

func (WeightIncrease) Outcome() Outcome { return OutcomeWeightIncrease }
func (RepIncrease) Outcome() Outcome    { return OutcomeRepIncrease }
func (VolumeIncrease) Outcome() Outcome { return OutcomeVolumeIncrease }
func (E1RMIncrease) Outcome() Outcome   { return OutcomeE1RMIncrease }
func (EffortDecrease) Outcome() Outcome { return OutcomeEffortDecrease }
func (Matched) Outcome() Outcome        { return OutcomeMatched }
func (Regressed) Outcome() Outcome      { return OutcomeRegressed }

func (c WeightIncrease) Delta() float64 { return c.Amount }
func (c RepIncrease) Delta() float64    { return float64(c.Amount) }
func (c VolumeIncrease) Delta() float64 { return c.Amount }
func (c E1RMIncrease) Delta() float64   { return c.Current - c.Previous }
func (c EffortDecrease) Delta() float64 { return c.Amount }
func (c Matched) Delta() float64        { return c.EffortChange }

func (c Regressed) Delta() float64 {
	if c.WeightChange != 0 {
		return c.WeightChange
	}
	return float64(c.RepChange)
}

func (c WeightIncrease) Detail() string { return "weight up " + formatNumber(c.Amount) }
func (c RepIncrease) Detail() string    { return fmt.Sprintf("reps up %d", c.Amount) }

func (c VolumeIncrease) Detail() string {
	if c.Percent == nil {
		return "volume up " + formatNumber(c.Amount)
	}
	return fmt.Sprintf("volume up %s (+%s%%)", formatNumber(c.Amount), formatNumber(*c.Percent))
}

func (c E1RMIncrease) Detail() string {
	return fmt.Sprintf("estimated max up %s (%s → %s)",
		formatNumber(c.Current-c.Previous), formatNumber(c.Previous), formatNumber(c.Current))
}

func (c EffortDecrease) Detail() string {
	return fmt.Sprintf("effort down %s at the same load", formatNumber(c.Amount))
}

func (c Matched) Detail() string {
	return "same load, effort change " + formatSigned(c.EffortChange)
}

func (c Regressed) Detail() string {
	var parts []string
	if c.WeightChange < 0 {
		parts = append(parts, "weight down "+formatNumber(-c.WeightChange))
	}
	if c.RepChange < 0 {
		parts = append(parts, fmt.Sprintf("reps down %d", -c.RepChange))
	}
	return strings.Join(parts, ", ")
}

func (WeightIncrease) sealed() {}
func (RepIncrease) sealed()    {}
func (VolumeIncrease) sealed() {}
func (E1RMIncrease) sealed()   {}
func (EffortDecrease) sealed() {}
func (Matched) sealed()        {}
func (Regressed) sealed()      {}

// Classify compares current with the preceding comparable set. It returns nil
// when no classification is possible: no previous set, a warmup on either
// side, or a set with neither weight nor reps. Rules are applied in order and
// the first match wins.
func Classify(current SetData, previous *SetData) Classification {
	if previous == nil || current.IsWarmup || previous.IsWarmup {
		return nil
	}
	if current.empty() || previous.empty() {
		return nil
	}

	cw, pw := current.weight(), previous.weight()
	cr, pr := current.reps(), previous.reps()

	switch {
	case greater(cw, pw) && cr >= pr:
		return WeightIncrease{Amount: round2(cw - pw)}
	case cr > pr && !less(cw, pw):
		return RepIncrease{Amount: cr - pr}
	}

	cv, pv := cw*float64(cr), pw*float64(pr)
	if greater(cv, pv) {
		inc := VolumeIncrease{Amount: round2(cv - pv)}
		if pv > 0 {
			pct := round2((cv - pv) / pv * 100)
			inc.Percent = &pct
		}
		return inc
	}

	if ce, pe := EstimateMax(cw, cr), EstimateMax(pw, pr); ce > pe*noiseThreshold {
		return E1RMIncrease{Previous: pe, Current: ce}
	}

	sameLoad := same(cw, pw) && cr == pr
	if sameLoad && current.Effort != nil && previous.Effort != nil && *current.Effort < *previous.Effort {
		return EffortDecrease{Amount: round2(*previous.Effort - *current.Effort)}
	}

	var effortChange float64
	if current.Effort != nil && previous.Effort != nil {
		effortChange = round2(*current.Effort - *previous.Effort)
	}
	if sameLoad && math.Abs(effortChange) <= matchedEffortTolerance {
		return Matched{EffortChange: effortChange}
	}

	if less(cw, pw) || cr < pr {
		reg := Regressed{}
		if less(cw, pw) {
			reg.WeightChange = round2(cw - pw)
		}
		if cr < pr {
			reg.RepChange = cr - pr
		}
		return reg
	}

	return Matched{EffortChange: effortChange}
}

const epsilon = 1e-9

func same(a, b float64) bool    { return math.Abs(a-b) < epsilon }
func greater(a, b float64) bool { return a-b >= epsilon }
func less(a, b float64) bool    { return b-a >= epsilon }

func round2(v float64) float64 { return math.Round(v*100) / 100 }
