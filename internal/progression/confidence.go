package progression

import (
	"fmt"
	"math"
)

// ConfidenceLevel buckets how much history backs a judgment.
type ConfidenceLevel int

const (
	ConfidenceLow ConfidenceLevel = iota
	ConfidenceMedium
	ConfidenceHigh
)

const (
	highConfidencePoints   = 70
	mediumConfidencePoints = 40
)

// NoDispersionEvidence is the consistency value used when there are too few
// exposures to measure dispersion. It scores zero consistency points.
const NoDispersionEvidence = 10.0

var confidenceNames = map[ConfidenceLevel]string{
	ConfidenceLow:    "low",
	ConfidenceMedium: "medium",
	ConfidenceHigh:   "high",
}

func (c ConfidenceLevel) String() string {
	if name, ok := confidenceNames[c]; ok {
		return name
	}
	return fmt.Sprintf("confidence(%d)", int(c))
}

func (c ConfidenceLevel) MarshalText() ([]byte, error) {
	if _, ok := confidenceNames[c]; !ok {
		return nil, fmt.Errorf("unknown confidence level %d", int(c))
	}
	return []byte(c.String()), nil
}

func (c *ConfidenceLevel) UnmarshalText(b []byte) error {
	for k, v := range confidenceNames {
		if v == string(b) {
			*c = k
			return nil
		}
	}
	return fmt.Errorf("unknown confidence level %q", b)
}

// ConfidenceFactors are the longitudinal signals behind a confidence level.
// Consistency is a dispersion measure: lower means steadier loads.
type ConfidenceFactors struct {
	ExposureCount        int     `json:"exposure_count"`
	RecencyDays          float64 `json:"recency_days"`
	Consistency          float64 `json:"consistency"`
	EffortReportingRatio float64 `json:"effort_reporting_ratio"`
}

// ConfidencePoints scores factors out of 100. Only the effort-reporting term
// is rounded; the consistency term stays fractional so totals near a bucket
// boundary are not pushed across it. Negative inputs clamp to zero and NaN
// inputs score no points.
func ConfidencePoints(f ConfidenceFactors) float64 {
	var points float64

	switch n := max(f.ExposureCount, 0); {
	case n >= 5:
		points += 40
	case n >= 3:
		points += 25
	default:
		points += float64(n * 5)
	}

	if !math.IsNaN(f.RecencyDays) {
		switch days := math.Max(f.RecencyDays, 0); {
		case days <= 7:
			points += 25
		case days <= 14:
			points += 15
		case days <= 28:
			points += 5
		}
	}

	if !math.IsNaN(f.Consistency) {
		c := math.Max(f.Consistency, 0)
		points += math.Max(0, 20-c*2)
	}

	if !math.IsNaN(f.EffortReportingRatio) {
		ratio := math.Min(math.Max(f.EffortReportingRatio, 0), 1)
		points += math.Round(ratio * 15)
	}

	return points
}

// ScoreConfidence buckets the factors: >=70 high, >=40 medium, else low.
func ScoreConfidence(f ConfidenceFactors) ConfidenceLevel {
	switch p := ConfidencePoints(f); {
	case p >= highConfidencePoints:
		return ConfidenceHigh
	case p >= mediumConfidencePoints:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// DispersionMetric turns recent per-session loads into a consistency value.
type DispersionMetric func(loads []float64) float64

// CoefficientOfVariation returns the population standard deviation of loads as
// a percentage of their mean. Fewer than two loads, or a zero mean, yield
// NoDispersionEvidence.
func CoefficientOfVariation(loads []float64) float64 {
	if len(loads) < 2 {
		return NoDispersionEvidence
	}
	var sum float64
	for _, v := range loads {
		sum += v
	}
	mean := sum / float64(len(loads))
	if mean <= 0 {
		return NoDispersionEvidence
	}
	var sq float64
	for _, v := range loads {
		sq += (v - mean) * (v - mean)
	}
	sd := math.Sqrt(sq / float64(len(loads)))
	return round2(sd / mean * 100)
}
