package progression

import "math"

// EstimateMax converts a set into an estimated one-repetition maximum using
// weight × (1 + reps/30), rounded. A single rep is its own estimate. Invalid
// input (non-positive or non-finite) yields 0, which callers treat as no data.
func EstimateMax(weight float64, reps int) float64 {
	if reps <= 0 || !(weight > 0) || math.IsInf(weight, 1) {
		return 0
	}
	if reps == 1 {
		return weight
	}
	raw := weight * (1 + float64(reps)/30)
	est := math.Round(raw)
	// Light loads can round back down onto the lifted weight.
	if est <= weight {
		return raw
	}
	return est
}
