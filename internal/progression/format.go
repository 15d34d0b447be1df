package progression

import (
	"fmt"
	"strconv"
)

// formatNumber renders loads and deltas without trailing zeros: 2.5, 190, 8.1.
func formatNumber(v float64) string {
	return strconv.FormatFloat(round2(v), 'f', -1, 64)
}

func formatSigned(v float64) string {
	if v > 0 {
		return "+" + formatNumber(v)
	}
	return formatNumber(v)
}

// FormatSet renders a prescription or performance as "190 × 5".
// Bodyweight sets read "bodyweight × 12"; sets without reps show the load alone.
func FormatSet(weight *float64, reps *int) string {
	switch {
	case weight != nil && reps != nil:
		return fmt.Sprintf("%s × %d", formatNumber(*weight), *reps)
	case reps != nil:
		return fmt.Sprintf("bodyweight × %d", *reps)
	case weight != nil:
		return formatNumber(*weight)
	default:
		return "no load"
	}
}
