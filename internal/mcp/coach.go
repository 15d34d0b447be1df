package mcp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/claude/movementmemory/internal/progression"
)

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CoachContext renders a memory and its suggestion as the plain-text block a
// coaching prompt is grounded in. sug may be nil for a retired memory.
func CoachContext(mem *progression.MovementMemory, sug *progression.NextTimeSuggestion) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Exercise: %s\n", mem.ExerciseID)

	if last := mem.LastPerformance; last != nil {
		fmt.Fprintf(&b, "Last session: %s", progression.FormatSet(last.Weight, last.Reps))
		if last.Effort != nil {
			fmt.Fprintf(&b, " at effort %s", num(*last.Effort))
		}
		fmt.Fprintf(&b, " on %s", last.Date.Format("2006-01-02"))
		if last.Context != "" {
			fmt.Fprintf(&b, " (%s)", last.Context)
		}
		b.WriteByte('\n')
	} else {
		b.WriteString("Last session: none on record\n")
	}

	trend := "not established"
	if mem.Trend != nil {
		trend = mem.Trend.String()
	}
	fmt.Fprintf(&b, "Trend: %s, confidence %s\n", trend, mem.Confidence)
	fmt.Fprintf(&b, "Exposures: %d", mem.ExposureCount)
	if mem.DaysSinceLast != nil {
		fmt.Fprintf(&b, ", last trained %d days ago", *mem.DaysSinceLast)
	}
	b.WriteByte('\n')
	if mem.TypicalRepRange != nil {
		fmt.Fprintf(&b, "Typical reps: %d-%d\n", mem.TypicalRepRange.Min, mem.TypicalRepRange.Max)
	}

	var records []string
	if r := mem.Records.Weight; r != nil {
		records = append(records, "weight "+progression.FormatSet(&r.Value, r.Reps))
	}
	if r := mem.Records.Reps; r != nil {
		records = append(records, fmt.Sprintf("reps %d", r.Value))
	}
	if r := mem.Records.EstimatedMax; r != nil {
		records = append(records, "estimated max "+num(r.Value))
	}
	if r := mem.Records.Volume; r != nil {
		records = append(records, "set volume "+num(r.Value))
	}
	if len(records) > 0 {
		fmt.Fprintf(&b, "Records: %s\n", strings.Join(records, ", "))
	}

	if sug == nil {
		return b.String()
	}
	rec := sug.Recommended
	fmt.Fprintf(&b, "Next time: %s at effort %s\n", progression.FormatSet(rec.Weight, rec.Reps), num(rec.TargetEffort))
	fmt.Fprintf(&b, "Reasoning: %s\n", sug.Reasoning)
	if sug.ConsiderVariation {
		b.WriteString("Consider a variation of this movement.\n")
	}
	if len(sug.Alerts) > 0 {
		b.WriteString("Alerts:\n")
		for _, a := range sug.Alerts {
			fmt.Fprintf(&b, "- %s: %s %s\n", a.Type, a.Message, a.SuggestedAction)
		}
	}
	return b.String()
}
