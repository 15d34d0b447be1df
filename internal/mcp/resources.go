package mcp

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/movementmemory/internal/progression"
)

// OverviewEntry is the compact per-exercise view used for periodization.
type OverviewEntry struct {
	ExerciseID       string                      `json:"exercise_id"`
	Trend            *progression.Trend          `json:"trend,omitempty"`
	Confidence       progression.ConfidenceLevel `json:"confidence_level"`
	ExposureCount    int                         `json:"exposure_count"`
	DaysSinceLast    *int                        `json:"days_since_last,omitempty"`
	BestEstimatedMax *float64                    `json:"best_estimated_max,omitempty"`
}

// Overview flattens memories into entries sorted by exercise.
func Overview(mems []progression.MovementMemory) []OverviewEntry {
	out := make([]OverviewEntry, 0, len(mems))
	for _, m := range mems {
		e := OverviewEntry{
			ExerciseID:    m.ExerciseID,
			Trend:         m.Trend,
			Confidence:    m.Confidence,
			ExposureCount: m.ExposureCount,
			DaysSinceLast: m.DaysSinceLast,
		}
		if m.Records.EstimatedMax != nil {
			v := m.Records.EstimatedMax.Value
			e.BestEstimatedMax = &v
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExerciseID < out[j].ExerciseID })
	return out
}

func (h *handlers) memoryOverview(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	mems, err := h.ds.Memories(ctx, UserIDFromContext(ctx))
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(Overview(mems))
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
