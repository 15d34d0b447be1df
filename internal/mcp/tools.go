package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/movementmemory/internal/models"
	"github.com/claude/movementmemory/internal/progression"
)

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// exerciseKey accepts either an exercise ID or a display name
// ("Bench Press Barbell") and scopes it to the caller.
func exerciseKey(ctx context.Context, req mcp.CallToolRequest) (progression.Key, error) {
	raw, err := req.RequireString("exercise")
	if err != nil {
		return progression.Key{}, err
	}
	id := models.ExerciseSlug(raw)
	if id == "" {
		return progression.Key{}, fmt.Errorf("exercise %q has no usable characters", raw)
	}
	return progression.Key{UserID: UserIDFromContext(ctx), ExerciseID: id}, nil
}

func sessionContext(req mcp.CallToolRequest) (*progression.SessionContext, error) {
	tag := req.GetString("context", "")
	date := req.GetString("date", "")
	if tag == "" && date == "" {
		return nil, nil
	}
	sc := &progression.SessionContext{Tag: tag}
	if date != "" {
		t, err := parseFlexTime(date)
		if err != nil {
			return nil, err
		}
		sc.Date = t
	}
	return sc, nil
}

func noHistory(key progression.Key) *mcp.CallToolResult {
	return mcp.NewToolResultText(fmt.Sprintf("No training history for %s yet. Log a working set to start tracking it.", key.ExerciseID))
}

// --- Tool definitions ---

var toolGetMovementMemory = mcp.NewTool("get_movement_memory",
	mcp.WithDescription("Full training summary of one exercise: last performance, exposure count, lifetime volume, average effort, typical rep range, personal records, trend, recent session outcomes and confidence."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise ID or name (e.g. 'bench-press-barbell' or 'Bench Press Barbell')")),
)

var toolGetNextSuggestion = mcp.NewTool("get_next_suggestion",
	mcp.WithDescription("Recommended weight, reps and target effort for the next session of an exercise, with reasoning and alerts (missed sessions, regression, plateau)."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise ID or name")),
	mcp.WithString("context", mcp.Description("Workout context of the planned session (e.g. 'push day', 'deload')")),
	mcp.WithString("date", mcp.Description("Planned session date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
)

var toolListMovementMemories = mcp.NewTool("list_movement_memories",
	mcp.WithDescription("Every tracked exercise with its trend, confidence, exposure count and days since last trained. Use it to spot stagnating or neglected movements."),
)

var toolGetCoachContext = mcp.NewTool("get_coach_context",
	mcp.WithDescription("Plain-text briefing for one exercise combining its memory and next-session suggestion. Ground coaching advice in this text."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise ID or name")),
	mcp.WithString("context", mcp.Description("Workout context of the planned session")),
)

// --- Tool handlers ---

func (h *handlers) getMovementMemory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := exerciseKey(ctx, req)
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}

	mem, err := h.ds.Memory(ctx, key)
	if err != nil {
		h.log.Error("mcp get_movement_memory", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if mem == nil {
		return noHistory(key), nil
	}

	result, err := mcp.NewToolResultJSON(mem)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getNextSuggestion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := exerciseKey(ctx, req)
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}
	sc, err := sessionContext(req)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	sug, err := h.ds.Suggestion(ctx, key, sc)
	if err != nil {
		h.log.Error("mcp get_next_suggestion", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if sug == nil {
		return noHistory(key), nil
	}

	result, err := mcp.NewToolResultJSON(sug)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) listMovementMemories(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mems, err := h.ds.Memories(ctx, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp list_movement_memories", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(Overview(mems))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getCoachContext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := exerciseKey(ctx, req)
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}
	sc, err := sessionContext(req)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	mem, err := h.ds.Memory(ctx, key)
	if err != nil {
		h.log.Error("mcp get_coach_context", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if mem == nil {
		return noHistory(key), nil
	}
	sug, err := h.ds.Suggestion(ctx, key, sc)
	if err != nil {
		h.log.Error("mcp get_coach_context", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	return mcp.NewToolResultText(CoachContext(mem, sug)), nil
}
