package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/movementmemory/internal/engine"
	"github.com/claude/movementmemory/internal/models"
	"github.com/claude/movementmemory/internal/observability"
	"github.com/claude/movementmemory/internal/progression"
	"github.com/claude/movementmemory/internal/storage"
)

func TestUserIDFromContextDefault(t *testing.T) {
	if id := UserIDFromContext(context.Background()); id != 1 {
		t.Errorf("UserIDFromContext(empty) = %d, want 1", id)
	}
}

func TestUserIDFromContextSet(t *testing.T) {
	ctx := WithUserID(context.Background(), 42)
	if id := UserIDFromContext(ctx); id != 42 {
		t.Errorf("UserIDFromContext = %d, want 42", id)
	}
}

var day0 = time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)

// newTestHandlers logs 185 × 5 then 190 × 5 a week apart for user 1.
func newTestHandlers(t *testing.T) *handlers {
	t.Helper()
	now := day0
	svc := engine.NewService(storage.NewInMemoryStore(), engine.Config{
		Now: func() time.Time { return now },
	}, observability.NewTestMetrics(), slog.New(slog.DiscardHandler))

	for i, w := range []float64{185, 190} {
		weight, reps, effort := w, 5, 8.0
		now = day0.AddDate(0, 0, 7*i)
		_, err := svc.LogSet(context.Background(), models.SetRecord{
			UserID:      1,
			ExerciseID:  "bench-press-barbell",
			SessionDate: now,
			SetOrder:    1,
			Weight:      &weight,
			Reps:        &reps,
			Effort:      &effort,
		})
		if err != nil {
			t.Fatalf("log set: %v", err)
		}
	}
	return &handlers{ds: svc, log: slog.New(slog.DiscardHandler)}
}

func callTool(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content = %T, want text", res.Content[0])
	}
	return text.Text
}

func TestGetNextSuggestionTool(t *testing.T) {
	h := newTestHandlers(t)

	res, err := h.getNextSuggestion(context.Background(), callTool(map[string]any{"exercise": "Bench Press Barbell"}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	var sug progression.NextTimeSuggestion
	if err := json.Unmarshal([]byte(resultText(t, res)), &sug); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sug.Recommended.Weight == nil || *sug.Recommended.Weight != 195 {
		t.Errorf("recommended = %+v, want 195", sug.Recommended)
	}
}

func TestToolsWithoutHistory(t *testing.T) {
	h := newTestHandlers(t)
	ctx := WithUserID(context.Background(), 2)

	res, err := h.getMovementMemory(ctx, callTool(map[string]any{"exercise": "bench-press-barbell"}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError || !strings.Contains(resultText(t, res), "No training history") {
		t.Errorf("result = %+v", res)
	}

	res, err = h.getMovementMemory(ctx, callTool(map[string]any{}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("missing exercise should be a tool error")
	}
}

func TestGetCoachContextTool(t *testing.T) {
	h := newTestHandlers(t)

	res, err := h.getCoachContext(context.Background(), callTool(map[string]any{"exercise": "bench-press-barbell"}))
	if err != nil {
		t.Fatal(err)
	}
	text := resultText(t, res)
	for _, want := range []string{
		"Exercise: bench-press-barbell",
		"Last session: 190 × 5 at effort 8 on 2026-03-09",
		"Trend: progressing",
		"Exposures: 2",
		"Next time: 195 × 5 at effort 8",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("coach context missing %q:\n%s", want, text)
		}
	}
}

func TestListMovementMemoriesTool(t *testing.T) {
	h := newTestHandlers(t)

	res, err := h.listMovementMemories(context.Background(), callTool(nil))
	if err != nil {
		t.Fatal(err)
	}
	var entries []OverviewEntry
	if err := json.Unmarshal([]byte(resultText(t, res)), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || entries[0].ExposureCount != 2 {
		t.Errorf("entries = %+v", entries)
	}
}

func TestMemoryOverviewResource(t *testing.T) {
	h := newTestHandlers(t)

	var req mcp.ReadResourceRequest
	req.Params.URI = "movemem://memory_overview"
	contents, err := h.memoryOverview(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	text, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("contents = %T", contents[0])
	}
	if !strings.Contains(text.Text, `"exercise_id":"bench-press-barbell"`) {
		t.Errorf("overview = %s", text.Text)
	}
}

func TestParseFlexTime(t *testing.T) {
	if got, err := parseFlexTime("2024-06-15T10:30:00Z"); err != nil || got.Hour() != 10 {
		t.Errorf("RFC3339 = %v, %v", got, err)
	}
	if got, err := parseFlexTime("2024-01-31"); err != nil || got.Day() != 31 {
		t.Errorf("date = %v, %v", got, err)
	}
	if _, err := parseFlexTime("not-a-date"); err == nil {
		t.Error("expected error for invalid date")
	}
}

func TestNewRegistersTools(t *testing.T) {
	s := New(newTestHandlers(t).ds, "test", slog.New(slog.DiscardHandler))
	tools := s.ListTools()
	for _, name := range []string{"get_movement_memory", "get_next_suggestion", "list_movement_memories", "get_coach_context"} {
		if _, ok := tools[name]; !ok {
			t.Errorf("tool %s not registered", name)
		}
	}
}
