package alpha

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/claude/movementmemory/internal/engine"
	"github.com/claude/movementmemory/internal/observability"
	"github.com/claude/movementmemory/internal/progression"
	"github.com/claude/movementmemory/internal/storage"
)

func newTestProvider(t *testing.T) (*Provider, *storage.InMemoryStore, *engine.Service) {
	t.Helper()
	store := storage.NewInMemoryStore()
	log := slog.New(slog.DiscardHandler)
	svc := engine.NewService(store, engine.Config{}, observability.NewTestMetrics(), log)
	return NewProvider(store, svc, log), store, svc
}

// TestIngestBuildsMemories imports the sample export and checks the memories it produces.
func TestIngestBuildsMemories(t *testing.T) {
	p, store, svc := newTestProvider(t)
	ctx := context.Background()

	result, err := p.Ingest(ctx, strings.NewReader(sampleCSV), 1)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if result.SessionsReceived != 2 {
		t.Errorf("SessionsReceived = %d, want 2", result.SessionsReceived)
	}
	if result.SetsInserted != 28 {
		t.Errorf("SetsInserted = %d, want 28", result.SetsInserted)
	}
	if result.ExercisesRecomputed != 7 {
		t.Errorf("ExercisesRecomputed = %d, want 7", result.ExercisesRecomputed)
	}

	mem, err := svc.Memory(ctx, progression.Key{UserID: 1, ExerciseID: "bench-press-barbell"})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if mem == nil {
		t.Fatal("no bench press memory")
	}
	if mem.ExposureCount != 1 {
		t.Errorf("ExposureCount = %d, want 1", mem.ExposureCount)
	}
	if mem.Records.Weight == nil || mem.Records.Weight.Value != 102.5 {
		t.Errorf("weight PR = %+v, want 102.5", mem.Records.Weight)
	}

	logs, err := store.QueryImportLogs(ctx, 1, 10)
	if err != nil {
		t.Fatalf("import logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Status != storage.ImportSuccess || logs[0].Source != Source {
		t.Errorf("import logs = %+v", logs)
	}
}

// TestIngestReplacesSessions re-imports a session with fewer exercises.
func TestIngestReplacesSessions(t *testing.T) {
	p, store, svc := newTestProvider(t)
	ctx := context.Background()

	if _, err := p.Ingest(ctx, strings.NewReader(sampleCSV), 1); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	again, err := p.Ingest(ctx, strings.NewReader(sampleCSV), 1)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if again.SetsInserted != 28 {
		t.Errorf("SetsInserted = %d, want 28", again.SetsInserted)
	}
	history, err := store.ExerciseHistory(ctx, progression.Key{UserID: 1, ExerciseID: "bench-press-barbell"})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 6 {
		t.Errorf("bench sets after re-import = %d, want 6", len(history))
	}

	// The push session now only contains an overhead press.
	edited := `"Push · Day 1 · Week 4 · Push-Pull-Legs";"2026-02-17 5:04 h";"1:12 hr"
"1. Overhead Press · Barbell · 8 reps"
#;KG;REPS;RIR
1;50;8;2
`
	result, err := p.Ingest(ctx, strings.NewReader(edited), 1)
	if err != nil {
		t.Fatalf("edited ingest: %v", err)
	}
	if strings.Join(result.ExercisesTouched, ",") != "bench-press-barbell,overhead-press-barbell" {
		t.Errorf("ExercisesTouched = %v", result.ExercisesTouched)
	}

	mem, err := svc.Memory(ctx, progression.Key{UserID: 1, ExerciseID: "bench-press-barbell"})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if mem == nil || mem.ExposureCount != 0 || mem.Records.Weight == nil {
		t.Errorf("bench memory = %+v, want retired with records", mem)
	}
}

func TestIngestParseErrorIsLogged(t *testing.T) {
	p, store, _ := newTestProvider(t)
	ctx := context.Background()

	_, err := p.Ingest(ctx, strings.NewReader(`"1. Bench Press · Barbell · 6 reps"`), 1)
	if err == nil {
		t.Fatal("expected error")
	}

	logs, err := store.QueryImportLogs(ctx, 1, 10)
	if err != nil {
		t.Fatalf("import logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Status != storage.ImportError || logs[0].ErrorMessage == nil {
		t.Errorf("import logs = %+v", logs)
	}
}

type failingRecomputer struct{}

func (failingRecomputer) RecomputeMany(context.Context, []progression.Key) (int, error) {
	return 0, errors.New("store unavailable")
}

func TestIngestRecomputeFailure(t *testing.T) {
	store := storage.NewInMemoryStore()
	p := NewProvider(store, failingRecomputer{}, slog.New(slog.DiscardHandler))

	result, err := p.Ingest(context.Background(), strings.NewReader(sampleCSV), 1)
	if err == nil {
		t.Fatal("expected error")
	}
	if result == nil || result.SetsInserted != 28 {
		t.Errorf("result = %+v, want the stored sets counted", result)
	}
}
