package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/claude/movementmemory/internal/progression"
)

// newTestServer routes requests to handlers keyed by path.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatal(err)
	}
}

var benchKey = progression.Key{UserID: 1, ExerciseID: "bench-press-barbell"}

func TestClientMemory(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/exercises/bench-press-barbell/memory": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, progression.MovementMemory{UserID: 1, ExerciseID: "bench-press-barbell", ExposureCount: 6})
		},
	})
	defer ts.Close()

	mem, err := NewHTTPClient(ts.URL).Memory(context.Background(), benchKey)
	if err != nil {
		t.Fatal(err)
	}
	if mem == nil || mem.ExposureCount != 6 {
		t.Errorf("memory = %+v, want 6 exposures", mem)
	}
}

// TestClientNoData verifies the no_data answer maps to a nil result.
func TestClientNoData(t *testing.T) {
	noData := func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(t, w, map[string]string{"status": "no_data"})
	}
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/exercises/bench-press-barbell/memory":     noData,
		"/api/v1/exercises/bench-press-barbell/suggestion": noData,
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	mem, err := client.Memory(context.Background(), benchKey)
	if err != nil || mem != nil {
		t.Errorf("Memory = %v, %v; want nil, nil", mem, err)
	}
	sug, err := client.Suggestion(context.Background(), benchKey, nil)
	if err != nil || sug != nil {
		t.Errorf("Suggestion = %v, %v; want nil, nil", sug, err)
	}
}

func TestClientSuggestionParams(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/exercises/bench-press-barbell/suggestion": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("context"); got != "push day" {
				t.Errorf("context=%q, want push day", got)
			}
			if got := r.URL.Query().Get("date"); got != "2026-03-10T00:00:00Z" {
				t.Errorf("date=%q", got)
			}
			w8 := 195.0
			writeTestJSON(t, w, progression.NextTimeSuggestion{
				ExerciseID:  "bench-press-barbell",
				Recommended: progression.Prescription{Weight: &w8, TargetEffort: 8},
			})
		},
	})
	defer ts.Close()

	sc := &progression.SessionContext{Tag: "push day", Date: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)}
	sug, err := NewHTTPClient(ts.URL).Suggestion(context.Background(), benchKey, sc)
	if err != nil {
		t.Fatal(err)
	}
	if sug.Recommended.Weight == nil || *sug.Recommended.Weight != 195 {
		t.Errorf("recommended = %+v, want 195", sug.Recommended)
	}
}

func TestClientMemories(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/memory": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, []progression.MovementMemory{
				{ExerciseID: "squat-barbell"},
				{ExerciseID: "bench-press-barbell"},
			})
		},
	})
	defer ts.Close()

	mems, err := NewHTTPClient(ts.URL).Memories(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(mems) != 2 {
		t.Errorf("got %d memories, want 2", len(mems))
	}
}

// TestClientErrorStatus verifies non-200 answers surface as errors with the body.
func TestClientErrorStatus(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/memory": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		},
	})
	defer ts.Close()

	_, err := NewHTTPClient(ts.URL).Memories(context.Background(), 1)
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Errorf("err = %v, want 503", err)
	}
}
