// Package ingest holds what every import source shares: the result shape and
// the import log entry written after each run.
package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/claude/movementmemory/internal/storage"
)

// Result holds the outcome of an ingest operation.
type Result struct {
	SessionsReceived    int      `json:"sessions_received"`
	SetsReceived        int      `json:"sets_received"`
	SetsInserted        int64    `json:"sets_inserted"`
	ExercisesTouched    []string `json:"exercises_touched,omitempty"`
	ExercisesRecomputed int      `json:"exercises_recomputed"`

	Message string `json:"message,omitempty"`
}

// LogStore persists import log entries.
type LogStore interface {
	InsertImportLog(ctx context.Context, log storage.ImportLog) (int64, error)
}

// Record writes the import log entry for one run. Failures are logged and
// never fail the import itself.
func Record(store LogStore, log *slog.Logger, userID int, source string, result *Result, importErr error, elapsed time.Duration, meta map[string]any) {
	entry := storage.ImportLog{
		UserID: userID,
		Source: source,
		Status: storage.ImportSuccess,
	}
	if result != nil {
		entry.SessionsReceived = result.SessionsReceived
		entry.SetsReceived = result.SetsReceived
		entry.SetsInserted = result.SetsInserted
		entry.ExercisesRecomputed = result.ExercisesRecomputed
	}
	if importErr != nil {
		entry.Status = storage.ImportError
		msg := importErr.Error()
		entry.ErrorMessage = &msg
	}
	ms := int(elapsed.Milliseconds())
	entry.DurationMs = &ms
	if len(meta) > 0 {
		if raw, err := json.Marshal(meta); err == nil {
			msg := json.RawMessage(raw)
			entry.Metadata = &msg
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := store.InsertImportLog(ctx, entry); err != nil {
		log.Error("failed to log import", "source", source, "error", err)
	}
}
