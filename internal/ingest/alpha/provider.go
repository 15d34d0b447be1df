// Package alpha imports Alpha Progression CSV exports.
package alpha

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/claude/movementmemory/internal/ingest"
	"github.com/claude/movementmemory/internal/models"
	"github.com/claude/movementmemory/internal/progression"
)

// Source is the import log source name.
const Source = "alpha_progression"

// SetStore replaces the stored sets of one session.
type SetStore interface {
	ingest.LogStore
	ReplaceSessionSets(ctx context.Context, userID int, sessionID string, sets []models.SetRecord) (int64, []string, error)
}

// Recomputer brings the memories of touched exercises up to date.
type Recomputer interface {
	RecomputeMany(ctx context.Context, keys []progression.Key) (int, error)
}

// Provider processes Alpha Progression CSV exports.
type Provider struct {
	store  SetStore
	engine Recomputer
	log    *slog.Logger
}

func NewProvider(store SetStore, engine Recomputer, log *slog.Logger) *Provider {
	return &Provider{store: store, engine: engine, log: log}
}

// Ingest parses an export, replaces every session it contains and recomputes
// each exercise the import touched, including exercises that lost sets.
func (p *Provider) Ingest(ctx context.Context, r io.Reader, userID int) (result *ingest.Result, err error) {
	start := time.Now()
	defer func() {
		ingest.Record(p.store, p.log, userID, Source, result, err, time.Since(start), nil)
	}()

	sessions, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}

	result = &ingest.Result{SessionsReceived: len(sessions)}
	touched := map[string]bool{}
	for _, s := range Convert(sessions, userID) {
		inserted, exercises, err := p.store.ReplaceSessionSets(ctx, userID, s.SessionID, s.Sets)
		if err != nil {
			return result, fmt.Errorf("replacing session %s: %w", s.Date.Format("2006-01-02"), err)
		}
		result.SetsReceived += len(s.Sets)
		result.SetsInserted += inserted
		for _, id := range exercises {
			touched[id] = true
		}
	}

	keys := make([]progression.Key, 0, len(touched))
	for id := range touched {
		result.ExercisesTouched = append(result.ExercisesTouched, id)
	}
	slices.Sort(result.ExercisesTouched)
	for _, id := range result.ExercisesTouched {
		keys = append(keys, progression.Key{UserID: userID, ExerciseID: id})
	}

	n, err := p.engine.RecomputeMany(ctx, keys)
	if err != nil {
		return result, fmt.Errorf("recomputing memories: %w", err)
	}
	result.ExercisesRecomputed = n

	p.log.Info("alpha import complete",
		"user_id", userID,
		"sessions", result.SessionsReceived,
		"sets", result.SetsInserted,
		"exercises", n,
	)
	return result, nil
}
