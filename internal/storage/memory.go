package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/claude/movementmemory/internal/observability"
	"github.com/claude/movementmemory/internal/progression"
)

// memoryColumns are the denormalized fields stored next to the JSON snapshot
// so that overviews can be filtered without decoding it.
func memoryColumns(mem *progression.MovementMemory) (trend *string, confidence string) {
	if mem.Trend != nil {
		t := mem.Trend.String()
		trend = &t
	}
	return trend, mem.Confidence.String()
}

// GetMemory loads the stored snapshot of a key.
func (db *DB) GetMemory(ctx context.Context, key progression.Key) (_ *progression.MovementMemory, err error) {
	ctx, span := observability.Tracer.Start(ctx, "storage.postgres.get_memory")
	defer func() { observability.EndSpan(span, err) }()

	var raw []byte
	err = db.Pool.QueryRow(ctx,
		`SELECT snapshot FROM movement_memory WHERE user_id = $1 AND exercise_id = $2`,
		key.UserID, key.ExerciseID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMemoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying memory %s: %w", key, err)
	}
	var mem progression.MovementMemory
	if err := json.Unmarshal(raw, &mem); err != nil {
		return nil, fmt.Errorf("decoding memory %s: %w", key, err)
	}
	return &mem, nil
}

// PutMemory upserts a snapshot. The last write wins.
func (db *DB) PutMemory(ctx context.Context, mem *progression.MovementMemory) (err error) {
	ctx, span := observability.Tracer.Start(ctx, "storage.postgres.put_memory")
	defer func() { observability.EndSpan(span, err) }()

	raw, err := json.Marshal(mem)
	if err != nil {
		return fmt.Errorf("encoding memory %s: %w", mem.Key(), err)
	}
	trend, confidence := memoryColumns(mem)
	_, err = db.Pool.Exec(ctx, `
		INSERT INTO movement_memory (user_id, exercise_id, trend, confidence, exposure_count, snapshot, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, exercise_id) DO UPDATE SET
			trend = EXCLUDED.trend, confidence = EXCLUDED.confidence,
			exposure_count = EXCLUDED.exposure_count, snapshot = EXCLUDED.snapshot,
			computed_at = EXCLUDED.computed_at`,
		mem.UserID, mem.ExerciseID, trend, confidence, mem.ExposureCount, raw, mem.ComputedAt)
	if err != nil {
		return fmt.Errorf("storing memory %s: %w", mem.Key(), err)
	}
	return nil
}

// ListMemories returns every memory of a user ordered by exercise.
func (db *DB) ListMemories(ctx context.Context, userID int) ([]progression.MovementMemory, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT snapshot FROM movement_memory WHERE user_id = $1 ORDER BY exercise_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying memories: %w", err)
	}
	defer rows.Close()

	var result []progression.MovementMemory
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning memory: %w", err)
		}
		var mem progression.MovementMemory
		if err := json.Unmarshal(raw, &mem); err != nil {
			return nil, fmt.Errorf("decoding memory: %w", err)
		}
		result = append(result, mem)
	}
	return result, rows.Err()
}

// ListMemoryKeys returns the key of every stored memory.
func (db *DB) ListMemoryKeys(ctx context.Context) ([]progression.Key, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT user_id, exercise_id FROM movement_memory ORDER BY user_id, exercise_id`)
	if err != nil {
		return nil, fmt.Errorf("querying memory keys: %w", err)
	}
	keys, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (progression.Key, error) {
		var k progression.Key
		err := row.Scan(&k.UserID, &k.ExerciseID)
		return k, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning memory keys: %w", err)
	}
	return keys, nil
}
