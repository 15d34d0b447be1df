package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/claude/movementmemory/internal/models"
	"github.com/claude/movementmemory/internal/observability"
	"github.com/claude/movementmemory/internal/progression"
)

const setColumns = `id, user_id, exercise_id, session_id, session_date, session_context,
	set_order, weight, reps, effort, is_warmup, logged_at`

const setColumnCount = 12

func setArgs(s models.SetRecord) []any {
	return []any{s.ID, s.UserID, s.ExerciseID, s.SessionID, s.SessionDate, s.SessionContext,
		s.SetOrder, s.Weight, s.Reps, s.Effort, s.IsWarmup, s.LoggedAt}
}

func scanSet(row pgx.Row) (models.SetRecord, error) {
	var s models.SetRecord
	err := row.Scan(&s.ID, &s.UserID, &s.ExerciseID, &s.SessionID, &s.SessionDate, &s.SessionContext,
		&s.SetOrder, &s.Weight, &s.Reps, &s.Effort, &s.IsWarmup, &s.LoggedAt)
	s.SessionDate = s.SessionDate.UTC()
	s.LoggedAt = s.LoggedAt.UTC()
	return s, err
}

func collectSets(rows pgx.Rows) ([]models.SetRecord, error) {
	defer rows.Close()
	var result []models.SetRecord
	for rows.Next() {
		s, err := scanSet(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning set: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// InsertSet stores one logged set.
func (db *DB) InsertSet(ctx context.Context, set models.SetRecord) (err error) {
	ctx, span := observability.Tracer.Start(ctx, "storage.postgres.insert_set")
	defer func() { observability.EndSpan(span, err) }()

	_, err = db.Pool.Exec(ctx,
		`INSERT INTO exercise_sets (`+setColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		setArgs(set)...)
	if err != nil {
		return fmt.Errorf("inserting set: %w", err)
	}
	return nil
}

// UpdateSet overwrites the mutable fields of a stored set.
func (db *DB) UpdateSet(ctx context.Context, set models.SetRecord) (err error) {
	ctx, span := observability.Tracer.Start(ctx, "storage.postgres.update_set")
	defer func() { observability.EndSpan(span, err) }()

	tag, err := db.Pool.Exec(ctx,
		`UPDATE exercise_sets SET exercise_id = $3, session_id = $4, session_date = $5,
		 session_context = $6, set_order = $7, weight = $8, reps = $9, effort = $10,
		 is_warmup = $11, logged_at = $12
		 WHERE id = $1 AND user_id = $2`,
		setArgs(set)...)
	if err != nil {
		return fmt.Errorf("updating set %s: %w", set.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSetNotFound
	}
	return nil
}

// DeleteSet removes a set and returns what was removed.
func (db *DB) DeleteSet(ctx context.Context, userID int, id uuid.UUID) (_ *models.SetRecord, err error) {
	ctx, span := observability.Tracer.Start(ctx, "storage.postgres.delete_set")
	defer func() { observability.EndSpan(span, err) }()

	s, err := scanSet(db.Pool.QueryRow(ctx,
		`DELETE FROM exercise_sets WHERE id = $1 AND user_id = $2 RETURNING `+setColumns, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("deleting set %s: %w", id, err)
	}
	return &s, nil
}

func (db *DB) GetSet(ctx context.Context, userID int, id uuid.UUID) (*models.SetRecord, error) {
	s, err := scanSet(db.Pool.QueryRow(ctx,
		`SELECT `+setColumns+` FROM exercise_sets WHERE id = $1 AND user_id = $2`, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying set %s: %w", id, err)
	}
	return &s, nil
}

// ExerciseHistory returns the full set history of one user's exercise.
func (db *DB) ExerciseHistory(ctx context.Context, key progression.Key) (_ []models.SetRecord, err error) {
	ctx, span := observability.Tracer.Start(ctx, "storage.postgres.exercise_history")
	defer func() { observability.EndSpan(span, err) }()

	rows, err := db.Pool.Query(ctx,
		`SELECT `+setColumns+` FROM exercise_sets
		 WHERE user_id = $1 AND exercise_id = $2
		 ORDER BY session_date, set_order, logged_at`,
		key.UserID, key.ExerciseID)
	if err != nil {
		return nil, fmt.Errorf("querying exercise history: %w", err)
	}
	return collectSets(rows)
}

// QuerySets retrieves the sets of an exercise in a date range.
func (db *DB) QuerySets(ctx context.Context, key progression.Key, start, end time.Time) ([]models.SetRecord, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+setColumns+` FROM exercise_sets
		 WHERE user_id = $1 AND exercise_id = $2 AND session_date >= $3 AND session_date < $4
		 ORDER BY session_date DESC, set_order ASC, logged_at ASC`,
		key.UserID, key.ExerciseID, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying sets: %w", err)
	}
	return collectSets(rows)
}

// ReplaceSessionSets deletes a session's sets and batch-inserts the new ones
// in a single transaction.
func (db *DB) ReplaceSessionSets(ctx context.Context, userID int, sessionID string, sets []models.SetRecord) (_ int64, _ []string, err error) {
	ctx, span := observability.Tracer.Start(ctx, "storage.postgres.replace_session")
	defer func() { observability.EndSpan(span, err) }()

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx,
		`DELETE FROM exercise_sets WHERE user_id = $1 AND session_id = $2 RETURNING exercise_id`,
		userID, sessionID)
	if err != nil {
		return 0, nil, fmt.Errorf("deleting session %s: %w", sessionID, err)
	}
	removed, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return 0, nil, fmt.Errorf("deleting session %s: %w", sessionID, err)
	}

	var inserted int64
	if len(sets) > 0 {
		args := make([]any, 0, len(sets)*setColumnCount)
		valueStrings := make([]string, 0, len(sets))
		for i, s := range sets {
			placeholders := make([]string, setColumnCount)
			for j := range placeholders {
				placeholders[j] = fmt.Sprintf("$%d", i*setColumnCount+j+1)
			}
			valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
			args = append(args, setArgs(s)...)
		}
		tag, err := tx.Exec(ctx,
			`INSERT INTO exercise_sets (`+setColumns+`) VALUES `+strings.Join(valueStrings, ","), args...)
		if err != nil {
			return 0, nil, fmt.Errorf("inserting session sets: %w", err)
		}
		inserted = tag.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, nil, fmt.Errorf("committing session %s: %w", sessionID, err)
	}
	return inserted, exerciseSet(sets, removed), nil
}
