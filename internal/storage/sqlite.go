package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/claude/movementmemory/internal/models"
	"github.com/claude/movementmemory/internal/progression"
)

// LocalDB is a single-file SQLite store for running without a Postgres
// server. Timestamps are stored as Unix nanoseconds.
type LocalDB struct {
	db *sql.DB
}

var localSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		login        TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT ''
	)`,
	`INSERT OR IGNORE INTO users (id, login, display_name) VALUES (1, 'local', 'Local Dev User')`,
	`CREATE TABLE IF NOT EXISTS exercise_sets (
		id              TEXT PRIMARY KEY,
		user_id         INTEGER NOT NULL,
		exercise_id     TEXT NOT NULL,
		session_id      TEXT NOT NULL,
		session_date    INTEGER NOT NULL,
		session_context TEXT NOT NULL DEFAULT '',
		set_order       INTEGER NOT NULL DEFAULT 0,
		weight          REAL,
		reps            INTEGER,
		effort          REAL,
		is_warmup       INTEGER NOT NULL DEFAULT 0,
		logged_at       INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS exercise_sets_history_idx ON exercise_sets (user_id, exercise_id, session_date)`,
	`CREATE INDEX IF NOT EXISTS exercise_sets_session_idx ON exercise_sets (user_id, session_id)`,
	`CREATE TABLE IF NOT EXISTS movement_memory (
		user_id     INTEGER NOT NULL,
		exercise_id TEXT NOT NULL,
		snapshot    TEXT NOT NULL,
		computed_at INTEGER NOT NULL,
		PRIMARY KEY (user_id, exercise_id)
	)`,
	`CREATE TABLE IF NOT EXISTS import_logs (
		id                   INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id              INTEGER NOT NULL,
		created_at           INTEGER NOT NULL,
		source               TEXT NOT NULL,
		status               TEXT NOT NULL,
		sessions_received    INTEGER NOT NULL DEFAULT 0,
		sets_received        INTEGER NOT NULL DEFAULT 0,
		sets_inserted        INTEGER NOT NULL DEFAULT 0,
		exercises_recomputed INTEGER NOT NULL DEFAULT 0,
		duration_ms          INTEGER,
		error_message        TEXT,
		metadata             TEXT
	)`,
}

// OpenLocal opens (or creates) the SQLite database at path.
func OpenLocal(path string) (*LocalDB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening local db: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range localSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating local schema: %w", err)
		}
	}
	return &LocalDB{db: db}, nil
}

func (l *LocalDB) Close() error {
	return l.db.Close()
}

const localSetColumns = `id, user_id, exercise_id, session_id, session_date, session_context,
	set_order, weight, reps, effort, is_warmup, logged_at`

func localSetArgs(s models.SetRecord) []any {
	var weight, effort sql.NullFloat64
	var reps sql.NullInt64
	if s.Weight != nil {
		weight = sql.NullFloat64{Float64: *s.Weight, Valid: true}
	}
	if s.Reps != nil {
		reps = sql.NullInt64{Int64: int64(*s.Reps), Valid: true}
	}
	if s.Effort != nil {
		effort = sql.NullFloat64{Float64: *s.Effort, Valid: true}
	}
	return []any{s.ID.String(), s.UserID, s.ExerciseID, s.SessionID, s.SessionDate.UnixNano(),
		s.SessionContext, s.SetOrder, weight, reps, effort, s.IsWarmup, s.LoggedAt.UnixNano()}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLocalSet(row rowScanner) (models.SetRecord, error) {
	var (
		s               models.SetRecord
		id              string
		sessionDate, at int64
		weight, effort  sql.NullFloat64
		reps            sql.NullInt64
	)
	if err := row.Scan(&id, &s.UserID, &s.ExerciseID, &s.SessionID, &sessionDate, &s.SessionContext,
		&s.SetOrder, &weight, &reps, &effort, &s.IsWarmup, &at); err != nil {
		return s, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return s, fmt.Errorf("parsing set id %q: %w", id, err)
	}
	s.ID = parsed
	s.SessionDate = time.Unix(0, sessionDate).UTC()
	s.LoggedAt = time.Unix(0, at).UTC()
	if weight.Valid {
		s.Weight = &weight.Float64
	}
	if reps.Valid {
		r := int(reps.Int64)
		s.Reps = &r
	}
	if effort.Valid {
		s.Effort = &effort.Float64
	}
	return s, nil
}

func (l *LocalDB) querySets(ctx context.Context, query string, args ...any) ([]models.SetRecord, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []models.SetRecord
	for rows.Next() {
		s, err := scanLocalSet(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning set: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (l *LocalDB) InsertSet(ctx context.Context, set models.SetRecord) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO exercise_sets (`+localSetColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		localSetArgs(set)...)
	if err != nil {
		return fmt.Errorf("inserting set: %w", err)
	}
	return nil
}

func (l *LocalDB) UpdateSet(ctx context.Context, set models.SetRecord) error {
	args := localSetArgs(set)
	res, err := l.db.ExecContext(ctx,
		`UPDATE exercise_sets SET exercise_id = ?, session_id = ?, session_date = ?,
		 session_context = ?, set_order = ?, weight = ?, reps = ?, effort = ?,
		 is_warmup = ?, logged_at = ?
		 WHERE id = ? AND user_id = ?`,
		append(args[2:], args[0], args[1])...)
	if err != nil {
		return fmt.Errorf("updating set %s: %w", set.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSetNotFound
	}
	return nil
}

func (l *LocalDB) DeleteSet(ctx context.Context, userID int, id uuid.UUID) (*models.SetRecord, error) {
	old, err := l.GetSet(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if _, err := l.db.ExecContext(ctx,
		`DELETE FROM exercise_sets WHERE id = ? AND user_id = ?`, id.String(), userID); err != nil {
		return nil, fmt.Errorf("deleting set %s: %w", id, err)
	}
	return old, nil
}

func (l *LocalDB) GetSet(ctx context.Context, userID int, id uuid.UUID) (*models.SetRecord, error) {
	s, err := scanLocalSet(l.db.QueryRowContext(ctx,
		`SELECT `+localSetColumns+` FROM exercise_sets WHERE id = ? AND user_id = ?`, id.String(), userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying set %s: %w", id, err)
	}
	return &s, nil
}

func (l *LocalDB) ExerciseHistory(ctx context.Context, key progression.Key) ([]models.SetRecord, error) {
	sets, err := l.querySets(ctx,
		`SELECT `+localSetColumns+` FROM exercise_sets
		 WHERE user_id = ? AND exercise_id = ?
		 ORDER BY session_date, set_order, logged_at`,
		key.UserID, key.ExerciseID)
	if err != nil {
		return nil, fmt.Errorf("querying exercise history: %w", err)
	}
	return sets, nil
}

func (l *LocalDB) QuerySets(ctx context.Context, key progression.Key, start, end time.Time) ([]models.SetRecord, error) {
	sets, err := l.querySets(ctx,
		`SELECT `+localSetColumns+` FROM exercise_sets
		 WHERE user_id = ? AND exercise_id = ? AND session_date >= ? AND session_date < ?
		 ORDER BY session_date DESC, set_order ASC, logged_at ASC`,
		key.UserID, key.ExerciseID, start.UnixNano(), end.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("querying sets: %w", err)
	}
	return sets, nil
}

func (l *LocalDB) ReplaceSessionSets(ctx context.Context, userID int, sessionID string, sets []models.SetRecord) (int64, []string, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT DISTINCT exercise_id FROM exercise_sets WHERE user_id = ? AND session_id = ?`, userID, sessionID)
	if err != nil {
		return 0, nil, fmt.Errorf("querying session %s: %w", sessionID, err)
	}
	var removed []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, nil, fmt.Errorf("scanning session exercise: %w", err)
		}
		removed = append(removed, id)
	}
	rows.Close()
	sort.Strings(removed)

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM exercise_sets WHERE user_id = ? AND session_id = ?`, userID, sessionID); err != nil {
		return 0, nil, fmt.Errorf("deleting session %s: %w", sessionID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO exercise_sets (`+localSetColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return 0, nil, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, s := range sets {
		if _, err := stmt.ExecContext(ctx, localSetArgs(s)...); err != nil {
			return 0, nil, fmt.Errorf("inserting session sets: %w", err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, nil, fmt.Errorf("committing session %s: %w", sessionID, err)
	}
	return inserted, exerciseSet(sets, removed), nil
}

func (l *LocalDB) GetMemory(ctx context.Context, key progression.Key) (*progression.MovementMemory, error) {
	var raw string
	err := l.db.QueryRowContext(ctx,
		`SELECT snapshot FROM movement_memory WHERE user_id = ? AND exercise_id = ?`,
		key.UserID, key.ExerciseID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMemoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying memory %s: %w", key, err)
	}
	var mem progression.MovementMemory
	if err := json.Unmarshal([]byte(raw), &mem); err != nil {
		return nil, fmt.Errorf("decoding memory %s: %w", key, err)
	}
	return &mem, nil
}

func (l *LocalDB) PutMemory(ctx context.Context, mem *progression.MovementMemory) error {
	raw, err := json.Marshal(mem)
	if err != nil {
		return fmt.Errorf("encoding memory %s: %w", mem.Key(), err)
	}
	_, err = l.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO movement_memory (user_id, exercise_id, snapshot, computed_at) VALUES (?, ?, ?, ?)`,
		mem.UserID, mem.ExerciseID, string(raw), mem.ComputedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("storing memory %s: %w", mem.Key(), err)
	}
	return nil
}

func (l *LocalDB) ListMemories(ctx context.Context, userID int) ([]progression.MovementMemory, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT snapshot FROM movement_memory WHERE user_id = ? ORDER BY exercise_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying memories: %w", err)
	}
	defer rows.Close()

	var result []progression.MovementMemory
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning memory: %w", err)
		}
		var mem progression.MovementMemory
		if err := json.Unmarshal([]byte(raw), &mem); err != nil {
			return nil, fmt.Errorf("decoding memory: %w", err)
		}
		result = append(result, mem)
	}
	return result, rows.Err()
}

func (l *LocalDB) ListMemoryKeys(ctx context.Context) ([]progression.Key, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT user_id, exercise_id FROM movement_memory ORDER BY user_id, exercise_id`)
	if err != nil {
		return nil, fmt.Errorf("querying memory keys: %w", err)
	}
	defer rows.Close()

	var keys []progression.Key
	for rows.Next() {
		var k progression.Key
		if err := rows.Scan(&k.UserID, &k.ExerciseID); err != nil {
			return nil, fmt.Errorf("scanning memory key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (l *LocalDB) GetOrCreateUser(ctx context.Context, login, displayName string) (int, error) {
	if _, err := l.db.ExecContext(ctx,
		`INSERT INTO users (login, display_name) VALUES (?, ?)
		 ON CONFLICT (login) DO UPDATE SET display_name = COALESCE(NULLIF(excluded.display_name, ''), users.display_name)`,
		login, displayName); err != nil {
		return 0, fmt.Errorf("upserting user %s: %w", login, err)
	}
	var id int
	if err := l.db.QueryRowContext(ctx, `SELECT id FROM users WHERE login = ?`, login).Scan(&id); err != nil {
		return 0, fmt.Errorf("querying user %s: %w", login, err)
	}
	return id, nil
}

func (l *LocalDB) InsertImportLog(ctx context.Context, log ImportLog) (int64, error) {
	created := log.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	var metadata sql.NullString
	if log.Metadata != nil {
		metadata = sql.NullString{String: string(*log.Metadata), Valid: true}
	}
	res, err := l.db.ExecContext(ctx,
		`INSERT INTO import_logs (user_id, created_at, source, status, sessions_received, sets_received,
		 sets_inserted, exercises_recomputed, duration_ms, error_message, metadata)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		log.UserID, created.UnixNano(), log.Source, log.Status, log.SessionsReceived, log.SetsReceived,
		log.SetsInserted, log.ExercisesRecomputed, log.DurationMs, log.ErrorMessage, metadata)
	if err != nil {
		return 0, fmt.Errorf("inserting import log: %w", err)
	}
	return res.LastInsertId()
}

func (l *LocalDB) QueryImportLogs(ctx context.Context, userID, limit int) ([]ImportLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, user_id, created_at, source, status, sessions_received, sets_received,
		 sets_inserted, exercises_recomputed, duration_ms, error_message, metadata
		 FROM import_logs WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying import logs: %w", err)
	}
	defer rows.Close()

	var result []ImportLog
	for rows.Next() {
		var (
			entry    ImportLog
			created  int64
			duration sql.NullInt64
			errMsg   sql.NullString
			metadata sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.UserID, &created, &entry.Source, &entry.Status, &entry.SessionsReceived,
			&entry.SetsReceived, &entry.SetsInserted, &entry.ExercisesRecomputed, &duration, &errMsg, &metadata); err != nil {
			return nil, fmt.Errorf("scanning import log: %w", err)
		}
		entry.CreatedAt = time.Unix(0, created).UTC()
		if duration.Valid {
			d := int(duration.Int64)
			entry.DurationMs = &d
		}
		if errMsg.Valid {
			entry.ErrorMessage = &errMsg.String
		}
		if metadata.Valid {
			raw := json.RawMessage(metadata.String)
			entry.Metadata = &raw
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
