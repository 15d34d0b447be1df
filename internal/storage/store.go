package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/claude/movementmemory/internal/config"
	"github.com/claude/movementmemory/internal/models"
	"github.com/claude/movementmemory/internal/progression"
)

var (
	ErrSetNotFound    = errors.New("set not found")
	ErrMemoryNotFound = errors.New("movement memory not found")
)

// Store is the persistence contract shared by the Postgres, SQLite and
// in-memory backends.
type Store interface {
	InsertSet(ctx context.Context, set models.SetRecord) error
	// UpdateSet replaces a stored set. Returns ErrSetNotFound when no set with
	// that id belongs to the user.
	UpdateSet(ctx context.Context, set models.SetRecord) error
	// DeleteSet removes a set and returns the removed row.
	DeleteSet(ctx context.Context, userID int, id uuid.UUID) (*models.SetRecord, error)
	GetSet(ctx context.Context, userID int, id uuid.UUID) (*models.SetRecord, error)
	// ExerciseHistory returns every stored set of a key, warmups included.
	ExerciseHistory(ctx context.Context, key progression.Key) ([]models.SetRecord, error)
	// QuerySets returns the sets of a key with a session date in [start, end).
	QuerySets(ctx context.Context, key progression.Key, start, end time.Time) ([]models.SetRecord, error)
	// ReplaceSessionSets swaps every stored set of a session for the given
	// ones. It reports how many sets were written and the exercises whose
	// history changed.
	ReplaceSessionSets(ctx context.Context, userID int, sessionID string, sets []models.SetRecord) (int64, []string, error)

	GetMemory(ctx context.Context, key progression.Key) (*progression.MovementMemory, error)
	PutMemory(ctx context.Context, mem *progression.MovementMemory) error
	ListMemories(ctx context.Context, userID int) ([]progression.MovementMemory, error)
	ListMemoryKeys(ctx context.Context) ([]progression.Key, error)

	GetOrCreateUser(ctx context.Context, login, displayName string) (int, error)
	InsertImportLog(ctx context.Context, log ImportLog) (int64, error)
	QueryImportLogs(ctx context.Context, userID, limit int) ([]ImportLog, error)

	Close() error
}

var (
	_ Store = (*DB)(nil)
	_ Store = (*LocalDB)(nil)
	_ Store = (*InMemoryStore)(nil)
)

// Open builds the store selected by cfg.Driver. Postgres schemas are expected
// to be migrated already; the SQLite and in-memory stores create their own.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres, "":
		return NewWithConfig(ctx, cfg.DSN(), cfg.Tracing)
	case config.DriverSQLite:
		return OpenLocal(cfg.Path)
	case config.DriverMemory:
		return NewInMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func exerciseSet(sets []models.SetRecord, seed []string) []string {
	seen := make(map[string]bool, len(seed))
	out := make([]string, 0, len(seed)+len(sets))
	for _, id := range seed {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, s := range sets {
		if !seen[s.ExerciseID] {
			seen[s.ExerciseID] = true
			out = append(out, s.ExerciseID)
		}
	}
	return out
}
