package engine

//go:generate mockgen -source=$GOFILE -destination=store_mocks_test.go -package=engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/claude/movementmemory/internal/models"
	"github.com/claude/movementmemory/internal/progression"
)

// Store is the slice of persistence the engine reads and writes. Not-found
// conditions are reported with storage.ErrSetNotFound and
// storage.ErrMemoryNotFound.
type Store interface {
	InsertSet(ctx context.Context, set models.SetRecord) error
	UpdateSet(ctx context.Context, set models.SetRecord) error
	DeleteSet(ctx context.Context, userID int, id uuid.UUID) (*models.SetRecord, error)
	GetSet(ctx context.Context, userID int, id uuid.UUID) (*models.SetRecord, error)
	ExerciseHistory(ctx context.Context, key progression.Key) ([]models.SetRecord, error)

	GetMemory(ctx context.Context, key progression.Key) (*progression.MovementMemory, error)
	PutMemory(ctx context.Context, mem *progression.MovementMemory) error
	ListMemories(ctx context.Context, userID int) ([]progression.MovementMemory, error)
	ListMemoryKeys(ctx context.Context) ([]progression.Key, error)
}
