package mcp

import (
	"context"

	"github.com/claude/movementmemory/internal/engine"
	"github.com/claude/movementmemory/internal/progression"
)

// DataSource abstracts where memories come from. *engine.Service serves them
// in-process, HTTPClient reads them from a remote server's REST API. Both
// report "no history" as a nil result, never as an error.
type DataSource interface {
	Memory(ctx context.Context, key progression.Key) (*progression.MovementMemory, error)
	Suggestion(ctx context.Context, key progression.Key, sc *progression.SessionContext) (*progression.NextTimeSuggestion, error)
	Memories(ctx context.Context, userID int) ([]progression.MovementMemory, error)
}

var _ DataSource = (*engine.Service)(nil)
