package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/skagen/thronehex/internal/model"
)

// SnapshotRepository persists machine snapshots with optimistic locking.
type SnapshotRepository interface {
	// SaveSnapshot inserts the row at version 1, or updates it when the
	// stored version is exactly version-1. A concurrent writer that lost
	// the race gets ErrVersionConflict.
	SaveSnapshot(ctx context.Context, gameID string, state json.RawMessage, version int64, status string) error
	LoadSnapshot(ctx context.Context, gameID string) (*model.Snapshot, error)
	// LoadActiveSnapshots returns every snapshot whose status is not
	// "ended", ordered by creation time, for crash recovery.
	LoadActiveSnapshots(ctx context.Context) ([]model.Snapshot, error)
	DeleteSnapshot(ctx context.Context, gameID string) error
}

// EventRepository appends and replays the per-game event journal.
type EventRepository interface {
	SaveEvent(ctx context.Context, gameID, eventType string, data json.RawMessage) error
	LoadEvents(ctx context.Context, gameID string) ([]model.EventRecord, error)
}

// GameCache mirrors live game state for read-heavy clients (Redis).
// Mirror writes are fire-and-forget; the snapshot store stays authoritative.
type GameCache interface {
	SetGameState(ctx context.Context, gameID string, state json.RawMessage) error
	GetGameState(ctx context.Context, gameID string) (json.RawMessage, error)
	SetTurnDeadline(ctx context.Context, gameID string, deadline time.Time) error
	GetTurnDeadline(ctx context.Context, gameID string) (*time.Time, error)
	ClearTurnDeadline(ctx context.Context, gameID string) error
	DeleteGameData(ctx context.Context, gameID string) error
}
