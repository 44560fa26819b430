package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/skagen/thronehex/internal/model"
)

// SnapshotRepo persists machine snapshots with optimistic version locking.
type SnapshotRepo struct {
	db *sql.DB
}

// NewSnapshotRepo creates a SnapshotRepo.
func NewSnapshotRepo(db *sql.DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// SaveSnapshot inserts at version 1 and otherwise updates the row whose
// stored version is version-1. Zero rows updated means a concurrent writer
// won the race: ErrVersionConflict.
func (r *SnapshotRepo) SaveSnapshot(ctx context.Context, gameID string, state json.RawMessage, version int64, status string) error {
	if version == 1 {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO game_snapshots (game_id, state, version, status)
			 VALUES ($1, $2, $3, $4)`,
			gameID, []byte(state), version, status)
		if err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}
		return nil
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE game_snapshots
		 SET state = $2, version = $3, status = $4, updated_at = now()
		 WHERE game_id = $1 AND version = $5`,
		gameID, []byte(state), version, status, version-1)
	if err != nil {
		return fmt.Errorf("update snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update snapshot: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("save snapshot %s v%d: %w", gameID, version, ErrVersionConflict)
	}
	return nil
}

// LoadSnapshot returns the stored snapshot or nil when the game is unknown.
func (r *SnapshotRepo) LoadSnapshot(ctx context.Context, gameID string) (*model.Snapshot, error) {
	var s model.Snapshot
	var state []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT game_id, state, version, status, created_at, updated_at
		 FROM game_snapshots WHERE game_id = $1`, gameID,
	).Scan(&s.GameID, &state, &s.Version, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	s.State = json.RawMessage(state)
	return &s, nil
}

// LoadActiveSnapshots returns every game not yet ended, oldest first.
func (r *SnapshotRepo) LoadActiveSnapshots(ctx context.Context) ([]model.Snapshot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT game_id, state, version, status, created_at, updated_at
		 FROM game_snapshots WHERE status != 'ended' ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("load active snapshots: %w", err)
	}
	defer rows.Close()

	var out []model.Snapshot
	for rows.Next() {
		var s model.Snapshot
		var state []byte
		if err := rows.Scan(&s.GameID, &state, &s.Version, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		s.State = json.RawMessage(state)
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteSnapshot removes a game's snapshot row.
func (r *SnapshotRepo) DeleteSnapshot(ctx context.Context, gameID string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM game_snapshots WHERE game_id = $1`, gameID); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}
