package postgres

import (
	"database/sql"
	"fmt"
)

// Migrate creates the snapshot and event tables if they do not exist.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS game_snapshots (
			game_id    TEXT PRIMARY KEY,
			state      JSONB NOT NULL,
			version    BIGINT NOT NULL,
			status     TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_game_snapshots_status ON game_snapshots (status)`,
		`CREATE TABLE IF NOT EXISTS game_events (
			event_id   BIGSERIAL PRIMARY KEY,
			game_id    TEXT NOT NULL,
			event_type TEXT NOT NULL,
			data       JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_game_events_game_id ON game_events (game_id, created_at, event_id)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
