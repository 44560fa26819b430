package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/skagen/thronehex/internal/model"
)

// EventRepo appends and replays the per-game event journal.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo creates an EventRepo.
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

// SaveEvent appends one event row.
func (r *EventRepo) SaveEvent(ctx context.Context, gameID, eventType string, data json.RawMessage) error {
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO game_events (game_id, event_type, data) VALUES ($1, $2, $3)`,
		gameID, eventType, nullableJSON(data)); err != nil {
		return fmt.Errorf("save event: %w", err)
	}
	return nil
}

// LoadEvents returns all events for the game in append order.
func (r *EventRepo) LoadEvents(ctx context.Context, gameID string) ([]model.EventRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT event_id, game_id, event_type, data, created_at
		 FROM game_events WHERE game_id = $1
		 ORDER BY created_at ASC, event_id ASC`, gameID)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	defer rows.Close()

	var out []model.EventRecord
	for rows.Next() {
		var e model.EventRecord
		var data []byte
		if err := rows.Scan(&e.EventID, &e.GameID, &e.EventType, &data, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if data != nil {
			e.Data = json.RawMessage(data)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullableJSON(data json.RawMessage) interface{} {
	if len(data) == 0 {
		return sql.NullString{}
	}
	return []byte(data)
}
