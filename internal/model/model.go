package model

import (
	"encoding/json"
	"time"
)

// Snapshot is one persisted machine snapshot row: the machine's top-level
// state name plus the serialized game context. Versions are strictly
// monotone per game and enforced with an optimistic lock on update.
type Snapshot struct {
	GameID    string          `json:"game_id"`
	State     json.RawMessage `json:"state"`
	Version   int64           `json:"version"`
	Status    string          `json:"status"` // machine state name, e.g. lobby, playing, ended
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// EventRecord is one appended game event row. EventID auto-increments and
// breaks created-at ties when replaying.
type EventRecord struct {
	EventID   int64           `json:"event_id"`
	GameID    string          `json:"game_id"`
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// GameSummary is the lobby listing view of a managed game.
type GameSummary struct {
	GameID      string    `json:"game_id"`
	Status      string    `json:"status"`
	PlayerCount int       `json:"player_count"`
	MaxPlayers  int       `json:"max_players"`
	AICount     int       `json:"ai_count"`
	CreatedAt   time.Time `json:"created_at"`
}
