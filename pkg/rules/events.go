package rules

import "github.com/skagen/thronehex/pkg/hex"

// EventType discriminates the game event union.
type EventType string

const (
	EventMove                EventType = "MOVE"
	EventPush                EventType = "PUSH"
	EventEliminated          EventType = "ELIMINATED"
	EventTurnEnded           EventType = "TURN_ENDED"
	EventTurnSkipped         EventType = "TURN_SKIPPED"
	EventGameEnded           EventType = "GAME_ENDED"
	EventStarvationTriggered EventType = "STARVATION_TRIGGERED"
	EventStarvationResolved  EventType = "STARVATION_RESOLVED"
	EventJarlStarved         EventType = "JARL_STARVED"
	EventPlayerJoined        EventType = "PLAYER_JOINED"
	EventPlayerLeft          EventType = "PLAYER_LEFT"
)

// EliminationCause identifies why a piece was removed.
type EliminationCause string

const (
	CauseEdge        EliminationCause = "edge"
	CauseHole        EliminationCause = "hole"
	CauseStarvation  EliminationCause = "starvation"
	CauseJarlStarved EliminationCause = "jarlStarvation"
)

// Event is the wire-stable game event emitted by the rules core and the
// state machine. The Type field discriminates which payload fields are set.
type Event struct {
	Type         EventType        `json:"type"`
	PieceID      string           `json:"pieceId,omitempty"`
	PlayerID     string           `json:"playerId,omitempty"`
	PlayerName   string           `json:"playerName,omitempty"`
	From         *hex.Hex         `json:"from,omitempty"`
	To           *hex.Hex         `json:"to,omitempty"`
	Cause        EliminationCause `json:"cause,omitempty"`
	Depth        int              `json:"depth,omitempty"`
	WinnerID     string           `json:"winnerId,omitempty"`
	WinCondition WinCondition     `json:"winCondition,omitempty"`
	TurnNumber   int              `json:"turnNumber,omitempty"`
	RoundNumber  int              `json:"roundNumber,omitempty"`
}

func hexPtr(h hex.Hex) *hex.Hex { return &h }
