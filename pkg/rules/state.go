// Package rules implements the pure rules core for the hex-board strategy
// game: movement legality, combat arithmetic, push-chain resolution, turn
// advancement, victory checks, and starvation. All functions operate on a
// GameState value and never perform I/O; the state machine and manager own
// scheduling and persistence.
package rules

import (
	"github.com/skagen/thronehex/pkg/hex"
)

// PieceType identifies a piece kind.
type PieceType string

const (
	Jarl    PieceType = "jarl"
	Warrior PieceType = "warrior"
	Shield  PieceType = "shield"
)

// Strength returns the base combat strength for a piece type.
func (t PieceType) Strength() int {
	switch t {
	case Jarl:
		return 2
	case Warrior:
		return 1
	default:
		return 0
	}
}

// Piece is a single piece on the board. PlayerID is empty for neutral shields.
type Piece struct {
	ID       string    `json:"id"`
	Type     PieceType `json:"type"`
	PlayerID string    `json:"playerId,omitempty"`
	Position hex.Hex   `json:"position"`
}

// Strength returns the piece's base strength.
func (p *Piece) Strength() int { return p.Type.Strength() }

// Player is a seat in the game.
type Player struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Color        string `json:"color"`
	IsEliminated bool   `json:"isEliminated"`
	// RoundsSinceLastWarrior is nil while the player still owns warriors.
	// It starts at 0 the round they lose their last warrior and increments
	// each round end; at 5 the jarl starves.
	RoundsSinceLastWarrior *int `json:"roundsSinceLastWarrior,omitempty"`
	IsAI                   bool `json:"isAI"`
}

// Terrain selects the base number of holes placed at setup.
type Terrain string

const (
	TerrainCalm        Terrain = "calm"
	TerrainTreacherous Terrain = "treacherous"
	TerrainChaotic     Terrain = "chaotic"
)

// HoleCount returns the base hole count for the terrain.
func (t Terrain) HoleCount() int {
	switch t {
	case TerrainTreacherous:
		return 6
	case TerrainChaotic:
		return 9
	default:
		return 3
	}
}

// Config is the immutable per-game configuration.
type Config struct {
	PlayerCount  int     `json:"playerCount"`
	BoardRadius  int     `json:"boardRadius"`
	WarriorCount int     `json:"warriorCount"`
	TurnTimerMs  *int    `json:"turnTimerMs,omitempty"`
	Terrain      Terrain `json:"terrain"`
}

// DefaultConfig returns a playable two-player configuration.
func DefaultConfig() Config {
	return Config{
		PlayerCount:  2,
		BoardRadius:  5,
		WarriorCount: 5,
		Terrain:      TerrainCalm,
	}
}

// WinCondition identifies how a game ended.
type WinCondition string

const (
	WinThrone       WinCondition = "throne"
	WinLastStanding WinCondition = "lastStanding"
)

// MoveCommand is a player's request to move a piece.
type MoveCommand struct {
	PieceID     string  `json:"pieceId"`
	Destination hex.Hex `json:"destination"`
}

// MoveRecord is one entry of the bounded move history kept for AI context.
type MoveRecord struct {
	TurnNumber int     `json:"turnNumber"`
	PlayerID   string  `json:"playerId"`
	PieceID    string  `json:"pieceId"`
	From       hex.Hex `json:"from"`
	To         hex.Hex `json:"to"`
}

// MaxMoveHistory bounds the move history ring.
const MaxMoveHistory = 20

// GameState is the complete context of one game. It is the value the state
// machine owns, the manager snapshots, and the persistence layer serializes.
type GameState struct {
	GameID                 string              `json:"gameId"`
	Config                 Config              `json:"config"`
	Players                []Player            `json:"players"`
	Pieces                 []Piece             `json:"pieces"`
	Holes                  []hex.Hex           `json:"holes"`
	CurrentPlayerID        string              `json:"currentPlayerId,omitempty"`
	TurnNumber             int                 `json:"turnNumber"`
	RoundNumber            int                 `json:"roundNumber"`
	FirstPlayerIndex       int                 `json:"firstPlayerIndex"`
	RoundsSinceElimination int                 `json:"roundsSinceElimination"`
	WinnerID               string              `json:"winnerId,omitempty"`
	WinCondition           WinCondition        `json:"winCondition,omitempty"`
	DisconnectedPlayers    []string            `json:"disconnectedPlayers,omitempty"`
	StarvationCandidates   map[string][]string `json:"starvationCandidates,omitempty"`
	StarvationChoices      map[string]string   `json:"starvationChoices,omitempty"`
	MoveHistory            []MoveRecord        `json:"moveHistory,omitempty"`
}

// PieceByID returns the piece with the given ID, or nil.
func (gs *GameState) PieceByID(id string) *Piece {
	for i := range gs.Pieces {
		if gs.Pieces[i].ID == id {
			return &gs.Pieces[i]
		}
	}
	return nil
}

// PieceAt returns the piece occupying the given hex, or nil.
func (gs *GameState) PieceAt(pos hex.Hex) *Piece {
	for i := range gs.Pieces {
		if gs.Pieces[i].Position == pos {
			return &gs.Pieces[i]
		}
	}
	return nil
}

// PlayerByID returns the player with the given ID, or nil.
func (gs *GameState) PlayerByID(id string) *Player {
	for i := range gs.Players {
		if gs.Players[i].ID == id {
			return &gs.Players[i]
		}
	}
	return nil
}

// PiecesOf returns all pieces owned by the given player.
func (gs *GameState) PiecesOf(playerID string) []Piece {
	var out []Piece
	for _, p := range gs.Pieces {
		if p.PlayerID == playerID {
			out = append(out, p)
		}
	}
	return out
}

// WarriorCount returns the number of warriors the player still owns.
func (gs *GameState) WarriorCount(playerID string) int {
	count := 0
	for _, p := range gs.Pieces {
		if p.PlayerID == playerID && p.Type == Warrior {
			count++
		}
	}
	return count
}

// JarlOf returns the player's jarl, or nil if it has been eliminated.
func (gs *GameState) JarlOf(playerID string) *Piece {
	for i := range gs.Pieces {
		if gs.Pieces[i].PlayerID == playerID && gs.Pieces[i].Type == Jarl {
			return &gs.Pieces[i]
		}
	}
	return nil
}

// IsHole reports whether the given hex is a hole.
func (gs *GameState) IsHole(pos hex.Hex) bool {
	for _, h := range gs.Holes {
		if h == pos {
			return true
		}
	}
	return false
}

// IsDisconnected reports whether the player is in the disconnected set.
func (gs *GameState) IsDisconnected(playerID string) bool {
	for _, id := range gs.DisconnectedPlayers {
		if id == playerID {
			return true
		}
	}
	return false
}

// AlivePlayers returns the non-eliminated players in seat order.
func (gs *GameState) AlivePlayers() []Player {
	var out []Player
	for _, p := range gs.Players {
		if !p.IsEliminated {
			out = append(out, p)
		}
	}
	return out
}

// Clone returns a deep copy of the GameState. Mutations to the clone do not
// affect the original; ApplyMove works on a clone so a rejected or
// invariant-violating move never corrupts the live state.
func (gs *GameState) Clone() *GameState {
	c := *gs
	if gs.Players != nil {
		c.Players = make([]Player, len(gs.Players))
		copy(c.Players, gs.Players)
		for i := range c.Players {
			if gs.Players[i].RoundsSinceLastWarrior != nil {
				v := *gs.Players[i].RoundsSinceLastWarrior
				c.Players[i].RoundsSinceLastWarrior = &v
			}
		}
	}
	if gs.Pieces != nil {
		c.Pieces = make([]Piece, len(gs.Pieces))
		copy(c.Pieces, gs.Pieces)
	}
	if gs.Holes != nil {
		c.Holes = make([]hex.Hex, len(gs.Holes))
		copy(c.Holes, gs.Holes)
	}
	if gs.DisconnectedPlayers != nil {
		c.DisconnectedPlayers = make([]string, len(gs.DisconnectedPlayers))
		copy(c.DisconnectedPlayers, gs.DisconnectedPlayers)
	}
	if gs.StarvationCandidates != nil {
		c.StarvationCandidates = make(map[string][]string, len(gs.StarvationCandidates))
		for k, v := range gs.StarvationCandidates {
			cp := make([]string, len(v))
			copy(cp, v)
			c.StarvationCandidates[k] = cp
		}
	}
	if gs.StarvationChoices != nil {
		c.StarvationChoices = make(map[string]string, len(gs.StarvationChoices))
		for k, v := range gs.StarvationChoices {
			c.StarvationChoices[k] = v
		}
	}
	if gs.MoveHistory != nil {
		c.MoveHistory = make([]MoveRecord, len(gs.MoveHistory))
		copy(c.MoveHistory, gs.MoveHistory)
	}
	return &c
}

// ValidatePositions checks the at-rest board invariants: every piece on the
// board, no piece standing on a hole, and no two pieces sharing a hex.
// Returns false with a reason string on the first violation found.
func (gs *GameState) ValidatePositions() (bool, string) {
	seen := make(map[hex.Hex]string, len(gs.Pieces))
	for _, p := range gs.Pieces {
		if !hex.OnBoard(p.Position, gs.Config.BoardRadius) {
			return false, "piece " + p.ID + " is off the board"
		}
		if gs.IsHole(p.Position) {
			return false, "piece " + p.ID + " is standing on a hole"
		}
		if other, ok := seen[p.Position]; ok {
			return false, "pieces " + other + " and " + p.ID + " share a hex"
		}
		seen[p.Position] = p.ID
	}
	return true, ""
}

// recordMove appends to the bounded move history ring.
func (gs *GameState) recordMove(rec MoveRecord) {
	gs.MoveHistory = append(gs.MoveHistory, rec)
	if len(gs.MoveHistory) > MaxMoveHistory {
		gs.MoveHistory = gs.MoveHistory[len(gs.MoveHistory)-MaxMoveHistory:]
	}
}
