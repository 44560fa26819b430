package handler

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocket envelope types pushed by the server, besides the game event
// and state names that pass through verbatim.
const (
	EventConnected  = "connected"
	EventGameState  = "game_state"
	EventMoveResult = "move_result"
	EventAIMove     = "ai_move"
	EventError      = "error"
)

// WSEvent is the envelope for all WebSocket messages.
type WSEvent struct {
	Type   string `json:"type"`
	GameID string `json:"game_id,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ClientMessage is the envelope for messages sent from the client.
type ClientMessage struct {
	Action string `json:"action"` // subscribe, unsubscribe, move, starvation_choice
	GameID string `json:"game_id"`

	// Move fields.
	PieceID     string `json:"piece_id,omitempty"`
	Destination *struct {
		Q int `json:"q"`
		R int `json:"r"`
	} `json:"destination,omitempty"`
	TurnNumber *int `json:"turn_number,omitempty"`
}

// WSConn wraps a WebSocket connection with its player and subscriptions.
type WSConn struct {
	conn     *websocket.Conn
	playerID string
	send     chan []byte
}

// Hub manages WebSocket connections and game-channel subscriptions.
type Hub struct {
	mu          sync.RWMutex
	connections map[*WSConn]bool
	games       map[string]map[*WSConn]bool // gameID -> set of connections
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[*WSConn]bool),
		games:       make(map[string]map[*WSConn]bool),
	}
}

// Register adds a connection to the hub.
func (h *Hub) Register(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c] = true
}

// Unregister removes a connection from the hub and all its subscriptions.
// It returns the game ids where this was the player's last connection, so
// the caller can report the player as disconnected.
func (h *Hub) Unregister(c *WSConn) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.connections, c)

	var lastGames []string
	for gameID, conns := range h.games {
		if !conns[c] {
			continue
		}
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.games, gameID)
		}
		if !h.playerPresentLocked(gameID, c.playerID) {
			lastGames = append(lastGames, gameID)
		}
	}
	close(c.send)
	return lastGames
}

// Subscribe adds a connection to a game channel.
func (h *Hub) Subscribe(c *WSConn, gameID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.games[gameID] == nil {
		h.games[gameID] = make(map[*WSConn]bool)
	}
	h.games[gameID][c] = true
}

// Unsubscribe removes a connection from a game channel. The second return
// reports whether the player still has another connection on the game.
func (h *Hub) Unsubscribe(c *WSConn, gameID string) (stillPresent bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.games[gameID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.games, gameID)
		}
	}
	return h.playerPresentLocked(gameID, c.playerID)
}

func (h *Hub) playerPresentLocked(gameID, playerID string) bool {
	for other := range h.games[gameID] {
		if other.playerID == playerID {
			return true
		}
	}
	return false
}

// BroadcastToGame sends an event to all connections subscribed to a game.
func (h *Hub) BroadcastToGame(gameID string, event WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("gameId", gameID).Msg("Failed to marshal WebSocket event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.games[gameID] {
		select {
		case c.send <- data:
		default:
			log.Warn().Str("playerId", c.playerID).Str("gameId", gameID).Msg("Dropping WebSocket message, buffer full")
		}
	}
}

// BroadcastToPlayer sends an event to a specific player across all their
// connections.
func (h *Hub) BroadcastToPlayer(playerID string, event WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("playerId", playerID).Msg("Failed to marshal WebSocket event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.connections {
		if c.playerID == playerID {
			select {
			case c.send <- data:
			default:
			}
		}
	}
}

// ConnectionCount returns the total number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// GameSubscriberCount returns the number of connections subscribed to a
// game.
func (h *Hub) GameSubscriberCount(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.games[gameID])
}
