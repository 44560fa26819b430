package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gorilla/websocket"

	"github.com/skagen/thronehex/internal/auth"
	"github.com/skagen/thronehex/internal/machine"
	"github.com/skagen/thronehex/internal/manager"
	"github.com/skagen/thronehex/pkg/hex"
	"github.com/skagen/thronehex/pkg/rules"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = 54 * time.Second // Must be less than pongWait
	maxMsgSize  = 4096
	sendBufSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS handled by middleware; tighten in production
	},
}

// WSHandler handles WebSocket connections. Subscribing to a game marks the
// player as reconnected; losing the last connection marks them as
// disconnected, which pauses the game when it is their turn.
type WSHandler struct {
	hub      *Hub
	sessions *auth.SessionManager
	games    *manager.Manager
}

// NewWSHandler creates a WSHandler.
func NewWSHandler(hub *Hub, sessions *auth.SessionManager, games *manager.Manager) *WSHandler {
	return &WSHandler{hub: hub, sessions: sessions, games: games}
}

// ServeWS handles GET /api/v1/ws — upgrades to WebSocket.
// Auth via ?token= query parameter (WebSocket can't send headers).
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, `{"error":"missing token parameter"}`, http.StatusUnauthorized)
		return
	}

	claims, err := h.sessions.Validate(tokenStr)
	if err != nil {
		http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &WSConn{
		conn:     conn,
		playerID: claims.PlayerID,
		send:     make(chan []byte, sendBufSize),
	}
	h.hub.Register(client)

	// Send a welcome message so the client can confirm the connection is
	// live.
	welcome, _ := json.Marshal(WSEvent{Type: EventConnected})
	client.send <- welcome

	go h.writePump(client)
	go h.readPump(client)

	log.Info().Str("playerId", claims.PlayerID).Int("total", h.hub.ConnectionCount()).Msg("WebSocket client connected")
}

// readPump reads messages from the WebSocket connection.
func (h *WSHandler) readPump(c *WSConn) {
	defer func() {
		for _, gameID := range h.hub.Unregister(c) {
			h.reportDisconnect(gameID, c.playerID)
		}
		c.conn.Close()
		log.Info().Str("playerId", c.playerID).Msg("WebSocket client disconnected")
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("playerId", c.playerID).Msg("WebSocket unexpected close")
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			h.sendError(c, "", "invalid message")
			continue
		}
		h.dispatch(c, msg)
	}
}

func (h *WSHandler) dispatch(c *WSConn, msg ClientMessage) {
	switch msg.Action {
	case "subscribe":
		if msg.GameID == "" {
			return
		}
		h.hub.Subscribe(c, msg.GameID)
		if err := h.games.OnReconnect(msg.GameID, c.playerID); err != nil &&
			!errors.Is(err, machine.ErrNotDisconnected) &&
			!errors.Is(err, machine.ErrPlayerNotFound) &&
			!errors.Is(err, manager.ErrGameNotFound) {
			log.Warn().Err(err).Str("gameId", msg.GameID).Str("playerId", c.playerID).Msg("Reconnect failed")
		}
		h.sendGameState(c, msg.GameID)

	case "unsubscribe":
		if msg.GameID == "" {
			return
		}
		if still := h.hub.Unsubscribe(c, msg.GameID); !still {
			h.reportDisconnect(msg.GameID, c.playerID)
		}

	case "move":
		if msg.GameID == "" || msg.PieceID == "" || msg.Destination == nil {
			h.sendError(c, msg.GameID, "move requires game_id, piece_id and destination")
			return
		}
		cmd := rules.MoveCommand{
			PieceID:     msg.PieceID,
			Destination: hex.Hex{Q: msg.Destination.Q, R: msg.Destination.R},
		}
		result, err := h.games.MakeMove(msg.GameID, c.playerID, cmd, msg.TurnNumber)
		if err != nil {
			h.sendError(c, msg.GameID, err.Error())
			return
		}
		h.send(c, WSEvent{Type: EventMoveResult, GameID: msg.GameID, Data: result})

	case "starvation_choice":
		if msg.GameID == "" || msg.PieceID == "" {
			h.sendError(c, msg.GameID, "starvation_choice requires game_id and piece_id")
			return
		}
		if err := h.games.SubmitStarvationChoice(msg.GameID, c.playerID, msg.PieceID); err != nil {
			h.sendError(c, msg.GameID, err.Error())
			return
		}
		h.send(c, WSEvent{Type: EventMoveResult, GameID: msg.GameID, Data: map[string]bool{"accepted": true}})

	default:
		h.sendError(c, msg.GameID, "unknown action")
	}
}

func (h *WSHandler) reportDisconnect(gameID, playerID string) {
	if err := h.games.OnDisconnect(gameID, playerID); err != nil &&
		!errors.Is(err, machine.ErrPlayerNotFound) &&
		!errors.Is(err, manager.ErrGameNotFound) {
		log.Warn().Err(err).Str("gameId", gameID).Str("playerId", playerID).Msg("Disconnect report failed")
	}
}

// sendGameState pushes the current snapshot to one connection, so a fresh
// subscriber does not have to wait for the next transition.
func (h *WSHandler) sendGameState(c *WSConn, gameID string) {
	state, gs, err := h.games.GetState(gameID)
	if err != nil {
		h.sendError(c, gameID, "game not found")
		return
	}
	h.send(c, WSEvent{Type: EventGameState, GameID: gameID, Data: map[string]any{
		"state": string(state),
		"game":  gs,
	}})
}

func (h *WSHandler) send(c *WSConn, event WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (h *WSHandler) sendError(c *WSConn, gameID, msg string) {
	h.send(c, WSEvent{Type: EventError, GameID: gameID, Data: map[string]string{"error": msg}})
}

// writePump writes messages to the WebSocket connection.
func (h *WSHandler) writePump(c *WSConn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Drain queued messages into the same write
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte("\n"))
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
