package handler

import (
	"errors"
	"net/http"

	"github.com/skagen/thronehex/internal/ai"
	"github.com/skagen/thronehex/internal/auth"
	"github.com/skagen/thronehex/internal/machine"
	"github.com/skagen/thronehex/internal/manager"
	"github.com/skagen/thronehex/pkg/hex"
	"github.com/skagen/thronehex/pkg/rules"
)

// GameHandler handles the lobby and gameplay REST endpoints.
type GameHandler struct {
	games    *manager.Manager
	sessions *auth.SessionManager
}

// NewGameHandler creates a GameHandler.
func NewGameHandler(games *manager.Manager, sessions *auth.SessionManager) *GameHandler {
	return &GameHandler{games: games, sessions: sessions}
}

// CreateGame handles POST /api/v1/games
func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerCount  int    `json:"player_count"`
		BoardRadius  int    `json:"board_radius,omitempty"`
		WarriorCount int    `json:"warrior_count,omitempty"`
		TurnTimerMs  *int   `json:"turn_timer_ms,omitempty"`
		Terrain      string `json:"terrain,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg := rules.DefaultConfig()
	if req.PlayerCount != 0 {
		if req.PlayerCount < 2 || req.PlayerCount > 6 {
			writeError(w, http.StatusBadRequest, "player_count must be between 2 and 6")
			return
		}
		cfg.PlayerCount = req.PlayerCount
	}
	if req.BoardRadius != 0 {
		if req.BoardRadius < 3 || req.BoardRadius > 12 {
			writeError(w, http.StatusBadRequest, "board_radius must be between 3 and 12")
			return
		}
		cfg.BoardRadius = req.BoardRadius
	}
	if req.WarriorCount != 0 {
		cfg.WarriorCount = req.WarriorCount
	}
	cfg.TurnTimerMs = req.TurnTimerMs
	if req.Terrain != "" {
		switch t := rules.Terrain(req.Terrain); t {
		case rules.TerrainCalm, rules.TerrainTreacherous, rules.TerrainChaotic:
			cfg.Terrain = t
		default:
			writeError(w, http.StatusBadRequest, "unknown terrain")
			return
		}
	}

	gameID, err := h.games.Create(cfg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"game_id": gameID})
}

// ListGames handles GET /api/v1/games
func (h *GameHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	games := h.games.ListGames()
	if games == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, games)
}

// GetGame handles GET /api/v1/games/{id}
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	state, gs, err := h.games.GetState(gameID)
	if err != nil {
		writeGameError(w, err)
		return
	}
	resp := map[string]any{
		"state": string(state),
		"game":  gs,
	}
	if deadline, err := h.games.TurnDeadline(r.Context(), gameID); err == nil && deadline != nil {
		resp["turn_deadline"] = deadline
	}
	writeJSON(w, http.StatusOK, resp)
}

// JoinGame handles POST /api/v1/games/{id}/join — seats the caller and
// issues their session token.
func (h *GameHandler) JoinGame(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	playerID, err := h.games.Join(gameID, req.Name)
	if err != nil {
		writeGameError(w, err)
		return
	}
	sess, err := h.sessions.Issue(playerID, req.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue session")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"player_id":  playerID,
		"token":      sess.Token,
		"expires_in": sess.ExpiresIn,
	})
}

// LeaveGame handles POST /api/v1/games/{id}/leave
func (h *GameHandler) LeaveGame(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	playerID := auth.PlayerIDFromContext(r.Context())

	if err := h.games.Leave(gameID, playerID); err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "left"})
}

// StartGame handles POST /api/v1/games/{id}/start
func (h *GameHandler) StartGame(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	playerID := auth.PlayerIDFromContext(r.Context())

	if err := h.games.Start(gameID, playerID); err != nil {
		writeGameError(w, err)
		return
	}
	state, gs, err := h.games.GetState(gameID)
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state": string(state),
		"game":  gs,
	})
}

// AddAI handles POST /api/v1/games/{id}/ai
func (h *GameHandler) AddAI(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	var req struct {
		Difficulty string `json:"difficulty"`
		Model      string `json:"model,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Difficulty == "" {
		req.Difficulty = string(ai.DifficultyEasy)
	}

	playerID, err := h.games.AddAIPlayerWithConfig(gameID, ai.Config{
		Difficulty: ai.Difficulty(req.Difficulty),
		Model:      req.Model,
	})
	if err != nil {
		if errors.Is(err, ai.ErrMissingAPIKey) {
			writeError(w, http.StatusBadRequest, "LLM AI requires an API key on the server")
			return
		}
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"player_id": playerID})
}

// MakeMove handles POST /api/v1/games/{id}/moves — the REST twin of the
// websocket move action.
func (h *GameHandler) MakeMove(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	playerID := auth.PlayerIDFromContext(r.Context())

	var req struct {
		PieceID     string `json:"piece_id"`
		Destination struct {
			Q int `json:"q"`
			R int `json:"r"`
		} `json:"destination"`
		TurnNumber *int `json:"turn_number,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PieceID == "" {
		writeError(w, http.StatusBadRequest, "piece_id is required")
		return
	}

	cmd := rules.MoveCommand{
		PieceID:     req.PieceID,
		Destination: hex.Hex{Q: req.Destination.Q, R: req.Destination.R},
	}
	result, err := h.games.MakeMove(gameID, playerID, cmd, req.TurnNumber)
	if err != nil {
		writeGameError(w, err)
		return
	}
	status := http.StatusOK
	if !result.Success {
		status = http.StatusConflict
	}
	writeJSON(w, status, result)
}

// StarvationChoice handles POST /api/v1/games/{id}/starvation
func (h *GameHandler) StarvationChoice(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	playerID := auth.PlayerIDFromContext(r.Context())

	var req struct {
		PieceID string `json:"piece_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.games.SubmitStarvationChoice(gameID, playerID, req.PieceID); err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

// DeleteGame handles DELETE /api/v1/games/{id}
func (h *GameHandler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	if err := h.games.Remove(gameID); err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GetStats handles GET /api/v1/stats
func (h *GameHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.games.GetStats())
}

// writeGameError maps manager and machine errors to HTTP statuses.
func writeGameError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, manager.ErrGameNotFound), errors.Is(err, machine.ErrPlayerNotFound):
		status = http.StatusNotFound
	case errors.Is(err, machine.ErrNotHost):
		status = http.StatusForbidden
	case errors.Is(err, machine.ErrBadState),
		errors.Is(err, machine.ErrGameFull),
		errors.Is(err, machine.ErrNotEnoughPlayers),
		errors.Is(err, machine.ErrInvalidCandidate),
		errors.Is(err, machine.ErrDuplicateChoice),
		errors.Is(err, machine.ErrNotDisconnected):
		status = http.StatusBadRequest
	}
	writeError(w, status, err.Error())
}
