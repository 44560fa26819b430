// Package manager owns the set of live games: creation, membership, the
// per-game FIFO move pipeline, persistence of every machine transition,
// AI scheduling, and crash recovery.
package manager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/skagen/thronehex/internal/ai"
	"github.com/skagen/thronehex/internal/machine"
	"github.com/skagen/thronehex/internal/model"
	"github.com/skagen/thronehex/internal/repository"
	"github.com/skagen/thronehex/pkg/rules"
)

var (
	ErrGameNotFound = errors.New("manager: game not found")
	ErrShutdown     = errors.New("manager: shutting down")
)

// MoveResult is the transport-facing outcome of a move attempt. Rejections
// are results, not errors; only unknown games error.
type MoveResult struct {
	Success    bool          `json:"success"`
	Events     []rules.Event `json:"events,omitempty"`
	Error      string        `json:"error,omitempty"`
	TurnNumber int           `json:"turnNumber,omitempty"`
}

// AIMoveCallback observes moves submitted by the AI scheduler so the
// transport can broadcast them.
type AIMoveCallback func(gameID, playerID string, result MoveResult)

// TransitionCallback observes every machine transition after it has been
// persisted. Callbacks run on the game's journal goroutine and must not
// block.
type TransitionCallback func(gameID string, tr machine.Transition)

// persistedState is the snapshot blob: full machine state path plus the
// entire game context.
type persistedState struct {
	State   string           `json:"state"`
	Context *rules.GameState `json:"context"`
}

// managedGame bundles one machine with its persistence bookkeeping and AI
// seats. The journal goroutine is the only writer of version.
type managedGame struct {
	machine   *machine.Machine
	createdAt time.Time
	journal   chan machine.Transition
	quit      chan struct{}

	mu      sync.Mutex
	version int64
	ai      map[string]ai.Player
	aiOrder []string
}

func (g *managedGame) aiFor(playerID string) ai.Player {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ai[playerID]
}

// Manager is the operational surface exposed to the transport layer.
type Manager struct {
	snapshots repository.SnapshotRepository
	events    repository.EventRepository
	cache     repository.GameCache // nil disables the live mirror
	apiKey    string               // LLM credentials, empty disables LLM AI

	locks *fifoLocks

	mu            sync.RWMutex
	games         map[string]*managedGame
	callbacks     []AIMoveCallback
	transitionCBs []TransitionCallback
	closed        bool

	aiDedupe sync.Map
	wg       sync.WaitGroup
}

// New creates a Manager. cache may be nil.
func New(snapshots repository.SnapshotRepository, events repository.EventRepository, cache repository.GameCache, apiKey string) *Manager {
	return &Manager{
		snapshots: snapshots,
		events:    events,
		cache:     cache,
		apiKey:    apiKey,
		locks:     newFIFOLocks(),
		games:     make(map[string]*managedGame),
	}
}

// OnAIMove registers a callback fired after the scheduler submits an AI
// move. Register before games start.
func (m *Manager) OnAIMove(cb AIMoveCallback) {
	m.mu.Lock()
	m.callbacks = append(m.callbacks, cb)
	m.mu.Unlock()
}

// OnTransition registers a callback fired for every persisted transition.
// Register before games start.
func (m *Manager) OnTransition(cb TransitionCallback) {
	m.mu.Lock()
	m.transitionCBs = append(m.transitionCBs, cb)
	m.mu.Unlock()
}

// Create registers a new game in the lobby and returns its id.
func (m *Manager) Create(cfg rules.Config) (string, error) {
	if cfg.PlayerCount < 2 {
		cfg = rules.DefaultConfig()
	}
	gameID := newID()
	mach := machine.New(gameID, cfg, rand.New(rand.NewSource(time.Now().UnixNano())))
	if err := m.adopt(gameID, mach, 0); err != nil {
		return "", err
	}
	log.Info().Str("gameId", gameID).Int("players", cfg.PlayerCount).Msg("Game created")
	return gameID, nil
}

// adopt wires a machine into the manager: journal goroutine, subscription,
// registry entry.
func (m *Manager) adopt(gameID string, mach *machine.Machine, version int64) error {
	mg := &managedGame{
		machine:   mach,
		createdAt: time.Now(),
		journal:   make(chan machine.Transition, 256),
		quit:      make(chan struct{}),
		version:   version,
		ai:        make(map[string]ai.Player),
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrShutdown
	}
	if _, exists := m.games[gameID]; exists {
		m.mu.Unlock()
		return fmt.Errorf("manager: game %s already managed", gameID)
	}
	m.games[gameID] = mg
	m.mu.Unlock()

	mach.Subscribe(func(tr machine.Transition) {
		select {
		case mg.journal <- tr:
		case <-mg.quit:
		}
	})
	m.wg.Add(1)
	go m.consumeJournal(gameID, mg)
	return nil
}

func (m *Manager) game(gameID string) (*managedGame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mg, ok := m.games[gameID]
	if !ok {
		return nil, ErrGameNotFound
	}
	return mg, nil
}

// Join seats a human player and returns their id.
func (m *Manager) Join(gameID, name string) (string, error) {
	mg, err := m.game(gameID)
	if err != nil {
		return "", err
	}
	playerID := newID()
	if err := mg.machine.Join(playerID, name, false); err != nil {
		return "", err
	}
	return playerID, nil
}

// Leave removes a lobby player.
func (m *Manager) Leave(gameID, playerID string) error {
	mg, err := m.game(gameID)
	if err != nil {
		return err
	}
	if err := mg.machine.Leave(playerID); err != nil {
		return err
	}
	mg.mu.Lock()
	delete(mg.ai, playerID)
	for i, id := range mg.aiOrder {
		if id == playerID {
			mg.aiOrder = append(mg.aiOrder[:i], mg.aiOrder[i+1:]...)
			break
		}
	}
	mg.mu.Unlock()
	return nil
}

// Start begins the game; only the host may call it.
func (m *Manager) Start(gameID, playerID string) error {
	mg, err := m.game(gameID)
	if err != nil {
		return err
	}
	return mg.machine.Start(playerID)
}

// AddAIPlayer seats a stock AI of the given difficulty.
func (m *Manager) AddAIPlayer(gameID string, difficulty ai.Difficulty) (string, error) {
	return m.AddAIPlayerWithConfig(gameID, ai.Config{Difficulty: difficulty})
}

// AddAIPlayerWithConfig seats a tuned AI. Requesting a specific LLM model
// without credentials fails with ai.ErrMissingAPIKey.
func (m *Manager) AddAIPlayerWithConfig(gameID string, cfg ai.Config) (string, error) {
	mg, err := m.game(gameID)
	if err != nil {
		return "", err
	}
	if cfg.Model != "" && m.apiKey == "" {
		return "", ai.ErrMissingAPIKey
	}
	cfg.APIKey = m.apiKey
	player, err := ai.New(cfg)
	if err != nil {
		return "", err
	}
	if c, ok := player.(ai.Configurable); ok {
		if err := c.Configure(cfg); err != nil {
			return "", err
		}
	}

	playerID := newID()
	name := fmt.Sprintf("AI %s", strings.ToUpper(playerID[:4]))
	if err := mg.machine.Join(playerID, name, true); err != nil {
		return "", err
	}
	mg.mu.Lock()
	mg.ai[playerID] = player
	mg.aiOrder = append(mg.aiOrder, playerID)
	mg.mu.Unlock()
	return playerID, nil
}

// IsAIPlayer reports whether the seat is AI controlled.
func (m *Manager) IsAIPlayer(gameID, playerID string) bool {
	mg, err := m.game(gameID)
	if err != nil {
		return false
	}
	return mg.aiFor(playerID) != nil
}

// GetAIPlayerID returns the first AI seat of the game, if any.
func (m *Manager) GetAIPlayerID(gameID string) (string, bool) {
	mg, err := m.game(gameID)
	if err != nil {
		return "", false
	}
	mg.mu.Lock()
	defer mg.mu.Unlock()
	if len(mg.aiOrder) == 0 {
		return "", false
	}
	return mg.aiOrder[0], true
}

// GetState returns the machine state path and a deep copy of the context.
func (m *Manager) GetState(gameID string) (machine.State, *rules.GameState, error) {
	mg, err := m.game(gameID)
	if err != nil {
		return "", nil, err
	}
	state, gs := mg.machine.Snapshot()
	return state, gs, nil
}

// MakeMove runs the serialized move pipeline. turnNumber, when non-nil, is
// the client's last known turn; a mismatch is rejected as stale before the
// rules even run.
func (m *Manager) MakeMove(gameID, playerID string, cmd rules.MoveCommand, turnNumber *int) (MoveResult, error) {
	mg, err := m.game(gameID)
	if err != nil {
		return MoveResult{}, err
	}

	release := m.locks.acquire(gameID)
	defer release()

	state, gs := mg.machine.Snapshot()
	if state != machine.StateAwaitingMove {
		return MoveResult{Success: false, Error: "Cannot make move in state: " + state.Top(), TurnNumber: gs.TurnNumber}, nil
	}
	if turnNumber != nil && *turnNumber != gs.TurnNumber {
		return MoveResult{Success: false, Error: "Stale move request", TurnNumber: gs.TurnNumber}, nil
	}
	if gs.CurrentPlayerID != playerID {
		return MoveResult{Success: false, Error: "Not your turn", TurnNumber: gs.TurnNumber}, nil
	}

	res, err := mg.machine.MakeMove(playerID, cmd)
	if err != nil {
		if errors.Is(err, rules.ErrIntegrity) {
			log.Error().Err(err).Str("gameId", gameID).Msg("Move aborted by integrity guard")
			return MoveResult{Success: false, Error: "Internal error", TurnNumber: gs.TurnNumber}, nil
		}
		if errors.Is(err, machine.ErrBadState) {
			return MoveResult{Success: false, Error: "Cannot make move in state: " + mg.machine.State().Top(), TurnNumber: gs.TurnNumber}, nil
		}
		return MoveResult{}, err
	}
	if !res.Validation.Valid {
		return MoveResult{Success: false, Error: string(res.Validation.Reason), TurnNumber: gs.TurnNumber}, nil
	}
	return MoveResult{Success: true, Events: res.Events, TurnNumber: res.State.TurnNumber}, nil
}

// SubmitStarvationChoice records a player's sacrifice under the game lock.
func (m *Manager) SubmitStarvationChoice(gameID, playerID, pieceID string) error {
	mg, err := m.game(gameID)
	if err != nil {
		return err
	}
	release := m.locks.acquire(gameID)
	defer release()
	return mg.machine.SubmitStarvationChoice(playerID, pieceID)
}

// OnDisconnect marks a player disconnected, pausing the game when it is
// their turn.
func (m *Manager) OnDisconnect(gameID, playerID string) error {
	mg, err := m.game(gameID)
	if err != nil {
		return err
	}
	return mg.machine.Disconnect(playerID)
}

// OnReconnect lifts a disconnection and resumes a paused game.
func (m *Manager) OnReconnect(gameID, playerID string) error {
	mg, err := m.game(gameID)
	if err != nil {
		return err
	}
	return mg.machine.Reconnect(playerID)
}

// ListGames returns lobby summaries for every managed game.
func (m *Manager) ListGames() []model.GameSummary {
	m.mu.RLock()
	games := make(map[string]*managedGame, len(m.games))
	for id, mg := range m.games {
		games[id] = mg
	}
	m.mu.RUnlock()

	out := make([]model.GameSummary, 0, len(games))
	for id, mg := range games {
		state, gs := mg.machine.Snapshot()
		aiCount := 0
		for _, pl := range gs.Players {
			if pl.IsAI {
				aiCount++
			}
		}
		out = append(out, model.GameSummary{
			GameID:      id,
			Status:      state.Top(),
			PlayerCount: len(gs.Players),
			MaxPlayers:  gs.Config.PlayerCount,
			AICount:     aiCount,
			CreatedAt:   mg.createdAt,
		})
	}
	return out
}

// Stats aggregates the managed games by top-level state.
type Stats struct {
	Games    int            `json:"games"`
	ByStatus map[string]int `json:"byStatus"`
}

// GetStats returns aggregate counts.
func (m *Manager) GetStats() Stats {
	st := Stats{ByStatus: make(map[string]int)}
	for _, s := range m.ListGames() {
		st.Games++
		st.ByStatus[s.Status]++
	}
	return st
}

// Remove drops a game from memory and clears its live mirror. The durable
// snapshot is kept.
func (m *Manager) Remove(gameID string) error {
	m.mu.Lock()
	mg, ok := m.games[gameID]
	if ok {
		delete(m.games, gameID)
	}
	m.mu.Unlock()
	if !ok {
		return ErrGameNotFound
	}
	mg.machine.Stop()
	close(mg.quit)
	if m.cache != nil {
		if err := m.cache.DeleteGameData(context.Background(), gameID); err != nil {
			log.Warn().Err(err).Str("gameId", gameID).Msg("Failed to clear live mirror")
		}
	}
	m.dropDedupe(gameID)
	return nil
}

// Shutdown stops all machines and waits for persistence to drain.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	games := make([]*managedGame, 0, len(m.games))
	for _, mg := range m.games {
		games = append(games, mg)
	}
	m.games = make(map[string]*managedGame)
	m.mu.Unlock()

	for _, mg := range games {
		mg.machine.Stop()
		close(mg.quit)
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recover reloads every non-ended snapshot into a live machine. Corrupted
// rows are logged and skipped; games already in memory are left alone.
func (m *Manager) Recover(ctx context.Context) (int, error) {
	snaps, err := m.snapshots.LoadActiveSnapshots(ctx)
	if err != nil {
		return 0, fmt.Errorf("recover: %w", err)
	}

	restored := 0
	for _, snap := range snaps {
		m.mu.RLock()
		_, exists := m.games[snap.GameID]
		m.mu.RUnlock()
		if exists {
			continue
		}

		var ps persistedState
		if err := json.Unmarshal(snap.State, &ps); err != nil {
			log.Error().Err(err).Str("gameId", snap.GameID).Msg("Skipping corrupted snapshot")
			continue
		}
		if ps.Context == nil || ps.Context.GameID != snap.GameID {
			log.Error().Str("gameId", snap.GameID).Msg("Skipping snapshot with mismatched context")
			continue
		}
		if ok, reason := ps.Context.ValidatePositions(); !ok {
			log.Error().Str("gameId", snap.GameID).Str("reason", reason).Msg("Skipping snapshot with invalid positions")
			continue
		}

		mach := machine.NewFromSnapshot(machine.State(ps.State), ps.Context, rand.New(rand.NewSource(time.Now().UnixNano())))
		if err := m.adopt(snap.GameID, mach, snap.Version); err != nil {
			log.Error().Err(err).Str("gameId", snap.GameID).Msg("Failed to adopt recovered game")
			continue
		}

		// Re-seat AIs: LLM when credentials are present, random otherwise.
		mg, err := m.game(snap.GameID)
		if err != nil {
			continue
		}
		mg.mu.Lock()
		for _, pl := range ps.Context.Players {
			if !pl.IsAI {
				continue
			}
			var player ai.Player
			if m.apiKey != "" {
				player = ai.NewLLM(m.apiKey, "")
			} else {
				player = ai.NewRandom()
			}
			mg.ai[pl.ID] = player
			mg.aiOrder = append(mg.aiOrder, pl.ID)
		}
		mg.mu.Unlock()

		restored++
		log.Info().Str("gameId", snap.GameID).Str("state", ps.State).Int64("version", snap.Version).Msg("Game recovered")

		// A recovered game may already be waiting on an AI.
		m.scheduleAI(snap.GameID, mg, machine.State(ps.State))
	}
	return restored, nil
}

// consumeJournal persists transitions and triggers the AI scheduler, one
// game at a time, outside the move lock.
func (m *Manager) consumeJournal(gameID string, mg *managedGame) {
	defer m.wg.Done()
	for {
		select {
		case tr := <-mg.journal:
			m.persistTransition(gameID, mg, tr)
			for _, cb := range m.transitionCallbacks() {
				cb(gameID, tr)
			}
			m.scheduleAI(gameID, mg, tr.To)
		case <-mg.quit:
			// Drain what is already buffered so the final snapshot
			// lands, then exit.
			for {
				select {
				case tr := <-mg.journal:
					m.persistTransition(gameID, mg, tr)
				default:
					return
				}
			}
		}
	}
}

// persistTransition writes the snapshot, the state-change event, and each
// game event. Failures are logged and never block gameplay.
func (m *Manager) persistTransition(gameID string, mg *managedGame, tr machine.Transition) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	state, gs := mg.machine.Snapshot()
	mg.version++
	blob, err := json.Marshal(persistedState{State: string(state), Context: gs})
	if err != nil {
		log.Error().Err(err).Str("gameId", gameID).Msg("Snapshot marshal failed")
		return
	}
	if err := m.snapshots.SaveSnapshot(ctx, gameID, blob, mg.version, state.Top()); err != nil {
		log.Error().Err(err).Str("gameId", gameID).Int64("version", mg.version).Msg("Snapshot save failed")
	}

	if tr.From.Top() != tr.To.Top() {
		name := "STATE_" + strings.ToUpper(tr.To.Top())
		if err := m.events.SaveEvent(ctx, gameID, name, nil); err != nil {
			log.Error().Err(err).Str("gameId", gameID).Msg("State event save failed")
		}
	}
	for _, ev := range tr.Events {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		if err := m.events.SaveEvent(ctx, gameID, string(ev.Type), data); err != nil {
			log.Error().Err(err).Str("gameId", gameID).Str("event", string(ev.Type)).Msg("Event save failed")
		}
	}

	if m.cache != nil {
		if err := m.cache.SetGameState(ctx, gameID, blob); err != nil {
			log.Warn().Err(err).Str("gameId", gameID).Msg("Live mirror write failed")
		}
		m.mirrorDeadline(ctx, gameID, state, gs)
	}
}

// mirrorDeadline keeps the Redis turn-deadline key in step with the timer
// the machine armed for the new state. Paused games carry no deadline.
func (m *Manager) mirrorDeadline(ctx context.Context, gameID string, state machine.State, gs *rules.GameState) {
	var d time.Duration
	switch state {
	case machine.StateAwaitingMove:
		if gs.Config.TurnTimerMs == nil {
			break
		}
		d = time.Duration(*gs.Config.TurnTimerMs) * time.Millisecond
	case machine.StateStarvation:
		d = 30 * time.Second
		if gs.Config.TurnTimerMs != nil {
			d = time.Duration(*gs.Config.TurnTimerMs) * time.Millisecond
		}
	}
	if d <= 0 {
		if err := m.cache.ClearTurnDeadline(ctx, gameID); err != nil {
			log.Warn().Err(err).Str("gameId", gameID).Msg("Deadline clear failed")
		}
		return
	}
	if err := m.cache.SetTurnDeadline(ctx, gameID, time.Now().Add(d)); err != nil {
		log.Warn().Err(err).Str("gameId", gameID).Msg("Deadline mirror write failed")
	}
}

// TurnDeadline reports when the current turn or starvation window times
// out, from the live mirror. Nil when no timer is running or no cache is
// configured.
func (m *Manager) TurnDeadline(ctx context.Context, gameID string) (*time.Time, error) {
	if m.cache == nil {
		return nil, nil
	}
	return m.cache.GetTurnDeadline(ctx, gameID)
}

func (m *Manager) dropDedupe(gameID string) {
	prefix := gameID + ":"
	m.aiDedupe.Range(func(key, _ any) bool {
		if k, ok := key.(string); ok && strings.HasPrefix(k, prefix) {
			m.aiDedupe.Delete(key)
		}
		return true
	})
}

func (m *Manager) aiCallbacks() []AIMoveCallback {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]AIMoveCallback, len(m.callbacks))
	copy(out, m.callbacks)
	return out
}

func (m *Manager) transitionCallbacks() []TransitionCallback {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]TransitionCallback, len(m.transitionCBs))
	copy(out, m.transitionCBs)
	return out
}
