// Package machine implements the per-game compound state machine:
// lobby -> setup -> playing <-> starvation <-> paused -> ended. The machine
// owns one game context and serializes all transitions behind a mutex. An
// outer ordering lock is held across each commit and its notification, so
// subscribers observe transitions in exactly commit order; subscribers may
// read the machine (Snapshot, State) but must not drive transitions from
// inside the callback.
package machine

import (
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/skagen/thronehex/pkg/rules"
)

// State is a machine state path. Sub-states use a dotted form so the
// top-level name can be recovered for persistence.
type State string

const (
	StateLobby           State = "lobby"
	StateSetup           State = "setup"
	StateAwaitingMove    State = "playing.awaitingMove"
	StateCheckingGameEnd State = "playing.checkingGameEnd"
	StateStarvation      State = "starvation.awaitingChoices"
	StatePaused          State = "paused"
	StateEnded           State = "ended"
)

// Top returns the top-level state name, e.g. "playing" for
// "playing.awaitingMove".
func (s State) Top() string {
	if i := strings.IndexByte(string(s), '.'); i >= 0 {
		return string(s[:i])
	}
	return string(s)
}

var (
	ErrBadState         = errors.New("machine: operation not allowed in current state")
	ErrGameFull         = errors.New("machine: game is full")
	ErrNotHost          = errors.New("machine: only the host can start the game")
	ErrNotEnoughPlayers = errors.New("machine: need at least 2 players to start")
	ErrPlayerNotFound   = errors.New("machine: player not found")
	ErrNotDisconnected  = errors.New("machine: player is not disconnected")
	ErrInvalidCandidate = errors.New("machine: piece is not a starvation candidate")
	ErrDuplicateChoice  = errors.New("machine: starvation choice already submitted")
)

// defaultStarvationTimeout backstops starvation choices when no turn timer
// is configured.
const defaultStarvationTimeout = 30 * time.Second

// Transition describes one observed state change with the game events it
// produced. Subscribers receive transitions in order, outside the lock.
type Transition struct {
	GameID string
	From   State
	To     State
	Events []rules.Event
}

// Subscriber receives machine transitions.
type Subscriber func(Transition)

// Machine is one game's state machine. notifyMu is acquired before mu by
// every transition path and released only after subscribers have been
// notified; without it a commit from a timer goroutine could overtake an
// earlier commit's notification and invert the observed order.
type Machine struct {
	notifyMu sync.Mutex

	mu      sync.Mutex
	gameID  string
	state   State
	game    *rules.GameState
	subs    []Subscriber
	rng     *rand.Rand
	stopped bool

	turnTimer       *time.Timer
	starvationTimer *time.Timer
}

// New creates a machine in the lobby state.
func New(gameID string, cfg rules.Config, rng *rand.Rand) *Machine {
	return &Machine{
		gameID: gameID,
		state:  StateLobby,
		game:   &rules.GameState{GameID: gameID, Config: cfg},
		rng:    rng,
	}
}

// NewFromSnapshot rebuilds a machine from a persisted state name and game
// context. Timers are re-armed for the restored state; a paused game stays
// paused with no timer, by design of the disconnection flow.
func NewFromSnapshot(stateName State, game *rules.GameState, rng *rand.Rand) *Machine {
	m := &Machine{
		gameID: game.GameID,
		state:  stateName,
		game:   game,
		rng:    rng,
	}
	m.mu.Lock()
	switch stateName {
	case StateAwaitingMove, StateCheckingGameEnd:
		m.state = StateAwaitingMove
		m.armTurnTimer()
	case StateStarvation:
		m.armStarvationTimer()
	}
	m.mu.Unlock()
	return m
}

// Subscribe registers a transition subscriber. Not safe to call
// concurrently with transitions; register before the game starts moving.
func (m *Machine) Subscribe(fn Subscriber) {
	m.mu.Lock()
	m.subs = append(m.subs, fn)
	m.mu.Unlock()
}

// Snapshot returns the current state path and a deep copy of the game
// context.
func (m *Machine) Snapshot() (State, *rules.GameState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.game.Clone()
}

// State returns the current state path.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// GameID returns the machine's game id.
func (m *Machine) GameID() string { return m.gameID }

// Stop cancels all timers. The machine accepts no further transitions.
func (m *Machine) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.cancelTimers()
	m.mu.Unlock()
}

// Join adds a player in the lobby.
func (m *Machine) Join(playerID, name string, isAI bool) error {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	m.mu.Lock()
	if m.state != StateLobby {
		m.mu.Unlock()
		return ErrBadState
	}
	if len(m.game.Players) >= m.game.Config.PlayerCount {
		m.mu.Unlock()
		return ErrGameFull
	}
	m.game.Players = append(m.game.Players, rules.Player{
		ID:    playerID,
		Name:  name,
		Color: playerColors[len(m.game.Players)%len(playerColors)],
		IsAI:  isAI,
	})
	trs := []Transition{{
		GameID: m.gameID, From: StateLobby, To: StateLobby,
		Events: []rules.Event{{Type: rules.EventPlayerJoined, PlayerID: playerID, PlayerName: name}},
	}}
	m.mu.Unlock()
	m.notify(trs)
	return nil
}

var playerColors = []string{"#c0392b", "#2980b9", "#27ae60", "#f39c12", "#8e44ad", "#16a085"}

// Leave removes a player from the lobby.
func (m *Machine) Leave(playerID string) error {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	m.mu.Lock()
	if m.state != StateLobby {
		m.mu.Unlock()
		return ErrBadState
	}
	idx := -1
	for i := range m.game.Players {
		if m.game.Players[i].ID == playerID {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return ErrPlayerNotFound
	}
	name := m.game.Players[idx].Name
	m.game.Players = append(m.game.Players[:idx], m.game.Players[idx+1:]...)
	trs := []Transition{{
		GameID: m.gameID, From: StateLobby, To: StateLobby,
		Events: []rules.Event{{Type: rules.EventPlayerLeft, PlayerID: playerID, PlayerName: name}},
	}}
	m.mu.Unlock()
	m.notify(trs)
	return nil
}

// Start runs setup and begins play. Only the host, the first player to
// join, may start, and at least two seats must be filled.
func (m *Machine) Start(byPlayerID string) error {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	m.mu.Lock()
	if m.state != StateLobby {
		m.mu.Unlock()
		return ErrBadState
	}
	if len(m.game.Players) < 2 {
		m.mu.Unlock()
		return ErrNotEnoughPlayers
	}
	if m.game.Players[0].ID != byPlayerID {
		m.mu.Unlock()
		return ErrNotHost
	}
	if err := rules.SetupBoard(m.game, m.rng); err != nil {
		m.mu.Unlock()
		return err
	}
	trs := []Transition{
		{GameID: m.gameID, From: StateLobby, To: StateSetup},
		{GameID: m.gameID, From: StateSetup, To: StateAwaitingMove},
	}
	m.state = StateAwaitingMove
	m.armTurnTimer()
	m.mu.Unlock()
	m.notify(trs)
	return nil
}

// MakeMove validates and applies one move. Rejections come back in the
// resolution, not as an error; errors mean the machine could not process
// the command at all.
func (m *Machine) MakeMove(playerID string, cmd rules.MoveCommand) (*rules.MoveResolution, error) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	m.mu.Lock()
	if m.state != StateAwaitingMove {
		m.mu.Unlock()
		return nil, ErrBadState
	}
	res, err := rules.ApplyMove(m.game, playerID, cmd)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if !res.Validation.Valid {
		m.mu.Unlock()
		return res, nil
	}
	trs := m.commitResolution(res)
	m.mu.Unlock()
	m.notify(trs)
	return res, nil
}

// commitResolution installs a resolution's new state and moves the machine
// through checkingGameEnd to the outcome state. Caller holds the lock.
func (m *Machine) commitResolution(res *rules.MoveResolution) []Transition {
	from := m.state
	m.game = res.State
	m.cancelTimers()

	trs := []Transition{{GameID: m.gameID, From: from, To: StateCheckingGameEnd, Events: res.Events}}
	switch res.Outcome {
	case rules.OutcomeEnded:
		m.state = StateEnded
	case rules.OutcomeStarvation:
		m.state = StateStarvation
		m.armStarvationTimer()
	default:
		m.state = StateAwaitingMove
		if m.game.IsDisconnected(m.game.CurrentPlayerID) {
			m.state = StatePaused
		} else {
			m.armTurnTimer()
		}
	}
	trs = append(trs, Transition{GameID: m.gameID, From: StateCheckingGameEnd, To: m.state})
	return trs
}

// SubmitStarvationChoice records one player's sacrifice. When every player
// with candidates has chosen, the cull resolves immediately.
func (m *Machine) SubmitStarvationChoice(playerID, pieceID string) error {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	m.mu.Lock()
	if m.state != StateStarvation {
		m.mu.Unlock()
		return ErrBadState
	}
	if m.game.PlayerByID(playerID) == nil {
		m.mu.Unlock()
		return ErrPlayerNotFound
	}
	if _, dup := m.game.StarvationChoices[playerID]; dup {
		m.mu.Unlock()
		return ErrDuplicateChoice
	}
	valid := false
	for _, id := range m.game.StarvationCandidates[playerID] {
		if id == pieceID {
			valid = true
			break
		}
	}
	if !valid {
		m.mu.Unlock()
		return ErrInvalidCandidate
	}
	if m.game.StarvationChoices == nil {
		m.game.StarvationChoices = make(map[string]string)
	}
	m.game.StarvationChoices[playerID] = pieceID

	if !m.allChoicesIn() {
		m.mu.Unlock()
		return nil
	}
	trs, err := m.resolveStarvationLocked()
	m.mu.Unlock()
	if err != nil {
		return err
	}
	m.notify(trs)
	return nil
}

// allChoicesIn reports whether every non-eliminated player with candidates
// has chosen. Caller holds the lock.
func (m *Machine) allChoicesIn() bool {
	for _, pl := range m.game.Players {
		if pl.IsEliminated || len(m.game.StarvationCandidates[pl.ID]) == 0 {
			continue
		}
		if _, ok := m.game.StarvationChoices[pl.ID]; !ok {
			return false
		}
	}
	return true
}

// resolveStarvationLocked applies the cull and leaves starvation. Caller
// holds the lock.
func (m *Machine) resolveStarvationLocked() ([]Transition, error) {
	res, err := rules.ResolveStarvation(m.game, m.game.StarvationChoices)
	if err != nil {
		return nil, err
	}
	return m.commitResolution(res), nil
}

// Disconnect marks a player disconnected. If it is their turn the game
// pauses until they return; a paused game never times out.
func (m *Machine) Disconnect(playerID string) error {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	m.mu.Lock()
	switch m.state {
	case StateAwaitingMove, StateStarvation, StatePaused:
	default:
		m.mu.Unlock()
		return ErrBadState
	}
	if m.game.PlayerByID(playerID) == nil {
		m.mu.Unlock()
		return ErrPlayerNotFound
	}
	if !m.game.IsDisconnected(playerID) {
		m.game.DisconnectedPlayers = append(m.game.DisconnectedPlayers, playerID)
	}
	var trs []Transition
	if m.state == StateAwaitingMove && m.game.CurrentPlayerID == playerID {
		m.cancelTimers()
		trs = append(trs, Transition{GameID: m.gameID, From: m.state, To: StatePaused})
		m.state = StatePaused
	}
	m.mu.Unlock()
	m.notify(trs)
	return nil
}

// Reconnect lifts a disconnection. If the game was paused for this player
// it resumes and the turn timer restarts from zero.
func (m *Machine) Reconnect(playerID string) error {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	m.mu.Lock()
	switch m.state {
	case StateAwaitingMove, StateStarvation, StatePaused:
	default:
		m.mu.Unlock()
		return ErrBadState
	}
	if !m.game.IsDisconnected(playerID) {
		m.mu.Unlock()
		return ErrNotDisconnected
	}
	for i, id := range m.game.DisconnectedPlayers {
		if id == playerID {
			m.game.DisconnectedPlayers = append(m.game.DisconnectedPlayers[:i], m.game.DisconnectedPlayers[i+1:]...)
			break
		}
	}
	var trs []Transition
	if m.state == StatePaused {
		trs = append(trs, Transition{GameID: m.gameID, From: StatePaused, To: StateAwaitingMove})
		m.state = StateAwaitingMove
		m.armTurnTimer()
	}
	m.mu.Unlock()
	m.notify(trs)
	return nil
}

// notify delivers transitions to subscribers. The caller holds notifyMu
// but not mu, so subscribers may read the machine; notifyMu keeps two
// commits from interleaving their notifications.
func (m *Machine) notify(trs []Transition) {
	if len(trs) == 0 {
		return
	}
	m.mu.Lock()
	subs := make([]Subscriber, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()
	for _, tr := range trs {
		for _, fn := range subs {
			fn(tr)
		}
	}
}

// armTurnTimer schedules a turn skip when the config has a timer. Caller
// holds the lock.
func (m *Machine) armTurnTimer() {
	if m.stopped || m.game.Config.TurnTimerMs == nil {
		return
	}
	d := time.Duration(*m.game.Config.TurnTimerMs) * time.Millisecond
	turn := m.game.TurnNumber
	m.turnTimer = time.AfterFunc(d, func() { m.onTurnTimeout(turn) })
}

// onTurnTimeout skips the turn if the game is still waiting on the same
// turn the timer was armed for.
func (m *Machine) onTurnTimeout(turn int) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	m.mu.Lock()
	if m.stopped || m.state != StateAwaitingMove || m.game.TurnNumber != turn {
		m.mu.Unlock()
		return
	}
	res, err := rules.SkipTurn(m.game)
	if err != nil {
		m.mu.Unlock()
		log.Error().Err(err).Str("gameId", m.gameID).Msg("Turn skip failed")
		return
	}
	log.Info().Str("gameId", m.gameID).Int("turn", turn).Msg("Turn timer fired, skipping turn")
	trs := m.commitResolution(res)
	m.mu.Unlock()
	m.notify(trs)
}

// armStarvationTimer schedules the choice auto-fill backstop. Caller holds
// the lock.
func (m *Machine) armStarvationTimer() {
	if m.stopped {
		return
	}
	d := defaultStarvationTimeout
	if m.game.Config.TurnTimerMs != nil {
		d = time.Duration(*m.game.Config.TurnTimerMs) * time.Millisecond
	}
	round := m.game.RoundNumber
	m.starvationTimer = time.AfterFunc(d, func() { m.onStarvationTimeout(round) })
}

// onStarvationTimeout resolves the cull with whatever choices arrived;
// missing ones fall back to each player's first candidate.
func (m *Machine) onStarvationTimeout(round int) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	m.mu.Lock()
	if m.stopped || m.state != StateStarvation || m.game.RoundNumber != round {
		m.mu.Unlock()
		return
	}
	log.Info().Str("gameId", m.gameID).Int("round", round).Msg("Starvation timeout, auto-filling choices")
	trs, err := m.resolveStarvationLocked()
	m.mu.Unlock()
	if err != nil {
		log.Error().Err(err).Str("gameId", m.gameID).Msg("Starvation resolution failed")
		return
	}
	m.notify(trs)
}

// cancelTimers stops any armed timers. Caller holds the lock.
func (m *Machine) cancelTimers() {
	if m.turnTimer != nil {
		m.turnTimer.Stop()
		m.turnTimer = nil
	}
	if m.starvationTimer != nil {
		m.starvationTimer.Stop()
		m.starvationTimer = nil
	}
}
