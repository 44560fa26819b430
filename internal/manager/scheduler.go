package manager

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/skagen/thronehex/internal/ai"
	"github.com/skagen/thronehex/internal/machine"
	"github.com/skagen/thronehex/pkg/rules"
)

// aiThinkTimeout bounds a single AI deliberation. On expiry the scheduler
// falls back to a random legal move so a slow model never stalls a game.
const aiThinkTimeout = 10 * time.Second

// scheduleAI inspects the machine state after a transition and spawns
// deliberation goroutines for any AI seat that owes an action. Dedupe keys
// keep the bursts of transitions a single move produces from scheduling the
// same deliberation twice.
func (m *Manager) scheduleAI(gameID string, mg *managedGame, to machine.State) {
	switch to {
	case machine.StateAwaitingMove:
		_, gs := mg.machine.Snapshot()
		pid := gs.CurrentPlayerID
		player := mg.aiFor(pid)
		if player == nil {
			return
		}
		m.pruneDedupe(gameID, "move", gs.TurnNumber)
		key := fmt.Sprintf("%s:move:%s:%d", gameID, pid, gs.TurnNumber)
		if _, seen := m.aiDedupe.LoadOrStore(key, struct{}{}); seen {
			return
		}
		m.wg.Add(1)
		go m.runAIMove(gameID, pid, player, gs, gs.TurnNumber)

	case machine.StateStarvation:
		_, gs := mg.machine.Snapshot()
		m.pruneDedupe(gameID, "starve", gs.RoundNumber)
		mg.mu.Lock()
		seats := append([]string(nil), mg.aiOrder...)
		mg.mu.Unlock()
		for _, pid := range seats {
			if len(gs.StarvationCandidates[pid]) == 0 {
				continue
			}
			if _, chosen := gs.StarvationChoices[pid]; chosen {
				continue
			}
			player := mg.aiFor(pid)
			if player == nil {
				continue
			}
			key := fmt.Sprintf("%s:starve:%s:%d", gameID, pid, gs.RoundNumber)
			if _, seen := m.aiDedupe.LoadOrStore(key, struct{}{}); seen {
				continue
			}
			m.wg.Add(1)
			go m.runAIStarvation(gameID, pid, player, gs)
		}
	}
}

// runAIMove asks the seat's AI for a move and submits it through the same
// serialized pipeline humans use. The captured turn number doubles as the
// staleness guard: if the game moved on, the submission is rejected and
// dropped.
func (m *Manager) runAIMove(gameID, playerID string, player ai.Player, gs *rules.GameState, turn int) {
	defer m.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), aiThinkTimeout)
	cmd, err := player.GenerateMove(ctx, gs, playerID)
	cancel()
	if err != nil {
		if errors.Is(err, ai.ErrNoLegalMoves) {
			log.Debug().Str("gameId", gameID).Str("playerId", playerID).Msg("AI has no legal moves")
			return
		}
		log.Warn().Err(err).Str("gameId", gameID).Str("playerId", playerID).Msg("AI deliberation failed, falling back to random")
		cmd, err = ai.NewRandom().GenerateMove(context.Background(), gs, playerID)
		if err != nil {
			log.Error().Err(err).Str("gameId", gameID).Str("playerId", playerID).Msg("Random fallback failed")
			return
		}
	}

	result, err := m.MakeMove(gameID, playerID, cmd, &turn)
	if err != nil {
		log.Error().Err(err).Str("gameId", gameID).Str("playerId", playerID).Msg("AI move submission failed")
		return
	}
	if !result.Success && result.Error != "Stale move request" && result.Error != "Not your turn" {
		// The deliberation raced a concurrent change of the board. One
		// random retry against the current state settles it.
		cmd, rerr := ai.NewRandom().GenerateMove(context.Background(), freshState(m, gameID, gs), playerID)
		if rerr == nil {
			result, err = m.MakeMove(gameID, playerID, cmd, &turn)
			if err != nil {
				return
			}
		}
	}
	if result.Success {
		for _, cb := range m.aiCallbacks() {
			cb(gameID, playerID, result)
		}
	} else {
		log.Debug().Str("gameId", gameID).Str("playerId", playerID).Str("error", result.Error).Msg("AI move dropped")
	}
}

// runAIStarvation asks the seat's AI which warrior to sacrifice, falling
// back to the first candidate on failure or timeout.
func (m *Manager) runAIStarvation(gameID, playerID string, player ai.Player, gs *rules.GameState) {
	defer m.wg.Done()

	candidates := gs.StarvationCandidates[playerID]
	ctx, cancel := context.WithTimeout(context.Background(), aiThinkTimeout)
	choice, err := player.ChooseStarvation(ctx, gs, playerID, candidates)
	cancel()
	if err != nil || choice == "" {
		if err != nil {
			log.Warn().Err(err).Str("gameId", gameID).Str("playerId", playerID).Msg("AI starvation choice failed, using first candidate")
		}
		choice = candidates[0]
	}

	if err := m.SubmitStarvationChoice(gameID, playerID, choice); err != nil {
		switch {
		case errors.Is(err, machine.ErrDuplicateChoice), errors.Is(err, machine.ErrBadState):
			// The starvation round resolved while the AI was thinking.
		default:
			log.Error().Err(err).Str("gameId", gameID).Str("playerId", playerID).Msg("AI starvation submission failed")
		}
	}
}

// pruneDedupe drops a game's scheduling keys from earlier turns or rounds,
// keeping the dedupe set bounded by the deliberations still in flight.
func (m *Manager) pruneDedupe(gameID, kind string, current int) {
	prefix := gameID + ":" + kind + ":"
	m.aiDedupe.Range(func(key, _ any) bool {
		k, ok := key.(string)
		if !ok || !strings.HasPrefix(k, prefix) {
			return true
		}
		if i := strings.LastIndexByte(k, ':'); i >= 0 {
			if n, err := strconv.Atoi(k[i+1:]); err == nil && n < current {
				m.aiDedupe.Delete(key)
			}
		}
		return true
	})
}

// freshState refetches the current context, falling back to the stale copy
// if the game vanished mid-flight.
func freshState(m *Manager, gameID string, fallback *rules.GameState) *rules.GameState {
	if _, gs, err := m.GetState(gameID); err == nil {
		return gs
	}
	return fallback
}
