package ai

import (
	"context"
	"math/rand"
	"sync"

	"github.com/skagen/thronehex/pkg/hex"
	"github.com/skagen/thronehex/pkg/rules"
)

// Heuristic scores every legal move with a one-ply lookahead and picks
// randomly among the top candidates, so repeated games do not unfold
// identically.
type Heuristic struct {
	mu   sync.Mutex
	rng  *rand.Rand
	topN int
}

const defaultTopN = 3

// NewHeuristic creates a Heuristic player. topN <= 0 uses the default pool
// size.
func NewHeuristic(topN int) *Heuristic {
	if topN <= 0 {
		topN = defaultTopN
	}
	return &Heuristic{rng: rand.New(rand.NewSource(rand.Int63())), topN: topN}
}

// Configure adjusts the candidate pool size.
func (h *Heuristic) Configure(cfg Config) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cfg.TopN > 0 {
		h.topN = cfg.TopN
	}
	return nil
}

func (h *Heuristic) GenerateMove(ctx context.Context, state *rules.GameState, playerID string) (rules.MoveCommand, error) {
	moves := rules.LegalMoves(state, playerID)
	if len(moves) == 0 {
		return rules.MoveCommand{}, ErrNoLegalMoves
	}

	type scored struct {
		cmd   rules.MoveCommand
		score int
	}
	ranked := make([]scored, 0, len(moves))
	for _, cmd := range moves {
		select {
		case <-ctx.Done():
			return rules.MoveCommand{}, ctx.Err()
		default:
		}
		res, err := rules.ApplyMove(state, playerID, cmd)
		if err != nil || !res.Validation.Valid {
			continue
		}
		ranked = append(ranked, scored{cmd: cmd, score: scoreResolution(res, playerID)})
	}
	if len(ranked) == 0 {
		return rules.MoveCommand{}, ErrNoLegalMoves
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	// Partial selection sort: only the top of the pool matters.
	n := h.topN
	if n > len(ranked) {
		n = len(ranked)
	}
	for i := 0; i < n; i++ {
		best := i
		for j := i + 1; j < len(ranked); j++ {
			if ranked[j].score > ranked[best].score {
				best = j
			}
		}
		ranked[i], ranked[best] = ranked[best], ranked[i]
	}
	return ranked[h.rng.Intn(n)].cmd, nil
}

// ChooseStarvation keeps the warrior closest to the action by sacrificing
// the first candidate, which the rules order by enumeration.
func (h *Heuristic) ChooseStarvation(_ context.Context, state *rules.GameState, _ string, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", ErrNoLegalMoves
	}
	// Prefer sacrificing the candidate farthest from the throne.
	best := candidates[0]
	bestDist := -1
	for _, id := range candidates {
		p := state.PieceByID(id)
		if p == nil {
			continue
		}
		if d := hex.Distance(p.Position, hex.Throne); d > bestDist {
			bestDist = d
			best = id
		}
	}
	return best, nil
}

// scoreResolution values a resolved move for the acting player: winning
// dominates, eliminations and pushes score, and the jarl is pulled toward
// the throne.
func scoreResolution(res *rules.MoveResolution, playerID string) int {
	score := 0
	if res.Outcome == rules.OutcomeEnded && res.State.WinnerID == playerID {
		return 1_000_000
	}
	for _, ev := range res.Events {
		switch ev.Type {
		case rules.EventEliminated:
			if ev.PlayerID == playerID {
				score -= 120
			} else {
				score += 80
			}
		case rules.EventPush:
			if ev.PlayerID != playerID {
				score += 10
			}
		}
	}
	if jarl := res.State.JarlOf(playerID); jarl != nil {
		score -= 5 * hex.Distance(jarl.Position, hex.Throne)
	}
	if res.Combat != nil && !res.Combat.Pushed {
		score -= 30
	}
	return score
}
