package ai

import (
	"context"
	"math/rand"
	"sync"

	"github.com/skagen/thronehex/pkg/rules"
)

// Random plays a uniformly random legal move. It is also the scheduler's
// zero-delay fallback when a slower AI errors or times out.
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom creates a Random player.
func NewRandom() *Random {
	return &Random{rng: rand.New(rand.NewSource(rand.Int63()))}
}

// NewRandomWithSeed creates a Random player with a fixed seed for
// reproducible simulations.
func NewRandomWithSeed(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

func (r *Random) GenerateMove(_ context.Context, state *rules.GameState, playerID string) (rules.MoveCommand, error) {
	moves := rules.LegalMoves(state, playerID)
	if len(moves) == 0 {
		return rules.MoveCommand{}, ErrNoLegalMoves
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return moves[r.rng.Intn(len(moves))], nil
}

func (r *Random) ChooseStarvation(_ context.Context, _ *rules.GameState, _ string, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", ErrNoLegalMoves
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return candidates[r.rng.Intn(len(candidates))], nil
}
