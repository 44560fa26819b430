// Package ai provides computer opponents: uniform random, heuristic, and a
// remote LLM collaborator. All implementations satisfy Player and are
// driven by the manager's scheduler, which races them against a wall-clock
// timeout and falls back to Random on any failure.
package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/skagen/thronehex/pkg/rules"
)

// Player generates moves and starvation choices for one seat.
type Player interface {
	// GenerateMove returns the move to play for playerID in the given
	// state. Implementations must honor ctx cancellation.
	GenerateMove(ctx context.Context, state *rules.GameState, playerID string) (rules.MoveCommand, error)
	// ChooseStarvation picks which candidate warrior to sacrifice.
	ChooseStarvation(ctx context.Context, state *rules.GameState, playerID string, candidates []string) (string, error)
}

// Configurable is implemented by AI players whose behavior can be tuned
// after creation. The manager probes for it with a type assertion.
type Configurable interface {
	Configure(cfg Config) error
}

// Difficulty selects a stock AI implementation.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Config tunes an AI player beyond the stock difficulties.
type Config struct {
	Difficulty Difficulty `json:"difficulty"`
	// Model and APIKey select the remote LLM; empty means no LLM.
	Model  string `json:"model,omitempty"`
	APIKey string `json:"-"`
	// TopN bounds the heuristic's candidate pool.
	TopN int `json:"topN,omitempty"`
}

// ErrNoLegalMoves is returned when the acting player has no move at all.
var ErrNoLegalMoves = errors.New("ai: no legal moves")

// ErrMissingAPIKey is returned when an LLM player is requested without
// credentials.
var ErrMissingAPIKey = errors.New("ai: LLM player requires an API key")

// New builds a stock AI for the difficulty. Hard requires LLM credentials
// and degrades to the heuristic when cfg has none.
func New(cfg Config) (Player, error) {
	switch cfg.Difficulty {
	case DifficultyEasy, "":
		return NewRandom(), nil
	case DifficultyMedium:
		return NewHeuristic(cfg.TopN), nil
	case DifficultyHard:
		if cfg.APIKey == "" {
			return NewHeuristic(cfg.TopN), nil
		}
		return NewLLM(cfg.APIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("ai: unknown difficulty %q", cfg.Difficulty)
	}
}
