// Command simulate runs AI-vs-AI games headlessly and prints aggregate
// results, for balance testing and AI comparison.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/skagen/thronehex/internal/ai"
	"github.com/skagen/thronehex/pkg/rules"
)

// matchResult summarizes one finished game.
type matchResult struct {
	Winner       string `json:"winner"`       // difficulty of the winning seat, empty on draw
	WinnerSeat   string `json:"winnerSeat"`   // player id of the winner
	WinCondition string `json:"winCondition"` //
	Turns        int    `json:"turns"`
	Rounds       int    `json:"rounds"`
}

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	var (
		matchup  string
		numGames int
		workers  int
		players  int
		radius   int
		warriors int
		terrain  string
		maxTurns int
		seed     int64
		jsonOut  bool
	)

	flag.StringVar(&matchup, "matchup", "easy-vs-easy", "Difficulty per seat, e.g. medium-vs-easy or easy,medium,medium")
	flag.IntVar(&numGames, "n", 1, "Number of games to run")
	flag.IntVar(&workers, "workers", 1, "Concurrency (parallel games)")
	flag.IntVar(&players, "players", 0, "Player count (0 = derive from matchup)")
	flag.IntVar(&radius, "radius", 5, "Board radius")
	flag.IntVar(&warriors, "warriors", 5, "Warriors per player")
	flag.StringVar(&terrain, "terrain", "calm", "Terrain: calm, treacherous or chaotic")
	flag.IntVar(&maxTurns, "max-turns", 500, "Max turns before a game is declared drawn")
	flag.Int64Var(&seed, "seed", 0, "Base seed (0 = random)")
	flag.BoolVar(&jsonOut, "json", false, "Output results as JSON")
	flag.Parse()

	difficulties := parseMatchup(matchup)
	if players == 0 {
		players = len(difficulties)
	}
	for len(difficulties) < players {
		difficulties = append(difficulties, difficulties[len(difficulties)-1])
	}
	if players < 2 {
		log.Fatal().Msg("Need at least 2 seats")
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	cfg := rules.Config{
		PlayerCount:  players,
		BoardRadius:  radius,
		WarriorCount: warriors,
		Terrain:      rules.Terrain(terrain),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("Shutting down...")
		cancel()
	}()

	results := make([]*matchResult, numGames)
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	errCount := 0

	for i := 0; i < numGames; i++ {
		wg.Add(1)
		sem <- struct{}{}

		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			result, err := runGame(ctx, cfg, difficulties, seed+int64(idx), maxTurns)
			if err != nil {
				log.Error().Err(err).Int("game", idx+1).Msg("Game failed")
				mu.Lock()
				errCount++
				mu.Unlock()
				return
			}

			mu.Lock()
			results[idx] = result
			mu.Unlock()

			log.Info().Int("game", idx+1).Str("winner", result.Winner).Int("turns", result.Turns).Msg("Game completed")
		}(i)
	}

	wg.Wait()

	if jsonOut {
		printJSON(results, numGames, errCount)
	} else {
		printSummary(results, difficulties, errCount)
	}
}

// runGame plays one full game with the given seat difficulties.
func runGame(ctx context.Context, cfg rules.Config, difficulties []string, seed int64, maxTurns int) (*matchResult, error) {
	rng := rand.New(rand.NewSource(seed))

	gs := &rules.GameState{GameID: fmt.Sprintf("sim-%d", seed), Config: cfg}
	bots := make(map[string]ai.Player, cfg.PlayerCount)
	seatDiff := make(map[string]string, cfg.PlayerCount)
	for i := 0; i < cfg.PlayerCount; i++ {
		id := fmt.Sprintf("p%d", i+1)
		gs.Players = append(gs.Players, rules.Player{ID: id, Name: id, IsAI: true})
		player, err := ai.New(ai.Config{Difficulty: ai.Difficulty(difficulties[i])})
		if err != nil {
			return nil, fmt.Errorf("seat %d: %w", i+1, err)
		}
		bots[id] = player
		seatDiff[id] = difficulties[i]
	}
	if err := rules.SetupBoard(gs, rng); err != nil {
		return nil, fmt.Errorf("setup: %w", err)
	}

	for gs.WinnerID == "" {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if gs.TurnNumber > maxTurns {
			return &matchResult{Turns: gs.TurnNumber, Rounds: gs.RoundNumber}, nil
		}

		pid := gs.CurrentPlayerID
		var res *rules.MoveResolution
		cmd, err := bots[pid].GenerateMove(ctx, gs, pid)
		if err != nil {
			res, err = rules.SkipTurn(gs)
			if err != nil {
				return nil, fmt.Errorf("skip turn %d: %w", gs.TurnNumber, err)
			}
		} else {
			res, err = rules.ApplyMove(gs, pid, cmd)
			if err != nil {
				return nil, fmt.Errorf("turn %d: %w", gs.TurnNumber, err)
			}
			if !res.Validation.Valid {
				return nil, fmt.Errorf("turn %d: AI proposed illegal move (%s)", gs.TurnNumber, res.Validation.Reason)
			}
		}
		gs = res.State

		if res.Outcome == rules.OutcomeStarvation {
			choices := make(map[string]string)
			for playerID, candidates := range gs.StarvationCandidates {
				if len(candidates) == 0 {
					continue
				}
				choice, err := bots[playerID].ChooseStarvation(ctx, gs, playerID, candidates)
				if err != nil {
					choice = candidates[0]
				}
				choices[playerID] = choice
			}
			res, err = rules.ResolveStarvation(gs, choices)
			if err != nil {
				return nil, fmt.Errorf("starvation round %d: %w", gs.RoundNumber, err)
			}
			gs = res.State
		}
	}

	return &matchResult{
		Winner:       seatDiff[gs.WinnerID],
		WinnerSeat:   gs.WinnerID,
		WinCondition: string(gs.WinCondition),
		Turns:        gs.TurnNumber,
		Rounds:       gs.RoundNumber,
	}, nil
}

// parseMatchup handles both "medium-vs-easy" and "easy,medium,hard".
func parseMatchup(s string) []string {
	var parts []string
	if strings.Contains(s, "-vs-") {
		parts = strings.Split(s, "-vs-")
	} else {
		parts = strings.Split(s, ",")
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		out = []string{"easy", "easy"}
	}
	return out
}

func printSummary(results []*matchResult, difficulties []string, errCount int) {
	type stats struct {
		wins  int
		turns int
	}
	byDiff := make(map[string]*stats)
	for _, d := range difficulties {
		if byDiff[d] == nil {
			byDiff[d] = &stats{}
		}
	}

	completed, draws, totalTurns := 0, 0, 0
	for _, r := range results {
		if r == nil {
			continue
		}
		completed++
		totalTurns += r.Turns
		if r.Winner == "" {
			draws++
			continue
		}
		byDiff[r.Winner].wins++
	}

	fmt.Printf("\nResults (%d games", completed)
	if errCount > 0 {
		fmt.Printf(", %d failed", errCount)
	}
	fmt.Printf("):\n")
	for d, s := range byDiff {
		fmt.Printf("  %-8s %d wins\n", d, s.wins)
	}
	fmt.Printf("  draws    %d\n", draws)
	if completed > 0 {
		fmt.Printf("  avg game length: %.1f turns\n", float64(totalTurns)/float64(completed))
	}
}

func printJSON(results []*matchResult, total, errCount int) {
	out := struct {
		Total   int            `json:"total"`
		Errors  int            `json:"errors"`
		Results []*matchResult `json:"results"`
	}{
		Total:   total,
		Errors:  errCount,
		Results: results,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(out)
}
