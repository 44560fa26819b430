package rules

import (
	"math/rand"
	"testing"

	"github.com/skagen/thronehex/pkg/hex"
)

func TestSetupBoardTwoPlayers(t *testing.T) {
	gs := testState()
	rng := rand.New(rand.NewSource(42))
	if err := SetupBoard(gs, rng); err != nil {
		t.Fatalf("SetupBoard: %v", err)
	}

	for _, pl := range gs.Players {
		jarl := gs.JarlOf(pl.ID)
		if jarl == nil {
			t.Fatalf("player %s has no jarl", pl.ID)
		}
		if !hex.OnEdge(jarl.Position, gs.Config.BoardRadius) {
			t.Errorf("jarl of %s at %v is not on the edge", pl.ID, jarl.Position)
		}
		if got := gs.WarriorCount(pl.ID); got != gs.Config.WarriorCount {
			t.Errorf("player %s has %d warriors, want %d", pl.ID, got, gs.Config.WarriorCount)
		}
	}

	if len(gs.Holes) != gs.Config.Terrain.HoleCount() {
		t.Errorf("holes = %d, want %d", len(gs.Holes), gs.Config.Terrain.HoleCount())
	}
	for _, h := range gs.Holes {
		if h == hex.Throne {
			t.Error("hole on the throne")
		}
		if hex.OnEdge(h, gs.Config.BoardRadius) {
			t.Errorf("hole %v on the edge", h)
		}
		for _, pl := range gs.Players {
			for _, line := range hex.Line(gs.JarlOf(pl.ID).Position, hex.Throne) {
				if h == line {
					t.Errorf("hole %v sits on the jarl-to-throne line of %s", h, pl.ID)
				}
			}
		}
	}

	if ok, reason := gs.ValidatePositions(); !ok {
		t.Errorf("invalid positions after setup: %s", reason)
	}
	if gs.CurrentPlayerID != gs.Players[0].ID {
		t.Errorf("current player = %s, want the first seat", gs.CurrentPlayerID)
	}
	if gs.TurnNumber != 1 || gs.RoundNumber != 1 {
		t.Errorf("turn=%d round=%d, want 1/1", gs.TurnNumber, gs.RoundNumber)
	}
}

func TestSetupBoardDeterministicForSeed(t *testing.T) {
	a := testState()
	b := testState()
	if err := SetupBoard(a, rand.New(rand.NewSource(7))); err != nil {
		t.Fatalf("SetupBoard: %v", err)
	}
	if err := SetupBoard(b, rand.New(rand.NewSource(7))); err != nil {
		t.Fatalf("SetupBoard: %v", err)
	}
	if len(a.Holes) != len(b.Holes) {
		t.Fatalf("hole counts differ: %d vs %d", len(a.Holes), len(b.Holes))
	}
	for i := range a.Holes {
		if a.Holes[i] != b.Holes[i] {
			t.Errorf("hole %d differs: %v vs %v", i, a.Holes[i], b.Holes[i])
		}
	}
	for i := range a.Pieces {
		if a.Pieces[i] != b.Pieces[i] {
			t.Errorf("piece %d differs: %+v vs %+v", i, a.Pieces[i], b.Pieces[i])
		}
	}
}

func TestSetupBoardFourPlayers(t *testing.T) {
	gs := testState()
	gs.Config.PlayerCount = 4
	gs.Players = []Player{
		{ID: "a", Name: "Astrid"},
		{ID: "b", Name: "Bjorn"},
		{ID: "c", Name: "Canute"},
		{ID: "d", Name: "Dagny"},
	}
	if err := SetupBoard(gs, rand.New(rand.NewSource(3))); err != nil {
		t.Fatalf("SetupBoard: %v", err)
	}
	// Jarls spread around the ring: pairwise distance at least the radius.
	for i := range gs.Players {
		for j := i + 1; j < len(gs.Players); j++ {
			a := gs.JarlOf(gs.Players[i].ID).Position
			b := gs.JarlOf(gs.Players[j].ID).Position
			if hex.Distance(a, b) < gs.Config.BoardRadius {
				t.Errorf("jarls %v and %v too close", a, b)
			}
		}
	}
	if ok, reason := gs.ValidatePositions(); !ok {
		t.Errorf("invalid positions after setup: %s", reason)
	}
}

func TestLegalMovesMatchValidator(t *testing.T) {
	gs := testState()
	if err := SetupBoard(gs, rand.New(rand.NewSource(11))); err != nil {
		t.Fatalf("SetupBoard: %v", err)
	}
	moves := LegalMoves(gs, gs.CurrentPlayerID)
	if len(moves) == 0 {
		t.Fatal("fresh board should offer legal moves")
	}
	for _, m := range moves {
		if v := ValidateMove(gs, gs.CurrentPlayerID, m); !v.Valid {
			t.Errorf("enumerated move %+v rejected: %s", m, v.Reason)
		}
	}
}

func TestLegalMovesNeverEnterHoles(t *testing.T) {
	gs := testState()
	gs.Holes = []hex.Hex{{Q: 1, R: 0}, {Q: 2, R: 1}}
	place(gs, "aw", Warrior, "a", 2, 0)
	place(gs, "aj", Jarl, "a", 5, 0)

	for _, m := range LegalMoves(gs, "a") {
		if gs.IsHole(m.Destination) {
			t.Errorf("enumerated move %+v lands on a hole", m)
		}
	}
}
