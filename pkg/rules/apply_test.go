package rules

import (
	"testing"

	"github.com/skagen/thronehex/pkg/hex"
)

func TestThroneVictoryByTruncatedMove(t *testing.T) {
	gs := testState()
	gs.Config.BoardRadius = 3
	place(gs, "aj", Jarl, "a", 2, 0)
	place(gs, "aw1", Warrior, "a", 3, 0)
	place(gs, "aw2", Warrior, "a", 3, -1)
	place(gs, "bj", Jarl, "b", -3, 0)

	res, err := ApplyMove(gs, "a", MoveCommand{PieceID: "aj", Destination: hex.Hex{Q: 0, R: 0}})
	if err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	if !res.Validation.Valid {
		t.Fatalf("move rejected: %s", res.Validation.Reason)
	}
	if res.Outcome != OutcomeEnded {
		t.Fatalf("outcome = %s, want ended", res.Outcome)
	}
	if res.State.WinnerID != "a" || res.State.WinCondition != WinThrone {
		t.Errorf("winner=%s condition=%s, want a/throne", res.State.WinnerID, res.State.WinCondition)
	}
	if got := res.State.PieceByID("aj").Position; got != hex.Throne {
		t.Errorf("jarl at %v, want throne", got)
	}
	// The input state is untouched.
	if gs.WinnerID != "" {
		t.Error("ApplyMove mutated its input")
	}
}

func TestEdgePushElimination(t *testing.T) {
	gs := testState()
	place(gs, "aw", Warrior, "a", 3, 0)
	place(gs, "aw2", Warrior, "a", 2, 0)
	place(gs, "aj", Jarl, "a", 1, 0)
	place(gs, "bw1", Warrior, "b", 4, 0)
	place(gs, "bw2", Warrior, "b", 5, 0)
	place(gs, "bj", Jarl, "b", -3, 0)

	res, err := ApplyMove(gs, "a", MoveCommand{PieceID: "aw", Destination: hex.Hex{Q: 4, R: 0}})
	if err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	if !res.Validation.Valid {
		t.Fatalf("move rejected: %s", res.Validation.Reason)
	}
	if res.Combat == nil || !res.Combat.Pushed {
		t.Fatalf("combat = %+v, want push", res.Combat)
	}
	st := res.State
	if st.PieceByID("bw2") != nil {
		t.Error("bw2 should be eliminated off the edge")
	}
	if got := st.PieceByID("bw1").Position; got != (hex.Hex{Q: 5, R: 0}) {
		t.Errorf("bw1 at %v, want (5,0)", got)
	}
	if got := st.PieceByID("aw").Position; got != (hex.Hex{Q: 4, R: 0}) {
		t.Errorf("attacker at %v, want defender's old hex (4,0)", got)
	}
	var sawElim bool
	for _, ev := range res.Events {
		if ev.Type == EventEliminated && ev.Cause == CauseEdge {
			sawElim = true
		}
	}
	if !sawElim {
		t.Error("missing ELIMINATED{edge} event")
	}
	if st.CurrentPlayerID != "b" {
		t.Errorf("current player = %s, want b", st.CurrentPlayerID)
	}
}

func TestThroneCompressionConsumesTurn(t *testing.T) {
	gs := testState()
	place(gs, "aj", Jarl, "a", 2, 0)
	place(gs, "aw1", Warrior, "a", 3, 0)
	place(gs, "aw2", Warrior, "a", 4, 0)
	place(gs, "bw", Warrior, "b", 1, 0)
	place(gs, "bj", Jarl, "b", -4, 0)

	// Supported jarl attack on the warrior pinned against the throne:
	// attack 4 vs defense 1, push resolves as compression.
	res, err := ApplyMove(gs, "a", MoveCommand{PieceID: "aj", Destination: hex.Hex{Q: 1, R: 0}})
	if err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	if !res.Validation.Valid {
		t.Fatalf("move rejected: %s", res.Validation.Reason)
	}
	st := res.State
	if got := st.PieceByID("bw").Position; got != (hex.Hex{Q: 1, R: 0}) {
		t.Errorf("defender at %v, want unchanged", got)
	}
	if got := st.PieceByID("aj").Position; got != (hex.Hex{Q: 2, R: 0}) {
		t.Errorf("attacker at %v, want unchanged", got)
	}
	for _, ev := range res.Events {
		if ev.Type == EventEliminated {
			t.Errorf("no elimination expected, got %+v", ev)
		}
	}
	if st.CurrentPlayerID != "b" || st.TurnNumber != 2 {
		t.Errorf("turn did not advance: player=%s turn=%d", st.CurrentPlayerID, st.TurnNumber)
	}
}

func TestBlockedAttackConsumesTurn(t *testing.T) {
	gs := testState()
	place(gs, "aw", Warrior, "a", 2, 0)
	place(gs, "bw", Warrior, "b", 3, 0)
	place(gs, "bw2", Warrior, "b", 4, 0)
	place(gs, "aj", Jarl, "a", -3, 0)
	place(gs, "bj", Jarl, "b", -4, 0)

	res, err := ApplyMove(gs, "a", MoveCommand{PieceID: "aw", Destination: hex.Hex{Q: 3, R: 0}})
	if err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	if !res.Validation.Valid {
		t.Fatalf("move rejected: %s", res.Validation.Reason)
	}
	if res.Combat == nil || res.Combat.Pushed {
		t.Fatalf("combat = %+v, want blocked", res.Combat)
	}
	st := res.State
	if got := st.PieceByID("aw").Position; got != (hex.Hex{Q: 2, R: 0}) {
		t.Errorf("attacker at %v, want unchanged", got)
	}
	for _, ev := range res.Events {
		if ev.Type == EventMove {
			t.Errorf("blocked attack must not emit MOVE, got %+v", ev)
		}
	}
	if st.CurrentPlayerID != "b" || st.TurnNumber != 2 {
		t.Errorf("turn did not advance: player=%s turn=%d", st.CurrentPlayerID, st.TurnNumber)
	}
	if len(st.MoveHistory) != 1 {
		t.Errorf("move history length = %d, want 1", len(st.MoveHistory))
	}
}

func TestJarlEliminationCascade(t *testing.T) {
	gs := testState()
	gs.Holes = []hex.Hex{{Q: 1, R: 0}}
	place(gs, "aw", Warrior, "a", 3, 0)
	place(gs, "aj", Jarl, "a", 4, 0)
	place(gs, "bj", Jarl, "b", 2, 0)
	place(gs, "bw", Warrior, "b", -2, 2)

	res, err := ApplyMove(gs, "a", MoveCommand{PieceID: "aw", Destination: hex.Hex{Q: 2, R: 0}})
	if err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	st := res.State
	if st.PieceByID("bj") != nil {
		t.Error("jarl should fall into the hole")
	}
	if st.PieceByID("bw") != nil {
		t.Error("remaining pieces of an eliminated player must be removed")
	}
	pl := st.PlayerByID("b")
	if pl == nil || !pl.IsEliminated {
		t.Error("player b should be eliminated")
	}
	if res.Outcome != OutcomeEnded || st.WinnerID != "a" || st.WinCondition != WinLastStanding {
		t.Errorf("outcome=%s winner=%s cond=%s, want ended/a/lastStanding", res.Outcome, st.WinnerID, st.WinCondition)
	}
}

func TestTurnRotationAcrossRounds(t *testing.T) {
	gs := testState()
	gs.Players = append(gs.Players, Player{ID: "c", Name: "Canute"})
	place(gs, "aj", Jarl, "a", 4, 0)
	place(gs, "bj", Jarl, "b", -4, 0)
	place(gs, "cj", Jarl, "c", 0, -4)

	st := gs
	order := []string{"b", "c", "b"}
	for i, want := range order {
		res, err := SkipTurn(st)
		if err != nil {
			t.Fatalf("skip %d: %v", i, err)
		}
		st = res.State
		if st.CurrentPlayerID != want {
			t.Fatalf("after skip %d current = %s, want %s", i+1, st.CurrentPlayerID, want)
		}
	}
	// Third skip wrapped the round: first player rotates from seat 0 to 1.
	if st.RoundNumber != 2 || st.FirstPlayerIndex != 1 {
		t.Errorf("round=%d firstPlayerIndex=%d, want 2 and 1", st.RoundNumber, st.FirstPlayerIndex)
	}
	if st.RoundsSinceElimination != 1 {
		t.Errorf("roundsSinceElimination = %d, want 1", st.RoundsSinceElimination)
	}
	if st.TurnNumber != 4 {
		t.Errorf("turnNumber = %d, want 4", st.TurnNumber)
	}
}

func TestRotationSkipsEliminatedPlayers(t *testing.T) {
	gs := testState()
	gs.Players = append(gs.Players, Player{ID: "c", Name: "Canute"})
	gs.Players[1].IsEliminated = true
	place(gs, "aj", Jarl, "a", 4, 0)
	place(gs, "cj", Jarl, "c", 0, -4)

	res, err := SkipTurn(gs)
	if err != nil {
		t.Fatalf("SkipTurn: %v", err)
	}
	if res.State.CurrentPlayerID != "c" {
		t.Errorf("current = %s, want c (b is eliminated)", res.State.CurrentPlayerID)
	}
}

func TestStarvationTriggersAfterDrought(t *testing.T) {
	gs := testState()
	gs.RoundsSinceElimination = 9
	gs.CurrentPlayerID = "b"
	place(gs, "aj", Jarl, "a", 4, 0)
	place(gs, "aw", Warrior, "a", 3, 0)
	place(gs, "bj", Jarl, "b", -4, 0)
	place(gs, "bw", Warrior, "b", -3, 0)

	res, err := SkipTurn(gs)
	if err != nil {
		t.Fatalf("SkipTurn: %v", err)
	}
	st := res.State
	if st.RoundsSinceElimination != 10 {
		t.Fatalf("roundsSinceElimination = %d, want 10", st.RoundsSinceElimination)
	}
	if res.Outcome != OutcomeStarvation {
		t.Fatalf("outcome = %s, want starvation", res.Outcome)
	}
	if len(st.StarvationCandidates["a"]) == 0 || len(st.StarvationCandidates["b"]) == 0 {
		t.Errorf("candidates not populated: %v", st.StarvationCandidates)
	}
	var triggered bool
	for _, ev := range res.Events {
		if ev.Type == EventStarvationTriggered {
			triggered = true
		}
	}
	if !triggered {
		t.Error("missing STARVATION_TRIGGERED event")
	}
}

func TestEliminationResetsDroughtClock(t *testing.T) {
	gs := testState()
	gs.RoundsSinceElimination = 9
	gs.CurrentPlayerID = "b"
	gs.Holes = []hex.Hex{{Q: -4, R: 0}}
	place(gs, "aj", Jarl, "a", 4, 0)
	place(gs, "aw", Warrior, "a", -3, 0)
	place(gs, "bj", Jarl, "b", 0, -4)
	place(gs, "bw", Warrior, "b", -2, 0)
	place(gs, "bw2", Warrior, "b", -1, 0)

	// b pushes a's warrior into the hole on the round's last turn.
	res, err := ApplyMove(gs, "b", MoveCommand{PieceID: "bw", Destination: hex.Hex{Q: -3, R: 0}})
	if err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	if !res.Validation.Valid {
		t.Fatalf("move rejected: %s", res.Validation.Reason)
	}
	if res.Combat == nil || !res.Combat.Pushed {
		t.Fatalf("combat = %+v, want push", res.Combat)
	}
	if res.State.RoundsSinceElimination != 0 {
		t.Errorf("roundsSinceElimination = %d, want 0 after elimination", res.State.RoundsSinceElimination)
	}
	if res.Outcome != OutcomePlaying {
		t.Errorf("outcome = %s, want playing", res.Outcome)
	}
}
