package rules

import "testing"

func TestStarvationCandidatesMaxDistance(t *testing.T) {
	gs := testState()
	place(gs, "aj", Jarl, "a", 5, 0)
	place(gs, "aw1", Warrior, "a", 4, 0)
	place(gs, "aw2", Warrior, "a", 1, 0)
	place(gs, "aw3", Warrior, "a", 0, -4)
	place(gs, "bj", Jarl, "b", -5, 0)

	got := StarvationCandidates(gs)
	want := map[string]bool{"aw1": true, "aw3": true}
	if len(got["a"]) != 2 {
		t.Fatalf("candidates for a = %v, want the two distance-4 warriors", got["a"])
	}
	for _, id := range got["a"] {
		if !want[id] {
			t.Errorf("unexpected candidate %s", id)
		}
	}
	if len(got["b"]) != 0 {
		t.Errorf("candidates for warrior-less b = %v, want empty", got["b"])
	}
}

func TestResolveStarvationChoiceAndFallback(t *testing.T) {
	gs := testState()
	place(gs, "aj", Jarl, "a", 5, 0)
	place(gs, "aw1", Warrior, "a", 4, 0)
	place(gs, "aw2", Warrior, "a", 0, -4)
	place(gs, "bj", Jarl, "b", -5, 0)
	place(gs, "bw1", Warrior, "b", -4, 0)
	place(gs, "bw2", Warrior, "b", 0, 4)
	gs.RoundsSinceElimination = 10
	gs.StarvationCandidates = StarvationCandidates(gs)

	// a chooses aw2; b submits nothing and falls back to its first
	// candidate.
	res, err := ResolveStarvation(gs, map[string]string{"a": "aw2"})
	if err != nil {
		t.Fatalf("ResolveStarvation: %v", err)
	}
	st := res.State
	if st.PieceByID("aw2") != nil {
		t.Error("chosen warrior aw2 should be removed")
	}
	if st.PieceByID("aw1") == nil {
		t.Error("unchosen warrior aw1 should survive")
	}
	if st.WarriorCount("b") != 1 {
		t.Errorf("b has %d warriors, want 1 after fallback removal", st.WarriorCount("b"))
	}
	if st.RoundsSinceElimination != 0 {
		t.Errorf("roundsSinceElimination = %d, want 0", st.RoundsSinceElimination)
	}
	if st.StarvationCandidates != nil || st.StarvationChoices != nil {
		t.Error("starvation bookkeeping should be cleared")
	}
	var starved, resolved int
	for _, ev := range res.Events {
		switch ev.Type {
		case EventEliminated:
			if ev.Cause != CauseStarvation {
				t.Errorf("cause = %s, want starvation", ev.Cause)
			}
			starved++
		case EventStarvationResolved:
			resolved++
		}
	}
	if starved != 2 || resolved != 1 {
		t.Errorf("starved=%d resolved=%d, want 2 and 1", starved, resolved)
	}
	if res.Outcome != OutcomePlaying {
		t.Errorf("outcome = %s, want playing", res.Outcome)
	}
}

func TestStarvationInvalidChoiceFallsBack(t *testing.T) {
	gs := testState()
	place(gs, "aj", Jarl, "a", 5, 0)
	place(gs, "aw1", Warrior, "a", 4, 0)
	place(gs, "aw2", Warrior, "a", 1, 0)
	place(gs, "bj", Jarl, "b", -5, 0)
	gs.StarvationCandidates = StarvationCandidates(gs)

	// aw2 is closer to the throne and not a candidate; the choice is
	// ignored in favor of the first candidate.
	res, err := ResolveStarvation(gs, map[string]string{"a": "aw2"})
	if err != nil {
		t.Fatalf("ResolveStarvation: %v", err)
	}
	if res.State.PieceByID("aw1") != nil {
		t.Error("first candidate aw1 should be removed on invalid choice")
	}
	if res.State.PieceByID("aw2") == nil {
		t.Error("non-candidate aw2 must survive")
	}
}

func TestJarlGraceStartsOnLastWarriorLoss(t *testing.T) {
	gs := testState()
	place(gs, "aj", Jarl, "a", 5, 0)
	place(gs, "aw1", Warrior, "a", 4, 0)
	place(gs, "bj", Jarl, "b", -5, 0)
	place(gs, "bw1", Warrior, "b", -4, 0)
	place(gs, "bw2", Warrior, "b", 0, 4)
	gs.StarvationCandidates = StarvationCandidates(gs)

	res, err := ResolveStarvation(gs, nil)
	if err != nil {
		t.Fatalf("ResolveStarvation: %v", err)
	}
	st := res.State
	pl := st.PlayerByID("a")
	if pl.RoundsSinceLastWarrior == nil || *pl.RoundsSinceLastWarrior != 0 {
		t.Errorf("grace counter = %v, want 0", pl.RoundsSinceLastWarrior)
	}
	if st.PieceByID("aj") == nil {
		t.Error("jarl survives the round its last warrior starved")
	}
}

func TestJarlStarvesAfterGraceExpires(t *testing.T) {
	gs := testState()
	five := 5
	gs.Players[0].RoundsSinceLastWarrior = &five
	place(gs, "aj", Jarl, "a", 5, 0)
	place(gs, "bj", Jarl, "b", -5, 0)
	place(gs, "bw1", Warrior, "b", -4, 0)
	place(gs, "bw2", Warrior, "b", 0, 4)
	gs.StarvationCandidates = StarvationCandidates(gs)

	res, err := ResolveStarvation(gs, nil)
	if err != nil {
		t.Fatalf("ResolveStarvation: %v", err)
	}
	st := res.State
	if st.PieceByID("aj") != nil {
		t.Error("jarl should starve after five warrior-less rounds")
	}
	pl := st.PlayerByID("a")
	if pl == nil || !pl.IsEliminated {
		t.Error("player a should be eliminated")
	}
	var sawStarved, sawCause bool
	for _, ev := range res.Events {
		if ev.Type == EventJarlStarved && ev.PlayerID == "a" {
			sawStarved = true
		}
		if ev.Type == EventEliminated && ev.Cause == CauseJarlStarved {
			sawCause = true
		}
	}
	if !sawStarved || !sawCause {
		t.Error("missing JARL_STARVED / ELIMINATED{jarlStarvation} events")
	}
	if res.Outcome != OutcomeEnded || st.WinnerID != "b" || st.WinCondition != WinLastStanding {
		t.Errorf("outcome=%s winner=%s cond=%s, want ended/b/lastStanding", res.Outcome, st.WinnerID, st.WinCondition)
	}
}
