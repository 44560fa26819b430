package rules

import "github.com/skagen/thronehex/pkg/hex"

// triggerStarvation fills the candidate lists and marks the resolution as
// heading into the starvation state.
func triggerStarvation(gs *GameState, res *MoveResolution) {
	gs.StarvationCandidates = StarvationCandidates(gs)
	gs.StarvationChoices = make(map[string]string)
	res.Outcome = OutcomeStarvation
	res.Events = append(res.Events, Event{
		Type:        EventStarvationTriggered,
		RoundNumber: gs.RoundNumber,
	})
}

// StarvationCandidates selects, for each non-eliminated player, their
// warriors at maximum distance from the throne. A player without warriors
// gets an empty list and sits the cull out.
func StarvationCandidates(gs *GameState) map[string][]string {
	out := make(map[string][]string)
	for _, pl := range gs.Players {
		if pl.IsEliminated {
			continue
		}
		maxDist := -1
		var ids []string
		for _, p := range gs.PiecesOf(pl.ID) {
			if p.Type != Warrior {
				continue
			}
			d := hex.Distance(p.Position, hex.Throne)
			switch {
			case d > maxDist:
				maxDist = d
				ids = []string{p.ID}
			case d == maxDist:
				ids = append(ids, p.ID)
			}
		}
		out[pl.ID] = ids
	}
	return out
}

// ResolveStarvation removes one chosen warrior per player with candidates,
// advances jarl-grace bookkeeping, starves jarls whose grace ran out, and
// resets the drought clock. Choices missing or invalid fall back to the
// first candidate. Pure like ApplyMove.
func ResolveStarvation(gs *GameState, choices map[string]string) (*MoveResolution, error) {
	next := gs.Clone()
	res := &MoveResolution{Validation: MoveValidation{Valid: true}}

	for _, pl := range next.Players {
		candidates := next.StarvationCandidates[pl.ID]
		if pl.IsEliminated || len(candidates) == 0 {
			continue
		}
		chosen := choices[pl.ID]
		if !contains(candidates, chosen) {
			chosen = candidates[0]
		}
		p := next.PieceByID(chosen)
		if p == nil {
			continue
		}
		pos := p.Position
		next.removePiece(chosen)
		res.Events = append(res.Events, Event{
			Type:     EventEliminated,
			PieceID:  chosen,
			PlayerID: pl.ID,
			From:     hexPtr(pos),
			Cause:    CauseStarvation,
		})
	}

	// Players left warrior-less start their grace counter now; players
	// already at the limit lose their jarl.
	for i := range next.Players {
		pl := &next.Players[i]
		if pl.IsEliminated || next.WarriorCount(pl.ID) > 0 {
			continue
		}
		if pl.RoundsSinceLastWarrior == nil {
			zero := 0
			pl.RoundsSinceLastWarrior = &zero
			continue
		}
		if *pl.RoundsSinceLastWarrior >= 5 {
			if jarl := next.JarlOf(pl.ID); jarl != nil {
				pos := jarl.Position
				next.removePiece(jarl.ID)
				res.Events = append(res.Events,
					Event{Type: EventJarlStarved, PieceID: jarl.ID, PlayerID: pl.ID, From: hexPtr(pos)},
					Event{Type: EventEliminated, PieceID: jarl.ID, PlayerID: pl.ID, From: hexPtr(pos), Cause: CauseJarlStarved},
				)
			}
			pl.IsEliminated = true
		}
	}

	next.RoundsSinceElimination = 0
	next.StarvationCandidates = nil
	next.StarvationChoices = nil
	res.Events = append(res.Events, Event{Type: EventStarvationResolved, RoundNumber: next.RoundNumber})

	res.Outcome = OutcomePlaying
	if winner, ok := lastStanding(next); ok {
		endGame(next, res, winner, WinLastStanding)
	}
	return finish(next, res)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
