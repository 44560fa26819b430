package rules

import (
	"errors"
	"fmt"

	"github.com/skagen/thronehex/pkg/hex"
)

// ErrIntegrity signals a board invariant violation after applying a move.
// It means a bug in the rules core; the caller must discard the new state.
var ErrIntegrity = errors.New("rules: board integrity violation")

// Outcome tells the state machine where to go after a move resolves.
type Outcome string

const (
	OutcomePlaying    Outcome = "playing"
	OutcomeStarvation Outcome = "starvation"
	OutcomeEnded      Outcome = "ended"
)

// MoveResolution is the result of ApplyMove. When Validation.Valid is false
// the move was rejected and State is nil. Otherwise State is a new
// GameState; the input state is never mutated.
type MoveResolution struct {
	State      *GameState     `json:"-"`
	Validation MoveValidation `json:"validation"`
	Combat     *CombatResult  `json:"combat,omitempty"`
	Events     []Event        `json:"events"`
	Outcome    Outcome        `json:"outcome"`
}

// ApplyMove validates and resolves one move command. It is pure: all work
// happens on a clone of gs. A blocked attack still consumes the turn.
func ApplyMove(gs *GameState, playerID string, cmd MoveCommand) (*MoveResolution, error) {
	res := &MoveResolution{Validation: ValidateMove(gs, playerID, cmd)}
	if !res.Validation.Valid {
		return res, nil
	}

	next := gs.Clone()
	piece := next.PieceByID(cmd.PieceID)
	from := piece.Position
	dest := cmd.Destination
	if res.Validation.AdjustedDestination != nil {
		dest = *res.Validation.AdjustedDestination
	}
	dir := res.Validation.Direction

	eliminated := false
	if defender := next.PieceAt(dest); defender != nil {
		combat := ResolveCombat(next, piece, defender, dir, res.Validation.HasMomentum)
		res.Combat = &combat
		if combat.Pushed {
			pushEvents, vacated := resolvePush(next, defender, dir)
			res.Events = append(res.Events, pushEvents...)
			if vacated {
				piece = next.PieceByID(cmd.PieceID)
				piece.Position = dest
				res.Events = append(res.Events, Event{
					Type:     EventMove,
					PieceID:  piece.ID,
					PlayerID: piece.PlayerID,
					From:     hexPtr(from),
					To:       hexPtr(dest),
				})
			}
		}
		// A blocked attack moves nothing but the turn is spent.
	} else {
		piece.Position = dest
		res.Events = append(res.Events, Event{
			Type:     EventMove,
			PieceID:  piece.ID,
			PlayerID: piece.PlayerID,
			From:     hexPtr(from),
			To:       hexPtr(dest),
		})
	}

	next.recordMove(MoveRecord{
		TurnNumber: next.TurnNumber,
		PlayerID:   playerID,
		PieceID:    cmd.PieceID,
		From:       from,
		To:         dest,
	})

	res.Events = append(res.Events, cascadeEliminations(next, res.Events)...)
	for _, ev := range res.Events {
		if ev.Type == EventEliminated {
			eliminated = true
		}
	}

	if piece = next.PieceByID(cmd.PieceID); piece != nil && piece.Type == Jarl && piece.Position == hex.Throne {
		endGame(next, res, playerID, WinThrone)
		return finish(next, res)
	}
	if winner, ok := lastStanding(next); ok {
		endGame(next, res, winner, WinLastStanding)
		return finish(next, res)
	}

	advanceTurn(next, eliminated)
	res.Events = append(res.Events, Event{
		Type:        EventTurnEnded,
		PlayerID:    next.CurrentPlayerID,
		TurnNumber:  next.TurnNumber,
		RoundNumber: next.RoundNumber,
	})

	res.Outcome = OutcomePlaying
	if starvationDue(next) {
		triggerStarvation(next, res)
	}
	return finish(next, res)
}

// SkipTurn advances the rotation without applying a move, for a fired turn
// timer. It is pure like ApplyMove.
func SkipTurn(gs *GameState) (*MoveResolution, error) {
	next := gs.Clone()
	res := &MoveResolution{Validation: MoveValidation{Valid: true}}
	skipped := next.CurrentPlayerID

	advanceTurn(next, false)
	res.Events = append(res.Events,
		Event{Type: EventTurnSkipped, PlayerID: skipped, TurnNumber: next.TurnNumber - 1},
		Event{Type: EventTurnEnded, PlayerID: next.CurrentPlayerID, TurnNumber: next.TurnNumber, RoundNumber: next.RoundNumber},
	)

	res.Outcome = OutcomePlaying
	if starvationDue(next) {
		triggerStarvation(next, res)
	}
	return finish(next, res)
}

// finish runs the integrity guard and seals the resolution.
func finish(next *GameState, res *MoveResolution) (*MoveResolution, error) {
	if ok, reason := next.ValidatePositions(); !ok {
		return nil, fmt.Errorf("%w: %s", ErrIntegrity, reason)
	}
	res.State = next
	return res, nil
}

// cascadeEliminations marks players whose jarl died as eliminated and
// removes their remaining pieces, reusing the jarl's elimination cause.
func cascadeEliminations(gs *GameState, events []Event) []Event {
	var extra []Event
	for _, ev := range events {
		if ev.Type != EventEliminated || ev.PlayerID == "" {
			continue
		}
		pl := gs.PlayerByID(ev.PlayerID)
		if pl == nil || pl.IsEliminated || gs.JarlOf(pl.ID) != nil {
			continue
		}
		pl.IsEliminated = true
		for _, pc := range gs.PiecesOf(pl.ID) {
			gs.removePiece(pc.ID)
			extra = append(extra, Event{
				Type:     EventEliminated,
				PieceID:  pc.ID,
				PlayerID: pl.ID,
				From:     hexPtr(pc.Position),
				Cause:    ev.Cause,
			})
		}
	}
	return extra
}

// lastStanding reports the sole surviving player, if any.
func lastStanding(gs *GameState) (string, bool) {
	alive := gs.AlivePlayers()
	if len(alive) == 1 {
		return alive[0].ID, true
	}
	return "", false
}

func endGame(gs *GameState, res *MoveResolution, winnerID string, cond WinCondition) {
	gs.WinnerID = winnerID
	gs.WinCondition = cond
	res.Outcome = OutcomeEnded
	res.Events = append(res.Events, Event{
		Type:         EventGameEnded,
		WinnerID:     winnerID,
		WinCondition: cond,
		TurnNumber:   gs.TurnNumber,
		RoundNumber:  gs.RoundNumber,
	})
}

// nextAlive returns the index of the first non-eliminated player at or
// after from, scanning seats circularly. Returns -1 if nobody is alive.
func nextAlive(gs *GameState, from int) int {
	n := len(gs.Players)
	for i := 0; i < n; i++ {
		j := ((from+i)%n + n) % n
		if !gs.Players[j].IsEliminated {
			return j
		}
	}
	return -1
}

func playerIndex(gs *GameState, id string) int {
	for i := range gs.Players {
		if gs.Players[i].ID == id {
			return i
		}
	}
	return -1
}

// advanceTurn implements the rotation step: next non-eliminated player in
// seat order; on wrap, a new round starts, the first player rotates, and
// the starvation clock ticks (reset whenever the turn saw an elimination).
// At each round end the jarl grace counters tick for warrior-less players.
func advanceTurn(gs *GameState, eliminatedThisTurn bool) {
	gs.TurnNumber++
	cur := playerIndex(gs, gs.CurrentPlayerID)
	next := nextAlive(gs, cur+1)
	roundFirst := nextAlive(gs, gs.FirstPlayerIndex)

	if next == roundFirst {
		gs.RoundNumber++
		gs.FirstPlayerIndex = nextAlive(gs, gs.FirstPlayerIndex+1)
		next = nextAlive(gs, gs.FirstPlayerIndex)
		gs.RoundsSinceElimination++
		tickJarlGrace(gs)
	}
	if eliminatedThisTurn {
		gs.RoundsSinceElimination = 0
	}
	if next >= 0 {
		gs.CurrentPlayerID = gs.Players[next].ID
	}
}

func tickJarlGrace(gs *GameState) {
	for i := range gs.Players {
		pl := &gs.Players[i]
		if pl.IsEliminated {
			continue
		}
		if gs.WarriorCount(pl.ID) == 0 {
			if pl.RoundsSinceLastWarrior == nil {
				zero := 0
				pl.RoundsSinceLastWarrior = &zero
			} else {
				*pl.RoundsSinceLastWarrior++
			}
		} else {
			pl.RoundsSinceLastWarrior = nil
		}
	}
}

// starvationDue reports whether the drought has reached 10 rounds, or any
// further 5-round multiple beyond that.
func starvationDue(gs *GameState) bool {
	rse := gs.RoundsSinceElimination
	return rse >= 10 && (rse-10)%5 == 0
}
