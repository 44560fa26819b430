package rules

import "github.com/skagen/thronehex/pkg/hex"

// ChainTerminator classifies the first non-piece hex past the end of a
// push chain.
type ChainTerminator string

const (
	TermEmpty  ChainTerminator = "empty"
	TermEdge   ChainTerminator = "edge"
	TermHole   ChainTerminator = "hole"
	TermThrone ChainTerminator = "throne"
)

// resolvePush moves the chain of pieces starting at the defender one hex in
// direction dir, according to the chain's terminator. It mutates gs, returns
// the emitted PUSH and ELIMINATED events, and reports whether the defender's
// hex was vacated (so the attacker may advance into it).
//
// Chain walk: accumulate occupied hexes from the defender forward, shields
// included. The hex past the last piece is the terminator:
//   - empty hex: every movable chain piece shifts one hex.
//   - off board (edge) or hole: the front piece is eliminated, the rest shift.
//   - throne with a non-jarl front piece: the chain compresses against the
//     throne and nothing ahead of the blocker moves. A jarl at the front may
//     be pushed onto the throne, so that case is an ordinary empty terminator.
//
// Shields never move. A shield anywhere in the chain anchors itself and every
// piece behind it; a shield at the front also survives an edge or hole
// terminator, anchoring the whole chain.
func resolvePush(gs *GameState, defender *Piece, dir int) (events []Event, defenderVacated bool) {
	chain := []string{defender.ID}
	pos := defender.Position
	for {
		next := pos.Neighbor(dir)
		p := gs.PieceAt(next)
		if p == nil {
			break
		}
		chain = append(chain, p.ID)
		pos = next
	}
	next := pos.Neighbor(dir)
	front := gs.PieceByID(chain[len(chain)-1])

	var term ChainTerminator
	switch {
	case !hex.OnBoard(next, gs.Config.BoardRadius):
		term = TermEdge
	case gs.IsHole(next):
		term = TermHole
	case next == hex.Throne && front.Type != Jarl:
		term = TermThrone
	default:
		term = TermEmpty
	}

	// Resolve front to back. moved[i] records whether chain[i] vacated its
	// hex, either by shifting or by elimination; a piece behind it may shift
	// only into a vacated hex.
	moved := make([]bool, len(chain))
	var pushEvents []Event
	var eliminated *Event
	for i := len(chain) - 1; i >= 0; i-- {
		p := gs.PieceByID(chain[i])
		if p.Type == Shield {
			continue
		}
		if i == len(chain)-1 {
			switch term {
			case TermEdge, TermHole:
				from := p.Position
				cause := CauseEdge
				if term == TermHole {
					cause = CauseHole
				}
				eliminated = &Event{
					Type:     EventEliminated,
					PieceID:  p.ID,
					PlayerID: p.PlayerID,
					From:     hexPtr(from),
					Cause:    cause,
				}
				gs.removePiece(p.ID)
				moved[i] = true
			case TermEmpty:
				from := p.Position
				p.Position = next
				pushEvents = append(pushEvents, Event{
					Type:     EventPush,
					PieceID:  p.ID,
					PlayerID: p.PlayerID,
					From:     hexPtr(from),
					To:       hexPtr(p.Position),
				})
				moved[i] = true
			case TermThrone:
				// Blocked against the throne.
			}
			continue
		}
		if !moved[i+1] {
			continue
		}
		from := p.Position
		p.Position = from.Neighbor(dir)
		pushEvents = append(pushEvents, Event{
			Type:     EventPush,
			PieceID:  p.ID,
			PlayerID: p.PlayerID,
			From:     hexPtr(from),
			To:       hexPtr(p.Position),
		})
		moved[i] = true
	}

	// PUSH events were collected front-first; clients animate defender-first
	// with increasing depth. An elimination comes after the pushes that
	// caused it.
	for i := len(pushEvents) - 1; i >= 0; i-- {
		ev := pushEvents[i]
		ev.Depth = len(pushEvents) - i
		events = append(events, ev)
	}
	if eliminated != nil {
		events = append(events, *eliminated)
	}
	return events, moved[0]
}

// removePiece deletes the piece with the given ID from the board.
func (gs *GameState) removePiece(id string) {
	for i := range gs.Pieces {
		if gs.Pieces[i].ID == id {
			gs.Pieces = append(gs.Pieces[:i], gs.Pieces[i+1:]...)
			return
		}
	}
}
