package rules

import "github.com/skagen/thronehex/pkg/hex"

// RejectReason enumerates every reason a move can be refused. No other
// values are produced.
type RejectReason string

const (
	ReasonPieceNotFound            RejectReason = "PIECE_NOT_FOUND"
	ReasonNotYourPiece             RejectReason = "NOT_YOUR_PIECE"
	ReasonNotYourTurn              RejectReason = "NOT_YOUR_TURN"
	ReasonGameNotPlaying           RejectReason = "GAME_NOT_PLAYING"
	ReasonDestinationOffBoard      RejectReason = "DESTINATION_OFF_BOARD"
	ReasonDestinationFriendly      RejectReason = "DESTINATION_OCCUPIED_FRIENDLY"
	ReasonWarriorCannotEnterThrone RejectReason = "WARRIOR_CANNOT_ENTER_THRONE"
	ReasonInvalidDistanceWarrior   RejectReason = "INVALID_DISTANCE_WARRIOR"
	ReasonInvalidDistanceJarl      RejectReason = "INVALID_DISTANCE_JARL"
	ReasonJarlNeedsDraft           RejectReason = "JARL_NEEDS_DRAFT_FOR_TWO_HEX"
	ReasonPathBlocked              RejectReason = "PATH_BLOCKED"
	ReasonMoveNotStraightLine      RejectReason = "MOVE_NOT_STRAIGHT_LINE"
	ReasonShieldCannotMove         RejectReason = "SHIELD_CANNOT_MOVE"
)

// MoveValidation is the result of checking a move command against the rules.
// When Valid is true, HasMomentum reports whether the mover earns the +1
// momentum bonus and AdjustedDestination carries the throne-truncated
// destination for a jarl line crossing (0,0).
type MoveValidation struct {
	Valid               bool         `json:"valid"`
	Reason              RejectReason `json:"reason,omitempty"`
	HasMomentum         bool         `json:"hasMomentum,omitempty"`
	AdjustedDestination *hex.Hex     `json:"adjustedDestination,omitempty"`
	// Direction is the axial direction of the move when Valid.
	Direction int `json:"direction"`
}

func invalid(reason RejectReason) MoveValidation {
	return MoveValidation{Valid: false, Reason: reason}
}

// ValidateMove checks movement legality for the acting player. It assumes
// the machine has already established the game is in a playing state; it
// still refuses moves on an ended game.
func ValidateMove(gs *GameState, playerID string, cmd MoveCommand) MoveValidation {
	if gs.WinnerID != "" {
		return invalid(ReasonGameNotPlaying)
	}

	piece := gs.PieceByID(cmd.PieceID)
	if piece == nil {
		return invalid(ReasonPieceNotFound)
	}
	if piece.Type == Shield {
		return invalid(ReasonShieldCannotMove)
	}
	if piece.PlayerID != playerID {
		return invalid(ReasonNotYourPiece)
	}
	if gs.CurrentPlayerID != playerID {
		return invalid(ReasonNotYourTurn)
	}

	dir, steps, aligned := hex.DirectionBetween(piece.Position, cmd.Destination)
	if !aligned {
		return invalid(ReasonMoveNotStraightLine)
	}

	dest := cmd.Destination
	momentum := false
	var adjusted *hex.Hex

	switch piece.Type {
	case Warrior:
		if steps != 1 {
			return invalid(ReasonInvalidDistanceWarrior)
		}
	case Jarl:
		if steps > 2 {
			return invalid(ReasonInvalidDistanceJarl)
		}
		if steps == 2 {
			if !hasDraft(gs, piece, dir) {
				return invalid(ReasonJarlNeedsDraft)
			}
			momentum = true
			mid := piece.Position.Neighbor(dir)
			if mid == hex.Throne {
				// The line passes through the throne: truncate the move
				// there. Reaching the throne wins immediately, so the
				// nominal destination no longer matters.
				dest = hex.Throne
				adjusted = hexPtr(hex.Throne)
			} else if gs.IsHole(mid) || gs.PieceAt(mid) != nil {
				return invalid(ReasonPathBlocked)
			}
		}
	}

	if !hex.OnBoard(dest, gs.Config.BoardRadius) {
		return invalid(ReasonDestinationOffBoard)
	}
	if gs.IsHole(dest) {
		// Holes are gaps in the board, not hexes a piece can stand on.
		// Only a push can send a piece into one.
		return invalid(ReasonDestinationOffBoard)
	}
	if piece.Type == Warrior && dest == hex.Throne {
		return invalid(ReasonWarriorCannotEnterThrone)
	}

	if occ := gs.PieceAt(dest); occ != nil {
		if occ.Type == Shield {
			// Shields are immovable; a move cannot target one.
			return invalid(ReasonPathBlocked)
		}
		if occ.PlayerID == playerID {
			return invalid(ReasonDestinationFriendly)
		}
		// Enemy piece: the move is a legal attack, resolved by combat.
	}

	return MoveValidation{
		Valid:               true,
		HasMomentum:         momentum,
		AdjustedDestination: adjusted,
		Direction:           dir,
	}
}

// hasDraft reports whether a draft formation backs the jarl for the given
// move direction: a friendly piece on the hex directly behind the jarl,
// plus at least one more friendly piece contiguous with it in the rear
// arc. The second piece may extend the line straight back or sit on a
// rear flank adjacent to the first. Gaps, shields, and enemy pieces break
// the formation.
func hasDraft(gs *GameState, jarl *Piece, dir int) bool {
	friendly := func(pos hex.Hex) bool {
		p := gs.PieceAt(pos)
		return p != nil && p.PlayerID == jarl.PlayerID
	}
	back := hex.Opposite(dir)
	anchor := jarl.Position.Neighbor(back)
	if !friendly(anchor) {
		return false
	}
	return friendly(anchor.Neighbor(back)) ||
		friendly(jarl.Position.Neighbor(back-1)) ||
		friendly(jarl.Position.Neighbor(back+1))
}
