package rules

import "github.com/skagen/thronehex/pkg/hex"

// LegalMoves enumerates every move the player could make right now. Used by
// the AI players and by clients previewing options. The enumeration covers
// warrior single steps and jarl one- and two-hex moves; each candidate runs
// through the full validator, so the result is exactly the set ValidateMove
// accepts.
func LegalMoves(gs *GameState, playerID string) []MoveCommand {
	var out []MoveCommand
	for _, p := range gs.PiecesOf(playerID) {
		maxSteps := 1
		if p.Type == Jarl {
			maxSteps = 2
		}
		for d := 0; d < hex.NumDirections; d++ {
			for steps := 1; steps <= maxSteps; steps++ {
				cmd := MoveCommand{
					PieceID:     p.ID,
					Destination: p.Position.Add(hex.Direction(d).Scale(steps)),
				}
				if ValidateMove(gs, playerID, cmd).Valid {
					out = append(out, cmd)
				}
			}
		}
	}
	return out
}
