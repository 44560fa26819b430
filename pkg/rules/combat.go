package rules

import "github.com/skagen/thronehex/pkg/hex"

// CombatResult is the full strength breakdown of an attack. It is kept
// in move responses so clients can show how a fight was decided.
type CombatResult struct {
	AttackerID    string `json:"attackerId"`
	DefenderID    string `json:"defenderId"`
	AttackerBase  int    `json:"attackerBase"`
	Momentum      int    `json:"momentum"`
	InlineSupport int    `json:"inlineSupport"`
	AttackTotal   int    `json:"attackTotal"`
	DefenderBase  int    `json:"defenderBase"`
	Bracing       int    `json:"bracing"`
	DefenseTotal  int    `json:"defenseTotal"`
	Pushed        bool   `json:"pushed"`
	PushDirection int    `json:"pushDirection"`
}

// ResolveCombat computes the attack and defense totals for attacker hitting
// defender along direction dir. The attacker is assumed to still stand on
// its original hex; support is counted behind that hex.
//
// Attack = attacker strength + momentum + inline support.
// Defense = defender strength + bracing.
// The defender is pushed when attack strictly exceeds defense.
func ResolveCombat(gs *GameState, attacker, defender *Piece, dir int, momentum bool) CombatResult {
	res := CombatResult{
		AttackerID:    attacker.ID,
		DefenderID:    defender.ID,
		AttackerBase:  attacker.Strength(),
		DefenderBase:  defender.Strength(),
		PushDirection: dir,
	}
	if momentum {
		res.Momentum = 1
	}
	res.InlineSupport = supportLine(gs, attacker.Position, hex.Opposite(dir), attacker.PlayerID)
	res.Bracing = supportLine(gs, defender.Position, dir, defender.PlayerID)

	res.AttackTotal = res.AttackerBase + res.Momentum + res.InlineSupport
	res.DefenseTotal = res.DefenderBase + res.Bracing
	res.Pushed = res.AttackTotal > res.DefenseTotal
	return res
}

// supportLine sums the strength of the contiguous run of friendly pieces
// walking from start in direction dir. The walk stops at the first empty
// hex, hole, shield, enemy piece, or board edge. Shields never contribute:
// they belong to no player, so the friendly check fails on them.
func supportLine(gs *GameState, start hex.Hex, dir int, playerID string) int {
	total := 0
	pos := start
	for {
		pos = pos.Neighbor(dir)
		if !hex.OnBoard(pos, gs.Config.BoardRadius) || gs.IsHole(pos) {
			return total
		}
		p := gs.PieceAt(pos)
		if p == nil || p.PlayerID != playerID || playerID == "" {
			return total
		}
		total += p.Strength()
	}
}
