package rules

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/skagen/thronehex/pkg/hex"
)

// SetupBoard places jarls, warriors, and holes for the players already
// seated in gs and starts the first round. Jarls land on edge hexes evenly
// spaced around the board; each player's warriors line up from their jarl
// toward the throne; holes are drawn from interior hexes that no
// jarl-to-throne line crosses. The rng makes hole placement reproducible
// for a given seed.
func SetupBoard(gs *GameState, rng *rand.Rand) error {
	n := len(gs.Players)
	if n < 2 {
		return fmt.Errorf("rules: cannot set up board with %d players", n)
	}
	radius := gs.Config.BoardRadius
	gs.Pieces = nil
	gs.Holes = nil

	edges := edgeHexesByAngle(radius)
	jarlAt := make([]hex.Hex, n)
	for i := 0; i < n; i++ {
		jarlAt[i] = edges[i*len(edges)/n]
	}

	// Jarl-to-throne lines are kept clear of holes.
	reserved := map[hex.Hex]bool{hex.Throne: true}
	for _, j := range jarlAt {
		for _, h := range hex.Line(j, hex.Throne) {
			reserved[h] = true
		}
	}
	var interior []hex.Hex
	for _, h := range hex.AllWithin(radius - 1) {
		if !reserved[h] {
			interior = append(interior, h)
		}
	}
	holeCount := gs.Config.Terrain.HoleCount()
	if holeCount > len(interior) {
		holeCount = len(interior)
	}
	for _, idx := range rng.Perm(len(interior))[:holeCount] {
		gs.Holes = append(gs.Holes, interior[idx])
	}

	for i := range gs.Players {
		pl := &gs.Players[i]
		gs.Pieces = append(gs.Pieces, Piece{
			ID:       pl.ID + "-jarl",
			Type:     Jarl,
			PlayerID: pl.ID,
			Position: jarlAt[i],
		})
		for w, pos := range warriorPositions(gs, jarlAt[i]) {
			if w >= gs.Config.WarriorCount {
				break
			}
			gs.Pieces = append(gs.Pieces, Piece{
				ID:       fmt.Sprintf("%s-warrior-%d", pl.ID, w+1),
				Type:     Warrior,
				PlayerID: pl.ID,
				Position: pos,
			})
		}
	}

	gs.TurnNumber = 1
	gs.RoundNumber = 1
	gs.FirstPlayerIndex = 0
	gs.CurrentPlayerID = gs.Players[0].ID
	if ok, reason := gs.ValidatePositions(); !ok {
		return fmt.Errorf("%w: %s", ErrIntegrity, reason)
	}
	return nil
}

// edgeHexesByAngle returns the board's outer ring ordered by planar angle.
func edgeHexesByAngle(radius int) []hex.Hex {
	var edges []hex.Hex
	for _, h := range hex.AllWithin(radius) {
		if hex.OnEdge(h, radius) {
			edges = append(edges, h)
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		return hex.Angle(edges[i]) < hex.Angle(edges[j])
	})
	return edges
}

// warriorPositions yields candidate warrior hexes for a jarl: first the
// straight line toward the throne, then a breadth-first spill around it
// when the line is too short or interrupted by holes.
func warriorPositions(gs *GameState, jarl hex.Hex) []hex.Hex {
	usable := func(h hex.Hex) bool {
		return hex.OnBoard(h, gs.Config.BoardRadius) &&
			h != hex.Throne && !gs.IsHole(h) && gs.PieceAt(h) == nil
	}
	seen := map[hex.Hex]bool{jarl: true}
	var out, frontier []hex.Hex
	for _, h := range hex.Line(jarl, hex.Throne)[1:] {
		if seen[h] {
			continue
		}
		seen[h] = true
		frontier = append(frontier, h)
		if usable(h) {
			out = append(out, h)
		}
	}
	for len(out) < gs.Config.WarriorCount && len(frontier) > 0 {
		var nextFrontier []hex.Hex
		for _, h := range frontier {
			for _, nb := range h.Neighbors() {
				if seen[nb] || !hex.OnBoard(nb, gs.Config.BoardRadius) {
					continue
				}
				seen[nb] = true
				nextFrontier = append(nextFrontier, nb)
				if usable(nb) {
					out = append(out, nb)
				}
			}
		}
		frontier = nextFrontier
	}
	return out
}
