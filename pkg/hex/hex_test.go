package hex

import "testing"

func TestOppositeDirections(t *testing.T) {
	for d := 0; d < 6; d++ {
		got := Direction(d).Add(Direction(Opposite(d)))
		if got != (Hex{0, 0}) {
			t.Errorf("direction %d and opposite %d do not cancel: %v", d, Opposite(d), got)
		}
	}
}

func TestCubeInvariant(t *testing.T) {
	for _, h := range AllWithin(4) {
		if h.Q+h.R+h.S() != 0 {
			t.Errorf("cube invariant violated at %v", h)
		}
	}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b Hex
		want int
	}{
		{Hex{0, 0}, Hex{0, 0}, 0},
		{Hex{0, 0}, Hex{1, 0}, 1},
		{Hex{0, 0}, Hex{2, -1}, 2},
		{Hex{0, 0}, Hex{-3, 3}, 3},
		{Hex{2, 0}, Hex{-2, 0}, 4},
	}
	for _, tt := range tests {
		if got := Distance(tt.a, tt.b); got != tt.want {
			t.Errorf("Distance(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestOnBoard(t *testing.T) {
	if !OnBoard(Hex{3, 0}, 3) {
		t.Error("(3,0) should be on a radius-3 board")
	}
	if OnBoard(Hex{4, 0}, 3) {
		t.Error("(4,0) should be off a radius-3 board")
	}
	if OnBoard(Hex{2, 2}, 3) {
		t.Error("(2,2) has s=-4, should be off a radius-3 board")
	}
	if !OnEdge(Hex{3, -1}, 3) {
		t.Error("(3,-1) should be on the edge of a radius-3 board")
	}
	if OnEdge(Hex{1, 0}, 3) {
		t.Error("(1,0) is interior, not edge")
	}
}

func TestDirectionBetween(t *testing.T) {
	d, steps, ok := DirectionBetween(Hex{2, 0}, Hex{0, 0})
	if !ok || d != 3 || steps != 2 {
		t.Errorf("DirectionBetween((2,0),(0,0)) = %d,%d,%v; want 3,2,true", d, steps, ok)
	}

	d, steps, ok = DirectionBetween(Hex{0, 0}, Hex{0, 2})
	if !ok || d != 5 || steps != 2 {
		t.Errorf("DirectionBetween((0,0),(0,2)) = %d,%d,%v; want 5,2,true", d, steps, ok)
	}

	if _, _, ok := DirectionBetween(Hex{0, 0}, Hex{2, 1}); ok {
		t.Error("(0,0)->(2,1) is not a straight line")
	}
	if _, _, ok := DirectionBetween(Hex{1, 1}, Hex{1, 1}); ok {
		t.Error("zero-length move should not resolve to a direction")
	}
}

func TestLineEndpoints(t *testing.T) {
	line := Line(Hex{3, -3}, Hex{0, 0})
	if len(line) != 4 {
		t.Fatalf("line length = %d, want 4", len(line))
	}
	if line[0] != (Hex{3, -3}) || line[3] != (Hex{0, 0}) {
		t.Errorf("line endpoints wrong: %v", line)
	}
	for i := 1; i < len(line); i++ {
		if Distance(line[i-1], line[i]) != 1 {
			t.Errorf("line step %d not adjacent: %v -> %v", i, line[i-1], line[i])
		}
	}
}

func TestAllWithinCount(t *testing.T) {
	// 1 + 3r(r+1) hexes on a radius-r board.
	for r := 0; r <= 5; r++ {
		want := 1 + 3*r*(r+1)
		if got := len(AllWithin(r)); got != want {
			t.Errorf("AllWithin(%d) returned %d hexes, want %d", r, got, want)
		}
	}
}
