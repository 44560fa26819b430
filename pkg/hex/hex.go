// Package hex provides axial hex-grid coordinate math for a pointy-top
// hexagonal board centered on the origin. All functions are pure.
package hex

import "math"

// Hex is an axial coordinate. The implicit cube coordinate s = -q-r
// satisfies q + r + s = 0.
type Hex struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// Throne is the center hex of the board.
var Throne = Hex{0, 0}

// directions indexes the six axial neighbor offsets. The opposite of
// direction d is (d+3)%6.
var directions = [6]Hex{
	{1, 0}, {1, -1}, {0, -1},
	{-1, 0}, {-1, 1}, {0, 1},
}

// NumDirections is the number of axial directions.
const NumDirections = 6

// Direction returns the offset for direction d (0..5).
func Direction(d int) Hex {
	return directions[((d%6)+6)%6]
}

// Opposite returns the direction opposite to d.
func Opposite(d int) int {
	return (d + 3) % 6
}

// S returns the derived cube coordinate.
func (h Hex) S() int { return -h.Q - h.R }

// Add returns h + o.
func (h Hex) Add(o Hex) Hex { return Hex{h.Q + o.Q, h.R + o.R} }

// Sub returns h - o.
func (h Hex) Sub(o Hex) Hex { return Hex{h.Q - o.Q, h.R - o.R} }

// Scale returns h * k.
func (h Hex) Scale(k int) Hex { return Hex{h.Q * k, h.R * k} }

// Neighbor returns the adjacent hex in direction d.
func (h Hex) Neighbor(d int) Hex { return h.Add(Direction(d)) }

// Neighbors returns all six adjacent hexes in direction order.
func (h Hex) Neighbors() [6]Hex {
	var out [6]Hex
	for d := 0; d < 6; d++ {
		out[d] = h.Neighbor(d)
	}
	return out
}

// Distance returns the hex distance between a and b.
func Distance(a, b Hex) int {
	d := a.Sub(b)
	return (abs(d.Q) + abs(d.R) + abs(d.S())) / 2
}

// OnBoard reports whether h lies within a board of the given radius.
func OnBoard(h Hex, radius int) bool {
	return max3(abs(h.Q), abs(h.R), abs(h.S())) <= radius
}

// OnEdge reports whether h lies exactly on the board's outer ring.
func OnEdge(h Hex, radius int) bool {
	return max3(abs(h.Q), abs(h.R), abs(h.S())) == radius
}

// DirectionBetween returns the axial direction and step count from a to b
// when b lies on a straight hex line from a. ok is false when the two
// hexes are not aligned along one of the six axes.
func DirectionBetween(a, b Hex) (dir, steps int, ok bool) {
	if a == b {
		return 0, 0, false
	}
	dist := Distance(a, b)
	diff := b.Sub(a)
	for d := 0; d < 6; d++ {
		if Direction(d).Scale(dist) == diff {
			return d, dist, true
		}
	}
	return 0, 0, false
}

// Line returns the hexes from a to b inclusive, computed by cube
// interpolation with rounding. The result always starts at a and ends at b.
func Line(a, b Hex) []Hex {
	n := Distance(a, b)
	if n == 0 {
		return []Hex{a}
	}
	out := make([]Hex, 0, n+1)
	for i := 0; i <= n; i++ {
		t := float64(i) / float64(n)
		out = append(out, round(
			lerp(float64(a.Q), float64(b.Q), t),
			lerp(float64(a.R), float64(b.R), t),
		))
	}
	return out
}

// AllWithin returns every hex on a board of the given radius, in row order.
func AllWithin(radius int) []Hex {
	var out []Hex
	for q := -radius; q <= radius; q++ {
		r1 := maxInt(-radius, -q-radius)
		r2 := minInt(radius, -q+radius)
		for r := r1; r <= r2; r++ {
			out = append(out, Hex{q, r})
		}
	}
	return out
}

// Angle returns the planar angle of h from the origin in radians,
// using pointy-top pixel projection. Used for evenly spacing start
// positions around the board.
func Angle(h Hex) float64 {
	x := float64(h.Q) + float64(h.R)/2
	y := float64(h.R) * math.Sqrt(3) / 2
	return math.Atan2(y, x)
}

// round converts fractional axial coordinates to the nearest hex.
func round(q, r float64) Hex {
	s := -q - r
	rq, rr, rs := math.Round(q), math.Round(r), math.Round(s)
	dq, dr, ds := math.Abs(rq-q), math.Abs(rr-r), math.Abs(rs-s)
	switch {
	case dq > dr && dq > ds:
		rq = -rr - rs
	case dr > ds:
		rr = -rq - rs
	}
	return Hex{int(rq), int(rr)}
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func max3(a, b, c int) int { return maxInt(a, maxInt(b, c)) }

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
