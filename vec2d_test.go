package dezoomify

import "testing"

func TestVec2dRoundTrip(t *testing.T) {
	a := Vec2d{X: 37, Y: 19}
	b := Vec2d{X: 5, Y: 5}
	if got := a.Add(b).Sub(b); got != a {
		t.Fatalf("(a+b)-b = %v, want %v", got, a)
	}
}

func TestVec2dFitsInside(t *testing.T) {
	cases := []struct {
		a, b Vec2d
		want bool
	}{
		{Vec2d{1, 1}, Vec2d{2, 2}, true},
		{Vec2d{2, 2}, Vec2d{2, 2}, true},
		{Vec2d{3, 1}, Vec2d{2, 2}, false},
		{Vec2d{1, 3}, Vec2d{2, 2}, false},
	}
	for _, c := range cases {
		if got := c.a.FitsInside(c.b); got != c.want {
			t.Errorf("%v.FitsInside(%v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestMaxSizeInRect(t *testing.T) {
	cases := []struct {
		pos, tile, canvas, want Vec2d
	}{
		{Vec2d{10, 10}, Vec2d{50, 50}, Vec2d{100, 100}, Vec2d{50, 50}},
		{Vec2d{80, 10}, Vec2d{50, 50}, Vec2d{100, 100}, Vec2d{20, 50}},
		{Vec2d{10, 80}, Vec2d{50, 50}, Vec2d{100, 100}, Vec2d{50, 20}},
		{Vec2d{90, 90}, Vec2d{50, 50}, Vec2d{100, 100}, Vec2d{10, 10}},
		{Vec2d{0, 0}, Vec2d{100, 100}, Vec2d{100, 100}, Vec2d{100, 100}},
	}
	for _, c := range cases {
		if got := MaxSizeInRect(c.pos, c.tile, c.canvas); got != c.want {
			t.Errorf("MaxSizeInRect(%v,%v,%v) = %v, want %v", c.pos, c.tile, c.canvas, got, c.want)
		}
	}
}

func TestVec2dSaturatingArithmetic(t *testing.T) {
	max := Vec2d{X: ^uint32(0), Y: ^uint32(0)}
	if got := max.Add(Vec2d{X: 1, Y: 1}); got != max {
		t.Fatalf("saturating add overflowed: %v", got)
	}
	zero := Vec2d{}
	if got := zero.Sub(Vec2d{X: 1, Y: 1}); got != zero {
		t.Fatalf("saturating sub underflowed: %v", got)
	}
}

func TestVec2dArea(t *testing.T) {
	v := Vec2d{X: 70000, Y: 70000}
	if got, want := v.Area(), uint64(70000)*uint64(70000); got != want {
		t.Fatalf("Area() = %d, want %d", got, want)
	}
}
