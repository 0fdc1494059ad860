package dezoomify

import "fmt"

// Vec2d is a pair of unsigned 32-bit integers used for pixel coordinates,
// tile sizes and canvas sizes.
type Vec2d struct {
	X, Y uint32
}

func (v Vec2d) String() string {
	return fmt.Sprintf("%dx%d", v.X, v.Y)
}

// Add returns the component-wise sum, saturating on overflow.
func (v Vec2d) Add(o Vec2d) Vec2d {
	return Vec2d{X: satAdd(v.X, o.X), Y: satAdd(v.Y, o.Y)}
}

// Sub returns the component-wise difference, saturating at zero.
func (v Vec2d) Sub(o Vec2d) Vec2d {
	return Vec2d{X: satSub(v.X, o.X), Y: satSub(v.Y, o.Y)}
}

// Min returns the component-wise minimum.
func (v Vec2d) Min(o Vec2d) Vec2d {
	return Vec2d{X: minU32(v.X, o.X), Y: minU32(v.Y, o.Y)}
}

// Max returns the component-wise maximum.
func (v Vec2d) Max(o Vec2d) Vec2d {
	return Vec2d{X: maxU32(v.X, o.X), Y: maxU32(v.Y, o.Y)}
}

// Area returns x*y widened to 64 bits so it cannot overflow for any valid
// pair of 32-bit components.
func (v Vec2d) Area() uint64 {
	return uint64(v.X) * uint64(v.Y)
}

// FitsInside reports whether v.X <= o.X && v.Y <= o.Y.
func (v Vec2d) FitsInside(o Vec2d) bool {
	return v.X <= o.X && v.Y <= o.Y
}

func satAdd(a, b uint32) uint32 {
	s := a + b
	if s < a {
		return ^uint32(0)
	}
	return s
}

func satSub(a, b uint32) uint32 {
	if b > a {
		return 0
	}
	return a - b
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

// MaxSizeInRect returns the maximal size a tile placed at position can have
// in order to fit inside a canvas of the given size.
func MaxSizeInRect(position, tileSize, canvasSize Vec2d) Vec2d {
	return position.Add(tileSize).Min(canvasSize).Sub(position)
}
