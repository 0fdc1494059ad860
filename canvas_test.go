package dezoomify

import (
	"image"
	"image/color"
	"testing"
)

func solidTile(position, size Vec2d, c color.Color) *Tile {
	img := image.NewRGBA(image.Rect(0, 0, int(size.X), int(size.Y)))
	for y := 0; y < int(size.Y); y++ {
		for x := 0; x < int(size.X); x++ {
			img.Set(x, y, c)
		}
	}
	return &Tile{Image: img, Position: position}
}

func TestCanvasAddTileRejectsTileOutsideDeclaredSize(t *testing.T) {
	canvas := NewCanvas(Vec2d{X: 10, Y: 10})
	tile := solidTile(Vec2d{X: 8, Y: 8}, Vec2d{X: 5, Y: 5}, color.RGBA{R: 255, A: 255})

	err := canvas.AddTile(tile)
	if err == nil {
		t.Fatal("expected an error when a tile overruns a declared-size canvas")
	}
	ze, ok := err.(*ZoomError)
	if !ok || ze.Kind != ErrTileCopy {
		t.Fatalf("expected an ErrTileCopy ZoomError, got %#v", err)
	}
}

func TestCanvasAddTileAcceptsTileThatFitsExactly(t *testing.T) {
	canvas := NewCanvas(Vec2d{X: 10, Y: 10})
	tile := solidTile(Vec2d{X: 5, Y: 5}, Vec2d{X: 5, Y: 5}, color.RGBA{G: 255, A: 255})

	if err := canvas.AddTile(tile); err != nil {
		t.Fatalf("a tile whose bottom-right corner exactly matches the canvas size should be accepted: %v", err)
	}
}

func TestCanvasAddTileGrowsWhenSizeUnknown(t *testing.T) {
	canvas := NewCanvas(Vec2d{})
	tile := solidTile(Vec2d{X: 20, Y: 20}, Vec2d{X: 5, Y: 5}, color.RGBA{B: 255, A: 255})

	if err := canvas.AddTile(tile); err != nil {
		t.Fatalf("a size-unknown canvas should grow to fit rather than reject: %v", err)
	}
	if size := canvas.Size(); size.X < 25 || size.Y < 25 {
		t.Fatalf("canvas should have grown to at least 25x25, got %s", size)
	}
}

func TestCanvasAddTileLatchesFirstICCProfileInCallOrder(t *testing.T) {
	canvas := NewCanvas(Vec2d{X: 10, Y: 10})
	first := solidTile(Vec2d{}, Vec2d{X: 5, Y: 5}, color.RGBA{A: 255})
	first.ICCProfile = []byte("first-profile")
	second := solidTile(Vec2d{X: 5, Y: 0}, Vec2d{X: 5, Y: 5}, color.RGBA{A: 255})
	second.ICCProfile = []byte("second-profile")

	if err := canvas.AddTile(first); err != nil {
		t.Fatal(err)
	}
	if err := canvas.AddTile(second); err != nil {
		t.Fatal(err)
	}
	if string(canvas.icc) != "first-profile" {
		t.Fatalf("expected the first tile's ICC profile to win, got %q", canvas.icc)
	}
}
