package dezoomify

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

func TestEmptyTile(t *testing.T) {
	tile := EmptyTile(Vec2d{X: 10, Y: 10}, Vec2d{X: 5, Y: 5})
	if tile.Position != (Vec2d{X: 10, Y: 10}) {
		t.Fatalf("unexpected position: %v", tile.Position)
	}
	if tile.Size() != (Vec2d{X: 5, Y: 5}) {
		t.Fatalf("unexpected size: %v", tile.Size())
	}
	if tile.ICCProfile != nil {
		t.Fatalf("empty tile should carry no ICC profile")
	}
}

func TestDecodeTile(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	tile, err := DecodeTile(buf.Bytes(), Vec2d{X: 1, Y: 2})
	if err != nil {
		t.Fatal(err)
	}
	if tile.Size() != (Vec2d{X: 4, Y: 4}) {
		t.Fatalf("unexpected decoded size: %v", tile.Size())
	}
	if tile.BottomRight() != (Vec2d{X: 5, Y: 6}) {
		t.Fatalf("unexpected bottom right: %v", tile.BottomRight())
	}
}

func TestDecodeTileInvalidBytes(t *testing.T) {
	if _, err := DecodeTile([]byte("not an image"), Vec2d{}); err == nil {
		t.Fatal("expected a decode error")
	}
}
