package dezoomify

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func TestStreamingPNGCanvasRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	canvas := NewStreamingPNGCanvas(&buf, Vec2d{X: 4, Y: 4}, zlibLevelForCompression(50))

	topLeft := solidTile(Vec2d{}, Vec2d{X: 2, Y: 2}, color.RGBA{R: 255, A: 255})
	topRight := solidTile(Vec2d{X: 2, Y: 0}, Vec2d{X: 2, Y: 2}, color.RGBA{G: 255, A: 255})
	bottomLeft := solidTile(Vec2d{X: 0, Y: 2}, Vec2d{X: 2, Y: 2}, color.RGBA{B: 255, A: 255})
	bottomRight := solidTile(Vec2d{X: 2, Y: 2}, Vec2d{X: 2, Y: 2}, color.RGBA{R: 255, G: 255, A: 255})

	for _, tile := range []*Tile{topLeft, topRight, bottomLeft, bottomRight} {
		if err := canvas.AddTile(tile); err != nil {
			t.Fatal(err)
		}
	}
	if err := canvas.Finish(); err != nil {
		t.Fatal(err)
	}

	img, err := png.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("streamed bytes are not a valid PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 4 {
		t.Fatalf("unexpected decoded size: %v", b)
	}
	r, g, b, _ := img.At(0, 0).RGBA()
	if r>>8 != 255 || g != 0 || b != 0 {
		t.Fatalf("top-left pixel should be red, got r=%d g=%d b=%d", r>>8, g>>8, b>>8)
	}
	r, g, b, _ = img.At(3, 3).RGBA()
	if r>>8 != 255 || g>>8 != 255 || b != 0 {
		t.Fatalf("bottom-right pixel should be yellow, got r=%d g=%d b=%d", r>>8, g>>8, b>>8)
	}
}

func TestStreamingPNGCanvasFlushesRowsIncrementallyInOrder(t *testing.T) {
	var buf bytes.Buffer
	canvas := NewStreamingPNGCanvas(&buf, Vec2d{X: 2, Y: 3}, zlibLevelForCompression(50))

	// Only the bottom row arrives; the top two rows should remain pending.
	bottom := solidTile(Vec2d{X: 0, Y: 2}, Vec2d{X: 2, Y: 1}, color.RGBA{R: 255, A: 255})
	if err := canvas.AddTile(bottom); err != nil {
		t.Fatal(err)
	}
	if canvas.nextRow != 0 {
		t.Fatalf("no row should flush until row 0 is covered, nextRow=%d", canvas.nextRow)
	}

	top := solidTile(Vec2d{X: 0, Y: 0}, Vec2d{X: 2, Y: 2}, color.RGBA{G: 255, A: 255})
	if err := canvas.AddTile(top); err != nil {
		t.Fatal(err)
	}
	if canvas.nextRow != 3 {
		t.Fatalf("all three rows should have flushed once every row is covered, nextRow=%d", canvas.nextRow)
	}

	if err := canvas.Finish(); err != nil {
		t.Fatal(err)
	}
	if _, err := png.Decode(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("streamed bytes are not a valid PNG: %v", err)
	}
}

func TestStreamingPNGCanvasRejectsTileOutsideDeclaredSize(t *testing.T) {
	var buf bytes.Buffer
	canvas := NewStreamingPNGCanvas(&buf, Vec2d{X: 4, Y: 4}, zlibLevelForCompression(50))
	oversized := solidTile(Vec2d{X: 3, Y: 3}, Vec2d{X: 4, Y: 4}, color.RGBA{A: 255})

	err := canvas.AddTile(oversized)
	if err == nil {
		t.Fatal("expected an error for a tile overrunning the declared canvas size")
	}
	ze, ok := err.(*ZoomError)
	if !ok || ze.Kind != ErrTileCopy {
		t.Fatalf("expected an ErrTileCopy ZoomError, got %#v", err)
	}
}

func TestStreamingPNGCanvasFinishZeroFillsMissingRows(t *testing.T) {
	var buf bytes.Buffer
	canvas := NewStreamingPNGCanvas(&buf, Vec2d{X: 2, Y: 2}, zlibLevelForCompression(50))
	// Only the top row is ever supplied; Finish must still close out row 1.
	top := solidTile(Vec2d{X: 0, Y: 0}, Vec2d{X: 2, Y: 1}, color.RGBA{R: 255, A: 255})
	if err := canvas.AddTile(top); err != nil {
		t.Fatal(err)
	}
	if err := canvas.Finish(); err != nil {
		t.Fatal(err)
	}

	img, err := png.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("streamed bytes are not a valid PNG even with a missing row: %v", err)
	}
	if _, _, _, a := img.At(0, 1).RGBA(); a != 0 {
		t.Fatalf("the zero-filled row should be fully transparent, got alpha=%d", a)
	}
}

func TestStreamingPNGCanvasAddTileAfterFinishErrors(t *testing.T) {
	var buf bytes.Buffer
	canvas := NewStreamingPNGCanvas(&buf, Vec2d{X: 2, Y: 2}, zlibLevelForCompression(50))
	if err := canvas.Finish(); err != nil {
		t.Fatal(err)
	}
	tile := solidTile(Vec2d{}, Vec2d{X: 1, Y: 1}, color.RGBA{A: 255})
	if err := canvas.AddTile(tile); err == nil {
		t.Fatal("expected an error when AddTile is called after Finish")
	}
}
