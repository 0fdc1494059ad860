package dezoomify

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Tile is a decoded tile image plus the canvas position it belongs at, and
// whatever colour-management / provenance metadata the source bytes carried.
type Tile struct {
	Image      image.Image
	Position   Vec2d
	ICCProfile []byte
	EXIF       []byte
}

// Size returns the tile's pixel dimensions.
func (t *Tile) Size() Vec2d {
	b := t.Image.Bounds()
	return Vec2d{X: uint32(b.Dx()), Y: uint32(b.Dy())}
}

// BottomRight returns Position + Size.
func (t *Tile) BottomRight() Vec2d {
	return t.Position.Add(t.Size())
}

// EmptyTile builds an all-zero placeholder tile used to fill gaps left by
// unrecoverable tile download failures, so the output has a clean hole
// rather than a missing region.
func EmptyTile(position, size Vec2d) *Tile {
	return &Tile{
		Image:    image.NewRGBA(image.Rect(0, 0, int(size.X), int(size.Y))),
		Position: position,
	}
}

// DecodeTile decodes raw bytes (already post-processed) into a Tile at
// position, extracting an ICC profile and EXIF blob when the format and
// decoder make them available. Format is sniffed from content, mirroring
// the way image.Decode dispatches to a registered decoder.
func DecodeTile(data []byte, position Vec2d) (*Tile, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &ZoomError{Kind: ErrDecode, Message: "could not decode tile image", Cause: err}
	}
	tile := &Tile{Image: img, Position: position}
	switch format {
	case "jpeg":
		tile.ICCProfile = extractJPEGICCProfile(data)
		tile.EXIF = extractJPEGEXIF(data)
	case "png":
		tile.ICCProfile = extractPNGICCProfile(data)
	}
	return tile, nil
}
