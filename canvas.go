package dezoomify

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/gen2brain/webp"
)

// Canvas accumulates tiles into one in-memory image, growing its backing
// buffer on demand, grounded on original_source/src/encoder/canvas.rs. It
// keeps the whole image resident rather than streaming rows to the output
// format as tiles arrive. JPEG, TIFF and WebP have no incremental row-writer
// available in this module's encoding dependencies, so they always go
// through Canvas; PNG output streams instead through StreamingPNGCanvas
// (png_stream.go) whenever the level's size is known up front — see
// DezoomifyLevel, which picks between the two.
type Canvas struct {
	img   *image.RGBA
	size  Vec2d
	icc   []byte
	exif  []byte
	iccSet bool
}

// NewCanvas allocates a canvas sized to hold size pixels. If size is
// unknown up front (zero), the canvas grows lazily as tiles land, mirroring
// the Rust Canvas::grow_buffer behaviour for formats without a size hint.
func NewCanvas(size Vec2d) *Canvas {
	c := &Canvas{size: size}
	if size.X > 0 && size.Y > 0 {
		c.img = image.NewRGBA(image.Rect(0, 0, int(size.X), int(size.Y)))
	}
	return c
}

// AddTile composites tile onto the canvas at its recorded position. When the
// canvas was constructed with a known size, a tile whose bottom-right corner
// does not fit inside that size is rejected outright rather than silently
// resized around: the canvas advertised its extent up front and the caller
// is expected to have positioned tiles accordingly. Only a canvas built
// without a size hint (size unknown up front) grows its backing buffer on
// demand, mirroring the Rust Canvas::grow_buffer behaviour for that case.
// The first tile (in calling order, which callers must pass in position
// order — see sortTilesByPosition in dezoomify.go) whose ICC profile/EXIF
// blob is non-empty wins, fixing the completion-order race the original had.
func (c *Canvas) AddTile(tile *Tile) error {
	need := tile.BottomRight()
	declared := c.size.X > 0 && c.size.Y > 0

	if declared {
		if !need.FitsInside(c.size) {
			return &ZoomError{
				Kind: ErrTileCopy,
				Message: fmt.Sprintf(
					"tile at %s sized %s does not fit inside the %s canvas",
					tile.Position, tile.Size(), c.size,
				),
			}
		}
	} else {
		c.growTo(need)
	}

	if tile.Image != nil {
		dstRect := image.Rect(int(tile.Position.X), int(tile.Position.Y), int(need.X), int(need.Y)).Intersect(c.img.Bounds())
		draw.Draw(c.img, dstRect, tile.Image, image.Point{}, draw.Src)
	}

	if !c.iccSet && len(tile.ICCProfile) > 0 {
		c.icc = tile.ICCProfile
		c.iccSet = true
	}
	if len(c.exif) == 0 && len(tile.EXIF) > 0 {
		c.exif = tile.EXIF
	}
	return nil
}

func (c *Canvas) growTo(need Vec2d) {
	if c.img != nil {
		b := c.img.Bounds()
		if int(need.X) <= b.Dx() && int(need.Y) <= b.Dy() {
			return
		}
	}
	newW, newH := int(need.X), int(need.Y)
	if c.img != nil {
		b := c.img.Bounds()
		if b.Dx() > newW {
			newW = b.Dx()
		}
		if b.Dy() > newH {
			newH = b.Dy()
		}
	}
	grown := image.NewRGBA(image.Rect(0, 0, newW, newH))
	if c.img != nil {
		draw.Draw(grown, c.img.Bounds(), c.img, image.Point{}, draw.Src)
	}
	c.img = grown
}

// Size returns the canvas's current pixel extent.
func (c *Canvas) Size() Vec2d {
	if c.img == nil {
		return Vec2d{}
	}
	b := c.img.Bounds()
	return Vec2d{X: uint32(b.Dx()), Y: uint32(b.Dy())}
}

// EncodeOptions controls final-image encoding.
type EncodeOptions struct {
	// Compression is a 0-100 knob where 0 is least and 100 most compressed,
	// for every format: JPEG and WebP use a quality of 100-Compression, PNG
	// picks a compression preset (see pngCompressionLevel).
	Compression int
}

// Encode writes the canvas out in the format implied by destPath's
// extension (.jpg/.jpeg, .png, .tif/.tiff, .webp), embedding whichever ICC
// profile and EXIF blob AddTile collected.
func (c *Canvas) Encode(w io.Writer, destPath string, opts EncodeOptions) error {
	ext := strings.ToLower(filepath.Ext(destPath))
	switch ext {
	case ".jpg", ".jpeg":
		return c.encodeJPEG(w, opts)
	case ".png":
		return c.encodePNG(w, opts)
	case ".tif", ".tiff":
		return c.encodeTIFF(w)
	case ".webp":
		return c.encodeWebP(w, opts)
	default:
		return c.encodeJPEG(w, opts)
	}
}

func (c *Canvas) encodeJPEG(w io.Writer, opts EncodeOptions) error {
	quality := 100 - opts.Compression
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, c.img, &jpeg.Options{Quality: quality}); err != nil {
		return err
	}
	data := injectJPEGMetadata(buf.Bytes(), c.icc, c.exif)
	_, err := w.Write(data)
	return err
}

func (c *Canvas) encodePNG(w io.Writer, opts EncodeOptions) error {
	enc := &png.Encoder{CompressionLevel: pngCompressionLevel(opts.Compression)}
	var buf bytes.Buffer
	if err := enc.Encode(&buf, c.img); err != nil {
		return err
	}
	data := buf.Bytes()
	if len(c.icc) > 0 {
		data = injectPNGICCProfile(data, c.icc)
	}
	_, err := w.Write(data)
	return err
}

func (c *Canvas) encodeTIFF(w io.Writer) error {
	return encodeTIFF(w, c.img)
}

func (c *Canvas) encodeWebP(w io.Writer, opts EncodeOptions) error {
	quality := float32(100 - opts.Compression)
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	return webp.Encode(w, c.img, webp.Options{Quality: quality})
}

// pngCompressionLevel maps a 0-100 "compression" knob onto the three
// presets image/png exposes, following the same three-way split
// original_source/src/encoder/png_encoder.rs uses for oxipng-style levels
// (0-19 fast / 20-60 default / 61-100 best).
func pngCompressionLevel(compression int) png.CompressionLevel {
	switch {
	case compression <= 19:
		return png.BestSpeed
	case compression <= 60:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}

// zlibLevelForCompression maps the same 0-100 knob pngCompressionLevel uses
// onto a raw compress/zlib level, for StreamingPNGCanvas, which writes
// against zlib.Writer directly instead of going through image/png.
func zlibLevelForCompression(compression int) int {
	switch {
	case compression <= 19:
		return zlib.BestSpeed
	case compression <= 60:
		return zlib.DefaultCompression
	default:
		return zlib.BestCompression
	}
}
