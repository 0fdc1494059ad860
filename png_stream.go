package dezoomify

import (
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
)

// TileSink receives tiles as a zoom level's batches complete, in position
// order (see sortTilesByPosition in dezoomify.go). *Canvas and
// *StreamingPNGCanvas both implement it, so TileDownloadCoordinator.Run can
// write into either without knowing which encoding strategy is in use.
type TileSink interface {
	AddTile(tile *Tile) error
}

const pngIDATChunkSize = 32 * 1024

// StreamingPNGCanvas writes a PNG directly to w one completed row at a time,
// instead of materialising the whole image the way Canvas does. A row is
// "complete" once every tile touching it has been added; completed rows at
// the front of the image are deflated into the output stream immediately,
// and their pixel buffers are freed, so peak memory is bounded by the
// tallest run of rows still waiting on a tile rather than by the full
// canvas. Only usable when the level advertises its size up front (PNG's
// IHDR needs width/height before the first pixel is written) — grounded on
// original_source/src/encoder/png_encoder.rs's row-window flush, adapted to
// PNG's own allowance for splitting one logical IDAT stream across several
// IDAT chunks, which is what makes incremental writing possible without any
// third-party streaming encoder (none exists in the retrieval pack).
type StreamingPNGCanvas struct {
	w      io.Writer
	width  uint32
	height uint32

	pending map[uint32][]byte
	covered map[uint32]uint32
	nextRow uint32

	compression int // raw compress/zlib level, see zlibLevelForCompression
	zw          *zlib.Writer
	chunkBuf    []byte

	icc    []byte
	iccSet bool

	headerWritten bool
	closed        bool
}

// NewStreamingPNGCanvas builds a streaming PNG writer for an image of the
// given size, writing finished rows to w as AddTile completes them.
// compression is a raw compress/zlib level (see zlibLevelForCompression).
func NewStreamingPNGCanvas(w io.Writer, size Vec2d, compression int) *StreamingPNGCanvas {
	return &StreamingPNGCanvas{
		w:           w,
		width:       size.X,
		height:      size.Y,
		pending:     make(map[uint32][]byte),
		covered:     make(map[uint32]uint32),
		compression: compression,
	}
}

// AddTile composites tile's pixels directly into the row buffers they
// touch and flushes any rows that are now fully covered. A tile extending
// past the declared canvas size is rejected, matching Canvas.AddTile's
// invariant.
func (s *StreamingPNGCanvas) AddTile(tile *Tile) error {
	if s.closed {
		return fmt.Errorf("streaming png canvas: AddTile called after Finish")
	}
	size := Vec2d{X: s.width, Y: s.height}
	if !tile.BottomRight().FitsInside(size) {
		return &ZoomError{
			Kind: ErrTileCopy,
			Message: fmt.Sprintf(
				"tile at %s sized %s does not fit inside the %s canvas",
				tile.Position, tile.Size(), size,
			),
		}
	}

	if !s.iccSet && len(tile.ICCProfile) > 0 {
		s.icc = tile.ICCProfile
		s.iccSet = true
	}

	if tile.Image != nil {
		bounds := tile.Image.Bounds()
		x0, y0 := int(tile.Position.X), int(tile.Position.Y)
		for ty := bounds.Min.Y; ty < bounds.Max.Y; ty++ {
			row := uint32(y0 + (ty - bounds.Min.Y))
			if row >= s.height {
				continue
			}
			buf := s.rowBuffer(row)
			written := uint32(0)
			for tx := bounds.Min.X; tx < bounds.Max.X; tx++ {
				col := uint32(x0 + (tx - bounds.Min.X))
				if col >= s.width {
					continue
				}
				r, g, b, a := tile.Image.At(tx, ty).RGBA()
				o := col * 4
				buf[o] = uint8(r >> 8)
				buf[o+1] = uint8(g >> 8)
				buf[o+2] = uint8(b >> 8)
				buf[o+3] = uint8(a >> 8)
				written++
			}
			s.covered[row] += written
		}
	}

	return s.flushReadyRows()
}

func (s *StreamingPNGCanvas) rowBuffer(row uint32) []byte {
	buf, ok := s.pending[row]
	if !ok {
		buf = make([]byte, s.width*4)
		s.pending[row] = buf
	}
	return buf
}

// flushReadyRows deflates every row starting at nextRow that has received a
// pixel for every column, in order, stopping at the first gap.
func (s *StreamingPNGCanvas) flushReadyRows() error {
	if err := s.ensureHeader(); err != nil {
		return err
	}
	for s.nextRow < s.height && s.covered[s.nextRow] >= s.width {
		if err := s.writeRow(s.nextRow); err != nil {
			return err
		}
		s.nextRow++
	}
	return nil
}

func (s *StreamingPNGCanvas) writeRow(row uint32) error {
	buf := s.pending[row]
	if buf == nil {
		buf = make([]byte, s.width*4)
	}
	if _, err := s.zw.Write([]byte{0}); err != nil { // filter type: None
		return err
	}
	if _, err := s.zw.Write(buf); err != nil {
		return err
	}
	delete(s.pending, row)
	delete(s.covered, row)
	return nil
}

func (s *StreamingPNGCanvas) ensureHeader() error {
	if s.headerWritten {
		return nil
	}
	s.headerWritten = true

	if _, err := s.w.Write(pngSignature); err != nil {
		return err
	}

	var ihdr [13]byte
	binary.BigEndian.PutUint32(ihdr[0:4], s.width)
	binary.BigEndian.PutUint32(ihdr[4:8], s.height)
	ihdr[8] = 8  // bit depth
	ihdr[9] = 6  // color type: truecolor with alpha, matching image.RGBA's layout
	ihdr[10] = 0 // compression method
	ihdr[11] = 0 // filter method
	ihdr[12] = 0 // interlace method: none
	if _, err := s.w.Write(buildPNGChunk("IHDR", ihdr[:])); err != nil {
		return err
	}

	if s.iccSet {
		compressed := deflatePNGProfile(s.icc)
		body := append([]byte("icc\x00"), 0) // profile name + compression method (zlib)
		body = append(body, compressed...)
		if _, err := s.w.Write(buildPNGChunk("iCCP", body)); err != nil {
			return err
		}
	}

	zw, err := zlib.NewWriterLevel(sinkWriter{s}, s.compression)
	if err != nil {
		return err
	}
	s.zw = zw
	return nil
}

// sinkWriter buffers zlib output and emits it as IDAT chunks once enough has
// accumulated, so the deflate stream never needs to be held in full.
type sinkWriter struct{ s *StreamingPNGCanvas }

func (sw sinkWriter) Write(p []byte) (int, error) {
	sw.s.chunkBuf = append(sw.s.chunkBuf, p...)
	for len(sw.s.chunkBuf) >= pngIDATChunkSize {
		if _, err := sw.s.w.Write(buildPNGChunk("IDAT", sw.s.chunkBuf[:pngIDATChunkSize])); err != nil {
			return 0, err
		}
		sw.s.chunkBuf = sw.s.chunkBuf[pngIDATChunkSize:]
	}
	return len(p), nil
}

// Finish flushes any rows left incomplete by partial tile failures
// (zero-filling their missing pixels so the stream still has exactly height
// rows), closes the deflate stream and writes the trailing IEND chunk.
func (s *StreamingPNGCanvas) Finish() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.ensureHeader(); err != nil {
		return err
	}
	for s.nextRow < s.height {
		if err := s.writeRow(s.nextRow); err != nil {
			return err
		}
		s.nextRow++
	}
	if err := s.zw.Close(); err != nil {
		return err
	}
	if len(s.chunkBuf) > 0 {
		if _, err := s.w.Write(buildPNGChunk("IDAT", s.chunkBuf)); err != nil {
			return err
		}
		s.chunkBuf = nil
	}
	_, err := s.w.Write(buildPNGChunk("IEND", nil))
	return err
}
