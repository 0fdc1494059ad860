package dezoomify

import (
	"image"
	"io"
)

// encodeTIFF writes img as an uncompressed baseline TIFF (8-bit RGB,
// chunky/interleaved, one strip). golang.org/x/image/tiff only implements
// decoding (see tile.go), so there is no pack library to encode with;
// baseline TIFF's header and IFD layout are small and fixed enough that a
// direct implementation is the right "no suitable library" case DESIGN.md
// documents, the same way icc.go hand-writes JPEG/PNG metadata segments.
func encodeTIFF(w io.Writer, img image.Image) error {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()

	pixels := make([]byte, width*height*3)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			pixels[i] = byte(r >> 8)
			pixels[i+1] = byte(g >> 8)
			pixels[i+2] = byte(bl >> 8)
			i += 3
		}
	}

	const headerSize = 8
	type ifdEntry struct {
		tag, typ uint16
		count    uint32
		value    uint32
	}
	bps := []uint16{8, 8, 8}

	// Entries needing out-of-line storage (BitsPerSample array) are placed
	// right after the header; the pixel strip follows; the IFD comes last.
	bpsOffset := uint32(headerSize)
	stripOffset := bpsOffset + uint32(len(bps)*2)
	ifdOffset := stripOffset + uint32(len(pixels))

	// Resolution tags (282/283) are omitted rather than stubbed: the RATIONAL
	// type they require stores its value out-of-line via an offset, and a
	// literal 0 in the entry's value field would point readers at a bogus
	// rational instead of leaving the tag out entirely.
	// ImageWidth/ImageLength/RowsPerStrip use the LONG type (4) rather than
	// SHORT (3): the gigapixel images this package targets routinely exceed
	// SHORT's 65535 limit on one axis.
	entries := []ifdEntry{
		{256, 4, 1, uint32(width)},             // ImageWidth
		{257, 4, 1, uint32(height)},             // ImageLength
		{258, 3, 3, bpsOffset},                  // BitsPerSample (array)
		{259, 3, 1, 1},                          // Compression: none
		{262, 3, 1, 2},                          // PhotometricInterpretation: RGB
		{273, 4, 1, stripOffset},                // StripOffsets
		{277, 3, 1, 3},                          // SamplesPerPixel
		{278, 4, 1, uint32(height)},             // RowsPerStrip
		{279, 4, 1, uint32(len(pixels))},        // StripByteCounts
		{284, 3, 1, 1},                          // PlanarConfiguration: chunky
	}

	var out []byte
	put16 := func(v uint16) { out = append(out, byte(v), byte(v>>8)) }
	put32 := func(v uint32) { out = append(out, byte(v), byte(v>>8), byte(v>>16), byte(v>>24)) }

	// Header: little-endian, magic 42, offset of first IFD.
	out = append(out, 'I', 'I')
	put16(42)
	put32(ifdOffset)

	for _, v := range bps {
		put16(v)
	}

	out = append(out, pixels...)

	put16(uint16(len(entries)))
	for _, e := range entries {
		put16(e.tag)
		put16(e.typ)
		put32(e.count)
		put32(e.value)
	}
	put32(0) // no next IFD

	if int(ifdOffset) != len(out)-(2+len(entries)*12+4) {
		// Layout invariant: catches an arithmetic mistake above rather than
		// emitting a corrupt file silently.
		return errTIFFLayout
	}

	_, err := w.Write(out)
	return err
}

var errTIFFLayout = tiffLayoutError{}

type tiffLayoutError struct{}

func (tiffLayoutError) Error() string { return "tiff encoder: internal offset mismatch" }
