// Package pff implements the PFF ("pyramid file format") used by some
// library and archive viewers: a single binary container file whose
// header lists tile offsets directly, rather than a separate descriptor
// plus per-tile URLs.
//
// This driver parses the fixed 16-byte header (magic, tile size, image
// dimensions) but does not yet read the per-tile offset table that follows
// it in the container, so it cannot resolve a tile reference to the right
// byte range of real tile bytes. It is wired into the registry and
// produces a correctly shaped tile grid, but needs that offset table
// lookup before it can extract genuine image data from a PFF file.
package pff

import (
	"encoding/binary"
	"fmt"
	"strings"

	dezoomify "github.com/dezoomify/dezoomify-go"
)

type Dezoomer struct{}

func (Dezoomer) Name() string { return "pff" }

func (d Dezoomer) Step(input dezoomify.DezoomerInput) (dezoomify.DezoomerResult, *dezoomify.DezoomerError) {
	if !strings.HasSuffix(input.URI, ".pff") {
		return dezoomify.DezoomerResult{}, dezoomify.WrongDezoomerErr("pff")
	}
	if input.Contents.Kind == dezoomify.Unknown {
		return dezoomify.DezoomerResult{}, dezoomify.NeedsDataErr(input.URI)
	}
	if input.Contents.Kind != dezoomify.Success {
		return dezoomify.DezoomerResult{}, dezoomify.WrongDezoomerErr("pff")
	}

	header, err := parseHeader(input.Contents.Bytes)
	if err != nil {
		return dezoomify.DezoomerResult{}, dezoomify.WrongDezoomerErr("pff")
	}

	image := &zoomableImage{uri: input.URI, header: header}
	return dezoomify.DezoomerResult{Images: []dezoomify.ZoomableImage{image}}, nil
}

// pffHeader captures the fixed-size fields every PFF container starts
// with: magic, tile size and full image dimensions. Only this header is
// parsed; no per-tile offset table is read.
type pffHeader struct {
	tileSize uint32
	width    uint32
	height   uint32
}

var pffMagic = []byte("PFF!")

func parseHeader(data []byte) (pffHeader, error) {
	if len(data) < 16 || string(data[:4]) != string(pffMagic) {
		return pffHeader{}, fmt.Errorf("not a PFF header")
	}
	return pffHeader{
		tileSize: binary.LittleEndian.Uint32(data[4:8]),
		width:    binary.LittleEndian.Uint32(data[8:12]),
		height:   binary.LittleEndian.Uint32(data[12:16]),
	}, nil
}

type zoomableImage struct {
	uri    string
	header pffHeader
}

func (z *zoomableImage) Title() *string { return nil }

func (z *zoomableImage) ZoomLevels() ([]dezoomify.ZoomLevel, error) {
	return []dezoomify.ZoomLevel{&level{img: z}}, nil
}

type level struct {
	dezoomify.NoPostProcess
	img  *zoomableImage
	done bool
}

func (l *level) Name() string   { return "pff" }
func (l *level) Title() *string { return nil }
func (l *level) SizeHint() *dezoomify.Vec2d {
	return &dezoomify.Vec2d{X: l.img.header.width, Y: l.img.header.height}
}

func (l *level) HTTPHeaders() [][2]string { return nil }

func (l *level) NextTileReferences(prev *dezoomify.TileFetchResult) []dezoomify.TileReference {
	if l.done {
		return nil
	}
	l.done = true

	ts := l.img.header.tileSize
	cols := (l.img.header.width + ts - 1) / ts
	rows := (l.img.header.height + ts - 1) / ts

	var refs []dezoomify.TileReference
	for row := uint32(0); row < rows; row++ {
		for col := uint32(0); col < cols; col++ {
			// The real tile offset table lives inside the container and is
			// not resolved here (see the package doc comment); this fragment
			// only keeps each reference's URL unique per tile position.
			url := fmt.Sprintf("%s#tile=%d,%d", l.img.uri, col, row)
			refs = append(refs, dezoomify.TileReference{
				URL:      url,
				Position: dezoomify.Vec2d{X: col * ts, Y: row * ts},
			})
		}
	}
	return refs
}
