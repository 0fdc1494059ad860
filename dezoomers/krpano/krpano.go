// Package krpano implements the krpano panorama viewer's tiles.xml
// descriptor: a cube-map or cylindrical panorama split into per-face,
// per-level tile grids.
package krpano

import (
	"encoding/xml"
	"fmt"
	"strings"

	dezoomify "github.com/dezoomify/dezoomify-go"
)

type Dezoomer struct{}

func (Dezoomer) Name() string { return "krpano" }

type krpanoXML struct {
	XMLName xml.Name    `xml:"krpano"`
	Image   krpanoImage `xml:"image"`
}

type krpanoImage struct {
	TileSize uint32       `xml:"tilesize,attr"`
	Levels   []krpanoLevel `xml:"level"`
}

type krpanoLevel struct {
	TiledImageWidth  uint32      `xml:"tiledimagewidth,attr"`
	TiledImageHeight uint32      `xml:"tiledimageheight,attr"`
	Cube             krpanoCube `xml:"cube"`
}

type krpanoCube struct {
	URL string `xml:"url,attr"`
}

func (d Dezoomer) Step(input dezoomify.DezoomerInput) (dezoomify.DezoomerResult, *dezoomify.DezoomerError) {
	if !strings.Contains(input.URI, "tiles.xml") {
		return dezoomify.DezoomerResult{}, dezoomify.WrongDezoomerErr("krpano")
	}
	if input.Contents.Kind == dezoomify.Unknown {
		return dezoomify.DezoomerResult{}, dezoomify.NeedsDataErr(input.URI)
	}
	if input.Contents.Kind != dezoomify.Success {
		return dezoomify.DezoomerResult{}, dezoomify.WrongDezoomerErr("krpano")
	}

	var doc krpanoXML
	if err := xml.Unmarshal(input.Contents.Bytes, &doc); err != nil || len(doc.Image.Levels) == 0 {
		return dezoomify.DezoomerResult{}, dezoomify.WrongDezoomerErr("krpano")
	}

	baseURL := strings.TrimSuffix(input.URI, "tiles.xml")
	var levels []dezoomify.ZoomLevel
	for i, lvl := range doc.Image.Levels {
		if lvl.TiledImageWidth == 0 {
			continue
		}
		urlTemplate := lvl.Cube.URL
		if urlTemplate == "" {
			continue
		}
		levels = append(levels, &level{
			baseURL:     baseURL,
			urlTemplate: urlTemplate,
			tileSize:    doc.Image.TileSize,
			width:       lvl.TiledImageWidth,
			height:      lvl.TiledImageHeight,
			index:       i,
		})
	}
	if len(levels) == 0 {
		return dezoomify.DezoomerResult{}, dezoomify.WrongDezoomerErr("krpano")
	}

	image := &zoomableImage{levels: levels}
	return dezoomify.DezoomerResult{Images: []dezoomify.ZoomableImage{image}}, nil
}

type zoomableImage struct {
	levels []dezoomify.ZoomLevel
}

func (z *zoomableImage) Title() *string                    { return nil }
func (z *zoomableImage) ZoomLevels() ([]dezoomify.ZoomLevel, error) { return z.levels, nil }

type level struct {
	dezoomify.NoPostProcess
	dezoomify.NoHeaders
	baseURL     string
	urlTemplate string
	tileSize    uint32
	width       uint32
	height      uint32
	index       int
	done        bool
}

func (l *level) Name() string   { return fmt.Sprintf("krpano-level-%d", l.index) }
func (l *level) Title() *string { return nil }
func (l *level) SizeHint() *dezoomify.Vec2d {
	return &dezoomify.Vec2d{X: l.width, Y: l.height}
}

// NextTileReferences expands krpano's %c (column)/%r (row)/%v (level) tile
// URL template for a flat tiled image; a %s (face) placeholder is left
// unexpanded, so cube-map panoramas are not handled.
func (l *level) NextTileReferences(prev *dezoomify.TileFetchResult) []dezoomify.TileReference {
	if l.done {
		return nil
	}
	l.done = true

	ts := l.tileSize
	cols := (l.width + ts - 1) / ts
	rows := (l.height + ts - 1) / ts

	var refs []dezoomify.TileReference
	for row := uint32(0); row < rows; row++ {
		for col := uint32(0); col < cols; col++ {
			url := l.baseURL + expand(l.urlTemplate, l.index, int(col), int(row))
			refs = append(refs, dezoomify.TileReference{
				URL:      url,
				Position: dezoomify.Vec2d{X: col * ts, Y: row * ts},
			})
		}
	}
	return refs
}

func expand(template string, level, col, row int) string {
	r := strings.NewReplacer(
		"%v", fmt.Sprintf("%d", level),
		"%c", fmt.Sprintf("%d", col),
		"%r", fmt.Sprintf("%d", row),
	)
	return r.Replace(template)
}
