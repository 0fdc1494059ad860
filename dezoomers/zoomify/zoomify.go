// Package zoomify implements the Zoomify tile protocol: a single
// ImageProperties.xml descriptor plus a pyramid of tiles split across
// numbered TileGroup directories.
package zoomify

import (
	"encoding/xml"
	"fmt"
	"strings"

	dezoomify "github.com/dezoomify/dezoomify-go"
)

// Dezoomer recognises Zoomify's ImageProperties.xml descriptor.
type Dezoomer struct{}

func (Dezoomer) Name() string { return "zoomify" }

type imageProperties struct {
	XMLName  xml.Name `xml:"IMAGE_PROPERTIES"`
	Width    uint32   `xml:"WIDTH,attr"`
	Height   uint32   `xml:"HEIGHT,attr"`
	TileSize uint32   `xml:"TILESIZE,attr"`
}

func propertiesURL(uri string) string {
	if strings.HasSuffix(uri, "ImageProperties.xml") {
		return uri
	}
	base := strings.TrimSuffix(uri, "/")
	return base + "/ImageProperties.xml"
}

func (d Dezoomer) Step(input dezoomify.DezoomerInput) (dezoomify.DezoomerResult, *dezoomify.DezoomerError) {
	propsURL := propertiesURL(input.URI)

	if input.Contents.Kind == dezoomify.Unknown {
		return dezoomify.DezoomerResult{}, dezoomify.NeedsDataErr(propsURL)
	}
	if input.Contents.Kind != dezoomify.Success {
		return dezoomify.DezoomerResult{}, dezoomify.WrongDezoomerErr("zoomify")
	}

	var props imageProperties
	if err := xml.Unmarshal(input.Contents.Bytes, &props); err != nil || props.Width == 0 {
		return dezoomify.DezoomerResult{}, dezoomify.WrongDezoomerErr("zoomify")
	}

	baseURL := strings.TrimSuffix(propsURL, "/ImageProperties.xml")
	image := &zoomableImage{baseURL: baseURL, width: props.Width, height: props.Height, tileSize: props.TileSize}
	return dezoomify.DezoomerResult{Images: []dezoomify.ZoomableImage{image}}, nil
}

type zoomableImage struct {
	baseURL  string
	width    uint32
	height   uint32
	tileSize uint32
}

func (z *zoomableImage) Title() *string { return nil }

func (z *zoomableImage) ZoomLevels() ([]dezoomify.ZoomLevel, error) {
	return []dezoomify.ZoomLevel{&level{img: z}}, nil
}

// level exposes the single, full-resolution Zoomify zoom level: Zoomify's
// pyramid is an implementation detail of tile addressing, not separate
// selectable resolutions the way IIIF or Deep Zoom expose them.
type level struct {
	dezoomify.NoPostProcess
	dezoomify.NoHeaders
	img  *zoomableImage
	done bool
}

func (l *level) Name() string     { return "zoomify" }
func (l *level) Title() *string   { return nil }
func (l *level) SizeHint() *dezoomify.Vec2d {
	return &dezoomify.Vec2d{X: l.img.width, Y: l.img.height}
}

// numTiers counts how many pyramid tiers exist, including the 1x1-tile tier,
// per Zoomify's convention of halving dimensions each tier until both fit
// in one tile.
func (l *level) numTiers() int {
	w, h, ts := l.img.width, l.img.height, l.img.tileSize
	tiers := 1
	for w > ts || h > ts {
		w = (w + 1) / 2
		h = (h + 1) / 2
		tiers++
	}
	return tiers
}

func (l *level) NextTileReferences(prev *dezoomify.TileFetchResult) []dezoomify.TileReference {
	if l.done {
		return nil
	}
	l.done = true

	ts := l.img.tileSize
	tiers := l.numTiers()

	// Zoomify numbers tiers from the smallest (0) to the full-resolution
	// tier (tiers-1); dimensions at tier t are the full size halved
	// (tiers-1-t) times.
	tierDims := make([][2]uint32, tiers)
	w, h := l.img.width, l.img.height
	for t := tiers - 1; t >= 0; t-- {
		tierDims[t] = [2]uint32{w, h}
		w = (w + 1) / 2
		h = (h + 1) / 2
	}

	var refs []dezoomify.TileReference
	tileIndex := 0
	for t := 0; t < tiers; t++ {
		dimW, dimH := tierDims[t][0], tierDims[t][1]
		cols := (dimW + ts - 1) / ts
		rows := (dimH + ts - 1) / ts
		for row := uint32(0); row < rows; row++ {
			for col := uint32(0); col < cols; col++ {
				group := tileIndex / 256
				url := fmt.Sprintf("%s/TileGroup%d/%d-%d-%d.jpg", l.img.baseURL, group, t, col, row)
				if t == tiers-1 {
					refs = append(refs, dezoomify.TileReference{
						URL:      url,
						Position: dezoomify.Vec2d{X: col * ts, Y: row * ts},
					})
				}
				tileIndex++
			}
		}
	}
	return refs
}
