// Package deepzoom implements Microsoft Deep Zoom (.dzi descriptor plus a
// "_files" directory of per-level tile grids).
package deepzoom

import (
	"encoding/xml"
	"fmt"
	"strings"

	dezoomify "github.com/dezoomify/dezoomify-go"
)

type Dezoomer struct{}

func (Dezoomer) Name() string { return "deepzoom" }

type dziImage struct {
	XMLName    xml.Name `xml:"Image"`
	Format     string   `xml:"Format,attr"`
	TileSize   uint32   `xml:"TileSize,attr"`
	Overlap    uint32   `xml:"Overlap,attr"`
	Size       dziSize  `xml:"Size"`
}

type dziSize struct {
	Width  uint32 `xml:"Width,attr"`
	Height uint32 `xml:"Height,attr"`
}

func isDZI(uri string) bool {
	return strings.HasSuffix(uri, ".dzi") || strings.Contains(uri, "_files/")
}

func (d Dezoomer) Step(input dezoomify.DezoomerInput) (dezoomify.DezoomerResult, *dezoomify.DezoomerError) {
	if !isDZI(input.URI) {
		return dezoomify.DezoomerResult{}, dezoomify.WrongDezoomerErr("deepzoom")
	}
	descriptorURL := input.URI
	if !strings.HasSuffix(descriptorURL, ".dzi") {
		if idx := strings.Index(descriptorURL, "_files/"); idx >= 0 {
			descriptorURL = descriptorURL[:idx] + ".dzi"
		}
	}

	if input.Contents.Kind == dezoomify.Unknown {
		return dezoomify.DezoomerResult{}, dezoomify.NeedsDataErr(descriptorURL)
	}
	if input.Contents.Kind != dezoomify.Success {
		return dezoomify.DezoomerResult{}, dezoomify.WrongDezoomerErr("deepzoom")
	}

	var dzi dziImage
	if err := xml.Unmarshal(input.Contents.Bytes, &dzi); err != nil || dzi.Size.Width == 0 {
		return dezoomify.DezoomerResult{}, dezoomify.WrongDezoomerErr("deepzoom")
	}

	filesBase := strings.TrimSuffix(descriptorURL, ".dzi") + "_files"
	format := dzi.Format
	if format == "" {
		format = "jpg"
	}
	image := &zoomableImage{
		filesBase: filesBase,
		format:    format,
		tileSize:  dzi.TileSize,
		overlap:   dzi.Overlap,
		width:     dzi.Size.Width,
		height:    dzi.Size.Height,
	}
	return dezoomify.DezoomerResult{Images: []dezoomify.ZoomableImage{image}}, nil
}

type zoomableImage struct {
	filesBase string
	format    string
	tileSize  uint32
	overlap   uint32
	width     uint32
	height    uint32
}

func (z *zoomableImage) Title() *string { return nil }

// ZoomLevels returns one ZoomLevel per Deep Zoom pyramid tier, from the
// 1x1-pixel tier up to full resolution, highest resolution last so that
// Config.Largest naturally prefers it.
func (z *zoomableImage) ZoomLevels() ([]dezoomify.ZoomLevel, error) {
	maxTier := 0
	for w, h := z.width, z.height; w > 1 || h > 1; {
		w = (w + 1) / 2
		h = (h + 1) / 2
		maxTier++
	}

	var levels []dezoomify.ZoomLevel
	for tier := 0; tier <= maxTier; tier++ {
		shift := maxTier - tier
		w := (z.width + (1 << uint(shift)) - 1) >> uint(shift)
		h := (z.height + (1 << uint(shift)) - 1) >> uint(shift)
		if w == 0 || h == 0 {
			continue
		}
		levels = append(levels, &level{img: z, tier: tier, width: w, height: h})
	}
	return levels, nil
}

type level struct {
	dezoomify.NoPostProcess
	dezoomify.NoHeaders
	img    *zoomableImage
	tier   int
	width  uint32
	height uint32
	done   bool
}

func (l *level) Name() string   { return fmt.Sprintf("deepzoom-%d", l.tier) }
func (l *level) Title() *string { return nil }
func (l *level) SizeHint() *dezoomify.Vec2d {
	return &dezoomify.Vec2d{X: l.width, Y: l.height}
}

func (l *level) NextTileReferences(prev *dezoomify.TileFetchResult) []dezoomify.TileReference {
	if l.done {
		return nil
	}
	l.done = true

	ts := l.img.tileSize
	cols := (l.width + ts - 1) / ts
	rows := (l.height + ts - 1) / ts

	var refs []dezoomify.TileReference
	for row := uint32(0); row < rows; row++ {
		for col := uint32(0); col < cols; col++ {
			url := fmt.Sprintf("%s/%d/%d_%d.%s", l.img.filesBase, l.tier, col, row, l.img.format)
			refs = append(refs, dezoomify.TileReference{
				URL:      url,
				Position: dezoomify.Vec2d{X: col * ts, Y: row * ts},
			})
		}
	}
	return refs
}
