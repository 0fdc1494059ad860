// Package iiif implements the IIIF Image API: an info.json descriptor
// naming the image's full size and a tile grid, addressed via the
// region/size/rotation/quality.format URL syntax the API defines.
package iiif

import (
	"encoding/json"
	"fmt"
	"strings"

	dezoomify "github.com/dezoomify/dezoomify-go"
)

type Dezoomer struct{}

func (Dezoomer) Name() string { return "iiif" }

type tileInfo struct {
	Width        uint32   `json:"width"`
	Height       uint32   `json:"height"`
	ScaleFactors []uint32 `json:"scaleFactors"`
}

type infoJSON struct {
	ID     string     `json:"@id"`
	Width  uint32     `json:"width"`
	Height uint32     `json:"height"`
	Tiles  []tileInfo `json:"tiles"`
}

func infoURL(uri string) string {
	if strings.HasSuffix(uri, "info.json") {
		return uri
	}
	return strings.TrimSuffix(uri, "/") + "/info.json"
}

func (d Dezoomer) Step(input dezoomify.DezoomerInput) (dezoomify.DezoomerResult, *dezoomify.DezoomerError) {
	if !strings.Contains(input.URI, "iiif") && !strings.HasSuffix(input.URI, "info.json") {
		return dezoomify.DezoomerResult{}, dezoomify.WrongDezoomerErr("iiif")
	}
	url := infoURL(input.URI)

	if input.Contents.Kind == dezoomify.Unknown {
		return dezoomify.DezoomerResult{}, dezoomify.NeedsDataErr(url)
	}
	if input.Contents.Kind != dezoomify.Success {
		return dezoomify.DezoomerResult{}, dezoomify.WrongDezoomerErr("iiif")
	}

	var info infoJSON
	if err := json.Unmarshal(input.Contents.Bytes, &info); err != nil || info.Width == 0 {
		return dezoomify.DezoomerResult{}, dezoomify.WrongDezoomerErr("iiif")
	}

	baseURL := info.ID
	if baseURL == "" {
		baseURL = strings.TrimSuffix(url, "/info.json")
	}

	tileW, tileH := uint32(512), uint32(512)
	var scales []uint32
	if len(info.Tiles) > 0 {
		tileW = info.Tiles[0].Width
		if info.Tiles[0].Height != 0 {
			tileH = info.Tiles[0].Height
		} else {
			tileH = tileW
		}
		scales = info.Tiles[0].ScaleFactors
	}
	if len(scales) == 0 {
		scales = []uint32{1}
	}

	image := &zoomableImage{
		baseURL: baseURL,
		width:   info.Width,
		height:  info.Height,
		tileW:   tileW,
		tileH:   tileH,
		scales:  scales,
	}
	return dezoomify.DezoomerResult{Images: []dezoomify.ZoomableImage{image}}, nil
}

type zoomableImage struct {
	baseURL string
	width   uint32
	height  uint32
	tileW   uint32
	tileH   uint32
	scales  []uint32
}

func (z *zoomableImage) Title() *string { return nil }

func (z *zoomableImage) ZoomLevels() ([]dezoomify.ZoomLevel, error) {
	levels := make([]dezoomify.ZoomLevel, 0, len(z.scales))
	for _, s := range z.scales {
		levels = append(levels, &level{img: z, scale: s})
	}
	return levels, nil
}

type level struct {
	dezoomify.NoPostProcess
	dezoomify.NoHeaders
	img   *zoomableImage
	scale uint32
	done  bool
}

func (l *level) Name() string { return fmt.Sprintf("iiif-scale-%d", l.scale) }
func (l *level) Title() *string { return nil }
func (l *level) SizeHint() *dezoomify.Vec2d {
	w := (l.img.width + l.scale - 1) / l.scale
	h := (l.img.height + l.scale - 1) / l.scale
	return &dezoomify.Vec2d{X: w, Y: h}
}

// NextTileReferences builds every tile request for this scale factor in
// one batch: IIIF's region/size syntax lets each request stand alone, so
// there is no adaptive probing needed the way the generic dezoomer needs.
func (l *level) NextTileReferences(prev *dezoomify.TileFetchResult) []dezoomify.TileReference {
	if l.done {
		return nil
	}
	l.done = true

	step := l.scale * l.img.tileW
	stepH := l.scale * l.img.tileH
	var refs []dezoomify.TileReference
	for y := uint32(0); y < l.img.height; y += stepH {
		for x := uint32(0); x < l.img.width; x += step {
			regionW := step
			if x+regionW > l.img.width {
				regionW = l.img.width - x
			}
			regionH := stepH
			if y+regionH > l.img.height {
				regionH = l.img.height - y
			}
			outW := regionW / l.scale
			if outW == 0 {
				outW = 1
			}
			url := fmt.Sprintf("%s/%d,%d,%d,%d/%d,/0/default.jpg",
				l.img.baseURL, x, y, regionW, regionH, outW)
			refs = append(refs, dezoomify.TileReference{
				URL:      url,
				Position: dezoomify.Vec2d{X: x / l.scale, Y: y / l.scale},
			})
		}
	}
	return refs
}
