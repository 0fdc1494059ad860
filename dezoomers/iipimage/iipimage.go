// Package iipimage implements the IIP (Internet Imaging Protocol) server
// protocol: a single CGI endpoint taking a "FIF" (source file) parameter
// plus "OBJ" queries for metadata and "JTL" for individual tiles.
package iipimage

import (
	"fmt"
	"strconv"
	"strings"

	dezoomify "github.com/dezoomify/dezoomify-go"
)

type Dezoomer struct{}

func (Dezoomer) Name() string { return "iipimage" }

func infoURL(uri string) string {
	sep := "&"
	if !strings.Contains(uri, "?") {
		sep = "?"
	}
	return uri + sep + "obj=Max-size&obj=Tile-size&obj=Resolution-number"
}

func (d Dezoomer) Step(input dezoomify.DezoomerInput) (dezoomify.DezoomerResult, *dezoomify.DezoomerError) {
	if !strings.Contains(input.URI, "FIF=") {
		return dezoomify.DezoomerResult{}, dezoomify.WrongDezoomerErr("iipimage")
	}
	request := infoURL(input.URI)

	if input.Contents.Kind == dezoomify.Unknown {
		return dezoomify.DezoomerResult{}, dezoomify.NeedsDataErr(request)
	}
	if input.Contents.Kind != dezoomify.Success {
		return dezoomify.DezoomerResult{}, dezoomify.WrongDezoomerErr("iipimage")
	}

	info, err := parseResponse(string(input.Contents.Bytes))
	if err != nil {
		return dezoomify.DezoomerResult{}, dezoomify.WrongDezoomerErr("iipimage")
	}

	base := strings.SplitN(input.URI, "?", 2)[0]
	query := ""
	if idx := strings.Index(input.URI, "?"); idx >= 0 {
		query = input.URI[idx+1:]
	}
	image := &zoomableImage{base: base, query: query, info: info}
	return dezoomify.DezoomerResult{Images: []dezoomify.ZoomableImage{image}}, nil
}

type iipInfo struct {
	maxWidth, maxHeight uint32
	tileSize            uint32
	resolutions         int
}

// parseResponse parses IIP's line-oriented "Key:value" response format,
// e.g. "Max-size:4096 3072\nTile-size:256 256\nResolution-number:6\n".
func parseResponse(body string) (iipInfo, error) {
	var info iipInfo
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		switch parts[0] {
		case "Max-size":
			fmt.Sscanf(parts[1], "%d %d", &info.maxWidth, &info.maxHeight)
		case "Tile-size":
			var h uint32
			fmt.Sscanf(parts[1], "%d %d", &info.tileSize, &h)
		case "Resolution-number":
			info.resolutions, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
		}
	}
	if info.maxWidth == 0 || info.tileSize == 0 {
		return info, fmt.Errorf("incomplete IIP response")
	}
	return info, nil
}

type zoomableImage struct {
	base  string
	query string
	info  iipInfo
}

func (z *zoomableImage) Title() *string { return nil }

func (z *zoomableImage) ZoomLevels() ([]dezoomify.ZoomLevel, error) {
	resolutions := z.info.resolutions
	if resolutions <= 0 {
		resolutions = 1
	}
	levels := make([]dezoomify.ZoomLevel, 0, resolutions)
	for r := 0; r < resolutions; r++ {
		shift := resolutions - 1 - r
		w := z.info.maxWidth >> uint(shift)
		h := z.info.maxHeight >> uint(shift)
		if w == 0 || h == 0 {
			continue
		}
		levels = append(levels, &level{img: z, resolution: r, width: w, height: h})
	}
	return levels, nil
}

type level struct {
	dezoomify.NoPostProcess
	dezoomify.NoHeaders
	img        *zoomableImage
	resolution int
	width      uint32
	height     uint32
	done       bool
}

func (l *level) Name() string   { return fmt.Sprintf("iipimage-res-%d", l.resolution) }
func (l *level) Title() *string { return nil }
func (l *level) SizeHint() *dezoomify.Vec2d {
	return &dezoomify.Vec2d{X: l.width, Y: l.height}
}

func (l *level) NextTileReferences(prev *dezoomify.TileFetchResult) []dezoomify.TileReference {
	if l.done {
		return nil
	}
	l.done = true

	ts := l.img.info.tileSize
	cols := (l.width + ts - 1) / ts
	rows := (l.height + ts - 1) / ts

	var refs []dezoomify.TileReference
	for row := uint32(0); row < rows; row++ {
		for col := uint32(0); col < cols; col++ {
			index := row*cols + col
			url := fmt.Sprintf("%s?%s&JTL=%d,%d", l.img.base, l.img.query, l.resolution, index)
			refs = append(refs, dezoomify.TileReference{
				URL:      url,
				Position: dezoomify.Vec2d{X: col * ts, Y: row * ts},
			})
		}
	}
	return refs
}
