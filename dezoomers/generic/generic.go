// Package generic implements the fallback dezoomer: a URL template with
// {{X}}/{{Y}} (and optional {{Z}} for zoom level) placeholders, fetching
// tiles until a row or column starts failing.
package generic

import (
	"regexp"
	"strconv"
	"strings"

	dezoomify "github.com/dezoomify/dezoomify-go"
)

// Dezoomer recognises URLs containing "{{", a template marker no real tile
// server would ever emit on its own, so it only ever triggers on
// explicitly user-authored input.
type Dezoomer struct{}

func (Dezoomer) Name() string { return "generic" }

func (d Dezoomer) Step(input dezoomify.DezoomerInput) (dezoomify.DezoomerResult, *dezoomify.DezoomerError) {
	if !strings.Contains(input.URI, "{{") {
		return dezoomify.DezoomerResult{}, dezoomify.WrongDezoomerErr("generic")
	}
	img := &zoomableImage{template: input.URI}
	return dezoomify.DezoomerResult{Images: []dezoomify.ZoomableImage{img}}, nil
}

type zoomableImage struct {
	template string
}

func (z *zoomableImage) Title() *string { return nil }

func (z *zoomableImage) ZoomLevels() ([]dezoomify.ZoomLevel, error) {
	return []dezoomify.ZoomLevel{&level{template: z.template, tileSize: 256}}, nil
}

var placeholderPattern = regexp.MustCompile(`\{\{([A-Za-z]+)\}\}`)

// expand substitutes {{X}}/{{Y}}/{{Z}} placeholders with decimal values.
func expand(template string, x, y, z int) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(m string) string {
		name := strings.ToUpper(placeholderPattern.FindStringSubmatch(m)[1])
		switch name {
		case "X":
			return strconv.Itoa(x)
		case "Y":
			return strconv.Itoa(y)
		case "Z":
			return strconv.Itoa(z)
		default:
			return m
		}
	})
}

// level probes a grid of tiles row by row, column by column, stopping a
// row once the first tile in it 404s and stopping entirely once an empty
// row is found, mirroring the adaptive edge-probing
// original_source/src/generic/mod.rs performs (there, driven by the same
// PageContents::HttpError signal NextTileReferences here infers from the
// previous TileFetchResult feedback).
type level struct {
	dezoomify.NoPostProcess
	dezoomify.NoHeaders
	template string
	tileSize uint32

	row  int
	col  int
	done bool
	size dezoomify.Vec2d
}

func (l *level) Name() string   { return "generic" }
func (l *level) Title() *string { return nil }
func (l *level) SizeHint() *dezoomify.Vec2d {
	if l.size.X == 0 && l.size.Y == 0 {
		return nil
	}
	return &l.size
}

// NextTileReferences returns one tile reference per call: the generic
// dezoomer cannot know its grid dimensions up front, so it probes one
// column at a time and uses the previous attempt's success/failure to
// decide whether to continue the row, wrap to the next row, or stop.
func (l *level) NextTileReferences(prev *dezoomify.TileFetchResult) []dezoomify.TileReference {
	if l.done {
		return nil
	}
	if prev != nil {
		if prev.Successes == 0 {
			if l.col == 0 {
				// The very first tile of a new row failed: the grid ends here.
				l.done = true
				return nil
			}
			// End of this row: start the next one.
			l.row++
			l.col = 0
		} else {
			if prev.TileSize != nil {
				right := uint32(l.col)*prev.TileSize.X + prev.TileSize.X
				if right > l.size.X {
					l.size.X = right
				}
				bottom := uint32(l.row)*prev.TileSize.Y + prev.TileSize.Y
				if bottom > l.size.Y {
					l.size.Y = bottom
				}
			}
			l.col++
		}
	}

	url := expand(l.template, l.col, l.row, 0)
	return []dezoomify.TileReference{{
		URL:      url,
		Position: dezoomify.Vec2d{X: uint32(l.col) * l.tileSize, Y: uint32(l.row) * l.tileSize},
	}}
}
