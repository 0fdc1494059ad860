// Package nypl implements the New York Public Library Digital Collections
// viewer: a page whose embedded JSON carries an IIIF-adjacent tile
// descriptor at a predictable per-item API endpoint.
package nypl

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	dezoomify "github.com/dezoomify/dezoomify-go"
)

type Dezoomer struct{}

func (Dezoomer) Name() string { return "nypl" }

var itemIDPattern = regexp.MustCompile(`/items/([a-f0-9-]+)`)

type highresCaptures struct {
	HighResCaptures []capture `json:"highResCaptures"`
}

type capture struct {
	ImageID  string `json:"imageID"`
	TileBase string `json:"tileBase"`
	Width    uint32 `json:"width"`
	Height   uint32 `json:"height"`
}

func apiURL(itemID string) string {
	return fmt.Sprintf("https://digitalcollections.nypl.org/items/%s.json", itemID)
}

func (d Dezoomer) Step(input dezoomify.DezoomerInput) (dezoomify.DezoomerResult, *dezoomify.DezoomerError) {
	if !strings.Contains(input.URI, "digitalcollections.nypl.org") {
		return dezoomify.DezoomerResult{}, dezoomify.WrongDezoomerErr("nypl")
	}
	m := itemIDPattern.FindStringSubmatch(input.URI)
	if m == nil {
		return dezoomify.DezoomerResult{}, dezoomify.WrongDezoomerErr("nypl")
	}
	itemID := m[1]
	apiRequest := apiURL(itemID)

	if input.Contents.Kind == dezoomify.Unknown {
		return dezoomify.DezoomerResult{}, dezoomify.NeedsDataErr(apiRequest)
	}
	if input.Contents.Kind != dezoomify.Success {
		return dezoomify.DezoomerResult{}, dezoomify.WrongDezoomerErr("nypl")
	}

	var data highresCaptures
	if err := json.Unmarshal(input.Contents.Bytes, &data); err != nil || len(data.HighResCaptures) == 0 {
		return dezoomify.DezoomerResult{}, dezoomify.WrongDezoomerErr("nypl")
	}

	images := make([]dezoomify.ZoomableImage, 0, len(data.HighResCaptures))
	for _, c := range data.HighResCaptures {
		if c.Width == 0 || c.TileBase == "" {
			continue
		}
		images = append(images, &zoomableImage{capture: c})
	}
	if len(images) == 0 {
		return dezoomify.DezoomerResult{}, dezoomify.WrongDezoomerErr("nypl")
	}

	return dezoomify.DezoomerResult{Images: images}, nil
}

type zoomableImage struct {
	capture capture
}

func (z *zoomableImage) Title() *string { return &z.capture.ImageID }

func (z *zoomableImage) ZoomLevels() ([]dezoomify.ZoomLevel, error) {
	return []dezoomify.ZoomLevel{&level{img: z}}, nil
}

const nyplTileSize = 1024

type level struct {
	dezoomify.NoPostProcess
	dezoomify.NoHeaders
	img  *zoomableImage
	done bool
}

func (l *level) Name() string   { return "nypl" }
func (l *level) Title() *string { return &l.img.capture.ImageID }
func (l *level) SizeHint() *dezoomify.Vec2d {
	return &dezoomify.Vec2d{X: l.img.capture.Width, Y: l.img.capture.Height}
}

func (l *level) NextTileReferences(prev *dezoomify.TileFetchResult) []dezoomify.TileReference {
	if l.done {
		return nil
	}
	l.done = true

	c := l.img.capture
	cols := (c.Width + nyplTileSize - 1) / nyplTileSize
	rows := (c.Height + nyplTileSize - 1) / nyplTileSize

	var refs []dezoomify.TileReference
	for row := uint32(0); row < rows; row++ {
		for col := uint32(0); col < cols; col++ {
			url := fmt.Sprintf("%s/%d_%d.jpg", c.TileBase, col, row)
			refs = append(refs, dezoomify.TileReference{
				URL:      url,
				Position: dezoomify.Vec2d{X: col * nyplTileSize, Y: row * nyplTileSize},
			})
		}
	}
	return refs
}
