// Package customyaml implements the user-authored YAML tile-set format:
// a URL template whose {{expr}}/{{expr:0N}} placeholders are small
// arithmetic expressions evaluated against the current tile's x/y/z(oom)
// coordinates.
package customyaml

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	dezoomify "github.com/dezoomify/dezoomify-go"
)

// TileSet is the YAML document describing one custom tile layout.
type TileSet struct {
	URLTemplate string `yaml:"url"`
	Width       uint32 `yaml:"width"`
	Height      uint32 `yaml:"height"`
	TileSize    uint32 `yaml:"tile_size"`
	Title       string `yaml:"title"`
}

// Dezoomer builds a ZoomableImage directly from a YAML file path or URL
// ending in .yaml/.yml, rather than from the remote server's own
// metadata. The YAML bytes themselves are obtained through the same
// NeedsData suspend/resume loop the other drivers use.
type Dezoomer struct{}

func (Dezoomer) Name() string { return "custom_yaml" }

func (d Dezoomer) Step(input dezoomify.DezoomerInput) (dezoomify.DezoomerResult, *dezoomify.DezoomerError) {
	if !strings.HasSuffix(input.URI, ".yaml") && !strings.HasSuffix(input.URI, ".yml") {
		return dezoomify.DezoomerResult{}, dezoomify.WrongDezoomerErr("custom_yaml")
	}
	if input.Contents.Kind == dezoomify.Unknown {
		return dezoomify.DezoomerResult{}, dezoomify.NeedsDataErr(input.URI)
	}
	if input.Contents.Kind != dezoomify.Success {
		return dezoomify.DezoomerResult{}, dezoomify.WrongDezoomerErr("custom_yaml")
	}

	var set TileSet
	if err := yaml.Unmarshal(input.Contents.Bytes, &set); err != nil || set.URLTemplate == "" {
		return dezoomify.DezoomerResult{}, dezoomify.WrongDezoomerErr("custom_yaml")
	}
	if set.TileSize == 0 {
		set.TileSize = 256
	}

	image := &zoomableImage{set: set}
	return dezoomify.DezoomerResult{Images: []dezoomify.ZoomableImage{image}}, nil
}

type zoomableImage struct {
	set TileSet
}

func (z *zoomableImage) Title() *string {
	if z.set.Title == "" {
		return nil
	}
	return &z.set.Title
}

func (z *zoomableImage) ZoomLevels() ([]dezoomify.ZoomLevel, error) {
	return []dezoomify.ZoomLevel{&level{set: z.set}}, nil
}

type level struct {
	dezoomify.NoPostProcess
	dezoomify.NoHeaders
	set  TileSet
	done bool
}

func (l *level) Name() string   { return "custom_yaml" }
func (l *level) Title() *string { return nil }
func (l *level) SizeHint() *dezoomify.Vec2d {
	return &dezoomify.Vec2d{X: l.set.Width, Y: l.set.Height}
}

func (l *level) NextTileReferences(prev *dezoomify.TileFetchResult) []dezoomify.TileReference {
	if l.done {
		return nil
	}
	l.done = true

	ts := l.set.TileSize
	cols := (l.set.Width + ts - 1) / ts
	rows := (l.set.Height + ts - 1) / ts

	var refs []dezoomify.TileReference
	for row := uint32(0); row < rows; row++ {
		for col := uint32(0); col < cols; col++ {
			url, err := expandTemplate(l.set.URLTemplate, map[string]float64{
				"x": float64(col),
				"y": float64(row),
				"z": 0,
			})
			if err != nil {
				continue
			}
			refs = append(refs, dezoomify.TileReference{
				URL:      url,
				Position: dezoomify.Vec2d{X: col * ts, Y: row * ts},
			})
		}
	}
	return refs
}

// expandTemplate substitutes every {{expr}} or {{expr:0N}} placeholder in
// template with the result of evaluating expr against vars, zero-padding
// the formatted result to N digits when the ":0N" suffix is present.
func expandTemplate(template string, vars map[string]float64) (string, error) {
	var out strings.Builder
	i := 0
	for i < len(template) {
		start := strings.Index(template[i:], "{{")
		if start < 0 {
			out.WriteString(template[i:])
			break
		}
		out.WriteString(template[i : i+start])
		i += start + 2
		end := strings.Index(template[i:], "}}")
		if end < 0 {
			return "", fmt.Errorf("unterminated {{ in template")
		}
		expr := template[i : i+end]
		i += end + 2

		padWidth := 0
		if c := strings.LastIndex(expr, ":0"); c >= 0 {
			var n int
			if _, err := fmt.Sscanf(expr[c+2:], "%d", &n); err == nil {
				padWidth = n
				expr = expr[:c]
			}
		}

		v, err := evalExpr(expr, vars)
		if err != nil {
			return "", err
		}
		formatted := fmt.Sprintf("%d", int64(v))
		for len(formatted) < padWidth {
			formatted = "0" + formatted
		}
		out.WriteString(formatted)
	}
	return out.String(), nil
}
