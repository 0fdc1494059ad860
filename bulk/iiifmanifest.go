package bulk

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// ManifestParser extracts one Item per canvas from an IIIF Presentation
// API 3.0 manifest, recognised by its "@context"/"type":"Manifest" shape.
type ManifestParser struct{}

type presentationManifest struct {
	Type    string            `json:"type"`
	Context interface{}       `json:"@context"`
	Label   multilingualLabel `json:"label"`
	Items   []canvas          `json:"items"`
}

type canvas struct {
	ID    string            `json:"id"`
	Label multilingualLabel `json:"label"`
	Items []annotationPage  `json:"items"`
}

type annotationPage struct {
	Items []annotation `json:"items"`
}

type annotation struct {
	Body annotationBody `json:"body"`
}

type annotationBody struct {
	ID      string         `json:"id"`
	Service []iiifService  `json:"service"`
}

type iiifService struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// multilingualLabel decodes IIIF's {"en": ["Title"]} label shape into a
// single display string, falling back to the first language present.
type multilingualLabel map[string][]string

func (l multilingualLabel) String() string {
	if v, ok := l["en"]; ok && len(v) > 0 {
		return v[0]
	}
	for _, v := range l {
		if len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

func (p ManifestParser) Parse(data []byte) ([]Item, bool) {
	var m presentationManifest
	if err := json.Unmarshal(data, &m); err != nil || m.Type != "Manifest" {
		return nil, false
	}

	var items []Item
	for i, c := range m.Items {
		serviceURL := canvasImageServiceURL(c)
		if serviceURL == "" {
			continue
		}
		// The stem is the canvas label with spaces turned into underscores
		// and every other character that is not a letter, digit or
		// underscore dropped; an empty result falls back to "canvas_<i>".
		stem := strings.Map(func(r rune) rune {
			switch {
			case r == ' ':
				return '_'
			case r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
				return r
			}
			return -1
		}, c.Label.String())
		if stem == "" {
			stem = fmt.Sprintf("canvas_%d", i)
		}
		items = append(items, Item{
			DownloadURL:         serviceURL,
			DefaultFilenameStem: stem,
			TemplateVars: map[string]string{
				"index": fmt.Sprint(i),
				"label": c.Label.String(),
			},
		})
	}
	if len(items) == 0 {
		return nil, false
	}
	return items, true
}

// canvasImageServiceURL finds the IIIF Image API service ID attached to a
// canvas's first painting annotation, which is what the iiif dezoomer's
// info.json request is built from.
func canvasImageServiceURL(c canvas) string {
	for _, page := range c.Items {
		for _, ann := range page.Items {
			for _, svc := range ann.Body.Service {
				if svc.ID != "" {
					return svc.ID
				}
			}
			if ann.Body.ID != "" {
				return ann.Body.ID
			}
		}
	}
	return ""
}
