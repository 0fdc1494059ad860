package dezoomify

import (
	"context"
	"net/http"
	"testing"
)

// fakeDezoomer accepts any URI it's told to, returning a single canned
// ZoomableImage, unless rejected is set, in which case Step always declines
// with WrongDezoomer.
type fakeDezoomer struct {
	name     string
	rejected bool
}

func (d fakeDezoomer) Name() string { return d.name }

func (d fakeDezoomer) Step(input DezoomerInput) (DezoomerResult, *DezoomerError) {
	if d.rejected {
		return DezoomerResult{}, WrongDezoomerErr(d.name)
	}
	return DezoomerResult{Images: []ZoomableImage{stubImage{name: d.name}}}, nil
}

type stubImage struct{ name string }

func (s stubImage) Title() *string            { return &s.name }
func (s stubImage) ZoomLevels() ([]ZoomLevel, error) { return nil, nil }

func TestRegistryPriorityTablePrefersIIIFForInfoJSON(t *testing.T) {
	r := NewRegistry()
	r.Register(fakeDezoomer{name: "generic"})
	r.Register(fakeDezoomer{name: "zoomify"})
	r.Register(fakeDezoomer{name: "iiif"})

	candidates := r.candidatesForURL("https://example.org/image/info.json", true)
	if len(candidates) == 0 || candidates[0] != "iiif" {
		t.Fatalf("expected iiif first for an info.json URL, got %v", candidates)
	}
}

func TestRegistryPriorityTableExcludesGenericUnlessRequested(t *testing.T) {
	r := NewRegistry()
	r.Register(fakeDezoomer{name: "zoomify"})
	r.Register(fakeDezoomer{name: "generic"})

	candidates := r.candidatesForURL("https://example.org/ImageProperties.xml", false)
	for _, c := range candidates {
		if c == "generic" {
			t.Fatalf("generic should be excluded when includeGeneric is false, got %v", candidates)
		}
	}

	withGeneric := r.candidatesForURL("https://example.org/ImageProperties.xml", true)
	found := false
	for _, c := range withGeneric {
		if c == "generic" {
			found = true
		}
	}
	if !found {
		t.Fatalf("generic should appear as a fallback candidate when requested, got %v", withGeneric)
	}
}

func TestRegistryRunFallsThroughRejectedCandidates(t *testing.T) {
	r := NewRegistry()
	r.Register(fakeDezoomer{name: "zoomify", rejected: true})
	r.Register(fakeDezoomer{name: "iiif"})

	result, err := r.Run(context.Background(), "https://example.org/ImageProperties.xml", false, http.DefaultClient)
	if err != nil {
		t.Fatalf("expected the iiif fallback to succeed, got %v", err)
	}
	if len(result.Images) != 1 {
		t.Fatalf("expected exactly one image from the accepting dezoomer, got %d", len(result.Images))
	}
}

func TestRegistryRunReturnsAggregateErrorWhenAllDecline(t *testing.T) {
	r := NewRegistry()
	r.Register(fakeDezoomer{name: "zoomify", rejected: true})
	r.Register(fakeDezoomer{name: "iiif", rejected: true})

	_, err := r.Run(context.Background(), "https://example.org/ImageProperties.xml", false, http.DefaultClient)
	if err == nil {
		t.Fatal("expected an error when every candidate declines")
	}
	autoErr, ok := err.(*AutoDezoomerError)
	if !ok {
		t.Fatalf("expected *AutoDezoomerError, got %T", err)
	}
	if len(autoErr.Reasons) != 2 {
		t.Fatalf("expected a reason recorded per declining candidate, got %d", len(autoErr.Reasons))
	}
}
