package dezoomify

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// urlPriorityRule is one entry of the URL-substring prioritization table
// original_source/src/auto.rs::prioritize_dezoomers_for_url hard-codes.
// Matching is case-sensitive and first-match-wins, exactly as upstream.
type urlPriorityRule struct {
	substring string
	dezoomer  string
}

var urlPriorityTable = []urlPriorityRule{
	{"info.json", "iiif"},
	{"iiif", "iiif"},
	{"manifest.json", "iiif"},
	{".dzi", "deepzoom"},
	{"_files/", "deepzoom"},
	{"?FIF", "iipimage"},
	{"tiles.xml", "krpano"},
	{"ImageProperties.xml", "zoomify"},
	{"TileGroup", "zoomify"},
	{"digitalcollections.nypl.org", "nypl"},
	{"{{", "generic"},
}

// Registry holds every known Dezoomer and drives the auto-dispatch loop
// the CLI uses when the user does not pin a specific one with --dezoomer.
type Registry struct {
	dezoomers map[string]Dezoomer
	order     []string // registration order, used when no priority rule matches
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{dezoomers: make(map[string]Dezoomer)}
}

// Register adds d under its own Name(). Registering a name twice replaces
// the previous entry, matching a CLI that allows overriding defaults.
func (r *Registry) Register(d Dezoomer) {
	if _, exists := r.dezoomers[d.Name()]; !exists {
		r.order = append(r.order, d.Name())
	}
	r.dezoomers[d.Name()] = d
}

// Lookup returns the Dezoomer registered under name, if any.
func (r *Registry) Lookup(name string) (Dezoomer, bool) {
	d, ok := r.dezoomers[name]
	return d, ok
}

// candidatesForURL returns the dezoomer names worth trying for uri, in
// priority order: every name whose priority substring appears in uri,
// followed by every other registered name (excluding "generic" unless
// includeGeneric is set, since generic matches almost anything and should
// only be tried as a last resort or when explicitly requested).
func (r *Registry) candidatesForURL(uri string, includeGeneric bool) []string {
	seen := make(map[string]bool)
	var ordered []string

	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		if _, ok := r.dezoomers[name]; !ok {
			return
		}
		seen[name] = true
		ordered = append(ordered, name)
	}

	for _, rule := range urlPriorityTable {
		if strings.Contains(uri, rule.substring) {
			add(rule.dezoomer)
		}
	}
	for _, name := range r.order {
		if name == "generic" && !includeGeneric {
			continue
		}
		add(name)
	}
	return ordered
}

// AutoDezoomerError aggregates the per-candidate failures auto-dispatch
// collects when every candidate dezoomer declines a URI.
type AutoDezoomerError struct {
	URI     string
	Reasons map[string]error
}

func (e *AutoDezoomerError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "no dezoomer recognised %s:", e.URI)
	for _, name := range sortedKeys(e.Reasons) {
		fmt.Fprintf(&b, "\n  %s: %v", name, e.Reasons[name])
	}
	return b.String()
}

func sortedKeys(m map[string]error) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Run drives the auto-dispatch state machine for one URI: it tries each
// candidate dezoomer in priority order, following NeedsData requests by
// fetching the requested URI and retrying the same dezoomer, until one
// candidate succeeds, is rejected as WrongDezoomer (move to the next
// candidate), or every candidate has failed.
//
// The candidate list is built once from candidatesForURL and never mutated
// while iterating, in place of the original's in-place Vec retain/swap
// (original_source/src/auto.rs::AutoDezoomer::step).
func (r *Registry) Run(ctx context.Context, uri string, includeGeneric bool, client *http.Client) (DezoomerResult, error) {
	candidates := r.candidatesForURL(uri, includeGeneric)
	if len(candidates) == 0 {
		return DezoomerResult{}, &AutoDezoomerError{URI: uri, Reasons: map[string]error{}}
	}

	reasons := make(map[string]error)
	for _, name := range candidates {
		d := r.dezoomers[name]
		result, err := r.runOne(ctx, d, uri, client)
		if err == nil {
			return result, nil
		}
		reasons[name] = err
	}
	return DezoomerResult{}, &AutoDezoomerError{URI: uri, Reasons: reasons}
}

// runOne drives a single Dezoomer's NeedsData suspend/resume loop to
// completion or failure.
func (r *Registry) runOne(ctx context.Context, d Dezoomer, uri string, client *http.Client) (DezoomerResult, error) {
	input := DezoomerInput{URI: uri}
	const maxRounds = 8 // a dezoomer legitimately needing more data than this is a bug, not a slow network
	for round := 0; round < maxRounds; round++ {
		result, dzErr := d.Step(input)
		if dzErr == nil {
			return result, nil
		}
		switch dzErr.Kind {
		case NeedsData:
			data, err := FetchURI(ctx, dzErr.URI, client)
			input = DezoomerInput{URI: uri, Contents: PageContentsFromFetch(data, err)}
			continue
		case WrongDezoomer:
			return DezoomerResult{}, dzErr
		default:
			return DezoomerResult{}, dzErr
		}
	}
	return DezoomerResult{}, WrapDezoomerErr(fmt.Errorf("too many NeedsData rounds for %s", d.Name()))
}
