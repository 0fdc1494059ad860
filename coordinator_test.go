package dezoomify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

// twoBatchLevel hands out two one-tile batches, then stops. batchStarted is
// invoked just before the second batch is produced, so tests can assert on
// how much of the first batch the coordinator has already committed to its
// sink by that point.
type twoBatchLevel struct {
	NoPostProcess
	NoHeaders
	urls         []string
	size         Vec2d
	firstPos     Vec2d
	batchStarted func()
}

func (l *twoBatchLevel) Name() string   { return "twobatch" }
func (l *twoBatchLevel) Title() *string { return nil }
func (l *twoBatchLevel) SizeHint() *Vec2d {
	return &l.size
}

func (l *twoBatchLevel) NextTileReferences(prev *TileFetchResult) []TileReference {
	switch {
	case prev == nil:
		return []TileReference{{URL: l.urls[0], Position: l.firstPos}}
	case l.batchStarted != nil:
		l.batchStarted()
		l.batchStarted = nil
		fallthrough
	default:
		if len(l.urls) < 2 {
			return nil
		}
		if prev.Count == 0 {
			return nil
		}
		urls := l.urls[1:]
		l.urls = l.urls[:1]
		return []TileReference{{URL: urls[0], Position: Vec2d{X: 2, Y: 0}}}
	}
}

// countingSink records every AddTile call so tests can inspect how many
// tiles had landed at a given point in the run.
type countingSink struct {
	tiles []*Tile
}

func (s *countingSink) AddTile(tile *Tile) error {
	s.tiles = append(s.tiles, tile)
	return nil
}

func TestCoordinatorRunWritesEachBatchBeforeRequestingTheNext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(tinyPNG(t))
	}))
	defer srv.Close()

	sink := &countingSink{}
	var countAtSecondBatch int
	level := &twoBatchLevel{
		urls: []string{srv.URL, srv.URL},
		size: Vec2d{X: 4, Y: 2},
		batchStarted: func() {
			countAtSecondBatch = len(sink.tiles)
		},
	}

	dl := NewTileDownloader(srv.Client(), DownloaderConfig{Throttler: NewThrottler(0)})
	coordinator := NewTileDownloadCoordinator(dl, 4, nil)

	state, err := coordinator.Run(context.Background(), NewZoomLevelIter(level), sink)
	if err != nil {
		t.Fatal(err)
	}
	if countAtSecondBatch != 1 {
		t.Fatalf("the first batch's tile should already be in the sink before the second batch is requested, got %d", countAtSecondBatch)
	}
	if len(sink.tiles) != 2 {
		t.Fatalf("expected 2 tiles total across both batches, got %d", len(sink.tiles))
	}
	total, successful := state.Snapshot()
	if total != 2 || successful != 2 {
		t.Fatalf("unexpected state totals: total=%d successful=%d", total, successful)
	}
}

func TestCoordinatorRunPropagatesSinkErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(tinyPNG(t))
	}))
	defer srv.Close()

	// A 1x1 canvas declared up front; positioning the only tile at (5,5)
	// guarantees it can't fit, forcing AddTile's fits-inside rejection.
	canvas := NewCanvas(Vec2d{X: 1, Y: 1})
	level := &twoBatchLevel{urls: []string{srv.URL}, size: Vec2d{X: 1, Y: 1}, firstPos: Vec2d{X: 5, Y: 5}}

	dl := NewTileDownloader(srv.Client(), DownloaderConfig{Throttler: NewThrottler(0)})
	coordinator := NewTileDownloadCoordinator(dl, 4, nil)

	_, err := coordinator.Run(context.Background(), NewZoomLevelIter(level), canvas)
	if err == nil {
		t.Fatal("expected the canvas's fits-inside rejection to propagate out of Run")
	}
}
