package dezoomify

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// TileDownloadCoordinator drives a ZoomLevelIter to completion: it asks the
// level for tile references batch by batch, fetches each batch with bounded
// parallelism, and feeds the results back so the level can decide whether
// more tiles are needed. Grounded on
// original_source/src/download_state.rs::TileDownloadCoordinator, which
// used futures::stream::buffer_unordered for the same bounded fan-out; the
// semaphore+errgroup combination is the idiomatic Go equivalent the
// teacher's own worker pool (cmd/build/main.go) follows.
type TileDownloadCoordinator struct {
	downloader  *TileDownloader
	parallelism int64
	reporter    Reporter
}

// NewTileDownloadCoordinator builds a coordinator bounding concurrent tile
// fetches to parallelism.
func NewTileDownloadCoordinator(downloader *TileDownloader, parallelism int64, reporter Reporter) *TileDownloadCoordinator {
	if reporter == nil {
		reporter = NoopReporter{}
	}
	return &TileDownloadCoordinator{downloader: downloader, parallelism: parallelism, reporter: reporter}
}

// Run drives iter until it reports no more references are needed, writing
// each batch into sink (a *Canvas or a *StreamingPNGCanvas — see
// DezoomifyLevel) as soon as it completes and before the next batch is
// requested. Peak memory therefore holds one batch's tiles plus whatever
// sink buffers internally, rather than every tile of the level at once, and
// failed tiles (backfilled as empty placeholders by downloadBatch, matching
// original_source/src/download_state.rs::process_tile_result) never
// accumulate past their own batch.
func (c *TileDownloadCoordinator) Run(ctx context.Context, iter *ZoomLevelIter, sink TileSink) (*DownloadState, error) {
	state := &DownloadState{}
	seenTiles := 0

	for {
		refs := iter.Next()
		if len(refs) == 0 {
			break
		}

		seenTiles += len(refs)
		c.reporter.SetTotal(seenTiles)

		tiles, successes, err := c.downloadBatch(ctx, refs, iter.Level())
		if err != nil {
			c.reporter.Finish()
			return state, err
		}

		state.AddBatch(uint64(len(refs)), uint64(successes))

		sortTilesByPosition(tiles)
		for _, t := range tiles {
			if t == nil {
				continue
			}
			if err := sink.AddTile(t); err != nil {
				c.reporter.Finish()
				return state, err
			}
		}

		var tileSize *Vec2d
		for _, t := range tiles {
			if t != nil {
				size := t.Size()
				tileSize = &size
				break
			}
		}
		iter.SetFetchResult(TileFetchResult{
			Count:     uint64(len(refs)),
			Successes: uint64(successes),
			TileSize:  tileSize,
		})
	}

	c.reporter.Finish()
	return state, nil
}

// downloadBatch fetches every reference in refs with at most c.parallelism
// concurrent requests, returning one *Tile per reference in refs' order
// (nil entries are replaced by empty placeholder tiles once a size hint is
// known) and the count of tiles fetched successfully.
func (c *TileDownloadCoordinator) downloadBatch(ctx context.Context, refs []TileReference, level ZoomLevel) ([]*Tile, int, error) {
	sem := semaphore.NewWeighted(c.parallelism)
	results := make([]*Tile, len(refs))
	errs := make([]error, len(refs))

	var g errgroup.Group
	for i, ref := range refs {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, 0, err
		}
		i, ref := i, ref
		g.Go(func() error {
			defer sem.Release(1)
			tile, err := c.downloader.Download(ctx, ref, level)
			results[i] = tile
			errs[i] = err
			return nil
		})
	}
	g.Wait()

	successes := 0
	var tileSize *Vec2d
	for _, tile := range results {
		if tile != nil {
			size := tile.Size()
			tileSize = &size
			successes++
			c.reporter.Advance(true)
		} else {
			c.reporter.Advance(false)
		}
	}

	// Backfill failed tiles with empty placeholders once any tile in this
	// batch reveals the expected tile size, so the canvas still has
	// deterministic extents for every reference even under partial failure.
	// When the level advertises its size, each placeholder is clipped to it
	// (MaxSizeInRect) so an edge placeholder never overruns the canvas.
	if tileSize != nil {
		hint := level.SizeHint()
		for i, tile := range results {
			if tile == nil && errs[i] != nil {
				size := *tileSize
				if hint != nil && hint.X > 0 && hint.Y > 0 {
					size = MaxSizeInRect(refs[i].Position, size, *hint)
				}
				results[i] = EmptyTile(refs[i].Position, size)
			}
		}
	}

	return results, successes, nil
}
