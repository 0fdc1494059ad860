package dezoomify

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
)

// DownloaderConfig configures per-tile fetch behaviour.
type DownloaderConfig struct {
	Retries       uint
	RetryDelay    time.Duration
	TileCacheDir  string // empty disables the on-disk tile cache
	Throttler     *Throttler
}

// TileDownloader fetches, caches, post-processes and decodes the tiles a
// ZoomLevel names, grounded on the retry-and-decode sequence of
// original_source/src/tile.rs::Tile::download.
type TileDownloader struct {
	client *http.Client
	cfg    DownloaderConfig
}

// NewTileDownloader builds a TileDownloader sharing one HTTP client across
// every tile it fetches.
func NewTileDownloader(client *http.Client, cfg DownloaderConfig) *TileDownloader {
	return &TileDownloader{client: client, cfg: cfg}
}

// Download fetches a single tile reference, decodes it and returns a Tile
// positioned at ref.Position. On exhausting retries it returns a
// *TileDownloadError wrapping the last failure, so callers can substitute an
// empty tile and continue instead of aborting the whole run.
func (d *TileDownloader) Download(ctx context.Context, ref TileReference, level ZoomLevel) (*Tile, error) {
	d.cfg.Throttler.Wait()

	var headers [][2]string
	if level != nil {
		headers = level.HTTPHeaders()
	}

	data, err := d.fetchAndCache(ctx, ref, headers)
	if err != nil {
		return nil, &TileDownloadError{TileReference: ref, Cause: err}
	}

	if level != nil {
		data, err = level.PostProcess(ref, data)
		if err != nil {
			return nil, &TileDownloadError{TileReference: ref, Cause: err}
		}
	}

	tile, err := DecodeTile(data, ref.Position)
	if err != nil {
		return nil, &TileDownloadError{TileReference: ref, Cause: err}
	}
	return tile, nil
}

func (d *TileDownloader) fetchAndCache(ctx context.Context, ref TileReference, headers [][2]string) ([]byte, error) {
	cachePath := d.cachePath(ref)

	var data []byte
	err := retry.Do(
		func() error {
			fetched, err := FetchURI(ctx, ref.URL, d.client, headers...)
			if err != nil {
				return err
			}
			data = fetched
			return nil
		},
		retry.Attempts(d.cfg.Retries+1),
		retry.Delay(d.cfg.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}

	if cachePath != "" {
		_ = os.MkdirAll(filepath.Dir(cachePath), 0o755)
		_ = os.WriteFile(cachePath, data, 0o644)
	}
	return data, nil
}

// cachePath returns the deterministic on-disk path tile bytes are written
// to when a cache directory is configured. The cache is write-only within a
// run: fetchAndCache never reads it back, it's advisory state for whatever
// consumes the directory after the run finishes, not a request dedup layer.
func (d *TileDownloader) cachePath(ref TileReference) string {
	if d.cfg.TileCacheDir == "" {
		return ""
	}
	name := ref.Position.String() + ".tile"
	return filepath.Join(d.cfg.TileCacheDir, name)
}
