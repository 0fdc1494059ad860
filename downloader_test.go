package dezoomify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestTileDownloaderRetriesBeforeSucceeding(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write(tinyPNG(t))
	}))
	defer srv.Close()

	dl := NewTileDownloader(srv.Client(), DownloaderConfig{
		Retries:    2,
		RetryDelay: time.Millisecond,
		Throttler:  NewThrottler(0),
	})

	tile, err := dl.Download(context.Background(), TileReference{URL: srv.URL}, nil)
	if err != nil {
		t.Fatalf("expected the third attempt to succeed, got %v", err)
	}
	if tile == nil {
		t.Fatal("expected a decoded tile")
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Fatalf("expected exactly 3 attempts (2 retries), got %d", got)
	}
}

func TestTileDownloaderGivesUpAfterExhaustingRetries(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	dl := NewTileDownloader(srv.Client(), DownloaderConfig{
		Retries:    1,
		RetryDelay: time.Millisecond,
		Throttler:  NewThrottler(0),
	})

	_, err := dl.Download(context.Background(), TileReference{URL: srv.URL}, nil)
	if err == nil {
		t.Fatal("expected an error once retries are exhausted")
	}
	if got := atomic.LoadInt32(&attempts); got != 2 {
		t.Fatalf("expected exactly 2 attempts (1 retry), got %d", got)
	}
}

func TestTileDownloaderCacheIsWriteOnlyWithinARun(t *testing.T) {
	dir := t.TempDir()
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.Write(tinyPNG(t))
	}))
	defer srv.Close()

	dl := NewTileDownloader(srv.Client(), DownloaderConfig{
		Retries:      0,
		RetryDelay:   time.Millisecond,
		TileCacheDir: dir,
		Throttler:    NewThrottler(0),
	})

	ref := TileReference{URL: srv.URL, Position: Vec2d{X: 1, Y: 2}}

	if _, err := dl.Download(context.Background(), ref, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := dl.Download(context.Background(), ref, nil); err != nil {
		t.Fatal(err)
	}

	if got := atomic.LoadInt32(&requests); got != 2 {
		t.Fatalf("a second Download for the same reference must still hit the network rather than read the cache, got %d requests", got)
	}

	cached := filepath.Join(dir, ref.Position.String()+".tile")
	if _, err := os.Stat(cached); err != nil {
		t.Fatalf("expected the tile bytes to have been written to the cache directory: %v", err)
	}
}
