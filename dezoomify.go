package dezoomify

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FindZoomLevel resolves which ZoomLevel a run should fetch, honouring
// Config.ZoomLevel (explicit index) first, then Config.MaxWidth/MaxHeight
// (the largest level whose known SizeHint fits within them), then
// ShouldUseLargest (pick the level with the largest known SizeHint area),
// falling back to the first level when none applies, mirroring
// original_source/src/lib.rs::find_zoomlevel / choose_level.
func FindZoomLevel(levels []ZoomLevel, cfg Config) (ZoomLevel, error) {
	if len(levels) == 0 {
		return nil, &ZoomError{Kind: ErrNoLevels}
	}
	if cfg.ZoomLevel != nil {
		idx := *cfg.ZoomLevel
		if idx < 0 || idx >= len(levels) {
			return nil, &ZoomError{Kind: ErrOther, Message: "zoom level index out of range"}
		}
		return levels[idx], nil
	}
	if cfg.MaxWidth != nil || cfg.MaxHeight != nil {
		var fitting []ZoomLevel
		for _, l := range levels {
			h := l.SizeHint()
			if h != nil && (cfg.MaxWidth == nil || h.X <= *cfg.MaxWidth) && (cfg.MaxHeight == nil || h.Y <= *cfg.MaxHeight) {
				fitting = append(fitting, l)
			}
		}
		if len(fitting) == 0 {
			return nil, &ZoomError{Kind: ErrOther, Message: "no zoom level fits within the requested maximum size"}
		}
		return largestLevel(fitting), nil
	}
	if cfg.ShouldUseLargest() {
		return largestLevel(levels), nil
	}
	return levels[0], nil
}

func largestLevel(levels []ZoomLevel) ZoomLevel {
	best := levels[0]
	var bestArea uint64
	if h := best.SizeHint(); h != nil {
		bestArea = h.Area()
	}
	for _, l := range levels[1:] {
		h := l.SizeHint()
		if h == nil {
			continue
		}
		if area := h.Area(); area > bestArea {
			best, bestArea = l, area
		}
	}
	return best
}

// ChooseImage resolves which ZoomableImage a run should expand, honouring
// Config.ImageIndex, defaulting to the first image found, mirroring
// original_source/src/lib.rs::choose_image.
func ChooseImage(images []ZoomableImage, cfg Config) (ZoomableImage, error) {
	if len(images) == 0 {
		return nil, &ZoomError{Kind: ErrNoLevels, Message: "no image found"}
	}
	idx := 0
	if cfg.ImageIndex != nil {
		idx = *cfg.ImageIndex
	}
	if idx < 0 || idx >= len(images) {
		return nil, &ZoomError{Kind: ErrOther, Message: "image index out of range"}
	}
	return images[idx], nil
}

// ResolveImages recursively drives the registry over a starting URI,
// following ZoomableImageURL pointers (e.g. one per IIIF manifest canvas)
// until only concrete ZoomableImage values remain, mirroring
// original_source/src/lib.rs::process_image_urls / get_images_from_uri.
// depth bounds recursion against a dezoomer that points back at itself.
func ResolveImages(ctx context.Context, reg *Registry, uri string, client *http.Client, includeGeneric bool) ([]ZoomableImage, error) {
	return resolveImages(ctx, reg, uri, client, includeGeneric, 0)
}

func resolveImages(ctx context.Context, reg *Registry, uri string, client *http.Client, includeGeneric bool, depth int) ([]ZoomableImage, error) {
	const maxDepth = 8
	if depth > maxDepth {
		return nil, &ZoomError{Kind: ErrOther, Message: "too many nested image URLs, possible dezoomer loop"}
	}

	result, err := reg.Run(ctx, uri, includeGeneric, client)
	if err != nil {
		return nil, &ZoomError{Kind: ErrOther, Message: "no dezoomer could handle " + uri, Cause: err}
	}

	images := append([]ZoomableImage(nil), result.Images...)
	for _, u := range result.ImageURLs {
		nested, err := resolveImages(ctx, reg, u.URL, client, includeGeneric, depth+1)
		if err != nil {
			return nil, err
		}
		images = append(images, nested...)
	}
	return images, nil
}

// LevelResult is the outcome of fetching and encoding a single ZoomLevel.
type LevelResult struct {
	Destination     string
	TotalTiles      uint64
	SuccessfulTiles uint64
}

// DezoomifyLevel fetches every tile of level and writes outPath, returning
// a partial-download ZoomError (not fatal: the file was still produced)
// when some tiles failed. Mirrors original_source/src/lib.rs::dezoomify_level.
//
// When outPath is a .png and level advertises a size up front, tiles stream
// straight into a StreamingPNGCanvas as each download batch completes
// (row-window flush, PNG §4.7), instead of being buffered in one in-memory
// Canvas: PNG's IHDR needs width/height before any pixel is written, which a
// size hint gives us, but formats/levels that don't have one (JPEG/TIFF/WebP
// output, or any level whose size is only known once tiles start arriving)
// still use the in-memory Canvas, since none of those can be written
// incrementally without a third-party streaming encoder (none exists in the
// retrieval pack).
func DezoomifyLevel(
	ctx context.Context,
	level ZoomLevel,
	coordinator *TileDownloadCoordinator,
	outPath string,
	compression int,
) (*LevelResult, error) {
	iter := NewZoomLevelIter(level)

	var sizeHint *Vec2d
	if hint := level.SizeHint(); hint != nil && hint.X > 0 && hint.Y > 0 {
		sizeHint = hint
	}
	streaming := strings.ToLower(filepath.Ext(outPath)) == ".png" && sizeHint != nil

	var (
		f      *os.File
		canvas *Canvas
		spc    *StreamingPNGCanvas
		sink   TileSink
		err    error
	)

	if streaming {
		f, err = createOutputFile(outPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		spc = NewStreamingPNGCanvas(f, *sizeHint, zlibLevelForCompression(compression))
		sink = spc
	} else {
		var size Vec2d
		if sizeHint != nil {
			size = *sizeHint
		}
		canvas = NewCanvas(size)
		sink = canvas
	}

	state, err := coordinator.Run(ctx, iter, sink)
	if err != nil {
		return nil, &ZoomError{Kind: ErrNetworking, Message: "downloading tiles", Cause: err}
	}

	total, successful := state.Snapshot()
	if !state.IsSuccessful() {
		return nil, &ZoomError{Kind: ErrNoTile}
	}

	if streaming {
		if err := spc.Finish(); err != nil {
			return nil, &ZoomError{Kind: ErrIO, Message: "encoding " + outPath, Cause: err}
		}
	} else {
		f, err = createOutputFile(outPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if err := canvas.Encode(f, outPath, EncodeOptions{Compression: compression}); err != nil {
			return nil, &ZoomError{Kind: ErrIO, Message: "encoding " + outPath, Cause: err}
		}
	}

	result := &LevelResult{Destination: outPath, TotalTiles: total, SuccessfulTiles: successful}
	if state.HasPartialFailure() {
		return result, &ZoomError{
			Kind:            ErrPartialDownload,
			SuccessfulTiles: successful,
			TotalTiles:      total,
			Destination:     outPath,
		}
	}
	return result, nil
}

// sortTilesByPosition orders tiles top-left-first (row-major), so Canvas
// latches its ICC profile/EXIF blob deterministically from the first tile
// in reading order, rather than whichever tile happened to finish
// downloading first, fixing the completion-order race original_source's
// src/tile.rs had.
func sortTilesByPosition(tiles []*Tile) {
	sort.SliceStable(tiles, func(i, j int) bool {
		a, b := tiles[i], tiles[j]
		if a == nil || b == nil {
			return b == nil && a != nil
		}
		if a.Position.Y != b.Position.Y {
			return a.Position.Y < b.Position.Y
		}
		return a.Position.X < b.Position.X
	})
}

// createOutputFile opens an already-reserved output path (see
// ResolveOutputPath) for writing the final encoded image.
func createOutputFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return nil, &ZoomError{Kind: ErrIO, Message: "opening output file " + path, Cause: err}
	}
	return f, nil
}

// Dezoomify runs the full single-image pipeline for one input URI: resolve
// it through the registry into concrete images, pick one image and one
// zoom level per cfg, fetch every tile and encode the result. It mirrors
// original_source/src/lib.rs::dezoomify, collapsing get_dezoomer_result,
// choose_image, choose_level and dezoomify_level into one call since Go
// callers drive it synchronously rather than through the original's
// suspend/resume future.
func Dezoomify(ctx context.Context, uri string, cfg Config, reg *Registry, reporter Reporter) (*LevelResult, error) {
	client := NewHTTPClient(cfg.ClientConfig(), cfg.Headers)

	if cfg.Dezoomer != "" && cfg.Dezoomer != "auto" {
		d, ok := reg.Lookup(cfg.Dezoomer)
		if !ok {
			return nil, &ZoomError{Kind: ErrNoSuchDezoomer, Message: cfg.Dezoomer}
		}
		pinned := NewRegistry()
		pinned.Register(d)
		reg = pinned
	}

	images, err := ResolveImages(ctx, reg, uri, client, cfg.Dezoomer == "auto" || cfg.Dezoomer == "generic")
	if err != nil {
		return nil, err
	}

	image, err := ChooseImage(images, cfg)
	if err != nil {
		return nil, err
	}

	levels, err := image.ZoomLevels()
	if err != nil {
		return nil, err
	}

	level, err := FindZoomLevel(levels, cfg)
	if err != nil {
		return nil, err
	}

	var maxDim uint32 = 1 << 16
	size := Vec2d{}
	if hint := level.SizeHint(); hint != nil {
		size = *hint
	}
	var outPath string
	if cfg.OutStem != "" {
		outPath, err = ResolveBulkOutputPath(cfg.OutDir, cfg.OutStem, cfg.Outfile, size, maxDim)
	} else {
		outPath, err = ResolveOutputPath(cfg.Outfile, level.Title(), size, maxDim)
	}
	if err != nil {
		return nil, err
	}

	throttler := NewThrottler(cfg.MinInterval)
	downloader := NewTileDownloader(client, cfg.DownloaderConfig(throttler))
	coordinator := NewTileDownloadCoordinator(downloader, cfg.Parallelism, reporter)

	return DezoomifyLevel(ctx, level, coordinator, outPath, cfg.Compression)
}
