package dezoomify

// TileReference is the top-left pixel position, on the final canvas, of one
// tile to fetch from url.
type TileReference struct {
	URL      string
	Position Vec2d
}

// PageContentsKind discriminates the PageContents sum type.
type PageContentsKind int

const (
	Unknown PageContentsKind = iota
	Success
	HTTPError
	NetworkError
)

// PageContents is handed to dezoomers so they can branch on fetch failures;
// the generic dezoomer uses HTTPError to infer grid edges.
type PageContents struct {
	Kind    PageContentsKind
	Bytes   []byte
	Status  int
	Message string
}

// DezoomerInput is the single argument every Dezoomer.Step call receives.
type DezoomerInput struct {
	URI      string
	Contents PageContents
}

// TileFetchResult feeds back the outcome of the previous tile batch into an
// adaptive ZoomLevel (used by the generic dezoomer's edge-probing).
type TileFetchResult struct {
	Count     uint64
	Successes uint64
	TileSize  *Vec2d
}

// ZoomLevel is one resolution tier of a zoomable image: it knows its own
// name, optional title and size, and produces tile-reference batches on
// demand, possibly adapting to feedback about the previous batch.
type ZoomLevel interface {
	// Name is a short machine identifier for logging.
	Name() string
	// Title is a human-readable name, when the format provides one.
	Title() *string
	// SizeHint is the pixel size of the full image at this level, when known
	// up front. Some levels (the generic prober) only learn it once done.
	SizeHint() *Vec2d
	// HTTPHeaders are headers to merge into every tile request at this level.
	HTTPHeaders() [][2]string
	// NextTileReferences returns the next batch of tiles to fetch, or nil
	// when the level is exhausted. prev is nil on the very first call.
	NextTileReferences(prev *TileFetchResult) []TileReference
	// PostProcess optionally transforms freshly downloaded tile bytes (e.g.
	// decryption) before they reach the image decoder. The default
	// implementation many levels embed (NoPostProcess) returns data as-is.
	PostProcess(ref TileReference, data []byte) ([]byte, error)
}

// NoPostProcess can be embedded by ZoomLevel implementations that never
// transform tile bytes.
type NoPostProcess struct{}

func (NoPostProcess) PostProcess(_ TileReference, data []byte) ([]byte, error) { return data, nil }

// NoHeaders can be embedded by ZoomLevel implementations that add no
// per-level HTTP headers.
type NoHeaders struct{}

func (NoHeaders) HTTPHeaders() [][2]string { return nil }

// ZoomableImage is a single discovered image, lazily expandable into its
// concrete zoom levels (a dezoomer may find several resolution pyramids
// worth of levels per image).
type ZoomableImage interface {
	Title() *string
	ZoomLevels() ([]ZoomLevel, error)
}

// ZoomableImageURL is a URL that must be re-fed through the registry because
// the dezoomer that found it only produced a pointer to more metadata
// (e.g. one IIIF manifest canvas per image).
type ZoomableImageURL struct {
	URL   string
	Title *string
}

// DezoomerResult is the sum type a Dezoomer.Step call produces on success:
// either concrete images, or a list of URLs that must be recursively
// dezoomed.
type DezoomerResult struct {
	Images    []ZoomableImage
	ImageURLs []ZoomableImageURL
}

// IsEmpty reports whether the result carries neither images nor URLs.
func (r DezoomerResult) IsEmpty() bool {
	return len(r.Images) == 0 && len(r.ImageURLs) == 0
}

// Dezoomer turns a DezoomerInput into a DezoomerResult. A call is pure over
// its input: to request more data (e.g. a metadata file it hasn't seen yet)
// it returns a NeedsData error; the caller fetches that URI, places the
// bytes into a fresh DezoomerInput.Contents, and calls Step again.
//
// This embodies the "dezoomer as a small state machine" re-architecture: the
// registry drives the suspend/resume loop explicitly instead of reacting to
// a generic error type further down the stack.
type Dezoomer interface {
	Name() string
	Step(input DezoomerInput) (DezoomerResult, *DezoomerError)
}

// ZoomLevelIter drives one ZoomLevel to exhaustion, threading the feedback
// loop (TileFetchResult) between batches. It keeps no size hint of its own;
// the level's SizeHint is the only source of one.
type ZoomLevelIter struct {
	level      ZoomLevel
	lastResult *TileFetchResult
	started    bool
}

// NewZoomLevelIter wraps level for iteration.
func NewZoomLevelIter(level ZoomLevel) *ZoomLevelIter {
	return &ZoomLevelIter{level: level}
}

// Next returns the next tile batch, or nil when the level is exhausted.
func (it *ZoomLevelIter) Next() []TileReference {
	var prev *TileFetchResult
	if it.started {
		prev = it.lastResult
	}
	it.started = true
	return it.level.NextTileReferences(prev)
}

// SetFetchResult records the outcome of the batch just returned by Next, so
// the following Next call can adapt to it.
func (it *ZoomLevelIter) SetFetchResult(r TileFetchResult) {
	it.lastResult = &r
}

// SizeHint returns the level's size hint, if any.
func (it *ZoomLevelIter) SizeHint() *Vec2d {
	return it.level.SizeHint()
}

// Level exposes the wrapped ZoomLevel.
func (it *ZoomLevelIter) Level() ZoomLevel {
	return it.level
}
