package dezoomify

import "time"

// Config mirrors the flag set original_source/src/arguments.rs exposes via
// clap, translated onto Cobra/viper flags in cmd/dezoomify. It is the
// single struct threaded through registry dispatch, the downloader and the
// canvas, rather than each component reading global flags directly.
type Config struct {
	Dezoomer   string // "auto" tries every registered dezoomer in priority order
	Largest    bool
	ZoomLevel  *int
	ImageIndex *int
	MaxWidth   *uint32
	MaxHeight  *uint32

	Parallelism  int64
	Retries      uint
	RetryDelay   time.Duration
	Compression  int
	Headers      [][2]string
	MaxIdlePerHost     int
	AcceptInvalidCerts bool
	MinInterval        time.Duration
	Timeout            time.Duration
	ConnectTimeout     time.Duration

	Logging      string
	TileCacheDir string
	Bulk         bool
	Outfile      string

	// OutStem and OutDir are set by the bulk orchestrator only: when OutStem
	// is non-empty, Dezoomify names the output after it (joined with
	// OutDir) with a size-based extension instead of deriving a name from
	// the image title, since bulk items have no single title to fall back
	// to. Outfile, if also set in this mode, overrides OutStem as an
	// explicit numbered base rather than a single fixed path.
	OutStem string
	OutDir  string
}

// DefaultConfig returns the defaults original_source/src/arguments.rs
// hard-codes (parallelism 16, 1 retry, 2s retry delay, compression 5,
// 32 idle connections per host, a 50ms minimum request interval, 30s
// request timeout, 6s connect timeout, info-level logging).
func DefaultConfig() Config {
	return Config{
		Dezoomer:           "auto",
		Largest:            true,
		Parallelism:        16,
		Retries:            1,
		RetryDelay:         2 * time.Second,
		Compression:        5,
		MaxIdlePerHost:     32,
		MinInterval:        50 * time.Millisecond,
		Timeout:            30 * time.Second,
		ConnectTimeout:     6 * time.Second,
		Logging:            "info",
	}
}

// HasLevelSpecifyingArgs reports whether the user pinned a specific level
// or image selection, in which case auto-selecting "largest" is skipped.
func (c Config) HasLevelSpecifyingArgs() bool {
	return c.ZoomLevel != nil || c.ImageIndex != nil
}

// ShouldUseLargest reports whether level/image selection should default to
// the largest available, per original_source/src/arguments.rs::Arguments::should_use_largest:
// only when the user didn't pin a specific level/image and didn't disable it.
func (c Config) ShouldUseLargest() bool {
	return c.Largest && !c.HasLevelSpecifyingArgs()
}

// ClientConfig extracts the subset of Config NewHTTPClient needs.
func (c Config) ClientConfig() ClientConfig {
	return ClientConfig{
		MaxIdlePerHost:     c.MaxIdlePerHost,
		AcceptInvalidCerts: c.AcceptInvalidCerts,
		Timeout:            c.Timeout,
		ConnectTimeout:     c.ConnectTimeout,
	}
}

// DownloaderConfig extracts the subset of Config TileDownloader needs.
func (c Config) DownloaderConfig(throttler *Throttler) DownloaderConfig {
	return DownloaderConfig{
		Retries:      c.Retries,
		RetryDelay:   c.RetryDelay,
		TileCacheDir: c.TileCacheDir,
		Throttler:    throttler,
	}
}
