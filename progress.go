package dezoomify

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"
)

// Reporter is the observer interface the download coordinator advances as
// tiles complete. Treating progress reporting as an interface rather than a
// concrete progress bar lets tests and bulk runs substitute a no-op
// implementation.
type Reporter interface {
	// SetTotal is called before each batch with the running count of tile
	// references requested so far for the level.
	SetTotal(total int)
	// Advance is called after each tile attempt, success or failure.
	Advance(successful bool)
	// Finish is called once a level's tiles have all been attempted.
	Finish()
}

// NoopReporter discards all progress events.
type NoopReporter struct{}

func (NoopReporter) SetTotal(int)       {}
func (NoopReporter) Advance(bool)       {}
func (NoopReporter) Finish()            {}

// BarReporter renders progress to an io.Writer (typically os.Stderr) using
// a textual bar, mirroring the percentage+ETA display the original
// indicatif-backed ProgressManager produced.
type BarReporter struct {
	out      io.Writer
	bar      *progressbar.ProgressBar
	failures int
}

// NewBarReporter creates a Reporter that writes a progress bar to out.
func NewBarReporter(out io.Writer) *BarReporter {
	return &BarReporter{out: out}
}

// SetTotal may be called more than once, since some dezoomers (e.g.
// generic, which probes its tile grid adaptively) only learn the true tile
// count batch by batch. The first call creates the bar; later calls grow
// its ceiling instead of resetting progress.
func (r *BarReporter) SetTotal(total int) {
	if r.bar == nil {
		r.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(r.out),
			progressbar.OptionSetDescription("downloading tiles"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionThrottle(0),
		)
		return
	}
	r.bar.ChangeMax(total)
}

func (r *BarReporter) Advance(successful bool) {
	if r.bar == nil {
		return
	}
	if !successful {
		r.failures++
	}
	_ = r.bar.Add(1)
}

func (r *BarReporter) Finish() {
	if r.bar == nil {
		return
	}
	_ = r.bar.Finish()
	if r.failures > 0 {
		fmt.Fprintf(r.out, "\n%d tile(s) failed to download\n", r.failures)
	}
}
