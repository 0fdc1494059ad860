package dezoomify

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// invalidFilenameChars matches characters unsafe to use verbatim in a file
// name across the common desktop filesystems.
var invalidFilenameChars = regexp.MustCompile(`[/\\:*?"<>|\x00-\x1f]+`)

// SanitizeTitle turns an arbitrary image title into a safe file name stem,
// collapsing runs of unsafe characters to a single underscore and trimming
// the result to a reasonable length.
func SanitizeTitle(title string) string {
	s := invalidFilenameChars.ReplaceAllString(strings.TrimSpace(title), "_")
	s = strings.Trim(s, "_. ")
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}

// extensionForSize picks ".jpg" when size fits within maxDim on both axes
// (JPEG is smaller and sufficient for anything a viewer can usefully
// render at full resolution), otherwise ".png" for lossless fidelity on
// very large canvases, following original_source/src/lib.rs's extension
// choice.
func extensionForSize(size Vec2d, maxDim uint32) string {
	if size.X <= maxDim && size.Y <= maxDim {
		return ".jpg"
	}
	return ".png"
}

// ResolveOutputPath decides the destination file for one image: an
// explicit path wins outright; otherwise a sanitized
// title (or the literal "dezoomified" when there is none) is used, with a
// numeric suffix appended until a non-existing path is found. The chosen
// file is created empty immediately, reserving the name before any tile is
// fetched, exactly as the original does to avoid two concurrent runs
// racing for the same output name.
func ResolveOutputPath(explicit string, title *string, size Vec2d, maxDim uint32) (string, error) {
	if explicit != "" {
		if err := reserveFile(explicit); err != nil {
			return "", err
		}
		return explicit, nil
	}

	stem := "dezoomified"
	if title != nil {
		if s := SanitizeTitle(*title); s != "" {
			stem = s
		}
	}
	ext := extensionForSize(size, maxDim)

	candidate := stem + ext
	if err := tryReserve(candidate); err == nil {
		return candidate, nil
	}
	for n := 1; ; n++ {
		candidate = fmt.Sprintf("%s_%d%s", stem, n, ext)
		if err := tryReserve(candidate); err == nil {
			return candidate, nil
		}
		if n > 1_000_000 {
			return "", &ZoomError{Kind: ErrIO, Message: "could not find an unused output name for " + stem}
		}
	}
}

// ResolveBulkOutputPath decides one bulk item's destination. stem (computed
// by bulk.OutputName) is joined with outDir and given an extension chosen
// from size the same way a single-image run would, then numbered until an
// unused path is found. An explicit base (the CLI's --outfile in bulk mode)
// overrides stem instead of producing one fixed path: its own directory and
// extensionless name become the numbered base, so "--outfile bulk_test.jpg"
// yields "bulk_test_1.jpg", "bulk_test_2.jpg", ... across items, still with
// the extension picked per item from its own size.
func ResolveBulkOutputPath(outDir, stem, explicitBase string, size Vec2d, maxDim uint32) (string, error) {
	if explicitBase != "" {
		base := filepath.Base(explicitBase)
		stem = strings.TrimSuffix(base, filepath.Ext(base))
		if d := filepath.Dir(explicitBase); d != "." && d != "" {
			outDir = d
		}
	}
	if stem == "" {
		stem = "dezoomified"
	}
	ext := extensionForSize(size, maxDim)

	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return "", &ZoomError{Kind: ErrIO, Message: "creating output directory", Cause: err}
		}
	}

	candidate := filepath.Join(outDir, stem+ext)
	if explicitBase == "" {
		if err := tryReserve(candidate); err == nil {
			return candidate, nil
		}
	}
	for n := 1; ; n++ {
		candidate = filepath.Join(outDir, fmt.Sprintf("%s_%d%s", stem, n, ext))
		if err := tryReserve(candidate); err == nil {
			return candidate, nil
		}
		if n > 1_000_000 {
			return "", &ZoomError{Kind: ErrIO, Message: "could not find an unused output name for " + stem}
		}
	}
}

// tryReserve creates path only if it doesn't already exist (O_EXCL),
// returning an error if it does so the caller can try the next candidate.
func tryReserve(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

// reserveFile creates path (truncating if it already exists, since an
// explicit path is an intentional overwrite), after ensuring its parent
// directory exists.
func reserveFile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &ZoomError{Kind: ErrIO, Message: "creating output directory", Cause: err}
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return &ZoomError{Kind: ErrIO, Message: "reserving output file " + path, Cause: err}
	}
	return f.Close()
}
