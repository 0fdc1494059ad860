package bulk

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// SimpleTextParser reads one URL per line, skipping blank lines and lines
// starting with "#", grounded on
// original_source/src/bulk/parsers/simple_text.rs::SimpleTextFileBulkParser.
type SimpleTextParser struct{}

func (SimpleTextParser) Parse(data []byte) ([]Item, bool) {
	lines := strings.Split(string(data), "\n")
	var items []Item
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		items = append(items, Item{
			DownloadURL:         line,
			DefaultFilenameStem: filenameStemFromURL(line, len(items)),
			TemplateVars:        map[string]string{"index": fmt.Sprint(i)},
		})
	}
	if len(items) == 0 {
		return nil, false
	}
	return items, true
}

// filenameStemFromURL extracts a usable file-name stem from a tile-source
// URL (the last percent-decoded path segment, extension stripped),
// falling back to "image_{N}" when the URL carries nothing usable, per
// original_source/src/bulk/parsers/simple_text.rs.
func filenameStemFromURL(rawURL string, index int) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return fmt.Sprintf("image_%d", index)
	}
	base := path.Base(u.Path)
	decoded, err := url.PathUnescape(base)
	if err == nil {
		base = decoded
	}
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "" || base == "." || base == "/" {
		return fmt.Sprintf("image_%d", index)
	}
	return base
}
