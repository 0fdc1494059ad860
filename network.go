package dezoomify

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// defaultHeaders mirrors original_source/src/network.rs::default_headers,
// which loads a small built-in table of browser-like headers from a YAML
// file embedded in the binary. Declaring the table directly in Go is the
// equivalent of the Rust include_str!+serde_yaml combination without
// carrying a data file whose only consumer is this map literal.
var defaultHeaders = map[string]string{
	"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.5",
}

// ClientConfig carries the HTTP client knobs a dezoomify run needs.
type ClientConfig struct {
	MaxIdlePerHost     int
	AcceptInvalidCerts bool
	Timeout            time.Duration
	ConnectTimeout     time.Duration
}

// NewHTTPClient builds the *http.Client used for one dezoomify invocation,
// merging the built-in default header table with user-supplied and
// per-zoom-level headers, later groups overriding earlier ones. It is built
// once and shared (safe by construction: the pooled net/http.Transport is
// internally synchronised).
func NewHTTPClient(cfg ClientConfig, headers ...[][2]string) *http.Client {
	merged := make(map[string]string, len(defaultHeaders))
	for k, v := range defaultHeaders {
		merged[k] = v
	}
	for _, group := range headers {
		for _, kv := range group {
			merged[kv[0]] = kv[1]
		}
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: cfg.MaxIdlePerHost,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: cfg.AcceptInvalidCerts},
		DialContext: (&net.Dialer{
			Timeout: cfg.ConnectTimeout,
		}).DialContext,
	}
	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &headerRoundTripper{headers: merged, next: transport},
	}
}

type headerRoundTripper struct {
	headers map[string]string
	next    http.RoundTripper
}

func (h *headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	for k, v := range h.headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	return h.next.RoundTrip(req)
}

// FetchURI fetches bytes from uri using client. If uri begins with
// "http://" or "https://" it issues a GET, failing on non-2xx with a
// status-bearing error; otherwise it reads uri as a local filesystem path.
// Any extraHeaders groups are set directly on the request, so they take
// priority over the client's default/user header table (the
// headerRoundTripper only fills in headers the request doesn't already
// carry), giving per-zoom-level headers the final say.
func FetchURI(ctx context.Context, uri string, client *http.Client, extraHeaders ...[2]string) ([]byte, error) {
	if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
		log.Debug().Str("uri", uri).Msg("downloading")
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
		if err != nil {
			return nil, &ZoomError{Kind: ErrNetworking, Message: "building request", Cause: err}
		}
		for _, kv := range extraHeaders {
			req.Header.Set(kv[0], kv[1])
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, &ZoomError{Kind: ErrNetworking, Message: "fetching " + uri, Cause: err}
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &ZoomError{
				Kind:    ErrNetworking,
				Message: fmt.Sprintf("HTTP %d fetching %s", resp.StatusCode, uri),
			}
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &ZoomError{Kind: ErrNetworking, Message: "reading response body", Cause: err}
		}
		return data, nil
	}
	log.Debug().Str("uri", uri).Msg("opening local file")
	data, err := os.ReadFile(uri)
	if err != nil {
		return nil, &ZoomError{Kind: ErrIO, Message: "reading " + uri, Cause: err}
	}
	return data, nil
}

// PageContentsFromFetch adapts a FetchURI outcome into a PageContents value
// a Dezoomer.Step call can branch on.
func PageContentsFromFetch(data []byte, err error) PageContents {
	if err == nil {
		return PageContents{Kind: Success, Bytes: data}
	}
	var ze *ZoomError
	if as(err, &ze) && ze.Kind == ErrNetworking {
		return PageContents{Kind: HTTPError, Message: ze.Error()}
	}
	return PageContents{Kind: NetworkError, Message: err.Error()}
}
