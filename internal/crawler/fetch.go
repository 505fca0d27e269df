package crawler

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

// Request identity defaults. The wiki host rejects obvious bot clients,
// so requests look like a desktop browser.
const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	DefaultAcceptLanguage = "en-US,en;q=0.9"
	DefaultTimeout        = 15 * time.Second
	DefaultMaxBodySize    = 10 << 20
)

// Fetcher retrieves the HTML body of a page.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) ([]byte, error)
}

// HTTPFetcher is the Fetcher used for real crawls.
type HTTPFetcher struct {
	client      *http.Client
	headers     http.Header
	siteHeaders map[string]http.Header
	maxBodySize int64
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.headers.Set("User-Agent", ua)
		}
	}
}

// WithHeader sets a header on every request.
func WithHeader(key, value string) FetcherOption {
	return func(f *HTTPFetcher) {
		f.headers.Set(key, value)
	}
}

// WithSiteHeaders sets headers sent only to host. They override the
// global headers.
func WithSiteHeaders(host string, headers map[string]string) FetcherOption {
	return func(f *HTTPFetcher) {
		h := make(http.Header, len(headers))
		for k, v := range headers {
			h.Set(k, v)
		}
		f.siteHeaders[strings.ToLower(host)] = h
	}
}

// WithMaxBodySize caps the number of bytes read per response.
func WithMaxBodySize(n int64) FetcherOption {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBodySize = n
		}
	}
}

// NewHTTPFetcher creates a fetcher using client. A nil client gets
// DefaultTimeout.
func NewHTTPFetcher(client *http.Client, opts ...FetcherOption) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	f := &HTTPFetcher{
		client:      client,
		headers:     make(http.Header),
		siteHeaders: make(map[string]http.Header),
		maxBodySize: DefaultMaxBodySize,
	}
	f.headers.Set("User-Agent", DefaultUserAgent)
	f.headers.Set("Accept", DefaultAccept)
	f.headers.Set("Accept-Language", DefaultAcceptLanguage)

	for _, opt := range opts {
		opt(f)
	}
	return f
}

// UserAgent returns the User-Agent sent with requests.
func (f *HTTPFetcher) UserAgent() string {
	return f.headers.Get("User-Agent")
}

// Fetch GETs pageURL and returns its body decoded to UTF-8.
// Non-2xx responses return a *StatusError; non-HTML responses wrap
// ErrNotHTML. A missing Content-Type is treated as HTML.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	resp, err := f.do(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: pageURL, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err == nil && mediaType != "text/html" && mediaType != "application/xhtml+xml" {
			return nil, fmt.Errorf("%w: %s", ErrNotHTML, mediaType)
		}
	}

	reader, err := charset.NewReader(io.LimitReader(resp.Body, f.maxBodySize), contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to decode body of %s: %w", pageURL, err)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read body of %s: %w", pageURL, err)
	}
	return body, nil
}

// Get GETs rawURL and returns status code and raw body.
func (f *HTTPFetcher) Get(ctx context.Context, rawURL string) (int, []byte, error) {
	resp, err := f.do(ctx, rawURL)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read body of %s: %w", rawURL, err)
	}
	return resp.StatusCode, body, nil
}

func (f *HTTPFetcher) do(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range f.headers {
		req.Header[k] = append([]string(nil), v...)
	}
	if site, ok := f.siteHeaders[strings.ToLower(req.URL.Host)]; ok {
		for k, v := range site {
			req.Header[k] = append([]string(nil), v...)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}
