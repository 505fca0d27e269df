package crawler

import (
	"errors"
	"fmt"
)

// Crawl errors.
var (
	// ErrNoSeeds is returned by Spider.Open when no seed URL survives
	// normalization and filtering.
	ErrNoSeeds = errors.New("no valid seed URLs")

	// ErrEmptyLink is returned by Normalize for blank links.
	ErrEmptyLink = errors.New("empty link")

	// ErrUnsupportedScheme is returned by Normalize for links that are not
	// http or https (javascript:, mailto:, data:, ...).
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")

	// ErrNoHost is returned by Normalize for absolute links without a host.
	ErrNoHost = errors.New("URL has no host")

	// ErrNotHTML is returned by HTTPFetcher when a response is not HTML.
	ErrNotHTML = errors.New("response is not HTML")

	// ErrNotOpened is returned by Spider.Run before Spider.Open succeeded.
	ErrNotOpened = errors.New("spider is not opened")

	// ErrAlreadyOpened is returned by a second call to Spider.Open.
	ErrAlreadyOpened = errors.New("spider is already opened")
)

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	// URL is the requested URL.
	URL string

	// StatusCode is the HTTP status code of the response.
	StatusCode int

	// Status is the status line text, e.g. "404 Not Found".
	Status string
}

// Error implements error.
func (e *StatusError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("unexpected HTTP status %s for %s", e.Status, e.URL)
	}
	return fmt.Sprintf("unexpected HTTP status %d for %s", e.StatusCode, e.URL)
}
