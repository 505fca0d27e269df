package crawler

import (
	"fmt"
	"net/url"
	"strings"

	whatwgUrl "github.com/nlnwa/whatwg-url/url"
)

var urlParser = whatwgUrl.NewParser(whatwgUrl.WithPercentEncodeSinglePercentSign())

// Normalize resolves rawLink against baseURL and returns its URL key.
//
// The key is the absolute http(s) URL with the fragment removed and
// trailing slashes stripped from the path, so "/foo/" and "/foo" collapse.
// Relative, scheme-relative, query-only and fragment-only links resolve
// against baseURL; an empty baseURL requires rawLink to be absolute.
// Normalize is pure and idempotent: Normalize(Normalize(u), u) == Normalize(u).
func Normalize(rawLink, baseURL string) (string, error) {
	link := strings.TrimSpace(rawLink)
	if link == "" {
		return "", ErrEmptyLink
	}

	var (
		parsed *whatwgUrl.Url
		err    error
	)
	if baseURL == "" {
		parsed, err = urlParser.Parse(link)
	} else {
		parsed, err = urlParser.ParseRef(baseURL, link)
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q: %w", rawLink, err)
	}

	u, err := url.Parse(parsed.Href(true))
	if err != nil {
		return "", fmt.Errorf("failed to parse %q: %w", rawLink, err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrNoHost, rawLink)
	}

	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	// Every trailing slash goes, not only the last, so "/a//" keys as "/a".
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = strings.TrimRight(u.RawPath, "/")

	return u.String(), nil
}

// hostOf returns the lower-cased host (with port) of urlKey.
func hostOf(urlKey string) string {
	u, err := url.Parse(urlKey)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
