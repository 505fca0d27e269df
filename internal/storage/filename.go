package storage

import (
	"net/url"
	"strings"
)

// MaxNameLength caps the base name (without extension) in characters.
const MaxNameLength = 80

// PageExt is the extension of archived page files.
const PageExt = ".txt"

// fallbackName is used when nothing usable remains of a URL.
const fallbackName = "page"

// unsafeChars are removed from derived file names.
const unsafeChars = `<>:"/\|?*`

// Filename derives the storage key of a page from its URL key.
// Dots in the host become dashes, the path has its outer slashes trimmed and
// inner slashes and colons turned into dashes, unsafe characters are dropped
// and the result is capped at MaxNameLength characters before ".txt".
// Query and fragment do not take part in the name.
func Filename(urlKey string) string {
	host, path := splitURL(urlKey)
	host = strings.ReplaceAll(host, ".", "-")

	path = strings.Trim(path, "/")
	path = strings.ReplaceAll(path, "/", "-")
	path = strings.ReplaceAll(path, ":", "-")

	var name string
	switch {
	case path != "" && path != "-":
		name = host + "-" + path
	case host != "":
		name = host
	default:
		name = fallbackName
	}

	return sanitizeName(name) + PageExt
}

// splitURL returns the host (with port) and the raw path of urlKey.
// Unparseable input yields an empty host and the input as path.
func splitURL(urlKey string) (string, string) {
	u, err := url.Parse(urlKey)
	if err != nil {
		return "", urlKey
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return u.Host, path
}

// sanitizeName removes characters that are invalid in file names on common
// platforms and caps the length.
func sanitizeName(name string) string {
	if strings.TrimSpace(name) == "" {
		return fallbackName
	}

	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune(unsafeChars, r) || r < 0x20 {
			return -1
		}
		return r
	}, name)

	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return fallbackName
	}

	runes := []rune(cleaned)
	if len(runes) > MaxNameLength {
		cleaned = string(runes[:MaxNameLength])
	}
	return cleaned
}
