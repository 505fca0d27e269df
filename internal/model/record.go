package model

import (
	"encoding/hex"
	"unicode/utf8"

	"golang.org/x/crypto/sha3"
)

// PageRecord is the archived form of a successfully fetched page.
// It is written once and never mutated; a later run without skip-existing
// replaces it wholesale.
type PageRecord struct {
	// URL is the normalized URL key the page was fetched from.
	URL string `json:"url"`

	// Title is the <title> of the page, if any.
	Title string `json:"title,omitempty"`

	// Text is the extracted main text.
	Text string `json:"-"`

	// Filename is the storage key derived from URL.
	Filename string `json:"filename"`
}

// CharCount returns the number of characters (runes) in Text.
// An empty count signals that no content container was found.
func (p *PageRecord) CharCount() int {
	return utf8.RuneCountInString(p.Text)
}

// Hash returns the hex encoded SHA3-256 digest of Text.
func (p *PageRecord) Hash() string {
	sum := sha3.Sum256([]byte(p.Text))
	return hex.EncodeToString(sum[:])
}
