package storage

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned by Get when no value exists for the key.
	ErrNotFound = errors.New("page not found in storage")

	// ErrInvalidKey is returned for keys that are empty or would escape
	// the storage root.
	ErrInvalidKey = errors.New("invalid storage key")
)

// Store is the persistence boundary of the crawler.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the stored bytes for key, or ErrNotFound.
	Get(key string) ([]byte, error)

	// Put stores data under key, replacing any previous value.
	Put(key string, data []byte) error

	// Exists reports whether a value is stored under key.
	Exists(key string) (bool, error)
}

// validateKey rejects keys that are not a single plain file name.
func validateKey(key string) error {
	if key == "" || key == "." || key == ".." {
		return ErrInvalidKey
	}
	if strings.ContainsAny(key, `/\`) || strings.ContainsRune(key, 0) {
		return ErrInvalidKey
	}
	return nil
}
