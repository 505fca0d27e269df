// Package storage persists archived page text behind a small key-value
// interface.
//
// Keys are file names derived deterministically from URL keys by Filename.
// FileStore keeps one file per key inside an output directory and replaces
// files atomically, so an interrupted crawl never leaves a truncated page.
// MemoryStore keeps pages in memory and is used by tests.
package storage
