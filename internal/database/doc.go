// Package database provides the SQLite crawl history for wikiscrape.
//
// The CrawlDB stores:
//   - runs: one row per crawl with its seeds and final counters
//   - entries: every report row of every run
//   - pages: the latest archived version of each page with a content hash
//
// The history is a mirror of the CSV report log, not a replacement: the
// CSV file stays the durable per-run record next to the page files.
// SQLite is provided by modernc.org/sqlite, so no cgo is needed.
package database
