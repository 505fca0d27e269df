// Package model defines the data structures shared by the crawler, the
// report log, storage and the history database.
//
// This package contains the following main types:
//   - Status: Outcome of one fetch attempt (ok, error, skipped)
//   - ReportEntry: One row of the crawl report log
//   - PageRecord: The archived text of a fetched page
//   - CrawlResult: Counters and timing of a whole crawl run
//
// Models live in their own package so crawler, report and database can all
// depend on them without import cycles.
package model
