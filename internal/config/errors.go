package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoURLs is returned when there is nothing to scrape.
	ErrNoURLs = errors.New("no URLs to scrape")

	// ErrInvalidDelay is returned when the delay is negative.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrInvalidMaxPages is returned when the page limit is negative.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidSummaryFormat is returned for unknown summary formats.
	ErrInvalidSummaryFormat = errors.New("invalid summary format: use text, markdown or json")

	// ErrOutputIsFile is returned in crawl mode when the output path is an
	// existing regular file.
	ErrOutputIsFile = errors.New("--output must be a directory when using --crawl")
)
