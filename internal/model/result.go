package model

import "time"

// CrawlResult summarizes one crawl run.
type CrawlResult struct {
	// Seeds are the normalized seed URL keys the run started from.
	Seeds []string `json:"seeds"`

	// OutputDir is where page files were written.
	OutputDir string `json:"output_dir,omitempty"`

	// ReportPath is the location of the report log.
	ReportPath string `json:"report_path,omitempty"`

	// Written is the number of pages newly written (status ok).
	Written int `json:"written"`

	// Skipped is the number of pages left untouched because they existed.
	Skipped int `json:"skipped"`

	// Failed is the number of fetch attempts recorded as errors.
	Failed int `json:"failed"`

	// Discovered is the number of distinct URL keys ever enqueued.
	Discovered int `json:"discovered"`

	// FailedURLs lists the URL keys recorded as errors, in record order.
	FailedURLs []string `json:"failed_urls,omitempty"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Interrupted is true when the run stopped before the frontier drained,
	// either by cancellation or by reaching the page limit.
	Interrupted bool `json:"interrupted"`
}

// Attempted returns the number of URLs that reached the fetch stage.
// It equals the number of report rows of the run.
func (r *CrawlResult) Attempted() int {
	return r.Written + r.Skipped + r.Failed
}

// Count returns the counter for the given status.
func (r *CrawlResult) Count(s Status) int {
	switch s {
	case StatusOK:
		return r.Written
	case StatusSkipped:
		return r.Skipped
	case StatusError:
		return r.Failed
	default:
		return 0
	}
}

// Add updates the counters with one recorded entry.
func (r *CrawlResult) Add(e ReportEntry) {
	switch e.Status {
	case StatusOK:
		r.Written++
	case StatusSkipped:
		r.Skipped++
	case StatusError:
		r.Failed++
		r.FailedURLs = append(r.FailedURLs, e.URL)
	}
}

// Duration returns how long the run took.
func (r *CrawlResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
