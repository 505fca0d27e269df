package model

import (
	"strconv"
	"time"
)

// TimestampLayout is the layout of the timestamp column of the report log.
const TimestampLayout = "2006-01-02 15:04:05"

// ReportHeader is the header row of the report log.
var ReportHeader = []string{"url", "status", "details", "timestamp"}

// SkippedDetails is the details value written for skipped pages.
const SkippedDetails = "(existing)"

// ReportEntry is one row of the crawl report log.
// Exactly one entry exists for every URL that reached the fetch stage.
type ReportEntry struct {
	// URL is the normalized URL key of the page.
	URL string `json:"url"`

	// Status is the outcome of the attempt.
	Status Status `json:"status"`

	// Details is the character count, the error message, or the skip reason.
	Details string `json:"details"`

	// Timestamp is when the outcome was recorded.
	Timestamp time.Time `json:"timestamp"`
}

// NewOKEntry returns an ok entry carrying the character count of text.
func NewOKEntry(url string, chars int, at time.Time) ReportEntry {
	return ReportEntry{URL: url, Status: StatusOK, Details: strconv.Itoa(chars), Timestamp: at}
}

// NewErrorEntry returns an error entry carrying the error description.
func NewErrorEntry(url string, err error, at time.Time) ReportEntry {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return ReportEntry{URL: url, Status: StatusError, Details: details, Timestamp: at}
}

// NewSkippedEntry returns a skipped entry for a page already in storage.
func NewSkippedEntry(url string, at time.Time) ReportEntry {
	return ReportEntry{URL: url, Status: StatusSkipped, Details: SkippedDetails, Timestamp: at}
}

// Row returns the entry as report-log columns in ReportHeader order.
func (e ReportEntry) Row() []string {
	return []string{e.URL, e.Status.String(), e.Details, e.Timestamp.Local().Format(TimestampLayout)}
}

// ParseTimestamp parses a timestamp column written by Row.
func ParseTimestamp(v string) (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, v, time.Local)
}
