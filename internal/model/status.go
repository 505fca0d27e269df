package model

import "fmt"

// Status is the outcome recorded for a URL that reached the fetch stage.
// The string values are written verbatim into the report log.
type Status string

const (
	// StatusOK means the page was fetched and its text was written.
	// Details carry the character count of the extracted text.
	StatusOK Status = "ok"

	// StatusError means the fetch failed (transport error, timeout,
	// non-2xx response, non-HTML body) or the page could not be written.
	// Details carry the error description.
	StatusError Status = "error"

	// StatusSkipped means the page already existed in storage and
	// skip-existing mode was on. The page was still fetched so its links
	// could be followed.
	StatusSkipped Status = "skipped"
)

// String returns the report-log form of the status.
func (s Status) String() string {
	return string(s)
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusOK, StatusError, StatusSkipped:
		return true
	default:
		return false
	}
}

// ParseStatus converts a report-log value back into a Status.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", v)
	}
	return s, nil
}

// AllStatuses returns the statuses in the order summaries print them.
func AllStatuses() []Status {
	return []Status{StatusOK, StatusSkipped, StatusError}
}
