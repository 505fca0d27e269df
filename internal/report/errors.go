package report

import "errors"

// Report errors.
var (
	// ErrClosed is returned when recording to a closed Recorder.
	ErrClosed = errors.New("recorder is closed")

	// ErrMalformedLog is returned by ReadCSVLog for logs with a bad shape.
	ErrMalformedLog = errors.New("malformed report log")

	// ErrUnknownFormat is returned by NewWriter for unsupported formats.
	ErrUnknownFormat = errors.New("unknown summary format")
)
