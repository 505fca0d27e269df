package database

import (
	"context"

	"github.com/nao1215/wikiscrape/internal/model"
)

// RunRecorder mirrors report rows of one run into the history.
// It implements report.Recorder; Close does not close the database.
type RunRecorder struct {
	db    *CrawlDB
	runID int64
}

// Recorder returns a recorder for runID.
func (cdb *CrawlDB) Recorder(runID int64) *RunRecorder {
	return &RunRecorder{db: cdb, runID: runID}
}

// RunID returns the run the recorder writes to.
func (r *RunRecorder) RunID() int64 {
	return r.runID
}

// Record stores entry. It is not bound to the crawl context so rows of
// pages finishing during shutdown are kept.
func (r *RunRecorder) Record(entry model.ReportEntry) error {
	return r.db.RecordEntry(context.Background(), r.runID, entry)
}

// Close implements report.Recorder.
func (r *RunRecorder) Close() error {
	return nil
}
