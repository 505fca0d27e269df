package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/nao1215/wikiscrape/internal/model"
)

// CSVLog is the report log: a CSV file with the columns of
// model.ReportHeader. Every row is flushed and synced to disk before
// Record returns, so the log survives a killed process.
type CSVLog struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	writer *csv.Writer
	rows   int
}

// OpenCSVLog creates or truncates the report log at path and writes the
// header row. Parent directories are created as needed.
func OpenCSVLog(path string) (*CSVLog, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	file, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open report log: %w", err)
	}

	l := &CSVLog{
		path:   path,
		file:   file,
		writer: csv.NewWriter(file),
	}
	if err := l.write(model.ReportHeader); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to write report header: %w", err)
	}
	return l, nil
}

// Path returns the location of the log.
func (l *CSVLog) Path() string {
	return l.path
}

// Rows returns the number of data rows written.
func (l *CSVLog) Rows() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rows
}

// Record implements Recorder.
func (l *CSVLog) Record(entry model.ReportEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return ErrClosed
	}
	if err := l.write(entry.Row()); err != nil {
		return fmt.Errorf("failed to write report row: %w", err)
	}
	l.rows++
	return nil
}

func (l *CSVLog) write(row []string) error {
	if err := l.writer.Write(row); err != nil {
		return err
	}
	l.writer.Flush()
	if err := l.writer.Error(); err != nil {
		return err
	}
	return l.file.Sync()
}

// Close implements Recorder. Closing twice is a no-op.
func (l *CSVLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	l.writer.Flush()
	flushErr := l.writer.Error()
	closeErr := l.file.Close()
	l.file = nil
	return errors.Join(flushErr, closeErr)
}

// ReadCSVLog reads all entries of the report log at path.
func ReadCSVLog(path string) ([]model.ReportEntry, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open report log: %w", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read report log: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: missing header", ErrMalformedLog)
	}

	entries := make([]model.ReportEntry, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) != len(model.ReportHeader) {
			return nil, fmt.Errorf("%w: row %d has %d columns", ErrMalformedLog, i+1, len(rec))
		}
		status, err := model.ParseStatus(rec[1])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		at, err := model.ParseTimestamp(rec[3])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		entries = append(entries, model.ReportEntry{URL: rec[0], Status: status, Details: rec[2], Timestamp: at})
	}
	return entries, nil
}
