package report

import (
	"errors"
	"sync"

	"github.com/nao1215/wikiscrape/internal/model"
)

// Recorder receives one entry per attempted page.
// Implementations must have persisted the entry when Record returns.
type Recorder interface {
	Record(entry model.ReportEntry) error
	Close() error
}

// MultiRecorder records to several Recorders in order.
// Record stops on the first error; Close closes all and joins the errors.
type MultiRecorder struct {
	recorders []Recorder
}

// NewMultiRecorder creates a Recorder writing to all given Recorders.
// Nil recorders are ignored.
func NewMultiRecorder(recorders ...Recorder) *MultiRecorder {
	m := &MultiRecorder{}
	for _, r := range recorders {
		if r != nil {
			m.recorders = append(m.recorders, r)
		}
	}
	return m
}

// Record implements Recorder.
func (m *MultiRecorder) Record(entry model.ReportEntry) error {
	for _, r := range m.recorders {
		if err := r.Record(entry); err != nil {
			return err
		}
	}
	return nil
}

// Close implements Recorder.
func (m *MultiRecorder) Close() error {
	var errs []error
	for _, r := range m.recorders {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MemoryRecorder keeps entries in memory.
type MemoryRecorder struct {
	mu      sync.Mutex
	entries []model.ReportEntry
	closed  bool
}

// NewMemoryRecorder returns an empty MemoryRecorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// Record implements Recorder.
func (m *MemoryRecorder) Record(entry model.ReportEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.entries = append(m.entries, entry)
	return nil
}

// Close implements Recorder.
func (m *MemoryRecorder) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Entries returns a copy of the recorded entries in record order.
func (m *MemoryRecorder) Entries() []model.ReportEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.ReportEntry(nil), m.entries...)
}
