package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/wikiscrape/internal/model"
)

// JSONWriter outputs the summary as JSON.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables indented output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONSummary is the JSON document written by JSONWriter.
type JSONSummary struct {
	*model.CrawlResult

	// Attempted is the number of report rows of the run.
	Attempted int `json:"attempted"`

	// DurationSeconds is the run duration in seconds.
	DurationSeconds float64 `json:"duration_seconds"`
}

// Write implements Writer.
func (w *JSONWriter) Write(result *model.CrawlResult) (int, error) {
	summary := JSONSummary{
		CrawlResult:     result,
		Attempted:       result.Attempted(),
		DurationSeconds: result.Duration().Seconds(),
	}

	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(summary, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(summary)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}
