package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/wikiscrape/internal/model"
)

// SimpleWriter outputs a plain text summary for the terminal.
type SimpleWriter struct {
	baseWriter

	// listFailed prints every failed URL.
	listFailed bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithFailedURLs lists failed URLs below the counters.
func WithFailedURLs(list bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.listFailed = list
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		listFailed: true,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write implements Writer.
func (w *SimpleWriter) Write(result *model.CrawlResult) (int, error) {
	var sb strings.Builder

	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")
	sb.WriteString("CRAWL SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "Status:      %s\n", runState(result))
	if result.OutputDir != "" {
		fmt.Fprintf(&sb, "Output:      %s\n", result.OutputDir)
	}
	if result.ReportPath != "" {
		fmt.Fprintf(&sb, "Report log:  %s\n", result.ReportPath)
	}
	fmt.Fprintf(&sb, "Written:     %d\n", result.Written)
	fmt.Fprintf(&sb, "Skipped:     %d\n", result.Skipped)
	fmt.Fprintf(&sb, "Failed:      %d\n", result.Failed)
	fmt.Fprintf(&sb, "Discovered:  %d\n", result.Discovered)
	if d := result.Duration(); d > 0 {
		fmt.Fprintf(&sb, "Duration:    %s\n", d.Round(1e6))
	}

	if w.listFailed && len(result.FailedURLs) > 0 {
		sb.WriteString(strings.Repeat("-", 60))
		sb.WriteString("\nFAILED URLS\n")
		for _, u := range result.FailedURLs {
			fmt.Fprintf(&sb, "  [-] %s\n", u)
		}
	}

	return w.output.Write([]byte(sb.String()))
}
