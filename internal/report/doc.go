// Package report records crawl outcomes and renders run summaries.
//
// Recorders receive one ReportEntry per attempted page:
//   - CSVLog: the durable, append-only report log on disk
//   - MemoryRecorder: in-memory rows, used by tests and previews
//   - MultiRecorder: fan-out to several recorders
//
// Summary writers render a finished model.CrawlResult:
//   - SimpleWriter: plain text for the terminal
//   - MarkdownWriter: Markdown with a status pie chart
//   - JSONWriter: JSON for tooling
package report
