package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/wikiscrape/internal/model"
)

// maxListedFailures caps the failed URL list in Markdown output.
const maxListedFailures = 50

// MarkdownWriter outputs the summary as Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write implements Writer.
func (w *MarkdownWriter) Write(result *model.CrawlResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Crawl Summary")
	md.PlainText("")

	rows := [][]string{
		{"Status", runState(result)},
		{"Started", result.StartedAt.Format(model.TimestampLayout)},
	}
	if d := result.Duration(); d > 0 {
		rows = append(rows, []string{"Duration", d.Round(1e6).String()})
	}
	if result.OutputDir != "" {
		rows = append(rows, []string{"Output", "`" + result.OutputDir + "`"})
	}
	if result.ReportPath != "" {
		rows = append(rows, []string{"Report log", "`" + result.ReportPath + "`"})
	}
	rows = append(rows, []string{"Discovered", strconv.Itoa(result.Discovered)})
	md.Table(markdown.TableSet{Header: []string{"Property", "Value"}, Rows: rows})
	md.PlainText("")

	w.writeCounts(md, result)
	w.writeFailures(md, result)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeCounts(md *markdown.Markdown, result *model.CrawlResult) {
	md.H2("Pages")
	md.PlainText("")

	title := cases.Title(language.English)
	rows := make([][]string, 0, 4)
	for _, s := range model.AllStatuses() {
		rows = append(rows, []string{title.String(s.String()), strconv.Itoa(result.Count(s))})
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(result.Attempted()) + "**"})
	md.Table(markdown.TableSet{Header: []string{"Status", "Count"}, Rows: rows})
	md.PlainText("")

	if result.Attempted() == 0 {
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Page Status Distribution"),
		piechart.WithShowData(true),
	)
	for _, s := range model.AllStatuses() {
		if n := result.Count(s); n > 0 {
			chart.LabelAndIntValue(title.String(s.String()), uint64(n))
		}
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, result *model.CrawlResult) {
	if len(result.FailedURLs) == 0 {
		md.Tip("Every attempted page was archived.")
		md.PlainText("")
		return
	}

	md.Warningf("%d page(s) failed. Rerun with --skip-existing to retry them.", len(result.FailedURLs))
	md.PlainText("")

	md.H2("Failed URLs")
	md.PlainText("")
	failed := result.FailedURLs
	if len(failed) > maxListedFailures {
		failed = failed[:maxListedFailures]
	}
	md.BulletList(failed...)
	if rest := len(result.FailedURLs) - len(failed); rest > 0 {
		md.PlainTextf("... and %d more", rest)
	}
	md.PlainText("")
}
