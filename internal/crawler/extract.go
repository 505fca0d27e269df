package crawler

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// DefaultContentIDs are the element ids holding wiki article text, tried
// in order.
var DefaultContentIDs = []string{"page-content", "main-content"}

// Extractor turns an HTML page into plain text.
type Extractor interface {
	Extract(body []byte) string
}

// MainTextExtractor returns the text of the first content container found.
// Pages without a container yield "". Extraction never fails; an
// unparseable document also yields "".
type MainTextExtractor struct {
	containerIDs []string
}

// NewMainTextExtractor returns an extractor looking for ids in order.
// With no ids, DefaultContentIDs are used.
func NewMainTextExtractor(ids ...string) *MainTextExtractor {
	if len(ids) == 0 {
		ids = DefaultContentIDs
	}
	return &MainTextExtractor{containerIDs: append([]string(nil), ids...)}
}

var excessiveNewlines = regexp.MustCompile(`\n{3,}`)

// removedElements never contribute text.
const removedElements = "script, style, noscript, template"

// blockElements start and end a line.
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"dd": true, "details": true, "div": true, "dl": true, "dt": true,
	"fieldset": true, "figcaption": true, "figure": true, "footer": true,
	"form": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true,
	"h6": true, "header": true, "hr": true, "li": true, "main": true,
	"nav": true, "ol": true, "p": true, "pre": true, "section": true,
	"summary": true, "table": true, "tbody": true, "td": true, "tfoot": true,
	"th": true, "thead": true, "tr": true, "ul": true, "caption": true,
}

// Extract implements Extractor.
func (e *MainTextExtractor) Extract(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	container := e.container(doc)
	if container == nil {
		return ""
	}
	container.Find(removedElements).Remove()

	var tb textBuilder
	for _, n := range container.Nodes {
		tb.walk(n, false)
	}
	tb.flush()

	text := strings.Join(tb.lines, "\n")
	text = excessiveNewlines.ReplaceAllString(text, "\n\n")
	return norm.NFC.String(strings.TrimSpace(text))
}

func (e *MainTextExtractor) container(doc *goquery.Document) *goquery.Selection {
	for _, id := range e.containerIDs {
		sel := doc.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
			v, _ := s.Attr("id")
			return v == id
		}).First()
		if sel.Length() > 0 {
			return sel
		}
	}
	return nil
}

// textBuilder flattens a DOM subtree into lines. Inline whitespace is
// collapsed; text inside <pre> keeps its line breaks.
type textBuilder struct {
	lines []string
	cur   strings.Builder
}

func (b *textBuilder) walk(n *html.Node, inPre bool) {
	switch n.Type {
	case html.TextNode:
		if inPre {
			b.writePre(n.Data)
		} else {
			b.cur.WriteString(n.Data)
		}
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		if n.Data == "br" {
			b.flush()
			return
		}
	}

	block := n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		b.flush()
	}
	pre := inPre || (n.Type == html.ElementNode && n.Data == "pre")
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.walk(c, pre)
	}
	if block {
		b.flush()
	}
}

func (b *textBuilder) writePre(s string) {
	parts := strings.Split(s, "\n")
	for i, part := range parts {
		if i > 0 {
			b.lines = append(b.lines, strings.TrimRight(b.cur.String(), " \t\r"))
			b.cur.Reset()
		}
		b.cur.WriteString(part)
	}
}

// flush ends the current line, dropping it when blank.
func (b *textBuilder) flush() {
	line := strings.Join(strings.Fields(b.cur.String()), " ")
	b.cur.Reset()
	if line != "" {
		b.lines = append(b.lines, line)
	}
}
