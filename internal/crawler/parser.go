package crawler

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Parser extracts the title and outbound links of an HTML page.
// The whole document is scanned, not only the content container, so
// sidebar and navigation links are discovered too.
type Parser struct {
	// baseURL is the URL links are resolved against. A <base href> in the
	// document replaces it.
	baseURL string
}

// ParseResult contains the information extracted from a page.
type ParseResult struct {
	// Title is the text of the <title> element.
	Title string

	// Links are the normalized URL keys of all <a href> targets, unique
	// and in document order.
	Links []string

	// Rejected counts hrefs that could not be normalized
	// (javascript:, mailto:, malformed URLs).
	Rejected int
}

// NewParser creates a parser resolving links against baseURL.
func NewParser(baseURL string) *Parser {
	return &Parser{baseURL: baseURL}
}

// Parse reads an HTML document from content.
func (p *Parser) Parse(content io.Reader) (*ParseResult, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{Links: make([]string, 0)}
	seen := make(map[string]struct{})
	base := p.baseURL
	baseSet := false

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if result.Title == "" {
					result.Title = strings.TrimSpace(nodeText(n))
				}
			case "base":
				if href := strings.TrimSpace(getAttr(n, "href")); href != "" && !baseSet {
					if resolved, err := urlParser.ParseRef(p.baseURL, href); err == nil {
						base = resolved.Href(true)
						baseSet = true
					}
				}
			case "a", "area":
				href := strings.TrimSpace(getAttr(n, "href"))
				if href == "" {
					break
				}
				key, err := Normalize(href, base)
				if err != nil {
					result.Rejected++
					break
				}
				if _, dup := seen[key]; !dup {
					seen[key] = struct{}{}
					result.Links = append(result.Links, key)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return result, nil
}

// DiscoverLinks returns the normalized outbound links of body.
func DiscoverLinks(body []byte, baseURL string) ([]string, error) {
	result, err := NewParser(baseURL).Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return result.Links, nil
}

// getAttr returns the value of the named attribute.
func getAttr(n *html.Node, name string) string {
	for _, attr := range n.Attr {
		if attr.Key == name {
			return attr.Val
		}
	}
	return ""
}

// nodeText concatenates all text below n.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
