package crawler

import (
	"bytes"
	"context"
	"fmt"
	"net/url"

	"github.com/nao1215/wikiscrape/internal/model"
	"github.com/nao1215/wikiscrape/internal/storage"
)

// Scraper extracts single pages without following links.
type Scraper struct {
	fetcher   Fetcher
	extractor Extractor
	gate      *Gate
}

// NewScraper creates a Scraper. A nil extractor uses MainTextExtractor;
// a nil gate disables throttling.
func NewScraper(fetcher Fetcher, extractor Extractor, gate *Gate) *Scraper {
	if extractor == nil {
		extractor = NewMainTextExtractor()
	}
	if gate == nil {
		gate = NewGate(0)
	}
	return &Scraper{fetcher: fetcher, extractor: extractor, gate: gate}
}

// Scrape fetches rawURL and returns its title, text and file name.
// The URL is fetched as given; it is not normalized.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (*model.PageRecord, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrNoHost, rawURL)
	}

	if err := s.gate.Wait(ctx); err != nil {
		return nil, err
	}
	body, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	page := &model.PageRecord{
		URL:      rawURL,
		Text:     s.extractor.Extract(body),
		Filename: storage.Filename(rawURL),
	}
	if parsed, err := NewParser(rawURL).Parse(bytes.NewReader(body)); err == nil {
		page.Title = parsed.Title
	}
	return page, nil
}
