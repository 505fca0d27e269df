package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/wikiscrape/internal/model"
)

// PageRow is the stored state of an archived page.
type PageRow struct {
	URL         string
	Filename    string
	Title       string
	Chars       int
	ContentHash string
	FirstSeen   time.Time
	UpdatedAt   time.Time

	// Changes counts how often the content hash changed after the first
	// archive.
	Changes int
}

// IndexPage upserts a newly written page. The change counter increases
// when the content hash differs from the stored one.
func (cdb *CrawlDB) IndexPage(ctx context.Context, page *model.PageRecord) error {
	now := formatTimestamp(time.Now())
	_, err := cdb.db.ExecContext(ctx, `
	INSERT INTO pages (url, filename, title, chars, content_hash, first_seen, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		filename = excluded.filename,
		title = excluded.title,
		chars = excluded.chars,
		changes = pages.changes + (pages.content_hash != excluded.content_hash),
		content_hash = excluded.content_hash,
		updated_at = excluded.updated_at
	`, page.URL, page.Filename, page.Title, page.CharCount(), page.Hash(), now, now)
	if err != nil {
		return fmt.Errorf("failed to index page: %w", err)
	}
	return nil
}

// GetPage returns the stored state of a page, or nil if it was never
// archived.
func (cdb *CrawlDB) GetPage(ctx context.Context, url string) (*PageRow, error) {
	var (
		p         PageRow
		title     sql.NullString
		firstSeen string
		updatedAt string
	)
	err := cdb.db.QueryRowContext(ctx, `
	SELECT url, filename, title, chars, content_hash, first_seen, updated_at, changes
	FROM pages WHERE url = ?`, url).
		Scan(&p.URL, &p.Filename, &title, &p.Chars, &p.ContentHash, &firstSeen, &updatedAt, &p.Changes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}
	p.Title = title.String
	p.FirstSeen = parseTimestamp(firstSeen)
	p.UpdatedAt = parseTimestamp(updatedAt)
	return &p, nil
}

// CountPages returns the number of archived pages.
func (cdb *CrawlDB) CountPages(ctx context.Context) (int, error) {
	var n int
	if err := cdb.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	return n, nil
}
