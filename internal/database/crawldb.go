package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/wikiscrape/internal/model"
)

// FileName is the name of the database file inside the data directory.
const FileName = "wikiscrape.db"

// Database errors.
var (
	// ErrNotFound is returned when the database file does not exist and
	// Options.CreateIfNotExists is false.
	ErrNotFound = errors.New("database not found")

	// ErrRunNotFound is returned for unknown run IDs.
	ErrRunNotFound = errors.New("run not found")
)

// CrawlDB is the SQLite crawl history.
type CrawlDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the CrawlDB in dbDir.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return cdb, nil
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

func (cdb *CrawlDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		seeds TEXT NOT NULL,
		output_dir TEXT,
		report_path TEXT,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		written INTEGER DEFAULT 0,
		skipped INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		discovered INTEGER DEFAULT 0,
		interrupted INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		url TEXT NOT NULL,
		status TEXT NOT NULL,
		details TEXT,
		recorded_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entries_run ON entries(run_id);
	CREATE INDEX IF NOT EXISTS idx_entries_status ON entries(run_id, status);

	-- Latest archived version of each page
	CREATE TABLE IF NOT EXISTS pages (
		url TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		title TEXT,
		chars INTEGER NOT NULL,
		content_hash TEXT NOT NULL,
		first_seen TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		changes INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_pages_filename ON pages(filename);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// Run is one crawl recorded in the history.
type Run struct {
	ID          int64
	Seeds       []string
	OutputDir   string
	ReportPath  string
	StartedAt   time.Time
	FinishedAt  time.Time
	Written     int
	Skipped     int
	Failed      int
	Discovered  int
	Interrupted bool
}

// Finished reports whether FinishRun was called for the run.
func (r *Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// BeginRun inserts a new run and returns its ID.
func (cdb *CrawlDB) BeginRun(ctx context.Context, seeds []string, outputDir, reportPath string, startedAt time.Time) (int64, error) {
	seedsJSON, err := json.Marshal(seeds)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize seeds: %w", err)
	}

	res, err := cdb.db.ExecContext(ctx,
		`INSERT INTO runs (seeds, output_dir, report_path, started_at) VALUES (?, ?, ?, ?)`,
		string(seedsJSON), outputDir, reportPath, formatTimestamp(startedAt))
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	return res.LastInsertId()
}

// FinishRun stores the final counters of a run.
func (cdb *CrawlDB) FinishRun(ctx context.Context, runID int64, result *model.CrawlResult) error {
	finished := result.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	res, err := cdb.db.ExecContext(ctx, `
	UPDATE runs
	SET finished_at = ?, written = ?, skipped = ?, failed = ?, discovered = ?, interrupted = ?
	WHERE id = ?`,
		formatTimestamp(finished), result.Written, result.Skipped, result.Failed,
		result.Discovered, boolToInt(result.Interrupted), runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	return nil
}

// RecordEntry appends a report row to a run.
func (cdb *CrawlDB) RecordEntry(ctx context.Context, runID int64, entry model.ReportEntry) error {
	_, err := cdb.db.ExecContext(ctx,
		`INSERT INTO entries (run_id, url, status, details, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		runID, entry.URL, entry.Status.String(), entry.Details, formatTimestamp(entry.Timestamp))
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	return nil
}

// GetRun returns the run with the given ID.
func (cdb *CrawlDB) GetRun(ctx context.Context, runID int64) (*Run, error) {
	row := cdb.db.QueryRowContext(ctx, runColumns+` WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// LatestRun returns the most recent run.
func (cdb *CrawlDB) LatestRun(ctx context.Context) (*Run, error) {
	runs, err := cdb.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrRunNotFound
	}
	return runs[0], nil
}

// ListRuns returns the most recent runs, newest first. A limit of 0
// returns all runs.
func (cdb *CrawlDB) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	query := runColumns + ` ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RunEntries returns the report rows of a run in record order. A
// non-empty status restricts the result to that status.
func (cdb *CrawlDB) RunEntries(ctx context.Context, runID int64, status model.Status) ([]model.ReportEntry, error) {
	query := `SELECT url, status, details, recorded_at FROM entries WHERE run_id = ?`
	args := []any{runID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status.String())
	}
	query += ` ORDER BY id`

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []model.ReportEntry
	for rows.Next() {
		var (
			e         model.ReportEntry
			statusStr string
			details   sql.NullString
			recorded  string
		)
		if err := rows.Scan(&e.URL, &statusStr, &details, &recorded); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.Status = model.Status(statusStr)
		e.Details = details.String
		e.Timestamp = parseTimestamp(recorded)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// FailedURLs returns the URL keys recorded as errors in a run.
func (cdb *CrawlDB) FailedURLs(ctx context.Context, runID int64) ([]string, error) {
	entries, err := cdb.RunEntries(ctx, runID, model.StatusError)
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(entries))
	for _, e := range entries {
		urls = append(urls, e.URL)
	}
	return urls, nil
}

const runColumns = `
	SELECT id, seeds, output_dir, report_path, started_at, finished_at,
	       written, skipped, failed, discovered, interrupted
	FROM runs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run         Run
		seedsJSON   string
		outputDir   sql.NullString
		reportPath  sql.NullString
		startedAt   string
		finishedAt  sql.NullString
		interrupted int
	)
	err := row.Scan(&run.ID, &seedsJSON, &outputDir, &reportPath, &startedAt, &finishedAt,
		&run.Written, &run.Skipped, &run.Failed, &run.Discovered, &interrupted)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(seedsJSON), &run.Seeds); err != nil {
		run.Seeds = nil
	}
	run.OutputDir = outputDir.String
	run.ReportPath = reportPath.String
	run.StartedAt = parseTimestamp(startedAt)
	if finishedAt.Valid {
		run.FinishedAt = parseTimestamp(finishedAt.String)
	}
	run.Interrupted = interrupted != 0
	return &run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// formatTimestamp stores timestamps as UTC RFC3339 with nanoseconds.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp parses a stored timestamp. Unparseable values yield the
// zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
