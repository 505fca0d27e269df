package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/wikiscrape/internal/config"
	"github.com/nao1215/wikiscrape/internal/crawler"
	"github.com/nao1215/wikiscrape/internal/database"
	"github.com/nao1215/wikiscrape/internal/model"
	"github.com/spf13/cobra"
)

// defaultHistoryLimit is the number of runs listed by default.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
// This command shows crawls recorded in the history database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded crawl runs",
		Long: `History lists the crawl runs recorded in the history database.

Every 'wikiscrape scrape --crawl' records its report rows and final counts
unless --no-history is given. Use --run to see the rows of one run and
--failed to get the URLs that failed, one per line, ready for a retry.

Examples:
  # List the most recent runs
  wikiscrape history

  # Show every row of run 3
  wikiscrape history --run 3

  # Retry the pages that failed in the latest run
  wikiscrape history --failed | xargs wikiscrape scrape -o scraped

  # Show the archive state of one page
  wikiscrape history --page https://dnd5e.wikidot.com/spell:fireball`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Number of runs to list (0 lists all)")
	cmd.Flags().Int64P("run", "i", 0,
		"Show the report rows of the run with this ID")
	cmd.Flags().StringP("status", "s", "",
		"With --run, only show rows with this status (ok, error, skipped)")
	cmd.Flags().BoolP("failed", "f", false,
		"Print only the failed URLs of the run (default: latest run)")
	cmd.Flags().String("page", "",
		"Show the archive state of a page URL")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	runID, err := cmd.Flags().GetInt64("run")
	if err != nil {
		return err
	}
	statusFlag, err := cmd.Flags().GetString("status")
	if err != nil {
		return err
	}
	failed, err := cmd.Flags().GetBool("failed")
	if err != nil {
		return err
	}
	pageURL, err := cmd.Flags().GetString("page")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	// Validate flags before opening the database
	var status model.Status
	if statusFlag != "" {
		status, err = model.ParseStatus(statusFlag)
		if err != nil {
			return err
		}
	}
	if limit < 0 {
		return errors.New("--limit must be non-negative")
	}

	// Reading history never creates the database
	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(dbDir, opts)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("no crawl history yet: %w", err)
		}
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case pageURL != "":
		key, err := crawler.Normalize(pageURL, "")
		if err != nil {
			return fmt.Errorf("invalid page URL: %w", err)
		}
		return showPage(ctx, db, out, key, jsonOutput)
	case failed:
		return listFailedURLs(ctx, db, out, runID)
	case runID != 0:
		return showRun(ctx, db, out, runID, status, jsonOutput)
	default:
		return listRuns(ctx, db, out, limit, jsonOutput)
	}
}

// listRuns prints the most recent runs.
func listRuns(ctx context.Context, db *database.CrawlDB, out io.Writer, limit int, jsonOutput bool) error {
	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(out, runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No crawl runs found in the history database.")
		fmt.Fprintln(out, "\nUse 'wikiscrape scrape --crawl <url>' to crawl a wiki.")
		return nil
	}

	pages, err := db.CountPages(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Crawl runs (%d shown, %d pages archived):\n\n", len(runs), pages)
	fmt.Fprintf(out, "  %-6s  %-20s  %-8s  %7s  %7s  %7s  %s\n",
		"ID", "Started", "State", "Written", "Skipped", "Failed", "Output")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 78))

	for _, run := range runs {
		fmt.Fprintf(out, "  %-6d  %-20s  %-8s  %7d  %7d  %7d  %s\n",
			run.ID,
			run.StartedAt.Local().Format(model.TimestampLayout),
			runStateLabel(run),
			run.Written,
			run.Skipped,
			run.Failed,
			run.OutputDir,
		)
	}

	fmt.Fprintln(out, "\nUse 'wikiscrape history --run <id>' to see the rows of a run.")
	return nil
}

// runStateLabel describes how a run ended.
func runStateLabel(run *database.Run) string {
	switch {
	case !run.Finished():
		return "running"
	case run.Interrupted:
		return "partial"
	default:
		return "complete"
	}
}

// showRun prints the report rows of one run.
func showRun(ctx context.Context, db *database.CrawlDB, out io.Writer, runID int64, status model.Status, jsonOutput bool) error {
	run, err := db.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	entries, err := db.RunEntries(ctx, runID, status)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(out, struct {
			Run     *database.Run       `json:"run"`
			Entries []model.ReportEntry `json:"entries"`
		}{run, entries})
	}

	fmt.Fprintf(out, "Run %d (%s)\n", run.ID, runStateLabel(run))
	fmt.Fprintf(out, "  Seeds:   %s\n", strings.Join(run.Seeds, ", "))
	fmt.Fprintf(out, "  Output:  %s\n", run.OutputDir)
	fmt.Fprintf(out, "  Report:  %s\n", run.ReportPath)
	fmt.Fprintf(out, "  Started: %s\n", run.StartedAt.Local().Format(model.TimestampLayout))
	if run.Finished() {
		fmt.Fprintf(out, "  Ended:   %s\n", run.FinishedAt.Local().Format(model.TimestampLayout))
	}
	fmt.Fprintln(out)

	if len(entries) == 0 {
		fmt.Fprintln(out, "No rows recorded.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s  %-7s  %s  %s\n",
			e.Timestamp.Local().Format(model.TimestampLayout), e.Status, e.URL, e.Details)
	}
	return nil
}

// listFailedURLs prints the failed URLs of a run, one per line. A zero
// runID selects the latest run.
func listFailedURLs(ctx context.Context, db *database.CrawlDB, out io.Writer, runID int64) error {
	if runID == 0 {
		run, err := db.LatestRun(ctx)
		if err != nil {
			if errors.Is(err, database.ErrRunNotFound) {
				return errors.New("no crawl runs found in the history database")
			}
			return err
		}
		runID = run.ID
	}

	urls, err := db.FailedURLs(ctx, runID)
	if err != nil {
		return err
	}
	for _, u := range urls {
		fmt.Fprintln(out, u)
	}
	return nil
}

// showPage prints the archive state of one page.
func showPage(ctx context.Context, db *database.CrawlDB, out io.Writer, pageURL string, jsonOutput bool) error {
	page, err := db.GetPage(ctx, pageURL)
	if err != nil {
		return err
	}
	if page == nil {
		return fmt.Errorf("%w: %s", database.ErrNotFound, pageURL)
	}
	if jsonOutput {
		return writeJSON(out, page)
	}

	fmt.Fprintf(out, "URL:        %s\n", page.URL)
	fmt.Fprintf(out, "Title:      %s\n", page.Title)
	fmt.Fprintf(out, "File:       %s\n", page.Filename)
	fmt.Fprintf(out, "Characters: %d\n", page.Chars)
	fmt.Fprintf(out, "SHA3-256:   %s\n", page.ContentHash)
	fmt.Fprintf(out, "First seen: %s\n", page.FirstSeen.Local().Format(model.TimestampLayout))
	fmt.Fprintf(out, "Updated:    %s\n", page.UpdatedAt.Local().Format(model.TimestampLayout))
	fmt.Fprintf(out, "Changes:    %d\n", page.Changes)
	return nil
}

// writeJSON writes v as indented JSON.
func writeJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
