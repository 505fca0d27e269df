package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nao1215/wikiscrape/internal/config"
	"github.com/nao1215/wikiscrape/internal/crawler"
	"github.com/nao1215/wikiscrape/internal/database"
	"github.com/nao1215/wikiscrape/internal/model"
	"github.com/nao1215/wikiscrape/internal/report"
	"github.com/nao1215/wikiscrape/internal/storage"
	"github.com/spf13/cobra"
)

// pageSeparator separates pages printed to stdout in single-page mode.
const pageSeparator = "\n---\n"

// NewScrapeCmd creates the scrape command.
func NewScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape [url...]",
		Short: "Scrape wiki pages or crawl whole wiki sites",
		Long: `Scrape extracts the main text of wiki pages.

Without --crawl every URL is fetched once. The text goes to stdout, to the
--output file (one URL) or into the --output directory (several URLs).

With --crawl the URLs are seeds: every linked page on the seed hosts is
visited breadth-first and written as one .txt file into the output
directory. Administrative pages (system:, admin:, forum threads, login,
feeds, ...) are never visited. Each attempt is logged to a CSV report.

When no URL is given, the seeds of the configuration file are used, or
the built-in D&D wiki home pages.

Examples:
  # Print the text of one page
  wikiscrape scrape https://dnd5e.wikidot.com/spell:fireball

  # Crawl a wiki into ./scraped, two seconds between requests
  wikiscrape scrape --crawl --delay 2 https://dnd5e.wikidot.com/

  # Resume an interrupted crawl without rewriting existing files
  wikiscrape scrape --crawl --skip-existing -o scraped

  # Respect robots.txt and write a Markdown summary
  wikiscrape scrape --crawl --respect-robots --summary-format markdown --summary-file summary.md

Configuration file (.wikiscrape) example:
  seeds:
    - https://dnd5e.wikidot.com/
  sites:
    dnd5e.wikidot.com:
      ignorePatterns:
        - "/homebrew:*"`,
		Args: cobra.ArbitraryArgs,
		RunE: runScrapeCmd,
	}

	// Output flags
	cmd.Flags().StringP("output", "o", "",
		"Output file (single URL) or directory (several URLs or --crawl, default: scraped)")
	cmd.Flags().StringP("report", "r", "",
		"Report log path for --crawl (default: <output>/scrape_report.csv)")

	// Crawl behavior flags
	cmd.Flags().Bool("crawl", false,
		"Crawl entire site(s) from the seed URLs; --output must be a directory")
	cmd.Flags().Bool("skip-existing", false,
		"When crawling, keep files that already exist (pages are still fetched to discover links)")
	cmd.Flags().Float64P("delay", "d", config.DefaultDelay.Seconds(),
		"Seconds between requests")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of concurrent fetch workers (the delay applies across all of them)")
	cmd.Flags().IntP("max-pages", "p", 0,
		"Stop the crawl after this many pages (0 means no limit)")
	cmd.Flags().Bool("respect-robots", false,
		"Honor robots.txt rules and Crawl-delay of the seed hosts")

	// Request flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().String("user-agent", "",
		"User-Agent header (default: a desktop browser)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .wikiscrape in current or home directory)")

	// Summary and history flags
	cmd.Flags().String("summary-format", config.DefaultSummaryFormat,
		"Crawl summary format: text, markdown or json")
	cmd.Flags().String("summary-file", "",
		"Write the crawl summary to this file instead of stderr")
	cmd.Flags().Bool("no-history", false,
		"Do not record the crawl in the history database")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	return cmd
}

// runScrapeCmd executes the scrape command.
func runScrapeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	cfg.ResolveSeeds()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Crawl {
		return runCrawl(ctx, cfg, logger, cmd.ErrOrStderr())
	}
	return runSingle(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.Output, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("report")
	if err != nil {
		return nil, err
	}

	cfg.Crawl, err = cmd.Flags().GetBool("crawl")
	if err != nil {
		return nil, err
	}

	cfg.SkipExisting, err = cmd.Flags().GetBool("skip-existing")
	if err != nil {
		return nil, err
	}

	delay, err := cmd.Flags().GetFloat64("delay")
	if err != nil {
		return nil, err
	}
	cfg.Delay, err = secondsToDuration(delay)
	if err != nil {
		return nil, err
	}

	cfg.Workers, err = cmd.Flags().GetInt("workers")
	if err != nil {
		return nil, err
	}

	cfg.MaxPages, err = cmd.Flags().GetInt("max-pages")
	if err != nil {
		return nil, err
	}

	cfg.RespectRobots, err = cmd.Flags().GetBool("respect-robots")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}

	cfg.SummaryFormat, err = cmd.Flags().GetString("summary-format")
	if err != nil {
		return nil, err
	}

	cfg.SummaryFile, err = cmd.Flags().GetString("summary-file")
	if err != nil {
		return nil, err
	}

	noHistory, err := cmd.Flags().GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noHistory

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}

	cfg.Verbose = getBoolFlag(cmd, "verbose")

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// If the user explicitly specified a config file path, error if not found.
	// If no path was specified, silently use an empty config.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
	}

	cfg.URLs = args

	return cfg, nil
}

// secondsToDuration converts the --delay value to a duration.
func secondsToDuration(seconds float64) (time.Duration, error) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, config.ErrInvalidDelay
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// newFetcher builds the HTTP fetcher with the request identity and the
// per-site headers of the configuration file.
func newFetcher(cfg *config.Config) *crawler.HTTPFetcher {
	opts := []crawler.FetcherOption{
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
	}
	if sc := cfg.SiteConfigs; sc != nil {
		for k, v := range sc.Defaults.RequestHeaders() {
			opts = append(opts, crawler.WithHeader(k, v))
		}
		for _, host := range sc.Hosts() {
			if h := sc.GetSiteConfig(host).RequestHeaders(); len(h) > 0 {
				opts = append(opts, crawler.WithSiteHeaders(host, h))
			}
		}
	}
	return crawler.NewHTTPFetcher(&http.Client{Timeout: cfg.Timeout}, opts...)
}

// newFilter builds the page filter with the glob patterns of the
// configuration file.
func newFilter(cfg *config.Config) (*crawler.Filter, error) {
	var opts []crawler.FilterOption
	if sc := cfg.SiteConfigs; sc != nil {
		if len(sc.Defaults.IgnorePatterns) > 0 || len(sc.Defaults.FollowPatterns) > 0 {
			opts = append(opts, crawler.WithPatterns("", sc.Defaults.IgnorePatterns, sc.Defaults.FollowPatterns))
		}
		for _, host := range sc.Hosts() {
			site := sc.GetSiteConfig(host)
			opts = append(opts, crawler.WithPatterns(host, site.IgnorePatterns, site.FollowPatterns))
		}
	}
	filter, err := crawler.NewFilter(opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid URL pattern in config file: %w", err)
	}
	return filter, nil
}

// runCrawl crawls the seed sites into the output directory.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, stderr io.Writer) error {
	outputDir := cfg.OutputDir()
	reportPath := cfg.ReportPath()

	logger.Info("starting crawl",
		"seeds", cfg.URLs,
		"output", outputDir,
		"delay", cfg.Delay,
		"workers", cfg.Workers,
		"skipExisting", cfg.SkipExisting,
	)

	store, err := storage.NewFileStore(outputDir)
	if err != nil {
		return err
	}

	filter, err := newFilter(cfg)
	if err != nil {
		return err
	}

	csvLog, err := report.OpenCSVLog(reportPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(stderr, "Report log: %s\n", csvLog.Path())

	fetcher := newFetcher(cfg)
	opts := []crawler.SpiderOption{
		crawler.WithDelay(cfg.Delay),
		crawler.WithWorkers(cfg.Workers),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithSkipExisting(cfg.SkipExisting),
		crawler.WithFilter(filter),
		crawler.WithLogger(logger),
	}
	if cfg.RespectRobots {
		opts = append(opts, crawler.WithRobots(crawler.NewRobots(fetcher.UserAgent(), logger), fetcher))
	}

	var recorder report.Recorder = csvLog
	history := openHistory(ctx, cfg, outputDir, reportPath, logger)
	if history != nil {
		defer history.close()
		recorder = report.NewMultiRecorder(csvLog, history.db.Recorder(history.runID))
		opts = append(opts, crawler.WithPageIndex(history.db))
	}

	spider := crawler.NewSpider(fetcher, store, recorder, opts...)
	defer spider.Close()

	startedAt := time.Now()
	if err := spider.Open(ctx, cfg.URLs); err != nil {
		history.finish(ctx, &model.CrawlResult{StartedAt: startedAt, FinishedAt: time.Now(), Interrupted: true})
		return fmt.Errorf("failed to start crawl: %w", err)
	}

	result, runErr := spider.Run(ctx)
	if err := spider.Close(); err != nil {
		logger.Error("failed to close report log", "path", reportPath, "error", err)
	}
	if result == nil {
		return runErr
	}
	result.OutputDir = outputDir
	result.ReportPath = reportPath
	history.finish(ctx, result)

	if result.Skipped > 0 {
		fmt.Fprintf(stderr, "Skipped %d existing file(s)\n", result.Skipped)
	}
	fmt.Fprintf(stderr, "Crawled %d new pages into %s\n", result.Written, outputDir)

	if err := writeSummary(cfg, result, stderr); err != nil {
		logger.Error("failed to write summary", "error", err)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("crawl aborted: %w", runErr)
	}
	return nil
}

// crawlHistory is the history database of one crawl run.
type crawlHistory struct {
	db     *database.CrawlDB
	runID  int64
	logger *slog.Logger
}

// openHistory opens the history database and begins a run. The crawl
// proceeds without history when the database cannot be used.
func openHistory(ctx context.Context, cfg *config.Config, outputDir, reportPath string, logger *slog.Logger) *crawlHistory {
	if !cfg.SaveToDB {
		return nil
	}
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		logger.Warn("crawl history disabled", "dir", cfg.DBDir, "error", err)
		return nil
	}
	runID, err := db.BeginRun(ctx, cfg.URLs, outputDir, reportPath, time.Now())
	if err != nil {
		logger.Warn("crawl history disabled", "error", err)
		_ = db.Close() //nolint:errcheck // Best effort cleanup
		return nil
	}
	logger.Debug("crawl history opened", "path", db.Path(), "run", runID)
	return &crawlHistory{db: db, runID: runID, logger: logger}
}

// finish stores the final counters of the run. It is a no-op on a nil
// history.
func (h *crawlHistory) finish(ctx context.Context, result *model.CrawlResult) {
	if h == nil {
		return
	}
	if err := h.db.FinishRun(context.WithoutCancel(ctx), h.runID, result); err != nil {
		h.logger.Error("failed to save crawl history", "run", h.runID, "error", err)
		return
	}
	h.logger.Info("crawl saved to history", "run", h.runID)
}

func (h *crawlHistory) close() {
	if err := h.db.Close(); err != nil {
		h.logger.Error("failed to close history database", "error", err)
	}
}

// writeSummary writes the run summary in the configured format to the
// summary file, or to stderr.
func writeSummary(cfg *config.Config, result *model.CrawlResult, stderr io.Writer) error {
	output := stderr
	if cfg.SummaryFile != "" {
		dir := filepath.Dir(cfg.SummaryFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create summary directory: %w", err)
			}
		}
		f, err := os.OpenFile(cfg.SummaryFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create summary file: %w", err)
		}
		defer f.Close()
		output = f
	}

	writer, err := report.NewWriter(cfg.SummaryFormat, output)
	if err != nil {
		return err
	}
	_, err = writer.Write(result)
	return err
}

// runSingle scrapes each URL once without following links.
func runSingle(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) error {
	scraper := crawler.NewScraper(newFetcher(cfg), nil, crawler.NewGate(cfg.Delay))

	var store *storage.FileStore
	if cfg.Output != "" && (len(cfg.URLs) > 1 || isDir(cfg.Output)) {
		var err error
		store, err = storage.NewFileStore(cfg.Output)
		if err != nil {
			return err
		}
	}

	for i, rawURL := range cfg.URLs {
		page, err := scraper.Scrape(ctx, rawURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error("failed to fetch page", "url", rawURL, "error", err)
			fmt.Fprintf(stderr, "Error fetching %s: %v\n", rawURL, err)
			continue
		}

		switch {
		case cfg.Output == "":
			fmt.Fprintln(stdout, page.Text)
			if i < len(cfg.URLs)-1 {
				fmt.Fprint(stdout, pageSeparator+"\n")
			}
		case store != nil:
			if err := store.Put(page.Filename, []byte(page.Text)); err != nil {
				return err
			}
			fmt.Fprintf(stderr, "Wrote %d chars to %s\n", page.CharCount(), store.Path(page.Filename))
		default:
			if err := writeTextFile(cfg.Output, page.Text); err != nil {
				return err
			}
			fmt.Fprintf(stderr, "Wrote %d chars to %s\n", page.CharCount(), cfg.Output)
		}
	}
	return nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// writeTextFile writes text to path, creating parent directories.
func writeTextFile(path, text string) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(text), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
