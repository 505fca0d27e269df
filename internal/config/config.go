package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "wikiscrape"

	// DefaultOutputDir is the crawl output directory when -o is not given.
	DefaultOutputDir = "scraped"

	// DefaultReportName is the report log file name inside the output directory.
	DefaultReportName = "scrape_report.csv"

	// DefaultDelay is the minimum interval between requests.
	DefaultDelay = 1 * time.Second

	// DefaultTimeout is the per-request timeout.
	DefaultTimeout = 15 * time.Second

	// DefaultWorkers is the number of concurrent fetch workers. The delay
	// still bounds the request rate no matter how many workers run.
	DefaultWorkers = 1

	// DefaultMaxBodySize limits the response body size to read.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultSummaryFormat is the format of the end-of-run summary.
	DefaultSummaryFormat = "text"
)

// DefaultSeeds are crawled when no URL is given on the command line or in
// the configuration file.
var DefaultSeeds = []string{
	"https://dnd5e.wikidot.com/",
	"http://dnd2024.wikidot.com/",
}

// summaryFormats lists the accepted summary formats.
var summaryFormats = map[string]bool{"text": true, "markdown": true, "md": true, "json": true}

// Config holds all options of one wikiscrape invocation.
// It is populated from CLI flags and the configuration file and passed
// down explicitly; there is no global configuration state.
type Config struct {
	// URLs are the pages to scrape, or the seeds when Crawl is set.
	URLs []string

	// Output is the output file or directory. Empty means stdout in
	// single-page mode and DefaultOutputDir in crawl mode.
	Output string

	// Crawl enables whole-site crawling from URLs.
	Crawl bool

	// Delay is the minimum interval between request starts. Zero disables
	// throttling.
	Delay time.Duration

	// SkipExisting keeps page files that already exist. Such pages are
	// still fetched so their links are followed.
	SkipExisting bool

	// ReportFile overrides the report log location.
	ReportFile string

	// Workers is the number of concurrent fetch workers.
	Workers int

	// MaxPages stops the crawl after this many attempted pages. Zero
	// means no limit.
	MaxPages int

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// UserAgent overrides the browser User-Agent. Empty keeps the default.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes.
	MaxBodySize int64

	// RespectRobots enables robots.txt rules and crawl-delay.
	RespectRobots bool

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the explicit configuration file path.
	ConfigFilePath string

	// SiteConfigs holds the loaded configuration file, if any.
	SiteConfigs *File

	// SummaryFormat is the format of the end-of-run summary.
	SummaryFormat string

	// SummaryFile receives the summary instead of stderr when set.
	SummaryFile string

	// DBDir is the directory of the crawl history database.
	DBDir string

	// SaveToDB records the crawl in the history database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Delay:         DefaultDelay,
		Workers:       DefaultWorkers,
		Timeout:       DefaultTimeout,
		MaxBodySize:   DefaultMaxBodySize,
		SummaryFormat: DefaultSummaryFormat,
		DBDir:         XDGDataDir(),
		SaveToDB:      true,
	}
}

// OutputDir returns the crawl output directory.
func (c *Config) OutputDir() string {
	if c.Output == "" {
		return DefaultOutputDir
	}
	return c.Output
}

// ReportPath returns the report log location.
func (c *Config) ReportPath() string {
	if c.ReportFile != "" {
		return c.ReportFile
	}
	return filepath.Join(c.OutputDir(), DefaultReportName)
}

// ResolveSeeds fills URLs by precedence: explicit URLs, then the seeds of
// the configuration file, then DefaultSeeds.
func (c *Config) ResolveSeeds() {
	if len(c.URLs) > 0 {
		return
	}
	if c.SiteConfigs != nil && len(c.SiteConfigs.Seeds) > 0 {
		c.URLs = append([]string(nil), c.SiteConfigs.Seeds...)
		return
	}
	c.URLs = append([]string(nil), DefaultSeeds...)
}

// XDGDataDir returns the XDG data directory for wikiscrape.
// On Linux: ~/.local/share/wikiscrape
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for wikiscrape.
// On Linux: ~/.config/wikiscrape
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if len(c.URLs) == 0 {
		return ErrNoURLs
	}
	if c.Delay < 0 {
		return ErrInvalidDelay
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if !summaryFormats[strings.ToLower(c.SummaryFormat)] {
		return ErrInvalidSummaryFormat
	}
	if c.Crawl {
		if info, err := os.Stat(c.OutputDir()); err == nil && !info.IsDir() {
			return ErrOutputIsFile
		}
	}
	return nil
}
