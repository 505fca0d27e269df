package crawler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/wikiscrape/internal/model"
	"github.com/nao1215/wikiscrape/internal/report"
	"github.com/nao1215/wikiscrape/internal/storage"
)

// DefaultDelay is the default minimum interval between requests.
const DefaultDelay = time.Second

// progressEvery is the number of skipped pages between progress lines.
const progressEvery = 100

// PageIndex receives every newly written page.
type PageIndex interface {
	IndexPage(ctx context.Context, page *model.PageRecord) error
}

// Spider crawls a wiki breadth-first from a set of seeds and archives the
// main text of every in-scope page.
type Spider struct {
	// fetcher retrieves page bodies.
	fetcher Fetcher

	// extractor turns a page into archived text.
	extractor Extractor

	// store receives one text file per page.
	store storage.Store

	// recorder receives one row per attempted page.
	recorder report.Recorder

	// index optionally mirrors written pages, e.g. into the history DB.
	index PageIndex

	// filter drops non-content pages.
	filter *Filter

	// gate spaces request starts.
	gate *Gate

	// robots, when set, restricts the crawl to allowed paths.
	robots     *Robots
	robotsLoad RawFetcher

	logger       *slog.Logger
	workers      int
	maxPages     int
	skipExisting bool
	now          func() time.Time

	frontier *Frontier
	scope    *Scope
	seeds    []string

	opened    bool
	closeOnce sync.Once
	closeErr  error
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithDelay sets the minimum interval between request starts.
// Zero disables throttling.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.gate = NewGate(d)
	}
}

// WithGate shares an existing Gate.
func WithGate(g *Gate) SpiderOption {
	return func(s *Spider) {
		if g != nil {
			s.gate = g
		}
	}
}

// WithWorkers sets the number of concurrent fetch workers.
func WithWorkers(n int) SpiderOption {
	return func(s *Spider) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithSkipExisting makes the spider keep existing page files. Such pages
// are still fetched so their links are followed.
func WithSkipExisting(skip bool) SpiderOption {
	return func(s *Spider) {
		s.skipExisting = skip
	}
}

// WithMaxPages stops dispatching after n attempted pages. Zero means no
// limit.
func WithMaxPages(n int) SpiderOption {
	return func(s *Spider) {
		if n >= 0 {
			s.maxPages = n
		}
	}
}

// WithFilter replaces the default path filter.
func WithFilter(f *Filter) SpiderOption {
	return func(s *Spider) {
		if f != nil {
			s.filter = f
		}
	}
}

// WithExtractor replaces the default main text extractor.
func WithExtractor(e Extractor) SpiderOption {
	return func(s *Spider) {
		if e != nil {
			s.extractor = e
		}
	}
}

// WithRobots enables robots.txt handling. Rules are loaded through
// fetcher during Open.
func WithRobots(r *Robots, fetcher RawFetcher) SpiderOption {
	return func(s *Spider) {
		s.robots = r
		s.robotsLoad = fetcher
	}
}

// WithPageIndex mirrors written pages into idx.
func WithPageIndex(idx PageIndex) SpiderOption {
	return func(s *Spider) {
		s.index = idx
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) SpiderOption {
	return func(s *Spider) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for report timestamps.
func WithClock(now func() time.Time) SpiderOption {
	return func(s *Spider) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSpider creates a Spider. The spider owns recorder and closes it in
// Close.
func NewSpider(fetcher Fetcher, store storage.Store, recorder report.Recorder, opts ...SpiderOption) *Spider {
	defaultFilter, _ := NewFilter()
	s := &Spider{
		fetcher:   fetcher,
		extractor: NewMainTextExtractor(),
		store:     store,
		recorder:  recorder,
		filter:    defaultFilter,
		gate:      NewGate(DefaultDelay),
		logger:    slog.New(slog.DiscardHandler),
		workers:   1,
		now:       time.Now,
		frontier:  NewFrontier(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open normalizes the seeds, derives the crawl scope and fills the
// frontier. Invalid seeds are logged and dropped.
func (s *Spider) Open(ctx context.Context, seeds []string) error {
	if s.opened {
		return ErrAlreadyOpened
	}

	keys := make([]string, 0, len(seeds))
	for _, seed := range seeds {
		key, err := Normalize(seed, "")
		if err != nil {
			s.logger.Warn("invalid seed ignored", "seed", seed, "error", err)
			continue
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return ErrNoSeeds
	}
	s.scope = NewScope(keys)

	if s.robots != nil && s.robotsLoad != nil {
		loaded := make(map[string]bool)
		for _, key := range keys {
			host := hostOf(key)
			if loaded[host] {
				continue
			}
			loaded[host] = true
			if err := s.robots.Load(ctx, s.robotsLoad, key); err != nil {
				return fmt.Errorf("failed to load robots.txt: %w", err)
			}
		}
		if d := s.robots.CrawlDelay(); d > s.gate.Interval() {
			s.logger.Info("using robots.txt crawl-delay", "delay", d)
			s.gate.Raise(d)
		}
	}

	for _, key := range keys {
		if !s.admit(key) {
			continue
		}
		if s.frontier.EnqueueIfNew(key) {
			s.seeds = append(s.seeds, key)
		}
	}
	if s.frontier.Len() == 0 {
		return fmt.Errorf("%w: every seed is filtered out", ErrNoSeeds)
	}

	s.opened = true
	return nil
}

// Scope returns the crawl scope. It is nil before Open.
func (s *Spider) Scope() *Scope {
	return s.scope
}

// admit reports whether key may enter the frontier.
func (s *Spider) admit(key string) bool {
	if !s.scope.Contains(key) {
		return false
	}
	if skip, reason := s.filter.Check(key); skip {
		s.logger.Debug("link filtered", "url", key, "reason", reason)
		return false
	}
	if !s.robots.Allowed(key) {
		s.logger.Debug("link disallowed by robots.txt", "url", key)
		return false
	}
	return true
}

// visit is the result of one worker attempt.
type visit struct {
	key      string
	entry    model.ReportEntry
	links    []string
	page     *model.PageRecord
	canceled bool
}

// Run crawls until the frontier is drained, the page limit is reached or
// ctx is canceled. Every attempted page produces exactly one report row
// before the next row is written. On cancellation the partial result is
// returned together with ctx.Err().
func (s *Spider) Run(ctx context.Context) (*model.CrawlResult, error) {
	if !s.opened {
		return nil, ErrNotOpened
	}

	result := &model.CrawlResult{
		Seeds:     append([]string(nil), s.seeds...),
		StartedAt: s.now(),
	}

	jobs := make(chan string)
	visits := make(chan visit)

	// Workers stop early when the caller cancels or the dispatcher aborts.
	workCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	g, gctx := errgroup.WithContext(workCtx)
	for range s.workers {
		g.Go(func() error {
			for key := range jobs {
				v := s.visit(gctx, key)
				visits <- v
				if err := gctx.Err(); v.canceled && err != nil {
					return err
				}
			}
			return nil
		})
	}

	var (
		runErr   error
		next     string
		inFlight int
		attempts int
		canceled bool
		done     = gctx.Done()
	)
	for {
		dispatching := !canceled && runErr == nil && (s.maxPages == 0 || attempts < s.maxPages)
		if next == "" && dispatching {
			next = s.nextKey()
		}
		if inFlight == 0 && (next == "" || !dispatching) {
			break
		}

		var send chan<- string
		if next != "" && dispatching {
			send = jobs
		}

		select {
		case send <- next:
			inFlight++
			attempts++
			next = ""
		case v := <-visits:
			inFlight--
			if runErr != nil {
				continue
			}
			if err := s.handle(ctx, v, result); err != nil {
				runErr = err
				stopWorkers()
			}
		case <-done:
			done = nil
			canceled = true
			next = ""
			result.Interrupted = true
			if ctx.Err() != nil {
				s.logger.Warn("crawl canceled, waiting for in-flight pages", "in_flight", inFlight)
			}
		}
	}
	close(jobs)
	if err := g.Wait(); err != nil && runErr == nil && ctx.Err() == nil {
		runErr = err
	}

	if next != "" || s.frontier.Len() > 0 {
		result.Interrupted = true
	}
	result.Discovered = s.frontier.Seen()
	result.FinishedAt = s.now()

	s.logger.Info("crawl finished",
		"written", result.Written,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"discovered", result.Discovered,
		"duration", result.Duration())

	if runErr != nil {
		return result, runErr
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// nextKey dequeues the next key that still passes the filter.
func (s *Spider) nextKey() string {
	for {
		key, ok := s.frontier.Dequeue()
		if !ok {
			return ""
		}
		if s.filter.ShouldSkip(key) {
			continue
		}
		return key
	}
}

// visit fetches, extracts and persists one page. It runs on a worker.
func (s *Spider) visit(ctx context.Context, key string) visit {
	v := visit{key: key}

	if err := s.gate.Wait(ctx); err != nil {
		v.canceled = true
		return v
	}

	body, err := s.fetcher.Fetch(ctx, key)
	if err != nil {
		if ctx.Err() != nil {
			v.canceled = true
			return v
		}
		v.entry = model.NewErrorEntry(key, err, s.now())
		return v
	}

	parsed, err := NewParser(key).Parse(bytes.NewReader(body))
	if err != nil {
		s.logger.Debug("failed to parse links", "url", key, "error", err)
		parsed = &ParseResult{}
	}
	v.links = parsed.Links

	page := &model.PageRecord{
		URL:      key,
		Title:    parsed.Title,
		Text:     s.extractor.Extract(body),
		Filename: storage.Filename(key),
	}

	if s.skipExisting {
		exists, err := s.store.Exists(page.Filename)
		if err != nil {
			v.entry = model.NewErrorEntry(key, fmt.Errorf("failed to check %s: %w", page.Filename, err), s.now())
			return v
		}
		if exists {
			v.entry = model.NewSkippedEntry(key, s.now())
			return v
		}
	}

	if err := s.store.Put(page.Filename, []byte(page.Text)); err != nil {
		v.entry = model.NewErrorEntry(key, fmt.Errorf("failed to write %s: %w", page.Filename, err), s.now())
		return v
	}
	v.page = page
	v.entry = model.NewOKEntry(key, page.CharCount(), s.now())
	return v
}

// handle records a visit and enqueues its links. It runs on the
// dispatcher only.
func (s *Spider) handle(ctx context.Context, v visit, result *model.CrawlResult) error {
	if v.canceled {
		result.Interrupted = true
		return nil
	}

	if err := s.recorder.Record(v.entry); err != nil {
		return fmt.Errorf("failed to record %s: %w", v.key, err)
	}
	result.Add(v.entry)

	switch v.entry.Status {
	case model.StatusOK:
		s.logger.Info("page archived", "url", v.key, "chars", v.entry.Details, "file", v.page.Filename)
	case model.StatusSkipped:
		s.logger.Debug("page exists, skipped", "url", v.key)
		if result.Skipped%progressEvery == 0 {
			s.logger.Info("progress", "written", result.Written, "skipped", result.Skipped, "queued", s.frontier.Len())
		}
	case model.StatusError:
		s.logger.Warn("page failed", "url", v.key, "error", v.entry.Details)
	}

	if v.page != nil && s.index != nil {
		if err := s.index.IndexPage(context.WithoutCancel(ctx), v.page); err != nil {
			s.logger.Warn("failed to index page", "url", v.key, "error", err)
		}
	}

	for _, link := range v.links {
		if s.admit(link) {
			s.frontier.EnqueueIfNew(link)
		}
	}
	return nil
}

// Close closes the recorder. It is safe to call more than once.
func (s *Spider) Close() error {
	s.closeOnce.Do(func() {
		if s.recorder != nil {
			s.closeErr = s.recorder.Close()
		}
	})
	return s.closeErr
}
