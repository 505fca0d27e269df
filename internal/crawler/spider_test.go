package crawler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/wikiscrape/internal/model"
	"github.com/nao1215/wikiscrape/internal/report"
	"github.com/nao1215/wikiscrape/internal/storage"
)

// fakeFetcher serves canned pages and records the requested URLs.
type fakeFetcher struct {
	pages  map[string]string
	errors map[string]error

	mu      sync.Mutex
	fetched []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.fetched = append(f.fetched, pageURL)
	f.mu.Unlock()

	if err, ok := f.errors[pageURL]; ok {
		return nil, err
	}
	body, ok := f.pages[pageURL]
	if !ok {
		return nil, &StatusError{URL: pageURL, StatusCode: 404, Status: "404 Not Found"}
	}
	return []byte(body), nil
}

func (f *fakeFetcher) Fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

// fakeIndex collects indexed pages.
type fakeIndex struct {
	mu    sync.Mutex
	pages []string
}

func (f *fakeIndex) IndexPage(_ context.Context, page *model.PageRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages = append(f.pages, page.URL)
	return nil
}

type brokenRecorder struct{}

func (brokenRecorder) Record(model.ReportEntry) error { return errors.New("disk full") }
func (brokenRecorder) Close() error                   { return nil }

func wikiPage(text string, links ...string) string {
	body := `<html><head><title>` + text + `</title></head><body><div id="page-content">` + text + `</div>`
	for _, l := range links {
		body += `<a href="` + l + `">link</a>`
	}
	return body + `</body></html>`
}

// newTestSpider returns a spider without throttling.
func newTestSpider(fetcher Fetcher, store storage.Store, rec report.Recorder, opts ...SpiderOption) *Spider {
	return NewSpider(fetcher, store, rec, append([]SpiderOption{WithDelay(0)}, opts...)...)
}

func TestSpiderCrawl(t *testing.T) {
	t.Parallel()

	t.Run("archives in-scope pages and skips forum links", func(t *testing.T) {
		t.Parallel()

		fetcher := &fakeFetcher{pages: map[string]string{
			"http://wiki.test/home":  wikiPage("Home text", "/rules", "/forum:t-1"),
			"http://wiki.test/rules": wikiPage("Rules text", "/home/"),
		}}
		store := storage.NewMemoryStore()
		rec := report.NewMemoryRecorder()

		spider := newTestSpider(fetcher, store, rec)
		if err := spider.Open(context.Background(), []string{"http://wiki.test/home"}); err != nil {
			t.Fatalf("failed to open: %v", err)
		}
		result, err := spider.Run(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.Written != 2 {
			t.Errorf("expected 2 pages written, got %d", result.Written)
		}
		entries := rec.Entries()
		if len(entries) != 2 {
			t.Fatalf("expected 2 report rows, got %d", len(entries))
		}
		for _, e := range entries {
			if e.Status != model.StatusOK {
				t.Errorf("expected ok row, got %+v", e)
			}
		}

		keys := store.Keys()
		want := []string{"wiki-test-home.txt", "wiki-test-rules.txt"}
		if len(keys) != 2 || keys[0] != want[0] || keys[1] != want[1] {
			t.Errorf("expected files %v, got %v", want, keys)
		}
		data, _ := store.Get("wiki-test-rules.txt")
		if string(data) != "Rules text" {
			t.Errorf("unexpected content %q", data)
		}
		for _, u := range fetcher.Fetched() {
			if u == "http://wiki.test/forum:t-1" {
				t.Error("forum page must not be fetched")
			}
		}
		if result.Interrupted {
			t.Error("expected complete run")
		}
	})

	t.Run("details column carries char count", func(t *testing.T) {
		t.Parallel()

		fetcher := &fakeFetcher{pages: map[string]string{
			"http://wiki.test/home": wikiPage("héllo"),
		}}
		rec := report.NewMemoryRecorder()
		spider := newTestSpider(fetcher, storage.NewMemoryStore(), rec)
		if err := spider.Open(context.Background(), []string{"http://wiki.test/home"}); err != nil {
			t.Fatalf("failed to open: %v", err)
		}
		if _, err := spider.Run(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := rec.Entries()[0].Details; got != "5" {
			t.Errorf("expected 5 characters, got %q", got)
		}
	})

	t.Run("out of scope links are not followed", func(t *testing.T) {
		t.Parallel()

		fetcher := &fakeFetcher{pages: map[string]string{
			"http://wiki.test/home": wikiPage("Home", "http://elsewhere.test/page", "mailto:x@wiki.test"),
		}}
		rec := report.NewMemoryRecorder()
		spider := newTestSpider(fetcher, storage.NewMemoryStore(), rec)
		if err := spider.Open(context.Background(), []string{"http://wiki.test/home"}); err != nil {
			t.Fatalf("failed to open: %v", err)
		}
		result, err := spider.Run(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(fetcher.Fetched()) != 1 || result.Attempted() != 1 {
			t.Errorf("expected a single fetch, got %v", fetcher.Fetched())
		}
	})

	t.Run("fetch errors become error rows", func(t *testing.T) {
		t.Parallel()

		fetcher := &fakeFetcher{pages: map[string]string{
			"http://wiki.test/home": wikiPage("Home", "/missing"),
		}}
		rec := report.NewMemoryRecorder()
		spider := newTestSpider(fetcher, storage.NewMemoryStore(), rec)
		if err := spider.Open(context.Background(), []string{"http://wiki.test/home"}); err != nil {
			t.Fatalf("failed to open: %v", err)
		}
		result, err := spider.Run(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Written != 1 || result.Failed != 1 {
			t.Errorf("expected 1 written and 1 failed, got %+v", result)
		}
		if len(result.FailedURLs) != 1 || result.FailedURLs[0] != "http://wiki.test/missing" {
			t.Errorf("unexpected failed urls %v", result.FailedURLs)
		}
		var found bool
		for _, e := range rec.Entries() {
			if e.Status == model.StatusError {
				found = true
				if e.Details == "" {
					t.Error("expected error description")
				}
			}
		}
		if !found {
			t.Error("expected an error row")
		}
	})

	t.Run("skip existing keeps files and still follows links", func(t *testing.T) {
		t.Parallel()

		fetcher := &fakeFetcher{pages: map[string]string{
			"http://wiki.test/home":  wikiPage("New home", "/rules"),
			"http://wiki.test/rules": wikiPage("Rules"),
		}}
		store := storage.NewMemoryStore()
		if err := store.Put("wiki-test-home.txt", []byte("old home")); err != nil {
			t.Fatal(err)
		}
		rec := report.NewMemoryRecorder()

		spider := newTestSpider(fetcher, store, rec, WithSkipExisting(true))
		if err := spider.Open(context.Background(), []string{"http://wiki.test/home"}); err != nil {
			t.Fatalf("failed to open: %v", err)
		}
		result, err := spider.Run(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Skipped != 1 || result.Written != 1 {
			t.Errorf("expected 1 skipped and 1 written, got %+v", result)
		}
		data, _ := store.Get("wiki-test-home.txt")
		if string(data) != "old home" {
			t.Errorf("existing file was overwritten: %q", data)
		}
		if rec.Entries()[0].Details != model.SkippedDetails {
			t.Errorf("unexpected skip details %q", rec.Entries()[0].Details)
		}
	})

	t.Run("without skip existing files are overwritten", func(t *testing.T) {
		t.Parallel()

		fetcher := &fakeFetcher{pages: map[string]string{
			"http://wiki.test/home": wikiPage("New home"),
		}}
		store := storage.NewMemoryStore()
		_ = store.Put("wiki-test-home.txt", []byte("old home"))

		spider := newTestSpider(fetcher, store, report.NewMemoryRecorder())
		if err := spider.Open(context.Background(), []string{"http://wiki.test/home"}); err != nil {
			t.Fatalf("failed to open: %v", err)
		}
		if _, err := spider.Run(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		data, _ := store.Get("wiki-test-home.txt")
		if string(data) != "New home" {
			t.Errorf("expected overwrite, got %q", data)
		}
	})

	t.Run("max pages stops dispatching", func(t *testing.T) {
		t.Parallel()

		fetcher := &fakeFetcher{pages: map[string]string{
			"http://wiki.test/home": wikiPage("Home", "/a", "/b"),
			"http://wiki.test/a":    wikiPage("A"),
			"http://wiki.test/b":    wikiPage("B"),
		}}
		rec := report.NewMemoryRecorder()
		spider := newTestSpider(fetcher, storage.NewMemoryStore(), rec, WithMaxPages(2))
		if err := spider.Open(context.Background(), []string{"http://wiki.test/home"}); err != nil {
			t.Fatalf("failed to open: %v", err)
		}
		result, err := spider.Run(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Attempted() != 2 || len(rec.Entries()) != 2 {
			t.Errorf("expected 2 attempts, got %d", result.Attempted())
		}
		if !result.Interrupted {
			t.Error("expected interrupted run")
		}
		if result.Discovered != 3 {
			t.Errorf("expected 3 discovered, got %d", result.Discovered)
		}
	})

	t.Run("many workers record every page exactly once", func(t *testing.T) {
		t.Parallel()

		pages := make(map[string]string)
		var links []string
		for i := range 40 {
			links = append(links, "/p"+strconv.Itoa(i))
			pages["http://wiki.test/p"+strconv.Itoa(i)] = wikiPage(fmt.Sprintf("page %d", i), "/home", "/p"+strconv.Itoa((i+1)%40))
		}
		pages["http://wiki.test/home"] = wikiPage("Home", links...)

		fetcher := &fakeFetcher{pages: pages}
		rec := report.NewMemoryRecorder()
		index := &fakeIndex{}
		spider := newTestSpider(fetcher, storage.NewMemoryStore(), rec, WithWorkers(8), WithPageIndex(index))
		if err := spider.Open(context.Background(), []string{"http://wiki.test/home"}); err != nil {
			t.Fatalf("failed to open: %v", err)
		}
		result, err := spider.Run(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.Written != 41 {
			t.Errorf("expected 41 pages, got %d", result.Written)
		}
		seen := make(map[string]bool)
		for _, e := range rec.Entries() {
			if seen[e.URL] {
				t.Errorf("duplicate row for %s", e.URL)
			}
			seen[e.URL] = true
		}
		if len(fetcher.Fetched()) != 41 {
			t.Errorf("expected 41 fetches, got %d", len(fetcher.Fetched()))
		}
		if len(index.pages) != 41 {
			t.Errorf("expected 41 indexed pages, got %d", len(index.pages))
		}
	})

	t.Run("delay spaces requests", func(t *testing.T) {
		t.Parallel()

		fetcher := &fakeFetcher{pages: map[string]string{
			"http://wiki.test/home": wikiPage("Home", "/a", "/b"),
			"http://wiki.test/a":    wikiPage("A"),
			"http://wiki.test/b":    wikiPage("B"),
		}}
		spider := NewSpider(fetcher, storage.NewMemoryStore(), report.NewMemoryRecorder(),
			WithDelay(30*time.Millisecond), WithWorkers(3))
		if err := spider.Open(context.Background(), []string{"http://wiki.test/home"}); err != nil {
			t.Fatalf("failed to open: %v", err)
		}
		start := time.Now()
		if _, err := spider.Run(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if elapsed := time.Since(start); elapsed < 55*time.Millisecond {
			t.Errorf("expected requests to be spaced, took %v", elapsed)
		}
	})

	t.Run("canceled context stops the crawl", func(t *testing.T) {
		t.Parallel()

		fetcher := &fakeFetcher{pages: map[string]string{
			"http://wiki.test/home": wikiPage("Home"),
		}}
		rec := report.NewMemoryRecorder()
		spider := newTestSpider(fetcher, storage.NewMemoryStore(), rec)
		if err := spider.Open(context.Background(), []string{"http://wiki.test/home"}); err != nil {
			t.Fatalf("failed to open: %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		result, err := spider.Run(ctx)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if result == nil || !result.Interrupted {
			t.Error("expected interrupted partial result")
		}
		if len(rec.Entries()) != 0 {
			t.Errorf("expected no rows, got %d", len(rec.Entries()))
		}
	})

	t.Run("recorder failure aborts the run", func(t *testing.T) {
		t.Parallel()

		fetcher := &fakeFetcher{pages: map[string]string{
			"http://wiki.test/home": wikiPage("Home", "/a"),
			"http://wiki.test/a":    wikiPage("A"),
		}}
		spider := newTestSpider(fetcher, storage.NewMemoryStore(), brokenRecorder{})
		if err := spider.Open(context.Background(), []string{"http://wiki.test/home"}); err != nil {
			t.Fatalf("failed to open: %v", err)
		}
		if _, err := spider.Run(context.Background()); err == nil {
			t.Error("expected recorder error")
		}
		if len(fetcher.Fetched()) != 1 {
			t.Errorf("expected crawl to stop after first page, fetched %v", fetcher.Fetched())
		}
	})

	t.Run("recorder failure cancels pages in flight", func(t *testing.T) {
		t.Parallel()

		fetcher := &stallingFetcher{
			fakeFetcher: fakeFetcher{pages: map[string]string{
				"http://wiki.test/home": wikiPage("Home"),
			}},
			stalled: []string{"http://wiki.test/a", "http://wiki.test/b"},
		}
		fetcher.started.Add(len(fetcher.stalled))
		spider := newTestSpider(fetcher, storage.NewMemoryStore(), brokenRecorder{}, WithWorkers(3))
		seeds := []string{"http://wiki.test/home", "http://wiki.test/a", "http://wiki.test/b"}
		if err := spider.Open(context.Background(), seeds); err != nil {
			t.Fatalf("failed to open: %v", err)
		}

		errCh := make(chan error, 1)
		go func() {
			_, err := spider.Run(context.Background())
			errCh <- err
		}()
		select {
		case err := <-errCh:
			if err == nil || err.Error() != "disk full" {
				t.Errorf("expected recorder error, got %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("run did not return after the recorder failed")
		}
	})

	t.Run("background context crawls to completion", func(t *testing.T) {
		t.Parallel()

		fetcher := &fakeFetcher{pages: map[string]string{
			"http://wiki.test/home":  wikiPage("Home text", "/rules", "/forum:t-1"),
			"http://wiki.test/rules": wikiPage("Rules text"),
		}}
		store := storage.NewMemoryStore()
		rec := report.NewMemoryRecorder()
		spider := newTestSpider(fetcher, store, rec)

		ctx := context.Background()
		if err := spider.Open(ctx, []string{"http://wiki.test/home"}); err != nil {
			t.Fatalf("failed to open: %v", err)
		}
		result, err := spider.Run(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.Interrupted {
			t.Error("expected complete run")
		}
		if result.Written != 2 {
			t.Errorf("expected 2 pages written, got %d", result.Written)
		}
		var ok int
		for _, e := range rec.Entries() {
			if e.Status == model.StatusOK {
				ok++
			}
		}
		if ok != 2 || len(rec.Entries()) != 2 {
			t.Errorf("expected 2 ok rows, got %+v", rec.Entries())
		}
		if keys := store.Keys(); len(keys) != 2 {
			t.Errorf("expected 2 files, got %v", keys)
		}
		if n := spider.frontier.Len(); n != 0 {
			t.Errorf("expected empty frontier, got %d pending", n)
		}
	})
}

// stallingFetcher blocks the stalled URLs until ctx is canceled. Other
// pages are served only once every stalled fetch has started.
type stallingFetcher struct {
	fakeFetcher
	stalled []string
	started sync.WaitGroup
}

func (f *stallingFetcher) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	for _, u := range f.stalled {
		if u == pageURL {
			f.started.Done()
			<-ctx.Done()
			return nil, ctx.Err()
		}
	}
	f.started.Wait()
	return f.fakeFetcher.Fetch(ctx, pageURL)
}

func TestSpiderOpen(t *testing.T) {
	t.Parallel()

	newSpider := func() *Spider {
		return newTestSpider(&fakeFetcher{}, storage.NewMemoryStore(), report.NewMemoryRecorder())
	}

	t.Run("no valid seeds", func(t *testing.T) {
		t.Parallel()

		err := newSpider().Open(context.Background(), []string{"not a url", "mailto:x@y"})
		if !errors.Is(err, ErrNoSeeds) {
			t.Errorf("expected ErrNoSeeds, got %v", err)
		}
	})

	t.Run("all seeds filtered", func(t *testing.T) {
		t.Parallel()

		err := newSpider().Open(context.Background(), []string{"http://wiki.test/system:admin"})
		if !errors.Is(err, ErrNoSeeds) {
			t.Errorf("expected ErrNoSeeds, got %v", err)
		}
	})

	t.Run("opening twice fails", func(t *testing.T) {
		t.Parallel()

		s := newSpider()
		if err := s.Open(context.Background(), []string{"http://wiki.test/"}); err != nil {
			t.Fatalf("failed to open: %v", err)
		}
		if err := s.Open(context.Background(), []string{"http://wiki.test/"}); !errors.Is(err, ErrAlreadyOpened) {
			t.Errorf("expected ErrAlreadyOpened, got %v", err)
		}
	})

	t.Run("run before open fails", func(t *testing.T) {
		t.Parallel()

		if _, err := newSpider().Run(context.Background()); !errors.Is(err, ErrNotOpened) {
			t.Errorf("expected ErrNotOpened, got %v", err)
		}
	})

	t.Run("duplicate seeds collapse and scope spans all hosts", func(t *testing.T) {
		t.Parallel()

		s := newSpider()
		seeds := []string{"https://dnd5e.wikidot.com/", "https://dnd5e.wikidot.com", "http://dnd2024.wikidot.com/"}
		if err := s.Open(context.Background(), seeds); err != nil {
			t.Fatalf("failed to open: %v", err)
		}
		if s.frontier.Len() != 2 {
			t.Errorf("expected 2 queued seeds, got %d", s.frontier.Len())
		}
		hosts := s.Scope().Hosts()
		sort.Strings(hosts)
		if len(hosts) != 2 {
			t.Errorf("unexpected hosts %v", hosts)
		}
	})

	t.Run("close is idempotent", func(t *testing.T) {
		t.Parallel()

		s := newSpider()
		if err := s.Close(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

// fakeRobots serves a fixed robots.txt for every host.
type fakeRobots struct {
	body string
}

func (f fakeRobots) Get(_ context.Context, _ string) (int, []byte, error) {
	return 200, []byte(f.body), nil
}

func TestSpiderRobots(t *testing.T) {
	t.Parallel()

	t.Run("disallowed links are never fetched", func(t *testing.T) {
		t.Parallel()

		fetcher := &fakeFetcher{pages: map[string]string{
			"https://wiki.test":             wikiPage("home", "/private/notes", "/spell:light"),
			"https://wiki.test/spell:light": wikiPage("light"),
		}}
		rec := report.NewMemoryRecorder()
		s := newTestSpider(fetcher, storage.NewMemoryStore(), rec,
			WithRobots(NewRobots(DefaultUserAgent, nil), fakeRobots{body: "User-agent: *\nDisallow: /private\n"}))

		if err := s.Open(context.Background(), []string{"https://wiki.test/"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := s.Run(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for _, u := range fetcher.Fetched() {
			if u == "https://wiki.test/private/notes" {
				t.Error("disallowed page was fetched")
			}
		}
		if n := len(rec.Entries()); n != 2 {
			t.Errorf("expected 2 rows, got %d", n)
		}
	})

	t.Run("crawl delay raises the gate", func(t *testing.T) {
		t.Parallel()

		gate := NewGate(time.Second)
		s := NewSpider(&fakeFetcher{}, storage.NewMemoryStore(), report.NewMemoryRecorder(),
			WithGate(gate),
			WithRobots(NewRobots(DefaultUserAgent, nil), fakeRobots{body: "User-agent: *\nCrawl-delay: 3\n"}))

		if err := s.Open(context.Background(), []string{"https://wiki.test/"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := gate.Interval(); got != 3*time.Second {
			t.Errorf("expected 3s interval, got %v", got)
		}
	})
}
