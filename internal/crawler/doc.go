// Package crawler provides a polite, resumable crawler for a bounded wiki.
//
// # Architecture
//
// The Spider coordinates the crawl. It owns a Frontier (FIFO queue plus
// visited set) and a dispatcher loop that hands URL keys to a bounded pool
// of workers. Workers fetch, extract and persist a page, then hand the
// report entry and the discovered links back to the dispatcher, which is the
// only goroutine touching the Frontier and the report Recorder.
//
// # Components
//
//   - Normalize: canonical URL keys (fragment and trailing slash removed)
//   - Filter: ordered path rules that drop non-content pages
//   - Scope: same-host crawl boundary derived from the seeds
//   - Frontier: queue with enqueue-time deduplication
//   - Gate: minimum interval between requests, shared by all workers
//   - Robots: optional robots.txt rules and crawl-delay
//   - HTTPFetcher: HTTP GET with a browser-like request identity
//   - MainTextExtractor: text of the wiki content container
//   - Parser: outbound links and title of a page
//   - Scraper: one-shot page scraping without link following
//
// # Politeness
//
// Only one request starts per Gate interval no matter how many workers run.
// The first request of a run is not delayed.
//
// # Usage
//
//	spider := crawler.NewSpider(fetcher, store, recorder, crawler.WithDelay(time.Second))
//	if err := spider.Open(ctx, seeds); err != nil {
//		return err
//	}
//	defer spider.Close()
//	result, err := spider.Run(ctx)
package crawler
