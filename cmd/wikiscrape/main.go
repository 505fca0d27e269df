// Package main provides the entry point for the wikiscrape CLI.
//
// wikiscrape archives the main text of wiki pages as plain-text files.
// It scrapes single pages or crawls whole sites politely, one request per
// delay interval, and keeps a CSV report of every attempt so interrupted
// crawls can be resumed with --skip-existing.
//
// Usage:
//
//	wikiscrape scrape <url>
//	wikiscrape scrape --crawl -o scraped <seed-url>
//
// See --help for all available options.
package main

// main is the entry point for wikiscrape.
func main() {
	Execute()
}
