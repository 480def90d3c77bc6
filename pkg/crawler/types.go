package crawler

import "context"

// Visitor loads one page and returns the raw links found on it.
// Implementations own whatever browsing state they need; the crawler
// only sees URLs in and links out.
type Visitor interface {
	Visit(ctx context.Context, url string) ([]string, error)
	Close() error
}

// Result summarizes one crawl session.
type Result struct {
	// Total unique in-scope URLs known after the session, including
	// URLs carried over from a previous checkpoint.
	URLsCount int `json:"urls_count"`

	// Pages processed this session, successes and exhausted failures both.
	PagesVisited int `json:"pages_visited"`

	// URLs whose every attempt failed this session.
	FailedURLs int `json:"failed_urls"`

	// Path of the final checkpoint file.
	OutputFile string `json:"output_file"`
}
