package crawler

import (
	"context"
	"errors"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/urlharvest/urlharvest/internal/checkpoint"
	"github.com/urlharvest/urlharvest/internal/logger"
)

// fakeVisitor serves canned links per URL and can fail the first N
// attempts against a URL.
type fakeVisitor struct {
	pages    map[string][]string
	failures map[string]int
	calls    map[string]int
	order    []string
	onVisit  func(total int)
	closed   bool
}

func newFakeVisitor(pages map[string][]string) *fakeVisitor {
	return &fakeVisitor{
		pages:    pages,
		failures: make(map[string]int),
		calls:    make(map[string]int),
	}
}

func (v *fakeVisitor) Visit(_ context.Context, url string) ([]string, error) {
	v.calls[url]++
	v.order = append(v.order, url)
	if v.onVisit != nil {
		v.onVisit(len(v.order))
	}
	if v.calls[url] <= v.failures[url] {
		return nil, errors.New("net::ERR_CONNECTION_RESET")
	}
	return v.pages[url], nil
}

func (v *fakeVisitor) Close() error {
	v.closed = true
	return nil
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Site = "example.com"
	cfg.StartURL = "https://example.com"
	cfg.OutputDir = t.TempDir()
	cfg.OutputFile = "urls.json"
	cfg.DelayMin = 0
	cfg.DelayMax = 0
	cfg.BackoffMin = 0
	cfg.BackoffMax = 0
	cfg.Timeout = time.Second
	return cfg
}

func newTestCrawler(t *testing.T, cfg *Config, v Visitor) *Crawler {
	t.Helper()
	c, err := New(
		WithConfig(cfg),
		WithVisitor(v),
		WithRand(rand.New(rand.NewSource(42))),
		WithLogger(logger.Nop()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestCrawler_BoundedPages(t *testing.T) {
	// Every page links to the same five articles.
	hub := []string{
		"https://example.com/articles/1",
		"https://example.com/articles/2",
		"https://example.com/articles/3",
		"https://example.com/articles/4",
		"https://example.com/articles/5",
	}
	pages := map[string][]string{"https://example.com": hub}
	for _, u := range hub {
		pages[u] = hub
	}

	cfg := testConfig(t)
	cfg.MaxPages = 3
	v := newFakeVisitor(pages)

	result, err := newTestCrawler(t, cfg, v).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.PagesVisited != 3 {
		t.Errorf("PagesVisited = %d, want 3", result.PagesVisited)
	}
	if result.URLsCount < 5 {
		t.Errorf("URLsCount = %d, want >= 5", result.URLsCount)
	}
	if !v.closed {
		t.Error("visitor was not closed")
	}

	store := checkpoint.NewFileStore(cfg.OutputDir, cfg.OutputFile)
	urls, err := store.Load()
	if err != nil {
		t.Fatalf("checkpoint load: %v", err)
	}
	if len(urls) != result.URLsCount {
		t.Errorf("checkpoint has %d URLs, result says %d", len(urls), result.URLsCount)
	}
}

func TestCrawler_ResumeSeedsFullKnownSet(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxPages = 50

	persisted := []string{
		"https://example.com/a",
		"https://example.com/b",
		"https://example.com/c",
		"https://example.com/d",
	}
	store := checkpoint.NewFileStore(cfg.OutputDir, cfg.OutputFile)
	if _, err := store.Save(persisted); err != nil {
		t.Fatalf("prior checkpoint save: %v", err)
	}

	v := newFakeVisitor(map[string][]string{})
	result, err := newTestCrawler(t, cfg, v).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.PagesVisited != len(persisted) {
		t.Errorf("PagesVisited = %d, want %d", result.PagesVisited, len(persisted))
	}
	for _, u := range persisted {
		if v.calls[u] != 1 {
			t.Errorf("persisted URL %s visited %d times, want 1", u, v.calls[u])
		}
	}
	if v.calls[cfg.StartURL] != 0 {
		t.Error("start URL should not be visited on resume")
	}
	if result.URLsCount != len(persisted) {
		t.Errorf("URLsCount = %d, want %d", result.URLsCount, len(persisted))
	}
}

func TestCrawler_RetryThenSuccess(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxPages = 1
	cfg.Retries = 3

	v := newFakeVisitor(map[string][]string{
		"https://example.com": {"https://example.com/only"},
	})
	v.failures["https://example.com"] = 2

	c := newTestCrawler(t, cfg, v)
	result, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if v.calls["https://example.com"] != 3 {
		t.Errorf("attempts = %d, want 3", v.calls["https://example.com"])
	}
	if result.FailedURLs != 0 {
		t.Errorf("FailedURLs = %d, want 0", result.FailedURLs)
	}
	if result.URLsCount != 1 {
		t.Errorf("URLsCount = %d, want 1", result.URLsCount)
	}

	stats := c.Stats()
	if stats.RetriesTotal != 2 {
		t.Errorf("RetriesTotal = %d, want 2", stats.RetriesTotal)
	}
	if stats.PagesVisited != 1 {
		t.Errorf("stats PagesVisited = %d, want 1", stats.PagesVisited)
	}
	if stats.PagesFailed != 0 {
		t.Errorf("stats PagesFailed = %d, want 0", stats.PagesFailed)
	}
}

func TestCrawler_RetryExhausted(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxPages = 5
	cfg.Retries = 3

	v := newFakeVisitor(map[string][]string{})
	v.failures["https://example.com"] = 3

	c := newTestCrawler(t, cfg, v)
	result, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if v.calls["https://example.com"] != 3 {
		t.Errorf("attempts = %d, want 3", v.calls["https://example.com"])
	}
	if result.FailedURLs != 1 {
		t.Errorf("FailedURLs = %d, want 1", result.FailedURLs)
	}
	// The failed URL still consumed a page slot.
	if result.PagesVisited != 1 {
		t.Errorf("PagesVisited = %d, want 1", result.PagesVisited)
	}
	if counts := c.Stats().ErrorCounts; counts["network"] != 1 {
		t.Errorf("ErrorCounts[network] = %d, want 1", counts["network"])
	}
}

func TestCrawler_AbortStillCheckpoints(t *testing.T) {
	hub := make([]string, 0, 20)
	pages := map[string][]string{}
	for i := 0; i < 20; i++ {
		hub = append(hub, "https://example.com/page/"+string(rune('a'+i)))
	}
	pages["https://example.com"] = hub
	for _, u := range hub {
		pages[u] = hub
	}

	cfg := testConfig(t)
	cfg.MaxPages = 100

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	v := newFakeVisitor(pages)
	v.onVisit = func(total int) {
		if total == 6 {
			cancel()
		}
	}

	result, err := newTestCrawler(t, cfg, v).Run(ctx)
	if err == nil {
		t.Fatal("Run() expected an error after cancellation")
	}
	if result == nil {
		t.Fatal("Run() must return a result even on abort")
	}
	if result.PagesVisited != 6 {
		t.Errorf("PagesVisited = %d, want 6", result.PagesVisited)
	}

	store := checkpoint.NewFileStore(cfg.OutputDir, cfg.OutputFile)
	urls, loadErr := store.Load()
	if loadErr != nil {
		t.Fatalf("checkpoint load after abort: %v", loadErr)
	}
	if len(urls) < 20 {
		t.Errorf("checkpoint has %d URLs after abort, want >= 20", len(urls))
	}
}

func TestCrawler_ScopeFiltering(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxPages = 1

	v := newFakeVisitor(map[string][]string{
		"https://example.com": {
			"https://example.com/keep",
			"https://other.com/drop",
			"https://example.com/files/report.pdf",
			"/relative/kept",
		},
	})

	result, err := newTestCrawler(t, cfg, v).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	store := checkpoint.NewFileStore(cfg.OutputDir, cfg.OutputFile)
	urls, _ := store.Load()

	want := map[string]bool{
		"https://example.com/keep":          true,
		"https://example.com/relative/kept": true,
	}
	if len(urls) != len(want) {
		t.Fatalf("checkpoint URLs = %v, want %d in-scope entries", urls, len(want))
	}
	for _, u := range urls {
		if !want[u] {
			t.Errorf("out-of-scope URL persisted: %s", u)
		}
	}
	if result.URLsCount != len(want) {
		t.Errorf("URLsCount = %d, want %d", result.URLsCount, len(want))
	}
}

func TestCrawler_JournalRecordsOutcomes(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxPages = 2
	cfg.Retries = 2
	cfg.JournalFile = filepath.Join(t.TempDir(), "visits.db")

	v := newFakeVisitor(map[string][]string{
		"https://example.com": {"https://example.com/broken"},
	})
	v.failures["https://example.com/broken"] = 2

	if _, err := newTestCrawler(t, cfg, v).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	j, err := checkpoint.OpenJournal(cfg.JournalFile)
	if err != nil {
		t.Fatalf("reopen journal: %v", err)
	}
	defer j.Close()

	visited, failed, err := j.Counts()
	if err != nil {
		t.Fatalf("journal counts: %v", err)
	}
	if visited != 1 || failed != 1 {
		t.Errorf("journal counts = (%d visited, %d failed), want (1, 1)", visited, failed)
	}
}

func TestCrawler_DeterministicUnderSeed(t *testing.T) {
	hub := []string{
		"https://example.com/x",
		"https://example.com/y",
		"https://example.com/z",
	}
	pages := map[string][]string{"https://example.com": hub}
	for _, u := range hub {
		pages[u] = hub
	}

	runOnce := func() []string {
		cfg := testConfig(t)
		cfg.MaxPages = 4
		v := newFakeVisitor(pages)
		if _, err := newTestCrawler(t, cfg, v).Run(context.Background()); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		return v.order
	}

	first := runOnce()
	second := runOnce()

	if len(first) != len(second) {
		t.Fatalf("visit counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("visit order diverges at %d: %s vs %s", i, first[i], second[i])
		}
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(WithLogger(logger.Nop()))
	if err == nil {
		t.Error("New() without site/start URL should fail validation")
	}
}
