package crawler

import (
	"math/rand"
	"testing"
	"time"

	"github.com/urlharvest/urlharvest/internal/logger"
)

func newOptionCrawler(t *testing.T, opts ...Option) *Crawler {
	t.Helper()
	base := []Option{
		WithSite("example.com"),
		WithStartURL("https://example.com"),
		WithLogger(logger.Nop()),
	}
	c, err := New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestWithSiteAndStartURL(t *testing.T) {
	c := newOptionCrawler(t)
	if c.config.Site != "example.com" {
		t.Errorf("Site = %s", c.config.Site)
	}
	if c.config.StartURL != "https://example.com" {
		t.Errorf("StartURL = %s", c.config.StartURL)
	}
}

func TestWithMaxPages_ClampsToOne(t *testing.T) {
	c := newOptionCrawler(t, WithMaxPages(-5))
	if c.config.MaxPages != 1 {
		t.Errorf("MaxPages = %d, want 1", c.config.MaxPages)
	}
}

func TestWithRetries_ClampsToOne(t *testing.T) {
	c := newOptionCrawler(t, WithRetries(0))
	if c.config.Retries != 1 {
		t.Errorf("Retries = %d, want 1", c.config.Retries)
	}
}

func TestWithDelayRange(t *testing.T) {
	c := newOptionCrawler(t, WithDelayRange(time.Second, 3*time.Second))
	if c.config.DelayMin != time.Second || c.config.DelayMax != 3*time.Second {
		t.Errorf("delay range = [%v, %v]", c.config.DelayMin, c.config.DelayMax)
	}
}

func TestWithOutput(t *testing.T) {
	c := newOptionCrawler(t, WithOutput("/tmp/out", "found.json"))
	if c.config.OutputDir != "/tmp/out" || c.config.OutputFile != "found.json" {
		t.Errorf("output = %s/%s", c.config.OutputDir, c.config.OutputFile)
	}
	if c.store.Path() != "/tmp/out/found.json" {
		t.Errorf("store path = %s", c.store.Path())
	}
}

func TestWithJournal(t *testing.T) {
	c := newOptionCrawler(t, WithJournal("/tmp/visits.db"))
	if c.config.JournalFile != "/tmp/visits.db" {
		t.Errorf("JournalFile = %s", c.config.JournalFile)
	}
}

func TestWithRand(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	c := newOptionCrawler(t, WithRand(rng))
	if c.rng != rng {
		t.Error("injected rand source was not kept")
	}
}

func TestWithStealth(t *testing.T) {
	c := newOptionCrawler(t, WithStealth(false))
	if c.config.Stealth {
		t.Error("Stealth should be disabled")
	}
}
