// Package crawler discovers in-scope URLs on a single site by emulating a
// human visitor, and persists the growing URL set as a resumable JSON
// checkpoint.
package crawler

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/urlharvest/urlharvest/internal/browser"
	"github.com/urlharvest/urlharvest/internal/cerrors"
	"github.com/urlharvest/urlharvest/internal/checkpoint"
	"github.com/urlharvest/urlharvest/internal/frontier"
	"github.com/urlharvest/urlharvest/internal/logger"
	"github.com/urlharvest/urlharvest/internal/metrics"
	"github.com/urlharvest/urlharvest/internal/pacing"
	"github.com/urlharvest/urlharvest/internal/scope"
	"github.com/urlharvest/urlharvest/internal/stealth"
)

// Checkpoint cadence in successful visits.
const saveEvery = 5

// Crawler is the sequential crawl orchestrator. One URL is in flight at
// a time; randomness in ordering and pacing stands in for concurrency.
type Crawler struct {
	config   *Config
	logger   *logger.Logger
	rng      *rand.Rand
	visitor  Visitor
	store    *checkpoint.FileStore
	journal  *checkpoint.Journal
	pacer    *pacing.Pacer
	filter   *scope.Filter
	frontier *frontier.Frontier
	stats    *metrics.Collector
}

// New creates a crawler with the given options.
func New(opts ...Option) (*Crawler, error) {
	c := &Crawler{
		config: DefaultConfig(),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if err := c.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if c.logger == nil {
		logLevel := logger.InfoLevel
		if c.config.Debug {
			logLevel = logger.DebugLevel
		} else if !c.config.Verbose {
			logLevel = logger.WarnLevel
		}
		c.logger = logger.New(logger.Config{
			Level:     logLevel,
			Pretty:    true,
			Component: "crawler",
		})
	}

	if c.rng == nil {
		seed := c.config.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		c.rng = rand.New(rand.NewSource(seed))
	}

	if c.store == nil {
		c.store = checkpoint.NewFileStore(c.config.OutputDir, c.config.OutputFile)
	}

	c.stats = metrics.New()
	c.filter = scope.NewFilter(c.config.Site)
	c.pacer = pacing.New(pacing.Config{
		DelayMin:   c.config.DelayMin,
		DelayMax:   c.config.DelayMax,
		BackoffMin: c.config.BackoffMin,
		BackoffMax: c.config.BackoffMax,
	}, c.rng)

	return c, nil
}

// Run executes one crawl session. The returned Result is always
// non-nil once the session started; a non-nil error reports what cut
// the loop short. The final checkpoint is written either way.
func (c *Crawler) Run(ctx context.Context) (*Result, error) {
	known, err := c.store.Load()
	if err != nil {
		c.logger.WithError(err).Error("Failed to load existing URLs, starting fresh")
		known = nil
	}
	c.logger.Infof("Loaded %d already discovered URLs", len(known))

	c.frontier = frontier.New(c.rng, len(known)+1000)
	c.frontier.Seed(known, c.config.StartURL)
	if len(known) > 0 {
		c.logger.Infof("Resuming crawl with %d URLs to explore", c.frontier.PendingLen())
	} else {
		c.logger.Infof("Starting new crawl from %s", c.config.StartURL)
	}

	if c.config.JournalFile != "" {
		c.journal, err = checkpoint.OpenJournal(c.config.JournalFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open visit journal: %w", err)
		}
		defer c.journal.Close()
	}

	if c.visitor == nil {
		profile := stealth.NewProfile(c.rng)
		c.logger.WithField("user_agent", profile.UserAgent).Debug("Stealth profile selected")

		session, err := browser.New(browser.Config{
			Headless: c.config.Stealth,
			Timeout:  c.config.Timeout,
			IdleWait: c.config.Browser.IdleWait,
		}, profile, c.logger, c.rng)
		if err != nil {
			return nil, fmt.Errorf("failed to start browser session: %w", err)
		}
		c.visitor = session
	}

	pagesVisited := 0
	successes := 0
	var loopErr error

	for pagesVisited < c.config.MaxPages {
		url, ok := c.frontier.Next()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			loopErr = err
			break
		}

		pagesVisited++
		c.logger.Infof("Visiting page %d/%d: %s", pagesVisited, c.config.MaxPages, url)

		visitStart := time.Now()
		links, attempts, success := c.visitWithRetries(ctx, url)

		normalized := c.filter.NormalizeAll(links, url)
		discovered := c.frontier.Record(url, normalized, success)
		c.recordJournal(url, attempts, success)

		if success {
			successes++
			c.stats.RecordVisit(time.Since(visitStart))
			c.stats.RecordDiscovered(discovered)
			c.logger.Infof("  %d new URLs discovered on this page", discovered)
			if successes%saveEvery == 0 {
				c.saveCheckpoint()
			}
		} else {
			c.logger.WithURL(url).Error("All attempts failed")
		}

		if err := c.pacer.WaitBetweenPages(ctx, c.config.Site); err != nil {
			loopErr = err
			break
		}
	}

	if closeErr := c.visitor.Close(); closeErr != nil {
		c.logger.WithError(closeErr).Warn("Browser session close failed")
	}

	summary := c.stats.Snapshot().Summary()
	summary["total_urls"] = c.frontier.KnownCount()
	c.logger.StatsEvent(summary)

	outputFile := c.saveCheckpoint()

	result := &Result{
		URLsCount:    c.frontier.KnownCount(),
		PagesVisited: pagesVisited,
		FailedURLs:   c.frontier.FailedCount(),
		OutputFile:   outputFile,
	}
	return result, loopErr
}

// visitWithRetries runs the attempt loop for one URL. The first
// successful attempt wins; between failed attempts the pacer backs off
// over a wider interval than normal page delays.
func (c *Crawler) visitWithRetries(ctx context.Context, url string) (links []string, attempts int, success bool) {
	for attempt := 1; attempt <= c.config.Retries; attempt++ {
		if attempt > 1 {
			c.stats.RecordRetry()
			c.logger.VisitEvent(logger.InfoLevel, url, attempt).
				Msgf("Attempt %d/%d", attempt, c.config.Retries)
		}

		links, err := c.visitor.Visit(ctx, url)
		if err == nil {
			return links, attempt, true
		}

		cerr := cerrors.Categorize(err, url)
		c.logger.ErrorEvent(cerr, url, cerr.Operation)

		if !cerrors.IsRetryable(cerr) || attempt == c.config.Retries {
			c.stats.RecordFailure(cerr.Type.String())
			return nil, attempt, false
		}

		if err := c.pacer.WaitBackoff(ctx); err != nil {
			c.stats.RecordFailure(cerr.Type.String())
			return nil, attempt, false
		}
	}
	return nil, c.config.Retries, false
}

// saveCheckpoint writes the full known set; failures are logged, never
// fatal to the session.
func (c *Crawler) saveCheckpoint() string {
	path, err := c.store.Save(c.frontier.KnownSorted())
	if err != nil {
		c.logger.WithError(err).Error("Failed to save URLs")
		return ""
	}
	c.logger.CheckpointEvent(path, c.frontier.KnownCount())
	return path
}

func (c *Crawler) recordJournal(url string, attempts int, success bool) {
	if c.journal == nil {
		return
	}
	outcome := "visited"
	if !success {
		outcome = "failed"
	}
	err := c.journal.Record(checkpoint.VisitRecord{
		URL:      url,
		Outcome:  outcome,
		Attempts: attempts,
		At:       time.Now(),
	})
	if err != nil {
		c.logger.WithError(err).Warn("Failed to record visit in journal")
	}
}

// Stats returns a snapshot of the session counters.
func (c *Crawler) Stats() *metrics.Snapshot {
	return c.stats.Snapshot()
}
