package crawler

import (
	"math/rand"
	"time"

	"github.com/urlharvest/urlharvest/internal/checkpoint"
	"github.com/urlharvest/urlharvest/internal/logger"
)

// Option is a functional option for configuring the Crawler.
type Option func(*Crawler) error

// WithConfig sets the entire configuration.
func WithConfig(config *Config) Option {
	return func(c *Crawler) error {
		c.config = config
		return nil
	}
}

// WithSite sets the site host the crawl is scoped to.
func WithSite(site string) Option {
	return func(c *Crawler) error {
		c.config.Site = site
		return nil
	}
}

// WithStartURL sets the seed URL for a fresh crawl.
func WithStartURL(url string) Option {
	return func(c *Crawler) error {
		c.config.StartURL = url
		return nil
	}
}

// WithOutput sets the checkpoint directory and file name.
func WithOutput(dir, file string) Option {
	return func(c *Crawler) error {
		c.config.OutputDir = dir
		c.config.OutputFile = file
		return nil
	}
}

// WithMaxPages bounds the pages processed per session.
func WithMaxPages(n int) Option {
	return func(c *Crawler) error {
		if n < 1 {
			n = 1
		}
		c.config.MaxPages = n
		return nil
	}
}

// WithDelayRange sets the pacing interval between page visits.
func WithDelayRange(min, max time.Duration) Option {
	return func(c *Crawler) error {
		c.config.DelayMin = min
		c.config.DelayMax = max
		return nil
	}
}

// WithTimeout sets the per-operation browser timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Crawler) error {
		c.config.Timeout = timeout
		return nil
	}
}

// WithRetries sets the number of attempts per URL.
func WithRetries(n int) Option {
	return func(c *Crawler) error {
		if n < 1 {
			n = 1
		}
		c.config.Retries = n
		return nil
	}
}

// WithStealth toggles headless stealth browsing.
func WithStealth(enabled bool) Option {
	return func(c *Crawler) error {
		c.config.Stealth = enabled
		return nil
	}
}

// WithJournal enables the visit journal at the given path.
func WithJournal(path string) Option {
	return func(c *Crawler) error {
		c.config.JournalFile = path
		return nil
	}
}

// WithVerbose enables/disables verbose logging.
func WithVerbose(verbose bool) Option {
	return func(c *Crawler) error {
		c.config.Verbose = verbose
		return nil
	}
}

// WithDebug enables/disables debug mode.
func WithDebug(debug bool) Option {
	return func(c *Crawler) error {
		c.config.Debug = debug
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Crawler) error {
		c.logger = l
		return nil
	}
}

// WithVisitor injects the page visitor, replacing the default
// browser session. Used by tests and embedders.
func WithVisitor(v Visitor) Option {
	return func(c *Crawler) error {
		c.visitor = v
		return nil
	}
}

// WithRand injects the randomness source for frontier selection,
// pacing jitter, and the stealth profile.
func WithRand(rng *rand.Rand) Option {
	return func(c *Crawler) error {
		c.rng = rng
		return nil
	}
}

// WithCheckpointStore injects the checkpoint store, replacing the one
// derived from OutputDir/OutputFile.
func WithCheckpointStore(store *checkpoint.FileStore) Option {
	return func(c *Crawler) error {
		c.store = store
		return nil
	}
}
