// Package pacing spaces page visits out the way a person browsing would,
// and backs off further after failures.
package pacing

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config holds the delay ranges. Backoff is deliberately wider than the
// inter-page range: a failed page gets more distance than a routine click.
type Config struct {
	DelayMin   time.Duration // lower bound between consecutive page visits
	DelayMax   time.Duration // upper bound between consecutive page visits
	BackoffMin time.Duration // lower bound between retry attempts
	BackoffMax time.Duration // upper bound between retry attempts
}

// DefaultConfig mirrors the pacing the crawler has always shipped with.
func DefaultConfig() Config {
	return Config{
		DelayMin:   2 * time.Second,
		DelayMax:   5 * time.Second,
		BackoffMin: 5 * time.Second,
		BackoffMax: 10 * time.Second,
	}
}

// Pacer issues randomized waits between visits. A token-bucket limiter sits
// above the jittered sleeps as a hard ceiling, so no configuration mistake
// can push the crawl above one request per DelayMin. Per-domain last-request
// timestamps are explicit state here rather than ambient globals.
type Pacer struct {
	cfg     Config
	rng     *rand.Rand
	limiter *rate.Limiter

	mu          sync.Mutex
	lastRequest map[string]time.Time

	// sleep is swappable so tests do not wait out real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a pacer driven by the given random source.
func New(cfg Config, rng *rand.Rand) *Pacer {
	ceiling := rate.Inf
	if cfg.DelayMin > 0 {
		ceiling = rate.Every(cfg.DelayMin)
	}

	return &Pacer{
		cfg:         cfg,
		rng:         rng,
		limiter:     rate.NewLimiter(ceiling, 1),
		lastRequest: make(map[string]time.Time),
		sleep:       sleepCtx,
	}
}

// SetSleep overrides the sleep implementation; tests use this.
func (p *Pacer) SetSleep(fn func(ctx context.Context, d time.Duration) error) {
	p.sleep = fn
}

// WaitBetweenPages blocks for a random interval in [DelayMin, DelayMax],
// then takes a limiter token. Applied between any two consecutive visits
// regardless of outcome.
func (p *Pacer) WaitBetweenPages(ctx context.Context, domain string) error {
	if err := p.sleep(ctx, p.jitter(p.cfg.DelayMin, p.cfg.DelayMax)); err != nil {
		return err
	}

	p.mu.Lock()
	p.lastRequest[domain] = time.Now()
	p.mu.Unlock()

	return p.limiter.Wait(ctx)
}

// WaitBackoff blocks for a random interval in [BackoffMin, BackoffMax]
// before the next retry attempt.
func (p *Pacer) WaitBackoff(ctx context.Context) error {
	return p.sleep(ctx, p.jitter(p.cfg.BackoffMin, p.cfg.BackoffMax))
}

// LastRequest returns when the domain was last paced, and whether it has
// been at all.
func (p *Pacer) LastRequest(domain string) (time.Time, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.lastRequest[domain]
	return t, ok
}

// jitter draws uniformly from [min, max]. A degenerate range collapses to
// its lower bound.
func (p *Pacer) jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(p.rng.Int63n(int64(max-min)))
}

// sleepCtx sleeps for d or until the context is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
