// Package metrics collects per-session crawl statistics.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector aggregates counters for a single crawl session. All methods
// are safe for concurrent use.
type Collector struct {
	pagesVisited   atomic.Int64
	pagesFailed    atomic.Int64
	urlsDiscovered atomic.Int64
	retriesTotal   atomic.Int64

	visitTimeSum atomic.Int64
	visitTimeNum atomic.Int64

	errorMu     sync.RWMutex
	errorCounts map[string]*atomic.Int64

	startTime time.Time
}

// New creates a collector with the session clock started.
func New() *Collector {
	return &Collector{
		errorCounts: make(map[string]*atomic.Int64),
		startTime:   time.Now(),
	}
}

// RecordVisit records a successfully visited page and its duration.
func (c *Collector) RecordVisit(d time.Duration) {
	c.pagesVisited.Add(1)
	c.visitTimeSum.Add(d.Milliseconds())
	c.visitTimeNum.Add(1)
}

// RecordFailure records a page given up on after exhausting retries.
func (c *Collector) RecordFailure(errorType string) {
	c.pagesFailed.Add(1)

	c.errorMu.Lock()
	if c.errorCounts[errorType] == nil {
		c.errorCounts[errorType] = &atomic.Int64{}
	}
	c.errorCounts[errorType].Add(1)
	c.errorMu.Unlock()
}

// RecordDiscovered adds n newly discovered URLs.
func (c *Collector) RecordDiscovered(n int) {
	c.urlsDiscovered.Add(int64(n))
}

// RecordRetry records a retried visit attempt.
func (c *Collector) RecordRetry() {
	c.retriesTotal.Add(1)
}

// AverageVisitTime returns the mean duration of successful visits.
func (c *Collector) AverageVisitTime() time.Duration {
	num := c.visitTimeNum.Load()
	if num == 0 {
		return 0
	}
	return time.Duration(c.visitTimeSum.Load()/num) * time.Millisecond
}

// Snapshot returns a point-in-time view of the session.
func (c *Collector) Snapshot() *Snapshot {
	s := &Snapshot{
		Timestamp:        time.Now(),
		Uptime:           time.Since(c.startTime),
		PagesVisited:     c.pagesVisited.Load(),
		PagesFailed:      c.pagesFailed.Load(),
		URLsDiscovered:   c.urlsDiscovered.Load(),
		RetriesTotal:     c.retriesTotal.Load(),
		AverageVisitTime: c.AverageVisitTime(),
		ErrorCounts:      make(map[string]int64),
	}

	c.errorMu.RLock()
	for k, v := range c.errorCounts {
		s.ErrorCounts[k] = v.Load()
	}
	c.errorMu.RUnlock()

	return s
}

// Snapshot is a point-in-time view of session counters.
type Snapshot struct {
	Timestamp        time.Time        `json:"timestamp"`
	Uptime           time.Duration    `json:"uptime"`
	PagesVisited     int64            `json:"pages_visited"`
	PagesFailed      int64            `json:"pages_failed"`
	URLsDiscovered   int64            `json:"urls_discovered"`
	RetriesTotal     int64            `json:"retries_total"`
	AverageVisitTime time.Duration    `json:"average_visit_time"`
	ErrorCounts      map[string]int64 `json:"error_counts"`
}

// FailureRate returns failed pages over all attempted pages.
func (s *Snapshot) FailureRate() float64 {
	total := s.PagesVisited + s.PagesFailed
	if total == 0 {
		return 0
	}
	return float64(s.PagesFailed) / float64(total)
}

// Summary returns fields suitable for structured logging.
func (s *Snapshot) Summary() map[string]interface{} {
	return map[string]interface{}{
		"uptime":            s.Uptime.String(),
		"pages_visited":     s.PagesVisited,
		"pages_failed":      s.PagesFailed,
		"urls_discovered":   s.URLsDiscovered,
		"retries_total":     s.RetriesTotal,
		"failure_rate":      s.FailureRate(),
		"avg_visit_time_ms": s.AverageVisitTime.Milliseconds(),
	}
}
