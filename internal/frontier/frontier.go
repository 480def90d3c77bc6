// Package frontier owns the crawl's visit state: the pending set, the
// session-scoped visited and failed sets, and the persisted known-links
// superset.
package frontier

import (
	"math/rand"
	"sort"
)

// Frontier manages URL selection and bookkeeping for one crawl session.
// It is not safe for concurrent use; the crawl loop is strictly sequential.
type Frontier struct {
	rng *rand.Rand

	// pending holds frontier members in a slice for O(1) uniform-random
	// removal, with an index map for membership checks.
	pending []string
	index   map[string]int

	visited map[string]struct{}
	failed  map[string]struct{}
	known   *KnownSet
}

// New creates a frontier driven by the given random source. Selection order
// is deterministic for a seeded source, which is what the tests rely on.
func New(rng *rand.Rand, estimatedURLs int) *Frontier {
	return &Frontier{
		rng:     rng,
		index:   make(map[string]int),
		visited: make(map[string]struct{}),
		failed:  make(map[string]struct{}),
		known:   NewKnownSet(estimatedURLs),
	}
}

// Seed initializes the frontier. With a prior checkpoint the entire known
// set is queued again; visited state is session-scoped, so resuming means
// re-walking everything previously discovered. A fresh crawl starts from
// startURL alone.
func (f *Frontier) Seed(known []string, startURL string) {
	for _, url := range known {
		f.known.Add(url)
	}

	if len(known) > 0 {
		for _, url := range known {
			f.enqueue(url)
		}
		return
	}

	f.enqueue(startURL)
}

// Next removes and returns one pending URL chosen uniformly at random.
// Sequential crawl order is detectable; random order is not.
func (f *Frontier) Next() (string, bool) {
	n := len(f.pending)
	if n == 0 {
		return "", false
	}

	i := f.rng.Intn(n)
	url := f.pending[i]

	last := f.pending[n-1]
	f.pending[i] = last
	f.index[last] = i
	f.pending = f.pending[:n-1]
	delete(f.index, url)

	return url, true
}

// Record books the outcome of a visit. On success the already-normalized
// links join the known set and, unless previously visited, failed, or
// pending, the frontier. On failure the URL lands in the failed set; its
// discovered links (if any) are discarded.
func (f *Frontier) Record(url string, links []string, success bool) int {
	if !success {
		f.failed[url] = struct{}{}
		return 0
	}

	f.visited[url] = struct{}{}

	discovered := 0
	for _, link := range links {
		if f.known.Add(link) {
			discovered++
		}
		if _, seen := f.visited[link]; seen {
			continue
		}
		if _, bad := f.failed[link]; bad {
			continue
		}
		f.enqueue(link)
	}

	return discovered
}

// enqueue adds a URL to the pending set unless it is already there.
func (f *Frontier) enqueue(url string) {
	if _, exists := f.index[url]; exists {
		return
	}
	f.index[url] = len(f.pending)
	f.pending = append(f.pending, url)
}

// PendingLen returns the number of URLs awaiting a visit.
func (f *Frontier) PendingLen() int {
	return len(f.pending)
}

// VisitedCount returns the number of successful visits this session.
func (f *Frontier) VisitedCount() int {
	return len(f.visited)
}

// FailedCount returns the number of URLs that exhausted their retries.
func (f *Frontier) FailedCount() int {
	return len(f.failed)
}

// FailedURLs returns the session-failed URLs in lexical order.
func (f *Frontier) FailedURLs() []string {
	urls := make([]string, 0, len(f.failed))
	for url := range f.failed {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	return urls
}

// KnownCount returns the size of the known-links superset.
func (f *Frontier) KnownCount() int {
	return f.known.Count()
}

// KnownSorted returns every discovered URL in lexical order.
func (f *Frontier) KnownSorted() []string {
	return f.known.Sorted()
}

// inPending reports frontier membership; used by invariant tests.
func (f *Frontier) inPending(url string) bool {
	_, exists := f.index[url]
	return exists
}
