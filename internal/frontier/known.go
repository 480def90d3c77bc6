package frontier

import (
	"sort"

	"github.com/bits-and-blooms/bloom/v3"
)

// KnownSet tracks every canonical URL ever discovered. A Bloom filter fronts
// the exact set so the common "seen before" answer costs no map lookup.
type KnownSet struct {
	filter *bloom.BloomFilter
	exact  map[string]struct{}
}

// NewKnownSet creates a known-links set sized for the expected crawl.
func NewKnownSet(estimatedItems int) *KnownSet {
	if estimatedItems < 1000 {
		estimatedItems = 1000
	}

	return &KnownSet{
		filter: bloom.NewWithEstimates(uint(estimatedItems), 0.001),
		exact:  make(map[string]struct{}),
	}
}

// Add inserts a URL and reports whether it was new.
func (k *KnownSet) Add(url string) bool {
	if _, exists := k.exact[url]; exists {
		return false
	}
	k.filter.AddString(url)
	k.exact[url] = struct{}{}
	return true
}

// Has checks membership. The Bloom filter screens out definite misses; the
// exact map settles potential false positives.
func (k *KnownSet) Has(url string) bool {
	if !k.filter.TestString(url) {
		return false
	}
	_, exists := k.exact[url]
	return exists
}

// Count returns the number of unique URLs.
func (k *KnownSet) Count() int {
	return len(k.exact)
}

// Sorted returns all URLs in lexical order, ready for the checkpoint file.
func (k *KnownSet) Sorted() []string {
	urls := make([]string, 0, len(k.exact))
	for url := range k.exact {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	return urls
}
