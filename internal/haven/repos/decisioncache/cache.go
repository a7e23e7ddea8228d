// Package decisioncache provides an LRU cache of match results keyed by
// normalized host. One cache serves one snapshot: the gate purges it on
// every snapshot swap so cached decisions never outlive the data they
// were computed from.
package decisioncache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/havengate/havengate/internal/haven/domain"
	"github.com/havengate/havengate/internal/haven/services/gate"
)

// cachedResult is one stored decision plus the epoch of the index that
// computed it. An entry written by a stale in-flight Evaluate after a
// purge carries the old epoch and reads as a miss.
type cachedResult struct {
	epoch  uint64
	result domain.MatchResult
}

// resultCache is an LRU-backed implementation of gate.DecisionCache.
// It tracks basic metrics: hits, misses, and evictions.
type resultCache struct {
	lru       *lru.Cache[string, cachedResult]
	hits      uint64
	misses    uint64
	evictions uint64
}

// disabledCache is a no-op DecisionCache used when size <= 0.
type disabledCache struct{}

// New creates a DecisionCache with the given capacity. If size <= 0, a
// disabled no-op cache is returned that always misses.
func New(size int) (gate.DecisionCache, error) {
	if size <= 0 {
		return &disabledCache{}, nil
	}

	var rc resultCache
	// NewWithEvict observes evictions, including Purge-induced ones.
	cache, err := lru.NewWithEvict(size, func(_ string, _ cachedResult) {
		atomic.AddUint64(&rc.evictions, 1)
	})
	if err != nil {
		return nil, err
	}
	rc.lru = cache
	return &rc, nil
}

// Get looks up a result by host, counting hits and misses. An entry from
// a different epoch is a miss: it was computed against another snapshot.
func (c *resultCache) Get(host string, epoch uint64) (domain.MatchResult, bool) {
	if val, ok := c.lru.Get(host); ok && val.epoch == epoch {
		atomic.AddUint64(&c.hits, 1)
		return val.result, true
	}
	atomic.AddUint64(&c.misses, 1)
	return domain.MatchResult{}, false
}

// Put stores a result by host, tagged with its epoch.
func (c *resultCache) Put(host string, epoch uint64, r domain.MatchResult) {
	c.lru.Add(host, cachedResult{epoch: epoch, result: r})
}

// Len returns the number of entries in the cache.
func (c *resultCache) Len() int { return c.lru.Len() }

// Purge clears all entries.
func (c *resultCache) Purge() { c.lru.Purge() }

// Stats returns cumulative hit/miss/eviction counters.
func (c *resultCache) Stats() (hits, misses, evictions uint64) {
	return atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.misses), atomic.LoadUint64(&c.evictions)
}

func (disabledCache) Get(string, uint64) (domain.MatchResult, bool) {
	return domain.MatchResult{}, false
}

func (disabledCache) Put(string, uint64, domain.MatchResult) {}

func (disabledCache) Len() int { return 0 }

func (disabledCache) Purge() {}

func (disabledCache) Stats() (uint64, uint64, uint64) { return 0, 0, 0 }

var _ gate.DecisionCache = (*resultCache)(nil)
var _ gate.DecisionCache = (*disabledCache)(nil)
