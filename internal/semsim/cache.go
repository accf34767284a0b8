package semsim

import (
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// ScoreCache stores term-pair similarity scores keyed by an unordered pair
// of term indices. Implementations must be safe for concurrent use.
type ScoreCache interface {
	// GetOrCompute returns the cached score for (a, b), calling compute on
	// a miss. Callers pass a <= b.
	GetOrCompute(a, b int, compute func() float64) float64
	// Stats returns the number of cache hits and misses so far.
	Stats() (hits, misses int64)
}

// syncCache is an append-only sync.Map with singleflight so that concurrent
// misses on the same pair compute the score once.
type syncCache struct {
	scores sync.Map // uint64 -> float64
	group  singleflight.Group
	hits   atomic.Int64
	misses atomic.Int64
}

// NewScoreCache returns the default concurrent score cache.
func NewScoreCache() ScoreCache {
	return &syncCache{}
}

func pairKey(a, b int) uint64 {
	return uint64(uint32(a))<<32 | uint64(uint32(b))
}

func (c *syncCache) GetOrCompute(a, b int, compute func() float64) float64 {
	key := pairKey(a, b)
	if v, ok := c.scores.Load(key); ok {
		c.hits.Add(1)
		return v.(float64)
	}
	c.misses.Add(1)

	v, _, _ := c.group.Do(strconv.FormatUint(key, 36), func() (any, error) {
		if v, ok := c.scores.Load(key); ok {
			return v, nil
		}
		s := compute()
		c.scores.Store(key, s)
		return s, nil
	})
	return v.(float64)
}

func (c *syncCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// noCache computes every score. Used to check cached results.
type noCache struct {
	misses atomic.Int64
}

// NoCache returns a ScoreCache that never stores anything.
func NoCache() ScoreCache {
	return &noCache{}
}

func (c *noCache) GetOrCompute(_, _ int, compute func() float64) float64 {
	c.misses.Add(1)
	return compute()
}

func (c *noCache) Stats() (hits, misses int64) {
	return 0, c.misses.Load()
}
