package search

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/adalundhe/autostat/core/config"
)

const (
	defaultNumCounters = 1e5
	defaultMaxCost     = 1e4
	defaultBufferItems = 64
	defaultTTL         = 30 * time.Minute

	keyPrefix = "score:"
)

// ScoreCache holds evaluation results across Evaluate calls, keyed by the
// canonical form of the spec. Each entry costs one unit.
type ScoreCache struct {
	cache  *ristretto.Cache
	ttl    time.Duration
	stats  *CacheStats
	mu     sync.RWMutex
	closed bool
}

// NewScoreCache creates a cache from the score_cache settings. Zero values
// fall back to defaults.
func NewScoreCache(cfg config.ScoreCacheSettings) (*ScoreCache, error) {
	cfg = applyCacheDefaults(cfg)

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: defaultBufferItems,
	})
	if err != nil {
		return nil, err
	}

	return &ScoreCache{
		cache: cache,
		ttl:   cfg.TTL,
		stats: &CacheStats{},
	}, nil
}

func applyCacheDefaults(cfg config.ScoreCacheSettings) config.ScoreCacheSettings {
	if cfg.NumCounters <= 0 {
		cfg.NumCounters = defaultNumCounters
	}
	if cfg.MaxCost <= 0 {
		cfg.MaxCost = defaultMaxCost
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	return cfg
}

// Key derives the cache key for a canonical spec string.
func Key(spec string) string {
	h := sha256.Sum256([]byte(spec))
	return keyPrefix + hex.EncodeToString(h[:16])
}

// Get returns a copy of the cached result for key.
func (c *ScoreCache) Get(key string) (Result, bool) {
	if c.isClosed() {
		return Result{}, false
	}

	value, found := c.cache.Get(key)
	if !found {
		c.stats.misses.Add(1)
		return Result{}, false
	}
	r, ok := value.(Result)
	if !ok {
		c.stats.misses.Add(1)
		return Result{}, false
	}

	c.stats.hits.Add(1)
	return r, true
}

// Set stores r under key with the default TTL. Stores are applied
// asynchronously; call Wait before relying on a subsequent Get.
func (c *ScoreCache) Set(key string, r Result) bool {
	if c.isClosed() {
		return false
	}
	stored := c.cache.SetWithTTL(key, r, 1, c.ttl)
	if stored {
		c.stats.sets.Add(1)
	}
	return stored
}

// Wait blocks until pending stores are applied.
func (c *ScoreCache) Wait() {
	if c.isClosed() {
		return
	}
	c.cache.Wait()
}

// Close releases the cache. Further calls are no-ops.
func (c *ScoreCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.cache.Close()
}

func (c *ScoreCache) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Stats returns a snapshot of the hit and miss counters.
func (c *ScoreCache) Stats() StatsSnapshot {
	return c.stats.snapshot()
}

// CacheStats counts cache traffic.
type CacheStats struct {
	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
}

// StatsSnapshot is a point-in-time copy of CacheStats.
type StatsSnapshot struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Sets    int64   `json:"sets"`
	HitRate float64 `json:"hit_rate"`
}

func (s *CacheStats) snapshot() StatsSnapshot {
	out := StatsSnapshot{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
		Sets:   s.sets.Load(),
	}
	if total := out.Hits + out.Misses; total > 0 {
		out.HitRate = float64(out.Hits) / float64(total)
	}
	return out
}
