package staging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/VictoriaMetrics/metrics"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/matjam/slideframe/internal/types"
	"golang.org/x/sync/singleflight"
)

var ErrClosed = errors.New("staging: cache closed")

const maxStrays = 4

// Producer creates the artifact for a key on a cache miss.
type Producer func() (types.Artifact, error)

// Cache holds transformed artifacts under a byte budget.
//
// Entries are keyed by source path and modification time. When an admission
// would exceed the budget, half of the entries are evicted in insertion
// order; this is deliberately not LRU. An artifact that still doesn't fit is
// handed to the caller once and not retained.
//
// The byte counter is bookkeeping, not a filesystem query: it always equals
// the sum of the recorded entry sizes.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key]types.Artifact
	order   []Key
	current int64
	max     int64
	closed  bool

	// strays are artifacts served without being admitted, oldest first.
	strays []string

	group singleflight.Group

	metrics          *metrics.Set
	hits             *metrics.Counter
	misses           *metrics.Counter
	evictions        *metrics.Counter
	skipped          *metrics.Counter
	producerFailures *metrics.Counter
	stale            *metrics.Counter
}

func New(maxBytes int64) *Cache {
	if maxBytes < 0 {
		maxBytes = 0
	}

	c := &Cache{
		entries: make(map[Key]types.Artifact),
		max:     maxBytes,
		metrics: metrics.NewSet(),
	}

	c.hits = c.metrics.NewCounter("slideframe_cache_hits_total")
	c.misses = c.metrics.NewCounter("slideframe_cache_misses_total")
	c.evictions = c.metrics.NewCounter("slideframe_cache_evictions_total")
	c.skipped = c.metrics.NewCounter("slideframe_cache_skipped_admissions_total")
	c.producerFailures = c.metrics.NewCounter("slideframe_cache_producer_failures_total")
	c.stale = c.metrics.NewCounter("slideframe_cache_stale_entries_total")
	c.metrics.NewGauge("slideframe_cache_bytes", func() float64 {
		return float64(c.CurrentBytes())
	})
	c.metrics.NewGauge("slideframe_cache_entries", func() float64 {
		return float64(c.Len())
	})

	return c
}

func (c *Cache) lookup(key Key) (types.Artifact, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.entries[key]
	return a, ok
}

// lookupLive is lookup for entries whose file still exists. An entry whose
// file was removed outside the cache is dropped so the caller restages it.
func (c *Cache) lookupLive(key Key) (types.Artifact, bool) {
	a, ok := c.lookup(key)
	if !ok {
		return a, false
	}
	if _, err := os.Stat(a.Path); err == nil {
		return a, true
	}

	c.mu.Lock()
	if cur, ok := c.entries[key]; ok && cur == a {
		c.dropLocked(key, cur)
		c.stale.Inc()
	}
	c.mu.Unlock()

	log.Warn("Staged artifact disappeared, restaging", "key", key.String(), "path", a.Path)
	return types.Artifact{}, false
}

// GetOrCreate returns the artifact cached for key, invoking produce on a miss.
//
// Concurrent callers for the same key share a single producer invocation and
// its result. A producer error is returned as is and nothing is admitted.
func (c *Cache) GetOrCreate(key Key, produce Producer) (types.Artifact, error) {
	if a, ok := c.lookupLive(key); ok {
		c.hits.Inc()
		return a, nil
	}

	v, err, _ := c.group.Do(key.String(), func() (interface{}, error) {
		// Another flight may have admitted it since our lookup.
		if a, ok := c.lookupLive(key); ok {
			c.hits.Inc()
			return a, nil
		}
		if c.isClosed() {
			return types.Artifact{}, ErrClosed
		}

		c.misses.Inc()
		a, err := produce()
		if err != nil {
			c.producerFailures.Inc()
			return types.Artifact{}, err
		}

		if c.isClosed() {
			removeArtifact(a.Path)
			return types.Artifact{}, ErrClosed
		}

		if !c.Admit(key, a) && c.isClosed() {
			return types.Artifact{}, ErrClosed
		}
		return a, nil
	})
	if err != nil {
		return types.Artifact{}, err
	}
	return v.(types.Artifact), nil
}

// Admit records a under key if it fits in the budget, running one eviction
// pass first when it doesn't. It reports whether the artifact was retained.
func (c *Cache) Admit(key Key, a types.Artifact) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		removeArtifact(a.Path)
		return false
	}

	if old, ok := c.entries[key]; ok {
		c.dropLocked(key, old)
	}

	if c.max == 0 {
		c.skipped.Inc()
		c.addStrayLocked(a.Path)
		return false
	}

	if c.current+a.Size > c.max {
		c.evictPassLocked()
	}

	if c.current+a.Size > c.max {
		c.skipped.Inc()
		c.addStrayLocked(a.Path)
		log.Warn("Artifact does not fit in staging cache, serving uncached",
			"path", a.Path,
			"size", humanize.IBytes(uint64(a.Size)),
			"used", humanize.IBytes(uint64(c.current)),
			"max", humanize.IBytes(uint64(c.max)))
		return false
	}

	c.entries[key] = a
	c.order = append(c.order, key)
	c.current += a.Size
	c.removeStrayLocked(a.Path)

	log.Debug("Staged artifact", "key", key.String(), "size", humanize.IBytes(uint64(a.Size)), "used", humanize.IBytes(uint64(c.current)))
	return true
}

// EvictPass removes half of the entries, oldest admission first, and returns
// how many were removed.
func (c *Cache) EvictPass() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictPassLocked()
}

func (c *Cache) evictPassLocked() int {
	n := len(c.order) / 2
	if n == 0 && len(c.order) > 0 {
		n = 1
	}
	if n == 0 {
		return 0
	}

	victims := make([]Key, n)
	copy(victims, c.order[:n])
	for _, key := range victims {
		a := c.entries[key]
		if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
			log.Warn("Failed to remove staged artifact", "path", a.Path, "err", err)
		}
		c.dropLocked(key, a)
		c.evictions.Inc()
	}

	log.Info("Evicted staged artifacts", "count", n, "remaining", len(c.order), "used", humanize.IBytes(uint64(c.current)))
	return n
}

// dropLocked forgets key without touching its file.
func (c *Cache) dropLocked(key Key, a types.Artifact) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.current -= a.Size
}

// addStrayLocked remembers an unretained artifact, deleting the oldest ones
// beyond maxStrays. By then the viewer has long since loaded them.
func (c *Cache) addStrayLocked(path string) {
	c.removeStrayLocked(path)
	c.strays = append(c.strays, path)
	for len(c.strays) > maxStrays {
		removeArtifact(c.strays[0])
		c.strays = c.strays[1:]
	}
}

func (c *Cache) removeStrayLocked(path string) {
	for i, p := range c.strays {
		if p == path {
			c.strays = append(c.strays[:i], c.strays[i+1:]...)
			return
		}
	}
}

// Clear removes every entry and stray artifact. Files that are already gone
// are ignored.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

func (c *Cache) clearLocked() {
	removed := 0
	for _, key := range c.order {
		if removeArtifact(c.entries[key].Path) {
			removed++
		}
	}
	for _, path := range c.strays {
		removeArtifact(path)
	}

	c.entries = make(map[Key]types.Artifact)
	c.order = nil
	c.strays = nil
	c.current = 0

	log.Debug("Staging cache cleared", "removed", removed)
}

// Close clears the cache and rejects any further GetOrCreate calls with
// ErrClosed. A producer already running is allowed to finish; its artifact
// is discarded.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.clearLocked()
}

func (c *Cache) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Cache) Contains(key Key) bool {
	_, ok := c.lookup(key)
	return ok
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) CurrentBytes() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

func (c *Cache) Stats() types.CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return types.CacheStats{
		Enabled:          c.max > 0,
		Entries:          len(c.entries),
		CurrentBytes:     c.current,
		MaxBytes:         c.max,
		Hits:             c.hits.Get(),
		Misses:           c.misses.Get(),
		Evictions:        c.evictions.Get(),
		SkippedAdmission: c.skipped.Get(),
		ProducerFailures: c.producerFailures.Get(),
		StaleEntries:     c.stale.Get(),
	}
}

// WritePrometheus writes the cache metrics in Prometheus text format.
func (c *Cache) WritePrometheus(w io.Writer) {
	c.metrics.WritePrometheus(w)
}

func (c *Cache) String() string {
	s := c.Stats()
	return fmt.Sprintf("%d entries, %s of %s", s.Entries, humanize.IBytes(uint64(s.CurrentBytes)), humanize.IBytes(uint64(s.MaxBytes)))
}

func removeArtifact(path string) bool {
	if path == "" {
		return false
	}
	if err := os.Remove(path); err != nil {
		if !os.IsNotExist(err) {
			log.Warn("Failed to remove staged artifact", "path", path, "err", err)
		}
		return false
	}
	return true
}
