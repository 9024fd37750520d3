package resultcache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	json "github.com/goccy/go-json"

	"github.com/stagepass/boxoffice/errs"
	"github.com/stagepass/boxoffice/internal/observability"
	"github.com/stagepass/boxoffice/internal/timeline"
)

const (
	// FormatVersion invalidates every cached entry when the matrix layout changes.
	FormatVersion = 2

	defaultTTL    = 5 * time.Minute
	putRetryLimit = 3
)

// Query identifies one series computation for signature purposes. Grouping
// is part of the identity: the same shows aggregated by stop and by project
// produce different matrices and must never share an entry.
type Query struct {
	RangeSelector string          `json:"range"`
	Metric        string          `json:"metric"`
	Grouping      string          `json:"grouping"`
	Weight        timeline.Weight `json:"weight"`
	EntityIDs     []string        `json:"entities"`
}

// Entry is the stored unit: settled history rows plus enough metadata to
// judge freshness and scope on the way back out. Entries are immutable value
// objects; a racing duplicate write is at worst wasted work.
type Entry struct {
	Key           string                 `json:"key"`
	FormatVersion int                    `json:"format_version"`
	Rows          []timeline.SeriesPoint `json:"rows"`
	CachedUpTo    time.Time              `json:"cached_up_to"`
	Timestamp     time.Time              `json:"timestamp"`
	EntityScope   []string               `json:"entity_scope"`
}

// Cache is an explicit, injectable handle over a Store. Construct one per
// process or per session; there is no package-level instance. Clearing it is
// always safe: correctness never depends on a hit.
type Cache struct {
	store     Store
	ttl       time.Duration
	version   int
	now       func() time.Time
	shutdown  chan struct{}
	closeOnce sync.Once
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides the settled-history expiry window.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock injects the time source, letting tests age entries synthetically.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithFormatVersion overrides the entry format version.
func WithFormatVersion(version int) Option {
	return func(c *Cache) {
		c.version = version
	}
}

// New constructs a cache over the given store and starts its expiry sweeper.
func New(store Store, opts ...Option) *Cache {
	c := &Cache{
		store:    store,
		ttl:      defaultTTL,
		version:  FormatVersion,
		now:      time.Now,
		shutdown: make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	go c.sweepExpired()
	return c
}

// Close stops background maintenance routines. It is safe to call more than
// once.
func (c *Cache) Close() {
	c.closeOnce.Do(func() { close(c.shutdown) })
}

// Key computes the deterministic signature for a query. Entity IDs are
// sorted so equivalent selections share a key.
func (c *Cache) Key(q Query) string {
	ids := append([]string(nil), q.EntityIDs...)
	sort.Strings(ids)
	q.EntityIDs = ids
	payload, err := json.Marshal(q)
	if err != nil {
		return ""
	}
	return string(payload)
}

// Get returns the entry under key, or a miss when the entry is absent,
// TTL-expired, written by another format version, or scoped to a different
// entity set.
func (c *Cache) Get(ctx context.Context, key string, entityScope []string) (Entry, bool) {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil || !ok {
		c.countLookup(false, "absent")
		return Entry{}, false
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		_ = c.store.Delete(ctx, key)
		c.countLookup(false, "corrupt")
		return Entry{}, false
	}
	if entry.FormatVersion != c.version {
		c.countLookup(false, "version")
		return Entry{}, false
	}
	if c.now().Sub(entry.Timestamp) > c.ttl {
		c.countLookup(false, "expired")
		return Entry{}, false
	}
	if !sameScope(entry.EntityScope, entityScope) {
		c.countLookup(false, "scope")
		return Entry{}, false
	}
	c.countLookup(true, "")
	return entry, true
}

// Put stores the settled prefix of the matrix: only rows strictly before
// yesterday are eligible, because the most recent days are still being
// revised by late reports. An empty settled prefix is a no-op. Capacity
// pressure degrades silently: evict, retry briefly, then drop the cache.
func (c *Cache) Put(ctx context.Context, key string, rows []timeline.SeriesPoint, entityScope []string) {
	yesterday := timeline.Day(c.now()).AddDate(0, 0, -1)
	settled := make([]timeline.SeriesPoint, 0, len(rows))
	for _, row := range rows {
		if timeline.Day(row.Date).Before(yesterday) {
			settled = append(settled, row)
		}
	}
	if len(settled) == 0 {
		return
	}
	sort.Slice(settled, func(i, j int) bool { return settled[i].Date.Before(settled[j].Date) })

	scope := append([]string(nil), entityScope...)
	sort.Strings(scope)
	entry := Entry{
		Key:           key,
		FormatVersion: c.version,
		Rows:          settled,
		CachedUpTo:    timeline.Day(settled[len(settled)-1].Date),
		Timestamp:     c.now(),
		EntityScope:   scope,
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		observability.Log().Error("cache entry encode failed", observability.Field{Key: "error", Value: err})
		return
	}

	err = c.store.Set(ctx, key, payload)
	if err == nil {
		return
	}
	if !errs.IsCode(err, errs.CodeCapacity) {
		observability.Log().Debug("cache write failed", observability.Field{Key: "error", Value: err})
		return
	}

	c.EvictExpired(ctx)
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 5 * time.Millisecond
	policy.MaxInterval = 50 * time.Millisecond
	for attempt := 0; attempt < putRetryLimit; attempt++ {
		if err := c.store.Set(ctx, key, payload); err == nil {
			return
		} else if !errs.IsCode(err, errs.CodeCapacity) {
			observability.Log().Debug("cache write failed", observability.Field{Key: "error", Value: err})
			return
		}
		sleep := policy.NextBackOff()
		if sleep == backoff.Stop {
			break
		}
		select {
		case <-c.shutdown:
			return
		case <-time.After(sleep):
		}
	}

	// The cache is expendable; dropping it costs a re-fetch, never correctness.
	if err := c.store.Clear(ctx); err != nil {
		observability.Log().Debug("cache clear failed", observability.Field{Key: "error", Value: err})
	}
}

// EvictExpired removes entries past their TTL or written by another format
// version.
func (c *Cache) EvictExpired(ctx context.Context) {
	keys, err := c.store.Keys(ctx)
	if err != nil {
		return
	}
	for _, key := range keys {
		raw, ok, err := c.store.Get(ctx, key)
		if err != nil || !ok {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(raw, &entry); err != nil {
			_ = c.store.Delete(ctx, key)
			continue
		}
		if entry.FormatVersion != c.version || c.now().Sub(entry.Timestamp) > c.ttl {
			_ = c.store.Delete(ctx, key)
		}
	}
}

// Merge combines cached history with freshly fetched rows. Fresh data wins
// for any date present in both; the result is sorted by date.
func Merge(cached, fresh []timeline.SeriesPoint) []timeline.SeriesPoint {
	byDate := make(map[time.Time]timeline.SeriesPoint, len(cached)+len(fresh))
	for _, point := range cached {
		byDate[timeline.Day(point.Date)] = point
	}
	for _, point := range fresh {
		byDate[timeline.Day(point.Date)] = point
	}
	out := make([]timeline.SeriesPoint, 0, len(byDate))
	for _, point := range byDate {
		out = append(out, point)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func (c *Cache) sweepExpired() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-c.shutdown:
			return
		case <-ticker.C:
			c.EvictExpired(context.Background())
		}
	}
}

func (c *Cache) countLookup(hit bool, reason string) {
	if hit {
		observability.Telemetry().IncCounter("boxoffice_cache_hits_total", 1, nil)
		return
	}
	observability.Telemetry().IncCounter("boxoffice_cache_misses_total", 1, map[string]string{"reason": reason})
}

func sameScope(stored, requested []string) bool {
	if len(stored) != len(requested) {
		return false
	}
	sorted := append([]string(nil), requested...)
	sort.Strings(sorted)
	for i, id := range sorted {
		if stored[i] != id {
			return false
		}
	}
	return true
}
