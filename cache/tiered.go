// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package cache implements the tiered render cache: per-element pixmaps
// (L1), per-region tiles grouping multiple elements (L2), and
// whole-surface snapshots (L3), each with its own byte budget and LRU
// eviction.
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/surface"
)

// Default configuration constants.
const (
	// DefaultL1Budget is the per-element tier byte budget.
	DefaultL1Budget = 32 << 20
	// DefaultL2Budget is the region-tile tier byte budget.
	DefaultL2Budget = 64 << 20
	// DefaultL3Budget is the whole-surface tier byte budget.
	DefaultL3Budget = 16 << 20

	// DefaultT1 is the pixel-cost threshold below which an element is
	// cached per element (64x64 content units).
	DefaultT1 = 64 * 64
	// DefaultT2 is the pixel-cost threshold above which an element is
	// not cached at all (512x512 content units). Large payloads are
	// recomputed every time: their marginal hit rate does not offset
	// the memory pressure.
	DefaultT2 = 512 * 512

	// DefaultTileSize is the edge length of an L2 region tile in
	// content units.
	DefaultTileSize = 256

	// evictNum/evictDen: eviction drains a tier to 3/4 of its ceiling
	// rather than to-the-byte, to avoid thrashing at the boundary.
	evictNum = 3
	evictDen = 4
)

// Budgets holds the byte ceiling for each tier.
type Budgets struct {
	L1, L2, L3 int64
}

// Thresholds holds the pixel-cost tier boundaries.
// Cost <= T1 caches per element (L1); T1 < cost <= T2 caches in a region
// tile (L2); cost > T2 is never cached.
type Thresholds struct {
	T1, T2 float64
}

// TierStats contains counters for a single tier.
type TierStats struct {
	// Bytes is the current memory usage.
	Bytes int64
	// MaxBytes is the byte ceiling.
	MaxBytes int64
	// Entries is the number of cached entries (tiles for L2).
	Entries int
	// Hits is the number of lookups served from this tier.
	Hits uint64
	// Misses is the number of lookups that fell through this tier.
	Misses uint64
	// Evictions is the number of entries evicted.
	Evictions uint64
	// HitRate is Hits / (Hits + Misses), 0 when unused.
	HitRate float64
}

// Stats contains counters for all tiers.
type Stats struct {
	L1, L2, L3 TierStats
}

// tierCounters holds the atomic instrumentation for one tier.
type tierCounters struct {
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

func (c *tierCounters) stats(bytes, maxBytes int64, entries int) TierStats {
	hits := c.hits.Load()
	misses := c.misses.Load()
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return TierStats{
		Bytes:     bytes,
		MaxBytes:  maxBytes,
		Entries:   entries,
		Hits:      hits,
		Misses:    misses,
		Evictions: c.evictions.Load(),
		HitRate:   rate,
	}
}

// shelf is a byte-budget LRU store shared by all three tiers.
// Not thread-safe; Tiered holds the lock.
type shelf[K comparable] struct {
	entries map[K]*list.Element
	lru     *list.List // front = most recently used
	size    int64
	maxSize int64
}

// shelfEntry is the LRU list payload.
type shelfEntry[K comparable] struct {
	key   K
	value any
	size  int64
}

func newShelf[K comparable](maxSize int64) *shelf[K] {
	return &shelf[K]{
		entries: make(map[K]*list.Element),
		lru:     list.New(),
		maxSize: maxSize,
	}
}

// get returns the value for key and refreshes its LRU position.
func (s *shelf[K]) get(key K) (any, bool) {
	elem, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	s.lru.MoveToFront(elem)
	return elem.Value.(*shelfEntry[K]).value, true
}

// peek returns the value without touching the LRU order.
func (s *shelf[K]) peek(key K) (any, bool) {
	elem, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	return elem.Value.(*shelfEntry[K]).value, true
}

// put stores value, replacing any existing entry, and returns the number
// of entries evicted to get back under budget. Entries larger than the
// whole budget are refused (returns -1).
func (s *shelf[K]) put(key K, value any, size int64) int {
	if size <= 0 || size > s.maxSize {
		return -1
	}
	if elem, ok := s.entries[key]; ok {
		old := elem.Value.(*shelfEntry[K])
		s.size -= old.size
		s.lru.Remove(elem)
		delete(s.entries, key)
	}
	entry := &shelfEntry[K]{key: key, value: value, size: size}
	s.entries[key] = s.lru.PushFront(entry)
	s.size += size

	if s.size <= s.maxSize {
		return 0
	}
	// Over budget: drain to 3/4 of the ceiling, oldest first.
	return s.evictTo(s.maxSize * evictNum / evictDen)
}

// evictTo removes LRU entries until size is at or below target.
// Returns the number of entries removed.
func (s *shelf[K]) evictTo(target int64) int {
	evicted := 0
	for s.size > target && s.lru.Len() > 0 {
		elem := s.lru.Back()
		if elem == nil {
			break
		}
		entry := elem.Value.(*shelfEntry[K])
		s.lru.Remove(elem)
		s.size -= entry.size
		delete(s.entries, entry.key)
		evicted++
	}
	return evicted
}

// remove deletes a single entry. Returns true if it existed.
func (s *shelf[K]) remove(key K) bool {
	elem, ok := s.entries[key]
	if !ok {
		return false
	}
	entry := elem.Value.(*shelfEntry[K])
	s.lru.Remove(elem)
	s.size -= entry.size
	delete(s.entries, key)
	return true
}

// clear drops every entry and returns how many were dropped.
func (s *shelf[K]) clear() int {
	n := len(s.entries)
	s.entries = make(map[K]*list.Element)
	s.lru.Init()
	s.size = 0
	return n
}

// surfaceKey identifies a whole-surface (L3) snapshot.
// Snapshots are only reused for a byte-identical viewport, so the key is
// the exact viewport value plus the render context.
type surfaceKey struct {
	x, y, w, h float64
	zoom       float64
	format     gputypes.TextureFormat
	flags      surface.RenderFlags
}

// Tiered is the render cache. It owns its pixel payloads exclusively:
// callers must not mutate a returned pixmap.
//
// Tiered is safe for concurrent use.
type Tiered struct {
	mu sync.Mutex

	l1 *shelf[surface.CacheKey]
	l2 *shelf[RegionKey]
	l3 *shelf[surfaceKey]

	// byElement indexes live L1 keys per element for invalidation and
	// stale-entry eviction.
	byElement map[surface.ElementID]map[surface.CacheKey]struct{}
	// tilesByElement indexes L2 tiles listing an element.
	tilesByElement map[surface.ElementID]map[RegionKey]struct{}

	thresholds Thresholds
	tileSize   float64

	c1, c2, c3 tierCounters
	stores     atomic.Uint64
	rejected   atomic.Uint64 // payloads above T2, never cached
}

// Option configures a Tiered cache during creation.
type Option func(*Tiered)

// WithBudgets sets the per-tier byte ceilings.
// Non-positive values keep the defaults.
func WithBudgets(b Budgets) Option {
	return func(t *Tiered) {
		if b.L1 > 0 {
			t.l1.maxSize = b.L1
		}
		if b.L2 > 0 {
			t.l2.maxSize = b.L2
		}
		if b.L3 > 0 {
			t.l3.maxSize = b.L3
		}
	}
}

// WithThresholds sets the tier cost boundaries.
func WithThresholds(th Thresholds) Option {
	return func(t *Tiered) {
		if th.T1 > 0 && th.T2 >= th.T1 {
			t.thresholds = th
		}
	}
}

// WithTileSize sets the L2 region tile edge length in content units.
func WithTileSize(size float64) Option {
	return func(t *Tiered) {
		if size > 0 {
			t.tileSize = size
		}
	}
}

// New creates an empty tiered cache.
func New(opts ...Option) *Tiered {
	t := &Tiered{
		l1:             newShelf[surface.CacheKey](DefaultL1Budget),
		l2:             newShelf[RegionKey](DefaultL2Budget),
		l3:             newShelf[surfaceKey](DefaultL3Budget),
		byElement:      make(map[surface.ElementID]map[surface.CacheKey]struct{}),
		tilesByElement: make(map[surface.ElementID]map[RegionKey]struct{}),
		thresholds:     Thresholds{T1: DefaultT1, T2: DefaultT2},
		tileSize:       DefaultTileSize,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Cacheable reports whether an element of the given pixel cost is cached
// at all. The pre-render scheduler uses it to skip work that could never
// be stored.
func (t *Tiered) Cacheable(cost float64) bool {
	return cost <= t.thresholds.T2
}

// Lookup returns the cached pixels for the element under the render
// context: L1 by exact key first, then L2 by region tile (cropping the
// element out of the tile). L3 is never consulted for individual
// elements.
//
// Stale entries discovered on the way (a cached version differing from
// the element's current stamp) are evicted immediately and never served.
func (t *Tiered) Lookup(el surface.Element, rc surface.RenderContext) (*surface.Pixmap, bool) {
	key := surface.KeyFor(el, rc)

	t.mu.Lock()
	if v, ok := t.l1.get(key); ok {
		t.mu.Unlock()
		t.c1.hits.Add(1)
		return v.(*surface.Pixmap), true
	}
	// Evict stale L1 entries for this element before falling through.
	t.dropStaleL1(el)
	t.c1.misses.Add(1)

	pm, ok := t.lookupRegion(el, rc)
	t.mu.Unlock()

	if ok {
		t.c2.hits.Add(1)
		return pm, true
	}
	t.c2.misses.Add(1)
	return nil, false
}

// Contains reports whether a lookup for the element would hit, without
// refreshing LRU order or counters. Used by the pre-render scheduler's
// still-uncached re-check.
func (t *Tiered) Contains(el surface.Element, rc surface.RenderContext) bool {
	key := surface.KeyFor(el, rc)

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.l1.peek(key); ok {
		return true
	}
	return t.containsRegion(el, rc)
}

// Store caches a freshly rasterized payload for the element.
// Tier selection is by pixel cost: below T1 the payload is stored per
// element (L1); between T1 and T2 it is composited into the region tile
// covering the element (L2); above T2 it is not cached.
func (t *Tiered) Store(el surface.Element, rc surface.RenderContext, payload *surface.Pixmap) {
	if payload == nil {
		return
	}
	t.stores.Add(1)

	cost := el.PixelCost()
	switch {
	case cost <= t.thresholds.T1:
		t.storeL1(el, rc, payload)
	case cost <= t.thresholds.T2:
		t.storeRegion(el, rc, payload)
	default:
		t.rejected.Add(1)
		surface.Logger().Debug("payload above cache threshold, not cached",
			"id", el.ID, "cost", cost)
	}
}

func (t *Tiered) storeL1(el surface.Element, rc surface.RenderContext, payload *surface.Pixmap) {
	key := surface.KeyFor(el, rc)

	t.mu.Lock()
	t.dropStaleL1(el)
	evicted := t.l1.put(key, payload, payload.ByteSize())
	if evicted >= 0 {
		keys := t.byElement[el.ID]
		if keys == nil {
			keys = make(map[surface.CacheKey]struct{})
			t.byElement[el.ID] = keys
		}
		keys[key] = struct{}{}
		if evicted > 0 {
			t.reindexL1()
		}
	}
	t.mu.Unlock()

	if evicted > 0 {
		t.c1.evictions.Add(uint64(evicted))
		surface.Logger().Debug("L1 eviction pass", "evicted", evicted)
	}
}

// dropStaleL1 removes L1 entries for the element whose version differs
// from the element's current stamp. Caller must hold t.mu.
func (t *Tiered) dropStaleL1(el surface.Element) {
	keys := t.byElement[el.ID]
	for key := range keys {
		if key.Version != el.Version {
			if t.l1.remove(key) {
				t.c1.evictions.Add(1)
			}
			delete(keys, key)
		}
	}
	if len(keys) == 0 {
		delete(t.byElement, el.ID)
	}
}

// reindexL1 rebuilds the per-element key index after an eviction pass
// removed entries the index still lists. Caller must hold t.mu.
func (t *Tiered) reindexL1() {
	for id, keys := range t.byElement {
		for key := range keys {
			if _, ok := t.l1.peek(key); !ok {
				delete(keys, key)
			}
		}
		if len(keys) == 0 {
			delete(t.byElement, id)
		}
	}
}

// LookupSurface returns the whole-surface snapshot for the viewport, if
// one is cached. Snapshots serve only full-viewport repaints.
func (t *Tiered) LookupSurface(vp surface.Viewport, rc surface.RenderContext) (*surface.Pixmap, bool) {
	key := surfaceKeyFor(vp, rc)

	t.mu.Lock()
	v, ok := t.l3.get(key)
	t.mu.Unlock()

	if !ok {
		t.c3.misses.Add(1)
		return nil, false
	}
	t.c3.hits.Add(1)
	return v.(*surface.Pixmap), true
}

// StoreSurface caches a whole-surface snapshot for the viewport.
func (t *Tiered) StoreSurface(vp surface.Viewport, rc surface.RenderContext, payload *surface.Pixmap) {
	if payload == nil {
		return
	}
	key := surfaceKeyFor(vp, rc)

	t.mu.Lock()
	evicted := t.l3.put(key, payload, payload.ByteSize())
	t.mu.Unlock()

	if evicted > 0 {
		t.c3.evictions.Add(uint64(evicted))
	}
}

func surfaceKeyFor(vp surface.Viewport, rc surface.RenderContext) surfaceKey {
	return surfaceKey{
		x: vp.X, y: vp.Y, w: vp.W, h: vp.H,
		zoom:   vp.Zoom,
		format: rc.Format,
		flags:  rc.Flags,
	}
}

// InvalidateElement drops every cached payload derived from the element:
// its L1 entries, every L2 region tile listing it, and all L3 snapshots
// (any element change stales the whole surface).
func (t *Tiered) InvalidateElement(id surface.ElementID) {
	t.mu.Lock()

	var evicted1, evicted2 uint64
	for key := range t.byElement[id] {
		if t.l1.remove(key) {
			evicted1++
		}
	}
	delete(t.byElement, id)

	for rk := range t.tilesByElement[id] {
		if t.dropTile(rk) {
			evicted2++
		}
	}
	delete(t.tilesByElement, id)

	evicted3 := t.l3.clear()
	t.mu.Unlock()

	t.c1.evictions.Add(evicted1)
	t.c2.evictions.Add(evicted2)
	t.c3.evictions.Add(uint64(evicted3))
}

// InvalidateViewport drops all whole-surface snapshots. Element tiers are
// untouched: a viewport change only stales the L3 tier.
func (t *Tiered) InvalidateViewport() {
	t.mu.Lock()
	evicted := t.l3.clear()
	t.mu.Unlock()
	t.c3.evictions.Add(uint64(evicted))
}

// Clear drops every entry in every tier.
func (t *Tiered) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.l1.clear()
	t.l2.clear()
	t.l3.clear()
	t.byElement = make(map[surface.ElementID]map[surface.CacheKey]struct{})
	t.tilesByElement = make(map[surface.ElementID]map[RegionKey]struct{})
}

// Stats returns current per-tier counters.
func (t *Tiered) Stats() Stats {
	t.mu.Lock()
	s1 := t.c1.stats(t.l1.size, t.l1.maxSize, len(t.l1.entries))
	s2 := t.c2.stats(t.l2.size, t.l2.maxSize, len(t.l2.entries))
	s3 := t.c3.stats(t.l3.size, t.l3.maxSize, len(t.l3.entries))
	t.mu.Unlock()
	return Stats{L1: s1, L2: s2, L3: s3}
}
