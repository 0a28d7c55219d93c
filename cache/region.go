// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cache

import (
	"image"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/surface"
)

// RegionKey identifies an L2 region tile. A tile is addressed by its
// integer coordinates in the tile grid plus the render context, so tiles
// rasterized at different zoom buckets or formats never mix.
type RegionKey struct {
	TX, TY     int32
	ZoomBucket int32
	Format     gputypes.TextureFormat
	Flags      surface.RenderFlags
}

// l2member records where an element's pixels live inside a tile pixmap.
// The stored rectangle is the exact placement used at store time, so the
// crop at lookup time is pixel-identical to the original payload.
type l2member struct {
	version        uint64
	px, py, pw, ph int
}

// regionTile is the value stored in the L2 shelf: a pixmap covering the
// tile's expanded footprint plus the member bookkeeping.
type regionTile struct {
	pixmap  *surface.Pixmap
	cover   surface.Box // content-space area the pixmap covers
	scale   float64     // content units -> pixels
	members map[surface.ElementID]l2member
}

// scaleFor converts a zoom bucket to a pixel scale factor (2^bucket).
func scaleFor(bucket int32) float64 {
	return math.Ldexp(1, int(bucket))
}

// tileKeyFor returns the key of the tile covering the element: the tile
// containing the element's bounds center.
func (t *Tiered) tileKeyFor(el surface.Element, rc surface.RenderContext) RegionKey {
	c := el.Bounds.Center()
	return RegionKey{
		TX:         int32(math.Floor(c.X / t.tileSize)),
		TY:         int32(math.Floor(c.Y / t.tileSize)),
		ZoomBucket: rc.ZoomBucket,
		Format:     rc.Format,
		Flags:      rc.Flags,
	}
}

// coverFor returns the content-space footprint of a tile's pixmap: the
// tile rect expanded by a full tile on every side, so any element whose
// center falls in the tile and whose extent is at most two tiles fits.
func (t *Tiered) coverFor(key RegionKey) surface.Box {
	return surface.B(
		(float64(key.TX)-1)*t.tileSize,
		(float64(key.TY)-1)*t.tileSize,
		3*t.tileSize,
		3*t.tileSize,
	)
}

// placement computes the pixel rectangle of the element's payload inside
// the tile pixmap. Returns false if the payload does not fit the tile
// footprint.
func placement(el surface.Element, cover surface.Box, scale float64, payload *surface.Pixmap, tilePx, tilePy int) (l2member, bool) {
	px := int(math.Round((el.Bounds.X - cover.X) * scale))
	py := int(math.Round((el.Bounds.Y - cover.Y) * scale))
	pw := payload.Width()
	ph := payload.Height()
	if px < 0 || py < 0 || px+pw > tilePx || py+ph > tilePy {
		return l2member{}, false
	}
	return l2member{version: el.Version, px: px, py: py, pw: pw, ph: ph}, true
}

// storeRegion composites the payload into the region tile covering the
// element and records its placement.
func (t *Tiered) storeRegion(el surface.Element, rc surface.RenderContext, payload *surface.Pixmap) {
	key := t.tileKeyFor(el, rc)
	cover := t.coverFor(key)
	scale := scaleFor(rc.ZoomBucket)
	dim := int(math.Ceil(3 * t.tileSize * scale))

	m, ok := placement(el, cover, scale, payload, dim, dim)
	if !ok {
		surface.Logger().Debug("element spans beyond its region tile, not cached",
			"id", el.ID, "bounds", el.Bounds)
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var tile *regionTile
	if v, ok := t.l2.get(key); ok {
		tile = v.(*regionTile)
	} else {
		pm := surface.NewPixmap(dim, dim)
		if pm == nil {
			return
		}
		tile = &regionTile{
			pixmap:  pm,
			cover:   cover,
			scale:   scale,
			members: make(map[surface.ElementID]l2member),
		}
		evicted := t.l2.put(key, tile, pm.ByteSize())
		if evicted < 0 {
			// Tile bigger than the whole tier budget: nothing to do.
			surface.Logger().Debug("region tile exceeds L2 budget, not cached",
				"tile", key)
			return
		}
		if evicted > 0 {
			t.c2.evictions.Add(uint64(evicted))
			t.reindexL2()
		}
	}

	// Compositing overwrites any member pixels underneath; those members
	// can no longer be served and are dropped.
	newRect := image.Rect(m.px, m.py, m.px+m.pw, m.py+m.ph)
	for id, other := range tile.members {
		if id == el.ID {
			continue
		}
		if newRect.Overlaps(image.Rect(other.px, other.py, other.px+other.pw, other.py+other.ph)) {
			delete(tile.members, id)
			t.unlinkTile(id, key)
		}
	}

	tile.pixmap.DrawPixmap(payload, m.px, m.py)
	tile.members[el.ID] = m

	refs := t.tilesByElement[el.ID]
	if refs == nil {
		refs = make(map[RegionKey]struct{})
		t.tilesByElement[el.ID] = refs
	}
	refs[key] = struct{}{}
}

// lookupRegion crops the element's pixels out of its region tile.
// A member with a stale version stales the whole tile, which is dropped
// on sight. Caller must hold t.mu.
func (t *Tiered) lookupRegion(el surface.Element, rc surface.RenderContext) (*surface.Pixmap, bool) {
	key := t.tileKeyFor(el, rc)
	v, ok := t.l2.get(key)
	if !ok {
		return nil, false
	}
	tile := v.(*regionTile)

	m, ok := tile.members[el.ID]
	if !ok {
		return nil, false
	}
	if m.version != el.Version {
		if t.dropTile(key) {
			t.c2.evictions.Add(1)
		}
		return nil, false
	}

	crop := tile.pixmap.SubPixmap(image.Rect(m.px, m.py, m.px+m.pw, m.py+m.ph))
	if crop == nil {
		return nil, false
	}
	return crop, true
}

// containsRegion reports whether lookupRegion would hit, without touching
// LRU order. Caller must hold t.mu.
func (t *Tiered) containsRegion(el surface.Element, rc surface.RenderContext) bool {
	key := t.tileKeyFor(el, rc)
	v, ok := t.l2.peek(key)
	if !ok {
		return false
	}
	m, ok := v.(*regionTile).members[el.ID]
	return ok && m.version == el.Version
}

// dropTile removes a tile and all back-references to it.
// Caller must hold t.mu.
func (t *Tiered) dropTile(key RegionKey) bool {
	v, ok := t.l2.peek(key)
	if !ok {
		return false
	}
	for id := range v.(*regionTile).members {
		t.unlinkTile(id, key)
	}
	return t.l2.remove(key)
}

// unlinkTile removes the element -> tile back-reference.
// Caller must hold t.mu.
func (t *Tiered) unlinkTile(id surface.ElementID, key RegionKey) {
	if refs := t.tilesByElement[id]; refs != nil {
		delete(refs, key)
		if len(refs) == 0 {
			delete(t.tilesByElement, id)
		}
	}
}

// reindexL2 drops back-references to tiles an eviction pass removed.
// Caller must hold t.mu.
func (t *Tiered) reindexL2() {
	for id, refs := range t.tilesByElement {
		for key := range refs {
			if _, ok := t.l2.peek(key); !ok {
				delete(refs, key)
			}
		}
		if len(refs) == 0 {
			delete(t.tilesByElement, id)
		}
	}
}
