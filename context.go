package surface

import "github.com/gogpu/gputypes"

// RenderFlags are pixel-affecting render toggles.
// Every flag that changes produced pixels must be part of the cache key.
type RenderFlags uint32

const (
	// FlagOutline renders selection outlines around elements.
	FlagOutline RenderFlags = 1 << iota

	// FlagGrayscale renders elements desaturated (e.g. disabled layers).
	FlagGrayscale
)

// RenderContext carries every rendering parameter that affects produced
// pixels. Two rasterizations of the same element under the same context
// are guaranteed pixel-identical, which is what makes caching sound.
type RenderContext struct {
	// ZoomBucket is the quantized zoom level, see Viewport.ZoomBucket.
	ZoomBucket int32

	// Format is the pixel format of the paint target.
	Format gputypes.TextureFormat

	// Flags are pixel-affecting render toggles.
	Flags RenderFlags
}

// ContextFor returns the render context for painting the given viewport
// into a target with the given pixel format.
func ContextFor(vp Viewport, format gputypes.TextureFormat) RenderContext {
	return RenderContext{ZoomBucket: vp.ZoomBucket(), Format: format}
}

// CacheKey identifies a cached per-element rasterization.
//
// The key is derived deterministically from the element identity, its
// content-version stamp and the render context. Identical keys are
// guaranteed to render identical pixels; this is the engine's core
// caching invariant.
type CacheKey struct {
	ID         ElementID
	Version    uint64
	ZoomBucket int32
	Format     gputypes.TextureFormat
	Flags      RenderFlags
}

// KeyFor derives the cache key for an element under a render context.
func KeyFor(el Element, rc RenderContext) CacheKey {
	return CacheKey{
		ID:         el.ID,
		Version:    el.Version,
		ZoomBucket: rc.ZoomBucket,
		Format:     rc.Format,
		Flags:      rc.Flags,
	}
}
