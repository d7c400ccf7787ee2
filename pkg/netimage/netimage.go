package netimage

import "math"

// Ref identifies a remote image by its source URL.
// The zero value identifies nothing.
type Ref string

// IsZero reports whether the ref identifies no resource.
func (r Ref) IsZero() bool { return r == "" }

// Size is a requested display size in logical units. The zero value
// requests native resolution.
type Size struct {
	Width  float64
	Height float64
}

// IsZero reports whether the size requests native resolution.
func (s Size) IsZero() bool { return s.Width <= 0 && s.Height <= 0 }

// normalize maps non-positive and non-finite dimensions to zero so that
// equivalent sizes compare equal as cache keys.
func (s Size) normalize() Size {
	if !(s.Width > 0) || math.IsInf(s.Width, 1) {
		s.Width = 0
	}
	if !(s.Height > 0) || math.IsInf(s.Height, 1) {
		s.Height = 0
	}
	return s
}

// longestEdge converts the size to a target longest edge in physical
// pixels under a device scale factor. Zero means native resolution.
func (s Size) longestEdge(scale float64) int {
	if s.IsZero() {
		return 0
	}
	edge := s.Width
	if s.Height > edge {
		edge = s.Height
	}
	if scale <= 0 {
		scale = 1
	}
	px := int(math.Ceil(edge * scale))
	if px < 1 {
		px = 1
	}
	return px
}

// Key is the cache identity of a decoded bitmap: the resource plus the
// requested size. Distinct sizes of one resource are distinct entries.
type Key struct {
	Ref  Ref
	Size Size
}
