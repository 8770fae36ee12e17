package engine

import "github.com/piwi3910/cutplan/internal/model"

// rect is an axis-aligned rectangle used internally by the heuristic placer
// and the finalizer's invariant checks.
type rect struct {
	x, y, w, h float64
}

func (r rect) right() float64  { return r.x + r.w }
func (r rect) bottom() float64 { return r.y + r.h }

// overlaps reports whether two open rectangles overlap. Edge contact
// (sharing a boundary with zero-width intersection) is not overlap.
func overlaps(a, b rect) bool {
	return a.x < b.right() && b.x < a.right() && a.y < b.bottom() && b.y < a.bottom()
}

// fits reports whether r lies within [0,W]x[0,H].
func fits(r rect, w, h float64) bool {
	return r.x >= 0 && r.y >= 0 && r.right() <= w && r.bottom() <= h
}

// effectiveDims swaps width/height for R90/R270 rotations.
func effectiveDims(p model.Piece, r model.Rotation) (w, h float64) {
	return p.EffectiveDims(r)
}

// placementRect builds the rect a PlacedPiece occupies.
func placementRect(p model.PlacedPiece) rect {
	w, h := p.EffectiveDims()
	return rect{x: p.X, y: p.Y, w: w, h: h}
}
