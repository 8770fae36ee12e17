package engine

import (
	"testing"

	"github.com/piwi3910/cutplan/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestOverlapsDetectsIntersection(t *testing.T) {
	a := rect{x: 0, y: 0, w: 100, h: 100}
	b := rect{x: 50, y: 50, w: 100, h: 100}
	assert.True(t, overlaps(a, b))
}

func TestOverlapsTreatsEdgeContactAsNonOverlapping(t *testing.T) {
	a := rect{x: 0, y: 0, w: 100, h: 100}
	b := rect{x: 100, y: 0, w: 100, h: 100}
	assert.False(t, overlaps(a, b), "rectangles sharing only an edge should not overlap")
}

func TestOverlapsDisjoint(t *testing.T) {
	a := rect{x: 0, y: 0, w: 10, h: 10}
	b := rect{x: 50, y: 50, w: 10, h: 10}
	assert.False(t, overlaps(a, b))
}

func TestFitsWithinBounds(t *testing.T) {
	r := rect{x: 10, y: 10, w: 50, h: 50}
	assert.True(t, fits(r, 100, 100))
}

func TestFitsRejectsNegativeOrigin(t *testing.T) {
	r := rect{x: -1, y: 0, w: 50, h: 50}
	assert.False(t, fits(r, 100, 100))
}

func TestFitsRejectsOverflow(t *testing.T) {
	r := rect{x: 60, y: 0, w: 50, h: 50}
	assert.False(t, fits(r, 100, 100))
}

func TestEffectiveDimsSwapsOnQuarterTurns(t *testing.T) {
	p := model.NewPiece("Shelf", 600, 300, 1)

	w, h := effectiveDims(p, model.Rotation0)
	assert.Equal(t, 600.0, w)
	assert.Equal(t, 300.0, h)

	w, h = effectiveDims(p, model.Rotation90)
	assert.Equal(t, 300.0, w)
	assert.Equal(t, 600.0, h)
}

func TestPlacementRect(t *testing.T) {
	p := model.PlacedPiece{
		Piece:    model.NewPiece("Shelf", 600, 300, 1),
		X:        10,
		Y:        20,
		Rotation: model.Rotation90,
	}
	r := placementRect(p)
	assert.Equal(t, 10.0, r.x)
	assert.Equal(t, 20.0, r.y)
	assert.Equal(t, 300.0, r.w)
	assert.Equal(t, 600.0, r.h)
}
