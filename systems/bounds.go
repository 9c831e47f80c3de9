package systems

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/trek/config"
)

// Bounds is the axis-aligned area agents wander inside.
// A zero-sized bounds contains everything.
type Bounds struct {
	Min, Max r2.Vec
}

// BoundsFromConfig returns the configured world rectangle.
func BoundsFromConfig(w config.WorldConfig) Bounds {
	return Bounds{
		Min: r2.Vec{X: w.OriginX, Y: w.OriginY},
		Max: r2.Vec{X: w.OriginX + w.Width, Y: w.OriginY + w.Height},
	}
}

// Unbounded reports whether the bounds has no area.
func (b Bounds) Unbounded() bool {
	return b.Max.X <= b.Min.X || b.Max.Y <= b.Min.Y
}

// Contains reports whether p lies strictly inside the bounds inset by pad.
func (b Bounds) Contains(p r2.Vec, pad float64) bool {
	if b.Unbounded() {
		return true
	}
	return p.X > b.Min.X+pad && p.X < b.Max.X-pad &&
		p.Y > b.Min.Y+pad && p.Y < b.Max.Y-pad
}

// Center returns the midpoint of the bounds.
func (b Bounds) Center() r2.Vec {
	return r2.Scale(0.5, r2.Add(b.Min, b.Max))
}

// At maps fractional coordinates in [0,1] to a world position.
func (b Bounds) At(u, v float64) r2.Vec {
	return r2.Vec{
		X: b.Min.X + u*(b.Max.X-b.Min.X),
		Y: b.Min.Y + v*(b.Max.Y-b.Min.Y),
	}
}
