package nav

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// NearestFreePoint searches expanding rings around p for a point where a disk
// of the given radius is free. Ring k has radius k*spacing and is sampled at
// steps evenly spaced angles starting on the +X axis. Returns false when no
// sample within the search bound is free.
func NearestFreePoint(q ObstacleQuery, p r2.Vec, radius float64, rings, steps int, spacing float64) (r2.Vec, bool) {
	if steps <= 0 {
		return p, false
	}
	for ring := 1; ring <= rings; ring++ {
		dist := float64(ring) * spacing
		for i := 0; i < steps; i++ {
			angle := float64(i) / float64(steps) * 2 * math.Pi
			candidate := r2.Add(p, r2.Vec{X: math.Cos(angle) * dist, Y: math.Sin(angle) * dist})
			if q.IsCircleFree(candidate, radius) {
				return candidate, true
			}
		}
	}
	return p, false
}
