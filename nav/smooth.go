package nav

import "gonum.org/v1/gonum/spatial/r2"

// Smooth string-pulls a raw node path into the minimal waypoint list.
//
// Starting from the agent's live position, the furthest node with a clear
// swept segment becomes the first waypoint. From each retained waypoint the
// path is scanned back from its end for the furthest visible node, until the
// end of the path is retained. When no later node is visible the next node is
// taken so the walk always makes progress. Segments produced by that fallback
// are not verified clear; the mover's step check stops the agent at the first
// obstacle along them.
func Smooth(from r2.Vec, path []r2.Vec, q ObstacleQuery, radius float64) []r2.Vec {
	if len(path) == 0 {
		return nil
	}

	out := make([]r2.Vec, 0, 8)
	anchor := from
	last := -1
	for last < len(path)-1 {
		next := last + 1
		for j := len(path) - 1; j > last+1; j-- {
			if q.IsSegmentFree(anchor, path[j], radius) {
				next = j
				break
			}
		}
		out = append(out, path[next])
		anchor = path[next]
		last = next
	}
	return out
}
