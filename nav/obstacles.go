// Package nav implements local-grid pathfinding and the per-agent movement controller.
//
// A Mover owns one agent's target and plan. When a plan is needed it builds a
// bounded walkability grid between the agent and its target, runs A* over it
// and pulls the raw node path tight with line-of-sight checks. Every tick the
// remaining plan is re-validated against the ObstacleQuery the host provides.
package nav

import "gonum.org/v1/gonum/spatial/r2"

// ObstacleQuery answers free-space questions against the blocking layer of the
// host world. Implementations must be synchronous, side-effect free and must
// ignore the querying agent's own geometry.
type ObstacleQuery interface {
	// IsCircleFree reports whether a disk of the given radius centred at
	// center overlaps no blocking geometry.
	IsCircleFree(center r2.Vec, radius float64) bool

	// IsSegmentFree reports whether the capsule swept by a disk of
	// sweepRadius moving from a to b overlaps no blocking geometry.
	IsSegmentFree(a, b r2.Vec, sweepRadius float64) bool
}
