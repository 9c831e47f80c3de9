// Package components defines ECS components for the simulation.
package components

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/trek/nav"
)

// Position represents an entity's world position.
type Position struct {
	X, Y float64
}

// Vec returns the position as a vector.
func (p Position) Vec() r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

// Velocity represents an entity's velocity in world units per second.
type Velocity struct {
	X, Y float64
}

// Agent links an entity to its movement controller.
type Agent struct {
	ID    uint32
	Name  string
	Mover *nav.Mover

	// Arrivals already reported to telemetry
	SeenArrivals int
}

// Wander holds idle wandering state.
type Wander struct {
	Enabled   bool
	IdleTime  float64 // Seconds the agent has been truly idle
	Timer     float64 // Seconds until the next wander attempt
	Wandering bool    // A wander or return order is in flight
}

// Spawning holds spawn placement state.
// Agents leave spawning mode once they stand in an open area.
type Spawning struct {
	Active  bool // Still placing
	Started bool // Initial open-area check done
	Moving  bool // Walking to an open area
	Order   int  // Mover order count when the walk was issued
}
