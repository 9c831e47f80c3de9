// Package systems provides ECS systems for the simulation.
package systems

import (
	"github.com/pthm-cable/trek/components"
)

// UpdateMovement ticks an agent's mover and mirrors the result into its
// position and velocity. Returns true when the agent arrived this tick.
func UpdateMovement(agent *components.Agent, pos *components.Position, vel *components.Velocity, dt float64) bool {
	m := agent.Mover
	if m == nil {
		return false
	}

	m.Tick(dt)

	p := m.Position()
	v := m.Velocity()
	pos.X, pos.Y = p.X, p.Y
	vel.X, vel.Y = v.X, v.Y

	arrivals := m.Stats().Arrivals
	if arrivals > agent.SeenArrivals {
		agent.SeenArrivals = arrivals
		return true
	}
	return false
}
