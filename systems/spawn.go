package systems

import (
	"log/slog"

	"github.com/pthm-cable/trek/components"
	"github.com/pthm-cable/trek/config"
	"github.com/pthm-cable/trek/nav"
)

// SpawnSystem walks freshly spawned agents out of blocking geometry.
type SpawnSystem struct {
	query   nav.ObstacleQuery
	radius  float64
	steps   int
	rings   int
	spacing float64
}

// NewSpawnSystem creates a spawn system from the global config.
func NewSpawnSystem(q nav.ObstacleQuery) *SpawnSystem {
	cfg := config.Cfg()
	return &SpawnSystem{
		query:   q,
		radius:  cfg.Spawn.CheckRadius,
		steps:   cfg.Spawn.SearchSteps,
		rings:   cfg.Spawn.SearchRings,
		spacing: cfg.Derived.SpawnSpacing,
	}
}

// IsOpen reports whether an agent standing at the mover's position is clear of obstacles.
func (s *SpawnSystem) IsOpen(m *nav.Mover) bool {
	return s.query.IsCircleFree(m.Position(), s.radius)
}

// Update advances spawn placement for one agent.
// Returns true on the tick the agent leaves spawning mode.
func (s *SpawnSystem) Update(sp *components.Spawning, agent *components.Agent) bool {
	if !sp.Active || agent.Mover == nil {
		return false
	}
	m := agent.Mover

	if !sp.Started {
		sp.Started = true
		if s.IsOpen(m) {
			return s.finish(sp, agent)
		}
		open, ok := nav.NearestFreePoint(s.query, m.Position(), s.radius, s.rings, s.steps, s.spacing)
		if !ok {
			slog.Debug("no open area near spawn", "agent", agent.Name)
			return s.finish(sp, agent)
		}
		m.MoveTo(open, nil)
		sp.Moving = true
		sp.Order = m.Stats().MoveOrders
		return false
	}

	// Superseded by another order: that order owns the mover now
	if m.Stats().MoveOrders != sp.Order {
		return s.finish(sp, agent)
	}
	if sp.Moving && s.IsOpen(m) {
		m.Stop()
		return s.finish(sp, agent)
	}
	// Arrived, or the order was replaced by someone else
	if m.State() == nav.StateIdle {
		return s.finish(sp, agent)
	}
	return false
}

func (s *SpawnSystem) finish(sp *components.Spawning, agent *components.Agent) bool {
	sp.Active = false
	sp.Moving = false
	slog.Debug("spawn placed", "agent", agent.Name,
		"x", agent.Mover.Position().X, "y", agent.Mover.Position().Y)
	return true
}
