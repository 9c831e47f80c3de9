package game

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/trek/components"
	"github.com/pthm-cable/trek/nav"
	"github.com/pthm-cable/trek/obstacles"
	"github.com/pthm-cable/trek/scenario"
)

var _ scenario.Engine = (*Simulation)(nil)

// agent looks up an agent component by name.
func (s *Simulation) agent(name string) (*components.Agent, error) {
	entity, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAgent, name)
	}
	return s.agentMap.Get(entity), nil
}

// AgentNames returns agent names in spawn order.
func (s *Simulation) AgentNames() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// MoveAgent issues a movement order.
func (s *Simulation) MoveAgent(name string, target r2.Vec) error {
	a, err := s.agent(name)
	if err != nil {
		return err
	}
	a.Mover.MoveTo(target, nil)
	return nil
}

// StopAgent cancels an agent's order.
func (s *Simulation) StopAgent(name string) error {
	a, err := s.agent(name)
	if err != nil {
		return err
	}
	a.Mover.Stop()
	return nil
}

// SetIgnoreCollisions toggles straight-line movement for an agent.
func (s *Simulation) SetIgnoreCollisions(name string, enabled bool) error {
	a, err := s.agent(name)
	if err != nil {
		return err
	}
	a.Mover.SetIgnoreCollisions(enabled)
	return nil
}

// AgentPosition returns an agent's position.
func (s *Simulation) AgentPosition(name string) (r2.Vec, error) {
	a, err := s.agent(name)
	if err != nil {
		return r2.Vec{}, err
	}
	return a.Mover.Position(), nil
}

// AgentState returns whether an agent is idle or following a target.
func (s *Simulation) AgentState(name string) (nav.State, error) {
	a, err := s.agent(name)
	if err != nil {
		return nav.StateIdle, err
	}
	return a.Mover.State(), nil
}

// AgentStats returns an agent's cumulative mover counters.
func (s *Simulation) AgentStats(name string) (nav.MoverStats, error) {
	a, err := s.agent(name)
	if err != nil {
		return nav.MoverStats{}, err
	}
	return a.Mover.Stats(), nil
}

// AddObstacle adds an obstacle. Agents replan around it as they run into it.
func (s *Simulation) AddObstacle(o obstacles.Obstacle) (string, error) {
	return s.obstacles.Add(o)
}

// RemoveObstacle removes an obstacle by id.
func (s *Simulation) RemoveObstacle(id string) bool {
	return s.obstacles.Remove(id)
}
