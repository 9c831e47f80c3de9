package game

import (
	"github.com/pthm-cable/trek/nav"
	"github.com/pthm-cable/trek/scenario"
	"github.com/pthm-cable/trek/systems"
	"github.com/pthm-cable/trek/telemetry"
)

// Step advances the simulation by one tick.
func (s *Simulation) Step() {
	s.perfCollector.StartTick()

	s.perfCollector.StartPhase(telemetry.PhaseScript)
	s.updateTimeline()
	s.runScript()

	s.perfCollector.StartPhase(telemetry.PhaseSpawn)
	s.updateSpawn()

	s.perfCollector.StartPhase(telemetry.PhaseWander)
	s.updateWander()

	s.perfCollector.StartPhase(telemetry.PhaseMovement)
	s.updateMovement()

	s.tick++

	s.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	s.flushTelemetry()

	s.perfCollector.EndTick()
}

// Run steps until maxTicks have run (0 = no limit) or the simulation
// has settled. Returns the number of ticks run.
func (s *Simulation) Run(maxTicks int) int {
	start := s.tick
	for maxTicks <= 0 || int(s.tick-start) < maxTicks {
		if s.Settled() {
			break
		}
		s.Step()
	}
	return int(s.tick - start)
}

// Settled reports whether nothing more can happen: no script is bound, the
// timeline is exhausted and every agent is idle. Wandering agents never settle.
func (s *Simulation) Settled() bool {
	if s.script != nil || int(s.tick) <= s.lastEvent {
		return false
	}
	query := s.agentFilter.Query()
	for query.Next() {
		_, _, _, agent, wander, spawning := query.Get()
		if spawning.Active || wander.Enabled || agent.Mover.State() != nav.StateIdle {
			query.Close()
			return false
		}
	}
	return true
}

// updateTimeline applies obstacle changes and commands scheduled for this tick.
func (s *Simulation) updateTimeline() {
	if s.scenario == nil {
		return
	}
	tick := int(s.tick)

	for i, spec := range s.scenario.Obstacles {
		switch {
		case tick > 0 && spec.AppearAt == tick:
			if err := s.placeObstacle(i); err != nil {
				s.log.Warn("obstacle not placed", "id", spec.ID, "error", err)
			}
		case spec.RemoveAt == tick && s.timelineIDs[i] != "":
			s.obstacles.Remove(s.timelineIDs[i])
			s.timelineIDs[i] = ""
		}
	}

	for _, c := range s.scenario.CommandsAt(tick) {
		var err error
		switch c.Action {
		case scenario.ActionMoveTo:
			err = s.MoveAgent(c.Agent, c.Target())
		case scenario.ActionStop:
			err = s.StopAgent(c.Agent)
		case scenario.ActionIgnoreCollisions:
			err = s.SetIgnoreCollisions(c.Agent, c.Enabled)
		}
		if err != nil {
			s.log.Warn("command failed", "tick", tick, "agent", c.Agent, "action", c.Action, "error", err)
		}
	}
}

// runScript calls the scenario script's update function.
func (s *Simulation) runScript() {
	if s.script == nil {
		return
	}
	if err := s.script.Update(int(s.tick)); err != nil {
		s.log.Error("script failed, detaching", "error", err)
		s.script = nil
	}
}

// updateSpawn walks spawning agents out of blocked areas.
func (s *Simulation) updateSpawn() {
	query := s.agentFilter.Query()
	for query.Next() {
		_, _, _, agent, _, spawning := query.Get()
		s.spawn.Update(spawning, agent)
	}
}

// updateWander sends idle agents on random walks. Spawning agents wait.
func (s *Simulation) updateWander() {
	query := s.agentFilter.Query()
	for query.Next() {
		_, _, _, agent, wander, spawning := query.Get()
		if spawning.Active {
			continue
		}
		s.wander.Update(wander, agent, s.dt)
	}
}

// updateMovement ticks every mover and records arrivals.
func (s *Simulation) updateMovement() {
	query := s.agentFilter.Query()
	for query.Next() {
		pos, vel, _, agent, _, _ := query.Get()
		if !systems.UpdateMovement(agent, pos, vel, s.dt) {
			continue
		}
		s.recordArrival(agent.ID, agent.Name, agent.Mover.LastTrip())
	}
}
