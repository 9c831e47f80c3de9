package game

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/trek/components"
	"github.com/pthm-cable/trek/config"
	"github.com/pthm-cable/trek/nav"
	"github.com/pthm-cable/trek/scenario"
)

// Load places a scenario's obstacles and agents and binds its script.
// Obstacles with a later appear_at tick are added by Step.
func (s *Simulation) Load(sc *scenario.Scenario) error {
	s.scenario = sc
	s.timelineIDs = make([]string, len(sc.Obstacles))
	s.lastEvent = sc.LastCommandTick()

	for i, spec := range sc.Obstacles {
		s.lastEvent = max(s.lastEvent, spec.AppearAt, spec.RemoveAt)
		if spec.AppearAt > 0 {
			continue
		}
		if err := s.placeObstacle(i); err != nil {
			return err
		}
	}

	for _, a := range sc.Agents {
		wander := config.Cfg().Wander.Enabled
		if a.Wander != nil {
			wander = *a.Wander
		}
		if _, err := s.AddAgent(AgentOptions{
			Name:     a.Name,
			Position: a.Position(),
			Speed:    a.Speed,
			Radius:   a.Radius,
			Spawning: a.Spawning,
			Wander:   wander,
		}); err != nil {
			return err
		}
	}

	if path := sc.ScriptPath(); path != "" {
		script, err := scenario.LoadScript(path, s, s.log)
		if err != nil {
			return err
		}
		s.script = script
	}

	s.log.Info("scenario loaded",
		"name", sc.Name,
		"agents", len(sc.Agents),
		"obstacles", s.obstacles.Len(),
		"commands", len(sc.Commands),
		"script", sc.ScriptPath(),
	)
	return nil
}

// placeObstacle adds the scenario obstacle at index i.
func (s *Simulation) placeObstacle(i int) error {
	o, err := s.scenario.Obstacles[i].Obstacle()
	if err != nil {
		return err
	}
	id, err := s.obstacles.Add(o)
	if err != nil {
		return err
	}
	s.timelineIDs[i] = id
	return nil
}

// AgentOptions places one agent. Zero speed or radius uses the configured default.
type AgentOptions struct {
	Name     string
	Position r2.Vec
	Speed    float64
	Radius   float64
	Spawning bool
	Wander   bool
}

// AddAgent creates an agent entity and returns its id.
func (s *Simulation) AddAgent(opts AgentOptions) (uint32, error) {
	if strings.TrimSpace(opts.Name) == "" {
		return 0, fmt.Errorf("agent name is required")
	}
	if _, exists := s.byName[opts.Name]; exists {
		return 0, fmt.Errorf("%w: %q", scenario.ErrDuplicateAgent, opts.Name)
	}

	body := components.BodyFromConfig(opts.Radius, opts.Speed)
	mover := nav.NewMover(s.obstacles, opts.Position, nav.MoverConfig{
		Speed:  body.Speed,
		Radius: body.Radius,
		Params: config.Cfg().Derived.NavParams,
		Logger: s.log.With("agent", opts.Name),
	})

	s.nextID++
	id := s.nextID

	pos := components.Position{X: opts.Position.X, Y: opts.Position.Y}
	vel := components.Velocity{}
	agent := components.Agent{ID: id, Name: opts.Name, Mover: mover}
	wander := components.Wander{Enabled: opts.Wander}
	s.wander.Reset(&wander)
	spawning := components.Spawning{Active: opts.Spawning}

	entity := s.agentMapper.NewEntity(&pos, &vel, &body, &agent, &wander, &spawning)
	s.byName[opts.Name] = entity
	s.names = append(s.names, opts.Name)
	s.lifetimeTracker.Register(id, opts.Name)

	s.log.Debug("agent added", "agent", opts.Name, "id", id,
		"x", opts.Position.X, "y", opts.Position.Y,
		"speed", body.Speed, "radius", body.Radius,
	)
	return id, nil
}

// RemoveAgent deletes an agent. Its activity since the last window is kept.
func (s *Simulation) RemoveAgent(name string) error {
	entity, ok := s.byName[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAgent, name)
	}
	agent := s.agentMap.Get(entity)
	s.collector.Observe(agent.ID, agent.Mover.Stats())
	s.collector.Forget(agent.ID)
	if stats := s.lifetimeTracker.Remove(agent.ID); stats != nil {
		s.log.Debug("agent removed", "agent", name, "arrivals", stats.Arrivals)
	}

	s.agentMapper.Remove(entity)
	delete(s.byName, name)
	for i, n := range s.names {
		if n == name {
			s.names = append(s.names[:i], s.names[i+1:]...)
			break
		}
	}
	return nil
}
