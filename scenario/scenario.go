// Package scenario loads the YAML files that describe a headless run:
// the obstacle layout, the agents and a timeline of movement orders,
// optionally driven further by a tengo script.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/trek/obstacles"
)

var (
	ErrUnknownAgent    = errors.New("unknown agent")
	ErrDuplicateAgent  = errors.New("duplicate agent")
	ErrInvalidObstacle = errors.New("invalid obstacle")
	ErrInvalidCommand  = errors.New("invalid command")
)

// Command actions.
const (
	ActionMoveTo           = "move_to"
	ActionStop             = "stop"
	ActionIgnoreCollisions = "ignore_collisions"
)

// Scenario is a parsed scenario file.
type Scenario struct {
	Name      string         `yaml:"name"`
	Obstacles []ObstacleSpec `yaml:"obstacles"`
	Agents    []AgentSpec    `yaml:"agents"`
	Commands  []Command      `yaml:"commands"`
	Script    string         `yaml:"script"` // tengo file, relative to the scenario file

	path   string
	byTick map[int][]Command
}

// ObstacleSpec is a rect ({x, y, w, h}) or a circle ({x, y, r}).
type ObstacleSpec struct {
	ID       string  `yaml:"id"`
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
	W        float64 `yaml:"w"`
	H        float64 `yaml:"h"`
	R        float64 `yaml:"r"`
	AppearAt int     `yaml:"appear_at"` // Tick the obstacle is added
	RemoveAt int     `yaml:"remove_at"` // Tick the obstacle is removed (0 = never)
}

// Obstacle converts the spec into an obstacle definition.
func (o ObstacleSpec) Obstacle() (obstacles.Obstacle, error) {
	center := r2.Vec{X: o.X, Y: o.Y}
	rect := o.W != 0 || o.H != 0
	switch {
	case rect && o.R != 0:
		return obstacles.Obstacle{}, fmt.Errorf("%w %q: both size and radius set", ErrInvalidObstacle, o.ID)
	case rect:
		if o.W <= 0 || o.H <= 0 {
			return obstacles.Obstacle{}, fmt.Errorf("%w %q: size %vx%v", ErrInvalidObstacle, o.ID, o.W, o.H)
		}
		return obstacles.Obstacle{ID: o.ID, Kind: obstacles.KindRect, Center: center, Width: o.W, Height: o.H}, nil
	case o.R > 0:
		return obstacles.Obstacle{ID: o.ID, Kind: obstacles.KindCircle, Center: center, Radius: o.R}, nil
	default:
		return obstacles.Obstacle{}, fmt.Errorf("%w %q: needs w and h or r", ErrInvalidObstacle, o.ID)
	}
}

// AgentSpec places one agent. Zero speed or radius means the configured default.
type AgentSpec struct {
	Name     string  `yaml:"name"`
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
	Speed    float64 `yaml:"speed"`
	Radius   float64 `yaml:"radius"`
	Spawning bool    `yaml:"spawning"` // Walk out of blocked geometry on the first ticks
	Wander   *bool   `yaml:"wander"`   // nil = wander.enabled from config
}

// Position returns the spawn position.
func (a AgentSpec) Position() r2.Vec {
	return r2.Vec{X: a.X, Y: a.Y}
}

// Command is one timeline entry.
type Command struct {
	Tick    int     `yaml:"tick"`
	Agent   string  `yaml:"agent"`
	Action  string  `yaml:"action"`
	X       float64 `yaml:"x"`
	Y       float64 `yaml:"y"`
	Enabled bool    `yaml:"enabled"`
}

// Target returns the move_to destination.
func (c Command) Target() r2.Vec {
	return r2.Vec{X: c.X, Y: c.Y}
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	defer f.Close()

	s, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	s.path = path
	return s, nil
}

// Parse decodes and validates a scenario. Unknown keys are rejected.
func Parse(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	s := &Scenario{}
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// ParseBytes is Parse over an in-memory document.
func ParseBytes(data []byte) (*Scenario, error) {
	return Parse(bytes.NewReader(data))
}

// Validate checks names, shapes and the command timeline, and indexes
// commands by tick.
func (s *Scenario) Validate() error {
	agents := make(map[string]bool, len(s.Agents))
	for i, a := range s.Agents {
		if strings.TrimSpace(a.Name) == "" {
			return fmt.Errorf("agent %d: name is required", i)
		}
		if agents[a.Name] {
			return fmt.Errorf("%w: %q", ErrDuplicateAgent, a.Name)
		}
		if a.Speed < 0 || a.Radius < 0 {
			return fmt.Errorf("agent %q: negative speed or radius", a.Name)
		}
		agents[a.Name] = true
	}

	ids := make(map[string]bool, len(s.Obstacles))
	for _, o := range s.Obstacles {
		if _, err := o.Obstacle(); err != nil {
			return err
		}
		if o.AppearAt < 0 || (o.RemoveAt != 0 && o.RemoveAt <= o.AppearAt) {
			return fmt.Errorf("%w %q: remove_at %d must follow appear_at %d", ErrInvalidObstacle, o.ID, o.RemoveAt, o.AppearAt)
		}
		if o.ID == "" {
			continue
		}
		if ids[o.ID] {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidObstacle, o.ID)
		}
		ids[o.ID] = true
	}

	s.byTick = make(map[int][]Command)
	for i, c := range s.Commands {
		if !agents[c.Agent] {
			return fmt.Errorf("command %d: %w: %q", i, ErrUnknownAgent, c.Agent)
		}
		if c.Tick < 0 {
			return fmt.Errorf("command %d: %w: negative tick %d", i, ErrInvalidCommand, c.Tick)
		}
		switch c.Action {
		case ActionMoveTo, ActionStop, ActionIgnoreCollisions:
		default:
			return fmt.Errorf("command %d: %w: action %q", i, ErrInvalidCommand, c.Action)
		}
		s.byTick[c.Tick] = append(s.byTick[c.Tick], c)
	}
	return nil
}

// CommandsAt returns the commands scheduled for tick in file order.
func (s *Scenario) CommandsAt(tick int) []Command {
	return s.byTick[tick]
}

// LastCommandTick returns the tick of the latest command, -1 if there are none.
func (s *Scenario) LastCommandTick() int {
	last := -1
	for _, c := range s.Commands {
		if c.Tick > last {
			last = c.Tick
		}
	}
	return last
}

// Path returns the file the scenario was loaded from.
func (s *Scenario) Path() string {
	return s.path
}

// ScriptPath resolves the script relative to the scenario file.
// Returns "" when no script is set.
func (s *Scenario) ScriptPath() string {
	if s.Script == "" {
		return ""
	}
	if filepath.IsAbs(s.Script) || s.path == "" {
		return s.Script
	}
	return filepath.Join(filepath.Dir(s.path), s.Script)
}
