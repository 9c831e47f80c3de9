// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/trek/nav"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Sim       SimConfig       `yaml:"sim"`
	World     WorldConfig     `yaml:"world"`
	Nav       NavConfig       `yaml:"nav"`
	Agent     AgentConfig     `yaml:"agent"`
	Wander    WanderConfig    `yaml:"wander"`
	Spawn     SpawnConfig     `yaml:"spawn"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// SimConfig holds the fixed-step loop settings.
type SimConfig struct {
	DT       float64 `yaml:"dt"`        // Seconds per tick
	MaxTicks int     `yaml:"max_ticks"` // Headless run length (0 = until every agent is idle)
}

// WorldConfig holds the walkable area used for wandering.
type WorldConfig struct {
	Width   float64 `yaml:"width"`
	Height  float64 `yaml:"height"`
	OriginX float64 `yaml:"origin_x"` // Lower-left corner
	OriginY float64 `yaml:"origin_y"`
}

// NavConfig holds path planning parameters.
type NavConfig struct {
	CellSize          float64 `yaml:"cell_size"`           // Grid spacing in world units
	Padding           float64 `yaml:"padding"`             // Margin around start/goal bounding box
	MaxGridDim        int     `yaml:"max_grid_dim"`        // Per-axis cell cap
	MaxIterations     int     `yaml:"max_iterations"`      // A* expansion budget
	ReplanInterval    float64 `yaml:"replan_interval"`     // Seconds between periodic replans
	ArriveEpsilon     float64 `yaml:"arrive_epsilon"`      // Arrival distance
	SweepCellFraction float64 `yaml:"sweep_cell_fraction"` // Extra cell sampling radius as a fraction of cell size
	RelocateRings     int     `yaml:"relocate_rings"`      // Rings searched for a free target
	RelocateSteps     int     `yaml:"relocate_steps"`      // Samples per ring
	RelocateSpacing   float64 `yaml:"relocate_spacing"`    // Distance between rings
}

// AgentConfig holds defaults for agents that don't override them.
type AgentConfig struct {
	Speed  float64 `yaml:"speed"`
	Radius float64 `yaml:"radius"`
}

// WanderConfig holds idle wandering parameters.
type WanderConfig struct {
	Enabled          bool    `yaml:"enabled"`           // Default for agents without an explicit setting
	MinDistance      float64 `yaml:"min_distance"`      // Shortest wander hop
	MaxDistance      float64 `yaml:"max_distance"`      // Longest wander hop
	Interval         float64 `yaml:"interval"`          // Mean seconds between hops
	IntervalVariance float64 `yaml:"interval_variance"` // +/- seconds applied to each interval
	MinIdle          float64 `yaml:"min_idle"`          // Seconds an agent must be idle before wandering
	MaxAttempts      int     `yaml:"max_attempts"`      // Candidate points tried per hop
	CheckRadius      float64 `yaml:"check_radius"`      // Clearance required at a wander point
	BoundsPadding    float64 `yaml:"bounds_padding"`    // Inset from the world edge
}

// SpawnConfig holds spawn placement parameters.
type SpawnConfig struct {
	CheckRadius  float64 `yaml:"check_radius"`  // Clearance required at a spawn point
	SearchRadius float64 `yaml:"search_radius"` // Ring spacing is search_radius * 0.5
	SearchSteps  int     `yaml:"search_steps"`
	SearchRings  int     `yaml:"search_rings"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`          // Seconds per stats window
	PerfCollectorWindow int     `yaml:"perf_collector_window"` // Ticks per perf average
}

// LoggingConfig holds slog settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	NavParams        nav.Params // Nav section as planner parameters
	TicksPerSecond   int        // Rounded 1/DT
	StatsWindowTicks int        // Telemetry window length in ticks
	SpawnSpacing     float64    // Ring spacing for spawn placement
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Set replaces the global configuration.
func Set(cfg *Config) {
	global = cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg, err := Defaults()
	if err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in the file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ComputeDerived()
	return cfg, nil
}

// Defaults returns the embedded default configuration.
func Defaults() (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	cfg.ComputeDerived()
	return cfg, nil
}

// Validate rejects values the simulation cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Sim.DT <= 0:
		return fmt.Errorf("config: sim.dt must be positive, got %v", c.Sim.DT)
	case c.Nav.CellSize <= 0:
		return fmt.Errorf("config: nav.cell_size must be positive, got %v", c.Nav.CellSize)
	case c.Nav.MaxGridDim < 1:
		return fmt.Errorf("config: nav.max_grid_dim must be at least 1, got %d", c.Nav.MaxGridDim)
	case c.Agent.Speed <= 0:
		return fmt.Errorf("config: agent.speed must be positive, got %v", c.Agent.Speed)
	case c.Agent.Radius < 0:
		return fmt.Errorf("config: agent.radius must not be negative, got %v", c.Agent.Radius)
	case c.Wander.MaxDistance < c.Wander.MinDistance:
		return fmt.Errorf("config: wander.max_distance %v below min_distance %v", c.Wander.MaxDistance, c.Wander.MinDistance)
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// ComputeDerived calculates values derived from loaded config.
// Call it again after changing fields programmatically.
func (c *Config) ComputeDerived() {
	c.Derived.NavParams = nav.Params{
		CellSize:          c.Nav.CellSize,
		Padding:           c.Nav.Padding,
		MaxGridDim:        c.Nav.MaxGridDim,
		SweepCellFraction: c.Nav.SweepCellFraction,
		MaxIterations:     c.Nav.MaxIterations,
		ReplanInterval:    c.Nav.ReplanInterval,
		ArriveEpsilon:     c.Nav.ArriveEpsilon,
		RelocateRings:     c.Nav.RelocateRings,
		RelocateSteps:     c.Nav.RelocateSteps,
		RelocateSpacing:   c.Nav.RelocateSpacing,
	}

	c.Derived.TicksPerSecond = 0
	c.Derived.StatsWindowTicks = 0
	if c.Sim.DT > 0 {
		c.Derived.TicksPerSecond = int(1.0/c.Sim.DT + 0.5)
		c.Derived.StatsWindowTicks = int(c.Telemetry.StatsWindow/c.Sim.DT + 0.5)
	}
	c.Derived.SpawnSpacing = c.Spawn.SearchRadius * 0.5
}

// SlogLevel returns the configured log level, Info when unset or invalid.
func (c *Config) SlogLevel() slog.Level {
	lvl, err := ParseLevel(c.Logging.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// ParseLevel converts a level name to a slog.Level. Empty means info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("config: unknown logging.level %q", name)
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
