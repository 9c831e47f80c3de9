// Package game hosts agents on an ECS world and steps them through
// scripted orders, spawn placement, idle wandering and movement.
package game

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/trek/components"
	"github.com/pthm-cable/trek/config"
	"github.com/pthm-cable/trek/obstacles"
	"github.com/pthm-cable/trek/scenario"
	"github.com/pthm-cable/trek/systems"
	"github.com/pthm-cable/trek/telemetry"
)

// ErrUnknownAgent is returned for names no agent carries.
var ErrUnknownAgent = scenario.ErrUnknownAgent

// bookmarkHistory is the number of windows bookmarks compare against.
const bookmarkHistory = 10

// Options configures a Simulation.
type Options struct {
	Seed           int64
	LogStats       bool    // Log window stats and bookmarks
	StatsWindowSec float64 // 0 = telemetry.stats_window from config
	OutputDir      string  // CSV output directory ("" = disabled)
	Logger         *slog.Logger

	// Optional hooks
	StatsCallback   func(telemetry.WindowStats)
	ArrivalCallback func(telemetry.ArrivalRecord)
}

// Simulation holds the complete simulation state.
type Simulation struct {
	world *ecs.World
	rng   *rand.Rand
	log   *slog.Logger
	dt    float64

	// Entity mappers
	agentMapper *ecs.Map6[
		components.Position,
		components.Velocity,
		components.Body,
		components.Agent,
		components.Wander,
		components.Spawning,
	]
	agentFilter *ecs.Filter6[
		components.Position,
		components.Velocity,
		components.Body,
		components.Agent,
		components.Wander,
		components.Spawning,
	]
	agentMap *ecs.Map1[components.Agent]

	// Agents by name, and names in spawn order
	byName map[string]ecs.Entity
	names  []string

	obstacles *obstacles.World
	spawn     *systems.SpawnSystem
	wander    *systems.WanderSystem

	// Scenario timeline
	scenario    *scenario.Scenario
	script      *scenario.Script
	timelineIDs []string // Obstacle ids by scenario index
	lastEvent   int

	// Telemetry
	collector        *telemetry.Collector
	lifetimeTracker  *telemetry.LifetimeTracker
	bookmarkDetector *telemetry.BookmarkDetector
	perfCollector    *telemetry.PerfCollector
	outputManager    *telemetry.OutputManager
	statsCallback    func(telemetry.WindowStats)
	arrivalCallback  func(telemetry.ArrivalRecord)
	logStats         bool

	// State
	tick     int32
	nextID   uint32
	arrivals int
}

// NewSimulation creates an empty simulation using the global config.
func NewSimulation(opts Options) (*Simulation, error) {
	cfg := config.Cfg()
	world := ecs.NewWorld()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	statsWindow := cfg.Telemetry.StatsWindow
	if opts.StatsWindowSec > 0 {
		statsWindow = opts.StatsWindowSec
	}

	output, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	if err := output.WriteConfig(cfg); err != nil {
		output.Close()
		return nil, err
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	obs := obstacles.NewWorld()

	s := &Simulation{
		world: world,
		rng:   rng,
		log:   logger,
		dt:    cfg.Sim.DT,
		agentMapper: ecs.NewMap6[
			components.Position,
			components.Velocity,
			components.Body,
			components.Agent,
			components.Wander,
			components.Spawning,
		](world),
		agentFilter: ecs.NewFilter6[
			components.Position,
			components.Velocity,
			components.Body,
			components.Agent,
			components.Wander,
			components.Spawning,
		](world),
		agentMap: ecs.NewMap1[components.Agent](world),
		byName:   make(map[string]ecs.Entity),

		obstacles: obs,
		spawn:     systems.NewSpawnSystem(obs),
		wander:    systems.NewWanderSystem(obs, rng),
		lastEvent: -1,

		collector:        telemetry.NewCollector(statsWindow, cfg.Sim.DT),
		lifetimeTracker:  telemetry.NewLifetimeTracker(),
		bookmarkDetector: telemetry.NewBookmarkDetector(bookmarkHistory),
		perfCollector:    telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		outputManager:    output,
		statsCallback:    opts.StatsCallback,
		arrivalCallback:  opts.ArrivalCallback,
		logStats:         opts.LogStats,
	}
	return s, nil
}

// NewFromScenario creates a simulation and loads sc into it.
func NewFromScenario(sc *scenario.Scenario, opts Options) (*Simulation, error) {
	s, err := NewSimulation(opts)
	if err != nil {
		return nil, err
	}
	if err := s.Load(sc); err != nil {
		s.Close()
		return nil, fmt.Errorf("loading scenario: %w", err)
	}
	return s, nil
}

// Tick returns the number of completed steps.
func (s *Simulation) Tick() int32 {
	return s.tick
}

// Time returns elapsed simulation seconds.
func (s *Simulation) Time() float64 {
	return float64(s.tick) * s.dt
}

// Arrivals returns the number of completed movement orders.
func (s *Simulation) Arrivals() int {
	return s.arrivals
}

// Obstacles returns the obstacle layer.
func (s *Simulation) Obstacles() *obstacles.World {
	return s.obstacles
}

// Perf returns the step timing collector.
func (s *Simulation) Perf() *telemetry.PerfCollector {
	return s.perfCollector
}

// Close flushes the last partial window, writes per-agent totals and
// closes output files.
func (s *Simulation) Close() error {
	if s.collector.Pending(s.tick) {
		s.observeAgents()
		s.emitWindow()
	}
	if err := s.outputManager.WriteLifetime(s.lifetimeTracker.All()); err != nil {
		s.log.Error("failed to write agent totals", "error", err)
	}
	return s.outputManager.Close()
}
