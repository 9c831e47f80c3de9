package telemetry

import (
	"time"

	"github.com/pthm-cable/trek/nav"
)

// Collector accumulates mover activity within time windows and produces WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int32
	dt                  float64

	// Current window tracking
	windowStartTick int32

	// Last observed cumulative stats per agent
	last map[uint32]nav.MoverStats

	// Counters for current window
	moveOrders  int
	arrivals    int
	stops       int
	replans     [nav.NumReplanReasons]int
	failedPlans int
	relocations int
	skipAheads  int
	directSkips int
	planTime    time.Duration

	travelTimes []float64
	pathRatios  []float64
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec, dt float64) *Collector {
	ticksPerWindow := int32(windowDurationSec/dt + 0.5)
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
		last:                make(map[uint32]nav.MoverStats),
	}
}

// Observe folds the change in an agent's cumulative mover stats into the window.
func (c *Collector) Observe(agentID uint32, s nav.MoverStats) {
	prev := c.last[agentID]
	c.last[agentID] = s

	c.moveOrders += s.MoveOrders - prev.MoveOrders
	c.arrivals += s.Arrivals - prev.Arrivals
	c.stops += s.Stops - prev.Stops
	for i := range c.replans {
		c.replans[i] += s.Replans[i] - prev.Replans[i]
	}
	c.failedPlans += s.FailedPlans - prev.FailedPlans
	c.relocations += s.Relocations - prev.Relocations
	c.skipAheads += s.SkipAheads - prev.SkipAheads
	c.directSkips += s.DirectSkips - prev.DirectSkips
	c.planTime += s.PlanTime - prev.PlanTime
}

// Forget drops an agent's baseline, e.g. after the agent is removed.
func (c *Collector) Forget(agentID uint32) {
	delete(c.last, agentID)
}

// RecordArrival adds a completed trip to the window's distributions.
func (c *Collector) RecordArrival(rec ArrivalRecord) {
	c.travelTimes = append(c.travelTimes, rec.TravelTime)
	c.pathRatios = append(c.pathRatios, rec.PathRatio)
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Pending reports whether ticks have passed since the last flush.
func (c *Collector) Pending(currentTick int32) bool {
	return currentTick > c.windowStartTick
}

// Flush produces a WindowStats and resets counters for the next window.
// agents, moving and spawning are population counts at the end of the window.
func (c *Collector) Flush(currentTick int32, agents, moving, spawning int) WindowStats {
	travel := Summarize(c.travelTimes)
	ratio := Summarize(c.pathRatios)

	totalReplans := 0
	for _, n := range c.replans {
		totalReplans += n
	}
	var meanPlan float64
	if totalReplans > 0 {
		meanPlan = float64(c.planTime.Microseconds()) / float64(totalReplans)
	}

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		Agents:   agents,
		Moving:   moving,
		Spawning: spawning,

		MoveOrders: c.moveOrders,
		Arrivals:   c.arrivals,
		Stops:      c.stops,

		ReplansMoveTo:   c.replans[nav.ReplanMoveTo],
		ReplansPeriodic: c.replans[nav.ReplanPeriodic],
		ReplansReactive: c.replans[nav.ReplanReactive],
		FailedPlans:     c.failedPlans,
		Relocations:     c.relocations,
		SkipAheads:      c.skipAheads,
		DirectSkips:     c.directSkips,
		PlanTimeUS:      c.planTime.Microseconds(),
		MeanPlanUS:      meanPlan,

		TravelTimeMean: travel.Mean,
		TravelTimeStd:  travel.Std,
		TravelTimeP50:  travel.P50,
		TravelTimeP90:  travel.P90,

		PathRatioMean: ratio.Mean,
		PathRatioStd:  ratio.Std,
		PathRatioP50:  ratio.P50,
		PathRatioP90:  ratio.P90,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.moveOrders = 0
	c.arrivals = 0
	c.stops = 0
	c.replans = [nav.NumReplanReasons]int{}
	c.failedPlans = 0
	c.relocations = 0
	c.skipAheads = 0
	c.directSkips = 0
	c.planTime = 0
	c.travelTimes = c.travelTimes[:0]
	c.pathRatios = c.pathRatios[:0]

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
