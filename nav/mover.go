package nav

import (
	"log/slog"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
)

// Agent defaults used when a MoverConfig leaves them unset.
const (
	DefaultSpeed  = 2.0
	DefaultRadius = 0.2

	stepSearchIterations = 12   // Bisection steps when a move is cut short by an obstacle
	contactSlop          = 1e-3 // Penetration the step check tolerates along planned segments
)

// State is the controller's externally visible state.
type State uint8

const (
	StateIdle      State = iota // No target
	StateFollowing              // Target set; plan may be empty (direct movement)
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFollowing:
		return "following"
	default:
		return "unknown"
	}
}

// ReplanReason identifies what caused a full replan.
type ReplanReason uint8

const (
	ReplanMoveTo   ReplanReason = iota // New target
	ReplanPeriodic                     // Recompute timer elapsed
	ReplanReactive                     // Segment to the active destination became blocked
	NumReplanReasons
)

func (r ReplanReason) String() string {
	switch r {
	case ReplanMoveTo:
		return "move_to"
	case ReplanPeriodic:
		return "periodic"
	case ReplanReactive:
		return "reactive"
	default:
		return "unknown"
	}
}

// MoverConfig configures a Mover at construction.
type MoverConfig struct {
	Speed  float64      // World units per second
	Radius float64      // Physical radius used for all obstacle queries
	Params Params       // Planning parameters
	Logger *slog.Logger // Debug logging of plan events (nil = slog.Default())
}

// MoverStats holds cumulative counters for one mover.
type MoverStats struct {
	MoveOrders  int
	Arrivals    int
	Stops       int
	Replans     [NumReplanReasons]int
	FailedPlans int // Plans that found no route (direct movement fallback)
	Relocations int // Blocked targets moved to a nearby free point
	SkipAheads  int // Cursor jumps past intermediate waypoints
	DirectSkips int // Remaining plans dropped because the target became visible
	PlanTime    time.Duration
	LastPlan    PlanStats
}

// TotalReplans returns the number of replans for all reasons.
func (s MoverStats) TotalReplans() int {
	total := 0
	for _, n := range s.Replans {
		total += n
	}
	return total
}

// Trip describes the movement order currently (or most recently) executed.
type Trip struct {
	Start     r2.Vec  // Position when the order was issued
	Target    r2.Vec  // Effective target after relocation
	Requested r2.Vec  // Target as requested by the caller
	Elapsed   float64 // Simulation seconds spent moving
	Travelled float64 // Distance actually covered
}

// Mover steers one agent toward a target through the obstacle layer.
// It is not safe for concurrent use; the host ticks it from the simulation loop.
type Mover struct {
	query   ObstacleQuery
	planner *Planner
	params  Params
	speed   float64
	radius  float64
	log     *slog.Logger

	pos r2.Vec
	vel r2.Vec

	target           r2.Vec
	hasTarget        bool
	onArrive         func()
	ignoreCollisions bool

	plan        []r2.Vec
	cursor      int
	planFailed  bool
	destClear   bool
	replanTimer float64

	trip     Trip
	lastTrip Trip
	stats    MoverStats
}

// NewMover creates an idle mover at pos.
func NewMover(q ObstacleQuery, pos r2.Vec, cfg MoverConfig) *Mover {
	if cfg.Speed <= 0 {
		cfg.Speed = DefaultSpeed
	}
	if cfg.Radius < 0 {
		cfg.Radius = 0
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	planner := NewPlanner(q, cfg.Params, cfg.Radius)
	return &Mover{
		query:   q,
		planner: planner,
		params:  planner.Params(),
		speed:   cfg.Speed,
		radius:  cfg.Radius,
		log:     cfg.Logger,
		pos:     pos,
	}
}

// Position returns the agent's current world position.
func (m *Mover) Position() r2.Vec { return m.pos }

// Velocity returns the displacement per second applied on the last tick.
func (m *Mover) Velocity() r2.Vec { return m.vel }

// Speed returns the movement speed.
func (m *Mover) Speed() float64 { return m.speed }

// SetSpeed changes the movement speed. Non-positive values are ignored.
func (m *Mover) SetSpeed(speed float64) {
	if speed > 0 {
		m.speed = speed
	}
}

// Radius returns the agent's physical radius.
func (m *Mover) Radius() float64 { return m.radius }

// Target returns the effective target and whether one is set.
func (m *Mover) Target() (r2.Vec, bool) { return m.target, m.hasTarget }

// State returns Idle or Following.
func (m *Mover) State() State {
	if m.hasTarget {
		return StateFollowing
	}
	return StateIdle
}

// IgnoreCollisions reports whether planning is bypassed.
func (m *Mover) IgnoreCollisions() bool { return m.ignoreCollisions }

// Waypoints returns a copy of the waypoints not yet reached.
func (m *Mover) Waypoints() []r2.Vec {
	if m.cursor >= len(m.plan) {
		return nil
	}
	out := make([]r2.Vec, len(m.plan)-m.cursor)
	copy(out, m.plan[m.cursor:])
	return out
}

// Stats returns cumulative counters.
func (m *Mover) Stats() MoverStats { return m.stats }

// Trip returns the order in progress.
func (m *Mover) Trip() Trip { return m.trip }

// LastTrip returns the most recently completed order.
func (m *Mover) LastTrip() Trip { return m.lastTrip }

// MoveTo sets a new target and plans immediately. Any previous plan and
// arrival callback are discarded without invoking the callback. A target that
// lies inside blocking geometry is first moved to the nearest free point on a
// set of expanding rings; if none is found the original target is kept.
func (m *Mover) MoveTo(target r2.Vec, onArrive func()) {
	m.stats.MoveOrders++
	m.clearPlan()
	m.onArrive = onArrive
	m.hasTarget = true
	m.planFailed = false
	m.destClear = false

	requested := target
	if !m.ignoreCollisions && !m.query.IsCircleFree(target, m.radius) {
		p := m.params
		if free, ok := NearestFreePoint(m.query, target, m.radius, p.RelocateRings, p.RelocateSteps, p.RelocateSpacing); ok {
			m.stats.Relocations++
			m.log.Debug("target relocated",
				"requested_x", target.X, "requested_y", target.Y,
				"x", free.X, "y", free.Y,
			)
			target = free
		}
	}
	m.target = target
	m.trip = Trip{Start: m.pos, Target: target, Requested: requested}

	if m.ignoreCollisions {
		return
	}
	m.replan(ReplanMoveTo)
}

// Stop clears the target, plan and callback without invoking the callback.
func (m *Mover) Stop() {
	m.stats.Stops++
	m.hasTarget = false
	m.onArrive = nil
	m.vel = r2.Vec{}
	m.clearPlan()
	m.planFailed = false
}

// SetIgnoreCollisions toggles straight-line movement that bypasses all
// planning and obstacle checks. Turning it off while moving replans on the
// next tick.
func (m *Mover) SetIgnoreCollisions(enabled bool) {
	if m.ignoreCollisions == enabled {
		return
	}
	m.ignoreCollisions = enabled
	m.clearPlan()
	m.planFailed = false
	m.destClear = false
	m.replanTimer = 0
}

// Warp teleports the agent. An active order is kept and replanned on the next tick.
func (m *Mover) Warp(pos r2.Vec) {
	m.pos = pos
	m.vel = r2.Vec{}
	m.clearPlan()
	m.destClear = false
	m.replanTimer = 0
}

// StandPosition returns target shifted by offset, with the X offset mirrored
// so the agent stands on its own side of the target.
func (m *Mover) StandPosition(target, offset r2.Vec) r2.Vec {
	xSign := 1.0
	if target.X-m.pos.X >= 0 {
		xSign = -1
	}
	return r2.Add(target, r2.Vec{X: offset.X * xSign, Y: offset.Y})
}

// Tick advances the agent by dt seconds.
func (m *Mover) Tick(dt float64) {
	if !m.hasTarget {
		m.vel = r2.Vec{}
		return
	}
	if m.reached(m.pos, m.target) {
		m.arrive()
		return
	}
	if dt <= 0 {
		m.vel = r2.Vec{}
		return
	}

	if m.ignoreCollisions {
		m.advance(dt)
		if m.reached(m.pos, m.target) {
			m.arrive()
		}
		return
	}

	m.replanTimer -= dt

	var reason ReplanReason
	replan := false

	if m.query.IsSegmentFree(m.pos, m.target, m.radius) {
		if m.cursor < len(m.plan) {
			m.stats.DirectSkips++
		}
		m.clearPlan()
		m.planFailed = false
		m.destClear = true
		m.replanTimer = m.params.ReplanInterval
	} else {
		m.skipAhead()

		if m.replanTimer <= 0 {
			replan, reason = true, ReplanPeriodic
		}

		clear := m.query.IsSegmentFree(m.pos, m.destination(), m.radius)
		if !replan && !clear && m.destClear && !m.planFailed {
			replan, reason = true, ReplanReactive
		}
		m.destClear = clear
	}

	if replan {
		m.replan(reason)
	}

	m.advance(dt)
	if m.reached(m.pos, m.target) {
		m.arrive()
	}
}

// destination is the point the agent is currently walking toward.
func (m *Mover) destination() r2.Vec {
	if m.cursor < len(m.plan) {
		return m.plan[m.cursor]
	}
	return m.target
}

// skipAhead moves the cursor to the furthest remaining waypoint with a clear
// segment from the current position.
func (m *Mover) skipAhead() {
	for j := len(m.plan) - 1; j > m.cursor; j-- {
		if m.query.IsSegmentFree(m.pos, m.plan[j], m.radius) {
			m.cursor = j
			m.stats.SkipAheads++
			m.destClear = true
			return
		}
	}
}

// replan rebuilds the plan from the live position.
func (m *Mover) replan(reason ReplanReason) {
	plan, stats := m.planner.Plan(m.pos, m.target)

	m.plan = plan
	m.cursor = 0
	m.planFailed = !stats.Found
	m.replanTimer = m.params.ReplanInterval

	m.stats.Replans[reason]++
	m.stats.PlanTime += stats.Duration
	m.stats.LastPlan = stats
	if m.planFailed {
		m.stats.FailedPlans++
		m.destClear = false
	} else {
		m.destClear = m.query.IsSegmentFree(m.pos, m.destination(), m.radius)
	}

	m.log.Debug("replan",
		"reason", reason.String(),
		"found", stats.Found,
		"direct", stats.Direct,
		"waypoints", stats.Waypoints,
		"iterations", stats.Iterations,
		"grid_w", stats.GridWidth,
		"grid_h", stats.GridHeight,
	)
}

// advance takes one capped linear step toward the active destination.
func (m *Mover) advance(dt float64) {
	following := m.cursor < len(m.plan)
	dest := m.destination()

	next := moveTowards(m.pos, dest, m.speed*dt)
	if !m.ignoreCollisions {
		next = m.clearStep(next)
	}
	delta := r2.Sub(next, m.pos)
	m.vel = r2.Scale(1/dt, delta)
	m.pos = next

	m.trip.Elapsed += dt
	m.trip.Travelled += r2.Norm(delta)

	if following && m.reached(next, dest) {
		m.cursor++
		m.destClear = true
	}
}

// clearStep shortens the step to next so the agent stops against obstacles
// instead of passing through them. An agent already overlapping geometry
// moves freely so it can leave it.
func (m *Mover) clearStep(next r2.Vec) r2.Vec {
	r := max(m.radius-contactSlop, 0)
	if next == m.pos || m.query.IsSegmentFree(m.pos, next, r) || !m.query.IsCircleFree(m.pos, r) {
		return next
	}
	d := r2.Sub(next, m.pos)
	lo, hi := 0.0, 1.0
	for i := 0; i < stepSearchIterations; i++ {
		mid := (lo + hi) / 2
		if m.query.IsSegmentFree(m.pos, r2.Add(m.pos, r2.Scale(mid, d)), r) {
			lo = mid
		} else {
			hi = mid
		}
	}
	return r2.Add(m.pos, r2.Scale(lo, d))
}

// arrive clears all movement state and fires the callback once.
func (m *Mover) arrive() {
	m.hasTarget = false
	m.vel = r2.Vec{}
	m.clearPlan()
	m.planFailed = false
	m.stats.Arrivals++
	m.lastTrip = m.trip

	cb := m.onArrive
	m.onArrive = nil
	if cb != nil {
		cb()
	}
}

func (m *Mover) clearPlan() {
	m.plan = nil
	m.cursor = 0
}

func (m *Mover) reached(a, b r2.Vec) bool {
	return r2.Norm2(r2.Sub(a, b)) <= m.params.ArriveEpsilon*m.params.ArriveEpsilon
}

// moveTowards moves from toward to by at most maxDelta without overshooting.
func moveTowards(from, to r2.Vec, maxDelta float64) r2.Vec {
	d := r2.Sub(to, from)
	dist := r2.Norm(d)
	if dist <= maxDelta || dist == 0 {
		return to
	}
	return r2.Add(from, r2.Scale(maxDelta/dist, d))
}
