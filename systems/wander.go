package systems

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/trek/components"
	"github.com/pthm-cable/trek/config"
	"github.com/pthm-cable/trek/nav"
)

const (
	minWanderTimer    = 0.5 // Floor on the randomized interval
	returnIdleDelay   = 0.5 // Idle seconds before an out-of-bounds agent is sent back
	returnStep        = 0.5 // Probe spacing toward the bounds centre
	returnMaxDistance = 5.0
	idleSpeedSq       = 0.01 // Squared speed below which an agent counts as stationary
)

// WanderSystem sends idle agents on short random walks and returns agents
// that drifted outside the world bounds.
type WanderSystem struct {
	cfg    config.WanderConfig
	bounds Bounds
	query  nav.ObstacleQuery
	rng    *rand.Rand
}

// NewWanderSystem creates a wander system from the global config.
func NewWanderSystem(q nav.ObstacleQuery, rng *rand.Rand) *WanderSystem {
	cfg := config.Cfg()
	return &WanderSystem{
		cfg:    cfg.Wander,
		bounds: BoundsFromConfig(cfg.World),
		query:  q,
		rng:    rng,
	}
}

// Reset randomizes the wait before the next wander attempt.
func (s *WanderSystem) Reset(w *components.Wander) {
	t := s.cfg.Interval
	if s.cfg.IntervalVariance > 0 {
		t += (s.rng.Float64()*2 - 1) * s.cfg.IntervalVariance
	}
	w.Timer = math.Max(minWanderTimer, t)
}

// Update advances wandering for one agent. Returns true when a new order was issued.
func (s *WanderSystem) Update(w *components.Wander, agent *components.Agent, dt float64) bool {
	m := agent.Mover
	if !w.Enabled || m == nil {
		return false
	}

	if !isIdle(m) {
		w.IdleTime = 0
		return false
	}
	// Previous order finished or was stopped
	w.Wandering = false
	w.IdleTime += dt

	pos := m.Position()
	if w.IdleTime > returnIdleDelay && !s.bounds.Contains(pos, s.cfg.BoundsPadding) {
		if p, ok := s.returnPoint(pos); ok {
			m.MoveTo(p, nil)
			w.Wandering = true
			return true
		}
		return false
	}

	if w.IdleTime < s.cfg.MinIdle {
		return false
	}

	w.Timer -= dt
	if w.Timer > 0 {
		return false
	}
	s.Reset(w)

	p, ok := s.wanderPoint(pos)
	if !ok {
		return false
	}
	m.MoveTo(p, nil)
	w.Wandering = true
	return true
}

func isIdle(m *nav.Mover) bool {
	return m.State() == nav.StateIdle && r2.Norm2(m.Velocity()) <= idleSpeedSq
}

// valid reports whether p is clear and inside the padded bounds.
func (s *WanderSystem) valid(p r2.Vec) bool {
	return s.query.IsCircleFree(p, s.cfg.CheckRadius) && s.bounds.Contains(p, s.cfg.BoundsPadding)
}

// wanderPoint samples random points in an annulus around pos.
func (s *WanderSystem) wanderPoint(pos r2.Vec) (r2.Vec, bool) {
	for i := 0; i < s.cfg.MaxAttempts; i++ {
		angle := s.rng.Float64() * 2 * math.Pi
		dist := s.cfg.MinDistance + s.rng.Float64()*(s.cfg.MaxDistance-s.cfg.MinDistance)
		p := r2.Add(pos, r2.Vec{X: math.Cos(angle) * dist, Y: math.Sin(angle) * dist})
		if s.valid(p) {
			return p, true
		}
	}
	return pos, false
}

// returnPoint probes toward the bounds centre, then the centre itself,
// then random points in the inner part of the bounds.
func (s *WanderSystem) returnPoint(pos r2.Vec) (r2.Vec, bool) {
	center := s.bounds.Center()
	if toCenter := r2.Sub(center, pos); r2.Norm(toCenter) > 0 {
		dir := r2.Unit(toCenter)
		for d := returnStep; d <= returnMaxDistance; d += returnStep {
			p := r2.Add(pos, r2.Scale(d, dir))
			if s.valid(p) {
				return p, true
			}
		}
	}
	if s.valid(center) {
		return center, true
	}
	for i := 0; i < s.cfg.MaxAttempts*2; i++ {
		p := s.bounds.At(0.2+0.6*s.rng.Float64(), 0.2+0.6*s.rng.Float64())
		if s.query.IsCircleFree(p, s.cfg.CheckRadius) {
			return p, true
		}
	}
	return pos, false
}
