package nav

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

const testDT = 1.0 / 60

// runUntilIdle ticks m until it arrives or maxTicks elapse, calling check after each tick.
func runUntilIdle(m *Mover, maxTicks int, check func(tick int)) int {
	for tick := 0; tick < maxTicks; tick++ {
		if m.State() == StateIdle {
			return tick
		}
		m.Tick(testDT)
		if check != nil {
			check(tick)
		}
	}
	return maxTicks
}

func newTestMover(w ObstacleQuery, pos r2.Vec) *Mover {
	return NewMover(w, pos, MoverConfig{Speed: 2, Radius: 0.2, Params: DefaultParams()})
}

// TestMoverDetoursAroundBox verifies an agent walks around a blocking box and arrives once.
func TestMoverDetoursAroundBox(t *testing.T) {
	w := &testWorld{}
	w.addBox(0, 0, 2, 2)
	m := newTestMover(w, vec(-3, 0))

	calls := 0
	m.MoveTo(vec(3, 0), func() { calls++ })

	if m.Stats().LastPlan.Direct {
		t.Fatal("blocked target planned as direct")
	}
	if len(m.Waypoints()) == 0 {
		t.Fatal("no waypoints planned around box")
	}

	travelled := 0.0
	prev := m.Position()
	runUntilIdle(m, 2000, func(int) {
		pos := m.Position()
		travelled += r2.Norm(r2.Sub(pos, prev))
		prev = pos
		if d := w.distance(pos); d < m.Radius()-0.02 {
			t.Fatalf("agent at %v is %v from the box, radius %v", pos, d, m.Radius())
		}
	})

	if m.State() != StateIdle {
		t.Fatalf("agent did not arrive, at %v", m.Position())
	}
	if !near(m.Position(), vec(3, 0), 1e-6) {
		t.Errorf("final position %v, want (3,0)", m.Position())
	}
	if travelled < 6 {
		t.Errorf("travelled %v, want at least the straight-line 6", travelled)
	}
	if calls != 1 {
		t.Errorf("callback fired %d times, want 1", calls)
	}

	for i := 0; i < 10; i++ {
		m.Tick(testDT)
	}
	if calls != 1 {
		t.Errorf("callback fired again after arrival: %d", calls)
	}
	if s := m.Stats(); s.Arrivals != 1 || s.MoveOrders != 1 {
		t.Errorf("stats = %+v, want 1 order and 1 arrival", s)
	}
}

// TestMoverOpenField verifies a visible target produces no waypoints and straight motion.
func TestMoverOpenField(t *testing.T) {
	m := newTestMover(&testWorld{}, vec(0, 0))
	m.MoveTo(vec(5, 0), nil)

	if len(m.Waypoints()) != 0 {
		t.Errorf("waypoints in open field: %v", m.Waypoints())
	}
	if !m.Stats().LastPlan.Direct {
		t.Error("open field plan not marked direct")
	}

	runUntilIdle(m, 1000, func(int) {
		if pos := m.Position(); math.Abs(pos.Y) > 1e-12 {
			t.Fatalf("left the straight line at %v", pos)
		}
		if len(m.Waypoints()) != 0 {
			t.Fatal("waypoints appeared in open field")
		}
	})
	if m.State() != StateIdle {
		t.Fatal("did not arrive")
	}
	if s := m.Stats(); s.TotalReplans() != 1 {
		t.Errorf("replans = %d, want only the initial plan", s.TotalReplans())
	}
}

// TestMoverSpeedCap verifies the per-tick step never exceeds speed*dt.
func TestMoverSpeedCap(t *testing.T) {
	m := newTestMover(&testWorld{}, vec(0, 0))
	m.MoveTo(vec(1, 1), nil)

	limit := m.Speed()*testDT + 1e-12
	prev := m.Position()
	runUntilIdle(m, 1000, func(int) {
		if step := r2.Norm(r2.Sub(m.Position(), prev)); step > limit {
			t.Fatalf("step %v exceeds %v", step, limit)
		}
		prev = m.Position()
	})
}

// TestMoverRelocatesBlockedTarget verifies a target inside geometry moves to the nearest free ring point.
func TestMoverRelocatesBlockedTarget(t *testing.T) {
	w := &testWorld{}
	w.addBox(0, 0, 2, 2)
	m := newTestMover(w, vec(-3, 0))

	calls := 0
	m.MoveTo(vec(0, 0), func() { calls++ })

	target, ok := m.Target()
	if !ok {
		t.Fatal("no target after MoveTo")
	}
	if !near(target, vec(1.5, 0), 1e-9) {
		t.Errorf("relocated target = %v, want (1.5,0)", target)
	}
	if !w.IsCircleFree(target, m.Radius()) {
		t.Errorf("relocated target %v is not free", target)
	}
	if m.Trip().Requested != vec(0, 0) {
		t.Errorf("requested target = %v, want (0,0)", m.Trip().Requested)
	}
	if m.Stats().Relocations != 1 {
		t.Errorf("relocations = %d, want 1", m.Stats().Relocations)
	}

	runUntilIdle(m, 2000, nil)
	if calls != 1 {
		t.Errorf("callback fired %d times, want 1", calls)
	}
}

// TestMoverKeepsUnrelocatableTarget verifies the original target survives a failed relocation.
func TestMoverKeepsUnrelocatableTarget(t *testing.T) {
	w := &testWorld{}
	w.addBox(0, 0, 20, 20)
	m := newTestMover(w, vec(-15, 0))
	m.MoveTo(vec(0, 0), nil)

	if target, _ := m.Target(); target != vec(0, 0) {
		t.Errorf("target = %v, want original (0,0)", target)
	}
	if m.Stats().Relocations != 0 {
		t.Errorf("relocations = %d, want 0", m.Stats().Relocations)
	}
}

// TestMoverReactiveReplan verifies an obstacle dropped across a clear route triggers a replan.
func TestMoverReactiveReplan(t *testing.T) {
	w := &testWorld{}
	m := newTestMover(w, vec(-3, 0))
	m.MoveTo(vec(3, 0), nil)

	for i := 0; i < 30; i++ {
		m.Tick(testDT)
	}
	if len(m.Waypoints()) != 0 {
		t.Fatal("unexpected waypoints before obstacle appears")
	}

	w.addBox(0, 0, 2, 2)
	before := m.Stats().Replans[ReplanReactive]
	m.Tick(testDT)
	if got := m.Stats().Replans[ReplanReactive]; got != before+1 {
		t.Fatalf("reactive replans = %d, want %d", got, before+1)
	}
	if len(m.Waypoints()) == 0 {
		t.Fatal("no detour after obstacle appeared")
	}

	runUntilIdle(m, 2000, func(int) {
		if w.inside(m.Position()) {
			t.Fatalf("agent entered the box at %v", m.Position())
		}
	})
	if m.State() != StateIdle {
		t.Errorf("did not arrive after reactive replan, at %v", m.Position())
	}
}

// TestMoverPeriodicReplan verifies the recompute timer triggers replans while a plan is followed.
func TestMoverPeriodicReplan(t *testing.T) {
	w := &testWorld{}
	w.addBox(0, 0, 2, 2)
	m := newTestMover(w, vec(-3, 0))
	m.MoveTo(vec(3, 0), nil)

	ticks := int(math.Ceil(DefaultParams().ReplanInterval/testDT)) + 2
	for i := 0; i < ticks; i++ {
		m.Tick(testDT)
	}
	if m.Stats().Replans[ReplanPeriodic] == 0 && m.Stats().DirectSkips == 0 {
		t.Errorf("no periodic replan after %d ticks: %+v", ticks, m.Stats())
	}
}

// TestMoverStopSuppressesCallback verifies Stop clears the order without a callback.
func TestMoverStopSuppressesCallback(t *testing.T) {
	m := newTestMover(&testWorld{}, vec(0, 0))
	calls := 0
	m.MoveTo(vec(5, 0), func() { calls++ })
	m.Tick(testDT)
	m.Stop()

	if m.State() != StateIdle {
		t.Errorf("state after Stop = %v", m.State())
	}
	if m.Velocity() != (r2.Vec{}) {
		t.Errorf("velocity after Stop = %v", m.Velocity())
	}
	pos := m.Position()
	for i := 0; i < 100; i++ {
		m.Tick(testDT)
	}
	if calls != 0 {
		t.Errorf("callback fired %d times after Stop", calls)
	}
	if m.Position() != pos {
		t.Errorf("agent moved after Stop: %v -> %v", pos, m.Position())
	}
}

// TestMoverSupersededOrder verifies a replaced order never fires its callback.
func TestMoverSupersededOrder(t *testing.T) {
	m := newTestMover(&testWorld{}, vec(0, 0))
	first, second := 0, 0
	m.MoveTo(vec(5, 0), func() { first++ })
	m.Tick(testDT)
	m.MoveTo(vec(0, 1), func() { second++ })

	runUntilIdle(m, 1000, nil)
	if first != 0 {
		t.Errorf("superseded callback fired %d times", first)
	}
	if second != 1 {
		t.Errorf("active callback fired %d times, want 1", second)
	}
}

// TestMoverCallbackCanReissue verifies a callback may issue a new order from inside arrival.
func TestMoverCallbackCanReissue(t *testing.T) {
	m := newTestMover(&testWorld{}, vec(0, 0))
	legs := 0
	var next func()
	next = func() {
		legs++
		if legs < 3 {
			m.MoveTo(vec(float64(legs+1), 0), next)
		}
	}
	m.MoveTo(vec(1, 0), next)

	for i := 0; i < 1000 && legs < 3; i++ {
		m.Tick(testDT)
	}
	if legs != 3 {
		t.Fatalf("completed %d legs, want 3", legs)
	}
	if !near(m.Position(), vec(3, 0), 1e-6) {
		t.Errorf("final position %v, want (3,0)", m.Position())
	}
}

// TestMoverArriveAtCurrentPosition verifies a target at the agent's feet arrives on the next tick.
func TestMoverArriveAtCurrentPosition(t *testing.T) {
	m := newTestMover(&testWorld{}, vec(1, 1))
	calls := 0
	m.MoveTo(vec(1, 1), func() { calls++ })
	m.Tick(testDT)
	if calls != 1 || m.State() != StateIdle {
		t.Errorf("calls=%d state=%v, want immediate arrival", calls, m.State())
	}
}

// TestMoverZeroDT verifies a zero-length tick does not move the agent.
func TestMoverZeroDT(t *testing.T) {
	m := newTestMover(&testWorld{}, vec(0, 0))
	m.MoveTo(vec(5, 0), nil)
	m.Tick(0)
	if m.Position() != vec(0, 0) {
		t.Errorf("moved on zero dt: %v", m.Position())
	}
}

// TestMoverIgnoreCollisions verifies straight movement through geometry without planning.
func TestMoverIgnoreCollisions(t *testing.T) {
	w := &testWorld{}
	w.addBox(0, 0, 2, 2)
	m := newTestMover(w, vec(-3, 0))
	m.SetIgnoreCollisions(true)

	calls := 0
	m.MoveTo(vec(3, 0), func() { calls++ })
	if len(m.Waypoints()) != 0 {
		t.Errorf("waypoints while ignoring collisions: %v", m.Waypoints())
	}

	runUntilIdle(m, 1000, func(int) {
		if pos := m.Position(); math.Abs(pos.Y) > 1e-12 {
			t.Fatalf("left the straight line at %v", pos)
		}
	})
	if calls != 1 {
		t.Errorf("callback fired %d times, want 1", calls)
	}
	if s := m.Stats(); s.TotalReplans() != 0 || s.Relocations != 0 {
		t.Errorf("planning ran while ignoring collisions: %+v", s)
	}
}

// TestMoverNoRouteFallsBack verifies an unreachable target moves directly and retries only on the timer.
func TestMoverNoRouteFallsBack(t *testing.T) {
	w := &testWorld{}
	w.addBox(-1.4, 0, 0.4, 3.2)
	w.addBox(1.4, 0, 0.4, 3.2)
	w.addBox(0, 1.4, 3.2, 0.4)
	w.addBox(0, -1.4, 3.2, 0.4)

	m := newTestMover(w, vec(-4, 0))
	m.MoveTo(vec(0, 0), nil)

	s := m.Stats()
	if s.FailedPlans != 1 || s.LastPlan.Found {
		t.Fatalf("plan into closed box did not fail: %+v", s)
	}
	if len(m.Waypoints()) != 0 || m.State() != StateFollowing {
		t.Fatalf("waypoints=%v state=%v, want empty plan while following", m.Waypoints(), m.State())
	}

	for i := 0; i < 10; i++ {
		m.Tick(testDT)
	}
	if v := m.Velocity(); v.X <= 0 || math.Abs(v.Y) > 1e-12 {
		t.Errorf("velocity = %v, want straight toward target", v)
	}
	if s := m.Stats(); s.TotalReplans() != 1 {
		t.Errorf("replans = %d before the timer elapsed, want 1", s.TotalReplans())
	}
}

// TestMoverStallsWithoutRoute verifies an agent with no route stops against
// the blocking geometry instead of walking through it.
func TestMoverStallsWithoutRoute(t *testing.T) {
	tests := []struct {
		name       string
		build      func(w *testWorld)
		target     r2.Vec
		iterations int
		minX, maxX float64
	}{
		{
			name: "enclosed target",
			build: func(w *testWorld) {
				w.addBox(-1.4, 0, 0.4, 3.2)
				w.addBox(1.4, 0, 0.4, 3.2)
				w.addBox(0, 1.4, 3.2, 0.4)
				w.addBox(0, -1.4, 3.2, 0.4)
			},
			target: vec(0, 0),
			minX:   -1.85, maxX: -1.79,
		},
		{
			name:       "search budget exhausted",
			build:      func(w *testWorld) { w.addBox(0, 0, 0.4, 6) },
			target:     vec(3, 0),
			iterations: 1,
			minX:       -0.45, maxX: -0.39,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &testWorld{}
			tt.build(w)
			params := DefaultParams()
			if tt.iterations > 0 {
				params.MaxIterations = tt.iterations
			}
			m := NewMover(w, vec(-3, 0), MoverConfig{Speed: 2, Radius: 0.2, Params: params})

			calls := 0
			m.MoveTo(tt.target, func() { calls++ })
			runUntilIdle(m, 600, func(int) {
				if w.inside(m.Position()) {
					t.Fatalf("agent entered an obstacle at %v", m.Position())
				}
			})

			pos := m.Position()
			if pos.X < tt.minX || pos.X > tt.maxX || math.Abs(pos.Y) > 1e-9 {
				t.Errorf("position = %v, want pressed against the wall with x in [%v, %v]", pos, tt.minX, tt.maxX)
			}
			if !w.IsCircleFree(pos, 0.2-contactSlop) {
				t.Errorf("agent overlaps geometry at %v", pos)
			}
			if m.State() != StateFollowing || calls != 0 {
				t.Errorf("state=%v calls=%d, want still following with no arrival", m.State(), calls)
			}
			if s := m.Stats(); s.FailedPlans < 2 {
				t.Errorf("failed plans = %d, want periodic retries", s.FailedPlans)
			}
			if v := m.Velocity(); r2.Norm(v) > 1e-3 {
				t.Errorf("velocity = %v, want stalled", v)
			}
		})
	}
}

// TestMoverSkipAhead verifies the cursor jumps to the furthest visible waypoint only.
func TestMoverSkipAhead(t *testing.T) {
	w := &testWorld{}
	w.addBox(3, 2, 1.5, 1.5)
	m := newTestMover(w, vec(0, 0))
	m.target, m.hasTarget = vec(4, 4), true
	m.plan = []r2.Vec{vec(1, 0), vec(2, 0), vec(4, 2), vec(4, 4)}

	m.skipAhead()
	if m.cursor != 1 {
		t.Fatalf("cursor = %d, want 1", m.cursor)
	}
	if !w.IsSegmentFree(m.pos, m.plan[m.cursor], m.radius) {
		t.Errorf("skipped to blocked waypoint %v", m.plan[m.cursor])
	}
	if m.Stats().SkipAheads != 1 {
		t.Errorf("skip aheads = %d, want 1", m.Stats().SkipAheads)
	}
}

// TestStandPosition verifies the X offset is mirrored toward the agent's side.
func TestStandPosition(t *testing.T) {
	tests := []struct {
		name   string
		agent  r2.Vec
		target r2.Vec
		want   r2.Vec
	}{
		{"agent left", vec(-5, 0), vec(0, 0), vec(-1, 0.5)},
		{"agent right", vec(5, 0), vec(0, 0), vec(1, 0.5)},
		{"agent above", vec(0, 5), vec(0, 0), vec(-1, 0.5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMover(&testWorld{}, tt.agent)
			if got := m.StandPosition(tt.target, vec(1, 0.5)); !near(got, tt.want, 1e-12) {
				t.Errorf("StandPosition = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestNearestFreePoint verifies ring order and the search bound.
func TestNearestFreePoint(t *testing.T) {
	w := &testWorld{}
	w.addBox(0, 0, 2, 2)

	got, ok := NearestFreePoint(w, vec(0, 0), 0.2, 5, 16, 0.5)
	if !ok || !near(got, vec(1.5, 0), 1e-9) {
		t.Errorf("NearestFreePoint = %v, %v; want (1.5,0), true", got, ok)
	}

	if _, ok := NearestFreePoint(w, vec(0, 0), 0.2, 2, 16, 0.5); ok {
		t.Error("found a free point within rings that are all blocked")
	}
}
