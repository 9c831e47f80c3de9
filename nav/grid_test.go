package nav

import (
	"math"
	"testing"
)

// TestBuildGridDimensions verifies the grid covers start, goal and padding.
func TestBuildGridDimensions(t *testing.T) {
	tests := []struct {
		name          string
		startX, goalX float64
		cell, padding float64
		wantW, wantH  int
	}{
		{"horizontal", 0, 4, 0.5, 1, 13, 5},
		{"reversed", 4, 0, 0.5, 1, 13, 5},
		{"no padding", 0, 2, 0.5, 0, 5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			p.CellSize = tt.cell
			p.Padding = tt.padding
			g := BuildGrid(vec(tt.startX, 0), vec(tt.goalX, 0), &testWorld{}, p, 0.2)
			if g.Width != tt.wantW || g.Height != tt.wantH {
				t.Errorf("grid = %dx%d, want %dx%d", g.Width, g.Height, tt.wantW, tt.wantH)
			}
			if len(g.Nodes) != g.Width*g.Height {
				t.Errorf("arena has %d nodes for %dx%d grid", len(g.Nodes), g.Width, g.Height)
			}
			if !near(g.Nodes[g.Start].Pos, vec(tt.startX, 0), 1e-9) {
				t.Errorf("start cell at %v, want (%v, 0)", g.Nodes[g.Start].Pos, tt.startX)
			}
			if !near(g.Nodes[g.Goal].Pos, vec(tt.goalX, 0), 1e-9) {
				t.Errorf("goal cell at %v, want (%v, 0)", g.Nodes[g.Goal].Pos, tt.goalX)
			}
		})
	}
}

// TestBuildGridCap verifies oversized spans are capped and stay around the start.
func TestBuildGridCap(t *testing.T) {
	p := DefaultParams()
	p.CellSize = 1
	p.Padding = 0
	p.MaxGridDim = 150

	g := BuildGrid(vec(0, 0), vec(1000, 0), &testWorld{}, p, 0.2)
	if g.Width != 150 {
		t.Fatalf("width = %d, want capped 150", g.Width)
	}
	if g.Origin.X != 0 {
		t.Errorf("origin.X = %v, want window clamped to 0", g.Origin.X)
	}
	gx, _ := g.CellOf(vec(1000, 0))
	if gx != g.Width-1 {
		t.Errorf("goal clamped to column %d, want %d", gx, g.Width-1)
	}

	// Start in the middle of a long span: window is centred on it.
	p.Padding = 600
	g = BuildGrid(vec(500, 0), vec(1000, 0), &testWorld{}, p, 0.2)
	mid := g.Origin.X + float64(g.Width-1)*g.CellSize/2
	if math.Abs(mid-500) > g.CellSize {
		t.Errorf("window centre = %v, want near 500", mid)
	}
	if g.Height != 150 || math.Abs(g.Origin.Y+74.5) > 1e-9 {
		t.Errorf("vertical window = %d cells from %v, want 150 from -74.5", g.Height, g.Origin.Y)
	}
}

// TestBuildGridForcesEndpoints verifies start and goal are walkable even when blocked.
func TestBuildGridForcesEndpoints(t *testing.T) {
	g := BuildGrid(vec(0, 0), vec(2, 0), blockedWorld{}, DefaultParams(), 0.2)

	walkable := 0
	for _, n := range g.Nodes {
		if n.Walkable {
			walkable++
		}
	}
	if walkable != 2 {
		t.Errorf("walkable cells = %d, want 2", walkable)
	}
	if !g.Nodes[g.Start].Walkable || !g.Nodes[g.Goal].Walkable {
		t.Error("start or goal cell not walkable")
	}
}

// TestBuildGridSweep verifies cells near obstacles are blocked by radius plus sweep margin.
func TestBuildGridSweep(t *testing.T) {
	w := &testWorld{}
	w.addBox(0, 0, 2, 2)
	p := DefaultParams()
	radius := 0.2

	g := BuildGrid(vec(-3, 0), vec(3, 0), w, p, radius)
	sweep := radius + p.SweepCellFraction*p.CellSize
	for i, n := range g.Nodes {
		if i == g.Start || i == g.Goal {
			continue
		}
		want := w.IsCircleFree(n.Pos, sweep)
		if n.Walkable != want {
			t.Errorf("cell (%d,%d) at %v walkable=%v, want %v", n.X, n.Y, n.Pos, n.Walkable, want)
		}
	}
}

// TestGridBounds verifies out-of-range cells read as blocked.
func TestGridBounds(t *testing.T) {
	g := NewGrid(vec(0, 0), 1, 3, 3)
	cases := []struct {
		x, y int
		want bool
	}{
		{0, 0, true},
		{2, 2, true},
		{-1, 0, false},
		{0, 3, false},
		{3, 1, false},
	}
	for _, c := range cases {
		if got := g.Walkable(c.x, c.y); got != c.want {
			t.Errorf("Walkable(%d,%d) = %v, want %v", c.x, c.y, got, c.want)
		}
	}

	g.SetWalkable(1, 1, false)
	if g.Walkable(1, 1) {
		t.Error("SetWalkable(1,1,false) had no effect")
	}
	g.SetWalkable(5, 5, false) // ignored
}

// TestCellOf verifies world positions round to the nearest cell and clamp.
func TestCellOf(t *testing.T) {
	g := NewGrid(vec(-1, -1), 0.5, 5, 5)
	cases := []struct {
		x, y         float64
		wantX, wantY int
	}{
		{-1, -1, 0, 0},
		{0, 0, 2, 2},
		{0.2, -0.3, 2, 1},
		{10, -10, 4, 0},
	}
	for _, c := range cases {
		x, y := g.CellOf(vec(c.x, c.y))
		if x != c.wantX || y != c.wantY {
			t.Errorf("CellOf(%v,%v) = (%d,%d), want (%d,%d)", c.x, c.y, x, y, c.wantX, c.wantY)
		}
	}
}
