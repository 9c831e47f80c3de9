package nav

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// PathNode is a single cell of a local grid.
// Nodes live in the grid's flat arena and refer to each other by index.
type PathNode struct {
	X, Y     int    // Grid coordinates
	Pos      r2.Vec // World position of the cell
	Walkable bool

	G      float64 // Cost from the search start
	H      float64 // Heuristic cost to the goal
	Parent int     // Arena index of the predecessor, -1 for none

	heapIndex int // Position in the open heap, -1 when not queued
	closed    bool
}

// F returns the node's search priority.
func (n *PathNode) F() float64 {
	return n.G + n.H
}

// Grid is a bounded walkability grid built for a single plan request.
// It is scratch data: built fresh, searched once and discarded.
type Grid struct {
	Origin   r2.Vec  // World position of node (0, 0)
	CellSize float64 // World units between adjacent nodes
	Width    int
	Height   int
	Nodes    []PathNode

	Start int // Arena index of the start node
	Goal  int // Arena index of the goal node
}

// NewGrid allocates a grid with every node walkable.
func NewGrid(origin r2.Vec, cellSize float64, width, height int) *Grid {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	g := &Grid{
		Origin:   origin,
		CellSize: cellSize,
		Width:    width,
		Height:   height,
		Nodes:    make([]PathNode, width*height),
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			g.Nodes[y*width+x] = PathNode{
				X:         x,
				Y:         y,
				Pos:       g.CellPos(x, y),
				Walkable:  true,
				G:         math.Inf(1),
				Parent:    -1,
				heapIndex: -1,
			}
		}
	}
	return g
}

// BuildGrid builds the local grid covering start, goal and a padding margin.
// Each cell is sampled with the agent radius plus a fraction of the cell size.
// The start and goal cells are always walkable so an agent standing in a
// technically blocked cell can still plan its way out.
func BuildGrid(start, goal r2.Vec, q ObstacleQuery, p Params, radius float64) *Grid {
	p = p.normalized()
	cell := p.CellSize

	minX := math.Min(start.X, goal.X) - p.Padding
	maxX := math.Max(start.X, goal.X) + p.Padding
	minY := math.Min(start.Y, goal.Y) - p.Padding
	maxY := math.Max(start.Y, goal.Y) + p.Padding

	ox, w := axisWindow(minX, maxX, start.X, cell, p.MaxGridDim)
	oy, h := axisWindow(minY, maxY, start.Y, cell, p.MaxGridDim)

	g := NewGrid(r2.Vec{X: ox, Y: oy}, cell, w, h)

	sweep := radius + p.SweepCellFraction*cell
	for i := range g.Nodes {
		n := &g.Nodes[i]
		n.Walkable = q.IsCircleFree(n.Pos, sweep)
	}

	sx, sy := g.CellOf(start)
	gx, gy := g.CellOf(goal)
	g.Start = g.Index(sx, sy)
	g.Goal = g.Index(gx, gy)
	g.Nodes[g.Start].Walkable = true
	g.Nodes[g.Goal].Walkable = true

	return g
}

// axisWindow returns the origin and cell count along one axis. When the span
// exceeds maxDim cells the window is centred on anchor and kept inside [lo, hi].
func axisWindow(lo, hi, anchor, cell float64, maxDim int) (float64, int) {
	n := int((hi-lo)/cell) + 1
	if n <= maxDim {
		return lo, n
	}
	n = maxDim
	span := float64(n-1) * cell
	origin := anchor - span/2
	if origin < lo {
		origin = lo
	}
	if origin+span > hi {
		origin = hi - span
	}
	return origin, n
}

// Index returns the arena index of a cell. Coordinates must be in bounds.
func (g *Grid) Index(x, y int) int {
	return y*g.Width + x
}

// InBounds reports whether the cell exists.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.Width && y < g.Height
}

// Walkable reports whether a cell exists and is walkable. Out of bounds is blocked.
func (g *Grid) Walkable(x, y int) bool {
	if !g.InBounds(x, y) {
		return false
	}
	return g.Nodes[g.Index(x, y)].Walkable
}

// SetWalkable overrides a cell's walkability flag.
func (g *Grid) SetWalkable(x, y int, walkable bool) {
	if g.InBounds(x, y) {
		g.Nodes[g.Index(x, y)].Walkable = walkable
	}
}

// CellPos converts grid coordinates to world coordinates.
func (g *Grid) CellPos(x, y int) r2.Vec {
	return r2.Vec{
		X: g.Origin.X + float64(x)*g.CellSize,
		Y: g.Origin.Y + float64(y)*g.CellSize,
	}
}

// CellOf returns the nearest in-bounds cell to a world position.
func (g *Grid) CellOf(p r2.Vec) (x, y int) {
	x = clampInt(int(math.Round((p.X-g.Origin.X)/g.CellSize)), 0, g.Width-1)
	y = clampInt(int(math.Round((p.Y-g.Origin.Y)/g.CellSize)), 0, g.Height-1)
	return x, y
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
