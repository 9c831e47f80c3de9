package nav

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// neighbor is a grid step with its cost in cells.
type neighbor struct {
	dx, dy   int
	cost     float64
	diagonal bool
}

var neighborOffsets = [...]neighbor{
	{dx: -1, dy: 0, cost: 1},
	{dx: 1, dy: 0, cost: 1},
	{dx: 0, dy: -1, cost: 1},
	{dx: 0, dy: 1, cost: 1},
	{dx: -1, dy: -1, cost: math.Sqrt2, diagonal: true},
	{dx: 1, dy: -1, cost: math.Sqrt2, diagonal: true},
	{dx: -1, dy: 1, cost: math.Sqrt2, diagonal: true},
	{dx: 1, dy: 1, cost: math.Sqrt2, diagonal: true},
}

// SearchResult is the outcome of an A* search.
type SearchResult struct {
	Path       []int   // Arena indices from start to goal, nil when no route was found
	Found      bool    // Whether the goal was reached
	Iterations int     // Nodes expanded
	Cost       float64 // Path cost in world units
}

// FindPath runs A* from start to goal over g using 8-directional movement.
// Diagonal steps are only taken when both flanking cardinal cells are walkable.
// The search gives up after maxIterations expansions; an empty result means
// no route, not an error.
func FindPath(g *Grid, start, goal, maxIterations int) SearchResult {
	if start < 0 || goal < 0 || start >= len(g.Nodes) || goal >= len(g.Nodes) {
		return SearchResult{}
	}
	if start == goal {
		return SearchResult{Path: []int{start}, Found: true}
	}

	nodes := g.Nodes
	for i := range nodes {
		nodes[i].G = math.Inf(1)
		nodes[i].H = 0
		nodes[i].Parent = -1
		nodes[i].heapIndex = -1
		nodes[i].closed = false
	}

	open := newNodeHeap(nodes)
	nodes[start].G = 0
	nodes[start].H = g.octile(start, goal)
	open.insert(start)

	iterations := 0
	for open.Len() > 0 && iterations < maxIterations {
		iterations++

		current := open.popMin()
		if current == goal {
			return SearchResult{
				Path:       g.retrace(start, goal),
				Found:      true,
				Iterations: iterations,
				Cost:       nodes[goal].G,
			}
		}
		nodes[current].closed = true

		cx, cy := nodes[current].X, nodes[current].Y
		for _, d := range neighborOffsets {
			nx, ny := cx+d.dx, cy+d.dy
			if !g.Walkable(nx, ny) {
				continue
			}
			// No corner cutting between two blocked cardinals
			if d.diagonal && (!g.Walkable(cx+d.dx, cy) || !g.Walkable(cx, cy+d.dy)) {
				continue
			}

			n := g.Index(nx, ny)
			if nodes[n].closed {
				continue
			}

			tentative := nodes[current].G + d.cost*g.CellSize
			if tentative >= nodes[n].G {
				continue
			}

			nodes[n].G = tentative
			nodes[n].Parent = current
			if open.contains(n) {
				open.update(n)
			} else {
				nodes[n].H = g.octile(n, goal)
				open.insert(n)
			}
		}
	}

	return SearchResult{Iterations: iterations}
}

// octile is the octile distance between two nodes in world units.
func (g *Grid) octile(a, b int) float64 {
	dx := math.Abs(float64(g.Nodes[a].X - g.Nodes[b].X))
	dy := math.Abs(float64(g.Nodes[a].Y - g.Nodes[b].Y))
	return (math.Max(dx, dy) + (math.Sqrt2-1)*math.Min(dx, dy)) * g.CellSize
}

// retrace follows parent links back from goal and returns the path in order.
func (g *Grid) retrace(start, goal int) []int {
	var path []int
	for cur := goal; cur != -1; cur = g.Nodes[cur].Parent {
		path = append(path, cur)
		if cur == start {
			break
		}
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Positions converts a node path to world positions.
func (g *Grid) Positions(path []int) []r2.Vec {
	out := make([]r2.Vec, len(path))
	for i, idx := range path {
		out[i] = g.Nodes[idx].Pos
	}
	return out
}
