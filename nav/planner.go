package nav

import (
	"time"

	"gonum.org/v1/gonum/spatial/r2"
)

// PlanStats describes a single plan computation.
type PlanStats struct {
	Direct     bool          // Target was directly visible, no grid was built
	Found      bool          // A route was found (always true when Direct)
	GridWidth  int           // Cells
	GridHeight int           // Cells
	Iterations int           // A* expansions
	RawNodes   int           // Nodes in the raw A* path
	Waypoints  int           // Waypoints after smoothing
	Cost       float64       // Raw path cost in world units
	Duration   time.Duration // Wall time spent planning
}

// Planner runs the grid → A* → smoother pipeline for one agent size.
type Planner struct {
	query  ObstacleQuery
	params Params
	radius float64
}

// NewPlanner creates a planner for agents of the given physical radius.
func NewPlanner(q ObstacleQuery, params Params, radius float64) *Planner {
	return &Planner{
		query:  q,
		params: params.normalized(),
		radius: radius,
	}
}

// Params returns the planner's normalized parameters.
func (p *Planner) Params() Params {
	return p.params
}

// Plan computes waypoints from the agent's live position to target.
// An empty result with Found set means the target is directly reachable;
// an empty result without Found means no route exists within the search budget.
func (p *Planner) Plan(from, target r2.Vec) ([]r2.Vec, PlanStats) {
	started := time.Now()
	var stats PlanStats

	if p.query.IsSegmentFree(from, target, p.radius) {
		stats.Direct = true
		stats.Found = true
		stats.Duration = time.Since(started)
		return nil, stats
	}

	grid := BuildGrid(from, target, p.query, p.params, p.radius)
	stats.GridWidth = grid.Width
	stats.GridHeight = grid.Height

	res := FindPath(grid, grid.Start, grid.Goal, p.params.MaxIterations)
	stats.Iterations = res.Iterations
	stats.Found = res.Found
	stats.Cost = res.Cost
	stats.RawNodes = len(res.Path)
	if !res.Found {
		stats.Duration = time.Since(started)
		return nil, stats
	}

	waypoints := Smooth(from, grid.Positions(res.Path), p.query, p.radius)
	stats.Waypoints = len(waypoints)
	stats.Duration = time.Since(started)
	return waypoints, stats
}
