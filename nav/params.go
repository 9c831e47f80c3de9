package nav

// Params holds tunable parameters for planning and path following.
type Params struct {
	// Grid
	CellSize          float64 // World units per grid cell (0.4)
	Padding           float64 // Margin added around the start/goal bounding box (2.0)
	MaxGridDim        int     // Cap on grid width and height in cells (150)
	SweepCellFraction float64 // Fraction of CellSize added to the agent radius when sampling cells (0.1)

	// Search
	MaxIterations int // A* node expansions before giving up (12000)

	// Following
	ReplanInterval float64 // Seconds between periodic replans (0.3)
	ArriveEpsilon  float64 // Distance at which a waypoint or the target counts as reached (0.01)

	// Blocked target relocation
	RelocateRings   int     // Number of expanding rings searched (5)
	RelocateSteps   int     // Samples per ring (16)
	RelocateSpacing float64 // Distance between consecutive rings (0.5)
}

// DefaultParams returns sensible defaults for planning in world units of
// roughly one agent diameter per half cell.
func DefaultParams() Params {
	return Params{
		CellSize:          0.4,
		Padding:           2.0,
		MaxGridDim:        150,
		SweepCellFraction: 0.1,

		MaxIterations: 12000,

		ReplanInterval: 0.3,
		ArriveEpsilon:  0.01,

		RelocateRings:   5,
		RelocateSteps:   16,
		RelocateSpacing: 0.5,
	}
}

// normalized replaces unusable values with defaults so that the controller
// never has to fail on bad configuration.
func (p Params) normalized() Params {
	d := DefaultParams()
	if p.CellSize <= 0 {
		p.CellSize = d.CellSize
	}
	if p.Padding < 0 {
		p.Padding = 0
	}
	if p.MaxGridDim < 2 {
		p.MaxGridDim = d.MaxGridDim
	}
	if p.SweepCellFraction < 0 {
		p.SweepCellFraction = 0
	}
	if p.MaxIterations <= 0 {
		p.MaxIterations = d.MaxIterations
	}
	if p.ReplanInterval <= 0 {
		p.ReplanInterval = d.ReplanInterval
	}
	if p.ArriveEpsilon <= 0 {
		p.ArriveEpsilon = d.ArriveEpsilon
	}
	if p.RelocateRings < 0 {
		p.RelocateRings = 0
	}
	if p.RelocateSteps <= 0 {
		p.RelocateSteps = d.RelocateSteps
	}
	if p.RelocateSpacing <= 0 {
		p.RelocateSpacing = d.RelocateSpacing
	}
	return p
}
