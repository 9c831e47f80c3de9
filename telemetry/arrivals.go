package telemetry

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/trek/nav"
)

// ArrivalRecord describes one completed movement order.
type ArrivalRecord struct {
	Tick       int32   `csv:"tick"`
	Agent      string  `csv:"agent"`
	StartX     float64 `csv:"start_x"`
	StartY     float64 `csv:"start_y"`
	TargetX    float64 `csv:"target_x"`
	TargetY    float64 `csv:"target_y"`
	Relocated  bool    `csv:"relocated"`
	TravelTime float64 `csv:"travel_time"`   // Simulation seconds
	Straight   float64 `csv:"straight_dist"` // Start to target
	Travelled  float64 `csv:"travelled"`
	PathRatio  float64 `csv:"path_ratio"` // Travelled / straight, 1 for zero-length trips
}

// NewArrivalRecord builds a record from a completed trip.
func NewArrivalRecord(tick int32, agent string, trip nav.Trip) ArrivalRecord {
	straight := r2.Norm(r2.Sub(trip.Target, trip.Start))
	ratio := 1.0
	if straight > 0 {
		ratio = trip.Travelled / straight
	}
	return ArrivalRecord{
		Tick:       tick,
		Agent:      agent,
		StartX:     trip.Start.X,
		StartY:     trip.Start.Y,
		TargetX:    trip.Target.X,
		TargetY:    trip.Target.Y,
		Relocated:  trip.Target != trip.Requested,
		TravelTime: trip.Elapsed,
		Straight:   straight,
		Travelled:  trip.Travelled,
		PathRatio:  ratio,
	}
}
