// Package telemetry provides movement statistics, bookmarks and CSV output.
package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Population at window end
	Agents   int `csv:"agents"`
	Moving   int `csv:"moving"`
	Spawning int `csv:"spawning"`

	// Orders during window
	MoveOrders int `csv:"move_orders"`
	Arrivals   int `csv:"arrivals"`
	Stops      int `csv:"stops"`

	// Planning during window
	ReplansMoveTo   int     `csv:"replans_move_to"`
	ReplansPeriodic int     `csv:"replans_periodic"`
	ReplansReactive int     `csv:"replans_reactive"`
	FailedPlans     int     `csv:"failed_plans"`
	Relocations     int     `csv:"relocations"`
	SkipAheads      int     `csv:"skip_aheads"`
	DirectSkips     int     `csv:"direct_skips"`
	PlanTimeUS      int64   `csv:"plan_time_us"`
	MeanPlanUS      float64 `csv:"mean_plan_us"`

	// Completed trips during window
	TravelTimeMean float64 `csv:"travel_time_mean"`
	TravelTimeStd  float64 `csv:"travel_time_std"`
	TravelTimeP50  float64 `csv:"travel_time_p50"`
	TravelTimeP90  float64 `csv:"travel_time_p90"`

	PathRatioMean float64 `csv:"path_ratio_mean"`
	PathRatioStd  float64 `csv:"path_ratio_std"`
	PathRatioP50  float64 `csv:"path_ratio_p50"`
	PathRatioP90  float64 `csv:"path_ratio_p90"`
}

// TotalReplans returns replans for every reason.
func (s WindowStats) TotalReplans() int {
	return s.ReplansMoveTo + s.ReplansPeriodic + s.ReplansReactive
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Summary is the distribution of one metric over a window.
type Summary struct {
	Mean, Std     float64
	P10, P50, P90 float64
}

// Summarize calculates mean, sample standard deviation and percentiles.
// Std is 0 for fewer than two values.
func Summarize(values []float64) Summary {
	n := len(values)
	if n == 0 {
		return Summary{}
	}

	var s Summary
	if n == 1 {
		s.Mean = values[0]
	} else {
		s.Mean, s.Std = stat.MeanStdDev(values, nil)
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	s.P10 = Percentile(sorted, 0.10)
	s.P50 = Percentile(sorted, 0.50)
	s.P90 = Percentile(sorted, 0.90)
	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("agents", s.Agents),
		slog.Int("moving", s.Moving),
		slog.Int("spawning", s.Spawning),
		slog.Int("move_orders", s.MoveOrders),
		slog.Int("arrivals", s.Arrivals),
		slog.Int("stops", s.Stops),
		slog.Int("replans_move_to", s.ReplansMoveTo),
		slog.Int("replans_periodic", s.ReplansPeriodic),
		slog.Int("replans_reactive", s.ReplansReactive),
		slog.Int("failed_plans", s.FailedPlans),
		slog.Int("relocations", s.Relocations),
		slog.Int("skip_aheads", s.SkipAheads),
		slog.Int("direct_skips", s.DirectSkips),
		slog.Int64("plan_time_us", s.PlanTimeUS),
		slog.Float64("mean_plan_us", s.MeanPlanUS),
		slog.Float64("travel_time_mean", s.TravelTimeMean),
		slog.Float64("travel_time_p90", s.TravelTimeP90),
		slog.Float64("path_ratio_mean", s.PathRatioMean),
		slog.Float64("path_ratio_p90", s.PathRatioP90),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"agents", s.Agents,
		"moving", s.Moving,
		"arrivals", s.Arrivals,
		"move_orders", s.MoveOrders,
		"stops", s.Stops,
		"replans", s.TotalReplans(),
		"replans_reactive", s.ReplansReactive,
		"failed_plans", s.FailedPlans,
		"relocations", s.Relocations,
		"mean_plan_us", s.MeanPlanUS,
		"travel_time_mean", s.TravelTimeMean,
		"path_ratio_mean", s.PathRatioMean,
	)
}
