package telemetry

import "sort"

// LifetimeStats tracks per-agent statistics over a whole run.
type LifetimeStats struct {
	AgentID  uint32  `csv:"agent_id"`
	Name     string  `csv:"agent"`
	Arrivals int     `csv:"arrivals"`
	Orders   int     `csv:"move_orders"`
	Stops    int     `csv:"stops"`
	Replans  int     `csv:"replans"`
	Failed   int     `csv:"failed_plans"`
	Distance float64 `csv:"distance"`    // Total distance over completed trips
	Moving   float64 `csv:"moving_time"` // Simulation seconds spent on completed trips

	// Ratio of travelled to straight-line distance, worst trip
	WorstPathRatio float64 `csv:"worst_path_ratio"`
}

// LifetimeTracker manages per-agent lifetime statistics.
type LifetimeTracker struct {
	stats map[uint32]*LifetimeStats
}

// NewLifetimeTracker creates a new lifetime tracker.
func NewLifetimeTracker() *LifetimeTracker {
	return &LifetimeTracker{
		stats: make(map[uint32]*LifetimeStats),
	}
}

// Register creates lifetime stats for a new agent.
func (lt *LifetimeTracker) Register(agentID uint32, name string) {
	lt.stats[agentID] = &LifetimeStats{AgentID: agentID, Name: name}
}

// Get returns the lifetime stats for an agent, or nil if not found.
func (lt *LifetimeTracker) Get(agentID uint32) *LifetimeStats {
	return lt.stats[agentID]
}

// Remove deletes and returns an agent's stats.
func (lt *LifetimeTracker) Remove(agentID uint32) *LifetimeStats {
	s := lt.stats[agentID]
	delete(lt.stats, agentID)
	return s
}

// RecordArrival adds a completed trip.
func (lt *LifetimeTracker) RecordArrival(agentID uint32, rec ArrivalRecord) {
	s := lt.stats[agentID]
	if s == nil {
		return
	}
	s.Arrivals++
	s.Distance += rec.Travelled
	s.Moving += rec.TravelTime
	if rec.PathRatio > s.WorstPathRatio {
		s.WorstPathRatio = rec.PathRatio
	}
}

// UpdateCounters copies cumulative mover counters.
func (lt *LifetimeTracker) UpdateCounters(agentID uint32, orders, stops, replans, failed int) {
	s := lt.stats[agentID]
	if s == nil {
		return
	}
	s.Orders = orders
	s.Stops = stops
	s.Replans = replans
	s.Failed = failed
}

// All returns every agent's stats ordered by id.
func (lt *LifetimeTracker) All() []LifetimeStats {
	out := make([]LifetimeStats, 0, len(lt.stats))
	for _, s := range lt.stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out
}

// Count returns the number of tracked agents.
func (lt *LifetimeTracker) Count() int {
	return len(lt.stats)
}
