package game

import (
	"github.com/pthm-cable/trek/nav"
	"github.com/pthm-cable/trek/telemetry"
)

// recordArrival feeds a completed trip to the collectors and output.
func (s *Simulation) recordArrival(id uint32, name string, trip nav.Trip) {
	s.arrivals++
	rec := telemetry.NewArrivalRecord(s.tick, name, trip)

	s.collector.RecordArrival(rec)
	s.lifetimeTracker.RecordArrival(id, rec)

	s.log.Debug("arrived",
		"agent", name,
		"tick", s.tick,
		"travel_time", rec.TravelTime,
		"path_ratio", rec.PathRatio,
	)

	if s.arrivalCallback != nil {
		s.arrivalCallback(rec)
	}
	if err := s.outputManager.WriteArrival(rec); err != nil {
		s.log.Error("failed to write arrival", "error", err)
	}
}

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (s *Simulation) flushTelemetry() {
	if !s.collector.ShouldFlush(s.tick) {
		return
	}
	s.observeAgents()
	s.emitWindow()
}

// observeAgents folds every agent's mover counters into the window.
func (s *Simulation) observeAgents() {
	query := s.agentFilter.Query()
	for query.Next() {
		_, _, _, agent, _, _ := query.Get()
		stats := agent.Mover.Stats()
		s.collector.Observe(agent.ID, stats)
		s.lifetimeTracker.UpdateCounters(agent.ID, stats.MoveOrders, stats.Stops, stats.TotalReplans(), stats.FailedPlans)
	}
}

// counts returns the agent population, agents following a target and agents still spawning.
func (s *Simulation) counts() (agents, moving, spawning int) {
	query := s.agentFilter.Query()
	for query.Next() {
		_, _, _, agent, _, sp := query.Get()
		agents++
		if agent.Mover.State() == nav.StateFollowing {
			moving++
		}
		if sp.Active {
			spawning++
		}
	}
	return agents, moving, spawning
}

// emitWindow flushes the current window to callbacks, logs, CSV and bookmarks.
func (s *Simulation) emitWindow() {
	agents, moving, spawning := s.counts()
	stats := s.collector.Flush(s.tick, agents, moving, spawning)
	perfStats := s.perfCollector.Stats()

	if s.statsCallback != nil {
		s.statsCallback(stats)
	}

	if s.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if err := s.outputManager.WriteTelemetry(stats); err != nil {
		s.log.Error("failed to write telemetry", "error", err)
	}
	if err := s.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		s.log.Error("failed to write perf", "error", err)
	}

	for _, bm := range s.bookmarkDetector.Check(stats) {
		if s.logStats {
			bm.LogBookmark()
		}
		if err := s.outputManager.WriteBookmark(bm); err != nil {
			s.log.Error("failed to write bookmark", "error", err)
		}
	}
}
