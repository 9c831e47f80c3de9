package telemetry

import "testing"

func TestLifetimeTracker(t *testing.T) {
	lt := NewLifetimeTracker()
	lt.Register(2, "b")
	lt.Register(1, "a")

	lt.RecordArrival(1, ArrivalRecord{Travelled: 4, TravelTime: 2, PathRatio: 1.2})
	lt.RecordArrival(1, ArrivalRecord{Travelled: 6, TravelTime: 3, PathRatio: 1.8})
	lt.RecordArrival(1, ArrivalRecord{Travelled: 1, TravelTime: 1, PathRatio: 1.0})
	lt.UpdateCounters(1, 4, 1, 7, 2)

	// Unknown agents are ignored
	lt.RecordArrival(99, ArrivalRecord{Travelled: 100})
	lt.UpdateCounters(99, 1, 1, 1, 1)

	a := lt.Get(1)
	if a == nil {
		t.Fatal("agent 1 not tracked")
	}
	if a.Arrivals != 3 || a.Distance != 11 || a.Moving != 6 {
		t.Errorf("trip totals = %+v", *a)
	}
	if a.WorstPathRatio != 1.8 {
		t.Errorf("WorstPathRatio = %v, want 1.8", a.WorstPathRatio)
	}
	if a.Orders != 4 || a.Stops != 1 || a.Replans != 7 || a.Failed != 2 {
		t.Errorf("counters = %+v", *a)
	}

	all := lt.All()
	if len(all) != 2 || all[0].Name != "a" || all[1].Name != "b" {
		t.Errorf("All() = %+v, want a then b", all)
	}

	if s := lt.Remove(2); s == nil || s.Name != "b" {
		t.Errorf("Remove(2) = %+v", s)
	}
	if lt.Count() != 1 || lt.Get(2) != nil {
		t.Errorf("agent 2 still tracked after Remove")
	}
}
