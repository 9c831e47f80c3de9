package main

import (
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/pthm-cable/trek/config"
	"github.com/pthm-cable/trek/game"
	"github.com/pthm-cable/trek/nav"
	"github.com/pthm-cable/trek/scenario"
	"github.com/pthm-cable/trek/telemetry"
)

// Fitness weights. Lower fitness is better.
const (
	failedPlanPenalty = 2.0  // Seconds per plan that found no route
	unfinishedPenalty = 30.0 // Seconds per agent still moving when the run ends
	planTimeWeight    = 0.05 // Seconds per millisecond of planning wall time
)

// FitnessEvaluator runs headless scenario runs and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	scenario   *scenario.Scenario
	maxTicks   int
	seeds      []int64
	baseConfig *config.Config
	logger     *slog.Logger

	mu       sync.Mutex
	lastRun  runResult // Mean of the most recent Evaluate call
	bestRun  runResult
	bestSeen float64
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, sc *scenario.Scenario, maxTicks int, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		scenario:   sc,
		maxTicks:   maxTicks,
		seeds:      seeds,
		baseConfig: baseCfg,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		bestSeen:   math.Inf(1),
	}
}

// runResult summarizes one scenario run.
type runResult struct {
	ticks       int
	arrivals    float64
	meanTravel  float64 // Seconds per completed trip
	failedPlans float64
	unfinished  float64
	planTimeMS  float64
}

// BestRun returns the seed-averaged result of the best evaluation so far.
func (fe *FitnessEvaluator) BestRun() runResult {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestRun
}

// LastRun returns the seed-averaged result of the most recent evaluation.
func (fe *FitnessEvaluator) LastRun() runResult {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastRun
}

// Evaluate computes fitness for a raw parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	// Simulations read the global config at construction, so every seed of
	// one evaluation shares it.
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)
	config.Set(cfg)

	results := make([]runResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = fe.runSimulation(s)
		}(i, seed)
	}
	wg.Wait()

	var mean runResult
	for _, r := range results {
		mean.ticks += r.ticks
		mean.arrivals += r.arrivals
		mean.meanTravel += r.meanTravel
		mean.failedPlans += r.failedPlans
		mean.unfinished += r.unfinished
		mean.planTimeMS += r.planTimeMS
	}
	n := float64(len(results))
	mean.ticks /= len(results)
	mean.arrivals /= n
	mean.meanTravel /= n
	mean.failedPlans /= n
	mean.unfinished /= n
	mean.planTimeMS /= n

	fitness := computeFitness(mean)

	fe.mu.Lock()
	fe.lastRun = mean
	if fitness < fe.bestSeen {
		fe.bestSeen = fitness
		fe.bestRun = mean
	}
	fe.mu.Unlock()

	return fitness
}

// computeFitness scores a run: mean trip time plus penalties.
func computeFitness(r runResult) float64 {
	return r.meanTravel +
		failedPlanPenalty*r.failedPlans +
		unfinishedPenalty*r.unfinished +
		planTimeWeight*r.planTimeMS
}

// runSimulation executes a single headless scenario run.
func (fe *FitnessEvaluator) runSimulation(seed int64) runResult {
	var travel []float64
	sim, err := game.NewFromScenario(fe.scenario, game.Options{
		Seed:   seed,
		Logger: fe.logger,
		ArrivalCallback: func(rec telemetry.ArrivalRecord) {
			travel = append(travel, rec.TravelTime)
		},
	})
	if err != nil {
		fe.logger.Error("failed to build simulation", "error", err)
		return runResult{unfinished: math.Inf(1)}
	}
	defer sim.Close()

	res := runResult{ticks: sim.Run(fe.maxTicks)}
	res.arrivals = float64(len(travel))
	res.meanTravel = telemetry.Summarize(travel).Mean

	for _, name := range sim.AgentNames() {
		stats, err := sim.AgentStats(name)
		if err != nil {
			continue
		}
		res.failedPlans += float64(stats.FailedPlans)
		res.planTimeMS += float64(stats.PlanTime.Microseconds()) / 1000
		if st, _ := sim.AgentState(name); st == nav.StateFollowing {
			res.unfinished++
		}
	}
	return res
}

// copyConfig returns a copy of the base config. Config holds only values.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}
