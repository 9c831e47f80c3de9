package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/pthm-cable/trek/config"
	"github.com/pthm-cable/trek/game"
	"github.com/pthm-cable/trek/scenario"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	scenarioPath := flag.String("scenario", "", "Path to scenario.yaml (required)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", -1, "Stop after N ticks (-1 = sim.max_ticks from config, 0 = until settled)")
	watch := flag.Bool("watch", false, "Restart the run when the scenario or its script changes")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// Set up slog at the configured level
	handlerOpts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, handlerOpts)
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, handlerOpts)
	}
	slog.SetDefault(slog.New(handler))

	if *scenarioPath == "" {
		slog.Error("missing -scenario")
		flag.Usage()
		os.Exit(2)
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	limit := *maxTicks
	if limit < 0 {
		limit = cfg.Sim.MaxTicks
	}

	opts := game.Options{
		Seed:           rngSeed,
		LogStats:       *logStats,
		StatsWindowSec: *statsWindow,
		OutputDir:      *outputDir,
	}

	if !*watch {
		if err := runOnce(*scenarioPath, opts, limit); err != nil {
			slog.Error("run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := runWatched(*scenarioPath, opts, limit); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

// runOnce loads the scenario and runs it headless to completion.
func runOnce(path string, opts game.Options, limit int) error {
	sc, err := scenario.Load(path)
	if err != nil {
		return err
	}
	sim, err := game.NewFromScenario(sc, opts)
	if err != nil {
		return err
	}

	slog.Info("starting headless simulation",
		"scenario", path,
		"seed", opts.Seed,
		"max_ticks", limit,
	)
	start := time.Now()
	ticks := sim.Run(limit)
	logFinished(sim, ticks, time.Since(start))
	return sim.Close()
}

// runWatched reruns the scenario from tick 0 whenever its files change.
// A scenario that fails to load is reported and the watcher keeps waiting.
func runWatched(path string, opts game.Options, limit int) error {
	for {
		sc, loadErr := scenario.Load(path)
		watched := []string{path}
		if loadErr == nil {
			watched = append(watched, sc.ScriptPath())
		}

		w, err := scenario.NewWatcher(watched...)
		if err != nil {
			return err
		}

		changed := false
		if loadErr != nil {
			slog.Error("scenario not loaded, waiting for changes", "error", loadErr)
		} else if changed, err = runUntilChanged(sc, opts, limit, w); err != nil {
			slog.Error("run failed, waiting for changes", "error", err)
		}

		if !changed && !waitForChange(w) {
			w.Close()
			return nil
		}
		w.Close()
		slog.Info("scenario changed, restarting", "scenario", path)
	}
}

// runUntilChanged steps a new simulation until it finishes or a watched file
// changes. Returns true when interrupted by a change.
func runUntilChanged(sc *scenario.Scenario, opts game.Options, limit int, w *scenario.Watcher) (bool, error) {
	sim, err := game.NewFromScenario(sc, opts)
	if err != nil {
		return false, err
	}
	defer sim.Close()

	start := time.Now()
	ticks := 0
	for limit <= 0 || ticks < limit {
		if sim.Settled() {
			break
		}
		select {
		case name, ok := <-w.Events:
			if !ok {
				return false, nil
			}
			slog.Info("file changed mid-run", "file", name, "tick", sim.Tick())
			logFinished(sim, ticks, time.Since(start))
			return true, nil
		default:
		}
		sim.Step()
		ticks++
	}
	logFinished(sim, ticks, time.Since(start))
	return false, nil
}

// waitForChange blocks for the next file event. Returns false if the watcher stopped.
func waitForChange(w *scenario.Watcher) bool {
	for {
		select {
		case _, ok := <-w.Events:
			return ok
		case err, ok := <-w.Errors:
			if !ok {
				return false
			}
			slog.Warn("watch error", "error", err)
		}
	}
}

func logFinished(sim *game.Simulation, ticks int, elapsed time.Duration) {
	slog.Info("simulation finished",
		"ticks", ticks,
		"sim_time", sim.Time(),
		"arrivals", sim.Arrivals(),
		"settled", sim.Settled(),
		"wall_time", elapsed.String(),
	)
}
