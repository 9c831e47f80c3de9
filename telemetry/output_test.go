package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/trek/config"
)

func init() {
	config.MustInit("")
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestOutputManager_Disabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil || om != nil {
		t.Fatalf("NewOutputManager(\"\") = %v, %v; want nil, nil", om, err)
	}

	// Every method is nil-safe
	if err := om.WriteTelemetry(WindowStats{}); err != nil {
		t.Error(err)
	}
	if err := om.WriteArrival(ArrivalRecord{}); err != nil {
		t.Error(err)
	}
	if err := om.WriteLifetime(nil); err != nil {
		t.Error(err)
	}
	if om.Dir() != "" {
		t.Error("nil manager reports a directory")
	}
	if err := om.Close(); err != nil {
		t.Error(err)
	}
}

// TestOutputManager_HeadersOnce verifies repeated writes append rows under one header.
func TestOutputManager_HeadersOnce(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}

	for i := 1; i <= 3; i++ {
		if err := om.WriteTelemetry(WindowStats{WindowEndTick: int32(i * 600), Agents: 2}); err != nil {
			t.Fatalf("WriteTelemetry: %v", err)
		}
	}
	if err := om.WriteArrival(ArrivalRecord{Tick: 10, Agent: "a", PathRatio: 1}); err != nil {
		t.Fatalf("WriteArrival: %v", err)
	}
	if err := om.WriteBookmark(Bookmark{Type: BookmarkSettled, Tick: 1800}); err != nil {
		t.Fatalf("WriteBookmark: %v", err)
	}
	if err := om.WriteConfig(config.Cfg()); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}
	if err := om.WriteLifetime([]LifetimeStats{{AgentID: 1, Name: "a"}, {AgentID: 2, Name: "b"}}); err != nil {
		t.Fatalf("WriteLifetime: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines := readLines(t, filepath.Join(dir, "telemetry.csv"))
	if len(lines) != 4 {
		t.Fatalf("telemetry.csv has %d lines, want header + 3", len(lines))
	}
	if !strings.HasPrefix(lines[0], "window_end") {
		t.Errorf("telemetry header = %q", lines[0])
	}
	if strings.Contains(lines[0], "window_start") {
		t.Error("window start tick should not be exported")
	}
	if !strings.HasPrefix(lines[2], "1200,") {
		t.Errorf("second row = %q", lines[2])
	}

	arrivals := readLines(t, filepath.Join(dir, "arrivals.csv"))
	if len(arrivals) != 2 || !strings.HasPrefix(arrivals[1], "10,a,") {
		t.Errorf("arrivals.csv = %q", arrivals)
	}

	bookmarks := readLines(t, filepath.Join(dir, "bookmarks.csv"))
	if len(bookmarks) != 2 || !strings.HasPrefix(bookmarks[1], "settled,1800") {
		t.Errorf("bookmarks.csv = %q", bookmarks)
	}

	agents := readLines(t, filepath.Join(dir, "agents.csv"))
	if len(agents) != 3 {
		t.Errorf("agents.csv has %d lines, want 3", len(agents))
	}

	if _, err := config.Load(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("written config does not load: %v", err)
	}

	// perf.csv is created even when never written
	if _, err := os.Stat(filepath.Join(dir, "perf.csv")); err != nil {
		t.Errorf("perf.csv missing: %v", err)
	}
}
