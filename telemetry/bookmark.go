package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkReplanStorm  BookmarkType = "replan_storm"
	BookmarkPlanFailures BookmarkType = "plan_failures"
	BookmarkDetourSpike  BookmarkType = "detour_spike"
	BookmarkSettled      BookmarkType = "settled"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Tick        int32        `csv:"tick"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// settledWindows is how many consecutive idle windows count as settled.
const settledWindows = 3

// BookmarkDetector flags windows where movement behaved unusually.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	idleWindows int
	sawMovement bool
	settled     bool
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 3 {
		historySize = 3
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if bd.historyFull || bd.historyIdx > 0 {
		// Replans per order far above the rolling average
		if b := bd.checkReplanStorm(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Plans that found no route
		if b := bd.checkPlanFailures(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Trips much longer than the straight line
		if b := bd.checkDetourSpike(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	if b := bd.checkSettled(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	bd.addToHistory(stats)
	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) checkReplanStorm(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 || stats.Moving == 0 {
		return nil
	}

	var totalReplans, totalMoving int
	for _, h := range history {
		totalReplans += h.TotalReplans()
		totalMoving += h.Moving
	}
	if totalMoving == 0 {
		return nil
	}

	avg := float64(totalReplans) / float64(totalMoving)
	current := float64(stats.TotalReplans()) / float64(stats.Moving)
	if avg > 0 && current > avg*2.0 && stats.TotalReplans() >= 10 {
		return &Bookmark{
			Type:        BookmarkReplanStorm,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("%.1f replans per moving agent is %.1fx average (%.1f)", current, current/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkPlanFailures(stats WindowStats) *Bookmark {
	if stats.FailedPlans < 3 {
		return nil
	}

	var totalFailed int
	for _, h := range bd.getHistory() {
		totalFailed += h.FailedPlans
	}
	avg := float64(totalFailed) / float64(len(bd.getHistory()))
	if float64(stats.FailedPlans) > avg*2.0 {
		return &Bookmark{
			Type:        BookmarkPlanFailures,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("%d failed plans (average %.1f)", stats.FailedPlans, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkDetourSpike(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 || stats.Arrivals < 3 {
		return nil
	}

	var sum float64
	var n int
	for _, h := range history {
		if h.Arrivals > 0 {
			sum += h.PathRatioMean
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	if stats.PathRatioMean > avg*1.5 {
		return &Bookmark{
			Type:        BookmarkDetourSpike,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Path ratio %.2f is %.1fx average (%.2f)", stats.PathRatioMean, stats.PathRatioMean/avg, avg),
		}
	}
	return nil
}

// checkSettled fires once when every agent has been idle for several windows after moving.
func (bd *BookmarkDetector) checkSettled(stats WindowStats) *Bookmark {
	if stats.Moving > 0 || stats.MoveOrders > 0 {
		bd.sawMovement = true
		bd.idleWindows = 0
		bd.settled = false
		return nil
	}
	bd.idleWindows++
	if bd.settled || !bd.sawMovement || bd.idleWindows < settledWindows {
		return nil
	}
	bd.settled = true
	return &Bookmark{
		Type:        BookmarkSettled,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("All %d agents idle for %d windows", stats.Agents, bd.idleWindows),
	}
}
