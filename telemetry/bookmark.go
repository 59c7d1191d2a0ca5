package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkBurst      BookmarkType = "burst"
	BookmarkSaturation BookmarkType = "saturation"
	BookmarkQuiet      BookmarkType = "quiet"
)

// quietWindows is the number of consecutive windows without points that
// triggers BookmarkQuiet.
const quietWindows = 3

// Bookmark marks a noteworthy moment of the recording.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	WindowEnd   int          `csv:"window_end"`
	Clock       float64      `csv:"clock"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"window_end", b.WindowEnd,
		"clock", b.Clock,
		"description", b.Description,
	)
}

// BookmarkDetector watches window stats for activity bursts, first
// saturation of a hotspot, and quiet stretches.
type BookmarkDetector struct {
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	saturated   bool
	quietStreak int
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

	if b := bd.checkBurst(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkSaturation(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkQuiet(stats); b != nil {
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

// checkBurst fires when a window holds more than 3x the average point count
// of the history.
func (bd *BookmarkDetector) checkBurst(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total int
	for _, h := range history {
		total += h.Points
	}
	avg := float64(total) / float64(len(history))
	if avg == 0 {
		return nil
	}

	if float64(stats.Points) > avg*3 && stats.Points >= 5 {
		return &Bookmark{
			Type:        BookmarkBurst,
			WindowEnd:   stats.WindowEnd,
			Clock:       stats.Clock,
			Description: fmt.Sprintf("%d points is %.1fx average (%.1f)", stats.Points, float64(stats.Points)/avg, avg),
		}
	}
	return nil
}

// checkSaturation fires when some cell reaches full heat after a window in
// which none did.
func (bd *BookmarkDetector) checkSaturation(stats WindowStats) *Bookmark {
	full := stats.MaxHeat >= 1
	defer func() { bd.saturated = full }()

	if full && !bd.saturated {
		return &Bookmark{
			Type:        BookmarkSaturation,
			WindowEnd:   stats.WindowEnd,
			Clock:       stats.Clock,
			Description: fmt.Sprintf("hotspot saturated, coverage %.1f%%", stats.CoverageMean*100),
		}
	}
	return nil
}

// checkQuiet fires once per stretch of quietWindows windows without points.
func (bd *BookmarkDetector) checkQuiet(stats WindowStats) *Bookmark {
	if stats.Points > 0 {
		bd.quietStreak = 0
		return nil
	}
	bd.quietStreak++
	if bd.quietStreak == quietWindows {
		return &Bookmark{
			Type:        BookmarkQuiet,
			WindowEnd:   stats.WindowEnd,
			Clock:       stats.Clock,
			Description: fmt.Sprintf("no points for %d windows", quietWindows),
		}
	}
	return nil
}
