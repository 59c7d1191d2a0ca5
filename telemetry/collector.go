package telemetry

// Collector accumulates per-frame stats and produces WindowStats every
// windowFrames frames.
type Collector struct {
	runID        string
	windowFrames int
	cells        int // frame area, for coverage

	windowStart   int
	startConsumed int
	totals        []float64
	coverage      []float64
	maxHeat       float64
	last          FrameStats
}

// NewCollector creates a collector for frames of the given area.
func NewCollector(runID string, windowFrames, cells int) *Collector {
	if windowFrames < 1 {
		windowFrames = 1
	}
	return &Collector{
		runID:        runID,
		windowFrames: windowFrames,
		cells:        cells,
		totals:       make([]float64, 0, windowFrames),
		coverage:     make([]float64, 0, windowFrames),
	}
}

// Record adds one frame to the current window.
func (c *Collector) Record(s FrameStats) {
	c.totals = append(c.totals, s.TotalHeat)
	if c.cells > 0 {
		c.coverage = append(c.coverage, float64(s.ActiveCells)/float64(c.cells))
	}
	if s.MaxHeat > c.maxHeat {
		c.maxHeat = s.MaxHeat
	}
	c.last = s
}

// ShouldFlush reports whether the current window is complete.
func (c *Collector) ShouldFlush() bool {
	return len(c.totals) >= c.windowFrames
}

// Pending reports whether frames were recorded since the last flush.
func (c *Collector) Pending() bool {
	return len(c.totals) > 0
}

// Flush produces a WindowStats and resets for the next window.
func (c *Collector) Flush() WindowStats {
	mean, std, p50, p90 := HeatDistribution(c.totals)

	var coverage float64
	for _, v := range c.coverage {
		coverage += v
	}
	if len(c.coverage) > 0 {
		coverage /= float64(len(c.coverage))
	}

	stats := WindowStats{
		RunID:        c.runID,
		WindowStart:  c.windowStart,
		WindowEnd:    c.last.Frame,
		Clock:        c.last.Clock,
		Points:       c.last.Consumed - c.startConsumed,
		Consumed:     c.last.Consumed,
		HeatMean:     mean,
		HeatStd:      std,
		HeatP50:      p50,
		HeatP90:      p90,
		MaxHeat:      c.maxHeat,
		CoverageMean: coverage,
	}

	c.windowStart = c.last.Frame + 1
	c.startConsumed = c.last.Consumed
	c.totals = c.totals[:0]
	c.coverage = c.coverage[:0]
	c.maxHeat = 0

	return stats
}

// WindowFrames returns the number of frames per window.
func (c *Collector) WindowFrames() int {
	return c.windowFrames
}
