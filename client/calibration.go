package client

import "sync"

// CalibrationTracker follows an in-progress calibration sequence: how many
// points the server was told to expect against how many pointend replies
// have been seen.
type CalibrationTracker struct {
	mu sync.Mutex

	pointCount  int
	processed   int
	calibrating bool
}

// Start begins tracking a sequence of pointCount points. Calling it while a
// sequence is already in progress overwrites the previous one.
func (c *CalibrationTracker) Start(pointCount int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pointCount = pointCount
	c.processed = 0
	c.calibrating = true
}

// PointEnd records one processed calibration point.
func (c *CalibrationTracker) PointEnd() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.processed++
}

// IsDone reports whether every expected point has been processed.
func (c *CalibrationTracker) IsDone() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.processed == c.pointCount
}

// IsCalibrating reports whether a sequence is in progress.
func (c *CalibrationTracker) IsCalibrating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.calibrating
}

// Progress returns the fraction of points processed, 0.0 when no sequence
// has been started.
func (c *CalibrationTracker) Progress() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pointCount == 0 {
		return 0.0
	}

	return float64(c.processed) / float64(c.pointCount)
}

// Clear resets the tracker to idle.
func (c *CalibrationTracker) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pointCount = 0
	c.processed = 0
	c.calibrating = false
}
