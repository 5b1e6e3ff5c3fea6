package state

import "sync"

// Cache is the process-local mirror of remote device state. Each record is
// guarded by its own mutex so a reader of gaze frames never blocks on a
// concurrent screen update. Records are replaced wholesale, never patched
// field by field, and every accessor hands out a copy.
type Cache struct {
	serverMu sync.Mutex
	server   ServerState

	frameMu sync.Mutex
	frame   Frame

	screenMu sync.Mutex
	screen   Screen

	calibMu sync.Mutex
	calib   CalibResult
}

func NewCache() *Cache {
	return &Cache{}
}

// Reset zeroes every record. Called on a fresh connect.
func (c *Cache) Reset() {
	c.SetServerState(ServerState{})
	c.SetFrame(Frame{})
	c.SetScreen(Screen{})
	c.SetCalibResult(CalibResult{})
}

func (c *Cache) ServerState() ServerState {
	c.serverMu.Lock()
	defer c.serverMu.Unlock()

	return c.server
}

func (c *Cache) SetServerState(server ServerState) {
	c.serverMu.Lock()
	c.server = server
	c.serverMu.Unlock()
}

func (c *Cache) Frame() Frame {
	c.frameMu.Lock()
	defer c.frameMu.Unlock()

	return c.frame
}

func (c *Cache) SetFrame(frame Frame) {
	c.frameMu.Lock()
	c.frame = frame
	c.frameMu.Unlock()
}

func (c *Cache) Screen() Screen {
	c.screenMu.Lock()
	defer c.screenMu.Unlock()

	return c.screen
}

func (c *Cache) SetScreen(screen Screen) {
	c.screenMu.Lock()
	c.screen = screen
	c.screenMu.Unlock()
}

func (c *Cache) CalibResult() CalibResult {
	c.calibMu.Lock()
	defer c.calibMu.Unlock()

	return c.calib.Clone()
}

func (c *Cache) SetCalibResult(calib CalibResult) {
	c.calibMu.Lock()
	c.calib = calib.Clone()
	c.calibMu.Unlock()
}

// ClearCalibResult drops any cached calibration outcome.
func (c *Cache) ClearCalibResult() {
	c.SetCalibResult(CalibResult{})
}
