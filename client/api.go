package client

import (
	"time"

	"go.uber.org/zap"

	"github.com/luma/iris/state"
	"github.com/luma/iris/transport"
)

const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 6555
)

type Options struct {
	// Transport to reach the server with. Defaults to the TCP transport.
	Transport Transport

	// CallTimeout bounds every synchronous call.
	CallTimeout time.Duration

	// HandshakeTimeout bounds the untagged version probe on connect.
	HandshakeTimeout time.Duration

	Log *zap.Logger
}

// GazeTracker is the stable API surface applications hold. Every call is
// forwarded to the engine; accessors return copies of cached state, so
// callers can never alias the engine's internals.
type GazeTracker struct {
	engine *Engine
}

func New(options Options) *GazeTracker {
	log := options.Log
	if log == nil {
		log = zap.NewNop()
	}

	t := options.Transport
	if t == nil {
		t = transport.NewTCP(transport.Options{Log: log.Named("transport")})
	}

	engine := NewEngine(t, log)

	if options.CallTimeout != 0 {
		engine.callTimeout = options.CallTimeout
	}

	if options.HandshakeTimeout != 0 {
		engine.handshakeTimeout = options.HandshakeTimeout
	}

	return &GazeTracker{engine: engine}
}

// Connect dials the tracker server and performs the protocol handshake.
func (g *GazeTracker) Connect(host string, port int) bool {
	return g.engine.Connect(host, port)
}

// ConnectLocal connects to a server on this machine's default port.
func (g *GazeTracker) ConnectLocal() bool {
	return g.engine.Connect(DefaultHost, DefaultPort)
}

func (g *GazeTracker) Disconnect() {
	g.engine.Disconnect()
}

func (g *GazeTracker) IsConnected() bool {
	return g.engine.IsRunning()
}

func (g *GazeTracker) SetScreen(screen state.Screen) bool {
	return g.engine.SetScreen(screen)
}

func (g *GazeTracker) GetScreen() state.Screen {
	return g.engine.Screen()
}

// GetFrame returns the latest cached gaze sample.
func (g *GazeTracker) GetFrame() state.Frame {
	return g.engine.Frame()
}

func (g *GazeTracker) GetCalibResult() state.CalibResult {
	return g.engine.CalibResult()
}

// UpdateServerState fetches a fresh snapshot from the server before
// returning it. GetServerState returns whatever is cached.
func (g *GazeTracker) UpdateServerState() state.ServerState {
	return g.engine.UpdateServerState()
}

func (g *GazeTracker) GetServerState() state.ServerState {
	return g.engine.ServerState()
}

func (g *GazeTracker) CalibrationStart(pointCount int) bool {
	return g.engine.CalibrationStart(pointCount)
}

func (g *GazeTracker) CalibrationClear() {
	g.engine.CalibrationClear()
}

func (g *GazeTracker) CalibrationAbort() {
	g.engine.CalibrationAbort()
}

func (g *GazeTracker) CalibrationPointStart(x, y int) bool {
	return g.engine.CalibrationPointStart(x, y)
}

func (g *GazeTracker) CalibrationPointEnd() {
	g.engine.CalibrationPointEnd()
}

func (g *GazeTracker) AddGazeListener(listener GazeListener) {
	g.engine.hub.gaze.add(listener)
}

func (g *GazeTracker) RemoveGazeListener(listener GazeListener) {
	g.engine.hub.gaze.remove(listener)
}

func (g *GazeTracker) AddCalibrationResultListener(listener CalibrationResultListener) {
	g.engine.hub.calibResult.add(listener)
}

func (g *GazeTracker) RemoveCalibrationResultListener(listener CalibrationResultListener) {
	g.engine.hub.calibResult.remove(listener)
}

func (g *GazeTracker) AddTrackerStateListener(listener TrackerStateListener) {
	g.engine.hub.tracker.add(listener)
}

func (g *GazeTracker) RemoveTrackerStateListener(listener TrackerStateListener) {
	g.engine.hub.tracker.remove(listener)
}

func (g *GazeTracker) AddCalibrationProcessHandler(handler CalibrationProcessHandler) {
	g.engine.hub.calibProc.add(handler)
}

func (g *GazeTracker) RemoveCalibrationProcessHandler(handler CalibrationProcessHandler) {
	g.engine.hub.calibProc.remove(handler)
}

func (g *GazeTracker) AddConnectionStateListener(listener ConnectionStateListener) {
	g.engine.hub.connection.add(listener)
}

func (g *GazeTracker) RemoveConnectionStateListener(listener ConnectionStateListener) {
	g.engine.hub.connection.remove(listener)
}
