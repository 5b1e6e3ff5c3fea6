package client

import (
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/luma/iris/protocol"
	"github.com/luma/iris/state"
	"github.com/luma/iris/transport"
)

// Transport is the capability the engine consumes to reach the server. It
// delivers complete inbound messages to the Handler one at a time, in
// arrival order, never concurrently.
type Transport interface {
	Connect(host string, port int, handler transport.Handler) error
	Send(data []byte) error
	Disconnect() error
}

const (
	DefaultCallTimeout      = 3 * time.Second
	DefaultHandshakeTimeout = 5 * time.Second
)

// Engine owns the connection lifecycle, the cached device state, the
// pending-call table and the decode/dispatch pipeline. Applications hold a
// GazeTracker facade instead of the engine itself.
type Engine struct {
	transport Transport
	cache     *state.Cache
	hub       hub
	calib     CalibrationTracker

	callTimeout      time.Duration
	handshakeTimeout time.Duration

	stateMu sync.Mutex
	running bool

	// syncMu serializes the send-then-wait sequence of every synchronous
	// call. It must never be taken on the delivery goroutine.
	syncMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[protocol.CallID]chan protocol.Message

	log *zap.Logger
}

func NewEngine(t Transport, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}

	return &Engine{
		transport:        t,
		cache:            state.NewCache(),
		callTimeout:      DefaultCallTimeout,
		handshakeTimeout: DefaultHandshakeTimeout,
		pending:          make(map[protocol.CallID]chan protocol.Message),
		log:              log,
	}
}

func (e *Engine) IsRunning() bool {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	return e.running
}

// Connect dials the server, performs the version handshake and requests a
// full state snapshot. It is rejected while already running.
func (e *Engine) Connect(host string, port int) bool {
	e.stateMu.Lock()
	if e.running {
		e.stateMu.Unlock()
		return false
	}
	e.stateMu.Unlock()

	e.clearPending()
	e.cache.Reset()
	e.calib.Clear()

	if err := e.transport.Connect(host, port, e); err != nil {
		e.log.Warn("Failed to connect", zap.String("host", host), zap.Int("port", port), zap.Error(err))
		return false
	}

	e.stateMu.Lock()
	e.running = true
	e.stateMu.Unlock()

	// The server must speak at least our protocol generation, and the
	// session must be upgraded to tagged request/reply semantics before any
	// other exchange happens.
	if version := e.probeVersion(); version < protocol.Version {
		e.log.Warn("Server protocol version too old", zap.Int("version", version), zap.Int("required", protocol.Version))
		e.Disconnect()
		return false
	}

	if !e.setVersion(protocol.Version) {
		e.log.Warn("Failed to upgrade session", zap.Int("version", protocol.Version))
		e.Disconnect()
		return false
	}

	e.hub.notifyConnectionStateChanged(true)

	// Prime the cache with a full snapshot
	e.RequestTrackerState()

	return true
}

// Disconnect transitions to stopped and closes the transport. It is
// idempotent.
func (e *Engine) Disconnect() {
	e.stateMu.Lock()
	if !e.running {
		e.stateMu.Unlock()
		return
	}
	e.running = false
	e.stateMu.Unlock()

	if err := e.transport.Disconnect(); err != nil {
		e.log.Warn("Transport did not close cleanly", zap.Error(err))
	}
}

// probeVersion asks for the server's protocol version using the untagged
// generation 1 request every server understands. Because the reply carries
// no id it cannot be routed like an ordinary call, so we poll the cached
// version field, which the decode pipeline fills in, under a bounded wait.
func (e *Engine) probeVersion() int {
	payload, err := protocol.VersionProbe()
	if err != nil {
		return 0
	}

	if !e.send(payload) {
		return 0
	}

	deadline := time.Now().Add(e.handshakeTimeout)

	for time.Now().Before(deadline) {
		if version := e.cache.ServerState().Version; version != 0 {
			return version
		}

		time.Sleep(time.Millisecond)
	}

	return e.cache.ServerState().Version
}

func (e *Engine) setVersion(version int) bool {
	payload, err := protocol.SetVersion(protocol.CallSetVersion, version)
	if err != nil {
		return false
	}

	msg, ok := e.call(protocol.CallSetVersion, payload)

	return ok && msg.Status == protocol.StatusOK
}

// SetScreen pushes a new active screen geometry to the server.
func (e *Engine) SetScreen(screen state.Screen) bool {
	payload, err := protocol.SetScreen(protocol.CallSetScreen, screen)
	if err != nil {
		return false
	}

	msg, ok := e.call(protocol.CallSetScreen, payload)

	return ok && msg.Status == protocol.StatusOK
}

func (e *Engine) Screen() state.Screen {
	return e.cache.Screen()
}

func (e *Engine) Frame() state.Frame {
	return e.cache.Frame()
}

func (e *Engine) CalibResult() state.CalibResult {
	return e.cache.CalibResult()
}

func (e *Engine) ServerState() state.ServerState {
	return e.cache.ServerState()
}

// UpdateServerState forces a fresh full snapshot fetch and returns the
// resulting cached state.
func (e *Engine) UpdateServerState() state.ServerState {
	e.RequestTrackerState()
	return e.cache.ServerState()
}

// RequestTrackerState fetches every device field the protocol knows about.
func (e *Engine) RequestTrackerState() {
	payload, err := protocol.TrackerGet(protocol.CallGetTrackerState, protocol.TrackerStateFields...)
	if err != nil {
		return
	}

	e.call(protocol.CallGetTrackerState, payload)
}

// CalibrationStart arms the progress tracker and tells the server to begin
// a calibration sequence of pointCount points.
func (e *Engine) CalibrationStart(pointCount int) bool {
	e.calib.Start(pointCount)

	payload, err := protocol.CalibrationStart(protocol.CallCalibrationStart, pointCount)
	if err != nil {
		return false
	}

	msg, ok := e.call(protocol.CallCalibrationStart, payload)

	return ok && msg.Status == protocol.StatusOK
}

func (e *Engine) CalibrationPointStart(x, y int) bool {
	payload, err := protocol.CalibrationPointStart(protocol.CallCalibrationPoint, x, y)
	if err != nil {
		return false
	}

	msg, ok := e.call(protocol.CallCalibrationPoint, payload)

	return ok && msg.Status == protocol.StatusOK
}

// CalibrationPointEnd is fire-and-forget: its effects surface later as a
// calibration/pointend reply on the inbound stream.
func (e *Engine) CalibrationPointEnd() {
	if payload, err := protocol.CalibrationPointEnd(); err == nil {
		e.send(payload)
	}
}

func (e *Engine) CalibrationAbort() {
	if payload, err := protocol.CalibrationAbort(); err == nil {
		e.send(payload)
	}
}

func (e *Engine) CalibrationClear() {
	if payload, err := protocol.CalibrationClear(); err == nil {
		e.send(payload)
	}
}

// send ships a message without waiting for any reply. Commands issued while
// stopped are rejected without touching the transport.
func (e *Engine) send(payload []byte) bool {
	e.stateMu.Lock()
	running := e.running
	e.stateMu.Unlock()

	if !running {
		return false
	}

	if err := e.transport.Send(payload); err != nil {
		e.log.Warn("Failed to send", zap.Error(err))
		return false
	}

	return true
}

// call ships a tagged command and blocks until the reply bearing the same
// id arrives or the timeout elapses. Callers are serialized, so at most one
// synchronous command is on the wire at a time. A timed-out call returns
// failure even though the reply may still arrive later and update the
// cache.
func (e *Engine) call(id protocol.CallID, payload []byte) (protocol.Message, bool) {
	e.syncMu.Lock()
	defer e.syncMu.Unlock()

	replyChan := make(chan protocol.Message, 1)

	e.pendingMu.Lock()
	e.pending[id] = replyChan
	e.pendingMu.Unlock()

	defer func() {
		e.pendingMu.Lock()
		if e.pending[id] == replyChan {
			delete(e.pending, id)
		}
		e.pendingMu.Unlock()
	}()

	if !e.send(payload) {
		return protocol.Message{}, false
	}

	select {
	case msg := <-replyChan:
		return msg, true

	case <-time.After(e.callTimeout):
		e.log.Warn("Call timed out", zap.Int("id", int(id)))
		return protocol.Message{}, false
	}
}

func (e *Engine) clearPending() {
	e.pendingMu.Lock()
	e.pending = make(map[protocol.CallID]chan protocol.Message)
	e.pendingMu.Unlock()
}

// deliver hands a reply to the caller waiting on its id, if any. The
// refetches triggered by change notifications are tagged but have no
// waiter, their replies simply fall through to dispatch.
func (e *Engine) deliver(msg protocol.Message) {
	e.pendingMu.Lock()
	replyChan, ok := e.pending[msg.ID]
	if ok {
		delete(e.pending, msg.ID)
	}
	e.pendingMu.Unlock()

	if ok {
		replyChan <- msg
	}
}

// OnMessage is the decode/dispatch pipeline. It runs on the transport's
// delivery goroutine; every gate failure discards the message without
// touching cached state.
func (e *Engine) OnMessage(data []byte) {
	msg, err := protocol.ReadMessage(data)
	if err != nil {
		e.log.Debug("Discarding message", zap.Error(err), zap.ByteString("data", data))
		return
	}

	if msg.IsNotification() {
		e.refetch(msg.Status)
		return
	}

	if msg.Status != protocol.StatusOK {
		// A real per-call error: currently swallowed, the caller times out.
		e.log.Debug("Discarding error reply",
			zap.Int("id", int(msg.ID)),
			zap.String("description", msg.Description))
		return
	}

	switch msg.Category {
	case protocol.CategoryTracker:
		if msg.Request == protocol.RequestGet {
			e.handleTrackerGet(protocol.Values(data))
		}
		// tracker/set needs no handling beyond reply delivery

	case protocol.CategoryCalibration:
		e.handleCalibration(msg, data)
	}

	// Wake the caller only after the dispatch above has committed its cache
	// updates, so a returned call always observes its own effects.
	if msg.HasID() {
		e.deliver(msg)
	}
}

// OnDisconnected is invoked by the transport on any connection failure.
func (e *Engine) OnDisconnected() {
	e.Disconnect()
	e.hub.notifyConnectionStateChanged(false)
}

// refetch reacts to an unsolicited change notification by requesting
// exactly the fields that changed. The request is tagged with the reserved
// refetch id but nobody waits on it: the reply updates the cache and
// notifies observers when it arrives.
func (e *Engine) refetch(status protocol.StatusCode) {
	var fields []string

	switch status {
	case protocol.StatusCalibrationChange:
		fields = protocol.CalibrationChangedFields
	case protocol.StatusDisplayChange:
		fields = protocol.DisplayChangedFields
	case protocol.StatusTrackerStateChange:
		fields = protocol.TrackerStateChangedFields
	default:
		return
	}

	payload, err := protocol.TrackerGet(protocol.CallGetChanges, fields...)
	if err != nil {
		return
	}

	e.send(payload)
}

func (e *Engine) handleTrackerGet(values gjson.Result) {
	if !values.Exists() {
		return
	}

	// Parse into copies of the current records so absent fields keep their
	// cached value and a failed parse mutates nothing.
	server := e.cache.ServerState()
	screen := e.cache.Screen()

	var (
		frame state.Frame
		calib state.CalibResult
	)

	hasFrame, hasCalib, err := protocol.DecodeTracker(values, &server, &frame, &calib, &screen)
	if err != nil {
		e.log.Debug("Discarding unparsable tracker payload", zap.Error(err))
		return
	}

	stateChanged := server.TrackerState != e.cache.ServerState().TrackerState
	screenChanged := screen != e.cache.Screen()

	e.cache.SetServerState(server)

	if hasFrame {
		e.cache.SetFrame(frame)
		e.hub.notifyGazeFrame(frame)
	}

	if hasCalib {
		e.cache.SetCalibResult(calib)
		e.hub.notifyCalibrationChanged(calib.Result, calib)
	}

	if screenChanged {
		e.cache.SetScreen(screen)
		e.hub.notifyScreenChanged(screen)
	}

	if stateChanged {
		e.hub.notifyTrackerConnectionChanged(server.TrackerState)
	}
}

func (e *Engine) handleCalibration(msg protocol.Message, data []byte) {
	switch msg.Request {
	case protocol.RequestStart:
		e.hub.notifyCalibrationStarted()

	case protocol.RequestPointEnd:
		e.calib.PointEnd()
		e.hub.notifyCalibrationProgress(e.calib.Progress())

		result := protocol.Values(data).Get("calibresult")
		if !result.Exists() {
			return
		}

		calib, err := protocol.DecodeCalibResult(result)
		if err != nil {
			e.log.Debug("Discarding unparsable calibresult payload", zap.Error(err))
			return
		}

		if calib.Result {
			e.cache.SetCalibResult(calib)
			e.hub.notifyCalibrationChanged(calib.Result, calib)
			e.calib.Clear()
		}

		// Process handlers see the raw outcome whether or not the sequence
		// succeeded.
		e.hub.notifyCalibrationResult(calib.Result, calib)

	case protocol.RequestAbort:
		e.calib.Clear()

	case protocol.RequestClear:
		e.cache.ClearCalibResult()
	}
}
