package client_test

import (
	"fmt"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/luma/iris/state"
	"github.com/luma/iris/transport"
)

// fakeTransport is an in-process stand-in for the TCP transport. Outbound
// messages are recorded, an optional responder scripts the server side, and
// tests can inject arbitrary inbound messages. Deliveries happen on a
// single goroutine, mirroring the real transport's guarantee.
type fakeTransport struct {
	mu        sync.Mutex
	handler   transport.Handler
	sent      []string
	responder func(sent string) []string
	started   bool

	deliveries chan []byte
	stop       chan struct{}
}

func newFakeTransport(responder func(string) []string) *fakeTransport {
	return &fakeTransport{
		responder:  responder,
		deliveries: make(chan []byte, 64),
		stop:       make(chan struct{}),
	}
}

func (f *fakeTransport) Connect(host string, port int, handler transport.Handler) error {
	f.mu.Lock()
	f.handler = handler
	started := f.started
	f.started = true
	f.mu.Unlock()

	if !started {
		go f.pump()
	}

	return nil
}

func (f *fakeTransport) pump() {
	for {
		select {
		case data := <-f.deliveries:
			f.mu.Lock()
			handler := f.handler
			f.mu.Unlock()

			if handler != nil {
				handler.OnMessage(data)
			}

		case <-f.stop:
			return
		}
	}
}

func (f *fakeTransport) Send(data []byte) error {
	f.mu.Lock()
	f.sent = append(f.sent, string(data))
	responder := f.responder
	f.mu.Unlock()

	if responder != nil {
		for _, reply := range responder(string(data)) {
			f.deliveries <- []byte(reply)
		}
	}

	return nil
}

func (f *fakeTransport) Disconnect() error {
	return nil
}

// Deliver injects one inbound message, as though the server pushed it.
func (f *fakeTransport) Deliver(raw string) {
	f.deliveries <- []byte(raw)
}

func (f *fakeTransport) Sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.sent...)
}

// LoseConnection simulates a transport-level failure.
func (f *fakeTransport) LoseConnection() {
	f.mu.Lock()
	handler := f.handler
	f.mu.Unlock()

	if handler != nil {
		handler.OnDisconnected()
	}
}

// handshakeResponder scripts a server that answers the version probe, the
// session upgrade and the initial full snapshot.
func handshakeResponder(version int) func(string) []string {
	return func(sent string) []string {
		req := gjson.Parse(sent)

		if req.Get("request").String() == "get" && !req.Get("id").Exists() {
			return []string{fmt.Sprintf(
				`{"category":"tracker","request":"get","statuscode":200,"values":{"version":%d}}`, version)}
		}

		if req.Get("request").String() == "set" && req.Get("values.version").Exists() {
			return []string{fmt.Sprintf(
				`{"category":"tracker","request":"set","statuscode":200,"id":%d}`, req.Get("id").Int())}
		}

		if req.Get("request").String() == "get" && req.Get("id").Int() == 2 {
			return []string{
				`{"category":"tracker","request":"get","statuscode":200,"id":2,"values":{"version":2,"trackerstate":0,"framerate":60}}`}
		}

		return nil
	}
}

// Listener recorders. Every recorder is safe for concurrent use, the
// engine invokes them from its delivery goroutine.

type gazeRecorder struct {
	mu     sync.Mutex
	frames []state.Frame
}

func (r *gazeRecorder) OnGazeFrame(frame state.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.frames = append(r.frames, frame)
}

func (r *gazeRecorder) Frames() []state.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]state.Frame(nil), r.frames...)
}

type calibResultRecorder struct {
	mu      sync.Mutex
	results []state.CalibResult
}

func (r *calibResultRecorder) OnCalibrationChanged(succeeded bool, result state.CalibResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.results = append(r.results, result)
}

func (r *calibResultRecorder) Results() []state.CalibResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]state.CalibResult(nil), r.results...)
}

type trackerStateRecorder struct {
	mu      sync.Mutex
	states  []state.TrackerState
	screens []state.Screen
}

func (r *trackerStateRecorder) OnTrackerConnectionChanged(trackerState state.TrackerState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.states = append(r.states, trackerState)
}

func (r *trackerStateRecorder) OnScreenChanged(screen state.Screen) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.screens = append(r.screens, screen)
}

func (r *trackerStateRecorder) States() []state.TrackerState {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]state.TrackerState(nil), r.states...)
}

func (r *trackerStateRecorder) Screens() []state.Screen {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]state.Screen(nil), r.screens...)
}

type calibProcessRecorder struct {
	mu       sync.Mutex
	started  int
	progress []float64
	results  []state.CalibResult
}

func (r *calibProcessRecorder) OnCalibrationStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.started++
}

func (r *calibProcessRecorder) OnCalibrationProgress(progress float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.progress = append(r.progress, progress)
}

func (r *calibProcessRecorder) OnCalibrationResult(succeeded bool, result state.CalibResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.results = append(r.results, result)
}

func (r *calibProcessRecorder) Started() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.started
}

func (r *calibProcessRecorder) Progress() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]float64(nil), r.progress...)
}

func (r *calibProcessRecorder) Results() []state.CalibResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]state.CalibResult(nil), r.results...)
}

type connectionRecorder struct {
	mu     sync.Mutex
	states []bool
}

func (r *connectionRecorder) OnConnectionStateChanged(connected bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.states = append(r.states, connected)
}

func (r *connectionRecorder) States() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]bool(nil), r.states...)
}
