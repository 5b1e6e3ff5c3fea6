package client

import (
	"sync"

	"github.com/luma/iris/state"
)

// GazeListener receives every decoded gaze frame.
type GazeListener interface {
	OnGazeFrame(frame state.Frame)
}

// CalibrationResultListener is notified when the cached calibration outcome
// changes.
type CalibrationResultListener interface {
	OnCalibrationChanged(succeeded bool, result state.CalibResult)
}

// TrackerStateListener is notified of tracker connection and screen changes.
type TrackerStateListener interface {
	OnTrackerConnectionChanged(trackerState state.TrackerState)
	OnScreenChanged(screen state.Screen)
}

// CalibrationProcessHandler follows an active calibration sequence.
type CalibrationProcessHandler interface {
	OnCalibrationStarted()
	OnCalibrationProgress(progress float64)
	OnCalibrationResult(succeeded bool, result state.CalibResult)
}

// ConnectionStateListener is notified when the engine connects or loses the
// server.
type ConnectionStateListener interface {
	OnConnectionStateChanged(connected bool)
}

// registry is an ordered collection of listener handles. Subscribing the
// same listener twice is allowed and means two callbacks per event.
// Dispatch happens in registration order, synchronously on the caller's
// goroutine.
type registry struct {
	mu        sync.Mutex
	observers []interface{}
}

func (r *registry) add(observer interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.observers = append(r.observers, observer)
}

func (r *registry) remove(observer interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, o := range r.observers {
		if o == observer {
			r.observers = append(r.observers[:i], r.observers[i+1:]...)
			return
		}
	}
}

func (r *registry) each(notify func(observer interface{})) {
	r.mu.Lock()
	observers := append([]interface{}(nil), r.observers...)
	r.mu.Unlock()

	for _, o := range observers {
		notify(o)
	}
}

// hub holds one registry per listener capability so a consumer subscribes
// to exactly the events it cares about.
type hub struct {
	gaze        registry
	calibResult registry
	tracker     registry
	calibProc   registry
	connection  registry
}

func (h *hub) notifyGazeFrame(frame state.Frame) {
	h.gaze.each(func(o interface{}) {
		o.(GazeListener).OnGazeFrame(frame)
	})
}

func (h *hub) notifyCalibrationChanged(succeeded bool, result state.CalibResult) {
	h.calibResult.each(func(o interface{}) {
		o.(CalibrationResultListener).OnCalibrationChanged(succeeded, result.Clone())
	})
}

func (h *hub) notifyTrackerConnectionChanged(trackerState state.TrackerState) {
	h.tracker.each(func(o interface{}) {
		o.(TrackerStateListener).OnTrackerConnectionChanged(trackerState)
	})
}

func (h *hub) notifyScreenChanged(screen state.Screen) {
	h.tracker.each(func(o interface{}) {
		o.(TrackerStateListener).OnScreenChanged(screen)
	})
}

func (h *hub) notifyCalibrationStarted() {
	h.calibProc.each(func(o interface{}) {
		o.(CalibrationProcessHandler).OnCalibrationStarted()
	})
}

func (h *hub) notifyCalibrationProgress(progress float64) {
	h.calibProc.each(func(o interface{}) {
		o.(CalibrationProcessHandler).OnCalibrationProgress(progress)
	})
}

func (h *hub) notifyCalibrationResult(succeeded bool, result state.CalibResult) {
	h.calibProc.each(func(o interface{}) {
		o.(CalibrationProcessHandler).OnCalibrationResult(succeeded, result.Clone())
	})
}

func (h *hub) notifyConnectionStateChanged(connected bool) {
	h.connection.each(func(o interface{}) {
		o.(ConnectionStateListener).OnConnectionStateChanged(connected)
	})
}
