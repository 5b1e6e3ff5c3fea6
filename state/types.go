package state

// Point2D is a coordinate in screen space. Gaze coordinates are reported in
// pixels relative to the active screen, calibration accuracy in degrees.
type Point2D struct {
	X float64
	Y float64
}

// TrackerState describes the physical device connection as reported by the
// server.
type TrackerState int

const (
	TrackerConnected TrackerState = iota
	TrackerNotConnected
	TrackerBadFirmware
	TrackerNoUSB3
	TrackerNoStream
)

// Frame state bitmask flags.
const (
	TrackingGaze     = 1 << 0
	TrackingEyes     = 1 << 1
	TrackingPresence = 1 << 2
	TrackingFail     = 1 << 3
	TrackingLost     = 1 << 4
)

// ServerState mirrors the scalar device fields reported by the server.
type ServerState struct {
	Version       int
	TrackerState  TrackerState
	FrameRate     int
	IsCalibrated  bool
	IsCalibrating bool
	ScreenIndex   int
}

// Frame is a single gaze sample.
type Frame struct {
	Time     int64
	Fix      bool
	State    int
	Raw      Point2D
	Avg      Point2D
	LeftAvg  Point2D
	RightAvg Point2D
}

// HasGaze reports whether the sample contains on-screen gaze coordinates.
func (f Frame) HasGaze() bool {
	return f.State&TrackingGaze != 0
}

// Screen describes the active screen: index, resolution in pixels and
// physical size in millimetres. It is comparable, a change is detected by
// value comparison against the previously cached screen.
type Screen struct {
	Index    int
	WidthPx  int
	HeightPx int
	WidthMm  float64
	HeightMm float64
}

// Calibration point states.
const (
	CalibPointNoData   = 0
	CalibPointResample = 1
	CalibPointOK       = 2
)

// Accuracy holds accuracy-in-degrees metrics, overall and per eye.
type Accuracy struct {
	Avg   float64
	Left  float64
	Right float64
}

// CalibPoint is the per-point outcome of a calibration sequence.
type CalibPoint struct {
	State         int
	Coord         Point2D
	MeanEstimated Point2D
	Accuracy      Accuracy
}

// CalibResult is the outcome of a full calibration sequence.
type CalibResult struct {
	Result bool
	Deg    float64
	Points []CalibPoint
}

// Clone returns a deep copy so callers can never alias the cached points.
func (c CalibResult) Clone() CalibResult {
	out := c
	if c.Points != nil {
		out.Points = make([]CalibPoint, len(c.Points))
		copy(out.Points, c.Points)
	}

	return out
}
