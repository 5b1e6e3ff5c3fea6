package protocol

// Version is the protocol generation this client requires. Generation 1 has
// no correlation ids on requests, generation 2 adds an optional id that the
// server echoes back on the matching reply.
const Version = 2

type Category string

const (
	CategoryTracker     Category = "tracker"
	CategoryCalibration Category = "calibration"
	CategoryUnknown     Category = ""
)

type Request string

const (
	RequestGet        Request = "get"
	RequestSet        Request = "set"
	RequestStart      Request = "start"
	RequestPointStart Request = "pointstart"
	RequestPointEnd   Request = "pointend"
	RequestAbort      Request = "abort"
	RequestClear      Request = "clear"
	RequestUnknown    Request = ""
)

type StatusCode int

const (
	StatusError              StatusCode = 0
	StatusOK                 StatusCode = 200
	StatusCalibrationChange  StatusCode = 800
	StatusDisplayChange      StatusCode = 801
	StatusTrackerStateChange StatusCode = 802
)

// CallID tags a synchronous command and its reply. Each command kind owns a
// fixed, bitmask-distinct id; at most one call per id is in flight at a time.
type CallID int

const (
	CallNone             CallID = -1
	CallError            CallID = 1 << 0
	CallGetTrackerState  CallID = 1 << 1
	CallGetFrame         CallID = 1 << 2
	CallGetCalibResult   CallID = 1 << 3
	CallGetChanges       CallID = 1 << 4
	CallSetVersion       CallID = 1 << 5
	CallSetScreen        CallID = 1 << 7
	CallCalibrationStart CallID = 1 << 8
	CallCalibrationPoint CallID = 1 << 9
)

// Tracker value field names.
const (
	FieldVersion       = "version"
	FieldTrackerState  = "trackerstate"
	FieldFrameRate     = "framerate"
	FieldIsCalibrated  = "iscalibrated"
	FieldIsCalibrating = "iscalibrating"
	FieldCalibResult   = "calibresult"
	FieldFrame         = "frame"
	FieldScreenIndex   = "screenindex"
	FieldScreenResW    = "screenresw"
	FieldScreenResH    = "screenresh"
	FieldScreenPsyW    = "screenpsyw"
	FieldScreenPsyH    = "screenpsyh"
)

// TrackerStateFields is the full snapshot requested after connecting.
var TrackerStateFields = []string{
	FieldVersion,
	FieldTrackerState,
	FieldFrameRate,
	FieldIsCalibrated,
	FieldIsCalibrating,
	FieldCalibResult,
	FieldFrame,
	FieldScreenIndex,
	FieldScreenResW,
	FieldScreenResH,
	FieldScreenPsyW,
	FieldScreenPsyH,
}

// Refetch field lists for each unsolicited change notification.
var (
	CalibrationChangedFields  = []string{FieldCalibResult, FieldIsCalibrated, FieldIsCalibrating}
	DisplayChangedFields      = []string{FieldScreenIndex, FieldScreenResW, FieldScreenResH, FieldScreenPsyW, FieldScreenPsyH}
	TrackerStateChangedFields = []string{FieldTrackerState}
)
