package protocol

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/luma/iris/state"
)

var (
	ErrNotJSON         = errors.New("Message is not a valid JSON object")
	ErrFieldAbsent     = errors.New("Field is absent")
	ErrFieldType       = errors.New("Field holds the wrong JSON type")
	ErrUnknownCategory = errors.New("Unknown or missing category")
	ErrUnknownStatus   = errors.New("Unknown or missing statuscode")
	ErrUnknownRequest  = errors.New("Unknown or missing request")
)

// ReadMessage decodes the envelope of one complete inbound message.
//
// The correlation id and description are optional, their absence is not an
// error. The category and statuscode are hard gates. The request is only
// parsed for replies: change notifications carry no meaningful request, and
// error replies are returned as-is for the caller to discard.
func ReadMessage(data []byte) (Message, error) {
	msg := Message{ID: CallNone}

	if !gjson.ValidBytes(data) {
		return msg, ErrNotJSON
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return msg, ErrNotJSON
	}

	if id, err := fieldInt(root, "id"); err == nil {
		msg.ID = CallID(id)
	} else if !errors.Is(err, ErrFieldAbsent) {
		return msg, err
	}

	if desc, err := fieldString(root, "description"); err == nil {
		msg.Description = desc
	} else if !errors.Is(err, ErrFieldAbsent) {
		return msg, err
	}

	category, err := fieldString(root, "category")
	if err != nil {
		return msg, fmt.Errorf("Failed to parse category: %w", ErrUnknownCategory)
	}

	switch Category(category) {
	case CategoryTracker, CategoryCalibration:
		msg.Category = Category(category)
	default:
		return msg, fmt.Errorf("Failed to parse category '%s': %w", category, ErrUnknownCategory)
	}

	status, err := fieldInt(root, "statuscode")
	if err != nil {
		return msg, fmt.Errorf("Failed to parse statuscode: %w", ErrUnknownStatus)
	}

	switch StatusCode(status) {
	case StatusOK, StatusCalibrationChange, StatusDisplayChange, StatusTrackerStateChange:
		msg.Status = StatusCode(status)
	default:
		// Anything else is a per-call protocol error. The description, when
		// present, says what went wrong.
		msg.Status = StatusError
	}

	if msg.IsNotification() || msg.Status == StatusError {
		return msg, nil
	}

	request, err := fieldString(root, "request")
	if err != nil {
		return msg, fmt.Errorf("Failed to parse request: %w", ErrUnknownRequest)
	}

	switch Request(request) {
	case RequestGet, RequestSet, RequestStart, RequestPointStart, RequestPointEnd, RequestAbort, RequestClear:
		msg.Request = Request(request)
	default:
		return msg, fmt.Errorf("Failed to parse request '%s': %w", request, ErrUnknownRequest)
	}

	return msg, nil
}

// Values returns the values payload of a raw message, which may not exist.
func Values(data []byte) gjson.Result {
	return gjson.GetBytes(data, "values")
}

// DecodeTracker folds the values payload of a tracker/get reply into the
// provided records. Absent fields leave the corresponding record untouched,
// so callers pass copies of their current state as baselines. A present
// field of the wrong type fails the whole decode.
func DecodeTracker(
	values gjson.Result,
	server *state.ServerState,
	frame *state.Frame,
	calib *state.CalibResult,
	screen *state.Screen,
) (hasFrame bool, hasCalib bool, err error) {
	if !values.IsObject() {
		return false, false, fmt.Errorf("Failed to parse values: %w", ErrFieldType)
	}

	scalars := []struct {
		path string
		dst  func(gjson.Result)
	}{
		{FieldVersion, func(r gjson.Result) { server.Version = int(r.Int()) }},
		{FieldTrackerState, func(r gjson.Result) { server.TrackerState = state.TrackerState(r.Int()) }},
		{FieldFrameRate, func(r gjson.Result) { server.FrameRate = int(r.Int()) }},
		{FieldScreenIndex, func(r gjson.Result) {
			server.ScreenIndex = int(r.Int())
			screen.Index = int(r.Int())
		}},
		{FieldScreenResW, func(r gjson.Result) { screen.WidthPx = int(r.Int()) }},
		{FieldScreenResH, func(r gjson.Result) { screen.HeightPx = int(r.Int()) }},
		{FieldScreenPsyW, func(r gjson.Result) { screen.WidthMm = r.Float() }},
		{FieldScreenPsyH, func(r gjson.Result) { screen.HeightMm = r.Float() }},
	}

	for _, field := range scalars {
		value := values.Get(field.path)
		if !value.Exists() {
			continue
		}

		if value.Type != gjson.Number {
			return false, false, fmt.Errorf("Failed to parse '%s': %w", field.path, ErrFieldType)
		}

		field.dst(value)
	}

	bools := []struct {
		path string
		dst  *bool
	}{
		{FieldIsCalibrated, &server.IsCalibrated},
		{FieldIsCalibrating, &server.IsCalibrating},
	}

	for _, field := range bools {
		value := values.Get(field.path)
		if !value.Exists() {
			continue
		}

		if value.Type != gjson.True && value.Type != gjson.False {
			return false, false, fmt.Errorf("Failed to parse '%s': %w", field.path, ErrFieldType)
		}

		*field.dst = value.Bool()
	}

	if value := values.Get(FieldFrame); value.Exists() {
		decoded, ferr := DecodeFrame(value)
		if ferr != nil {
			return false, false, ferr
		}

		*frame = decoded
		hasFrame = true
	}

	if value := values.Get(FieldCalibResult); value.Exists() {
		decoded, cerr := DecodeCalibResult(value)
		if cerr != nil {
			return false, false, cerr
		}

		*calib = decoded
		hasCalib = true
	}

	return hasFrame, hasCalib, nil
}

// DecodeFrame decodes one gaze sample.
func DecodeFrame(value gjson.Result) (state.Frame, error) {
	var frame state.Frame

	if !value.IsObject() {
		return frame, fmt.Errorf("Failed to parse frame: %w", ErrFieldType)
	}

	frame.Time = value.Get("time").Int()
	frame.Fix = value.Get("fix").Bool()
	frame.State = int(value.Get("state").Int())
	frame.Raw = decodePoint(value.Get("raw"))
	frame.Avg = decodePoint(value.Get("avg"))
	frame.LeftAvg = decodePoint(value.Get("lefteye.avg"))
	frame.RightAvg = decodePoint(value.Get("righteye.avg"))

	return frame, nil
}

// DecodeCalibResult decodes a calibration outcome payload.
func DecodeCalibResult(value gjson.Result) (state.CalibResult, error) {
	var calib state.CalibResult

	if !value.IsObject() {
		return calib, fmt.Errorf("Failed to parse calibresult: %w", ErrFieldType)
	}

	calib.Result = value.Get("result").Bool()
	calib.Deg = value.Get("deg").Float()

	points := value.Get("calibpoints")
	if !points.Exists() {
		return calib, nil
	}

	if !points.IsArray() {
		return calib, fmt.Errorf("Failed to parse calibpoints: %w", ErrFieldType)
	}

	for _, point := range points.Array() {
		calib.Points = append(calib.Points, state.CalibPoint{
			State:         int(point.Get("state").Int()),
			Coord:         decodePoint(point.Get("cp")),
			MeanEstimated: decodePoint(point.Get("mecp")),
			Accuracy: state.Accuracy{
				Avg:   point.Get("acd.ad").Float(),
				Left:  point.Get("acd.adl").Float(),
				Right: point.Get("acd.adr").Float(),
			},
		})
	}

	return calib, nil
}

func decodePoint(value gjson.Result) state.Point2D {
	return state.Point2D{
		X: value.Get("x").Float(),
		Y: value.Get("y").Float(),
	}
}

func fieldInt(root gjson.Result, path string) (int64, error) {
	value := root.Get(path)

	if !value.Exists() {
		return 0, fmt.Errorf("'%s': %w", path, ErrFieldAbsent)
	}

	if value.Type != gjson.Number {
		return 0, fmt.Errorf("'%s': %w", path, ErrFieldType)
	}

	return value.Int(), nil
}

func fieldString(root gjson.Result, path string) (string, error) {
	value := root.Get(path)

	if !value.Exists() {
		return "", fmt.Errorf("'%s': %w", path, ErrFieldAbsent)
	}

	if value.Type != gjson.String {
		return "", fmt.Errorf("'%s': %w", path, ErrFieldType)
	}

	return value.String(), nil
}
