package protocol

import (
	"github.com/tidwall/sjson"

	"github.com/luma/iris/state"
)

// Builders for every outbound command. Commands that expect a correlated
// reply are tagged with their CallID, fire-and-forget commands carry no id.

// VersionProbe is the only untagged request we ever send: it must be
// understood by generation 1 servers, which predate correlation ids.
func VersionProbe() ([]byte, error) {
	return TrackerGet(CallNone, FieldVersion)
}

func TrackerGet(id CallID, fields ...string) ([]byte, error) {
	data, err := newCommand(id, CategoryTracker, RequestGet)
	if err != nil {
		return nil, err
	}

	return sjson.SetBytes(data, "values", fields)
}

func SetVersion(id CallID, version int) ([]byte, error) {
	data, err := newCommand(id, CategoryTracker, RequestSet)
	if err != nil {
		return nil, err
	}

	return sjson.SetBytes(data, "values.version", version)
}

func SetScreen(id CallID, screen state.Screen) ([]byte, error) {
	data, err := newCommand(id, CategoryTracker, RequestSet)
	if err != nil {
		return nil, err
	}

	fields := []struct {
		path  string
		value interface{}
	}{
		{"values." + FieldScreenIndex, screen.Index},
		{"values." + FieldScreenResW, screen.WidthPx},
		{"values." + FieldScreenResH, screen.HeightPx},
		{"values." + FieldScreenPsyW, screen.WidthMm},
		{"values." + FieldScreenPsyH, screen.HeightMm},
	}

	for _, field := range fields {
		if data, err = sjson.SetBytes(data, field.path, field.value); err != nil {
			return nil, err
		}
	}

	return data, nil
}

func CalibrationStart(id CallID, pointCount int) ([]byte, error) {
	data, err := newCommand(id, CategoryCalibration, RequestStart)
	if err != nil {
		return nil, err
	}

	return sjson.SetBytes(data, "values.pointcount", pointCount)
}

func CalibrationPointStart(id CallID, x, y int) ([]byte, error) {
	data, err := newCommand(id, CategoryCalibration, RequestPointStart)
	if err != nil {
		return nil, err
	}

	if data, err = sjson.SetBytes(data, "values.x", x); err != nil {
		return nil, err
	}

	return sjson.SetBytes(data, "values.y", y)
}

func CalibrationPointEnd() ([]byte, error) {
	return newCommand(CallNone, CategoryCalibration, RequestPointEnd)
}

func CalibrationAbort() ([]byte, error) {
	return newCommand(CallNone, CategoryCalibration, RequestAbort)
}

func CalibrationClear() ([]byte, error) {
	return newCommand(CallNone, CategoryCalibration, RequestClear)
}

func newCommand(id CallID, category Category, request Request) ([]byte, error) {
	data := []byte("{}")

	var err error

	if id != CallNone {
		if data, err = sjson.SetBytes(data, "id", int(id)); err != nil {
			return nil, err
		}
	}

	if data, err = sjson.SetBytes(data, "category", string(category)); err != nil {
		return nil, err
	}

	return sjson.SetBytes(data, "request", string(request))
}
