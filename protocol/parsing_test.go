package protocol_test

import (
	"errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/tidwall/gjson"

	"github.com/luma/iris/protocol"
	"github.com/luma/iris/state"
)

var _ = Describe("Parsing", func() {
	Describe("ReadMessage()", func() {
		It("returns an error if the data is not a JSON object", func() {
			_, err := protocol.ReadMessage([]byte("not json"))
			Expect(errors.Is(err, protocol.ErrNotJSON)).To(BeTrue())

			_, err = protocol.ReadMessage([]byte(`["array"]`))
			Expect(errors.Is(err, protocol.ErrNotJSON)).To(BeTrue())
		})

		It("returns an error if the category is missing or unknown", func() {
			_, err := protocol.ReadMessage([]byte(`{"statuscode":200,"request":"get"}`))
			Expect(errors.Is(err, protocol.ErrUnknownCategory)).To(BeTrue())

			_, err = protocol.ReadMessage([]byte(`{"category":"heartbeat","statuscode":200}`))
			Expect(errors.Is(err, protocol.ErrUnknownCategory)).To(BeTrue())
		})

		It("returns an error if the statuscode is missing or not a number", func() {
			_, err := protocol.ReadMessage([]byte(`{"category":"tracker","request":"get"}`))
			Expect(errors.Is(err, protocol.ErrUnknownStatus)).To(BeTrue())

			_, err = protocol.ReadMessage([]byte(`{"category":"tracker","statuscode":"ok"}`))
			Expect(errors.Is(err, protocol.ErrUnknownStatus)).To(BeTrue())
		})

		It("returns an error if a reply carries an unknown request", func() {
			_, err := protocol.ReadMessage([]byte(`{"category":"tracker","statuscode":200,"request":"explode"}`))
			Expect(errors.Is(err, protocol.ErrUnknownRequest)).To(BeTrue())

			_, err = protocol.ReadMessage([]byte(`{"category":"tracker","statuscode":200}`))
			Expect(errors.Is(err, protocol.ErrUnknownRequest)).To(BeTrue())
		})

		It("parses a tagged OK reply", func() {
			msg, err := protocol.ReadMessage([]byte(`{"category":"tracker","request":"set","statuscode":200,"id":32}`))
			Expect(err).To(Succeed())
			Expect(msg.Category).To(Equal(protocol.CategoryTracker))
			Expect(msg.Request).To(Equal(protocol.RequestSet))
			Expect(msg.Status).To(Equal(protocol.StatusOK))
			Expect(msg.HasID()).To(BeTrue())
			Expect(msg.ID).To(Equal(protocol.CallSetVersion))
		})

		It("treats a missing id as no correlation id, not an error", func() {
			msg, err := protocol.ReadMessage([]byte(`{"category":"tracker","request":"get","statuscode":200}`))
			Expect(err).To(Succeed())
			Expect(msg.HasID()).To(BeFalse())
		})

		It("maps unrecognised statuscodes to an error status without parsing the request", func() {
			msg, err := protocol.ReadMessage([]byte(`{"category":"calibration","statuscode":500,"id":256,"description":"tracker is not calibrating"}`))
			Expect(err).To(Succeed())
			Expect(msg.Status).To(Equal(protocol.StatusError))
			Expect(msg.Request).To(Equal(protocol.RequestUnknown))
			Expect(msg.Description).To(Equal("tracker is not calibrating"))
		})

		It("recognises the three change notifications", func() {
			msg, err := protocol.ReadMessage([]byte(`{"category":"calibration","statuscode":800}`))
			Expect(err).To(Succeed())
			Expect(msg.IsNotification()).To(BeTrue())
			Expect(msg.Status).To(Equal(protocol.StatusCalibrationChange))

			msg, err = protocol.ReadMessage([]byte(`{"category":"tracker","statuscode":801}`))
			Expect(err).To(Succeed())
			Expect(msg.Status).To(Equal(protocol.StatusDisplayChange))

			msg, err = protocol.ReadMessage([]byte(`{"category":"tracker","statuscode":802}`))
			Expect(err).To(Succeed())
			Expect(msg.Status).To(Equal(protocol.StatusTrackerStateChange))
		})
	})

	Describe("DecodeTracker()", func() {
		var (
			server state.ServerState
			frame  state.Frame
			calib  state.CalibResult
			screen state.Screen
		)

		BeforeEach(func() {
			server = state.ServerState{}
			frame = state.Frame{}
			calib = state.CalibResult{}
			screen = state.Screen{}
		})

		decode := func(raw string) (bool, bool, error) {
			return protocol.DecodeTracker(gjson.Parse(raw), &server, &frame, &calib, &screen)
		}

		It("fails when values is not an object", func() {
			_, _, err := decode(`["version"]`)
			Expect(errors.Is(err, protocol.ErrFieldType)).To(BeTrue())
		})

		It("parses scalar device fields", func() {
			_, _, err := decode(`{"version":2,"trackerstate":1,"framerate":60,"iscalibrated":true,"iscalibrating":false}`)
			Expect(err).To(Succeed())
			Expect(server.Version).To(Equal(2))
			Expect(server.TrackerState).To(Equal(state.TrackerNotConnected))
			Expect(server.FrameRate).To(Equal(60))
			Expect(server.IsCalibrated).To(BeTrue())
			Expect(server.IsCalibrating).To(BeFalse())
		})

		It("leaves fields that are absent untouched", func() {
			server.Version = 2
			server.FrameRate = 30

			_, _, err := decode(`{"trackerstate":0}`)
			Expect(err).To(Succeed())
			Expect(server.Version).To(Equal(2))
			Expect(server.FrameRate).To(Equal(30))
			Expect(server.TrackerState).To(Equal(state.TrackerConnected))
		})

		It("fails the whole decode when a present field has the wrong type", func() {
			server.Version = 2

			_, _, err := decode(`{"version":"two"}`)
			Expect(errors.Is(err, protocol.ErrFieldType)).To(BeTrue())
		})

		It("parses the screen geometry", func() {
			_, _, err := decode(`{"screenindex":1,"screenresw":1920,"screenresh":1080,"screenpsyw":510.0,"screenpsyh":287.0}`)
			Expect(err).To(Succeed())
			Expect(screen).To(Equal(state.Screen{
				Index:    1,
				WidthPx:  1920,
				HeightPx: 1080,
				WidthMm:  510.0,
				HeightMm: 287.0,
			}))
			Expect(server.ScreenIndex).To(Equal(1))
		})

		It("reports when a gaze frame is present", func() {
			hasFrame, hasCalib, err := decode(`{"frame":{"time":1000,"fix":true,"state":7,"raw":{"x":10.5,"y":20.5},"avg":{"x":11,"y":21},"lefteye":{"avg":{"x":9,"y":19}},"righteye":{"avg":{"x":13,"y":23}}}}`)
			Expect(err).To(Succeed())
			Expect(hasFrame).To(BeTrue())
			Expect(hasCalib).To(BeFalse())

			Expect(frame.Time).To(Equal(int64(1000)))
			Expect(frame.Fix).To(BeTrue())
			Expect(frame.HasGaze()).To(BeTrue())
			Expect(frame.Raw).To(Equal(state.Point2D{X: 10.5, Y: 20.5}))
			Expect(frame.Avg).To(Equal(state.Point2D{X: 11, Y: 21}))
			Expect(frame.LeftAvg).To(Equal(state.Point2D{X: 9, Y: 19}))
			Expect(frame.RightAvg).To(Equal(state.Point2D{X: 13, Y: 23}))
		})

		It("reports when a calibration result is present", func() {
			_, hasCalib, err := decode(`{"calibresult":{"result":true,"deg":0.9,"calibpoints":[{"state":2,"cp":{"x":100,"y":100},"mecp":{"x":101,"y":99},"acd":{"ad":0.8,"adl":0.7,"adr":0.9}}]}}`)
			Expect(err).To(Succeed())
			Expect(hasCalib).To(BeTrue())

			Expect(calib.Result).To(BeTrue())
			Expect(calib.Deg).To(Equal(0.9))
			Expect(calib.Points).To(HaveLen(1))
			Expect(calib.Points[0].State).To(Equal(state.CalibPointOK))
			Expect(calib.Points[0].Accuracy).To(Equal(state.Accuracy{Avg: 0.8, Left: 0.7, Right: 0.9}))
		})
	})

	Describe("DecodeCalibResult()", func() {
		It("fails when the payload is not an object", func() {
			_, err := protocol.DecodeCalibResult(gjson.Parse(`"oops"`))
			Expect(errors.Is(err, protocol.ErrFieldType)).To(BeTrue())
		})

		It("fails when calibpoints is not an array", func() {
			_, err := protocol.DecodeCalibResult(gjson.Parse(`{"result":true,"calibpoints":{"state":2}}`))
			Expect(errors.Is(err, protocol.ErrFieldType)).To(BeTrue())
		})
	})
})
