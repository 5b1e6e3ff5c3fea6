package protocol_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/tidwall/gjson"

	"github.com/luma/iris/protocol"
	"github.com/luma/iris/state"
)

var _ = Describe("Parsing / Writer", func() {
	Describe("VersionProbe()", func() {
		It("builds an untagged get for the version field only", func() {
			data, err := protocol.VersionProbe()
			Expect(err).To(Succeed())

			Expect(gjson.GetBytes(data, "id").Exists()).To(BeFalse())
			Expect(gjson.GetBytes(data, "category").String()).To(Equal("tracker"))
			Expect(gjson.GetBytes(data, "request").String()).To(Equal("get"))
			Expect(gjson.GetBytes(data, "values").Value()).To(Equal([]interface{}{"version"}))
		})
	})

	Describe("TrackerGet()", func() {
		It("tags the command with its call id", func() {
			data, err := protocol.TrackerGet(protocol.CallGetChanges, protocol.TrackerStateChangedFields...)
			Expect(err).To(Succeed())

			Expect(gjson.GetBytes(data, "id").Int()).To(Equal(int64(protocol.CallGetChanges)))
			Expect(gjson.GetBytes(data, "values").Value()).To(Equal([]interface{}{"trackerstate"}))
		})
	})

	Describe("SetVersion()", func() {
		It("builds a tracker set with the version value", func() {
			data, err := protocol.SetVersion(protocol.CallSetVersion, protocol.Version)
			Expect(err).To(Succeed())

			Expect(gjson.GetBytes(data, "id").Int()).To(Equal(int64(protocol.CallSetVersion)))
			Expect(gjson.GetBytes(data, "category").String()).To(Equal("tracker"))
			Expect(gjson.GetBytes(data, "request").String()).To(Equal("set"))
			Expect(gjson.GetBytes(data, "values.version").Int()).To(Equal(int64(2)))
		})
	})

	Describe("SetScreen()", func() {
		It("includes every screen geometry field", func() {
			data, err := protocol.SetScreen(protocol.CallSetScreen, state.Screen{
				Index:    1,
				WidthPx:  1920,
				HeightPx: 1080,
				WidthMm:  510,
				HeightMm: 287,
			})
			Expect(err).To(Succeed())

			Expect(gjson.GetBytes(data, "values.screenindex").Int()).To(Equal(int64(1)))
			Expect(gjson.GetBytes(data, "values.screenresw").Int()).To(Equal(int64(1920)))
			Expect(gjson.GetBytes(data, "values.screenresh").Int()).To(Equal(int64(1080)))
			Expect(gjson.GetBytes(data, "values.screenpsyw").Float()).To(Equal(510.0))
			Expect(gjson.GetBytes(data, "values.screenpsyh").Float()).To(Equal(287.0))
		})
	})

	Describe("CalibrationStart()", func() {
		It("carries the point count", func() {
			data, err := protocol.CalibrationStart(protocol.CallCalibrationStart, 9)
			Expect(err).To(Succeed())

			Expect(gjson.GetBytes(data, "category").String()).To(Equal("calibration"))
			Expect(gjson.GetBytes(data, "request").String()).To(Equal("start"))
			Expect(gjson.GetBytes(data, "values.pointcount").Int()).To(Equal(int64(9)))
		})
	})

	Describe("CalibrationPointStart()", func() {
		It("carries the point coordinates", func() {
			data, err := protocol.CalibrationPointStart(protocol.CallCalibrationPoint, 320, 240)
			Expect(err).To(Succeed())

			Expect(gjson.GetBytes(data, "values.x").Int()).To(Equal(int64(320)))
			Expect(gjson.GetBytes(data, "values.y").Int()).To(Equal(int64(240)))
		})
	})

	Describe("fire-and-forget commands", func() {
		It("are never tagged with an id", func() {
			for _, build := range []func() ([]byte, error){
				protocol.CalibrationPointEnd,
				protocol.CalibrationAbort,
				protocol.CalibrationClear,
			} {
				data, err := build()
				Expect(err).To(Succeed())
				Expect(gjson.GetBytes(data, "id").Exists()).To(BeFalse())
				Expect(gjson.GetBytes(data, "category").String()).To(Equal("calibration"))
			}
		})
	})
})
