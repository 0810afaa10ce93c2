package dpl

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/stereodpl/dpl/config"
	"github.com/stereodpl/dpl/frame"
)

func testConfig() config.EngineConfig {
	return config.EngineConfig{
		MaxImageWidth:  32,
		MaxImageHeight: 32,
		MaxBufferCount: 4,
		EnabledStages:  config.StageStereoMatching | config.StageDisparityFilter,
		ConfigFileDir:  ".",
		CameraModel:    "TestCam",
	}
}

func TestEngineSubmitFetchRoundTrip(t *testing.T) {
	c := qt.New(t)
	eng, err := New(testConfig(), nil)
	c.Assert(err, qt.IsNil)
	c.Assert(eng.GetStageCount() > 0, qt.IsTrue)

	c.Assert(eng.Start(config.StartMode{StereoMatching: true, DisparityFilter: true}), qt.IsNil)
	defer eng.Terminate()

	in := &frame.ImageFrame{FrameNumber: 1}
	data := make([]byte, 32*32)
	in.Slot(frame.SlotLatest).Plane(frame.PlaneLeft).Width = 32
	in.Slot(frame.SlotLatest).Plane(frame.PlaneLeft).Height = 32
	in.Slot(frame.SlotLatest).Plane(frame.PlaneLeft).Channels = 1
	in.Slot(frame.SlotLatest).Plane(frame.PlaneLeft).Data = data
	in.Slot(frame.SlotLatest).Plane(frame.PlaneRight).Width = 32
	in.Slot(frame.SlotLatest).Plane(frame.PlaneRight).Height = 32
	in.Slot(frame.SlotLatest).Plane(frame.PlaneRight).Channels = 1
	in.Slot(frame.SlotLatest).Plane(frame.PlaneRight).Data = append([]byte(nil), data...)

	c.Assert(eng.Submit(in), qt.IsNil)

	deadline := time.Now().Add(time.Second)
	var out frame.ResultFrame
	out.Image = &frame.ImageFrame{}
	for time.Now().Before(deadline) {
		if err := eng.FetchResult(&out); err == nil {
			c.Assert(out.Image.FrameNumber, qt.Equals, uint64(1))
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for result")
}

func TestEngineSubmitAfterTerminateFails(t *testing.T) {
	c := qt.New(t)
	eng, err := New(testConfig(), nil)
	c.Assert(err, qt.IsNil)
	c.Assert(eng.Start(config.StartMode{StereoMatching: true}), qt.IsNil)
	eng.Terminate()

	err = eng.Submit(&frame.ImageFrame{FrameNumber: 1})
	c.Assert(err, qt.Not(qt.IsNil))
}

func TestEngineStageIntrospection(t *testing.T) {
	c := qt.New(t)
	eng, err := New(testConfig(), nil)
	c.Assert(err, qt.IsNil)

	name, err := eng.GetStageName(0)
	c.Assert(err, qt.IsNil)
	c.Assert(name, qt.Not(qt.Equals), "")

	_, err = eng.GetStageName(eng.GetStageCount())
	c.Assert(err, qt.Not(qt.IsNil))

	ps, err := eng.GetStageParameters(0)
	c.Assert(err, qt.IsNil)
	_ = ps
}
