package matcher

import (
	"math"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/stereodpl/dpl/frame"
)

// makeFrame builds a width*height single-channel stereo frame where the
// right image is pat(x, y) and the left image is the same pattern
// shifted right by shiftPx pixels (so disparity = shiftPx everywhere a
// full match window fits).
func makeFrame(width, height, shiftPx int, pat func(x, y int) byte) *frame.ImageFrame {
	f := &frame.ImageFrame{}
	right := make([]byte, width*height)
	left := make([]byte, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := pat(x, y)
			right[y*width+x] = v
			lx := x - shiftPx
			if lx < 0 {
				lx = 0
			}
			left[y*width+x] = pat(lx, y)
		}
	}
	f.Slot(frame.SlotLatest).Plane(frame.PlaneRight).Width = width
	f.Slot(frame.SlotLatest).Plane(frame.PlaneRight).Height = height
	f.Slot(frame.SlotLatest).Plane(frame.PlaneRight).Data = right
	f.Slot(frame.SlotLatest).Plane(frame.PlaneLeft).Width = width
	f.Slot(frame.SlotLatest).Plane(frame.PlaneLeft).Height = height
	f.Slot(frame.SlotLatest).Plane(frame.PlaneLeft).Data = left
	return f
}

func ramp(x, y int) byte {
	v := (x*7 + y*13) % 256
	return byte(v)
}

// texture is a hashed pseudo-random pattern. Unlike ramp, whose windows
// differ only by a constant offset that zero-mean SSD cancels, it gives
// each shift a distinct SSD.
func texture(x, y int) byte {
	h := uint32(x)*2654435761 ^ uint32(y)*40503
	h ^= h >> 13
	h *= 0x5bd1e995
	h ^= h >> 15
	return byte(h)
}

func testParams() Params {
	p := DefaultParams()
	p.BlockHeight, p.BlockWidth = 4, 4
	p.MatchHeight, p.MatchWidth = 4, 4
	p.Depth = 16
	p.ShadeBandWidth = 0
	p.BandCount = 4
	p.BackMatching = false
	p.ContrastThreshold = 0
	return p
}

// S1: flat scene (uniform intensity) must yield a zero disparity
// everywhere; SSD can't discriminate a shift in a textureless patch, so
// every shift scores the same, the argmin is shift 0, and a shift-0
// match is rejected as a search-range boundary.
func TestFlatScene_AllZero(t *testing.T) {
	c := qt.New(t)
	p := testParams()
	s := NewStage(p, nil)
	s.Start()
	defer s.Stop()

	f := makeFrame(64, 32, 3, func(x, y int) byte { return 128 })
	var bd frame.BlockDisparity
	err := s.Match(f, &bd)
	c.Assert(err, qt.IsNil)
	for _, v := range bd.Value {
		c.Assert(v, qt.Equals, int32(0))
	}
}

// S2: a textured scene shifted by a known integer pixel count should
// match to that disparity (within a one-unit sub-pixel tolerance) away
// from the frame borders.
func TestShiftedScene_MatchesKnownDisparity(t *testing.T) {
	c := qt.New(t)
	p := testParams()
	s := NewStage(p, nil)
	s.Start()
	defer s.Stop()

	const shift = 5
	f := makeFrame(128, 32, shift, texture)
	var bd frame.BlockDisparity
	err := s.Match(f, &bd)
	c.Assert(err, qt.IsNil)

	found := false
	for j := 0; j < bd.BlockRows; j++ {
		for i := 2; i < bd.BlockCols-2; i++ {
			idx := bd.Index(j, i)
			if bd.Value[idx] == 0 {
				continue
			}
			found = true
			d := float64(bd.Value[idx]) / 1000.0
			c.Assert(math.Abs(d-float64(shift)) < 0.5, qt.IsTrue, qt.Commentf("got disparity %v at block (%d,%d)", d, j, i))
		}
	}
	c.Assert(found, qt.IsTrue)
}

func TestContrastGate_RejectsLowContrastBlock(t *testing.T) {
	c := qt.New(t)
	p := testParams()
	p.ContrastThreshold = 10
	s := NewStage(p, nil)
	s.Start()
	defer s.Stop()

	f := makeFrame(32, 8, 2, func(x, y int) byte {
		if x < 16 {
			return 100 // flat half: should gate to zero
		}
		return ramp(x, y) // textured half
	})
	var bd frame.BlockDisparity
	err := s.Match(f, &bd)
	c.Assert(err, qt.IsNil)

	for j := 0; j < bd.BlockRows; j++ {
		for i := 0; i < 3; i++ {
			c.Assert(bd.Contrast[bd.Index(j, i)], qt.Equals, int32(0))
		}
	}
}

func TestBackMatching_ZerosBorderBlocks(t *testing.T) {
	c := qt.New(t)
	p := testParams()
	p.BackMatching = true
	p.BackMatchHalfWindow = 1
	s := NewStage(p, nil)
	s.Start()
	defer s.Stop()

	f := makeFrame(64, 32, 4, ramp)
	var bd frame.BlockDisparity
	err := s.Match(f, &bd)
	c.Assert(err, qt.IsNil)

	for i := 0; i < bd.BlockCols; i++ {
		c.Assert(bd.Value[bd.Index(0, i)], qt.Equals, int32(0))
	}
}

func TestRefineSubpixel_FlatDenominatorFallsBackToInteger(t *testing.T) {
	c := qt.New(t)
	d, ok := refineSubpixel(3, 10, 10, 10)
	c.Assert(ok, qt.IsTrue)
	c.Assert(d, qt.Equals, 3.0)
}

func TestContrastOffset_ExactSensorWidthLookup(t *testing.T) {
	c := qt.New(t)
	c.Assert(contrastOffset(752, false), qt.Equals, 1800.0)
	c.Assert(contrastOffset(1280, false), qt.Equals, 1200.0)
	c.Assert(contrastOffset(1920, false), qt.Equals, 0.0)
	c.Assert(contrastOffset(1280, true), qt.Equals, 2400.0)
	c.Assert(contrastOffset(752, true), qt.Equals, 1800.0)
}
