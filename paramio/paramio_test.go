package paramio

import (
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/stereodpl/dpl/frame"
)

func TestWriteReadRoundTrip(t *testing.T) {
	c := qt.New(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "MatchingParameter_TestCam.ini")

	var ps frame.ParameterSet
	ps.Set(frame.ParameterEntry{Category: "MATCHING", Name: "BlockWidth", Value: frame.IntValue(4)})
	ps.Set(frame.ParameterEntry{Category: "MATCHING", Name: "ContrastThreshold", Value: frame.IntValue(10)})
	ps.Set(frame.ParameterEntry{Category: "BACKMATCHING", Name: "ZeroRatio", Value: frame.DoubleValue(0.5)})

	c.Assert(Write(path, ps), qt.IsNil)

	got, err := Read(path)
	c.Assert(err, qt.IsNil)

	e, ok := got.Get("MATCHING", "BlockWidth")
	c.Assert(ok, qt.IsTrue)
	c.Assert(e.Value.Int, qt.Equals, int64(4))

	e2, ok := got.Get("BACKMATCHING", "ZeroRatio")
	c.Assert(ok, qt.IsTrue)
	c.Assert(e2.Value.AsFloat64(), qt.Equals, 0.5)
}

func TestFileName(t *testing.T) {
	c := qt.New(t)
	c.Assert(FileName("Matching", "ISC-100VM"), qt.Equals, "MatchingParameter_ISC-100VM.ini")
}

func TestEnsureDefault_OnlyWritesWhenMissing(t *testing.T) {
	c := qt.New(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "X.ini")

	var def frame.ParameterSet
	def.Set(frame.ParameterEntry{Category: "C", Name: "N", Value: frame.IntValue(1)})
	c.Assert(EnsureDefault(path, def), qt.IsNil)

	got, err := Read(path)
	c.Assert(err, qt.IsNil)
	e, ok := got.Get("C", "N")
	c.Assert(ok, qt.IsTrue)
	c.Assert(e.Value.Int, qt.Equals, int64(1))

	// Overwrite the file by hand, then confirm EnsureDefault leaves it.
	var other frame.ParameterSet
	other.Set(frame.ParameterEntry{Category: "C", Name: "N", Value: frame.IntValue(99)})
	c.Assert(Write(path, other), qt.IsNil)
	c.Assert(EnsureDefault(path, def), qt.IsNil)

	got2, _ := Read(path)
	e2, _ := got2.Get("C", "N")
	c.Assert(e2.Value.Int, qt.Equals, int64(99))
}
