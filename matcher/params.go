package matcher

import "github.com/stereodpl/dpl/frame"

// Params holds the stereo matcher's strongly-typed tunables (spec §4.2).
// The matcher projects these to/from frame.ParameterSet on request
// (spec §3) rather than keeping a parallel untyped representation.
type Params struct {
	BlockHeight, BlockWidth int
	MatchHeight, MatchWidth int
	OffsetX, OffsetY        int
	Depth                   int // search depth, max disparity in pixels
	ShadeBandWidth          int

	ContrastThreshold int // crstthr
	GradationCorrected bool

	BandCount int

	BackMatching      bool
	BackMatchHalfWindow int     // evlwdt
	BackMatchRange      int32  // evlrng, sub-pixel units
	ZeroRatio           float64 // 0-1
	ValidRatio          float64 // 0-1
}

// DefaultParams returns the matcher's documented defaults.
func DefaultParams() Params {
	return Params{
		BlockHeight: 4, BlockWidth: 4,
		MatchHeight: 4, MatchWidth: 4,
		OffsetX: 0, OffsetY: 0,
		Depth:          64,
		ShadeBandWidth: 64,

		ContrastThreshold:  10,
		GradationCorrected: false,

		BandCount: 8,

		BackMatching:        true,
		BackMatchHalfWindow: 2,
		BackMatchRange:      1000, // 1 pixel, sub-pixel units
		ZeroRatio:           0.5,
		ValidRatio:          0.5,
	}
}

const (
	categoryMatching     = "MATCHING"
	categoryBackMatching = "BACKMATCHING"
)

// ToParameterSet projects p into the flat key/value view exposed to the
// external configuration collaborator (spec §3, §6).
func (p Params) ToParameterSet() frame.ParameterSet {
	var ps frame.ParameterSet
	set := func(cat, name, desc string, v frame.ParameterValue) {
		ps.Set(frame.ParameterEntry{Category: cat, Name: name, Description: desc, Value: v})
	}
	set(categoryMatching, "BlockHeight", "disparity block height, pixels", frame.IntValue(int64(p.BlockHeight)))
	set(categoryMatching, "BlockWidth", "disparity block width, pixels", frame.IntValue(int64(p.BlockWidth)))
	set(categoryMatching, "MatchHeight", "matching window height, pixels", frame.IntValue(int64(p.MatchHeight)))
	set(categoryMatching, "MatchWidth", "matching window width, pixels", frame.IntValue(int64(p.MatchWidth)))
	set(categoryMatching, "OffsetX", "first block x offset", frame.IntValue(int64(p.OffsetX)))
	set(categoryMatching, "OffsetY", "first block y offset", frame.IntValue(int64(p.OffsetY)))
	set(categoryMatching, "Depth", "max disparity search depth, pixels", frame.IntValue(int64(p.Depth)))
	set(categoryMatching, "ShadeBandWidth", "right-edge unreachable band, pixels", frame.IntValue(int64(p.ShadeBandWidth)))
	set(categoryMatching, "ContrastThreshold", "minimum block contrast to match (crstthr)", frame.IntValue(int64(p.ContrastThreshold)))
	set(categoryMatching, "GradationCorrected", "use the gradation-corrected contrast offset (unverified path)", frame.IntValue(boolToInt(p.GradationCorrected)))
	set(categoryMatching, "BandCount", "band-parallel worker count", frame.IntValue(int64(p.BandCount)))
	set(categoryBackMatching, "Enabled", "enable bidirectional back-matching", frame.IntValue(boolToInt(p.BackMatching)))
	set(categoryBackMatching, "HalfWindow", "back-match neighbourhood half-width, blocks (evlwdt)", frame.IntValue(int64(p.BackMatchHalfWindow)))
	set(categoryBackMatching, "Range", "back-match agreement range, sub-pixel units (evlrng)", frame.IntValue(int64(p.BackMatchRange)))
	set(categoryBackMatching, "ZeroRatio", "reject threshold on back-zero fraction", frame.DoubleValue(p.ZeroRatio))
	set(categoryBackMatching, "ValidRatio", "reject threshold on back-valid fraction", frame.DoubleValue(p.ValidRatio))
	return ps
}

// FromParameterSet updates p in place from a projected ParameterSet,
// leaving fields unset in ps untouched.
func (p *Params) FromParameterSet(ps frame.ParameterSet) {
	getInt := func(cat, name string, dst *int) {
		if e, ok := ps.Get(cat, name); ok {
			*dst = int(e.Value.Int)
		}
	}
	getBool := func(cat, name string, dst *bool) {
		if e, ok := ps.Get(cat, name); ok {
			*dst = e.Value.Int != 0
		}
	}
	getFloat := func(cat, name string, dst *float64) {
		if e, ok := ps.Get(cat, name); ok {
			*dst = e.Value.AsFloat64()
		}
	}
	getInt(categoryMatching, "BlockHeight", &p.BlockHeight)
	getInt(categoryMatching, "BlockWidth", &p.BlockWidth)
	getInt(categoryMatching, "MatchHeight", &p.MatchHeight)
	getInt(categoryMatching, "MatchWidth", &p.MatchWidth)
	getInt(categoryMatching, "OffsetX", &p.OffsetX)
	getInt(categoryMatching, "OffsetY", &p.OffsetY)
	getInt(categoryMatching, "Depth", &p.Depth)
	getInt(categoryMatching, "ShadeBandWidth", &p.ShadeBandWidth)
	getInt(categoryMatching, "ContrastThreshold", &p.ContrastThreshold)
	getBool(categoryMatching, "GradationCorrected", &p.GradationCorrected)
	getInt(categoryMatching, "BandCount", &p.BandCount)
	getBool(categoryBackMatching, "Enabled", &p.BackMatching)
	getInt(categoryBackMatching, "HalfWindow", &p.BackMatchHalfWindow)
	r := int(p.BackMatchRange)
	getInt(categoryBackMatching, "Range", &r)
	p.BackMatchRange = int32(r)
	getFloat(categoryBackMatching, "ZeroRatio", &p.ZeroRatio)
	getFloat(categoryBackMatching, "ValidRatio", &p.ValidRatio)
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// Sensor widths and their contrast-gating offsets (spec §4.2:
// "contrast_offset depending on sensor width, narrower sensor -> larger
// offset"). Grounded on original_source/.../StereoMatching.cpp:501-511
// (IMG_WIDTH_VM/IMG_WIDTH_XC, CONTRAST_OFFSET_VM/XC,
// CONTRAST_XC_DRADATION_FACTOR): an exact-width lookup, not a continuous
// function or a threshold bucketing.
const (
	imgWidthVM = 752
	imgWidthXC = 1280

	contrastOffsetVM          = 1800
	contrastOffsetXC          = 1200
	contrastXCGradationFactor = 2.0
)

// contrastOffset looks up the contrast-gating offset for a sensor of the
// given width. Any width other than the two known sensors yields 0,
// matching the original's uninitialized-to-zero fallthrough.
func contrastOffset(sensorWidth int, gradationCorrected bool) float64 {
	switch sensorWidth {
	case imgWidthVM:
		return contrastOffsetVM
	case imgWidthXC:
		if gradationCorrected {
			// unverified: no known-good reference image for this path
			// yet (spec §9 open question — the alternate formula is
			// kept but flagged rather than deleted).
			return contrastOffsetXC * contrastXCGradationFactor
		}
		return contrastOffsetXC
	default:
		return 0
	}
}
