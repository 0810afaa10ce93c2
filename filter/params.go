// Package filter implements the disparity-filter stage (spec §4.3):
// block-disparity averaging, four-direction hole interpolation, and
// optional Hough-line-driven edge sharpening, followed by per-pixel
// expansion into the published output planes.
package filter

import "github.com/stereodpl/dpl/frame"

// Params holds the filter stage's tunables, split by phase. Field names
// stay close to the original instrument's short parameter names where
// spec.md quotes them verbatim (blkshgt, dsprt, ...), since those are the
// values operators tune from the parameter file (see paramio).
type Params struct {
	// Phase B — block-disparity averaging.
	NeighbourHalfRows, NeighbourHalfCols int // blkshgt, blkswdt
	WeightCenter, WeightNear, WeightRound float64
	HistogramIntegrationHalfWidth        int32 // intg, sub-pixel units
	ModeRange                            int32 // range, sub-pixel units
	MinValidRatio                        float64 // dsprt, 0-1
	ReplaceRatio                         float64 // reprt, 0-1
	ValidInRangeRatio                    float64 // vldrt, 0-1

	// Phase C — disparity completion.
	ContrastLimit   int32   // crstlmt
	LowDisparityLimit int32 // lowlmt
	InsideRatio     float64 // inside
	RoundRatio      float64 // round
	SlopeLimit      float64 // slplmt
	HoleFillEnabled bool    // hlfil
	HoleFillSize    int32   // hlsz, sub-pixel units

	// Phase D — expansion and clamp.
	ClampEnabled bool
	ClampLower   int32
	ClampUpper   int32

	// Phase A — edge sharpening (optional).
	EdgeSharpeningEnabled bool
	CannyLow, CannyHigh   float64 // edgthr1, edgthr2
	HoughVoteThreshold    int     // linthr
	HoughMinLineLength    int     // minlen
	HoughMaxLineGap       int     // maxgap
	MinBlocksOnSegment    int     // min_blocks
	MinCoefficientPct     float64 // min_coef, 0-100
	ParallelStripWidth    int     // cmpwdt

	BandCount int
}

// DefaultParams returns the filter's documented defaults.
func DefaultParams() Params {
	return Params{
		NeighbourHalfRows: 2, NeighbourHalfCols: 2,
		WeightCenter: 4, WeightNear: 2, WeightRound: 1,
		HistogramIntegrationHalfWidth: 2000,
		ModeRange:                     4000,
		MinValidRatio:                 0.3,
		ReplaceRatio:                  0.4,
		ValidInRangeRatio:             0.5,

		ContrastLimit:     5,
		LowDisparityLimit: 1000,
		InsideRatio:       0.7,
		RoundRatio:        0.3,
		SlopeLimit:        0.5,
		HoleFillEnabled:   true,
		HoleFillSize:      8000,

		ClampEnabled: false,
		ClampLower:   0,
		ClampUpper:   64000,

		EdgeSharpeningEnabled: false,
		CannyLow:              50, CannyHigh: 150,
		HoughVoteThreshold: 40,
		HoughMinLineLength: 30,
		HoughMaxLineGap:    10,
		MinBlocksOnSegment: 4,
		MinCoefficientPct:  70,
		ParallelStripWidth: 4,

		BandCount: 8,
	}
}

const (
	categoryAveraging   = "AVERAGING"
	categoryCompletion  = "COMPLETION"
	categoryExpansion   = "EXPANSION"
	categoryEdge        = "EDGESHARPEN"
)

// ToParameterSet projects p into the flat key/value view exposed to the
// external configuration collaborator (spec §3, §6).
func (p Params) ToParameterSet() frame.ParameterSet {
	var ps frame.ParameterSet
	set := func(cat, name, desc string, v frame.ParameterValue) {
		ps.Set(frame.ParameterEntry{Category: cat, Name: name, Description: desc, Value: v})
	}
	set(categoryAveraging, "NeighbourHalfRows", "averaging neighbourhood half-height, blocks", frame.IntValue(int64(p.NeighbourHalfRows)))
	set(categoryAveraging, "NeighbourHalfCols", "averaging neighbourhood half-width, blocks", frame.IntValue(int64(p.NeighbourHalfCols)))
	set(categoryAveraging, "WeightCenter", "centre-block sample weight", frame.DoubleValue(p.WeightCenter))
	set(categoryAveraging, "WeightNear", "orthogonal/diagonal-1 sample weight", frame.DoubleValue(p.WeightNear))
	set(categoryAveraging, "WeightRound", "distance-2 sample weight", frame.DoubleValue(p.WeightRound))
	set(categoryAveraging, "IntegrationHalfWidth", "histogram bucket half-width, sub-pixel units (intg)", frame.IntValue(int64(p.HistogramIntegrationHalfWidth)))
	set(categoryAveraging, "ModeRange", "accepted band around histogram mode, sub-pixel units (range)", frame.IntValue(int64(p.ModeRange)))
	set(categoryAveraging, "MinValidRatio", "minimum valid/total weight ratio (dsprt)", frame.DoubleValue(p.MinValidRatio))
	set(categoryAveraging, "ReplaceRatio", "centre-replace threshold (reprt)", frame.DoubleValue(p.ReplaceRatio))
	set(categoryAveraging, "ValidInRangeRatio", "in-range/valid weight ratio to accept the mean (vldrt)", frame.DoubleValue(p.ValidInRangeRatio))

	set(categoryCompletion, "ContrastLimit", "max contrast eligible for completion (crstlmt)", frame.IntValue(int64(p.ContrastLimit)))
	set(categoryCompletion, "LowDisparityLimit", "min flank disparity to accept completion (lowlmt)", frame.IntValue(int64(p.LowDisparityLimit)))
	set(categoryCompletion, "InsideRatio", "inside-run width ratio (inside)", frame.DoubleValue(p.InsideRatio))
	set(categoryCompletion, "RoundRatio", "round-run width ratio (round)", frame.DoubleValue(p.RoundRatio))
	set(categoryCompletion, "SlopeLimit", "max accepted disparity gradient (slplmt)", frame.DoubleValue(p.SlopeLimit))
	set(categoryCompletion, "HoleFillEnabled", "run the extra wide-gap hole-fill pass (hlfil)", frame.IntValue(boolToInt(p.HoleFillEnabled)))
	set(categoryCompletion, "HoleFillSize", "hole-fill max gap, sub-pixel units (hlsz)", frame.IntValue(int64(p.HoleFillSize)))

	set(categoryExpansion, "ClampEnabled", "clamp expanded disparity to [lower, upper] (limit)", frame.IntValue(boolToInt(p.ClampEnabled)))
	set(categoryExpansion, "ClampLower", "clamp lower bound, sub-pixel units", frame.IntValue(int64(p.ClampLower)))
	set(categoryExpansion, "ClampUpper", "clamp upper bound, sub-pixel units", frame.IntValue(int64(p.ClampUpper)))

	set(categoryEdge, "Enabled", "enable Hough-line edge sharpening (Phase A)", frame.IntValue(boolToInt(p.EdgeSharpeningEnabled)))
	set(categoryEdge, "CannyLow", "Canny low threshold (edgthr1)", frame.DoubleValue(p.CannyLow))
	set(categoryEdge, "CannyHigh", "Canny high threshold (edgthr2)", frame.DoubleValue(p.CannyHigh))
	set(categoryEdge, "HoughVoteThreshold", "Hough accumulator vote threshold (linthr)", frame.IntValue(int64(p.HoughVoteThreshold)))
	set(categoryEdge, "HoughMinLineLength", "minimum accepted segment length (minlen)", frame.IntValue(int64(p.HoughMinLineLength)))
	set(categoryEdge, "HoughMaxLineGap", "maximum bridgeable gap (maxgap)", frame.IntValue(int64(p.HoughMaxLineGap)))
	set(categoryEdge, "MinBlocksOnSegment", "minimum sampled blocks to fit a line (min_blocks)", frame.IntValue(int64(p.MinBlocksOnSegment)))
	set(categoryEdge, "MinCoefficientPct", "minimum R^2 * 100 to accept the fit (min_coef)", frame.DoubleValue(p.MinCoefficientPct))
	set(categoryEdge, "ParallelStripWidth", "parallel strip full width to also refill, blocks, half on each side (cmpwdt)", frame.IntValue(int64(p.ParallelStripWidth)))

	return ps
}

// FromParameterSet updates p in place from a projected ParameterSet.
func (p *Params) FromParameterSet(ps frame.ParameterSet) {
	getInt := func(cat, name string, dst *int) {
		if e, ok := ps.Get(cat, name); ok {
			*dst = int(e.Value.Int)
		}
	}
	getInt32 := func(cat, name string, dst *int32) {
		if e, ok := ps.Get(cat, name); ok {
			*dst = int32(e.Value.Int)
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
	getInt(categoryAveraging, "NeighbourHalfRows", &p.NeighbourHalfRows)
	getInt(categoryAveraging, "NeighbourHalfCols", &p.NeighbourHalfCols)
	getFloat(categoryAveraging, "WeightCenter", &p.WeightCenter)
	getFloat(categoryAveraging, "WeightNear", &p.WeightNear)
	getFloat(categoryAveraging, "WeightRound", &p.WeightRound)
	getInt32(categoryAveraging, "IntegrationHalfWidth", &p.HistogramIntegrationHalfWidth)
	getInt32(categoryAveraging, "ModeRange", &p.ModeRange)
	getFloat(categoryAveraging, "MinValidRatio", &p.MinValidRatio)
	getFloat(categoryAveraging, "ReplaceRatio", &p.ReplaceRatio)
	getFloat(categoryAveraging, "ValidInRangeRatio", &p.ValidInRangeRatio)

	getInt32(categoryCompletion, "ContrastLimit", &p.ContrastLimit)
	getInt32(categoryCompletion, "LowDisparityLimit", &p.LowDisparityLimit)
	getFloat(categoryCompletion, "InsideRatio", &p.InsideRatio)
	getFloat(categoryCompletion, "RoundRatio", &p.RoundRatio)
	getFloat(categoryCompletion, "SlopeLimit", &p.SlopeLimit)
	getBool(categoryCompletion, "HoleFillEnabled", &p.HoleFillEnabled)
	getInt32(categoryCompletion, "HoleFillSize", &p.HoleFillSize)

	getBool(categoryExpansion, "ClampEnabled", &p.ClampEnabled)
	getInt32(categoryExpansion, "ClampLower", &p.ClampLower)
	getInt32(categoryExpansion, "ClampUpper", &p.ClampUpper)

	getBool(categoryEdge, "Enabled", &p.EdgeSharpeningEnabled)
	getFloat(categoryEdge, "CannyLow", &p.CannyLow)
	getFloat(categoryEdge, "CannyHigh", &p.CannyHigh)
	getInt(categoryEdge, "HoughVoteThreshold", &p.HoughVoteThreshold)
	getInt(categoryEdge, "HoughMinLineLength", &p.HoughMinLineLength)
	getInt(categoryEdge, "HoughMaxLineGap", &p.HoughMaxLineGap)
	getInt(categoryEdge, "MinBlocksOnSegment", &p.MinBlocksOnSegment)
	getFloat(categoryEdge, "MinCoefficientPct", &p.MinCoefficientPct)
	getInt(categoryEdge, "ParallelStripWidth", &p.ParallelStripWidth)
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
