package matcher

import "math"

// subpixelFlatDenominatorEpsilon is the threshold below which the
// parabolic refinement's denominator is treated as numerically flat.
// See DESIGN.md "Open Question decisions" #1: spec §9 leaves the
// near-zero-denominator behaviour unspecified and says either choice is
// valid as long as it's documented. We fall back to the integer
// disparity (δ = 0) rather than risk an unbounded δ from dividing by a
// near-zero curvature estimate.
const subpixelFlatDenominatorEpsilon = 1e-6

// refineSubpixel applies spec §4.2's parabolic interpolation around the
// integer argmin d, given the three SSD samples bracketing it. Returns
// the refined disparity (d + δ) and true; the bool is true also when a
// flat denominator leaves d unrefined. The caller still must independently reject d at the search-range
// boundaries (d == 0 or d == depth-1) per spec.
func refineSubpixel(d int, ssdPrev, ssdAt, ssdNext float64) (float64, bool) {
	denom := 2*ssdPrev - 4*ssdAt + 2*ssdNext
	if math.Abs(denom) < subpixelFlatDenominatorEpsilon {
		return float64(d), true
	}
	delta := (ssdPrev - ssdNext) / denom
	return float64(d) + delta, true
}

// toSubpixelUnits scales a floating-point disparity to the spec's
// integer 1/1000-pixel representation, rounding to nearest.
func toSubpixelUnits(d float64) int32 {
	return int32(math.Round(d * 1000))
}
