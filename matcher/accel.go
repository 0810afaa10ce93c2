package matcher

import "github.com/stereodpl/dpl/internal/cpuid"

// The matcher's hot per-block kernels are reached through function
// variables rather than called directly, mirroring the teacher's DSP
// dispatch table (function-variable swap selected by CPUID at init,
// rather than a runtime branch in every call site). accelInit wires the
// scalar Go implementations unconditionally; accelerated variants have a
// slot to drop into (windowStatsFn etc.) but none are implemented yet, so
// HasAVX2 is only observed, never branched on, until one exists.
var (
	windowStatsFn func(plane []byte, stride, x0, y0, width, height int) blockStats
	crossSumFn    func(ref []byte, refStride, rx0, ry0 int, cmp []byte, cmpStride, cx0, cy0, width, height int) int64
)

func init() {
	accelInit()
}

func accelInit() {
	windowStatsFn = windowStats
	crossSumFn = crossSum
	_ = cpuid.HasAVX2() // reserved for a future AVX2 dispatch branch
}
