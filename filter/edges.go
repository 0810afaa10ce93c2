package filter

import (
	"math"

	"github.com/stereodpl/dpl/frame"
)

// segment is one accepted Hough line segment on the reference image, in
// pixel coordinates.
type segment struct {
	x0, y0, x1, y1 int
}

// detectEdges runs a Sobel-gradient edge map with hysteresis thresholding
// (spec §4.3 Phase A step 1: "Canny edges with thresholds (edgthr1,
// edgthr2)"). Returns a boolean mask, ImageWidth*ImageHeight.
func detectEdges(plane *frame.Plane, low, high float64) []bool {
	w, h := plane.Width, plane.Height
	mag := make([]float64, w*h)
	at := func(x, y int) float64 {
		if x < 0 {
			x = 0
		}
		if x >= w {
			x = w - 1
		}
		if y < 0 {
			y = 0
		}
		if y >= h {
			y = h - 1
		}
		return float64(plane.Data[y*w+x])
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx := -at(x-1, y-1) - 2*at(x-1, y) - at(x-1, y+1) + at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1)
			gy := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) + at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)
			mag[y*w+x] = math.Hypot(gx, gy)
		}
	}

	strong := make([]bool, w*h)
	weak := make([]bool, w*h)
	for i, m := range mag {
		if m >= high {
			strong[i] = true
		} else if m >= low {
			weak[i] = true
		}
	}

	// Hysteresis: promote weak pixels 8-connected to a strong pixel.
	edges := make([]bool, w*h)
	copy(edges, strong)
	changed := true
	for changed {
		changed = false
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				i := y*w + x
				if edges[i] || !weak[i] {
					continue
				}
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						nx, ny := x+dx, y+dy
						if nx < 0 || nx >= w || ny < 0 || ny >= h {
							continue
						}
						if edges[ny*w+nx] {
							edges[i] = true
							changed = true
						}
					}
				}
			}
		}
	}
	return edges
}

// houghSegments runs a probabilistic Hough transform over edges: points
// vote into an (angle, radius) accumulator, the strongest bins are walked
// pixel-by-pixel along their line to collect a segment, bridging gaps up
// to maxGap and discarding runs shorter than minLen (spec §4.3 Phase A
// step 2).
func houghSegments(edges []bool, w, h int, voteThreshold, minLen, maxGap int) []segment {
	const angleSteps = 180
	diag := int(math.Hypot(float64(w), float64(h)))
	rhoMax := diag
	nRho := 2*rhoMax + 1

	type acc struct {
		votes int
		pts   [][2]int
	}
	bins := make([]acc, angleSteps*nRho)

	cosT := make([]float64, angleSteps)
	sinT := make([]float64, angleSteps)
	for t := 0; t < angleSteps; t++ {
		rad := float64(t) * math.Pi / float64(angleSteps)
		cosT[t] = math.Cos(rad)
		sinT[t] = math.Sin(rad)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !edges[y*w+x] {
				continue
			}
			for t := 0; t < angleSteps; t++ {
				rho := int(float64(x)*cosT[t]+float64(y)*sinT[t]) + rhoMax
				if rho < 0 || rho >= nRho {
					continue
				}
				idx := t*nRho + rho
				bins[idx].votes++
				bins[idx].pts = append(bins[idx].pts, [2]int{x, y})
			}
		}
	}

	var segs []segment
	for _, b := range bins {
		if b.votes < voteThreshold || len(b.pts) < 2 {
			continue
		}
		segs = append(segs, segmentsFromPoints(b.pts, minLen, maxGap)...)
	}
	return segs
}

// segmentsFromPoints sorts the accumulator bin's member points along
// their dominant axis and splits them into runs, bridging gaps up to
// maxGap pixels and keeping runs whose span is at least minLen.
func segmentsFromPoints(pts [][2]int, minLen, maxGap int) []segment {
	if len(pts) < 2 {
		return nil
	}
	dx := pts[len(pts)-1][0] - pts[0][0]
	dy := pts[len(pts)-1][1] - pts[0][1]
	byX := absInt(dx) >= absInt(dy)

	sorted := append([][2]int(nil), pts...)
	sortPoints(sorted, byX)

	var segs []segment
	runStart := 0
	for k := 1; k <= len(sorted); k++ {
		broke := k == len(sorted)
		if !broke {
			var gap int
			if byX {
				gap = sorted[k][0] - sorted[k-1][0]
			} else {
				gap = sorted[k][1] - sorted[k-1][1]
			}
			broke = gap > maxGap
		}
		if broke {
			a, b := sorted[runStart], sorted[k-1]
			length := int(math.Hypot(float64(b[0]-a[0]), float64(b[1]-a[1])))
			if length >= minLen {
				segs = append(segs, segment{x0: a[0], y0: a[1], x1: b[0], y1: b[1]})
			}
			runStart = k
		}
	}
	return segs
}

func sortPoints(pts [][2]int, byX bool) {
	// Insertion sort: Hough accumulator bins hold at most a few hundred
	// points for realistic image sizes, so O(n^2) is not a concern here.
	for i := 1; i < len(pts); i++ {
		for j := i; j > 0; j-- {
			var less bool
			if byX {
				less = pts[j][0] < pts[j-1][0]
			} else {
				less = pts[j][1] < pts[j-1][1]
			}
			if !less {
				break
			}
			pts[j], pts[j-1] = pts[j-1], pts[j]
		}
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// sharpenAlongSegments implements spec §4.3 Phase A steps 3-7: discard
// near-horizontal segments, walk each survivor in half-block steps
// collecting (block, disparity) samples, remove outliers via a moving
// histogram around the mode, fit a regression line, and on acceptance
// refill the segment (and its parallel strip) with the two-pass
// interpolated values.
func sharpenAlongSegments(p Params, bd *frame.BlockDisparity, out []int32, segs []segment) {
	for _, sg := range segs {
		dy := sg.y1 - sg.y0
		if absInt(dy) < 4 {
			continue // near-horizontal, discarded per step 3
		}

		walked := walkSegmentBlocks(bd, out, sg)
		if len(walked) < p.MinBlocksOnSegment {
			continue
		}
		inliers := removeOutliers(bd, walked)
		if len(inliers) < p.MinBlocksOnSegment {
			continue
		}

		slope, intercept, r2 := linearRegression(inliers)
		if r2*100 < p.MinCoefficientPct {
			continue
		}

		refillSegment(bd, out, sg, walked, inliers, slope, intercept, p.ParallelStripWidth)
	}
}

type blockSample struct {
	j, i int
	pos  float64 // distance along the segment's dominant axis
	d    int32
}

func walkSegmentBlocks(bd *frame.BlockDisparity, out []int32, sg segment) []blockSample {
	dx, dy := sg.x1-sg.x0, sg.y1-sg.y0
	steps := absInt(dx)
	byX := true
	if absInt(dy) > absInt(dx) {
		steps = absInt(dy)
		byX = false
	}
	if steps == 0 {
		return nil
	}

	half := bd.BlockWidth / 2
	if !byX {
		half = bd.BlockHeight / 2
	}
	if half < 1 {
		half = 1
	}

	seen := map[[2]int]bool{}
	var samples []blockSample
	for t := 0; t <= steps; t += half {
		frac := float64(t) / float64(steps)
		px := sg.x0 + int(frac*float64(dx))
		py := sg.y0 + int(frac*float64(dy))
		j, i := blockAt(bd, px, py)
		if j < 0 || seen[[2]int{j, i}] {
			continue
		}
		seen[[2]int{j, i}] = true
		pos := float64(t)
		if byX {
			pos = float64(px - sg.x0)
		} else {
			pos = float64(py - sg.y0)
		}
		samples = append(samples, blockSample{j: j, i: i, pos: pos, d: out[bd.Index(j, i)]})
	}
	return samples
}

func blockAt(bd *frame.BlockDisparity, px, py int) (j, i int) {
	if bd.BlockWidth == 0 || bd.BlockHeight == 0 {
		return -1, -1
	}
	j = (py - bd.OffsetY) / bd.BlockHeight
	i = (px - bd.OffsetX) / bd.BlockWidth
	if j < 0 || j >= bd.BlockRows || i < 0 || i >= bd.BlockCols {
		return -1, -1
	}
	return j, i
}

func removeOutliers(bd *frame.BlockDisparity, samples []blockSample) []blockSample {
	hist := newMovingHistogram(1024, 0, int32(bd.Depth)*1000)
	for _, s := range samples {
		if s.d > 0 {
			hist.Add(s.d, 1000, 1)
		}
	}
	mode := hist.Mode()
	lo, hi := float64(mode)-float64(mode)/4, float64(mode)+float64(mode)/4

	var out []blockSample
	for _, s := range samples {
		fd := float64(s.d)
		if fd >= lo && fd <= hi {
			out = append(out, s)
		}
	}
	return out
}

// linearRegression fits d = slope*pos + intercept by least squares and
// returns the coefficient of determination R^2 (0-1).
func linearRegression(samples []blockSample) (slope, intercept, r2 float64) {
	n := float64(len(samples))
	var sumX, sumY, sumXY, sumXX, sumYY float64
	for _, s := range samples {
		x, y := s.pos, float64(s.d)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
		sumYY += y * y
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n, 0
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n

	meanY := sumY / n
	var ssTot, ssRes float64
	for _, s := range samples {
		pred := slope*s.pos + intercept
		ssRes += (float64(s.d) - pred) * (float64(s.d) - pred)
		ssTot += (float64(s.d) - meanY) * (float64(s.d) - meanY)
	}
	if ssTot == 0 {
		return slope, intercept, 1
	}
	r2 = 1 - ssRes/ssTot
	if r2 < 0 {
		r2 = 0
	}
	return slope, intercept, r2
}

// refillSegment applies spec §4.3 Phase A step 7's two-pass interpolator
// to the gap blocks along the segment: a forward pass propagates the
// nearest accepted (inlier) sample with a distance weight, a backward
// pass blends (weight_forward·d_back + weight_back·d_forward) /
// (weight_forward + weight_back), and a block with no accepted sample on
// one side extrapolates that side from the regression line instead
// (spec: "for zeros still at either end, extrapolates using the
// regression slope"). Same scheme as filter/complete.go's completeLine,
// scoped to the blocks walkSegmentBlocks visited (gaps included, not
// just the surviving inliers) and written into the ± stripWidth/2
// parallel strip. Grounded on
// original_source/.../DisparityFilter.cpp:2384-2452 (setComplementDisparity).
func refillSegment(bd *frame.BlockDisparity, out []int32, sg segment, walked, inliers []blockSample, slope, intercept float64, stripWidth int) {
	byX := absInt(sg.x1-sg.x0) >= absInt(sg.y1-sg.y0)
	half := stripWidth / 2

	valid := make(map[[2]int]int32, len(inliers))
	for _, s := range inliers {
		valid[[2]int{s.j, s.i}] = s.d
	}

	n := len(walked)
	fWeight := make([]int, n)
	fValue := make([]int32, n)
	lastVal, run := int32(0), 0
	haveLast := false
	for k := 0; k < n; k++ {
		key := [2]int{walked[k].j, walked[k].i}
		if v, ok := valid[key]; ok {
			lastVal, run, haveLast = v, 0, true
			fValue[k], fWeight[k] = v, 0
			continue
		}
		run++
		if haveLast {
			fValue[k] = lastVal
		} else {
			fValue[k] = int32(slope*walked[k].pos + intercept)
		}
		fWeight[k] = run
	}

	bWeight := make([]int, n)
	bValue := make([]int32, n)
	lastVal, run = 0, 0
	haveLast = false
	for k := n - 1; k >= 0; k-- {
		key := [2]int{walked[k].j, walked[k].i}
		if v, ok := valid[key]; ok {
			lastVal, run, haveLast = v, 0, true
			bValue[k], bWeight[k] = v, 0
			continue
		}
		run++
		if haveLast {
			bValue[k] = lastVal
		} else {
			bValue[k] = int32(slope*walked[k].pos + intercept)
		}
		bWeight[k] = run
	}

	for k := 0; k < n; k++ {
		key := [2]int{walked[k].j, walked[k].i}
		if _, ok := valid[key]; ok {
			continue // already an accepted sample, not a gap
		}
		wf, wb := float64(fWeight[k]), float64(bWeight[k])
		den := wf + wb
		if den == 0 {
			continue
		}
		pred := int32((wb*float64(fValue[k]) + wf*float64(bValue[k])) / den)
		writeStrip(bd, out, walked[k].j, walked[k].i, byX, half, pred)
	}
}

// writeStrip writes val into (j,i) and its ± half parallel neighbours
// (rows if byX, columns otherwise), skipping out-of-grid blocks and
// blocks that already carry a non-zero disparity.
func writeStrip(bd *frame.BlockDisparity, out []int32, j, i int, byX bool, half int, val int32) {
	for k := -half; k <= half; k++ {
		jj, ii := j, i
		if byX {
			jj += k
		} else {
			ii += k
		}
		if jj < 0 || jj >= bd.BlockRows || ii < 0 || ii >= bd.BlockCols {
			continue
		}
		idx := bd.Index(jj, ii)
		if out[idx] == 0 {
			out[idx] = val
		}
	}
}
