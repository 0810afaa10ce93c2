package filter

import "github.com/stereodpl/dpl/frame"

// direction enumerates the four scan directions Phase C sweeps, each
// line walked forward then backward (spec §4.3 Phase C).
type direction int

const (
	dirHorizontal direction = iota
	dirVertical
	dirDiagonalDown
	dirDiagonalUp
)

// lineIndices returns, for a given direction and line number, the
// sequence of (row, col) block coordinates that make up that line, in
// forward-scan order.
func lineIndices(bd *frame.BlockDisparity, dir direction, line int) [][2]int {
	var pts [][2]int
	switch dir {
	case dirHorizontal:
		if line < 0 || line >= bd.BlockRows {
			return nil
		}
		for c := 0; c < bd.BlockCols; c++ {
			pts = append(pts, [2]int{line, c})
		}
	case dirVertical:
		if line < 0 || line >= bd.BlockCols {
			return nil
		}
		for r := 0; r < bd.BlockRows; r++ {
			pts = append(pts, [2]int{r, line})
		}
	case dirDiagonalDown:
		// line indexes r - c, shifted so it's always >= 0.
		offset := line - (bd.BlockCols - 1)
		r, c := 0, 0
		if offset >= 0 {
			r, c = offset, 0
		} else {
			r, c = 0, -offset
		}
		for r < bd.BlockRows && c < bd.BlockCols {
			pts = append(pts, [2]int{r, c})
			r++
			c++
		}
	case dirDiagonalUp:
		// line indexes r + c.
		sum := line
		r := 0
		if sum >= bd.BlockCols {
			r = sum - bd.BlockCols + 1
		}
		c := sum - r
		for r < bd.BlockRows && c >= 0 {
			pts = append(pts, [2]int{r, c})
			r++
			c--
		}
	}
	return pts
}

func lineCount(bd *frame.BlockDisparity, dir direction) int {
	switch dir {
	case dirHorizontal:
		return bd.BlockRows
	case dirVertical:
		return bd.BlockCols
	case dirDiagonalDown:
		return bd.BlockRows + bd.BlockCols - 1
	case dirDiagonalUp:
		return bd.BlockRows + bd.BlockCols - 1
	}
	return 0
}

// stepPixels is the approximate pixel distance between consecutive
// blocks along dir, used to turn a block run-length into the pixel
// width spec §4.3 Phase C's run-width checks are expressed in.
func stepPixels(bd *frame.BlockDisparity, dir direction) float64 {
	switch dir {
	case dirHorizontal:
		return float64(bd.BlockWidth)
	case dirVertical:
		return float64(bd.BlockHeight)
	default:
		w, h := float64(bd.BlockWidth), float64(bd.BlockHeight)
		return (w + h) / 2 * 1.41421356
	}
}

// completeDirection applies one forward+backward pass of Phase C along
// every line of dir, writing accepted fills into out (already seeded
// with the averaged grid) and leaving untouched blocks as they were.
func completeDirection(p Params, bd *frame.BlockDisparity, out []int32, dir direction, holeFill bool) {
	step := stepPixels(bd, dir)
	for line := 0; line < lineCount(bd, dir); line++ {
		pts := lineIndices(bd, dir, line)
		if len(pts) == 0 {
			continue
		}
		completeLine(p, bd, out, pts, step, holeFill)
	}
}

func completeLine(p Params, bd *frame.BlockDisparity, out []int32, pts [][2]int, step float64, holeFill bool) {
	n := len(pts)
	fWeight := make([]int, n)
	fValue := make([]int32, n)
	lastVal, run := int32(0), 0
	for k := 0; k < n; k++ {
		idx := bd.Index(pts[k][0], pts[k][1])
		v := out[idx]
		if v != 0 {
			lastVal, run = v, 0
			fValue[k], fWeight[k] = v, 0
			continue
		}
		run++
		fValue[k] = lastVal
		fWeight[k] = run
	}

	bWeight := make([]int, n)
	bValue := make([]int32, n)
	lastVal, run = 0, 0
	for k := n - 1; k >= 0; k-- {
		idx := bd.Index(pts[k][0], pts[k][1])
		v := out[idx]
		if v != 0 {
			lastVal, run = v, 0
			bValue[k], bWeight[k] = v, 0
			continue
		}
		run++
		bValue[k] = lastVal
		bWeight[k] = run
	}

	for k := 0; k < n; k++ {
		idx := bd.Index(pts[k][0], pts[k][1])
		if out[idx] != 0 {
			continue
		}

		contrast := bd.Contrast[idx]
		if contrast > p.ContrastLimit && !holeFill {
			continue
		}

		dFront, dBack := fValue[k], bValue[k]
		wf, wb := float64(fWeight[k]), float64(bWeight[k])

		switch {
		case dFront == 0 && dBack == 0:
			continue
		case dFront == 0:
			dFront = int32(float64(dBack) * (2*p.InsideRatio - 1))
		case dBack == 0:
			dBack = int32(float64(dFront) * (2*p.InsideRatio - 1))
		}

		if dFront < p.LowDisparityLimit || dBack < p.LowDisparityLimit {
			continue
		}

		runWidth := (wf + wb) * step
		var limit float64
		if holeFill {
			limit = float64(p.HoleFillSize) + step
		} else {
			limit = p.InsideRatio*float64(dFront) + p.RoundRatio*float64(dBack)
		}
		if runWidth > limit {
			continue
		}

		if runWidth > 0 {
			grad := absFloat(float64(dBack)-float64(dFront)) / runWidth
			if grad >= p.SlopeLimit {
				continue
			}
		}

		num := wb*float64(dFront) + wf*float64(dBack)
		den := wf + wb
		if den == 0 {
			continue
		}
		out[idx] = int32(num / den)
	}
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
