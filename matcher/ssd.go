package matcher

// blockStats accumulates the sum and sum-of-squares statistics spec
// §4.2's SSD formula needs, over a single rectangular pixel window of a
// grayscale plane. Grounded on other_examples' scalar SSD kernel
// (sequential row-major access, int64 accumulation to avoid float
// rounding in the hot inner loop, index arithmetic rather than slice
// re-slicing per pixel).
type blockStats struct {
	sum   int64
	sumSq int64
	n     int64
}

// windowStats scans a width*height window of plane (stride bytes per
// row) starting at (x0, y0) and returns its sum/sumSq/N. The window must
// lie fully inside the plane; callers check bounds before calling.
func windowStats(plane []byte, stride, x0, y0, width, height int) blockStats {
	var st blockStats
	for y := 0; y < height; y++ {
		row := (y0+y)*stride + x0
		line := plane[row : row+width]
		for _, v := range line {
			iv := int64(v)
			st.sum += iv
			st.sumSq += iv * iv
		}
	}
	st.n = int64(width * height)
	return st
}

// crossSum returns Σ R·C over a width*height window where R is taken
// from ref at (rx0, ry0) and C from cmp at (cx0, cy0), both with the
// given stride. Used for the cross term in spec §4.2's SSD expansion.
func crossSum(ref []byte, refStride, rx0, ry0 int, cmp []byte, cmpStride, cx0, cy0, width, height int) int64 {
	var sum int64
	for y := 0; y < height; y++ {
		rRow := (ry0+y)*refStride + rx0
		cRow := (cy0+y)*cmpStride + cx0
		rLine := ref[rRow : rRow+width]
		cLine := cmp[cRow : cRow+width]
		for i := 0; i < width; i++ {
			sum += int64(rLine[i]) * int64(cLine[i])
		}
	}
	return sum
}

// ssdFromStats evaluates spec §4.2's zero-mean SSD formula from
// precomputed sums:
//
//	SSD = ΣR² + ΣC² − 2ΣR·C − ((ΣR)² + (ΣC)² − 2·ΣR·ΣC) / N
func ssdFromStats(r, c blockStats, rc int64) float64 {
	n := float64(r.n)
	sumR, sumC := float64(r.sum), float64(c.sum)
	raw := float64(r.sumSq+c.sumSq) - 2*float64(rc)
	centered := (sumR*sumR + sumC*sumC - 2*sumR*sumC) / n
	return raw - centered
}

// minMaxSum returns the minimum and maximum byte values and the
// sum over a width*height window, for the contrast gate (spec §4.2).
func minMaxSum(plane []byte, stride, x0, y0, width, height int) (lmin, lmax uint8, sum int64) {
	lmin, lmax = 255, 0
	for y := 0; y < height; y++ {
		row := (y0+y)*stride + x0
		line := plane[row : row+width]
		for _, v := range line {
			if v < lmin {
				lmin = v
			}
			if v > lmax {
				lmax = v
			}
			sum += int64(v)
		}
	}
	return
}
