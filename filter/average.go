package filter

import "github.com/stereodpl/dpl/frame"

// neighbourWeight classifies a neighbour offset by squared pixel distance
// from the block under test (spec §4.3 Phase B step 1).
func neighbourWeight(p Params, dj, di int) float64 {
	d2 := dj*dj + di*di
	switch {
	case d2 == 0:
		return p.WeightCenter
	case d2 == 1 || d2 == 2:
		return p.WeightNear
	case d2 == 4 || d2 == 5 || d2 == 8:
		return p.WeightRound
	default:
		return 1
	}
}

// averageBlock applies spec §4.3 Phase B to a single interior block
// (j, i), reading the matcher's forward disparity/contrast grid (src)
// and returning the averaged output disparity.
func averageBlock(p Params, bd *frame.BlockDisparity, src []int32, j, i int) int32 {
	rh, rw := p.NeighbourHalfRows, p.NeighbourHalfCols
	hist := newMovingHistogram(1024, 0, int32(bd.Depth)*1000)

	var wValid, wTotal float64
	centre := src[bd.Index(j, i)]

	for dj := -rh; dj <= rh; dj++ {
		nj := j + dj
		if nj < 0 || nj >= bd.BlockRows {
			continue
		}
		for di := -rw; di <= rw; di++ {
			ni := i + di
			if ni < 0 || ni >= bd.BlockCols {
				continue
			}
			w := neighbourWeight(p, dj, di)
			wTotal += w
			d := src[bd.Index(nj, ni)]
			if d <= 1 { // spec: "valid" means disparity > 1 sub-pixel unit
				continue
			}
			wValid += w
			hist.Add(d, p.HistogramIntegrationHalfWidth, w)
		}
	}

	if wTotal == 0 || wValid/wTotal < p.MinValidRatio {
		return 0
	}

	mode := hist.Mode()
	lo, hi := mode-p.ModeRange, mode+p.ModeRange

	var wIn, sumIn float64
	for dj := -rh; dj <= rh; dj++ {
		nj := j + dj
		if nj < 0 || nj >= bd.BlockRows {
			continue
		}
		for di := -rw; di <= rw; di++ {
			ni := i + di
			if ni < 0 || ni >= bd.BlockCols {
				continue
			}
			d := src[bd.Index(nj, ni)]
			if d <= 1 || d < lo || d > hi {
				continue
			}
			w := neighbourWeight(p, dj, di)
			wIn += w
			sumIn += w * float64(d)
		}
	}

	if (centre < lo || centre > hi) && wIn/wTotal < p.ReplaceRatio {
		return 0
	}
	if wIn/wValid < p.ValidInRangeRatio {
		return 0
	}
	return int32(sumIn / wIn)
}
