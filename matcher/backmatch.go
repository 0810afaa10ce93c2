package matcher

import "github.com/stereodpl/dpl/frame"

// blendBackMatch applies spec §4.2's bidirectional back-matching
// agreement test to every block, using the Back grid matchBand's
// backward pass already filled in. Runs single-threaded after both band
// passes complete: the neighbourhood window read for each block overlaps
// its neighbours', so this pass cannot itself be split without either
// duplicating work or introducing false sharing across bands, and it is
// cheap relative to the SSD search it follows.
func (s *Stage) blendBackMatch(bd *frame.BlockDisparity) {
	p := s.params
	w := p.BackMatchHalfWindow
	side := 2*w + 1
	neighbourhood := float64(side * side)

	for j := 0; j < bd.BlockRows; j++ {
		for i := 0; i < bd.BlockCols; i++ {
			idx := bd.Index(j, i)

			if j < w || i < w || j >= bd.BlockRows-w || i >= bd.BlockCols-w {
				bd.Value[idx] = 0
				bd.Disparity[idx] = 0
				continue
			}

			d := bd.Value[idx]
			var zeroCount, validCount int
			for dj := -w; dj <= w; dj++ {
				for di := -w; di <= w; di++ {
					back := bd.Back[bd.Index(j+dj, i+di)]
					if back == 0 {
						zeroCount++
					}
					if abs32(back-d) <= p.BackMatchRange {
						validCount++
					}
				}
			}

			if float64(zeroCount) >= p.ZeroRatio*neighbourhood {
				bd.Value[idx] = 0
				bd.Disparity[idx] = 0
				continue
			}
			if float64(validCount) < p.ValidRatio*neighbourhood {
				bd.Value[idx] = 0
				bd.Disparity[idx] = 0
			}
		}
	}
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
