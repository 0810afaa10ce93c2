package filter

import (
	"math"

	"github.com/stereodpl/dpl/frame"
)

// expandBand fills bd.Display and bd.Float for block-rows [rowStart,
// rowEnd), expanding each block's final disparity (grid) to every pixel
// it covers and applying the optional range clamp (spec §4.3 Phase D).
func expandBand(p Params, bd *frame.BlockDisparity, grid []int32, rowStart, rowEnd int) {
	scale := 255.0 / float64(bd.Depth*1000)
	for j := rowStart; j < rowEnd; j++ {
		y0 := bd.OffsetY + j*bd.BlockHeight
		for i := 0; i < bd.BlockCols; i++ {
			x0 := bd.OffsetX + i*bd.BlockWidth
			d := grid[bd.Index(j, i)]
			if p.ClampEnabled && (d < p.ClampLower || d > p.ClampUpper) {
				d = 0
			}
			pix := byte(clampF(math.Round(float64(d)*scale), 0, 255))
			fd := float32(d) / 1000.0

			for yy := 0; yy < bd.BlockHeight; yy++ {
				y := y0 + yy
				if y < 0 || y >= bd.ImageHeight {
					continue
				}
				row := y * bd.ImageWidth
				for xx := 0; xx < bd.BlockWidth; xx++ {
					x := x0 + xx
					if x < 0 || x >= bd.ImageWidth {
						continue
					}
					bd.Display[row+x] = pix
					bd.Float[row+x] = fd
				}
			}
		}
	}
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
