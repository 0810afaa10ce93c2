package filter

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/stereodpl/dpl/frame"
)

func makeGrid(rows, cols int, fill func(j, i int) int32) (*frame.BlockDisparity, []int32) {
	var bd frame.BlockDisparity
	bd.BlockRows, bd.BlockCols = rows, cols
	bd.BlockWidth, bd.BlockHeight = 4, 4
	bd.ImageWidth, bd.ImageHeight = cols*4, rows*4
	bd.Depth = 64
	bd.Value = make([]int32, rows*cols)
	bd.Contrast = make([]int32, rows*cols)
	bd.Display = make([]byte, bd.ImageWidth*bd.ImageHeight)
	bd.Float = make([]float32, bd.ImageWidth*bd.ImageHeight)
	for j := 0; j < rows; j++ {
		for i := 0; i < cols; i++ {
			bd.Value[bd.Index(j, i)] = fill(j, i)
		}
	}
	return &bd, bd.Value
}

func TestMovingHistogram_ModeOfSingleCluster(t *testing.T) {
	c := qt.New(t)
	h := newMovingHistogram(1024, 0, 64000)
	for _, v := range []int32{10000, 10200, 9800, 10100} {
		h.Add(v, 1000, 1)
	}
	h.Add(40000, 1000, 1)
	mode := h.Mode()
	c.Assert(mode > 8000 && mode < 12000, qt.IsTrue, qt.Commentf("mode=%d", mode))
}

func TestAverageBlock_UniformNeighbourhoodKeepsValue(t *testing.T) {
	c := qt.New(t)
	p := DefaultParams()
	bd, _ := makeGrid(7, 7, func(j, i int) int32 { return 16000 })
	got := averageBlock(p, bd, bd.Value, 3, 3)
	c.Assert(got, qt.Equals, int32(16000))
}

func TestAverageBlock_SparseNeighbourhoodZeros(t *testing.T) {
	c := qt.New(t)
	p := DefaultParams()
	bd, _ := makeGrid(7, 7, func(j, i int) int32 {
		if j == 3 && i == 3 {
			return 16000
		}
		return 0
	})
	got := averageBlock(p, bd, bd.Value, 3, 3)
	c.Assert(got, qt.Equals, int32(0))
}

func TestCompleteDirection_FillsGapBetweenTwoValidBlocks(t *testing.T) {
	c := qt.New(t)
	p := DefaultParams()
	p.LowDisparityLimit = 0
	p.ContrastLimit = 1000

	bd, grid := makeGrid(1, 9, func(j, i int) int32 {
		if i == 0 || i == 8 {
			return 8000
		}
		return 0
	})
	completeDirection(p, bd, grid, dirHorizontal, false)

	for i := 1; i < 8; i++ {
		c.Assert(grid[bd.Index(0, i)], qt.Not(qt.Equals), int32(0))
	}
}

func TestCompleteDirection_LeavesIsolatedZerosWhenNoAnchors(t *testing.T) {
	c := qt.New(t)
	p := DefaultParams()
	bd, grid := makeGrid(1, 5, func(j, i int) int32 { return 0 })
	completeDirection(p, bd, grid, dirHorizontal, false)
	for i := 0; i < 5; i++ {
		c.Assert(grid[bd.Index(0, i)], qt.Equals, int32(0))
	}
}

func TestExpandBand_ClampZeroesOutOfRange(t *testing.T) {
	c := qt.New(t)
	p := DefaultParams()
	p.ClampEnabled = true
	p.ClampLower, p.ClampUpper = 1000, 2000
	bd, grid := makeGrid(1, 1, func(j, i int) int32 { return 50000 })
	expandBand(p, bd, grid, 0, 1)
	c.Assert(bd.Float[0], qt.Equals, float32(0))
}

func TestLinearRegression_PerfectFitHasR2One(t *testing.T) {
	c := qt.New(t)
	samples := []blockSample{
		{pos: 0, d: 1000},
		{pos: 1, d: 2000},
		{pos: 2, d: 3000},
	}
	slope, intercept, r2 := linearRegression(samples)
	c.Assert(r2 > 0.99, qt.IsTrue)
	c.Assert(slope > 999 && slope < 1001, qt.IsTrue)
	c.Assert(intercept > 999 && intercept < 1001, qt.IsTrue)
}
