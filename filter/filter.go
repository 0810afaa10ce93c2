package filter

import (
	"log/slog"

	"github.com/stereodpl/dpl/band"
	"github.com/stereodpl/dpl/dplerr"
	"github.com/stereodpl/dpl/frame"
)

type filterPhase int

const (
	phaseAverage filterPhase = iota
	phaseExpand
)

// Stage is the disparity-filter pipeline stage: block-disparity
// averaging, optional Hough-line edge sharpening, four-direction hole
// completion, and pixel expansion (spec §4.3).
type Stage struct {
	params Params
	pool   *band.Pool
	log    *slog.Logger

	grid []int32 // scratch output grid, reused across frames

	cur struct {
		bd    *frame.BlockDisparity
		phase filterPhase
	}
}

// NewStage constructs a filter stage with the given parameters.
func NewStage(p Params, log *slog.Logger) *Stage {
	if log == nil {
		log = slog.Default()
	}
	return &Stage{params: p, log: log}
}

func (s *Stage) Name() string { return "disparity_filter" }

func (s *Stage) Start() {
	n := s.params.BandCount
	if n <= 0 {
		n = band.DefaultBandCount
	}
	s.pool = band.NewPool(n, s.runBand)
	s.pool.Start()
}

func (s *Stage) Stop() {
	if s.pool != nil {
		s.pool.Stop()
	}
}

func (s *Stage) Parameters() frame.ParameterSet { return s.params.ToParameterSet() }

func (s *Stage) SetParameters(ps frame.ParameterSet) error {
	s.params.FromParameterSet(ps)
	return nil
}

// Filter runs the full disparity-filter pipeline over bd, which must
// already hold the matcher's forward disparity/contrast grid (bd.Value,
// bd.Contrast). in is the reference-image source for the optional edge
// sharpening pass. Writes the final per-pixel outputs into bd.Display
// and bd.Float.
func (s *Stage) Filter(in *frame.ImageFrame, bd *frame.BlockDisparity) *dplerr.Error {
	n := bd.BlockRows * bd.BlockCols
	if cap(s.grid) < n {
		s.grid = make([]int32, n)
	}
	s.grid = s.grid[:n]

	if s.pool == nil {
		s.Start()
	}

	s.cur.bd = bd
	s.cur.phase = phaseAverage
	s.pool.Dispatch(bd.BlockRows)

	if s.params.EdgeSharpeningEnabled {
		right := in.Slot(frame.SlotLatest).Plane(frame.PlaneRight)
		if right.Empty() {
			return dplerr.Stage(s.Name(), -1, errMissingReferencePlane)
		}
		edges := detectEdges(right, s.params.CannyLow, s.params.CannyHigh)
		segs := houghSegments(edges, right.Width, right.Height, s.params.HoughVoteThreshold, s.params.HoughMinLineLength, s.params.HoughMaxLineGap)
		sharpenAlongSegments(s.params, bd, s.grid, segs)
	}

	// Complement-mode order V, H, DiagUp, DiagDown matches
	// original_source/.../DisparityFilter.cpp's getComplementDisparity.
	completeDirection(s.params, bd, s.grid, dirVertical, false)
	completeDirection(s.params, bd, s.grid, dirHorizontal, false)
	completeDirection(s.params, bd, s.grid, dirDiagonalUp, false)
	completeDirection(s.params, bd, s.grid, dirDiagonalDown, false)

	if s.params.HoleFillEnabled {
		// Hole-fill mode runs H, V, DiagUp, DiagDown, then repeats H, V
		// a second time (spec §4.3 "hole-fill mode ... repeats H/V after
		// all four directions"; getHoleFillingDisparity).
		completeDirection(s.params, bd, s.grid, dirHorizontal, true)
		completeDirection(s.params, bd, s.grid, dirVertical, true)
		completeDirection(s.params, bd, s.grid, dirDiagonalUp, true)
		completeDirection(s.params, bd, s.grid, dirDiagonalDown, true)
		completeDirection(s.params, bd, s.grid, dirHorizontal, true)
		completeDirection(s.params, bd, s.grid, dirVertical, true)
	}

	s.cur.phase = phaseExpand
	s.pool.Dispatch(bd.BlockRows)
	return nil
}

// runBand is the band.Func run by the band-thread pool; s.cur.phase
// selects which of the two band-parallel passes (averaging, expansion)
// this dispatch performs, mirroring matcher.Stage's forward/backward
// selector (see matcher/matcher.go).
func (s *Stage) runBand(_ int, rowStart, rowEnd int) {
	bd := s.cur.bd
	if s.cur.phase == phaseExpand {
		expandBand(s.params, bd, s.grid, rowStart, rowEnd)
		return
	}

	rh, rw := s.params.NeighbourHalfRows, s.params.NeighbourHalfCols
	for j := rowStart; j < rowEnd; j++ {
		for i := 0; i < bd.BlockCols; i++ {
			idx := bd.Index(j, i)
			if j < rh || i < rw || j >= bd.BlockRows-rh || i >= bd.BlockCols-rw {
				s.grid[idx] = bd.Value[idx]
				continue
			}
			s.grid[idx] = averageBlock(s.params, bd, bd.Value, j, i)
		}
	}
}
