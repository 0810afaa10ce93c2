// Package matcher implements the block-based SSD stereo matching stage
// (spec §4.2): sub-pixel parabolic refinement, bidirectional
// back-matching for occlusion rejection, and band-parallel execution
// over horizontal image slabs.
package matcher

import (
	"log/slog"
	"math"

	"github.com/stereodpl/dpl/band"
	"github.com/stereodpl/dpl/dplerr"
	"github.com/stereodpl/dpl/frame"
)

// Stage is one independently-constructed matcher instance, holding its
// own parameters and band-thread pool (spec §9: "re-architect each stage
// as an independently-constructed value", replacing the original's
// module-level globals).
type Stage struct {
	params Params
	pool   *band.Pool
	log    *slog.Logger

	// set by Match, read by the band workers; both planes are
	// read-only borrows for the duration of the call (spec §3: "no
	// stage mutates the input ImageFrame").
	cur struct {
		right, left []byte
		stride      int
		imgW, imgH  int
		bd          *frame.BlockDisparity
		backward    bool
	}
}

// NewStage constructs a matcher stage with the given parameters. Call
// Start before the first Match and Stop at engine terminate.
func NewStage(p Params, log *slog.Logger) *Stage {
	if log == nil {
		log = slog.Default()
	}
	return &Stage{params: p, log: log}
}

func (s *Stage) Name() string { return "stereo_matching" }

// Start launches the band-thread pool (spec §4.4: created once at
// initialise).
func (s *Stage) Start() {
	n := s.params.BandCount
	if n <= 0 {
		n = band.DefaultBandCount
	}
	s.pool = band.NewPool(n, s.matchBand)
	s.pool.Start()
}

// Stop tears down the band-thread pool (spec §4.4: stopped at terminate).
func (s *Stage) Stop() {
	if s.pool != nil {
		s.pool.Stop()
	}
}

// Parameters projects the stage's tunables for the external
// configuration collaborator (spec §3, §6).
func (s *Stage) Parameters() frame.ParameterSet { return s.params.ToParameterSet() }

// SetParameters updates the stage's tunables from a projected
// ParameterSet (spec §5: observed atomically at the top of the next
// stage invocation — here, simply applied directly since Match always
// runs on the single pipeline worker goroutine).
func (s *Stage) SetParameters(ps frame.ParameterSet) error {
	s.params.FromParameterSet(ps)
	return nil
}

// Match runs the full matching pipeline for one frame: contrast-gated
// SSD matching (band-parallel), optional back-matching and blend, and
// 8-bit display-image expansion. Match itself sizes bd for the frame's
// geometry (frame.BlockDisparity.Resize, which reuses existing capacity)
// and clears it before matching.
func (s *Stage) Match(in *frame.ImageFrame, bd *frame.BlockDisparity) *dplerr.Error {
	p := s.params
	right := in.Slot(frame.SlotLatest).Plane(frame.PlaneRight)
	left := in.Slot(frame.SlotLatest).Plane(frame.PlaneLeft)
	if right.Empty() || left.Empty() {
		return dplerr.Stage(s.Name(), -1, errMissingPlanes)
	}
	if right.Width != left.Width || right.Height != left.Height {
		return dplerr.Stage(s.Name(), -2, errGeometryMismatch)
	}

	bd.Resize(right.Width, right.Height, p.BlockHeight, p.BlockWidth, p.MatchHeight, p.MatchWidth, p.OffsetX, p.OffsetY, p.Depth, p.ShadeBandWidth)
	bd.Clear()

	s.cur.right = right.Data
	s.cur.left = left.Data
	s.cur.stride = right.Width
	s.cur.imgW, s.cur.imgH = right.Width, right.Height
	s.cur.bd = bd

	if s.pool == nil {
		s.Start()
	}

	s.cur.backward = false
	s.pool.Dispatch(bd.BlockRows)

	if p.BackMatching {
		s.cur.backward = true
		s.pool.Dispatch(bd.BlockRows)
		s.blendBackMatch(bd)
	}

	s.expandDisplay(bd)
	return nil
}

// matchBand is the band.Func run by the band-thread pool: it matches
// every block in block-rows [rowStart, rowEnd) of the current frame.
// s.cur.backward selects the pass: forward treats right as reference and
// searches left (writing Value/Disparity/Contrast), backward treats left
// as reference and searches right (writing Back only), per spec §4.2's
// bidirectional matching.
func (s *Stage) matchBand(_ int, rowStart, rowEnd int) {
	p := s.params
	bd := s.cur.bd
	backward := s.cur.backward
	for j := rowStart; j < rowEnd; j++ {
		y := p.OffsetY + j*p.BlockHeight
		if y < 0 || y+p.MatchHeight > s.cur.imgH {
			continue
		}
		for i := 0; i < bd.BlockCols; i++ {
			x := p.OffsetX + i*p.BlockWidth
			if x < 0 || x+p.MatchWidth > s.cur.imgW {
				continue
			}
			idx := bd.Index(j, i)
			if backward {
				val, _, _ := s.matchOneBlock(s.cur.left, s.cur.right, x, y, -1)
				bd.Back[idx] = val
				continue
			}
			val, dispF, contrast := s.matchOneBlock(s.cur.right, s.cur.left, x, y, +1)
			bd.Value[idx] = val
			bd.Disparity[idx] = dispF
			bd.Contrast[idx] = contrast
		}
	}
}

// matchOneBlock runs the contrast gate and, if it passes, the full SSD
// search with sub-pixel refinement for one block. shiftSign is +1 to
// search candidate blocks to the right of (x, y) (forward match) or -1 to
// search to the left (back match).
func (s *Stage) matchOneBlock(ref, cmp []byte, x, y, shiftSign int) (value int32, dispF float64, contrast int32) {
	p := s.params
	stride := s.cur.stride

	lmin, lmax, sum := minMaxSum(ref, stride, x, y, p.BlockWidth, p.BlockHeight)
	n := int64(p.BlockWidth * p.BlockHeight)
	lave := float64(sum) / float64(n)
	dl := float64(lmax) - float64(lmin)

	if lmax < 15 || dl < 2 || lave < 7.5 {
		contrast = 0
	} else {
		offset := contrastOffset(s.cur.imgW, p.GradationCorrected)
		contrast = int32(math.Floor((dl*1000 - offset) / lave))
	}
	if contrast < int32(p.ContrastThreshold) {
		return 0, 0, contrast
	}

	refStats := windowStatsFn(ref, stride, x, y, p.MatchWidth, p.MatchHeight)

	ssd := make([]float64, p.Depth)
	valid := make([]bool, p.Depth)
	for k := 0; k < p.Depth; k++ {
		cx := x + shiftSign*k
		if cx < 0 || cx+p.MatchWidth > s.cur.imgW {
			continue
		}
		cStats := windowStatsFn(cmp, stride, cx, y, p.MatchWidth, p.MatchHeight)
		rc := crossSumFn(ref, stride, x, y, cmp, stride, cx, y, p.MatchWidth, p.MatchHeight)
		ssd[k] = ssdFromStats(refStats, cStats, rc)
		valid[k] = true
	}

	d := -1
	var best float64
	for k := 0; k < p.Depth; k++ {
		if !valid[k] {
			continue
		}
		if d < 0 || ssd[k] < best {
			d, best = k, ssd[k]
		}
	}
	if d <= 0 || d >= p.Depth-1 {
		return 0, 0, contrast
	}

	refined, _ := refineSubpixel(d, ssd[d-1], ssd[d], ssd[d+1])
	return toSubpixelUnits(refined), refined, contrast
}

// expandDisplay fills bd.Display by expanding each block's disparity to
// its pixels, scaled by 255/depth (spec §4.2 "Outputs"). The per-block
// values are rendered into a block-resolution plane and nearest-neighbor
// scaled up to image resolution, preserving the hard block edges a
// bilinear filter would blur.
func (s *Stage) expandDisplay(bd *frame.BlockDisparity) {
	p := s.params
	scale := 255.0 / float64(p.Depth)

	grid := frame.Plane{Width: bd.BlockCols, Height: bd.BlockRows, Channels: 1, Data: make([]byte, bd.BlockCols*bd.BlockRows)}
	for j := 0; j < bd.BlockRows; j++ {
		for i := 0; i < bd.BlockCols; i++ {
			idx := bd.Index(j, i)
			grid.Data[j*bd.BlockCols+i] = byte(clamp(math.Round(float64(bd.Value[idx])/1000.0*scale), 0, 255))
		}
	}
	scaled := frame.ScaleNearest(&grid, bd.BlockCols*p.BlockWidth, bd.BlockRows*p.BlockHeight)

	y0 := p.OffsetY
	for y := 0; y < bd.ImageHeight; y++ {
		sy := y - y0
		if sy < 0 || sy >= scaled.Height {
			continue
		}
		row := y * bd.ImageWidth
		srow := sy * scaled.Width
		for x := 0; x < bd.ImageWidth; x++ {
			sx := x - p.OffsetX
			if sx < 0 || sx >= scaled.Width {
				continue
			}
			bd.Display[row+x] = scaled.Data[srow+sx]
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
