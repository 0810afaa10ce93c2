// Package decoder defines the frame-decoder stage and the camera/replay
// Source contract (spec §6). Both are external collaborators: the real
// camera SDK and the on-sensor demosaic/merge hardware are out of scope
// (spec §1); this package gives them a typed seam so the pipeline
// controller can dispatch to either a real implementation or a test
// double without changing its own code.
package decoder

import (
	"github.com/stereodpl/dpl/dplerr"
	"github.com/stereodpl/dpl/frame"
	"github.com/stereodpl/dpl/internal/pool"
)

// SourceStatus is the outcome of one Source.NextFrame call (spec §6).
type SourceStatus int

const (
	StatusOk SourceStatus = iota
	StatusNoImage
	StatusError
)

// Source is the camera SDK / file-replay collaborator contract:
// next_frame(out ImageFrame) -> {Ok, NoImage, Error} (spec §6). Frames
// arrive at irregular rates; the pipeline is robust to drops.
type Source interface {
	NextFrame(out *frame.ImageFrame) (SourceStatus, error)
}

// Stage is the frame-decoder signal-processing stage run when
// stereo_matching is off and frame_decoder is on (spec §4.1 dispatch
// table). For DoubleCombined shutter mode it performs double-shutter
// merge into the frame's Merged slot; for any other mode it performs the
// single-shutter decode. Both paths are external-collaborator
// responsibilities in the real system (the on-camera ISP); this package
// provides the typed seam and a reference pass-through/merge
// implementation sufficient to exercise the dispatch table end to end.
type Stage struct {
	name string
}

// NewStage constructs the frame-decoder stage.
func NewStage() *Stage { return &Stage{name: "frame_decoder"} }

func (s *Stage) Name() string { return s.name }

// DecodeSingle copies in's Latest slot into out's Latest slot unchanged
// (spec §9 "the Latest/Previous slots are copied through unchanged"),
// demosaicing BayerLeft/BayerRight into Left/Right first when the source
// is a Bayer camera (spec §1 "the external stereo camera collaborator
// ... grayscale (or Bayer) images").
func (s *Stage) DecodeSingle(in, out *frame.ImageFrame) *dplerr.Error {
	demosaicSlot(&in.Slots[frame.SlotLatest])
	demosaicSlot(&in.Slots[frame.SlotPrevious])
	copyPlaneSet(&out.Slots[frame.SlotLatest], &in.Slots[frame.SlotLatest])
	copyPlaneSet(&out.Slots[frame.SlotPrevious], &in.Slots[frame.SlotPrevious])
	return nil
}

// demosaicSlot fills a slot's Left/Right grayscale planes from its
// BayerLeft/BayerRight planes, when the camera delivered Bayer raw
// instead of already-grayscale images.
func demosaicSlot(ps *frame.PlaneSet) {
	demosaicOne(ps.Plane(frame.PlaneBayerLeft), ps.Plane(frame.PlaneLeft))
	demosaicOne(ps.Plane(frame.PlaneBayerRight), ps.Plane(frame.PlaneRight))
}

func demosaicOne(bayer, out *frame.Plane) {
	if bayer.Empty() || !out.Empty() {
		return
	}
	*out = frame.DemosaicBayerNearest(bayer)
}

// DecodeDoubleCombined produces a merged image in out's Merged slot from
// in's Latest and Previous slots (the double-shutter combine the
// camera's ISP performs upstream in the real system), in addition to the
// unchanged Latest/Previous copy-through.
func (s *Stage) DecodeDoubleCombined(in, out *frame.ImageFrame) *dplerr.Error {
	if err := s.DecodeSingle(in, out); err != nil {
		return err
	}
	latest := in.Slot(frame.SlotLatest).Plane(frame.PlaneLeft)
	previous := in.Slot(frame.SlotPrevious).Plane(frame.PlaneLeft)
	merged := out.Slot(frame.SlotMerged).Plane(frame.PlaneLeft)

	if latest.Empty() {
		return dplerr.Stage(s.name, -1, errNoLatestPlane)
	}
	*merged = frame.Plane{Width: latest.Width, Height: latest.Height, Channels: latest.Channels,
		Data: growBytes(merged.Data, len(latest.Data))}

	if previous.Empty() || len(previous.Data) != len(latest.Data) {
		copy(merged.Data, latest.Data)
		return nil
	}
	for i, v := range latest.Data {
		merged.Data[i] = byte((int(v) + int(previous.Data[i])) / 2)
	}
	return nil
}

func copyPlaneSet(dst, src *frame.PlaneSet) {
	for k := range src.Planes {
		sp := &src.Planes[k]
		if sp.Empty() {
			dst.Planes[k].Width = 0
			continue
		}
		dp := &dst.Planes[k]
		dp.Width, dp.Height, dp.Channels = sp.Width, sp.Height, sp.Channels
		dp.Data = growBytes(dp.Data, len(sp.Data))
		copy(dp.Data, sp.Data)
	}
}

// growBytes returns b resized to length n, reusing b's capacity when
// possible. When b must grow, the undersized buffer is returned to the
// plane pool and a replacement is drawn from it (spec §9 "per-frame
// scratch allocation": plane buffers are recycled rather than
// reallocated every frame).
func growBytes(b []byte, n int) []byte {
	if cap(b) >= n {
		return b[:n]
	}
	pool.PutPlane(b)
	return pool.GetPlane(n)
}
