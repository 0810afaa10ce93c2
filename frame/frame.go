// Package frame defines the data model shared by every pipeline stage:
// ImageFrame (camera input), BlockDisparity (matcher/filter scratch),
// ResultFrame (published output), and ParameterSet (stage tunables
// projected for the external configuration collaborator).
//
// No type in this package owns a goroutine or a lock; ownership of a
// given value is entirely positional (ring slot, or "borrowed by the
// worker for the duration of a stage" per spec §3).
package frame

import "github.com/stereodpl/dpl/internal/pool"

// ShutterMode enumerates the camera's exposure strategy for a frame.
type ShutterMode int

const (
	ShutterManual ShutterMode = iota
	ShutterAuto
	ShutterDoubleCombined
	ShutterDoubleIndependent
)

func (m ShutterMode) String() string {
	switch m {
	case ShutterManual:
		return "manual"
	case ShutterAuto:
		return "auto"
	case ShutterDoubleCombined:
		return "double-combined"
	case ShutterDoubleIndependent:
		return "double-independent"
	default:
		return "unknown"
	}
}

// ColourMode enumerates whether the camera is emitting a colour plane
// alongside the grayscale/Bayer planes.
type ColourMode int

const (
	ColourOff ColourMode = iota
	ColourOn
)

// Intrinsics carries the camera calibration values needed to turn a
// disparity map into per-pixel depth, without performing rectification
// or calibration itself (both are explicitly out of scope, spec §1).
type Intrinsics struct {
	DInf       float64 // disparity at infinity, sub-pixel units
	BF         float64 // baseline * focal length product
	BaseLength float64 // stereo baseline, millimetres
	Dz         float64 // depth correction offset
}

// Depth converts a sub-pixel disparity value (spec's 1/1000 pixel units)
// to a depth in the same linear unit as BaseLength, using the standard
// stereo disparity-to-depth relation. Returns 0 when d is non-positive,
// matching the "0 means no disparity" convention (spec §3 invariant).
func (in Intrinsics) Depth(subPixelDisparity int32) float64 {
	if subPixelDisparity <= 0 {
		return 0
	}
	d := float64(subPixelDisparity)/1000.0 + in.DInf
	if d <= 0 {
		return 0
	}
	return in.BF/d + in.Dz
}

// PlaneKind names one of the fixed image planes a frame can carry.
type PlaneKind int

const (
	PlaneLeft PlaneKind = iota
	PlaneRight
	PlaneColour
	PlaneRaw
	PlaneRawColour
	PlaneDepth
	PlaneBayerLeft
	PlaneBayerRight
	planeCount
)

// Plane is a single width*height*channels pixel buffer. Width == 0 means
// the plane is unused in this slot (spec §3 "unused slots have width=0").
type Plane struct {
	Width, Height, Channels int
	Data                    []byte
}

// Empty reports whether the plane carries no data.
func (p Plane) Empty() bool { return p.Width == 0 }

// PlaneSet is one of a frame's three slots (Latest, Previous, Merged),
// holding up to planeCount named planes.
type PlaneSet struct {
	Planes [planeCount]Plane
}

func (s *PlaneSet) Plane(k PlaneKind) *Plane { return &s.Planes[k] }

// SlotKind names one of ImageFrame's three PlaneSet slots.
type SlotKind int

const (
	SlotLatest SlotKind = iota
	SlotPrevious
	SlotMerged
	slotCount
)

// ImageFrame is one rectified stereo sample, as produced by the camera
// SDK or file-replay collaborator (spec §3, §6).
type ImageFrame struct {
	FrameNumber uint64 // monotonically increasing
	Exposure    int32
	Gain        int32
	Shutter     ShutterMode
	Colour      ColourMode
	Intrinsics  Intrinsics
	Slots       [slotCount]PlaneSet
}

func (f *ImageFrame) Slot(k SlotKind) *PlaneSet { return &f.Slots[k] }

// Clone returns a deep copy of f, used when publishing a ResultFrame so
// that the ring slot's ImageFrame can be reused for the next submission
// (spec §3 invariant: no stage mutates the input ImageFrame).
func (f *ImageFrame) Clone() *ImageFrame {
	out := *f
	for s := range f.Slots {
		for p := range f.Slots[s].Planes {
			src := f.Slots[s].Planes[p]
			if src.Empty() {
				continue
			}
			dst := pool.GetPlane(len(src.Data))
			copy(dst, src.Data)
			out.Slots[s].Planes[p] = Plane{
				Width: src.Width, Height: src.Height,
				Channels: src.Channels, Data: dst,
			}
		}
	}
	return &out
}

// Reset clears an ImageFrame for reuse in a pooled ring slot, without
// releasing the underlying plane buffers (they're resized in place by
// the next writer).
func (f *ImageFrame) Reset() {
	f.FrameNumber = 0
	f.Exposure, f.Gain = 0, 0
	f.Shutter, f.Colour = ShutterManual, ColourOff
	f.Intrinsics = Intrinsics{}
	for s := range f.Slots {
		for p := range f.Slots[s].Planes {
			f.Slots[s].Planes[p].Width = 0
			f.Slots[s].Planes[p].Height = 0
		}
	}
}
