package frame

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// DemosaicBayerNearest reduces a single-channel Bayer-pattern raw plane to
// a half-resolution grayscale plane by averaging each 2x2 Bayer quad. This
// is a luma-only reduction, not full color-aware Bayer interpolation —
// sufficient for stereo matching, which only consumes intensity (the
// camera SDK's own ISP is the authority on color-correct demosaicing;
// spec §1 scopes that out).
func DemosaicBayerNearest(bayer *Plane) Plane {
	w, h := bayer.Width/2, bayer.Height/2
	out := Plane{Width: w, Height: h, Channels: 1, Data: make([]byte, w*h)}
	for y := 0; y < h; y++ {
		srcRow := (2 * y) * bayer.Width
		dstRow := y * w
		for x := 0; x < w; x++ {
			i00 := srcRow + 2*x
			i10 := i00 + bayer.Width
			sum := int(bayer.Data[i00]) + int(bayer.Data[i00+1]) + int(bayer.Data[i10]) + int(bayer.Data[i10+1])
			out.Data[dstRow+x] = byte(sum / 4)
		}
	}
	return out
}

// ScaleNearest resizes src to width x height using nearest-neighbor
// sampling, preserving hard block edges (used where exact pixel
// replication matters, e.g. expanding the matcher's block-resolution
// disparity grid to image resolution).
func ScaleNearest(src *Plane, width, height int) Plane {
	return scalePlane(src, width, height, xdraw.NearestNeighbor)
}

// ScaleBox resizes src to width x height using an approximate box/
// bilinear filter, appropriate for a bandwidth-limited preview stream
// where aliasing from nearest-neighbor downsampling would be visible.
func ScaleBox(src *Plane, width, height int) Plane {
	return scalePlane(src, width, height, xdraw.ApproxBiLinear)
}

func scalePlane(src *Plane, width, height int, scaler xdraw.Scaler) Plane {
	out := Plane{Width: width, Height: height, Channels: src.Channels, Data: make([]byte, width*height)}
	if src.Width == 0 || src.Height == 0 || width == 0 || height == 0 {
		return out
	}
	srcImg := &image.Gray{Pix: src.Data, Stride: src.Width, Rect: image.Rect(0, 0, src.Width, src.Height)}
	dstImg := &image.Gray{Pix: out.Data, Stride: width, Rect: image.Rect(0, 0, width, height)}
	scaler.Scale(dstImg, dstImg.Rect, srcImg, srcImg.Rect, xdraw.Src, nil)
	return out
}
