package frame

// BlockDisparity is the scratch output of the stereo matcher, shared
// with the disparity filter (spec §3). The matcher sizes it from each
// frame's own image geometry (Resize, which reuses backing arrays that
// are already large enough) and clears it (Clear) at the start of every
// frame. It is not presized from the engine's maximum image dimensions.
type BlockDisparity struct {
	ImageWidth, ImageHeight int
	BlockHeight, BlockWidth int
	MatchHeight, MatchWidth int
	OffsetX, OffsetY        int
	Depth                   int // search depth, max disparity in pixels
	ShadeBandWidth          int // pixels unreachable near the right edge

	BlockRows, BlockCols int

	// Per-block arrays, row-major, sized BlockRows*BlockCols.
	Value    []int32   // integer sub-pixel disparity (1/1000 px), pblkval
	Contrast []int32   // per-block contrast, pblkcrst
	Disparity []float64 // floating-point disparity, pblkdsp
	Back     []int32   // back-matching disparity grid

	// Full-size outputs.
	Display []byte    // 8-bit display image, ImageWidth*ImageHeight
	Blended []byte    // blended image buffer for double-shutter merge
	Float   []float32 // per-pixel float disparity, ImageWidth*ImageHeight
}

// Resize (re)allocates BlockDisparity's arrays for the given geometry,
// reusing existing backing arrays when they are already large enough.
// The matcher calls it at the start of every Match with that frame's
// geometry, so a frame no larger than an earlier one allocates nothing
// and a larger frame grows the arrays.
func (b *BlockDisparity) Resize(imageWidth, imageHeight, blockHeight, blockWidth, matchHeight, matchWidth, offsetX, offsetY, depth, shadeBandWidth int) {
	b.ImageWidth, b.ImageHeight = imageWidth, imageHeight
	b.BlockHeight, b.BlockWidth = blockHeight, blockWidth
	b.MatchHeight, b.MatchWidth = matchHeight, matchWidth
	b.OffsetX, b.OffsetY = offsetX, offsetY
	b.Depth = depth
	b.ShadeBandWidth = shadeBandWidth

	b.BlockRows = imageHeight / blockHeight
	b.BlockCols = imageWidth / blockWidth
	if shadeBandWidth > 0 && blockWidth > 0 {
		skip := shadeBandWidth / blockWidth
		b.BlockCols -= skip
		if b.BlockCols < 0 {
			b.BlockCols = 0
		}
	}

	n := b.BlockRows * b.BlockCols
	b.Value = growInt32(b.Value, n)
	b.Contrast = growInt32(b.Contrast, n)
	b.Disparity = growFloat64(b.Disparity, n)
	b.Back = growInt32(b.Back, n)

	pix := imageWidth * imageHeight
	b.Display = growByte(b.Display, pix)
	b.Blended = growByte(b.Blended, pix)
	b.Float = growFloat32(b.Float, pix)
}

// Clear zeroes all per-block and per-pixel outputs for the next frame
// without shrinking the backing arrays.
func (b *BlockDisparity) Clear() {
	zeroInt32(b.Value)
	zeroInt32(b.Contrast)
	zeroFloat64(b.Disparity)
	zeroInt32(b.Back)
	zeroByte(b.Display)
	zeroByte(b.Blended)
	zeroFloat32(b.Float)
}

// Index returns the flat index of block (row, col) into the per-block
// arrays.
func (b *BlockDisparity) Index(row, col int) int { return row*b.BlockCols + col }

func growInt32(s []int32, n int) []int32 {
	if cap(s) >= n {
		return s[:n]
	}
	return make([]int32, n)
}
func growFloat64(s []float64, n int) []float64 {
	if cap(s) >= n {
		return s[:n]
	}
	return make([]float64, n)
}
func growFloat32(s []float32, n int) []float32 {
	if cap(s) >= n {
		return s[:n]
	}
	return make([]float32, n)
}
func growByte(s []byte, n int) []byte {
	if cap(s) >= n {
		return s[:n]
	}
	return make([]byte, n)
}
func zeroInt32(s []int32) {
	for i := range s {
		s[i] = 0
	}
}
func zeroFloat64(s []float64) {
	for i := range s {
		s[i] = 0
	}
}
func zeroFloat32(s []float32) {
	for i := range s {
		s[i] = 0
	}
}
func zeroByte(s []byte) {
	for i := range s {
		s[i] = 0
	}
}
