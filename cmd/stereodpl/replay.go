// Command stereodpl hosts the engine for offline replay: it reads
// rectified stereo pairs from a directory of raw 8-bit planar files,
// drives dpl.Engine, and republishes completed ResultFrames to the
// consumer bridges (SPEC_FULL.md "cmd/stereodpl").
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/stereodpl/dpl/frame"
)

// replaySource reads rectified grayscale stereo pairs from disk through
// its own next method (it does not implement decoder.Source): <dir>/<n>_left.raw and <dir>/<n>_right.raw, width x
// height 8-bit planar, <n> zero-padded. This is the file-replay
// collaborator spec.md §1 calls out as external/out-of-scope; this is a
// reference implementation sufficient to drive the engine end to end,
// grounded on the teacher's openInput (stdin/"-"-or-path) file-reading
// idiom in cmd/gwebp/main.go.
type replaySource struct {
	dir           string
	width, height int
	frameNumbers  []uint64
	pos           int
}

func newReplaySource(dir string, width, height int) (*replaySource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("stereodpl: reading replay dir %s: %w", dir, err)
	}
	seen := map[uint64]bool{}
	for _, e := range entries {
		n, ok := parseLeftFrameNumber(e.Name())
		if !ok {
			continue
		}
		seen[n] = true
	}
	nums := make([]uint64, 0, len(seen))
	for n := range seen {
		nums = append(nums, n)
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	return &replaySource{dir: dir, width: width, height: height, frameNumbers: nums}, nil
}

func parseLeftFrameNumber(name string) (uint64, bool) {
	const suffix = "_left.raw"
	if !strings.HasSuffix(name, suffix) {
		return 0, false
	}
	n, err := strconv.ParseUint(strings.TrimSuffix(name, suffix), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// replayStatus mirrors decoder.SourceStatus without importing the
// decoder package into this file's exported surface, keeping the raw
// int/err contract explicit at the call site in main.go.
const (
	replayOk = iota
	replayNoImage
	replayError
)

func (r *replaySource) next(out *frame.ImageFrame) (int, error) {
	if r.pos >= len(r.frameNumbers) {
		return replayNoImage, nil
	}
	n := r.frameNumbers[r.pos]
	r.pos++

	left, err := readRawPlane(filepath.Join(r.dir, fmt.Sprintf("%d_left.raw", n)), r.width, r.height)
	if err != nil {
		return replayError, err
	}
	right, err := readRawPlane(filepath.Join(r.dir, fmt.Sprintf("%d_right.raw", n)), r.width, r.height)
	if err != nil {
		return replayError, err
	}

	out.FrameNumber = n
	out.Shutter = frame.ShutterManual
	out.Colour = frame.ColourOff
	latest := out.Slot(frame.SlotLatest)
	*latest.Plane(frame.PlaneLeft) = left
	*latest.Plane(frame.PlaneRight) = right
	return replayOk, nil
}

func readRawPlane(path string, width, height int) (frame.Plane, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return frame.Plane{}, fmt.Errorf("stereodpl: reading %s: %w", path, err)
	}
	want := width * height
	if len(data) != want {
		return frame.Plane{}, fmt.Errorf("stereodpl: %s has %d bytes, want %d (%dx%d)", path, len(data), want, width, height)
	}
	return frame.Plane{Width: width, Height: height, Channels: 1, Data: data}, nil
}
