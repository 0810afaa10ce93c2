package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stereodpl/dpl/frame"
)

func TestParseLeftFrameNumber(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  uint64
		ok    bool
	}{
		{"valid", "12_left.raw", 12, true},
		{"zero padded", "007_left.raw", 7, true},
		{"right suffix rejected", "12_right.raw", 0, false},
		{"no suffix", "12.raw", 0, false},
		{"non numeric", "abc_left.raw", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseLeftFrameNumber(tt.input)
			if ok != tt.ok || got != tt.want {
				t.Errorf("parseLeftFrameNumber(%q) = (%d, %v), want (%d, %v)", tt.input, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestReplaySourceNext(t *testing.T) {
	dir := t.TempDir()
	const w, h = 4, 4
	writePlane := func(name string, fill byte) {
		data := make([]byte, w*h)
		for i := range data {
			data[i] = fill
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	writePlane("2_left.raw", 10)
	writePlane("2_right.raw", 20)
	writePlane("1_left.raw", 30)
	writePlane("1_right.raw", 40)

	src, err := newReplaySource(dir, w, h)
	if err != nil {
		t.Fatal(err)
	}

	var in frame.ImageFrame
	status, err := src.next(&in)
	if err != nil || status != replayOk {
		t.Fatalf("next() = (%d, %v), want (replayOk, nil)", status, err)
	}
	if in.FrameNumber != 1 {
		t.Fatalf("first frame number = %d, want 1 (ascending order)", in.FrameNumber)
	}

	status, err = src.next(&in)
	if err != nil || status != replayOk || in.FrameNumber != 2 {
		t.Fatalf("second call = (%d, %d, %v), want (replayOk, 2, nil)", status, in.FrameNumber, err)
	}

	status, err = src.next(&in)
	if err != nil || status != replayNoImage {
		t.Fatalf("third call = (%d, %v), want (replayNoImage, nil)", status, err)
	}
}

func TestReadRawPlaneSizeMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.raw")
	if err := os.WriteFile(path, []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := readRawPlane(path, 4, 4); err == nil {
		t.Fatal("expected size-mismatch error")
	}
}
