/*
NAME
  ap_test.go

DESCRIPTION
  ap_test.go tests alignment-point grid construction and patch extraction.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package multipoint

import (
	"errors"
	"testing"

	"github.com/ausocean/lucky/frame"
)

func checkerboard(h, w, size int) *frame.Frame {
	f := frame.New(h, w)
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			if ((r/size)+(c/size))%2 == 0 {
				f.Set(r, c, 1)
			} else {
				f.Set(r, c, 0.5)
			}
		}
	}
	return f
}

func TestBuildGridTooSmallReturnsErrNoAPs(t *testing.T) {
	ref := frame.New(8, 8)
	_, err := BuildGrid(ref, 16, 0, 0)
	if !errors.Is(err, ErrNoAPs) {
		t.Errorf("BuildGrid on undersized reference error = %v, want ErrNoAPs", err)
	}
}

func TestBuildGridInvalidApSize(t *testing.T) {
	ref := frame.New(64, 64)
	_, err := BuildGrid(ref, 0, 0, 0)
	if !frame.Is(err, frame.InvalidConfig) {
		t.Errorf("BuildGrid with ap_size=0 error = %v, want InvalidConfig", err)
	}
}

func TestBuildGridCoversFrameWithOverlap(t *testing.T) {
	ref := checkerboard(64, 64, 8)
	grid, err := BuildGrid(ref, 16, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(grid) == 0 {
		t.Fatalf("expected a non-empty AP grid")
	}
	for _, ap := range grid {
		if ap.Cy-ap.Size/2 < -ap.Size || ap.Cx-ap.Size/2 < -ap.Size {
			t.Errorf("AP center (%d, %d) implies a patch far outside the frame", ap.Cy, ap.Cx)
		}
		if ap.RefPatch.H != ap.Size || ap.RefPatch.W != ap.Size {
			t.Errorf("AP RefPatch dims = %dx%d, want %dx%d", ap.RefPatch.H, ap.RefPatch.W, ap.Size, ap.Size)
		}
	}
}

func TestBuildGridRejectsLowBrightness(t *testing.T) {
	ref := frame.New(64, 64) // all-zero: brightness gate should reject every cell.
	_, err := BuildGrid(ref, 16, 0.1, 0)
	if !errors.Is(err, ErrNoAPs) {
		t.Errorf("BuildGrid over an all-dark frame error = %v, want ErrNoAPs", err)
	}
}

func TestExtractPatchOutOfBoundsIsZero(t *testing.T) {
	f := frame.New(4, 4)
	for i := range f.Pix {
		f.Pix[i] = 1
	}
	patch := extractPatch(f, 0, 0, 4, 0, 0)
	var sawZero bool
	for _, v := range patch.Pix {
		if v == 0 {
			sawZero = true
		}
	}
	if !sawZero {
		t.Errorf("expected out-of-bounds samples at a corner-centered patch to read 0")
	}
}
