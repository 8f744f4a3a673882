/*
NAME
  multipoint_test.go

DESCRIPTION
  multipoint_test.go tests the end-to-end multi-point Stack path.

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

	"github.com/ausocean/lucky/compute/cpu"
	"github.com/ausocean/lucky/frame"
	"github.com/ausocean/lucky/quality"
)

func TestStackOffsetCountMismatch(t *testing.T) {
	s := NewStacker(Config{ApSize: 16}, cpu.New())
	ref := checkerboard(32, 32, 4)
	frames := []*frame.Frame{ref, ref}
	_, err := s.Stack(ref, frames, []frame.AlignmentOffset{{}})
	if !frame.Is(err, frame.InvalidConfig) {
		t.Errorf("Stack with mismatched offset count error = %v, want InvalidConfig", err)
	}
}

func TestStackTooSmallReferencePropagatesErrNoAPs(t *testing.T) {
	s := NewStacker(Config{ApSize: 64}, cpu.New())
	ref := checkerboard(8, 8, 2)
	frames := []*frame.Frame{ref}
	_, err := s.Stack(ref, frames, []frame.AlignmentOffset{{}})
	if !errors.Is(err, ErrNoAPs) {
		t.Errorf("Stack over an undersized reference error = %v, want ErrNoAPs", err)
	}
}

func TestStackIdenticalFramesReproducesReference(t *testing.T) {
	ref := checkerboard(64, 64, 8)
	frames := []*frame.Frame{ref, ref.Clone(), ref.Clone()}
	offsets := make([]frame.AlignmentOffset, len(frames))

	s := NewStacker(Config{
		ApSize:             16,
		SelectPercentage:   1,
		SearchRadius:       4,
		LocalConfidenceMin: 0,
		QualityMetric:      quality.LaplacianVariance,
	}, cpu.New())

	out, err := s.Stack(ref, frames, offsets)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.H != ref.H || out.W != ref.W {
		t.Fatalf("Stack output dims = %dx%d, want %dx%d", out.H, out.W, ref.H, ref.W)
	}

	var maxDiff float32
	for i, v := range out.Pix {
		d := v - ref.Pix[i]
		if d < 0 {
			d = -d
		}
		if d > maxDiff {
			maxDiff = d
		}
	}
	if maxDiff > 0.15 {
		t.Errorf("stacking identical frames drifted from the reference by %v", maxDiff)
	}
}
