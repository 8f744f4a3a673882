/*
NAME
  stack_test.go

DESCRIPTION
  stack_test.go tests the Mean, Median and SigmaClip stackers.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package stack

import (
	"math"
	"testing"

	"github.com/ausocean/lucky/frame"
)

func constFrame(h, w int, v float32) *frame.Frame {
	f := frame.New(h, w)
	for i := range f.Pix {
		f.Pix[i] = v
	}
	return f
}

func TestMeanStack(t *testing.T) {
	frames := []*frame.Frame{constFrame(2, 2, 0.2), constFrame(2, 2, 0.4), constFrame(2, 2, 0.6)}
	out, err := Mean{}.Stack(frames)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range out.Pix {
		if math.Abs(float64(v)-0.4) > 1e-6 {
			t.Errorf("Pix[%d] = %v, want 0.4", i, v)
		}
	}
}

func TestMeanStackEmptyIsError(t *testing.T) {
	if _, err := (Mean{}).Stack(nil); !frame.Is(err, frame.InvalidConfig) {
		t.Errorf("Stack(nil) error = %v, want InvalidConfig", err)
	}
}

func TestMedianStackOddCount(t *testing.T) {
	frames := []*frame.Frame{constFrame(1, 1, 0.1), constFrame(1, 1, 0.9), constFrame(1, 1, 0.5)}
	out, err := Median{}.Stack(frames)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Pix[0] != 0.5 {
		t.Errorf("median of {0.1, 0.9, 0.5} = %v, want 0.5", out.Pix[0])
	}
}

func TestMedianStackEvenCountAverages(t *testing.T) {
	frames := []*frame.Frame{constFrame(1, 1, 0.2), constFrame(1, 1, 0.8)}
	out, err := Median{}.Stack(frames)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(float64(out.Pix[0])-0.5) > 1e-6 {
		t.Errorf("median of {0.2, 0.8} = %v, want 0.5", out.Pix[0])
	}
}

func TestSigmaClipRejectsOutlier(t *testing.T) {
	// One wild outlier among many close values: sigma-clip should reject it
	// and converge near the inlier mean.
	var frames []*frame.Frame
	for i := 0; i < 9; i++ {
		frames = append(frames, constFrame(1, 1, 0.5))
	}
	frames = append(frames, constFrame(1, 1, 10))

	out, err := SigmaClip{Sigma: 2, Iterations: 3}.Stack(frames)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(float64(out.Pix[0])-0.5) > 0.05 {
		t.Errorf("sigma-clipped mean = %v, want close to 0.5 (outlier rejected)", out.Pix[0])
	}
}

func TestSigmaClipAllRejectedFallsBackToOriginalMean(t *testing.T) {
	// Sigma so tight that the first pass already rejects every value;
	// the pixel must fall back to the unclipped mean rather than NaN.
	frames := []*frame.Frame{constFrame(1, 1, 0), constFrame(1, 1, 1)}
	out, err := SigmaClip{Sigma: 1e-9, Iterations: 5}.Stack(frames)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.IsNaN(float64(out.Pix[0])) {
		t.Fatalf("sigma-clip produced NaN instead of falling back to the original mean")
	}
}

func TestOutputIsClamped(t *testing.T) {
	frames := []*frame.Frame{constFrame(1, 1, 2), constFrame(1, 1, 2)}
	out, err := Mean{}.Stack(frames)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Pix[0] != 1 {
		t.Errorf("Mean.Stack output not clamped: got %v, want 1", out.Pix[0])
	}
}
