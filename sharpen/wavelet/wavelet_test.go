/*
NAME
  wavelet_test.go

DESCRIPTION
  wavelet_test.go tests à trous decomposition's telescoping-sum identity and
  the reconstruction's thresholding and coefficient weighting.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package wavelet

import (
	"math"
	"testing"

	"github.com/ausocean/lucky/compute/cpu"
	"github.com/ausocean/lucky/frame"
)

func ramp(h, w int) *frame.Frame {
	f := frame.New(h, w)
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			f.Set(r, c, float32(r*w+c)/float32(h*w))
		}
	}
	return f
}

// TestReconstructWithUnitCoeffsAndZeroThresholdsIsIdentity exercises the
// telescoping sum c_0 = coarse + sum(w_j): with every coefficient 1 and
// every threshold 0, Reconstruct must exactly invert Decompose.
func TestReconstructWithUnitCoeffsAndZeroThresholdsIsIdentity(t *testing.T) {
	backend := cpu.New()
	input := ramp(16, 16)

	layers := Decompose(backend, input, DefaultLevels)
	coeffs := make([]float64, DefaultLevels)
	thresholds := make([]float64, DefaultLevels)
	for i := range coeffs {
		coeffs[i] = 1
	}

	out := Reconstruct(backend, layers, coeffs, thresholds)
	for i := range input.Pix {
		if math.Abs(float64(out.Pix[i]-input.Pix[i])) > 1e-4 {
			t.Fatalf("Pix[%d] = %v, want %v (identity reconstruction)", i, out.Pix[i], input.Pix[i])
		}
	}
}

func TestReconstructNilCoeffsThresholdsDefaultsToIdentity(t *testing.T) {
	backend := cpu.New()
	input := ramp(16, 16)
	layers := Decompose(backend, input, DefaultLevels)

	out := Reconstruct(backend, layers, nil, nil)
	for i := range input.Pix {
		if math.Abs(float64(out.Pix[i]-input.Pix[i])) > 1e-4 {
			t.Fatalf("Pix[%d] = %v, want %v", i, out.Pix[i], input.Pix[i])
		}
	}
}

func TestReconstructBoostsDetailWithCoeffGreaterThanOne(t *testing.T) {
	backend := cpu.New()
	input := ramp(16, 16)
	layers := Decompose(backend, input, 2)

	boosted := make([]float64, 2)
	boosted[0], boosted[1] = 2, 2
	out := Reconstruct(backend, layers, boosted, []float64{0, 0})

	var baseDiff, boostDiff float64
	base := Reconstruct(backend, layers, []float64{1, 1}, []float64{0, 0})
	for i := range input.Pix {
		baseDiff += math.Abs(float64(base.Pix[i] - input.Pix[i]))
		boostDiff += math.Abs(float64(out.Pix[i] - input.Pix[i]))
	}
	if boostDiff <= baseDiff {
		t.Errorf("boosting detail coefficients should increase the deviation from the unsharpened input: base=%v boosted=%v", baseDiff, boostDiff)
	}
}

func TestMadSigmaZeroForConstantInput(t *testing.T) {
	pix := make([]float32, 64)
	if got := madSigma(pix); got != 0 {
		t.Errorf("madSigma(all-zero) = %v, want 0", got)
	}
}

func TestMadSigmaPositiveForNoisyInput(t *testing.T) {
	pix := make([]float32, 100)
	for i := range pix {
		if i%2 == 0 {
			pix[i] = 1
		} else {
			pix[i] = -1
		}
	}
	if got := madSigma(pix); got <= 0 {
		t.Errorf("madSigma(alternating) = %v, want > 0", got)
	}
}

func TestSoftThresholdZeroesSmallValuesAndShrinksLarge(t *testing.T) {
	backend := cpu.New()
	buf := backend.Upload(1, 4, []float32{0.05, -0.05, 1, -1})
	out := backend.Download(softThreshold(backend, buf, 0.1))
	want := []float32{0, 0, 0.9, -0.9}
	for i := range want {
		if math.Abs(float64(out[i]-want[i])) > 1e-6 {
			t.Errorf("softThreshold[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestDecomposeCoarseLayerIsSmoother(t *testing.T) {
	backend := cpu.New()
	f := frame.New(16, 16)
	for r := 0; r < 16; r++ {
		for c := 0; c < 16; c++ {
			if (r+c)%2 == 0 {
				f.Set(r, c, 1)
			}
		}
	}
	layers := Decompose(backend, f, 3)

	var inputVar, coarseVar float64
	inputVar = variance(f.Pix)
	coarseVar = variance(layers.Coarse.Pix)
	if coarseVar >= inputVar {
		t.Errorf("coarse residual variance %v should be lower than the checkerboard input's variance %v", coarseVar, inputVar)
	}
}

func variance(pix []float32) float64 {
	var mean float64
	for _, v := range pix {
		mean += float64(v)
	}
	mean /= float64(len(pix))
	var sq float64
	for _, v := range pix {
		d := float64(v) - mean
		sq += d * d
	}
	return sq / float64(len(pix))
}
