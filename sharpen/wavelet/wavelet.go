/*
NAME
  wavelet.go

DESCRIPTION
  wavelet.go implements à trous B3-spline wavelet decomposition and
  reconstruction, the second sharpening stage named in spec.md §4.5.2.
  Decomposition repeatedly convolves with a dilated copy of the B3-spline
  kernel, producing a stack of detail layers plus a coarse residual;
  reconstruction recombines soft-thresholded detail layers, weighted by
  per-layer coefficients, with the coarse residual.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package wavelet implements à trous B3-spline wavelet decomposition and
// reconstruction for lucky-imaging sharpening.
package wavelet

import (
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/ausocean/lucky/compute"
	"github.com/ausocean/lucky/frame"
)

// b3Spline is the separable 1-D B3-spline kernel used at every decomposition
// scale, dilated by the backend's ConvolveAtrous before application.
var b3Spline = []float32{1.0 / 16, 4.0 / 16, 6.0 / 16, 4.0 / 16, 1.0 / 16}

// DefaultLevels and DefaultCoefficients are spec.md's wavelet sharpening
// defaults: six layers, with decreasing per-layer boost from fine to coarse
// detail. There is no default threshold list: Reconstruct treats nil
// thresholds as all-zero, i.e. no denoising.
const DefaultLevels = 6

// DefaultCoefficients returns a fresh copy of the default per-layer
// reconstruction weights; callers may mutate the result freely.
func DefaultCoefficients() []float64 {
	return []float64{1.5, 1.3, 1.2, 1.1, 1.0, 1.0}
}

// Layers holds the result of Decompose: L detail layers w_0..w_{L-1} (finest
// to coarsest) and the coarse residual c_L.
type Layers struct {
	Detail []*frame.Frame
	Coarse *frame.Frame
}

// Decompose computes c_0 = input, then for j = 0..levels-1:
//
//	c_{j+1} = smooth_j(c_j)
//	w_j     = c_j - c_{j+1}
//
// where smooth_j convolves separably with the B3-spline kernel dilated by
// inserting 2^j-1 zeros between taps (mirror boundary). It returns the L
// detail layers and the coarse residual c_L.
func Decompose(backend compute.Backend, input *frame.Frame, levels int) Layers {
	h, w := input.H, input.W
	layers := Layers{Detail: make([]*frame.Frame, levels)}

	c := backend.Upload(h, w, input.Pix)
	for j := 0; j < levels; j++ {
		next := backend.ConvolveAtrous(c, b3Spline, j)
		detail := backend.SubReal(c, next)

		out := frame.New(h, w)
		copy(out.Pix, backend.Download(detail))
		layers.Detail[j] = out

		c = next
	}

	coarse := frame.New(h, w)
	copy(coarse.Pix, backend.Download(c))
	layers.Coarse = coarse

	return layers
}

// Reconstruct recombines layers into an image:
//
//	result = Σ_j coeffs[j] * softThreshold(w_j, thresholds[j] * madSigma(w_j)) + coarse
//
// coeffs and thresholds must each have len(layers.Detail) elements, or be
// nil (treated as all-1 and all-0 respectively, matching spec.md's
// defaults for an unconfigured threshold).
func Reconstruct(backend compute.Backend, layers Layers, coeffs, thresholds []float64) *frame.Frame {
	h, w := layers.Coarse.H, layers.Coarse.W
	result := backend.Upload(h, w, layers.Coarse.Pix)

	for j, detail := range layers.Detail {
		coeff := 1.0
		if coeffs != nil {
			coeff = coeffs[j]
		}
		thresh := 0.0
		if thresholds != nil {
			thresh = thresholds[j]
		}

		wBuf := backend.Upload(h, w, detail.Pix)
		if thresh > 0 {
			sigma := madSigma(detail.Pix)
			wBuf = softThreshold(backend, wBuf, thresh*sigma)
		}
		result = backend.AddReal(result, backend.ScaleReal(wBuf, float32(coeff)))
	}

	out := frame.New(h, w)
	copy(out.Pix, backend.Download(result))
	return out
}

// softThreshold zeroes elements with |w| below tau and shrinks the
// remainder towards zero by tau, the standard soft-thresholding rule.
func softThreshold(backend compute.Backend, b compute.Buffer, tau float64) compute.Buffer {
	if tau <= 0 {
		return b
	}
	data := backend.Download(b)
	out := make([]float32, len(data))
	t := float32(tau)
	for i, v := range data {
		switch {
		case v > t:
			out[i] = v - t
		case v < -t:
			out[i] = v + t
		default:
			out[i] = 0
		}
	}
	return backend.Upload(b.H(), b.W(), out)
}

// madSigma estimates a layer's noise standard deviation via the median
// absolute deviation, scaled by the constant that makes the estimator
// consistent for Gaussian noise (1/Φ⁻¹(3/4) ≈ 1.4826).
func madSigma(pix []float32) float64 {
	if len(pix) == 0 {
		return 0
	}
	vals := make([]float64, len(pix))
	for i, v := range pix {
		vals[i] = float64(v)
	}
	med := median(vals)

	devs := append([]float64(nil), vals...)
	floats.AddConst(-med, devs)
	for i, v := range devs {
		devs[i] = absFloat(v)
	}
	return median(devs) * 1.4826
}

func median(vals []float64) float64 {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
