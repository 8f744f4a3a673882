/*
NAME
  deconv.go

DESCRIPTION
  deconv.go implements the two deconvolution filters named in spec.md
  §4.5.1: iterative Richardson-Lucy and single-pass Wiener, both carried
  out in the frequency domain via the ComputeBackend so the same FFT core
  serves the aligner and the sharpener.

AUTHORS
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package sharpen implements the two-stage sharpener: optional
// deconvolution (Richardson-Lucy or Wiener) followed by à trous wavelet
// sharpening (sharpen/wavelet).
package sharpen

import (
	"github.com/ausocean/lucky/compute"
	"github.com/ausocean/lucky/frame"
	"github.com/ausocean/lucky/sharpen/psf"
)

// richardsonLucyEpsilon guards the division in the RL update against
// division by zero in near-black regions.
const richardsonLucyEpsilon = 1e-6

// RichardsonLucy deconvolves observed using kernel for the given number of
// iterations. Both the PSF's FFT and the flipped PSF's FFT are computed
// once and reused across iterations, matching spec.md's performance note.
func RichardsonLucy(backend compute.Backend, observed *frame.Frame, kernel psf.Kernel, iterations int) *frame.Frame {
	h, w := observed.H, observed.W

	hFFT := backend.FFT2(kernelToPaddedBuffer(backend, kernel, h, w))
	hFlipFFT := backend.FFT2(kernelToPaddedBuffer(backend, flip(kernel), h, w))

	oBuf := backend.Upload(h, w, observed.Pix)
	estimate := oBuf

	for it := 0; it < iterations; it++ {
		estFFT := backend.FFT2(backend.PadPow2(estimate))
		conv := crop(backend, backend.IFFT2(backend.MulComplex(hFFT, estFFT)), h, w)

		convEps := backend.AddReal(conv, constBuffer(backend, h, w, richardsonLucyEpsilon))
		ratio := backend.DivReal(oBuf, convEps)

		ratioFFT := backend.FFT2(backend.PadPow2(ratio))
		corr := crop(backend, backend.IFFT2(backend.MulComplex(hFlipFFT, ratioFFT)), h, w)

		estimate = backend.MulReal(estimate, corr)
	}

	out := frame.New(h, w)
	copy(out.Pix, backend.Download(backend.ClampReal(estimate, 0, 1)))
	return out
}

// Wiener performs single-pass Wiener deconvolution:
// Ehat(f) = O(f)*conj(H(f)) / (|H(f)|^2 + K).
func Wiener(backend compute.Backend, observed *frame.Frame, kernel psf.Kernel, noiseRatio float64) *frame.Frame {
	h, w := observed.H, observed.W

	hFFT := backend.FFT2(kernelToPaddedBuffer(backend, kernel, h, w))
	hConjFFT := backend.ConjComplex(hFFT)

	oFFT := backend.FFT2(backend.PadPow2(backend.Upload(h, w, observed.Pix)))

	numerFFT := backend.MulComplex(oFFT, hConjFFT)
	magSq := backend.MulComplex(hFFT, hConjFFT) // |H|^2, a complex buffer with zero imaginary part.

	denom := backend.AddReal(backend.RealPart(magSq), constBuffer(backend, magSq.H(), magSq.W(), noiseRatio))

	outReal := backend.DivReal(backend.RealPart(numerFFT), denom)
	outImag := backend.DivReal(backend.ImagPart(numerFFT), denom)
	estFFT := backend.ComplexFromParts(outReal, outImag)

	est := crop(backend, backend.IFFT2(estFFT), h, w)

	out := frame.New(h, w)
	copy(out.Pix, backend.Download(backend.ClampReal(est, 0, 1)))
	return out
}

func flip(k psf.Kernel) psf.Kernel {
	out := make([]float64, len(k.Pix))
	n := k.Size
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			out[r*n+c] = k.Pix[(n-1-r)*n+(n-1-c)]
		}
	}
	return psf.Kernel{Pix: out, Size: n}
}

// kernelToPaddedBuffer places kernel centered at the origin (for circular
// convolution via FFT) in an h x w real buffer, then zero-pads to the next
// power of two.
func kernelToPaddedBuffer(backend compute.Backend, k psf.Kernel, h, w int) compute.Buffer {
	data := make([]float32, h*w)
	half := k.Size / 2
	for r := 0; r < k.Size; r++ {
		for c := 0; c < k.Size; c++ {
			rr := ((r - half) + h) % h
			cc := ((c - half) + w) % w
			data[rr*w+cc] = float32(k.At(r, c))
		}
	}
	return backend.PadPow2(backend.Upload(h, w, data))
}

func constBuffer(backend compute.Backend, h, w int, v float64) compute.Buffer {
	data := make([]float32, h*w)
	for i := range data {
		data[i] = float32(v)
	}
	return backend.Upload(h, w, data)
}

// crop truncates a possibly-padded real buffer back down to h x w.
func crop(backend compute.Backend, b compute.Buffer, h, w int) compute.Buffer {
	if b.H() == h && b.W() == w {
		return b
	}
	full := backend.Download(b)
	out := make([]float32, h*w)
	for r := 0; r < h; r++ {
		copy(out[r*w:(r+1)*w], full[r*b.W():r*b.W()+w])
	}
	return backend.Upload(h, w, out)
}
