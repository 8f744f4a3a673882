/*
NAME
  backend.go

DESCRIPTION
  backend.go implements the reference CPU compute.Backend: FFT/IFFT via
  github.com/mjibson/go-dsp/fft, Hann windowing via
  github.com/mjibson/go-dsp/window, and data-parallel pixel loops for the
  remaining elementwise and convolution operations.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package cpu

import (
	"math"
	"runtime"
	"sync"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"

	"github.com/ausocean/lucky/compute"
)

// Backend is the CPU reference implementation of compute.Backend.
type Backend struct{}

var _ compute.Backend = Backend{}

// New returns a CPU compute backend. Construction is cheap: unlike the GPU
// backend, there is no adapter selection or shader compilation to perform
// up front.
func New() Backend { return Backend{} }

func (Backend) Name() string { return "cpu" }

func (Backend) Upload(h, w int, data []float32) compute.Buffer {
	b := newReal(h, w)
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			b.real[r][c] = float64(data[r*w+c])
		}
	}
	return b
}

func (Backend) Download(cb compute.Buffer) []float32 {
	b := asBuffer(cb)
	out := make([]float32, b.h*b.w)
	if b.cplx {
		for r := 0; r < b.h; r++ {
			for c := 0; c < b.w; c++ {
				out[r*b.w+c] = float32(real(b.complex[r][c]))
			}
		}
		return out
	}
	for r := 0; r < b.h; r++ {
		for c := 0; c < b.w; c++ {
			out[r*b.w+c] = float32(b.real[r][c])
		}
	}
	return out
}

// Hann applies the separable 2-D Hann window w(r,c) = hann_1d(r) * hann_1d(c).
func (Backend) Hann(cb compute.Buffer) compute.Buffer {
	b := asBuffer(cb)
	out := newReal(b.h, b.w)
	rowWin := window.Hann(b.h)
	colWin := window.Hann(b.w)
	forEachRow(b.h, func(r int) {
		for c := 0; c < b.w; c++ {
			out.real[r][c] = b.real[r][c] * rowWin[r] * colWin[c]
		}
	})
	return out
}

// PadPow2 zero-pads to the next power of two in each dimension.
func (Backend) PadPow2(cb compute.Buffer) compute.Buffer {
	b := asBuffer(cb)
	ph, pw := nextPow2(b.h), nextPow2(b.w)
	out := newReal(ph, pw)
	for r := 0; r < b.h; r++ {
		copy(out.real[r], b.real[r])
	}
	return out
}

func (Backend) FFT2(cb compute.Buffer) compute.Buffer {
	b := asBuffer(cb)
	spec := fft.FFT2Real(b.real)
	out := &buffer{h: len(spec), w: len(spec[0]), cplx: true, complex: spec}
	return out
}

func (Backend) IFFT2(cb compute.Buffer) compute.Buffer {
	b := asBuffer(cb)
	inv := fft.IFFT2(b.complex)
	out := newReal(len(inv), len(inv[0]))
	for r := range inv {
		for c := range inv[r] {
			out.real[r][c] = real(inv[r][c])
		}
	}
	return out
}

// CrossPowerSpectrum computes a * conj(b) / |a * conj(b)|, zero where the
// magnitude is zero.
func (Backend) CrossPowerSpectrum(ca, cb compute.Buffer) compute.Buffer {
	a, b := asBuffer(ca), asBuffer(cb)
	out := newComplex(a.h, a.w)
	forEachRow(a.h, func(r int) {
		for c := 0; c < a.w; c++ {
			prod := a.complex[r][c] * cmplx128Conj(b.complex[r][c])
			mag := cmplxAbs(prod)
			if mag == 0 {
				out.complex[r][c] = 0
				continue
			}
			out.complex[r][c] = prod / complex(mag, 0)
		}
	})
	return out
}

func (Backend) MulComplex(ca, cb compute.Buffer) compute.Buffer {
	a, b := asBuffer(ca), asBuffer(cb)
	out := newComplex(a.h, a.w)
	for r := 0; r < a.h; r++ {
		for c := 0; c < a.w; c++ {
			out.complex[r][c] = a.complex[r][c] * b.complex[r][c]
		}
	}
	return out
}

func (Backend) ConjComplex(ca compute.Buffer) compute.Buffer {
	a := asBuffer(ca)
	out := newComplex(a.h, a.w)
	for r := 0; r < a.h; r++ {
		for c := 0; c < a.w; c++ {
			out.complex[r][c] = cmplx128Conj(a.complex[r][c])
		}
	}
	return out
}

func (Backend) RealPart(ca compute.Buffer) compute.Buffer {
	a := asBuffer(ca)
	out := newReal(a.h, a.w)
	for r := 0; r < a.h; r++ {
		for c := 0; c < a.w; c++ {
			out.real[r][c] = real(a.complex[r][c])
		}
	}
	return out
}

func (Backend) ImagPart(ca compute.Buffer) compute.Buffer {
	a := asBuffer(ca)
	out := newReal(a.h, a.w)
	for r := 0; r < a.h; r++ {
		for c := 0; c < a.w; c++ {
			out.real[r][c] = imag(a.complex[r][c])
		}
	}
	return out
}

func (Backend) ComplexFromParts(cre, cim compute.Buffer) compute.Buffer {
	re, im := asBuffer(cre), asBuffer(cim)
	out := newComplex(re.h, re.w)
	for r := 0; r < re.h; r++ {
		for c := 0; c < re.w; c++ {
			out.complex[r][c] = complex(re.real[r][c], im.real[r][c])
		}
	}
	return out
}

func (Backend) AddReal(ca, cb compute.Buffer) compute.Buffer {
	return elementwise(ca, cb, func(x, y float64) float64 { return x + y })
}

func (Backend) SubReal(ca, cb compute.Buffer) compute.Buffer {
	return elementwise(ca, cb, func(x, y float64) float64 { return x - y })
}

func (Backend) MulReal(ca, cb compute.Buffer) compute.Buffer {
	return elementwise(ca, cb, func(x, y float64) float64 { return x * y })
}

func (Backend) DivReal(ca, cb compute.Buffer) compute.Buffer {
	return elementwise(ca, cb, func(x, y float64) float64 {
		if y == 0 {
			return 0
		}
		return x / y
	})
}

func (Backend) ScaleReal(ca compute.Buffer, s float32) compute.Buffer {
	a := asBuffer(ca)
	out := newReal(a.h, a.w)
	for r := 0; r < a.h; r++ {
		for c := 0; c < a.w; c++ {
			out.real[r][c] = a.real[r][c] * float64(s)
		}
	}
	return out
}

func (Backend) ClampReal(ca compute.Buffer, lo, hi float32) compute.Buffer {
	a := asBuffer(ca)
	out := newReal(a.h, a.w)
	l, h := float64(lo), float64(hi)
	for r := 0; r < a.h; r++ {
		for c := 0; c < a.w; c++ {
			v := a.real[r][c]
			switch {
			case v < l:
				v = l
			case v > h:
				v = h
			}
			out.real[r][c] = v
		}
	}
	return out
}

// BilinearShift resamples by the fractional translation (dx, dy); sampling
// at (r-dy, c-dx) so that a positive offset moves content in the direction
// (dx, dy).
func (Backend) BilinearShift(cb compute.Buffer, dx, dy float64) compute.Buffer {
	b := asBuffer(cb)
	out := newReal(b.h, b.w)
	forEachRow(b.h, func(r int) {
		for c := 0; c < b.w; c++ {
			out.real[r][c] = b.sampleBilinear(float64(r)-dy, float64(c)-dx)
		}
	})
	return out
}

func (b *buffer) sampleBilinear(row, col float64) float64 {
	r0 := math.Floor(row)
	c0 := math.Floor(col)
	fr := row - r0
	fc := col - c0
	p00 := b.at(int(r0), int(c0))
	p01 := b.at(int(r0), int(c0)+1)
	p10 := b.at(int(r0)+1, int(c0))
	p11 := b.at(int(r0)+1, int(c0)+1)
	top := p00*(1-fc) + p01*fc
	bot := p10*(1-fc) + p11*fc
	return top*(1-fr) + bot*fr
}

func (b *buffer) at(r, c int) float64 {
	if r < 0 || r >= b.h || c < 0 || c >= b.w {
		return 0
	}
	return b.real[r][c]
}

// ConvolveSeparable applies kernel along rows then columns with mirror
// reflection at the boundary.
func (Backend) ConvolveSeparable(cb compute.Buffer, kernel []float32) compute.Buffer {
	return convolveDilated(asBuffer(cb), kernel, 1)
}

// ConvolveAtrous dilates kernel by inserting (2^scale - 1) zeros between
// taps before convolving separably, the à trous step used by the wavelet
// decomposition.
func (Backend) ConvolveAtrous(cb compute.Buffer, kernel []float32, scale int) compute.Buffer {
	step := 1 << uint(scale)
	return convolveDilated(asBuffer(cb), kernel, step)
}

// convolveDilated convolves b separably with kernel taps spaced step apart
// (step=1 is ordinary convolution), mirror-reflecting out-of-range reads.
func convolveDilated(b *buffer, kernel []float32, step int) compute.Buffer {
	half := (len(kernel) - 1) / 2 * step
	tmp := newReal(b.h, b.w)
	forEachRow(b.h, func(r int) {
		for c := 0; c < b.w; c++ {
			var acc float64
			for k, wgt := range kernel {
				off := (k*step - half)
				acc += float64(wgt) * b.at(r, mirror(c+off, b.w))
			}
			tmp.real[r][c] = acc
		}
	})
	out := newReal(b.h, b.w)
	forEachRow(b.h, func(r int) {
		for c := 0; c < b.w; c++ {
			var acc float64
			for k, wgt := range kernel {
				off := (k*step - half)
				acc += float64(wgt) * tmp.at(mirror(r+off, b.h), c)
			}
			out.real[r][c] = acc
		}
	})
	return out
}

// mirror reflects an out-of-range index back into [0, n) rather than
// wrapping, matching the wavelet decomposition's mirror-boundary policy.
func mirror(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * (n - 1)
	i = i % period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i
	}
	return i
}

func (Backend) Peak2(cb compute.Buffer) (row, col int, val float32) {
	b := asBuffer(cb)
	best := math.Inf(-1)
	for r := 0; r < b.h; r++ {
		for c := 0; c < b.w; c++ {
			if v := b.real[r][c]; v > best {
				best, row, col = v, r, c
			}
		}
	}
	return row, col, float32(best)
}

func (Backend) Sum(cb compute.Buffer) float64 {
	b := asBuffer(cb)
	var s float64
	for r := 0; r < b.h; r++ {
		for c := 0; c < b.w; c++ {
			s += b.real[r][c]
		}
	}
	return s
}

func elementwise(ca, cb compute.Buffer, f func(x, y float64) float64) compute.Buffer {
	a, b := asBuffer(ca), asBuffer(cb)
	out := newReal(a.h, a.w)
	for r := 0; r < a.h; r++ {
		for c := 0; c < a.w; c++ {
			out.real[r][c] = f(a.real[r][c], b.real[r][c])
		}
	}
	return out
}

// forEachRow parallelizes a per-row kernel over a worker pool sized to the
// machine, matching the data-parallel-per-row scheduling model described for
// pixel kernels.
func forEachRow(h int, f func(r int)) {
	workers := runtime.GOMAXPROCS(0)
	if workers > h {
		workers = h
	}
	if workers <= 1 {
		for r := 0; r < h; r++ {
			f(r)
		}
		return
	}
	var wg sync.WaitGroup
	rowsPerWorker := (h + workers - 1) / workers
	for wk := 0; wk < workers; wk++ {
		start := wk * rowsPerWorker
		end := start + rowsPerWorker
		if end > h {
			end = h
		}
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for r := start; r < end; r++ {
				f(r)
			}
		}(start, end)
	}
	wg.Wait()
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func cmplx128Conj(c complex128) complex128 { return complex(real(c), -imag(c)) }
func cmplxAbs(c complex128) float64        { return math.Hypot(real(c), imag(c)) }
