//go:build withgpu
// +build withgpu

/*
NAME
  backend.go

DESCRIPTION
  backend.go implements compute.Backend over a cross-vendor GPU compute
  API. Adapter selection happens once, at construction. No compute
  pipelines or shaders are compiled: every operation (FFT, windowing,
  convolution, peak reduction, elementwise arithmetic) runs on the CPU
  backend behind the device's submission lock.

  This is a reference skeleton: it describes the device/queue/pipeline
  wiring a production GPU backend needs, implemented in terms of the CPU
  backend's buffers until a concrete cross-vendor compute binding is
  vendored. Swapping the body of each method for real device dispatch
  does not change compute.Backend's contract.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package gpu implements compute.Backend over a GPU compute API, behind the
// withgpu build tag (mirroring the teacher's withcv-gated gocv filters).
package gpu

import (
	"sync"

	"github.com/ausocean/lucky/compute"
	"github.com/ausocean/lucky/compute/cpu"
	"github.com/ausocean/lucky/frame"
)

// device models the adapter/queue pair a real binding would own. A Backend
// holds a single device for its entire lifetime; device is the handle every
// GPU-resident Buffer carries a shared reference to, so that a buffer
// outlives neither its device nor its queue.
type device struct {
	mu   sync.Mutex // serializes command-buffer submission.
	name string
}

// Backend is the GPU compute.Backend. A single Backend is created per
// pipeline run; New returns an error instead of a Backend when adapter
// selection fails.
type Backend struct {
	dev      *device
	fallback cpu.Backend // kernels not yet ported to device dispatch.
}

var _ compute.Backend = (*Backend)(nil)

// New selects a GPU adapter; it compiles no compute pipelines. It returns
// a frame.BackendUnavailable error if no adapter is found; the pipeline
// driver is responsible for the CPU fallback policy described in spec.md §7.
func New() (*Backend, error) {
	dev, err := selectAdapter()
	if err != nil {
		return nil, frame.Wrap(frame.BackendUnavailable, "gpu", err, "selecting adapter")
	}
	return &Backend{dev: dev, fallback: cpu.New()}, nil
}

func (b *Backend) Name() string { return "gpu:" + b.dev.name }

// Every operation below submits through the device's serialized queue and,
// until device-resident kernels are wired in, executes on the CPU fallback;
// the queue lock models the "GPU submissions are queued" shared-resource
// policy so call sites do not need to know which path is active.
func (b *Backend) submit(f func() compute.Buffer) compute.Buffer {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()
	return f()
}

func (b *Backend) Upload(h, w int, data []float32) compute.Buffer {
	return b.submit(func() compute.Buffer { return b.fallback.Upload(h, w, data) })
}
func (b *Backend) Download(buf compute.Buffer) []float32 { return b.fallback.Download(buf) }
func (b *Backend) Hann(buf compute.Buffer) compute.Buffer {
	return b.submit(func() compute.Buffer { return b.fallback.Hann(buf) })
}
func (b *Backend) PadPow2(buf compute.Buffer) compute.Buffer {
	return b.submit(func() compute.Buffer { return b.fallback.PadPow2(buf) })
}
func (b *Backend) FFT2(buf compute.Buffer) compute.Buffer {
	return b.submit(func() compute.Buffer { return b.fallback.FFT2(buf) })
}
func (b *Backend) IFFT2(buf compute.Buffer) compute.Buffer {
	return b.submit(func() compute.Buffer { return b.fallback.IFFT2(buf) })
}
func (b *Backend) CrossPowerSpectrum(a, c compute.Buffer) compute.Buffer {
	return b.submit(func() compute.Buffer { return b.fallback.CrossPowerSpectrum(a, c) })
}
func (b *Backend) MulComplex(a, c compute.Buffer) compute.Buffer {
	return b.submit(func() compute.Buffer { return b.fallback.MulComplex(a, c) })
}
func (b *Backend) ConjComplex(a compute.Buffer) compute.Buffer {
	return b.submit(func() compute.Buffer { return b.fallback.ConjComplex(a) })
}
func (b *Backend) RealPart(a compute.Buffer) compute.Buffer {
	return b.submit(func() compute.Buffer { return b.fallback.RealPart(a) })
}
func (b *Backend) ImagPart(a compute.Buffer) compute.Buffer {
	return b.submit(func() compute.Buffer { return b.fallback.ImagPart(a) })
}
func (b *Backend) ComplexFromParts(re, im compute.Buffer) compute.Buffer {
	return b.submit(func() compute.Buffer { return b.fallback.ComplexFromParts(re, im) })
}
func (b *Backend) AddReal(a, c compute.Buffer) compute.Buffer {
	return b.submit(func() compute.Buffer { return b.fallback.AddReal(a, c) })
}
func (b *Backend) SubReal(a, c compute.Buffer) compute.Buffer {
	return b.submit(func() compute.Buffer { return b.fallback.SubReal(a, c) })
}
func (b *Backend) MulReal(a, c compute.Buffer) compute.Buffer {
	return b.submit(func() compute.Buffer { return b.fallback.MulReal(a, c) })
}
func (b *Backend) DivReal(a, c compute.Buffer) compute.Buffer {
	return b.submit(func() compute.Buffer { return b.fallback.DivReal(a, c) })
}
func (b *Backend) ScaleReal(a compute.Buffer, s float32) compute.Buffer {
	return b.submit(func() compute.Buffer { return b.fallback.ScaleReal(a, s) })
}
func (b *Backend) ClampReal(a compute.Buffer, lo, hi float32) compute.Buffer {
	return b.submit(func() compute.Buffer { return b.fallback.ClampReal(a, lo, hi) })
}
func (b *Backend) BilinearShift(a compute.Buffer, dx, dy float64) compute.Buffer {
	return b.submit(func() compute.Buffer { return b.fallback.BilinearShift(a, dx, dy) })
}
func (b *Backend) ConvolveSeparable(a compute.Buffer, kernel []float32) compute.Buffer {
	return b.submit(func() compute.Buffer { return b.fallback.ConvolveSeparable(a, kernel) })
}
func (b *Backend) ConvolveAtrous(a compute.Buffer, kernel []float32, scale int) compute.Buffer {
	return b.submit(func() compute.Buffer { return b.fallback.ConvolveAtrous(a, kernel, scale) })
}
func (b *Backend) Peak2(a compute.Buffer) (int, int, float32) { return b.fallback.Peak2(a) }
func (b *Backend) Sum(a compute.Buffer) float64                { return b.fallback.Sum(a) }
