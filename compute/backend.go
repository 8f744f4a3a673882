/*
NAME
  backend.go

DESCRIPTION
  backend.go defines the ComputeBackend interface that the aligner, stacker
  and sharpener are expressed over, along with the Buffer type that backend
  operations produce and consume. CPU and GPU implementations live in the
  compute/cpu and compute/gpu sub-packages.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package compute declares the ComputeBackend abstraction that every
// lucky-imaging algorithm is expressed over, so that a CPU reference
// implementation and a GPU implementation are interchangeable at runtime.
package compute

// Buffer is an opaque handle to image data that may reside in host or device
// memory. A complex-valued buffer holds one (re, im) pair per logical pixel;
// the storage layout is the backend's own (the CPU backend keeps float64 rows
// for real data and complex128 rows for complex data, not interleaved
// float32).
type Buffer interface {
	// H, W report the logical (non-storage) dimensions of the buffer.
	H() int
	W() int
	// Complex reports whether the buffer holds interleaved complex data.
	Complex() bool
	// Release drops the backend's hold on the buffer's storage. Release is
	// idempotent.
	Release()
}

// Backend is the compute abstraction threaded through the aligner, stacker
// and sharpener. A Backend is immutable and safe for concurrent use; GPU
// implementations serialize submissions on an internal queue.
type Backend interface {
	// Name identifies the backend for logging/diagnostics ("cpu", "gpu").
	Name() string

	// Upload copies a row-major real-valued image into a new Buffer.
	Upload(h, w int, data []float32) Buffer
	// Download copies a Buffer's data back to host memory.
	Download(b Buffer) []float32

	// Hann applies a separable 2-D Hann window to a real buffer, returning a
	// new buffer.
	Hann(b Buffer) Buffer

	// PadPow2 zero-pads a real buffer so that both dimensions are the next
	// power of two, returning a new buffer.
	PadPow2(b Buffer) Buffer

	// FFT2 computes the forward 2-D FFT of a real buffer, returning a
	// complex-valued buffer of the same logical dimensions.
	FFT2(b Buffer) Buffer
	// IFFT2 computes the inverse 2-D FFT of a complex buffer, returning a
	// real-valued buffer.
	IFFT2(b Buffer) Buffer

	// CrossPowerSpectrum computes C = a * conj(b) / |a * conj(b)| elementwise
	// over two complex buffers of identical shape; zero magnitude maps to 0.
	CrossPowerSpectrum(a, b Buffer) Buffer

	// MulComplex multiplies two complex buffers elementwise.
	MulComplex(a, b Buffer) Buffer
	// ConjComplex returns the complex conjugate of a complex buffer.
	ConjComplex(a Buffer) Buffer
	// RealPart and ImagPart extract a complex buffer's real/imaginary
	// channel as a real-valued buffer of the same logical dimensions.
	RealPart(a Buffer) Buffer
	ImagPart(a Buffer) Buffer
	// ComplexFromParts builds a complex buffer re + i*im from two
	// real-valued buffers of identical shape.
	ComplexFromParts(re, im Buffer) Buffer

	// AddReal, SubReal, MulReal, DivReal perform elementwise real arithmetic;
	// DivReal defines x/0 = 0.
	AddReal(a, b Buffer) Buffer
	SubReal(a, b Buffer) Buffer
	MulReal(a, b Buffer) Buffer
	DivReal(a, b Buffer) Buffer
	ScaleReal(a Buffer, s float32) Buffer
	// ClampReal clips every element of a real buffer to [lo, hi].
	ClampReal(a Buffer, lo, hi float32) Buffer

	// BilinearShift resamples a real buffer by a fractional (dx, dy)
	// translation; out-of-bounds samples read as 0.
	BilinearShift(b Buffer, dx, dy float64) Buffer

	// ConvolveSeparable convolves a real buffer with a separable kernel
	// (applied along rows then columns), mirror-reflecting at boundaries.
	ConvolveSeparable(b Buffer, kernel []float32) Buffer
	// ConvolveAtrous convolves a real buffer with a 1-D kernel dilated by
	// inserting (2^scale - 1) zeros between taps, applied separably along
	// rows then columns with mirror-reflected boundaries.
	ConvolveAtrous(b Buffer, kernel []float32, scale int) Buffer

	// Peak2 returns the (row, col) of the maximum-valued element of a real
	// buffer and its value.
	Peak2(b Buffer) (row, col int, val float32)
	// Sum reduces a real buffer to a scalar sum.
	Sum(b Buffer) float64
}
