/*
NAME
  buffer.go

DESCRIPTION
  buffer.go implements compute.Buffer for the CPU backend: a row-major
  array of float64 (real) or complex128 (complex) held entirely in host
  memory.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package cpu implements compute.Backend using the mjibson/go-dsp FFT
// library and data-parallel pixel loops; it is the reference implementation
// used when no GPU is requested or available.
package cpu

import "github.com/ausocean/lucky/compute"

// buffer is the CPU-resident implementation of compute.Buffer.
type buffer struct {
	h, w    int
	cplx    bool
	real    [][]float64    // h x w, present when !cplx.
	complex [][]complex128 // h x w, present when cplx.
}

var _ compute.Buffer = (*buffer)(nil)

func (b *buffer) H() int         { return b.h }
func (b *buffer) W() int         { return b.w }
func (b *buffer) Complex() bool  { return b.cplx }
func (b *buffer) Release()       { b.real = nil; b.complex = nil }

func newReal(h, w int) *buffer {
	rows := make([][]float64, h)
	for i := range rows {
		rows[i] = make([]float64, w)
	}
	return &buffer{h: h, w: w, real: rows}
}

func newComplex(h, w int) *buffer {
	rows := make([][]complex128, h)
	for i := range rows {
		rows[i] = make([]complex128, w)
	}
	return &buffer{h: h, w: w, cplx: true, complex: rows}
}

// asBuffer asserts a compute.Buffer to the concrete CPU buffer type; every
// method of Backend below operates only on buffers it created itself.
func asBuffer(b compute.Buffer) *buffer { return b.(*buffer) }
