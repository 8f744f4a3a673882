/*
NAME
  frame.go

DESCRIPTION
  frame.go defines the Frame type shared by every stage of the lucky-imaging
  pipeline, along with the QualityScore and AlignmentOffset value types that
  travel alongside it.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package frame provides the Frame data model shared across the reader,
// quality scorer, aligner, stacker and sharpener stages, along with the
// lucky-imaging error taxonomy.
package frame

import "math"

// Frame is a single captured image, normalized to [0, 1].
//
// Frame is copy-on-write in spirit: stages that transform a Frame allocate a
// new Pix slice rather than mutating in place, so a Frame may be shared
// freely between stages that only read it.
type Frame struct {
	Pix    []float32 // row-major, length H*W.
	H, W   int
	BitDepth     int   // original_bit_depth: 8 or 16.
	Index        int   // frame_index in capture order.
	TimestampUs  int64 // microseconds since capture start; 0 if absent.
	HasTimestamp bool
	Quality      QualityScore
}

// New allocates a zeroed Frame of the given dimensions.
func New(h, w int) *Frame {
	return &Frame{Pix: make([]float32, h*w), H: h, W: w}
}

// At returns the pixel value at (row, col). Out-of-bounds reads return 0,
// matching the "out-of-bounds samples -> 0" convention used by patch
// extraction and bilinear interpolation throughout the pipeline.
func (f *Frame) At(row, col int) float32 {
	if row < 0 || row >= f.H || col < 0 || col >= f.W {
		return 0
	}
	return f.Pix[row*f.W+col]
}

// Set writes the pixel value at (row, col). Out-of-bounds writes are
// silently ignored.
func (f *Frame) Set(row, col int, v float32) {
	if row < 0 || row >= f.H || col < 0 || col >= f.W {
		return
	}
	f.Pix[row*f.W+col] = v
}

// Clone returns a deep copy of f.
func (f *Frame) Clone() *Frame {
	cp := *f
	cp.Pix = append([]float32(nil), f.Pix...)
	return &cp
}

// Clamp clips every pixel to [0, 1] in place, the mandatory final step after
// stacking and sharpening (invariant 2 in the testable properties). NaN
// pixels are left unchanged.
func (f *Frame) Clamp() {
	for i, v := range f.Pix {
		switch {
		case v < 0:
			f.Pix[i] = 0
		case v > 1:
			f.Pix[i] = 1
		}
	}
}

// BilinearAt samples f at fractional coordinates using bilinear
// interpolation; samples that fall outside the frame are treated as 0, per
// the out-of-bounds convention used by the multi-point stacker and drizzle.
func (f *Frame) BilinearAt(row, col float64) float32 {
	r0 := math.Floor(row)
	c0 := math.Floor(col)
	r1 := r0 + 1
	c1 := c0 + 1
	fr := row - r0
	fc := col - c0

	p00 := f.At(int(r0), int(c0))
	p01 := f.At(int(r0), int(c1))
	p10 := f.At(int(r1), int(c0))
	p11 := f.At(int(r1), int(c1))

	top := float64(p00)*(1-fc) + float64(p01)*fc
	bot := float64(p10)*(1-fc) + float64(p11)*fc
	return float32(top*(1-fr) + bot*fr)
}

// QualityScore is a sharpness estimate for a frame or an alignment-point
// patch. NaN is treated as the worst possible score by every sort and
// selection that consumes it.
type QualityScore struct {
	Composite float64
	Valid     bool
}

// Less reports whether a sorts before b under the "NaN sorts last, ties
// never panic" total order required of every quality-driven sort.
func (a QualityScore) Less(b QualityScore) bool {
	an, bn := math.IsNaN(a.Composite), math.IsNaN(b.Composite)
	switch {
	case an && bn:
		return false
	case an:
		return false
	case bn:
		return true
	default:
		return a.Composite < b.Composite
	}
}

// AlignmentOffset is a fractional (dx, dy) pixel translation produced by one
// alignment pass, together with a confidence measure and the low-confidence
// flag the aligner raises when the correlation surface is too flat to trust.
type AlignmentOffset struct {
	Dx, Dy        float64
	Confidence    float64
	LowConfidence bool
}
