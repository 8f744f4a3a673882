/*
NAME
  align.go

DESCRIPTION
  align.go implements the Method interface and the primary phase-correlation
  global alignment algorithm: Hann windowing, power-of-two zero padding,
  forward FFT, cross-power spectrum, inverse FFT, integer-pixel peak search
  and parabolic sub-pixel refinement.

AUTHORS
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package align implements the global and local phase-correlation aligner
// and its alternative methods, all expressed over compute.Backend.
package align

import (
	"context"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/ausocean/lucky/compute"
	"github.com/ausocean/lucky/frame"
)

// DefaultConfidenceThreshold is the default peak/mean ratio below which an
// offset is flagged low-confidence.
const DefaultConfidenceThreshold = 4.0

// Method is implemented by every alignment algorithm (phase correlation,
// upsampled phase correlation, centroid, gradient-correlation, pyramid
// coarse-to-fine).
type Method interface {
	// Align estimates the translation (Dx, Dy) by which target's content is
	// displaced relative to reference; resampling target by (-Dx, -Dy) lines
	// it up with reference.
	Align(backend compute.Backend, reference, target *frame.Frame) frame.AlignmentOffset
}

// PhaseCorrelation is the primary alignment method described in spec.md
// §4.3. ConfidenceThreshold gates the low-confidence flag: offsets whose
// peak/mean ratio on the correlation surface falls below it are flagged.
type PhaseCorrelation struct {
	ConfidenceThreshold float64
}

// NewPhaseCorrelation returns a PhaseCorrelation method with the default
// confidence threshold.
func NewPhaseCorrelation() PhaseCorrelation {
	return PhaseCorrelation{ConfidenceThreshold: DefaultConfidenceThreshold}
}

func (m PhaseCorrelation) Align(backend compute.Backend, reference, target *frame.Frame) frame.AlignmentOffset {
	threshold := m.ConfidenceThreshold
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	return phaseCorrelate(backend, reference, target, threshold)
}

// phaseCorrelate is the shared core used by both the global aligner and the
// multi-point stacker's per-AP local alignment pass.
func phaseCorrelate(backend compute.Backend, reference, target *frame.Frame, confidenceThreshold float64) frame.AlignmentOffset {
	if reference.H != target.H || reference.W != target.W {
		return frame.AlignmentOffset{}
	}

	refBuf := backend.Upload(reference.H, reference.W, reference.Pix)
	tgtBuf := backend.Upload(target.H, target.W, target.Pix)

	refWin := backend.Hann(refBuf)
	tgtWin := backend.Hann(tgtBuf)

	refPad := backend.PadPow2(refWin)
	tgtPad := backend.PadPow2(tgtWin)

	fr := backend.FFT2(refPad)
	ft := backend.FFT2(tgtPad)

	cross := backend.CrossPowerSpectrum(fr, ft)
	corr := backend.IFFT2(cross)

	row, col, peak := backend.Peak2(corr)
	mean := backend.Sum(corr) / float64(corr.H()*corr.W())

	ph, pw := corr.H(), corr.W()

	// Wrap-around convention: rows/cols past the Nyquist fold to negative
	// offsets.
	dy := float64(row)
	if row > ph/2 {
		dy = float64(row - ph)
	}
	dx := float64(col)
	if col > pw/2 {
		dx = float64(col - pw)
	}

	out := backend.Download(corr)
	sub := subpixelRefine(out, pw, row, col)
	dy += sub.dr
	dx += sub.dc
	// The peak of IFFT(F_R * conj(F_T)) sits at the reference-minus-target
	// shift; negate it to report target's displacement from reference.
	dx, dy = -dx, -dy

	var confidence float64
	if mean != 0 {
		confidence = float64(peak) / mean
	}
	low := confidence < confidenceThreshold || (peak == 0 && mean == 0)

	return frame.AlignmentOffset{Dx: dx, Dy: dy, Confidence: confidence, LowConfidence: low}
}

type subpixel struct{ dr, dc float64 }

// subpixelRefine fits a 2-D quadratic surface f(x,y) = a*x^2 + b*y^2 + c*xy +
// d*x + e*y + g by least squares over the 3x3 neighborhood of the integer
// peak (x, y relative to the peak, each in {-1, 0, 1}), then solves for the
// surface's stationary point analytically. This captures ridge-shaped and
// tilted correlation peaks that two independent 1-D parabolic fits miss.
func subpixelRefine(corr []float32, stride, row, col int) subpixel {
	height := len(corr) / stride
	at := func(r, c int) float64 {
		r = ((r % height) + height) % height
		c = ((c % stride) + stride) % stride
		return float64(corr[r*stride+c])
	}

	const n = 9
	design := mat.NewDense(n, 6, nil)
	z := mat.NewVecDense(n, nil)
	i := 0
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			x, y := float64(dc), float64(dr)
			design.SetRow(i, []float64{x * x, y * y, x * y, x, y, 1})
			z.SetVec(i, at(row+dr, col+dc))
			i++
		}
	}

	var coeffs mat.VecDense
	if err := coeffs.SolveVec(design, z); err != nil {
		return subpixel{}
	}
	a, b, c, d, e := coeffs.AtVec(0), coeffs.AtVec(1), coeffs.AtVec(2), coeffs.AtVec(3), coeffs.AtVec(4)

	// Stationary point of the quadratic: solve [2a c; c 2b] [x;y] = [-d;-e].
	hessian := mat.NewDense(2, 2, []float64{2 * a, c, c, 2 * b})
	rhs := mat.NewVecDense(2, []float64{-d, -e})
	var xy mat.VecDense
	if err := xy.SolveVec(hessian, rhs); err != nil {
		return subpixel{}
	}
	dx, dy := xy.AtVec(0), xy.AtVec(1)
	if dx < -1 || dx > 1 || dy < -1 || dy > 1 {
		// Degenerate or saddle-shaped fit: no reliable sub-pixel estimate.
		return subpixel{}
	}
	return subpixel{dr: dy, dc: dx}
}

// AlignAll aligns every frame in frames against reference in parallel using
// a bounded worker pool, returning one AlignmentOffset per frame in input
// order. progress, if non-nil, is called after each frame completes with
// the number of frames completed so far.
func AlignAll(ctx context.Context, backend compute.Backend, method Method, reference *frame.Frame, frames []*frame.Frame, progress func(done int)) ([]frame.AlignmentOffset, error) {
	offsets := make([]frame.AlignmentOffset, len(frames))
	var done int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism(len(frames)))
	for i := range frames {
		i := i
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			offsets[i] = method.Align(backend, reference, frames[i])
			if progress != nil {
				progress(int(atomic.AddInt32(&done, 1)))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, frame.Wrap(frame.Cancelled, "align", err, "aligning frames")
	}
	return offsets, nil
}

// parallelThreshold is the frame count at or above which AlignAll lets
// several workers align frames at once; below it the worker limit is 1, so
// frames are aligned one at a time.
const parallelThreshold = 4

func parallelism(n int) int {
	if n < parallelThreshold {
		return 1
	}
	if w := runtime.GOMAXPROCS(0); w < n {
		return w
	}
	return n
}
