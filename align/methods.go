/*
NAME
  methods.go

DESCRIPTION
  methods.go implements the alternative alignment methods named in
  spec.md §4.3: upsampled phase correlation (a local sub-pixel search),
  intensity-weighted centroid, gradient-correlation and Gaussian-pyramid
  coarse-to-fine, all behind the Method interface.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package align

import (
	"math"

	"github.com/ausocean/lucky/compute"
	"github.com/ausocean/lucky/frame"
)

// UpsampledPhaseCorrelation refines the ordinary phase-correlation estimate
// by a spatial-domain search: it resamples the windowed target at every
// 1/UpsampleFactor-pixel step within +/-1 pixel of the coarse estimate and
// keeps the shift with the smallest sum of squared differences against the
// windowed reference. It does not evaluate a matrix DFT or re-evaluate the
// cross-power spectrum on a finer grid.
type UpsampledPhaseCorrelation struct {
	UpsampleFactor      int
	ConfidenceThreshold float64
}

func (m UpsampledPhaseCorrelation) Align(backend compute.Backend, reference, target *frame.Frame) frame.AlignmentOffset {
	factor := m.UpsampleFactor
	if factor < 1 {
		factor = 10
	}
	threshold := m.ConfidenceThreshold
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	coarse := phaseCorrelate(backend, reference, target, threshold)
	if coarse.LowConfidence {
		return coarse
	}

	// Refine by resampling the target over a +/-1 pixel window around the
	// coarse estimate, at 1/factor resolution, and scoring each candidate
	// against the reference.
	refBuf := backend.Upload(reference.H, reference.W, reference.Pix)
	tgtBuf := backend.Upload(target.H, target.W, target.Pix)
	refWin := backend.Hann(refBuf)
	tgtWin := backend.Hann(tgtBuf)

	best := coarse
	bestScore := math.Inf(-1)
	step := 1.0 / float64(factor)
	for ddy := -step * float64(factor); ddy <= step*float64(factor); ddy += step {
		for ddx := -step * float64(factor); ddx <= step*float64(factor); ddx += step {
			shifted := backend.BilinearShift(tgtWin, -(coarse.Dx + ddx), -(coarse.Dy + ddy))
			score := correlationScore(backend, refWin, shifted)
			if score > bestScore {
				bestScore = score
				best.Dx = coarse.Dx + ddx
				best.Dy = coarse.Dy + ddy
			}
		}
	}
	best.Confidence = coarse.Confidence
	best.LowConfidence = coarse.LowConfidence
	return best
}

// correlationScore is the negative sum of squared differences between two
// real buffers, used by the upsampling refinement's local search.
func correlationScore(backend compute.Backend, a, b compute.Buffer) float64 {
	diff := backend.SubReal(a, b)
	sq := backend.MulReal(diff, diff)
	return -backend.Sum(sq)
}

// Centroid estimates translation from the shift in each frame's
// intensity-weighted centroid: fast and coarse, with no sub-pixel
// refinement beyond the centroid's own fractional precision.
type Centroid struct{}

func (Centroid) Align(_ compute.Backend, reference, target *frame.Frame) frame.AlignmentOffset {
	rcy, rcx := centroid(reference)
	tcy, tcx := centroid(target)
	if math.IsNaN(rcy) || math.IsNaN(tcy) {
		return frame.AlignmentOffset{LowConfidence: true}
	}
	return frame.AlignmentOffset{Dx: tcx - rcx, Dy: tcy - rcy, Confidence: 1, LowConfidence: false}
}

func centroid(f *frame.Frame) (cy, cx float64) {
	var sum, sy, sx float64
	for r := 0; r < f.H; r++ {
		for c := 0; c < f.W; c++ {
			v := float64(f.At(r, c))
			sum += v
			sy += v * float64(r)
			sx += v * float64(c)
		}
	}
	if sum == 0 {
		return math.NaN(), math.NaN()
	}
	return sy / sum, sx / sum
}

// GradientCorrelation is phase correlation applied to Sobel-filtered
// versions of the reference and target, which emphasizes edges and is more
// robust to slow illumination drift than correlating raw intensities.
type GradientCorrelation struct {
	ConfidenceThreshold float64
}

func (m GradientCorrelation) Align(backend compute.Backend, reference, target *frame.Frame) frame.AlignmentOffset {
	threshold := m.ConfidenceThreshold
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	return phaseCorrelate(backend, sobelFiltered(reference), sobelFiltered(target), threshold)
}

func sobelFiltered(f *frame.Frame) *frame.Frame {
	out := frame.New(f.H, f.W)
	for r := 0; r < f.H; r++ {
		for c := 0; c < f.W; c++ {
			gx := -f.At(r-1, c-1) + f.At(r-1, c+1) - 2*f.At(r, c-1) + 2*f.At(r, c+1) - f.At(r+1, c-1) + f.At(r+1, c+1)
			gy := -f.At(r-1, c-1) - 2*f.At(r-1, c) - f.At(r-1, c+1) + f.At(r+1, c-1) + 2*f.At(r+1, c) + f.At(r+1, c+1)
			out.Set(r, c, float32(math.Hypot(float64(gx), float64(gy))))
		}
	}
	return out
}

// Pyramid performs Gaussian-pyramid coarse-to-fine alignment: it estimates
// a coarse offset on downsampled images and refines it level by level,
// suited to displacements too large for a single-resolution phase
// correlation search.
type Pyramid struct {
	Levels int
	Base   Method
}

func (m Pyramid) Align(backend compute.Backend, reference, target *frame.Frame) frame.AlignmentOffset {
	levels := m.Levels
	if levels < 1 {
		levels = 3
	}
	base := m.Base
	if base == nil {
		base = NewPhaseCorrelation()
	}

	refPyr := gaussianPyramid(reference, levels)
	tgtPyr := gaussianPyramid(target, levels)

	var off frame.AlignmentOffset
	for lvl := levels - 1; lvl >= 0; lvl-- {
		tgt := shiftedCopy(tgtPyr[lvl], -off.Dx, -off.Dy)
		delta := base.Align(backend, refPyr[lvl], tgt)
		off.Dx += delta.Dx
		off.Dy += delta.Dy
		off.Confidence = delta.Confidence
		off.LowConfidence = delta.LowConfidence
		if lvl > 0 {
			off.Dx *= 2
			off.Dy *= 2
		}
	}
	return off
}

// gaussianPyramid returns [reference, half-res, quarter-res, ...] of length
// levels, each built by a 5-tap binomial blur followed by 2x decimation.
func gaussianPyramid(f *frame.Frame, levels int) []*frame.Frame {
	pyr := make([]*frame.Frame, levels)
	pyr[0] = f
	cur := f
	for l := 1; l < levels; l++ {
		cur = downsample(blur5(cur))
		pyr[l] = cur
	}
	return pyr
}

var binomial5 = [5]float32{1.0 / 16, 4.0 / 16, 6.0 / 16, 4.0 / 16, 1.0 / 16}

func blur5(f *frame.Frame) *frame.Frame {
	tmp := frame.New(f.H, f.W)
	for r := 0; r < f.H; r++ {
		for c := 0; c < f.W; c++ {
			var acc float32
			for k := -2; k <= 2; k++ {
				acc += binomial5[k+2] * f.At(r, clampIdx(c+k, f.W))
			}
			tmp.Set(r, c, acc)
		}
	}
	out := frame.New(f.H, f.W)
	for r := 0; r < f.H; r++ {
		for c := 0; c < f.W; c++ {
			var acc float32
			for k := -2; k <= 2; k++ {
				acc += binomial5[k+2] * tmp.At(clampIdx(r+k, f.H), c)
			}
			out.Set(r, c, acc)
		}
	}
	return out
}

func clampIdx(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func downsample(f *frame.Frame) *frame.Frame {
	h, w := (f.H+1)/2, (f.W+1)/2
	out := frame.New(h, w)
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			out.Set(r, c, f.At(r*2, c*2))
		}
	}
	return out
}

func shiftedCopy(f *frame.Frame, dx, dy float64) *frame.Frame {
	out := frame.New(f.H, f.W)
	for r := 0; r < f.H; r++ {
		for c := 0; c < f.W; c++ {
			out.Set(r, c, f.BilinearAt(float64(r)-dy, float64(c)-dx))
		}
	}
	return out
}
