/*
NAME
  stack.go

DESCRIPTION
  stack.go defines the Stacker interface and implements the Mean, Median and
  Sigma-Clipped Mean strategies. Mean is fully streaming (O(1) resident
  frames); Median and SigmaClip require random access to every selected
  frame and pre-transpose pixel data into pixel-major order before their
  per-pixel reduction, per spec.md's memory-layout note.

AUTHORS
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package stack implements the five stacking strategies: Mean, Median,
// SigmaClip, MultiPoint (in the stack/multipoint sub-package) and Drizzle.
package stack

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/ausocean/lucky/frame"
)

// Stacker combines a sequence of aligned frames into a single composite.
type Stacker interface {
	Stack(frames []*frame.Frame) (*frame.Frame, error)
}

// Mean is the streaming per-pixel arithmetic mean stacker.
type Mean struct{}

func (Mean) Stack(frames []*frame.Frame) (*frame.Frame, error) {
	if len(frames) == 0 {
		return nil, frame.Errorf(frame.InvalidConfig, "stack", "no frames to stack")
	}
	h, w := frames[0].H, frames[0].W
	out := frame.New(h, w)
	for _, f := range frames {
		for i, v := range f.Pix {
			out.Pix[i] += v
		}
	}
	n := float32(len(frames))
	for i := range out.Pix {
		out.Pix[i] /= n
	}
	out.Clamp()
	return out, nil
}

// Median is the per-pixel median stacker. It transposes the selected frames
// into a pixel-major buffer (one []float32 of length N per pixel) before
// the median loop, trading memory for cache-friendly access, exactly as
// spec.md's "memory layout for median" note prescribes.
type Median struct{}

func (Median) Stack(frames []*frame.Frame) (*frame.Frame, error) {
	if len(frames) == 0 {
		return nil, frame.Errorf(frame.InvalidConfig, "stack", "no frames to stack")
	}
	h, w := frames[0].H, frames[0].W
	n := len(frames)
	out := frame.New(h, w)

	pixelMajor := make([]float32, h*w*n)
	for fi, f := range frames {
		for p, v := range f.Pix {
			pixelMajor[p*n+fi] = v
		}
	}

	buf := make([]float32, n)
	for p := 0; p < h*w; p++ {
		copy(buf, pixelMajor[p*n:p*n+n])
		out.Pix[p] = medianOf(buf)
	}
	out.Clamp()
	return out, nil
}

func medianOf(buf []float32) float32 {
	sort.Slice(buf, func(i, j int) bool {
		return lessNaNLast(buf[i], buf[j])
	})
	n := len(buf)
	if n%2 == 1 {
		return buf[n/2]
	}
	return (buf[n/2-1] + buf[n/2]) / 2
}

// lessNaNLast orders values with NaN sorted last, never panicking, matching
// the NaN discipline required of every sort in the pipeline.
func lessNaNLast(a, b float32) bool {
	an, bn := math.IsNaN(float64(a)), math.IsNaN(float64(b))
	switch {
	case an && bn:
		return false
	case an:
		return false
	case bn:
		return true
	default:
		return a < b
	}
}

// SigmaClip iteratively rejects per-pixel values beyond Sigma standard
// deviations from the running mean, for up to Iterations passes. If a pixel
// loses all of its contributors the original (unclipped) mean is used.
type SigmaClip struct {
	Sigma      float64
	Iterations int
}

func (s SigmaClip) Stack(frames []*frame.Frame) (*frame.Frame, error) {
	if len(frames) == 0 {
		return nil, frame.Errorf(frame.InvalidConfig, "stack", "no frames to stack")
	}
	sigma := s.Sigma
	if sigma <= 0 {
		sigma = 2.5
	}
	iterations := s.Iterations
	if iterations <= 0 {
		iterations = 3
	}

	h, w := frames[0].H, frames[0].W
	n := len(frames)
	out := frame.New(h, w)

	pixelMajor := make([]float64, h*w*n)
	for fi, f := range frames {
		for p, v := range f.Pix {
			pixelMajor[p*n+fi] = float64(v)
		}
	}

	buf := make([]float64, n)
	kept := make([]float64, 0, n)
	for p := 0; p < h*w; p++ {
		copy(buf, pixelMajor[p*n:p*n+n])
		out.Pix[p] = float32(sigmaClipPixel(buf, kept[:0], sigma, iterations))
	}
	out.Clamp()
	return out, nil
}

func sigmaClipPixel(values []float64, scratch []float64, sigma float64, iterations int) float64 {
	mean, _ := stat.MeanVariance(values, nil)
	originalMean := mean

	active := append(scratch, values...)
	for it := 0; it < iterations; it++ {
		if len(active) == 0 {
			return originalMean
		}
		m, variance := stat.MeanVariance(active, nil)
		if variance == 0 {
			return m
		}
		std := math.Sqrt(variance)
		kept := active[:0]
		for _, v := range active {
			if math.Abs(v-m) <= sigma*std {
				kept = append(kept, v)
			}
		}
		if len(kept) == 0 {
			// All contributors rejected this pass: fall back to the
			// original mean per spec.md's numerical policy.
			return originalMean
		}
		active = kept
		mean = m
	}
	m, _ := stat.MeanVariance(active, nil)
	_ = mean
	return m
}
