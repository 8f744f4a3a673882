/*
NAME
  quality.go

DESCRIPTION
  quality.go scores frames by local sharpness using the Laplacian-variance
  or Sobel-gradient-magnitude metric, and provides the ranking and
  top-fraction selection operations consumed by the global and per-patch
  selectors.

AUTHORS
  Ella Pietraroia <ella@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package quality provides frame and patch sharpness scoring.
package quality

import (
	"math"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/ausocean/lucky/frame"
)

// Metric identifies a sharpness-scoring algorithm.
type Metric int

const (
	// LaplacianVariance scores by the variance of the Laplacian-filtered image.
	LaplacianVariance Metric = iota
	// SobelMagnitude scores by the mean Sobel gradient magnitude.
	SobelMagnitude
)

// Score computes the sharpness score of fr under the given metric. Built
// with the withcv tag, it uses accelScore's OpenCV kernels; otherwise, and
// whenever accelScore declines, it falls back to the pure-Go kernels below.
func Score(fr *frame.Frame, m Metric) frame.QualityScore {
	if s, ok := accelScore(fr, m); ok {
		return s
	}
	switch m {
	case SobelMagnitude:
		return sobelScore(fr)
	default:
		return laplacianScore(fr)
	}
}

// laplacianScore filters fr with the discrete Laplacian
// [[0,1,0],[1,-4,1],[0,1,0]] and scores the variance of the response.
func laplacianScore(fr *frame.Frame) frame.QualityScore {
	h, w := fr.H, fr.W
	vals := make([]float64, 0, h*w)
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			v := -4*fr.At(r, c) + fr.At(r-1, c) + fr.At(r+1, c) + fr.At(r, c-1) + fr.At(r, c+1)
			vals = append(vals, float64(v))
		}
	}
	_, variance := stat.MeanVariance(vals, nil)
	if math.IsNaN(variance) {
		return frame.QualityScore{Composite: math.NaN(), Valid: false}
	}
	return frame.QualityScore{Composite: variance, Valid: true}
}

// sobelScore computes the mean gradient magnitude under the standard 3x3
// Sobel kernels, with zero-padded boundary handling.
func sobelScore(fr *frame.Frame) frame.QualityScore {
	h, w := fr.H, fr.W
	if h == 0 || w == 0 {
		return frame.QualityScore{Composite: math.NaN(), Valid: false}
	}
	var sum float64
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			gx := -float64(fr.At(r-1, c-1)) + float64(fr.At(r-1, c+1)) +
				-2*float64(fr.At(r, c-1)) + 2*float64(fr.At(r, c+1)) +
				-float64(fr.At(r+1, c-1)) + float64(fr.At(r+1, c+1))
			gy := -float64(fr.At(r-1, c-1)) - 2*float64(fr.At(r-1, c)) - float64(fr.At(r-1, c+1)) +
				float64(fr.At(r+1, c-1)) + 2*float64(fr.At(r+1, c)) + float64(fr.At(r+1, c+1))
			sum += math.Sqrt(gx*gx + gy*gy)
		}
	}
	mean := sum / float64(h*w)
	if math.IsNaN(mean) {
		return frame.QualityScore{Composite: math.NaN(), Valid: false}
	}
	return frame.QualityScore{Composite: mean, Valid: true}
}

// ScoreAll scores every frame in frames in parallel, writing each frame's
// QualityScore field and returning the scores in input order.
func ScoreAll(frames []*frame.Frame, m Metric) []frame.QualityScore {
	scores := make([]frame.QualityScore, len(frames))
	var g errgroup.Group
	for i := range frames {
		i := i
		g.Go(func() error {
			s := Score(frames[i], m)
			frames[i].Quality = s
			scores[i] = s
			return nil
		})
	}
	_ = g.Wait() // Score never errors; retained for the fan-out idiom.
	return scores
}

// Rank returns a permutation of [0, len(scores)) sorted by descending
// score, with NaN scores sorted last and ties broken by original index for
// a total, deterministic, never-panicking order.
func Rank(scores []frame.QualityScore) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ia, ib := idx[a], idx[b]
		// Descending score: ia before ib iff scores[ib].Less(scores[ia]).
		return scores[ib].Less(scores[ia])
	})
	return idx
}

// SelectTop returns the indices of the ceil(N*fraction) best-scoring frames,
// in descending-quality order.
func SelectTop(scores []frame.QualityScore, fraction float64) []int {
	n := len(scores)
	k := int(math.Ceil(float64(n) * fraction))
	if k > n {
		k = n
	}
	if k < 0 {
		k = 0
	}
	ranked := Rank(scores)
	return ranked[:k]
}
