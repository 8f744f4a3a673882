/*
NAME
  blend.go

DESCRIPTION
  blend.go implements Phase E: recombining each AP's stacked patch into the
  full-frame composite via a raised-cosine (Hann) partition of unity. With
  50% stride, the 1-D Hann window forms a partition of unity and the
  separable 2-D product does so over the grid's interior.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package multipoint

import (
	"math"

	"github.com/ausocean/lucky/frame"
)

// hannWeight computes W(r,c) = hann1d(r, size) * hann1d(c, size) for an
// AP-local coordinate (r, c) in [0, size).
func hannWeight(r, c, size int) float64 {
	return hann1d(r, size) * hann1d(c, size)
}

func hann1d(i, size int) float64 {
	if size <= 1 {
		return 1
	}
	return 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size)))
}

// Blend combines the per-AP stacked patches into a full (h, w) composite,
// weighting each patch's contribution by its raised-cosine window and
// dividing by the accumulated weight sum. Pixels with zero weight sum (no
// overlapping AP) are zero in the output.
func Blend(h, w int, grid []AP, patches []*frame.Frame) *frame.Frame {
	acc := make([]float64, h*w)
	wsum := make([]float64, h*w)

	for j, ap := range grid {
		patch := patches[j]
		if patch == nil {
			continue
		}
		half := ap.Size / 2
		for r := 0; r < ap.Size; r++ {
			row := ap.Cy - half + r
			if row < 0 || row >= h {
				continue
			}
			for c := 0; c < ap.Size; c++ {
				col := ap.Cx - half + c
				if col < 0 || col >= w {
					continue
				}
				wt := hannWeight(r, c, ap.Size)
				idx := row*w + col
				acc[idx] += wt * float64(patch.At(r, c))
				wsum[idx] += wt
			}
		}
	}

	out := frame.New(h, w)
	for i := range out.Pix {
		if wsum[i] == 0 {
			out.Pix[i] = 0
			continue
		}
		out.Pix[i] = float32(acc[i] / wsum[i])
	}
	return out
}

// WeightSum returns the raw Hann weight-sum image for grid, without
// dividing by it. Stacker.Stack does not call it and runs no
// partition-of-unity check of its own.
func WeightSum(h, w int, grid []AP) []float64 {
	wsum := make([]float64, h*w)
	for _, ap := range grid {
		half := ap.Size / 2
		for r := 0; r < ap.Size; r++ {
			row := ap.Cy - half + r
			if row < 0 || row >= h {
				continue
			}
			for c := 0; c < ap.Size; c++ {
				col := ap.Cx - half + c
				if col < 0 || col >= w {
					continue
				}
				wsum[row*w+col] += hannWeight(r, c, ap.Size)
			}
		}
	}
	return wsum
}
