/*
NAME
  ap.go

DESCRIPTION
  ap.go builds the alignment-point grid from a reference frame: an ordered
  set of overlapping patches, stepping by half the patch size so that the
  Hann blending weights in blend.go form a partition of unity, gated by
  minimum brightness and local contrast.

AUTHORS
  Scott Barnard <scott@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package multipoint implements multi-point stacking: spatially-varying
// atmospheric tip-tilt is approximated as piecewise-constant on an
// overlapping grid of alignment patches (APs), each selecting and stacking
// its own frame subset before a raised-cosine blend recombines them.
package multipoint

import (
	"errors"
	"math"

	"github.com/ausocean/lucky/frame"
)

// ErrNoAPs is returned by BuildGrid when the reference frame is smaller than
// a single alignment patch, or when no candidate cell passes the brightness
// and contrast gates; callers fall back to Mean stacking per
// spec.md's documented boundary behavior.
var ErrNoAPs = errors.New("multipoint: reference frame smaller than ap_size, zero alignment points")

// AP is a single alignment point: a grid cell of the reference frame used as
// an independently selected and stacked unit.
type AP struct {
	Cy, Cx   int // center, in reference-frame pixel coordinates.
	Size     int
	RefPatch *frame.Frame // the Size x Size reference patch centered at (Cy, Cx).
	Source   *frame.Frame // the reference frame this AP was built from.
}

// BuildGrid constructs the AP grid from reference, stepping by apSize/2 (the
// 50% overlap required for the Hann partition of unity) and keeping only
// candidate cells whose mean brightness and local contrast clear the given
// gates.
func BuildGrid(reference *frame.Frame, apSize int, minBrightness, minContrast float64) ([]AP, error) {
	if apSize <= 0 {
		return nil, frame.Errorf(frame.InvalidConfig, "multipoint", "ap_size must be positive, got %d", apSize)
	}
	if reference.H < apSize || reference.W < apSize {
		return nil, ErrNoAPs
	}

	stride := apSize / 2
	if stride < 1 {
		stride = 1
	}

	var grid []AP
	half := apSize / 2
	for cy := half; cy < reference.H; cy += stride {
		if cy+half > reference.H {
			cy = reference.H - half
		}
		for cx := half; cx < reference.W; cx += stride {
			if cx+half > reference.W {
				cx = reference.W - half
			}
			patch := extractPatch(reference, cy, cx, apSize, 0, 0)
			mean, contrast := brightnessAndContrast(patch)
			if mean >= minBrightness && contrast >= minContrast {
				grid = append(grid, AP{Cy: cy, Cx: cx, Size: apSize, RefPatch: patch, Source: reference})
			}
			if cx+half >= reference.W {
				break
			}
		}
		if cy+half >= reference.H {
			break
		}
	}
	if len(grid) == 0 {
		return nil, ErrNoAPs
	}
	return grid, nil
}

// extractPatch extracts a size x size patch centered at (cy, cx), offset by
// the fractional (dx, dy) translation, using bilinear interpolation;
// out-of-bounds samples read as 0.
func extractPatch(f *frame.Frame, cy, cx, size int, dx, dy float64) *frame.Frame {
	half := size / 2
	out := frame.New(size, size)
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			row := float64(cy-half+r) + dy
			col := float64(cx-half+c) + dx
			out.Set(r, c, f.BilinearAt(row, col))
		}
	}
	return out
}

func brightnessAndContrast(patch *frame.Frame) (mean, contrast float64) {
	var sum, sumSq float64
	n := float64(len(patch.Pix))
	for _, v := range patch.Pix {
		sum += float64(v)
		sumSq += float64(v) * float64(v)
	}
	mean = sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	contrast = math.Sqrt(variance)
	return mean, contrast
}
