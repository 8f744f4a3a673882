/*
NAME
  drizzle.go

DESCRIPTION
  drizzle.go implements Square-kernel drizzle: each input pixel's drop of
  fractional area Pixfrac is projected, at the frame's global offset, onto
  an output grid scaled by DrizzleScale, accumulating signal and weight
  which are divided at the end.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package stack

import (
	"math"

	"github.com/ausocean/lucky/frame"
)

// Drizzle implements the Square drizzle kernel. Gaussian-kernel drizzle is
// left unimplemented per spec.md §9's open questions, and there is no kernel
// option to select one.
type Drizzle struct {
	// Scale is the output-grid scale factor, >= 1.
	Scale float64
	// Pixfrac is the fractional linear size of the drop projected per input
	// pixel, in (0, 1].
	Pixfrac float64
	// Offsets supplies the global AlignmentOffset for each frame, indexed
	// the same as the frames passed to Stack.
	Offsets []frame.AlignmentOffset
	// QualityWeighted multiplies each frame's drops by its composite
	// quality score.
	QualityWeighted bool
}

func (d Drizzle) Stack(frames []*frame.Frame) (*frame.Frame, error) {
	if len(frames) == 0 {
		return nil, frame.Errorf(frame.InvalidConfig, "stack", "no frames to stack")
	}
	if len(d.Offsets) != len(frames) {
		return nil, frame.Errorf(frame.InvalidConfig, "stack", "drizzle offsets length %d != frame count %d", len(d.Offsets), len(frames))
	}
	scale := d.Scale
	if scale < 1 {
		scale = 1
	}
	pixfrac := d.Pixfrac
	if pixfrac <= 0 || pixfrac > 1 {
		pixfrac = 1
	}

	h, w := frames[0].H, frames[0].W
	oh, ow := int(float64(h)*scale), int(float64(w)*scale)
	signal := make([]float64, oh*ow)
	weight := make([]float64, oh*ow)

	for fi, f := range frames {
		off := d.Offsets[fi]
		frameWeight := 1.0
		if d.QualityWeighted && f.Quality.Valid {
			frameWeight = f.Quality.Composite
		}
		for r := 0; r < f.H; r++ {
			for c := 0; c < f.W; c++ {
				v := float64(f.At(r, c))
				if v == 0 {
					continue
				}
				// Output-space center of this input pixel's drop, after
				// removing the frame's global offset and scaling.
				oy := (float64(r) - off.Dy) * scale
				ox := (float64(c) - off.Dx) * scale
				dropSpan := pixfrac * scale

				// y0/y1 (and x0/x1) are the inclusive output-row (column)
				// bounds of this drop: round(center - span/2) through
				// round(center + span/2) - 1, so a unit dropSpan lands on
				// exactly one output row/column rather than two.
				y0 := round(oy - dropSpan*0.5)
				y1 := round(oy+dropSpan*0.5) - 1
				x0 := round(ox - dropSpan*0.5)
				x1 := round(ox+dropSpan*0.5) - 1
				if y1 < y0 {
					y1 = y0
				}
				if x1 < x0 {
					x1 = x0
				}
				area := float64((y1 - y0 + 1) * (x1 - x0 + 1))
				contrib := v * frameWeight / area
				for yy := y0; yy <= y1; yy++ {
					if yy < 0 || yy >= oh {
						continue
					}
					for xx := x0; xx <= x1; xx++ {
						if xx < 0 || xx >= ow {
							continue
						}
						idx := yy*ow + xx
						signal[idx] += contrib
						weight[idx] += frameWeight / area
					}
				}
			}
		}
	}

	out := frame.New(oh, ow)
	for i := range out.Pix {
		if weight[i] == 0 {
			out.Pix[i] = 0
			continue
		}
		out.Pix[i] = float32(signal[i] / weight[i])
	}
	out.Clamp()
	return out, nil
}

// round rounds to the nearest integer, halfway cases rounding up.
func round(x float64) int {
	return int(math.Floor(x + 0.5))
}
