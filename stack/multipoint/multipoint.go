/*
NAME
  multipoint.go

DESCRIPTION
  multipoint.go implements Phases B-D of multi-point stacking: per-AP
  per-frame quality scoring, per-AP frame selection, and per-AP local
  phase-correlation alignment and stacking, before Blend (blend.go)
  recombines the results.

AUTHORS
  Scott Barnard <scott@ausocean.org>
  Dan Kortschak <dan@ausocean.org>

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
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/ausocean/lucky/align"
	"github.com/ausocean/lucky/compute"
	"github.com/ausocean/lucky/frame"
	"github.com/ausocean/lucky/quality"
)

// LocalMethod selects how the frames chosen for one AP are combined.
type LocalMethod int

const (
	LocalMean LocalMethod = iota
	LocalMedian
	LocalSigmaClip
)

// Config parameterizes the multi-point stacker.
type Config struct {
	ApSize             int
	MinBrightness      float64
	MinContrast        float64
	SelectPercentage   float64
	SearchRadius       int
	LocalConfidenceMin float64
	QualityMetric      quality.Metric
	QualityWeighted    bool
	QualityAlpha       float64
	LocalMethod        LocalMethod
	SigmaClipSigma     float64
}

// Stacker is the multi-point stacking strategy. Construct with NewStacker.
type Stacker struct {
	cfg     Config
	backend compute.Backend
}

// NewStacker returns a multi-point Stacker using backend for its FFT-based
// local alignment passes.
func NewStacker(cfg Config, backend compute.Backend) *Stacker {
	return &Stacker{cfg: cfg, backend: backend}
}

// Stack runs Phases A-E against reference, using globalOffsets (one per
// entry in frames, same order) as each frame's global alignment. It returns
// ErrNoAPs, unwrapped, if reference is smaller than a single AP or no grid
// cell passes the AP gates, so that callers can apply the documented Mean
// fallback.
func (s *Stacker) Stack(reference *frame.Frame, frames []*frame.Frame, globalOffsets []frame.AlignmentOffset) (*frame.Frame, error) {
	if len(frames) != len(globalOffsets) {
		return nil, frame.Errorf(frame.InvalidConfig, "multipoint", "frame count %d != offset count %d", len(frames), len(globalOffsets))
	}

	grid, err := BuildGrid(reference, s.cfg.ApSize, s.cfg.MinBrightness, s.cfg.MinContrast)
	if err != nil {
		return nil, err
	}

	// Phase B: per-AP per-frame quality matrix.
	qual := s.scoreMatrix(grid, frames, globalOffsets)

	// Phase C & D: selection, local alignment, and per-AP stacking, in
	// parallel across APs since they are independent.
	patches := make([]*frame.Frame, len(grid))
	var g errgroup.Group
	for j := range grid {
		j := j
		g.Go(func() error {
			patches[j] = s.stackAP(grid[j], qual[j], frames, globalOffsets)
			return nil
		})
	}
	_ = g.Wait()

	out := Blend(reference.H, reference.W, grid, patches)
	out.Clamp()
	return out, nil
}

// scoreMatrix computes Q[j][k]: the quality score of frame k's AP-j region,
// extracted at the AP center adjusted by frame k's global offset.
func (s *Stacker) scoreMatrix(grid []AP, frames []*frame.Frame, globalOffsets []frame.AlignmentOffset) [][]frame.QualityScore {
	qual := make([][]frame.QualityScore, len(grid))
	var g errgroup.Group
	for j := range grid {
		j := j
		g.Go(func() error {
			row := make([]frame.QualityScore, len(frames))
			for k, f := range frames {
				patch := extractPatch(f, grid[j].Cy, grid[j].Cx, grid[j].Size, globalOffsets[k].Dx, globalOffsets[k].Dy)
				row[k] = quality.Score(patch, s.cfg.QualityMetric)
			}
			qual[j] = row
			return nil
		})
	}
	_ = g.Wait()
	return qual
}

// stackAP performs Phase C (selection) and Phase D (local align + stack)
// for a single AP.
func (s *Stacker) stackAP(ap AP, q []frame.QualityScore, frames []*frame.Frame, globalOffsets []frame.AlignmentOffset) *frame.Frame {
	selected := quality.SelectTop(q, clampFraction(s.cfg.SelectPercentage))

	padded := ap.Size + 2*s.cfg.SearchRadius
	refPadded := extractPatch(ap.Source, ap.Cy, ap.Cx, padded, 0, 0)

	type contribution struct {
		patch  *frame.Frame
		weight float64
	}
	var contributions []contribution

	for _, k := range selected {
		f := frames[k]
		off := globalOffsets[k]
		tgtPadded := extractPatch(f, ap.Cy, ap.Cx, padded, off.Dx, off.Dy)

		local := phaseCorrelateLocal(s.backend, refPadded, tgtPadded, s.cfg.LocalConfidenceMin)
		if local.LowConfidence {
			continue
		}
		local.Dx = clampMag(local.Dx, float64(s.cfg.SearchRadius))
		local.Dy = clampMag(local.Dy, float64(s.cfg.SearchRadius))

		aligned := extractPatch(f, ap.Cy, ap.Cx, ap.Size, off.Dx+local.Dx, off.Dy+local.Dy)

		weight := 1.0
		if s.cfg.QualityWeighted && q[k].Valid {
			alpha := s.cfg.QualityAlpha
			if alpha == 0 {
				alpha = 1
			}
			weight = math.Pow(math.Max(q[k].Composite, 0), alpha)
		}
		contributions = append(contributions, contribution{patch: aligned, weight: weight})
	}

	if len(contributions) == 0 {
		return ap.RefPatch
	}

	patches := make([]*frame.Frame, len(contributions))
	weights := make([]float64, len(contributions))
	for i, c := range contributions {
		patches[i] = c.patch
		weights[i] = c.weight
	}

	switch s.cfg.LocalMethod {
	case LocalMedian:
		return localMedian(patches)
	case LocalSigmaClip:
		return localSigmaClip(patches, s.cfg.SigmaClipSigma)
	default:
		return localWeightedMean(patches, weights)
	}
}

func localWeightedMean(patches []*frame.Frame, weights []float64) *frame.Frame {
	h, w := patches[0].H, patches[0].W
	out := frame.New(h, w)
	var wsum float64
	for i, p := range patches {
		wsum += weights[i]
		for idx, v := range p.Pix {
			out.Pix[idx] += float32(weights[i]) * v
		}
	}
	if wsum == 0 {
		wsum = 1
	}
	for i := range out.Pix {
		out.Pix[i] /= float32(wsum)
	}
	return out
}

func localMedian(patches []*frame.Frame) *frame.Frame {
	h, w := patches[0].H, patches[0].W
	n := len(patches)
	out := frame.New(h, w)
	buf := make([]float32, n)
	for p := 0; p < h*w; p++ {
		for i, patch := range patches {
			buf[i] = patch.Pix[p]
		}
		sort.Slice(buf, func(i, j int) bool { return buf[i] < buf[j] })
		if n%2 == 1 {
			out.Pix[p] = buf[n/2]
		} else {
			out.Pix[p] = (buf[n/2-1] + buf[n/2]) / 2
		}
	}
	return out
}

func localSigmaClip(patches []*frame.Frame, sigma float64) *frame.Frame {
	if sigma <= 0 {
		sigma = 2.5
	}
	h, w := patches[0].H, patches[0].W
	n := len(patches)
	out := frame.New(h, w)
	for p := 0; p < h*w; p++ {
		vals := make([]float64, n)
		for i, patch := range patches {
			vals[i] = float64(patch.Pix[p])
		}
		out.Pix[p] = float32(sigmaClipMean(vals, sigma))
	}
	return out
}

func sigmaClipMean(vals []float64, sigma float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(len(vals))
	var variance float64
	for _, v := range vals {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(vals))
	std := math.Sqrt(variance)
	if std == 0 {
		return mean
	}
	var ksum, kcount float64
	for _, v := range vals {
		if math.Abs(v-mean) <= sigma*std {
			ksum += v
			kcount++
		}
	}
	if kcount == 0 {
		return mean
	}
	return ksum / kcount
}

func clampFraction(f float64) float64 {
	if f <= 0 {
		return 1
	}
	if f > 1 {
		return 1
	}
	return f
}

func clampMag(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}

// phaseCorrelateLocal runs phase correlation between two equally-sized
// patches, reusing the same algorithm as the global aligner.
func phaseCorrelateLocal(backend compute.Backend, ref, tgt *frame.Frame, confidenceThreshold float64) frame.AlignmentOffset {
	method := align.NewPhaseCorrelation()
	method.ConfidenceThreshold = confidenceThreshold
	return method.Align(backend, ref, tgt)
}
