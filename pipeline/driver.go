/*
NAME
  driver.go

DESCRIPTION
  driver.go implements the pipeline driver: it sequences the reader,
  quality scorer, aligner, stacker and sharpener stages described in
  spec.md §3, threading a single ComputeBackend through all of them,
  reporting progress at stage boundaries, and honoring cooperative
  cancellation between stages and between frames within a stage.

AUTHORS
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package pipeline sequences the lucky-imaging stages: read, score, align,
// stack and sharpen, threading a single compute.Backend through all of
// them.
package pipeline

import (
	"context"
	"errors"
	"os"

	"github.com/ausocean/lucky/align"
	"github.com/ausocean/lucky/compute"
	"github.com/ausocean/lucky/compute/cpu"
	"github.com/ausocean/lucky/container/ser"
	"github.com/ausocean/lucky/frame"
	"github.com/ausocean/lucky/pipeline/config"
	"github.com/ausocean/lucky/quality"
	"github.com/ausocean/lucky/sharpen"
	"github.com/ausocean/lucky/sharpen/psf"
	"github.com/ausocean/lucky/sharpen/wavelet"
	"github.com/ausocean/lucky/stack"
	"github.com/ausocean/lucky/stack/multipoint"
)

// Result is the driver's output: the final processed frame plus the
// per-stage counts a caller may want to log.
type Result struct {
	Frame *frame.Frame

	FramesRead     int
	FramesSelected int
	FramesAligned  int
	FramesDropped  int
	BackendUsed    string
}

// Run executes the full pipeline against the SER capture at path, using cfg
// and reporting through prog (which may be nil). tok may be nil; a nil
// token is never cancelled.
func Run(ctx context.Context, path string, cfg config.Config, prog Progress, tok *CancelToken) (*Result, error) {
	if prog == nil {
		prog = noopProgress{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	backend, backendName, err := selectBackend(cfg)
	if err != nil {
		return nil, err
	}

	prog.StageStarted("read")
	frames, err := readAll(cfg, path, tok, func(done, total int) {
		prog.Progress("read", float64(done)/float64(total))
	})
	if err != nil {
		return nil, err
	}
	prog.StageFinished("read")
	if err := checkCancelled(tok); err != nil {
		return nil, err
	}

	prog.StageStarted("score")
	scores := quality.ScoreAll(frames, qualityMetric(cfg))
	prog.StageFinished("score")
	if err := checkCancelled(tok); err != nil {
		return nil, err
	}

	selectedIdx := quality.SelectTop(scores, cfg.SelectPercentage)
	selected := make([]*frame.Frame, len(selectedIdx))
	for i, idx := range selectedIdx {
		selected[i] = frames[idx]
	}
	if len(selected) == 0 {
		return nil, frame.Errorf(frame.InvalidConfig, "pipeline", "selection left zero frames")
	}
	reference := selected[0]

	prog.StageStarted("align")
	offsets, err := align.AlignAll(ctx, backend, alignMethod(cfg), reference, selected, func(done int) {
		prog.Progress("align", float64(done)/float64(len(selected)))
	})
	if err != nil {
		return nil, err
	}
	prog.StageFinished("align")
	if err := checkCancelled(tok); err != nil {
		return nil, err
	}

	dropped := 0
	alignedFrames := make([]*frame.Frame, 0, len(selected))
	alignedOffsets := make([]frame.AlignmentOffset, 0, len(selected))
	for i, off := range offsets {
		if off.LowConfidence {
			dropped++
			continue
		}
		alignedFrames = append(alignedFrames, selected[i])
		alignedOffsets = append(alignedOffsets, off)
	}
	if float64(dropped) > cfg.DroppedFrameFraction*float64(len(selected)) {
		return nil, frame.Errorf(frame.AlignmentFailed, "pipeline", "dropped %d/%d frames, exceeding DroppedFrameFraction %v", dropped, len(selected), cfg.DroppedFrameFraction)
	}

	prog.StageStarted("stack")
	stacked, err := runStack(backend, cfg, reference, alignedFrames, alignedOffsets)
	if err != nil {
		return nil, err
	}
	prog.StageFinished("stack")
	if err := checkCancelled(tok); err != nil {
		return nil, err
	}

	prog.StageStarted("sharpen")
	sharpened := runSharpen(backend, cfg, stacked)
	sharpened.Clamp()
	prog.StageFinished("sharpen")

	return &Result{
		Frame:          sharpened,
		FramesRead:     len(frames),
		FramesSelected: len(selected),
		FramesAligned:  len(alignedFrames),
		FramesDropped:  dropped,
		BackendUsed:    backendName,
	}, nil
}

// selectBackend implements spec.md §7's BackendUnavailable policy: try GPU
// first for Auto and Gpu preferences, falling back to CPU unless Gpu was
// requested explicitly with fallback disabled.
func selectBackend(cfg config.Config) (compute.Backend, string, error) {
	switch cfg.Device {
	case config.DeviceCPU:
		return cpu.New(), "cpu", nil
	case config.DeviceGPU:
		b, err := newGPUBackend()
		if err == nil {
			return b, b.Name(), nil
		}
		if !cfg.AllowGPUFallback {
			return nil, "", err
		}
		return cpu.New(), "cpu", nil
	default: // DeviceAuto
		if b, err := newGPUBackend(); err == nil {
			return b, b.Name(), nil
		}
		return cpu.New(), "cpu", nil
	}
}

func readAll(cfg config.Config, path string, tok *CancelToken, progress func(done, total int)) ([]*frame.Frame, error) {
	r, err := ser.Open(path, resolveMemoryMode(cfg, path), cfg.Logger)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	n := r.FrameCount()
	frames := make([]*frame.Frame, n)
	for i := 0; i < n; i++ {
		if err := checkCancelled(tok); err != nil {
			return nil, err
		}
		f, err := r.Read(i)
		if err != nil {
			return nil, err
		}
		frames[i] = f
		if progress != nil {
			progress(i+1, n)
		}
	}
	return frames, nil
}

// resolveMemoryMode implements spec.md §5's Auto policy: stream when the
// capture's on-disk size exceeds the configured threshold, matching file
// size to decoded-size since SER stores samples uncompressed.
func resolveMemoryMode(cfg config.Config, path string) ser.MemoryMode {
	switch cfg.Memory {
	case config.MemoryEager:
		return ser.Eager
	case config.MemoryStreaming:
		return ser.Streaming
	default:
		threshold := cfg.EagerThresholdBytes
		if threshold <= 0 {
			threshold = ser.EagerThresholdBytes
		}
		fi, err := os.Stat(path)
		if err != nil || fi.Size() > threshold {
			return ser.Streaming
		}
		return ser.Eager
	}
}

func qualityMetric(cfg config.Config) quality.Metric {
	if cfg.QualityMetric == config.MetricSobelMagnitude {
		return quality.SobelMagnitude
	}
	return quality.LaplacianVariance
}

func alignMethod(cfg config.Config) align.Method {
	switch cfg.AlignMethod {
	case config.AlignUpsampledPhaseCorrelation:
		return align.UpsampledPhaseCorrelation{ConfidenceThreshold: cfg.AlignConfidenceThreshold, UpsampleFactor: cfg.UpsampleFactor}
	case config.AlignCentroid:
		return align.Centroid{}
	case config.AlignGradientCorrelation:
		return align.GradientCorrelation{ConfidenceThreshold: cfg.AlignConfidenceThreshold}
	case config.AlignPyramid:
		return align.Pyramid{Levels: cfg.PyramidLevels, Base: align.PhaseCorrelation{ConfidenceThreshold: cfg.AlignConfidenceThreshold}}
	default:
		return align.PhaseCorrelation{ConfidenceThreshold: cfg.AlignConfidenceThreshold}
	}
}

// runStack applies alignedOffsets to frames (via the backend's bilinear
// shift) before the Mean, Median and SigmaClip strategies, and passes offsets through
// directly to the strategies (MultiPoint, Drizzle) that need per-frame
// global offsets for local realignment.
func runStack(backend compute.Backend, cfg config.Config, reference *frame.Frame, frames []*frame.Frame, offsets []frame.AlignmentOffset) (*frame.Frame, error) {
	switch cfg.StackMethod {
	case config.StackMultiPoint:
		s := multipoint.NewStacker(multipoint.Config{
			ApSize:             cfg.ApSize,
			MinBrightness:      cfg.MinBrightness,
			MinContrast:        cfg.MinContrast,
			SelectPercentage:   cfg.ApSelectPercentage,
			SearchRadius:       cfg.SearchRadius,
			LocalConfidenceMin: cfg.LocalConfidenceMin,
			QualityMetric:      qualityMetric(cfg),
			QualityWeighted:    cfg.QualityWeighted,
			QualityAlpha:       cfg.QualityWeightAlpha,
			LocalMethod:        localMethod(cfg),
			SigmaClipSigma:     cfg.SigmaClipSigma,
		}, backend)
		out, err := s.Stack(reference, frames, offsets)
		if errors.Is(err, multipoint.ErrNoAPs) {
			return stack.Mean{}.Stack(shiftFrames(backend, frames, offsets))
		}
		return out, err
	case config.StackDrizzle:
		return stack.Drizzle{
			Scale:           cfg.DrizzleScale,
			Pixfrac:         cfg.DrizzlePixfrac,
			Offsets:         offsets,
			QualityWeighted: cfg.DrizzleQuality,
		}.Stack(frames)
	case config.StackMedian:
		return stack.Median{}.Stack(shiftFrames(backend, frames, offsets))
	case config.StackSigmaClip:
		return stack.SigmaClip{Sigma: cfg.SigmaClipSigma, Iterations: cfg.SigmaClipIterations}.Stack(shiftFrames(backend, frames, offsets))
	default:
		return stack.Mean{}.Stack(shiftFrames(backend, frames, offsets))
	}
}

func localMethod(cfg config.Config) multipoint.LocalMethod {
	switch cfg.LocalStackMethod {
	case 1:
		return multipoint.LocalMedian
	case 2:
		return multipoint.LocalSigmaClip
	default:
		return multipoint.LocalMean
	}
}

// shiftFrames resamples each frame by its negated global offset so that it
// lines up with the reference frame, for the strategies (Mean, Median,
// SigmaClip) that expect pre-aligned input.
func shiftFrames(backend compute.Backend, frames []*frame.Frame, offsets []frame.AlignmentOffset) []*frame.Frame {
	out := make([]*frame.Frame, len(frames))
	for i, f := range frames {
		off := offsets[i]
		if off.Dx == 0 && off.Dy == 0 {
			out[i] = f
			continue
		}
		buf := backend.Upload(f.H, f.W, f.Pix)
		shifted := backend.BilinearShift(buf, -off.Dx, -off.Dy)
		nf := frame.New(f.H, f.W)
		copy(nf.Pix, backend.Download(shifted))
		nf.Index, nf.TimestampUs, nf.HasTimestamp, nf.BitDepth, nf.Quality = f.Index, f.TimestampUs, f.HasTimestamp, f.BitDepth, f.Quality
		out[i] = nf
	}
	return out
}

// runSharpen applies the optional deconvolution stage, then the à trous
// wavelet sharpener, per spec.md §4.5.
func runSharpen(backend compute.Backend, cfg config.Config, input *frame.Frame) *frame.Frame {
	deconvolved := input
	if cfg.Deconvolution != config.DeconvNone {
		kernel := psf.Generate(psfModel(cfg), cfg.PSFSigma, cfg.PSFRadius)
		switch cfg.Deconvolution {
		case config.DeconvRichardsonLucy:
			deconvolved = sharpen.RichardsonLucy(backend, input, kernel, cfg.RLIterations)
		case config.DeconvWiener:
			deconvolved = sharpen.Wiener(backend, input, kernel, cfg.WienerNoiseRatio)
		}
	}

	if cfg.WaveletLayers == 0 {
		return deconvolved
	}
	layers := wavelet.Decompose(backend, deconvolved, cfg.WaveletLayers)
	return wavelet.Reconstruct(backend, layers, cfg.WaveletCoeffs, cfg.WaveletThresholds)
}

func psfModel(cfg config.Config) psf.Model {
	switch cfg.PSFModel {
	case config.PSFKolmogorov:
		return psf.Kolmogorov
	case config.PSFAiry:
		return psf.Airy
	default:
		return psf.Gaussian
	}
}

func cancelledErr() error {
	return frame.Errorf(frame.Cancelled, "pipeline", "cancelled")
}
