/*
NAME
  config.go

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package config contains the configuration settings for the lucky-imaging
// pipeline driver.
package config

import (
	"fmt"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/lucky/frame"
)

// Enums to define device preference, memory mode, quality metric, alignment
// method, stacking method and PSF model. Zero value of each is its "Auto" or
// default member, matching the teacher's NothingDefined convention.
const (
	// Device preference.
	DeviceAuto uint8 = iota
	DeviceCPU
	DeviceGPU
)

const (
	// Memory mode.
	MemoryAuto uint8 = iota
	MemoryEager
	MemoryStreaming
)

const (
	// Quality metric.
	MetricLaplacianVariance uint8 = iota
	MetricSobelMagnitude
)

const (
	// Alignment method.
	AlignPhaseCorrelation uint8 = iota
	AlignUpsampledPhaseCorrelation
	AlignCentroid
	AlignGradientCorrelation
	AlignPyramid
)

const (
	// Stacking method.
	StackMean uint8 = iota
	StackMedian
	StackSigmaClip
	StackMultiPoint
	StackDrizzle
)

const (
	// PSF model.
	PSFGaussian uint8 = iota
	PSFKolmogorov
	PSFAiry
)

const (
	// Deconvolution filter.
	DeconvNone uint8 = iota
	DeconvRichardsonLucy
	DeconvWiener
)

// Config enumerates every parameter the pipeline driver and its stages
// accept. Fields group by the stage they configure; see the per-field
// comments for units and defaults.
type Config struct {
	// Logger must be set for the pipeline to report progress and errors.
	Logger logging.Logger

	// Device selects the compute backend: DeviceAuto tries GPU then falls
	// back to CPU, DeviceCPU and DeviceGPU are explicit.
	Device uint8
	// AllowGPUFallback permits falling back to CPU when DeviceGPU is
	// requested explicitly but no adapter is found.
	AllowGPUFallback bool

	// Memory selects the reader's eager/streaming mode.
	Memory uint8
	// EagerThresholdBytes overrides ser.EagerThresholdBytes for MemoryAuto.
	EagerThresholdBytes int64

	// SelectPercentage is the fraction (0, 1] of frames kept after ranking.
	SelectPercentage float64
	// QualityMetric selects Laplacian variance or Sobel magnitude scoring.
	QualityMetric uint8

	// AlignMethod selects the global alignment algorithm.
	AlignMethod uint8
	// AlignConfidenceThreshold is the peak/mean ratio below which an offset
	// is flagged low-confidence.
	AlignConfidenceThreshold float64
	// UpsampleFactor is used by AlignUpsampledPhaseCorrelation.
	UpsampleFactor int
	// PyramidLevels is used by AlignPyramid.
	PyramidLevels int

	// StackMethod selects the stacking strategy.
	StackMethod uint8
	// SigmaClipSigma and SigmaClipIterations configure StackSigmaClip.
	SigmaClipSigma      float64
	SigmaClipIterations int

	// Multi-point stacking parameters.
	ApSize              int
	MinBrightness       float64
	MinContrast         float64
	ApSelectPercentage  float64
	SearchRadius        int
	LocalConfidenceMin  float64
	QualityWeightAlpha  float64
	QualityWeighted     bool
	LocalStackMethod    uint8 // mean, median or sigma-clip within an AP; see DESIGN.md open-question policy.

	// Drizzle parameters.
	DrizzleScale     float64
	DrizzlePixfrac   float64
	DrizzleQuality   bool

	// Sharpening: deconvolution stage.
	Deconvolution       uint8
	PSFModel            uint8
	PSFSigma            float64 // Gaussian sigma / Kolmogorov seeing, in pixels.
	PSFRadius           float64 // Airy first-dark-ring radius, in pixels.
	RLIterations        int
	WienerNoiseRatio    float64

	// Sharpening: wavelet stage.
	WaveletLayers     int
	WaveletCoeffs     []float64
	WaveletThresholds []float64

	// DroppedFrameFraction is the fraction of frames a stage may silently
	// drop (bad alignment, missing timestamps) before the warning becomes
	// an error.
	DroppedFrameFraction float64
}

// Default returns a Config populated with the documented defaults.
func Default(log logging.Logger) Config {
	return Config{
		Logger:                   log,
		Device:                   DeviceAuto,
		AllowGPUFallback:         true,
		Memory:                   MemoryAuto,
		EagerThresholdBytes:      1 << 30,
		SelectPercentage:         0.5,
		QualityMetric:            MetricLaplacianVariance,
		AlignMethod:              AlignPhaseCorrelation,
		AlignConfidenceThreshold: 4.0,
		UpsampleFactor:           10,
		PyramidLevels:            3,
		StackMethod:              StackMean,
		SigmaClipSigma:           2.5,
		SigmaClipIterations:      3,
		ApSize:                   64,
		MinBrightness:            0.05,
		MinContrast:              0.01,
		ApSelectPercentage:       0.5,
		SearchRadius:             8,
		LocalConfidenceMin:       2.0,
		QualityWeightAlpha:       1.0,
		DrizzleScale:             1.5,
		DrizzlePixfrac:           0.8,
		Deconvolution:            DeconvNone,
		PSFModel:                 PSFGaussian,
		PSFSigma:                 1.5,
		PSFRadius:                3.0,
		RLIterations:             30,
		WienerNoiseRatio:         0.01,
		WaveletLayers:            6,
		WaveletCoeffs:            []float64{1.5, 1.3, 1.2, 1.1, 1.0, 1.0},
		WaveletThresholds:        []float64{0, 0, 0, 0, 0, 0},
		DroppedFrameFraction:     0.1,
	}
}

// LogInvalidField logs that a field held an invalid value and was defaulted,
// matching revid/config.Config's validation idiom used throughout the
// filter package.
func (c Config) LogInvalidField(field string, defaultVal interface{}) {
	if c.Logger == nil {
		return
	}
	c.Logger.Warning("invalid config field defaulted", "field", field, "default", defaultVal)
}

// Validate checks every field for internal consistency, returning an
// InvalidConfig error describing the first problem found.
func (c Config) Validate() error {
	if c.SelectPercentage <= 0 || c.SelectPercentage > 1 {
		return invalid("SelectPercentage must be in (0, 1], got %v", c.SelectPercentage)
	}
	if c.StackMethod == StackMultiPoint {
		if c.ApSize <= 0 {
			return invalid("ApSize must be positive, got %v", c.ApSize)
		}
		if c.ApSelectPercentage <= 0 || c.ApSelectPercentage > 1 {
			return invalid("ApSelectPercentage must be in (0, 1], got %v", c.ApSelectPercentage)
		}
		if c.SearchRadius < 0 {
			return invalid("SearchRadius must be non-negative, got %v", c.SearchRadius)
		}
	}
	if c.StackMethod == StackSigmaClip {
		if c.SigmaClipSigma <= 0 {
			return invalid("SigmaClipSigma must be positive, got %v", c.SigmaClipSigma)
		}
		if c.SigmaClipIterations <= 0 {
			return invalid("SigmaClipIterations must be positive, got %v", c.SigmaClipIterations)
		}
	}
	if c.StackMethod == StackDrizzle {
		if c.DrizzleScale < 1 {
			return invalid("DrizzleScale must be >= 1, got %v", c.DrizzleScale)
		}
		if c.DrizzlePixfrac <= 0 || c.DrizzlePixfrac > 1 {
			return invalid("DrizzlePixfrac must be in (0, 1], got %v", c.DrizzlePixfrac)
		}
	}
	if c.WaveletLayers < 0 {
		return invalid("WaveletLayers must be non-negative, got %v", c.WaveletLayers)
	}
	if c.WaveletLayers > 0 {
		if len(c.WaveletCoeffs) != c.WaveletLayers {
			return invalid("WaveletCoeffs length %d != WaveletLayers %d", len(c.WaveletCoeffs), c.WaveletLayers)
		}
		if len(c.WaveletThresholds) != 0 && len(c.WaveletThresholds) != c.WaveletLayers {
			return invalid("WaveletThresholds length %d != WaveletLayers %d", len(c.WaveletThresholds), c.WaveletLayers)
		}
	}
	if c.Deconvolution == DeconvRichardsonLucy && c.RLIterations <= 0 {
		return invalid("RLIterations must be positive, got %v", c.RLIterations)
	}
	if c.DroppedFrameFraction < 0 || c.DroppedFrameFraction > 1 {
		return invalid("DroppedFrameFraction must be in [0, 1], got %v", c.DroppedFrameFraction)
	}
	return nil
}

func invalid(format string, args ...interface{}) error {
	return &frame.Error{Kind: frame.InvalidConfig, Stage: "config", Msg: fmt.Sprintf(format, args...)}
}
