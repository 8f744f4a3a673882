/*
DESCRIPTION
  lucky-stack is a command-line front end for the lucky-imaging pipeline: it
  reads a SER capture, runs the read/score/align/stack/sharpen pipeline and
  writes the result as a 16-bit PNG.

AUTHORS
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Command lucky-stack runs the lucky-imaging pipeline over a SER capture
// from the command line.
package main

import (
	"context"
	"flag"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"os/signal"

	"github.com/ausocean/utils/logging"
	"golang.org/x/image/draw"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/lucky/frame"
	"github.com/ausocean/lucky/pipeline"
	"github.com/ausocean/lucky/pipeline/config"
)

// Logging configuration, matching the teacher's netsender commands.
const (
	logPath      = "lucky-stack.log"
	logMaxSize   = 100 // MB
	logMaxBackup = 5
	logMaxAge    = 28 // days
	logVerbosity = logging.Info
	logSuppress  = true
)

func main() {
	in := flag.String("in", "", "path to the input SER capture")
	out := flag.String("out", "out.png", "path to write the stacked, sharpened 16-bit PNG")
	device := flag.String("device", "auto", "compute device: auto, cpu, gpu")
	stackMethod := flag.String("stack", "mean", "stacking method: mean, median, sigmaclip, multipoint, drizzle")
	alignMethod := flag.String("align", "phase", "alignment method: phase, upsampled, centroid, gradient, pyramid")
	selectPct := flag.Float64("select", 0.5, "fraction of frames kept after quality ranking")
	deconv := flag.String("deconv", "none", "deconvolution: none, rl, wiener")
	previewPath := flag.String("preview", "", "optional path to write an 8-bit JPEG preview, downscaled to -preview-width")
	previewWidth := flag.Int("preview-width", 1024, "preview width in pixels; height follows the source aspect ratio")
	flag.Parse()

	if *in == "" {
		flag.Usage()
		os.Exit(2)
	}

	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	log := logging.New(logVerbosity, io.MultiWriter(fileLog, os.Stderr), logSuppress)

	cfg := config.Default(log)
	cfg.Device = parseDevice(*device)
	cfg.StackMethod = parseStackMethod(*stackMethod)
	cfg.AlignMethod = parseAlignMethod(*alignMethod)
	cfg.SelectPercentage = *selectPct
	cfg.Deconvolution = parseDeconv(*deconv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	tok := &pipeline.CancelToken{}
	go func() {
		<-ctx.Done()
		tok.Cancel()
	}()

	result, err := pipeline.Run(ctx, *in, cfg, stageLogger{log}, tok)
	if err != nil {
		log.Fatal("pipeline run failed", "error", err)
	}
	log.Info("pipeline finished",
		"frames_read", result.FramesRead,
		"frames_selected", result.FramesSelected,
		"frames_aligned", result.FramesAligned,
		"frames_dropped", result.FramesDropped,
		"backend", result.BackendUsed)

	if err := writePNG16(*out, result.Frame); err != nil {
		log.Fatal("writing output", "error", err)
	}

	if *previewPath != "" {
		if err := writePreviewJPEG(*previewPath, result.Frame, *previewWidth); err != nil {
			log.Fatal("writing preview", "error", err)
		}
	}
}

// stageLogger adapts logging.Logger to pipeline.Progress for a plain,
// line-oriented report of stage transitions.
type stageLogger struct{ log logging.Logger }

func (s stageLogger) StageStarted(name string)  { s.log.Debug("stage started", "stage", name) }
func (s stageLogger) StageFinished(name string) { s.log.Debug("stage finished", "stage", name) }
func (s stageLogger) Progress(stage string, fraction float64) {
	s.log.Debug("stage progress", "stage", stage, "fraction", fraction)
}

func parseDevice(s string) uint8 {
	switch s {
	case "cpu":
		return config.DeviceCPU
	case "gpu":
		return config.DeviceGPU
	default:
		return config.DeviceAuto
	}
}

func parseStackMethod(s string) uint8 {
	switch s {
	case "median":
		return config.StackMedian
	case "sigmaclip":
		return config.StackSigmaClip
	case "multipoint":
		return config.StackMultiPoint
	case "drizzle":
		return config.StackDrizzle
	default:
		return config.StackMean
	}
}

func parseAlignMethod(s string) uint8 {
	switch s {
	case "upsampled":
		return config.AlignUpsampledPhaseCorrelation
	case "centroid":
		return config.AlignCentroid
	case "gradient":
		return config.AlignGradientCorrelation
	case "pyramid":
		return config.AlignPyramid
	default:
		return config.AlignPhaseCorrelation
	}
}

func parseDeconv(s string) uint8 {
	switch s {
	case "rl":
		return config.DeconvRichardsonLucy
	case "wiener":
		return config.DeconvWiener
	default:
		return config.DeconvNone
	}
}

// writePNG16 encodes fr as a 16-bit grayscale PNG, scaling its [0, 1] pixel
// range to the full uint16 range. Encoding format is a caller concern per
// spec.md §6.2; PNG is provided here as the CLI's default output.
func writePNG16(path string, fr *frame.Frame) error {
	img := image.NewGray16(image.Rect(0, 0, fr.W, fr.H))
	for r := 0; r < fr.H; r++ {
		for c := 0; c < fr.W; c++ {
			v := fr.At(r, c)
			img.SetGray16(c, r, color.Gray16{Y: uint16(v * 65535)})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

// writePreviewJPEG downscales fr to an 8-bit JPEG of the given width,
// preserving aspect ratio, for quick visual review without opening the
// full-resolution 16-bit output. Downscaling uses draw.CatmullRom, the
// same high-quality resampler the x/image/draw package recommends for
// photographic shrinking.
func writePreviewJPEG(path string, fr *frame.Frame, width int) error {
	if width <= 0 || width >= fr.W {
		width = fr.W
	}
	height := int(float64(fr.H) * float64(width) / float64(fr.W))
	if height < 1 {
		height = 1
	}

	src := image.NewGray(image.Rect(0, 0, fr.W, fr.H))
	for r := 0; r < fr.H; r++ {
		for c := 0; c < fr.W; c++ {
			src.SetGray(c, r, color.Gray{Y: uint8(fr.At(r, c) * 255)})
		}
	}

	dst := image.NewGray(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return jpeg.Encode(f, dst, &jpeg.Options{Quality: 90})
}
