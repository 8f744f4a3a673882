//go:build withcv
// +build withcv

/*
NAME
  accel_gocv.go

DESCRIPTION
  accel_gocv.go is the optional accelerated scoring path: with the withcv
  tag, Score uses OpenCV's Laplacian and Sobel kernels via gocv instead of
  the pure-Go loops in quality.go, mirroring filter/motion.go's and
  filter/knn.go's gocv.Mat use elsewhere in this tree.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package quality

import (
	"encoding/binary"
	"math"

	"gocv.io/x/gocv"

	"github.com/ausocean/lucky/frame"
)

// accelScore scores fr using gocv, reporting ok=false if the frame is empty
// or the Mat conversion fails, in which case Score falls back to the
// pure-Go path.
func accelScore(fr *frame.Frame, m Metric) (frame.QualityScore, bool) {
	if fr.H == 0 || fr.W == 0 {
		return frame.QualityScore{}, false
	}
	src, err := gocv.NewMatFromBytes(fr.H, fr.W, gocv.MatTypeCV32F, float32Bytes(fr.Pix))
	if err != nil {
		return frame.QualityScore{}, false
	}
	defer src.Close()

	switch m {
	case SobelMagnitude:
		return sobelAccel(src)
	default:
		return laplacianAccel(src)
	}
}

func laplacianAccel(src gocv.Mat) (frame.QualityScore, bool) {
	lap := gocv.NewMat()
	defer lap.Close()
	gocv.Laplacian(src, &lap, gocv.MatTypeCV32F, 1, 1, 0, gocv.BorderDefault)

	mean, stddev := gocv.NewMat(), gocv.NewMat()
	defer mean.Close()
	defer stddev.Close()
	gocv.MeanStdDev(lap, &mean, &stddev)

	sd := stddev.GetDoubleAt(0, 0)
	variance := sd * sd
	if math.IsNaN(variance) {
		return frame.QualityScore{Composite: math.NaN(), Valid: false}, true
	}
	return frame.QualityScore{Composite: variance, Valid: true}, true
}

func sobelAccel(src gocv.Mat) (frame.QualityScore, bool) {
	gx, gy := gocv.NewMat(), gocv.NewMat()
	defer gx.Close()
	defer gy.Close()
	gocv.Sobel(src, &gx, gocv.MatTypeCV32F, 1, 0, 3, 1, 0, gocv.BorderDefault)
	gocv.Sobel(src, &gy, gocv.MatTypeCV32F, 0, 1, 3, 1, 0, gocv.BorderDefault)

	mag := gocv.NewMat()
	defer mag.Close()
	gocv.Magnitude(gx, gy, &mag)

	mean, stddev := gocv.NewMat(), gocv.NewMat()
	defer mean.Close()
	defer stddev.Close()
	gocv.MeanStdDev(mag, &mean, &stddev)

	m := mean.GetDoubleAt(0, 0)
	if math.IsNaN(m) {
		return frame.QualityScore{Composite: math.NaN(), Valid: false}, true
	}
	return frame.QualityScore{Composite: m, Valid: true}, true
}

// float32Bytes packs pix as little-endian CV_32FC1 raw bytes, the layout
// gocv.NewMatFromBytes expects for a single-channel 32-bit float Mat.
func float32Bytes(pix []float32) []byte {
	buf := make([]byte, len(pix)*4)
	for i, v := range pix {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}
