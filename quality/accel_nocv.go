//go:build !withcv
// +build !withcv

/*
NAME
  accel_nocv.go

DESCRIPTION
  accel_nocv.go is the default build: without the withcv tag, Score always
  uses the pure-Go implementations in quality.go.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package quality

import "github.com/ausocean/lucky/frame"

// accelScore reports ok=false in the default build, so Score always falls
// through to the pure-Go path.
func accelScore(fr *frame.Frame, m Metric) (frame.QualityScore, bool) {
	return frame.QualityScore{}, false
}
