//go:build !withgpu
// +build !withgpu

/*
NAME
  backend_nogpu.go

DESCRIPTION
  backend_nogpu.go is the default build: without the withgpu tag, requesting
  the GPU backend always reports BackendUnavailable, letting the driver's
  GPU-fallback policy (spec.md §7) take over.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package pipeline

import (
	"github.com/ausocean/lucky/compute"
	"github.com/ausocean/lucky/frame"
)

func newGPUBackend() (compute.Backend, error) {
	return nil, &frame.Error{Kind: frame.BackendUnavailable, Stage: "backend", Msg: "built without withgpu tag"}
}
