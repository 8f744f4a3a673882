//go:build withgpu
// +build withgpu

/*
NAME
  backend_gpu.go

DESCRIPTION
  backend_gpu.go wires the GPU compute backend into the driver when built
  with the withgpu tag, mirroring the teacher's debug/release and withcv
  split in the filter package.

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
	"github.com/ausocean/lucky/compute/gpu"
)

func newGPUBackend() (compute.Backend, error) {
	return gpu.New()
}
