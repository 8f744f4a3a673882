//go:build withgpu
// +build withgpu

/*
NAME
  adapter.go

DESCRIPTION
  adapter.go performs one-time adapter selection for the GPU backend.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package gpu

import "errors"

// selectAdapter chooses a GPU adapter and returns its device handle. Until a
// concrete cross-vendor compute binding is vendored, no adapter is ever
// found; callers (the pipeline driver) treat this as BackendUnavailable and
// apply the configured CPU-fallback policy.
func selectAdapter() (*device, error) {
	return nil, errors.New("no compatible gpu adapter found")
}
