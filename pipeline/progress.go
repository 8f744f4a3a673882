/*
NAME
  progress.go

DESCRIPTION
  progress.go defines the progress reporter and cancellation token the
  driver threads through every stage, matching spec.md §6.3's collaborator
  interfaces: the driver reports stage starts and finishes at stage
  boundaries and fractional progress between frames, never from within a
  kernel, and polls the cancellation token at stage and frame boundaries.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package pipeline

import "sync/atomic"

// Progress is implemented by callers that want stage-level feedback. A nil
// Progress is valid; Run substitutes a no-op implementation.
type Progress interface {
	// StageStarted is called once, synchronously, before a stage begins.
	StageStarted(name string)
	// Progress reports fractional completion of the current stage in
	// [0, 1]. The driver calls it between frames, not between pixels.
	Progress(stage string, fraction float64)
	// StageFinished is called once, synchronously, after a stage commits.
	StageFinished(name string)
}

type noopProgress struct{}

func (noopProgress) StageStarted(string)      {}
func (noopProgress) Progress(string, float64) {}
func (noopProgress) StageFinished(string)     {}

// CancelToken is a thread-safe cooperative-cancellation flag. The zero value
// is a valid, not-yet-cancelled token.
type CancelToken struct {
	flag int32
}

// Cancel marks the token cancelled. Cancel is idempotent and safe to call
// from any goroutine.
func (t *CancelToken) Cancel() { atomic.StoreInt32(&t.flag, 1) }

// Cancelled reports whether Cancel has been called.
func (t *CancelToken) Cancelled() bool { return atomic.LoadInt32(&t.flag) != 0 }

// checkCancelled returns a frame.Cancelled error if tok has been cancelled,
// nil otherwise. A nil tok is never cancelled.
func checkCancelled(tok *CancelToken) error {
	if tok != nil && tok.Cancelled() {
		return cancelledErr()
	}
	return nil
}
