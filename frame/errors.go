/*
NAME
  errors.go

DESCRIPTION
  errors.go implements the lucky-imaging error taxonomy used by every stage
  of the pipeline.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package frame

import "fmt"

// Kind classifies an Error into the taxonomy every stage reports against.
type Kind int

const (
	// Unknown is the zero value and should not appear in a returned Error.
	Unknown Kind = iota

	// Io indicates file access failed.
	Io
	// InvalidHeader indicates the container magic or fields were inconsistent.
	InvalidHeader
	// UnsupportedFormat indicates a color id, bit depth, or frame size is not supported.
	UnsupportedFormat
	// InvalidConfig indicates a parameter was out of range.
	InvalidConfig
	// AlignmentFailed indicates correlation confidence fell below threshold.
	AlignmentFailed
	// BackendUnavailable indicates a GPU was requested but no adapter was found.
	BackendUnavailable
	// Cancelled indicates cooperative cancellation.
	Cancelled
	// Numerical indicates a kernel observed non-finite input it could not recover from.
	Numerical
)

func (k Kind) String() string {
	switch k {
	case Io:
		return "io"
	case InvalidHeader:
		return "invalid_header"
	case UnsupportedFormat:
		return "unsupported_format"
	case InvalidConfig:
		return "invalid_config"
	case AlignmentFailed:
		return "alignment_failed"
	case BackendUnavailable:
		return "backend_unavailable"
	case Cancelled:
		return "cancelled"
	case Numerical:
		return "numerical"
	default:
		return "unknown"
	}
}

// Error is the error type returned by every stage in the pipeline. Stage is
// the name of the stage that produced it, for driver diagnostics.
type Error struct {
	Kind  Kind
	Stage string
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Stage != "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s: %s: %v", e.Stage, e.Kind, e.Msg, e.Cause)
		}
		return fmt.Sprintf("%s: %s: %s", e.Stage, e.Kind, e.Msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// Errorf constructs an Error of the given kind and stage.
func Errorf(kind Kind, stage, format string, args ...any) *Error {
	return &Error{Kind: kind, Stage: stage, Msg: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of the given kind and stage around a cause.
func Wrap(kind Kind, stage string, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Stage: stage, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// Is allows errors.Is(err, frame.AlignmentFailed) style matching against a
// Kind by comparing the Kind field of any wrapped *Error.
func Is(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Kind == kind {
				return true
			}
			err = e.Cause
			continue
		}
		type unwrapper interface{ Unwrap() error }
		u, ok := err.(unwrapper)
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
