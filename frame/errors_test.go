/*
NAME
  errors_test.go

DESCRIPTION
  errors_test.go tests the Error taxonomy's construction, wrapping and
  Is matching.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package frame

import (
	"errors"
	"testing"
)

func TestErrorfAndIs(t *testing.T) {
	err := Errorf(InvalidConfig, "config", "bad field %s", "foo")
	if !Is(err, InvalidConfig) {
		t.Errorf("Is(InvalidConfig) = false, want true")
	}
	if Is(err, Io) {
		t.Errorf("Is(Io) = true, want false")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk exploded")
	err := Wrap(Io, "ser", cause, "reading header")
	if !errors.Is(err, cause) {
		t.Errorf("Wrap did not preserve the cause for errors.Is")
	}
	if !Is(err, Io) {
		t.Errorf("Is(Io) = false on wrapped error")
	}
}

func TestIsThroughFmtWrap(t *testing.T) {
	inner := Errorf(AlignmentFailed, "align", "confidence too low")
	outer := errors.New("context: " + inner.Error())
	if Is(outer, AlignmentFailed) {
		t.Errorf("Is should not match a plain string-wrapped error")
	}
}

func TestKindStringUnknown(t *testing.T) {
	var k Kind = 99
	if k.String() != "unknown" {
		t.Errorf("Kind(99).String() = %q, want %q", k.String(), "unknown")
	}
}
