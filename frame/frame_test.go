/*
NAME
  frame_test.go

DESCRIPTION
  frame_test.go tests Frame's pixel access, Clamp, Clone and BilinearAt, and
  QualityScore's NaN-last total order.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package frame

import (
	"math"
	"sort"
	"testing"
)

func TestAtOutOfBounds(t *testing.T) {
	f := New(2, 2)
	f.Set(0, 0, 1)
	cases := []struct{ r, c int }{{-1, 0}, {0, -1}, {2, 0}, {0, 2}}
	for _, tc := range cases {
		if got := f.At(tc.r, tc.c); got != 0 {
			t.Errorf("At(%d, %d) = %v, want 0", tc.r, tc.c, got)
		}
	}
}

func TestSetOutOfBoundsIgnored(t *testing.T) {
	f := New(2, 2)
	f.Set(5, 5, 1) // Must not panic or grow Pix.
	if len(f.Pix) != 4 {
		t.Fatalf("Pix length changed: %d", len(f.Pix))
	}
}

func TestClone(t *testing.T) {
	f := New(2, 2)
	f.Set(0, 0, 0.5)
	cp := f.Clone()
	cp.Set(0, 0, 0.9)
	if f.At(0, 0) != 0.5 {
		t.Errorf("Clone aliased the original Pix slice")
	}
}

func TestClamp(t *testing.T) {
	f := &Frame{Pix: []float32{-1, 0.5, 2, float32(math.NaN())}, H: 1, W: 4}
	f.Clamp()
	if f.Pix[0] != 0 {
		t.Errorf("Clamp did not floor negative value: got %v", f.Pix[0])
	}
	if f.Pix[1] != 0.5 {
		t.Errorf("Clamp altered in-range value: got %v", f.Pix[1])
	}
	if f.Pix[2] != 1 {
		t.Errorf("Clamp did not cap value above 1: got %v", f.Pix[2])
	}
	if !math.IsNaN(float64(f.Pix[3])) {
		t.Errorf("Clamp should leave NaN untouched, got %v", f.Pix[3])
	}
}

func TestBilinearAtExactPixel(t *testing.T) {
	f := New(2, 2)
	f.Set(0, 0, 0)
	f.Set(0, 1, 1)
	f.Set(1, 0, 1)
	f.Set(1, 1, 0)
	if got := f.BilinearAt(0, 1); got != 1 {
		t.Errorf("BilinearAt at an exact sample = %v, want 1", got)
	}
}

func TestBilinearAtMidpoint(t *testing.T) {
	f := New(2, 2)
	f.Set(0, 0, 0)
	f.Set(0, 1, 1)
	f.Set(1, 0, 0)
	f.Set(1, 1, 1)
	got := f.BilinearAt(0, 0.5)
	if math.Abs(float64(got)-0.5) > 1e-6 {
		t.Errorf("BilinearAt midpoint = %v, want 0.5", got)
	}
}

func TestBilinearAtOutOfBoundsIsZero(t *testing.T) {
	f := New(2, 2)
	for i := range f.Pix {
		f.Pix[i] = 1
	}
	if got := f.BilinearAt(-1, -1); got != 0 {
		t.Errorf("BilinearAt far out of bounds = %v, want 0", got)
	}
}

func TestQualityScoreLessNaNLast(t *testing.T) {
	scores := []QualityScore{
		{Composite: math.NaN(), Valid: false},
		{Composite: 1, Valid: true},
		{Composite: 3, Valid: true},
		{Composite: math.NaN(), Valid: false},
		{Composite: 2, Valid: true},
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Less(scores[j]) })
	for i := 0; i < 3; i++ {
		if math.IsNaN(scores[i].Composite) {
			t.Fatalf("NaN sorted before a real value at index %d", i)
		}
	}
	for i := 3; i < len(scores); i++ {
		if !math.IsNaN(scores[i].Composite) {
			t.Fatalf("real value sorted after NaN at index %d", i)
		}
	}
	if scores[0].Composite != 1 || scores[1].Composite != 2 || scores[2].Composite != 3 {
		t.Errorf("ascending order not preserved among real values: %v", scores)
	}
}

func TestQualityScoreLessNeverPanicsOnTies(t *testing.T) {
	a := QualityScore{Composite: 5, Valid: true}
	b := QualityScore{Composite: 5, Valid: true}
	if a.Less(b) || b.Less(a) {
		t.Errorf("equal scores must report neither as Less")
	}
}
