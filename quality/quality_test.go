/*
NAME
  quality_test.go

DESCRIPTION
  quality_test.go tests frame sharpness scoring and selection.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package quality

import (
	"math"
	"testing"

	"github.com/ausocean/lucky/frame"
)

func checkerboard(h, w int) *frame.Frame {
	f := frame.New(h, w)
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			if (r+c)%2 == 0 {
				f.Set(r, c, 1)
			}
		}
	}
	return f
}

func flat(h, w int, v float32) *frame.Frame {
	f := frame.New(h, w)
	for i := range f.Pix {
		f.Pix[i] = v
	}
	return f
}

func TestScoreSharperBeatsFlat(t *testing.T) {
	sharp := Score(checkerboard(8, 8), LaplacianVariance)
	dull := Score(flat(8, 8, 0.5), LaplacianVariance)
	if !sharp.Valid || !dull.Valid {
		t.Fatalf("expected both scores valid, got sharp=%v dull=%v", sharp, dull)
	}
	if !dull.Less(sharp) {
		t.Errorf("checkerboard score %v should exceed flat score %v", sharp, dull)
	}
}

func TestSobelMagnitudeSharperBeatsFlat(t *testing.T) {
	sharp := Score(checkerboard(8, 8), SobelMagnitude)
	dull := Score(flat(8, 8, 0.5), SobelMagnitude)
	if !dull.Less(sharp) {
		t.Errorf("checkerboard Sobel score %v should exceed flat score %v", sharp, dull)
	}
}

func TestScoreEmptyFrame(t *testing.T) {
	s := Score(frame.New(0, 0), SobelMagnitude)
	if s.Valid {
		t.Errorf("expected an empty frame to score as invalid, got %v", s)
	}
	if !math.IsNaN(s.Composite) {
		t.Errorf("expected NaN composite for an empty frame, got %v", s.Composite)
	}
}

func TestRankDescendingWithNaNLast(t *testing.T) {
	scores := []frame.QualityScore{
		{Composite: 1, Valid: true},
		{Composite: math.NaN(), Valid: false},
		{Composite: 3, Valid: true},
		{Composite: 2, Valid: true},
	}
	ranked := Rank(scores)
	if len(ranked) != len(scores) {
		t.Fatalf("Rank returned %d indices, want %d", len(ranked), len(scores))
	}
	if scores[ranked[0]].Composite != 3 || scores[ranked[1]].Composite != 2 || scores[ranked[2]].Composite != 1 {
		t.Errorf("Rank order = %v, want descending 3,2,1,NaN", ranked)
	}
	if !math.IsNaN(scores[ranked[3]].Composite) {
		t.Errorf("NaN score should rank last, got %v", scores[ranked[3]])
	}
}

func TestSelectTopFraction(t *testing.T) {
	scores := make([]frame.QualityScore, 10)
	for i := range scores {
		scores[i] = frame.QualityScore{Composite: float64(i), Valid: true}
	}
	top := SelectTop(scores, 0.3)
	if len(top) != 3 {
		t.Fatalf("SelectTop(0.3) over 10 scores returned %d, want 3 (ceil)", len(top))
	}
	for _, idx := range top {
		if scores[idx].Composite < 7 {
			t.Errorf("SelectTop kept a low-scoring index %d (%v)", idx, scores[idx])
		}
	}
}

func TestSelectTopClampsFraction(t *testing.T) {
	scores := []frame.QualityScore{{Composite: 1, Valid: true}, {Composite: 2, Valid: true}}
	if got := SelectTop(scores, 5); len(got) != len(scores) {
		t.Errorf("SelectTop with fraction > 1 returned %d, want all %d", len(got), len(scores))
	}
	if got := SelectTop(scores, 0); len(got) != 0 {
		t.Errorf("SelectTop with fraction 0 returned %d, want 0", len(got))
	}
}

func TestScoreAllWritesFrameQuality(t *testing.T) {
	frames := []*frame.Frame{checkerboard(4, 4), flat(4, 4, 0.2)}
	scores := ScoreAll(frames, LaplacianVariance)
	for i, f := range frames {
		if f.Quality != scores[i] {
			t.Errorf("frame %d Quality = %v, want %v", i, f.Quality, scores[i])
		}
	}
}
