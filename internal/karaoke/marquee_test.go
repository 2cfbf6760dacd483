package karaoke

import (
	"math"
	"testing"
)

func TestMarqueeGapToNextLine(t *testing.T) {
	lines := seq(0, 5, 8)
	if got := MarqueeDuration(lines, 1, 0); got != 3 {
		t.Errorf("MarqueeDuration(idx=1) = %v, want 3", got)
	}
}

func TestMarqueeLastLineUsesRemainingTrack(t *testing.T) {
	lines := seq(0, 5, 8)
	if got := MarqueeDuration(lines, 2, 12); got != 4 {
		t.Errorf("MarqueeDuration(last, dur=12) = %v, want 4", got)
	}
}

func TestMarqueeLastLineUnknownDuration(t *testing.T) {
	lines := seq(0, 5, 8)
	for _, dur := range []float64{0, -1, math.Inf(1), math.NaN()} {
		if got := MarqueeDuration(lines, 2, dur); got != MarqueeFallbackSeconds {
			t.Errorf("MarqueeDuration(last, dur=%v) = %v, want fallback %v", dur, got, MarqueeFallbackSeconds)
		}
	}
}

func TestMarqueeNoActiveLine(t *testing.T) {
	lines := seq(0, 5)
	if got := MarqueeDuration(lines, -1, 10); got != 0 {
		t.Errorf("MarqueeDuration(idx=-1) = %v, want 0", got)
	}
	if got := MarqueeDuration(nil, 0, 10); got != 0 {
		t.Errorf("MarqueeDuration(empty) = %v, want 0", got)
	}
	if got := MarqueeDuration(lines, 5, 10); got != 0 {
		t.Errorf("MarqueeDuration(out of range) = %v, want 0", got)
	}
}

func TestMarqueeNeverNegative(t *testing.T) {
	// Inverted start data should degrade to "no animation", not a
	// negative duration.
	lines := seq(10, 5)
	if got := MarqueeDuration(lines, 0, 0); got != 0 {
		t.Errorf("MarqueeDuration over inverted starts = %v, want 0", got)
	}
	// Last line past the reported track duration.
	lines = seq(0, 20)
	if got := MarqueeDuration(lines, 1, 12); got != 0 {
		t.Errorf("MarqueeDuration past track end = %v, want 0", got)
	}
}
