package lyrics

import (
	"math"
	"testing"
)

// --- Timestamped parsing ---

func TestParseRoundTrip(t *testing.T) {
	lines := Parse("[00:15.32] A\n[00:17.81] B", 0)
	if len(lines) != 2 {
		t.Fatalf("Parse returned %d lines, want 2", len(lines))
	}
	if lines[0].Text != "A" || lines[0].Start != 15.32 {
		t.Errorf("lines[0] = %+v, want {A 15.32}", lines[0])
	}
	if lines[1].Text != "B" || lines[1].Start != 17.81 {
		t.Errorf("lines[1] = %+v, want {B 17.81}", lines[1])
	}
}

func TestParseThreeDigitFraction(t *testing.T) {
	lines := Parse("[01:02.345]x", 0)
	if len(lines) != 1 {
		t.Fatalf("Parse returned %d lines, want 1", len(lines))
	}
	want := 62.345
	if math.Abs(lines[0].Start-want) > 1e-9 {
		t.Errorf("Start = %v, want %v", lines[0].Start, want)
	}
}

func TestParseColonFractionSeparator(t *testing.T) {
	lines := Parse("[00:05:500]half past five", 0)
	if len(lines) != 1 {
		t.Fatalf("Parse returned %d lines, want 1", len(lines))
	}
	if math.Abs(lines[0].Start-5.5) > 1e-9 {
		t.Errorf("Start = %v, want 5.5", lines[0].Start)
	}
	if lines[0].Text != "half past five" {
		t.Errorf("Text = %q, want stripped text", lines[0].Text)
	}
}

func TestParseSortsByStart(t *testing.T) {
	lines := Parse("[00:30.00]late\n[00:10.00]early\n[00:20.00]middle", 0)
	if len(lines) != 3 {
		t.Fatalf("Parse returned %d lines, want 3", len(lines))
	}
	for i := 1; i < len(lines); i++ {
		if lines[i].Start < lines[i-1].Start {
			t.Errorf("lines not sorted: Start[%d]=%v < Start[%d]=%v", i, lines[i].Start, i-1, lines[i-1].Start)
		}
	}
	if lines[0].Text != "early" || lines[2].Text != "late" {
		t.Errorf("sorted order wrong: %v", lines)
	}
}

func TestParseMultipleCuesPerLine(t *testing.T) {
	// One line, two cues: both entries share the stripped text.
	lines := Parse("[00:10.00][00:40.00]la la la", 0)
	if len(lines) != 2 {
		t.Fatalf("Parse returned %d lines, want 2", len(lines))
	}
	if lines[0].Text != "la la la" || lines[1].Text != "la la la" {
		t.Errorf("cues should share text, got %q / %q", lines[0].Text, lines[1].Text)
	}
	if lines[0].Start != 10 || lines[1].Start != 40 {
		t.Errorf("starts = %v / %v, want 10 / 40", lines[0].Start, lines[1].Start)
	}
}

func TestParseCueOnlyLineKeepsEmptyText(t *testing.T) {
	lines := Parse("[00:05.00]", 0)
	if len(lines) != 1 {
		t.Fatalf("Parse returned %d lines, want 1", len(lines))
	}
	if lines[0].Text != "" {
		t.Errorf("Text = %q, want empty", lines[0].Text)
	}
}

func TestParseTimestampedDropsPlainLines(t *testing.T) {
	// Once one cue exists, untimed lines do not contribute entries.
	lines := Parse("just a header\n[00:12.00]first real line", 0)
	if len(lines) != 1 {
		t.Fatalf("Parse returned %d lines, want 1", len(lines))
	}
	if lines[0].Text != "first real line" {
		t.Errorf("Text = %q", lines[0].Text)
	}
}

// --- Even-division fallback ---

func TestParseEvenDivision(t *testing.T) {
	lines := Parse("one\ntwo", 10)
	if len(lines) != 2 {
		t.Fatalf("Parse returned %d lines, want 2", len(lines))
	}
	if lines[0].Start != 0 || lines[1].Start != 5 {
		t.Errorf("starts = %v / %v, want 0 / 5", lines[0].Start, lines[1].Start)
	}
}

func TestParseEvenDivisionExact(t *testing.T) {
	raw := "a\nb\nc\nd"
	lines := Parse(raw, 120)
	for i, l := range lines {
		want := float64(i) * 120 / 4
		if l.Start != want {
			t.Errorf("line %d Start = %v, want %v", i, l.Start, want)
		}
	}
}

func TestParseUnknownDurationPlaceholders(t *testing.T) {
	for _, dur := range []float64{0, -1, math.Inf(1), math.NaN()} {
		lines := Parse("one\ntwo\nthree", dur)
		if len(lines) != 3 {
			t.Fatalf("duration %v: got %d lines, want 3", dur, len(lines))
		}
		for i, l := range lines {
			if l.Start != 0 {
				t.Errorf("duration %v: line %d Start = %v, want 0 placeholder", dur, i, l.Start)
			}
		}
	}
}

func TestParseSkipsBlankLines(t *testing.T) {
	lines := Parse("one\n\n   \ntwo", 10)
	if len(lines) != 2 {
		t.Fatalf("Parse returned %d lines, want 2", len(lines))
	}
}

func TestParseEmptyInput(t *testing.T) {
	if got := Parse("", 30); got != nil {
		t.Errorf("Parse(\"\") = %v, want nil", got)
	}
	if got := Parse("\n  \n", 30); got != nil {
		t.Errorf("Parse(blank) = %v, want nil", got)
	}
}

// --- Malformed cues ---

func TestParseMalformedCueFallsBack(t *testing.T) {
	// Wrong digit counts: not a cue, whole input uses even division.
	lines := Parse("[1:2.3]text", 8)
	if len(lines) != 1 {
		t.Fatalf("Parse returned %d lines, want 1", len(lines))
	}
	if lines[0].Start != 0 {
		t.Errorf("Start = %v, want 0 (even division of single line)", lines[0].Start)
	}
}

func TestHasTimestamps(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"[00:15.32] A", true},
		{"[00:15:320] A", true},
		{"[1:2.3]text", false},
		{"plain text", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := HasTimestamps(tt.raw); got != tt.want {
			t.Errorf("HasTimestamps(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

// --- MostlyTimestamped ---

func TestMostlyTimestamped(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"all timed", "[00:01.00]a\n[00:02.00]b", true},
		{"two of three", "[00:01.00]a\n[00:02.00]b\nheader", true},
		{"exactly half", "[00:01.00]a\nheader", false},
		{"minority", "[00:01.00]a\nx\ny", false},
		{"malformed only", "[1:2.3]text", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		if got := MostlyTimestamped(tt.raw); got != tt.want {
			t.Errorf("%s: MostlyTimestamped = %v, want %v", tt.name, got, tt.want)
		}
	}
}
