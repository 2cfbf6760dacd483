package karaoke

import "github.com/inagotable26/kara/internal/lyrics"

// ActiveLine returns the index of the line that should be highlighted at
// clock position pos: the greatest i with lines[i].Start+offset <= pos, or
// -1 when no line has started yet. lines must be ordered by ascending Start.
//
// The bound is inclusive, so a line becomes active exactly at its
// offset-adjusted start, and lines sharing a start time resolve to the
// highest index among them. The backward scan makes both properties fall
// out of the first match.
func ActiveLine(lines []lyrics.Line, pos, offset float64) int {
	for i := len(lines) - 1; i >= 0; i-- {
		if lines[i].Start+offset <= pos {
			return i
		}
	}
	return -1
}
