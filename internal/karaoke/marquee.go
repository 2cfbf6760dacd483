package karaoke

import (
	"math"

	"github.com/inagotable26/kara/internal/lyrics"
)

// MarqueeFallbackSeconds is used for the last line when the track duration
// is still unknown.
const MarqueeFallbackSeconds = 5.0

// MarqueeDuration returns how long the single-line scroll animation for the
// active line should run, in seconds: the gap to the next line, or the
// remaining track time for the last line. Never negative; 0 means no
// animation.
func MarqueeDuration(lines []lyrics.Line, idx int, audioDuration float64) float64 {
	if idx < 0 || idx >= len(lines) {
		return 0
	}

	var d float64
	switch {
	case idx+1 < len(lines):
		d = lines[idx+1].Start - lines[idx].Start
	case audioDuration > 0 && !math.IsInf(audioDuration, 0) && !math.IsNaN(audioDuration):
		d = audioDuration - lines[idx].Start
	default:
		return MarqueeFallbackSeconds
	}

	if d < 0 {
		return 0
	}
	return d
}
