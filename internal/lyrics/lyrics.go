package lyrics

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Line is a single lyric line with its start time in seconds.
type Line struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
}

// timestampRE matches an LRC-style cue: two-digit minutes, two-digit seconds,
// and a 2-3 digit fraction separated by '.' or ':'. e.g. [01:23.45] [01:23:456]
var timestampRE = regexp.MustCompile(`\[(\d{2}):(\d{2})[.:](\d{2,3})\]`)

// Parse converts raw lyric text into lines ordered by ascending start time.
//
// Lines carrying [MM:SS.ff]-style cues get their embedded times; a line with
// several cues produces one entry per cue, all sharing the stripped text. If
// no cue appears anywhere in the input, timing falls back to dividing the
// track duration evenly across the lines. When the duration is not yet known
// (zero, negative, or non-finite), every line starts at 0 until the caller
// re-parses with a real duration.
//
// Parse never fails: malformed cues are ignored, empty input yields nil.
func Parse(raw string, duration float64) []Line {
	var plain []string
	var timed []Line

	for _, lineStr := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(lineStr)
		if trimmed == "" {
			continue
		}

		matches := timestampRE.FindAllStringSubmatch(trimmed, -1)
		text := strings.TrimSpace(timestampRE.ReplaceAllString(trimmed, ""))
		plain = append(plain, text)

		for _, m := range matches {
			timed = append(timed, Line{Text: text, Start: cueSeconds(m)})
		}
	}

	if len(timed) > 0 {
		sort.SliceStable(timed, func(i, j int) bool {
			return timed[i].Start < timed[j].Start
		})
		return timed
	}

	if len(plain) == 0 {
		return nil
	}

	step := 0.0
	if duration > 0 && !math.IsInf(duration, 0) && !math.IsNaN(duration) {
		step = duration / float64(len(plain))
	}

	lines := make([]Line, len(plain))
	for i, text := range plain {
		lines[i] = Line{Text: text, Start: float64(i) * step}
	}
	return lines
}

// cueSeconds converts a timestamp match to seconds. A 2-digit fraction is
// hundredths, a 3-digit fraction thousandths.
func cueSeconds(m []string) float64 {
	minutes, _ := strconv.Atoi(m[1])
	seconds, _ := strconv.Atoi(m[2])
	frac, _ := strconv.Atoi(m[3])

	div := 100.0
	if len(m[3]) == 3 {
		div = 1000.0
	}
	return float64(minutes)*60 + float64(seconds) + float64(frac)/div
}

// HasTimestamps reports whether any line of raw carries a valid cue.
func HasTimestamps(raw string) bool {
	return timestampRE.MatchString(raw)
}

// MostlyTimestamped reports whether more than half of the non-empty lines in
// raw carry a valid cue. This is the acceptance bar for LLM-generated lyrics.
func MostlyTimestamped(raw string) bool {
	total, matched := 0, 0
	for _, lineStr := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(lineStr)
		if trimmed == "" {
			continue
		}
		total++
		if timestampRE.MatchString(trimmed) {
			matched++
		}
	}
	return total > 0 && matched*2 > total
}
