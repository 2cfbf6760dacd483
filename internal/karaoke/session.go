package karaoke

import (
	"context"
	"sync"
	"time"

	"github.com/inagotable26/kara/internal/lyrics"
	"github.com/inagotable26/kara/internal/player"
)

// State is the coarse playback-state machine driving the lyric panel's
// fade-in/out in the web UI.
type State int

const (
	StateIdle State = iota
	StatePlaying
	StateEnded
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StateEnded:
		return "ended"
	default:
		return "idle"
	}
}

const (
	// tickInterval paces the active-line recomputation (~30 ticks/s).
	tickInterval = 33 * time.Millisecond

	MinOffset     = -5.0
	MaxOffset     = 5.0
	DefaultOffset = -0.3

	MinRate     = 0.5
	MaxRate     = 2.0
	DefaultRate = 1.0
)

// SyncState is the per-tick view snapshot served to the browser.
type SyncState struct {
	State          string  `json:"state"`
	ActiveIndex    int     `json:"active_index"`
	Revision       uint64  `json:"revision"`
	Line           string  `json:"line"`
	MarqueeSeconds float64 `json:"marquee_seconds"`
	Position       float64 `json:"position"`
	Duration       float64 `json:"duration"`
	Offset         float64 `json:"offset"`
	Rate           float64 `json:"rate"`
	Marquee        bool    `json:"marquee"`
	LineCount      int     `json:"line_count"`
}

// Session owns the lyric sequence for the current track and keeps the
// active line in step with the player clock. The sequence is rebuilt
// wholesale on every lyric or track change, never mutated in place.
type Session struct {
	player *player.Player

	mu           sync.RWMutex
	raw          string
	lines        []lyrics.Line
	activeIndex  int
	revision     uint64
	offset       float64
	marquee      bool
	state        State
	cancelTick   context.CancelFunc
	cancelRetime context.CancelFunc
}

// NewSession creates a session bound to the given player.
func NewSession(p *player.Player) *Session {
	return &Session{
		player:      p,
		activeIndex: -1,
		offset:      DefaultOffset,
		state:       StateIdle,
	}
}

// Run consumes the player's transport events and drives the sync loop.
// Blocks until ctx is cancelled.
func (s *Session) Run(ctx context.Context) {
	defer s.stopTick()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.player.Events():
			if !ok {
				return
			}
			s.handle(ctx, ev)
		}
	}
}

func (s *Session) handle(ctx context.Context, ev player.Event) {
	switch ev.Type {
	case player.EventPlay:
		s.mu.Lock()
		s.state = StatePlaying
		s.mu.Unlock()
		s.startTick(ctx)

	case player.EventPause:
		s.stopTick()
		s.mu.Lock()
		// Pausing before any progress returns to idle; a mid-song pause
		// keeps the panel in its playing presentation.
		if ev.Position == 0 {
			s.state = StateIdle
		}
		s.mu.Unlock()

	case player.EventEnded:
		s.stopTick()
		s.mu.Lock()
		s.state = StateEnded
		if s.activeIndex != -1 {
			s.activeIndex = -1
			s.revision++
		}
		s.mu.Unlock()

	case player.EventLoaded:
		// Track change: rebuild the sequence against the new duration.
		s.mu.RLock()
		raw := s.raw
		s.mu.RUnlock()
		if raw != "" {
			s.rebuild(raw)
		}
	}
}

// startTick (re)starts the per-frame recomputation loop, cancelling any
// previous one first so a replay never leaves two loops running.
func (s *Session) startTick(ctx context.Context) {
	s.mu.Lock()
	if s.cancelTick != nil {
		s.cancelTick()
	}
	tctx, cancel := context.WithCancel(ctx)
	s.cancelTick = cancel
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-tctx.Done():
				return
			case <-ticker.C:
				s.Tick(s.player.Position())
			}
		}
	}()
}

func (s *Session) stopTick() {
	s.mu.Lock()
	if s.cancelTick != nil {
		s.cancelTick()
		s.cancelTick = nil
	}
	s.mu.Unlock()
}

// Tick recomputes the active line for the given clock position. The
// revision advances only when the index actually changes, so downstream
// consumers can skip redundant work. Returns the active index.
func (s *Session) Tick(pos float64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := ActiveLine(s.lines, pos, s.offset)
	if idx != s.activeIndex {
		s.activeIndex = idx
		s.revision++
	}
	return idx
}

// SetLyrics replaces the lyric text and rebuilds the timed sequence. When
// the track duration is not yet known and the text carries no cues, a
// one-shot wait on the player's metadata re-runs the even-division pass
// once the duration arrives.
func (s *Session) SetLyrics(ctx context.Context, raw string) {
	dur := s.player.Duration()
	lines := lyrics.Parse(raw, dur)

	s.mu.Lock()
	if s.cancelRetime != nil {
		s.cancelRetime()
		s.cancelRetime = nil
	}
	s.raw = raw
	s.lines = lines
	s.activeIndex = -1
	s.revision++

	needsRetime := dur <= 0 && len(lines) > 0 && !lyrics.HasTimestamps(raw)
	var rctx context.Context
	if needsRetime {
		rctx, s.cancelRetime = context.WithCancel(ctx)
	}
	s.mu.Unlock()

	if !needsRetime {
		return
	}

	ready := s.player.MetadataReady()
	go func() {
		select {
		case <-rctx.Done():
			return
		case <-ready:
		}
		s.rebuild(raw)
	}()
}

// rebuild re-parses raw against the current track duration, keeping the
// result only if the lyric text has not changed in the meantime.
func (s *Session) rebuild(raw string) {
	lines := lyrics.Parse(raw, s.player.Duration())
	s.mu.Lock()
	if s.raw == raw {
		s.lines = lines
		s.revision++
	}
	s.mu.Unlock()
}

// Lyrics returns the raw lyric text.
func (s *Session) Lyrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.raw
}

// Lines returns a copy of the timed sequence.
func (s *Session) Lines() []lyrics.Line {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]lyrics.Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// SetOffset sets the user sync offset, clamped to [-5, +5] seconds.
// Takes effect on the next tick.
func (s *Session) SetOffset(offset float64) {
	s.mu.Lock()
	s.offset = clamp(offset, MinOffset, MaxOffset)
	s.mu.Unlock()
}

// Offset returns the current sync offset in seconds.
func (s *Session) Offset() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.offset
}

// SetRate sets the playback-rate multiplier, clamped to [0.5, 2.0], and
// forwards it to the player clock.
func (s *Session) SetRate(rate float64) {
	s.player.SetRate(clamp(rate, MinRate, MaxRate))
}

// SetMarquee switches between the scrolling-list and single-line marquee
// render modes.
func (s *Session) SetMarquee(on bool) {
	s.mu.Lock()
	s.marquee = on
	s.mu.Unlock()
}

// State returns the coarse playback state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Sync returns the current view snapshot.
func (s *Session) Sync() SyncState {
	pos := s.player.Position()
	dur := s.player.Duration()
	rate := s.player.Rate()

	s.mu.RLock()
	defer s.mu.RUnlock()

	line := ""
	if s.activeIndex >= 0 && s.activeIndex < len(s.lines) {
		line = s.lines[s.activeIndex].Text
	}

	return SyncState{
		State:          s.state.String(),
		ActiveIndex:    s.activeIndex,
		Revision:       s.revision,
		Line:           line,
		MarqueeSeconds: MarqueeDuration(s.lines, s.activeIndex, dur),
		Position:       pos,
		Duration:       dur,
		Offset:         s.offset,
		Rate:           rate,
		Marquee:        s.marquee,
		LineCount:      len(s.lines),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
