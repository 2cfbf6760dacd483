package karaoke

import (
	"context"
	"testing"

	"github.com/inagotable26/kara/internal/player"
)

func newTestSession() *Session {
	return NewSession(player.New())
}

// --- Tick semantics ---

func TestTickTracksClock(t *testing.T) {
	s := newTestSession()
	s.SetLyrics(context.Background(), "[00:00.00]a\n[00:05.00]b\n[00:10.00]c")
	s.SetOffset(0)

	if got := s.Tick(0); got != 0 {
		t.Errorf("Tick(0) = %d, want 0", got)
	}
	if got := s.Tick(6); got != 1 {
		t.Errorf("Tick(6) = %d, want 1", got)
	}
	if got := s.Tick(4); got != 0 {
		t.Errorf("Tick(4) after Tick(6) = %d, want 0 (backward seek)", got)
	}
}

func TestTickRevisionOnlyOnChange(t *testing.T) {
	s := newTestSession()
	s.SetLyrics(context.Background(), "[00:00.00]a\n[00:05.00]b")
	s.SetOffset(0)

	s.Tick(1)
	rev := s.Sync().Revision
	s.Tick(2)
	s.Tick(3)
	if got := s.Sync().Revision; got != rev {
		t.Errorf("revision advanced without an index change: %d -> %d", rev, got)
	}
	s.Tick(6)
	if got := s.Sync().Revision; got != rev+1 {
		t.Errorf("revision after index change = %d, want %d", got, rev+1)
	}
}

func TestOffsetTakesEffectNextTick(t *testing.T) {
	s := newTestSession()
	s.SetLyrics(context.Background(), "[00:05.00]a")
	s.SetOffset(0)

	if got := s.Tick(4.9); got != -1 {
		t.Errorf("Tick(4.9) = %d, want -1", got)
	}
	s.SetOffset(-0.3)
	if got := s.Tick(4.9); got != 0 {
		t.Errorf("Tick(4.9) with offset -0.3 = %d, want 0", got)
	}
}

// --- Settings clamping ---

func TestSetOffsetClamps(t *testing.T) {
	s := newTestSession()
	s.SetOffset(99)
	if got := s.Offset(); got != MaxOffset {
		t.Errorf("Offset = %v, want clamped to %v", got, MaxOffset)
	}
	s.SetOffset(-99)
	if got := s.Offset(); got != MinOffset {
		t.Errorf("Offset = %v, want clamped to %v", got, MinOffset)
	}
}

func TestDefaultSettings(t *testing.T) {
	s := newTestSession()
	if got := s.Offset(); got != DefaultOffset {
		t.Errorf("default offset = %v, want %v", got, DefaultOffset)
	}
	if got := s.Sync(); got.ActiveIndex != -1 {
		t.Errorf("initial active index = %d, want -1", got.ActiveIndex)
	}
	if got := s.State(); got != StateIdle {
		t.Errorf("initial state = %v, want idle", got)
	}
}

// --- Lyric lifecycle ---

func TestSetLyricsResetsSequence(t *testing.T) {
	s := newTestSession()
	ctx := context.Background()

	s.SetLyrics(ctx, "[00:00.00]a\n[00:05.00]b")
	s.SetOffset(0)
	s.Tick(6)
	if got := s.Sync().ActiveIndex; got != 1 {
		t.Fatalf("active index = %d, want 1", got)
	}

	s.SetLyrics(ctx, "[00:30.00]new song")
	st := s.Sync()
	if st.ActiveIndex != -1 {
		t.Errorf("active index after new lyrics = %d, want -1", st.ActiveIndex)
	}
	if st.LineCount != 1 {
		t.Errorf("line count = %d, want 1", st.LineCount)
	}
}

func TestSetLyricsEmpty(t *testing.T) {
	s := newTestSession()
	s.SetLyrics(context.Background(), "")
	st := s.Sync()
	if st.LineCount != 0 || st.ActiveIndex != -1 {
		t.Errorf("empty lyrics: %+v, want no lines and index -1", st)
	}
	if got := s.Tick(10); got != -1 {
		t.Errorf("Tick with no lines = %d, want -1", got)
	}
}

func TestSetLyricsPlaceholdersWhileDurationUnknown(t *testing.T) {
	s := newTestSession()
	// Player has no track, so duration is unknown: plain text gets zero
	// placeholder starts.
	s.SetLyrics(context.Background(), "one\ntwo\nthree")
	for i, l := range s.Lines() {
		if l.Start != 0 {
			t.Errorf("line %d Start = %v, want 0 placeholder", i, l.Start)
		}
	}
}

// --- Transport state machine ---

func TestTransportStateMachine(t *testing.T) {
	s := newTestSession()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.handle(ctx, player.Event{Type: player.EventPlay, Position: 0})
	if got := s.State(); got != StatePlaying {
		t.Errorf("state after play = %v, want playing", got)
	}

	// Mid-song pause keeps the playing presentation.
	s.handle(ctx, player.Event{Type: player.EventPause, Position: 42.0})
	if got := s.State(); got != StatePlaying {
		t.Errorf("state after mid-song pause = %v, want playing", got)
	}

	// Pause at position 0 is a stop before any progress: back to idle.
	s.handle(ctx, player.Event{Type: player.EventPause, Position: 0})
	if got := s.State(); got != StateIdle {
		t.Errorf("state after pause at 0 = %v, want idle", got)
	}
}

func TestEndedResetsActiveIndex(t *testing.T) {
	s := newTestSession()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.SetLyrics(ctx, "[00:00.00]a\n[00:05.00]b")
	s.SetOffset(0)
	s.Tick(6)
	rev := s.Sync().Revision

	s.handle(ctx, player.Event{Type: player.EventEnded, Position: 10})
	st := s.Sync()
	if st.State != "ended" {
		t.Errorf("state = %q, want ended", st.State)
	}
	if st.ActiveIndex != -1 {
		t.Errorf("active index after ended = %d, want -1", st.ActiveIndex)
	}
	if st.Revision != rev+1 {
		t.Errorf("revision = %d, want %d", st.Revision, rev+1)
	}
}

func TestPlayRestartIsIdempotent(t *testing.T) {
	s := newTestSession()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Repeated play events must not leave stray tick loops behind.
	s.handle(ctx, player.Event{Type: player.EventPlay})
	s.handle(ctx, player.Event{Type: player.EventPlay})
	if s.cancelTick == nil {
		t.Fatal("tick loop not running after replay")
	}
	s.stopTick()
	if s.cancelTick != nil {
		t.Error("stopTick left a cancel func behind")
	}
}

// --- Sync snapshot ---

func TestSyncSnapshotFields(t *testing.T) {
	s := newTestSession()
	s.SetLyrics(context.Background(), "[00:00.00]hello\n[00:04.00]world")
	s.SetOffset(0)
	s.SetMarquee(true)
	s.Tick(1)

	st := s.Sync()
	if st.Line != "hello" {
		t.Errorf("Line = %q, want hello", st.Line)
	}
	if !st.Marquee {
		t.Error("Marquee flag not set")
	}
	if st.MarqueeSeconds != 4 {
		t.Errorf("MarqueeSeconds = %v, want 4", st.MarqueeSeconds)
	}
	if st.LineCount != 2 {
		t.Errorf("LineCount = %d, want 2", st.LineCount)
	}
}
