package player

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// EventType classifies transport notifications.
type EventType int

const (
	EventLoaded EventType = iota // track decoded, duration known
	EventPlay
	EventPause
	EventEnded
)

func (e EventType) String() string {
	switch e {
	case EventLoaded:
		return "loaded"
	case EventPlay:
		return "play"
	case EventPause:
		return "pause"
	case EventEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Event is a transport notification with the playback position in seconds
// at the moment it was emitted.
type Event struct {
	Type     EventType
	Position float64
}

// fadeInFrames is the length of the smoothstep gain ramp applied after a
// resume or seek (10 frames = 200ms).
const fadeInFrames = 10

// Player decodes a track and emits 20ms PCM frames at a rate-adjusted
// real-time cadence. Position and duration are exposed in track seconds;
// the rate multiplier only changes how fast the frame clock advances.
type Player struct {
	frameCh chan []int16
	wakeCh  chan struct{}
	events  chan Event

	mu          sync.RWMutex
	track       TrackInfo
	samples     []int16
	totalFrames int
	frame       int
	rate        float64
	playing     bool
	fadeFrame   int
	ready       chan struct{} // closed when the current track's duration is known
	loadSeq     int
}

// New creates a player with no track loaded.
func New() *Player {
	return &Player{
		frameCh: make(chan []int16, 100),
		wakeCh:  make(chan struct{}, 1),
		events:  make(chan Event, 16),
		rate:    1.0,
		ready:   make(chan struct{}),
	}
}

// Frames returns the channel of outgoing PCM frames.
func (p *Player) Frames() <-chan []int16 {
	return p.frameCh
}

// Events returns the transport notification channel.
func (p *Player) Events() <-chan Event {
	return p.events
}

// Load replaces the current track and starts decoding it in the background.
// Playback stops and the position resets; MetadataReady reports when the new
// track's duration becomes known.
func (p *Player) Load(info TrackInfo) {
	p.mu.Lock()
	p.loadSeq++
	seq := p.loadSeq
	p.track = info
	p.samples = nil
	p.totalFrames = 0
	p.frame = 0
	p.playing = false
	p.ready = make(chan struct{})
	ready := p.ready
	p.mu.Unlock()

	go func() {
		samples, err := DecodeFile(info.Path)
		if err != nil {
			log.Printf("Decode failed %s: %v", info.Path, err)
			return
		}

		p.mu.Lock()
		if p.loadSeq != seq {
			// A newer Load superseded this decode.
			p.mu.Unlock()
			return
		}
		p.samples = samples
		p.totalFrames = len(samples) / FrameSamples
		frames := p.totalFrames
		p.mu.Unlock()

		close(ready)
		p.emit(EventLoaded, 0)
		log.Printf("Track loaded: %s (%.1fs)", info.Name, float64(frames)*FrameDuration.Seconds())
	}()
}

// MetadataReady returns a channel closed once the current track's duration
// is known. A fresh channel is installed on every Load.
func (p *Player) MetadataReady() <-chan struct{} {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ready
}

// Play starts or resumes playback. Replaying a finished track restarts it
// from the top.
func (p *Player) Play() error {
	p.mu.Lock()
	if p.samples == nil {
		p.mu.Unlock()
		return fmt.Errorf("no track loaded")
	}
	if p.frame >= p.totalFrames {
		p.frame = 0
	}
	p.playing = true
	p.fadeFrame = 0
	pos := p.positionLocked()
	p.mu.Unlock()

	select {
	case p.wakeCh <- struct{}{}:
	default:
	}
	p.emit(EventPlay, pos)
	return nil
}

// Pause halts playback without moving the position.
func (p *Player) Pause() {
	p.mu.Lock()
	if !p.playing {
		p.mu.Unlock()
		return
	}
	p.playing = false
	pos := p.positionLocked()
	p.mu.Unlock()
	p.emit(EventPause, pos)
}

// Seek moves the position to the given second, clamped to the track bounds.
func (p *Player) Seek(seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.totalFrames == 0 {
		return
	}
	frame := int(seconds / FrameDuration.Seconds())
	if frame < 0 {
		frame = 0
	}
	if frame >= p.totalFrames {
		frame = p.totalFrames - 1
	}
	p.frame = frame
	p.fadeFrame = 0
}

// SetRate sets the playback-rate multiplier. Non-positive values are ignored.
func (p *Player) SetRate(rate float64) {
	if rate <= 0 {
		return
	}
	p.mu.Lock()
	p.rate = rate
	p.mu.Unlock()
}

// Rate returns the current playback-rate multiplier.
func (p *Player) Rate() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.rate
}

// Position returns the playback position in track seconds.
func (p *Player) Position() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.positionLocked()
}

// Duration returns the track duration in seconds, or 0 while it is unknown.
func (p *Player) Duration() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return float64(p.totalFrames) * FrameDuration.Seconds()
}

// Playing reports whether the frame clock is advancing.
func (p *Player) Playing() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.playing
}

// Track returns the current track info.
func (p *Player) Track() TrackInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.track
}

func (p *Player) positionLocked() float64 {
	return float64(p.frame) * FrameDuration.Seconds()
}

// Run emits frames until ctx is cancelled. Blocks.
func (p *Player) Run(ctx context.Context) {
	defer close(p.frameCh)

	for {
		frame, wait, ok := p.nextFrame()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-p.wakeCh:
			}
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		select {
		case p.frameCh <- frame:
		case <-ctx.Done():
			return
		}
	}
}

// nextFrame returns the next frame to emit and how long to wait before
// sending it. ok=false when there is nothing to play, either because
// playback is paused or because the track just finished.
func (p *Player) nextFrame() ([]int16, time.Duration, bool) {
	p.mu.Lock()
	if !p.playing || p.samples == nil {
		p.mu.Unlock()
		return nil, 0, false
	}
	if p.frame >= p.totalFrames {
		p.playing = false
		pos := p.positionLocked()
		name := p.track.Name
		p.mu.Unlock()
		p.emit(EventEnded, pos)
		log.Printf("Track finished: %s", name)
		return nil, 0, false
	}

	i := p.frame
	frame := p.samples[i*FrameSamples : (i+1)*FrameSamples]
	if p.fadeFrame < fadeInFrames {
		frame = ScaleFrame(frame, Smoothstep(float64(p.fadeFrame+1)/float64(fadeInFrames)))
		p.fadeFrame++
	}
	p.frame++
	wait := time.Duration(float64(FrameDuration) / p.rate)
	p.mu.Unlock()

	return frame, wait, true
}

// emit sends a transport event without ever blocking the playback loop.
func (p *Player) emit(t EventType, pos float64) {
	select {
	case p.events <- Event{Type: t, Position: pos}:
	default:
	}
}
