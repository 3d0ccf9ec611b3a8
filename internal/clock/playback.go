package clock

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"
)

// Playback simulates a player whose position advances with wall time while playing.
// It stands in for a real decoder when the host only needs timing.
type Playback struct {
	mu         sync.Mutex
	now        func() time.Time
	durationMs int64
	// baseMs is the position at anchor; while playing, position = baseMs + elapsed since anchor.
	baseMs  int64
	anchor  time.Time
	playing bool
	closed  bool
}

// NewPlayback returns a playing clock at position 0 for media of the given length.
// A non-positive durationMs means the media never ends. A nil now uses time.Now.
func NewPlayback(durationMs int64, now func() time.Time) *Playback {
	if now == nil {
		now = time.Now
	}
	return &Playback{
		now:        now,
		durationMs: durationMs,
		anchor:     now(),
		playing:    true,
	}
}

func (p *Playback) positionLocked() int64 {
	pos := p.baseMs
	if p.playing {
		pos += p.now().Sub(p.anchor).Milliseconds()
	}
	if p.durationMs > 0 && pos > p.durationMs {
		pos = p.durationMs
	}
	return pos
}

// PositionMs implements Clock.
func (p *Playback) PositionMs() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked()
}

// SeekTo implements Clock. Targets are clamped to the media bounds.
func (p *Playback) SeekTo(ms int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if ms < 0 {
		ms = 0
	}
	if p.durationMs > 0 && ms > p.durationMs {
		ms = p.durationMs
	}
	p.baseMs = ms
	p.anchor = p.now()
	return nil
}

// IsPlaying implements Clock. A clock that reached the end is not playing.
func (p *Playback) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing && !p.closed && !p.endedLocked()
}

// Pause freezes the position.
func (p *Playback) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return
	}
	p.baseMs = p.positionLocked()
	p.playing = false
}

// Resume restarts time from the frozen position.
func (p *Playback) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		return
	}
	p.anchor = p.now()
	p.playing = true
}

func (p *Playback) endedLocked() bool {
	return p.durationMs > 0 && p.positionLocked() >= p.durationMs
}

// Ended implements Ender.
func (p *Playback) Ended() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.endedLocked()
}

// Close implements Clock.
func (p *Playback) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// FileSource opens a Playback clock for a media file on disk.
// The file is only checked for readability; decoding happens elsewhere.
type FileSource struct {
	Path       string
	DurationMs int64
	Now        func() time.Time
}

// Open implements Source.
func (s FileSource) Open(ctx context.Context) (Clock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open media %s: %v", ErrUnavailable, s.Path, err)
	}
	info, err := f.Stat()
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to stat media %s: %v", ErrUnavailable, s.Path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: media path %s is a directory", ErrUnavailable, s.Path)
	}
	return NewPlayback(s.DurationMs, s.Now), nil
}
