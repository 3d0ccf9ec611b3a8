package clock

import (
	"errors"
	"sync"
)

// ErrClosed is returned by operations on a released clock.
var ErrClosed = errors.New("clock closed")

// Manual is a clock whose position only changes when told to.
// It is safe for concurrent use.
type Manual struct {
	mu      sync.Mutex
	pos     int64
	playing bool
	ended   bool
	closed  bool
	seeks   []int64
	seekErr error
}

// NewManual returns a playing clock positioned at ms.
func NewManual(ms int64) *Manual {
	return &Manual{pos: ms, playing: true}
}

// PositionMs implements Clock.
func (m *Manual) PositionMs() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos
}

// SeekTo implements Clock and records the target.
func (m *Manual) SeekTo(ms int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.seekErr != nil {
		return m.seekErr
	}
	m.pos = ms
	m.seeks = append(m.seeks, ms)
	return nil
}

// IsPlaying implements Clock.
func (m *Manual) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing && !m.closed
}

// Close implements Clock.
func (m *Manual) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Ended implements Ender.
func (m *Manual) Ended() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ended
}

// Set moves the position without recording a seek, as normal playback would.
func (m *Manual) Set(ms int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pos = ms
}

// SetPlaying toggles the playing state.
func (m *Manual) SetPlaying(playing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = playing
}

// Finish marks the media as ended.
func (m *Manual) Finish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ended = true
	m.playing = false
}

// FailSeeks makes every later SeekTo return err. A nil err clears it.
func (m *Manual) FailSeeks(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seekErr = err
}

// Seeks returns the targets of all successful seeks.
func (m *Manual) Seeks() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, len(m.seeks))
	copy(out, m.seeks)
	return out
}

// Closed reports whether Close was called.
func (m *Manual) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
