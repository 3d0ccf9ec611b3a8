package clock

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the media source behind a clock cannot be opened.
// It is fatal to the session.
var ErrUnavailable = errors.New("playback clock unavailable")

// Clock is the minimal view of a media player the engine needs.
// Position may move backward or forward arbitrarily between reads.
type Clock interface {
	// PositionMs returns the current media position in milliseconds.
	PositionMs() int64
	// SeekTo moves playback to ms.
	SeekTo(ms int64) error
	// IsPlaying reports whether media time is advancing.
	IsPlaying() bool
	// Close releases the underlying player.
	Close() error
}

// Source opens a clock for one playback session.
type Source interface {
	Open(ctx context.Context) (Clock, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (Clock, error)

// Open calls f(ctx).
func (f SourceFunc) Open(ctx context.Context) (Clock, error) {
	return f(ctx)
}

// Ender is implemented by clocks that know when the media has finished.
type Ender interface {
	Ended() bool
}
