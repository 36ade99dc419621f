package audio

import (
	"context"
	"errors"
)

// Sentinel errors device adapters return so callers can tell a user problem
// (denied microphone permission) from a hardware problem (no usable device)
// from everything else. The voice layer surfaces each differently.
var (
	// ErrPermissionDenied means the user or OS refused access to the device.
	ErrPermissionDenied = errors.New("audio: device permission denied")

	// ErrNoDevice means no capture or playback device is available.
	ErrNoDevice = errors.New("audio: no device available")
)

// Source delivers float32 sample blocks from an input device.
//
// Read blocks until a full block is available, the source is closed, or ctx
// is done. Implementations wrap OS capture APIs; Read errors should wrap
// [ErrPermissionDenied] or [ErrNoDevice] where the cause is known.
type Source interface {
	// Read fills dst with captured samples and returns the count written.
	// A return of 0 with a nil error means the source has ended.
	Read(ctx context.Context, dst []float32) (int, error)

	// Close releases the device. Safe to call more than once.
	Close() error
}

// Sink receives encoded PCM frames bound for the wire.
// The capture pump writes one frame per captured block.
type Sink interface {
	WriteFrame(ctx context.Context, pcm []byte) error
}

// Renderer is the output device the playback buffer drains into.
// Implementations pull samples via [PlaybackBuffer.Read] on their own
// cadence and call Close during teardown, after capture has stopped.
type Renderer interface {
	// Start begins pulling from the buffer until ctx is done.
	Start(ctx context.Context, buf *PlaybackBuffer) error

	// Close releases the output device. Safe to call more than once.
	Close() error
}
