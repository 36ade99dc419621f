package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// DefaultBlockSize is the capture block in samples. At 16 kHz this is 128 ms
// per wire frame, small enough for responsive turn detection without
// flooding the channel with tiny frames.
const DefaultBlockSize = 2048

// CapturePumpOption configures a [CapturePump].
type CapturePumpOption func(*CapturePump)

// WithBlockSize overrides the per-frame sample count.
func WithBlockSize(n int) CapturePumpOption {
	return func(p *CapturePump) { p.blockSize = n }
}

// WithCaptureLogger sets the pump's logger. Default: [slog.Default].
func WithCaptureLogger(log *slog.Logger) CapturePumpOption {
	return func(p *CapturePump) { p.log = log }
}

// CapturePump moves audio from a [Source] to a [Sink]: read one float32
// block, encode it to PCM16, write one frame, repeat.
//
// The pump runs until the source ends, the sink fails, or ctx is cancelled.
// It never retries on its own — a failed capture returns to idle and the
// caller decides whether to restart, because silently reopening a
// microphone the OS just revoked would fight the user.
type CapturePump struct {
	source    Source
	sink      Sink
	blockSize int
	log       *slog.Logger
}

// NewCapturePump wires a source to a sink.
func NewCapturePump(source Source, sink Sink, opts ...CapturePumpOption) *CapturePump {
	p := &CapturePump{
		source:    source,
		sink:      sink,
		blockSize: DefaultBlockSize,
		log:       slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run pumps until the source ends or an error occurs. The returned error is
// nil on a clean end of stream or context cancellation, and otherwise wraps
// the cause — [ErrPermissionDenied] and [ErrNoDevice] stay detectable with
// [errors.Is] for caller-facing messaging.
func (p *CapturePump) Run(ctx context.Context) error {
	block := make([]float32, p.blockSize)
	for {
		n, err := p.source.Read(ctx, block)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil
		case errors.Is(err, ErrPermissionDenied):
			p.log.Warn("microphone permission denied, capture stopped")
			return fmt.Errorf("audio: capture: %w", err)
		case errors.Is(err, ErrNoDevice):
			p.log.Warn("no capture device, capture stopped")
			return fmt.Errorf("audio: capture: %w", err)
		case err != nil:
			p.log.Error("capture read failed", "error", err)
			return fmt.Errorf("audio: capture: %w", err)
		case n == 0:
			return nil // end of stream
		}

		if err := p.sink.WriteFrame(ctx, EncodePCM16(block[:n])); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			p.log.Error("capture frame write failed", "error", err)
			return fmt.Errorf("audio: capture: %w", err)
		}
	}
}
