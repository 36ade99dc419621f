package audio

import (
	"sync"
	"time"
)

const (
	// DefaultStartThreshold is how much audio must accumulate before playback
	// starts. Buffering a lead-in absorbs network jitter; anything shorter
	// produces audible stutter on the first words of an utterance.
	DefaultStartThreshold = 300 * time.Millisecond

	// compactAfter is the consumed-sample count that triggers dropping the
	// played prefix so the backing slice does not grow for the whole session.
	compactAfter = 1 << 16
)

// PlaybackBufferOption configures a [PlaybackBuffer].
type PlaybackBufferOption func(*PlaybackBuffer)

// WithStartThreshold overrides the gate duration. Zero disables gating.
func WithStartThreshold(d time.Duration) PlaybackBufferOption {
	return func(b *PlaybackBuffer) { b.threshold = int(d.Seconds() * float64(b.sampleRate)) }
}

// PlaybackBuffer queues decoded agent speech between the network receive
// loop and the output device.
//
// Behaviour:
//
//   - Appended samples accumulate until the start threshold is reached; until
//     then Read returns silence. Once playback starts it continues until the
//     buffer fully drains, after which the gate re-arms for the next
//     utterance.
//   - Underruns produce silence, never blocking and never an error — the
//     output device keeps its cadence no matter what the network does.
//   - Clear drops everything queued and re-arms the gate. The voice layer
//     calls it on barge-in so stale agent speech never plays after the user
//     interrupts.
//
// All methods are safe for concurrent use.
type PlaybackBuffer struct {
	mu         sync.Mutex
	samples    []float32
	pos        int // read cursor into samples
	started    bool
	threshold  int // samples buffered before playback starts
	sampleRate int
}

// NewPlaybackBuffer returns a buffer for the given output sample rate.
func NewPlaybackBuffer(sampleRate int, opts ...PlaybackBufferOption) *PlaybackBuffer {
	b := &PlaybackBuffer{
		sampleRate: sampleRate,
		threshold:  int(DefaultStartThreshold.Seconds() * float64(sampleRate)),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Append queues decoded samples for playback.
func (b *PlaybackBuffer) Append(samples []float32) {
	if len(samples) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples = append(b.samples, samples...)
}

// Read fills dst and returns len(dst). While the gate is closed or the
// buffer has drained, the remainder of dst is zero-filled silence.
func (b *PlaybackBuffer) Read(dst []float32) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	pending := len(b.samples) - b.pos
	if !b.started {
		if pending < b.threshold {
			zero(dst)
			return len(dst)
		}
		b.started = true
	}

	n := copy(dst, b.samples[b.pos:])
	b.pos += n
	zero(dst[n:])

	if b.pos >= len(b.samples) {
		// Fully drained: reset storage and re-arm the gate.
		b.samples = b.samples[:0]
		b.pos = 0
		b.started = false
	} else if b.pos > compactAfter {
		b.samples = append(b.samples[:0], b.samples[b.pos:]...)
		b.pos = 0
	}
	return len(dst)
}

// Len reports the number of samples queued and not yet read.
func (b *PlaybackBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples) - b.pos
}

// Buffered reports the queued audio as a duration at the output rate.
func (b *PlaybackBuffer) Buffered() time.Duration {
	if b.sampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Len()) * time.Second / time.Duration(b.sampleRate)
}

// Clear drops all queued audio and re-arms the start gate.
func (b *PlaybackBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples = b.samples[:0]
	b.pos = 0
	b.started = false
}

func zero(s []float32) {
	for i := range s {
		s[i] = 0
	}
}
