package audio_test

import (
	"testing"
	"time"

	"github.com/ledgerly-ai/ledgerly/pkg/audio"
)

func fill(n int, v float32) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func TestPlaybackBufferGate(t *testing.T) {
	t.Parallel()

	// 100 samples/s with a 300ms gate: 30 samples open the gate.
	buf := audio.NewPlaybackBuffer(100, audio.WithStartThreshold(300*time.Millisecond))
	dst := make([]float32, 10)

	buf.Append(fill(20, 0.5))
	buf.Read(dst)
	for i, v := range dst {
		if v != 0 {
			t.Fatalf("sample %d = %v before the gate opened, want silence", i, v)
		}
	}
	if buf.Len() != 20 {
		t.Fatalf("gated read consumed samples: Len = %d, want 20", buf.Len())
	}

	buf.Append(fill(15, 0.5)) // 35 buffered, past the threshold
	buf.Read(dst)
	for i, v := range dst {
		if v != 0.5 {
			t.Fatalf("sample %d = %v after the gate opened, want 0.5", i, v)
		}
	}
}

func TestPlaybackBufferUnderrun(t *testing.T) {
	t.Parallel()

	buf := audio.NewPlaybackBuffer(100, audio.WithStartThreshold(0))
	buf.Append(fill(5, 0.5))

	dst := make([]float32, 8)
	if n := buf.Read(dst); n != len(dst) {
		t.Fatalf("Read = %d, want full slice %d", n, len(dst))
	}
	for i := range 5 {
		if dst[i] != 0.5 {
			t.Fatalf("sample %d = %v, want 0.5", i, dst[i])
		}
	}
	for i := 5; i < 8; i++ {
		if dst[i] != 0 {
			t.Fatalf("underrun sample %d = %v, want silence", i, dst[i])
		}
	}
}

func TestPlaybackBufferClear(t *testing.T) {
	t.Parallel()

	buf := audio.NewPlaybackBuffer(100, audio.WithStartThreshold(0))
	buf.Append(fill(50, 0.5))
	buf.Clear()

	if buf.Len() != 0 {
		t.Fatalf("Len after Clear = %d, want 0", buf.Len())
	}
	dst := make([]float32, 10)
	buf.Read(dst)
	for i, v := range dst {
		if v != 0 {
			t.Fatalf("sample %d = %v after Clear, want silence", i, v)
		}
	}

	// Audio appended after a barge-in plays normally.
	buf.Append(fill(10, 0.25))
	buf.Read(dst)
	if dst[0] != 0.25 {
		t.Fatalf("sample after Clear+Append = %v, want 0.25", dst[0])
	}
}

func TestPlaybackBufferGateRearms(t *testing.T) {
	t.Parallel()

	buf := audio.NewPlaybackBuffer(100, audio.WithStartThreshold(100*time.Millisecond)) // 10 samples
	dst := make([]float32, 20)

	buf.Append(fill(15, 0.5))
	buf.Read(dst) // drains fully

	// After a full drain the gate must close again: 5 fresh samples are
	// below the threshold and stay queued.
	buf.Append(fill(5, 0.5))
	buf.Read(dst[:5])
	for i, v := range dst[:5] {
		if v != 0 {
			t.Fatalf("sample %d = %v after drain, want re-gated silence", i, v)
		}
	}
	if buf.Len() != 5 {
		t.Fatalf("Len = %d, want the 5 queued samples intact", buf.Len())
	}
}

func TestPlaybackBufferBuffered(t *testing.T) {
	t.Parallel()

	buf := audio.NewPlaybackBuffer(24000)
	buf.Append(fill(24000, 0))
	if got := buf.Buffered(); got != time.Second {
		t.Errorf("Buffered = %v, want 1s", got)
	}
}
