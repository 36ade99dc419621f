package voice

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/ledgerly-ai/ledgerly/pkg/audio"
)

// teardownLog records release order across fake devices.
type teardownLog struct {
	mu     sync.Mutex
	events []string
}

func (l *teardownLog) add(ev string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *teardownLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// idleSource blocks until cancelled, like a microphone with nobody talking.
type idleSource struct{ log *teardownLog }

func (s *idleSource) Read(ctx context.Context, _ []float32) (int, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

func (s *idleSource) Close() error {
	s.log.add("source closed")
	return nil
}

type idleRenderer struct{ log *teardownLog }

func (r *idleRenderer) Start(ctx context.Context, _ *audio.PlaybackBuffer) error {
	<-ctx.Done()
	return nil
}

func (r *idleRenderer) Close() error {
	r.log.add("renderer closed")
	return nil
}

func TestPipelineOrderedTeardown(t *testing.T) {
	t.Parallel()

	url := startAgentServer(t, nil, func(ctx context.Context, c *websocket.Conn) {
		c.Write(ctx, websocket.MessageText, []byte(`{"type":"ConversationText","role":"assistant","content":"hello"}`))
		c.Read(ctx)
	})

	playback := audio.NewPlaybackBuffer(OutputSampleRate)
	sess, err := NewAgent(url, "").Connect(context.Background(), "u1", &fakeDispatcher{}, playback)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	log := &teardownLog{}
	var texts []ConversationText
	var textMu sync.Mutex
	p := NewPipeline(sess, &idleSource{log: log}, &idleRenderer{log: log}, playback,
		WithTextHandler(func(text ConversationText) {
			textMu.Lock()
			texts = append(texts, text)
			textMu.Unlock()
		}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	// Let the conversation text flow through before shutting down.
	waitFor(t, "text handler to fire", func() bool {
		textMu.Lock()
		defer textMu.Unlock()
		return len(texts) == 1
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("pipeline did not shut down")
	}

	select {
	case <-sess.Done():
	default:
		t.Error("session still open after pipeline shutdown")
	}
	if got := log.snapshot(); len(got) != 2 || got[0] != "source closed" || got[1] != "renderer closed" {
		t.Errorf("teardown order = %v, want source then renderer", got)
	}
}
