package voice

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ledgerly-ai/ledgerly/pkg/audio"
)

// Pipeline runs one voice conversation end to end: microphone frames pumped
// into the session, agent audio rendered from the shared playback buffer, and
// conversation text surfaced to the handler.
//
// Teardown is ordered so that no goroutine touches a released resource: the
// session closes first (stopping inbound audio and events), capture drains
// out, then the microphone is released, and the renderer last.
type Pipeline struct {
	session  *Session
	source   audio.Source
	renderer audio.Renderer
	playback *audio.PlaybackBuffer
	onText   func(ConversationText)
	log      *slog.Logger
}

// PipelineOption configures a [Pipeline].
type PipelineOption func(*Pipeline)

// WithTextHandler registers a callback for finalised conversation turns. The
// callback runs on the pipeline's own goroutine and must not block.
func WithTextHandler(fn func(ConversationText)) PipelineOption {
	return func(p *Pipeline) { p.onText = fn }
}

// WithPipelineLogger sets the logger for pipeline lifecycle events.
func WithPipelineLogger(log *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.log = log }
}

// NewPipeline assembles a pipeline around an established session. playback
// must be the same buffer the session appends agent audio to.
func NewPipeline(sess *Session, source audio.Source, renderer audio.Renderer, playback *audio.PlaybackBuffer, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		session:  sess,
		source:   source,
		renderer: renderer,
		playback: playback,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run blocks until ctx is cancelled, the session ends, or a component fails.
// There is no automatic reconnect: a dropped session surfaces as an error and
// the caller decides whether to dial again.
func (p *Pipeline) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	pump := audio.NewCapturePump(p.source, p.session, audio.WithCaptureLogger(p.log))
	g.Go(func() error { return pump.Run(gctx) })

	g.Go(func() error { return p.renderer.Start(gctx, p.playback) })

	g.Go(func() error {
		for {
			select {
			case text, ok := <-p.session.Texts():
				if !ok {
					return p.session.Err()
				}
				if p.onText != nil {
					p.onText(text)
				}
			case <-gctx.Done():
				return nil
			}
		}
	})

	// First out closes the session, which unblocks the capture pump's
	// writes and stops playback appends before devices are released.
	g.Go(func() error {
		<-gctx.Done()
		return p.session.Close()
	})

	err := g.Wait()

	if cerr := p.source.Close(); cerr != nil {
		p.log.Warn("voice: release capture device", "error", cerr)
	}
	if cerr := p.renderer.Close(); cerr != nil {
		p.log.Warn("voice: release renderer", "error", cerr)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, ErrSessionClosed) {
		return nil
	}
	return err
}
