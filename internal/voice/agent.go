// Package voice maintains the realtime speech-to-speech session: a single
// WebSocket carrying PCM16 audio in both directions plus JSON control events,
// with agent function calls routed through the local tool dispatcher.
package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/ledgerly-ai/ledgerly/internal/tool"
	"github.com/ledgerly-ai/ledgerly/pkg/audio"
)

// Wire sample rates. Capture is encoded at 16 kHz before upload, agent audio
// arrives at 24 kHz. Devices that run at other rates resample at the edge
// ([audio.ResampleMono16]).
const (
	InputSampleRate  = 16000
	OutputSampleRate = 24000
)

// DefaultHandshakeTimeout bounds the wait for SettingsApplied after dialing.
const DefaultHandshakeTimeout = 10 * time.Second

var (
	// ErrSessionClosed is returned by writes after Close.
	ErrSessionClosed = errors.New("voice: session closed")

	// ErrHandshake is returned when the server never acknowledges the
	// session settings.
	ErrHandshake = errors.New("voice: settings were not acknowledged")
)

// Dispatcher executes agent-requested function calls. Satisfied by
// [tool.Dispatcher].
type Dispatcher interface {
	Definitions() []tool.Definition
	Dispatch(ctx context.Context, name, userID string, params map[string]any) tool.Result
}

// Metrics receives voice session observations. Satisfied by
// *observe.Metrics; a nil sink disables recording.
type Metrics interface {
	RecordBargeIn(ctx context.Context)
}

// ── Agent ──────────────────────────────────────────────────────────────────

// Agent dials voice sessions against a speech-to-speech endpoint.
type Agent struct {
	endpoint         string
	apiKey           string
	instructions     string
	handshakeTimeout time.Duration
	log              *slog.Logger
	metrics          Metrics
}

// AgentOption configures an [Agent].
type AgentOption func(*Agent)

// WithInstructions sets the system prompt sent in the settings handshake.
func WithInstructions(instructions string) AgentOption {
	return func(a *Agent) { a.instructions = instructions }
}

// WithHandshakeTimeout overrides [DefaultHandshakeTimeout].
func WithHandshakeTimeout(d time.Duration) AgentOption {
	return func(a *Agent) { a.handshakeTimeout = d }
}

// WithLogger sets the logger for session lifecycle events.
func WithLogger(log *slog.Logger) AgentOption {
	return func(a *Agent) { a.log = log }
}

// WithMetrics sets the sink for session observations such as barge-ins.
func WithMetrics(m Metrics) AgentOption {
	return func(a *Agent) { a.metrics = m }
}

// NewAgent creates an agent client for the given WebSocket endpoint.
func NewAgent(endpoint, apiKey string, opts ...AgentOption) *Agent {
	a := &Agent{
		endpoint:         endpoint,
		apiKey:           apiKey,
		handshakeTimeout: DefaultHandshakeTimeout,
		log:              slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Connect dials the endpoint, performs the settings handshake and starts the
// receive loop. The returned session is live: agent audio is already being
// appended to playback and microphone frames may be written immediately.
//
// Function calls requested by the agent are executed through disp on behalf
// of userID.
func (a *Agent) Connect(ctx context.Context, userID string, disp Dispatcher, playback *audio.PlaybackBuffer) (*Session, error) {
	hdr := http.Header{}
	if a.apiKey != "" {
		hdr.Set("Authorization", "Token "+a.apiKey)
	}
	conn, _, err := websocket.Dial(ctx, a.endpoint, &websocket.DialOptions{HTTPHeader: hdr})
	if err != nil {
		return nil, fmt.Errorf("voice: dial %s: %w", a.endpoint, err)
	}
	// Agent turns can outrun realtime playback considerably.
	conn.SetReadLimit(1 << 22)

	sctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		conn:     conn,
		disp:     disp,
		userID:   userID,
		playback: playback,
		log:      a.log.With("user_id", userID),
		metrics:  a.metrics,
		ctx:      sctx,
		cancel:   cancel,
		ready:    make(chan struct{}),
		texts:    make(chan ConversationText, 16),
		done:     make(chan struct{}),
	}

	if err := s.writeJSON(ctx, a.settings(disp.Definitions())); err != nil {
		s.Close()
		return nil, fmt.Errorf("voice: send settings: %w", err)
	}

	go s.receiveLoop()

	select {
	case <-s.ready:
		return s, nil
	case <-s.done:
		err := s.Err()
		s.Close()
		if err == nil {
			err = ErrHandshake
		}
		return nil, err
	case <-time.After(a.handshakeTimeout):
		s.Close()
		return nil, ErrHandshake
	case <-ctx.Done():
		s.Close()
		return nil, ctx.Err()
	}
}

func (a *Agent) settings(defs []tool.Definition) settingsMessage {
	fns := make([]functionDef, 0, len(defs))
	for _, def := range defs {
		fns = append(fns, functionDef{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  def.Parameters,
		})
	}
	return settingsMessage{
		Type: "Settings",
		Audio: audioSettings{
			Input:  audioFormat{Encoding: "linear16", SampleRate: InputSampleRate},
			Output: audioFormat{Encoding: "linear16", SampleRate: OutputSampleRate},
		},
		Agent: agentSettings{
			Instructions: a.instructions,
			Functions:    fns,
		},
	}
}

// ── Session ────────────────────────────────────────────────────────────────

// Session is one live voice conversation. A single receive goroutine owns all
// incoming traffic, so playback appends, barge-in clears and function call
// execution are naturally serialized.
type Session struct {
	conn     *websocket.Conn
	disp     Dispatcher
	userID   string
	playback *audio.PlaybackBuffer
	log      *slog.Logger
	metrics  Metrics

	ctx    context.Context
	cancel context.CancelFunc

	ready chan struct{} // closed on SettingsApplied
	texts chan ConversationText
	done  chan struct{} // closed when the receive loop exits

	writeMu sync.Mutex

	mu     sync.Mutex
	closed bool
	err    error
}

var _ audio.Sink = (*Session)(nil)

// Texts streams finalised conversation turns. Closed when the session ends.
func (s *Session) Texts() <-chan ConversationText { return s.texts }

// Done is closed once the receive loop has exited; [Session.Err] reports why.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err reports the receive loop failure, if any. A clean shutdown via
// [Session.Close] reports nil.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// WriteFrame uploads one block of little-endian PCM16 microphone audio. It
// implements [audio.Sink] so a [audio.CapturePump] can feed the session
// directly.
func (s *Session) WriteFrame(ctx context.Context, pcm []byte) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrSessionClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.Write(ctx, websocket.MessageBinary, pcm); err != nil {
		return fmt.Errorf("voice: write audio frame: %w", err)
	}
	return nil
}

// Close tears the session down: the websocket is closed first so no further
// events or audio arrive, then the receive loop drains out and closes the
// outbound channels. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	// Closing the websocket first guarantees nothing new reaches the
	// playback buffer while capture and devices wind down.
	err := s.conn.Close(websocket.StatusNormalClosure, "session closed")
	<-s.done
	if err != nil && websocket.CloseStatus(err) == -1 {
		return fmt.Errorf("voice: close: %w", err)
	}
	return nil
}

func (s *Session) receiveLoop() {
	defer func() {
		close(s.texts)
		close(s.done)
	}()

	for {
		typ, data, err := s.conn.Read(s.ctx)
		if err != nil {
			s.recordErr(err)
			return
		}
		switch typ {
		case websocket.MessageBinary:
			s.playback.Append(audio.DecodePCM16(data))
		case websocket.MessageText:
			var ev serverEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				s.log.Warn("voice: malformed event", "error", err)
				continue
			}
			if !s.handleEvent(&ev) {
				return
			}
		}
	}
}

// handleEvent processes one server event; it reports false when the session
// must terminate.
func (s *Session) handleEvent(ev *serverEvent) bool {
	switch ev.Type {
	case eventSettingsApplied:
		select {
		case <-s.ready:
		default:
			close(s.ready)
		}

	case eventUserStartedSpeaking:
		// Barge-in: drop whatever the agent was still saying.
		s.playback.Clear()
		if s.metrics != nil {
			s.metrics.RecordBargeIn(s.ctx)
		}
		s.log.Debug("voice: barge-in, playback cleared")

	case eventConversationText:
		select {
		case s.texts <- ConversationText{Role: ev.Role, Content: ev.Content}:
		case <-s.ctx.Done():
			return false
		}

	case eventAgentAudioDone:
		s.log.Debug("voice: agent turn complete", "buffered", s.playback.Buffered())

	case eventFunctionCallRequest:
		for _, call := range ev.Functions {
			if !call.ClientSide {
				continue
			}
			s.handleFunctionCall(call)
		}

	case eventWarning:
		s.log.Warn("voice: server warning", "code", ev.Code, "description", ev.Description)

	case eventError:
		s.recordErr(fmt.Errorf("voice: server error %s: %s", ev.Code, ev.Description))
		return false

	default:
		s.log.Debug("voice: unhandled event", "type", ev.Type)
	}
	return true
}

func (s *Session) handleFunctionCall(call functionCall) {
	params := map[string]any{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &params); err != nil {
			s.log.Warn("voice: malformed function arguments", "function", call.Name, "error", err)
			params = map[string]any{}
		}
	}

	res := s.disp.Dispatch(s.ctx, call.Name, s.userID, params)

	content, err := json.Marshal(res)
	if err != nil {
		content = []byte(`{"status":"error","summary":"result serialization failed"}`)
	}
	resp := functionCallResponse{
		Type:    "FunctionCallResponse",
		ID:      call.ID,
		Name:    call.Name,
		Content: string(content),
	}
	if err := s.writeJSON(s.ctx, resp); err != nil {
		s.log.Error("voice: send function response", "function", call.Name, "error", err)
	}
}

func (s *Session) writeJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.Write(ctx, websocket.MessageText, data)
}

func (s *Session) recordErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.err != nil {
		return // expected close or already failed
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	s.err = err
	s.log.Error("voice: session failed", "error", err)
}
