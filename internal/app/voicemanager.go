package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerly-ai/ledgerly/internal/observe"
	"github.com/ledgerly-ai/ledgerly/internal/voice"
	"github.com/ledgerly-ai/ledgerly/pkg/audio"
)

// VoiceSessionInfo holds metadata about the active voice session.
type VoiceSessionInfo struct {
	// SessionID is the unique identifier for this session.
	SessionID string

	// UserID is the user the session acts on behalf of.
	UserID string

	// StartedAt is when the session was dialed.
	StartedAt time.Time
}

// DeviceOpener provides capture and playback devices for a voice session.
// Implementations live outside this package: a real microphone adapter in the
// desktop client, loopback fakes in tests.
type DeviceOpener interface {
	OpenSource(ctx context.Context) (audio.Source, error)
	OpenRenderer(ctx context.Context) (audio.Renderer, error)
}

// VoiceManager manages the lifecycle of voice sessions. Only one session can
// be active at a time. All exported methods are safe for concurrent use.
type VoiceManager struct {
	agent   *voice.Agent
	disp    voice.Dispatcher
	devices DeviceOpener
	metrics *observe.Metrics
	log     *slog.Logger

	mu     sync.Mutex
	active bool
	info   VoiceSessionInfo
	cancel context.CancelFunc
	done   chan struct{}
}

// NewVoiceManager creates a manager dialing sessions through agent and
// executing function calls through disp.
func NewVoiceManager(agent *voice.Agent, disp voice.Dispatcher, devices DeviceOpener, metrics *observe.Metrics) *VoiceManager {
	return &VoiceManager{
		agent:   agent,
		disp:    disp,
		devices: devices,
		metrics: metrics,
		log:     slog.Default(),
	}
}

// Start dials a new voice session for userID and runs the audio pipeline in
// the background until Stop or a session failure.
//
// Returns an error if a session is already active.
func (vm *VoiceManager) Start(ctx context.Context, userID string) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if vm.active {
		return fmt.Errorf("voice session already active (id=%s)", vm.info.SessionID)
	}

	playback := audio.NewPlaybackBuffer(voice.OutputSampleRate)
	sess, err := vm.agent.Connect(ctx, userID, vm.disp, playback)
	if err != nil {
		return fmt.Errorf("dial voice session: %w", err)
	}

	source, err := vm.devices.OpenSource(ctx)
	if err != nil {
		sess.Close()
		return fmt.Errorf("open capture device: %w", err)
	}
	renderer, err := vm.devices.OpenRenderer(ctx)
	if err != nil {
		sess.Close()
		source.Close()
		return fmt.Errorf("open renderer: %w", err)
	}

	info := VoiceSessionInfo{
		SessionID: uuid.NewString(),
		UserID:    userID,
		StartedAt: time.Now().UTC(),
	}
	log := vm.log.With("session_id", info.SessionID, "user_id", userID)

	pipeline := voice.NewPipeline(sess, source, renderer, playback,
		voice.WithPipelineLogger(log),
		voice.WithTextHandler(func(text voice.ConversationText) {
			log.Info("conversation", "role", text.Role, "content", text.Content)
			if vm.metrics != nil {
				vm.metrics.RecordChatTurn(context.Background(), text.Role)
			}
		}))

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	vm.active = true
	vm.info = info
	vm.cancel = cancel
	vm.done = done

	if vm.metrics != nil {
		vm.metrics.ActiveVoiceSessions.Add(runCtx, 1)
	}

	go func() {
		defer close(done)
		if err := pipeline.Run(runCtx); err != nil {
			log.Error("voice session failed", "error", err)
		}
		if vm.metrics != nil {
			vm.metrics.ActiveVoiceSessions.Add(context.Background(), -1)
		}

		vm.mu.Lock()
		vm.active = false
		vm.info = VoiceSessionInfo{}
		vm.cancel = nil
		vm.mu.Unlock()

		log.Info("voice session ended")
	}()

	log.Info("voice session started")
	return nil
}

// Stop ends the active session and waits for the pipeline to wind down.
// Returns an error if no session is active.
func (vm *VoiceManager) Stop(ctx context.Context) error {
	vm.mu.Lock()
	if !vm.active {
		vm.mu.Unlock()
		return fmt.Errorf("no active voice session")
	}
	cancel := vm.cancel
	done := vm.done
	vm.mu.Unlock()

	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("voice session teardown: %w", ctx.Err())
	}
}

// IsActive reports whether a session is currently running.
func (vm *VoiceManager) IsActive() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.active
}

// Info returns metadata about the active session, or the zero value when
// none is running.
func (vm *VoiceManager) Info() VoiceSessionInfo {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.info
}
