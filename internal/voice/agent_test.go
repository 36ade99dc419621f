package voice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/ledgerly-ai/ledgerly/internal/tool"
	"github.com/ledgerly-ai/ledgerly/pkg/audio"
)

type recordedCall struct {
	Name   string
	UserID string
	Params map[string]any
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (f *fakeDispatcher) Definitions() []tool.Definition {
	return []tool.Definition{{
		Name:        "add_expense",
		Description: "Record an expense",
		Parameters:  map[string]any{"type": "object"},
	}}
}

func (f *fakeDispatcher) Dispatch(_ context.Context, name, userID string, params map[string]any) tool.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{Name: name, UserID: userID, Params: params})
	return tool.Result{Status: tool.StatusApplied, Summary: "expense recorded"}
}

func (f *fakeDispatcher) recorded() []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedCall(nil), f.calls...)
}

// startAgentServer runs a loopback endpoint that accepts one session,
// captures the settings handshake, acknowledges it, and then hands the
// connection to script.
func startAgentServer(t *testing.T, settingsOut chan<- settingsMessage, script func(ctx context.Context, c *websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.CloseNow()
		ctx := r.Context()

		_, data, err := c.Read(ctx)
		if err != nil {
			return
		}
		var settings settingsMessage
		if err := json.Unmarshal(data, &settings); err != nil {
			t.Errorf("malformed settings: %v", err)
			return
		}
		if settingsOut != nil {
			settingsOut <- settings
		}
		if err := c.Write(ctx, websocket.MessageText, []byte(`{"type":"SettingsApplied"}`)); err != nil {
			return
		}
		if script != nil {
			script(ctx, c)
		}
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestConnectHandshake(t *testing.T) {
	t.Parallel()

	settingsCh := make(chan settingsMessage, 1)
	url := startAgentServer(t, settingsCh, func(ctx context.Context, c *websocket.Conn) {
		c.Read(ctx) // hold the connection open until the client closes
	})

	agent := NewAgent(url, "test-key", WithInstructions("You are a bookkeeping assistant."))
	disp := &fakeDispatcher{}
	playback := audio.NewPlaybackBuffer(OutputSampleRate)

	sess, err := agent.Connect(context.Background(), "u1", disp, playback)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer sess.Close()

	settings := <-settingsCh
	if settings.Type != "Settings" {
		t.Errorf("settings type = %q, want Settings", settings.Type)
	}
	if settings.Audio.Input.Encoding != "linear16" || settings.Audio.Input.SampleRate != InputSampleRate {
		t.Errorf("input format = %+v, want linear16 @ %d", settings.Audio.Input, InputSampleRate)
	}
	if settings.Audio.Output.SampleRate != OutputSampleRate {
		t.Errorf("output rate = %d, want %d", settings.Audio.Output.SampleRate, OutputSampleRate)
	}
	if settings.Agent.Instructions == "" {
		t.Error("instructions missing from handshake")
	}
	if len(settings.Agent.Functions) != 1 || settings.Agent.Functions[0].Name != "add_expense" {
		t.Errorf("function catalogue = %+v, want the registry definitions", settings.Agent.Functions)
	}

	if err := sess.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := sess.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestConnectHandshakeTimeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.CloseNow()
		c.Read(r.Context()) // swallow settings, never acknowledge
		c.Read(r.Context())
	}))
	t.Cleanup(srv.Close)

	agent := NewAgent(srv.URL, "", WithHandshakeTimeout(100*time.Millisecond))
	_, err := agent.Connect(context.Background(), "u1", &fakeDispatcher{}, audio.NewPlaybackBuffer(OutputSampleRate))
	if !errors.Is(err, ErrHandshake) {
		t.Fatalf("Connect = %v, want ErrHandshake", err)
	}
}

type bargeInCounter struct {
	n atomic.Int64
}

func (b *bargeInCounter) RecordBargeIn(context.Context) { b.n.Add(1) }

func TestSessionAudioAndBargeIn(t *testing.T) {
	t.Parallel()

	bargeIn := make(chan struct{})
	url := startAgentServer(t, nil, func(ctx context.Context, c *websocket.Conn) {
		samples := make([]float32, 100)
		for i := range samples {
			samples[i] = 0.5
		}
		if err := c.Write(ctx, websocket.MessageBinary, audio.EncodePCM16(samples)); err != nil {
			return
		}
		<-bargeIn
		c.Write(ctx, websocket.MessageText, []byte(`{"type":"UserStartedSpeaking"}`))
		c.Read(ctx)
	})

	playback := audio.NewPlaybackBuffer(OutputSampleRate)
	counter := &bargeInCounter{}
	sess, err := NewAgent(url, "", WithMetrics(counter)).Connect(context.Background(), "u1", &fakeDispatcher{}, playback)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer sess.Close()

	waitFor(t, "agent audio in playback", func() bool { return playback.Len() == 100 })

	close(bargeIn)
	waitFor(t, "barge-in to clear playback", func() bool { return playback.Len() == 0 })
	waitFor(t, "barge-in to be recorded", func() bool { return counter.n.Load() == 1 })
}

func TestSessionFunctionCall(t *testing.T) {
	t.Parallel()

	responses := make(chan functionCallResponse, 1)
	url := startAgentServer(t, nil, func(ctx context.Context, c *websocket.Conn) {
		req := `{"type":"FunctionCallRequest","functions":[` +
			`{"id":"fc-1","name":"add_expense","arguments":"{\"amount\":250,\"confirmed\":true}","client_side":true},` +
			`{"id":"fc-2","name":"lookup_weather","arguments":"{}","client_side":false}]}`
		if err := c.Write(ctx, websocket.MessageText, []byte(req)); err != nil {
			return
		}
		_, data, err := c.Read(ctx)
		if err != nil {
			return
		}
		var resp functionCallResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			t.Errorf("malformed function response: %v", err)
			return
		}
		responses <- resp
		c.Read(ctx)
	})

	disp := &fakeDispatcher{}
	sess, err := NewAgent(url, "").Connect(context.Background(), "erin", disp, audio.NewPlaybackBuffer(OutputSampleRate))
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer sess.Close()

	var resp functionCallResponse
	select {
	case resp = <-responses:
	case <-time.After(3 * time.Second):
		t.Fatal("no function response reached the server")
	}
	if resp.Type != "FunctionCallResponse" || resp.ID != "fc-1" || resp.Name != "add_expense" {
		t.Errorf("response envelope = %+v", resp)
	}
	var result tool.Result
	if err := json.Unmarshal([]byte(resp.Content), &result); err != nil {
		t.Fatalf("response content is not a tool result: %v", err)
	}
	if result.Status != tool.StatusApplied {
		t.Errorf("result status = %q, want applied", result.Status)
	}

	calls := disp.recorded()
	if len(calls) != 1 {
		t.Fatalf("dispatched %d calls, want only the client-side one", len(calls))
	}
	if calls[0].Name != "add_expense" || calls[0].UserID != "erin" {
		t.Errorf("dispatched %q for %q", calls[0].Name, calls[0].UserID)
	}
	if got := calls[0].Params["amount"]; got != float64(250) {
		t.Errorf("amount param = %v, want 250", got)
	}
	if got := calls[0].Params["confirmed"]; got != true {
		t.Errorf("confirmed param = %v, want true", got)
	}
}

func TestSessionConversationText(t *testing.T) {
	t.Parallel()

	url := startAgentServer(t, nil, func(ctx context.Context, c *websocket.Conn) {
		c.Write(ctx, websocket.MessageText, []byte(`{"type":"ConversationText","role":"assistant","content":"Logged it."}`))
		c.Read(ctx)
	})

	sess, err := NewAgent(url, "").Connect(context.Background(), "u1", &fakeDispatcher{}, audio.NewPlaybackBuffer(OutputSampleRate))
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer sess.Close()

	select {
	case text := <-sess.Texts():
		if text.Role != "assistant" || text.Content != "Logged it." {
			t.Errorf("text = %+v", text)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("conversation text never arrived")
	}
}

func TestSessionWriteFrame(t *testing.T) {
	t.Parallel()

	frames := make(chan []byte, 1)
	url := startAgentServer(t, nil, func(ctx context.Context, c *websocket.Conn) {
		typ, data, err := c.Read(ctx)
		if err != nil {
			return
		}
		if typ == websocket.MessageBinary {
			frames <- data
		}
		c.Read(ctx)
	})

	sess, err := NewAgent(url, "").Connect(context.Background(), "u1", &fakeDispatcher{}, audio.NewPlaybackBuffer(OutputSampleRate))
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	pcm := audio.EncodePCM16([]float32{0.1, 0.2, 0.3})
	if err := sess.WriteFrame(context.Background(), pcm); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	select {
	case got := <-frames:
		if len(got) != len(pcm) {
			t.Errorf("server received %d bytes, want %d", len(got), len(pcm))
		}
	case <-time.After(3 * time.Second):
		t.Fatal("frame never reached the server")
	}

	sess.Close()
	if err := sess.WriteFrame(context.Background(), pcm); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("WriteFrame after Close = %v, want ErrSessionClosed", err)
	}
}

func TestSessionServerError(t *testing.T) {
	t.Parallel()

	url := startAgentServer(t, nil, func(ctx context.Context, c *websocket.Conn) {
		c.Write(ctx, websocket.MessageText, []byte(`{"type":"Error","code":"QUOTA","description":"out of credit"}`))
		c.Read(ctx)
	})

	sess, err := NewAgent(url, "").Connect(context.Background(), "u1", &fakeDispatcher{}, audio.NewPlaybackBuffer(OutputSampleRate))
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer sess.Close()

	select {
	case <-sess.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("session did not terminate on server error")
	}
	if sess.Err() == nil {
		t.Fatal("Err = nil, want the server error")
	}
}
