package chat_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ledgerly-ai/ledgerly/internal/chat"
	"github.com/ledgerly-ai/ledgerly/internal/tool"
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
	return tool.Result{Status: tool.StatusPreview, Summary: "Will record €100 expense"}
}

// modelStub serves scripted chat completion responses and records every
// request body it sees.
type modelStub struct {
	mu        sync.Mutex
	responses []string
	requests  []map[string]any
}

func (s *modelStub) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("malformed completion request: %v", err)
		}

		s.mu.Lock()
		s.requests = append(s.requests, req)
		if len(s.responses) == 0 {
			s.mu.Unlock()
			http.Error(w, "script exhausted", http.StatusInternalServerError)
			return
		}
		resp := s.responses[0]
		s.responses = s.responses[1:]
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, resp)
	}
}

func (s *modelStub) recordedRequests() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.requests...)
}

const toolCallResponse = `{
	"id": "cmpl-1", "object": "chat.completion", "model": "gpt-4o-mini",
	"choices": [{
		"index": 0, "finish_reason": "tool_calls",
		"message": {
			"role": "assistant",
			"tool_calls": [{
				"id": "call_1", "type": "function",
				"function": {"name": "add_expense", "arguments": "{\"amount\":100,\"description\":\"hosting\"}"}
			}]
		}
	}]
}`

const textResponse = `{
	"id": "cmpl-2", "object": "chat.completion", "model": "gpt-4o-mini",
	"choices": [{
		"index": 0, "finish_reason": "stop",
		"message": {"role": "assistant", "content": "I prepared a preview of the €100 hosting expense. Confirm?"}
	}]
}`

func newTestAssistant(t *testing.T, disp chat.Dispatcher, responses ...string) (*chat.Assistant, *modelStub) {
	t.Helper()
	stub := &modelStub{responses: responses}
	srv := httptest.NewServer(stub.handler(t))
	t.Cleanup(srv.Close)

	a, err := chat.New("test-key", "gpt-4o-mini", disp, chat.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a, stub
}

func TestSendPlainAnswer(t *testing.T) {
	t.Parallel()

	disp := &fakeDispatcher{}
	a, stub := newTestAssistant(t, disp, textResponse)

	conv := a.NewConversation("u1")
	reply, err := conv.Send(context.Background(), "How do invoices work?")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.Contains(reply, "preview") {
		t.Errorf("reply = %q", reply)
	}
	if len(disp.calls) != 0 {
		t.Errorf("no tools should run for a plain answer, got %d calls", len(disp.calls))
	}

	reqs := stub.recordedRequests()
	if len(reqs) != 1 {
		t.Fatalf("model saw %d requests, want 1", len(reqs))
	}
	tools, _ := reqs[0]["tools"].([]any)
	if len(tools) != 1 {
		t.Fatalf("request carried %d tools, want the catalogue", len(tools))
	}
	msgs, _ := reqs[0]["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("request carried %d messages, want system + user", len(msgs))
	}
	first, _ := msgs[0].(map[string]any)
	if first["role"] != "system" {
		t.Errorf("first message role = %v, want system", first["role"])
	}
}

func TestSendToolRound(t *testing.T) {
	t.Parallel()

	disp := &fakeDispatcher{}
	a, stub := newTestAssistant(t, disp, toolCallResponse, textResponse)

	conv := a.NewConversation("erin")
	reply, err := conv.Send(context.Background(), "Add a 100 euro hosting expense")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply == "" {
		t.Fatal("empty reply after tool round")
	}

	if len(disp.calls) != 1 {
		t.Fatalf("dispatched %d calls, want 1", len(disp.calls))
	}
	call := disp.calls[0]
	if call.Name != "add_expense" || call.UserID != "erin" {
		t.Errorf("dispatched %q for %q", call.Name, call.UserID)
	}
	if call.Params["amount"] != float64(100) || call.Params["description"] != "hosting" {
		t.Errorf("params = %v", call.Params)
	}

	// The second request must carry the assistant tool-call message and the
	// tool result so the model sees the full round.
	reqs := stub.recordedRequests()
	if len(reqs) != 2 {
		t.Fatalf("model saw %d requests, want 2", len(reqs))
	}
	msgs, _ := reqs[1]["messages"].([]any)
	var sawToolResult bool
	for _, m := range msgs {
		msg, _ := m.(map[string]any)
		if msg["role"] == "tool" {
			sawToolResult = true
			content, _ := msg["content"].(string)
			if !strings.Contains(content, string(tool.StatusPreview)) {
				t.Errorf("tool message content = %q, want the result status", content)
			}
		}
	}
	if !sawToolResult {
		t.Error("second request is missing the tool result message")
	}
}

func TestSendHistoryAccumulates(t *testing.T) {
	t.Parallel()

	a, stub := newTestAssistant(t, &fakeDispatcher{}, textResponse, textResponse)

	conv := a.NewConversation("u1")
	if _, err := conv.Send(context.Background(), "first"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := conv.Send(context.Background(), "second"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	reqs := stub.recordedRequests()
	msgs, _ := reqs[1]["messages"].([]any)
	// system + user + assistant + user
	if len(msgs) != 4 {
		t.Errorf("second turn carried %d messages, want 4", len(msgs))
	}
}

func TestSendToolLoopBudget(t *testing.T) {
	t.Parallel()

	// The model keeps asking for tools forever; the loop must cut off.
	stub := &modelStub{responses: []string{toolCallResponse, toolCallResponse, toolCallResponse}}
	srv := httptest.NewServer(stub.handler(t))
	t.Cleanup(srv.Close)

	a, err := chat.New("k", "gpt-4o-mini", &fakeDispatcher{},
		chat.WithBaseURL(srv.URL), chat.WithMaxToolRounds(3))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = a.NewConversation("u1").Send(context.Background(), "loop")
	if err == nil {
		t.Fatal("expected the tool round budget to trip")
	}
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	if _, err := chat.New("k", "", &fakeDispatcher{}); err == nil {
		t.Error("empty model must be rejected")
	}
	if _, err := chat.New("k", "gpt-4o-mini", nil); err == nil {
		t.Error("nil dispatcher must be rejected")
	}
}
