// Package chat provides the text conversation loop: user turns go to a chat
// completion model armed with the finance tool catalogue, requested tool
// calls are executed locally, and the loop continues until the model answers
// in plain text.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/ledgerly-ai/ledgerly/internal/tool"
)

// DefaultSystemPrompt frames the assistant when the config does not supply
// its own instructions.
const DefaultSystemPrompt = "You are Ledgerly, a bookkeeping assistant for freelancers. " +
	"You manage clients, vendors, income, expenses, invoices and projects through the provided tools. " +
	"Mutating tools return a preview first; relay the preview to the user and only set confirmed " +
	"after the user has approved it. Keep answers short and concrete."

// DefaultMaxToolRounds bounds how many consecutive tool rounds one user turn
// may trigger before the loop is cut off.
const DefaultMaxToolRounds = 8

var (
	// ErrNoResponse is returned when the model reply carries no choices.
	ErrNoResponse = errors.New("chat: model returned no choices")

	// ErrToolLoop is returned when a turn exceeds the tool round budget.
	ErrToolLoop = errors.New("chat: tool call loop exceeded round budget")
)

// Dispatcher executes model-requested tool calls. Satisfied by
// [tool.Dispatcher].
type Dispatcher interface {
	Definitions() []tool.Definition
	Dispatch(ctx context.Context, name, userID string, params map[string]any) tool.Result
}

// TurnRecorder counts conversation turns. Implemented by observe.Metrics; a
// nil recorder disables counting.
type TurnRecorder interface {
	RecordChatTurn(ctx context.Context, role string)
}

// Assistant owns the model client and tool catalogue shared by all
// conversations.
type Assistant struct {
	client        oai.Client
	model         string
	baseURL       string
	disp          Dispatcher
	systemPrompt  string
	maxToolRounds int
	recorder      TurnRecorder
	log           *slog.Logger
}

// Option configures an [Assistant].
type Option func(*Assistant)

// WithSystemPrompt overrides [DefaultSystemPrompt].
func WithSystemPrompt(prompt string) Option {
	return func(a *Assistant) { a.systemPrompt = prompt }
}

// WithMaxToolRounds overrides [DefaultMaxToolRounds].
func WithMaxToolRounds(n int) Option {
	return func(a *Assistant) {
		if n > 0 {
			a.maxToolRounds = n
		}
	}
}

// WithTurnRecorder sets the metrics sink for turn counting.
func WithTurnRecorder(r TurnRecorder) Option {
	return func(a *Assistant) { a.recorder = r }
}

// WithLogger sets the logger for tool round events.
func WithLogger(log *slog.Logger) Option {
	return func(a *Assistant) { a.log = log }
}

// WithBaseURL points the client at a compatible non-OpenAI endpoint.
func WithBaseURL(url string) Option {
	return func(a *Assistant) { a.baseURL = url }
}

// New constructs an assistant talking to the configured model endpoint.
func New(apiKey, model string, disp Dispatcher, opts ...Option) (*Assistant, error) {
	if model == "" {
		return nil, errors.New("chat: model must not be empty")
	}
	if disp == nil {
		return nil, errors.New("chat: dispatcher must not be nil")
	}
	a := &Assistant{
		model:         model,
		disp:          disp,
		systemPrompt:  DefaultSystemPrompt,
		maxToolRounds: DefaultMaxToolRounds,
		log:           slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}

	var reqOpts []option.RequestOption
	if apiKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(apiKey))
	}
	if a.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(a.baseURL))
	}
	a.client = oai.NewClient(reqOpts...)
	return a, nil
}

// Conversation is one user's chat history. Not safe for concurrent use; a
// user sends one message at a time.
type Conversation struct {
	asst     *Assistant
	userID   string
	messages []oai.ChatCompletionMessageParamUnion
}

// NewConversation starts an empty conversation for userID.
func (a *Assistant) NewConversation(userID string) *Conversation {
	return &Conversation{
		asst: a,
		messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(a.systemPrompt),
		},
		userID: userID,
	}
}

// Send submits one user turn and returns the assistant's text reply, running
// as many tool rounds as the model requests along the way.
func (c *Conversation) Send(ctx context.Context, text string) (string, error) {
	a := c.asst
	c.messages = append(c.messages, oai.UserMessage(text))
	if a.recorder != nil {
		a.recorder.RecordChatTurn(ctx, "user")
	}

	for range a.maxToolRounds {
		resp, err := a.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
			Model:    shared.ChatModel(a.model),
			Messages: c.messages,
			Tools:    a.toolParams(),
		})
		if err != nil {
			return "", fmt.Errorf("chat: completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", ErrNoResponse
		}
		msg := resp.Choices[0].Message
		c.messages = append(c.messages, msg.ToParam())

		if len(msg.ToolCalls) == 0 {
			if a.recorder != nil {
				a.recorder.RecordChatTurn(ctx, "assistant")
			}
			return msg.Content, nil
		}

		for _, tc := range msg.ToolCalls {
			c.messages = append(c.messages, oai.ToolMessage(a.runTool(ctx, c.userID, tc), tc.ID))
		}
	}

	return "", ErrToolLoop
}

// runTool executes one requested call and returns the JSON payload for the
// tool message. Malformed arguments or serialization failures become error
// results for the model rather than aborting the turn.
func (a *Assistant) runTool(ctx context.Context, userID string, tc oai.ChatCompletionMessageToolCall) string {
	params := map[string]any{}
	if tc.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &params); err != nil {
			a.log.Warn("chat: malformed tool arguments", "tool", tc.Function.Name, "error", err)
			params = map[string]any{}
		}
	}

	res := a.disp.Dispatch(ctx, tc.Function.Name, userID, params)
	a.log.Debug("chat: tool round", "tool", tc.Function.Name, "status", res.Status)

	payload, err := json.Marshal(res)
	if err != nil {
		return `{"status":"error","summary":"result serialization failed"}`
	}
	return string(payload)
}

func (a *Assistant) toolParams() []oai.ChatCompletionToolParam {
	defs := a.disp.Definitions()
	tools := make([]oai.ChatCompletionToolParam, 0, len(defs))
	for _, def := range defs {
		tools = append(tools, oai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        def.Name,
				Description: param.NewOpt(def.Description),
				Parameters:  shared.FunctionParameters(def.Parameters),
			},
		})
	}
	return tools
}
