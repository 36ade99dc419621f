package voice

// Wire messages for the speech-to-speech agent channel. The transport is a
// single WebSocket: JSON text messages carry control events in both
// directions, binary messages carry raw little-endian PCM16 audio.

// Event type tags for incoming server messages.
const (
	eventSettingsApplied     = "SettingsApplied"
	eventUserStartedSpeaking = "UserStartedSpeaking"
	eventConversationText    = "ConversationText"
	eventAgentAudioDone      = "AgentAudioDone"
	eventFunctionCallRequest = "FunctionCallRequest"
	eventWarning             = "Warning"
	eventError               = "Error"
)

// settingsMessage is the first message sent after dialing: it fixes the
// audio formats for the session and hands the agent its instructions and
// callable function catalogue. Audio must not be sent before the server
// acknowledges with SettingsApplied.
type settingsMessage struct {
	Type  string        `json:"type"` // always "Settings"
	Audio audioSettings `json:"audio"`
	Agent agentSettings `json:"agent"`
}

type audioSettings struct {
	Input  audioFormat `json:"input"`
	Output audioFormat `json:"output"`
}

type audioFormat struct {
	Encoding   string `json:"encoding"` // always "linear16"
	SampleRate int    `json:"sample_rate"`
}

type agentSettings struct {
	Instructions string        `json:"instructions,omitempty"`
	Functions    []functionDef `json:"functions,omitempty"`
}

type functionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// serverEvent is the union of all incoming JSON events; fields are populated
// according to Type.
type serverEvent struct {
	Type string `json:"type"`

	// ConversationText
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`

	// FunctionCallRequest
	Functions []functionCall `json:"functions,omitempty"`

	// Warning / Error
	Description string `json:"description,omitempty"`
	Code        string `json:"code,omitempty"`
}

type functionCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON-encoded parameter object

	// ClientSide is false for functions the server executes itself; only
	// client-side calls are dispatched locally.
	ClientSide bool `json:"client_side"`
}

// functionCallResponse returns one executed function's result to the agent.
type functionCallResponse struct {
	Type    string `json:"type"` // always "FunctionCallResponse"
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"` // JSON-encoded tool result
}

// ConversationText is a finalised utterance from either side of the
// conversation, surfaced for display and logging.
type ConversationText struct {
	Role    string // "user" or "assistant"
	Content string
}
