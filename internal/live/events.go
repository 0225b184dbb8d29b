package live

// Wire types for the live session protocol. Field names follow the
// server's camelCase JSON.

// Blob carries inline binary data as base64 text. Audio blobs arrive
// as raw PCM fragments whose boundaries fall anywhere, so the data
// must stay encoded until the whole turn is assembled.
type Blob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// Part is one piece of model output, either text or inline data.
type Part struct {
	Text       string `json:"text,omitempty"`
	InlineData *Blob  `json:"inlineData,omitempty"`
}

// ModelTurn is the model's in-progress turn content.
type ModelTurn struct {
	Parts []Part `json:"parts"`
}

// ServerContent carries incremental model output and turn lifecycle
// signals. Interrupted and TurnComplete are mutually exclusive.
type ServerContent struct {
	ModelTurn    *ModelTurn `json:"modelTurn,omitempty"`
	TurnComplete bool       `json:"turnComplete,omitempty"`
	Interrupted  bool       `json:"interrupted,omitempty"`
}

// FunctionCall is a single tool invocation requested by the model.
type FunctionCall struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// ToolCall requests execution of one or more functions.
type ToolCall struct {
	FunctionCalls []FunctionCall `json:"functionCalls"`
}

// ToolCallCancellation withdraws previously requested tool calls.
type ToolCallCancellation struct {
	IDs []string `json:"ids"`
}

// ServerEvent is the envelope for every frame the server sends.
// Exactly one field is set per frame.
type ServerEvent struct {
	SetupComplete        *struct{}             `json:"setupComplete,omitempty"`
	ServerContent        *ServerContent        `json:"serverContent,omitempty"`
	ToolCall             *ToolCall             `json:"toolCall,omitempty"`
	ToolCallCancellation *ToolCallCancellation `json:"toolCallCancellation,omitempty"`
}

// Kind classifies the event for logging and metrics.
func (e ServerEvent) Kind() string {
	switch {
	case e.SetupComplete != nil:
		return "setup_complete"
	case e.ToolCall != nil:
		return "tool_call"
	case e.ToolCallCancellation != nil:
		return "tool_call_cancellation"
	case e.ServerContent == nil:
		return "unknown"
	case e.ServerContent.Interrupted:
		return "interrupted"
	case e.ServerContent.TurnComplete:
		return "turn_complete"
	default:
		return "content"
	}
}

// Setup configures the session during the opening handshake.
type Setup struct {
	Model string `json:"model"`
}

// ClientTurn is one turn of client-authored content.
type ClientTurn struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// ClientContent submits structured content to the session.
type ClientContent struct {
	Turns        []ClientTurn `json:"turns,omitempty"`
	TurnComplete bool         `json:"turnComplete"`
}

// RealtimeInput streams media to the session outside turn structure.
type RealtimeInput struct {
	MediaChunks []Blob `json:"mediaChunks,omitempty"`
}

// clientEnvelope is the outbound frame wrapper; one field per frame.
type clientEnvelope struct {
	Setup         *Setup         `json:"setup,omitempty"`
	ClientContent *ClientContent `json:"clientContent,omitempty"`
	RealtimeInput *RealtimeInput `json:"realtimeInput,omitempty"`
}
