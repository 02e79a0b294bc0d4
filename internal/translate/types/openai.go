package types

import (
	"encoding/json"
	"fmt"
)

// OpenAIRequest is the body of POST /v1/chat/completions as the gateway
// sends it onward to the backend (and, after Mistral-compatibility
// normalization, as it arrives from an OpenAI-dialect client).
type OpenAIRequest struct {
	Model         string          `json:"model"`
	Messages      []OpenAIMessage `json:"messages"`
	Tools         []OpenAITool    `json:"tools,omitempty"`
	ToolChoice    json.RawMessage `json:"tool_choice,omitempty"`
	Stream        bool            `json:"stream,omitempty"`
	StreamOptions *StreamOptions  `json:"stream_options,omitempty"`
	MaxTokens     *int            `json:"max_tokens,omitempty"`
	Temperature   *float64        `json:"temperature,omitempty"`
	TopP          *float64        `json:"top_p,omitempty"`
	Stop          []string        `json:"stop,omitempty"`
}

// StreamOptions controls whether a final usage-bearing chunk is emitted.
type StreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// OpenAIMessage is one entry of the outbound/inbound messages array. Role is
// one of "system" | "user" | "assistant" | "tool".
type OpenAIMessage struct {
	Role       string
	Content    OpenAIContent
	ToolCalls  []OpenAIToolCall
	ToolCallID string // only on role "tool"
	Name       string // optional; unused by Mistral, carried for fidelity
}

// OpenAIContent is either a plain string or a list of content parts
// (text / image_url), matching what both OpenAI clients and this gateway's
// own outbound construction produce.
type OpenAIContent struct {
	Text     string
	Parts    []OpenAIContentPart
	IsNull   bool // message.content can be explicitly null (assistant tool-call-only turns)
}

type OpenAIContentPartType string

const (
	OpenAIPartText     OpenAIContentPartType = "text"
	OpenAIPartImageURL OpenAIContentPartType = "image_url"
)

type OpenAIContentPart struct {
	Type     OpenAIContentPartType
	Text     string
	ImageURL OpenAIImageURL
}

type OpenAIImageURL struct {
	URL string `json:"url"`
}

func (p OpenAIContentPart) MarshalJSON() ([]byte, error) {
	switch p.Type {
	case OpenAIPartImageURL:
		return json.Marshal(struct {
			Type     OpenAIContentPartType `json:"type"`
			ImageURL OpenAIImageURL        `json:"image_url"`
		}{p.Type, p.ImageURL})
	default:
		return json.Marshal(struct {
			Type OpenAIContentPartType `json:"type"`
			Text string                `json:"text"`
		}{OpenAIPartText, p.Text})
	}
}

func (p *OpenAIContentPart) UnmarshalJSON(data []byte) error {
	var head struct {
		Type     OpenAIContentPartType `json:"type"`
		Text     string                `json:"text"`
		ImageURL OpenAIImageURL        `json:"image_url"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	p.Type, p.Text, p.ImageURL = head.Type, head.Text, head.ImageURL
	return nil
}

func (c *OpenAIContent) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		c.IsNull = true
		return nil
	}
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		c.Text = asString
		return nil
	}
	var asParts []OpenAIContentPart
	if err := json.Unmarshal(data, &asParts); err != nil {
		return fmt.Errorf("message content is neither a string, null, nor a part list: %w", err)
	}
	c.Parts = asParts
	return nil
}

func (c OpenAIContent) MarshalJSON() ([]byte, error) {
	if c.IsNull {
		return []byte("null"), nil
	}
	if len(c.Parts) > 0 {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

// OpenAIToolCall is one entry of an assistant message's tool_calls array.
type OpenAIToolCall struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"` // "function"
	Function OpenAIFunctionCall `json:"function"`
}

type OpenAIFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON-text
}

func (m OpenAIMessage) MarshalJSON() ([]byte, error) {
	wire := struct {
		Role       string           `json:"role"`
		Content    any              `json:"content,omitempty"`
		ToolCalls  []OpenAIToolCall `json:"tool_calls,omitempty"`
		ToolCallID string           `json:"tool_call_id,omitempty"`
		Name       string           `json:"name,omitempty"`
	}{
		Role:       m.Role,
		ToolCalls:  m.ToolCalls,
		ToolCallID: m.ToolCallID,
		Name:       m.Name,
	}
	if m.Content.IsNull && len(m.ToolCalls) > 0 {
		wire.Content = nil
	} else if len(m.Content.Parts) > 0 {
		wire.Content = m.Content.Parts
	} else {
		wire.Content = m.Content.Text
	}
	return json.Marshal(wire)
}

func (m *OpenAIMessage) UnmarshalJSON(data []byte) error {
	var wire struct {
		Role       string           `json:"role"`
		Content    json.RawMessage  `json:"content"`
		ToolCalls  []OpenAIToolCall `json:"tool_calls"`
		ToolCallID string           `json:"tool_call_id"`
		Name       string           `json:"name"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	m.Role, m.ToolCalls, m.ToolCallID, m.Name = wire.Role, wire.ToolCalls, wire.ToolCallID, wire.Name
	if len(wire.Content) == 0 {
		m.Content = OpenAIContent{IsNull: true}
		return nil
	}
	return json.Unmarshal(wire.Content, &m.Content)
}

// OpenAITool declares a function the model may call, in OpenAI's nested shape.
type OpenAITool struct {
	Type     string             `json:"type"` // "function"
	Function OpenAIToolFunction `json:"function"`
}

type OpenAIToolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// OpenAIResponse is a single-choice non-streaming completion envelope.
type OpenAIResponse struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Model   string         `json:"model"`
	Choices []OpenAIChoice `json:"choices"`
	Usage   OpenAIUsage    `json:"usage"`
}

type OpenAIChoice struct {
	Index        int             `json:"index"`
	Message      OpenAIMessage   `json:"message"`
	FinishReason *string         `json:"finish_reason"`
}

type OpenAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// OpenAIStreamChunk is one `data: {...}` frame of an OpenAI chat-completion
// SSE stream.
type OpenAIStreamChunk struct {
	ID      string               `json:"id"`
	Object  string               `json:"object"`
	Model   string               `json:"model"`
	Choices []OpenAIStreamChoice `json:"choices"`
	Usage   *OpenAIUsage         `json:"usage,omitempty"`
}

type OpenAIStreamChoice struct {
	Index        int              `json:"index"`
	Delta        OpenAIStreamDelta `json:"delta"`
	FinishReason *string          `json:"finish_reason"`
}

type OpenAIStreamDelta struct {
	Role      string                    `json:"role,omitempty"`
	Content   *string                   `json:"content,omitempty"`
	ToolCalls []OpenAIStreamToolCallDelta `json:"tool_calls,omitempty"`
}

// OpenAIStreamToolCallDelta carries one slot's worth of incremental tool
// call data; Index identifies the slot across chunks.
type OpenAIStreamToolCallDelta struct {
	Index    int                     `json:"index"`
	ID       string                  `json:"id,omitempty"`
	Type     string                  `json:"type,omitempty"`
	Function OpenAIFunctionCallDelta `json:"function,omitempty"`
}

type OpenAIFunctionCallDelta struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// OpenAIErrorBody is the {"error": {...}} envelope returned to OpenAI-dialect
// clients (spec §7).
type OpenAIErrorBody struct {
	Error OpenAIErrorDetail `json:"error"`
}

type OpenAIErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
