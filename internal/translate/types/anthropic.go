// Package types models the wire shapes of both API dialects the gateway
// speaks: Anthropic's Messages API and OpenAI's Chat Completions API.
//
// Each payload is a narrow, explicit struct per message role and content
// variant rather than a single generated union type — the content blocks in
// particular are tagged variants distinguished by their Type field, decoded
// and encoded through custom (Un)MarshalJSON so callers never have to probe
// a grab-bag of optional fields to figure out what they're holding.
package types

import (
	"encoding/json"
	"fmt"
)

// AnthropicRequest is the body of POST /v1/messages.
type AnthropicRequest struct {
	Model      string              `json:"model"`
	MaxTokens  int                 `json:"max_tokens"`
	Messages   []AnthropicMessage  `json:"messages"`
	System     *AnthropicSystem    `json:"system,omitempty"`
	Tools      []AnthropicTool     `json:"tools,omitempty"`
	ToolChoice json.RawMessage     `json:"tool_choice,omitempty"`
	Stream     bool                `json:"stream,omitempty"`
	Temperature *float64           `json:"temperature,omitempty"`
	TopP        *float64           `json:"top_p,omitempty"`
	StopSequences []string         `json:"stop_sequences,omitempty"`
}

// AnthropicSystem holds the system prompt, which arrives either as a bare
// string or as an ordered list of text blocks.
type AnthropicSystem struct {
	Text   string
	Blocks []AnthropicContentBlock
}

// IsEmpty reports whether the system prompt carries no text at all.
func (s *AnthropicSystem) IsEmpty() bool {
	if s == nil {
		return true
	}
	return s.Text == "" && len(s.Blocks) == 0
}

func (s *AnthropicSystem) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		s.Text = asString
		return nil
	}

	var asBlocks []AnthropicContentBlock
	if err := json.Unmarshal(data, &asBlocks); err != nil {
		return fmt.Errorf("system prompt is neither a string nor a content block list: %w", err)
	}
	s.Blocks = asBlocks
	return nil
}

func (s AnthropicSystem) MarshalJSON() ([]byte, error) {
	if len(s.Blocks) > 0 {
		return json.Marshal(s.Blocks)
	}
	return json.Marshal(s.Text)
}

// AnthropicMessage is one turn of the conversation.
type AnthropicMessage struct {
	Role    string              // "user" | "assistant"
	Content AnthropicMessageContent
}

// AnthropicMessageContent is either a bare string or an ordered list of
// content blocks.
type AnthropicMessageContent struct {
	Text   string
	Blocks []AnthropicContentBlock
}

func (m *AnthropicMessage) UnmarshalJSON(data []byte) error {
	var wire struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	m.Role = wire.Role

	var asString string
	if err := json.Unmarshal(wire.Content, &asString); err == nil {
		m.Content = AnthropicMessageContent{Text: asString}
		return nil
	}

	var asBlocks []AnthropicContentBlock
	if err := json.Unmarshal(wire.Content, &asBlocks); err != nil {
		return fmt.Errorf("message content is neither a string nor a block list: %w", err)
	}
	m.Content = AnthropicMessageContent{Blocks: asBlocks}
	return nil
}

func (m AnthropicMessage) MarshalJSON() ([]byte, error) {
	wire := struct {
		Role    string `json:"role"`
		Content any    `json:"content"`
	}{Role: m.Role}

	if len(m.Content.Blocks) > 0 {
		wire.Content = m.Content.Blocks
	} else {
		wire.Content = m.Content.Text
	}
	return json.Marshal(wire)
}

// AnthropicContentBlockType enumerates the tagged variants of a content block.
type AnthropicContentBlockType string

const (
	AnthropicBlockText       AnthropicContentBlockType = "text"
	AnthropicBlockImage      AnthropicContentBlockType = "image"
	AnthropicBlockToolUse    AnthropicContentBlockType = "tool_use"
	AnthropicBlockToolResult AnthropicContentBlockType = "tool_result"
)

// AnthropicImageSource describes a base64-inlined image.
type AnthropicImageSource struct {
	Type      string `json:"type"` // "base64"
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// AnthropicToolResultContent is either a plain string or a nested list of
// content blocks (spec §3: "content that is string or nested block list").
type AnthropicToolResultContent struct {
	Text   string
	Blocks []AnthropicContentBlock
}

func (c *AnthropicToolResultContent) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		c.Text = asString
		return nil
	}
	var asBlocks []AnthropicContentBlock
	if err := json.Unmarshal(data, &asBlocks); err != nil {
		return fmt.Errorf("tool_result content is neither a string nor a block list: %w", err)
	}
	c.Blocks = asBlocks
	return nil
}

func (c AnthropicToolResultContent) MarshalJSON() ([]byte, error) {
	if len(c.Blocks) > 0 {
		return json.Marshal(c.Blocks)
	}
	return json.Marshal(c.Text)
}

// AnthropicContentBlock is a tagged variant: text, image, tool_use, or
// tool_result. Unrecognized types are preserved verbatim in Raw so callers
// that only forward blocks (rather than interpret them) don't lose data.
type AnthropicContentBlock struct {
	Type AnthropicContentBlockType

	// text
	Text string

	// image
	Source AnthropicImageSource

	// tool_use
	ID    string
	Name  string
	Input json.RawMessage

	// tool_result
	ToolUseID string
	Content   AnthropicToolResultContent
	IsError   bool

	// Raw holds the original JSON for block types this model doesn't know
	// about, so the forward-compat "wrap as text with JSON serialization"
	// rule in spec §4.3 has something to wrap.
	Raw json.RawMessage
}

func (b *AnthropicContentBlock) UnmarshalJSON(data []byte) error {
	b.Raw = append(json.RawMessage(nil), data...)

	var head struct {
		Type AnthropicContentBlockType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	b.Type = head.Type

	switch head.Type {
	case AnthropicBlockText:
		var v struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		b.Text = v.Text
	case AnthropicBlockImage:
		var v struct {
			Source AnthropicImageSource `json:"source"`
		}
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		b.Source = v.Source
	case AnthropicBlockToolUse:
		var v struct {
			ID    string          `json:"id"`
			Name  string          `json:"name"`
			Input json.RawMessage `json:"input"`
		}
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		b.ID, b.Name, b.Input = v.ID, v.Name, v.Input
	case AnthropicBlockToolResult:
		var v struct {
			ToolUseID string                     `json:"tool_use_id"`
			Content   AnthropicToolResultContent `json:"content"`
			IsError   bool                       `json:"is_error"`
		}
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		b.ToolUseID, b.Content, b.IsError = v.ToolUseID, v.Content, v.IsError
	}
	return nil
}

func (b AnthropicContentBlock) MarshalJSON() ([]byte, error) {
	switch b.Type {
	case AnthropicBlockText:
		return json.Marshal(struct {
			Type AnthropicContentBlockType `json:"type"`
			Text string                    `json:"text"`
		}{b.Type, b.Text})
	case AnthropicBlockImage:
		return json.Marshal(struct {
			Type   AnthropicContentBlockType `json:"type"`
			Source AnthropicImageSource      `json:"source"`
		}{b.Type, b.Source})
	case AnthropicBlockToolUse:
		input := b.Input
		if input == nil {
			input = json.RawMessage("{}")
		}
		return json.Marshal(struct {
			Type  AnthropicContentBlockType `json:"type"`
			ID    string                    `json:"id"`
			Name  string                    `json:"name"`
			Input json.RawMessage           `json:"input"`
		}{b.Type, b.ID, b.Name, input})
	case AnthropicBlockToolResult:
		return json.Marshal(struct {
			Type      AnthropicContentBlockType  `json:"type"`
			ToolUseID string                     `json:"tool_use_id"`
			Content   AnthropicToolResultContent `json:"content"`
			IsError   bool                       `json:"is_error,omitempty"`
		}{b.Type, b.ToolUseID, b.Content, b.IsError})
	default:
		if len(b.Raw) > 0 {
			return b.Raw, nil
		}
		return json.Marshal(map[string]string{"type": string(b.Type)})
	}
}

// AnthropicTool declares a function the model may call.
type AnthropicTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// AnthropicResponse is the body returned from a non-streaming POST /v1/messages.
type AnthropicResponse struct {
	ID         string                  `json:"id"`
	Type       string                  `json:"type"` // "message"
	Role       string                  `json:"role"` // "assistant"
	Content    []AnthropicContentBlock `json:"content"`
	Model      string                  `json:"model"`
	StopReason *string                 `json:"stop_reason"`
	Usage      AnthropicUsage          `json:"usage"`
}

// AnthropicUsage reports token accounting in Anthropic's vocabulary.
type AnthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// AnthropicErrorBody is the {"error": {...}} envelope returned to Anthropic
// clients (spec §7).
type AnthropicErrorBody struct {
	Error AnthropicErrorDetail `json:"error"`
}

type AnthropicErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
