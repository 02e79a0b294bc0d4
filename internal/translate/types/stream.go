package types

import "encoding/json"

// Anthropic SSE event type names (spec §3, §6).
const (
	EventMessageStart      = "message_start"
	EventContentBlockStart = "content_block_start"
	EventContentBlockDelta = "content_block_delta"
	EventContentBlockStop  = "content_block_stop"
	EventMessageDelta      = "message_delta"
	EventMessageStop       = "message_stop"
	EventError             = "error"
)

// AnthropicEvent pairs an SSE event name with its JSON payload, the unit the
// stream translator emits and the gateway writes to the wire.
type AnthropicEvent struct {
	Type string
	Data any
}

// MessageStartData is the payload of a message_start event.
type MessageStartData struct {
	Type    string                  `json:"type"`
	Message MessageStartDataMessage `json:"message"`
}

type MessageStartDataMessage struct {
	ID           string                  `json:"id"`
	Type         string                  `json:"type"`
	Role         string                  `json:"role"`
	Content      []AnthropicContentBlock `json:"content"`
	Model        string                  `json:"model"`
	StopReason   *string                 `json:"stop_reason"`
	StopSequence *string                 `json:"stop_sequence"`
	Usage        AnthropicUsage          `json:"usage"`
}

// ContentBlockStartData is the payload of a content_block_start event.
type ContentBlockStartData struct {
	Type         string                `json:"type"`
	Index        int                   `json:"index"`
	ContentBlock AnthropicContentBlock `json:"content_block"`
}

// ContentBlockDeltaData is the payload of a content_block_delta event.
type ContentBlockDeltaData struct {
	Type  string             `json:"type"`
	Index int                `json:"index"`
	Delta AnthropicDelta     `json:"delta"`
}

// AnthropicDelta is a tagged variant: text_delta or input_json_delta.
type AnthropicDelta struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
}

func TextDelta(text string) AnthropicDelta {
	return AnthropicDelta{Type: "text_delta", Text: text}
}

func InputJSONDelta(partialJSON string) AnthropicDelta {
	return AnthropicDelta{Type: "input_json_delta", PartialJSON: partialJSON}
}

// ContentBlockStopData is the payload of a content_block_stop event.
type ContentBlockStopData struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// MessageDeltaData is the payload of a message_delta event.
type MessageDeltaData struct {
	Type  string               `json:"type"`
	Delta MessageDeltaInner    `json:"delta"`
	Usage AnthropicUsage       `json:"usage"`
}

type MessageDeltaInner struct {
	StopReason   *string `json:"stop_reason"`
	StopSequence *string `json:"stop_sequence"`
}

// MessageStopData is the payload of a message_stop event.
type MessageStopData struct {
	Type string `json:"type"`
}

// StreamErrorData is the payload of an error event raised mid-stream
// (spec §7 TranslationError).
type StreamErrorData struct {
	Type  string              `json:"type"`
	Error AnthropicErrorDetail `json:"error"`
}

// MarshalEventData renders an AnthropicEvent's Data field to compact JSON.
func MarshalEventData(v any) ([]byte, error) {
	return json.Marshal(v)
}
