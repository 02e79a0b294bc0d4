package toolid

import "github.com/kestrelai/devstral-gateway/internal/translate/types"

// NormalizeOpenAIRequest returns a copy of req with every tool_calls[].id and
// tool message's tool_call_id rewritten to the 9-alphanumeric shape (req's
// own messages are left untouched), preserving referential
// integrity via the same two-pass Mapping approach request.FromAnthropic
// uses (spec §4.1, applied directly to the OpenAI wire shape for clients
// that already speak it).
func NormalizeOpenAIRequest(req types.OpenAIRequest) types.OpenAIRequest {
	mapping := NewMapping()

	for _, msg := range req.Messages {
		for _, call := range msg.ToolCalls {
			mapping.Observe(call.ID)
		}
	}

	messages := make([]types.OpenAIMessage, len(req.Messages))
	copy(messages, req.Messages)
	for i, msg := range messages {
		if len(msg.ToolCalls) > 0 {
			calls := make([]types.OpenAIToolCall, len(msg.ToolCalls))
			for j, call := range msg.ToolCalls {
				call.ID = mapping.Observe(call.ID)
				calls[j] = call
			}
			messages[i].ToolCalls = calls
		}
		if msg.Role == "tool" && msg.ToolCallID != "" {
			messages[i].ToolCallID = mapping.Lookup(msg.ToolCallID)
		}
	}
	req.Messages = messages

	return req
}
