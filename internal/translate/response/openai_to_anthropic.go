// Package response implements the non-streaming OpenAI→Anthropic response
// transform (spec §4.4). The streaming counterpart lives in
// internal/translate/stream, since it is a state machine rather than a
// single-shot mapping.
package response

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kestrelai/devstral-gateway/internal/translate/mistralparse"
	"github.com/kestrelai/devstral-gateway/internal/translate/toolid"
	"github.com/kestrelai/devstral-gateway/internal/translate/types"
)

// ToAnthropic maps an OpenAI chat-completion response onto an Anthropic
// message, using model as the declared output model name rather than
// whatever the upstream response's own "model" field says (spec §4.4).
func ToAnthropic(resp types.OpenAIResponse, model string) types.AnthropicResponse {
	out := types.AnthropicResponse{
		ID:    resp.ID,
		Type:  "message",
		Role:  "assistant",
		Model: model,
		Usage: types.AnthropicUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}

	var choice types.OpenAIChoice
	if len(resp.Choices) > 0 {
		choice = resp.Choices[0]
	}

	mapping := toolid.NewMapping()

	if choice.Message.Content.Text != "" {
		text, inline := recoverInlineToolCalls(choice.Message.Content.Text)
		if text != "" {
			out.Content = append(out.Content, types.AnthropicContentBlock{
				Type: types.AnthropicBlockText,
				Text: text,
			})
		}
		for i, call := range inline {
			out.Content = append(out.Content, toolUseBlock(mapping.Observe(syntheticID(call.Name, i)), call.Name, call.Arguments))
		}
	}

	for _, call := range choice.Message.ToolCalls {
		out.Content = append(out.Content, toolUseBlock(mapping.Observe(call.ID), call.Function.Name, json.RawMessage(call.Function.Arguments)))
	}

	if len(out.Content) == 0 {
		out.Content = append(out.Content, types.AnthropicContentBlock{Type: types.AnthropicBlockText, Text: ""})
	}

	out.StopReason = stopReasonFromFinishReason(choice.FinishReason)

	return out
}

// toolUseBlock builds a tool_use block, parsing arguments as JSON and
// falling back to a {"raw": arguments} wrapper when they don't parse
// (spec §4.4).
func toolUseBlock(id, name string, arguments json.RawMessage) types.AnthropicContentBlock {
	input := arguments
	var probe map[string]any
	if len(arguments) == 0 || json.Unmarshal(arguments, &probe) != nil {
		wrapped, err := json.Marshal(map[string]string{"raw": string(arguments)})
		if err == nil {
			input = wrapped
		} else {
			input = json.RawMessage("{}")
		}
	}
	return types.AnthropicContentBlock{
		Type:  types.AnthropicBlockToolUse,
		ID:    id,
		Name:  name,
		Input: input,
	}
}

// recoverInlineToolCalls parses [TOOL_CALLS] markers out of text (spec §4.2)
// and returns the prose before the first marker (trailing newlines trimmed)
// alongside the recovered calls; any text after the first marker is dropped.
// Text with no recoverable call passes through unchanged.
func recoverInlineToolCalls(text string) (string, []mistralparse.ToolCall) {
	calls := mistralparse.Parse(text)
	if len(calls) == 0 {
		return text, nil
	}
	idx := strings.Index(text, "[TOOL_CALLS]")
	prose := text
	if idx >= 0 {
		prose = text[:idx]
	}
	return strings.TrimRight(prose, "\n"), calls
}

// syntheticID derives a per-call identifier to feed into the ID mapping
// when the source carried no id at all (inline recovery has none); index
// keeps repeated calls to the same tool from colliding onto one id.
func syntheticID(name string, index int) string {
	return fmt.Sprintf("inline_%s_%d", name, index)
}

// stopReasonFromFinishReason maps finish_reason per spec §4.4: stop→end_turn,
// tool_calls→tool_use, length→max_tokens, anything else passes through
// verbatim, and an absent reason stays absent.
func stopReasonFromFinishReason(reason *string) *string {
	if reason == nil {
		return nil
	}
	mapped := func(v string) *string { return &v }

	switch *reason {
	case "stop":
		return mapped("end_turn")
	case "tool_calls":
		return mapped("tool_use")
	case "length":
		return mapped("max_tokens")
	default:
		return mapped(*reason)
	}
}
