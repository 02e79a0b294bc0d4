// Package request implements the two inbound normalization paths the
// gateway needs before a payload can be handed to an OpenAI-compatible
// Mistral backend: Anthropic→OpenAI (§4.3) and a lighter OpenAI→OpenAI
// compatibility pass (§4.3a) for clients that already speak the backend's
// dialect.
package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kestrelai/devstral-gateway/internal/translate/toolid"
	"github.com/kestrelai/devstral-gateway/internal/translate/types"
)

const sentinelContinue = "Continue."

// visionPreamble is prepended as its own leading system message when the
// caller routes a request to the vision backend, per spec §4.3.
const visionPreamble = "You are assisting with a request that includes one or more images. " +
	"Describe and reason about image contents precisely before answering the user's question."

// Options configures FromAnthropic.
type Options struct {
	// VisionPreamble prepends visionPreamble ahead of the caller's own
	// system prompt, for requests routed to the vision backend.
	VisionPreamble bool
}

// FromAnthropic converts an AnthropicRequest into the OpenAI-dialect shape
// the backend expects, enforcing Mistral's message-sequence rules along the
// way (spec §4.3). The returned mapping is exposed so callers that also need
// the tool-ID mapping for response-side bookkeeping don't have to recompute it.
func FromAnthropic(req types.AnthropicRequest, opts Options) (types.OpenAIRequest, toolid.Mapping) {
	mapping := toolid.NewMapping()
	for _, msg := range req.Messages {
		if msg.Role != "assistant" {
			continue
		}
		for _, block := range msg.Content.Blocks {
			if block.Type == types.AnthropicBlockToolUse {
				mapping.Observe(block.ID)
			}
		}
	}

	var out types.OpenAIRequest
	out.Model = req.Model

	if maxTokens := req.MaxTokens; maxTokens > 0 {
		out.MaxTokens = &maxTokens
	}
	out.Temperature = req.Temperature
	out.TopP = req.TopP
	out.Stop = req.StopSequences

	if opts.VisionPreamble {
		out.Messages = append(out.Messages, types.OpenAIMessage{
			Role:    "system",
			Content: types.OpenAIContent{Text: visionPreamble},
		})
	}
	if systemText := systemPromptText(req.System); systemText != "" {
		out.Messages = append(out.Messages, types.OpenAIMessage{
			Role:    "system",
			Content: types.OpenAIContent{Text: systemText},
		})
	}

	for _, msg := range req.Messages {
		out.Messages = append(out.Messages, convertMessage(msg, mapping)...)
	}

	enforceTrailingRule(&out.Messages)

	if len(req.Tools) > 0 {
		out.Tools = make([]types.OpenAITool, 0, len(req.Tools))
		for _, tool := range req.Tools {
			out.Tools = append(out.Tools, types.OpenAITool{
				Type: "function",
				Function: types.OpenAIToolFunction{
					Name:        SanitizeToolName(tool.Name),
					Description: tool.Description,
					Parameters:  tool.InputSchema,
				},
			})
		}
	}

	if len(req.ToolChoice) > 0 {
		out.ToolChoice = toolChoiceFromAnthropic(req.ToolChoice)
	}

	if req.Stream {
		out.Stream = true
		out.StreamOptions = &types.StreamOptions{IncludeUsage: true}
	}

	return out, mapping
}

// systemPromptText collapses an AnthropicSystem into a single string: a
// string prompt passes through, a list of text blocks is newline-joined.
func systemPromptText(sys *types.AnthropicSystem) string {
	if sys.IsEmpty() {
		return ""
	}
	if sys.Text != "" {
		return sys.Text
	}
	var parts []string
	for _, block := range sys.Blocks {
		if block.Type == types.AnthropicBlockText && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// convertMessage maps one Anthropic message to zero or more OpenAI
// messages, per the branching rules in spec §4.3.
func convertMessage(msg types.AnthropicMessage, mapping toolid.Mapping) []types.OpenAIMessage {
	if len(msg.Content.Blocks) == 0 {
		return []types.OpenAIMessage{{
			Role:    msg.Role,
			Content: types.OpenAIContent{Text: msg.Content.Text},
		}}
	}

	hasToolResult := false
	hasToolUse := false
	for _, block := range msg.Content.Blocks {
		switch block.Type {
		case types.AnthropicBlockToolResult:
			hasToolResult = true
		case types.AnthropicBlockToolUse:
			hasToolUse = true
		}
	}

	if msg.Role == "user" && hasToolResult {
		return toolResultMessages(msg.Content.Blocks, mapping)
	}

	if msg.Role == "assistant" && hasToolUse {
		return []types.OpenAIMessage{assistantToolCallMessage(msg.Content.Blocks, mapping)}
	}

	return []types.OpenAIMessage{genericContentMessage(msg.Role, msg.Content.Blocks)}
}

// toolResultMessages emits one OpenAI "tool" message per tool_result block.
// Text blocks in the same Anthropic message are dropped: Mistral's sequence
// rules don't allow a user message to sit between a tool message and the
// next assistant turn.
func toolResultMessages(blocks []types.AnthropicContentBlock, mapping toolid.Mapping) []types.OpenAIMessage {
	var out []types.OpenAIMessage
	for _, block := range blocks {
		if block.Type != types.AnthropicBlockToolResult {
			continue
		}
		out = append(out, types.OpenAIMessage{
			Role:       "tool",
			ToolCallID: mapping.Lookup(block.ToolUseID),
			Content:    types.OpenAIContent{Text: toolResultText(block.Content)},
		})
	}
	return out
}

// toolResultText stringifies a tool_result's content: strings pass through,
// nested block lists are JSON-encoded.
func toolResultText(content types.AnthropicToolResultContent) string {
	if len(content.Blocks) == 0 {
		return content.Text
	}
	encoded, err := json.Marshal(content.Blocks)
	if err != nil {
		return content.Text
	}
	return string(encoded)
}

// assistantToolCallMessage merges an assistant message's text blocks into
// one body (nil if none) and its tool_use blocks into tool_calls.
func assistantToolCallMessage(blocks []types.AnthropicContentBlock, mapping toolid.Mapping) types.OpenAIMessage {
	var texts []string
	var toolCalls []types.OpenAIToolCall

	for _, block := range blocks {
		switch block.Type {
		case types.AnthropicBlockText:
			if block.Text != "" {
				texts = append(texts, block.Text)
			}
		case types.AnthropicBlockToolUse:
			input := block.Input
			if len(input) == 0 {
				input = json.RawMessage("{}")
			}
			toolCalls = append(toolCalls, types.OpenAIToolCall{
				ID:   mapping.Observe(block.ID),
				Type: "function",
				Function: types.OpenAIFunctionCall{
					Name:      SanitizeToolName(block.Name),
					Arguments: string(input),
				},
			})
		}
	}

	content := types.OpenAIContent{IsNull: true}
	if len(texts) > 0 {
		content = types.OpenAIContent{Text: strings.Join(texts, "\n")}
	}

	return types.OpenAIMessage{
		Role:      "assistant",
		Content:   content,
		ToolCalls: toolCalls,
	}
}

// genericContentMessage maps text/image/unknown blocks to OpenAI content
// parts, preserving role and order.
func genericContentMessage(role string, blocks []types.AnthropicContentBlock) types.OpenAIMessage {
	parts := make([]types.OpenAIContentPart, 0, len(blocks))
	for _, block := range blocks {
		switch block.Type {
		case types.AnthropicBlockText:
			parts = append(parts, types.OpenAIContentPart{Type: types.OpenAIPartText, Text: block.Text})
		case types.AnthropicBlockImage:
			parts = append(parts, types.OpenAIContentPart{
				Type: types.OpenAIPartImageURL,
				ImageURL: types.OpenAIImageURL{
					URL: fmt.Sprintf("data:%s;base64,%s", block.Source.MediaType, block.Source.Data),
				},
			})
		default:
			parts = append(parts, types.OpenAIContentPart{Type: types.OpenAIPartText, Text: forwardCompatText(block)})
		}
	}
	return types.OpenAIMessage{Role: role, Content: types.OpenAIContent{Parts: parts}}
}

// forwardCompatText serializes an unrecognized block type to JSON text, per
// spec §4.3's "Unknown block types" rule.
func forwardCompatText(block types.AnthropicContentBlock) string {
	if len(block.Raw) > 0 {
		var compact bytes.Buffer
		if err := json.Compact(&compact, block.Raw); err == nil {
			return compact.String()
		}
		return string(block.Raw)
	}
	encoded, err := json.Marshal(block)
	if err != nil {
		return ""
	}
	return string(encoded)
}

// enforceTrailingRule appends a sentinel "Continue." user message when the
// outbound list would otherwise end with a bare assistant message (spec §3,
// §4.3). A trailing tool message is a legal terminator and is left alone.
func enforceTrailingRule(messages *[]types.OpenAIMessage) {
	if len(*messages) == 0 {
		return
	}
	last := (*messages)[len(*messages)-1]
	if last.Role != "assistant" {
		return
	}
	if len(last.ToolCalls) > 0 {
		return
	}
	*messages = append(*messages, types.OpenAIMessage{
		Role:    "user",
		Content: types.OpenAIContent{Text: sentinelContinue},
	})
}

// toolChoiceFromAnthropic maps Anthropic's {"type":"auto"|"any"|"tool","name":…}
// tool_choice shape onto OpenAI's "auto" | "required" | {"type":"function",…}.
func toolChoiceFromAnthropic(raw json.RawMessage) json.RawMessage {
	var choice struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &choice); err != nil {
		return nil
	}
	switch choice.Type {
	case "auto":
		return json.RawMessage(`"auto"`)
	case "any":
		return json.RawMessage(`"required"`)
	case "tool":
		encoded, err := json.Marshal(map[string]any{
			"type": "function",
			"function": map[string]string{
				"name": SanitizeToolName(choice.Name),
			},
		})
		if err != nil {
			return nil
		}
		return encoded
	default:
		return nil
	}
}
