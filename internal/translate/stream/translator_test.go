package stream_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelai/devstral-gateway/internal/translate/stream"
	"github.com/kestrelai/devstral-gateway/internal/translate/types"
)

func sse(payload string) []byte {
	return []byte("data: " + payload + "\n\n")
}

func eventTypes(events []types.AnthropicEvent) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

func TestTranslator_SimpleTextStream(t *testing.T) {
	tr := stream.New("msg_1", "claude-3", 12)

	var all []types.AnthropicEvent
	all = append(all, tr.Feed(sse(`{"id":"c1","choices":[{"index":0,"delta":{"role":"assistant"}}]}`))...)
	all = append(all, tr.Feed(sse(`{"id":"c1","choices":[{"index":0,"delta":{"content":"Hello"}}]}`))...)
	all = append(all, tr.Feed(sse(`{"id":"c1","choices":[{"index":0,"delta":{"content":" world"},"finish_reason":"stop"}]}`))...)
	all = append(all, tr.Feed(sse(`{"id":"c1","choices":[],"usage":{"prompt_tokens":12,"completion_tokens":2}}`))...)
	all = append(all, tr.Feed([]byte("data: [DONE]\n\n"))...)

	assert.Equal(t, []string{
		"message_start",
		"content_block_start",
		"content_block_delta",
		"content_block_delta",
		"content_block_stop",
		"message_delta",
		"message_stop",
	}, eventTypes(all))

	delta := all[len(all)-2].Data.(types.MessageDeltaData)
	require.NotNil(t, delta.Delta.StopReason)
	assert.Equal(t, "end_turn", *delta.Delta.StopReason)
	assert.Equal(t, 2, delta.Usage.OutputTokens)
}

func TestTranslator_ToolCallStream(t *testing.T) {
	tr := stream.New("msg_2", "claude-3", 5)

	var all []types.AnthropicEvent
	all = append(all, tr.Feed(sse(`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_abc123","type":"function","function":{"name":"get_weather","arguments":""}}]}}]}`))...)
	all = append(all, tr.Feed(sse(`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"city\":"}}]}}]}`))...)
	chunk3 := `{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"nyc\"}"}}]},"finish_reason":"tool_calls"}]}`
	all = append(all, tr.Feed(sse(chunk3))...)
	all = append(all, tr.Feed(sse(`{"choices":[],"usage":{"prompt_tokens":5,"completion_tokens":3}}`))...)

	require.GreaterOrEqual(t, len(all), 5)
	assert.Equal(t, "message_start", all[0].Type)
	assert.Equal(t, "content_block_start", all[1].Type)
	start := all[1].Data.(types.ContentBlockStartData)
	assert.Equal(t, types.AnthropicBlockToolUse, start.ContentBlock.Type)
	assert.Equal(t, "get_weather", start.ContentBlock.Name)
	assert.Regexp(t, `^[a-zA-Z0-9]{9}$`, start.ContentBlock.ID)

	last := all[len(all)-1]
	assert.Equal(t, "message_stop", last.Type)
	delta := all[len(all)-2].Data.(types.MessageDeltaData)
	require.NotNil(t, delta.Delta.StopReason)
	assert.Equal(t, "tool_use", *delta.Delta.StopReason)
}

func TestTranslator_MistralInlineToolCall(t *testing.T) {
	tr := stream.New("msg_3", "devstral-small", 8)

	var all []types.AnthropicEvent
	all = append(all, tr.Feed(sse(`{"choices":[{"index":0,"delta":{"content":"[TOOL_CALLS]sea"}}]}`))...)
	all = append(all, tr.Feed(sse(`{"choices":[{"index":0,"delta":{"content":"rch{\"q\":"}}]}`))...)
	all = append(all, tr.Feed(sse(`{"choices":[{"index":0,"delta":{"content":"\"x\"}"},"finish_reason":"stop"}]}`))...)
	all = append(all, tr.Feed(sse(`{"choices":[],"usage":{"prompt_tokens":8,"completion_tokens":4}}`))...)

	var sawToolUse bool
	var sawTextDelta bool
	for _, e := range all {
		switch data := e.Data.(type) {
		case types.ContentBlockStartData:
			if data.ContentBlock.Type == types.AnthropicBlockToolUse {
				sawToolUse = true
				assert.Equal(t, "search", data.ContentBlock.Name)
			}
		case types.ContentBlockDeltaData:
			if data.Delta.Type == "text_delta" {
				sawTextDelta = true
			}
		}
	}
	assert.True(t, sawToolUse, "expected a recovered tool_use block")
	assert.False(t, sawTextDelta, "marker text must never be emitted as text_delta")

	last := all[len(all)-1]
	assert.Equal(t, "message_stop", last.Type)
	delta := all[len(all)-2].Data.(types.MessageDeltaData)
	require.NotNil(t, delta.Delta.StopReason)
	assert.Equal(t, "tool_use", *delta.Delta.StopReason)
}

func TestTranslator_NonDataLinesAreIgnored(t *testing.T) {
	tr := stream.New("msg_4", "claude-3", 1)

	events := tr.Feed([]byte(": comment\n\ndata: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"hi\"}}]}\n\n"))
	assert.Equal(t, "message_start", events[0].Type)
}

func TestTranslator_MalformedJSONLineIsSkipped(t *testing.T) {
	tr := stream.New("msg_5", "claude-3", 1)

	events := tr.Feed([]byte("data: {not json}\n\ndata: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"hi\"}}]}\n\n"))
	require.Len(t, events, 3)
	assert.Equal(t, "message_start", events[0].Type)
	assert.Equal(t, "content_block_start", events[1].Type)
	assert.Equal(t, "content_block_delta", events[2].Type)
}

func TestTranslator_FinishWithoutDoneStillClosesMessage(t *testing.T) {
	tr := stream.New("msg_6", "claude-3", 1)

	_ = tr.Feed(sse(`{"choices":[{"index":0,"delta":{"content":"hi"},"finish_reason":"stop"}]}`))
	events := tr.Finish()

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, "message_stop", last.Type)
}

func TestTranslator_PartialLineAcrossFeedCallsIsReassembled(t *testing.T) {
	tr := stream.New("msg_7", "claude-3", 1)

	full := `{"choices":[{"index":0,"delta":{"content":"hi"}}]}`
	first := tr.Feed([]byte("data: " + full[:10]))
	assert.Empty(t, first)
	second := tr.Feed([]byte(full[10:] + "\n\n"))
	require.Len(t, second, 3)
}
