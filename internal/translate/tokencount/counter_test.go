package tokencount_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kestrelai/devstral-gateway/internal/translate/tokencount"
	"github.com/kestrelai/devstral-gateway/internal/translate/types"
)

func TestCount_SimpleMessageIsPositive(t *testing.T) {
	req := types.AnthropicRequest{
		Messages: []types.AnthropicMessage{
			{Role: "user", Content: types.AnthropicMessageContent{Text: "hello"}},
		},
	}

	n := tokencount.Count(req)
	assert.Greater(t, n, 0)
}

func TestCount_IsDeterministic(t *testing.T) {
	req := types.AnthropicRequest{
		Messages: []types.AnthropicMessage{
			{Role: "user", Content: types.AnthropicMessageContent{Text: "hello"}},
		},
		Tools: []types.AnthropicTool{
			{Name: "t", Description: "d", InputSchema: json.RawMessage(`{"k":"v"}`)},
		},
	}

	first := tokencount.Count(req)
	second := tokencount.Count(req)
	assert.Equal(t, first, second)
	assert.Greater(t, first, 0)
}

func TestCount_ToolsIncreaseCount(t *testing.T) {
	base := types.AnthropicRequest{
		Messages: []types.AnthropicMessage{
			{Role: "user", Content: types.AnthropicMessageContent{Text: "hello"}},
		},
	}
	withTools := base
	withTools.Tools = []types.AnthropicTool{
		{Name: "search", Description: "search the web", InputSchema: json.RawMessage(`{"type":"object","properties":{"q":{"type":"string"}}}`)},
	}

	assert.Greater(t, tokencount.Count(withTools), tokencount.Count(base))
}

func TestCount_SystemPromptTextCounted(t *testing.T) {
	base := types.AnthropicRequest{
		Messages: []types.AnthropicMessage{
			{Role: "user", Content: types.AnthropicMessageContent{Text: "hello"}},
		},
	}
	withSystem := base
	withSystem.System = &types.AnthropicSystem{Text: "You are a careful assistant that always double checks its work."}

	assert.Greater(t, tokencount.Count(withSystem), tokencount.Count(base))
}

func TestCount_ToolUseAndToolResultBlocksCounted(t *testing.T) {
	req := types.AnthropicRequest{
		Messages: []types.AnthropicMessage{
			{Role: "assistant", Content: types.AnthropicMessageContent{Blocks: []types.AnthropicContentBlock{
				{Type: types.AnthropicBlockToolUse, ID: "call_1", Name: "search", Input: json.RawMessage(`{"q":"golang tokenizers"}`)},
			}}},
			{Role: "user", Content: types.AnthropicMessageContent{Blocks: []types.AnthropicContentBlock{
				{Type: types.AnthropicBlockToolResult, ToolUseID: "call_1", Content: types.AnthropicToolResultContent{Text: "some long result text here"}},
			}}},
		},
	}

	assert.Greater(t, tokencount.Count(req), 0)
}

func TestCount_EmptyRequestIsZero(t *testing.T) {
	assert.Equal(t, 0, tokencount.Count(types.AnthropicRequest{}))
}

func TestCount_S5Scenario(t *testing.T) {
	req := types.AnthropicRequest{
		Messages: []types.AnthropicMessage{
			{Role: "user", Content: types.AnthropicMessageContent{Text: "hello"}},
		},
		Tools: []types.AnthropicTool{
			{Name: "t", Description: "d", InputSchema: json.RawMessage(`{"k":"v"}`)},
		},
	}

	n := tokencount.Count(req)
	assert.Greater(t, n, 0)
}
