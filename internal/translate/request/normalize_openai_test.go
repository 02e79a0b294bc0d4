package request_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelai/devstral-gateway/internal/translate/request"
	"github.com/kestrelai/devstral-gateway/internal/translate/types"
)

func TestNormalizeOpenAI_RewritesToolCallIDsConsistently(t *testing.T) {
	req := types.OpenAIRequest{
		Messages: []types.OpenAIMessage{
			{Role: "user", Content: types.OpenAIContent{Text: "weather?"}},
			{
				Role: "assistant",
				ToolCalls: []types.OpenAIToolCall{
					{ID: "call_not9chars", Type: "function", Function: types.OpenAIFunctionCall{Name: "get_weather", Arguments: "{}"}},
				},
			},
			{Role: "tool", ToolCallID: "call_not9chars", Content: types.OpenAIContent{Text: "sunny"}},
		},
	}

	out := request.NormalizeOpenAI(req, true)

	normalizedID := out.Messages[1].ToolCalls[0].ID
	assert.Regexp(t, `^[a-zA-Z0-9]{9}$`, normalizedID)
	assert.Equal(t, normalizedID, out.Messages[2].ToolCallID)
}

func TestNormalizeOpenAI_AppendsSentinelForTrailingAssistant(t *testing.T) {
	req := types.OpenAIRequest{
		Messages: []types.OpenAIMessage{
			{Role: "user", Content: types.OpenAIContent{Text: "hi"}},
			{Role: "assistant", Content: types.OpenAIContent{Text: "hello"}},
		},
	}

	out := request.NormalizeOpenAI(req, true)

	last := out.Messages[len(out.Messages)-1]
	assert.Equal(t, "user", last.Role)
	assert.Equal(t, "Continue.", last.Content.Text)
}

func TestNormalizeOpenAI_StripsImagesWhenNoVisionBackend(t *testing.T) {
	req := types.OpenAIRequest{
		Messages: []types.OpenAIMessage{
			{Role: "user", Content: types.OpenAIContent{Parts: []types.OpenAIContentPart{
				{Type: types.OpenAIPartImageURL, ImageURL: types.OpenAIImageURL{URL: "data:image/png;base64,AAA"}},
			}}},
			{Role: "assistant", Content: types.OpenAIContent{Text: "noted"}},
		},
	}

	out := request.NormalizeOpenAI(req, false)

	parts := out.Messages[0].Content.Parts
	require.Len(t, parts, 1)
	assert.Equal(t, types.OpenAIPartText, parts[0].Type)
	assert.Contains(t, parts[0].Text, "previously analyzed")
}

func TestNormalizeOpenAI_LeavesImagesWhenVisionBackendConfigured(t *testing.T) {
	req := types.OpenAIRequest{
		Messages: []types.OpenAIMessage{
			{Role: "user", Content: types.OpenAIContent{Parts: []types.OpenAIContentPart{
				{Type: types.OpenAIPartImageURL, ImageURL: types.OpenAIImageURL{URL: "data:image/png;base64,AAA"}},
			}}},
		},
	}

	out := request.NormalizeOpenAI(req, true)

	assert.True(t, request.HasImage(out))
}

func TestStripOrRouteImages_DropsImageInFinalMessage(t *testing.T) {
	req := types.OpenAIRequest{
		Messages: []types.OpenAIMessage{
			{Role: "user", Content: types.OpenAIContent{Parts: []types.OpenAIContentPart{
				{Type: types.OpenAIPartText, Text: "look"},
				{Type: types.OpenAIPartImageURL, ImageURL: types.OpenAIImageURL{URL: "data:image/png;base64,AAA"}},
			}}},
		},
	}

	out := request.StripOrRouteImages(req)

	parts := out.Messages[0].Content.Parts
	require.Len(t, parts, 1)
	assert.Equal(t, "look", parts[0].Text)
}
