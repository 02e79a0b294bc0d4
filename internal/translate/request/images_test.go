package request_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kestrelai/devstral-gateway/internal/translate/request"
	"github.com/kestrelai/devstral-gateway/internal/translate/types"
)

func TestHasAnthropicImage(t *testing.T) {
	withImage := types.AnthropicRequest{Messages: []types.AnthropicMessage{{
		Role: "user",
		Content: types.AnthropicMessageContent{Blocks: []types.AnthropicContentBlock{
			{Type: types.AnthropicBlockImage, Source: types.AnthropicImageSource{Type: "base64", MediaType: "image/png", Data: "xx"}},
		}},
	}}}
	assert.True(t, request.HasAnthropicImage(withImage))

	withoutImage := types.AnthropicRequest{Messages: []types.AnthropicMessage{
		{Role: "user", Content: types.AnthropicMessageContent{Text: "hello"}},
	}}
	assert.False(t, request.HasAnthropicImage(withoutImage))
}

func TestHasImage_OpenAIRequest(t *testing.T) {
	withImage := types.OpenAIRequest{Messages: []types.OpenAIMessage{{
		Role: "user",
		Content: types.OpenAIContent{Parts: []types.OpenAIContentPart{
			{Type: types.OpenAIPartImageURL, ImageURL: types.OpenAIImageURL{URL: "data:image/png;base64,xx"}},
		}},
	}}}
	assert.True(t, request.HasImage(withImage))

	assert.False(t, request.HasImage(types.OpenAIRequest{Messages: []types.OpenAIMessage{
		{Role: "user", Content: types.OpenAIContent{Text: "hello"}},
	}}))
}

func TestStripOrRouteImages_HistoryVsFinalMessage(t *testing.T) {
	req := types.OpenAIRequest{Messages: []types.OpenAIMessage{
		{Role: "user", Content: types.OpenAIContent{Parts: []types.OpenAIContentPart{
			{Type: types.OpenAIPartImageURL, ImageURL: types.OpenAIImageURL{URL: "data:image/png;base64,aa"}},
		}}},
		{Role: "assistant", Content: types.OpenAIContent{Text: "I see a cat."}},
		{Role: "user", Content: types.OpenAIContent{Parts: []types.OpenAIContentPart{
			{Type: types.OpenAIPartImageURL, ImageURL: types.OpenAIImageURL{URL: "data:image/png;base64,bb"}},
		}}},
	}}

	out := request.StripOrRouteImages(req)

	a := assert.New(t)
	a.Len(out.Messages[0].Content.Parts, 1)
	a.Equal(types.OpenAIPartText, out.Messages[0].Content.Parts[0].Type)
	a.Contains(out.Messages[0].Content.Parts[0].Text, "previously analyzed")
	a.Empty(out.Messages[2].Content.Parts, "image in the final message is dropped outright")
}
