package request

import (
	"fmt"

	"github.com/kestrelai/devstral-gateway/internal/translate/types"
)

// HasAnthropicImage reports whether any message in an Anthropic-dialect
// request carries an image content block, the predicate used on the
// `/v1/messages` path to decide the vision preamble and backend before
// FromAnthropic has run (at that point there is no OpenAIRequest yet to
// inspect with HasImage).
func HasAnthropicImage(req types.AnthropicRequest) bool {
	for _, msg := range req.Messages {
		for _, block := range msg.Content.Blocks {
			if block.Type == types.AnthropicBlockImage {
				return true
			}
		}
	}
	return false
}

// HasImage reports whether any message in req carries an image_url part,
// the predicate the backend selector (spec §4.7) runs before choosing
// between the default and vision backends.
func HasImage(req types.OpenAIRequest) bool {
	for _, msg := range req.Messages {
		for _, part := range msg.Content.Parts {
			if part.Type == types.OpenAIPartImageURL {
				return true
			}
		}
	}
	return false
}

// StripOrRouteImages replaces image content with text when no vision
// backend is available to handle it (spec §4.7): every image outside the
// final message becomes a "[Image N - previously analyzed]" placeholder,
// and images in the final message are dropped outright since there is no
// out-of-band vision collaborator to describe them.
func StripOrRouteImages(req types.OpenAIRequest) types.OpenAIRequest {
	imageCount := 0
	lastIdx := len(req.Messages) - 1

	messages := make([]types.OpenAIMessage, len(req.Messages))
	copy(messages, req.Messages)
	req.Messages = messages

	for i := range req.Messages {
		parts := req.Messages[i].Content.Parts
		if len(parts) == 0 {
			continue
		}

		kept := make([]types.OpenAIContentPart, 0, len(parts))
		for _, part := range parts {
			if part.Type != types.OpenAIPartImageURL {
				kept = append(kept, part)
				continue
			}
			imageCount++
			if i == lastIdx {
				continue // dropped: no vision collaborator to describe it
			}
			kept = append(kept, types.OpenAIContentPart{
				Type: types.OpenAIPartText,
				Text: fmt.Sprintf("[Image %d - previously analyzed]", imageCount),
			})
		}
		req.Messages[i].Content.Parts = kept
	}

	return req
}
