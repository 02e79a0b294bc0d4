package request

import (
	"github.com/kestrelai/devstral-gateway/internal/translate/toolid"
	"github.com/kestrelai/devstral-gateway/internal/translate/types"
)

// NormalizeOpenAI brings a client-supplied OpenAI-dialect request up to the
// Mistral backend's requirements (spec §4.3a): tool-call IDs are rewritten
// to the 9-alphanumeric shape, a sentinel is appended if needed, and
// (when no vision backend is configured) image content is stripped to
// text placeholders so the request can still be dispatched.
func NormalizeOpenAI(req types.OpenAIRequest, hasVisionBackend bool) types.OpenAIRequest {
	steps := []Transform{
		toolid.NormalizeOpenAIRequest,
		EnforceTrailingRule,
	}
	if !hasVisionBackend {
		steps = append(steps, StripOrRouteImages)
	}
	return Pipe(steps...)(req)
}
