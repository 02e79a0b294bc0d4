package gateway

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/kestrelai/devstral-gateway/internal/translate/types"
)

// legacyCompletionRequest is the body of the long-deprecated
// POST /v1/completions and POST /completions endpoints, still sent by a few
// older coding-client integrations: a bare prompt string in place of a
// messages array.
type legacyCompletionRequest struct {
	Model     string   `json:"model"`
	Prompt    string   `json:"prompt"`
	Stream    bool     `json:"stream,omitempty"`
	MaxTokens *int     `json:"max_tokens,omitempty"`
	Stop      []string `json:"stop,omitempty"`
}

// handleLegacyCompletions lifts a single-prompt legacy request into a
// one-message chat-completion request and replays handleChatCompletions,
// so both endpoints share one normalization/dispatch/passthrough path.
func (gw *Gateway) handleLegacyCompletions(w http.ResponseWriter, r *http.Request) {
	var legacy legacyCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&legacy); err != nil {
		handleOpenAIError(r.Context(), w, &ValidationError{Message: "invalid request body"})
		return
	}
	if legacy.Prompt == "" {
		handleOpenAIError(r.Context(), w, &ValidationError{Message: "prompt must not be empty"})
		return
	}

	chatReq := types.OpenAIRequest{
		Model:     legacy.Model,
		Stream:    legacy.Stream,
		MaxTokens: legacy.MaxTokens,
		Stop:      legacy.Stop,
		Messages: []types.OpenAIMessage{
			{Role: "user", Content: types.OpenAIContent{Text: legacy.Prompt}},
		},
	}

	encoded, err := json.Marshal(chatReq)
	if err != nil {
		handleOpenAIError(r.Context(), w, err)
		return
	}

	r2 := r.Clone(r.Context())
	r2.Body = io.NopCloser(bytes.NewReader(encoded))
	r2.ContentLength = int64(len(encoded))

	gw.handleChatCompletions(w, r2)
}
