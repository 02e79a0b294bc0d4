package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/kestrelai/devstral-gateway/internal/translate/tokencount"
	"github.com/kestrelai/devstral-gateway/internal/translate/types"
)

// countTokensResponse is the body of POST /v1/messages/count_tokens.
type countTokensResponse struct {
	InputTokens int `json:"input_tokens"`
}

// handleCountTokens estimates a request's input token count without
// dispatching to the backend (spec §6a), using the gateway's local
// cl100k_base BPE estimator, which approximates the backend's Mistral
// tokenizer rather than reproducing it.
func (gw *Gateway) handleCountTokens(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := authenticate(gw.cfg.APIKey, r); err != nil {
		handleAnthropicError(ctx, w, err)
		return
	}

	var req types.AnthropicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleAnthropicError(ctx, w, &ValidationError{Message: "invalid request body"})
		return
	}

	writeJSON(ctx, w, countTokensResponse{InputTokens: tokencount.Count(req)}, http.StatusOK)
}
