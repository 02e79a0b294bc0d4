package gateway

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/kestrelai/devstral-gateway/internal/translate/request"
	"github.com/kestrelai/devstral-gateway/internal/translate/types"
)

// handleChatCompletions serves the OpenAI dialect end to end: the client and
// the backend already speak the same wire shape, so after normalization
// (spec §4.3a) the response is a straight byte passthrough rather than a
// decode/re-encode round trip. Token accounting is therefore left to the
// backend's own usage reporting rather than this gateway's BPE counter,
// which spec §6a scopes to the Anthropic-dialect count_tokens endpoint.
func (gw *Gateway) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	if err := authenticate(gw.cfg.APIKey, r); err != nil {
		handleOpenAIError(ctx, w, err)
		return
	}

	var req types.OpenAIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleOpenAIError(ctx, w, &ValidationError{Message: "invalid request body"})
		return
	}
	if len(req.Messages) == 0 {
		handleOpenAIError(ctx, w, &ValidationError{Message: "messages must not be empty"})
		return
	}

	user := hashedUser(r)
	endpoint := "/v1/chat/completions"

	req = request.NormalizeOpenAI(req, gw.selector.HasVision())
	cfg, req := gw.selector.Select(req)

	inboundAuth := r.Header.Get("Authorization")

	body, err := gw.client.Stream(ctx, cfg, req, inboundAuth)
	if err != nil {
		handleOpenAIError(ctx, w, err)
		gw.recordOutcome(user, req.Model, endpoint, "error", start, 0, 0)
		return
	}
	defer body.Close()

	if req.Stream {
		passthroughStream(w, body)
	} else {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = io.Copy(w, body)
	}

	gw.recordOutcome(user, req.Model, endpoint, "success", start, 0, 0)
}

// passthroughStream relays an upstream SSE byte stream verbatim: the backend
// already speaks the client's own wire dialect, so there is nothing to
// translate, only to forward and flush as each chunk arrives.
func passthroughStream(w http.ResponseWriter, body io.Reader) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	flusher, canFlush := w.(http.Flusher)
	buf := make([]byte, readChunkSize)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return
			}
			if canFlush {
				flusher.Flush()
			}
		}
		if readErr != nil {
			return
		}
	}
}
