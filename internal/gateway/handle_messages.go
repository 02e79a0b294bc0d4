package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelai/devstral-gateway/internal/backend"
	"github.com/kestrelai/devstral-gateway/internal/translate/request"
	"github.com/kestrelai/devstral-gateway/internal/translate/response"
	"github.com/kestrelai/devstral-gateway/internal/translate/stream"
	"github.com/kestrelai/devstral-gateway/internal/translate/tokencount"
	"github.com/kestrelai/devstral-gateway/internal/translate/types"
)

const readChunkSize = 32 * 1024

// handleMessages is the spec's primary path (§4.8a): Anthropic dialect in,
// translated to OpenAI for the Mistral-family backend, translated back to
// Anthropic dialect (or Anthropic SSE) on the way out.
func (gw *Gateway) handleMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	if err := authenticate(gw.cfg.APIKey, r); err != nil {
		handleAnthropicError(ctx, w, err)
		return
	}

	var anthReq types.AnthropicRequest
	if err := json.NewDecoder(r.Body).Decode(&anthReq); err != nil {
		handleAnthropicError(ctx, w, &ValidationError{Message: "invalid request body"})
		return
	}
	if len(anthReq.Messages) == 0 {
		handleAnthropicError(ctx, w, &ValidationError{Message: "messages must not be empty"})
		return
	}

	user := hashedUser(r)
	endpoint := "/v1/messages"

	visionWanted := gw.selector.HasVision() && request.HasAnthropicImage(anthReq)
	openaiReq, _ := request.FromAnthropic(anthReq, request.Options{VisionPreamble: visionWanted})
	cfg, openaiReq := gw.selector.Select(openaiReq)

	estimatedInputTokens := tokencount.Count(anthReq)
	gw.metrics.observeLocalTokenEstimate(user, anthReq.Model, estimatedInputTokens)

	inboundAuth := r.Header.Get("Authorization")

	if anthReq.Stream {
		gw.streamMessages(ctx, w, cfg, openaiReq, inboundAuth, anthReq.Model, estimatedInputTokens, user, endpoint, start)
		return
	}

	resp, err := gw.client.Call(ctx, cfg, openaiReq, inboundAuth)
	if err != nil {
		handleAnthropicError(ctx, w, err)
		gw.recordOutcome(user, anthReq.Model, endpoint, "error", start, estimatedInputTokens, 0)
		return
	}

	anthResp := response.ToAnthropic(resp, anthReq.Model)
	writeJSON(ctx, w, anthResp, http.StatusOK)
	gw.recordOutcome(user, anthReq.Model, endpoint, "success", start, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
}

// streamMessages dispatches the upstream streaming call and pipes the
// translated Anthropic SSE frames to the client as they arrive. SSE headers
// are only written once client.Stream has confirmed a 2xx upstream response,
// so a backend failure still produces a normal JSON error body (spec §7).
func (gw *Gateway) streamMessages(ctx context.Context, w http.ResponseWriter, cfg backend.Config, openaiReq types.OpenAIRequest, inboundAuth, model string, estimatedInputTokens int, user, endpoint string, start time.Time) {
	body, err := gw.client.Stream(ctx, cfg, openaiReq, inboundAuth)
	if err != nil {
		handleAnthropicError(ctx, w, err)
		gw.recordOutcome(user, model, endpoint, "error", start, estimatedInputTokens, 0)
		return
	}
	defer body.Close()

	sse, err := NewSSEWriter(w)
	if err != nil {
		gw.logger.ErrorContext(ctx, "SSE not supported", "error", err)
		gw.recordOutcome(user, model, endpoint, "error", start, estimatedInputTokens, 0)
		return
	}

	messageID := "msg_" + uuid.New().String()
	tr := stream.New(messageID, model, estimatedInputTokens)

	buf := make([]byte, readChunkSize)
	var outputTokens int
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			outputTokens += writeEvents(sse, tr.Feed(buf[:n]))
		}
		if readErr != nil {
			if readErr != io.EOF {
				gw.logger.ErrorContext(ctx, "stream read error", "error", readErr)
				_ = sse.WriteEvent(types.EventError, types.StreamErrorData{
					Type:  "error",
					Error: types.AnthropicErrorDetail{Type: "api_error", Message: "upstream connection lost"},
				})
			}
			break
		}
	}
	outputTokens += writeEvents(sse, tr.Finish())

	gw.recordOutcome(user, model, endpoint, "success", start, estimatedInputTokens, outputTokens)
}

// writeEvents writes each translated frame to the wire and returns the
// number of content_block_delta events seen, used as a coarse local
// output-token count when the backend never reports its own usage mid-stream.
func writeEvents(sse *SSEWriter, events []types.AnthropicEvent) int {
	count := 0
	for _, ev := range events {
		_ = sse.WriteEvent(ev.Type, ev.Data)
		if ev.Type == types.EventContentBlockDelta {
			count++
		}
	}
	return count
}
