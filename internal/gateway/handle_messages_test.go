package gateway_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelai/devstral-gateway/internal/backend"
	"github.com/kestrelai/devstral-gateway/internal/gateway"
	"github.com/kestrelai/devstral-gateway/internal/translate/types"
)

func newTestGateway(t *testing.T, backendURL, apiKey string) http.Handler {
	t.Helper()
	selector := backend.NewSelector(backend.Config{URL: backendURL, Model: "devstral-small"}, nil)
	client := backend.New(http.DefaultClient)
	metrics := gateway.NewMetrics()
	telemetry := gateway.NewTelemetry(false, "")
	return gateway.New(gateway.Config{APIKey: apiKey, DefaultModel: "devstral-small"}, selector, client, metrics, telemetry, nil)
}

func TestHandleMessages_UnaryTextCompletion(t *testing.T) {
	backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req types.OpenAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "user", req.Messages[0].Role)

		_ = json.NewEncoder(w).Encode(types.OpenAIResponse{
			ID:      "chatcmpl-1",
			Model:   "devstral-small",
			Choices: []types.OpenAIChoice{{Message: types.OpenAIMessage{Role: "assistant", Content: types.OpenAIContent{Text: "hi there"}}}},
			Usage:   types.OpenAIUsage{PromptTokens: 5, CompletionTokens: 3, TotalTokens: 8},
		})
	}))
	defer backendSrv.Close()

	gw := newTestGateway(t, backendSrv.URL, "")

	body := `{"model":"claude-3-5-sonnet-20241022","max_tokens":100,"messages":[{"role":"user","content":"hello"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(body))
	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var anthResp types.AnthropicResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &anthResp))
	assert.Equal(t, "assistant", anthResp.Role)
}

func TestHandleMessages_RejectsEmptyMessages(t *testing.T) {
	gw := newTestGateway(t, "http://unused.invalid", "")

	body := `{"model":"claude-3-5-sonnet-20241022","max_tokens":100,"messages":[]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(body))
	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleMessages_RequiresAPIKeyWhenConfigured(t *testing.T) {
	gw := newTestGateway(t, "http://unused.invalid", "secret-key")

	body := `{"model":"claude-3-5-sonnet-20241022","max_tokens":100,"messages":[{"role":"user","content":"hello"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(body))
	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleMessages_AcceptsMatchingAPIKey(t *testing.T) {
	backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(types.OpenAIResponse{
			Choices: []types.OpenAIChoice{{Message: types.OpenAIMessage{Role: "assistant", Content: types.OpenAIContent{Text: "ok"}}}},
		})
	}))
	defer backendSrv.Close()

	gw := newTestGateway(t, backendSrv.URL, "secret-key")

	body := `{"model":"claude-3-5-sonnet-20241022","max_tokens":100,"messages":[{"role":"user","content":"hello"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(body))
	req.Header.Set("x-api-key", "secret-key")
	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleMessages_BackendErrorMapsToAnthropicEnvelope(t *testing.T) {
	backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer backendSrv.Close()

	gw := newTestGateway(t, backendSrv.URL, "")

	body := `{"model":"claude-3-5-sonnet-20241022","max_tokens":100,"messages":[{"role":"user","content":"hello"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(body))
	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var errBody types.AnthropicErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errBody))
	assert.Equal(t, "api_error", errBody.Error.Type)
}

func TestHandleMessages_StreamingTranslatesSSEFrames(t *testing.T) {
	backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)

		chunks := []types.OpenAIStreamChunk{
			{Choices: []types.OpenAIStreamChoice{{Delta: types.OpenAIStreamDelta{Role: "assistant"}}}},
			{Choices: []types.OpenAIStreamChoice{{Delta: types.OpenAIStreamDelta{Content: strPtr("hello")}}}},
		}
		for _, c := range chunks {
			data, _ := json.Marshal(c)
			_, _ = w.Write([]byte("data: " + string(data) + "\n\n"))
			flusher.Flush()
		}
		_, _ = w.Write([]byte("data: [DONE]\n\n"))
		flusher.Flush()
	}))
	defer backendSrv.Close()

	gw := newTestGateway(t, backendSrv.URL, "")

	body := `{"model":"claude-3-5-sonnet-20241022","max_tokens":100,"stream":true,"messages":[{"role":"user","content":"hello"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(body))
	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	out := rec.Body.String()
	assert.Contains(t, out, "event: message_start")
	assert.Contains(t, out, "event: content_block_delta")
	assert.Contains(t, out, "event: message_stop")
}

func strPtr(s string) *string { return &s }
