package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kestrelai/devstral-gateway/internal/backend"
	"github.com/kestrelai/devstral-gateway/internal/translate/types"
)

// ValidationError reports a request body that fails shape validation
// (spec §7: 400 to client, before any upstream call is made).
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// writeAnthropicError writes the Anthropic-shaped {"error":{...}} envelope.
func writeAnthropicError(ctx context.Context, w http.ResponseWriter, status int, errType, message string) {
	writeJSON(ctx, w, types.AnthropicErrorBody{Error: types.AnthropicErrorDetail{Type: errType, Message: message}}, status)
}

// writeOpenAIError writes the OpenAI-shaped {"error":{...}} envelope.
func writeOpenAIError(ctx context.Context, w http.ResponseWriter, status int, errType, message string) {
	writeJSON(ctx, w, types.OpenAIErrorBody{Error: types.OpenAIErrorDetail{Type: errType, Message: message}}, status)
}

// handleAnthropicError maps a pipeline error to the right HTTP status and
// Anthropic-shaped error body, logging the structured diagnostics a
// BackendError carries (spec §7).
func handleAnthropicError(ctx context.Context, w http.ResponseWriter, err error) {
	var authErr *AuthError
	var valErr *ValidationError
	var backendErr *backend.Error

	switch {
	case errors.As(err, &authErr):
		writeAnthropicError(ctx, w, http.StatusUnauthorized, "authentication_error", authErr.Message)
	case errors.As(err, &valErr):
		writeAnthropicError(ctx, w, http.StatusBadRequest, "invalid_request_error", valErr.Message)
	case errors.As(err, &backendErr):
		slog.ErrorContext(ctx, "backend error", "url", backendErr.URL, "status", backendErr.Status,
			"body_preview", backendErr.BodyPreview, "model", backendErr.Model,
			"message_count", backendErr.MessageCount, "last_role", backendErr.LastRole,
			"has_tool_calls", backendErr.HasToolCalls)
		writeAnthropicError(ctx, w, http.StatusInternalServerError, "api_error", "backend request failed")
	default:
		slog.ErrorContext(ctx, "unhandled error", "error", err)
		writeAnthropicError(ctx, w, http.StatusInternalServerError, "api_error", "internal error")
	}
}

// handleOpenAIError is handleAnthropicError's OpenAI-dialect counterpart.
func handleOpenAIError(ctx context.Context, w http.ResponseWriter, err error) {
	var authErr *AuthError
	var valErr *ValidationError
	var backendErr *backend.Error

	switch {
	case errors.As(err, &authErr):
		writeOpenAIError(ctx, w, http.StatusUnauthorized, "authentication_error", authErr.Message)
	case errors.As(err, &valErr):
		writeOpenAIError(ctx, w, http.StatusBadRequest, "invalid_request_error", valErr.Message)
	case errors.As(err, &backendErr):
		slog.ErrorContext(ctx, "backend error", "url", backendErr.URL, "status", backendErr.Status,
			"body_preview", backendErr.BodyPreview, "model", backendErr.Model,
			"message_count", backendErr.MessageCount, "last_role", backendErr.LastRole,
			"has_tool_calls", backendErr.HasToolCalls)
		writeOpenAIError(ctx, w, http.StatusInternalServerError, "api_error", "backend request failed")
	default:
		slog.ErrorContext(ctx, "unhandled error", "error", err)
		writeOpenAIError(ctx, w, http.StatusInternalServerError, "api_error", "internal error")
	}
}

// streamErrorFrame renders the mid-stream SSE error event spec §7 requires
// for a TranslationError: data: {"type":"error","error":{...}}\n\n.
func streamErrorFrame(message string) []byte {
	body := struct {
		Type  string `json:"type"`
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}{Type: "error"}
	body.Error.Type = "api_error"
	body.Error.Message = message

	data, _ := json.Marshal(body)
	return append(append([]byte("data: "), data...), '\n', '\n')
}
