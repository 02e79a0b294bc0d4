// Package backend talks to the OpenAI-compatible Mistral-family inference
// server: JSON request/response for unary calls, raw SSE byte framing for
// streaming ones, with the auth-composition rules of spec §4.6.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kestrelai/devstral-gateway/internal/translate/types"
)

// Config names one backend endpoint: the default Devstral/Codestral server
// or an optional vision-capable alternative.
type Config struct {
	URL    string
	APIKey string
	Model  string
}

// internalClusterSuffix marks a backend URL as trusted internal traffic,
// always authenticated with the backend's own configured key regardless of
// what the client presented.
const internalClusterSuffix = ".cluster.local"

// Error reports a non-2xx or transport failure talking to a backend.
// BodyPreview is capped at 500 characters; it is logged in full structured
// form but the client only ever sees a generic message (spec §7).
type Error struct {
	URL         string
	Status      int
	BodyPreview string
	Model       string
	MessageCount int
	LastRole    string
	HasToolCalls bool
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("backend %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("backend %s returned status %d: %s", e.URL, e.Status, e.BodyPreview)
}

func (e *Error) Unwrap() error { return e.Err }

// Client issues call/stream operations against one backend target, composing
// the Authorization header per spec §4.6.
type Client struct {
	httpClient *http.Client
}

// New builds a Client using the given http.Client (nil selects
// http.DefaultClient, which callers should usually replace with one tuned
// for long-lived streaming connections).
func New(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient}
}

// composeAuth picks which bearer token accompanies the outbound request:
// an internal-cluster backend always uses its own configured key; otherwise
// the backend's key is preferred, falling back to the client's inbound
// Authorization header.
func composeAuth(cfg Config, inboundAuth string) string {
	if strings.HasSuffix(hostOf(cfg.URL), internalClusterSuffix) {
		return cfg.APIKey
	}
	if cfg.APIKey != "" {
		return cfg.APIKey
	}
	return inboundAuth
}

func hostOf(rawURL string) string {
	// Cheap host extraction avoiding a dependency on net/url for a single
	// suffix check; rawURL is a config value, not attacker-controlled.
	s := rawURL
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/:"); i >= 0 {
		s = s[:i]
	}
	return s
}

func bearer(token string) string {
	if token == "" {
		return ""
	}
	if strings.HasPrefix(token, "Bearer ") {
		return token
	}
	return "Bearer " + token
}

func requestDiagnostics(cfg Config, req types.OpenAIRequest) (messageCount int, lastRole string, hasToolCalls bool) {
	messageCount = len(req.Messages)
	if messageCount > 0 {
		last := req.Messages[messageCount-1]
		lastRole = last.Role
		hasToolCalls = len(last.ToolCalls) > 0
	}
	return
}

// Call issues a unary JSON POST and decodes the OpenAI-shaped response.
func (c *Client) Call(ctx context.Context, cfg Config, req types.OpenAIRequest, inboundAuth string) (types.OpenAIResponse, error) {
	var out types.OpenAIResponse

	body, err := json.Marshal(req)
	if err != nil {
		return out, fmt.Errorf("encode backend request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return out, fmt.Errorf("build backend request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if auth := composeAuth(cfg, inboundAuth); auth != "" {
		httpReq.Header.Set("Authorization", bearer(auth))
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		msgCount, lastRole, hasToolCalls := requestDiagnostics(cfg, req)
		return out, &Error{URL: cfg.URL, Model: cfg.Model, MessageCount: msgCount, LastRole: lastRole, HasToolCalls: hasToolCalls, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return out, errorFromResponse(cfg, req, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode backend response: %w", err)
	}
	return out, nil
}

// Stream issues a streaming POST and returns a ReadCloser of the raw SSE
// byte wire; the caller (internal/gateway, via stream.Translator) owns line
// reassembly. The caller must Close the returned body on every exit path.
func (c *Client) Stream(ctx context.Context, cfg Config, req types.OpenAIRequest, inboundAuth string) (io.ReadCloser, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode backend request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build backend request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if auth := composeAuth(cfg, inboundAuth); auth != "" {
		httpReq.Header.Set("Authorization", bearer(auth))
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		msgCount, lastRole, hasToolCalls := requestDiagnostics(cfg, req)
		return nil, &Error{URL: cfg.URL, Model: cfg.Model, MessageCount: msgCount, LastRole: lastRole, HasToolCalls: hasToolCalls, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, errorFromResponse(cfg, req, resp)
	}

	return resp.Body, nil
}

const bodyPreviewLimit = 500

func errorFromResponse(cfg Config, req types.OpenAIRequest, resp *http.Response) error {
	preview, _ := io.ReadAll(io.LimitReader(resp.Body, bodyPreviewLimit))
	msgCount, lastRole, hasToolCalls := requestDiagnostics(cfg, req)
	return &Error{
		URL:          cfg.URL,
		Status:       resp.StatusCode,
		BodyPreview:  string(preview),
		Model:        cfg.Model,
		MessageCount: msgCount,
		LastRole:     lastRole,
		HasToolCalls: hasToolCalls,
	}
}
