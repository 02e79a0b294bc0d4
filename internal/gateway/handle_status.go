package gateway

import "net/http"

// modelEntry is one entry of GET /v1/models' data array, OpenAI's model-list
// shape.
type modelEntry struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

type modelsResponse struct {
	Object string       `json:"object"`
	Data   []modelEntry `json:"data"`
}

// handleModels advertises the single configured backend model, matching
// what an OpenAI-dialect client expects to enumerate before issuing a chat
// completion.
func (gw *Gateway) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, modelsResponse{
		Object: "list",
		Data: []modelEntry{
			{ID: gw.cfg.DefaultModel, Object: "model", Created: gw.startedAt, OwnedBy: "vllm"},
		},
	}, http.StatusOK)
}

type healthResponse struct {
	Status string `json:"status"`
}

// handleHealth is the liveness probe target; it never calls the backend.
func (gw *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, healthResponse{Status: "ok"}, http.StatusOK)
}

// handleStats exposes the telemetry ring buffer's current Snapshot
// (spec §5a), the human-facing counterpart to /metrics.
func (gw *Gateway) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, gw.telemetry.Snapshot(), http.StatusOK)
}
