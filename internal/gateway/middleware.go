package gateway

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
)

// recovery recovers from panics in HTTP handlers and returns HTTP 500 to
// the client.
func recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recover() != nil {
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				// The panic value is not logged; the request logger only
				// records the resulting 500 response.
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// requestLogging logs HTTP requests with method, path, status, and
// duration, never the request or response body.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return httplog.RequestLogger(logger, &httplog.Options{
		Schema:             httplog.SchemaECS.Concise(true),
		LogRequestHeaders:  []string{"Content-Type", "Origin"},
		LogResponseHeaders: []string{},
		LogRequestBody:     nil,
		LogResponseBody:    nil,
		RecoverPanics:      false,
	})
}

// permissiveCORS allows any origin to call the gateway's JSON/SSE
// endpoints, matching the open-CORS posture of local AI-coding-client
// proxies in the pack (clients run from arbitrary dev-tool origins).
func permissiveCORS() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "x-api-key"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}
