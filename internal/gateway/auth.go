package gateway

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AuthError is returned when the inbound request doesn't carry the
// configured gateway key (spec §7: 401 to client).
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// extractGatewayKey pulls the client-presented credential from either the
// Anthropic-style x-api-key header or an OpenAI-style Authorization: Bearer
// header, whichever is present.
func extractGatewayKey(r *http.Request) string {
	if key := r.Header.Get("x-api-key"); key != "" {
		return key
	}
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

// authenticate checks the inbound request against the configured gateway
// key. An empty configured key disables gating (useful for local
// development); a non-empty one must match exactly.
func authenticate(configuredKey string, r *http.Request) error {
	if configuredKey == "" {
		return nil
	}
	if extractGatewayKey(r) != configuredKey {
		return &AuthError{Message: "invalid or missing API key"}
	}
	return nil
}

// hashedUser derives the 8-hex-char user label from the JWT email claim in
// the request's Authorization header (spec §6: "user is an 8-hex-char hash
// of the JWT email claim"). The gateway is not the token's issuer and has
// no shared signing key to verify against — this label is for metrics
// cardinality only, never an authorization decision — so claims are read
// from an unverified parse.
func hashedUser(r *http.Request) string {
	const unknown = "unknown"

	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if raw == "" {
		return unknown
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return unknown
	}

	email, ok := claims["email"].(string)
	if !ok || email == "" {
		return unknown
	}

	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])[:8]
}
