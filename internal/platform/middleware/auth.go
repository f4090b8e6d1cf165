package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	id "scholar/pkg/domain"
	"scholar/pkg/requestcontext"
)

// TokenValidator validates a bearer access token issued after a successful
// challenge-response handshake.
type TokenValidator interface {
	ValidateToken(tokenString string) (*TokenClaims, error)
}

// TokenClaims represents the claims we expect from the token validator.
type TokenClaims struct {
	AgentID   string
	Pseudonym string
}

// APIKeyResolver resolves an es_-prefixed API key to the agent that owns it.
type APIKeyResolver interface {
	ResolveAPIKey(ctx context.Context, apiKey string) (id.AgentID, id.Pseudonym, error)
}

// apiKeyPrefix identifies platform API keys in the Authorization header.
const apiKeyPrefix = "es_"

// RequireAgent authenticates the caller via either an API key or a bearer
// access token and injects the agent identity into the request context.
func RequireAgent(validator TokenValidator, keys APIKeyResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				unauthorized(w, "missing bearer credentials")
				return
			}

			if strings.HasPrefix(token, apiKeyPrefix) {
				agentID, pseudonym, err := keys.ResolveAPIKey(ctx, token)
				if err != nil {
					logger.WarnContext(ctx, "unauthorized access - unknown api key",
						"request_id", GetRequestID(ctx),
					)
					unauthorized(w, "invalid API key")
					return
				}
				ctx = requestcontext.WithAgentID(ctx, agentID)
				ctx = requestcontext.WithPseudonym(ctx, pseudonym)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				unauthorized(w, "invalid or expired token")
				return
			}
			pseudonym, err := id.ParsePseudonym(claims.Pseudonym)
			if err != nil {
				unauthorized(w, "invalid token subject")
				return
			}
			agentID, err := id.ParseAgentID(claims.AgentID)
			if err != nil {
				unauthorized(w, "invalid token subject")
				return
			}
			ctx = requestcontext.WithAgentID(ctx, agentID)
			ctx = requestcontext.WithPseudonym(ctx, pseudonym)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
