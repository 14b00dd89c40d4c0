package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	id "barangay/pkg/domain"
	"barangay/pkg/requestcontext"
)

// TokenValidator validates a bearer token and returns the actor it asserts.
type TokenValidator interface {
	ValidateToken(tokenString string) (*ActorClaims, error)
}

// ActorClaims is what the middleware needs from a validated token.
type ActorClaims struct {
	ActorID string
	Role    string
}

func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireActor returns middleware that validates the bearer token and stores
// the actor it names in the request context. Role checks happen in the
// services, which know which roles an operation admits.
func RequireActor(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			actorID, err := id.ParseActorID(claims.ActorID)
			if err != nil || claims.Role == "" {
				logger.WarnContext(ctx, "unauthorized access - malformed token claims",
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			ctx = requestcontext.WithActor(ctx, actorID, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
