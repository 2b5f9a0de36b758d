package http

import (
	"context"
	"net/http"
	"strings"

	"billbook/internal/core"
	"billbook/internal/log"
)

type contextKey string

const userIDKey contextKey = "user_id"

var (
	errMissingToken = core.Errorf(core.ErrUnauthorized, "not authorized, no token")
	errBadToken     = core.Errorf(core.ErrUnauthorized, "not authorized, token failed")
)

// bearerToken extracts the token of an "Authorization: Bearer <token>" header.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// authMiddleware rejects requests without a valid bearer token and stores
// the caller's user ID in the request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeError(w, r, errMissingToken)
			return
		}
		claims, err := s.tokens.Parse(raw)
		if err != nil {
			log.FromContext(r.Context()).DebugContext(r.Context(), "Token rejected", log.FieldError, err)
			writeError(w, r, errBadToken)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, claims.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userIDFromContext returns the authenticated caller.
func userIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
