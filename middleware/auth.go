package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/booms-platform/booms-core/apperr"
	"github.com/booms-platform/booms-core/provider"
	"github.com/rs/zerolog"
)

type contextKey string

// UserIDContextKey stores the authenticated user's id in request context.
const UserIDContextKey contextKey = "user_id"

// AuthMiddleware resolves the acting user_id for every request via the
// configured provider.Authenticator collaborator (names JWT
// issuance/validation as out-of-scope — this module only needs the
// resolved id).
type AuthMiddleware struct {
	logger zerolog.Logger
	auth provider.Authenticator
}

// NewAuthMiddleware creates a new authentication middleware.
func NewAuthMiddleware(logger zerolog.Logger, auth provider.Authenticator) *AuthMiddleware {
	return &AuthMiddleware{logger: logger, auth: auth}
}

// Handler returns the middleware handler function.
func (am *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			apperr.WriteJSON(w, apperr.New(apperr.CodeForbidden, "Authorization header required"))
			return
		}

		token := authHeader
		if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
			token = authHeader[len("bearer "):]
		}
		if token == "" {
			apperr.WriteJSON(w, apperr.New(apperr.CodeForbidden, "bearer token cannot be empty"))
			return
		}

		userID, err := am.auth.ValidateToken(r.Context(), token)
		if err != nil {
			am.logger.Warn().Err(err).Msg("token validation failed")
			apperr.WriteJSON(w, apperr.New(apperr.CodeForbidden, "invalid or expired token"))
			return
		}

		ctx := context.WithValue(r.Context(), UserIDContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserID extracts the authenticated user id from the request context.
func GetUserID(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(UserIDContextKey).(int64)
	return v, ok
}
