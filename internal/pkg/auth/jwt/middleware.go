package jwt

import (
	"context"
	"net/http"
	"strings"

	"zone/internal/pkg/errs"
	"zone/internal/pkg/logx"
	"zone/internal/pkg/resp"
)

type contextKey string

// ContextUserIDKey holds the authenticated zone user id in the request context.
const ContextUserIDKey contextKey = "zone_user_id"

// Sessions reports whether a token still belongs to a live user.
type Sessions interface {
	UserForToken(ctx context.Context, token string) (string, bool)
}

// BearerToken returns the token of an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireSession rejects requests without a signed token that maps to a live
// user, and stores the user id in the context otherwise.
func RequireSession(secretKey string, sessions Sessions) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := BearerToken(r)
			if tokenString == "" {
				resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
				return
			}

			payload, err := ParseToken(tokenString, secretKey)
			if err != nil {
				logx.Warn("Rejected bearer token", "error", err.Error())
				resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
				return
			}

			userID, ok := sessions.UserForToken(r.Context(), tokenString)
			if !ok || userID != payload.UserID {
				resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
				return
			}

			ctx := context.WithValue(r.Context(), ContextUserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext returns the user id stored by RequireSession, or "".
func UserIDFromContext(r *http.Request) string {
	userID, _ := r.Context().Value(ContextUserIDKey).(string)
	return userID
}
