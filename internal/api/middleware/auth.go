package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/cjgv1809/Chat-with-PDF/internal/api"
)

type contextKey string

const UserIDKey contextKey = "user_id"

const (
	UserIDHeader        = "X-User-ID"
	WebhookSecretHeader = "X-Webhook-Secret"
)

const maxUserIDLength = 128

// UserIdentity reads the caller's user ID set by the authenticating gateway.
// Requests without one are rejected.
func UserIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if userID == "" {
			api.Error(w, http.StatusUnauthorized, "missing user identity")
			return
		}
		if len(userID) > maxUserIDLength {
			api.Error(w, http.StatusUnauthorized, "invalid user identity")
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}

// WebhookSecret only lets through requests carrying the shared secret. An
// empty secret rejects everything.
func WebhookSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				api.Error(w, http.StatusServiceUnavailable, "webhook not configured")
				return
			}

			got := r.Header.Get(WebhookSecretHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				api.Error(w, http.StatusUnauthorized, "invalid webhook secret")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
