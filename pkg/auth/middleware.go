package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

type contextKey string

const adminKey contextKey = "admin_username"

// AdminFromContext returns the authenticated admin username.
func AdminFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(adminKey).(string)
	return v, ok
}

// WithAdmin stores the authenticated admin username in the context.
func WithAdmin(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, adminKey, username)
}

// RequireAdmin checks HTTP Basic credentials on every request. Requests
// without a valid pair are rejected before the wrapped handler runs.
func RequireAdmin(gate *Gate, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, password, ok := r.BasicAuth()
			if !ok || !gate.Authenticate(username, password) {
				logger.WarnContext(r.Context(), "admin authentication failed",
					"path", r.URL.Path,
					"credentials_present", ok,
				)
				Unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAdmin(r.Context(), username)))
		})
	}
}

// Unauthorized writes the generic 401 response. It never says which
// credential was wrong.
func Unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="admin", charset="UTF-8"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
}
