package handler

import (
	"net/http"
	"slices"

	"github.com/drilldown/backend/internal/repository"
)

// Handler serves the unauthenticated service endpoints and owns the CORS policy.
type Handler struct {
	db             repository.DB
	serviceName    string
	allowedOrigins []string
}

// New creates a Handler. An allowedOrigins entry of "*" allows any origin
// without credentials.
func New(db repository.DB, serviceName string, allowedOrigins []string) *Handler {
	return &Handler{db: db, serviceName: serviceName, allowedOrigins: allowedOrigins}
}

func (h *Handler) CORS(next http.Handler) http.Handler {
	wildcard := slices.Contains(h.allowedOrigins, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case wildcard:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(h.allowedOrigins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
