package handler

import (
	"net/http"
)

// NewMux registers every API route. requireAdmin wraps each admin route.
func NewMux(h *Handler, contact *ContactHandler, admin *AdminHandler, requireAdmin func(http.Handler) http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/{$}", h.Root)
	mux.HandleFunc("GET /api/health", h.Health)
	mux.HandleFunc("POST /api/contact", contact.Submit)
	mux.HandleFunc("POST /api/admin/login", admin.Login)

	protect := func(f http.HandlerFunc) http.Handler { return requireAdmin(f) }
	mux.Handle("GET /api/admin/submissions", protect(admin.List))
	mux.Handle("GET /api/admin/submissions/{id}", protect(admin.Get))
	mux.Handle("PATCH /api/admin/submissions/{id}/status", protect(admin.UpdateStatus))
	mux.Handle("POST /api/admin/submissions/{id}/toggle", protect(admin.Toggle))
	mux.Handle("POST /api/admin/submissions/{id}/respond", protect(admin.Respond))
	mux.Handle("DELETE /api/admin/submissions/{id}", protect(admin.Delete))
	mux.Handle("GET /api/admin/stats", protect(admin.Stats))
	return mux
}

// Chain applies middleware so that the first one listed is outermost.
func Chain(next http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		next = mws[i](next)
	}
	return next
}
