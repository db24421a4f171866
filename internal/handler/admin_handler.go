package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/drilldown/backend/internal/model"
	"github.com/drilldown/backend/internal/service"
	"github.com/drilldown/backend/pkg/auth"
)

// AdminHandler serves the moderation API. Every route except Login is
// mounted behind auth.RequireAdmin.
type AdminHandler struct {
	submissions service.SubmissionService
	gate        *auth.Gate
	logger      *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(submissions service.SubmissionService, gate *auth.Gate, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{submissions: submissions, gate: gate, logger: logger}
}

type actionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Username string `json:"username"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type respondRequest struct {
	ResponseText string `json:"response_text"`
	SendEmail    *bool  `json:"send_email"`
}

type respondResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	EmailSent bool   `json:"email_sent"`
}

// fail maps service errors to responses. Unexpected errors are logged and
// reported as op + "_failed".
func (h *AdminHandler) fail(w http.ResponseWriter, r *http.Request, err error, op string) {
	var ve *service.ValidationError
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, service.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "invalid_status")
	case errors.As(err, &ve):
		writeValidationError(w, ve)
	default:
		h.logger.ErrorContext(r.Context(), "admin request failed",
			"op", op,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, op+"_failed")
	}
}

// Login handles POST /api/admin/login. It lets the dashboard verify a
// credential pair before storing it; no session is created.
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if !h.gate.Authenticate(req.Username, req.Password) {
		h.logger.WarnContext(r.Context(), "admin login failed")
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Success: true, Message: "Login successful", Username: req.Username})
}

// List handles GET /api/admin/submissions[?status=].
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	opts := model.SubmissionListOptions{Status: model.SubmissionStatus(r.URL.Query().Get("status"))}
	subs, err := h.submissions.List(r.Context(), opts)
	if err != nil {
		h.fail(w, r, err, "list")
		return
	}
	// Return [] not null for empty lists
	if subs == nil {
		subs = []*model.Submission{}
	}
	writeJSON(w, http.StatusOK, subs)
}

// Get handles GET /api/admin/submissions/{id}.
func (h *AdminHandler) Get(w http.ResponseWriter, r *http.Request) {
	sub, err := h.submissions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err, "get")
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// Stats handles GET /api/admin/stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.submissions.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err, "stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// UpdateStatus handles PATCH /api/admin/submissions/{id}/status.
func (h *AdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	sub, err := h.submissions.SetStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		h.fail(w, r, err, "update_status")
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// Toggle handles POST /api/admin/submissions/{id}/toggle.
func (h *AdminHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	sub, err := h.submissions.ToggleStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err, "toggle_status")
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// Respond handles POST /api/admin/submissions/{id}/respond.
// send_email defaults to true when omitted.
func (h *AdminHandler) Respond(w http.ResponseWriter, r *http.Request) {
	var req respondRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	sendEmail := req.SendEmail == nil || *req.SendEmail

	res, err := h.submissions.Respond(r.Context(), r.PathValue("id"), req.ResponseText, sendEmail)
	if err != nil {
		h.fail(w, r, err, "respond")
		return
	}
	writeJSON(w, http.StatusOK, respondResponse{
		Success:   true,
		Message:   respondMessage(res.Delivery),
		EmailSent: res.EmailSent,
	})
}

func respondMessage(d service.Delivery) string {
	switch d {
	case service.DeliverySent:
		return "Response saved and email sent to customer"
	case service.DeliveryNotConfigured:
		return "Response saved but email could not be sent (SMTP not configured)"
	case service.DeliveryFailed:
		return "Response saved but email delivery failed"
	default:
		return "Response saved successfully"
	}
}

// Delete handles DELETE /api/admin/submissions/{id}.
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.submissions.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, r, err, "delete")
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Success: true, Message: "Submission deleted successfully"})
}
