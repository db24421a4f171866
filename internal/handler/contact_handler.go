package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/drilldown/backend/internal/model"
	"github.com/drilldown/backend/internal/service"
)

// ContactHandler handles the public contact form.
type ContactHandler struct {
	submissions service.SubmissionService
	logger      *slog.Logger
}

// NewContactHandler creates a ContactHandler with the given service.
func NewContactHandler(submissions service.SubmissionService, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{submissions: submissions, logger: logger}
}

type submitResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	SubmissionID string `json:"submission_id"`
}

// validationResponse lists rejected fields by JSON name.
type validationResponse struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields"`
}

func writeValidationError(w http.ResponseWriter, ve *service.ValidationError) {
	fields := make(map[string]string, len(ve.Fields))
	for _, f := range ve.Fields {
		fields[f.Field] = f.Message
	}
	writeJSON(w, http.StatusBadRequest, validationResponse{Error: "validation_failed", Fields: fields})
}

// Submit handles POST /api/contact.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var in model.ContactInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	sub, err := h.submissions.SubmitContact(r.Context(), in)
	if err != nil {
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			writeValidationError(w, ve)
			return
		}
		h.logger.ErrorContext(r.Context(), "contact submission failed", "error", err)
		writeError(w, http.StatusInternalServerError, "submit_failed")
		return
	}

	writeJSON(w, http.StatusCreated, submitResponse{
		Success:      true,
		Message:      "Thank you for contacting us! We will get back to you soon.",
		SubmissionID: sub.ID,
	})
}
