package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sudhaar/complaint-server/internal/audit"
)

// AuditHandler serves the administrative audit log.
type AuditHandler struct {
	svc    *audit.Service
	logger *zap.SugaredLogger
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(svc *audit.Service, logger *zap.SugaredLogger) *AuditHandler {
	return &AuditHandler{svc: svc, logger: logger}
}

// Recent handles GET /api/v1/admin/audit?limit=
func (h *AuditHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	entries, err := h.svc.Recent(r.Context(), limit)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// ByComplaint handles GET /api/v1/admin/audit/complaint/{id}
func (h *AuditHandler) ByComplaint(w http.ResponseWriter, r *http.Request) {
	complaintID := chi.URLParam(r, "id")
	if complaintID == "" {
		respondError(w, http.StatusBadRequest, "Complaint id required")
		return
	}

	entries, err := h.svc.ByComplaint(r.Context(), complaintID)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}
