package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/sudhaar/complaint-server/internal/audit"
	"github.com/sudhaar/complaint-server/internal/middleware"
	"github.com/sudhaar/complaint-server/internal/session"
)

// ProfileHandler serves the authenticated user's record and profile
// mutations.
type ProfileHandler struct {
	sessionSvc *session.Service
	auditSvc   *audit.Service
	logger     *zap.SugaredLogger
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(sessionSvc *session.Service, auditSvc *audit.Service, logger *zap.SugaredLogger) *ProfileHandler {
	return &ProfileHandler{sessionSvc: sessionSvc, auditSvc: auditSvc, logger: logger}
}

// Me handles GET /api/v1/me
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.sessionSvc.Current(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// Update handles PATCH /api/v1/me
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var upd session.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	userID := middleware.UserID(r.Context())
	user, err := h.sessionSvc.UpdateProfile(r.Context(), userID, upd)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	_ = h.auditSvc.Record(r.Context(), audit.ActionProfileUpdate, userID, "", "profile fields updated")

	respondJSON(w, http.StatusOK, user)
}
