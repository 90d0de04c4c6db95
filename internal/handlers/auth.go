package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/sudhaar/complaint-server/internal/identity"
	"github.com/sudhaar/complaint-server/internal/middleware"
)

// AuthHandler handles registration, login and logout.
type AuthHandler struct {
	identitySvc *identity.Service
	logger      *zap.SugaredLogger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(svc *identity.Service, logger *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{identitySvc: svc, logger: logger}
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in identity.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.identitySvc.Register(r.Context(), in)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.identitySvc.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.identitySvc.Logout(r.Context(), middleware.UserID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}
