package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sudhaar/complaint-server/internal/apperror"
	"github.com/sudhaar/complaint-server/internal/audit"
	"github.com/sudhaar/complaint-server/internal/complaints"
	"github.com/sudhaar/complaint-server/internal/middleware"
	"github.com/sudhaar/complaint-server/internal/models"
	"github.com/sudhaar/complaint-server/internal/photos"
)

// maxSubmissionBytes caps a multipart complaint submission
// (5 photos × 5 MiB plus form fields).
const maxSubmissionBytes = 32 << 20

// ComplaintHandler handles complaint-related HTTP endpoints.
type ComplaintHandler struct {
	complaintSvc *complaints.Service
	auditSvc     *audit.Service
	logger       *zap.SugaredLogger
}

// NewComplaintHandler creates a new complaint handler.
func NewComplaintHandler(cs *complaints.Service, as *audit.Service, logger *zap.SugaredLogger) *ComplaintHandler {
	return &ComplaintHandler{complaintSvc: cs, auditSvc: as, logger: logger}
}

// Submit handles POST /api/v1/complaints. Accepts either a JSON body
// with photos already encoded as data URLs, or a multipart form with
// raw photo files which are encoded server-side.
func (h *ComplaintHandler) Submit(w http.ResponseWriter, r *http.Request) {
	in, err := h.parseSubmission(r)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	complaint, err := h.complaintSvc.Create(r.Context(), middleware.UserID(r.Context()), *in)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, complaint)
}

func (h *ComplaintHandler) parseSubmission(r *http.Request) (*complaints.CreateInput, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var in complaints.CreateInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			return nil, apperror.ValidationFailed("body", "invalid request body")
		}
		return &in, nil
	}

	if err := r.ParseMultipartForm(maxSubmissionBytes); err != nil {
		return nil, apperror.ValidationFailed("body", "invalid multipart form")
	}

	files := r.MultipartForm.File["photos"]
	readers := make([]io.Reader, 0, len(files))
	closers := make([]io.Closer, 0, len(files))
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, apperror.ValidationFailed("photos", fmt.Sprintf("could not read photo %s", fh.Filename))
		}
		readers = append(readers, f)
		closers = append(closers, f)
	}

	encoded, err := photos.Encode(r.Context(), readers)
	if err != nil {
		return nil, err
	}

	return &complaints.CreateInput{
		Title:       r.FormValue("title"),
		Category:    r.FormValue("category"),
		Location:    r.FormValue("location"),
		Description: r.FormValue("description"),
		Photos:      encoded,
	}, nil
}

// Mine handles GET /api/v1/complaints/mine
func (h *ComplaintHandler) Mine(w http.ResponseWriter, r *http.Request) {
	list, err := h.complaintSvc.ListByOwner(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// Search handles GET /api/v1/complaints/search?q=&status=&category=
// Regular users see only their own complaints; admins search everything.
func (h *ComplaintHandler) Search(w http.ResponseWriter, r *http.Request) {
	filter := complaints.SearchFilter{
		Query:    r.URL.Query().Get("q"),
		Status:   r.URL.Query().Get("status"),
		Category: r.URL.Query().Get("category"),
	}
	if middleware.Role(r.Context()) != models.RoleAdmin {
		filter.OwnerID = middleware.UserID(r.Context())
	}

	list, err := h.complaintSvc.Search(r.Context(), filter)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// ListAll handles GET /api/v1/complaints?category= (admin view).
func (h *ComplaintHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	list, err := h.complaintSvc.FilterByCategory(r.Context(), category)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// Respond handles POST /api/v1/complaints/{id}/response (admin).
func (h *ComplaintHandler) Respond(w http.ResponseWriter, r *http.Request) {
	complaintID := chi.URLParam(r, "id")
	if complaintID == "" {
		respondError(w, http.StatusBadRequest, "Complaint id required")
		return
	}

	var in struct {
		Status  models.Status `json:"status"`
		Message string        `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	adminID := middleware.UserID(r.Context())
	complaint, err := h.complaintSvc.AppendAdminResponse(r.Context(), complaintID, adminID, in.Status, in.Message)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	_ = h.auditSvc.Record(r.Context(), audit.ActionAdminResponse, adminID, complaintID,
		fmt.Sprintf("status set to %s", in.Status))

	respondJSON(w, http.StatusOK, complaint)
}

// Stats handles GET /api/v1/admin/stats
func (h *ComplaintHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, categories, err := h.complaintSvc.Stats(r.Context())
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":     stats,
		"categories": categories,
	})
}
