// Package complaints implements the complaint repository: creation,
// listing, search and the admin response workflow. Each complaint is its
// own versioned store document; an index document preserves creation
// order. Mutations go through compare-and-swap updates, so two writers
// racing on the same record never silently overwrite each other.
package complaints

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sudhaar/complaint-server/internal/apperror"
	"github.com/sudhaar/complaint-server/internal/kvstore"
	"github.com/sudhaar/complaint-server/internal/models"
)

const (
	complaintKeyPrefix = "complaint:"
	indexKey           = "complaint-index"

	// Submission photo bounds, enforced at creation only.
	minPhotos = 3
	maxPhotos = 5

	minDescriptionLen = 20
)

// complaintKey returns the store key for a complaint document.
func complaintKey(id string) string {
	return complaintKeyPrefix + id
}

// index is the ordered list of complaint ids, oldest first.
type index struct {
	IDs []string `json:"ids"`
}

// Service is the complaint repository.
type Service struct {
	store  kvstore.Store
	logger *zap.SugaredLogger
}

// NewService creates a complaint service over store.
func NewService(store kvstore.Store, logger *zap.SugaredLogger) *Service {
	return &Service{store: store, logger: logger}
}

// CreateInput is the payload for Create.
type CreateInput struct {
	Title       string   `json:"title"`
	Category    string   `json:"category"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
	Photos      []string `json:"photos"`
}

// Create files a new complaint for ownerID. The record starts pending
// with an empty message thread and is appended to the index.
func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput) (*models.Complaint, error) {
	if err := validateSubmission(in); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	complaint := &models.Complaint{
		ID:          newComplaintID(),
		UserID:      ownerID,
		Title:       strings.TrimSpace(in.Title),
		Category:    in.Category,
		Location:    strings.TrimSpace(in.Location),
		Description: strings.TrimSpace(in.Description),
		Photos:      in.Photos,
		Status:      models.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
		Messages:    []models.Message{},
	}

	if err := s.insert(ctx, complaint); err != nil {
		return nil, err
	}

	s.logger.Infow("Complaint submitted",
		"id", complaint.ID,
		"user_id", ownerID,
		"category", complaint.Category,
	)
	return complaint, nil
}

// insert writes the complaint document and appends its id to the index.
func (s *Service) insert(ctx context.Context, complaint *models.Complaint) error {
	if _, err := kvstore.PutJSON(ctx, s.store, complaintKey(complaint.ID), complaint, 0); err != nil {
		return fmt.Errorf("complaints: storing %s: %w", complaint.ID, err)
	}

	_, err := kvstore.Update(ctx, s.store, indexKey, func(current json.RawMessage) (json.RawMessage, error) {
		var idx index
		if current != nil {
			if err := json.Unmarshal(current, &idx); err != nil {
				return nil, fmt.Errorf("complaints: decoding index: %w", err)
			}
		}
		idx.IDs = append(idx.IDs, complaint.ID)
		return json.Marshal(idx)
	})
	if err != nil {
		return fmt.Errorf("complaints: indexing %s: %w", complaint.ID, err)
	}
	return nil
}

// Get loads a single complaint by id.
func (s *Service) Get(ctx context.Context, id string) (*models.Complaint, error) {
	var complaint models.Complaint
	_, err := kvstore.GetJSON(ctx, s.store, complaintKey(id), &complaint)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, apperror.NotFound("complaint", id)
	}
	if err != nil {
		return nil, err
	}
	return &complaint, nil
}

// ListAll returns every complaint in creation order (admin view).
func (s *Service) ListAll(ctx context.Context) ([]models.Complaint, error) {
	var idx index
	_, err := kvstore.GetJSON(ctx, s.store, indexKey, &idx)
	if errors.Is(err, kvstore.ErrNotFound) {
		return []models.Complaint{}, nil
	}
	if err != nil {
		return nil, err
	}

	out := make([]models.Complaint, 0, len(idx.IDs))
	for _, id := range idx.IDs {
		complaint, err := s.Get(ctx, id)
		if err != nil {
			// Indexed but missing: skip rather than fail the whole listing.
			if errors.Is(err, apperror.ErrNotFound) {
				s.logger.Warnw("Indexed complaint missing from store", "id", id)
				continue
			}
			return nil, err
		}
		out = append(out, *complaint)
	}
	return out, nil
}

// ListByOwner returns ownerID's complaints in creation order.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]models.Complaint, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Complaint, 0, len(all))
	for _, c := range all {
		if c.UserID == ownerID {
			out = append(out, c)
		}
	}
	return out, nil
}

// FilterByCategory returns complaints in the given category; "all" (or
// empty) returns everything.
func (s *Service) FilterByCategory(ctx context.Context, category string) ([]models.Complaint, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if category == "" || category == "all" {
		return all, nil
	}
	out := make([]models.Complaint, 0, len(all))
	for _, c := range all {
		if c.Category == category {
			out = append(out, c)
		}
	}
	return out, nil
}

// SearchFilter narrows a listing. Zero values (and "all") mean no
// filtering on that axis; filters compose conjunctively.
type SearchFilter struct {
	OwnerID  string
	Query    string // case-insensitive substring on id or title
	Status   string
	Category string
}

// Search returns complaints matching every set filter, in creation order.
func (s *Service) Search(ctx context.Context, f SearchFilter) ([]models.Complaint, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]models.Complaint, 0, len(all))
	for _, c := range all {
		if f.OwnerID != "" && c.UserID != f.OwnerID {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(c.ID), query) &&
			!strings.Contains(strings.ToLower(c.Title), query) {
			continue
		}
		if f.Status != "" && f.Status != "all" && string(c.Status) != f.Status {
			continue
		}
		if f.Category != "" && f.Category != "all" && c.Category != f.Category {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// AppendAdminResponse sets the complaint status and appends an admin
// message in one compare-and-swap update. An empty message leaves the
// stored record untouched.
func (s *Service) AppendAdminResponse(ctx context.Context, complaintID, adminID string, newStatus models.Status, messageText string) (*models.Complaint, error) {
	messageText = strings.TrimSpace(messageText)
	if messageText == "" {
		return nil, apperror.ValidationFailed("message", "response message is required")
	}
	if !newStatus.Valid() {
		return nil, apperror.ValidationFailed("status", fmt.Sprintf("unknown status %q", newStatus))
	}

	doc, err := kvstore.Update(ctx, s.store, complaintKey(complaintID), func(current json.RawMessage) (json.RawMessage, error) {
		if current == nil {
			return nil, apperror.NotFound("complaint", complaintID)
		}
		var c models.Complaint
		if err := json.Unmarshal(current, &c); err != nil {
			return nil, fmt.Errorf("complaints: decoding %s: %w", complaintID, err)
		}

		if !legalTransition(c.Status, newStatus) {
			return nil, apperror.ValidationFailed("status",
				fmt.Sprintf("cannot move complaint from %s to %s", c.Status, newStatus))
		}

		now := time.Now().UTC()
		c.Status = newStatus
		c.UpdatedAt = now
		c.Messages = append(c.Messages, models.Message{
			ID:        newMessageID(),
			Type:      models.MessageAdmin,
			Message:   messageText,
			Timestamp: now,
			AdminID:   adminID,
		})
		return json.Marshal(c)
	})
	if err != nil {
		if errors.Is(err, kvstore.ErrVersionMismatch) {
			return nil, apperror.VersionConflict(complaintKey(complaintID))
		}
		return nil, err
	}

	var updated models.Complaint
	if err := json.Unmarshal(doc.Value, &updated); err != nil {
		return nil, fmt.Errorf("complaints: decoding %s: %w", complaintID, err)
	}

	s.logger.Infow("Admin response appended",
		"id", complaintID,
		"admin_id", adminID,
		"status", newStatus,
	)
	return &updated, nil
}

// Stats returns per-status and per-category counts for the dashboard.
func (s *Service) Stats(ctx context.Context) (*models.StatusStats, []models.CategoryCount, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, nil, err
	}

	stats := &models.StatusStats{Total: len(all)}
	byCategory := make(map[string]int, len(models.Categories))
	for _, c := range all {
		switch c.Status {
		case models.StatusPending:
			stats.Pending++
		case models.StatusInProgress:
			stats.InProgress++
		case models.StatusResolved:
			stats.Resolved++
		case models.StatusRejected:
			stats.Rejected++
		}
		byCategory[c.Category]++
	}

	counts := make([]models.CategoryCount, 0, len(models.Categories))
	for _, cat := range models.Categories {
		counts = append(counts, models.CategoryCount{Category: cat, Count: byCategory[cat]})
	}
	return stats, counts, nil
}

// legalTransition is the status workflow. Same-status responses are
// allowed (message-only update); resolved and rejected complaints can be
// reopened into in_progress.
func legalTransition(from, to models.Status) bool {
	if from == to {
		return true
	}
	switch from {
	case models.StatusPending:
		return to == models.StatusInProgress || to == models.StatusResolved || to == models.StatusRejected
	case models.StatusInProgress:
		return to == models.StatusResolved || to == models.StatusRejected
	case models.StatusResolved, models.StatusRejected:
		return to == models.StatusInProgress
	}
	return false
}

func validateSubmission(in CreateInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return apperror.ValidationFailed("title", "title is required")
	}
	if !models.ValidCategory(in.Category) {
		return apperror.ValidationFailed("category", fmt.Sprintf("unknown category %q", in.Category))
	}
	if strings.TrimSpace(in.Location) == "" {
		return apperror.ValidationFailed("location", "location is required")
	}
	if len(strings.TrimSpace(in.Description)) < minDescriptionLen {
		return apperror.ValidationFailed("description",
			fmt.Sprintf("description must be at least %d characters", minDescriptionLen))
	}
	if len(in.Photos) < minPhotos || len(in.Photos) > maxPhotos {
		return apperror.ValidationFailed("photos",
			fmt.Sprintf("between %d and %d photos are required", minPhotos, maxPhotos))
	}
	return nil
}

func newComplaintID() string {
	return "C" + strings.ToUpper(uuid.NewString()[:8])
}

func newMessageID() string {
	return "msg-" + uuid.NewString()[:8]
}
