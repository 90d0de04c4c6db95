// Package audit records administrative actions for accountability.
// Entries are append-only documents keyed by a sortable timestamp, so a
// prefix listing yields chronological order without an index.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sudhaar/complaint-server/internal/kvstore"
	"github.com/sudhaar/complaint-server/internal/models"
)

const auditKeyPrefix = "audit:"

// Actions recorded in the log.
const (
	ActionSeed          = "seed"
	ActionAdminResponse = "admin_response"
	ActionProfileUpdate = "profile_update"
)

// Service writes and reads the audit log.
type Service struct {
	store  kvstore.Store
	logger *zap.SugaredLogger
}

// NewService creates an audit service over store.
func NewService(store kvstore.Store, logger *zap.SugaredLogger) *Service {
	return &Service{store: store, logger: logger}
}

// Record appends an audit entry. Audit failures are logged but do not
// fail the action being audited; callers may ignore the error.
func (s *Service) Record(ctx context.Context, action, actorID, complaintID, detail string) error {
	entry := models.AuditEntry{
		ID:          uuid.NewString(),
		ComplaintID: complaintID,
		Action:      action,
		ActorID:     actorID,
		Detail:      detail,
		CreatedAt:   time.Now().UTC(),
	}

	key := fmt.Sprintf("%s%020d-%s", auditKeyPrefix, entry.CreatedAt.UnixNano(), entry.ID[:8])
	if _, err := kvstore.PutJSON(ctx, s.store, key, entry, 0); err != nil {
		s.logger.Errorw("Failed to record audit entry", "action", action, "error", err)
		return err
	}

	s.logger.Infow("Audit entry recorded",
		"action", action,
		"actor_id", actorID,
		"complaint_id", complaintID,
	)
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	docs, err := s.store.List(ctx, auditKeyPrefix)
	if err != nil {
		return nil, err
	}

	entries := make([]models.AuditEntry, 0, limit)
	for i := len(docs) - 1; i >= 0 && len(entries) < limit; i-- {
		var entry models.AuditEntry
		if err := json.Unmarshal(docs[i].Value, &entry); err != nil {
			s.logger.Warnw("Skipping malformed audit entry", "key", docs[i].Key)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ByComplaint returns all entries for a complaint, newest first.
func (s *Service) ByComplaint(ctx context.Context, complaintID string) ([]models.AuditEntry, error) {
	docs, err := s.store.List(ctx, auditKeyPrefix)
	if err != nil {
		return nil, err
	}

	var entries []models.AuditEntry
	for i := len(docs) - 1; i >= 0; i-- {
		var entry models.AuditEntry
		if err := json.Unmarshal(docs[i].Value, &entry); err != nil {
			continue
		}
		if entry.ComplaintID == complaintID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}
