// Package session resolves the currently authenticated identity and
// applies profile mutations. The "session" itself is the bearer token
// the client holds; this service owns what the token points at.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sudhaar/complaint-server/internal/apperror"
	"github.com/sudhaar/complaint-server/internal/identity"
	"github.com/sudhaar/complaint-server/internal/kvstore"
	"github.com/sudhaar/complaint-server/internal/models"
)

// Service loads and mutates the authenticated user's record.
type Service struct {
	store  kvstore.Store
	logger *zap.SugaredLogger
}

// NewService creates a session service over store.
func NewService(store kvstore.Store, logger *zap.SugaredLogger) *Service {
	return &Service{store: store, logger: logger}
}

// Current returns the user record for the authenticated id.
func (s *Service) Current(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	_, err := kvstore.GetJSON(ctx, s.store, identity.UserKey(userID), &user)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, apperror.NotFound("user", userID)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ProfileUpdate carries the optional fields of a profile mutation. Nil
// pointers are left unchanged; set fields are merged into the record.
type ProfileUpdate struct {
	Name              *string `json:"name,omitempty"`
	Mobile            *string `json:"mobile,omitempty"`
	PreferredLanguage *string `json:"preferredLanguage,omitempty"`
	Theme             *string `json:"theme,omitempty"`
}

// UpdateProfile merges the provided fields into the stored user via a
// compare-and-swap update and returns the merged record. Language and
// theme propagation to the UI is the client's job; the server only
// persists the preference.
func (s *Service) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*models.User, error) {
	if err := validateUpdate(upd); err != nil {
		return nil, err
	}

	doc, err := kvstore.Update(ctx, s.store, identity.UserKey(userID), func(current json.RawMessage) (json.RawMessage, error) {
		if current == nil {
			return nil, apperror.NotFound("user", userID)
		}
		var user models.User
		if err := json.Unmarshal(current, &user); err != nil {
			return nil, fmt.Errorf("session: decoding user %s: %w", userID, err)
		}

		if upd.Name != nil {
			user.Name = strings.TrimSpace(*upd.Name)
		}
		if upd.Mobile != nil {
			user.Mobile = strings.TrimSpace(*upd.Mobile)
		}
		if upd.PreferredLanguage != nil {
			user.PreferredLanguage = *upd.PreferredLanguage
		}
		if upd.Theme != nil {
			user.Theme = *upd.Theme
		}
		user.UpdatedAt = time.Now().UTC()

		return json.Marshal(user)
	})
	if err != nil {
		if errors.Is(err, kvstore.ErrVersionMismatch) {
			return nil, apperror.VersionConflict(identity.UserKey(userID))
		}
		return nil, err
	}

	var user models.User
	if err := json.Unmarshal(doc.Value, &user); err != nil {
		return nil, fmt.Errorf("session: decoding user %s: %w", userID, err)
	}

	s.logger.Infow("Profile updated", "user_id", userID)
	return &user, nil
}

func validateUpdate(upd ProfileUpdate) error {
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return apperror.ValidationFailed("name", "name cannot be empty")
	}
	if upd.PreferredLanguage != nil {
		switch *upd.PreferredLanguage {
		case models.LanguageEnglish, models.LanguageHindi:
		default:
			return apperror.ValidationFailed("preferredLanguage",
				fmt.Sprintf("unsupported language %q", *upd.PreferredLanguage))
		}
	}
	if upd.Theme != nil {
		switch *upd.Theme {
		case models.ThemeLight, models.ThemeDark:
		default:
			return apperror.ValidationFailed("theme", fmt.Sprintf("unsupported theme %q", *upd.Theme))
		}
	}
	return nil
}
