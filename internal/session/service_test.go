package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sudhaar/complaint-server/internal/apperror"
	"github.com/sudhaar/complaint-server/internal/identity"
	"github.com/sudhaar/complaint-server/internal/kvstore"
	"github.com/sudhaar/complaint-server/internal/models"
)

func newTestServices(t *testing.T) (*Service, *identity.Service, kvstore.Store) {
	t.Helper()
	store := kvstore.NewMemory()
	tokens, err := identity.NewTokenService("test-secret-at-least-16-chars")
	require.NoError(t, err)
	identitySvc := identity.NewServiceWithCost(store, tokens, zap.NewNop().Sugar(), bcrypt.MinCost)
	return NewService(store, zap.NewNop().Sugar()), identitySvc, store
}

func registerUser(t *testing.T, identitySvc *identity.Service) *models.User {
	t.Helper()
	result, err := identitySvc.Register(context.Background(), identity.RegisterInput{
		Email:    "meera@example.com",
		Password: "secret123",
		Name:     "Meera Shah",
	})
	require.NoError(t, err)
	return result.User
}

func strPtr(s string) *string { return &s }

func TestCurrentReturnsStoredUser(t *testing.T) {
	svc, identitySvc, _ := newTestServices(t)
	user := registerUser(t, identitySvc)

	got, err := svc.Current(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)
}

func TestCurrentUnknownUser(t *testing.T) {
	svc, _, _ := newTestServices(t)

	_, err := svc.Current(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUpdateProfileMergesFields(t *testing.T) {
	svc, identitySvc, _ := newTestServices(t)
	ctx := context.Background()
	user := registerUser(t, identitySvc)

	updated, err := svc.UpdateProfile(ctx, user.ID, ProfileUpdate{
		Name:              strPtr("Meera S."),
		PreferredLanguage: strPtr(models.LanguageHindi),
		Theme:             strPtr(models.ThemeDark),
	})
	require.NoError(t, err)

	assert.Equal(t, "Meera S.", updated.Name)
	assert.Equal(t, models.LanguageHindi, updated.PreferredLanguage)
	assert.Equal(t, models.ThemeDark, updated.Theme)
	// Untouched fields survive the merge.
	assert.Equal(t, user.Email, updated.Email)
	assert.Equal(t, user.Role, updated.Role)

	// The mutation is visible through the identity store too: there is
	// one user record, not a session copy.
	reread, err := identitySvc.UserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Meera S.", reread.Name)
	assert.Equal(t, models.LanguageHindi, reread.PreferredLanguage)
}

func TestUpdateProfilePartialUpdateKeepsOtherFields(t *testing.T) {
	svc, identitySvc, _ := newTestServices(t)
	ctx := context.Background()
	user := registerUser(t, identitySvc)

	updated, err := svc.UpdateProfile(ctx, user.ID, ProfileUpdate{Mobile: strPtr("+91 9111111111")})
	require.NoError(t, err)

	assert.Equal(t, "+91 9111111111", updated.Mobile)
	assert.Equal(t, user.Name, updated.Name)
	assert.Equal(t, models.LanguageEnglish, updated.PreferredLanguage)
}

func TestUpdateProfileValidation(t *testing.T) {
	svc, identitySvc, _ := newTestServices(t)
	ctx := context.Background()
	user := registerUser(t, identitySvc)

	_, err := svc.UpdateProfile(ctx, user.ID, ProfileUpdate{PreferredLanguage: strPtr("fr")})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = svc.UpdateProfile(ctx, user.ID, ProfileUpdate{Theme: strPtr("neon")})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = svc.UpdateProfile(ctx, user.ID, ProfileUpdate{Name: strPtr("  ")})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestUpdateProfileUnknownUser(t *testing.T) {
	svc, _, _ := newTestServices(t)

	_, err := svc.UpdateProfile(context.Background(), "ghost", ProfileUpdate{Name: strPtr("Nobody")})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
