// Package identity manages user accounts, credentials and session
// tokens. Credentials are stored as bcrypt hashes keyed by email; the
// plaintext secret never touches the store.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sudhaar/complaint-server/internal/apperror"
	"github.com/sudhaar/complaint-server/internal/kvstore"
	"github.com/sudhaar/complaint-server/internal/models"
)

// emailRef is the email→id mapping document.
type emailRef struct {
	UserID string `json:"userId"`
}

// credential is the stored credential document. Hash is a bcrypt hash,
// salt included; there is exactly one credential per email.
type credential struct {
	Email string `json:"email"`
	Hash  string `json:"hash"`
}

// Service is the identity store: registration, authentication and the
// bootstrap seed. All state lives in the injected kvstore.Store.
type Service struct {
	store      kvstore.Store
	tokens     *TokenService
	logger     *zap.SugaredLogger
	bcryptCost int
}

// NewService creates an identity service over store.
func NewService(store kvstore.Store, tokens *TokenService, logger *zap.SugaredLogger) *Service {
	return &Service{
		store:      store,
		tokens:     tokens,
		logger:     logger,
		bcryptCost: bcrypt.DefaultCost,
	}
}

// NewServiceWithCost creates an identity service with a custom bcrypt
// cost. Tests use bcrypt.MinCost to avoid the per-hash latency.
func NewServiceWithCost(store kvstore.Store, tokens *TokenService, logger *zap.SugaredLogger, cost int) *Service {
	s := NewService(store, tokens, logger)
	s.bcryptCost = cost
	return s
}

// RegisterInput is the payload for Register.
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Mobile   string `json:"mobile,omitempty"`
}

// AuthResult bundles the authenticated user with the session token the
// handler hands back to the client.
type AuthResult struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Register creates a user-role account with default preferences and
// issues a session token. Fails with ErrDuplicateEmail if the email is
// taken — the one place the API reveals that an account exists.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	email := NormalizeEmail(in.Email)
	now := time.Now().UTC()
	user := &models.User{
		ID:                uuid.NewString(),
		Email:             email,
		Name:              strings.TrimSpace(in.Name),
		Mobile:            strings.TrimSpace(in.Mobile),
		Role:              models.RoleUser,
		PreferredLanguage: models.LanguageEnglish,
		Theme:             models.ThemeLight,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	result, err := s.createAccount(ctx, user, in.Password)
	if err != nil {
		return nil, err
	}

	s.logger.Infow("User registered", "user_id", user.ID)
	return result, nil
}

// createAccount claims the email mapping, then writes the credential and
// user documents. The create-only write on the email key is the
// uniqueness check: two racing registrations for the same email cannot
// both win it.
func (s *Service) createAccount(ctx context.Context, user *models.User, password string) (*AuthResult, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("identity: hashing password: %w", err)
	}

	ref := emailRef{UserID: user.ID}
	if _, err := kvstore.PutJSON(ctx, s.store, EmailKey(user.Email), ref, 0); err != nil {
		if errors.Is(err, kvstore.ErrVersionMismatch) {
			return nil, apperror.DuplicateEmail(user.Email)
		}
		return nil, fmt.Errorf("identity: claiming email: %w", err)
	}

	cred := credential{Email: user.Email, Hash: string(hash)}
	if _, err := kvstore.PutJSON(ctx, s.store, CredentialKey(user.Email), cred, kvstore.AnyVersion); err != nil {
		return nil, fmt.Errorf("identity: storing credential: %w", err)
	}
	if _, err := kvstore.PutJSON(ctx, s.store, UserKey(user.ID), user, kvstore.AnyVersion); err != nil {
		return nil, fmt.Errorf("identity: storing user: %w", err)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token}, nil
}

// Login authenticates an email/password pair and issues a session token.
// Every failure is ErrInvalidCredentials: the response never says whether
// the email or the password was wrong.
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var cred credential
	_, err := kvstore.GetJSON(ctx, s.store, CredentialKey(email), &cred)
	if errors.Is(err, kvstore.ErrNotFound) {
		// Burn a comparison anyway so unknown emails cost the same.
		bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, apperror.InvalidCredentials()
	}
	if err != nil {
		return nil, fmt.Errorf("identity: loading credential: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(cred.Hash), []byte(password)) != nil {
		return nil, apperror.InvalidCredentials()
	}

	user, err := s.UserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	s.logger.Infow("User logged in", "user_id", user.ID)
	return &AuthResult{User: user, Token: token}, nil
}

// Logout records the logout. Session tokens are bearer tokens the client
// discards; stored records are untouched.
func (s *Service) Logout(ctx context.Context, userID string) {
	s.logger.Infow("User logged out", "user_id", userID)
}

// UserByID loads a user document.
func (s *Service) UserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	_, err := kvstore.GetJSON(ctx, s.store, UserKey(id), &user)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, apperror.NotFound("user", id)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UserByEmail resolves the email mapping and loads the user document.
func (s *Service) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var ref emailRef
	_, err := kvstore.GetJSON(ctx, s.store, EmailKey(email), &ref)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, apperror.NotFound("user", email)
	}
	if err != nil {
		return nil, err
	}
	return s.UserByID(ctx, ref.UserID)
}

// Bootstrap accounts. The seed is idempotent: if the admin's email
// mapping already exists nothing is written.
const (
	SeedAdminID    = "admin-1"
	SeedAdminEmail = "admin@sudhaar.gov.in"
	SeedUserID     = "user-1"
	SeedUserEmail  = "user@example.com"

	seedAdminPassword = "admin123"
	seedUserPassword  = "user123"
)

// Seed creates the bootstrap administrator and sample user accounts.
func (s *Service) Seed(ctx context.Context) error {
	if _, err := s.store.Get(ctx, EmailKey(SeedAdminEmail)); err == nil {
		return nil
	} else if !errors.Is(err, kvstore.ErrNotFound) {
		return fmt.Errorf("identity: checking seed admin: %w", err)
	}

	now := time.Now().UTC()
	admin := &models.User{
		ID:                SeedAdminID,
		Email:             SeedAdminEmail,
		Name:              "System Administrator",
		Role:              models.RoleAdmin,
		PreferredLanguage: models.LanguageEnglish,
		Theme:             models.ThemeLight,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	sample := &models.User{
		ID:                SeedUserID,
		Email:             SeedUserEmail,
		Name:              "Sample User",
		Mobile:            "+91 9876543210",
		Role:              models.RoleUser,
		PreferredLanguage: models.LanguageEnglish,
		Theme:             models.ThemeLight,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	accounts := []struct {
		user     *models.User
		password string
	}{
		{admin, seedAdminPassword},
		{sample, seedUserPassword},
	}
	for _, a := range accounts {
		if _, err := s.createAccount(ctx, a.user, a.password); err != nil {
			// Another instance may have seeded concurrently.
			if errors.Is(err, apperror.ErrDuplicateEmail) {
				continue
			}
			return fmt.Errorf("identity: seeding %s: %w", a.user.Email, err)
		}
	}

	s.logger.Infow("Seeded bootstrap accounts", "admin", SeedAdminEmail, "user", SeedUserEmail)
	return nil
}

func validateRegistration(in RegisterInput) error {
	email := NormalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return apperror.ValidationFailed("email", "a valid email is required")
	}
	if len(in.Password) < 6 {
		return apperror.ValidationFailed("password", "password must be at least 6 characters")
	}
	if len(in.Password) > 72 {
		// bcrypt truncates beyond 72 bytes; reject instead of surprising callers
		return apperror.ValidationFailed("password", "password must be 72 characters or fewer")
	}
	if strings.TrimSpace(in.Name) == "" {
		return apperror.ValidationFailed("name", "name is required")
	}
	return nil
}

// dummyHash is a bcrypt hash of an unguessable value, compared against
// when the email is unknown so login latency does not leak existence.
var dummyHash = func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.MinCost)
	return h
}()
