package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/nimbusworks/platform-api/internal/core/domain"
	"github.com/nimbusworks/platform-api/internal/core/ports"
)

// AuthService implements registration, login and logout. A successful login
// writes a session record to the session store and mints a bearer token
// referencing it; the token itself carries no authorization state.
type AuthService struct {
	users     ports.UserRepository
	sessions  ports.SessionStore
	jwtSecret string
	tokenTTL  time.Duration
}

func NewAuthService(users ports.UserRepository, sessions ports.SessionStore, jwtSecret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{users: users, sessions: sessions, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

func (s *AuthService) Register(ctx context.Context, email, password string, role domain.Role, organizationID string) (*domain.User, error) {
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownRole, role)
	}
	// Privileged roles are assigned through the admin endpoints, never by
	// self-registration.
	if domain.RoleLevel(role) > domain.RoleLevel(domain.RoleOrgMember) {
		return nil, domain.ErrForbidden
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		Email:          email,
		PasswordHash:   string(hash),
		Role:           role,
		OrganizationID: organizationID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return s.users.Create(ctx, user)
}

func (s *AuthService) Login(ctx context.Context, email, password string, mfaVerified bool) (string, *domain.User, error) {
	if email == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	rec := domain.SessionRecord{
		ID:             uuid.NewString(),
		UserID:         user.ID,
		Role:           user.Role,
		OrganizationID: user.OrganizationID,
		MFAVerified:    mfaVerified && user.MFAEnrolled,
		IssuedAt:       time.Now().UTC(),
	}
	if err := s.sessions.Put(ctx, rec, s.tokenTTL); err != nil {
		return "", nil, fmt.Errorf("store session: %w", err)
	}

	token, err := s.mintToken(rec)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return domain.ErrUnauthenticated
	}
	return s.sessions.Delete(ctx, sessionID)
}

// mintToken produces the opaque bearer credential. Only the session ID and
// subject go into the claims; role, MFA state and issue time live in the
// session record so they cannot be replayed from a stale token.
func (s *AuthService) mintToken(rec domain.SessionRecord) (string, error) {
	claims := jwt.MapClaims{
		"sid": rec.ID,
		"sub": rec.UserID,
		"exp": rec.IssuedAt.Add(s.tokenTTL).Unix(),
		"iat": rec.IssuedAt.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}
