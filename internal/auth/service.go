package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-dms/meridian-dms/internal/shared"
)

const (
	maxLoginAttempts = 5
	lockDuration     = 15 * time.Minute
)

// RepositoryPort abstracts user persistence for the service.
type RepositoryPort interface {
	Create(ctx context.Context, name, email, passwordHash, role string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	RecordFailedAttempt(ctx context.Context, id int64, threshold int, lockFor time.Duration) (int, error)
	ResetAttempts(ctx context.Context, id int64) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	List(ctx context.Context) ([]User, error)
	Update(ctx context.Context, id int64, role *string, isActive *bool) (*User, error)
	Deactivate(ctx context.Context, id int64) error
}

// TokenStore tracks revoked token ids until their natural expiry.
type TokenStore interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Service wraps authentication business rules.
type Service struct {
	repo   RepositoryPort
	tokens TokenStore
	secret []byte
	ttl    time.Duration
}

// NewService constructs a new Service.
func NewService(repo RepositoryPort, tokens TokenStore, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 168 * time.Hour
	}
	return &Service{repo: repo, tokens: tokens, secret: []byte(secret), ttl: ttl}
}

// Register creates a user account with a bcrypt-hashed password. Every new
// account starts with the user role.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}
	return s.repo.Create(ctx, strings.TrimSpace(input.Name), email, string(hash), RoleUser)
}

// Login verifies credentials, enforcing the lockout window, and issues a token.
func (s *Service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}

	now := time.Now().UTC()
	if user.Locked(now) {
		remaining := time.Until(*user.LockedUntil).Round(time.Minute)
		return nil, fmt.Errorf("auth: locked for %s: %w", remaining, shared.ErrAccountLocked)
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		if _, recErr := s.repo.RecordFailedAttempt(ctx, user.ID, maxLoginAttempts, lockDuration); recErr != nil {
			return nil, recErr
		}
		return nil, shared.ErrInvalidCredentials
	}

	if err := s.repo.ResetAttempts(ctx, user.ID); err != nil {
		return nil, err
	}

	expiresAt := now.Add(s.ttl)
	token, err := s.sign(user, now, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("auth: sign token: %w", err)
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: *user}, nil
}

// Logout revokes the token until its expiry.
func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	if s.tokens == nil || claims == nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return s.tokens.Revoke(ctx, claims.ID, ttl)
}

// CurrentUser loads the full profile for the authenticated actor.
func (s *Service) CurrentUser(ctx context.Context, id int64) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

// ChangePassword rotates the password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, userID int64, input ChangePasswordInput) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.CurrentPassword)); err != nil {
		return fmt.Errorf("auth: current password mismatch: %w", shared.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("auth: hash password: %w", err)
	}
	return s.repo.UpdatePassword(ctx, userID, string(hash))
}

// ListUsers returns all accounts.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// UpdateUser applies admin changes to role or active state.
func (s *Service) UpdateUser(ctx context.Context, id int64, input UpdateUserInput) (*User, error) {
	return s.repo.Update(ctx, id, input.Role, input.IsActive)
}

// DeactivateUser soft-disables an account.
func (s *Service) DeactivateUser(ctx context.Context, id int64) error {
	return s.repo.Deactivate(ctx, id)
}

// ParseToken validates a bearer token and returns its claims.
func (s *Service) ParseToken(ctx context.Context, tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return nil, shared.ErrUnauthorized
	}
	if s.tokens != nil && claims.ID != "" {
		revoked, err := s.tokens.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, shared.ErrUnauthorized
		}
	}
	return claims, nil
}

// SubjectID parses the numeric user id out of the claims subject.
func (c *Claims) SubjectID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, shared.ErrUnauthorized
	}
	return id, nil
}

func (s *Service) sign(user *User, now, expiresAt time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    "meridian",
			ID:        uuid.NewString(),
		},
		Role: user.Role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}
