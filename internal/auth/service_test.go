package auth

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-dms/meridian-dms/internal/shared"
)

type memoryUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{nextID: 1, users: make(map[int64]*User)}
}

func (r *memoryUserRepo) Create(_ context.Context, name, email, passwordHash, role string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return nil, shared.ErrDuplicate
		}
	}
	now := time.Now().UTC()
	u := &User{ID: r.nextID, Name: name, Email: email, Role: role, IsActive: true, PasswordHash: passwordHash, CreatedAt: now, UpdatedAt: now}
	r.users[u.ID] = u
	r.nextID++
	clone := *u
	return &clone, nil
}

func (r *memoryUserRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryUserRepo) FindByID(_ context.Context, id int64) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *memoryUserRepo) RecordFailedAttempt(_ context.Context, id int64, threshold int, lockFor time.Duration) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return 0, shared.ErrNotFound
	}
	u.FailedAttempts++
	if u.FailedAttempts >= threshold {
		until := time.Now().UTC().Add(lockFor)
		u.LockedUntil = &until
	}
	return u.FailedAttempts, nil
}

func (r *memoryUserRepo) ResetAttempts(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.FailedAttempts = 0
		u.LockedUntil = nil
	}
	return nil
}

func (r *memoryUserRepo) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (r *memoryUserRepo) List(_ context.Context) ([]User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

func (r *memoryUserRepo) Update(_ context.Context, id int64, role *string, isActive *bool) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	if role != nil {
		u.Role = *role
	}
	if isActive != nil {
		u.IsActive = *isActive
	}
	clone := *u
	return &clone, nil
}

func (r *memoryUserRepo) Deactivate(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.IsActive = false
	return nil
}

type memoryTokenStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func newMemoryTokenStore() *memoryTokenStore {
	return &memoryTokenStore{revoked: make(map[string]time.Time)}
}

func (s *memoryTokenStore) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[jti] = time.Now().Add(ttl)
	return nil
}

func (s *memoryTokenStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.revoked[jti]
	return ok && until.After(time.Now()), nil
}

func newTestService(t *testing.T) (*Service, *memoryUserRepo) {
	t.Helper()
	repo := newMemoryUserRepo()
	return NewService(repo, newMemoryTokenStore(), "test-secret", time.Hour), repo
}

func registerUser(t *testing.T, svc *Service, email, password string) *User {
	t.Helper()
	user, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Operator",
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)
	return user
}

func TestRegisterHashesPassword(t *testing.T) {
	svc, repo := newTestService(t)
	user := registerUser(t, svc, "ops@meridian.test", "Sup3rSecret")

	stored := repo.users[user.ID]
	require.NotEqual(t, "Sup3rSecret", stored.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("Sup3rSecret")))
	require.Equal(t, RoleUser, user.Role)
}

func TestRegisterIgnoresSubmittedRole(t *testing.T) {
	svc, repo := newTestService(t)

	var input RegisterInput
	body := `{"name":"Operator","email":"ops@meridian.test","password":"Sup3rSecret","role":"admin"}`
	require.NoError(t, json.Unmarshal([]byte(body), &input))

	user, err := svc.Register(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, RoleUser, user.Role)
	require.Equal(t, RoleUser, repo.users[user.ID].Role)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	registerUser(t, svc, "ops@meridian.test", "Sup3rSecret")

	_, err := svc.Register(context.Background(), RegisterInput{Name: "Other", Email: "ops@meridian.test", Password: "An0therSecret"})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestLoginIssuesParseableToken(t *testing.T) {
	svc, _ := newTestService(t)
	user := registerUser(t, svc, "ops@meridian.test", "Sup3rSecret")

	result, err := svc.Login(context.Background(), LoginInput{Email: "ops@meridian.test", Password: "Sup3rSecret"})
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)

	claims, err := svc.ParseToken(context.Background(), result.Token)
	require.NoError(t, err)
	id, err := claims.SubjectID()
	require.NoError(t, err)
	require.Equal(t, user.ID, id)
	require.Equal(t, RoleUser, claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestService(t)
	registerUser(t, svc, "ops@meridian.test", "Sup3rSecret")

	_, err := svc.Login(context.Background(), LoginInput{Email: "ops@meridian.test", Password: "wrong"})
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLoginLocksAfterFiveFailures(t *testing.T) {
	svc, repo := newTestService(t)
	user := registerUser(t, svc, "ops@meridian.test", "Sup3rSecret")

	for i := 0; i < maxLoginAttempts; i++ {
		_, err := svc.Login(context.Background(), LoginInput{Email: "ops@meridian.test", Password: "wrong"})
		require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	}
	require.NotNil(t, repo.users[user.ID].LockedUntil)

	_, err := svc.Login(context.Background(), LoginInput{Email: "ops@meridian.test", Password: "Sup3rSecret"})
	require.ErrorIs(t, err, shared.ErrAccountLocked)
}

func TestLoginResetsAttemptsOnSuccess(t *testing.T) {
	svc, repo := newTestService(t)
	user := registerUser(t, svc, "ops@meridian.test", "Sup3rSecret")

	for i := 0; i < maxLoginAttempts-1; i++ {
		_, err := svc.Login(context.Background(), LoginInput{Email: "ops@meridian.test", Password: "wrong"})
		require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	}

	_, err := svc.Login(context.Background(), LoginInput{Email: "ops@meridian.test", Password: "Sup3rSecret"})
	require.NoError(t, err)
	require.Zero(t, repo.users[user.ID].FailedAttempts)
	require.Nil(t, repo.users[user.ID].LockedUntil)
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, _ := newTestService(t)
	registerUser(t, svc, "ops@meridian.test", "Sup3rSecret")

	result, err := svc.Login(context.Background(), LoginInput{Email: "ops@meridian.test", Password: "Sup3rSecret"})
	require.NoError(t, err)

	claims, err := svc.ParseToken(context.Background(), result.Token)
	require.NoError(t, err)
	require.NoError(t, svc.Logout(context.Background(), claims))

	_, err = svc.ParseToken(context.Background(), result.Token)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestChangePasswordRequiresCurrent(t *testing.T) {
	svc, _ := newTestService(t)
	user := registerUser(t, svc, "ops@meridian.test", "Sup3rSecret")

	err := svc.ChangePassword(context.Background(), user.ID, ChangePasswordInput{CurrentPassword: "wrong", NewPassword: "N3wSecret!"})
	require.ErrorIs(t, err, shared.ErrValidation)

	err = svc.ChangePassword(context.Background(), user.ID, ChangePasswordInput{CurrentPassword: "Sup3rSecret", NewPassword: "N3wSecret!"})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginInput{Email: "ops@meridian.test", Password: "N3wSecret!"})
	require.NoError(t, err)
}

func TestInactiveUserCannotLogin(t *testing.T) {
	svc, _ := newTestService(t)
	user := registerUser(t, svc, "ops@meridian.test", "Sup3rSecret")

	require.NoError(t, svc.DeactivateUser(context.Background(), user.ID))
	_, err := svc.Login(context.Background(), LoginInput{Email: "ops@meridian.test", Password: "Sup3rSecret"})
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}
