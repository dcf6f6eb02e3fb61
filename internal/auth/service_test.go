package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vecino-erp/vecino-erp/internal/shared"
)

type memoryAuthRepo struct {
	users    map[string]*User
	sessions map[string]uuid.UUID
}

func newMemoryAuthRepo() *memoryAuthRepo {
	return &memoryAuthRepo{
		users:    make(map[string]*User),
		sessions: make(map[string]uuid.UUID),
	}
}

func (m *memoryAuthRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	u, ok := m.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *memoryAuthRepo) CreateUser(_ context.Context, email, passwordHash string) (*User, error) {
	if _, ok := m.users[email]; ok {
		return nil, shared.ErrDuplicate
	}
	u := &User{ID: uuid.New(), Email: email, PasswordHash: passwordHash, IsActive: true}
	m.users[email] = u
	copied := *u
	return &copied, nil
}

func (m *memoryAuthRepo) CreateSession(_ context.Context, id string, userID uuid.UUID, _ time.Time, _, _ string) error {
	m.sessions[id] = userID
	return nil
}

func (m *memoryAuthRepo) DeleteSession(_ context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func TestRegisterHashesPassword(t *testing.T) {
	repo := newMemoryAuthRepo()
	svc := NewService(repo)

	user, err := svc.Register(context.Background(), "  Ana@Example.COM ", "correcthorse")
	require.NoError(t, err)
	require.Equal(t, "ana@example.com", user.Email)
	require.NotEqual(t, "correcthorse", user.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correcthorse")))
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc := NewService(newMemoryAuthRepo())
	_, err := svc.Register(context.Background(), "ana@example.com", "short")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc := NewService(newMemoryAuthRepo())
	_, err := svc.Register(context.Background(), "ana@example.com", "correcthorse")
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), "ana@example.com", "otherpassword")
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestAuthenticate(t *testing.T) {
	repo := newMemoryAuthRepo()
	svc := NewService(repo)
	registered, err := svc.Register(context.Background(), "ana@example.com", "correcthorse")
	require.NoError(t, err)

	user, err := svc.Authenticate(context.Background(), "ANA@example.com", "correcthorse")
	require.NoError(t, err)
	require.Equal(t, registered.ID, user.ID)

	_, err = svc.Authenticate(context.Background(), "ana@example.com", "wrong")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "nobody@example.com", "correcthorse")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateRejectsInactiveUser(t *testing.T) {
	repo := newMemoryAuthRepo()
	svc := NewService(repo)
	_, err := svc.Register(context.Background(), "ana@example.com", "correcthorse")
	require.NoError(t, err)
	repo.users["ana@example.com"].IsActive = false

	_, err = svc.Authenticate(context.Background(), "ana@example.com", "correcthorse")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}
