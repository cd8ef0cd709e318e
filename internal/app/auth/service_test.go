package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"roomchat/internal/app/user"
	"roomchat/internal/pkg/auth/jwt"
	"roomchat/internal/pkg/errs"
)

const testSecret = "test-secret"

type memoryUsers struct {
	mu       sync.Mutex
	accounts map[string]user.Account
	fail     error
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{accounts: make(map[string]user.Account)}
}

func (m *memoryUsers) Create(_ context.Context, userName, passwordHash string) (user.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail != nil {
		return user.Account{}, m.fail
	}
	if _, ok := m.accounts[userName]; ok {
		return user.Account{}, user.ErrAlreadyExists
	}

	account := user.Account{ID: userName + "-id", UserName: userName, PasswordHash: passwordHash, CreatedAt: time.Now()}
	m.accounts[userName] = account
	return account, nil
}

func (m *memoryUsers) FindByUserName(_ context.Context, userName string) (user.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail != nil {
		return user.Account{}, m.fail
	}
	account, ok := m.accounts[userName]
	if !ok {
		return user.Account{}, user.ErrNotFound
	}
	return account, nil
}

func newTestService() (*Service, *memoryUsers) {
	users := newMemoryUsers()
	s := NewService(users, testSecret)
	s.hashCost = bcrypt.MinCost
	return s, users
}

func TestSignUp(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		userName string
		password string
		wantCode int
	}{
		{"valid", "alice_01", "secret1", 0},
		{"username too short", "al", "secret1", errs.ErrInvalidUsername},
		{"username bad chars", "alice!", "secret1", errs.ErrInvalidUsername},
		{"password too short", "bob", "12345", errs.ErrInvalidPassword},
		{"password too long", "carol", string(make([]byte, 51)), errs.ErrInvalidPassword},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, _ := newTestService()

			account, err := s.SignUp(ctx, tc.userName, tc.password)
			if tc.wantCode == 0 {
				require.NoError(t, err)
				assert.Equal(t, tc.userName, account.UserName)
				assert.NotEqual(t, tc.password, account.PasswordHash)
				return
			}
			assert.True(t, errs.HasCode(err, tc.wantCode), "got %v", err)
		})
	}
}

func TestSignUp_Duplicate(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()

	_, err := s.SignUp(ctx, "alice", "secret1")
	require.NoError(t, err)

	_, err = s.SignUp(ctx, "alice", "secret2")
	assert.True(t, errs.HasCode(err, errs.ErrUserAlreadyExists))
}

func TestSignUp_StorageFailure(t *testing.T) {
	s, users := newTestService()
	users.fail = errors.New("connection refused")

	_, err := s.SignUp(context.Background(), "alice", "secret1")
	assert.True(t, errs.HasCode(err, errs.ErrStorageFailed))
}

func TestSignInAndVerify(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()

	_, err := s.SignUp(ctx, "alice", "secret1")
	require.NoError(t, err)

	_, err = s.SignIn(ctx, "alice", "wrong-password")
	assert.True(t, errs.HasCode(err, errs.ErrInvalidCredentials))

	_, err = s.SignIn(ctx, "nobody", "secret1")
	assert.True(t, errs.HasCode(err, errs.ErrInvalidCredentials))

	result, err := s.SignIn(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice", result.UserName)
	require.NotEmpty(t, result.AccessToken)

	identity, err := s.Verify(ctx, result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.UserName)
	assert.Equal(t, result.ExpiresAt, identity.ExpiresAt.Unix())
}

func TestVerify_Rejects(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()

	_, err := s.Verify(ctx, "")
	assert.True(t, errs.HasCode(err, errs.ErrUnauthorized))

	_, err = s.Verify(ctx, "not-a-jwt")
	assert.True(t, errs.HasCode(err, errs.ErrUnauthorized))

	foreign, _, err := jwt.GenerateToken(&jwt.Payload{UserName: "alice"}, "other-secret", time.Hour)
	require.NoError(t, err)
	_, err = s.Verify(ctx, foreign)
	assert.True(t, errs.HasCode(err, errs.ErrUnauthorized))

	orphan, _, err := s.Refresh("ghost")
	require.NoError(t, err)
	_, err = s.Verify(ctx, orphan)
	assert.True(t, errs.HasCode(err, errs.ErrUnauthorized), "tokens of deleted accounts are rejected")
}

func TestRefresh(t *testing.T) {
	s, _ := newTestService()

	token, expiresAt, err := s.Refresh("alice")
	require.NoError(t, err)

	payload, err := jwt.ParseToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "alice", payload.UserName)
	assert.WithinDuration(t, time.Now().Add(jwt.AccessExpiration), expiresAt, time.Minute)
}
