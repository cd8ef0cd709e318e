package user

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps accounts in process memory. It backs development runs
// without a database.
type MemoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{accounts: make(map[string]Account)}
}

func (r *MemoryRepository) Create(ctx context.Context, userName, passwordHash string) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[userName]; ok {
		return Account{}, ErrAlreadyExists
	}

	account := Account{
		ID:           uuid.NewString(),
		UserName:     userName,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	r.accounts[userName] = account
	return account, nil
}

func (r *MemoryRepository) FindByUserName(ctx context.Context, userName string) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.accounts[userName]
	if !ok {
		return Account{}, ErrNotFound
	}
	return account, nil
}
