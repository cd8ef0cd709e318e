package history

import (
	"context"
	"sync"
	"time"

	"roomchat/internal/pkg/randx"
)

// MemoryStore keeps history in process memory. It is used in development
// when no database is configured and in tests.
type MemoryStore struct {
	mu       sync.RWMutex
	messages []StoredMessage
	now      func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// Append implements Store.
func (s *MemoryStore) Append(ctx context.Context, msg Message) (StoredMessage, error) {
	if err := ctx.Err(); err != nil {
		return StoredMessage{}, err
	}

	stored := StoredMessage{
		Message:   msg,
		ID:        randx.MessageID(),
		CreatedAt: s.now().UTC(),
	}

	s.mu.Lock()
	s.messages = append(s.messages, stored)
	s.mu.Unlock()

	return stored, nil
}

// ListAll implements Store.
func (s *MemoryStore) ListAll(ctx context.Context) ([]StoredMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]StoredMessage, len(s.messages))
	copy(out, s.messages)
	return out, nil
}

// ClearAll implements Store.
func (s *MemoryStore) ClearAll(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.messages))
	s.messages = nil
	return n, nil
}
