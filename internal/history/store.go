package history

import (
	"context"
	"sync"

	"github.com/ctlst/telegramollamabot/internal/models"
)

// Store keeps per-session conversation history. Sessions are created
// lazily on first append; Clear resets a session to empty and is
// idempotent.
type Store interface {
	History(ctx context.Context, sessionID string) ([]models.Message, error)
	AppendExchange(ctx context.Context, sessionID string, user, assistant models.Message) error
	Clear(ctx context.Context, sessionID string) error
}

// MemoryStore is the default in-process store.
type MemoryStore struct {
	mu        sync.RWMutex
	histories map[string][]models.Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{histories: make(map[string][]models.Message)}
}

func (s *MemoryStore) History(_ context.Context, sessionID string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.histories[sessionID]
	cloned := make([]models.Message, len(history))
	copy(cloned, history)
	return cloned, nil
}

func (s *MemoryStore) AppendExchange(_ context.Context, sessionID string, user, assistant models.Message) error {
	s.mu.Lock()
	s.histories[sessionID] = append(s.histories[sessionID], user, assistant)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	s.histories[sessionID] = nil
	s.mu.Unlock()
	return nil
}
