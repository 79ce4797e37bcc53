package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ctlst/telegramollamabot/internal/models"
	"github.com/ctlst/telegramollamabot/internal/redis"
)

const defaultHistoryTTL = 30 * time.Minute

// RedisStore keeps histories in redis so several relay instances can
// share them. Entries carry a TTL and age out on their own.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultHistoryTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func historyKey(sessionID string) string {
	return fmt.Sprintf("chat:history:%s", sessionID)
}

func (s *RedisStore) History(ctx context.Context, sessionID string) ([]models.Message, error) {
	raw, err := s.client.Get(ctx, historyKey(sessionID))
	if err != nil {
		if err == redis.ErrCacheMiss {
			return nil, nil
		}
		return nil, fmt.Errorf("load history %s: %w", sessionID, err)
	}
	var history []models.Message
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return nil, fmt.Errorf("decode history %s: %w", sessionID, err)
	}
	return history, nil
}

func (s *RedisStore) AppendExchange(ctx context.Context, sessionID string, user, assistant models.Message) error {
	history, err := s.History(ctx, sessionID)
	if err != nil {
		return err
	}
	history = append(history, user, assistant)
	return s.save(ctx, sessionID, history)
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	// Reset to an empty list rather than deleting the key, so a
	// cleared session stays distinguishable from an expired one.
	return s.save(ctx, sessionID, []models.Message{})
}

func (s *RedisStore) save(ctx context.Context, sessionID string, history []models.Message) error {
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode history %s: %w", sessionID, err)
	}
	if err := s.client.Set(ctx, historyKey(sessionID), data, s.ttl); err != nil {
		return fmt.Errorf("store history %s: %w", sessionID, err)
	}
	return nil
}
