package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"murmur/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	historyKeyPrefix = "murmur:chat:"
	embedKeyPrefix   = "murmur:embed:"
	embedIndexKey    = "murmur:embeds"
	feedsKey         = "murmur:feeds"
)

// RedisStore backs the conversation history, semantic memory, and feed
// subscriptions with a Redis key-value store. History lives in per-chat lists
// trimmed on every append, so list ops double as per-chat write ordering.
type RedisStore struct {
	client       *redis.Client
	historyLimit int
	logger       *slog.Logger
}

type RedisConfig struct {
	Host         string
	Port         int
	HistoryLimit int
	Logger       *slog.Logger
}

func NewRedisStore(cfg RedisConfig) *RedisStore {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 6379
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 20
	}
	client := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
	})
	return &RedisStore{client: client, historyLimit: cfg.HistoryLimit, logger: cfg.Logger}
}

func historyKey(chatID string) string {
	return historyKeyPrefix + chatID + ":history"
}

func (s *RedisStore) Append(ctx context.Context, chatID string, msg domain.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	key := historyKey(chatID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, int64(-s.historyLimit), -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (s *RedisStore) Recent(ctx context.Context, chatID string, limit int) ([]domain.Message, error) {
	if limit <= 0 || limit > s.historyLimit {
		limit = s.historyLimit
	}

	entries, err := s.client.LRange(ctx, historyKey(chatID), int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	msgs := make([]domain.Message, 0, len(entries))
	for _, entry := range entries {
		var m domain.Message
		if err := json.Unmarshal([]byte(entry), &m); err != nil {
			s.logger.Warn("skipping unreadable history entry", "chat", chatID, "err", err)
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func (s *RedisStore) Save(ctx context.Context, rec domain.EmbeddingRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal embedding: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, embedKeyPrefix+rec.ID, data, 0)
	pipe.SAdd(ctx, embedIndexKey, rec.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save embedding: %w", err)
	}
	return nil
}

func (s *RedisStore) Query(ctx context.Context, vector []float64, k int) ([]string, error) {
	if len(vector) == 0 {
		return nil, nil
	}

	ids, err := s.client.SMembers(ctx, embedIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list embeddings: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = embedKeyPrefix + id
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load embeddings: %w", err)
	}

	var recs []domain.EmbeddingRecord
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var rec domain.EmbeddingRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			s.logger.Warn("skipping unreadable embedding", "err", err)
			continue
		}
		recs = append(recs, rec)
	}

	return rankBySimilarity(recs, vector, k), nil
}

func (s *RedisStore) PutFeed(ctx context.Context, url, lastSeen string) error {
	return s.client.HSet(ctx, feedsKey, url, lastSeen).Err()
}

func (s *RedisStore) DeleteFeed(ctx context.Context, url string) error {
	return s.client.HDel(ctx, feedsKey, url).Err()
}

func (s *RedisStore) ListFeeds(ctx context.Context) (map[string]string, error) {
	return s.client.HGetAll(ctx, feedsKey).Result()
}

// Flush clears the whole database. Used by the flush command only.
func (s *RedisStore) Flush(ctx context.Context) error {
	return s.client.FlushDB(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
