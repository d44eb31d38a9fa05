package domain

import (
	"context"
	"time"
)

// ConversationStore persists bounded per-chat message history. Implementations
// trim each chat to the newest historyLimit entries on every append; older
// entries are unrecoverable.
type ConversationStore interface {
	Append(ctx context.Context, chatID string, msg Message) error
	// Recent returns up to limit messages for the chat, oldest first.
	Recent(ctx context.Context, chatID string, limit int) ([]Message, error)
}

// EmbeddingRecord is an immutable stored embedding of a past message.
type EmbeddingRecord struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Vector    []float64 `json:"vector"`
	CreatedAt time.Time `json:"created_at"`
}

// SemanticMemory is the append-only long-term store of message embeddings.
type SemanticMemory interface {
	Save(ctx context.Context, rec EmbeddingRecord) error
	// Query returns the texts of up to k stored records ranked by similarity
	// to vector, most similar first. A nil vector yields an empty result.
	Query(ctx context.Context, vector []float64, k int) ([]string, error)
}

// FeedStore persists watched feed subscriptions across restarts.
type FeedStore interface {
	PutFeed(ctx context.Context, url, lastSeen string) error
	DeleteFeed(ctx context.Context, url string) error
	ListFeeds(ctx context.Context) (map[string]string, error)
}
