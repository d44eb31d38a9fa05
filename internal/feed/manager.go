// Package feed tracks watched feed URLs and polls them for new entries.
package feed

import (
	"context"
	"log/slog"
	"sync"

	"murmur/internal/domain"
)

// Manager owns the set of watched feed URLs and their last-seen markers.
// URLs are compared by exact string equality; no normalization is performed
// (trailing slashes and scheme case are significant). Known limitation.
type Manager struct {
	mu     sync.Mutex
	feeds  map[string]string // url -> last-seen marker
	store  domain.FeedStore
	logger *slog.Logger
}

// NewManager loads the persisted subscriptions from store.
func NewManager(ctx context.Context, store domain.FeedStore, logger *slog.Logger) (*Manager, error) {
	feeds, err := store.ListFeeds(ctx)
	if err != nil {
		return nil, err
	}
	if feeds == nil {
		feeds = make(map[string]string)
	}
	return &Manager{feeds: feeds, store: store, logger: logger}, nil
}

// Add starts watching url. Returns false when it is already watched.
func (m *Manager) Add(url string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.feeds[url]; ok {
		return false
	}
	m.feeds[url] = ""

	if err := m.store.PutFeed(context.Background(), url, ""); err != nil {
		m.logger.Warn("failed to persist feed subscription", "url", url, "err", err)
	}
	return true
}

// Remove stops watching url. Returns false when it was not watched.
func (m *Manager) Remove(url string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.feeds[url]; !ok {
		return false
	}
	delete(m.feeds, url)

	if err := m.store.DeleteFeed(context.Background(), url); err != nil {
		m.logger.Warn("failed to remove persisted feed", "url", url, "err", err)
	}
	return true
}

// List returns a copy of the watched feeds with their last-seen markers.
func (m *Manager) List() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]string, len(m.feeds))
	for url, lastSeen := range m.feeds {
		out[url] = lastSeen
	}
	return out
}

// MarkSeen records marker as the newest entry seen for url. A no-op when the
// feed was unwatched in the meantime.
func (m *Manager) MarkSeen(url, marker string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.feeds[url]; !ok {
		return
	}
	m.feeds[url] = marker

	if err := m.store.PutFeed(context.Background(), url, marker); err != nil {
		m.logger.Warn("failed to persist feed marker", "url", url, "err", err)
	}
}
