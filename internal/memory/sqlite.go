package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"murmur/internal/domain"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore backs the conversation history, semantic memory, and feed
// subscriptions with a local SQLite database.
type SQLiteStore struct {
	db           *sql.DB
	historyLimit int
	logger       *slog.Logger
}

type SQLiteConfig struct {
	Path         string
	HistoryLimit int
	Logger       *slog.Logger
}

func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 20
	}

	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", cfg.Path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection: serializes writes, which also gives each chat's
	// trim-and-append a consistent view.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, historyLimit: cfg.HistoryLimit, logger: cfg.Logger}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS history (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		chat_id     TEXT NOT NULL,
		role        TEXT NOT NULL,
		content     TEXT NOT NULL,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_history_chat ON history(chat_id, id);

	CREATE TABLE IF NOT EXISTS embeddings (
		id          TEXT PRIMARY KEY,
		text        TEXT NOT NULL,
		vector      TEXT NOT NULL,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS feeds (
		url        TEXT PRIMARY KEY,
		last_seen  TEXT NOT NULL DEFAULT ''
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append stores one message and trims the chat to the newest historyLimit entries.
func (s *SQLiteStore) Append(ctx context.Context, chatID string, msg domain.Message) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO history (chat_id, role, content) VALUES (?, ?, ?)`,
		chatID, string(msg.Role), msg.Content,
	)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`DELETE FROM history WHERE chat_id = ? AND id NOT IN (
			SELECT id FROM history WHERE chat_id = ? ORDER BY id DESC LIMIT ?
		)`,
		chatID, chatID, s.historyLimit,
	)
	if err != nil {
		return fmt.Errorf("trim history: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Recent(ctx context.Context, chatID string, limit int) ([]domain.Message, error) {
	if limit <= 0 || limit > s.historyLimit {
		limit = s.historyLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content FROM history WHERE chat_id = ? ORDER BY id DESC LIMIT ?`,
		chatID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		var role string
		if err := rows.Scan(&role, &m.Content); err != nil {
			return nil, err
		}
		m.Role = domain.Role(role)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to chronological order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (s *SQLiteStore) Save(ctx context.Context, rec domain.EmbeddingRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	vec, err := json.Marshal(rec.Vector)
	if err != nil {
		return fmt.Errorf("marshal vector: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO embeddings (id, text, vector, created_at) VALUES (?, ?, ?, ?)`,
		rec.ID, rec.Text, string(vec), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save embedding: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Query(ctx context.Context, vector []float64, k int) ([]string, error) {
	if len(vector) == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT text, vector FROM embeddings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []domain.EmbeddingRecord
	for rows.Next() {
		var rec domain.EmbeddingRecord
		var raw string
		if err := rows.Scan(&rec.Text, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &rec.Vector); err != nil {
			s.logger.Warn("skipping unreadable embedding", "err", err)
			continue
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rankBySimilarity(recs, vector, k), nil
}

func (s *SQLiteStore) PutFeed(ctx context.Context, url, lastSeen string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feeds (url, last_seen) VALUES (?, ?)
		 ON CONFLICT(url) DO UPDATE SET last_seen = excluded.last_seen`,
		url, lastSeen,
	)
	return err
}

func (s *SQLiteStore) DeleteFeed(ctx context.Context, url string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM feeds WHERE url = ?`, url)
	return err
}

func (s *SQLiteStore) ListFeeds(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT url, last_seen FROM feeds`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	feeds := make(map[string]string)
	for rows.Next() {
		var url, lastSeen string
		if err := rows.Scan(&url, &lastSeen); err != nil {
			return nil, err
		}
		feeds[url] = lastSeen
	}
	return feeds, rows.Err()
}

// Flush drops all stored data. Used by the flush command only.
func (s *SQLiteStore) Flush(ctx context.Context) error {
	for _, table := range []string{"history", "embeddings", "feeds"} {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("flush %s: %w", table, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
