package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jwebster45206/gamemaster-agent/internal/config"
	"github.com/jwebster45206/gamemaster-agent/pkg/storage"
	"github.com/jwebster45206/gamemaster-agent/pkg/story"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS stories (
	id         TEXT PRIMARY KEY,
	owner      TEXT NOT NULL,
	data       TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS stories_owner ON stories (owner, updated_at DESC);
`

// SQLiteStorage keeps one row per story in a local database file
type SQLiteStorage struct {
	db     *sql.DB
	logger *slog.Logger
}

// Ensure SQLiteStorage implements Storage interface
var _ storage.Storage = (*SQLiteStorage)(nil)

// NewSQLiteStorage opens (creating if needed) the database at path.
// ":memory:" gives a private in-memory database.
func NewSQLiteStorage(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// one writer; an in-memory database is per connection
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	logger.Info("SQLite storage ready", "path", path)
	return &SQLiteStorage{db: db, logger: logger}, nil
}

func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping failed: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) SaveStory(ctx context.Context, rec *story.Record) error {
	if rec == nil {
		return errors.New("story cannot be nil")
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal story: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO stories (id, owner, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET owner = excluded.owner, data = excluded.data, updated_at = excluded.updated_at`,
		rec.ID.String(), rec.Owner, string(data), rec.UpdatedAt.UnixMilli())
	if err != nil {
		s.logger.Error("Failed to save story", "story_id", rec.ID, "error", err)
		return fmt.Errorf("failed to save story: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) LoadStory(ctx context.Context, id uuid.UUID) (*story.Record, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM stories WHERE id = ?`, id.String()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrStoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load story: %w", err)
	}

	var rec story.Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal story: %w", err)
	}
	return &rec, nil
}

func (s *SQLiteStorage) DeleteStory(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM stories WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete story: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete story: %w", err)
	}
	if n == 0 {
		return storage.ErrStoryNotFound
	}
	return nil
}

func (s *SQLiteStorage) ListStories(ctx context.Context, owner string) ([]story.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM stories WHERE owner = ? ORDER BY updated_at DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []story.Summary{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan story: %w", err)
		}
		var rec story.Record
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			s.logger.Warn("Skipping unreadable story", "owner", owner, "error", err)
			continue
		}
		out = append(out, rec.Summary())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	storage.SortSummaries(out)
	return out, nil
}

// Open returns the backend selected by cfg
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.StorageBackend {
	case config.BackendSQLite:
		return NewSQLiteStorage(ctx, cfg.SQLitePath, logger)
	case config.BackendRedis:
		rs, err := NewRedisStorage(cfg.RedisURL, cfg.StoryTTL, logger)
		if err != nil {
			return nil, err
		}
		if err := rs.WaitForConnection(ctx); err != nil {
			_ = rs.Close()
			return nil, err
		}
		return rs, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}
