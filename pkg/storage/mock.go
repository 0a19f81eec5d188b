package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/jwebster45206/gamemaster-agent/pkg/story"
)

// MockStorage is an in-memory Storage for tests. Records are stored as
// JSON so callers never share memory with what was saved.
type MockStorage struct {
	mu        sync.RWMutex
	stories   map[uuid.UUID][]byte
	pingError error
	saveError error
	saves     int
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		stories: make(map[uuid.UUID][]byte),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError makes every later SaveStory fail with err
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// Saves reports how many times SaveStory succeeded
func (m *MockStorage) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// Ping mocks storage ping
func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

// Close mocks storage close
func (m *MockStorage) Close() error {
	return nil
}

func (m *MockStorage) SaveStory(ctx context.Context, rec *story.Record) error {
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

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	m.stories[rec.ID] = data
	m.saves++
	return nil
}

func (m *MockStorage) LoadStory(ctx context.Context, id uuid.UUID) (*story.Record, error) {
	m.mu.RLock()
	data, ok := m.stories[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrStoryNotFound
	}

	var rec story.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal story: %w", err)
	}
	return &rec, nil
}

func (m *MockStorage) DeleteStory(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stories[id]; !ok {
		return ErrStoryNotFound
	}
	delete(m.stories, id)
	return nil
}

func (m *MockStorage) ListStories(ctx context.Context, owner string) ([]story.Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []story.Summary{}
	for _, data := range m.stories {
		var rec story.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal story: %w", err)
		}
		if rec.Owner == owner {
			out = append(out, rec.Summary())
		}
	}
	SortSummaries(out)
	return out, nil
}

// SortSummaries orders summaries newest first, then by id
func SortSummaries(s []story.Summary) {
	sort.Slice(s, func(i, j int) bool {
		if !s[i].UpdatedAt.Equal(s[j].UpdatedAt) {
			return s[i].UpdatedAt.After(s[j].UpdatedAt)
		}
		return s[i].ID.String() < s[j].ID.String()
	})
}
