package storage

//go:generate mockgen -destination=mocks/mock_storage.go -package=mocks github.com/jwebster45206/gamemaster-agent/pkg/storage Storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jwebster45206/gamemaster-agent/pkg/story"
)

// ErrStoryNotFound is returned by LoadStory and DeleteStory for unknown ids
var ErrStoryNotFound = errors.New("story not found")

// Storage persists story records. Implementations are safe for concurrent
// use; callers serialize writes to one story with the worker's story lock.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Story operations
	SaveStory(ctx context.Context, rec *story.Record) error
	LoadStory(ctx context.Context, id uuid.UUID) (*story.Record, error)
	DeleteStory(ctx context.Context, id uuid.UUID) error
	// ListStories returns the owner's stories, most recently updated first
	ListStories(ctx context.Context, owner string) ([]story.Summary, error)
}
