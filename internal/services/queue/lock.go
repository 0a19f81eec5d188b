package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultLockTTL bounds how long a crashed holder can keep a story locked
const DefaultLockTTL = 5 * time.Minute

var releaseLockScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// StoryLocks serializes writers of a story record. Workers hold the lock
// for a whole turn and the API holds it for character edits, so neither
// saves over the other's copy.
type StoryLocks struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStoryLocks creates locks on rdb; ttl <= 0 uses DefaultLockTTL
func NewStoryLocks(rdb *redis.Client, ttl time.Duration) *StoryLocks {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &StoryLocks{rdb: rdb, ttl: ttl}
}

// StoryLockKey is the Redis key guarding storyID
func StoryLockKey(storyID uuid.UUID) string {
	return fmt.Sprintf("story-lock:%s", storyID.String())
}

// Acquire takes the lock for owner. It returns false if anyone holds it.
func (l *StoryLocks) Acquire(ctx context.Context, storyID uuid.UUID, owner string) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, StoryLockKey(storyID), owner, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire story lock: %w", err)
	}
	return ok, nil
}

// Release deletes the lock only if owner still holds it
func (l *StoryLocks) Release(ctx context.Context, storyID uuid.UUID, owner string) error {
	if err := releaseLockScript.Run(ctx, l.rdb, []string{StoryLockKey(storyID)}, owner).Err(); err != nil {
		return fmt.Errorf("failed to release story lock: %w", err)
	}
	return nil
}
