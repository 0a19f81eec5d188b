package storage

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/gamemaster-agent/pkg/character"
	"github.com/jwebster45206/gamemaster-agent/pkg/chat"
	"github.com/jwebster45206/gamemaster-agent/pkg/storage"
	"github.com/jwebster45206/gamemaster-agent/pkg/story"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupRedisStorage(t *testing.T, ttl time.Duration) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rs := NewRedisStorageWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), ttl, testLogger())
	t.Cleanup(func() { _ = rs.Close() })
	return rs, mr
}

func setupSQLiteStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(context.Background(), ":memory:", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRecord(owner string, updated time.Time) *story.Record {
	rec := story.NewRecord(owner, "The Lost Mine", "A frontier town", "A dwarf prospector")
	c := character.New()
	c.Create(character.CreateParams{
		Name:          "Borin",
		Lore:          "Seeks his family's mine.",
		HealthAndMana: character.HealthAndMana{CurrentHealth: 9, MaxHealth: 14, CurrentMana: 2, MaxMana: 4},
	})
	c.AddItem(character.Item{Name: "Pickaxe", Description: "Worn", Weight: 3, Amount: 1})
	snap := c.Snapshot()
	rec.Character = &snap
	rec.ChatHistory = []chat.Entry{
		{Role: chat.RoleSystem, Content: "gm"},
		{Role: chat.RoleUser, Content: "I enter the mine."},
		{Role: chat.RoleAssistant, Content: "It is dark."},
	}
	rec.UpdatedAt = updated
	return rec
}

// runStorageContract exercises behavior every backend must share
func runStorageContract(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, s.Ping(ctx))

	older := sampleRecord("alice", now.Add(-time.Hour))
	newer := sampleRecord("alice", now)
	other := sampleRecord("bob", now)
	for _, r := range []*story.Record{older, newer, other} {
		require.NoError(t, s.SaveStory(ctx, r))
	}

	loaded, err := s.LoadStory(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, older.ID, loaded.ID)
	assert.Equal(t, "alice", loaded.Owner)
	assert.Equal(t, older.ChatHistory, loaded.ChatHistory)
	require.NotNil(t, loaded.Character)
	assert.Equal(t, *older.Character, *loaded.Character)

	list, err := s.ListStories(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, "Borin", list[0].CharacterName)
	assert.Equal(t, 3, list[0].Messages)

	// saving again updates in place
	older.Title = "Renamed"
	older.UpdatedAt = now.Add(time.Minute)
	require.NoError(t, s.SaveStory(ctx, older))
	list, err = s.ListStories(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, older.ID, list[0].ID)
	assert.Equal(t, "Renamed", list[0].Title)

	require.NoError(t, s.DeleteStory(ctx, older.ID))
	_, err = s.LoadStory(ctx, older.ID)
	assert.ErrorIs(t, err, storage.ErrStoryNotFound)
	assert.ErrorIs(t, s.DeleteStory(ctx, older.ID), storage.ErrStoryNotFound)

	list, err = s.ListStories(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = s.ListStories(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	_, err = s.LoadStory(ctx, uuid.New())
	assert.ErrorIs(t, err, storage.ErrStoryNotFound)

	assert.Error(t, s.SaveStory(ctx, &story.Record{}))
}

func TestRedisStorage_Contract(t *testing.T) {
	rs, _ := setupRedisStorage(t, 0)
	runStorageContract(t, rs)
}

func TestSQLiteStorage_Contract(t *testing.T) {
	runStorageContract(t, setupSQLiteStorage(t))
}

func TestMockStorage_Contract(t *testing.T) {
	runStorageContract(t, storage.NewMockStorage())
}

func TestRedisStorage_TTLAndPruning(t *testing.T) {
	rs, mr := setupRedisStorage(t, time.Hour)
	ctx := context.Background()

	rec := sampleRecord("carol", time.Now().UTC())
	require.NoError(t, rs.SaveStory(ctx, rec))
	assert.Equal(t, time.Hour, mr.TTL("story:"+rec.ID.String()))

	mr.FastForward(2 * time.Hour)

	list, err := rs.ListStories(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, list)

	members, err := mr.ZMembers("owner:carol:stories")
	if err == nil {
		assert.Empty(t, members)
	}
}

func TestRedisStorage_RestoresIntoSession(t *testing.T) {
	rs, _ := setupRedisStorage(t, 0)
	ctx := context.Background()
	rec := sampleRecord("dave", time.Now().UTC())
	require.NoError(t, rs.SaveStory(ctx, rec))

	loaded, err := rs.LoadStory(ctx, rec.ID)
	require.NoError(t, err)

	stored := *loaded.Character
	assert.Equal(t, "Borin", stored.Name)
	assert.Equal(t, 9, stored.HealthAndMana.CurrentHealth)
	require.Len(t, stored.Inventory.Items, 1)
	assert.Equal(t, "Pickaxe", stored.Inventory.Items[0].Name)
}
