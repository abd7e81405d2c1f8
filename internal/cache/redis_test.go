package cache

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PoluyanbIch/GoQuiz/internal/service"
)

func newTestClient(t *testing.T, ttl time.Duration) (*RedisClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedisClient(Config{Addr: mr.Addr(), SnapshotTTL: ttl})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestNewRedisClientUnreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisClient(Config{Addr: addr})
	assert.Error(t, err)
}

func TestHighscore(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t, 0)
	h := c.Highscore("quiz:")

	v, err := h.Highscore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, v)

	best, updated, err := h.Submit(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, best)
	assert.True(t, updated)

	best, updated, err = h.Submit(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, best)
	assert.False(t, updated)

	got, err := mr.Get("quiz:highscore")
	require.NoError(t, err)
	assert.Equal(t, "2", got)

	best, updated, err = h.Submit(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, best)
	assert.True(t, updated)

	v, err = h.Highscore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, v)
}

func testSnapshot(t *testing.T) service.Snapshot {
	t.Helper()
	s, err := service.NewSession([]service.Question{
		{ID: 1, Text: "a", Option1: "x", Option2: "y", Option3: "z", Answer: service.Option1, Difficulty: service.DifficultyHard, CategoryID: 1},
		{ID: 2, Text: "b", Option1: "x", Option2: "y", Option3: "z", Answer: service.Option3, Difficulty: service.DifficultyHard, CategoryID: 2},
	}, service.TimeoutHardMillis, service.WithRand(rand.New(rand.NewSource(3))))
	require.NoError(t, err)
	s.Tick(2500)
	return s.Snapshot()
}

func TestSnapshotStore(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t, time.Hour)
	store := c.Snapshots("quiz:")

	_, err := store.Load(ctx, "chat-1")
	require.ErrorIs(t, err, service.ErrNoSavedSession)

	snap := testSnapshot(t)
	require.NoError(t, store.Save(ctx, "chat-1", snap))
	assert.True(t, mr.Exists("quiz:session:chat-1"))
	assert.Equal(t, time.Hour, mr.TTL("quiz:session:chat-1"))

	got, err := store.Load(ctx, "chat-1")
	require.NoError(t, err)
	assert.Equal(t, snap, got)

	require.NoError(t, store.Delete(ctx, "chat-1"))
	_, err = store.Load(ctx, "chat-1")
	assert.ErrorIs(t, err, service.ErrNoSavedSession)
}

func TestSnapshotStoreExpires(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t, time.Minute)
	store := c.Snapshots("quiz:")

	require.NoError(t, store.Save(ctx, "chat-1", testSnapshot(t)))
	mr.FastForward(2 * time.Minute)

	_, err := store.Load(ctx, "chat-1")
	assert.ErrorIs(t, err, service.ErrNoSavedSession)
}

func TestSnapshotStoreCorruptValue(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t, 0)
	store := c.Snapshots("quiz:")

	require.NoError(t, mr.Set("quiz:session:chat-1", `{"questions":[]}`))
	_, err := store.Load(ctx, "chat-1")
	assert.ErrorIs(t, err, service.ErrInvalidSnapshot)
}
