package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/PoluyanbIch/GoQuiz/internal/service"
)

// SnapshotStore keeps each session snapshot as one JSON string, so a load
// sees a complete snapshot or nothing.
type SnapshotStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func (c *RedisClient) Snapshots(prefix string) *SnapshotStore {
	return &SnapshotStore{client: c.client, prefix: prefix + "session:", ttl: c.config.SnapshotTTL}
}

func (s *SnapshotStore) Save(ctx context.Context, key string, snap service.Snapshot) error {
	data, err := service.EncodeSnapshot(snap)
	if err != nil {
		return errors.Wrap(err, "encode snapshot")
	}
	return errors.Wrap(s.client.Set(ctx, s.prefix+key, data, s.ttl).Err(), "save snapshot")
}

func (s *SnapshotStore) Load(ctx context.Context, key string) (service.Snapshot, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err == redis.Nil {
		return service.Snapshot{}, service.ErrNoSavedSession
	}
	if err != nil {
		return service.Snapshot{}, errors.Wrap(err, "load snapshot")
	}
	return service.DecodeSnapshot(data)
}

func (s *SnapshotStore) Delete(ctx context.Context, key string) error {
	return errors.Wrap(s.client.Del(ctx, s.prefix+key).Err(), "delete snapshot")
}
