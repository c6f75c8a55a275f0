package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/catalog/internal/core/domain"
)

const (
	snapshotKeyPrefix  = "stats:"
	DefaultSnapshotTTL = 24 * time.Hour
)

// RedisAdapter shares computed stats between server processes reading the
// same store file. Entries are keyed by store version, so a stale entry is
// never served for a newer file.
type RedisAdapter struct {
	client   *redis.Client
	storeKey string
	ttl      time.Duration
}

func NewRedisAdapter(client *redis.Client, storePath string, ttl time.Duration) *RedisAdapter {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &RedisAdapter{
		client:   client,
		storeKey: fmt.Sprintf("%016x", xxhash.Sum64String(storePath)),
		ttl:      ttl,
	}
}

func (r *RedisAdapter) GetStats(ctx context.Context, version domain.StoreVersion) (domain.Stats, bool, error) {
	data, err := r.client.Get(ctx, r.key(version)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Stats{}, false, nil
	}
	if err != nil {
		return domain.Stats{}, false, err
	}

	var stats domain.Stats
	if err := json.Unmarshal(data, &stats); err != nil {
		return domain.Stats{}, false, fmt.Errorf("decode snapshot: %w", err)
	}

	return stats, true, nil
}

func (r *RedisAdapter) SetStats(ctx context.Context, version domain.StoreVersion, stats domain.Stats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(version), data, r.ttl).Err()
}

func (r *RedisAdapter) key(version domain.StoreVersion) string {
	return snapshotKeyPrefix + r.storeKey + ":" + version.String()
}
