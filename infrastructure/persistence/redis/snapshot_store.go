// Package redis keeps aggregate snapshots in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"iam/config"
	"iam/domain/shared"
	"iam/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// writeIfNewer stores the snapshot unless a newer version is already present.
var writeIfNewer = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'version')
if current and tonumber(current) > tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'version', ARGV[1], 'data', ARGV[2])
if tonumber(ARGV[3]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return 1
`)

type record struct {
	AggregateID   string    `json:"aggregateId"`
	AggregateType string    `json:"aggregateType"`
	Version       int       `json:"version"`
	State         []byte    `json:"state"`
	TakenAt       time.Time `json:"takenAt"`
}

// SnapshotStore implements shared.SnapshotStore on a Redis hash per aggregate.
type SnapshotStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

func NewSnapshotStore(client redis.UniversalClient, keyPrefix string, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

// NewClient dials Redis from configuration and verifies the connection.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (s *SnapshotStore) key(aggregateID string) string {
	return s.keyPrefix + aggregateID
}

func (s *SnapshotStore) ReadSnapshot(ctx context.Context, aggregateID string) (*shared.Snapshot, error) {
	data, err := s.client.HGet(ctx, s.key(aggregateID), "data").Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis snapshot read %s: %w", aggregateID, err)
	}

	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		decodeErr := fmt.Errorf("redis snapshot decode %s: %w", aggregateID, err)
		if delErr := s.client.Del(ctx, s.key(aggregateID)).Err(); delErr != nil {
			logger.Ctx(ctx).Warn("Failed to evict corrupt snapshot",
				zap.String("aggregate_id", aggregateID),
				zap.Error(delErr),
			)
			return nil, errors.Join(decodeErr, fmt.Errorf("redis snapshot evict %s: %w", aggregateID, delErr))
		}
		return nil, decodeErr
	}
	return &shared.Snapshot{
		AggregateID:   r.AggregateID,
		AggregateType: r.AggregateType,
		Version:       r.Version,
		State:         r.State,
		TakenAt:       r.TakenAt,
	}, nil
}

func (s *SnapshotStore) WriteSnapshot(ctx context.Context, snapshot shared.Snapshot) error {
	data, err := json.Marshal(record{
		AggregateID:   snapshot.AggregateID,
		AggregateType: snapshot.AggregateType,
		Version:       snapshot.Version,
		State:         snapshot.State,
		TakenAt:       snapshot.TakenAt.UTC(),
	})
	if err != nil {
		return err
	}
	keys := []string{s.key(snapshot.AggregateID)}
	if err := writeIfNewer.Run(ctx, s.client, keys, snapshot.Version, data, s.ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("redis snapshot write %s: %w", snapshot.AggregateID, err)
	}
	return nil
}

var _ shared.SnapshotStore = (*SnapshotStore)(nil)
