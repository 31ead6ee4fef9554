// Package cache provides an in-process read-through cache for snapshots.
package cache

import (
	"context"
	"time"

	"iam/domain/shared"
	"iam/pkg/metrics"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// SnapshotCache fronts a SnapshotStore with an expirable LRU. Only existing
// snapshots are cached; a miss always reaches the backing store.
type SnapshotCache struct {
	next shared.SnapshotStore
	lru  *expirable.LRU[string, shared.Snapshot]
}

func NewSnapshotCache(next shared.SnapshotStore, size int, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{
		next: next,
		lru:  expirable.NewLRU[string, shared.Snapshot](size, nil, ttl),
	}
}

func (c *SnapshotCache) ReadSnapshot(ctx context.Context, aggregateID string) (*shared.Snapshot, error) {
	if snap, ok := c.lru.Get(aggregateID); ok {
		metrics.SnapshotCacheHits.Inc()
		return cloneSnapshot(snap), nil
	}
	metrics.SnapshotCacheMisses.Inc()

	snap, err := c.next.ReadSnapshot(ctx, aggregateID)
	if err != nil || snap == nil {
		return snap, err
	}
	c.lru.Add(aggregateID, *cloneSnapshot(*snap))
	return snap, nil
}

func (c *SnapshotCache) WriteSnapshot(ctx context.Context, snapshot shared.Snapshot) error {
	if err := c.next.WriteSnapshot(ctx, snapshot); err != nil {
		return err
	}
	if cached, ok := c.lru.Peek(snapshot.AggregateID); ok && cached.Version > snapshot.Version {
		return nil
	}
	c.lru.Add(snapshot.AggregateID, *cloneSnapshot(snapshot))
	return nil
}

// Len reports the number of cached snapshots.
func (c *SnapshotCache) Len() int { return c.lru.Len() }

func cloneSnapshot(s shared.Snapshot) *shared.Snapshot {
	s.State = append([]byte(nil), s.State...)
	return &s
}

var _ shared.SnapshotStore = (*SnapshotCache)(nil)
