package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"iam/domain/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStore struct {
	snapshots map[string]shared.Snapshot
	reads     int
	failRead  error
}

func newCountingStore() *countingStore {
	return &countingStore{snapshots: make(map[string]shared.Snapshot)}
}

func (s *countingStore) ReadSnapshot(ctx context.Context, id string) (*shared.Snapshot, error) {
	s.reads++
	if s.failRead != nil {
		return nil, s.failRead
	}
	snap, ok := s.snapshots[id]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (s *countingStore) WriteSnapshot(ctx context.Context, snap shared.Snapshot) error {
	s.snapshots[snap.AggregateID] = snap
	return nil
}

func TestReadThrough(t *testing.T) {
	ctx := context.Background()
	backing := newCountingStore()
	backing.snapshots["r1"] = shared.Snapshot{AggregateID: "r1", Version: 3, State: []byte(`{}`)}
	c := NewSnapshotCache(backing, 8, time.Minute)

	for i := 0; i < 3; i++ {
		snap, err := c.ReadSnapshot(ctx, "r1")
		require.NoError(t, err)
		require.NotNil(t, snap)
		assert.Equal(t, 3, snap.Version)
	}
	assert.Equal(t, 1, backing.reads)

	// absent snapshots are not cached
	for i := 0; i < 2; i++ {
		snap, err := c.ReadSnapshot(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, snap)
	}
	assert.Equal(t, 3, backing.reads)
}

func TestWriteUpdatesCache(t *testing.T) {
	ctx := context.Background()
	backing := newCountingStore()
	c := NewSnapshotCache(backing, 8, time.Minute)

	require.NoError(t, c.WriteSnapshot(ctx, shared.Snapshot{AggregateID: "r1", Version: 5}))
	require.NoError(t, c.WriteSnapshot(ctx, shared.Snapshot{AggregateID: "r1", Version: 2}))
	assert.Equal(t, 1, c.Len())

	snap, err := c.ReadSnapshot(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 5, snap.Version)
	assert.Equal(t, 0, backing.reads)
}

func TestEvictionAndErrors(t *testing.T) {
	ctx := context.Background()
	backing := newCountingStore()
	c := NewSnapshotCache(backing, 1, time.Minute)

	require.NoError(t, c.WriteSnapshot(ctx, shared.Snapshot{AggregateID: "a", Version: 1}))
	require.NoError(t, c.WriteSnapshot(ctx, shared.Snapshot{AggregateID: "b", Version: 1}))
	assert.Equal(t, 1, c.Len())

	backing.failRead = errors.New("backend down")
	_, err := c.ReadSnapshot(ctx, "a")
	assert.Error(t, err)

	snap, err := c.ReadSnapshot(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "b", snap.AggregateID)
}
