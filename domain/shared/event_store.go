package shared

import (
	"context"
	"time"
)

// StoredEvent is the persisted form of a domain event. Version is the
// event's 1-based position in its aggregate stream.
type StoredEvent struct {
	EventID       string
	EventType     string
	EventVersion  int
	AggregateID   string
	AggregateType string
	TenantID      string
	Version       int
	Payload       []byte
	OccurredOn    time.Time
}

// Snapshot is a serialized aggregate state tagged with the stream version it represents.
type Snapshot struct {
	AggregateID   string
	AggregateType string
	Version       int
	State         []byte
	TakenAt       time.Time
}

// SnapshotStore reads and writes the latest snapshot of an aggregate.
// ReadSnapshot returns (nil, nil) when no snapshot exists.
type SnapshotStore interface {
	ReadSnapshot(ctx context.Context, aggregateID string) (*Snapshot, error)
	WriteSnapshot(ctx context.Context, snapshot Snapshot) error
}

// EventStore is the system of record for aggregate streams.
//
// AppendEvents must atomically check that the stream currently holds exactly
// expectedVersion events and fail with a concurrency error otherwise.
// ReadEvents returns events with fromVersion <= Version <= toVersion in
// ascending order; toVersion <= 0 reads to the end of the stream.
type EventStore interface {
	SnapshotStore
	AppendEvents(ctx context.Context, aggregateID string, events []StoredEvent, expectedVersion int) error
	ReadEvents(ctx context.Context, aggregateID string, fromVersion, toVersion int) ([]StoredEvent, error)
}
