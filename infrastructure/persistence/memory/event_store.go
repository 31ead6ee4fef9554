package memory

import (
	"context"
	"fmt"
	"sync"

	"iam/domain/shared"
)

// EventStore keeps aggregate streams and snapshots in process memory.
// It is used by tests and by the "memory" database type.
type EventStore struct {
	mu        sync.RWMutex
	streams   map[string][]shared.StoredEvent
	snapshots map[string]shared.Snapshot
}

func NewEventStore() *EventStore {
	return &EventStore{
		streams:   make(map[string][]shared.StoredEvent),
		snapshots: make(map[string]shared.Snapshot),
	}
}

// AppendEvents checks the stream length and appends under the same lock.
func (s *EventStore) AppendEvents(ctx context.Context, aggregateID string, events []shared.StoredEvent, expectedVersion int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stream := s.streams[aggregateID]
	if len(stream) != expectedVersion {
		return shared.NewConcurrencyError(aggregateID, expectedVersion, len(stream))
	}
	for i, e := range events {
		if e.AggregateID != aggregateID {
			return fmt.Errorf("append to %s: event %s belongs to aggregate %s", aggregateID, e.EventID, e.AggregateID)
		}
		if e.Version != expectedVersion+i+1 {
			return fmt.Errorf("append to %s: event %s has version %d, want %d", aggregateID, e.EventID, e.Version, expectedVersion+i+1)
		}
	}
	for _, e := range events {
		stream = append(stream, cloneEvent(e))
	}
	s.streams[aggregateID] = stream
	return nil
}

func (s *EventStore) ReadEvents(ctx context.Context, aggregateID string, fromVersion, toVersion int) ([]shared.StoredEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fromVersion < 1 {
		fromVersion = 1
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stream := s.streams[aggregateID]
	if toVersion <= 0 || toVersion > len(stream) {
		toVersion = len(stream)
	}
	if fromVersion > toVersion {
		return []shared.StoredEvent{}, nil
	}
	out := make([]shared.StoredEvent, 0, toVersion-fromVersion+1)
	for _, e := range stream[fromVersion-1 : toVersion] {
		out = append(out, cloneEvent(e))
	}
	return out, nil
}

func (s *EventStore) ReadSnapshot(ctx context.Context, aggregateID string) (*shared.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[aggregateID]
	if !ok {
		return nil, nil
	}
	snap.State = append([]byte(nil), snap.State...)
	return &snap, nil
}

// WriteSnapshot keeps the newest snapshot; an older version never replaces a newer one.
func (s *EventStore) WriteSnapshot(ctx context.Context, snapshot shared.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.snapshots[snapshot.AggregateID]; ok && current.Version > snapshot.Version {
		return nil
	}
	snapshot.State = append([]byte(nil), snapshot.State...)
	s.snapshots[snapshot.AggregateID] = snapshot
	return nil
}

// StreamVersion returns the number of events stored for an aggregate.
func (s *EventStore) StreamVersion(aggregateID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.streams[aggregateID])
}

func cloneEvent(e shared.StoredEvent) shared.StoredEvent {
	e.Payload = append([]byte(nil), e.Payload...)
	return e
}

var _ shared.EventStore = (*EventStore)(nil)
