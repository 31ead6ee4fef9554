/*
Package eventsourced 实现基于事件存储的聚合仓储。

加载：读取最新快照（可选）+ 快照之后的事件后缀，重放得到聚合。
保存：以聚合的已持久化版本作为期望版本追加新事件；成功后提交、
按策略写快照，并在进程内发布事件。发布失败只记录日志，不影响保存结果。
*/
package eventsourced

import (
	"context"
	"fmt"
	"time"

	"iam/domain/shared"
	"iam/pkg/logger"
	"iam/pkg/metrics"

	"go.uber.org/zap"
)

// Options configures snapshotting and publishing for a repository.
type Options struct {
	// SnapshotEvery writes a snapshot whenever a save crosses a multiple of
	// this many events. Zero disables snapshots.
	SnapshotEvery int
	// Snapshots overrides where snapshots are kept. Defaults to the event store.
	Snapshots shared.SnapshotStore
	// Publisher receives committed events. Nil disables publishing.
	Publisher shared.DomainEventPublisher
}

// codec binds the generic stream to one aggregate type.
type codec[A shared.EventSourcedAggregate, E shared.DomainEvent] struct {
	aggregateType string
	notFound      func(id string) error
	encodeEvent   func(E) ([]byte, error)
	decodeEvent   func(eventType string, payload []byte) (E, error)
	fromHistory   func([]E) (A, error)
	restore       func(state []byte, version int, suffix []E) (A, error)
	snapshot      func(A) ([]byte, error)
	changes       func(A) []E
	tenantOf      func(A) shared.TenantID
}

type stream[A shared.EventSourcedAggregate, E shared.DomainEvent] struct {
	store         shared.EventStore
	snapshots     shared.SnapshotStore
	publisher     shared.DomainEventPublisher
	snapshotEvery int
	codec         codec[A, E]
}

func newStream[A shared.EventSourcedAggregate, E shared.DomainEvent](store shared.EventStore, opts Options, c codec[A, E]) *stream[A, E] {
	snapshots := opts.Snapshots
	if snapshots == nil {
		snapshots = store
	}
	return &stream[A, E]{
		store:         store,
		snapshots:     snapshots,
		publisher:     opts.Publisher,
		snapshotEvery: opts.SnapshotEvery,
		codec:         c,
	}
}

func (s *stream[A, E]) load(ctx context.Context, tenantID shared.TenantID, id string) (A, error) {
	var zero A

	agg, ok, err := s.loadFromSnapshot(ctx, id)
	if err != nil {
		return zero, err
	}
	if !ok {
		agg, err = s.replay(ctx, id)
		if err != nil {
			return zero, err
		}
	}

	if !tenantID.IsZero() && !s.codec.tenantOf(agg).Equals(tenantID) {
		return zero, shared.NewCrossTenantError(s.codec.aggregateType, tenantID, s.codec.tenantOf(agg))
	}
	return agg, nil
}

// loadFromSnapshot reports ok=false when there is no usable snapshot, in which
// case the caller replays the full stream.
func (s *stream[A, E]) loadFromSnapshot(ctx context.Context, id string) (A, bool, error) {
	var zero A
	log := logger.Ctx(ctx).With(zap.String("aggregate_type", s.codec.aggregateType), zap.String("aggregate_id", id))

	snap, err := s.snapshots.ReadSnapshot(ctx, id)
	if err != nil {
		log.Warn("Snapshot read failed, replaying full stream", zap.Error(err))
		return zero, false, nil
	}
	if snap == nil {
		return zero, false, nil
	}

	suffix, err := s.readEvents(ctx, id, snap.Version+1)
	if err != nil {
		return zero, false, err
	}
	agg, err := s.codec.restore(snap.State, snap.Version, suffix)
	if err != nil {
		log.Warn("Snapshot unusable, replaying full stream", zap.Int("snapshot_version", snap.Version), zap.Error(err))
		return zero, false, nil
	}
	metrics.AggregateLoads.WithLabelValues(s.codec.aggregateType, "snapshot").Inc()
	return agg, true, nil
}

func (s *stream[A, E]) replay(ctx context.Context, id string) (A, error) {
	var zero A
	events, err := s.readEvents(ctx, id, 1)
	if err != nil {
		return zero, err
	}
	if len(events) == 0 {
		return zero, s.codec.notFound(id)
	}
	agg, err := s.codec.fromHistory(events)
	if err != nil {
		return zero, err
	}
	metrics.AggregateLoads.WithLabelValues(s.codec.aggregateType, "replay").Inc()
	return agg, nil
}

func (s *stream[A, E]) readEvents(ctx context.Context, id string, from int) ([]E, error) {
	stored, err := s.store.ReadEvents(ctx, id, from, 0)
	if err != nil {
		return nil, fmt.Errorf("read %s stream %s: %w", s.codec.aggregateType, id, err)
	}
	events := make([]E, 0, len(stored))
	for i, se := range stored {
		if se.Version != from+i {
			return nil, fmt.Errorf("%s stream %s: gap at version %d (found %d)", s.codec.aggregateType, id, from+i, se.Version)
		}
		e, err := s.codec.decodeEvent(se.EventType, se.Payload)
		if err != nil {
			return nil, fmt.Errorf("%s stream %s version %d: %w", s.codec.aggregateType, id, se.Version, err)
		}
		events = append(events, e)
	}
	return events, nil
}

func (s *stream[A, E]) save(ctx context.Context, agg A) error {
	changes := s.codec.changes(agg)
	if len(changes) == 0 {
		return nil
	}

	expected := agg.Version()
	tenantID := s.codec.tenantOf(agg).String()
	stored := make([]shared.StoredEvent, len(changes))
	for i, e := range changes {
		payload, err := s.codec.encodeEvent(e)
		if err != nil {
			return fmt.Errorf("encode %s: %w", e.EventName(), err)
		}
		stored[i] = shared.StoredEvent{
			EventID:       e.EventID(),
			EventType:     e.EventName(),
			EventVersion:  e.EventVersion(),
			AggregateID:   agg.ID(),
			AggregateType: s.codec.aggregateType,
			TenantID:      tenantID,
			Version:       expected + i + 1,
			Payload:       payload,
			OccurredOn:    e.OccurredOn(),
		}
	}

	start := time.Now()
	err := s.store.AppendEvents(ctx, agg.ID(), stored, expected)
	metrics.AppendDuration.WithLabelValues(s.codec.aggregateType).Observe(time.Since(start).Seconds())
	if err != nil {
		if shared.KindOf(err) == shared.KindConcurrency {
			metrics.ConcurrencyConflicts.WithLabelValues(s.codec.aggregateType).Inc()
		}
		return err
	}
	metrics.EventsAppended.WithLabelValues(s.codec.aggregateType).Add(float64(len(stored)))

	agg.MarkCommitted()
	s.maybeSnapshot(ctx, agg, expected)
	s.publish(ctx, changes)
	return nil
}

func (s *stream[A, E]) maybeSnapshot(ctx context.Context, agg A, previous int) {
	if s.snapshotEvery <= 0 || agg.Version()/s.snapshotEvery == previous/s.snapshotEvery {
		return
	}
	log := logger.Ctx(ctx).With(zap.String("aggregate_type", s.codec.aggregateType), zap.String("aggregate_id", agg.ID()))

	state, err := s.codec.snapshot(agg)
	if err != nil {
		log.Warn("Snapshot encode failed", zap.Error(err))
		return
	}
	snap := shared.Snapshot{
		AggregateID:   agg.ID(),
		AggregateType: s.codec.aggregateType,
		Version:       agg.Version(),
		State:         state,
		TakenAt:       time.Now().UTC(),
	}
	if err := s.snapshots.WriteSnapshot(ctx, snap); err != nil {
		log.Warn("Snapshot write failed", zap.Int("version", snap.Version), zap.Error(err))
		return
	}
	metrics.SnapshotsWritten.WithLabelValues(s.codec.aggregateType).Inc()
	log.Debug("Snapshot written", zap.Int("version", snap.Version))
}

func (s *stream[A, E]) publish(ctx context.Context, events []E) {
	if s.publisher == nil {
		return
	}
	for _, e := range events {
		if err := s.publisher.Publish(e); err != nil {
			metrics.PublishFailures.WithLabelValues(e.EventName()).Inc()
			logger.Ctx(ctx).Error("Event publish failed after commit",
				zap.String("event_type", e.EventName()),
				zap.String("event_id", e.EventID()),
				zap.String("aggregate_id", e.GetAggregateID()),
				zap.Error(err),
			)
		}
	}
}
