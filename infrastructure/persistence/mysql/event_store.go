package mysql

import (
	"context"
	"fmt"
	"time"

	"iam/domain/shared"
	"iam/infrastructure/persistence"
	"iam/infrastructure/persistence/mysql/po"

	"gorm.io/gorm"
)

// EventStore MySQL/GORM implementation of shared.EventStore
// Each append writes the events and their outbox rows in one transaction.
type EventStore struct {
	*SnapshotStore
	db *gorm.DB
}

func NewEventStore(db *gorm.DB) *EventStore {
	return &EventStore{SnapshotStore: NewSnapshotStore(db), db: db}
}

func (s *EventStore) getDB(ctx context.Context) *gorm.DB {
	if tx := persistence.TxFromContext(ctx); tx != nil {
		return tx
	}
	return s.db.WithContext(ctx)
}

// AppendEvents compares the stream's current version with expectedVersion
// inside the transaction. The unique (aggregate_id, version) index catches a
// writer that raced past the comparison; both cases surface as a concurrency error.
func (s *EventStore) AppendEvents(ctx context.Context, aggregateID string, events []shared.StoredEvent, expectedVersion int) error {
	if len(events) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([]po.EventPO, len(events))
	outbox := make([]po.OutboxEventPO, len(events))
	for i, e := range events {
		if e.AggregateID != aggregateID {
			return fmt.Errorf("append to %s: event %s belongs to aggregate %s", aggregateID, e.EventID, e.AggregateID)
		}
		if e.Version != expectedVersion+i+1 {
			return fmt.Errorf("append to %s: event %s has version %d, want %d", aggregateID, e.EventID, e.Version, expectedVersion+i+1)
		}
		rows[i] = po.FromStoredEvent(e)
		outbox[i] = po.NewOutboxEvent(e, now)
	}

	err := s.getDB(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := streamVersion(tx, aggregateID)
		if err != nil {
			return fmt.Errorf("read stream version: %w", err)
		}
		if current != expectedVersion {
			return shared.NewConcurrencyError(aggregateID, expectedVersion, current)
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
		if err := tx.Create(&outbox).Error; err != nil {
			return fmt.Errorf("write outbox: %w", err)
		}
		return nil
	})
	if isDuplicateKeyError(err) {
		actual, verr := streamVersion(s.db.WithContext(ctx), aggregateID)
		if verr != nil {
			actual = expectedVersion + 1
		}
		return shared.NewConcurrencyError(aggregateID, expectedVersion, actual)
	}
	return err
}

func (s *EventStore) ReadEvents(ctx context.Context, aggregateID string, fromVersion, toVersion int) ([]shared.StoredEvent, error) {
	if fromVersion < 1 {
		fromVersion = 1
	}
	query := s.getDB(ctx).Where("aggregate_id = ? AND version >= ?", aggregateID, fromVersion)
	if toVersion > 0 {
		query = query.Where("version <= ?", toVersion)
	}

	var rows []po.EventPO
	if err := query.Order("version ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("read events of %s: %w", aggregateID, err)
	}
	events := make([]shared.StoredEvent, len(rows))
	for i, row := range rows {
		events[i] = row.ToStoredEvent()
	}
	return events, nil
}

func streamVersion(db *gorm.DB, aggregateID string) (int, error) {
	var version int
	err := db.Model(&po.EventPO{}).
		Select("COALESCE(MAX(version), 0)").
		Where("aggregate_id = ?", aggregateID).
		Scan(&version).Error
	return version, err
}

var _ shared.EventStore = (*EventStore)(nil)
