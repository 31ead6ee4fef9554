package mysql

import (
	"context"
	"errors"
	"fmt"

	"iam/domain/shared"
	"iam/infrastructure/persistence/mysql/po"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SnapshotStore keeps one snapshot row per aggregate in the snapshots table.
type SnapshotStore struct {
	db *gorm.DB
}

func NewSnapshotStore(db *gorm.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

func (s *SnapshotStore) ReadSnapshot(ctx context.Context, aggregateID string) (*shared.Snapshot, error) {
	var row po.SnapshotPO
	err := s.db.WithContext(ctx).Where("aggregate_id = ?", aggregateID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot of %s: %w", aggregateID, err)
	}
	snap := row.ToSnapshot()
	return &snap, nil
}

// WriteSnapshot upserts the row. On conflict the stored columns only move
// forward; version is assigned last because MySQL evaluates left to right.
func (s *SnapshotStore) WriteSnapshot(ctx context.Context, snapshot shared.Snapshot) error {
	row := po.FromSnapshot(snapshot)
	newer := "VALUES(version) >= version"
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "aggregate_id"}},
		DoUpdates: clause.Set{
			{Column: clause.Column{Name: "state"}, Value: gorm.Expr("IF(" + newer + ", VALUES(state), state)")},
			{Column: clause.Column{Name: "taken_at"}, Value: gorm.Expr("IF(" + newer + ", VALUES(taken_at), taken_at)")},
			{Column: clause.Column{Name: "aggregate_type"}, Value: gorm.Expr("VALUES(aggregate_type)")},
			{Column: clause.Column{Name: "version"}, Value: gorm.Expr("GREATEST(version, VALUES(version))")},
		},
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("write snapshot of %s: %w", snapshot.AggregateID, err)
	}
	return nil
}

var _ shared.SnapshotStore = (*SnapshotStore)(nil)
