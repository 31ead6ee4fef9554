package po

import (
	"time"

	"iam/domain/shared"
)

// SnapshotPO holds the latest snapshot per aggregate.
type SnapshotPO struct {
	AggregateID   string    `gorm:"primaryKey;size:36"`
	AggregateType string    `gorm:"size:32;not null"`
	Version       int       `gorm:"not null"`
	State         string    `gorm:"type:json;not null"`
	TakenAt       time.Time `gorm:"not null"`
}

func (SnapshotPO) TableName() string {
	return "snapshots"
}

func FromSnapshot(s shared.Snapshot) SnapshotPO {
	return SnapshotPO{
		AggregateID:   s.AggregateID,
		AggregateType: s.AggregateType,
		Version:       s.Version,
		State:         string(s.State),
		TakenAt:       s.TakenAt.UTC(),
	}
}

func (p SnapshotPO) ToSnapshot() shared.Snapshot {
	return shared.Snapshot{
		AggregateID:   p.AggregateID,
		AggregateType: p.AggregateType,
		Version:       p.Version,
		State:         []byte(p.State),
		TakenAt:       p.TakenAt.UTC(),
	}
}
