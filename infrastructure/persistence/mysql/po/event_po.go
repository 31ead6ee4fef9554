package po

import (
	"time"

	"iam/domain/shared"
)

// EventPO is one row of an aggregate stream. (aggregate_id, version) is
// unique, which rejects a second writer that passed the version check.
type EventPO struct {
	EventID       string    `gorm:"primaryKey;size:36"`
	AggregateID   string    `gorm:"size:36;not null;uniqueIndex:uk_events_stream,priority:1"`
	Version       int       `gorm:"not null;uniqueIndex:uk_events_stream,priority:2"`
	AggregateType string    `gorm:"size:32;not null;index"`
	TenantID      string    `gorm:"size:36;index"`
	EventType     string    `gorm:"size:100;not null"`
	EventVersion  int       `gorm:"not null;default:1"`
	Payload       string    `gorm:"type:json;not null"`
	OccurredOn    time.Time `gorm:"not null"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

func (EventPO) TableName() string {
	return "events"
}

func FromStoredEvent(e shared.StoredEvent) EventPO {
	return EventPO{
		EventID:       e.EventID,
		AggregateID:   e.AggregateID,
		Version:       e.Version,
		AggregateType: e.AggregateType,
		TenantID:      e.TenantID,
		EventType:     e.EventType,
		EventVersion:  e.EventVersion,
		Payload:       string(e.Payload),
		OccurredOn:    e.OccurredOn.UTC(),
	}
}

func (p EventPO) ToStoredEvent() shared.StoredEvent {
	return shared.StoredEvent{
		EventID:       p.EventID,
		EventType:     p.EventType,
		EventVersion:  p.EventVersion,
		AggregateID:   p.AggregateID,
		AggregateType: p.AggregateType,
		TenantID:      p.TenantID,
		Version:       p.Version,
		Payload:       []byte(p.Payload),
		OccurredOn:    p.OccurredOn.UTC(),
	}
}
