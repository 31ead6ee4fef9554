package po

import (
	"crypto/rand"
	"sync"
	"time"

	"iam/domain/shared"
	"iam/infrastructure/messaging"

	"github.com/oklog/ulid/v2"
)

// OutboxEventPO Outbox event persistence object
// Rows are written in the same transaction as the events they relay.
// IDs are ULIDs so ordering by id follows insertion time.
type OutboxEventPO struct {
	ID            string    `gorm:"primaryKey;size:26"`
	EventID       string    `gorm:"size:36;not null;uniqueIndex"`
	AggregateID   string    `gorm:"size:36;index;not null"`
	AggregateType string    `gorm:"size:32;not null"`
	TenantID      string    `gorm:"size:36"`
	EventType     string    `gorm:"size:100;index;not null"`                // e.g. "role.created"
	Payload       string    `gorm:"type:json;not null"`                     // canonical event JSON
	Status        string    `gorm:"size:20;default:PENDING;not null;index"` // PENDING, PROCESSING, PUBLISHED, FAILED
	RetryCount    int       `gorm:"default:0;not null"`
	LastError     string    `gorm:"size:512"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

// TableName Specify table name
func (OutboxEventPO) TableName() string {
	return "outbox_events"
}

// EventStatus Outbox event status enum
type EventStatus string

const (
	EventStatusPending    EventStatus = "PENDING"
	EventStatusProcessing EventStatus = "PROCESSING"
	EventStatusPublished  EventStatus = "PUBLISHED"
	EventStatusFailed     EventStatus = "FAILED"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// newOutboxID returns a ULID that increases even within one millisecond.
func newOutboxID(now time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(now), entropy).String()
}

// NewOutboxEvent wraps a stored event for relay.
func NewOutboxEvent(e shared.StoredEvent, now time.Time) OutboxEventPO {
	return OutboxEventPO{
		ID:            newOutboxID(now),
		EventID:       e.EventID,
		AggregateID:   e.AggregateID,
		AggregateType: e.AggregateType,
		TenantID:      e.TenantID,
		EventType:     e.EventType,
		Payload:       string(e.Payload),
		Status:        string(EventStatusPending),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// ToMessage converts the row to the publisher's message.
func (p *OutboxEventPO) ToMessage() messaging.Message {
	return messaging.Message{
		ID:            p.ID,
		AggregateID:   p.AggregateID,
		AggregateType: p.AggregateType,
		TenantID:      p.TenantID,
		EventType:     p.EventType,
		Payload:       []byte(p.Payload),
		CreatedAt:     p.CreatedAt,
	}
}
