package user

import (
	"encoding/json"
	"fmt"
	"time"

	"iam/domain/shared"
)

const (
	EventTypeUserCreated            = "user.created"
	EventTypeUserProfileUpdated     = "user.profile_updated"
	EventTypeUserPreferencesUpdated = "user.preferences_updated"
	EventTypeUserPasswordChanged    = "user.password_changed"
	EventTypeUserStatusChanged      = "user.status_changed"
	EventTypeUserDeleted            = "user.deleted"
)

// EventTypes lists every event type of the aggregate.
func EventTypes() []string {
	return []string{
		EventTypeUserCreated,
		EventTypeUserProfileUpdated,
		EventTypeUserPreferencesUpdated,
		EventTypeUserPasswordChanged,
		EventTypeUserStatusChanged,
		EventTypeUserDeleted,
	}
}

// Event is the closed set of user events.
type Event interface {
	shared.DomainEvent
	isUserEvent()
}

// UserCreatedEvent User registered event
type UserCreatedEvent struct {
	shared.EventMetadata
	UserID       string          `json:"userId"`
	Email        string          `json:"email"`
	PasswordHash string          `json:"passwordHash"`
	Profile      ProfileData     `json:"profile"`
	Preferences  PreferencesData `json:"preferences"`
	Status       Status          `json:"status"`
	TenantID     string          `json:"tenantId"`
	PlatformID   string          `json:"platformId,omitempty"`
	CreatedBy    string          `json:"createdBy"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// UserProfileUpdatedEvent Profile replaced
type UserProfileUpdatedEvent struct {
	shared.EventMetadata
	UserID          string      `json:"userId"`
	Profile         ProfileData `json:"profile"`
	PreviousProfile ProfileData `json:"previousProfile"`
}

// UserPreferencesUpdatedEvent Preferences replaced
type UserPreferencesUpdatedEvent struct {
	shared.EventMetadata
	UserID      string          `json:"userId"`
	Preferences PreferencesData `json:"preferences"`
}

// UserPasswordChangedEvent Password hash replaced
type UserPasswordChangedEvent struct {
	shared.EventMetadata
	UserID       string `json:"userId"`
	PasswordHash string `json:"passwordHash"`
}

// UserStatusChangedEvent Lifecycle transition other than deletion
type UserStatusChangedEvent struct {
	shared.EventMetadata
	UserID         string `json:"userId"`
	PreviousStatus Status `json:"previousStatus"`
	NewStatus      Status `json:"newStatus"`
	Reason         string `json:"reason,omitempty"`
}

// UserDeletedEvent User soft deleted
type UserDeletedEvent struct {
	shared.EventMetadata
	UserID         string    `json:"userId"`
	PreviousStatus Status    `json:"previousStatus"`
	DeletedAt      time.Time `json:"deletedAt"`
}

func (*UserCreatedEvent) isUserEvent()            {}
func (*UserProfileUpdatedEvent) isUserEvent()     {}
func (*UserPreferencesUpdatedEvent) isUserEvent() {}
func (*UserPasswordChangedEvent) isUserEvent()    {}
func (*UserStatusChangedEvent) isUserEvent()      {}
func (*UserDeletedEvent) isUserEvent()            {}

func EncodeEvent(event Event) ([]byte, error) {
	return json.Marshal(event)
}

// DecodeEvent restores a typed event from its canonical JSON shape.
func DecodeEvent(eventType string, payload []byte) (Event, error) {
	var event Event
	switch eventType {
	case EventTypeUserCreated:
		event = &UserCreatedEvent{}
	case EventTypeUserProfileUpdated:
		event = &UserProfileUpdatedEvent{}
	case EventTypeUserPreferencesUpdated:
		event = &UserPreferencesUpdatedEvent{}
	case EventTypeUserPasswordChanged:
		event = &UserPasswordChangedEvent{}
	case EventTypeUserStatusChanged:
		event = &UserStatusChangedEvent{}
	case EventTypeUserDeleted:
		event = &UserDeletedEvent{}
	default:
		return nil, fmt.Errorf("unknown user event type %q", eventType)
	}
	if err := json.Unmarshal(payload, event); err != nil {
		return nil, fmt.Errorf("decode %s: %w", eventType, err)
	}
	if event.EventName() != eventType {
		return nil, fmt.Errorf("decode %s: payload carries event type %q", eventType, event.EventName())
	}
	return event, nil
}

var (
	_ Event = (*UserCreatedEvent)(nil)
	_ Event = (*UserProfileUpdatedEvent)(nil)
	_ Event = (*UserPreferencesUpdatedEvent)(nil)
	_ Event = (*UserPasswordChangedEvent)(nil)
	_ Event = (*UserStatusChangedEvent)(nil)
	_ Event = (*UserDeletedEvent)(nil)
)
