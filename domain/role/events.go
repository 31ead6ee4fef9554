package role

import (
	"encoding/json"
	"fmt"
	"time"

	"iam/domain/shared"
)

const (
	EventTypeRoleCreated           = "role.created"
	EventTypeRoleUpdated           = "role.updated"
	EventTypeRoleStatusChanged     = "role.status_changed"
	EventTypeRolePermissionAdded   = "role.permission_added"
	EventTypeRolePermissionRemoved = "role.permission_removed"
	EventTypeRoleDeleted           = "role.deleted"
)

// EventTypes lists every event type of the aggregate.
func EventTypes() []string {
	return []string{
		EventTypeRoleCreated,
		EventTypeRoleUpdated,
		EventTypeRoleStatusChanged,
		EventTypeRolePermissionAdded,
		EventTypeRolePermissionRemoved,
		EventTypeRoleDeleted,
	}
}

// Event is the closed set of role events. Only types in this package implement it.
type Event interface {
	shared.DomainEvent
	isRoleEvent()
}

// RoleCreatedEvent Role created event
type RoleCreatedEvent struct {
	shared.EventMetadata
	RoleID         string       `json:"roleId"`
	Name           string       `json:"name"`
	Description    string       `json:"description"`
	RoleType       Type         `json:"type"`
	Status         Status       `json:"status"`
	Settings       SettingsData `json:"settings"`
	Permissions    []Permission `json:"permissions"`
	TenantID       string       `json:"tenantId"`
	OrganizationID string       `json:"organizationId,omitempty"`
	DepartmentID   string       `json:"departmentId,omitempty"`
	CreatedBy      string       `json:"createdBy"`
	CreatedAt      time.Time    `json:"createdAt"`
}

// RoleUpdatedEvent Role name, description or settings changed
type RoleUpdatedEvent struct {
	shared.EventMetadata
	RoleID              string       `json:"roleId"`
	Name                string       `json:"name"`
	Description         string       `json:"description"`
	Settings            SettingsData `json:"settings"`
	PreviousName        string       `json:"previousName"`
	PreviousDescription string       `json:"previousDescription"`
}

// RoleStatusChangedEvent Role lifecycle transition other than deletion
type RoleStatusChangedEvent struct {
	shared.EventMetadata
	RoleID         string `json:"roleId"`
	PreviousStatus Status `json:"previousStatus"`
	NewStatus      Status `json:"newStatus"`
	Reason         string `json:"reason,omitempty"`
}

// RolePermissionAddedEvent Permission granted to a role
type RolePermissionAddedEvent struct {
	shared.EventMetadata
	RoleID     string     `json:"roleId"`
	Permission Permission `json:"permission"`
}

// RolePermissionRemovedEvent Permission revoked from a role
type RolePermissionRemovedEvent struct {
	shared.EventMetadata
	RoleID     string     `json:"roleId"`
	Permission Permission `json:"permission"`
}

// RoleDeletedEvent Role soft deleted
type RoleDeletedEvent struct {
	shared.EventMetadata
	RoleID         string    `json:"roleId"`
	PreviousStatus Status    `json:"previousStatus"`
	DeletedAt      time.Time `json:"deletedAt"`
}

func (*RoleCreatedEvent) isRoleEvent()           {}
func (*RoleUpdatedEvent) isRoleEvent()           {}
func (*RoleStatusChangedEvent) isRoleEvent()     {}
func (*RolePermissionAddedEvent) isRoleEvent()   {}
func (*RolePermissionRemovedEvent) isRoleEvent() {}
func (*RoleDeletedEvent) isRoleEvent()           {}

// EncodeEvent serializes an event to its canonical JSON shape.
func EncodeEvent(event Event) ([]byte, error) {
	return json.Marshal(event)
}

// DecodeEvent restores a typed event from its canonical JSON shape.
func DecodeEvent(eventType string, payload []byte) (Event, error) {
	var event Event
	switch eventType {
	case EventTypeRoleCreated:
		event = &RoleCreatedEvent{}
	case EventTypeRoleUpdated:
		event = &RoleUpdatedEvent{}
	case EventTypeRoleStatusChanged:
		event = &RoleStatusChangedEvent{}
	case EventTypeRolePermissionAdded:
		event = &RolePermissionAddedEvent{}
	case EventTypeRolePermissionRemoved:
		event = &RolePermissionRemovedEvent{}
	case EventTypeRoleDeleted:
		event = &RoleDeletedEvent{}
	default:
		return nil, fmt.Errorf("unknown role event type %q", eventType)
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
	_ Event = (*RoleCreatedEvent)(nil)
	_ Event = (*RoleUpdatedEvent)(nil)
	_ Event = (*RoleStatusChangedEvent)(nil)
	_ Event = (*RolePermissionAddedEvent)(nil)
	_ Event = (*RolePermissionRemovedEvent)(nil)
	_ Event = (*RoleDeletedEvent)(nil)
)
