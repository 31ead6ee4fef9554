package role

import (
	"encoding/json"
	"fmt"
	"time"
)

// State is the serializable projection of a role used for snapshots.
type State struct {
	RoleID         string       `json:"roleId"`
	Name           string       `json:"name"`
	Description    string       `json:"description"`
	Type           Type         `json:"type"`
	Status         Status       `json:"status"`
	Settings       SettingsData `json:"settings"`
	Permissions    []Permission `json:"permissions"`
	TenantID       string       `json:"tenantId"`
	OrganizationID string       `json:"organizationId,omitempty"`
	DepartmentID   string       `json:"departmentId,omitempty"`
	CreatedBy      string       `json:"createdBy"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
	DeletedAt      *time.Time   `json:"deletedAt,omitempty"`
}

// Snapshot is a role State tagged with the stream version it represents.
type Snapshot struct {
	Version int   `json:"version"`
	State   State `json:"state"`
}

// ToSnapshot captures the persisted state. Staged events are not included,
// so callers snapshot after MarkCommitted.
func (a *Aggregate) ToSnapshot() (Snapshot, error) {
	if a.entity == nil {
		return Snapshot{}, NewRoleNotFoundError(a.id.String())
	}
	if len(a.changes) > 0 {
		return Snapshot{}, fmt.Errorf("role %s: cannot snapshot with %d uncommitted events", a.id, len(a.changes))
	}
	e := a.entity
	s := State{
		RoleID:         e.id.String(),
		Name:           e.name.String(),
		Description:    e.description.String(),
		Type:           e.roleType,
		Status:         e.status,
		Settings:       e.settings.Data(),
		Permissions:    copyPermissions(e.permissions),
		TenantID:       e.tenantID.String(),
		OrganizationID: e.organizationID.String(),
		DepartmentID:   e.departmentID.String(),
		CreatedBy:      e.createdBy,
		CreatedAt:      e.createdAt,
		UpdatedAt:      e.updatedAt,
	}
	if e.deletedAt != nil {
		v := *e.deletedAt
		s.DeletedAt = &v
	}
	return Snapshot{Version: a.version, State: s}, nil
}

// FromSnapshot restores the aggregate from a snapshot and replays the events
// recorded after it. Events must be the suffix starting at snapshot.Version+1.
func FromSnapshot(snapshot Snapshot, events []Event) (*Aggregate, error) {
	s := snapshot.State
	id, err := NewRoleID(s.RoleID)
	if err != nil {
		return nil, err
	}
	name, err := NewName(s.Name)
	if err != nil {
		return nil, err
	}
	description, err := NewDescription(s.Description)
	if err != nil {
		return nil, err
	}
	settings, err := RestoreSettings(s.Settings)
	if err != nil {
		return nil, err
	}
	scope, err := parseScope(s.TenantID, s.OrganizationID, s.DepartmentID)
	if err != nil {
		return nil, err
	}
	entity, err := newEntity(entityParams{
		id:             id,
		name:           name,
		description:    description,
		roleType:       s.Type,
		status:         s.Status,
		settings:       settings,
		permissions:    s.Permissions,
		tenantID:       scope.tenantID,
		organizationID: scope.organizationID,
		departmentID:   scope.departmentID,
		createdBy:      s.CreatedBy,
		createdAt:      s.CreatedAt,
		updatedAt:      s.UpdatedAt,
		deletedAt:      s.DeletedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("restore role snapshot %s: %w", s.RoleID, err)
	}

	a := NewAggregate()
	a.id = id
	a.entity = entity
	for i, event := range events {
		if err := a.apply(event); err != nil {
			return nil, fmt.Errorf("replay role event %d (%s): %w", snapshot.Version+i+1, event.EventName(), err)
		}
	}
	a.version = snapshot.Version + len(events)
	return a, nil
}

// EncodeSnapshot serializes a snapshot for a SnapshotStore.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode role snapshot: %w", err)
	}
	return s, nil
}
