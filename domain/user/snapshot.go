package user

import (
	"encoding/json"
	"fmt"
	"time"
)

// State is the serializable projection of a user used for snapshots.
type State struct {
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
	UpdatedAt    time.Time       `json:"updatedAt"`
	DeletedAt    *time.Time      `json:"deletedAt,omitempty"`
}

type Snapshot struct {
	Version int   `json:"version"`
	State   State `json:"state"`
}

// ToSnapshot captures the persisted state; staged events must be committed first.
func (a *Aggregate) ToSnapshot() (Snapshot, error) {
	if a.entity == nil {
		return Snapshot{}, NewUserNotFoundError(a.id.String())
	}
	if len(a.changes) > 0 {
		return Snapshot{}, fmt.Errorf("user %s: cannot snapshot with %d uncommitted events", a.id, len(a.changes))
	}
	e := a.entity
	s := State{
		UserID:       e.id.String(),
		Email:        e.email.Value(),
		PasswordHash: e.passwordHash.Value(),
		Profile:      e.profile.Data(),
		Preferences:  e.preferences.Data(),
		Status:       e.status,
		TenantID:     e.tenantID.String(),
		PlatformID:   e.platformID.String(),
		CreatedBy:    e.createdBy,
		CreatedAt:    e.createdAt,
		UpdatedAt:    e.updatedAt,
	}
	if e.deletedAt != nil {
		v := *e.deletedAt
		s.DeletedAt = &v
	}
	return Snapshot{Version: a.version, State: s}, nil
}

// FromSnapshot restores a user and replays the events recorded after the snapshot.
func FromSnapshot(snapshot Snapshot, events []Event) (*Aggregate, error) {
	s := snapshot.State
	entity, err := buildEntity(entityState{
		UserID:       s.UserID,
		Email:        s.Email,
		PasswordHash: s.PasswordHash,
		Profile:      s.Profile,
		Preferences:  s.Preferences,
		Status:       s.Status,
		TenantID:     s.TenantID,
		PlatformID:   s.PlatformID,
		CreatedBy:    s.CreatedBy,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		DeletedAt:    s.DeletedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("restore user snapshot %s: %w", s.UserID, err)
	}

	a := NewAggregate()
	a.id = entity.id
	a.entity = entity
	for i, event := range events {
		if err := a.apply(event); err != nil {
			return nil, fmt.Errorf("replay user event %d (%s): %w", snapshot.Version+i+1, event.EventName(), err)
		}
	}
	a.version = snapshot.Version + len(events)
	return a, nil
}

func EncodeSnapshot(s Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode user snapshot: %w", err)
	}
	return s, nil
}
