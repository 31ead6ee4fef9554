package role

import (
	"time"
)

// Settings holds the policy flags of a role.
//
// Invariants: a system role is never deletable and always modifiable, a
// default role is never deletable, maxUsers is non-negative.
type Settings struct {
	isSystemRole     bool
	isDefaultRole    bool
	canBeDeleted     bool
	canBeModified    bool
	maxUsers         *int
	expiresAt        *time.Time
	requiresApproval bool
	autoAssign       bool
}

// SettingsData is the input and serialized form of Settings.
type SettingsData struct {
	IsSystemRole     bool       `json:"isSystemRole"`
	IsDefaultRole    bool       `json:"isDefaultRole"`
	CanBeDeleted     bool       `json:"canBeDeleted"`
	CanBeModified    bool       `json:"canBeModified"`
	MaxUsers         *int       `json:"maxUsers,omitempty"`
	ExpiresAt        *time.Time `json:"expiresAt,omitempty"`
	RequiresApproval bool       `json:"requiresApproval"`
	AutoAssign       bool       `json:"autoAssign"`
}

// NewSettings validates data for use at creation or update time; expiresAt
// must lie strictly after now.
func NewSettings(data SettingsData, now time.Time) (Settings, error) {
	if data.ExpiresAt != nil && !data.ExpiresAt.After(now) {
		return Settings{}, newValidationError(ErrInvalidSettings, "expiresAt", "role expiry must be in the future")
	}
	return RestoreSettings(data)
}

// RestoreSettings rebuilds settings from stored data. It checks the structural
// invariants but not expiry, which was validated when the data was first accepted.
func RestoreSettings(data SettingsData) (Settings, error) {
	if data.IsSystemRole && data.CanBeDeleted {
		return Settings{}, newValidationError(ErrInvalidSettings, "canBeDeleted", "a system role cannot be deletable")
	}
	if data.IsSystemRole && !data.CanBeModified {
		return Settings{}, newValidationError(ErrInvalidSettings, "canBeModified", "a system role must be modifiable")
	}
	if data.IsDefaultRole && data.CanBeDeleted {
		return Settings{}, newValidationError(ErrInvalidSettings, "canBeDeleted", "a default role cannot be deletable")
	}
	if data.MaxUsers != nil && *data.MaxUsers < 0 {
		return Settings{}, newValidationError(ErrInvalidSettings, "maxUsers", "maxUsers cannot be negative")
	}

	s := Settings{
		isSystemRole:     data.IsSystemRole,
		isDefaultRole:    data.IsDefaultRole,
		canBeDeleted:     data.CanBeDeleted,
		canBeModified:    data.CanBeModified,
		requiresApproval: data.RequiresApproval,
		autoAssign:       data.AutoAssign,
	}
	if data.MaxUsers != nil {
		v := *data.MaxUsers
		s.maxUsers = &v
	}
	if data.ExpiresAt != nil {
		v := data.ExpiresAt.UTC()
		s.expiresAt = &v
	}
	return s, nil
}

// DefaultSettings is an ordinary, deletable and modifiable role.
func DefaultSettings() Settings {
	return Settings{canBeDeleted: true, canBeModified: true}
}

func (s Settings) IsSystemRole() bool     { return s.isSystemRole }
func (s Settings) IsDefaultRole() bool    { return s.isDefaultRole }
func (s Settings) CanBeDeleted() bool     { return s.canBeDeleted }
func (s Settings) CanBeModified() bool    { return s.canBeModified }
func (s Settings) RequiresApproval() bool { return s.requiresApproval }
func (s Settings) AutoAssign() bool       { return s.autoAssign }

func (s Settings) MaxUsers() (int, bool) {
	if s.maxUsers == nil {
		return 0, false
	}
	return *s.maxUsers, true
}

func (s Settings) ExpiresAt() (time.Time, bool) {
	if s.expiresAt == nil {
		return time.Time{}, false
	}
	return *s.expiresAt, true
}

// IsExpired reports whether an expiry is set and has been reached at now.
func (s Settings) IsExpired(now time.Time) bool {
	return s.expiresAt != nil && !now.Before(*s.expiresAt)
}

func (s Settings) Data() SettingsData {
	d := SettingsData{
		IsSystemRole:     s.isSystemRole,
		IsDefaultRole:    s.isDefaultRole,
		CanBeDeleted:     s.canBeDeleted,
		CanBeModified:    s.canBeModified,
		RequiresApproval: s.requiresApproval,
		AutoAssign:       s.autoAssign,
	}
	if s.maxUsers != nil {
		v := *s.maxUsers
		d.MaxUsers = &v
	}
	if s.expiresAt != nil {
		v := *s.expiresAt
		d.ExpiresAt = &v
	}
	return d
}

func (s Settings) Equals(other Settings) bool {
	if s.isSystemRole != other.isSystemRole ||
		s.isDefaultRole != other.isDefaultRole ||
		s.canBeDeleted != other.canBeDeleted ||
		s.canBeModified != other.canBeModified ||
		s.requiresApproval != other.requiresApproval ||
		s.autoAssign != other.autoAssign {
		return false
	}
	if (s.maxUsers == nil) != (other.maxUsers == nil) ||
		(s.maxUsers != nil && *s.maxUsers != *other.maxUsers) {
		return false
	}
	if (s.expiresAt == nil) != (other.expiresAt == nil) ||
		(s.expiresAt != nil && !s.expiresAt.Equal(*other.expiresAt)) {
		return false
	}
	return true
}
