package user

import (
	"time"

	"iam/domain/shared"
)

// Entity 用户实体
// 只由 Aggregate 的事件处理函数修改；email 与 tenant 的组合唯一性由领域服务保证
type Entity struct {
	id           UserID
	email        Email
	passwordHash PasswordHash
	profile      Profile
	preferences  Preferences
	status       Status
	tenantID     shared.TenantID
	platformID   shared.PlatformID
	createdBy    string
	createdAt    time.Time
	updatedAt    time.Time
	deletedAt    *time.Time
}

func (e *Entity) validate() error {
	if e.id.IsZero() {
		return newValidationError(shared.ErrInvalidInput, "id", "user id is required")
	}
	if e.email.IsZero() {
		return newValidationError(ErrInvalidEmail, "email", "email is required")
	}
	if e.passwordHash.IsZero() {
		return newValidationError(ErrInvalidPasswordHash, "password_hash", "password hash is required")
	}
	if e.tenantID.IsZero() {
		return newValidationError(shared.ErrInvalidInput, "tenant_id", "tenant id is required")
	}
	if e.createdBy == "" {
		return newValidationError(shared.ErrInvalidInput, "created_by", "creator is required")
	}
	if !e.status.Valid() {
		return newValidationError(ErrInvalidStatus, "status", "unknown user status: "+e.status.String())
	}
	return nil
}

func (e *Entity) ID() UserID                    { return e.id }
func (e *Entity) Email() Email                  { return e.email }
func (e *Entity) PasswordHash() PasswordHash    { return e.passwordHash }
func (e *Entity) Profile() Profile              { return e.profile }
func (e *Entity) Preferences() Preferences      { return e.preferences }
func (e *Entity) Status() Status                { return e.status }
func (e *Entity) TenantID() shared.TenantID     { return e.tenantID }
func (e *Entity) PlatformID() shared.PlatformID { return e.platformID }
func (e *Entity) CreatedBy() string             { return e.createdBy }
func (e *Entity) CreatedAt() time.Time          { return e.createdAt }
func (e *Entity) UpdatedAt() time.Time          { return e.updatedAt }

func (e *Entity) DeletedAt() (time.Time, bool) {
	if e.deletedAt == nil {
		return time.Time{}, false
	}
	return *e.deletedAt, true
}

func (e *Entity) IsActive() bool  { return e.status == StatusActive }
func (e *Entity) IsDeleted() bool { return e.status == StatusDeleted }

// CanUpdateProfile covers profile and password changes.
func (e *Entity) CanUpdateProfile() bool {
	return e.status == StatusPending || e.status == StatusActive
}

// CanUpdatePreferences is true for every status except DELETED.
func (e *Entity) CanUpdatePreferences() bool { return e.status != StatusDeleted }

func (e *Entity) setProfile(p Profile, at time.Time) {
	e.profile = p
	e.updatedAt = at
}

func (e *Entity) setPreferences(p Preferences, at time.Time) {
	e.preferences = p
	e.updatedAt = at
}

func (e *Entity) setPasswordHash(h PasswordHash, at time.Time) {
	e.passwordHash = h
	e.updatedAt = at
}

func (e *Entity) changeStatus(to Status, at time.Time) error {
	if !e.status.CanTransitionTo(to) {
		return shared.NewInvalidStateTransitionError(entityName, e.status.String(), to.String())
	}
	e.status = to
	e.updatedAt = at
	return nil
}

func (e *Entity) markDeleted(at time.Time) error {
	if err := e.changeStatus(StatusDeleted, at); err != nil {
		return err
	}
	deletedAt := at
	e.deletedAt = &deletedAt
	return nil
}
