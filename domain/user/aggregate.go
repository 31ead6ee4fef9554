package user

import (
	"fmt"
	"time"

	"iam/domain/shared"
)

const AggregateType = "user"

// Aggregate is the event-sourced root of a user. It follows the same
// discipline as the role aggregate: commands validate, raise one event, and
// apply is the only place state changes.
type Aggregate struct {
	id      UserID
	entity  *Entity
	version int
	changes []Event
	clock   func() time.Time
}

func NewAggregate() *Aggregate {
	return &Aggregate{clock: time.Now}
}

func (a *Aggregate) WithClock(clock func() time.Time) *Aggregate {
	if clock != nil {
		a.clock = clock
	}
	return a
}

// RegisterUserParams are the inputs of RegisterUser. PlatformID is optional.
type RegisterUserParams struct {
	ID           UserID
	Email        Email
	PasswordHash PasswordHash
	Profile      Profile
	Preferences  Preferences
	TenantID     shared.TenantID
	PlatformID   shared.PlatformID
	CreatedBy    string
}

// ============================================================================
// Commands
// ============================================================================

func (a *Aggregate) RegisterUser(p RegisterUserParams) error {
	if a.entity != nil {
		return shared.NewInvalidStateError(entityName, "user "+a.id.String()+" already exists")
	}
	if p.Profile.FirstName() == "" {
		return newValidationError(ErrInvalidProfile, "profile", "profile is required")
	}
	preferences := p.Preferences
	if preferences.Language() == "" {
		preferences = DefaultPreferences()
	}

	now := a.now()
	return a.raise(&UserCreatedEvent{
		EventMetadata: shared.NewEventMetadata(EventTypeUserCreated, p.ID.String(), now),
		UserID:        p.ID.String(),
		Email:         p.Email.Value(),
		PasswordHash:  p.PasswordHash.Value(),
		Profile:       p.Profile.Data(),
		Preferences:   preferences.Data(),
		Status:        StatusPending,
		TenantID:      p.TenantID.String(),
		PlatformID:    p.PlatformID.String(),
		CreatedBy:     p.CreatedBy,
		CreatedAt:     now.UTC(),
	})
}

// UpdateProfile requires a PENDING or ACTIVE user.
func (a *Aggregate) UpdateProfile(profile Profile) error {
	e, err := a.requireEntity()
	if err != nil {
		return err
	}
	if !e.CanUpdateProfile() {
		return shared.NewInvalidStateError(entityName, "profile of "+e.status.String()+" user cannot be updated")
	}
	if profile.FirstName() == "" {
		return newValidationError(ErrInvalidProfile, "profile", "profile is required")
	}

	return a.raise(&UserProfileUpdatedEvent{
		EventMetadata:   shared.NewEventMetadata(EventTypeUserProfileUpdated, a.id.String(), a.now()),
		UserID:          a.id.String(),
		Profile:         profile.Data(),
		PreviousProfile: e.profile.Data(),
	})
}

// UpdatePreferences is allowed in every status except DELETED.
func (a *Aggregate) UpdatePreferences(preferences Preferences) error {
	e, err := a.requireEntity()
	if err != nil {
		return err
	}
	if !e.CanUpdatePreferences() {
		return shared.NewInvalidStateError(entityName, "preferences of a deleted user cannot be updated")
	}
	if preferences.Language() == "" {
		return newValidationError(ErrInvalidPreferences, "preferences", "preferences are required")
	}

	return a.raise(&UserPreferencesUpdatedEvent{
		EventMetadata: shared.NewEventMetadata(EventTypeUserPreferencesUpdated, a.id.String(), a.now()),
		UserID:        a.id.String(),
		Preferences:   preferences.Data(),
	})
}

func (a *Aggregate) ChangePassword(hash PasswordHash) error {
	e, err := a.requireEntity()
	if err != nil {
		return err
	}
	if !e.CanUpdateProfile() {
		return shared.NewInvalidStateError(entityName, "password of "+e.status.String()+" user cannot be changed")
	}
	if hash.IsZero() {
		return newValidationError(ErrInvalidPasswordHash, "password_hash", "password hash is required")
	}

	return a.raise(&UserPasswordChangedEvent{
		EventMetadata: shared.NewEventMetadata(EventTypeUserPasswordChanged, a.id.String(), a.now()),
		UserID:        a.id.String(),
		PasswordHash:  hash.Value(),
	})
}

func (a *Aggregate) ActivateUser() error   { return a.transition(StatusActive, "activated") }
func (a *Aggregate) DeactivateUser() error { return a.transition(StatusDisabled, "deactivated") }
func (a *Aggregate) SuspendUser() error    { return a.transition(StatusSuspended, "suspended") }

// DeleteUser soft deletes an ACTIVE user.
func (a *Aggregate) DeleteUser() error {
	e, err := a.requireEntity()
	if err != nil {
		return err
	}
	if !e.status.CanTransitionTo(StatusDeleted) {
		return shared.NewInvalidStateTransitionError(entityName, e.status.String(), StatusDeleted.String())
	}

	now := a.now()
	return a.raise(&UserDeletedEvent{
		EventMetadata:  shared.NewEventMetadata(EventTypeUserDeleted, a.id.String(), now),
		UserID:         a.id.String(),
		PreviousStatus: e.status,
		DeletedAt:      now.UTC(),
	})
}

func (a *Aggregate) transition(to Status, reason string) error {
	e, err := a.requireEntity()
	if err != nil {
		return err
	}
	if !e.status.CanTransitionTo(to) {
		return shared.NewInvalidStateTransitionError(entityName, e.status.String(), to.String())
	}

	return a.raise(&UserStatusChangedEvent{
		EventMetadata:  shared.NewEventMetadata(EventTypeUserStatusChanged, a.id.String(), a.now()),
		UserID:         a.id.String(),
		PreviousStatus: e.status,
		NewStatus:      to,
		Reason:         reason,
	})
}

// ============================================================================
// Event application
// ============================================================================

func (a *Aggregate) raise(event Event) error {
	if err := a.apply(event); err != nil {
		return err
	}
	a.changes = append(a.changes, event)
	return nil
}

func (a *Aggregate) apply(event Event) error {
	if a.entity != nil && event.GetAggregateID() != a.id.String() {
		return fmt.Errorf("user %s: event %s belongs to aggregate %s",
			a.id, event.EventName(), event.GetAggregateID())
	}

	at := event.OccurredOn()
	switch e := event.(type) {
	case *UserCreatedEvent:
		if a.entity != nil {
			return shared.NewInvalidStateError(entityName, "user "+a.id.String()+" already exists")
		}
		entity, err := entityFromCreated(e)
		if err != nil {
			return err
		}
		a.entity = entity
		a.id = entity.id
		return nil

	case *UserProfileUpdatedEvent:
		entity, err := a.requireEntity()
		if err != nil {
			return err
		}
		profile, err := NewProfile(e.Profile)
		if err != nil {
			return err
		}
		entity.setProfile(profile, at)
		return nil

	case *UserPreferencesUpdatedEvent:
		entity, err := a.requireEntity()
		if err != nil {
			return err
		}
		preferences, err := NewPreferences(e.Preferences)
		if err != nil {
			return err
		}
		entity.setPreferences(preferences, at)
		return nil

	case *UserPasswordChangedEvent:
		entity, err := a.requireEntity()
		if err != nil {
			return err
		}
		hash, err := NewPasswordHash(e.PasswordHash)
		if err != nil {
			return err
		}
		entity.setPasswordHash(hash, at)
		return nil

	case *UserStatusChangedEvent:
		entity, err := a.requireEntity()
		if err != nil {
			return err
		}
		if entity.status != e.PreviousStatus {
			return fmt.Errorf("user %s: status changed event expects %s, state is %s",
				a.id, e.PreviousStatus, entity.status)
		}
		return entity.changeStatus(e.NewStatus, at)

	case *UserDeletedEvent:
		entity, err := a.requireEntity()
		if err != nil {
			return err
		}
		return entity.markDeleted(e.DeletedAt)

	default:
		return fmt.Errorf("user: unsupported event type %T", event)
	}
}

type entityState struct {
	UserID       string
	Email        string
	PasswordHash string
	Profile      ProfileData
	Preferences  PreferencesData
	Status       Status
	TenantID     string
	PlatformID   string
	CreatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

func entityFromCreated(e *UserCreatedEvent) (*Entity, error) {
	return buildEntity(entityState{
		UserID:       e.UserID,
		Email:        e.Email,
		PasswordHash: e.PasswordHash,
		Profile:      e.Profile,
		Preferences:  e.Preferences,
		Status:       e.Status,
		TenantID:     e.TenantID,
		PlatformID:   e.PlatformID,
		CreatedBy:    e.CreatedBy,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.CreatedAt,
	})
}

func buildEntity(s entityState) (*Entity, error) {
	id, err := NewUserID(s.UserID)
	if err != nil {
		return nil, err
	}
	email, err := NewEmail(s.Email)
	if err != nil {
		return nil, err
	}
	hash, err := NewPasswordHash(s.PasswordHash)
	if err != nil {
		return nil, err
	}
	profile, err := NewProfile(s.Profile)
	if err != nil {
		return nil, err
	}
	preferences, err := NewPreferences(s.Preferences)
	if err != nil {
		return nil, err
	}
	tenantID, err := shared.NewTenantID(s.TenantID)
	if err != nil {
		return nil, err
	}
	var platformID shared.PlatformID
	if s.PlatformID != "" {
		if platformID, err = shared.NewPlatformID(s.PlatformID); err != nil {
			return nil, err
		}
	}

	entity := &Entity{
		id:           id,
		email:        email,
		passwordHash: hash,
		profile:      profile,
		preferences:  preferences,
		status:       s.Status,
		tenantID:     tenantID,
		platformID:   platformID,
		createdBy:    s.CreatedBy,
		createdAt:    s.CreatedAt,
		updatedAt:    s.UpdatedAt,
	}
	if s.DeletedAt != nil {
		v := *s.DeletedAt
		entity.deletedAt = &v
	}
	if err := entity.validate(); err != nil {
		return nil, err
	}
	return entity, nil
}

func (a *Aggregate) requireEntity() (*Entity, error) {
	if a.entity == nil {
		return nil, NewUserNotFoundError(a.id.String())
	}
	return a.entity, nil
}

func (a *Aggregate) now() time.Time {
	if a.clock == nil {
		return time.Now()
	}
	return a.clock()
}

// FromHistory rebuilds a user by replaying its full stream in order.
func FromHistory(events []Event) (*Aggregate, error) {
	if len(events) == 0 {
		return nil, NewUserNotFoundError("")
	}
	a := NewAggregate()
	for i, event := range events {
		if err := a.apply(event); err != nil {
			return nil, fmt.Errorf("replay user event %d (%s): %w", i+1, event.EventName(), err)
		}
	}
	a.version = len(events)
	return a, nil
}

// ============================================================================
// Aggregate root contract and read accessors
// ============================================================================

func (a *Aggregate) ID() string            { return a.id.String() }
func (a *Aggregate) UserID() UserID        { return a.id }
func (a *Aggregate) AggregateType() string { return AggregateType }
func (a *Aggregate) Version() int          { return a.version }
func (a *Aggregate) Exists() bool          { return a.entity != nil }

func (a *Aggregate) UncommittedEvents() []shared.DomainEvent {
	events := make([]shared.DomainEvent, len(a.changes))
	for i, e := range a.changes {
		events[i] = e
	}
	return events
}

func (a *Aggregate) Changes() []Event {
	out := make([]Event, len(a.changes))
	copy(out, a.changes)
	return out
}

func (a *Aggregate) MarkCommitted() {
	a.version += len(a.changes)
	a.changes = nil
}

func (a *Aggregate) Email() Email                  { return a.entity.Email() }
func (a *Aggregate) PasswordHash() PasswordHash    { return a.entity.PasswordHash() }
func (a *Aggregate) Profile() Profile              { return a.entity.Profile() }
func (a *Aggregate) Preferences() Preferences      { return a.entity.Preferences() }
func (a *Aggregate) Status() Status                { return a.entity.Status() }
func (a *Aggregate) TenantID() shared.TenantID     { return a.entity.TenantID() }
func (a *Aggregate) PlatformID() shared.PlatformID { return a.entity.PlatformID() }
func (a *Aggregate) CreatedBy() string             { return a.entity.CreatedBy() }
func (a *Aggregate) CreatedAt() time.Time          { return a.entity.CreatedAt() }
func (a *Aggregate) UpdatedAt() time.Time          { return a.entity.UpdatedAt() }
func (a *Aggregate) DeletedAt() (time.Time, bool)  { return a.entity.DeletedAt() }
func (a *Aggregate) IsActive() bool                { return a.entity.IsActive() }
func (a *Aggregate) CanUpdateProfile() bool        { return a.entity.CanUpdateProfile() }
func (a *Aggregate) CanUpdatePreferences() bool    { return a.entity.CanUpdatePreferences() }

var _ shared.EventSourcedAggregate = (*Aggregate)(nil)
