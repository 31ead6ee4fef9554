package role

import (
	"fmt"
	"time"

	"iam/domain/shared"
)

// AggregateType names role streams in the event store.
const AggregateType = "role"

// Aggregate is the event-sourced root of a role.
//
// Every command validates against the current state, builds exactly one
// event and hands it to apply. apply is the only place state changes, and it
// runs identically for live commands and for replay.
type Aggregate struct {
	id      RoleID
	entity  *Entity
	version int
	changes []Event
	clock   func() time.Time
}

// NewAggregate returns an empty aggregate ready for CreateRole.
func NewAggregate() *Aggregate {
	return &Aggregate{clock: time.Now}
}

// WithClock replaces the time source used to stamp new events.
func (a *Aggregate) WithClock(clock func() time.Time) *Aggregate {
	if clock != nil {
		a.clock = clock
	}
	return a
}

// CreateRoleParams are the inputs of CreateRole. Value objects arrive validated.
type CreateRoleParams struct {
	ID             RoleID
	Name           Name
	Description    Description
	Type           Type
	TenantID       shared.TenantID
	Settings       Settings
	Permissions    []Permission
	OrganizationID shared.OrganizationID
	DepartmentID   shared.DepartmentID
	CreatedBy      string
}

// ============================================================================
// Commands
// ============================================================================

func (a *Aggregate) CreateRole(p CreateRoleParams) error {
	if a.entity != nil {
		return shared.NewInvalidStateError(entityName, "role "+a.id.String()+" already exists")
	}
	if p.ID.IsZero() {
		return newValidationError(shared.ErrInvalidInput, "id", "role id is required")
	}
	if p.Name.String() == "" {
		return newValidationError(ErrInvalidRoleName, "name", "role name is required")
	}
	if p.TenantID.IsZero() {
		return newValidationError(shared.ErrInvalidInput, "tenant_id", "tenant id is required")
	}
	if p.CreatedBy == "" {
		return newValidationError(shared.ErrInvalidInput, "created_by", "creator is required")
	}
	if err := validateScope(p.Type, p.OrganizationID, p.DepartmentID); err != nil {
		return err
	}
	if err := ensureDistinct(p.Permissions); err != nil {
		return err
	}

	now := a.now()
	return a.raise(&RoleCreatedEvent{
		EventMetadata:  shared.NewEventMetadata(EventTypeRoleCreated, p.ID.String(), now),
		RoleID:         p.ID.String(),
		Name:           p.Name.String(),
		Description:    p.Description.String(),
		RoleType:       p.Type,
		Status:         StatusPending,
		Settings:       p.Settings.Data(),
		Permissions:    copyPermissions(p.Permissions),
		TenantID:       p.TenantID.String(),
		OrganizationID: p.OrganizationID.String(),
		DepartmentID:   p.DepartmentID.String(),
		CreatedBy:      p.CreatedBy,
		CreatedAt:      now.UTC(),
	})
}

// UpdateRole replaces name, description and settings. The system-role flag
// is fixed at creation.
func (a *Aggregate) UpdateRole(name Name, description Description, settings Settings) error {
	e, err := a.requireEntity()
	if err != nil {
		return err
	}
	if !e.CanBeModified() {
		return shared.NewInvalidStateError(entityName, "role "+a.id.String()+" cannot be modified")
	}
	if name.String() == "" {
		return newValidationError(ErrInvalidRoleName, "name", "role name is required")
	}
	if settings.IsSystemRole() != e.settings.IsSystemRole() {
		return shared.NewInvalidStateError(entityName, "the system role flag cannot be changed")
	}

	return a.raise(&RoleUpdatedEvent{
		EventMetadata:       shared.NewEventMetadata(EventTypeRoleUpdated, a.id.String(), a.now()),
		RoleID:              a.id.String(),
		Name:                name.String(),
		Description:         description.String(),
		Settings:            settings.Data(),
		PreviousName:        e.name.String(),
		PreviousDescription: e.description.String(),
	})
}

func (a *Aggregate) AddPermission(p Permission) error {
	e, err := a.requireEntity()
	if err != nil {
		return err
	}
	if !e.CanBeModified() {
		return shared.NewInvalidStateError(entityName, "role "+a.id.String()+" cannot be modified")
	}
	if p.IsZero() {
		return newValidationError(ErrInvalidPermission, "permission", "permission cannot be empty")
	}
	if e.HasPermission(p) {
		return NewDuplicatePermissionError(p)
	}

	return a.raise(&RolePermissionAddedEvent{
		EventMetadata: shared.NewEventMetadata(EventTypeRolePermissionAdded, a.id.String(), a.now()),
		RoleID:        a.id.String(),
		Permission:    p,
	})
}

func (a *Aggregate) RemovePermission(p Permission) error {
	e, err := a.requireEntity()
	if err != nil {
		return err
	}
	if !e.CanBeModified() {
		return shared.NewInvalidStateError(entityName, "role "+a.id.String()+" cannot be modified")
	}
	if !e.HasPermission(p) {
		return NewPermissionNotFoundError(p)
	}

	return a.raise(&RolePermissionRemovedEvent{
		EventMetadata: shared.NewEventMetadata(EventTypeRolePermissionRemoved, a.id.String(), a.now()),
		RoleID:        a.id.String(),
		Permission:    p,
	})
}

func (a *Aggregate) ActivateRole() error {
	return a.transition(StatusActive, "activated")
}

func (a *Aggregate) DeactivateRole() error {
	return a.transition(StatusDisabled, "deactivated")
}

func (a *Aggregate) SuspendRole() error {
	return a.transition(StatusSuspended, "suspended")
}

// ExpireRole moves an ACTIVE role whose expiry has passed at now to EXPIRED.
func (a *Aggregate) ExpireRole(now time.Time) error {
	e, err := a.requireEntity()
	if err != nil {
		return err
	}
	if !e.status.CanTransitionTo(StatusExpired) {
		return shared.NewInvalidStateTransitionError(entityName, e.status.String(), StatusExpired.String())
	}
	if !e.IsExpired(now) {
		return shared.NewInvalidStateError(entityName, "role "+a.id.String()+" has not reached its expiry")
	}
	return a.transition(StatusExpired, "expired")
}

// DeleteRole soft deletes the role. System roles, non-deletable roles and
// already deleted roles are refused.
func (a *Aggregate) DeleteRole() error {
	e, err := a.requireEntity()
	if err != nil {
		return err
	}
	from := e.status.String()
	switch {
	case e.status == StatusDeleted:
		return shared.NewInvalidStateTransitionError(entityName, from, StatusDeleted.String())
	case e.settings.IsSystemRole():
		return shared.NewDomainError(shared.ErrStateConflict, shared.ErrInvalidStateTransition, entityName, "status",
			"system role "+a.id.String()+" can never be deleted")
	case !e.settings.CanBeDeleted():
		return shared.NewDomainError(shared.ErrStateConflict, shared.ErrInvalidStateTransition, entityName, "status",
			"role "+a.id.String()+" is not deletable")
	case !e.status.CanTransitionTo(StatusDeleted):
		return shared.NewInvalidStateTransitionError(entityName, from, StatusDeleted.String())
	}

	now := a.now()
	return a.raise(&RoleDeletedEvent{
		EventMetadata:  shared.NewEventMetadata(EventTypeRoleDeleted, a.id.String(), now),
		RoleID:         a.id.String(),
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

	return a.raise(&RoleStatusChangedEvent{
		EventMetadata:  shared.NewEventMetadata(EventTypeRoleStatusChanged, a.id.String(), a.now()),
		RoleID:         a.id.String(),
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

// apply is the single state transition function. Each case validates the
// event against the current state before mutating anything.
func (a *Aggregate) apply(event Event) error {
	if a.entity != nil && event.GetAggregateID() != a.id.String() {
		return fmt.Errorf("role %s: event %s belongs to aggregate %s",
			a.id, event.EventName(), event.GetAggregateID())
	}

	at := event.OccurredOn()
	switch e := event.(type) {
	case *RoleCreatedEvent:
		if a.entity != nil {
			return shared.NewInvalidStateError(entityName, "role "+a.id.String()+" already exists")
		}
		entity, err := entityFromCreated(e)
		if err != nil {
			return err
		}
		a.entity = entity
		a.id = entity.id
		return nil

	case *RoleUpdatedEvent:
		entity, err := a.requireEntity()
		if err != nil {
			return err
		}
		name, err := NewName(e.Name)
		if err != nil {
			return err
		}
		description, err := NewDescription(e.Description)
		if err != nil {
			return err
		}
		settings, err := RestoreSettings(e.Settings)
		if err != nil {
			return err
		}
		entity.update(name, description, settings, at)
		return nil

	case *RoleStatusChangedEvent:
		entity, err := a.requireEntity()
		if err != nil {
			return err
		}
		if entity.status != e.PreviousStatus {
			return fmt.Errorf("role %s: status changed event expects %s, state is %s",
				a.id, e.PreviousStatus, entity.status)
		}
		return entity.changeStatus(e.NewStatus, at)

	case *RolePermissionAddedEvent:
		entity, err := a.requireEntity()
		if err != nil {
			return err
		}
		return entity.addPermission(e.Permission, at)

	case *RolePermissionRemovedEvent:
		entity, err := a.requireEntity()
		if err != nil {
			return err
		}
		return entity.removePermission(e.Permission, at)

	case *RoleDeletedEvent:
		entity, err := a.requireEntity()
		if err != nil {
			return err
		}
		return entity.markDeleted(e.DeletedAt)

	default:
		return fmt.Errorf("role: unsupported event type %T", event)
	}
}

func entityFromCreated(e *RoleCreatedEvent) (*Entity, error) {
	id, err := NewRoleID(e.RoleID)
	if err != nil {
		return nil, err
	}
	name, err := NewName(e.Name)
	if err != nil {
		return nil, err
	}
	description, err := NewDescription(e.Description)
	if err != nil {
		return nil, err
	}
	settings, err := RestoreSettings(e.Settings)
	if err != nil {
		return nil, err
	}
	scope, err := parseScope(e.TenantID, e.OrganizationID, e.DepartmentID)
	if err != nil {
		return nil, err
	}
	return newEntity(entityParams{
		id:             id,
		name:           name,
		description:    description,
		roleType:       e.RoleType,
		status:         e.Status,
		settings:       settings,
		permissions:    e.Permissions,
		tenantID:       scope.tenantID,
		organizationID: scope.organizationID,
		departmentID:   scope.departmentID,
		createdBy:      e.CreatedBy,
		createdAt:      e.CreatedAt,
		updatedAt:      e.CreatedAt,
	})
}

type scopeIDs struct {
	tenantID       shared.TenantID
	organizationID shared.OrganizationID
	departmentID   shared.DepartmentID
}

func parseScope(tenant, org, dept string) (scopeIDs, error) {
	var s scopeIDs
	var err error
	if s.tenantID, err = shared.NewTenantID(tenant); err != nil {
		return s, err
	}
	if org != "" {
		if s.organizationID, err = shared.NewOrganizationID(org); err != nil {
			return s, err
		}
	}
	if dept != "" {
		if s.departmentID, err = shared.NewDepartmentID(dept); err != nil {
			return s, err
		}
	}
	return s, nil
}

func (a *Aggregate) requireEntity() (*Entity, error) {
	if a.entity == nil {
		return nil, NewRoleNotFoundError(a.id.String())
	}
	return a.entity, nil
}

func (a *Aggregate) now() time.Time {
	if a.clock == nil {
		return time.Now()
	}
	return a.clock()
}

// ============================================================================
// Rehydration
// ============================================================================

// FromHistory rebuilds an aggregate by replaying its full stream in order.
func FromHistory(events []Event) (*Aggregate, error) {
	if len(events) == 0 {
		return nil, NewRoleNotFoundError("")
	}
	a := NewAggregate()
	for i, event := range events {
		if err := a.apply(event); err != nil {
			return nil, fmt.Errorf("replay role event %d (%s): %w", i+1, event.EventName(), err)
		}
	}
	a.version = len(events)
	return a, nil
}

// ============================================================================
// Aggregate root contract and read accessors
// ============================================================================

func (a *Aggregate) ID() string            { return a.id.String() }
func (a *Aggregate) RoleID() RoleID        { return a.id }
func (a *Aggregate) AggregateType() string { return AggregateType }

// Version is the number of events persisted for this aggregate.
func (a *Aggregate) Version() int { return a.version }

// Exists reports whether the aggregate holds a role.
func (a *Aggregate) Exists() bool { return a.entity != nil }

func (a *Aggregate) UncommittedEvents() []shared.DomainEvent {
	events := make([]shared.DomainEvent, len(a.changes))
	for i, e := range a.changes {
		events[i] = e
	}
	return events
}

// Changes returns the staged events with their concrete role types.
func (a *Aggregate) Changes() []Event {
	out := make([]Event, len(a.changes))
	copy(out, a.changes)
	return out
}

func (a *Aggregate) MarkCommitted() {
	a.version += len(a.changes)
	a.changes = nil
}

// The accessors below must only be called when Exists is true.

func (a *Aggregate) Name() Name                            { return a.entity.Name() }
func (a *Aggregate) Description() Description              { return a.entity.Description() }
func (a *Aggregate) Type() Type                            { return a.entity.Type() }
func (a *Aggregate) Status() Status                        { return a.entity.Status() }
func (a *Aggregate) Settings() Settings                    { return a.entity.Settings() }
func (a *Aggregate) TenantID() shared.TenantID             { return a.entity.TenantID() }
func (a *Aggregate) OrganizationID() shared.OrganizationID { return a.entity.OrganizationID() }
func (a *Aggregate) DepartmentID() shared.DepartmentID     { return a.entity.DepartmentID() }
func (a *Aggregate) CreatedBy() string                     { return a.entity.CreatedBy() }
func (a *Aggregate) CreatedAt() time.Time                  { return a.entity.CreatedAt() }
func (a *Aggregate) UpdatedAt() time.Time                  { return a.entity.UpdatedAt() }
func (a *Aggregate) DeletedAt() (time.Time, bool)          { return a.entity.DeletedAt() }
func (a *Aggregate) Permissions() []Permission             { return a.entity.Permissions() }
func (a *Aggregate) HasPermission(p Permission) bool       { return a.entity.HasPermission(p) }
func (a *Aggregate) CanBeModified() bool                   { return a.entity.CanBeModified() }
func (a *Aggregate) CanBeDeleted() bool                    { return a.entity.CanBeDeleted() }
func (a *Aggregate) IsUsable() bool                        { return a.entity.IsUsable() }
func (a *Aggregate) CanBeAssigned() bool                   { return a.entity.CanBeAssigned() }

func (a *Aggregate) IsUsableAt(now time.Time) bool {
	return a.entity.IsUsableAt(now)
}

func (a *Aggregate) CanBeAssignedAt(now time.Time) bool {
	return a.entity.CanBeAssignedAt(now)
}

var _ shared.EventSourcedAggregate = (*Aggregate)(nil)
