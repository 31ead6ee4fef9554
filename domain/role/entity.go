package role

import (
	"time"

	"iam/domain/shared"
)

// Entity is the state owned by a role Aggregate.
// It is mutated only by the aggregate's event handlers; each mutator checks
// its preconditions before touching any field.
type Entity struct {
	id             RoleID
	name           Name
	description    Description
	roleType       Type
	status         Status
	settings       Settings
	permissions    []Permission
	tenantID       shared.TenantID
	organizationID shared.OrganizationID
	departmentID   shared.DepartmentID
	createdBy      string
	createdAt      time.Time
	updatedAt      time.Time
	deletedAt      *time.Time
}

type entityParams struct {
	id             RoleID
	name           Name
	description    Description
	roleType       Type
	status         Status
	settings       Settings
	permissions    []Permission
	tenantID       shared.TenantID
	organizationID shared.OrganizationID
	departmentID   shared.DepartmentID
	createdBy      string
	createdAt      time.Time
	updatedAt      time.Time
	deletedAt      *time.Time
}

func newEntity(p entityParams) (*Entity, error) {
	if p.id.IsZero() {
		return nil, newValidationError(shared.ErrInvalidInput, "id", "role id is required")
	}
	if p.tenantID.IsZero() {
		return nil, newValidationError(shared.ErrInvalidInput, "tenant_id", "tenant id is required")
	}
	if p.createdBy == "" {
		return nil, newValidationError(shared.ErrInvalidInput, "created_by", "creator is required")
	}
	if !p.status.Valid() {
		return nil, newValidationError(ErrInvalidStatus, "status", "unknown role status: "+p.status.String())
	}
	if err := validateScope(p.roleType, p.organizationID, p.departmentID); err != nil {
		return nil, err
	}
	if err := ensureDistinct(p.permissions); err != nil {
		return nil, err
	}

	e := &Entity{
		id:             p.id,
		name:           p.name,
		description:    p.description,
		roleType:       p.roleType,
		status:         p.status,
		settings:       p.settings,
		permissions:    copyPermissions(p.permissions),
		tenantID:       p.tenantID,
		organizationID: p.organizationID,
		departmentID:   p.departmentID,
		createdBy:      p.createdBy,
		createdAt:      p.createdAt,
		updatedAt:      p.updatedAt,
	}
	if p.deletedAt != nil {
		v := *p.deletedAt
		e.deletedAt = &v
	}
	return e, nil
}

func validateScope(roleType Type, orgID shared.OrganizationID, deptID shared.DepartmentID) error {
	if !roleType.Valid() {
		return NewInvalidRoleTypeError(roleType, "unknown role type")
	}
	if roleType == TypeOrganization && orgID.IsZero() {
		return NewInvalidRoleTypeError(roleType, "organization id is required")
	}
	if roleType == TypeDepartment && deptID.IsZero() {
		return NewInvalidRoleTypeError(roleType, "department id is required")
	}
	return nil
}

func ensureDistinct(perms []Permission) error {
	seen := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		if p.IsZero() {
			return newValidationError(ErrInvalidPermission, "permissions", "permission cannot be empty")
		}
		if _, dup := seen[p.String()]; dup {
			return NewDuplicatePermissionError(p)
		}
		seen[p.String()] = struct{}{}
	}
	return nil
}

// ============================================================================
// Getters
// ============================================================================

func (e *Entity) ID() RoleID                            { return e.id }
func (e *Entity) Name() Name                            { return e.name }
func (e *Entity) Description() Description              { return e.description }
func (e *Entity) Type() Type                            { return e.roleType }
func (e *Entity) Status() Status                        { return e.status }
func (e *Entity) Settings() Settings                    { return e.settings }
func (e *Entity) TenantID() shared.TenantID             { return e.tenantID }
func (e *Entity) OrganizationID() shared.OrganizationID { return e.organizationID }
func (e *Entity) DepartmentID() shared.DepartmentID     { return e.departmentID }
func (e *Entity) CreatedBy() string                     { return e.createdBy }
func (e *Entity) CreatedAt() time.Time                  { return e.createdAt }
func (e *Entity) UpdatedAt() time.Time                  { return e.updatedAt }

func (e *Entity) DeletedAt() (time.Time, bool) {
	if e.deletedAt == nil {
		return time.Time{}, false
	}
	return *e.deletedAt, true
}

// Permissions returns a copy; callers cannot reach the entity's slice.
func (e *Entity) Permissions() []Permission { return copyPermissions(e.permissions) }

// ============================================================================
// Guards
// ============================================================================

func (e *Entity) CanBeModified() bool { return e.status != StatusDeleted && e.settings.CanBeModified() }
func (e *Entity) CanBeDeleted() bool  { return e.status != StatusDeleted && e.settings.CanBeDeleted() }
func (e *Entity) IsUsable() bool      { return e.status.IsUsable() }
func (e *Entity) CanBeAssigned() bool { return e.status == StatusActive }
func (e *Entity) IsDeleted() bool     { return e.status == StatusDeleted }

func (e *Entity) IsExpired(now time.Time) bool { return e.settings.IsExpired(now) }

// IsUsableAt treats a role whose expiry has been reached as unusable even
// before the EXPIRED transition has been recorded.
func (e *Entity) IsUsableAt(now time.Time) bool {
	return e.IsUsable() && !e.IsExpired(now)
}

func (e *Entity) CanBeAssignedAt(now time.Time) bool {
	return e.CanBeAssigned() && !e.IsExpired(now)
}

func (e *Entity) HasPermission(p Permission) bool {
	return e.indexOf(p) >= 0
}

// HasPermissionFor reports whether any granted permission matches resource and action.
func (e *Entity) HasPermissionFor(resource, action string) bool {
	for _, p := range e.permissions {
		if p.Matches(resource, action) {
			return true
		}
	}
	return false
}

func (e *Entity) indexOf(p Permission) int {
	for i, existing := range e.permissions {
		if existing.Equals(p) {
			return i
		}
	}
	return -1
}

// ============================================================================
// Mutators (called from event handlers only)
// ============================================================================

func (e *Entity) update(name Name, description Description, settings Settings, at time.Time) {
	e.name = name
	e.description = description
	e.settings = settings
	e.updatedAt = at
}

func (e *Entity) addPermission(p Permission, at time.Time) error {
	if e.HasPermission(p) {
		return NewDuplicatePermissionError(p)
	}
	e.permissions = append(e.permissions, p)
	e.updatedAt = at
	return nil
}

func (e *Entity) removePermission(p Permission, at time.Time) error {
	i := e.indexOf(p)
	if i < 0 {
		return NewPermissionNotFoundError(p)
	}
	perms := make([]Permission, 0, len(e.permissions)-1)
	perms = append(perms, e.permissions[:i]...)
	perms = append(perms, e.permissions[i+1:]...)
	e.permissions = perms
	e.updatedAt = at
	return nil
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
