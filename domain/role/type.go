package role

import "strings"

// Type is the authority tier of a role.
type Type string

const (
	TypeSystem       Type = "SYSTEM"
	TypePlatform     Type = "PLATFORM"
	TypeTenant       Type = "TENANT"
	TypeOrganization Type = "ORGANIZATION"
	TypeDepartment   Type = "DEPARTMENT"
	TypeUser         Type = "USER"
	TypeCustom       Type = "CUSTOM"
)

var typeLevels = map[Type]int{
	TypeSystem:       6,
	TypePlatform:     5,
	TypeTenant:       4,
	TypeOrganization: 3,
	TypeDepartment:   2,
	TypeUser:         1,
	TypeCustom:       0,
}

// AllTypes lists role types from highest to lowest authority.
var AllTypes = []Type{
	TypeSystem, TypePlatform, TypeTenant, TypeOrganization,
	TypeDepartment, TypeUser, TypeCustom,
}

func ParseType(raw string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", NewInvalidRoleTypeError(t, "unknown role type")
	}
	return t, nil
}

func (t Type) Valid() bool {
	_, ok := typeLevels[t]
	return ok
}

func (t Type) String() string { return string(t) }

// Level is the authority level; CUSTOM is 0 because its authority is policy defined.
func (t Type) Level() int { return typeLevels[t] }

// IsHierarchical is true for PLATFORM, TENANT, ORGANIZATION, DEPARTMENT and USER.
func (t Type) IsHierarchical() bool {
	switch t {
	case TypePlatform, TypeTenant, TypeOrganization, TypeDepartment, TypeUser:
		return true
	default:
		return false
	}
}

// CanManage reports whether a role of type manager may manage a role of type target.
// SYSTEM manages everything, CUSTOM included. Within the hierarchical tiers a
// manager handles its own tier and below. Anything else is refused.
func CanManage(manager, target Type) bool {
	if manager == TypeSystem {
		return true
	}
	if manager.IsHierarchical() && target.IsHierarchical() {
		return manager.Level() >= target.Level()
	}
	return false
}
