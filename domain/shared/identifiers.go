package shared

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// uuidPattern accepts RFC 4122 versions 1 through 5 in canonical form.
var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

// ParseUUID normalizes raw (trim, lower-case) and validates it against the
// UUID v1-5 pattern. entity and field only label the returned error.
func ParseUUID(entity, field, raw string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return "", NewValidationError(entity, field, field+" cannot be empty")
	}
	if !uuidPattern.MatchString(value) {
		return "", NewValidationError(entity, field, field+" must be a UUID (v1-v5): "+raw)
	}
	return value, nil
}

// IsUUID reports whether raw is a valid UUID v1-5 string.
func IsUUID(raw string) bool {
	return uuidPattern.MatchString(strings.ToLower(strings.TrimSpace(raw)))
}

// NewUUID returns a random (v4) UUID string.
func NewUUID() string {
	return uuid.New().String()
}

// TenantID identifies a tenant. The zero value is "no tenant".
type TenantID struct{ value string }

func NewTenantID(raw string) (TenantID, error) {
	v, err := ParseUUID("tenant", "tenant_id", raw)
	if err != nil {
		return TenantID{}, err
	}
	return TenantID{value: v}, nil
}

func GenerateTenantID() TenantID           { return TenantID{value: NewUUID()} }
func (id TenantID) String() string         { return id.value }
func (id TenantID) IsZero() bool           { return id.value == "" }
func (id TenantID) Equals(o TenantID) bool { return id.value == o.value }

// OrganizationID identifies an organization inside a tenant.
type OrganizationID struct{ value string }

func NewOrganizationID(raw string) (OrganizationID, error) {
	v, err := ParseUUID("organization", "organization_id", raw)
	if err != nil {
		return OrganizationID{}, err
	}
	return OrganizationID{value: v}, nil
}

func GenerateOrganizationID() OrganizationID           { return OrganizationID{value: NewUUID()} }
func (id OrganizationID) String() string               { return id.value }
func (id OrganizationID) IsZero() bool                 { return id.value == "" }
func (id OrganizationID) Equals(o OrganizationID) bool { return id.value == o.value }

// DepartmentID identifies a department inside an organization.
type DepartmentID struct{ value string }

func NewDepartmentID(raw string) (DepartmentID, error) {
	v, err := ParseUUID("department", "department_id", raw)
	if err != nil {
		return DepartmentID{}, err
	}
	return DepartmentID{value: v}, nil
}

func GenerateDepartmentID() DepartmentID           { return DepartmentID{value: NewUUID()} }
func (id DepartmentID) String() string             { return id.value }
func (id DepartmentID) IsZero() bool               { return id.value == "" }
func (id DepartmentID) Equals(o DepartmentID) bool { return id.value == o.value }

// PlatformID identifies the platform a user was provisioned on.
type PlatformID struct{ value string }

func NewPlatformID(raw string) (PlatformID, error) {
	v, err := ParseUUID("platform", "platform_id", raw)
	if err != nil {
		return PlatformID{}, err
	}
	return PlatformID{value: v}, nil
}

func GeneratePlatformID() PlatformID           { return PlatformID{value: NewUUID()} }
func (id PlatformID) String() string           { return id.value }
func (id PlatformID) IsZero() bool             { return id.value == "" }
func (id PlatformID) Equals(o PlatformID) bool { return id.value == o.value }
