package role

import (
	"time"

	"iam/domain/role"
)

// Actor is the caller of a command. RoleType is the highest role type the
// caller holds in the tenant and drives the management hierarchy.
type Actor struct {
	UserID   string
	RoleType role.Type
}

type PermissionRequest struct {
	Resource   string         `json:"resource" binding:"required"`
	Action     string         `json:"action" binding:"required"`
	Conditions map[string]any `json:"conditions,omitempty"`
}

// CreateRoleRequest Create role request DTO
type CreateRoleRequest struct {
	TenantID       string              `json:"tenant_id" binding:"required"`
	OrganizationID string              `json:"organization_id,omitempty"`
	DepartmentID   string              `json:"department_id,omitempty"`
	Name           string              `json:"name" binding:"required"`
	Description    string              `json:"description,omitempty"`
	Type           string              `json:"type" binding:"required"`
	Settings       *role.SettingsData  `json:"settings,omitempty"`
	Permissions    []PermissionRequest `json:"permissions,omitempty"`
}

// UpdateRoleRequest keeps the current settings when Settings is nil.
type UpdateRoleRequest struct {
	Name        string             `json:"name" binding:"required"`
	Description string             `json:"description"`
	Settings    *role.SettingsData `json:"settings,omitempty"`
}

// ListRolesQuery filters a tenant's roles. Deleted roles are hidden unless
// Status asks for them.
type ListRolesQuery struct {
	Status string `form:"status"`
	Type   string `form:"type"`
	Name   string `form:"name"`
}

type PermissionResponse struct {
	Resource   string         `json:"resource"`
	Action     string         `json:"action"`
	Conditions map[string]any `json:"conditions,omitempty"`
	Key        string         `json:"key"`
}

// RoleResponse Role response DTO
type RoleResponse struct {
	ID             string               `json:"id"`
	TenantID       string               `json:"tenant_id"`
	OrganizationID string               `json:"organization_id,omitempty"`
	DepartmentID   string               `json:"department_id,omitempty"`
	Name           string               `json:"name"`
	Description    string               `json:"description"`
	Type           string               `json:"type"`
	Status         string               `json:"status"`
	Settings       *role.SettingsData   `json:"settings,omitempty"`
	Permissions    []PermissionResponse `json:"permissions"`
	CreatedBy      string               `json:"created_by"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
	Version        int                  `json:"version"`
}

// RoleSummary is a list entry built from the read model.
type RoleSummary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Type          string    `json:"type"`
	Status        string    `json:"status"`
	Permissions   []string  `json:"permissions"`
	IsSystemRole  bool      `json:"is_system_role"`
	IsDefaultRole bool      `json:"is_default_role"`
	CreatedAt     time.Time `json:"created_at"`
	Version       int       `json:"version"`
}

type ConflictResponse struct {
	Type        string   `json:"type"`
	Severity    string   `json:"severity"`
	Key         string   `json:"key"`
	Permissions []string `json:"permissions"`
}
