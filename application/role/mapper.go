package role

import (
	"iam/domain/role"
	"iam/domain/shared"
)

func toPermissions(reqs []PermissionRequest) ([]role.Permission, error) {
	perms := make([]role.Permission, 0, len(reqs))
	for _, r := range reqs {
		p, err := toPermission(r)
		if err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, nil
}

func toPermission(r PermissionRequest) (role.Permission, error) {
	if len(r.Conditions) == 0 {
		return role.NewPermission(r.Resource, r.Action)
	}
	return role.NewPermissionWithConditions(r.Resource, r.Action, r.Conditions)
}

func toPermissionResponses(perms []role.Permission) []PermissionResponse {
	out := make([]PermissionResponse, len(perms))
	for i, p := range perms {
		out[i] = PermissionResponse{
			Resource:   p.Resource(),
			Action:     p.Action(),
			Conditions: p.Conditions(),
			Key:        p.Key(),
		}
	}
	return out
}

func toRoleResponse(a *role.Aggregate) *RoleResponse {
	settings := a.Settings().Data()
	return &RoleResponse{
		ID:             a.ID(),
		TenantID:       a.TenantID().String(),
		OrganizationID: a.OrganizationID().String(),
		DepartmentID:   a.DepartmentID().String(),
		Name:           a.Name().String(),
		Description:    a.Description().String(),
		Type:           a.Type().String(),
		Status:         a.Status().String(),
		Settings:       &settings,
		Permissions:    toPermissionResponses(a.Permissions()),
		CreatedBy:      a.CreatedBy(),
		CreatedAt:      a.CreatedAt(),
		UpdatedAt:      a.UpdatedAt(),
		Version:        a.Version(),
	}
}

func toRoleSummary(v *role.View) RoleSummary {
	return RoleSummary{
		ID:            v.ID,
		Name:          v.Name,
		Type:          v.Type.String(),
		Status:        v.Status.String(),
		Permissions:   append([]string(nil), v.Permissions...),
		IsSystemRole:  v.IsSystemRole,
		IsDefaultRole: v.IsDefaultRole,
		CreatedAt:     v.CreatedAt,
		Version:       v.Version,
	}
}

func toConflictResponses(conflicts []role.PermissionConflict) []ConflictResponse {
	out := make([]ConflictResponse, len(conflicts))
	for i, c := range conflicts {
		perms := make([]string, len(c.Permissions))
		for j, p := range c.Permissions {
			perms[j] = p.String()
		}
		out[i] = ConflictResponse{Type: c.Type, Severity: c.Severity, Key: c.Key, Permissions: perms}
	}
	return out
}

func parseOrganizationID(raw string) (shared.OrganizationID, error) {
	if raw == "" {
		return shared.OrganizationID{}, nil
	}
	return shared.NewOrganizationID(raw)
}

func parseDepartmentID(raw string) (shared.DepartmentID, error) {
	if raw == "" {
		return shared.DepartmentID{}, nil
	}
	return shared.NewDepartmentID(raw)
}
