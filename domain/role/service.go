/*
Domain Service

角色领域服务处理不属于单个聚合的规则：
1. 权限集合的冲突扫描与有效权限合并（纯计算，无状态）
2. 角色类型层级的管理权限判断
3. 租户内角色名唯一性（通过读模型查询）

领域服务只读，不写。
*/
package role

import (
	"context"

	"iam/domain/shared"
)

const (
	ConflictTypeDuplicate     = "duplicate"
	ConflictTypeContradictory = "contradictory"
	ConflictTypeRedundant     = "redundant"

	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// PermissionConflict groups permissions that share one resource:action key.
type PermissionConflict struct {
	Type        string       `json:"type"`
	Severity    string       `json:"severity"`
	Key         string       `json:"key"`
	Permissions []Permission `json:"permissions"`
}

// DomainService Role domain service
type DomainService struct {
	views ViewRepository
}

// NewDomainService views may be nil when only the pure computations are needed.
func NewDomainService(views ViewRepository) *DomainService {
	return &DomainService{views: views}
}

// DetectPermissionConflicts groups permissions by Key in a single pass. Every
// key seen more than once is reported as a duplicate, in first-seen order.
func (s *DomainService) DetectPermissionConflicts(perms []Permission) []PermissionConflict {
	return DetectPermissionConflicts(perms)
}

func DetectPermissionConflicts(perms []Permission) []PermissionConflict {
	groups := make(map[string][]Permission, len(perms))
	order := make([]string, 0, len(perms))
	for _, p := range perms {
		key := p.Key()
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], p)
	}

	conflicts := make([]PermissionConflict, 0)
	for _, key := range order {
		if group := groups[key]; len(group) > 1 {
			conflicts = append(conflicts, PermissionConflict{
				Type:        ConflictTypeDuplicate,
				Severity:    SeverityMedium,
				Key:         key,
				Permissions: group,
			})
		}
	}
	return conflicts
}

// CalculateEffectivePermissions merges inherited then direct permissions keyed
// by their canonical string. A later entry replaces an earlier one with the
// same key but keeps its position.
func (s *DomainService) CalculateEffectivePermissions(direct, inherited []Permission) []Permission {
	return CalculateEffectivePermissions(direct, inherited)
}

func CalculateEffectivePermissions(direct, inherited []Permission) []Permission {
	index := make(map[string]int, len(direct)+len(inherited))
	result := make([]Permission, 0, len(direct)+len(inherited))
	put := func(p Permission) {
		key := p.String()
		if i, ok := index[key]; ok {
			result[i] = p
			return
		}
		index[key] = len(result)
		result = append(result, p)
	}
	for _, p := range inherited {
		put(p)
	}
	for _, p := range direct {
		put(p)
	}
	return result
}

// CanManageRole applies the role type hierarchy.
func (s *DomainService) CanManageRole(manager, target Type) bool {
	return CanManage(manager, target)
}

// EnsureCanManage returns a Forbidden error when manager may not manage target.
func (s *DomainService) EnsureCanManage(manager, target Type) error {
	if CanManage(manager, target) {
		return nil
	}
	return shared.NewDomainError(shared.ErrForbidden, shared.ErrInsufficientAuthority, entityName, "type",
		"role type "+manager.String()+" cannot manage role type "+target.String())
}

// EnsureNameAvailable fails when another non-deleted role of the tenant
// already uses name, compared case-insensitively. exclude skips the role
// being renamed.
func (s *DomainService) EnsureNameAvailable(ctx context.Context, tenantID shared.TenantID, name Name, exclude RoleID) error {
	if s.views == nil {
		return nil
	}
	spec := shared.And[*View](ByTenant(tenantID), shared.And[*View](ByName(name), shared.Not[*View](ByStatus(StatusDeleted))))
	matches, err := s.views.FindBySpecification(ctx, spec)
	if err != nil {
		return err
	}
	for _, v := range matches {
		if exclude.IsZero() || v.ID != exclude.String() {
			return NewDuplicateRoleNameError(name.String())
		}
	}
	return nil
}
