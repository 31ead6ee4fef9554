/*
Package role 应用层 - 角色用例编排

职责：
1. 解析外部输入为值对象
2. 按租户加载聚合，校验调用者对目标角色类型的管理权限
3. 调用聚合命令并保存
4. 乐观并发冲突时整体重试（重新加载、重新执行命令）

应用服务不直接发布事件：仓储在提交后把事件交给事件总线，投影器据此更新读模型。
*/
package role

import (
	"context"
	"strings"
	"time"

	"iam/domain/role"
	"iam/domain/shared"
	"iam/infrastructure/persistence"
	"iam/infrastructure/persistence/retry"
	"iam/pkg/logger"

	"go.uber.org/zap"
)

// ApplicationService Role application service
type ApplicationService struct {
	repo          role.Repository
	views         role.ViewRepository
	domainService *role.DomainService
	retry         retry.Config
	clock         func() time.Time
}

func NewApplicationService(repo role.Repository, views role.ViewRepository, retryCfg retry.Config) *ApplicationService {
	return &ApplicationService{
		repo:          repo,
		views:         views,
		domainService: role.NewDomainService(views),
		retry:         retryCfg,
		clock:         time.Now,
	}
}

// WithClock replaces the time source used for new events and expiry checks.
func (s *ApplicationService) WithClock(clock func() time.Time) *ApplicationService {
	if clock != nil {
		s.clock = clock
	}
	return s
}

// ============================================================================
// Commands
// ============================================================================

func (s *ApplicationService) CreateRole(ctx context.Context, actor Actor, req CreateRoleRequest) (*RoleResponse, error) {
	tenantID, err := shared.NewTenantID(req.TenantID)
	if err != nil {
		return nil, err
	}
	ctx = persistence.ContextWithTenantID(ctx, tenantID.String())

	name, err := role.NewName(req.Name)
	if err != nil {
		return nil, err
	}
	description, err := role.NewDescription(req.Description)
	if err != nil {
		return nil, err
	}
	roleType, err := role.ParseType(req.Type)
	if err != nil {
		return nil, err
	}
	orgID, err := parseOrganizationID(req.OrganizationID)
	if err != nil {
		return nil, err
	}
	deptID, err := parseDepartmentID(req.DepartmentID)
	if err != nil {
		return nil, err
	}
	settings := role.DefaultSettings()
	if req.Settings != nil {
		if settings, err = role.NewSettings(*req.Settings, s.clock()); err != nil {
			return nil, err
		}
	}
	perms, err := toPermissions(req.Permissions)
	if err != nil {
		return nil, err
	}

	if err := s.domainService.EnsureCanManage(actor.RoleType, roleType); err != nil {
		return nil, err
	}
	if err := s.domainService.EnsureNameAvailable(ctx, tenantID, name, role.RoleID{}); err != nil {
		return nil, err
	}

	agg := role.NewAggregate().WithClock(s.clock)
	err = agg.CreateRole(role.CreateRoleParams{
		ID:             role.GenerateRoleID(),
		Name:           name,
		Description:    description,
		Type:           roleType,
		TenantID:       tenantID,
		Settings:       settings,
		Permissions:    perms,
		OrganizationID: orgID,
		DepartmentID:   deptID,
		CreatedBy:      actor.UserID,
	})
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, agg); err != nil {
		return nil, err
	}

	logger.Ctx(ctx).Info("Role created",
		zap.String("role_id", agg.ID()),
		zap.String("role_type", roleType.String()),
		zap.String("actor", actor.UserID),
	)
	return toRoleResponse(agg), nil
}

func (s *ApplicationService) UpdateRole(ctx context.Context, actor Actor, tenantID, roleID string, req UpdateRoleRequest) (*RoleResponse, error) {
	name, err := role.NewName(req.Name)
	if err != nil {
		return nil, err
	}
	description, err := role.NewDescription(req.Description)
	if err != nil {
		return nil, err
	}
	var settings *role.Settings
	if req.Settings != nil {
		st, err := role.NewSettings(*req.Settings, s.clock())
		if err != nil {
			return nil, err
		}
		settings = &st
	}

	return s.execute(ctx, actor, tenantID, roleID, "update", func(ctx context.Context, agg *role.Aggregate) error {
		if !agg.Name().EqualFold(name) {
			if err := s.domainService.EnsureNameAvailable(ctx, agg.TenantID(), name, agg.RoleID()); err != nil {
				return err
			}
		}
		next := agg.Settings()
		if settings != nil {
			next = *settings
		}
		return agg.UpdateRole(name, description, next)
	})
}

func (s *ApplicationService) AddPermission(ctx context.Context, actor Actor, tenantID, roleID string, req PermissionRequest) (*RoleResponse, error) {
	p, err := toPermission(req)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, actor, tenantID, roleID, "add_permission", func(ctx context.Context, agg *role.Aggregate) error {
		return agg.AddPermission(p)
	})
}

func (s *ApplicationService) RemovePermission(ctx context.Context, actor Actor, tenantID, roleID string, req PermissionRequest) (*RoleResponse, error) {
	p, err := toPermission(req)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, actor, tenantID, roleID, "remove_permission", func(ctx context.Context, agg *role.Aggregate) error {
		return agg.RemovePermission(p)
	})
}

func (s *ApplicationService) ActivateRole(ctx context.Context, actor Actor, tenantID, roleID string) (*RoleResponse, error) {
	return s.execute(ctx, actor, tenantID, roleID, "activate", func(ctx context.Context, agg *role.Aggregate) error {
		return agg.ActivateRole()
	})
}

func (s *ApplicationService) DeactivateRole(ctx context.Context, actor Actor, tenantID, roleID string) (*RoleResponse, error) {
	return s.execute(ctx, actor, tenantID, roleID, "deactivate", func(ctx context.Context, agg *role.Aggregate) error {
		return agg.DeactivateRole()
	})
}

func (s *ApplicationService) SuspendRole(ctx context.Context, actor Actor, tenantID, roleID string) (*RoleResponse, error) {
	return s.execute(ctx, actor, tenantID, roleID, "suspend", func(ctx context.Context, agg *role.Aggregate) error {
		return agg.SuspendRole()
	})
}

func (s *ApplicationService) DeleteRole(ctx context.Context, actor Actor, tenantID, roleID string) (*RoleResponse, error) {
	return s.execute(ctx, actor, tenantID, roleID, "delete", func(ctx context.Context, agg *role.Aggregate) error {
		return agg.DeleteRole()
	})
}

// ExpireRole moves an ACTIVE role past its expiry to EXPIRED.
func (s *ApplicationService) ExpireRole(ctx context.Context, actor Actor, tenantID, roleID string) (*RoleResponse, error) {
	return s.execute(ctx, actor, tenantID, roleID, "expire", func(ctx context.Context, agg *role.Aggregate) error {
		return agg.ExpireRole(s.clock())
	})
}

// execute runs load, authority check, command and save, and reruns the
// whole cycle when the save loses an optimistic concurrency race.
func (s *ApplicationService) execute(
	ctx context.Context,
	actor Actor,
	rawTenantID, rawRoleID, operation string,
	command func(ctx context.Context, agg *role.Aggregate) error,
) (*RoleResponse, error) {
	tenantID, err := shared.NewTenantID(rawTenantID)
	if err != nil {
		return nil, err
	}
	roleID, err := role.NewRoleID(rawRoleID)
	if err != nil {
		return nil, err
	}
	ctx = persistence.ContextWithTenantID(ctx, tenantID.String())

	var saved *role.Aggregate
	attempts := 0
	err = retry.ExecuteWithRetry(ctx, s.retry, func(ctx context.Context) error {
		attempts++
		agg, err := s.repo.Load(ctx, tenantID, roleID)
		if err != nil {
			return err
		}
		agg.WithClock(s.clock)
		if err := s.domainService.EnsureCanManage(actor.RoleType, agg.Type()); err != nil {
			return err
		}
		if err := command(ctx, agg); err != nil {
			return err
		}
		if err := s.repo.Save(ctx, agg); err != nil {
			return err
		}
		saved = agg
		return nil
	})
	if err != nil {
		logger.Ctx(ctx).Warn("Role command failed",
			zap.String("operation", operation),
			zap.String("role_id", roleID.String()),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return nil, err
	}

	logger.Ctx(ctx).Info("Role command applied",
		zap.String("operation", operation),
		zap.String("role_id", roleID.String()),
		zap.Int("version", saved.Version()),
	)
	return toRoleResponse(saved), nil
}

// ============================================================================
// Queries
// ============================================================================

func (s *ApplicationService) GetRole(ctx context.Context, tenantID, roleID string) (*RoleResponse, error) {
	agg, err := s.load(ctx, tenantID, roleID)
	if err != nil {
		return nil, err
	}
	return toRoleResponse(agg), nil
}

func (s *ApplicationService) ListRoles(ctx context.Context, rawTenantID string, q ListRolesQuery) ([]RoleSummary, error) {
	tenantID, err := shared.NewTenantID(rawTenantID)
	if err != nil {
		return nil, err
	}

	spec := role.ByTenant(tenantID)
	if q.Status != "" {
		status, err := role.ParseStatus(q.Status)
		if err != nil {
			return nil, err
		}
		spec = shared.And(spec, role.ByStatus(status))
	} else {
		spec = shared.And(spec, shared.Not(role.ByStatus(role.StatusDeleted)))
	}
	if q.Type != "" {
		t, err := role.ParseType(q.Type)
		if err != nil {
			return nil, err
		}
		spec = shared.And(spec, role.ByType(t))
	}
	if name := strings.TrimSpace(q.Name); name != "" {
		spec = shared.And(spec, shared.Specification[*role.View](role.ByNameSpecification{Name: name}))
	}

	views, err := s.views.FindBySpecification(ctx, spec)
	if err != nil {
		return nil, err
	}
	out := make([]RoleSummary, len(views))
	for i, v := range views {
		out[i] = toRoleSummary(v)
	}
	return out, nil
}

// DetectConflicts scans the combined permissions of roleIDs, in the given
// order, for entries sharing one resource:action key.
func (s *ApplicationService) DetectConflicts(ctx context.Context, tenantID string, roleIDs []string) ([]ConflictResponse, error) {
	var perms []role.Permission
	for _, id := range roleIDs {
		agg, err := s.load(ctx, tenantID, id)
		if err != nil {
			return nil, err
		}
		perms = append(perms, agg.Permissions()...)
	}
	return toConflictResponses(s.domainService.DetectPermissionConflicts(perms)), nil
}

// EffectivePermissions merges the permissions of inheritedRoleIDs with the
// direct permissions of roleID; direct entries win on an identical key.
func (s *ApplicationService) EffectivePermissions(ctx context.Context, tenantID, roleID string, inheritedRoleIDs []string) ([]PermissionResponse, error) {
	agg, err := s.load(ctx, tenantID, roleID)
	if err != nil {
		return nil, err
	}
	var inherited []role.Permission
	for _, id := range inheritedRoleIDs {
		parent, err := s.load(ctx, tenantID, id)
		if err != nil {
			return nil, err
		}
		inherited = append(inherited, parent.Permissions()...)
	}
	return toPermissionResponses(s.domainService.CalculateEffectivePermissions(agg.Permissions(), inherited)), nil
}

func (s *ApplicationService) load(ctx context.Context, rawTenantID, rawRoleID string) (*role.Aggregate, error) {
	tenantID, err := shared.NewTenantID(rawTenantID)
	if err != nil {
		return nil, err
	}
	roleID, err := role.NewRoleID(rawRoleID)
	if err != nil {
		return nil, err
	}
	return s.repo.Load(persistence.ContextWithTenantID(ctx, tenantID.String()), tenantID, roleID)
}
