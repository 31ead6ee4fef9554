package role

import (
	"context"
	"testing"
	"time"

	"iam/domain/role"
	"iam/domain/shared"
	"iam/infrastructure/persistence/eventsourced"
	"iam/infrastructure/persistence/memory"
	"iam/infrastructure/persistence/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tenantAdmin = Actor{UserID: "admin-1", RoleType: role.TypeTenant}

type fixture struct {
	svc   *ApplicationService
	repo  role.Repository
	views *memory.RoleViewRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	bus := shared.NewEventBus()
	store := memory.NewEventStore()
	repo := eventsourced.NewRoleRepository(store, eventsourced.Options{Publisher: bus, Snapshots: store, SnapshotEvery: 5})
	views := memory.NewRoleViewRepository()
	require.NoError(t, NewProjector(repo, views).Subscribe(bus))

	cfg := retry.DefaultConfig
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = time.Millisecond
	return &fixture{svc: NewApplicationService(repo, views, cfg), repo: repo, views: views}
}

func createRole(t *testing.T, f *fixture, tenant, name string, perms ...PermissionRequest) *RoleResponse {
	t.Helper()
	resp, err := f.svc.CreateRole(context.Background(), tenantAdmin, CreateRoleRequest{
		TenantID:    tenant,
		Name:        name,
		Type:        "user",
		Permissions: perms,
	})
	require.NoError(t, err)
	return resp
}

func TestCreateRoleProjectsView(t *testing.T) {
	f := newFixture(t)
	tenant := shared.NewUUID()

	resp := createRole(t, f, tenant, "Auditors", PermissionRequest{Resource: "Report", Action: "READ"})
	assert.Equal(t, "PENDING", resp.Status)
	assert.Equal(t, "USER", resp.Type)
	assert.Equal(t, 1, resp.Version)
	require.Len(t, resp.Permissions, 1)
	assert.Equal(t, "report:read", resp.Permissions[0].Key)

	view, err := f.views.FindByID(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "Auditors", view.Name)
	assert.Equal(t, []string{"report:read"}, view.Permissions)
}

func TestCreateRoleRejectsDuplicateNameCaseInsensitively(t *testing.T) {
	f := newFixture(t)
	tenant := shared.NewUUID()
	createRole(t, f, tenant, "Auditors")

	_, err := f.svc.CreateRole(context.Background(), tenantAdmin, CreateRoleRequest{TenantID: tenant, Name: "auditors", Type: "USER"})
	assert.ErrorIs(t, err, role.ErrDuplicateRoleName)

	// another tenant may reuse the name
	createRole(t, f, shared.NewUUID(), "auditors")
}

func TestCreateRoleRequiresAuthority(t *testing.T) {
	f := newFixture(t)
	deptAdmin := Actor{UserID: "d", RoleType: role.TypeDepartment}

	_, err := f.svc.CreateRole(context.Background(), deptAdmin, CreateRoleRequest{TenantID: shared.NewUUID(), Name: "Tenant admins", Type: "TENANT"})
	assert.Equal(t, shared.KindForbidden, shared.KindOf(err))

	_, err = f.svc.CreateRole(context.Background(), tenantAdmin, CreateRoleRequest{TenantID: shared.NewUUID(), Name: "Custom", Type: "CUSTOM"})
	assert.Equal(t, shared.KindForbidden, shared.KindOf(err))

	_, err = f.svc.CreateRole(context.Background(), tenantAdmin, CreateRoleRequest{TenantID: "not-a-uuid", Name: "x", Type: "USER"})
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))
}

func TestRoleLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenant := shared.NewUUID()
	created := createRole(t, f, tenant, "Editors")

	resp, err := f.svc.ActivateRole(ctx, tenantAdmin, tenant, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", resp.Status)

	resp, err = f.svc.AddPermission(ctx, tenantAdmin, tenant, created.ID, PermissionRequest{Resource: "doc", Action: "write"})
	require.NoError(t, err)
	assert.Len(t, resp.Permissions, 1)

	_, err = f.svc.AddPermission(ctx, tenantAdmin, tenant, created.ID, PermissionRequest{Resource: "DOC", Action: "Write"})
	assert.ErrorIs(t, err, role.ErrDuplicatePermission)

	resp, err = f.svc.UpdateRole(ctx, tenantAdmin, tenant, created.ID, UpdateRoleRequest{Name: "Writers", Description: "can write"})
	require.NoError(t, err)
	assert.Equal(t, "Writers", resp.Name)
	assert.True(t, resp.Settings.CanBeDeleted)

	resp, err = f.svc.SuspendRole(ctx, tenantAdmin, tenant, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "SUSPENDED", resp.Status)

	resp, err = f.svc.RemovePermission(ctx, tenantAdmin, tenant, created.ID, PermissionRequest{Resource: "doc", Action: "write"})
	require.NoError(t, err)
	assert.Empty(t, resp.Permissions)

	resp, err = f.svc.DeleteRole(ctx, tenantAdmin, tenant, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "DELETED", resp.Status)

	_, err = f.svc.ActivateRole(ctx, tenantAdmin, tenant, created.ID)
	assert.Equal(t, shared.KindStateConflict, shared.KindOf(err))

	view, err := f.views.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, role.StatusDeleted, view.Status)
	assert.Equal(t, resp.Version, view.Version)
}

func TestRoleCommandsAreTenantScoped(t *testing.T) {
	f := newFixture(t)
	tenant := shared.NewUUID()
	created := createRole(t, f, tenant, "Scoped")

	_, err := f.svc.ActivateRole(context.Background(), tenantAdmin, shared.NewUUID(), created.ID)
	assert.Equal(t, shared.KindForbidden, shared.KindOf(err))
	assert.ErrorIs(t, err, shared.ErrCrossTenantAccess)

	_, err = f.svc.GetRole(context.Background(), tenant, shared.NewUUID())
	assert.ErrorIs(t, err, role.ErrRoleNotFound)
}

func TestExpireRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenant := shared.NewUUID()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	f.svc.WithClock(func() time.Time { return now })

	expires := now.Add(time.Hour)
	created, err := f.svc.CreateRole(ctx, tenantAdmin, CreateRoleRequest{
		TenantID: tenant,
		Name:     "Contractors",
		Type:     "USER",
		Settings: &role.SettingsData{CanBeDeleted: true, CanBeModified: true, ExpiresAt: &expires},
	})
	require.NoError(t, err)
	_, err = f.svc.ActivateRole(ctx, tenantAdmin, tenant, created.ID)
	require.NoError(t, err)

	_, err = f.svc.ExpireRole(ctx, tenantAdmin, tenant, created.ID)
	assert.Equal(t, shared.KindStateConflict, shared.KindOf(err))

	now = now.Add(2 * time.Hour)
	resp, err := f.svc.ExpireRole(ctx, tenantAdmin, tenant, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "EXPIRED", resp.Status)
}

// racingRepository lets the first saves lose against a concurrent writer.
type racingRepository struct {
	role.Repository
	conflicts int
	saves     int
}

func (r *racingRepository) Save(ctx context.Context, agg *role.Aggregate) error {
	r.saves++
	if r.conflicts > 0 {
		r.conflicts--
		return shared.NewConcurrencyError(agg.ID(), agg.Version(), agg.Version()+1)
	}
	return r.Repository.Save(ctx, agg)
}

func TestCommandRetriesOnConcurrencyConflict(t *testing.T) {
	f := newFixture(t)
	tenant := shared.NewUUID()
	created := createRole(t, f, tenant, "Retried")

	racing := &racingRepository{Repository: f.repo, conflicts: 2}
	svc := NewApplicationService(racing, f.views, f.svc.retry)

	resp, err := svc.ActivateRole(context.Background(), tenantAdmin, tenant, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", resp.Status)
	assert.Equal(t, 3, racing.saves)

	racing.conflicts = 5
	_, err = svc.SuspendRole(context.Background(), tenantAdmin, tenant, created.ID)
	assert.ErrorIs(t, err, shared.ErrConcurrency)
}

func TestListRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenant := shared.NewUUID()
	a := createRole(t, f, tenant, "Alpha")
	b := createRole(t, f, tenant, "Beta")
	createRole(t, f, shared.NewUUID(), "Gamma")

	_, err := f.svc.ActivateRole(ctx, tenantAdmin, tenant, a.ID)
	require.NoError(t, err)
	_, err = f.svc.DeleteRole(ctx, tenantAdmin, tenant, b.ID)
	require.NoError(t, err)

	all, err := f.svc.ListRoles(ctx, tenant, ListRolesQuery{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, a.ID, all[0].ID)

	deleted, err := f.svc.ListRoles(ctx, tenant, ListRolesQuery{Status: "deleted"})
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, b.ID, deleted[0].ID)

	byName, err := f.svc.ListRoles(ctx, tenant, ListRolesQuery{Name: "ALPHA", Type: "user"})
	require.NoError(t, err)
	assert.Len(t, byName, 1)

	_, err = f.svc.ListRoles(ctx, tenant, ListRolesQuery{Status: "bogus"})
	assert.Error(t, err)
}

func TestDetectConflictsAndEffectivePermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenant := shared.NewUUID()

	parent := createRole(t, f, tenant, "Readers",
		PermissionRequest{Resource: "doc", Action: "read"},
		PermissionRequest{Resource: "report", Action: "read"},
	)
	child := createRole(t, f, tenant, "Own docs",
		PermissionRequest{Resource: "doc", Action: "read", Conditions: map[string]any{"owner": "self"}},
		PermissionRequest{Resource: "doc", Action: "write"},
	)

	conflicts, err := f.svc.DetectConflicts(ctx, tenant, []string{parent.ID, child.ID})
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "doc:read", conflicts[0].Key)
	assert.Equal(t, role.ConflictTypeDuplicate, conflicts[0].Type)
	assert.Len(t, conflicts[0].Permissions, 2)

	effective, err := f.svc.EffectivePermissions(ctx, tenant, child.ID, []string{parent.ID})
	require.NoError(t, err)
	keys := make([]string, len(effective))
	for i, p := range effective {
		keys[i] = p.Key
	}
	assert.Equal(t, []string{"doc:read", "report:read", "doc:read", "doc:write"}, keys)
	assert.Equal(t, "self", effective[2].Conditions["owner"])
}
