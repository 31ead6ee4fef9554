package eventsourced

import (
	"context"
	"errors"
	"testing"

	"iam/domain/role"
	"iam/domain/shared"
	"iam/domain/user"
	"iam/infrastructure/persistence/memory"
	"iam/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newRole(t *testing.T, tenant shared.TenantID) *role.Aggregate {
	t.Helper()
	name, err := role.NewName("Support Agent")
	require.NoError(t, err)
	desc, err := role.NewDescription("Handles tickets")
	require.NoError(t, err)

	agg := role.NewAggregate()
	require.NoError(t, agg.CreateRole(role.CreateRoleParams{
		ID:          role.GenerateRoleID(),
		Name:        name,
		Description: desc,
		Type:        role.TypeTenant,
		TenantID:    tenant,
		Settings:    role.DefaultSettings(),
		Permissions: []role.Permission{role.MustPermission("ticket", "read")},
		CreatedBy:   shared.NewUUID(),
	}))
	return agg
}

func TestRoleRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memory.NewEventStore()
	repo := NewRoleRepository(store, Options{})
	tenant := shared.GenerateTenantID()

	agg := newRole(t, tenant)
	require.NoError(t, agg.AddPermission(role.MustPermission("ticket", "write")))
	require.NoError(t, repo.Save(ctx, agg))
	assert.Equal(t, 2, agg.Version())
	assert.Empty(t, agg.Changes())
	assert.Equal(t, 2, store.StreamVersion(agg.ID()))

	loaded, err := repo.Load(ctx, tenant, agg.RoleID())
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Version())
	assert.Equal(t, agg.Name(), loaded.Name())
	assert.Len(t, loaded.Permissions(), 2)

	// saving without changes is a no-op
	require.NoError(t, repo.Save(ctx, loaded))
	assert.Equal(t, 2, store.StreamVersion(agg.ID()))
}

func TestRoleLoadErrors(t *testing.T) {
	ctx := context.Background()
	repo := NewRoleRepository(memory.NewEventStore(), Options{})
	tenant := shared.GenerateTenantID()

	_, err := repo.Load(ctx, tenant, role.GenerateRoleID())
	assert.ErrorIs(t, err, role.ErrRoleNotFound)
	assert.Equal(t, shared.KindNotFound, shared.KindOf(err))

	agg := newRole(t, tenant)
	require.NoError(t, repo.Save(ctx, agg))

	_, err = repo.Load(ctx, shared.GenerateTenantID(), agg.RoleID())
	assert.Equal(t, shared.KindForbidden, shared.KindOf(err))
	assert.ErrorIs(t, err, shared.ErrCrossTenantAccess)

	// zero tenant skips the scope check
	_, err = repo.Load(ctx, shared.TenantID{}, agg.RoleID())
	assert.NoError(t, err)
}

func TestRoleConcurrentModification(t *testing.T) {
	ctx := context.Background()
	repo := NewRoleRepository(memory.NewEventStore(), Options{})
	tenant := shared.GenerateTenantID()

	agg := newRole(t, tenant)
	require.NoError(t, repo.Save(ctx, agg))

	first, err := repo.Load(ctx, tenant, agg.RoleID())
	require.NoError(t, err)
	second, err := repo.Load(ctx, tenant, agg.RoleID())
	require.NoError(t, err)

	require.NoError(t, first.AddPermission(role.MustPermission("ticket", "close")))
	require.NoError(t, second.AddPermission(role.MustPermission("ticket", "assign")))

	require.NoError(t, repo.Save(ctx, first))
	err = repo.Save(ctx, second)
	assert.True(t, errors.Is(err, shared.ErrConcurrency))
	assert.Equal(t, 1, second.Version(), "failed save must not commit")
	assert.Len(t, second.Changes(), 1)

	reloaded, err := repo.Load(ctx, tenant, agg.RoleID())
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Version())
	assert.True(t, reloaded.HasPermission(role.MustPermission("ticket", "close")))
	assert.False(t, reloaded.HasPermission(role.MustPermission("ticket", "assign")))
}

func TestRoleSnapshots(t *testing.T) {
	ctx := context.Background()
	store := memory.NewEventStore()
	repo := NewRoleRepository(store, Options{SnapshotEvery: 3})
	tenant := shared.GenerateTenantID()

	agg := newRole(t, tenant)
	require.NoError(t, repo.Save(ctx, agg))
	snap, err := store.ReadSnapshot(ctx, agg.ID())
	require.NoError(t, err)
	assert.Nil(t, snap, "no snapshot before crossing the interval")

	for _, action := range []string{"a", "b", "c"} {
		require.NoError(t, agg.AddPermission(role.MustPermission("doc", action)))
	}
	require.NoError(t, repo.Save(ctx, agg))

	snap, err = store.ReadSnapshot(ctx, agg.ID())
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 4, snap.Version)
	assert.Equal(t, role.AggregateType, snap.AggregateType)

	require.NoError(t, agg.ActivateRole())
	require.NoError(t, repo.Save(ctx, agg))

	loaded, err := repo.Load(ctx, tenant, agg.RoleID())
	require.NoError(t, err)
	assert.Equal(t, 5, loaded.Version())
	assert.Equal(t, role.StatusActive, loaded.Status())
	assert.Len(t, loaded.Permissions(), 4)
}

func TestCorruptSnapshotFallsBackToReplay(t *testing.T) {
	ctx := context.Background()
	store := memory.NewEventStore()
	repo := NewRoleRepository(store, Options{})
	tenant := shared.GenerateTenantID()

	agg := newRole(t, tenant)
	require.NoError(t, repo.Save(ctx, agg))
	require.NoError(t, store.WriteSnapshot(ctx, shared.Snapshot{AggregateID: agg.ID(), Version: 1, State: []byte("{broken")}))

	loaded, err := repo.Load(ctx, tenant, agg.RoleID())
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Version())
}

func TestPublishFailureDoesNotFailSave(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	original := logger.Get()
	logger.SetLogger(zap.New(core))
	defer logger.SetLogger(original)

	ctx := context.Background()
	bus := shared.NewEventBus()
	var seen []string
	require.NoError(t, bus.Subscribe(shared.AllEvents, shared.NewFuncHandler("recorder", func(e shared.DomainEvent) error {
		seen = append(seen, e.EventName())
		return nil
	})))
	require.NoError(t, bus.Subscribe(role.EventTypeRoleCreated, shared.NewFuncHandler("broken", func(shared.DomainEvent) error {
		return errors.New("projection down")
	})))

	repo := NewRoleRepository(memory.NewEventStore(), Options{Publisher: bus})
	agg := newRole(t, shared.GenerateTenantID())
	require.NoError(t, repo.Save(ctx, agg))

	assert.Equal(t, []string{role.EventTypeRoleCreated}, seen)
	assert.Equal(t, 1, logs.FilterMessage("Event publish failed after commit").Len())
}

func TestUserRoundTripWithSnapshot(t *testing.T) {
	ctx := context.Background()
	store := memory.NewEventStore()
	repo := NewUserRepository(store, Options{SnapshotEvery: 2})
	tenant := shared.GenerateTenantID()

	email, err := user.NewEmail("Grace@Example.com")
	require.NoError(t, err)
	hash, err := user.NewPasswordHash("$2a$04$abcdefghijklmnopqrstuv")
	require.NoError(t, err)
	profile, err := user.NewProfile(user.ProfileData{FirstName: "Grace", LastName: "Hopper"})
	require.NoError(t, err)

	agg := user.NewAggregate()
	require.NoError(t, agg.RegisterUser(user.RegisterUserParams{
		ID:           user.GenerateUserID(),
		Email:        email,
		PasswordHash: hash,
		Profile:      profile,
		TenantID:     tenant,
		CreatedBy:    shared.NewUUID(),
	}))
	require.NoError(t, agg.ActivateUser())
	require.NoError(t, repo.Save(ctx, agg))

	snap, err := store.ReadSnapshot(ctx, agg.ID())
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 2, snap.Version)

	loaded, err := repo.Load(ctx, tenant, agg.UserID())
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", loaded.Email().Value())
	assert.Equal(t, user.StatusActive, loaded.Status())
	assert.Equal(t, hash, loaded.PasswordHash())

	_, err = repo.Load(ctx, tenant, user.GenerateUserID())
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}
