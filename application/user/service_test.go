package user

import (
	"context"
	"testing"
	"time"

	"iam/config"
	"iam/domain/shared"
	"iam/domain/user"
	"iam/infrastructure/persistence/eventsourced"
	"iam/infrastructure/persistence/memory"
	"iam/infrastructure/persistence/retry"
	"iam/infrastructure/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newService(t *testing.T) (*ApplicationService, *memory.UserViewRepository) {
	t.Helper()
	bus := shared.NewEventBus()
	store := memory.NewEventStore()
	repo := eventsourced.NewUserRepository(store, eventsourced.Options{Publisher: bus})
	views := memory.NewUserViewRepository()
	require.NoError(t, NewProjector(repo, views).Subscribe(bus))

	cfg := retry.DefaultConfig
	cfg.InitialDelay = time.Millisecond
	hasher := security.NewBcryptHasher(config.SecurityConfig{BcryptCost: bcrypt.MinCost})
	return NewApplicationService(repo, views, hasher, cfg), views
}

func register(t *testing.T, svc *ApplicationService, tenant, email string) *UserResponse {
	t.Helper()
	resp, err := svc.RegisterUser(context.Background(), "admin", RegisterUserRequest{
		TenantID: tenant,
		Email:    email,
		Password: "s3cret-pass",
		Profile:  ProfileRequest{FirstName: "Ada", LastName: "Lovelace"},
	})
	require.NoError(t, err)
	return resp
}

func TestRegisterUser(t *testing.T) {
	svc, views := newService(t)
	tenant := shared.NewUUID()

	resp := register(t, svc, tenant, " Ada@Example.com ")
	assert.Equal(t, "ada@example.com", resp.Email)
	assert.Equal(t, "PENDING", resp.Status)
	assert.Equal(t, "en", resp.Preferences.Language)
	assert.Equal(t, 1, resp.Version)

	view, err := views.FindByID(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", view.FirstName)

	_, err = svc.RegisterUser(context.Background(), "admin", RegisterUserRequest{
		TenantID: tenant,
		Email:    "ADA@example.com",
		Password: "other",
		Profile:  ProfileRequest{FirstName: "A", LastName: "B"},
	})
	assert.ErrorIs(t, err, user.ErrDuplicateEmail)

	_, err = svc.RegisterUser(context.Background(), "admin", RegisterUserRequest{
		TenantID: tenant,
		Email:    "grace@example.com",
		Profile:  ProfileRequest{FirstName: "Grace", LastName: "Hopper"},
	})
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))
}

func TestChangePassword(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	tenant := shared.NewUUID()
	u := register(t, svc, tenant, "ada@example.com")
	_, err := svc.ActivateUser(ctx, tenant, u.ID)
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, tenant, u.ID, ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "next-pass"})
	assert.ErrorIs(t, err, ErrInvalidCurrentPassword)
	assert.Equal(t, shared.KindForbidden, shared.KindOf(err))

	require.NoError(t, svc.ChangePassword(ctx, tenant, u.ID, ChangePasswordRequest{CurrentPassword: "s3cret-pass", NewPassword: "next-pass"}))
	assert.ErrorIs(t,
		svc.ChangePassword(ctx, tenant, u.ID, ChangePasswordRequest{CurrentPassword: "s3cret-pass", NewPassword: "again"}),
		ErrInvalidCurrentPassword)
	require.NoError(t, svc.ChangePassword(ctx, tenant, u.ID, ChangePasswordRequest{CurrentPassword: "next-pass", NewPassword: "again"}))
}

func TestUserLifecycleAndQueries(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	tenant := shared.NewUUID()
	ada := register(t, svc, tenant, "ada@example.com")
	grace := register(t, svc, tenant, "grace@example.com")

	// a PENDING user cannot be deleted
	_, err := svc.DeleteUser(ctx, tenant, ada.ID)
	assert.Equal(t, shared.KindStateConflict, shared.KindOf(err))

	_, err = svc.ActivateUser(ctx, tenant, ada.ID)
	require.NoError(t, err)
	resp, err := svc.UpdateProfile(ctx, tenant, ada.ID, ProfileRequest{FirstName: "Augusta", LastName: "King"})
	require.NoError(t, err)
	assert.Equal(t, "Augusta", resp.Profile.FirstName)

	resp, err = svc.UpdatePreferences(ctx, tenant, ada.ID, PreferencesRequest{Language: "fr-FR", Timezone: "Europe/Paris", Theme: "DARK"})
	require.NoError(t, err)
	assert.Equal(t, "dark", resp.Preferences.Theme)

	resp, err = svc.SuspendUser(ctx, tenant, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, "SUSPENDED", resp.Status)

	_, err = svc.ActivateUser(ctx, tenant, grace.ID)
	require.NoError(t, err)
	_, err = svc.DeactivateUser(ctx, tenant, grace.ID)
	require.NoError(t, err)
	_, err = svc.ActivateUser(ctx, tenant, grace.ID)
	require.NoError(t, err)
	resp, err = svc.DeleteUser(ctx, tenant, grace.ID)
	require.NoError(t, err)
	assert.Equal(t, "DELETED", resp.Status)

	visible, err := svc.ListUsers(ctx, tenant, ListUsersQuery{})
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, ada.ID, visible[0].ID)
	assert.Equal(t, user.StatusSuspended, visible[0].Status)

	deleted, err := svc.ListUsers(ctx, tenant, ListUsersQuery{Status: "DELETED", Email: "Grace@example.com"})
	require.NoError(t, err)
	require.Len(t, deleted, 1)

	// the freed address can be registered again
	register(t, svc, tenant, "grace@example.com")

	_, err = svc.GetUser(ctx, shared.NewUUID(), ada.ID)
	assert.ErrorIs(t, err, shared.ErrCrossTenantAccess)
	got, err := svc.GetUser(ctx, tenant, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, "Augusta", got.Profile.FirstName)
}
