package role

import (
	"errors"
	"testing"
	"time"

	"iam/domain/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func fixedClock() func() time.Time {
	now := baseTime
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func mustName(t *testing.T, raw string) Name {
	t.Helper()
	n, err := NewName(raw)
	require.NoError(t, err)
	return n
}

func mustDescription(t *testing.T, raw string) Description {
	t.Helper()
	d, err := NewDescription(raw)
	require.NoError(t, err)
	return d
}

func newTenantRole(t *testing.T, settings Settings, perms ...Permission) *Aggregate {
	t.Helper()
	a := NewAggregate().WithClock(fixedClock())
	err := a.CreateRole(CreateRoleParams{
		ID:          GenerateRoleID(),
		Name:        mustName(t, "Billing Admin"),
		Description: mustDescription(t, "Manages invoices"),
		Type:        TypeTenant,
		TenantID:    shared.GenerateTenantID(),
		Settings:    settings,
		Permissions: perms,
		CreatedBy:   shared.NewUUID(),
	})
	require.NoError(t, err)
	return a
}

func systemSettings(t *testing.T) Settings {
	t.Helper()
	s, err := NewSettings(SettingsData{IsSystemRole: true, CanBeModified: true}, baseTime)
	require.NoError(t, err)
	return s
}

func TestCreateAddActivate(t *testing.T) {
	a := newTenantRole(t, DefaultSettings())

	require.NoError(t, a.AddPermission(MustPermission("billing", "read")))
	require.NoError(t, a.ActivateRole())

	events := a.Changes()
	require.Len(t, events, 3)
	assert.Equal(t, EventTypeRoleCreated, events[0].EventName())
	assert.Equal(t, EventTypeRolePermissionAdded, events[1].EventName())
	assert.Equal(t, EventTypeRoleStatusChanged, events[2].EventName())
	for _, e := range events {
		assert.Equal(t, a.ID(), e.GetAggregateID())
	}

	assert.Equal(t, StatusActive, a.Status())
	assert.True(t, a.HasPermission(MustPermission("billing", "read")))
	assert.True(t, a.CanBeAssigned())
	assert.Equal(t, 0, a.Version())

	a.MarkCommitted()
	assert.Equal(t, 3, a.Version())
	assert.Empty(t, a.UncommittedEvents())
}

func TestAddDuplicatePermissionStagesNothing(t *testing.T) {
	a := newTenantRole(t, DefaultSettings(), MustPermission("billing", "read"))
	a.MarkCommitted()

	err := a.AddPermission(MustPermission(" Billing ", "READ"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicatePermission))
	assert.True(t, errors.Is(err, shared.ErrBusinessRule))
	assert.Empty(t, a.Changes())
	assert.Len(t, a.Permissions(), 1)
}

func TestRemovePermission(t *testing.T) {
	a := newTenantRole(t, DefaultSettings(), MustPermission("billing", "read"))

	err := a.RemovePermission(MustPermission("billing", "write"))
	assert.True(t, errors.Is(err, ErrPermissionNotFound))

	require.NoError(t, a.RemovePermission(MustPermission("billing", "read")))
	assert.Empty(t, a.Permissions())
}

func TestCreateRejectsDuplicatePermissions(t *testing.T) {
	a := NewAggregate()
	err := a.CreateRole(CreateRoleParams{
		ID:          GenerateRoleID(),
		Name:        mustName(t, "Auditor"),
		Type:        TypeCustom,
		TenantID:    shared.GenerateTenantID(),
		Settings:    DefaultSettings(),
		Permissions: []Permission{MustPermission("audit", "read"), MustPermission("AUDIT", "read")},
		CreatedBy:   shared.NewUUID(),
	})
	assert.True(t, errors.Is(err, ErrDuplicatePermission))
	assert.False(t, a.Exists())
}

func TestCreateRequiresScopeForOrganizationRole(t *testing.T) {
	a := NewAggregate()
	err := a.CreateRole(CreateRoleParams{
		ID:        GenerateRoleID(),
		Name:      mustName(t, "Org Admin"),
		Type:      TypeOrganization,
		TenantID:  shared.GenerateTenantID(),
		Settings:  DefaultSettings(),
		CreatedBy: shared.NewUUID(),
	})
	assert.True(t, errors.Is(err, ErrInvalidRoleType))
	assert.True(t, errors.Is(err, shared.ErrBusinessRule))

	err = a.CreateRole(CreateRoleParams{
		ID:             GenerateRoleID(),
		Name:           mustName(t, "Org Admin"),
		Type:           TypeOrganization,
		TenantID:       shared.GenerateTenantID(),
		OrganizationID: shared.GenerateOrganizationID(),
		Settings:       DefaultSettings(),
		CreatedBy:      shared.NewUUID(),
	})
	assert.NoError(t, err)
}

func TestCreateTwiceFails(t *testing.T) {
	a := newTenantRole(t, DefaultSettings())
	err := a.CreateRole(CreateRoleParams{
		ID:        GenerateRoleID(),
		Name:      mustName(t, "Other"),
		Type:      TypeUser,
		TenantID:  shared.GenerateTenantID(),
		Settings:  DefaultSettings(),
		CreatedBy: shared.NewUUID(),
	})
	assert.True(t, errors.Is(err, shared.ErrInvalidState))
	assert.Len(t, a.Changes(), 1)
}

func TestCommandsOnEmptyAggregate(t *testing.T) {
	a := NewAggregate()
	commands := map[string]func() error{
		"activate": a.ActivateRole,
		"suspend":  a.SuspendRole,
		"delete":   a.DeleteRole,
		"add":      func() error { return a.AddPermission(MustPermission("x", "y")) },
	}
	for name, cmd := range commands {
		err := cmd()
		assert.True(t, errors.Is(err, ErrRoleNotFound), name)
		assert.Equal(t, shared.KindNotFound, shared.KindOf(err), name)
	}
}

func TestIllegalTransition(t *testing.T) {
	a := newTenantRole(t, DefaultSettings())

	err := a.SuspendRole()
	assert.True(t, errors.Is(err, shared.ErrInvalidStateTransition))
	assert.Equal(t, shared.KindStateConflict, shared.KindOf(err))

	require.NoError(t, a.DeactivateRole())
	assert.Equal(t, StatusDisabled, a.Status())
	require.NoError(t, a.ActivateRole())
	require.NoError(t, a.SuspendRole())
	assert.True(t, a.IsUsable())
	assert.False(t, a.CanBeAssigned())
}

func TestDeleteRole(t *testing.T) {
	t.Run("deletable role", func(t *testing.T) {
		a := newTenantRole(t, DefaultSettings())
		require.NoError(t, a.DeleteRole())
		assert.Equal(t, StatusDeleted, a.Status())
		_, deleted := a.DeletedAt()
		assert.True(t, deleted)

		err := a.DeleteRole()
		assert.True(t, errors.Is(err, shared.ErrInvalidStateTransition))
		assert.False(t, a.CanBeModified())
		assert.True(t, errors.Is(a.AddPermission(MustPermission("x", "y")), shared.ErrInvalidState))
	})

	t.Run("system role", func(t *testing.T) {
		a := newTenantRole(t, systemSettings(t))
		err := a.DeleteRole()
		assert.True(t, errors.Is(err, shared.ErrInvalidStateTransition))
		assert.Equal(t, StatusPending, a.Status())
	})

	t.Run("non deletable role", func(t *testing.T) {
		s, err := NewSettings(SettingsData{CanBeModified: true}, baseTime)
		require.NoError(t, err)
		a := newTenantRole(t, s)
		assert.True(t, errors.Is(a.DeleteRole(), shared.ErrInvalidStateTransition))
	})
}

func TestUpdateRole(t *testing.T) {
	a := newTenantRole(t, DefaultSettings())

	require.NoError(t, a.UpdateRole(mustName(t, "Finance Admin"), mustDescription(t, ""), DefaultSettings()))
	assert.Equal(t, "Finance Admin", a.Name().String())
	assert.True(t, a.Description().IsEmpty())

	updated := a.Changes()[1].(*RoleUpdatedEvent)
	assert.Equal(t, "Billing Admin", updated.PreviousName)

	err := a.UpdateRole(mustName(t, "Finance Admin"), mustDescription(t, ""), systemSettings(t))
	assert.True(t, errors.Is(err, shared.ErrInvalidState))
}

func TestUnmodifiableRoleRejectsPermissionChanges(t *testing.T) {
	s, err := NewSettings(SettingsData{CanBeDeleted: true}, baseTime)
	require.NoError(t, err)
	a := newTenantRole(t, s, MustPermission("billing", "read"))

	assert.True(t, errors.Is(a.AddPermission(MustPermission("billing", "write")), shared.ErrInvalidState))
	assert.True(t, errors.Is(a.RemovePermission(MustPermission("billing", "read")), shared.ErrInvalidState))
	assert.Len(t, a.Changes(), 1)
}

func TestExpireRole(t *testing.T) {
	expiresAt := baseTime.Add(time.Hour)
	s, err := NewSettings(SettingsData{CanBeDeleted: true, CanBeModified: true, ExpiresAt: &expiresAt}, baseTime)
	require.NoError(t, err)
	a := newTenantRole(t, s)

	assert.True(t, errors.Is(a.ExpireRole(baseTime.Add(2*time.Hour)), shared.ErrInvalidStateTransition))

	require.NoError(t, a.ActivateRole())
	assert.True(t, errors.Is(a.ExpireRole(baseTime.Add(30*time.Minute)), shared.ErrInvalidState))

	// past the expiry but not yet transitioned
	assert.True(t, a.IsUsableAt(baseTime.Add(30*time.Minute)))
	assert.True(t, a.CanBeAssignedAt(baseTime.Add(30*time.Minute)))
	assert.True(t, a.IsUsable())
	assert.False(t, a.IsUsableAt(expiresAt))
	assert.False(t, a.CanBeAssignedAt(baseTime.Add(2*time.Hour)))

	require.NoError(t, a.ExpireRole(baseTime.Add(2*time.Hour)))
	assert.Equal(t, StatusExpired, a.Status())
	assert.False(t, a.IsUsable())

	require.NoError(t, a.DeleteRole())
}

func TestFromHistoryIsDeterministic(t *testing.T) {
	a := newTenantRole(t, DefaultSettings())
	require.NoError(t, a.AddPermission(MustPermission("billing", "read")))
	cond, err := NewPermissionWithConditions("billing", "export", map[string]any{"region": "eu"})
	require.NoError(t, err)
	require.NoError(t, a.AddPermission(cond))
	require.NoError(t, a.ActivateRole())
	require.NoError(t, a.RemovePermission(MustPermission("billing", "read")))

	decoded := make([]Event, 0, len(a.Changes()))
	for _, e := range a.Changes() {
		payload, err := EncodeEvent(e)
		require.NoError(t, err)
		back, err := DecodeEvent(e.EventName(), payload)
		require.NoError(t, err)
		decoded = append(decoded, back)
	}
	a.MarkCommitted()

	first, err := FromHistory(decoded)
	require.NoError(t, err)
	second, err := FromHistory(decoded)
	require.NoError(t, err)

	want, err := a.ToSnapshot()
	require.NoError(t, err)
	got1, err := first.ToSnapshot()
	require.NoError(t, err)
	got2, err := second.ToSnapshot()
	require.NoError(t, err)

	assert.Equal(t, want, got1)
	assert.Equal(t, got1, got2)
	assert.Equal(t, 5, first.Version())
	assert.Empty(t, first.UncommittedEvents())
}

func TestFromHistoryRejectsForeignEvents(t *testing.T) {
	a := newTenantRole(t, DefaultSettings())
	b := newTenantRole(t, DefaultSettings())
	require.NoError(t, b.ActivateRole())

	_, err := FromHistory([]Event{a.Changes()[0], b.Changes()[1]})
	assert.Error(t, err)

	_, err = FromHistory(nil)
	assert.True(t, errors.Is(err, ErrRoleNotFound))
}

func TestFromHistoryRejectsInconsistentStatus(t *testing.T) {
	a := newTenantRole(t, DefaultSettings())
	require.NoError(t, a.ActivateRole())
	activated := a.Changes()[1]

	_, err := FromHistory([]Event{a.Changes()[0], activated, activated})
	assert.Error(t, err)
}
