package user

import (
	"context"
	"errors"
	"strings"
	"testing"

	"iam/domain/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmail(t *testing.T) {
	e, err := NewEmail("  John.Doe+iam@Example.ORG ")
	require.NoError(t, err)
	assert.Equal(t, "john.doe+iam@example.org", e.Value())

	for _, bad := range []string{"", "john", "john@", "@example.com", "john@example"} {
		_, err := NewEmail(bad)
		assert.True(t, errors.Is(err, ErrInvalidEmail), bad)
		assert.Equal(t, shared.KindValidation, shared.KindOf(err), bad)
	}
}

func TestNewPasswordHash(t *testing.T) {
	_, err := NewPasswordHash("")
	assert.True(t, errors.Is(err, ErrInvalidPasswordHash))

	_, err = NewPasswordHash(strings.Repeat("x", MaxPasswordHashLength+1))
	assert.True(t, errors.Is(err, ErrInvalidPasswordHash))

	h, err := NewPasswordHash("hash")
	require.NoError(t, err)
	assert.NotContains(t, h.String(), "hash")
}

func TestNewProfile(t *testing.T) {
	p, err := NewProfile(ProfileData{
		FirstName:   " Grace ",
		LastName:    "Hopper",
		PhoneNumber: "+14155550100",
		Avatar:      "https://cdn.example.com/a.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "Grace", p.FirstName())

	bad := []ProfileData{
		{FirstName: "", LastName: "Hopper"},
		{FirstName: "Grace", LastName: strings.Repeat("h", MaxPersonNameLength+1)},
		{FirstName: "Grace", LastName: "Hopper", PhoneNumber: "0123"},
		{FirstName: "Grace", LastName: "Hopper", Avatar: "ftp://example.com/a.png"},
		{FirstName: "Grace", LastName: "Hopper", Avatar: "not a url"},
	}
	for _, d := range bad {
		_, err := NewProfile(d)
		assert.True(t, errors.Is(err, ErrInvalidProfile), "%+v", d)
	}
}

func TestNewPreferences(t *testing.T) {
	_, err := NewPreferences(PreferencesData{Language: "en-US", Timezone: "America/New_York", Theme: "light"})
	require.NoError(t, err)

	bad := []PreferencesData{
		{Language: "english", Timezone: "UTC", Theme: "light"},
		{Language: "en", Timezone: "", Theme: "light"},
		{Language: "en", Timezone: "UTC", Theme: "neon"},
	}
	for _, d := range bad {
		_, err := NewPreferences(d)
		assert.True(t, errors.Is(err, ErrInvalidPreferences), "%+v", d)
	}
}

func TestUserStatusTransitions(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusActive))
	assert.False(t, StatusPending.CanTransitionTo(StatusDeleted))
	assert.True(t, StatusActive.CanTransitionTo(StatusDeleted))
	assert.False(t, StatusDisabled.CanTransitionTo(StatusDeleted))
	assert.False(t, StatusSuspended.CanTransitionTo(StatusDisabled))
	for _, s := range AllStatuses {
		assert.False(t, StatusDeleted.CanTransitionTo(s))
	}
}

type viewStub struct{ views []*View }

func (s *viewStub) Upsert(ctx context.Context, v *View) error { return nil }
func (s *viewStub) FindByID(ctx context.Context, id string) (*View, error) {
	return nil, NewUserNotFoundError(id)
}
func (s *viewStub) FindBySpecification(ctx context.Context, spec shared.Specification[*View]) ([]*View, error) {
	return shared.Filter(ctx, spec, s.views), nil
}

func TestEnsureEmailAvailable(t *testing.T) {
	ctx := context.Background()
	tenant := shared.GenerateTenantID()
	existing := &View{ID: GenerateUserID().String(), TenantID: tenant.String(), Email: "ada@example.com", Status: StatusActive}
	svc := NewDomainService(&viewStub{views: []*View{existing}})

	email, err := NewEmail("ADA@example.com")
	require.NoError(t, err)

	err = svc.EnsureEmailAvailable(ctx, tenant, email, UserID{})
	assert.True(t, errors.Is(err, ErrDuplicateEmail))
	assert.Equal(t, shared.KindBusinessRule, shared.KindOf(err))

	assert.NoError(t, svc.EnsureEmailAvailable(ctx, shared.GenerateTenantID(), email, UserID{}))
	self, err := NewUserID(existing.ID)
	require.NoError(t, err)
	assert.NoError(t, svc.EnsureEmailAvailable(ctx, tenant, email, self))
}
