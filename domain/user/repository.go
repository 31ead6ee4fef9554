package user

import (
	"context"
	"time"

	"iam/domain/shared"
)

// Repository persists user aggregates as event streams.
// Save uses the aggregate's Version() as the expected stream version.
// Load fails with a Forbidden error when the user belongs to another tenant.
type Repository interface {
	Load(ctx context.Context, tenantID shared.TenantID, id UserID) (*Aggregate, error)
	Save(ctx context.Context, user *Aggregate) error
}

// View is the read model of a user. It never carries the password hash.
type View struct {
	ID                 string
	TenantID           string
	PlatformID         string
	Email              string
	FirstName          string
	LastName           string
	PhoneNumber        string
	Avatar             string
	Language           string
	Timezone           string
	Theme              string
	EmailNotifications bool
	Status             Status
	CreatedBy          string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Version            int
}

func ViewFromAggregate(a *Aggregate) *View {
	profile := a.Profile()
	prefs := a.Preferences()
	return &View{
		ID:                 a.ID(),
		TenantID:           a.TenantID().String(),
		PlatformID:         a.PlatformID().String(),
		Email:              a.Email().Value(),
		FirstName:          profile.FirstName(),
		LastName:           profile.LastName(),
		PhoneNumber:        profile.PhoneNumber(),
		Avatar:             profile.Avatar(),
		Language:           prefs.Language(),
		Timezone:           prefs.Timezone(),
		Theme:              prefs.Theme(),
		EmailNotifications: prefs.EmailNotifications(),
		Status:             a.Status(),
		CreatedBy:          a.CreatedBy(),
		CreatedAt:          a.CreatedAt(),
		UpdatedAt:          a.UpdatedAt(),
		Version:            a.Version(),
	}
}

// ViewRepository stores user read models.
type ViewRepository interface {
	Upsert(ctx context.Context, view *View) error
	FindByID(ctx context.Context, id string) (*View, error)
	FindBySpecification(ctx context.Context, spec shared.Specification[*View]) ([]*View, error)
}
