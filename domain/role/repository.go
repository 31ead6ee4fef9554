package role

import (
	"context"
	"time"

	"iam/domain/shared"
)

// Repository persists role aggregates as event streams.
//
// Save appends the aggregate's staged events with its Version() as the
// expected version and fails with a concurrency error when the stream has
// moved on. Load returns a role NotFound error when the stream is empty and a
// Forbidden error when the role belongs to another tenant.
type Repository interface {
	Load(ctx context.Context, tenantID shared.TenantID, id RoleID) (*Aggregate, error)
	Save(ctx context.Context, role *Aggregate) error
}

// View is the denormalized read model of a role kept by projectors.
type View struct {
	ID             string
	TenantID       string
	OrganizationID string
	DepartmentID   string
	Name           string
	Description    string
	Type           Type
	Status         Status
	Permissions    []string
	IsSystemRole   bool
	IsDefaultRole  bool
	ExpiresAt      *time.Time
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Version        int
}

// ViewFromAggregate flattens an aggregate into its read model.
func ViewFromAggregate(a *Aggregate) *View {
	perms := a.Permissions()
	keys := make([]string, len(perms))
	for i, p := range perms {
		keys[i] = p.String()
	}
	settings := a.Settings()
	var expiresAt *time.Time
	if t, ok := settings.ExpiresAt(); ok {
		expiresAt = &t
	}
	return &View{
		ID:             a.ID(),
		TenantID:       a.TenantID().String(),
		OrganizationID: a.OrganizationID().String(),
		DepartmentID:   a.DepartmentID().String(),
		Name:           a.Name().String(),
		Description:    a.Description().String(),
		Type:           a.Type(),
		Status:         a.Status(),
		Permissions:    keys,
		IsSystemRole:   settings.IsSystemRole(),
		IsDefaultRole:  settings.IsDefaultRole(),
		ExpiresAt:      expiresAt,
		CreatedBy:      a.CreatedBy(),
		CreatedAt:      a.CreatedAt(),
		UpdatedAt:      a.UpdatedAt(),
		Version:        a.Version(),
	}
}

// ViewRepository stores role read models.
// FindByID returns a role NotFound error when absent.
type ViewRepository interface {
	Upsert(ctx context.Context, view *View) error
	FindByID(ctx context.Context, id string) (*View, error)
	FindBySpecification(ctx context.Context, spec shared.Specification[*View]) ([]*View, error)
}
