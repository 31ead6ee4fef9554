package role

import (
	"context"
	"strings"
	"time"

	"iam/domain/shared"
)

type ByTenantSpecification struct {
	TenantID string
}

func (spec ByTenantSpecification) IsSatisfiedBy(ctx context.Context, v *View) bool {
	return v.TenantID == spec.TenantID
}

// ByNameSpecification matches names case-insensitively.
type ByNameSpecification struct {
	Name string
}

func (spec ByNameSpecification) IsSatisfiedBy(ctx context.Context, v *View) bool {
	return strings.EqualFold(v.Name, spec.Name)
}

type ByStatusSpecification struct {
	Status Status
}

func (spec ByStatusSpecification) IsSatisfiedBy(ctx context.Context, v *View) bool {
	return v.Status == spec.Status
}

type ByTypeSpecification struct {
	Type Type
}

func (spec ByTypeSpecification) IsSatisfiedBy(ctx context.Context, v *View) bool {
	return v.Type == spec.Type
}

type ByIDsSpecification struct {
	IDs []string
}

func (spec ByIDsSpecification) IsSatisfiedBy(ctx context.Context, v *View) bool {
	for _, id := range spec.IDs {
		if v.ID == id {
			return true
		}
	}
	return false
}

// ExpiredBySpecification matches views whose expiry has been reached at At.
type ExpiredBySpecification struct {
	At time.Time
}

func (spec ExpiredBySpecification) IsSatisfiedBy(ctx context.Context, v *View) bool {
	return v.ExpiresAt != nil && !spec.At.Before(*v.ExpiresAt)
}

func ByTenant(tenantID shared.TenantID) shared.Specification[*View] {
	return ByTenantSpecification{TenantID: tenantID.String()}
}
func ByName(name Name) shared.Specification[*View] {
	return ByNameSpecification{Name: name.String()}
}
func ByStatus(status Status) shared.Specification[*View] {
	return ByStatusSpecification{Status: status}
}
func ByType(t Type) shared.Specification[*View] {
	return ByTypeSpecification{Type: t}
}
func ByIDs(ids ...string) shared.Specification[*View] {
	return ByIDsSpecification{IDs: ids}
}
func ExpiredBy(now time.Time) shared.Specification[*View] {
	return ExpiredBySpecification{At: now}
}
