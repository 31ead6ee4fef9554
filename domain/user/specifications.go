package user

import (
	"context"

	"iam/domain/shared"
)

type ByTenantSpecification struct {
	TenantID string
}

func (spec ByTenantSpecification) IsSatisfiedBy(ctx context.Context, v *View) bool {
	return v.TenantID == spec.TenantID
}

type ByEmailSpecification struct {
	Email string
}

func (spec ByEmailSpecification) IsSatisfiedBy(ctx context.Context, v *View) bool {
	return v.Email == spec.Email
}

type ByStatusSpecification struct {
	Status Status
}

func (spec ByStatusSpecification) IsSatisfiedBy(ctx context.Context, v *View) bool {
	return v.Status == spec.Status
}

func ByTenant(tenantID shared.TenantID) shared.Specification[*View] {
	return ByTenantSpecification{TenantID: tenantID.String()}
}
func ByEmail(email Email) shared.Specification[*View] {
	return ByEmailSpecification{Email: email.Value()}
}
func ByStatus(status Status) shared.Specification[*View] {
	return ByStatusSpecification{Status: status}
}
