/*
Domain Service

用户领域服务处理跨聚合的规则：同一租户内 email 唯一。
实体本身无法判断唯一性，需要借助读模型查询。领域服务只读，不写。
*/
package user

import (
	"context"

	"iam/domain/shared"
)

// DomainService User domain service
type DomainService struct {
	views ViewRepository
}

func NewDomainService(views ViewRepository) *DomainService {
	return &DomainService{views: views}
}

// EnsureEmailAvailable fails when a non-deleted user of the tenant already
// uses email. exclude skips the user being checked.
func (s *DomainService) EnsureEmailAvailable(ctx context.Context, tenantID shared.TenantID, email Email, exclude UserID) error {
	spec := shared.And(ByTenant(tenantID), shared.And(ByEmail(email), shared.Not(ByStatus(StatusDeleted))))
	matches, err := s.views.FindBySpecification(ctx, spec)
	if err != nil {
		return err
	}
	for _, v := range matches {
		if exclude.IsZero() || v.ID != exclude.String() {
			return NewDuplicateEmailError(email.Value())
		}
	}
	return nil
}
