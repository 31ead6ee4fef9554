// Package permission answers "may these roles do action on resource" with
// wildcard grants. Exact matching stays on role.Permission.Matches.
package permission

import (
	"context"
	"strings"
	"time"

	"iam/domain/role"
	"iam/domain/shared"
	"iam/pkg/logger"

	"go.uber.org/zap"
)

const Wildcard = "*"

// Matches reports whether a granted resource:action pair covers the request.
// "*" on either side matches anything; "*:*" and a bare "*" grant everything.
func Matches(grantedResource, grantedAction, resource, action string) bool {
	resource = strings.ToLower(strings.TrimSpace(resource))
	action = strings.ToLower(strings.TrimSpace(action))
	return (grantedResource == Wildcard || grantedResource == resource) &&
		(grantedAction == Wildcard || grantedAction == action)
}

// MatchesKey applies Matches to a canonical "resource:action[:conditions]" string.
func MatchesKey(granted, resource, action string) bool {
	if granted == Wildcard {
		return true
	}
	parts := strings.SplitN(granted, ":", 3)
	if len(parts) < 2 {
		return false
	}
	return Matches(parts[0], parts[1], resource, action)
}

// Checker evaluates grants of role aggregates loaded within one tenant.
// A role whose expiry has passed grants nothing, whether or not the EXPIRED
// transition has been recorded yet.
type Checker struct {
	roles role.Repository
	clock func() time.Time
}

func NewChecker(roles role.Repository) *Checker {
	return &Checker{roles: roles, clock: time.Now}
}

// WithClock replaces the time source used for expiry checks.
func (c *Checker) WithClock(clock func() time.Time) *Checker {
	if clock != nil {
		c.clock = clock
	}
	return c
}

// HasPermission is true when any usable, unexpired role among roleIDs grants
// action on resource. Unknown roles are skipped; any other load error is returned.
func (c *Checker) HasPermission(ctx context.Context, tenantID shared.TenantID, roleIDs []role.RoleID, resource, action string) (bool, error) {
	for _, id := range roleIDs {
		agg, err := c.roles.Load(ctx, tenantID, id)
		if shared.KindOf(err) == shared.KindNotFound {
			logger.Ctx(ctx).Debug("Skip unknown role in permission check", zap.String("role_id", id.String()))
			continue
		}
		if err != nil {
			return false, err
		}
		if !agg.IsUsableAt(c.clock()) {
			continue
		}
		for _, p := range agg.Permissions() {
			if Matches(p.Resource(), p.Action(), resource, action) {
				return true, nil
			}
		}
	}
	return false, nil
}

// EffectiveGrants returns the canonical permission strings of the usable,
// unexpired roles among roleIDs, deduplicated in first-seen order.
func (c *Checker) EffectiveGrants(ctx context.Context, tenantID shared.TenantID, roleIDs []role.RoleID) ([]string, error) {
	seen := make(map[string]struct{})
	var grants []string
	for _, id := range roleIDs {
		agg, err := c.roles.Load(ctx, tenantID, id)
		if shared.KindOf(err) == shared.KindNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !agg.IsUsableAt(c.clock()) {
			continue
		}
		for _, p := range agg.Permissions() {
			key := p.String()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			grants = append(grants, key)
		}
	}
	return grants, nil
}
