package role

import (
	"context"
	"fmt"
	"time"

	"iam/domain/role"
	"iam/domain/shared"
	"iam/pkg/logger"

	"go.uber.org/zap"
)

// sweeperActor is the identity recorded on expirations issued by the sweeper.
var sweeperActor = Actor{UserID: "system:expiry-sweeper", RoleType: role.TypeSystem}

// ExpirySweeper moves ACTIVE roles whose expiry has passed to EXPIRED.
// Candidates come from the read model; each one goes through ExpireRole so
// the aggregate re-checks status and expiry before anything is written.
type ExpirySweeper struct {
	service  *ApplicationService
	views    role.ViewRepository
	interval time.Duration
}

func NewExpirySweeper(service *ApplicationService, views role.ViewRepository, interval time.Duration) (*ExpirySweeper, error) {
	if service == nil {
		return nil, fmt.Errorf("role application service is required")
	}
	if views == nil {
		return nil, fmt.Errorf("role view repository is required")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive")
	}
	return &ExpirySweeper{service: service, views: views, interval: interval}, nil
}

func (s *ExpirySweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Info("Role expiry sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			logger.Info("Role expiry sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				logger.Error("Role expiry sweep failed", zap.Error(err))
			}
		}
	}
}

// SweepOnce expires every due role it finds and returns how many it expired.
// A failure on one role is logged and does not stop the others.
func (s *ExpirySweeper) SweepOnce(ctx context.Context) (int, error) {
	due, err := s.views.FindBySpecification(ctx,
		shared.And(role.ByStatus(role.StatusActive), role.ExpiredBy(s.service.clock())))
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, v := range due {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		if _, err := s.service.ExpireRole(ctx, sweeperActor, v.TenantID, v.ID); err != nil {
			logger.Warn("Failed to expire role",
				zap.String("tenant_id", v.TenantID),
				zap.String("role_id", v.ID),
				zap.Error(err),
			)
			continue
		}
		expired++
	}
	if expired > 0 {
		logger.Info("Expired roles", zap.Int("count", expired))
	}
	return expired, nil
}
