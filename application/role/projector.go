package role

import (
	"context"
	"fmt"
	"strings"

	"iam/domain/role"
	"iam/domain/shared"
	"iam/pkg/logger"

	"go.uber.org/zap"
)

// Projector keeps role.View rows current. On every committed role event it
// reloads the aggregate and upserts its view; views ignore older versions, so
// replays and out-of-order deliveries are harmless.
type Projector struct {
	repo  role.Repository
	views role.ViewRepository
}

func NewProjector(repo role.Repository, views role.ViewRepository) *Projector {
	return &Projector{repo: repo, views: views}
}

func (p *Projector) Name() string { return "role-projector" }

// Subscribe registers the projector for every role event type.
func (p *Projector) Subscribe(bus shared.DomainEventPublisher) error {
	for _, eventType := range role.EventTypes() {
		if err := bus.Subscribe(eventType, p); err != nil {
			return err
		}
	}
	return nil
}

func (p *Projector) Handle(event shared.DomainEvent) error {
	if !strings.HasPrefix(event.EventName(), role.AggregateType+".") {
		return nil
	}
	ctx := context.Background()
	id, err := role.NewRoleID(event.GetAggregateID())
	if err != nil {
		return err
	}
	// zero tenant: projection is not a tenant-scoped read
	agg, err := p.repo.Load(ctx, shared.TenantID{}, id)
	if err != nil {
		return fmt.Errorf("project %s: %w", event.EventName(), err)
	}
	if err := p.views.Upsert(ctx, role.ViewFromAggregate(agg)); err != nil {
		return fmt.Errorf("project %s: %w", event.EventName(), err)
	}
	logger.Debug("Role view projected",
		zap.String("role_id", agg.ID()),
		zap.Int("version", agg.Version()),
	)
	return nil
}

var _ shared.EventHandler = (*Projector)(nil)
