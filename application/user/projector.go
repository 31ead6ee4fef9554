package user

import (
	"context"
	"fmt"

	"iam/domain/shared"
	"iam/domain/user"
	"iam/pkg/logger"

	"go.uber.org/zap"
)

// Projector reloads the user after each committed event and upserts its view.
type Projector struct {
	repo  user.Repository
	views user.ViewRepository
}

func NewProjector(repo user.Repository, views user.ViewRepository) *Projector {
	return &Projector{repo: repo, views: views}
}

func (p *Projector) Name() string { return "user-projector" }

func (p *Projector) Subscribe(bus shared.DomainEventPublisher) error {
	for _, eventType := range user.EventTypes() {
		if err := bus.Subscribe(eventType, p); err != nil {
			return err
		}
	}
	return nil
}

func (p *Projector) Handle(event shared.DomainEvent) error {
	ctx := context.Background()
	id, err := user.NewUserID(event.GetAggregateID())
	if err != nil {
		return err
	}
	agg, err := p.repo.Load(ctx, shared.TenantID{}, id)
	if err != nil {
		return fmt.Errorf("project %s: %w", event.EventName(), err)
	}
	if err := p.views.Upsert(ctx, user.ViewFromAggregate(agg)); err != nil {
		return fmt.Errorf("project %s: %w", event.EventName(), err)
	}
	logger.Debug("User view projected", zap.String("user_id", agg.ID()), zap.Int("version", agg.Version()))
	return nil
}

var _ shared.EventHandler = (*Projector)(nil)
