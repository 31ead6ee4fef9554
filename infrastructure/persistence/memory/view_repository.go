package memory

import (
	"context"
	"sort"
	"sync"

	"iam/domain/role"
	"iam/domain/shared"
	"iam/domain/user"
)

// RoleViewRepository holds role read models in memory.
type RoleViewRepository struct {
	mu    sync.RWMutex
	views map[string]role.View
}

func NewRoleViewRepository() *RoleViewRepository {
	return &RoleViewRepository{views: make(map[string]role.View)}
}

// Upsert ignores a view older than the stored one so replays stay idempotent.
func (r *RoleViewRepository) Upsert(ctx context.Context, view *role.View) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.views[view.ID]; ok && current.Version > view.Version {
		return nil
	}
	v := *view
	v.Permissions = append([]string(nil), view.Permissions...)
	r.views[view.ID] = v
	return nil
}

func (r *RoleViewRepository) FindByID(ctx context.Context, id string) (*role.View, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.views[id]
	if !ok {
		return nil, role.NewRoleNotFoundError(id)
	}
	v.Permissions = append([]string(nil), v.Permissions...)
	return &v, nil
}

// FindBySpecification returns matches ordered by creation time, then id.
func (r *RoleViewRepository) FindBySpecification(ctx context.Context, spec shared.Specification[*role.View]) ([]*role.View, error) {
	r.mu.RLock()
	all := make([]*role.View, 0, len(r.views))
	for _, v := range r.views {
		v := v
		v.Permissions = append([]string(nil), v.Permissions...)
		all = append(all, &v)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	return shared.Filter(ctx, spec, all), nil
}

// UserViewRepository holds user read models in memory.
type UserViewRepository struct {
	mu    sync.RWMutex
	views map[string]user.View
}

func NewUserViewRepository() *UserViewRepository {
	return &UserViewRepository{views: make(map[string]user.View)}
}

func (r *UserViewRepository) Upsert(ctx context.Context, view *user.View) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.views[view.ID]; ok && current.Version > view.Version {
		return nil
	}
	r.views[view.ID] = *view
	return nil
}

func (r *UserViewRepository) FindByID(ctx context.Context, id string) (*user.View, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.views[id]
	if !ok {
		return nil, user.NewUserNotFoundError(id)
	}
	return &v, nil
}

func (r *UserViewRepository) FindBySpecification(ctx context.Context, spec shared.Specification[*user.View]) ([]*user.View, error) {
	r.mu.RLock()
	all := make([]*user.View, 0, len(r.views))
	for _, v := range r.views {
		v := v
		all = append(all, &v)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	return shared.Filter(ctx, spec, all), nil
}

var (
	_ role.ViewRepository = (*RoleViewRepository)(nil)
	_ user.ViewRepository = (*UserViewRepository)(nil)
)
