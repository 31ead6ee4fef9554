package mysql

import (
	"context"
	"errors"
	"fmt"

	"iam/domain/role"
	"iam/domain/shared"
	"iam/domain/user"
	"iam/infrastructure/persistence"
	"iam/infrastructure/persistence/mysql/po"
	"iam/infrastructure/persistence/specification"
	"iam/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// upsertVersioned inserts row or overwrites it when the stored version is not newer.
func upsertVersioned(db *gorm.DB, id string, version int, row interface{}, model interface{}) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var current struct{ Version int }
		err := tx.Model(model).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("version").
			Where("id = ?", id).
			Take(&current).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(row).Error
		case err != nil:
			return err
		case current.Version > version:
			return nil
		}
		return tx.Model(model).Where("id = ?", id).Select("*").Updates(row).Error
	})
}

// RoleViewRepository GORM implementation of role.ViewRepository
type RoleViewRepository struct {
	db *gorm.DB
}

func NewRoleViewRepository(db *gorm.DB) *RoleViewRepository {
	return &RoleViewRepository{db: db}
}

func (r *RoleViewRepository) getDB(ctx context.Context) *gorm.DB {
	if tx := persistence.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.db.WithContext(ctx)
}

func (r *RoleViewRepository) Upsert(ctx context.Context, view *role.View) error {
	row, err := po.FromRoleView(view)
	if err != nil {
		return err
	}
	if err := upsertVersioned(r.getDB(ctx), row.ID, row.Version, &row, &po.RoleViewPO{}); err != nil {
		return fmt.Errorf("upsert role view %s: %w", view.ID, err)
	}
	return nil
}

func (r *RoleViewRepository) FindByID(ctx context.Context, id string) (*role.View, error) {
	var row po.RoleViewPO
	err := r.getDB(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, role.NewRoleNotFoundError(id)
	}
	if err != nil {
		return nil, err
	}
	return row.ToView()
}

// FindBySpecification pushes translatable specifications into SQL and
// filters the rest in memory.
func (r *RoleViewRepository) FindBySpecification(ctx context.Context, spec shared.Specification[*role.View]) ([]*role.View, error) {
	where, translated := specification.Translate(spec, specification.RoleLeaf)
	if !translated {
		logger.Ctx(ctx).Debug("Role specification not translatable, filtering in memory")
	}

	var rows []po.RoleViewPO
	if err := r.getDB(ctx).Scopes(where.Scope).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	views := make([]*role.View, 0, len(rows))
	for _, row := range rows {
		v, err := row.ToView()
		if err != nil {
			logger.Ctx(ctx).Warn("Skip unreadable role view", zap.String("role_id", row.ID), zap.Error(err))
			continue
		}
		views = append(views, v)
	}
	if translated {
		return views, nil
	}
	return shared.Filter(ctx, spec, views), nil
}

// UserViewRepository GORM implementation of user.ViewRepository
type UserViewRepository struct {
	db *gorm.DB
}

func NewUserViewRepository(db *gorm.DB) *UserViewRepository {
	return &UserViewRepository{db: db}
}

func (r *UserViewRepository) getDB(ctx context.Context) *gorm.DB {
	if tx := persistence.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.db.WithContext(ctx)
}

func (r *UserViewRepository) Upsert(ctx context.Context, view *user.View) error {
	row := po.FromUserView(view)
	if err := upsertVersioned(r.getDB(ctx), row.ID, row.Version, &row, &po.UserViewPO{}); err != nil {
		return fmt.Errorf("upsert user view %s: %w", view.ID, err)
	}
	return nil
}

func (r *UserViewRepository) FindByID(ctx context.Context, id string) (*user.View, error) {
	var row po.UserViewPO
	err := r.getDB(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, user.NewUserNotFoundError(id)
	}
	if err != nil {
		return nil, err
	}
	return row.ToView(), nil
}

func (r *UserViewRepository) FindBySpecification(ctx context.Context, spec shared.Specification[*user.View]) ([]*user.View, error) {
	where, translated := specification.Translate(spec, specification.UserLeaf)

	var rows []po.UserViewPO
	if err := r.getDB(ctx).Scopes(where.Scope).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	views := make([]*user.View, len(rows))
	for i, row := range rows {
		views[i] = row.ToView()
	}
	if translated {
		return views, nil
	}
	return shared.Filter(ctx, spec, views), nil
}

var (
	_ role.ViewRepository = (*RoleViewRepository)(nil)
	_ user.ViewRepository = (*UserViewRepository)(nil)
)
