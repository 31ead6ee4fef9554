package mysql

import (
	"fmt"

	"iam/infrastructure/persistence/mysql/po"

	"gorm.io/gorm"
)

// AutoMigrate creates or updates the event store, outbox and read model tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&po.EventPO{},
		&po.SnapshotPO{},
		&po.OutboxEventPO{},
		&po.RoleViewPO{},
		&po.UserViewPO{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
