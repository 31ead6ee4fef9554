package mysql

import (
	"context"
	"fmt"
	"time"

	"iam/infrastructure/persistence"
	"iam/infrastructure/persistence/mysql/po"

	"gorm.io/gorm"
)

const maxLastErrorLength = 512

// OutboxRepository MySQL/GORM access to outbox_events
// Rows are inserted by EventStore.AppendEvents; this type drives the relay lifecycle.
type OutboxRepository struct {
	db *gorm.DB
}

// NewOutboxRepository Create outbox repository
func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// getDB returns the transaction from context if available, otherwise the default db
func (r *OutboxRepository) getDB(ctx context.Context) *gorm.DB {
	if tx := persistence.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.db.WithContext(ctx)
}

// GetPendingEvents returns pending rows in insertion order (ULID ascending)
func (r *OutboxRepository) GetPendingEvents(ctx context.Context, limit int) ([]*po.OutboxEventPO, error) {
	var events []*po.OutboxEventPO
	err := r.getDB(ctx).
		Where("status = ?", string(po.EventStatusPending)).
		Order("id ASC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get pending events: %w", err)
	}
	return events, nil
}

// MarkEventProcessing claims a pending row. It fails when another worker got there first.
func (r *OutboxRepository) MarkEventProcessing(ctx context.Context, eventID string) error {
	result := r.getDB(ctx).Model(&po.OutboxEventPO{}).
		Where("id = ? AND status = ?", eventID, string(po.EventStatusPending)).
		Updates(map[string]interface{}{
			"status":     string(po.EventStatusProcessing),
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("event not found or already being processed: %s", eventID)
	}
	return nil
}

// MarkEventPublished Mark event as successfully published
func (r *OutboxRepository) MarkEventPublished(ctx context.Context, eventID string) error {
	result := r.getDB(ctx).Model(&po.OutboxEventPO{}).
		Where("id = ?", eventID).
		Updates(map[string]interface{}{
			"status":     string(po.EventStatusPublished),
			"last_error": "",
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("event not found: %s", eventID)
	}
	return nil
}

// MarkEventFailed records a failed attempt. The row returns to PENDING until
// maxRetries attempts have failed, then it stays FAILED. It reports whether
// the row was parked as FAILED.
func (r *OutboxRepository) MarkEventFailed(ctx context.Context, eventID string, maxRetries int, cause error) (bool, error) {
	db := r.getDB(ctx)

	var event po.OutboxEventPO
	if err := db.Select("id", "retry_count").Where("id = ?", eventID).Take(&event).Error; err != nil {
		return false, fmt.Errorf("failed to find event: %w", err)
	}

	retries := event.RetryCount + 1
	status := po.EventStatusPending
	if retries >= maxRetries {
		status = po.EventStatusFailed
	}
	lastError := ""
	if cause != nil {
		lastError = cause.Error()
		if len(lastError) > maxLastErrorLength {
			lastError = lastError[:maxLastErrorLength]
		}
	}

	err := db.Model(&po.OutboxEventPO{}).
		Where("id = ?", eventID).
		Updates(map[string]interface{}{
			"status":      string(status),
			"retry_count": retries,
			"last_error":  lastError,
			"updated_at":  gorm.Expr("NOW()"),
		}).Error
	if err != nil {
		return false, err
	}
	return status == po.EventStatusFailed, nil
}

// ReleaseStale returns rows stuck in PROCESSING longer than olderThan to
// PENDING, e.g. after a worker crashed between claim and publish.
func (r *OutboxRepository) ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	result := r.getDB(ctx).Model(&po.OutboxEventPO{}).
		Where("status = ? AND updated_at < ?", string(po.EventStatusProcessing), cutoff).
		Updates(map[string]interface{}{
			"status":     string(po.EventStatusPending),
			"updated_at": gorm.Expr("NOW()"),
		})
	return result.RowsAffected, result.Error
}
