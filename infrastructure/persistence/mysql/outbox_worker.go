package mysql

import (
	"context"
	"fmt"
	"time"

	"iam/config"
	"iam/infrastructure/messaging"
	"iam/pkg/logger"
	"iam/pkg/metrics"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// staleAfter is how long a claimed row may stay PROCESSING before it is released.
const staleAfter = 5 * time.Minute

// OutboxWorker relays committed events from outbox_events to a Publisher.
type OutboxWorker struct {
	repository   *OutboxRepository
	publisher    messaging.Publisher
	limiter      *rate.Limiter
	pollInterval time.Duration
	batchSize    int
	maxRetries   int
}

func NewOutboxWorker(
	repository *OutboxRepository,
	publisher messaging.Publisher,
	cfg config.WorkerConfig,
) (*OutboxWorker, error) {
	if repository == nil {
		return nil, fmt.Errorf("outbox repository is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher is required")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive")
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive")
	}
	if cfg.MaxRetries <= 0 {
		return nil, fmt.Errorf("max retries must be positive")
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.PublishRate > 0 {
		burst := cfg.PublishBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.PublishRate), burst)
	}

	return &OutboxWorker{
		repository:   repository,
		publisher:    publisher,
		limiter:      limiter,
		pollInterval: cfg.PollInterval,
		batchSize:    cfg.BatchSize,
		maxRetries:   cfg.MaxRetries,
	}, nil
}

func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	logger.Info("Outbox worker started",
		zap.Duration("poll_interval", w.pollInterval),
		zap.Int("batch_size", w.batchSize),
	)
	for {
		select {
		case <-ctx.Done():
			logger.Info("Outbox worker stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := w.processBatch(ctx); err != nil {
				logger.Error("Outbox batch processing failed", zap.Error(err))
			}
		}
	}
}

func (w *OutboxWorker) processBatch(ctx context.Context) error {
	if released, err := w.repository.ReleaseStale(ctx, staleAfter); err != nil {
		logger.Warn("Failed to release stale outbox events", zap.Error(err))
	} else if released > 0 {
		logger.Warn("Released stale outbox events", zap.Int64("count", released))
	}

	events, err := w.repository.GetPendingEvents(ctx, w.batchSize)
	if err != nil {
		return err
	}
	metrics.OutboxPending.Set(float64(len(events)))

	for _, event := range events {
		if err := w.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := w.repository.MarkEventProcessing(ctx, event.ID); err != nil {
			logger.Warn("Skip outbox event due to lock contention",
				zap.String("event_id", event.ID),
				zap.Error(err),
			)
			continue
		}

		if err := w.publisher.Publish(ctx, event.ToMessage()); err != nil {
			parked, failErr := w.repository.MarkEventFailed(ctx, event.ID, w.maxRetries, err)
			switch {
			case failErr != nil:
				logger.Error("Failed to mark outbox event as failed",
					zap.String("event_id", event.ID),
					zap.Error(failErr),
				)
			case parked:
				metrics.OutboxEvents.WithLabelValues("failed").Inc()
				logger.Error("Outbox event parked after max retries",
					zap.String("event_id", event.ID),
					zap.String("event_type", event.EventType),
					zap.Error(err),
				)
			default:
				metrics.OutboxEvents.WithLabelValues("retry").Inc()
				logger.Warn("Outbox publish failed, will retry",
					zap.String("event_id", event.ID),
					zap.Error(err),
				)
			}
			continue
		}

		if err := w.repository.MarkEventPublished(ctx, event.ID); err != nil {
			logger.Error("Failed to mark outbox event as published",
				zap.String("event_id", event.ID),
				zap.Error(err),
			)
			continue
		}
		metrics.OutboxEvents.WithLabelValues("published").Inc()
	}
	return nil
}
