// Package retry reruns a command whose append lost an optimistic
// concurrency race or hit a transient MySQL lock error.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"time"

	"iam/config"
	"iam/domain/shared"
	"iam/pkg/logger"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	mysqlDeadlock    = 1213
	mysqlLockTimeout = 1205
)

type Config struct {
	Enabled            bool
	MaxAttempts        int
	InitialDelay       time.Duration
	MaxDelay           time.Duration
	BackoffFactor      float64
	JitterEnabled      bool
	RetryOnConcurrency bool
	RetryOnDeadlock    bool
	RetryOnLockTimeout bool
	RetryPredicate     func(error) bool
}

var DefaultConfig = Config{
	Enabled:            true,
	MaxAttempts:        3,
	InitialDelay:       50 * time.Millisecond,
	MaxDelay:           time.Second,
	BackoffFactor:      2.0,
	JitterEnabled:      true,
	RetryOnConcurrency: true,
	RetryOnDeadlock:    true,
	RetryOnLockTimeout: true,
}

// FromConfig maps database.retry onto a retry Config.
func FromConfig(cfg config.RetryConfig) Config {
	return Config{
		Enabled:            cfg.Enabled,
		MaxAttempts:        cfg.MaxAttempts,
		InitialDelay:       cfg.InitialDelay,
		MaxDelay:           cfg.MaxDelay,
		BackoffFactor:      cfg.BackoffFactor,
		JitterEnabled:      cfg.JitterEnabled,
		RetryOnConcurrency: cfg.RetryOnConcurrency,
		RetryOnDeadlock:    cfg.RetryOnDeadlock,
		RetryOnLockTimeout: cfg.RetryOnLockTimeout,
	}
}

func ExponentialBackoffWithJitter(attempt int, cfg Config) time.Duration {
	if attempt <= 0 {
		return 0
	}
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.BackoffFactor, float64(attempt-1))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	if cfg.JitterEnabled {
		delay *= 0.8 + rand.Float64()*0.4
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// IsRetryableError reports whether rerunning the whole load-mutate-save
// cycle can succeed. Business rule and validation failures never are.
func IsRetryableError(err error, cfg Config) bool {
	if err == nil {
		return false
	}
	if cfg.RetryPredicate != nil && cfg.RetryPredicate(err) {
		return true
	}
	if errors.Is(err, shared.ErrConcurrency) {
		return cfg.RetryOnConcurrency
	}
	if shared.KindOf(err) != shared.KindUnknown {
		return false
	}

	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case mysqlDeadlock:
			return cfg.RetryOnDeadlock
		case mysqlLockTimeout:
			return cfg.RetryOnLockTimeout
		}
		return false
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "deadlock") {
		return cfg.RetryOnDeadlock
	}
	if strings.Contains(msg, "lock wait timeout") {
		return cfg.RetryOnLockTimeout
	}
	if errors.Is(err, gorm.ErrInvalidTransaction) ||
		(strings.Contains(msg, "connection") && strings.Contains(msg, "lost")) {
		return true
	}
	return false
}

// ExecuteWithRetry runs fn up to MaxAttempts times. fn must reload the
// aggregate on every call; the last error is returned unchanged.
func ExecuteWithRetry(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	if !cfg.Enabled || cfg.MaxAttempts <= 1 {
		return fn(ctx)
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsRetryableError(err, cfg) || attempt == cfg.MaxAttempts {
			break
		}

		delay := ExponentialBackoffWithJitter(attempt, cfg)
		logger.Ctx(ctx).Debug("Retrying command",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}
	}
	return lastErr
}
