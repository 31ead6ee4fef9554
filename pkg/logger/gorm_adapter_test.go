package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"iam/infrastructure/persistence"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm/logger"
)

func TestGormLoggerAdapterLevels(t *testing.T) {
	tests := []struct {
		name      string
		level     logger.LogLevel
		wantInfo  bool
		wantTrace bool
	}{
		{"warn", logger.Warn, false, false},
		{"info", logger.Info, true, true},
		{"silent", logger.Silent, false, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			logs := observe(t, zapcore.DebugLevel)
			adapter := NewGormLoggerAdapter(tc.level)
			assert.NotNil(t, adapter.LogMode(logger.Info))

			ctx := context.Background()
			adapter.Info(ctx, "info %d", 1)
			adapter.Warn(ctx, "warn")
			adapter.Error(ctx, "error")
			adapter.Trace(ctx, time.Now(), func() (string, int64) {
				return "SELECT * FROM role_events WHERE aggregate_id = ?", 3
			}, nil)

			assert.Equal(t, tc.wantInfo, logs.FilterMessage("info 1").Len() == 1)
			assert.Equal(t, tc.level >= logger.Warn, logs.FilterMessage("warn").Len() == 1)
			assert.Equal(t, tc.level >= logger.Error, logs.FilterMessage("error").Len() == 1)

			traces := logs.FilterMessage("SQL query executed").All()
			assert.Equal(t, tc.wantTrace, len(traces) == 1)
			if tc.wantTrace {
				assert.Contains(t, traces[0].ContextMap()["sql"], "role_events")
			}
		})
	}
}

func TestGormLoggerAdapterSlowQueryAndContext(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)

	adapter := NewGormLoggerAdapterWithConfig(logger.Info, &GormLoggerConfig{
		SlowThreshold:             time.Millisecond,
		IgnoreRecordNotFoundError: true,
	})

	ctx := persistence.ContextWithRequestID(context.Background(), "req-42")
	adapter.Trace(ctx, time.Now().Add(-10*time.Millisecond), func() (string, int64) {
		return "SELECT * FROM snapshots", 1
	}, nil)
	adapter.Trace(ctx, time.Now(), func() (string, int64) {
		return "SELECT * FROM role_views WHERE id = ?", 0
	}, logger.ErrRecordNotFound)
	adapter.Trace(ctx, time.Now(), func() (string, int64) {
		return "INSERT INTO events", 0
	}, errors.New("deadlock"))

	slow := logs.FilterMessage("Slow SQL query").All()
	if assert.Len(t, slow, 1) {
		assert.Equal(t, "req-42", slow[0].ContextMap()["request_id"])
	}

	failed := logs.FilterMessage("Database operation failed").All()
	if assert.Len(t, failed, 1) {
		assert.Equal(t, "INSERT INTO events", failed[0].ContextMap()["sql"])
	}
}
