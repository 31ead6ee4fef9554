package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "iam", cfg.App.Name)
	assert.Equal(t, "memory", cfg.Database.Type)
	assert.Equal(t, 50, cfg.EventStore.SnapshotEvery)
	assert.Equal(t, "database", cfg.EventStore.SnapshotBackend)
	assert.Equal(t, 5*time.Minute, cfg.EventStore.CacheTTL)
	assert.Equal(t, 3, cfg.Database.Retry.MaxAttempts)
	assert.True(t, cfg.Database.Retry.RetryOnConcurrency)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Worker.Enabled)
	assert.True(t, cfg.Expiry.Enabled)
	assert.Equal(t, time.Minute, cfg.Expiry.SweepInterval)
	assert.Equal(t, 12, cfg.Security.BcryptCost)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
app:
  env: production
database:
  type: mysql
eventstore:
  snapshot_every: 10
  snapshot_backend: redis
worker:
  enabled: true
  batch_size: 25
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	t.Setenv("IAM_REDIS_ADDR", "redis.internal:6380")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.UsesMySQL())
	assert.Equal(t, 10, cfg.EventStore.SnapshotEvery)
	assert.Equal(t, "redis", cfg.EventStore.SnapshotBackend)
	assert.Equal(t, 25, cfg.Worker.BatchSize)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Database:   DatabaseConfig{Type: "memory"},
			EventStore: EventStoreConfig{SnapshotBackend: "database"},
		}
	}

	cfg := base()
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Database.Type = "postgres"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.EventStore.SnapshotBackend = "s3"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Worker.Enabled = true
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Kafka.Enabled = true
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Expiry.Enabled = true
	assert.Error(t, cfg.Validate())
	cfg.Expiry.SweepInterval = time.Second
	assert.NoError(t, cfg.Validate())
}
