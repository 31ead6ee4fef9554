package cmd

import (
	"context"
	"fmt"
	"net/http"

	"iam/api"
	"iam/api/authz"
	"iam/api/health"
	"iam/application/permission"
	roleapp "iam/application/role"
	userapp "iam/application/user"
	"iam/config"
	roledomain "iam/domain/role"
	"iam/domain/shared"
	userdomain "iam/domain/user"
	"iam/infrastructure/messaging"
	"iam/infrastructure/messaging/kafka"
	"iam/infrastructure/persistence/cache"
	"iam/infrastructure/persistence/eventsourced"
	"iam/infrastructure/persistence/memory"
	"iam/infrastructure/persistence/mysql"
	redisstore "iam/infrastructure/persistence/redis"
	"iam/infrastructure/persistence/retry"
	"iam/infrastructure/security"
	"iam/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AppBuilder assembles the stores, repositories and services selected by config.
type AppBuilder struct {
	cfg        *config.Config
	skipLogger bool
	publisher  messaging.Publisher
}

// NewBuilder creates a new AppBuilder
func NewBuilder(cfg *config.Config) *AppBuilder {
	return &AppBuilder{cfg: cfg}
}

// WithoutLoggerInit keeps an already installed global logger (tests, embedding).
func (b *AppBuilder) WithoutLoggerInit() *AppBuilder {
	b.skipLogger = true
	return b
}

// WithOutboxPublisher overrides the relay target chosen from config.
func (b *AppBuilder) WithOutboxPublisher(p messaging.Publisher) *AppBuilder {
	b.publisher = p
	return b
}

// Build creates the App instance
func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if !b.skipLogger {
		if err := logger.Init(&b.cfg.Log, b.cfg.App.Env); err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	logger.Info("Starting application",
		zap.String("app", b.cfg.App.Name),
		zap.String("version", b.cfg.App.Version),
		zap.String("env", b.cfg.App.Env),
		zap.String("database", b.cfg.Database.Type),
		zap.String("snapshot_backend", b.cfg.EventStore.SnapshotBackend))

	app := &App{config: b.cfg}
	probes := map[string]health.Probe{}

	var (
		store     shared.EventStore
		snapshots shared.SnapshotStore
		roleViews roledomain.ViewRepository
		userViews userdomain.ViewRepository
	)

	switch b.cfg.Database.Type {
	case "mysql":
		db, err := b.openMySQL()
		if err != nil {
			return nil, err
		}
		app.db = db
		probes["mysql"] = func(ctx context.Context) error { return mysql.Ping(ctx, db) }
		store = mysql.NewEventStore(db)
		snapshots = mysql.NewSnapshotStore(db)
		roleViews = mysql.NewRoleViewRepository(db)
		userViews = mysql.NewUserViewRepository(db)
	default:
		logger.Info("Using in-memory event store")
		mem := memory.NewEventStore()
		store = mem
		snapshots = mem
		roleViews = memory.NewRoleViewRepository()
		userViews = memory.NewUserViewRepository()
	}

	if b.cfg.EventStore.SnapshotBackend == "redis" {
		client, err := redisstore.NewClient(ctx, b.cfg.Redis)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.redis = client
		probes["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		snapshots = redisstore.NewSnapshotStore(client, b.cfg.Redis.KeyPrefix, b.cfg.Redis.TTL)
	}
	if b.cfg.EventStore.CacheSize > 0 {
		snapshots = cache.NewSnapshotCache(snapshots, b.cfg.EventStore.CacheSize, b.cfg.EventStore.CacheTTL)
	}

	bus := shared.NewEventBus()
	opts := eventsourced.Options{
		SnapshotEvery: b.cfg.EventStore.SnapshotEvery,
		Snapshots:     snapshots,
		Publisher:     bus,
	}
	roleRepo := eventsourced.NewRoleRepository(store, opts)
	userRepo := eventsourced.NewUserRepository(store, opts)

	if err := roleapp.NewProjector(roleRepo, roleViews).Subscribe(bus); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to subscribe role projector: %w", err)
	}
	if err := userapp.NewProjector(userRepo, userViews).Subscribe(bus); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to subscribe user projector: %w", err)
	}

	retryCfg := retry.FromConfig(b.cfg.Database.Retry)
	app.bus = bus
	app.roles = roleapp.NewApplicationService(roleRepo, roleViews, retryCfg)
	app.users = userapp.NewApplicationService(userRepo, userViews, security.NewBcryptHasher(b.cfg.Security), retryCfg)
	app.checker = permission.NewChecker(roleRepo)

	if b.cfg.Expiry.Enabled {
		sweeper, err := roleapp.NewExpirySweeper(app.roles, roleViews, b.cfg.Expiry.SweepInterval)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to create role expiry sweeper: %w", err)
		}
		app.sweeper = sweeper
	}

	if b.cfg.Worker.Enabled && app.db != nil {
		app.publisher = b.outboxPublisher()
		worker, err := mysql.NewOutboxWorker(mysql.NewOutboxRepository(app.db), app.publisher, b.cfg.Worker)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to create outbox worker: %w", err)
		}
		app.worker = worker
	}

	router := api.NewRouter(b.cfg, health.NewController(b.cfg, probes), authz.NewController(app.checker))
	router.SetupRoutes()
	app.router = router
	app.server = &http.Server{
		Addr:         ":" + b.cfg.Server.Port,
		Handler:      router.GetEngine(),
		ReadTimeout:  b.cfg.Server.ReadTimeout,
		WriteTimeout: b.cfg.Server.WriteTimeout,
	}

	return app, nil
}

func (b *AppBuilder) openMySQL() (*gorm.DB, error) {
	logger.Info("Using MySQL/GORM event store")

	db, err := OpenMySQL(b.cfg)
	if err != nil {
		return nil, err
	}

	if b.cfg.Database.AutoMigrate {
		if err := mysql.AutoMigrate(db); err != nil {
			if sqlDB, dbErr := db.DB(); dbErr == nil {
				_ = sqlDB.Close()
			}
			return nil, fmt.Errorf("failed to auto migrate: %w", err)
		}
	}
	return db, nil
}

// OpenMySQL connects and pings the configured database.
func OpenMySQL(cfg *config.Config) (*gorm.DB, error) {
	db, err := mysql.NewConfig(cfg.Database).Connect()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}
	if err := mysql.Ping(context.Background(), db); err != nil {
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}
	return db, nil
}

func (b *AppBuilder) outboxPublisher() messaging.Publisher {
	if b.publisher != nil {
		return b.publisher
	}
	return NewOutboxPublisher(b.cfg.Kafka)
}

// NewOutboxPublisher picks Kafka when enabled, otherwise the log-only publisher.
func NewOutboxPublisher(cfg config.KafkaConfig) messaging.Publisher {
	if cfg.Enabled {
		logger.Info("Outbox relays to Kafka", zap.Strings("brokers", cfg.Brokers), zap.String("topic_prefix", cfg.TopicPrefix))
		return kafka.NewPublisher(cfg)
	}
	logger.Info("Kafka disabled; outbox events are logged only")
	return &messaging.LoggingPublisher{}
}
