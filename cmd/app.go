package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"iam/api"
	"iam/application/permission"
	roleapp "iam/application/role"
	userapp "iam/application/user"
	"iam/config"
	"iam/domain/shared"
	"iam/infrastructure/messaging"
	"iam/infrastructure/persistence/mysql"
	"iam/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// App 应用程序结构体：持有已装配的服务，以及可选的运维 HTTP 服务器、outbox worker 和角色过期清扫器。
type App struct {
	config    *config.Config
	router    *api.Router
	server    *http.Server
	db        *gorm.DB
	redis     *redis.Client
	bus       *shared.EventBus
	worker    *mysql.OutboxWorker
	publisher messaging.Publisher

	roles   *roleapp.ApplicationService
	users   *userapp.ApplicationService
	checker *permission.Checker
	sweeper *roleapp.ExpirySweeper
}

// Roles 角色应用服务
func (a *App) Roles() *roleapp.ApplicationService { return a.roles }

// Users 用户应用服务
func (a *App) Users() *userapp.ApplicationService { return a.users }

// Permissions 权限检查
func (a *App) Permissions() *permission.Checker { return a.checker }

// Events 进程内事件总线，可订阅额外的处理器
func (a *App) Events() *shared.EventBus { return a.bus }

// Run 运行应用程序，ctx 取消后优雅关闭
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Server starting", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})

	if a.worker != nil {
		g.Go(func() error {
			logger.Info("Outbox worker started")
			if err := a.worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("outbox worker exited with error: %w", err)
			}
			return nil
		})
	}

	if a.sweeper != nil {
		g.Go(func() error {
			if err := a.sweeper.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("role expiry sweeper exited with error: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	logger.Info("Server stopped")
	return err
}

// Close releases connections opened by the builder.
func (a *App) Close() {
	if closer, ok := a.publisher.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Warn("Failed to close outbox publisher", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

// GetServer 获取服务器实例（用于测试）
func (a *App) GetServer() *gin.Engine {
	return a.router.GetEngine()
}
