// Package app 提供应用容器，封装服务端的依赖和服务
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/haierkeys/lww-note-sync/internal/dao"
	"github.com/haierkeys/lww-note-sync/internal/domain"
	"github.com/haierkeys/lww-note-sync/internal/service"
	pkgapp "github.com/haierkeys/lww-note-sync/pkg/app"
	"github.com/haierkeys/lww-note-sync/pkg/writequeue"
)

// App 应用容器，封装服务端副本及其依赖
type App struct {
	// 基础设施（注入的依赖）
	config   *AppConfig
	logger   *zap.Logger
	DB       *gorm.DB
	registry *prometheus.Registry

	// 并发控制组件
	writeQueueMgr *writequeue.Manager

	Metrics        *service.Metrics
	ReplicaService service.ReplicaService

	startedAt time.Time

	// 关闭控制
	shutdownCh chan struct{}
	wg         sync.WaitGroup
}

// NewApp 创建应用容器实例
// cfg: 应用配置（必须）
// logger: zap 日志器（必须）
// db: 数据库连接，为 nil 时服务端副本只保存在内存
// registry: 指标注册器，为 nil 时新建，热重启时每个容器使用独立的注册器
func NewApp(cfg *AppConfig, logger *zap.Logger, db *gorm.DB, registry *prometheus.Registry) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	a := &App{
		config:     cfg,
		logger:     logger,
		DB:         db,
		registry:   registry,
		startedAt:  time.Now(),
		shutdownCh: make(chan struct{}),
	}

	// 初始化 Write Queue Manager
	wqConfig := cfg.GetWriteQueueConfig()
	a.writeQueueMgr = writequeue.New(&wqConfig, logger)

	a.Metrics = service.NewMetrics(registry)

	var persist domain.StateStore
	if db != nil {
		persist = dao.NewDBStateStore(db, ServerReplica)
	}

	a.ReplicaService = service.NewReplicaService(service.ReplicaServiceConfig{
		Name:    ServerReplica,
		Queue:   a.writeQueueMgr,
		Persist: persist,
		Metrics: a.Metrics,
		Logger:  logger,
	})

	logger.Info("App container initialized successfully",
		zap.Bool("persistent", persist != nil),
		zap.Int("writeQueueCapacity", wqConfig.QueueCapacity))

	return a, nil
}

// Restore 从数据库恢复服务端副本
func (a *App) Restore(ctx context.Context) error {
	return a.ReplicaService.Restore(ctx)
}

// Close 释放应用容器持有的数据库连接
func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	if err := dao.CloseDB(a.DB); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	a.logger.Info("Database connection closed")
	return nil
}

// Config 获取应用配置
func (a *App) Config() *AppConfig {
	return a.config
}

// Logger 获取日志器
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Registry 获取指标注册器
func (a *App) Registry() *prometheus.Registry {
	return a.registry
}

// StartedAt 容器创建时间
func (a *App) StartedAt() time.Time {
	return a.startedAt
}

// Version 获取版本信息
func (a *App) Version() pkgapp.VersionInfo {
	return pkgapp.VersionInfo{
		Version:   Version,
		GitTag:    GitTag,
		BuildTime: BuildTime,
	}
}

// WriteQueueManager 获取 Write Queue Manager
func (a *App) WriteQueueManager() *writequeue.Manager {
	return a.writeQueueMgr
}

// DefaultShutdownTimeout 默认关闭超时时间
const DefaultShutdownTimeout = 30 * time.Second

// Shutdown 优雅关闭应用容器
// 按顺序关闭：Write Queue Manager -> 后台操作 -> Database
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("App container shutting down...")

	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
	}

	select {
	case <-a.shutdownCh:
		return nil
	default:
		close(a.shutdownCh)
	}

	var errs []error

	// 1. 排空写队列，已入队的合并会执行完毕并落库
	if a.writeQueueMgr != nil {
		if err := a.writeQueueMgr.Shutdown(ctx); err != nil {
			a.logger.Warn("write queue manager shutdown error", zap.Error(err))
			errs = append(errs, fmt.Errorf("write queue manager shutdown: %w", err))
		}
	}

	// 2. 等待所有后台操作完成
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		a.logger.Warn("Shutdown timeout waiting for background operations")
		errs = append(errs, fmt.Errorf("background operations timeout: %w", ctx.Err()))
	}

	// 3. 关闭数据库连接
	if err := a.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown completed with %d errors: %v", len(errs), errs)
	}

	a.logger.Info("App container shutdown completed successfully")
	return nil
}

// IsShuttingDown 检查应用是否正在关闭
func (a *App) IsShuttingDown() bool {
	select {
	case <-a.shutdownCh:
		return true
	default:
		return false
	}
}

// TrackOperation 跟踪后台操作（用于优雅关闭时等待）
func (a *App) TrackOperation() func() {
	a.wg.Add(1)
	return a.wg.Done
}
