package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	ut "github.com/go-playground/universal-translator"
	"go.uber.org/zap"
	"gorm.io/gorm"

	internalApp "github.com/haierkeys/lww-note-sync/internal/app"
	"github.com/haierkeys/lww-note-sync/internal/routers"
	"github.com/haierkeys/lww-note-sync/internal/task"
	pkgapp "github.com/haierkeys/lww-note-sync/pkg/app"
	"github.com/haierkeys/lww-note-sync/pkg/code"
	"github.com/haierkeys/lww-note-sync/pkg/logger"
	"github.com/haierkeys/lww-note-sync/pkg/safe_close"
)

// DefaultShutdownTimeout 默认关闭超时时间
const DefaultShutdownTimeout = 30 * time.Second

// Server 一次配置加载对应的服务端进程组件，热重载时整体替换
type Server struct {
	logger            *zap.Logger
	config            *internalApp.AppConfig
	db                *gorm.DB
	ut                *ut.UniversalTranslator
	httpServer        *http.Server
	privateHttpServer *http.Server
	sc                *safe_close.SafeClose
	app               *internalApp.App

	// httpWg 等待 HTTP 服务停止后再关闭 App Container
	httpWg sync.WaitGroup
}

func NewServer(runEnv *runFlags) (*Server, error) {
	appConfig, configRealpath, err := internalApp.LoadConfig(runEnv.config)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := appConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configRealpath, err)
	}

	runMode := runEnv.runMode
	if len(runMode) <= 0 {
		runMode = appConfig.Server.RunMode
	}
	if len(runMode) > 0 {
		gin.SetMode(runMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	appConfig.Server.RunMode = gin.Mode()

	if len(runEnv.port) > 0 {
		appConfig.Server.HttpPort = ":" + runEnv.port
	}

	s := &Server{
		config: appConfig,
		sc:     safe_close.NewSafeClose(),
	}

	if err := initStorageWithConfig(appConfig); err != nil {
		return nil, fmt.Errorf("initStorage: %w", err)
	}

	lg, err := logger.NewLogger(appConfig.LoggerConfig())
	if err != nil {
		return nil, fmt.Errorf("initLogger: %w", err)
	}
	s.logger = lg

	if err := code.SetGlobalDefaultLang(appConfig.App.Lang); err != nil {
		s.logger.Warn("unsupported app.lang", zap.String("lang", appConfig.App.Lang), zap.Error(err))
	}

	// 数据库为可选项，关闭时服务端副本只保存在内存中
	if appConfig.Database.Enabled {
		db, err := openDatabase(context.Background(), appConfig.Database, s.logger, gin.IsDebugging())
		if err != nil {
			return nil, fmt.Errorf("initDatabase: %w", err)
		}
		s.db = db
	}

	app, err := internalApp.NewApp(appConfig, s.logger, s.db, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create app container: %w", err)
	}
	s.app = app

	restoreCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	err = app.Restore(restoreCtx)
	cancel()
	if err != nil {
		_ = app.Shutdown(context.Background())
		return nil, fmt.Errorf("restore replica: %w", err)
	}

	uni, err := pkgapp.NewTranslator()
	if err != nil {
		return nil, fmt.Errorf("initValidator: %w", err)
	}
	s.ut = uni

	initScheduler(s)

	s.logger.Warn(fmt.Sprintf("%s v%s\nGit: %s\nBuildTime: %s", internalApp.Name, internalApp.Version, internalApp.GitTag, internalApp.BuildTime))
	s.logger.Warn("config loaded",
		zap.String("path", configRealpath),
		zap.Bool("persistent", s.db != nil))

	if httpAddr := appConfig.Server.HttpPort; len(httpAddr) > 0 {
		s.logger.Warn("api_router", zap.String("config.server.HttpPort", httpAddr))
		s.httpServer = &http.Server{
			Addr:           httpAddr,
			Handler:        routers.NewRouter(s.app, s.ut),
			ReadTimeout:    time.Duration(appConfig.Server.ReadTimeout) * time.Second,
			WriteTimeout:   time.Duration(appConfig.Server.WriteTimeout) * time.Second,
			MaxHeaderBytes: 1 << 20,
		}
		s.serve("api", s.httpServer)
	}

	if httpAddr := appConfig.Server.PrivateHttpListen; len(httpAddr) > 0 {
		s.logger.Info("private_router", zap.String("config.server.PrivateHttpListen", httpAddr))
		s.privateHttpServer = &http.Server{
			Addr:           httpAddr,
			Handler:        routers.NewPrivateRouter(s.app),
			ReadTimeout:    time.Duration(appConfig.Server.ReadTimeout) * time.Second,
			WriteTimeout:   time.Duration(appConfig.Server.WriteTimeout) * time.Second,
			MaxHeaderBytes: 1 << 20,
		}
		s.serve("private api", s.privateHttpServer)
	}

	// App Container 在 HTTP 服务停止后关闭，排空写队列并关闭数据库
	s.sc.Attach(func(done func(), closeSignal <-chan struct{}) {
		defer done()
		<-closeSignal
		s.httpWg.Wait()

		ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()

		if err := s.app.Shutdown(ctx); err != nil {
			s.logger.Error("failed to shutdown app container", zap.Error(err))
		} else {
			s.logger.Info("App container shutdown gracefully")
		}
	})

	return s, nil
}

// serve 在 safe_close 上挂载一个 HTTP 服务，监听失败时关闭整个 Server
func (s *Server) serve(name string, srv *http.Server) {
	s.httpWg.Add(1)
	s.sc.Attach(func(done func(), closeSignal <-chan struct{}) {
		defer done()
		defer s.httpWg.Done()

		errChan := make(chan error, 1)
		go func() {
			errChan <- srv.ListenAndServe()
		}()

		select {
		case err := <-errChan:
			if err != nil && err != http.ErrServerClosed {
				s.logger.Error(name+" service err", zap.Error(err))
				s.sc.SendCloseSignal(err)
			}
		case <-closeSignal:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				s.logger.Error(name+" service shutdown error", zap.Error(err))
			}
		}
	})
}

func initScheduler(s *Server) {
	manager := task.NewManager(s.logger, s.sc, s.app)

	if err := manager.RegisterTasks(); err != nil {
		s.logger.Error("failed to register tasks", zap.Error(err))
		return
	}

	manager.Start()
}

// initStorageWithConfig 创建日志与 SQLite 文件所在目录
func initStorageWithConfig(cfg *internalApp.AppConfig) error {
	dirs := []string{filepath.Dir(cfg.Log.File)}
	if cfg.Database.Enabled && cfg.Database.Type == "sqlite" {
		dirs = append(dirs, filepath.Dir(cfg.Database.Path))
	}

	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o754); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// GetApp 获取 App Container
func (s *Server) GetApp() *internalApp.App {
	return s.app
}

// GetConfig 获取应用配置
func (s *Server) GetConfig() *internalApp.AppConfig {
	return s.config
}
