package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/fastship-next/internal/config"
	"github.com/fastship-next/internal/logger"
	"github.com/fastship-next/internal/models"
	"github.com/fastship-next/internal/provider"
	"github.com/fastship-next/internal/router"
	"github.com/fastship-next/internal/worker"

	"gorm.io/gorm"
)

// OpenDatabase 按配置打开数据库并执行迁移
func OpenDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := models.OpenDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, cfg.Server.Mode == "debug")
	if err != nil {
		return nil, fmt.Errorf("open database failed: %w", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate database failed: %w", err)
	}
	return db, nil
}

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	db, err := OpenDatabase(cfg)
	if err != nil {
		return nil, err
	}
	container, err := provider.NewContainer(cfg, db)
	if err != nil {
		return nil, err
	}

	var services []Service

	// 初始化 HTTP 服务
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		httpService := NewHTTPService(addr, engine)
		services = append(services, httpService)
	}

	// 初始化 Worker 服务；队列未启用时通知由 API 进程直接发送
	if mode == ModeAll || mode == ModeWorker {
		if cfg.Queue.Enabled {
			consumer := worker.NewConsumer(container)
			workerService, err := worker.NewService(&cfg.Queue, consumer)
			if err != nil {
				return nil, err
			}
			services = append(services, workerService)
		} else if mode == ModeWorker {
			return nil, errors.New("worker mode requires queue.enabled")
		} else {
			logger.Warnw("app_worker_skipped", "reason", "queue disabled")
		}
	}

	if len(services) == 0 {
		return nil, errors.New("no services initialized (check mode and config)")
	}

	// 最后停止，保证其他服务退出后再释放连接
	services = append(services, newCloserService(container))
	return NewRunner(services...), nil
}

// closerService 在运行器停止时释放容器持有的连接
type closerService struct {
	container *provider.Container
}

func newCloserService(container *provider.Container) *closerService {
	return &closerService{container: container}
}

func (s *closerService) Name() string { return "resources" }

func (s *closerService) Start(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (s *closerService) Stop(context.Context) error {
	s.container.Close()
	if sqlDB, err := s.container.DB.DB(); err == nil {
		return sqlDB.Close()
	}
	return nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
