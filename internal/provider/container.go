package provider

import (
	"fmt"

	"github.com/fastship-next/internal/authz"
	"github.com/fastship-next/internal/cache"
	"github.com/fastship-next/internal/config"
	"github.com/fastship-next/internal/http/handlers/shared"
	"github.com/fastship-next/internal/logger"
	"github.com/fastship-next/internal/metrics"
	"github.com/fastship-next/internal/models"
	"github.com/fastship-next/internal/queue"
	"github.com/fastship-next/internal/repository"
	"github.com/fastship-next/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	DB          *gorm.DB
	Redis       *redis.Client
	Cache       *cache.Store
	QueueClient *queue.Client
	Registry    *prometheus.Registry
	Metrics     *metrics.Metrics

	// Repositories
	SellerRepo   repository.SellerRepository
	PartnerRepo  repository.PartnerRepository
	LocationRepo repository.LocationRepository
	ShipmentRepo repository.ShipmentRepository
	EventRepo    repository.ShipmentEventRepository
	TagRepo      repository.TagRepository
	ReviewRepo   repository.ReviewRepository

	// Services
	AuthzService    *authz.Service
	TokenService    *service.TokenService
	AuthService     *service.AuthService
	EmailService    *service.EmailService
	SMSService      *service.SMSService
	Dispatcher      service.NotificationDispatcher
	LocationService *service.LocationService
	PartnerService  *service.PartnerService
	EventService    *service.EventService
	ShipmentService *service.ShipmentService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config, db *gorm.DB) (*Container, error) {
	if cfg == nil || db == nil {
		return nil, fmt.Errorf("provider requires config and db")
	}
	if err := shared.ValidateErrorMapping(); err != nil {
		return nil, err
	}

	redisClient := cache.NewRedisClient(&cfg.Redis)
	if cfg.Redis.Enabled && redisClient == nil {
		logger.Warnw("provider_init_redis_failed", "host", cfg.Redis.Host, "port", cfg.Redis.Port)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(registry)
	if err != nil {
		return nil, fmt.Errorf("register metrics failed: %w", err)
	}

	c := &Container{
		Config:      cfg,
		DB:          db,
		Redis:       redisClient,
		Cache:       cache.NewStore(redisClient, cfg.Redis.Prefix),
		QueueClient: queueClient,
		Registry:    registry,
		Metrics:     m,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	if err := c.initServices(); err != nil {
		return nil, err
	}

	// 3. 预置数据
	if err := models.SeedTags(db); err != nil {
		return nil, fmt.Errorf("seed tags failed: %w", err)
	}
	return c, nil
}

func (c *Container) initRepositories() {
	db := c.DB
	c.SellerRepo = repository.NewSellerRepository(db)
	c.PartnerRepo = repository.NewPartnerRepository(db)
	c.LocationRepo = repository.NewLocationRepository(db)
	c.ShipmentRepo = repository.NewShipmentRepository(db)
	c.EventRepo = repository.NewShipmentEventRepository(db)
	c.TagRepo = repository.NewTagRepository(db)
	c.ReviewRepo = repository.NewReviewRepository(db)
}

func (c *Container) initServices() error {
	authzService, err := authz.NewService(c.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		return err
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		return err
	}

	c.EmailService = service.NewEmailService(&c.Config.Email)
	c.SMSService = service.NewSMSService(&c.Config.SMS)
	if c.QueueClient != nil && c.QueueClient.Enabled() {
		c.Dispatcher = service.NewQueueDispatcher(c.QueueClient)
	} else {
		logger.Infow("provider_inline_notifications", "reason", "queue disabled")
		c.Dispatcher = service.NewInlineDispatcher(c.EmailService, c.SMSService)
	}

	var codes service.VerificationCodeStore
	if c.Cache.Enabled() {
		codes = cache.NewRedisVerificationCodeStore(c.Cache)
	} else {
		logger.Warnw("provider_verification_codes_in_memory", "reason", "redis disabled")
		codes = cache.NewMemoryVerificationCodeStore()
	}

	c.TokenService = service.NewTokenService(c.Config.Shipment.ReviewSecret, c.Config.App.Domain)
	c.AuthService = service.NewAuthService(
		c.DB,
		c.Config,
		c.SellerRepo,
		c.PartnerRepo,
		c.LocationRepo,
		c.TokenService,
		cache.NewTokenBlacklist(c.Cache),
		c.Dispatcher,
	)
	c.LocationService = service.NewLocationService(c.LocationRepo)
	c.PartnerService = service.NewPartnerService(c.DB, c.PartnerRepo, c.LocationRepo)
	c.EventService = service.NewEventService(c.EventRepo, c.LocationRepo)
	c.ShipmentService = service.NewShipmentService(service.ShipmentServiceDeps{
		DB:           c.DB,
		Config:       c.Config.Shipment,
		ShipmentRepo: c.ShipmentRepo,
		SellerRepo:   c.SellerRepo,
		TagRepo:      c.TagRepo,
		ReviewRepo:   c.ReviewRepo,
		Assigner:     service.NewAssignmentEngine(c.PartnerRepo),
		Events:       c.EventService,
		Codes:        codes,
		Tokens:       c.TokenService,
		Dispatcher:   c.Dispatcher,
		Cache:        c.Cache,
		Metrics:      c.Metrics,
	})
	return nil
}

// Close 释放外部连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			logger.Warnw("provider_close_queue_client_failed", "error", err)
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logger.Warnw("provider_close_redis_failed", "error", err)
		}
	}
}
