package router

import (
	"fmt"
	"strings"

	"github.com/fastship-next/internal/config"
	"github.com/fastship-next/internal/constants"
	partnerhandlers "github.com/fastship-next/internal/http/handlers/partner"
	publichandlers "github.com/fastship-next/internal/http/handlers/public"
	sellerhandlers "github.com/fastship-next/internal/http/handlers/seller"
	"github.com/fastship-next/internal/http/response"
	"github.com/fastship-next/internal/logger"
	"github.com/fastship-next/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（公开 / 卖家 / 配送员）
	publicHandler := publichandlers.New(c)
	sellerHandler := sellerhandlers.New(c)
	partnerHandler := partnerhandlers.New(c)

	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "fs"
	}
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.LoginRateLimit.BlockSeconds,
	}
	reviewRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:review", redisPrefix),
		WindowSeconds: cfg.Security.ReviewRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.ReviewRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.ReviewRateLimit.BlockSeconds,
	}

	// 中间件
	r.Use(RecoveryMiddleware())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/health", publicHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{})))

	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		apiV1.GET("/shipments/:id/track", publicHandler.TrackShipment)
		apiV1.POST("/shipments/review", RateLimitMiddleware(c.Redis, reviewRule, KeyByIP), publicHandler.SubmitReview)
		apiV1.PUT("/locations/:zip", publicHandler.RegisterLocation)
		apiV1.GET("/locations/:zip/partners", publicHandler.PartnersServicing)

		// 卖家
		sellerPublic := apiV1.Group("/seller")
		{
			sellerPublic.POST("/signup", publicHandler.SellerSignup)
			sellerPublic.POST("/login", RateLimitMiddleware(c.Redis, loginRule, KeyByIPAndJSONField("email")), publicHandler.SellerLogin)
			sellerPublic.GET("/verify", publicHandler.SellerVerify)
		}
		seller := apiV1.Group("/seller")
		seller.Use(AccountAuthMiddleware(c.AuthService, constants.RoleSeller), RoleRBACMiddleware(c.AuthzService))
		{
			seller.GET("/me", sellerHandler.Me)
			seller.POST("/logout", sellerHandler.Logout)
			seller.GET("/shipments", sellerHandler.ListShipments)
			seller.POST("/shipments", sellerHandler.CreateShipment)
			seller.GET("/shipments/:id", sellerHandler.GetShipment)
			seller.GET("/shipments/:id/timeline", sellerHandler.Timeline)
			seller.POST("/shipments/:id/cancel", sellerHandler.CancelShipment)
			seller.POST("/shipments/:id/tags", sellerHandler.AddTag)
			seller.DELETE("/shipments/:id/tags/:tag", sellerHandler.RemoveTag)
		}

		// 配送员
		partnerPublic := apiV1.Group("/partner")
		{
			partnerPublic.POST("/signup", publicHandler.PartnerSignup)
			partnerPublic.POST("/login", RateLimitMiddleware(c.Redis, loginRule, KeyByIPAndJSONField("email")), publicHandler.PartnerLogin)
			partnerPublic.GET("/verify", publicHandler.PartnerVerify)
		}
		partner := apiV1.Group("/partner")
		partner.Use(AccountAuthMiddleware(c.AuthService, constants.RolePartner), RoleRBACMiddleware(c.AuthzService))
		{
			partner.GET("/me", partnerHandler.Me)
			partner.PATCH("/me", partnerHandler.UpdateMe)
			partner.POST("/logout", partnerHandler.Logout)
			partner.GET("/shipments", partnerHandler.ListShipments)
			partner.GET("/shipments/:id", partnerHandler.GetShipment)
			partner.PATCH("/shipments/:id", partnerHandler.UpdateShipment)
			partner.GET("/shipments/:id/timeline", partnerHandler.Timeline)
			partner.POST("/shipments/:id/tags", partnerHandler.AddTag)
			partner.DELETE("/shipments/:id/tags/:tag", partnerHandler.RemoveTag)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "route not found")
	})

	return r
}
