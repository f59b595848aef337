package public

import (
	"context"
	"net/http"
	"time"

	"github.com/fastship-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// Health 健康检查：数据库与 Redis 连通性
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	database := "connected"
	if sqlDB, err := h.DB.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		database = "disconnected"
	}
	redisStatus := "disabled"
	if h.Cache.Enabled() {
		redisStatus = "connected"
		if err := h.Cache.Ping(ctx); err != nil {
			redisStatus = "disconnected"
		}
	}

	payload := gin.H{
		"status":   "healthy",
		"database": database,
		"redis":    redisStatus,
		"service":  h.Config.App.Name,
	}
	if database != "connected" {
		payload["status"] = "unhealthy"
		response.ErrorWithData(c, http.StatusServiceUnavailable, "unhealthy", payload)
		return
	}
	response.Success(c, payload)
}
